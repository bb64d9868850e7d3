package gshader

import (
	"fmt"
	"slices"

	"github.com/soypat/gshader/glbuild"
)

// PushConstantBlock holds the push constant members of a script. Members are
// identified by a caller chosen id so that stages sharing a push constant range
// agree on offsets. Use [NewPushConstantLayout] to compute shared offsets.
type PushConstantBlock struct {
	script  *Script
	members []*Node
}

// AddMember appends a [NodePushConstant] member of type dt identified by id.
func (pb *PushConstantBlock) AddMember(id uint32, dt DataType) (*Node, error) {
	if pb.Member(id) != nil {
		return nil, fmt.Errorf("push constant %d: %w", id, ErrDuplicateID)
	}
	typename, err := GLSLTypeName(dt)
	if err != nil {
		return nil, err
	} else if _, err = glbuild.Std140Of(typename); err != nil {
		return nil, fmt.Errorf("push constant %d: %w", id, ErrUnsupportedDataType)
	}
	n := pb.script.addNode(newNode(pb.script, NodePushConstant, nil, []DataType{dt}))
	n.pushID = id
	pb.members = append(pb.members, n)
	return n, nil
}

// Member returns the member identified by id or nil if there is none.
func (pb *PushConstantBlock) Member(id uint32) *Node {
	for _, m := range pb.members {
		if m.pushID == id {
			return m
		}
	}
	return nil
}

// Members returns the member nodes in insertion order.
func (pb *PushConstantBlock) Members() []*Node { return slices.Clone(pb.members) }

// MemberCount returns the number of members of the block.
func (pb *PushConstantBlock) MemberCount() int { return len(pb.members) }

// PushConstantEntry describes a member of a [PushConstantLayout].
type PushConstantEntry struct {
	ID     uint32
	Type   DataType
	Offset int
}

// PushConstantLayout assigns std140 byte offsets to push constant ids.
type PushConstantLayout struct {
	entries []PushConstantEntry
	size    int
}

// NewPushConstantLayout merges the push constant members of scripts by id in
// order of first appearance and assigns std140 offsets. Members sharing an id
// must share a data type, else ErrTypeMismatch is returned.
func NewPushConstantLayout(scripts ...*Script) (*PushConstantLayout, error) {
	var layout PushConstantLayout
	for _, s := range scripts {
		for _, m := range s.push.members {
			dt := m.outputs[0].typ
			if existing, ok := layout.Entry(m.pushID); ok {
				if existing.Type != dt {
					return nil, fmt.Errorf("push constant %d is %s in %s script and %s elsewhere: %w", m.pushID, dt, s.stage, existing.Type, ErrTypeMismatch)
				}
				continue
			}
			typename, err := GLSLTypeName(dt)
			if err != nil {
				return nil, err
			}
			rule, err := glbuild.Std140Of(typename)
			if err != nil {
				return nil, fmt.Errorf("push constant %d: %w", m.pushID, ErrUnsupportedDataType)
			}
			offset := glbuild.AlignUp(layout.size, rule.Align)
			layout.entries = append(layout.entries, PushConstantEntry{ID: m.pushID, Type: dt, Offset: offset})
			layout.size = offset + rule.Size
		}
	}
	return &layout, nil
}

// Entry returns the entry for id.
func (l *PushConstantLayout) Entry(id uint32) (PushConstantEntry, bool) {
	for _, e := range l.entries {
		if e.ID == id {
			return e, true
		}
	}
	return PushConstantEntry{}, false
}

// Offset returns the byte offset of the member identified by id.
func (l *PushConstantLayout) Offset(id uint32) (int, bool) {
	e, ok := l.Entry(id)
	return e.Offset, ok
}

// Entries returns the layout entries in offset order.
func (l *PushConstantLayout) Entries() []PushConstantEntry { return slices.Clone(l.entries) }

// Size returns the size in bytes of the push constant range, without trailing padding.
func (l *PushConstantLayout) Size() int { return l.size }

// covers checks that every push constant member of s has a matching entry.
func (l *PushConstantLayout) covers(s *Script) error {
	for _, m := range s.push.members {
		e, ok := l.Entry(m.pushID)
		if !ok {
			return fmt.Errorf("push constant %d not in layout: %w", m.pushID, ErrLayoutMismatch)
		} else if e.Type != m.outputs[0].typ {
			return fmt.Errorf("push constant %d is %s, layout has %s: %w", m.pushID, m.outputs[0].typ, e.Type, ErrLayoutMismatch)
		}
	}
	return nil
}
