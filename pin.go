package gshader

import (
	"fmt"
	"slices"
)

// PinDirection distinguishes input pins from output pins.
type PinDirection uint8

const (
	PinIn PinDirection = iota
	PinOut
)

func (d PinDirection) String() string {
	if d == PinIn {
		return "in"
	}
	return "out"
}

// Pin is the common interface of [InputPin] and [OutputPin].
type Pin interface {
	// Node returns the node owning the pin.
	Node() *Node
	// Index returns the index of the pin within its node's pins of the same direction.
	Index() int
	DataType() DataType
	Direction() PinDirection
}

var (
	_ Pin = (*InputPin)(nil) // Interface implementation compile-time check.
	_ Pin = (*OutputPin)(nil)
)

// InputPin reads a value from at most one [OutputPin]. When unconnected
// the pin's default value is used.
type InputPin struct {
	node  *Node
	index int
	typ   DataType
	def   Value
	conn  *OutputPin
}

func (p *InputPin) Node() *Node             { return p.node }
func (p *InputPin) Index() int              { return p.index }
func (p *InputPin) DataType() DataType      { return p.typ }
func (p *InputPin) Direction() PinDirection { return PinIn }

// Connection returns the output pin p reads from or nil if unconnected.
func (p *InputPin) Connection() *OutputPin { return p.conn }

// Connect connects p to out replacing any previous connection.
// Connecting to the current connection is a no-op.
func (p *InputPin) Connect(out *OutputPin) error {
	switch {
	case out == nil:
		return fmt.Errorf("connect %s: %w", p, ErrNullPin)
	case !p.node.live || !out.node.live:
		return fmt.Errorf("connect %s to %s: destroyed node: %w", p, out, ErrInvalidConnection)
	case p.node.script != out.node.script:
		return fmt.Errorf("connect %s to %s: pins belong to different scripts: %w", p, out, ErrInvalidConnection)
	case p.typ != out.typ:
		return fmt.Errorf("connect %s to %s: %w", p, out, ErrTypeMismatch)
	case p.conn == out:
		return nil
	}
	p.Disconnect()
	p.conn = out
	out.dependents = append(out.dependents, p)
	return nil
}

// Disconnect clears the connection of p. It is a no-op if p is not connected.
func (p *InputPin) Disconnect() {
	if p.conn == nil {
		return
	}
	out := p.conn
	idx := slices.Index(out.dependents, p)
	if idx >= 0 {
		out.dependents = slices.Delete(out.dependents, idx, idx+1)
	}
	p.conn = nil
}

// DefaultValue returns the value used when p is unconnected.
func (p *InputPin) DefaultValue() Value { return p.def }

// SetDefaultValue sets the value used when p is unconnected.
func (p *InputPin) SetDefaultValue(v Value) error {
	if v.typ != p.typ {
		return fmt.Errorf("default value %s for %s: %w", v.typ, p, ErrTypeMismatch)
	}
	p.def = v
	return nil
}

func (p *InputPin) String() string {
	return fmt.Sprintf("%s.in[%d](%s)", p.node, p.index, p.typ)
}

// OutputPin is the value produced by a node. Any number of input pins may read it.
type OutputPin struct {
	node       *Node
	index      int
	typ        DataType
	dependents []*InputPin
}

func (p *OutputPin) Node() *Node             { return p.node }
func (p *OutputPin) Index() int              { return p.index }
func (p *OutputPin) DataType() DataType      { return p.typ }
func (p *OutputPin) Direction() PinDirection { return PinOut }

// Dependents returns a snapshot of the input pins connected to p in connection order.
func (p *OutputPin) Dependents() []*InputPin {
	return slices.Clone(p.dependents)
}

// disconnectAll disconnects every input pin reading from p.
func (p *OutputPin) disconnectAll() {
	for _, in := range p.dependents {
		in.conn = nil
	}
	p.dependents = p.dependents[:0]
}

func (p *OutputPin) String() string {
	return fmt.Sprintf("%s.out[%d](%s)", p.node, p.index, p.typ)
}
