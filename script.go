package gshader

import (
	"cmp"
	"fmt"
	"slices"
)

// Script owns the nodes of a single shader stage.
// Scripts are not safe for concurrent use.
type Script struct {
	stage   Stage
	nextID  int
	nodes   []*Node
	varIns  []*Node
	varOuts []*Node
	blocks  map[uint32]*UniformBlock
	push    PushConstantBlock
	vertOut *Node
}

// NewVertexScript returns an empty vertex stage script. The script owns a
// [NodeVertexOutput] node from creation.
func NewVertexScript() *Script {
	s := newScript(StageVertex)
	s.vertOut = s.addNode(newNode(s, NodeVertexOutput, []DataType{TypeVec3}, nil))
	return s
}

// NewFragmentScript returns an empty fragment stage script.
func NewFragmentScript() *Script {
	return newScript(StageFragment)
}

func newScript(stage Stage) *Script {
	s := &Script{
		stage:  stage,
		blocks: make(map[uint32]*UniformBlock),
	}
	s.push.script = s
	return s
}

func (s *Script) addNode(n *Node) *Node {
	s.nodes = append(s.nodes, n)
	return n
}

// Stage returns the pipeline stage of the script.
func (s *Script) Stage() Stage { return s.stage }

// VertexOutputNode returns the clip-space position node of a vertex script
// and nil for fragment scripts.
func (s *Script) VertexOutputNode() *Node { return s.vertOut }

// CreateConstant adds a constant node holding v.
func (s *Script) CreateConstant(v Value) (*Node, error) {
	if !v.IsValid() {
		return nil, fmt.Errorf("constant of %s: %w", v.typ, ErrUnsupportedDataType)
	}
	n := newNode(s, NodeConstant, nil, []DataType{v.typ})
	n.value = v
	return s.addNode(n), nil
}

// CreateFunction adds a function node with explicit output and input data types.
// The types must match the signature of fk for the first input's type.
func (s *Script) CreateFunction(fk FunctionKind, out DataType, ins ...DataType) (*Node, error) {
	if len(ins) == 0 {
		return nil, fmt.Errorf("function %s without inputs: %w", fk, ErrInvalidArity)
	}
	wantOut, wantIns, err := Signature(fk, ins[0])
	if err != nil {
		return nil, err
	} else if len(wantIns) != len(ins) {
		return nil, fmt.Errorf("function %s takes %d arguments, got %d: %w", fk, len(wantIns), len(ins), ErrInvalidArity)
	} else if wantOut != out || !slices.Equal(wantIns, ins) {
		return nil, fmt.Errorf("function %s%v returns %s, not %s: %w", fk, wantIns, wantOut, out, ErrTypeMismatch)
	}
	n := newNode(s, NodeFunction, ins, []DataType{out})
	n.fn = fk
	return s.addNode(n), nil
}

// CreateFunctionFor adds a function node whose signature is derived from the operand data type.
func (s *Script) CreateFunctionFor(fk FunctionKind, operand DataType) (*Node, error) {
	out, ins, err := Signature(fk, operand)
	if err != nil {
		return nil, err
	}
	n := newNode(s, NodeFunction, ins, []DataType{out})
	n.fn = fk
	return s.addNode(n), nil
}

// CreateOperator adds a binary operator node with two inputs and an output of type dt.
func (s *Script) CreateOperator(op OperatorKind, dt DataType) (*Node, error) {
	if op >= numOperators {
		return nil, fmt.Errorf("operator %d: %w", uint8(op), ErrUnsupportedOperator)
	}
	switch dt {
	case TypeInt32, TypeFloat32, TypeVec2, TypeVec3, TypeVec4, TypeMat4:
	default:
		return nil, fmt.Errorf("operator %s on %s: %w", op, dt, ErrTypeMismatch)
	}
	n := newNode(s, NodeOperator, []DataType{dt, dt}, []DataType{dt})
	n.op = op
	return s.addNode(n), nil
}

// CreateVaryingIn adds a stage input. Its location is its position among the script's varying inputs.
func (s *Script) CreateVaryingIn(dt DataType) (*Node, error) {
	if _, err := GLSLTypeName(dt); err != nil {
		return nil, err
	}
	n := s.addNode(newNode(s, NodeVaryingIn, nil, []DataType{dt}))
	s.varIns = append(s.varIns, n)
	return n, nil
}

// CreateVaryingOut adds a stage output. Its location is its position among the script's varying outputs.
func (s *Script) CreateVaryingOut(dt DataType) (*Node, error) {
	if _, err := GLSLTypeName(dt); err != nil {
		return nil, err
	}
	n := s.addNode(newNode(s, NodeVaryingOut, []DataType{dt}, nil))
	s.varOuts = append(s.varOuts, n)
	return n, nil
}

// CreateUniformBlock adds an empty uniform block identified by id.
func (s *Script) CreateUniformBlock(id uint32) (*UniformBlock, error) {
	if _, ok := s.blocks[id]; ok {
		return nil, fmt.Errorf("uniform block %d: %w", id, ErrDuplicateID)
	}
	blk := &UniformBlock{script: s, id: id}
	s.blocks[id] = blk
	return blk, nil
}

// UniformBlock returns the block identified by id or nil if there is none.
func (s *Script) UniformBlock(id uint32) *UniformBlock { return s.blocks[id] }

// PushConstants returns the push constant block of the script.
func (s *Script) PushConstants() *PushConstantBlock { return &s.push }

// DestroyNode disconnects n from every pin and removes it from the script.
// It is a no-op for nodes not live in s and for the vertex output node.
func (s *Script) DestroyNode(n *Node) {
	if n == nil || n.script != s || !n.live || n == s.vertOut {
		return
	}
	s.destroy(n)
	switch n.kind {
	case NodeVaryingIn:
		s.varIns = removeNode(s.varIns, n)
	case NodeVaryingOut:
		s.varOuts = removeNode(s.varOuts, n)
	case NodeUniform:
		n.block.members = removeNode(n.block.members, n)
	case NodePushConstant:
		s.push.members = removeNode(s.push.members, n)
	}
}

// DestroyUniformBlock destroys the block identified by id and all its members.
// It is a no-op if no such block exists.
func (s *Script) DestroyUniformBlock(id uint32) {
	blk := s.blocks[id]
	if blk == nil {
		return
	}
	for _, m := range blk.members {
		s.destroy(m)
	}
	blk.members = nil
	blk.script = nil
	delete(s.blocks, id)
}

func (s *Script) destroy(n *Node) {
	n.detach()
	s.nodes = removeNode(s.nodes, n)
}

func removeNode(list []*Node, n *Node) []*Node {
	idx := slices.Index(list, n)
	if idx < 0 {
		return list
	}
	return slices.Delete(list, idx, idx+1)
}

// Nodes returns the live nodes of the script in creation order.
func (s *Script) Nodes() []*Node { return slices.Clone(s.nodes) }

// VaryingInNodes returns the varying input nodes in declaration order.
func (s *Script) VaryingInNodes() []*Node { return slices.Clone(s.varIns) }

// VaryingOutNodes returns the varying output nodes in declaration order.
func (s *Script) VaryingOutNodes() []*Node { return slices.Clone(s.varOuts) }

// UniformBlocks returns the uniform blocks sorted by ascending id.
func (s *Script) UniformBlocks() []*UniformBlock {
	blocks := make([]*UniformBlock, 0, len(s.blocks))
	for _, blk := range s.blocks {
		blocks = append(blocks, blk)
	}
	slices.SortFunc(blocks, func(a, b *UniformBlock) int { return cmp.Compare(a.id, b.id) })
	return blocks
}

// UniformBlock is an ordered group of uniform member nodes bound at a single binding.
type UniformBlock struct {
	script  *Script
	id      uint32
	members []*Node
}

// ID returns the block identifier. It is used as the block's binding.
func (blk *UniformBlock) ID() uint32 { return blk.id }

// AddMember appends a [NodeUniform] member of type dt to the block.
func (blk *UniformBlock) AddMember(dt DataType) (*Node, error) {
	if blk.script == nil {
		return nil, fmt.Errorf("uniform block %d destroyed: %w", blk.id, ErrInvalidConnection)
	} else if _, err := GLSLTypeName(dt); err != nil {
		return nil, err
	}
	n := blk.script.addNode(newNode(blk.script, NodeUniform, nil, []DataType{dt}))
	n.block = blk
	blk.members = append(blk.members, n)
	return n, nil
}

// Members returns the member nodes in declaration order.
func (blk *UniformBlock) Members() []*Node { return slices.Clone(blk.members) }

// MemberCount returns the number of members of the block.
func (blk *UniformBlock) MemberCount() int { return len(blk.members) }

// memberIndex returns the declaration index of n in the block or -1.
func (blk *UniformBlock) memberIndex(n *Node) int { return slices.Index(blk.members, n) }
