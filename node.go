package gshader

import (
	"fmt"
)

// NodeKind is the variant tag of a [Node].
type NodeKind uint8

const (
	// NodeConstant has no inputs and one output holding a fixed value.
	NodeConstant NodeKind = iota
	// NodeFunction calls a builtin GLSL function. See [FunctionKind].
	NodeFunction
	// NodeOperator applies a binary arithmetic operator. See [OperatorKind].
	NodeOperator
	// NodeVaryingIn reads a value interpolated from the previous stage.
	NodeVaryingIn
	// NodeVaryingOut writes a value passed on to the next stage.
	NodeVaryingOut
	// NodeUniform reads a member of a [UniformBlock].
	NodeUniform
	// NodePushConstant reads a member of the script's [PushConstantBlock].
	NodePushConstant
	// NodeVertexOutput writes the clip-space vertex position. Vertex scripts only.
	NodeVertexOutput
)

var nodeKindNames = [...]string{
	NodeConstant:     "constant",
	NodeFunction:     "function",
	NodeOperator:     "operator",
	NodeVaryingIn:    "varyingIn",
	NodeVaryingOut:   "varyingOut",
	NodeUniform:      "uniform",
	NodePushConstant: "pushConstant",
	NodeVertexOutput: "vertexOutput",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", uint8(k))
}

// FunctionKind identifies a builtin function of a [NodeFunction] node.
type FunctionKind uint8

const (
	FuncCos FunctionKind = iota
	FuncSin
	FuncTan
	FuncMax
	FuncMin
	FuncCross
	FuncDot
	numFunctions
)

var glslFunctionNames = [numFunctions]string{
	FuncCos:   "cos",
	FuncSin:   "sin",
	FuncTan:   "tan",
	FuncMax:   "max",
	FuncMin:   "min",
	FuncCross: "cross",
	FuncDot:   "dot",
}

// GLSLName returns the name of the GLSL builtin implementing the function.
func (fk FunctionKind) GLSLName() (string, error) {
	if fk < numFunctions {
		return glslFunctionNames[fk], nil
	}
	return "", fmt.Errorf("function %d: %w", uint8(fk), ErrUnsupportedOperator)
}

func (fk FunctionKind) String() string {
	if fk < numFunctions {
		return glslFunctionNames[fk]
	}
	return fmt.Sprintf("FunctionKind(%d)", uint8(fk))
}

// ParseFunctionKind parses a GLSL builtin name such as "cos".
func ParseFunctionKind(s string) (FunctionKind, error) {
	for fk, name := range glslFunctionNames {
		if name == s {
			return FunctionKind(fk), nil
		}
	}
	return 0, fmt.Errorf("unknown function %q: %w", s, ErrUnsupportedOperator)
}

// Signature returns the output and input data types of fk applied to operands of type operand.
func Signature(fk FunctionKind, operand DataType) (out DataType, ins []DataType, err error) {
	bad := func() (DataType, []DataType, error) {
		return TypeInvalid, nil, fmt.Errorf("%s does not accept %s: %w", fk, operand, ErrTypeMismatch)
	}
	switch fk {
	case FuncCos, FuncSin, FuncTan:
		if operand != TypeFloat32 && !operand.isVector() {
			return bad()
		}
		return operand, []DataType{operand}, nil
	case FuncMax, FuncMin:
		if operand != TypeFloat32 && operand != TypeInt32 && !operand.isVector() {
			return bad()
		}
		return operand, []DataType{operand, operand}, nil
	case FuncCross:
		if operand != TypeVec3 {
			return bad()
		}
		return TypeVec3, []DataType{TypeVec3, TypeVec3}, nil
	case FuncDot:
		if operand != TypeFloat32 && !operand.isVector() {
			return bad()
		}
		return TypeFloat32, []DataType{operand, operand}, nil
	}
	return TypeInvalid, nil, fmt.Errorf("function %d: %w", uint8(fk), ErrUnsupportedOperator)
}

// OperatorKind identifies the arithmetic operator of a [NodeOperator] node.
type OperatorKind uint8

const (
	OpAdd OperatorKind = iota
	OpSub
	OpMul
	OpDiv
	numOperators
)

var glslOperatorTokens = [numOperators]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
}

var operatorNames = [numOperators]string{
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpDiv: "div",
}

// GLSLToken returns the GLSL token of the operator.
func (op OperatorKind) GLSLToken() (string, error) {
	if op < numOperators {
		return glslOperatorTokens[op], nil
	}
	return "", fmt.Errorf("operator %d: %w", uint8(op), ErrUnsupportedOperator)
}

func (op OperatorKind) String() string {
	if op < numOperators {
		return operatorNames[op]
	}
	return fmt.Sprintf("OperatorKind(%d)", uint8(op))
}

// ParseOperatorKind parses an operator name ("add", "sub", "mul", "div") or token ("+", "-", "*", "/").
func ParseOperatorKind(s string) (OperatorKind, error) {
	for op := OpAdd; op < numOperators; op++ {
		if s == operatorNames[op] || s == glslOperatorTokens[op] {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operator %q: %w", s, ErrUnsupportedOperator)
}

// Node is a unit of shader computation owned by a [Script].
// Pins of a node keep their address for the node's lifetime.
type Node struct {
	script *Script
	id     int
	kind   NodeKind
	live   bool

	fn     FunctionKind
	op     OperatorKind
	value  Value
	pushID uint32
	block  *UniformBlock

	inputs  []InputPin
	outputs []OutputPin
}

func newNode(s *Script, kind NodeKind, ins []DataType, outs []DataType) *Node {
	n := &Node{
		script:  s,
		id:      s.nextID,
		kind:    kind,
		live:    true,
		inputs:  make([]InputPin, len(ins)),
		outputs: make([]OutputPin, len(outs)),
	}
	s.nextID++
	for i, dt := range ins {
		n.inputs[i] = InputPin{node: n, index: i, typ: dt, def: Zero(dt)}
	}
	for i, dt := range outs {
		n.outputs[i] = OutputPin{node: n, index: i, typ: dt}
	}
	return n
}

// Kind returns the variant of the node.
func (n *Node) Kind() NodeKind { return n.kind }

// Script returns the script owning the node.
func (n *Node) Script() *Script { return n.script }

// ID returns a number unique to the node within its script. IDs increase in creation order.
func (n *Node) ID() int { return n.id }

// Alive reports whether the node has not been destroyed.
func (n *Node) Alive() bool { return n.live }

func (n *Node) InputPinCount() int  { return len(n.inputs) }
func (n *Node) OutputPinCount() int { return len(n.outputs) }

// InputPin returns the i'th input pin or nil if i is out of range.
func (n *Node) InputPin(i int) *InputPin {
	if i < 0 || i >= len(n.inputs) {
		return nil
	}
	return &n.inputs[i]
}

// OutputPin returns the i'th output pin or nil if i is out of range.
func (n *Node) OutputPin(i int) *OutputPin {
	if i < 0 || i >= len(n.outputs) {
		return nil
	}
	return &n.outputs[i]
}

// Output returns the first output pin or nil if the node has none.
func (n *Node) Output() *OutputPin { return n.OutputPin(0) }

// Input returns the first input pin or nil if the node has none.
func (n *Node) Input() *InputPin { return n.InputPin(0) }

// InputPins returns the node's input pins.
func (n *Node) InputPins() []*InputPin {
	pins := make([]*InputPin, len(n.inputs))
	for i := range n.inputs {
		pins[i] = &n.inputs[i]
	}
	return pins
}

// OutputPins returns the node's output pins.
func (n *Node) OutputPins() []*OutputPin {
	pins := make([]*OutputPin, len(n.outputs))
	for i := range n.outputs {
		pins[i] = &n.outputs[i]
	}
	return pins
}

// Function returns the function of a [NodeFunction] node.
func (n *Node) Function() (FunctionKind, bool) {
	return n.fn, n.kind == NodeFunction
}

// Operator returns the operator of a [NodeOperator] node.
func (n *Node) Operator() (OperatorKind, bool) {
	return n.op, n.kind == NodeOperator
}

// Value returns the value of a [NodeConstant] node.
func (n *Node) Value() (Value, bool) {
	return n.value, n.kind == NodeConstant
}

// SetValue changes the value of a [NodeConstant] node. The data type may not change.
func (n *Node) SetValue(v Value) error {
	if n.kind != NodeConstant {
		return fmt.Errorf("set value of %s node: %w", n.kind, ErrTypeMismatch)
	} else if v.typ != n.outputs[0].typ {
		return fmt.Errorf("set %s value of %s: %w", v.typ, n, ErrTypeMismatch)
	}
	n.value = v
	return nil
}

// UniformBlock returns the block of a [NodeUniform] node and nil for other nodes.
func (n *Node) UniformBlock() *UniformBlock { return n.block }

// PushConstantID returns the id of a [NodePushConstant] node.
func (n *Node) PushConstantID() (uint32, bool) {
	return n.pushID, n.kind == NodePushConstant
}

// DataType returns the data type of the node's first output, or of its
// first input for output nodes.
func (n *Node) DataType() DataType {
	if len(n.outputs) > 0 {
		return n.outputs[0].typ
	} else if len(n.inputs) > 0 {
		return n.inputs[0].typ
	}
	return TypeInvalid
}

func (n *Node) String() string {
	switch n.kind {
	case NodeFunction:
		return fmt.Sprintf("%s#%d(%s)", n.kind, n.id, n.fn)
	case NodeOperator:
		return fmt.Sprintf("%s#%d(%s)", n.kind, n.id, n.op)
	}
	return fmt.Sprintf("%s#%d", n.kind, n.id)
}

// detach disconnects every pin of the node in both directions.
func (n *Node) detach() {
	for i := range n.outputs {
		n.outputs[i].disconnectAll()
	}
	for i := range n.inputs {
		n.inputs[i].Disconnect()
	}
	n.live = false
}
