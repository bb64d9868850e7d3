package gshader

import (
	"fmt"
)

// VarKind classifies the variables of a [Plan].
type VarKind uint8

const (
	// VarVaryingIn is a stage input variable.
	VarVaryingIn VarKind = iota
	// VarUniform is a member of a uniform block.
	VarUniform
	// VarPushConstant is a member of the push constant block.
	VarPushConstant
	// VarLocal is a local variable of main holding a node result.
	VarLocal
	// VarOutput is a stage output variable.
	VarOutput
	// VarPosition is the gl_Position builtin of vertex scripts.
	VarPosition
)

// VarID indexes [Plan.Vars].
type VarID int

// Variable is a named storage location referenced by plan steps.
type Variable struct {
	Kind VarKind
	Type DataType
	// Index is the location of varyings, the member index of uniforms and
	// the sequence number of locals.
	Index int
	// Block is the ordinal of the uniform block in ascending id order.
	Block  int
	PushID uint32
	// Node is the node the variable belongs to.
	Node *Node
}

// Operand is a resolved input of a step: either a variable or a literal
// default value of an unconnected input pin.
type Operand struct {
	Var     VarID
	Literal Value
}

// IsLiteral reports whether the operand is an inline default value.
func (o Operand) IsLiteral() bool { return o.Var < 0 }

// Step evaluates Node from its operands and stores the result in Result.
type Step struct {
	Node     *Node
	Operands []Operand
	Result   VarID
}

// Plan is the post-order evaluation of a script's outputs. Each node
// reachable from an output is evaluated exactly once, after its operands.
type Plan struct {
	Stage Stage
	Vars  []Variable
	Steps []Step
	// Inputs are the varying input variables in location order.
	Inputs []VarID
	// Uniforms holds the member variables of each uniform block, blocks in ascending id order.
	Uniforms [][]VarID
	// UniformBlocks are the blocks of Uniforms in the same order. Blocks
	// without members are omitted.
	UniformBlocks []*UniformBlock
	// PushConstants are the push constant member variables in insertion order.
	PushConstants []VarID
	// Outputs are the output variables: varying outputs first followed by gl_Position for vertex scripts.
	Outputs []VarID
}

// Var returns the variable identified by id.
func (p *Plan) Var(id VarID) Variable { return p.Vars[id] }

// LocalCount returns the number of local variables of the plan.
func (p *Plan) LocalCount() (n int) {
	for _, v := range p.Vars {
		if v.Kind == VarLocal {
			n++
		}
	}
	return n
}

func (p *Plan) addVar(v Variable) VarID {
	p.Vars = append(p.Vars, v)
	return VarID(len(p.Vars) - 1)
}

// Plan walks the graph rooted at the script outputs. It returns ErrCyclicGraph
// if pin connections form a cycle anywhere in the script.
func (s *Script) Plan() (*Plan, error) {
	if err := s.checkAcyclic(); err != nil {
		return nil, err
	}
	p := &Plan{Stage: s.stage}
	visited := make(map[*OutputPin]VarID)
	for i, n := range s.varIns {
		id := p.addVar(Variable{Kind: VarVaryingIn, Type: n.outputs[0].typ, Index: i, Node: n})
		p.Inputs = append(p.Inputs, id)
		visited[&n.outputs[0]] = id
	}
	for _, blk := range s.UniformBlocks() {
		if len(blk.members) > 0 {
			p.UniformBlocks = append(p.UniformBlocks, blk)
		}
	}
	p.Uniforms = make([][]VarID, len(p.UniformBlocks))
	for i, blk := range p.UniformBlocks {
		for j, m := range blk.members {
			id := p.addVar(Variable{Kind: VarUniform, Type: m.outputs[0].typ, Block: i, Index: j, Node: m})
			p.Uniforms[i] = append(p.Uniforms[i], id)
			visited[&m.outputs[0]] = id
		}
	}
	for i, m := range s.push.members {
		id := p.addVar(Variable{Kind: VarPushConstant, Type: m.outputs[0].typ, Index: i, PushID: m.pushID, Node: m})
		p.PushConstants = append(p.PushConstants, id)
		visited[&m.outputs[0]] = id
	}

	roots := make([]*Node, 0, len(s.varOuts)+1)
	for i, n := range s.varOuts {
		roots = append(roots, n)
		p.Outputs = append(p.Outputs, p.addVar(Variable{Kind: VarOutput, Type: n.inputs[0].typ, Index: i, Node: n}))
	}
	if s.vertOut != nil {
		roots = append(roots, s.vertOut)
		p.Outputs = append(p.Outputs, p.addVar(Variable{Kind: VarPosition, Type: TypeVec4, Node: s.vertOut}))
	}

	w := walker{plan: p, visited: visited, onPath: make(map[*Node]bool)}
	for i, root := range roots {
		if err := w.walk(root, p.Outputs[i]); err != nil {
			return nil, err
		}
	}
	return p, nil
}

type walkFrame struct {
	node     *Node
	via      *OutputPin // Pin through which node was reached. nil for roots.
	operands []Operand
	next     int
}

type walker struct {
	plan    *Plan
	visited map[*OutputPin]VarID
	onPath  map[*Node]bool
	stack   []walkFrame
	locals  int
}

// walk appends the steps computing root's inputs and root itself without recursion.
func (w *walker) walk(root *Node, result VarID) error {
	w.stack = append(w.stack[:0], walkFrame{node: root, operands: make([]Operand, len(root.inputs))})
	w.onPath[root] = true
	for len(w.stack) > 0 {
		top := len(w.stack) - 1
		frame := &w.stack[top]
		if frame.next < len(frame.node.inputs) {
			slot := frame.next
			frame.next++
			pin := &frame.node.inputs[slot]
			conn := pin.conn
			if conn == nil {
				frame.operands[slot] = Operand{Var: -1, Literal: pin.def}
				continue
			}
			if id, ok := w.visited[conn]; ok {
				frame.operands[slot] = Operand{Var: id}
				continue
			}
			child := conn.node
			if w.onPath[child] {
				return fmt.Errorf("%s reached twice on one path: %w", child, ErrCyclicGraph)
			}
			w.onPath[child] = true
			// Appending may reallocate the stack, frame must not be used after this.
			w.stack = append(w.stack, walkFrame{node: child, via: conn, operands: make([]Operand, len(child.inputs))})
			continue
		}

		// All operands of the top frame are resolved.
		done := w.stack[top]
		w.stack = w.stack[:top]
		delete(w.onPath, done.node)
		id := result
		if done.via != nil {
			id = w.plan.addVar(Variable{Kind: VarLocal, Type: done.via.typ, Index: w.locals, Node: done.node})
			w.locals++
			w.visited[done.via] = id
		}
		w.plan.Steps = append(w.plan.Steps, Step{Node: done.node, Operands: done.operands, Result: id})
		if top > 0 {
			parent := &w.stack[top-1]
			parent.operands[parent.next-1] = Operand{Var: id}
		}
	}
	return nil
}

// checkAcyclic runs an iterative depth first search over every live node
// following input connections.
func (s *Script) checkAcyclic() error {
	const (
		unvisited = iota
		inProgress
		finished
	)
	state := make(map[*Node]uint8, len(s.nodes))
	type frame struct {
		node *Node
		next int
	}
	var stack []frame
	for _, start := range s.nodes {
		if state[start] != unvisited {
			continue
		}
		state[start] = inProgress
		stack = append(stack[:0], frame{node: start})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(top.node.inputs) {
				state[top.node] = finished
				stack = stack[:len(stack)-1]
				continue
			}
			conn := top.node.inputs[top.next].conn
			top.next++
			if conn == nil {
				continue
			}
			switch state[conn.node] {
			case inProgress:
				return fmt.Errorf("%s depends on itself: %w", conn.node, ErrCyclicGraph)
			case unvisited:
				state[conn.node] = inProgress
				stack = append(stack, frame{node: conn.node})
			}
		}
	}
	return nil
}
