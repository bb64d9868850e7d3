package gshader

import (
	"errors"
	"fmt"
)

// Builder builds expressions over a [Script] one output pin at a time.
// Provides error handling strategies with panics or error accumulation during graph construction.
type Builder struct {
	// NoErrorPanic accumulates errors instead of panicking. Methods return nil
	// on error and nil arguments are reported as ErrNullPin.
	NoErrorPanic bool
	script       *Script
	accumErrs    []error
}

// NewBuilder returns a Builder adding nodes to s.
func NewBuilder(s *Script) *Builder {
	if s == nil {
		panic("nil script")
	}
	return &Builder{script: s}
}

// Script returns the script nodes are added to.
func (bld *Builder) Script() *Script { return bld.script }

func (bld *Builder) Err() error {
	if len(bld.accumErrs) == 0 {
		return nil
	}
	return errors.Join(bld.accumErrs...)
}

func (bld *Builder) fail(err error) {
	if !bld.NoErrorPanic {
		panic(err.Error())
	}
	bld.accumErrs = append(bld.accumErrs, err)
}

func (bld *Builder) nonNil(op string, pins ...*OutputPin) bool {
	for i, p := range pins {
		if p == nil {
			bld.fail(fmt.Errorf("%s argument %d: %w", op, i, ErrNullPin))
			return false
		}
	}
	return true
}

// connect connects the inputs of n to srcs in order. The node is destroyed on failure.
func (bld *Builder) connect(n *Node, srcs ...*OutputPin) bool {
	for i, src := range srcs {
		if err := n.inputs[i].Connect(src); err != nil {
			bld.script.DestroyNode(n)
			bld.fail(err)
			return false
		}
	}
	return true
}

// Constant returns the output of a new constant node holding v.
func (bld *Builder) Constant(v Value) *OutputPin {
	n, err := bld.script.CreateConstant(v)
	if err != nil {
		bld.fail(err)
		return nil
	}
	return n.Output()
}

// Input returns the output of a new varying input of type dt.
func (bld *Builder) Input(dt DataType) *OutputPin {
	n, err := bld.script.CreateVaryingIn(dt)
	if err != nil {
		bld.fail(err)
		return nil
	}
	return n.Output()
}

// Uniform returns the output of a new member of type dt in blk.
func (bld *Builder) Uniform(blk *UniformBlock, dt DataType) *OutputPin {
	if blk == nil {
		bld.fail(fmt.Errorf("uniform of nil block: %w", ErrNullPin))
		return nil
	}
	n, err := blk.AddMember(dt)
	if err != nil {
		bld.fail(err)
		return nil
	}
	return n.Output()
}

// PushConstant returns the output of a new push constant member.
func (bld *Builder) PushConstant(id uint32, dt DataType) *OutputPin {
	n, err := bld.script.PushConstants().AddMember(id, dt)
	if err != nil {
		bld.fail(err)
		return nil
	}
	return n.Output()
}

// Func returns the output of fk applied to args. The signature is derived from the first argument.
func (bld *Builder) Func(fk FunctionKind, args ...*OutputPin) *OutputPin {
	if len(args) == 0 {
		bld.fail(fmt.Errorf("%s without arguments: %w", fk, ErrInvalidArity))
		return nil
	} else if !bld.nonNil(fk.String(), args...) {
		return nil
	}
	n, err := bld.script.CreateFunctionFor(fk, args[0].typ)
	if err != nil {
		bld.fail(err)
		return nil
	} else if len(n.inputs) != len(args) {
		bld.script.DestroyNode(n)
		bld.fail(fmt.Errorf("%s takes %d arguments, got %d: %w", fk, len(n.inputs), len(args), ErrInvalidArity))
		return nil
	}
	if !bld.connect(n, args...) {
		return nil
	}
	return n.Output()
}

// Op returns the output of a op b.
func (bld *Builder) Op(op OperatorKind, a, b *OutputPin) *OutputPin {
	if !bld.nonNil(op.String(), a, b) {
		return nil
	}
	n, err := bld.script.CreateOperator(op, a.typ)
	if err != nil {
		bld.fail(err)
		return nil
	}
	if !bld.connect(n, a, b) {
		return nil
	}
	return n.Output()
}

func (bld *Builder) Add(a, b *OutputPin) *OutputPin { return bld.Op(OpAdd, a, b) }
func (bld *Builder) Sub(a, b *OutputPin) *OutputPin { return bld.Op(OpSub, a, b) }
func (bld *Builder) Mul(a, b *OutputPin) *OutputPin { return bld.Op(OpMul, a, b) }
func (bld *Builder) Div(a, b *OutputPin) *OutputPin { return bld.Op(OpDiv, a, b) }

// Output creates a varying output reading src.
func (bld *Builder) Output(src *OutputPin) *Node {
	if !bld.nonNil("output", src) {
		return nil
	}
	n, err := bld.script.CreateVaryingOut(src.typ)
	if err != nil {
		bld.fail(err)
		return nil
	}
	if !bld.connect(n, src) {
		return nil
	}
	return n
}

// Position connects the vertex output of the script to src.
func (bld *Builder) Position(src *OutputPin) {
	vo := bld.script.VertexOutputNode()
	if vo == nil {
		bld.fail(fmt.Errorf("position of %s script: %w", bld.script.stage, ErrInvalidConnection))
		return
	} else if !bld.nonNil("position", src) {
		return
	}
	if err := vo.inputs[0].Connect(src); err != nil {
		bld.fail(err)
	}
}
