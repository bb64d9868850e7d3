// Package gleval evaluates shader scripts on the CPU and checks generated
// sources against the OpenGL driver.
package gleval

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gshader"
)

var (
	// ErrDivideByZero is returned on integer division by zero.
	ErrDivideByZero = errors.New("integer divide by zero")
	// ErrDriverCompile is returned when the OpenGL driver rejects generated sources.
	ErrDriverCompile = errors.New("driver compilation failed")

	errMismatchBufferLength = errors.New("bindings and result buffer length mismatch")
	errEmptyBuffers         = errors.New("empty buffers")
)

// CheckScripts generates a vertex and fragment script pair for [gshader.TargetOpenGL]
// with a shared push constant layout and checks them with [CheckDriver].
// A current OpenGL context is required, see [InitGL].
func CheckScripts(vert, frag *gshader.Script, logger *slog.Logger) error {
	if vert.Stage() != gshader.StageVertex || frag.Stage() != gshader.StageFragment {
		return errors.New("want vertex and fragment scripts")
	}
	layout, err := gshader.NewPushConstantLayout(vert, frag)
	if err != nil {
		return err
	}
	gen := gshader.NewGenerator(gshader.Options{
		Target:        gshader.TargetOpenGL,
		PushConstants: layout,
		Logger:        logger,
	})
	vsrc, err := gen.Generate(vert)
	if err != nil {
		return fmt.Errorf("vertex: %w", err)
	}
	fsrc, err := gen.Generate(frag)
	if err != nil {
		return fmt.Errorf("fragment: %w", err)
	}
	return CheckDriver(vsrc, fsrc)
}

// Bindings are the interface values a script is evaluated with. Missing values are zero.
type Bindings struct {
	// VaryingIn holds varying input values by location.
	VaryingIn []gshader.Value
	// Uniforms holds uniform member values keyed by member node.
	Uniforms map[*gshader.Node]gshader.Value
	// PushConstants holds push constant values keyed by member id.
	PushConstants map[uint32]gshader.Value
}

// Result holds the stage outputs of an evaluation.
type Result struct {
	// Outputs holds varying output values by location.
	Outputs []gshader.Value
	// Position is the clip-space position of vertex scripts.
	Position gshader.Vec4
}

// Program is a compiled evaluation plan of a [gshader.Script]. It is a snapshot:
// later modifications to the script are not observed.
type Program struct {
	plan *gshader.Plan
	regs []gshader.Value
}

// NewProgram compiles s for evaluation.
func NewProgram(s *gshader.Script) (*Program, error) {
	plan, err := s.Plan()
	if err != nil {
		return nil, err
	}
	for i := range plan.Steps {
		if err := checkStep(&plan.Steps[i]); err != nil {
			return nil, err
		}
	}
	return &Program{plan: plan, regs: make([]gshader.Value, len(plan.Vars))}, nil
}

// Plan returns the plan executed by the program.
func (p *Program) Plan() *gshader.Plan { return p.plan }

// Evaluate runs the program once.
func (p *Program) Evaluate(b Bindings) (Result, error) {
	var r Result
	err := p.evaluate(b, &r)
	return r, err
}

// EvaluateN runs the program for each binding storing results in dst. The
// output slices of dst are reused when large enough.
func (p *Program) EvaluateN(bindings []Bindings, dst []Result) error {
	if len(bindings) != len(dst) {
		return errMismatchBufferLength
	} else if len(bindings) == 0 {
		return errEmptyBuffers
	}
	for i := range bindings {
		if err := p.evaluate(bindings[i], &dst[i]); err != nil {
			return fmt.Errorf("evaluation %d: %w", i, err)
		}
	}
	return nil
}

func (p *Program) evaluate(b Bindings, r *Result) error {
	plan := p.plan
	for id, v := range plan.Vars {
		var val gshader.Value
		var ok bool
		switch v.Kind {
		case gshader.VarVaryingIn:
			if v.Index < len(b.VaryingIn) {
				val, ok = b.VaryingIn[v.Index], true
			}
		case gshader.VarUniform:
			val, ok = b.Uniforms[v.Node]
		case gshader.VarPushConstant:
			val, ok = b.PushConstants[v.PushID]
		}
		if !ok {
			val = gshader.Zero(v.Type)
		} else if val.Type() != v.Type {
			return fmt.Errorf("binding of %s is %s: %w", v.Node, val.Type(), gshader.ErrTypeMismatch)
		}
		p.regs[id] = val
	}

	for i := range plan.Steps {
		step := &plan.Steps[i]
		val, err := p.execute(step)
		if err != nil {
			return fmt.Errorf("%s: %w", step.Node, err)
		}
		p.regs[step.Result] = val
	}

	r.Outputs = r.Outputs[:0]
	r.Position = gshader.Vec4{}
	for _, id := range plan.Outputs {
		v := plan.Vars[id]
		if v.Kind == gshader.VarPosition {
			r.Position = p.regs[id].Vec4()
			continue
		}
		r.Outputs = append(r.Outputs, p.regs[id])
	}
	return nil
}

func (p *Program) operand(op gshader.Operand) gshader.Value {
	if op.IsLiteral() {
		return op.Literal
	}
	return p.regs[op.Var]
}

func checkStep(step *gshader.Step) error {
	n := step.Node
	switch n.Kind() {
	case gshader.NodeFunction:
		fk, _ := n.Function()
		_, ins, err := gshader.Signature(fk, n.Input().DataType())
		if err != nil {
			return err
		} else if len(ins) != len(step.Operands) {
			return fmt.Errorf("%s: %w", n, gshader.ErrInvalidArity)
		}
	case gshader.NodeOperator:
		op, _ := n.Operator()
		if n.DataType() == gshader.TypeMat4 && op == gshader.OpDiv {
			return fmt.Errorf("%s: matrix division: %w", n, gshader.ErrUnsupportedOperator)
		} else if len(step.Operands) != 2 {
			return fmt.Errorf("%s: %w", n, gshader.ErrInvalidArity)
		}
	}
	return nil
}

func (p *Program) execute(step *gshader.Step) (gshader.Value, error) {
	n := step.Node
	switch n.Kind() {
	case gshader.NodeConstant:
		v, _ := n.Value()
		return v, nil
	case gshader.NodeVaryingOut:
		return p.operand(step.Operands[0]), nil
	case gshader.NodeVertexOutput:
		pos := p.operand(step.Operands[0]).Vec3()
		return gshader.Vec4Value(gshader.Vec4{X: pos.X, Y: pos.Y, Z: pos.Z, W: 1}), nil
	case gshader.NodeFunction:
		fk, _ := n.Function()
		args := make([]gshader.Value, len(step.Operands))
		for i := range step.Operands {
			args[i] = p.operand(step.Operands[i])
		}
		return callFunction(fk, args)
	case gshader.NodeOperator:
		op, _ := n.Operator()
		return applyOperator(op, p.operand(step.Operands[0]), p.operand(step.Operands[1]))
	}
	return gshader.Value{}, fmt.Errorf("not evaluable: %w", gshader.ErrUnsupportedOperator)
}

func callFunction(fk gshader.FunctionKind, args []gshader.Value) (gshader.Value, error) {
	a := args[0]
	switch fk {
	case gshader.FuncCos:
		return mapFloats(a, math32.Cos)
	case gshader.FuncSin:
		return mapFloats(a, math32.Sin)
	case gshader.FuncTan:
		return mapFloats(a, math32.Tan)
	case gshader.FuncMax:
		if a.Type() == gshader.TypeInt32 {
			return gshader.IntValue(max(a.Int(), args[1].Int())), nil
		}
		return zipFloats(a, args[1], math32.Max)
	case gshader.FuncMin:
		if a.Type() == gshader.TypeInt32 {
			return gshader.IntValue(min(a.Int(), args[1].Int())), nil
		}
		return zipFloats(a, args[1], math32.Min)
	case gshader.FuncCross:
		return gshader.Vec3Value(ms3.Cross(a.Vec3(), args[1].Vec3())), nil
	case gshader.FuncDot:
		return dot(a, args[1])
	}
	return gshader.Value{}, fmt.Errorf("function %s: %w", fk, gshader.ErrUnsupportedOperator)
}

func dot(a, b gshader.Value) (gshader.Value, error) {
	switch a.Type() {
	case gshader.TypeFloat32:
		return gshader.FloatValue(a.Float() * b.Float()), nil
	case gshader.TypeVec2:
		return gshader.FloatValue(ms2.Dot(a.Vec2(), b.Vec2())), nil
	case gshader.TypeVec3:
		return gshader.FloatValue(ms3.Dot(a.Vec3(), b.Vec3())), nil
	case gshader.TypeVec4:
		av, bv := a.Vec4(), b.Vec4()
		return gshader.FloatValue(av.X*bv.X + av.Y*bv.Y + av.Z*bv.Z + av.W*bv.W), nil
	}
	return gshader.Value{}, fmt.Errorf("dot of %s: %w", a.Type(), gshader.ErrTypeMismatch)
}

func applyOperator(op gshader.OperatorKind, a, b gshader.Value) (gshader.Value, error) {
	switch a.Type() {
	case gshader.TypeInt32:
		x, y := a.Int(), b.Int()
		switch op {
		case gshader.OpAdd:
			return gshader.IntValue(x + y), nil
		case gshader.OpSub:
			return gshader.IntValue(x - y), nil
		case gshader.OpMul:
			return gshader.IntValue(x * y), nil
		case gshader.OpDiv:
			if y == 0 {
				return gshader.Value{}, ErrDivideByZero
			}
			return gshader.IntValue(x / y), nil
		}
	case gshader.TypeMat4:
		switch op {
		case gshader.OpAdd:
			return zipFloats(a, b, func(x, y float32) float32 { return x + y })
		case gshader.OpSub:
			return zipFloats(a, b, func(x, y float32) float32 { return x - y })
		case gshader.OpMul:
			return gshader.Mat4ArrayValue(mulMat4(a.Mat4Array(), b.Mat4Array())), nil
		}
	case gshader.TypeVec3:
		x, y := a.Vec3(), b.Vec3()
		switch op {
		case gshader.OpAdd:
			return gshader.Vec3Value(ms3.Add(x, y)), nil
		case gshader.OpSub:
			return gshader.Vec3Value(ms3.Sub(x, y)), nil
		case gshader.OpMul:
			return gshader.Vec3Value(ms3.MulElem(x, y)), nil
		case gshader.OpDiv:
			return gshader.Vec3Value(ms3.DivElem(x, y)), nil
		}
	case gshader.TypeVec2:
		x, y := a.Vec2(), b.Vec2()
		switch op {
		case gshader.OpAdd:
			return gshader.Vec2Value(ms2.Add(x, y)), nil
		case gshader.OpSub:
			return gshader.Vec2Value(ms2.Sub(x, y)), nil
		case gshader.OpMul:
			return gshader.Vec2Value(ms2.MulElem(x, y)), nil
		case gshader.OpDiv:
			return gshader.Vec2Value(ms2.DivElem(x, y)), nil
		}
	case gshader.TypeFloat32, gshader.TypeVec4:
		switch op {
		case gshader.OpAdd:
			return zipFloats(a, b, func(x, y float32) float32 { return x + y })
		case gshader.OpSub:
			return zipFloats(a, b, func(x, y float32) float32 { return x - y })
		case gshader.OpMul:
			return zipFloats(a, b, func(x, y float32) float32 { return x * y })
		case gshader.OpDiv:
			return zipFloats(a, b, func(x, y float32) float32 { return x / y })
		}
	}
	return gshader.Value{}, fmt.Errorf("%s on %s: %w", op, a.Type(), gshader.ErrUnsupportedOperator)
}

// mulMat4 returns the matrix product a*b of row-major matrices.
func mulMat4(a, b [16]float32) (m [16]float32) {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[i*4+k] * b[k*4+j]
			}
			m[i*4+j] = sum
		}
	}
	return m
}

func mapFloats(a gshader.Value, f func(float32) float32) (gshader.Value, error) {
	c := a.Floats()
	if c == nil {
		return gshader.Value{}, fmt.Errorf("%s: %w", a.Type(), gshader.ErrTypeMismatch)
	}
	for i := range c {
		c[i] = f(c[i])
	}
	return gshader.MakeValue(a.Type(), c...)
}

func zipFloats(a, b gshader.Value, f func(x, y float32) float32) (gshader.Value, error) {
	ca, cb := a.Floats(), b.Floats()
	if ca == nil || len(ca) != len(cb) {
		return gshader.Value{}, fmt.Errorf("%s and %s: %w", a.Type(), b.Type(), gshader.ErrTypeMismatch)
	}
	for i := range ca {
		ca[i] = f(ca[i], cb[i])
	}
	return gshader.MakeValue(a.Type(), ca...)
}
