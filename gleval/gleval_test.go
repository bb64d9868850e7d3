package gleval_test

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gshader"
	"github.com/soypat/gshader/gleval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-6

func vec4(x, y, z, w float32) gshader.Value {
	return gshader.Vec4Value(gshader.Vec4{X: x, Y: y, Z: z, W: w})
}

func TestEvaluateColor(t *testing.T) {
	s := gshader.NewFragmentScript()
	bld := gshader.NewBuilder(s)
	color := bld.Input(gshader.TypeVec4)
	mul := bld.Mul(color, bld.Constant(vec4(1, 0.5, 0, 1)))
	bld.Output(bld.Add(mul, bld.Constant(vec4(0, 0, 0.3, 0))))
	require.NoError(t, bld.Err())

	prog, err := gleval.NewProgram(s)
	require.NoError(t, err)
	res, err := prog.Evaluate(gleval.Bindings{
		VaryingIn: []gshader.Value{vec4(0.2, 0.4, 0.6, 0.8)},
	})
	require.NoError(t, err)
	require.Len(t, res.Outputs, 1)
	got := res.Outputs[0].Vec4()
	assert.InDelta(t, 0.2, got.X, tol)
	assert.InDelta(t, 0.2, got.Y, tol)
	assert.InDelta(t, 0.3, got.Z, tol)
	assert.InDelta(t, 0.8, got.W, tol)

	// Missing bindings are zero.
	res, err = prog.Evaluate(gleval.Bindings{})
	require.NoError(t, err)
	assert.Equal(t, gshader.Vec4{Z: 0.3}, res.Outputs[0].Vec4())

	_, err = prog.Evaluate(gleval.Bindings{VaryingIn: []gshader.Value{gshader.FloatValue(1)}})
	assert.ErrorIs(t, err, gshader.ErrTypeMismatch)
}

func TestEvaluateVertex(t *testing.T) {
	s := gshader.NewVertexScript()
	bld := gshader.NewBuilder(s)
	blk, err := s.CreateUniformBlock(0)
	require.NoError(t, err)
	pos := bld.Input(gshader.TypeVec3)
	offsetPin := bld.Uniform(blk, gshader.TypeVec3)
	scalePin := bld.PushConstant(7, gshader.TypeFloat32)
	bld.Position(bld.Add(pos, offsetPin))
	bld.Output(bld.Mul(bld.Func(gshader.FuncDot, pos, offsetPin), scalePin))
	bld.Output(bld.Func(gshader.FuncCross, pos, offsetPin))
	require.NoError(t, bld.Err())

	prog, err := gleval.NewProgram(s)
	require.NoError(t, err)
	res, err := prog.Evaluate(gleval.Bindings{
		VaryingIn:     []gshader.Value{gshader.Vec3Value(ms3.Vec{X: 1, Y: 2, Z: 3})},
		Uniforms:      map[*gshader.Node]gshader.Value{offsetPin.Node(): gshader.Vec3Value(ms3.Vec{X: 0, Y: 1, Z: 0})},
		PushConstants: map[uint32]gshader.Value{7: gshader.FloatValue(10)},
	})
	require.NoError(t, err)
	assert.Equal(t, gshader.Vec4{X: 1, Y: 3, Z: 3, W: 1}, res.Position)
	require.Len(t, res.Outputs, 2)
	assert.Equal(t, float32(20), res.Outputs[0].Float())
	assert.Equal(t, ms3.Vec{X: -3, Y: 0, Z: 1}, res.Outputs[1].Vec3())

	dst := make([]gleval.Result, 2)
	err = prog.EvaluateN([]gleval.Bindings{{}, {PushConstants: map[uint32]gshader.Value{7: gshader.FloatValue(1)}}}, dst)
	require.NoError(t, err)
	assert.Equal(t, gshader.Vec4{W: 1}, dst[0].Position)
	assert.Error(t, prog.EvaluateN(nil, dst))
}

func TestEvaluateDefaults(t *testing.T) {
	s := gshader.NewFragmentScript()
	cos, err := s.CreateFunctionFor(gshader.FuncCos, gshader.TypeVec2)
	require.NoError(t, err)
	out, err := s.CreateVaryingOut(gshader.TypeVec2)
	require.NoError(t, err)
	require.NoError(t, out.Input().Connect(cos.Output()))
	def, err := gshader.MakeValue(gshader.TypeVec2, 0, math32.Pi)
	require.NoError(t, err)
	require.NoError(t, cos.Input().SetDefaultValue(def))

	prog, err := gleval.NewProgram(s)
	require.NoError(t, err)
	res, err := prog.Evaluate(gleval.Bindings{})
	require.NoError(t, err)
	got := res.Outputs[0].Vec2()
	assert.InDelta(t, 1, got.X, tol)
	assert.InDelta(t, -1, got.Y, tol)
}

func TestEvaluateIntegers(t *testing.T) {
	s := gshader.NewFragmentScript()
	bld := gshader.NewBuilder(s)
	a := bld.Input(gshader.TypeInt32)
	b := bld.Input(gshader.TypeInt32)
	bld.Output(bld.Div(a, b))
	bld.Output(bld.Func(gshader.FuncMin, a, b))
	require.NoError(t, bld.Err())

	prog, err := gleval.NewProgram(s)
	require.NoError(t, err)
	res, err := prog.Evaluate(gleval.Bindings{VaryingIn: []gshader.Value{gshader.IntValue(-7), gshader.IntValue(2)}})
	require.NoError(t, err)
	assert.Equal(t, int32(-3), res.Outputs[0].Int())
	assert.Equal(t, int32(-7), res.Outputs[1].Int())

	_, err = prog.Evaluate(gleval.Bindings{VaryingIn: []gshader.Value{gshader.IntValue(1)}})
	assert.ErrorIs(t, err, gleval.ErrDivideByZero)
}

func TestEvaluateMatrix(t *testing.T) {
	s := gshader.NewFragmentScript()
	bld := gshader.NewBuilder(s)
	scale := bld.Constant(gshader.Mat4Value(ms3.ScalingMat4(ms3.Vec{X: 2, Y: 3, Z: 4})))
	m := bld.Input(gshader.TypeMat4)
	bld.Output(bld.Mul(scale, m))
	bld.Output(bld.Sub(m, scale))
	require.NoError(t, bld.Err())

	prog, err := gleval.NewProgram(s)
	require.NoError(t, err)
	var arr [16]float32
	for i := range arr {
		arr[i] = float32(i)
	}
	res, err := prog.Evaluate(gleval.Bindings{VaryingIn: []gshader.Value{gshader.Mat4ArrayValue(arr)}})
	require.NoError(t, err)
	prod := res.Outputs[0].Mat4Array()
	// Row i of the product is row i of arr scaled by the i'th diagonal element.
	diag := [4]float32{2, 3, 4, 1}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			assert.Equal(t, diag[i]*arr[i*4+j], prod[i*4+j], "element %d,%d", i, j)
		}
	}
	diff := res.Outputs[1].Mat4Array()
	assert.Equal(t, float32(-2), diff[0])
	assert.Equal(t, float32(1), diff[1])

	div := gshader.NewFragmentScript()
	dbld := gshader.NewBuilder(div)
	dm := dbld.Input(gshader.TypeMat4)
	dbld.Output(dbld.Div(dm, dm))
	require.NoError(t, dbld.Err())
	_, err = gleval.NewProgram(div)
	assert.ErrorIs(t, err, gshader.ErrUnsupportedOperator)
}

func TestNewProgramCycle(t *testing.T) {
	s := gshader.NewFragmentScript()
	a, _ := s.CreateOperator(gshader.OpAdd, gshader.TypeFloat32)
	require.NoError(t, a.InputPin(0).Connect(a.Output()))
	_, err := gleval.NewProgram(s)
	assert.ErrorIs(t, err, gshader.ErrCyclicGraph)
}

func TestEvaluateBindingMismatch(t *testing.T) {
	s := gshader.NewFragmentScript()
	bld := gshader.NewBuilder(s)
	bld.Output(bld.PushConstant(7, gshader.TypeVec2))
	require.NoError(t, bld.Err())
	prog, err := gleval.NewProgram(s)
	require.NoError(t, err)
	_, err = prog.Evaluate(gleval.Bindings{PushConstants: map[uint32]gshader.Value{7: gshader.FloatValue(1)}})
	assert.ErrorIs(t, err, gshader.ErrTypeMismatch)

	err = prog.EvaluateN(nil, nil)
	assert.Error(t, err)
	err = prog.EvaluateN(make([]gleval.Bindings, 2), make([]gleval.Result, 1))
	assert.Error(t, err)
}

func TestCheckScriptsStages(t *testing.T) {
	vert := gshader.NewVertexScript()
	frag := gshader.NewFragmentScript()
	err := gleval.CheckScripts(frag, vert, nil)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, gleval.ErrDriverCompile)

	vert.PushConstants().AddMember(1, gshader.TypeFloat32)
	frag.PushConstants().AddMember(1, gshader.TypeVec3)
	err = gleval.CheckScripts(vert, frag, nil)
	assert.ErrorIs(t, err, gshader.ErrTypeMismatch)
}
