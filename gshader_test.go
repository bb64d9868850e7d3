package gshader_test

import (
	"testing"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gshader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectTypeMismatch(t *testing.T) {
	s := gshader.NewFragmentScript()
	f, err := s.CreateConstant(gshader.FloatValue(1))
	require.NoError(t, err)
	v3, err := s.CreateConstant(gshader.Vec3Value(ms3.Vec{X: 1}))
	require.NoError(t, err)
	cross, err := s.CreateFunctionFor(gshader.FuncCross, gshader.TypeVec3)
	require.NoError(t, err)

	in := cross.InputPin(0)
	require.NoError(t, in.Connect(v3.Output()))
	err = in.Connect(f.Output())
	assert.ErrorIs(t, err, gshader.ErrTypeMismatch)
	assert.Same(t, v3.Output(), in.Connection(), "failed connect must keep prior connection")
	assert.Empty(t, f.Output().Dependents())
	assert.Equal(t, []*gshader.InputPin{in}, v3.Output().Dependents())
}

func TestConnectReplaceAndIdempotent(t *testing.T) {
	s := gshader.NewFragmentScript()
	a, _ := s.CreateConstant(gshader.FloatValue(1))
	b, _ := s.CreateConstant(gshader.FloatValue(2))
	sin, err := s.CreateFunctionFor(gshader.FuncSin, gshader.TypeFloat32)
	require.NoError(t, err)
	in := sin.Input()

	require.NoError(t, in.Connect(a.Output()))
	require.NoError(t, in.Connect(a.Output()))
	assert.Len(t, a.Output().Dependents(), 1)

	require.NoError(t, in.Connect(b.Output()))
	assert.Same(t, b.Output(), in.Connection())
	assert.Empty(t, a.Output().Dependents())
	assert.Len(t, b.Output().Dependents(), 1)

	in.Disconnect()
	in.Disconnect()
	assert.Nil(t, in.Connection())
	assert.Empty(t, b.Output().Dependents())
}

func TestConnectInvalid(t *testing.T) {
	s1 := gshader.NewFragmentScript()
	s2 := gshader.NewFragmentScript()
	c1, _ := s1.CreateConstant(gshader.FloatValue(1))
	c2, _ := s2.CreateConstant(gshader.FloatValue(1))
	out, err := s1.CreateVaryingOut(gshader.TypeFloat32)
	require.NoError(t, err)

	assert.ErrorIs(t, out.Input().Connect(nil), gshader.ErrNullPin)
	assert.ErrorIs(t, out.Input().Connect(c2.Output()), gshader.ErrInvalidConnection)
	s1.DestroyNode(c1)
	assert.ErrorIs(t, out.Input().Connect(c1.Output()), gshader.ErrInvalidConnection)
	assert.Nil(t, out.Input().Connection())
}

func TestDefaultValue(t *testing.T) {
	s := gshader.NewFragmentScript()
	n, err := s.CreateFunctionFor(gshader.FuncCos, gshader.TypeVec4)
	require.NoError(t, err)
	in := n.Input()
	assert.Equal(t, gshader.Zero(gshader.TypeVec4), in.DefaultValue())
	err = in.SetDefaultValue(gshader.FloatValue(2))
	assert.ErrorIs(t, err, gshader.ErrTypeMismatch)
	want := gshader.Vec4Value(gshader.Vec4{X: 2.1, Y: 3.5, Z: 4.7, W: 5.2})
	require.NoError(t, in.SetDefaultValue(want))
	assert.Equal(t, want, in.DefaultValue())
}

func TestNodePins(t *testing.T) {
	s := gshader.NewFragmentScript()
	op, err := s.CreateOperator(gshader.OpMul, gshader.TypeVec4)
	require.NoError(t, err)
	assert.Equal(t, gshader.NodeOperator, op.Kind())
	assert.Equal(t, 2, op.InputPinCount())
	assert.Equal(t, 1, op.OutputPinCount())
	assert.Nil(t, op.InputPin(2))
	assert.Nil(t, op.InputPin(-1))
	assert.Nil(t, op.OutputPin(1))
	assert.Same(t, op.InputPin(1), op.InputPins()[1])
	assert.Equal(t, 1, op.InputPin(1).Index())
	assert.Equal(t, gshader.PinIn, op.InputPin(0).Direction())
	assert.Equal(t, gshader.PinOut, op.Output().Direction())
	kind, ok := op.Operator()
	assert.True(t, ok)
	assert.Equal(t, gshader.OpMul, kind)
	_, ok = op.Function()
	assert.False(t, ok)

	_, err = s.CreateOperator(gshader.OpAdd, gshader.TypeBool)
	assert.ErrorIs(t, err, gshader.ErrTypeMismatch)
}

func TestCreateFunction(t *testing.T) {
	s := gshader.NewFragmentScript()
	dot, err := s.CreateFunction(gshader.FuncDot, gshader.TypeFloat32, gshader.TypeVec3, gshader.TypeVec3)
	require.NoError(t, err)
	assert.Equal(t, gshader.TypeFloat32, dot.Output().DataType())

	_, err = s.CreateFunction(gshader.FuncDot, gshader.TypeVec3, gshader.TypeVec3, gshader.TypeVec3)
	assert.ErrorIs(t, err, gshader.ErrTypeMismatch)
	_, err = s.CreateFunction(gshader.FuncMax, gshader.TypeFloat32, gshader.TypeFloat32)
	assert.ErrorIs(t, err, gshader.ErrInvalidArity)
	_, err = s.CreateFunctionFor(gshader.FuncCross, gshader.TypeVec2)
	assert.ErrorIs(t, err, gshader.ErrTypeMismatch)
	_, err = s.CreateFunctionFor(gshader.FunctionKind(200), gshader.TypeVec2)
	assert.ErrorIs(t, err, gshader.ErrUnsupportedOperator)
	assert.Len(t, s.Nodes(), 1)
}

func TestDestroyNode(t *testing.T) {
	s := gshader.NewFragmentScript()
	c, _ := s.CreateConstant(gshader.Vec4Value(gshader.Vec4{X: 1}))
	add, _ := s.CreateOperator(gshader.OpAdd, gshader.TypeVec4)
	out, _ := s.CreateVaryingOut(gshader.TypeVec4)
	require.NoError(t, add.InputPin(0).Connect(c.Output()))
	require.NoError(t, add.InputPin(1).Connect(c.Output()))
	require.NoError(t, out.Input().Connect(add.Output()))

	s.DestroyNode(c)
	assert.False(t, c.Alive())
	assert.Nil(t, add.InputPin(0).Connection())
	assert.Nil(t, add.InputPin(1).Connection())
	assert.NotContains(t, s.Nodes(), c)

	s.DestroyNode(add)
	assert.Nil(t, out.Input().Connection())
	s.DestroyNode(add) // no-op.
	s.DestroyNode(out)
	assert.Empty(t, s.VaryingOutNodes())
	assert.Empty(t, s.Nodes())
}

func TestVertexOutputNotDestroyable(t *testing.T) {
	s := gshader.NewVertexScript()
	vo := s.VertexOutputNode()
	require.NotNil(t, vo)
	assert.Equal(t, gshader.NodeVertexOutput, vo.Kind())
	assert.Equal(t, gshader.TypeVec3, vo.Input().DataType())
	s.DestroyNode(vo)
	assert.True(t, vo.Alive())
	assert.Contains(t, s.Nodes(), vo)

	assert.Nil(t, gshader.NewFragmentScript().VertexOutputNode())
}

func TestUniformBlocks(t *testing.T) {
	s := gshader.NewVertexScript()
	b5, err := s.CreateUniformBlock(5)
	require.NoError(t, err)
	b1, err := s.CreateUniformBlock(1)
	require.NoError(t, err)
	_, err = s.CreateUniformBlock(5)
	assert.ErrorIs(t, err, gshader.ErrDuplicateID)
	assert.Equal(t, []*gshader.UniformBlock{b1, b5}, s.UniformBlocks())

	m0, err := b5.AddMember(gshader.TypeMat4)
	require.NoError(t, err)
	m1, err := b5.AddMember(gshader.TypeFloat32)
	require.NoError(t, err)
	assert.Equal(t, []*gshader.Node{m0, m1}, b5.Members())
	assert.Same(t, b5, m0.UniformBlock())

	sin, _ := s.CreateFunctionFor(gshader.FuncSin, gshader.TypeFloat32)
	require.NoError(t, sin.Input().Connect(m1.Output()))
	s.DestroyUniformBlock(5)
	assert.Nil(t, s.UniformBlock(5))
	assert.False(t, m1.Alive())
	assert.Nil(t, sin.Input().Connection())
	_, err = b5.AddMember(gshader.TypeFloat32)
	assert.Error(t, err)

	s.DestroyNode(m0) // Already destroyed with its block.
	assert.Equal(t, []*gshader.UniformBlock{b1}, s.UniformBlocks())
}

func TestPushConstantLayout(t *testing.T) {
	frag := gshader.NewFragmentScript()
	pc := frag.PushConstants()
	_, err := pc.AddMember(123, gshader.TypeVec4)
	require.NoError(t, err)
	_, err = pc.AddMember(1234, gshader.TypeVec2)
	require.NoError(t, err)
	_, err = pc.AddMember(12356, gshader.TypeFloat32)
	require.NoError(t, err)
	_, err = pc.AddMember(123, gshader.TypeFloat32)
	assert.ErrorIs(t, err, gshader.ErrDuplicateID)

	layout, err := gshader.NewPushConstantLayout(frag)
	require.NoError(t, err)
	assert.Equal(t, []gshader.PushConstantEntry{
		{ID: 123, Type: gshader.TypeVec4, Offset: 0},
		{ID: 1234, Type: gshader.TypeVec2, Offset: 16},
		{ID: 12356, Type: gshader.TypeFloat32, Offset: 24},
	}, layout.Entries())
	assert.Equal(t, 28, layout.Size())

	vert := gshader.NewVertexScript()
	_, err = vert.PushConstants().AddMember(7, gshader.TypeVec3)
	require.NoError(t, err)
	_, err = vert.PushConstants().AddMember(1234, gshader.TypeVec2)
	require.NoError(t, err)
	shared, err := gshader.NewPushConstantLayout(vert, frag)
	require.NoError(t, err)
	assert.Equal(t, []gshader.PushConstantEntry{
		{ID: 7, Type: gshader.TypeVec3, Offset: 0},
		{ID: 1234, Type: gshader.TypeVec2, Offset: 16},
		{ID: 123, Type: gshader.TypeVec4, Offset: 32},
		{ID: 12356, Type: gshader.TypeFloat32, Offset: 48},
	}, shared.Entries())
	off, ok := shared.Offset(12356)
	assert.True(t, ok)
	assert.Equal(t, 48, off)

	bad := gshader.NewVertexScript()
	_, err = bad.PushConstants().AddMember(123, gshader.TypeFloat32)
	require.NoError(t, err)
	_, err = gshader.NewPushConstantLayout(frag, bad)
	assert.ErrorIs(t, err, gshader.ErrTypeMismatch)
}

func TestValue(t *testing.T) {
	v := gshader.ValueOf(float32(2))
	assert.Equal(t, gshader.TypeFloat32, v.Type())
	assert.Equal(t, float32(2), v.Float())
	assert.Panics(t, func() { v.Int() })

	m := gshader.ValueOf(ms3.ScalingMat4(ms3.Vec{X: 2, Y: 3, Z: 4}))
	assert.Equal(t, gshader.TypeMat4, m.Type())
	arr := m.Mat4Array()
	assert.Equal(t, float32(2), arr[0])
	assert.Equal(t, float32(0), arr[1])
	assert.Equal(t, float32(3), arr[5])
	assert.Equal(t, float32(1), arr[15])

	_, err := gshader.MakeValue(gshader.TypeVec3, 1, 2)
	assert.ErrorIs(t, err, gshader.ErrInvalidArity)
	_, err = gshader.MakeValue(gshader.TypeBool, 1)
	assert.ErrorIs(t, err, gshader.ErrUnsupportedDataType)
	v3, err := gshader.MakeValue(gshader.TypeVec3, 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, ms3.Vec{X: 1, Y: 2, Z: 3}, v3.Vec3())
	assert.False(t, gshader.Zero(gshader.TypeInvalid).IsValid())
}

func TestParse(t *testing.T) {
	dt, err := gshader.ParseDataType("vec3")
	require.NoError(t, err)
	assert.Equal(t, gshader.TypeVec3, dt)
	dt, err = gshader.ParseDataType("mat4f32")
	require.NoError(t, err)
	assert.Equal(t, gshader.TypeMat4, dt)
	_, err = gshader.ParseDataType("dvec3")
	assert.ErrorIs(t, err, gshader.ErrUnsupportedDataType)
	_, err = gshader.GLSLTypeName(gshader.DataType(99))
	assert.ErrorIs(t, err, gshader.ErrUnsupportedDataType)

	op, err := gshader.ParseOperatorKind("*")
	require.NoError(t, err)
	assert.Equal(t, gshader.OpMul, op)
	fk, err := gshader.ParseFunctionKind("dot")
	require.NoError(t, err)
	assert.Equal(t, gshader.FuncDot, fk)
}

func TestBuilderAccumulatesErrors(t *testing.T) {
	bld := gshader.NewBuilder(gshader.NewFragmentScript())
	bld.NoErrorPanic = true
	f := bld.Constant(gshader.FloatValue(1))
	v := bld.Input(gshader.TypeVec4)
	assert.Nil(t, bld.Add(f, v))
	assert.Nil(t, bld.Func(gshader.FuncCross, f, f))
	assert.Nil(t, bld.Output(nil))
	bld.Position(f)
	err := bld.Err()
	assert.ErrorIs(t, err, gshader.ErrTypeMismatch)
	assert.ErrorIs(t, err, gshader.ErrNullPin)
	assert.ErrorIs(t, err, gshader.ErrInvalidConnection)
	// Failed nodes are destroyed.
	assert.Len(t, bld.Script().Nodes(), 2)

	panicky := gshader.NewBuilder(gshader.NewFragmentScript())
	assert.Panics(t, func() { panicky.Output(nil) })
}
