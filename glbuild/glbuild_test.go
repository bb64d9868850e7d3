package glbuild_test

import (
	"math"
	"testing"

	"github.com/soypat/gshader/glbuild"
)

func TestAppendFloat(t *testing.T) {
	for _, test := range []struct {
		v    float32
		want string
	}{
		{1, "1"},
		{0, "0"},
		{0.5, "0.5"},
		{0.3, "0.3"},
		{2.1, "2.1"},
		{-4.25, "-4.25"},
		{100, "100"},
		{1e-7, "0.0000001"},
		{1e20, "1e+20"},
		{-3e12, "-3e+12"},
	} {
		got := string(glbuild.AppendFloat(nil, test.v))
		if got != test.want {
			t.Errorf("AppendFloat(%v): want %q, got %q", test.v, test.want, got)
		}
	}
}

func TestAppendVecLiteral(t *testing.T) {
	got := string(glbuild.AppendVecLiteral(nil, 0, 0, 0.3, 0))
	if got != "vec4(0, 0, 0.3, 0)" {
		t.Errorf("got %q", got)
	}
	got = string(glbuild.AppendVecLiteral([]byte("x="), 1, 2))
	if got != "x=vec2(1, 2)" {
		t.Errorf("got %q", got)
	}
}

func TestAppendScalarLiterals(t *testing.T) {
	for _, test := range []struct {
		got  []byte
		want string
	}{
		{glbuild.AppendBool(nil, true), "true"},
		{glbuild.AppendBool(nil, false), "false"},
		{glbuild.AppendInt(nil, -3), "-3"},
		{glbuild.AppendInt(nil, 2147483647), "2147483647"},
	} {
		if string(test.got) != test.want {
			t.Errorf("got %q, want %q", test.got, test.want)
		}
	}
}

func TestAppendMat4Literal(t *testing.T) {
	var rowmajor [16]float32
	for i := range rowmajor {
		rowmajor[i] = float32(i)
	}
	got := string(glbuild.AppendMat4Literal(nil, rowmajor))
	const want = "mat4(0, 4, 8, 12, 1, 5, 9, 13, 2, 6, 10, 14, 3, 7, 11, 15)"
	if got != want {
		t.Errorf("want %q, got %q", want, got)
	}
}

func TestCheckFinite(t *testing.T) {
	if err := glbuild.CheckFinite(1, 2, 3); err != nil {
		t.Error(err)
	}
	if err := glbuild.CheckFinite(1, float32(math.NaN())); err == nil {
		t.Error("expected error for NaN")
	}
	if err := glbuild.CheckFinite(float32(math.Inf(-1))); err == nil {
		t.Error("expected error for -Inf")
	}
}

func TestDeclarations(t *testing.T) {
	var b []byte
	b = glbuild.AppendHeader(b)
	b = glbuild.AppendLocationDecl(b, 0, glbuild.StorageIn, "vec4", "in_0")
	b = glbuild.AppendUniformBlockStart(b, 3, "s_ubo_0")
	b = glbuild.AppendBlockMember(b, -1, "float", "var_0")
	b = glbuild.AppendBlockEnd(b, "ubo_0")
	b = glbuild.AppendPushConstantBlockStart(b, "s_vertex_pc")
	b = glbuild.AppendBlockMember(b, 16, "vec2", "mem16")
	b = glbuild.AppendBlockEnd(b, "pc")
	b = glbuild.AppendMainStart(b)
	b = glbuild.AppendDeclStart(b, "float", "l_var_0")
	b = glbuild.AppendFloat(b, 2)
	b = glbuild.AppendStatementEnd(b)
	b = glbuild.AppendAssignStart(b, "out_0")
	b = append(b, "l_var_0"...)
	b = glbuild.AppendStatementEnd(b)
	b = glbuild.AppendMainEnd(b)
	const want = "#version 450\n" +
		"#extension GL_ARB_separate_shader_objects : enable\n" +
		"layout(location = 0) in vec4 in_0;\n" +
		"layout(std140, binding = 3) uniform s_ubo_0\n{\n" +
		"float var_0;\n" +
		"} ubo_0;\n" +
		"layout(std140, push_constant) uniform s_vertex_pc\n{\n" +
		"layout(offset = 16) vec2 mem16;\n" +
		"} pc;\n" +
		"void main(){\n" +
		"float l_var_0 = 2;\n" +
		"out_0 = l_var_0;\n" +
		"}\n"
	if string(b) != want {
		t.Errorf("want:\n%s\ngot:\n%s", want, b)
	}
}

func TestStd140(t *testing.T) {
	for _, test := range []struct {
		typename    string
		align, size int
	}{
		{"float", 4, 4},
		{"int", 4, 4},
		{"bool", 4, 4},
		{"vec2", 8, 8},
		{"vec3", 16, 12},
		{"vec4", 16, 16},
		{"mat4", 16, 64},
	} {
		rule, err := glbuild.Std140Of(test.typename)
		if err != nil {
			t.Fatal(err)
		}
		if rule.Align != test.align || rule.Size != test.size {
			t.Errorf("%s: want align=%d size=%d, got %+v", test.typename, test.align, test.size, rule)
		}
	}
	if _, err := glbuild.Std140Of("sampler2D"); err == nil {
		t.Error("expected error for opaque type")
	}
	if got := glbuild.AlignUp(20, 16); got != 32 {
		t.Errorf("AlignUp(20,16)=%d", got)
	}
	if got := glbuild.AlignUp(24, 4); got != 24 {
		t.Errorf("AlignUp(24,4)=%d", got)
	}
}
