// Package glbuild contains the GLSL text primitives used to lower shader graphs:
// literal formatting, interface declarations and std140 layout rules.
//
// Functions follow the append convention: they append to the argument buffer
// and return the result so that callers can reuse scratch memory.
package glbuild

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/chewxy/math32"
)

const (
	// VersionStr is the GLSL version directive emitted at the top of every shader.
	VersionStr = "#version 450\n"
	// ExtensionStr enables separate shader objects so that stages can be linked independently.
	ExtensionStr = "#extension GL_ARB_separate_shader_objects : enable\n"
)

var errNonFinite = errors.New("non-finite float has no GLSL literal")

// AppendHeader appends the version and extension directives.
func AppendHeader(b []byte) []byte {
	b = append(b, VersionStr...)
	b = append(b, ExtensionStr...)
	return b
}

// maxPlainDigits is the number of integer digits after which floats are
// formatted in exponent form so that they are not parsed as int literals.
const maxPlainDigits = 9

// AppendFloat appends v in its shortest GLSL form. Trailing zeros and a trailing
// decimal point are trimmed: 1.0 is written as "1" and 0.30 as "0.3".
func AppendFloat(b []byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', -1, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if idx < 0 {
		digits := len(b) - start
		if b[start] == '-' {
			digits--
		}
		if digits > maxPlainDigits {
			b = strconv.AppendFloat(b[:start], float64(v), 'e', -1, 32)
		}
		return b
	}
	end := len(b)
	for end > start+idx+1 && b[end-1] == '0' {
		end--
	}
	if end == start+idx+1 {
		end-- // Trailing decimal point.
	}
	return b[:end]
}

// AppendFloats appends the floats separated by ", ".
func AppendFloats(b []byte, s ...float32) []byte {
	for i, v := range s {
		if i != 0 {
			b = append(b, ", "...)
		}
		b = AppendFloat(b, v)
	}
	return b
}

// CheckFinite returns an error if any of the values is NaN or infinite.
func CheckFinite(s ...float32) error {
	for i, v := range s {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return fmt.Errorf("component %d: %w", i, errNonFinite)
		}
	}
	return nil
}

// AppendBool appends the GLSL boolean literal.
func AppendBool(b []byte, v bool) []byte {
	if v {
		return append(b, "true"...)
	}
	return append(b, "false"...)
}

// AppendInt appends v in decimal form.
func AppendInt(b []byte, v int32) []byte {
	return strconv.AppendInt(b, int64(v), 10)
}

// AppendVecLiteral appends a vecN constructor where N is the number of components.
//
//	vec4(0, 0, 0.3, 0)
func AppendVecLiteral(b []byte, components ...float32) []byte {
	if len(components) < 2 || len(components) > 4 {
		panic("unsupported vector length")
	}
	b = append(b, "vec"...)
	b = strconv.AppendInt(b, int64(len(components)), 10)
	b = append(b, '(')
	b = AppendFloats(b, components...)
	b = append(b, ')')
	return b
}

// AppendMat4Literal appends a mat4 constructor from a row-major matrix.
// GLSL constructors are column major so elements are transposed on writing.
func AppendMat4Literal(b []byte, rowmajor [16]float32) []byte {
	return appendMatLiteral(b, "mat4", 4, 4, rowmajor[:])
}

func appendMatLiteral(b []byte, typename string, row, col int, arr []float32) []byte {
	b = append(b, typename...)
	b = append(b, '(')
	for j := 0; j < col; j++ {
		for i := 0; i < row; i++ {
			if i != 0 || j != 0 {
				b = append(b, ", "...)
			}
			b = AppendFloat(b, arr[i*col+j])
		}
	}
	b = append(b, ')')
	return b
}

// StorageQualifier is the direction of a stage interface variable.
type StorageQualifier string

const (
	StorageIn  StorageQualifier = "in"
	StorageOut StorageQualifier = "out"
)

// AppendLocationDecl appends a stage interface variable declaration.
//
//	layout(location = <location>) <storage> <typename> <name>;
func AppendLocationDecl(b []byte, location int, storage StorageQualifier, typename, name string) []byte {
	b = append(b, "layout(location = "...)
	b = strconv.AppendInt(b, int64(location), 10)
	b = append(b, ") "...)
	b = append(b, storage...)
	b = append(b, ' ')
	b = append(b, typename...)
	b = append(b, ' ')
	b = append(b, name...)
	b = append(b, ";\n"...)
	return b
}

// AppendUniformBlockStart appends the opening of a std140 uniform block.
//
//	layout(std140, binding = <binding>) uniform <blockName>
//	{
func AppendUniformBlockStart(b []byte, binding int, blockName string) []byte {
	b = append(b, "layout(std140, binding = "...)
	b = strconv.AppendInt(b, int64(binding), 10)
	b = append(b, ") uniform "...)
	b = append(b, blockName...)
	b = append(b, "\n{\n"...)
	return b
}

// AppendPushConstantBlockStart appends the opening of a Vulkan push constant block.
//
//	layout(std140, push_constant) uniform <blockName>
//	{
func AppendPushConstantBlockStart(b []byte, blockName string) []byte {
	b = append(b, "layout(std140, push_constant) uniform "...)
	b = append(b, blockName...)
	b = append(b, "\n{\n"...)
	return b
}

// AppendBlockMember appends a block member. Negative offsets omit the offset qualifier.
//
//	layout(offset = <offset>) <typename> <name>;
func AppendBlockMember(b []byte, offset int, typename, name string) []byte {
	if offset >= 0 {
		b = append(b, "layout(offset = "...)
		b = strconv.AppendInt(b, int64(offset), 10)
		b = append(b, ") "...)
	}
	b = append(b, typename...)
	b = append(b, ' ')
	b = append(b, name...)
	b = append(b, ";\n"...)
	return b
}

// AppendBlockEnd closes a block and names its instance.
func AppendBlockEnd(b []byte, instanceName string) []byte {
	b = append(b, "} "...)
	b = append(b, instanceName...)
	b = append(b, ";\n"...)
	return b
}

// AppendMainStart opens the main function.
func AppendMainStart(b []byte) []byte {
	return append(b, "void main(){\n"...)
}

// AppendMainEnd closes the main function.
func AppendMainEnd(b []byte) []byte {
	return append(b, "}\n"...)
}

// AppendDeclStart appends the start of a local variable declaration
// "<typename> <name> = ". The caller appends the expression and calls [AppendStatementEnd].
func AppendDeclStart(b []byte, typename, name string) []byte {
	b = append(b, typename...)
	b = append(b, ' ')
	b = append(b, name...)
	b = append(b, " = "...)
	return b
}

// AppendAssignStart appends "<name> = ".
func AppendAssignStart(b []byte, name string) []byte {
	b = append(b, name...)
	b = append(b, " = "...)
	return b
}

// AppendStatementEnd appends ";\n".
func AppendStatementEnd(b []byte) []byte {
	return append(b, ";\n"...)
}

// Std140 describes the base alignment and size in bytes of a type in a std140 block.
type Std140 struct {
	Align int
	Size  int
}

// Std140Of returns the std140 layout rule of a GLSL type.
func Std140Of(typename string) (Std140, error) {
	switch typename {
	case "bool", "int", "uint", "float":
		return Std140{Align: 4, Size: 4}, nil
	case "vec2", "ivec2", "uvec2":
		return Std140{Align: 8, Size: 8}, nil
	case "vec3", "ivec3", "uvec3":
		return Std140{Align: 16, Size: 12}, nil
	case "vec4", "ivec4", "uvec4":
		return Std140{Align: 16, Size: 16}, nil
	case "mat4":
		return Std140{Align: 16, Size: 64}, nil
	case "":
		return Std140{}, errors.New("empty typename")
	}
	return Std140{}, fmt.Errorf("std140 layout not implemented for %q", typename)
}

// AlignUp rounds offset up to the next multiple of align. align must be a power of two.
func AlignUp(offset, align int) int {
	if align <= 0 || align&(align-1) != 0 {
		panic("alignment must be a positive power of two")
	}
	return (offset + align - 1) &^ (align - 1)
}
