// Package gshader implements visual shader graphs: scripts of typed nodes
// connected through pins that are lowered to GLSL source code.
//
// A [Script] owns every node of one shader stage. Nodes are created through
// the Script factory methods and wired by connecting an [InputPin] to an
// [OutputPin] of the same [DataType]. [Script.GenerateGLSL] walks the graph
// rooted at the stage outputs and emits deterministic GLSL.
package gshader

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is returned when connecting or assigning values of different data types.
	ErrTypeMismatch = errors.New("data type mismatch")
	// ErrInvalidArity is returned when a node is given the wrong number of operands.
	ErrInvalidArity = errors.New("invalid arity")
	// ErrCyclicGraph is returned when pin connections form a cycle.
	ErrCyclicGraph = errors.New("cyclic graph")
	// ErrUnsupportedDataType is returned for data types with no GLSL type or literal mapping.
	ErrUnsupportedDataType = errors.New("unsupported data type")
	// ErrUnsupportedOperator is returned for function or operator tags with no GLSL mapping.
	ErrUnsupportedOperator = errors.New("unsupported operator")
	// ErrNullPin is returned when an expected pin is absent.
	ErrNullPin = errors.New("null pin")
	// ErrInvalidConnection is returned when connecting pins of different scripts or destroyed nodes.
	ErrInvalidConnection = errors.New("invalid connection")
	// ErrDuplicateID is returned when a block or push constant id is already in use.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrLayoutMismatch is returned when a push constant layout does not describe a script's members.
	ErrLayoutMismatch = errors.New("push constant layout mismatch")
)

// Stage is the pipeline stage a [Script] generates code for.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// DataType is the type tag of pins and values.
type DataType uint8

const (
	TypeInvalid DataType = iota
	TypeBool
	TypeInt32
	TypeFloat32
	TypeVec2
	TypeVec3
	TypeVec4
	TypeMat4
)

var dataTypeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeInt32:   "int32",
	TypeFloat32: "float32",
	TypeVec2:    "vec2f32",
	TypeVec3:    "vec3f32",
	TypeVec4:    "vec4f32",
	TypeMat4:    "mat4f32",
}

func (dt DataType) String() string {
	if int(dt) < len(dataTypeNames) {
		return dataTypeNames[dt]
	}
	return fmt.Sprintf("DataType(%d)", uint8(dt))
}

// glslTypeNames maps data types to GLSL type names. Empty entries have no mapping.
var glslTypeNames = [...]string{
	TypeBool:    "bool",
	TypeInt32:   "int",
	TypeFloat32: "float",
	TypeVec2:    "vec2",
	TypeVec3:    "vec3",
	TypeVec4:    "vec4",
	TypeMat4:    "mat4",
}

// GLSLTypeName returns the GLSL type name of dt.
func GLSLTypeName(dt DataType) (string, error) {
	if int(dt) < len(glslTypeNames) && glslTypeNames[dt] != "" {
		return glslTypeNames[dt], nil
	}
	return "", fmt.Errorf("no GLSL type for %s: %w", dt, ErrUnsupportedDataType)
}

// ParseDataType parses a GLSL type name such as "vec4" or a data type name such as "vec4f32".
func ParseDataType(s string) (DataType, error) {
	for dt := TypeBool; dt <= TypeMat4; dt++ {
		if s == glslTypeNames[dt] || s == dataTypeNames[dt] {
			return dt, nil
		}
	}
	return TypeInvalid, fmt.Errorf("unknown data type %q: %w", s, ErrUnsupportedDataType)
}

// components returns the number of float32 components of float based types.
func (dt DataType) components() int {
	switch dt {
	case TypeFloat32:
		return 1
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	case TypeVec4:
		return 4
	case TypeMat4:
		return 16
	}
	return 0
}

func (dt DataType) isVector() bool {
	return dt == TypeVec2 || dt == TypeVec3 || dt == TypeVec4
}
