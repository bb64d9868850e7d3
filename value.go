package gshader

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Vec4 is a 4 component float32 vector.
type Vec4 struct {
	X, Y, Z, W float32
}

// Array returns the components of v in order.
func (v Vec4) Array() [4]float32 { return [4]float32{v.X, v.Y, v.Z, v.W} }

// Value is a constant of one of the supported data types. The zero Value is invalid.
type Value struct {
	typ DataType
	b   bool
	i   int32
	// f holds float components. Matrices are stored row-major.
	f [16]float32
}

// Scalar is the set of Go types that map to a [DataType].
type Scalar interface {
	bool | int32 | float32 | ms2.Vec | ms3.Vec | Vec4 | ms3.Mat4
}

// ValueOf returns the Value holding v.
func ValueOf[T Scalar](v T) Value {
	switch v := any(v).(type) {
	case bool:
		return BoolValue(v)
	case int32:
		return IntValue(v)
	case float32:
		return FloatValue(v)
	case ms2.Vec:
		return Vec2Value(v)
	case ms3.Vec:
		return Vec3Value(v)
	case Vec4:
		return Vec4Value(v)
	case ms3.Mat4:
		return Mat4Value(v)
	}
	panic("unreachable")
}

func BoolValue(v bool) Value     { return Value{typ: TypeBool, b: v} }
func IntValue(v int32) Value     { return Value{typ: TypeInt32, i: v} }
func FloatValue(v float32) Value { return Value{typ: TypeFloat32, f: [16]float32{v}} }
func Vec2Value(v ms2.Vec) Value  { return Value{typ: TypeVec2, f: [16]float32{v.X, v.Y}} }
func Vec3Value(v ms3.Vec) Value  { return Value{typ: TypeVec3, f: [16]float32{v.X, v.Y, v.Z}} }
func Vec4Value(v Vec4) Value     { return Value{typ: TypeVec4, f: [16]float32{v.X, v.Y, v.Z, v.W}} }

// Mat4Value returns a matrix value.
func Mat4Value(m ms3.Mat4) Value {
	return Mat4ArrayValue(m.Array())
}

// Mat4ArrayValue returns a matrix value from its row-major elements.
func Mat4ArrayValue(rowmajor [16]float32) Value {
	return Value{typ: TypeMat4, f: rowmajor}
}

// MakeValue returns a float based value from its components. For matrices
// components are row-major.
func MakeValue(dt DataType, components ...float32) (Value, error) {
	n := dt.components()
	if n == 0 {
		return Value{}, fmt.Errorf("%s is not float based: %w", dt, ErrUnsupportedDataType)
	} else if len(components) != n {
		return Value{}, fmt.Errorf("%s requires %d components, got %d: %w", dt, n, len(components), ErrInvalidArity)
	}
	v := Value{typ: dt}
	copy(v.f[:], components)
	return v, nil
}

// Zero returns the zero value of dt. Invalid data types return the zero Value.
func Zero(dt DataType) Value {
	if dt <= TypeInvalid || dt > TypeMat4 {
		return Value{}
	}
	return Value{typ: dt}
}

// Type returns the data type of v.
func (v Value) Type() DataType { return v.typ }

// IsValid reports whether v holds a value of a supported data type.
func (v Value) IsValid() bool { return v.typ > TypeInvalid && v.typ <= TypeMat4 }

func (v Value) Bool() bool {
	v.mustBe(TypeBool)
	return v.b
}

func (v Value) Int() int32 {
	v.mustBe(TypeInt32)
	return v.i
}

func (v Value) Float() float32 {
	v.mustBe(TypeFloat32)
	return v.f[0]
}

func (v Value) Vec2() ms2.Vec {
	v.mustBe(TypeVec2)
	return ms2.Vec{X: v.f[0], Y: v.f[1]}
}

func (v Value) Vec3() ms3.Vec {
	v.mustBe(TypeVec3)
	return ms3.Vec{X: v.f[0], Y: v.f[1], Z: v.f[2]}
}

func (v Value) Vec4() Vec4 {
	v.mustBe(TypeVec4)
	return Vec4{X: v.f[0], Y: v.f[1], Z: v.f[2], W: v.f[3]}
}

// Mat4Array returns the row-major elements of a matrix value.
func (v Value) Mat4Array() [16]float32 {
	v.mustBe(TypeMat4)
	return v.f
}

// Floats returns the float components of a float based value, nil otherwise.
// Matrices are returned row-major.
func (v Value) Floats() []float32 {
	n := v.typ.components()
	if n == 0 {
		return nil
	}
	return append([]float32(nil), v.f[:n]...)
}

func (v Value) String() string {
	switch v.typ {
	case TypeBool:
		return fmt.Sprintf("%s(%t)", v.typ, v.b)
	case TypeInt32:
		return fmt.Sprintf("%s(%d)", v.typ, v.i)
	}
	if n := v.typ.components(); n > 0 {
		return fmt.Sprintf("%s%v", v.typ, v.f[:n])
	}
	return "invalid"
}

func (v Value) mustBe(dt DataType) {
	if v.typ != dt {
		panic("gshader: value is " + v.typ.String() + ", not " + dt.String())
	}
}
