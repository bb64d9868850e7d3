//go:build tinygo || !cgo

package gleval

import (
	"errors"
)

var errNoCGO = errors.New("OpenGL driver checks require CGo and are not supported on TinyGo")

func InitGL() (terminate func(), err error) {
	return nil, errNoCGO
}

func DriverVersion() string { return "" }

func CheckDriver(vertex, fragment []byte) error {
	return errNoCGO
}
