//go:build !tinygo && cgo

package gleval

import (
	"fmt"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// InitGL starts a 1x1 sized GLFW window with a current OpenGL 4.6 context so
// that sources can be checked against the driver.
// It returns a termination function that should be called when user is done using the driver.
func InitGL() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "gshader",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

// DriverVersion returns the version string of the current OpenGL context.
func DriverVersion() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

// CheckDriver compiles and links vertex and fragment sources with the OpenGL
// driver of the current context. Sources must be generated for [gshader.TargetOpenGL].
func CheckDriver(vertex, fragment []byte) error {
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   string(vertex) + "\x00",
		Fragment: string(fragment) + "\x00",
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDriverCompile, err)
	}
	prog.Delete()
	return glgl.Err()
}
