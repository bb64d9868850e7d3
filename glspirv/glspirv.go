// Package glspirv lowers generated GLSL to SPIR-V through an external compiler process.
package glspirv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/soypat/gshader"
)

var (
	// ErrCompilation is returned when the external compiler rejects a source.
	ErrCompilation = errors.New("spirv compilation failed")
	// ErrUnsupportedVersion is returned when the external compiler version does not satisfy a constraint.
	ErrUnsupportedVersion = errors.New("unsupported compiler version")
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic = 0x07230203

// Compiler lowers GLSL source of a stage to binary form.
type Compiler interface {
	Compile(ctx context.Context, source []byte, stage gshader.Stage) ([]byte, error)
}

var _ Compiler = (*Validator)(nil) // Interface implementation compile-time check.

// DefaultValidatorPath is the executable name looked up in PATH when [Validator.Path] is empty.
const DefaultValidatorPath = "glslangValidator"

// Validator runs the Khronos glslangValidator reference compiler.
type Validator struct {
	// Path is the compiler executable. Empty uses [DefaultValidatorPath].
	Path string
	// TargetEnv is passed as --target-env when not empty, i.e: "vulkan1.2".
	TargetEnv string
	// Logger receives debug records of each invocation. nil disables logging.
	Logger *slog.Logger
}

func (v *Validator) path() string {
	if v.Path == "" {
		return DefaultValidatorPath
	}
	return v.Path
}

func stageArg(stage gshader.Stage) (string, error) {
	switch stage {
	case gshader.StageVertex:
		return "vert", nil
	case gshader.StageFragment:
		return "frag", nil
	}
	return "", fmt.Errorf("no compiler stage for %s", stage)
}

// Compile writes source to the compiler's standard input and returns the SPIR-V module it outputs.
func (v *Validator) Compile(ctx context.Context, source []byte, stage gshader.Stage) ([]byte, error) {
	sarg, err := stageArg(stage)
	if err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "gshader-spirv")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	outPath := filepath.Join(dir, sarg+".spv")
	args := []string{"-V", "--stdin", "-S", sarg}
	if v.TargetEnv != "" {
		args = append(args, "--target-env", v.TargetEnv)
	}
	args = append(args, "-o", outPath)

	cmd := exec.CommandContext(ctx, v.path(), args...)
	cmd.Stdin = bytes.NewReader(source)
	output, err := cmd.CombinedOutput()
	if v.Logger != nil {
		v.Logger.Debug("glslangValidator", slog.String("stage", sarg), slog.Int("srclen", len(source)), slog.Any("err", err))
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, fmt.Errorf("%w: %s: %s", ErrCompilation, exitErr, bytes.TrimSpace(output))
	} else if err != nil {
		return nil, err
	}
	spv, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading output: %w", ErrCompilation, err)
	} else if len(spv) < 4 || binary.LittleEndian.Uint32(spv) != SPIRVMagic {
		return nil, fmt.Errorf("%w: output is not SPIR-V", ErrCompilation)
	}
	return spv, nil
}

// Version returns the glslang version reported by the compiler.
func (v *Validator) Version(ctx context.Context) (*semver.Version, error) {
	output, err := exec.CommandContext(ctx, v.path(), "--version").Output()
	if err != nil {
		return nil, err
	}
	return parseVersion(output)
}

// parseVersion parses the "Glslang Version:" line of the compiler
// version output. Newer releases prefix the version with the SPIR-V
// generator version, i.e: "Glslang Version: 11:14.0.0".
func parseVersion(output []byte) (*semver.Version, error) {
	const prefix = "Glslang Version:"
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		after, found := strings.CutPrefix(line, prefix)
		if !found {
			continue
		}
		vstr := strings.TrimSpace(after)
		if idx := strings.LastIndexByte(vstr, ':'); idx >= 0 {
			vstr = vstr[idx+1:]
		}
		return semver.NewVersion(vstr)
	}
	return nil, errors.New("glslang version not found in compiler output")
}

// RequireVersion returns ErrUnsupportedVersion if the compiler version does
// not satisfy constraint, i.e: ">= 11.0".
func (v *Validator) RequireVersion(ctx context.Context, constraint string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return err
	}
	version, err := v.Version(ctx)
	if err != nil {
		return err
	}
	if !c.Check(version) {
		return fmt.Errorf("%w: have %s, want %s", ErrUnsupportedVersion, version, constraint)
	}
	return nil
}

// CompileScript generates GLSL for s with opts and lowers it with c.
func CompileScript(ctx context.Context, c Compiler, s *gshader.Script, opts gshader.Options) ([]byte, error) {
	src, err := gshader.NewGenerator(opts).Generate(s)
	if err != nil {
		return nil, err
	}
	return c.Compile(ctx, src, s.Stage())
}
