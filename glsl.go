package gshader

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/soypat/gshader/glbuild"
)

// NamingStyle selects how generated variables are named.
type NamingStyle uint8

const (
	// NamingIndexed names inputs v_var_<i>, outputs o_var_<i> and locals l_var_<n>.
	NamingIndexed NamingStyle = iota
	// NamingDescriptive names inputs in_<i>, outputs out_<i> and locals after
	// what computes them: vec4_0, mul_1, cos_2.
	NamingDescriptive
)

func (ns NamingStyle) String() string {
	switch ns {
	case NamingIndexed:
		return "indexed"
	case NamingDescriptive:
		return "descriptive"
	}
	return "NamingStyle(" + strconv.Itoa(int(ns)) + ")"
}

// ParseNamingStyle parses "indexed" or "descriptive".
func ParseNamingStyle(s string) (NamingStyle, error) {
	switch s {
	case "indexed":
		return NamingIndexed, nil
	case "descriptive":
		return NamingDescriptive, nil
	}
	return 0, fmt.Errorf("unknown naming style %q", s)
}

// Target selects the graphics API dialect of generated code.
type Target uint8

const (
	// TargetVulkan declares push constants in a push_constant block.
	TargetVulkan Target = iota
	// TargetOpenGL declares push constants as a uniform block at [Options.PushConstantBinding].
	TargetOpenGL
)

func (t Target) String() string {
	switch t {
	case TargetVulkan:
		return "vulkan"
	case TargetOpenGL:
		return "opengl"
	}
	return "Target(" + strconv.Itoa(int(t)) + ")"
}

// ParseTarget parses "vulkan" or "opengl".
func ParseTarget(s string) (Target, error) {
	switch s {
	case "vulkan", "vk":
		return TargetVulkan, nil
	case "opengl", "gl":
		return TargetOpenGL, nil
	}
	return 0, fmt.Errorf("unknown target %q", s)
}

// Options configures a [Generator]. The zero value generates Vulkan GLSL with
// indexed names and a push constant layout computed from the script alone.
type Options struct {
	Naming NamingStyle
	Target Target
	// PushConstants is the layout shared with other stages. If nil the
	// layout of the generated script's push constants is used.
	PushConstants *PushConstantLayout
	// PushConstantBinding is the uniform binding of push constants on [TargetOpenGL].
	// It may not be the id of a uniform block with members.
	PushConstantBinding int
	// Logger receives debug records and warnings. nil disables logging.
	Logger *slog.Logger
}

// Generator lowers scripts to GLSL. A Generator may be reused sequentially
// but is not safe for concurrent use.
type Generator struct {
	opts  Options
	buf   []byte
	names []string
}

// NewGenerator returns a Generator configured by opts.
func NewGenerator(opts Options) *Generator {
	return &Generator{opts: opts}
}

// GenerateGLSL lowers s with default options. The returned buffer is nil on error.
func (s *Script) GenerateGLSL(logger *slog.Logger) ([]byte, error) {
	return NewGenerator(Options{Logger: logger}).Generate(s)
}

// Generate returns the GLSL source of s. Output only depends on the script
// and the generator options. The returned buffer is nil on error.
func (g *Generator) Generate(s *Script) ([]byte, error) {
	plan, err := s.Plan()
	if err != nil {
		return nil, err
	}
	layout := g.opts.PushConstants
	if layout == nil {
		layout, err = NewPushConstantLayout(s)
		if err != nil {
			return nil, err
		}
	} else if err = layout.covers(s); err != nil {
		return nil, err
	}
	if g.opts.Target == TargetOpenGL && len(plan.PushConstants) > 0 {
		for _, blk := range plan.UniformBlocks {
			if int64(blk.id) == int64(g.opts.PushConstantBinding) {
				return nil, fmt.Errorf("push constant binding %d used by uniform block: %w", blk.id, ErrDuplicateID)
			}
		}
	}
	g.log(slog.LevelDebug, "generate interface",
		slog.String("stage", s.stage.String()),
		slog.Int("inputs", len(plan.Inputs)),
		slog.Int("outputs", len(plan.Outputs)),
		slog.Int("uniformBlocks", len(plan.UniformBlocks)),
		slog.Int("pushConstants", len(plan.PushConstants)),
	)
	g.nameVars(plan, layout)
	b, err := g.appendSource(g.buf[:0], plan, layout)
	g.buf = b[:0]
	if err != nil {
		return nil, err
	}
	g.log(slog.LevelDebug, "generate done",
		slog.String("stage", s.stage.String()),
		slog.Int("statements", len(plan.Steps)),
		slog.Int("bytes", len(b)),
	)
	return append([]byte(nil), b...), nil
}

func (g *Generator) log(level slog.Level, msg string, attrs ...slog.Attr) {
	if g.opts.Logger == nil {
		return
	}
	g.opts.Logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func (g *Generator) nameVars(p *Plan, layout *PushConstantLayout) {
	g.names = g.names[:0]
	descriptive := g.opts.Naming == NamingDescriptive
	for _, v := range p.Vars {
		var name string
		switch v.Kind {
		case VarVaryingIn:
			if descriptive {
				name = "in_" + strconv.Itoa(v.Index)
			} else {
				name = "v_var_" + strconv.Itoa(v.Index)
			}
		case VarOutput:
			if descriptive {
				name = "out_" + strconv.Itoa(v.Index)
			} else {
				name = "o_var_" + strconv.Itoa(v.Index)
			}
		case VarPosition:
			name = "gl_Position"
		case VarUniform:
			name = uboInstanceName(v.Block) + "." + uboMemberName(v.Index)
		case VarPushConstant:
			offset, _ := layout.Offset(v.PushID)
			name = "pc." + pushMemberName(offset)
		case VarLocal:
			if descriptive {
				name = localKindName(v.Node) + "_" + strconv.Itoa(v.Index)
			} else {
				name = "l_var_" + strconv.Itoa(v.Index)
			}
		}
		g.names = append(g.names, name)
	}
}

func uboInstanceName(block int) string { return "ubo_" + strconv.Itoa(block) }
func uboMemberName(member int) string  { return "var_" + strconv.Itoa(member) }
func pushMemberName(offset int) string { return "mem" + strconv.Itoa(offset) }

func localKindName(n *Node) string {
	switch n.kind {
	case NodeFunction:
		if n.fn < numFunctions {
			return glslFunctionNames[n.fn]
		}
	case NodeOperator:
		if n.op < numOperators {
			return operatorNames[n.op]
		}
	case NodeConstant:
		if name, err := GLSLTypeName(n.value.typ); err == nil {
			return name
		}
	}
	return "var"
}

func (g *Generator) appendSource(b []byte, p *Plan, layout *PushConstantLayout) (_ []byte, err error) {
	b = glbuild.AppendHeader(b)
	for _, id := range p.Inputs {
		v := p.Vars[id]
		typename, err := GLSLTypeName(v.Type)
		if err != nil {
			return b, err
		}
		b = glbuild.AppendLocationDecl(b, v.Index, glbuild.StorageIn, typename, g.names[id])
	}
	for i, blk := range p.UniformBlocks {
		b = glbuild.AppendUniformBlockStart(b, int(blk.id), "s_"+uboInstanceName(i))
		for j, id := range p.Uniforms[i] {
			typename, err := GLSLTypeName(p.Vars[id].Type)
			if err != nil {
				return b, err
			}
			b = glbuild.AppendBlockMember(b, -1, typename, uboMemberName(j))
		}
		b = glbuild.AppendBlockEnd(b, uboInstanceName(i))
	}
	if len(p.PushConstants) > 0 {
		blockName := "s_" + p.Stage.String() + "_pc"
		if g.opts.Target == TargetOpenGL {
			b = glbuild.AppendUniformBlockStart(b, g.opts.PushConstantBinding, blockName)
		} else {
			b = glbuild.AppendPushConstantBlockStart(b, blockName)
		}
		for _, id := range p.PushConstants {
			v := p.Vars[id]
			typename, err := GLSLTypeName(v.Type)
			if err != nil {
				return b, err
			}
			offset, _ := layout.Offset(v.PushID)
			b = glbuild.AppendBlockMember(b, offset, typename, pushMemberName(offset))
		}
		b = glbuild.AppendBlockEnd(b, "pc")
	}
	for _, id := range p.Outputs {
		v := p.Vars[id]
		if v.Kind != VarOutput {
			continue // gl_Position is builtin.
		}
		typename, err := GLSLTypeName(v.Type)
		if err != nil {
			return b, err
		}
		b = glbuild.AppendLocationDecl(b, v.Index, glbuild.StorageOut, typename, g.names[id])
	}

	b = glbuild.AppendMainStart(b)
	for i := range p.Steps {
		b, err = g.appendStep(b, p, &p.Steps[i])
		if err != nil {
			return b, err
		}
	}
	b = glbuild.AppendMainEnd(b)
	return b, nil
}

func (g *Generator) appendStep(b []byte, p *Plan, step *Step) (_ []byte, err error) {
	n := step.Node
	result := g.names[step.Result]
	switch n.kind {
	case NodeConstant:
		typename, err := GLSLTypeName(n.value.typ)
		if err != nil {
			return b, err
		}
		b = glbuild.AppendDeclStart(b, typename, result)
		b, err = appendLiteral(b, n.value)
		if err != nil {
			return b, fmt.Errorf("%s: %w", n, err)
		}

	case NodeFunction:
		fname, err := n.fn.GLSLName()
		if err != nil {
			return b, err
		}
		_, ins, err := Signature(n.fn, n.inputs[0].typ)
		if err != nil {
			return b, err
		} else if len(ins) != len(step.Operands) {
			return b, fmt.Errorf("%s takes %d arguments, got %d: %w", n, len(ins), len(step.Operands), ErrInvalidArity)
		}
		typename, err := GLSLTypeName(n.outputs[0].typ)
		if err != nil {
			return b, err
		}
		b = glbuild.AppendDeclStart(b, typename, result)
		b = append(b, fname...)
		b = append(b, '(')
		for i := range step.Operands {
			if i != 0 {
				b = append(b, ", "...)
			}
			b, err = g.appendOperand(b, step.Operands[i])
			if err != nil {
				return b, err
			}
		}
		b = append(b, ')')

	case NodeOperator:
		tok, err := n.op.GLSLToken()
		if err != nil {
			return b, err
		} else if len(step.Operands) != 2 {
			return b, fmt.Errorf("%s requires 2 operands, got %d: %w", n, len(step.Operands), ErrInvalidArity)
		}
		typename, err := GLSLTypeName(n.outputs[0].typ)
		if err != nil {
			return b, err
		}
		b = glbuild.AppendDeclStart(b, typename, result)
		b, err = g.appendOperand(b, step.Operands[0])
		if err != nil {
			return b, err
		}
		b = append(b, ' ')
		b = append(b, tok...)
		b = append(b, ' ')
		b, err = g.appendOperand(b, step.Operands[1])
		if err != nil {
			return b, err
		}

	case NodeVaryingOut, NodeVertexOutput:
		if len(step.Operands) != 1 {
			return b, fmt.Errorf("%s requires 1 operand, got %d: %w", n, len(step.Operands), ErrInvalidArity)
		}
		if step.Operands[0].IsLiteral() {
			g.log(slog.LevelWarn, "unconnected output uses default value",
				slog.String("node", n.String()),
				slog.String("value", step.Operands[0].Literal.String()),
			)
		}
		b = glbuild.AppendAssignStart(b, result)
		if n.kind == NodeVertexOutput {
			b = append(b, "vec4("...)
		}
		b, err = g.appendOperand(b, step.Operands[0])
		if err != nil {
			return b, err
		}
		if n.kind == NodeVertexOutput {
			b = append(b, ", 1)"...)
		}

	default:
		return b, fmt.Errorf("%s has no statement form: %w", n, ErrUnsupportedOperator)
	}
	return glbuild.AppendStatementEnd(b), nil
}

func (g *Generator) appendOperand(b []byte, op Operand) ([]byte, error) {
	if !op.IsLiteral() {
		return append(b, g.names[op.Var]...), nil
	}
	return appendLiteral(b, op.Literal)
}

// appendLiteral appends the GLSL literal of v.
func appendLiteral(b []byte, v Value) ([]byte, error) {
	switch v.typ {
	case TypeBool:
		return glbuild.AppendBool(b, v.b), nil
	case TypeInt32:
		return glbuild.AppendInt(b, v.i), nil
	}
	n := v.typ.components()
	if n == 0 {
		return b, fmt.Errorf("literal of %s: %w", v.typ, ErrUnsupportedDataType)
	}
	if err := glbuild.CheckFinite(v.f[:n]...); err != nil {
		return b, fmt.Errorf("literal of %s: %w", v.typ, err)
	}
	switch v.typ {
	case TypeFloat32:
		return glbuild.AppendFloat(b, v.f[0]), nil
	case TypeMat4:
		return glbuild.AppendMat4Literal(b, v.f), nil
	}
	return glbuild.AppendVecLiteral(b, v.f[:n]...), nil
}
