package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/gshader"
)

// graphDoc is the TOML document describing a script:
//
//	stage = "fragment"
//
//	[[node]]
//	name = "color"
//	kind = "in"
//	type = "vec4"
//
//	[[node]]
//	name = "tint"
//	kind = "const"
//	type = "vec4"
//	value = [1, 0.5, 0, 1]
//
//	[[node]]
//	name = "mul"
//	kind = "op"
//	op = "mul"
//	type = "vec4"
//	inputs = ["color", "tint"]
//
//	[[node]]
//	kind = "out"
//	type = "vec4"
//	inputs = ["mul"]
//
// Empty input names leave the pin unconnected. defaults holds the default value
// of each input pin, a value per pin.
type graphDoc struct {
	Stage string    `toml:"stage"`
	Nodes []nodeDoc `toml:"node"`
}

type nodeDoc struct {
	Name string `toml:"name"`
	// Kind is one of const, func, op, in, out, uniform, push or position.
	Kind string `toml:"kind"`
	Type string `toml:"type"`
	Func string `toml:"func"`
	Op   string `toml:"op"`
	// Block is the uniform block id of uniform nodes.
	Block uint32 `toml:"block"`
	// ID is the push constant id of push nodes.
	ID       uint32   `toml:"id"`
	Value    any      `toml:"value"`
	Inputs   []string `toml:"inputs"`
	Defaults []any    `toml:"defaults"`
}

var errGraph = errors.New("invalid graph document")

// loadGraph decodes a TOML graph document and builds its script. Nodes are
// created in document order and connected after all nodes exist so inputs may
// reference nodes declared later.
func loadGraph(r io.Reader) (*gshader.Script, error) {
	var doc graphDoc
	err := toml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return nil, err
	}
	var s *gshader.Script
	switch doc.Stage {
	case "vertex", "vert":
		s = gshader.NewVertexScript()
	case "fragment", "frag":
		s = gshader.NewFragmentScript()
	default:
		return nil, fmt.Errorf("%w: unknown stage %q", errGraph, doc.Stage)
	}

	byName := make(map[string]*gshader.Node)
	nodes := make([]*gshader.Node, len(doc.Nodes))
	for i := range doc.Nodes {
		nd := &doc.Nodes[i]
		n, err := createNode(s, nd)
		if err != nil {
			return nil, fmt.Errorf("node %d %q: %w", i, nd.Name, err)
		}
		if nd.Name != "" {
			if _, dup := byName[nd.Name]; dup {
				return nil, fmt.Errorf("%w: duplicate node name %q", errGraph, nd.Name)
			}
			byName[nd.Name] = n
		}
		nodes[i] = n
	}

	for i := range doc.Nodes {
		nd := &doc.Nodes[i]
		n := nodes[i]
		if len(nd.Inputs) > n.InputPinCount() || len(nd.Defaults) > n.InputPinCount() {
			return nil, fmt.Errorf("node %d %q has %d inputs: %w", i, nd.Name, n.InputPinCount(), gshader.ErrInvalidArity)
		}
		for j, raw := range nd.Defaults {
			pin := n.InputPin(j)
			v, err := parseValue(pin.DataType(), raw)
			if err != nil {
				return nil, fmt.Errorf("node %d %q default %d: %w", i, nd.Name, j, err)
			}
			err = pin.SetDefaultValue(v)
			if err != nil {
				return nil, err
			}
		}
		for j, src := range nd.Inputs {
			if src == "" {
				continue
			}
			from, ok := byName[src]
			if !ok {
				return nil, fmt.Errorf("%w: node %q input %d references unknown node %q", errGraph, nd.Name, j, src)
			} else if from.OutputPinCount() == 0 {
				return nil, fmt.Errorf("%w: node %q has no output", errGraph, src)
			}
			err = n.InputPin(j).Connect(from.Output())
			if err != nil {
				return nil, fmt.Errorf("node %q input %d: %w", nd.Name, j, err)
			}
		}
	}
	return s, nil
}

func createNode(s *gshader.Script, nd *nodeDoc) (*gshader.Node, error) {
	if nd.Kind == "position" {
		n := s.VertexOutputNode()
		if n == nil {
			return nil, fmt.Errorf("%w: position node in %s script", errGraph, s.Stage())
		}
		return n, nil
	}
	dt, err := gshader.ParseDataType(nd.Type)
	if err != nil {
		return nil, err
	}
	switch nd.Kind {
	case "const":
		v, err := parseValue(dt, nd.Value)
		if err != nil {
			return nil, err
		}
		return s.CreateConstant(v)
	case "func":
		fk, err := gshader.ParseFunctionKind(nd.Func)
		if err != nil {
			return nil, err
		}
		return s.CreateFunctionFor(fk, dt)
	case "op":
		op, err := gshader.ParseOperatorKind(nd.Op)
		if err != nil {
			return nil, err
		}
		return s.CreateOperator(op, dt)
	case "in":
		return s.CreateVaryingIn(dt)
	case "out":
		return s.CreateVaryingOut(dt)
	case "uniform":
		blk := s.UniformBlock(nd.Block)
		if blk == nil {
			blk, err = s.CreateUniformBlock(nd.Block)
			if err != nil {
				return nil, err
			}
		}
		return blk.AddMember(dt)
	case "push":
		return s.PushConstants().AddMember(nd.ID, dt)
	}
	return nil, fmt.Errorf("%w: unknown node kind %q", errGraph, nd.Kind)
}

// parseValue converts a decoded TOML value to a value of type dt. Scalars are
// TOML booleans, integers or floats and vectors and matrices are arrays of
// numbers, matrices in row-major order.
func parseValue(dt gshader.DataType, raw any) (gshader.Value, error) {
	if raw == nil {
		return gshader.Zero(dt), nil
	}
	switch dt {
	case gshader.TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return gshader.Value{}, fmt.Errorf("%w: want bool, got %T", gshader.ErrTypeMismatch, raw)
		}
		return gshader.BoolValue(b), nil
	case gshader.TypeInt32:
		i, ok := raw.(int64)
		if !ok || int64(int32(i)) != i {
			return gshader.Value{}, fmt.Errorf("%w: want int32, got %v", gshader.ErrTypeMismatch, raw)
		}
		return gshader.IntValue(int32(i)), nil
	case gshader.TypeFloat32:
		f, err := toFloat(raw)
		if err != nil {
			return gshader.Value{}, err
		}
		return gshader.FloatValue(f), nil
	}
	arr, ok := raw.([]any)
	if !ok {
		return gshader.Value{}, fmt.Errorf("%w: want array for %s, got %T", gshader.ErrTypeMismatch, dt, raw)
	}
	components := make([]float32, len(arr))
	for i, elem := range arr {
		f, err := toFloat(elem)
		if err != nil {
			return gshader.Value{}, fmt.Errorf("component %d: %w", i, err)
		}
		components[i] = f
	}
	return gshader.MakeValue(dt, components...)
}

func toFloat(raw any) (float32, error) {
	switch v := raw.(type) {
	case float64:
		return float32(v), nil
	case int64:
		return float32(v), nil
	}
	return 0, fmt.Errorf("%w: want number, got %T", gshader.ErrTypeMismatch, raw)
}
