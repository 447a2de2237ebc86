package function

import (
	"fmt"

	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/product"
	"github.com/vk/tilegraph/internal/registry"
)

// Graph-file names of the kinds in this package.
const (
	KindFunction = "function"
	KindInput    = "function_input"
	KindOutput   = "function_output"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// FunctionConfig is the HCL body of a function node.
type FunctionConfig struct {
	Graph     string               `hcl:"graph"`
	Overrides map[string][]float64 `hcl:"overrides,optional"`
}

// InputConfig is the HCL body of a function input portal. The portal's name
// defaults to the node's name.
type InputConfig struct {
	Name    string    `hcl:"name,optional"`
	Type    string    `hcl:"type,optional"`
	Default []float64 `hcl:"default,optional"`
}

// OutputConfig is the HCL body of a function output portal.
type OutputConfig struct {
	Name string `hcl:"name,optional"`
	Type string `hcl:"type,optional"`
}

// Register registers the function kind and its portals.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(KindFunction, &registry.RegisteredKind{
		NewConfig: func() any { return new(FunctionConfig) },
		Build: func(cfg any, env registry.Env) (graph.Generator, error) {
			c := cfg.(*FunctionConfig)
			sub, err := env.Graph(c.Graph)
			if err != nil {
				return nil, fmt.Errorf("resolving sub-graph %q: %w", c.Graph, err)
			}
			f := New(sub)
			for name, v := range c.Overrides {
				f.SetOverride(name, product.Vec(v...))
			}
			return f, nil
		},
	})
	r.RegisterKind(KindInput, &registry.RegisteredKind{
		NewConfig: func() any { return &InputConfig{Type: "vector"} },
		Build: func(cfg any, env registry.Env) (graph.Generator, error) {
			c := cfg.(*InputConfig)
			if c.Name == "" {
				c.Name = env.NodeName()
			}
			kind, err := product.ParseKind(c.Type)
			if err != nil {
				return nil, err
			}
			return &Input{Name: c.Name, Type: kind, Default: product.Vec(c.Default...)}, nil
		},
	})
	r.RegisterKind(KindOutput, &registry.RegisteredKind{
		NewConfig: func() any { return &OutputConfig{Type: "vector"} },
		Build: func(cfg any, env registry.Env) (graph.Generator, error) {
			c := cfg.(*OutputConfig)
			if c.Name == "" {
				c.Name = env.NodeName()
			}
			kind, err := product.ParseKind(c.Type)
			if err != nil {
				return nil, err
			}
			return &Output{Name: c.Name, Type: kind}, nil
		},
	})
}
