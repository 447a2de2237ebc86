package constant

import (
	"context"

	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/product"
	"github.com/vk/tilegraph/internal/registry"
)

// Kind is the graph-file name of the constant node.
const Kind = "constant"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config is the HCL body of a constant node.
type Config struct {
	Value   []float64 `hcl:"value,optional"`
	Exposed string    `hcl:"exposed,optional"`
}

// Generator stores one fixed vector on its "out" outlet. When Exposed is set,
// functions wrapping the graph may override the value per instance.
type Generator struct {
	Value   product.Vector
	Exposed string
}

// New creates a constant generator.
func New(v product.Vector) *Generator {
	return &Generator{Value: v}
}

func (g *Generator) Kind() string { return Kind }

func (g *Generator) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.Outlet("out", product.KindVector)}
}

func (g *Generator) Generate(_ context.Context, tc graph.TileContext) error {
	tc.Store("out", g.Value)
	return nil
}

// ExposedName implements graph.Exposed.
func (g *Generator) ExposedName() string { return g.Exposed }

// Complexity implements graph.Weighted.
func (g *Generator) Complexity() float64 { return 0.1 }

// Register registers the constant kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(Kind, &registry.RegisteredKind{
		NewConfig: func() any { return new(Config) },
		Build: func(cfg any, _ registry.Env) (graph.Generator, error) {
			c := cfg.(*Config)
			return &Generator{Value: product.Vec(c.Value...), Exposed: c.Exposed}, nil
		},
	})
}
