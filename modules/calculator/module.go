package calculator

import (
	"context"

	"github.com/vk/tilegraph/internal/calc"
	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/product"
	"github.com/vk/tilegraph/internal/registry"
)

// Kind is the graph-file name of the calculator node.
const Kind = "calculator"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config is the HCL body of a calculator node.
type Config struct {
	Expression string `hcl:"expression"`
}

// Generator evaluates a formula over vector inlets. It has one inlet per
// variable the formula references; an invalid formula is reported as a
// warning and yields the zero vector.
type Generator struct {
	calc *calc.Calculator
}

// New creates a calculator generator for the given formula.
func New(expression string) *Generator {
	return &Generator{calc: calc.Parse(expression)}
}

// SetExpression replaces the formula. Call it from graph.Configure so the
// inlets are re-synced with the new variable set.
func (g *Generator) SetExpression(expression string) {
	g.calc = calc.Parse(expression)
}

// Expression returns the formula text.
func (g *Generator) Expression() string {
	return g.calc.Text()
}

func (g *Generator) Kind() string { return Kind }

func (g *Generator) Ports() []graph.PortSpec {
	refs := g.calc.References()
	ports := make([]graph.PortSpec, 0, len(refs)+1)
	for _, name := range refs {
		ports = append(ports, graph.Inlet(name, product.KindVector))
	}
	return append(ports, graph.Outlet("out", product.KindVector))
}

func (g *Generator) Generate(ctx context.Context, tc graph.TileContext) error {
	bindings := make(map[string]product.Vector)
	for _, name := range g.calc.References() {
		p, err := tc.ReadInlet(ctx, name)
		if err != nil {
			return err
		}
		if p != nil {
			bindings[name] = product.AsVector(p)
		}
	}

	v, err := g.calc.Evaluate(bindings)
	if err != nil {
		tc.Warn(err.Error())
	}
	tc.Store("out", v)
	return nil
}

// Register registers the calculator kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(Kind, &registry.RegisteredKind{
		NewConfig: func() any { return new(Config) },
		Build: func(cfg any, _ registry.Env) (graph.Generator, error) {
			return New(cfg.(*Config).Expression), nil
		},
	})
}
