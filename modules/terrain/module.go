package terrain

import (
	"fmt"

	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/registry"
)

// Graph-file names of the kinds in this package.
const (
	KindFlat         = "flat"
	KindGradient     = "gradient"
	KindImported     = "imported"
	KindBlend        = "blend"
	KindHeightOutput = "height_output"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// FlatConfig is the HCL body of a flat node.
type FlatConfig struct {
	Height float64 `hcl:"height,optional"`
}

// GradientConfig is the HCL body of a gradient node.
type GradientConfig struct {
	Axis  string  `hcl:"axis,optional"`
	Scale float64 `hcl:"scale,optional"`
}

// ImportedConfig is the HCL body of an imported node.
type ImportedConfig struct {
	Source string `hcl:"source"`
}

// BlendConfig is the HCL body of a blend node.
type BlendConfig struct {
	Layers []LayerConfig `hcl:"layer,block"`
}

// LayerConfig is one "layer" block of a blend. From names the linked source
// the settings apply to. Opacity defaults to 1.
type LayerConfig struct {
	From    string   `hcl:"from"`
	Opacity *float64 `hcl:"opacity,optional"`
	Op      string   `hcl:"op,optional"`
}

// OutputConfig is the HCL body of a height output node.
type OutputConfig struct {
	Draft bool `hcl:"draft,optional"`
}

// Register registers every terrain kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(KindFlat, &registry.RegisteredKind{
		NewConfig: func() any { return new(FlatConfig) },
		Build: func(cfg any, _ registry.Env) (graph.Generator, error) {
			return &Flat{Height: cfg.(*FlatConfig).Height}, nil
		},
	})
	r.RegisterKind(KindGradient, &registry.RegisteredKind{
		NewConfig: func() any { return &GradientConfig{Axis: "x", Scale: 1} },
		Build: func(cfg any, _ registry.Env) (graph.Generator, error) {
			c := cfg.(*GradientConfig)
			if c.Axis != "x" && c.Axis != "z" {
				return nil, fmt.Errorf("gradient axis must be \"x\" or \"z\", got %q", c.Axis)
			}
			return &Gradient{Axis: c.Axis, Scale: c.Scale}, nil
		},
	})
	r.RegisterKind(KindImported, &registry.RegisteredKind{
		NewConfig: func() any { return new(ImportedConfig) },
		Build: func(cfg any, _ registry.Env) (graph.Generator, error) {
			return &Imported{Source: cfg.(*ImportedConfig).Source}, nil
		},
	})
	r.RegisterKind(KindBlend, &registry.RegisteredKind{
		NewConfig: func() any { return new(BlendConfig) },
		Build:     buildBlend,
	})
	r.RegisterKind(KindHeightOutput, &registry.RegisteredKind{
		NewConfig: func() any { return new(OutputConfig) },
		Build: func(cfg any, _ registry.Env) (graph.Generator, error) {
			return &HeightOutput{Draft: cfg.(*OutputConfig).Draft}, nil
		},
	})
}

func buildBlend(cfg any, _ registry.Env) (graph.Generator, error) {
	c := cfg.(*BlendConfig)
	b := &Blend{Layers: make([]Layer, 0, len(c.Layers))}
	seen := make(map[string]bool, len(c.Layers))
	for i, lc := range c.Layers {
		if lc.From == "" {
			return nil, fmt.Errorf("layer %d: from must name a source", i)
		}
		if seen[lc.From] {
			return nil, fmt.Errorf("layer %d: source %q already has a layer", i, lc.From)
		}
		seen[lc.From] = true
		l := Layer{From: lc.From, Opacity: 1, Op: BlendOp(lc.Op)}
		if lc.Opacity != nil {
			l.Opacity = *lc.Opacity
		}
		if l.Op == "" {
			l.Op = OpAdd
		}
		if _, err := l.Op.apply(0, 0); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		b.Layers = append(b.Layers, l)
	}
	return b, nil
}
