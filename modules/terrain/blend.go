package terrain

import (
	"context"
	"fmt"
	"math"

	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/product"
)

// BlendOp combines the accumulated field with one layer.
type BlendOp string

const (
	OpAdd      BlendOp = "add"
	OpMultiply BlendOp = "multiply"
	OpMax      BlendOp = "max"
	OpMin      BlendOp = "min"
	// OpOver replaces what is below; layer order matters.
	OpOver BlendOp = "over"
	// OpSubtract removes the layer from what is below; layer order matters.
	OpSubtract BlendOp = "subtract"
)

func (op BlendOp) apply(below, layer float64) (float64, error) {
	switch op {
	case OpAdd, "":
		return below + layer, nil
	case OpMultiply:
		return below * layer, nil
	case OpMax:
		return math.Max(below, layer), nil
	case OpMin:
		return math.Min(below, layer), nil
	case OpOver:
		return layer, nil
	case OpSubtract:
		return below - layer, nil
	}
	return 0, fmt.Errorf("unknown blend op %q", string(op))
}

// Layer is the setting of one upstream source of a blend. From names the
// source either as a node ("ridge") or as an outlet address ("ridge.out").
type Layer struct {
	From    string
	Opacity float64
	Op      BlendOp
}

// defaultLayer applies to sources no Layer names.
var defaultLayer = Layer{Opacity: 1, Op: OpAdd}

// Blend composites the matrices linked into its "layers" inlet, bottom layer
// first in link order. The first present layer is the base, scaled by its
// opacity; every following layer is combined with its op and mixed in by its
// opacity. Settings follow their source, so unlinking one layer leaves the
// others unchanged.
type Blend struct {
	Layers []Layer
}

func (b *Blend) Kind() string { return KindBlend }

func (b *Blend) Ports() []graph.PortSpec {
	return []graph.PortSpec{
		graph.MultiInlet("layers", product.KindMatrix),
		graph.Outlet("out", product.KindMatrix),
	}
}

// settings returns the Layer for in. An outlet address wins over a node name.
func (b *Blend) settings(in graph.LayerInput) Layer {
	node := in.SourceNode()
	match, found := defaultLayer, false
	for _, l := range b.Layers {
		switch l.From {
		case in.Source:
			return l
		case node:
			if !found {
				match, found = l, true
			}
		}
	}
	return match
}

func (b *Blend) Generate(ctx context.Context, tc graph.TileContext) error {
	inputs, err := tc.ReadLayers(ctx, "layers")
	if err != nil {
		return err
	}

	res := product.NewMatrix(tc.Tile().Resolution)
	base := true
	for _, in := range inputs {
		m, _ := in.Product.(*product.Matrix)
		if m == nil {
			continue
		}
		if m.Resolution != res.Resolution {
			return fmt.Errorf("layer %s has resolution %d, want %d", in.Source, m.Resolution, res.Resolution)
		}
		l := b.settings(in)
		for j, v := range m.Data {
			if base {
				res.Data[j] = v * l.Opacity
				continue
			}
			mixed, err := l.Op.apply(res.Data[j], v)
			if err != nil {
				return fmt.Errorf("layer %s: %w", in.Source, err)
			}
			res.Data[j] += (mixed - res.Data[j]) * l.Opacity
		}
		base = false
	}
	tc.Store("out", res)
	return nil
}

// Complexity implements graph.Weighted.
func (b *Blend) Complexity() float64 { return 1 + 0.5*float64(len(b.Layers)) }
