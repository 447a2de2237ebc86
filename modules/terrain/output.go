package terrain

import (
	"context"
	"fmt"

	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/product"
)

// HeightWriter is implemented by the terrain integration that receives
// finished height fields.
type HeightWriter interface {
	WriteHeights(ctx context.Context, tile graph.Tile, heights *product.Matrix) error
}

// HeightApply is the payload HeightOutput registers for finalization.
type HeightApply struct {
	Tile    graph.Tile
	Heights *product.Matrix
}

// Apply writes the heights to target, which must be a HeightWriter.
func (a *HeightApply) Apply(ctx context.Context, target any) error {
	w, ok := target.(HeightWriter)
	if !ok {
		return fmt.Errorf("cannot apply heights to %T", target)
	}
	return w.WriteHeights(ctx, a.Tile, a.Heights)
}

// HeightOutput is the terminal node that hands a tile's height field to
// terrain integration. With nothing linked it registers graph.EmptyApply.
type HeightOutput struct {
	Draft bool
}

func (o *HeightOutput) Kind() string { return KindHeightOutput }

func (o *HeightOutput) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.Inlet("height", product.KindMatrix)}
}

func (o *HeightOutput) Generate(ctx context.Context, tc graph.TileContext) error {
	p, err := tc.ReadInlet(ctx, "height")
	if err != nil {
		return err
	}
	m, _ := p.(*product.Matrix)
	if m == nil {
		tc.Finalize(graph.EmptyApply)
		return nil
	}
	tc.Finalize(&HeightApply{Tile: tc.Tile(), Heights: m.Clone()})
	return nil
}

// IsOutput implements graph.OutputNode.
func (o *HeightOutput) IsOutput() bool { return true }

// InDraft implements graph.Drafter.
func (o *HeightOutput) InDraft() bool { return o.Draft }
