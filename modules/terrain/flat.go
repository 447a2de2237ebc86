package terrain

import (
	"context"

	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/product"
)

// Flat produces a matrix filled with one height.
type Flat struct {
	Height float64
}

func (f *Flat) Kind() string { return KindFlat }

func (f *Flat) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.Outlet("out", product.KindMatrix)}
}

func (f *Flat) Generate(_ context.Context, tc graph.TileContext) error {
	m := product.NewMatrix(tc.Tile().Resolution)
	m.Fill(f.Height)
	tc.Store("out", m)
	return nil
}
