package terrain

import (
	"context"
	"fmt"

	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/product"
)

// Gradient produces heights that grow linearly with the world position along
// one axis, so neighbouring tiles meet seamlessly.
type Gradient struct {
	Axis  string // "x" or "z"
	Scale float64
}

func (g *Gradient) Kind() string { return KindGradient }

func (g *Gradient) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.Outlet("out", product.KindMatrix)}
}

func (g *Gradient) Generate(_ context.Context, tc graph.TileContext) error {
	if g.Axis != "x" && g.Axis != "z" {
		return fmt.Errorf("gradient axis must be \"x\" or \"z\", got %q", g.Axis)
	}
	tile := tc.Tile()
	m := product.NewMatrix(tile.Resolution)
	for iz := 0; iz < m.Resolution; iz++ {
		for ix := 0; ix < m.Resolution; ix++ {
			x, z := tile.SamplePos(ix, iz)
			pos := x
			if g.Axis == "z" {
				pos = z
			}
			m.Set(ix, iz, pos*g.Scale)
		}
	}
	tc.Store("out", m)
	return nil
}
