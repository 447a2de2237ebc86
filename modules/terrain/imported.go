package terrain

import (
	"context"
	"fmt"

	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/product"
)

// Imported reads an existing height field from the outside world. The field
// is fetched in the prepare pass; Generate only copies it.
type Imported struct {
	Source string
}

func (i *Imported) Kind() string { return KindImported }

func (i *Imported) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.Outlet("out", product.KindMatrix)}
}

// Prepare implements graph.Preparer.
func (i *Imported) Prepare(ctx context.Context, tile graph.Tile, ext graph.External) (any, error) {
	v, err := ext.Fetch(ctx, tile, i.Source)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", i.Source, err)
	}
	if v == nil {
		return nil, nil
	}
	m, ok := v.(*product.Matrix)
	if !ok {
		return nil, fmt.Errorf("source %q returned %T, want a height matrix", i.Source, v)
	}
	return m, nil
}

func (i *Imported) Generate(_ context.Context, tc graph.TileContext) error {
	m, _ := tc.Prepared().(*product.Matrix)
	if m == nil {
		tc.Warn(fmt.Sprintf("source %q has no data for %s", i.Source, tc.Tile()))
		tc.Store("out", product.NewMatrix(tc.Tile().Resolution))
		return nil
	}
	tc.Store("out", m.Clone())
	return nil
}

// Complexity implements graph.Weighted.
func (i *Imported) Complexity() float64 { return 2 }
