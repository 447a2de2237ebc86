package tiles

import (
	"fmt"

	"github.com/vk/tilegraph/internal/graph"
)

// Grid is a rectangle of tiles sharing one resolution and world size.
type Grid struct {
	X, Z         int
	Width, Depth int
	Resolution   int
	Size         float64
}

// Validate checks that the grid describes at least one usable tile.
func (g Grid) Validate() error {
	if g.Width <= 0 || g.Depth <= 0 {
		return fmt.Errorf("grid must be at least 1x1, got %dx%d", g.Width, g.Depth)
	}
	if g.Resolution <= 0 {
		return fmt.Errorf("tile resolution must be positive, got %d", g.Resolution)
	}
	if g.Size <= 0 {
		return fmt.Errorf("tile size must be positive, got %g", g.Size)
	}
	return nil
}

// Tiles lists the grid row by row.
func (g Grid) Tiles() []graph.Tile {
	if g.Width <= 0 || g.Depth <= 0 {
		return nil
	}
	out := make([]graph.Tile, 0, g.Width*g.Depth)
	for z := g.Z; z < g.Z+g.Depth; z++ {
		for x := g.X; x < g.X+g.Width; x++ {
			out = append(out, graph.Tile{X: x, Z: z, Resolution: g.Resolution, Size: g.Size})
		}
	}
	return out
}
