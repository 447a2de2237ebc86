package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/product"
	"github.com/vk/tilegraph/internal/tilestore"
)

// tileContext is the TileContext handed to one Generate call. It buffers
// everything the generator stores until commit.
type tileContext struct {
	run   *run
	store *tilestore.Store
	node  *graph.Node
	depth int

	pending  map[string]any
	warnings []string
	final    graph.ApplyData
}

var _ graph.TileContext = (*tileContext)(nil)

func newTileContext(r *run, store *tilestore.Store, n *graph.Node, depth int) *tileContext {
	return &tileContext{
		run:     r,
		store:   store,
		node:    n,
		depth:   depth,
		pending: make(map[string]any),
	}
}

func (tc *tileContext) Tile() graph.Tile {
	return tc.run.tile
}

func (tc *tileContext) ReadInlet(ctx context.Context, name string) (any, error) {
	inlet, err := tc.inlet(name)
	if err != nil {
		return nil, err
	}
	ups := tc.store.Graph().Upstream(inlet.ID())
	if len(ups) == 0 {
		return nil, nil
	}
	return tc.pull(ctx, ups[0], inlet.Kind)
}

func (tc *tileContext) ReadLayers(ctx context.Context, name string) ([]graph.LayerInput, error) {
	inlet, err := tc.inlet(name)
	if err != nil {
		return nil, err
	}
	g := tc.store.Graph()
	ups := g.Upstream(inlet.ID())
	layers := make([]graph.LayerInput, 0, len(ups))
	for _, from := range ups {
		p, err := tc.pull(ctx, from, inlet.Kind)
		if err != nil {
			return nil, err
		}
		source := from.String()
		if up, ok := g.Node(from.Node); ok {
			source = up.Label() + "." + from.Name
		}
		layers = append(layers, graph.LayerInput{From: from, Source: source, Product: p})
	}
	return layers, nil
}

func (tc *tileContext) inlet(name string) (*graph.Port, error) {
	inlet, ok := tc.node.Inlet(name)
	if !ok {
		return nil, fmt.Errorf("%w: inlet %q on %q", graph.ErrPortNotFound, name, tc.node.Label())
	}
	return inlet, nil
}

// pull ensures the node behind from and returns its product converted to the
// inlet's kind.
func (tc *tileContext) pull(ctx context.Context, from graph.PortID, kind product.Kind) (any, error) {
	up, ok := tc.store.Graph().Node(from.Node)
	if !ok {
		return nil, fmt.Errorf("%w: link from missing node %s", ErrInvariant, from.Node)
	}
	if err := tc.run.ensure(ctx, tc.store, up, tc.depth); err != nil {
		return nil, err
	}
	p, ok := tc.store.ReadProduct(from)
	if !ok {
		return nil, fmt.Errorf("%w: %q not ready after generation", ErrInvariant, up.Label())
	}
	converted, ok := product.Convert(p, kind, tc.run.tile.Resolution)
	if !ok {
		return nil, fmt.Errorf("%w: %s product on %s cannot feed a %s inlet", ErrInvariant, product.KindOf(p), from, kind)
	}
	return converted, nil
}

func (tc *tileContext) Store(outlet string, p any) {
	tc.pending[outlet] = p
}

func (tc *tileContext) Prepared() any {
	v, _ := tc.store.Prepared(tc.node.ID())
	return v
}

func (tc *tileContext) Warn(msg string) {
	tc.warnings = append(tc.warnings, msg)
}

func (tc *tileContext) Finalize(data graph.ApplyData) {
	tc.final = data
}

// commit writes the buffered products, message and finalize registration.
func (tc *tileContext) commit() {
	id := tc.node.ID()
	for _, out := range tc.node.Outlets() {
		tc.store.StoreProduct(out.ID(), tc.pending[out.Name])
	}
	tc.store.MarkReady(id)

	msg := strings.Join(tc.warnings, "; ")
	tc.store.SetMessage(id, msg)
	if msg != "" {
		tc.run.report.Warnings = append(tc.run.report.Warnings, Warning{Node: tc.node.Label(), Message: msg})
	}

	if tc.final != nil {
		tc.store.RegisterFinalize(id, tc.final)
	}
}
