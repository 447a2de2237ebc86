package engine

import (
	"context"
	"fmt"

	"github.com/vk/tilegraph/internal/ctxlog"
	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/product"
)

// Descend evaluates sub as the inner graph of the node being generated.
func (tc *tileContext) Descend(ctx context.Context, sub *graph.Graph, overrides map[string]product.Vector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sub == nil {
		return fmt.Errorf("%w: function %q has no sub-graph", ErrInvariant, tc.node.Label())
	}
	depth := tc.depth + 1
	if depth > tc.run.engine.maxDepth {
		return fmt.Errorf("%w: function nesting deeper than %d at %q", ErrInvariant, tc.run.engine.maxDepth, tc.node.Label())
	}

	inner := tc.store.CreateLoadSub(tc.node.ID(), sub)
	if inner.GraphID() != sub.ID() {
		return fmt.Errorf("%w: sub-store of %q belongs to another graph", ErrInvariant, tc.node.Label())
	}
	ctxlog.FromContext(ctx).Debug("Descending into function.", "tile", tc.run.tile, "node", tc.node.Label(), "graph", sub.Name(), "depth", depth)

	// push: outer inlets into source portals
	for _, src := range sub.Sources() {
		name := src.Generator().(graph.SourcePortal).SourceName()
		if _, ok := tc.node.Inlet(name); !ok {
			return fmt.Errorf("%w: function %q has no inlet for source portal %q", ErrInvariant, tc.node.Label(), name)
		}
		p, err := tc.ReadInlet(ctx, name)
		if err != nil {
			return err
		}
		if p == nil {
			// unlinked outside: the portal produces its own default
			continue
		}
		outs := src.Outlets()
		if len(outs) == 0 {
			return fmt.Errorf("%w: source portal %q has no outlet", ErrInvariant, name)
		}
		inner.StoreProduct(outs[0].ID(), p)
	}

	// push: per-instance overrides into exposed nodes
	for _, ex := range sub.ExposedNodes() {
		v, ok := overrides[ex.Generator().(graph.Exposed).ExposedName()]
		if !ok {
			continue
		}
		outs := ex.Outlets()
		if len(outs) == 0 {
			continue
		}
		p, ok := product.Convert(v, outs[0].Kind, tc.run.tile.Resolution)
		if !ok {
			return fmt.Errorf("%w: override for %q cannot feed a %s outlet", ErrInvariant, ex.Label(), outs[0].Kind)
		}
		inner.StoreProduct(outs[0].ID(), p)
	}

	if err := tc.run.pass(ctx, inner, depth); err != nil {
		return err
	}

	// pull: sink portals out to outer outlets
	for _, sink := range sub.Sinks() {
		name := sink.Generator().(graph.SinkPortal).SinkName()
		if _, ok := tc.node.Outlet(name); !ok {
			return fmt.Errorf("%w: function %q has no outlet for sink portal %q", ErrInvariant, tc.node.Label(), name)
		}
		if err := tc.run.ensure(ctx, inner, sink, depth); err != nil {
			return err
		}
		outs := sink.Outlets()
		if len(outs) == 0 {
			return fmt.Errorf("%w: sink portal %q has no outlet", ErrInvariant, name)
		}
		p, ok := inner.ReadProduct(outs[0].ID())
		if !ok {
			return fmt.Errorf("%w: sink portal %q not ready after generation", ErrInvariant, name)
		}
		tc.Store(name, p)
	}
	return nil
}
