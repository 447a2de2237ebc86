package engine

import (
	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/tilestore"
)

// clearStore marks not ready every node whose own version changed, whose
// upstream is not ready, or, for functions, whose inner graph is not fully
// ready. Nodes are visited in topological order so upstream decisions are
// final before their dependents look at them. Running it twice without an
// edit in between yields the same not-ready set: ClearReady keeps the old
// version stamp, so a changed node keeps reporting the change until it is
// regenerated.
func (e *Engine) clearStore(store *tilestore.Store, totalRebuild bool) {
	g := store.Graph()
	for _, n := range g.TopoOrder() {
		id := n.ID()
		store.Observe(id)

		thisChanged := store.VersionChanged(id)
		inletChanged := false
		for _, up := range g.UpstreamNodes(id) {
			if !store.IsReady(up) {
				inletChanged = true
				break
			}
		}

		ready := store.IsReady(id) && !thisChanged && !inletChanged && !totalRebuild

		if comp, ok := n.Generator().(graph.Composite); ok {
			if !e.clearFunction(store, n, comp, thisChanged, inletChanged || totalRebuild, totalRebuild) {
				ready = false
			}
		}

		if c, ok := n.Generator().(graph.Clearer); ok {
			decided := ready
			c.OnClearing(g, store, &ready, totalRebuild)
			ready = ready && decided
		}

		if !ready {
			store.ClearReady(id)
		}
	}
}

// clearFunction clears the nested store of a function node and reports
// whether every relevant inner node is still ready afterwards.
func (e *Engine) clearFunction(store *tilestore.Store, n *graph.Node, comp graph.Composite, thisChanged, inputsChanged, totalRebuild bool) bool {
	inner, ok := store.Sub(n.ID())
	if !ok {
		return true
	}
	sub := comp.SubGraph()
	if sub == nil || inner.GraphID() != sub.ID() {
		store.DropSub(n.ID())
		return false
	}

	if thisChanged {
		for _, ex := range sub.ExposedNodes() {
			inner.ClearReady(ex.ID())
		}
	}
	relevant := sub.RelevantNodes(e.draft)
	if thisChanged || inputsChanged {
		for _, r := range relevant {
			inner.ClearReady(r.ID())
		}
	}

	e.clearStore(inner, totalRebuild)

	for _, r := range relevant {
		if !inner.IsReady(r.ID()) {
			return false
		}
	}
	return true
}
