package engine

import (
	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/tilestore"
)

// Progress returns the fraction, weighted by Complexity, of relevant nodes
// that are ready. Function nodes that are not ready contribute their inner
// progress. A graph with no outputs is complete.
func (e *Engine) Progress(store *tilestore.Store) float64 {
	relevant := store.Graph().RelevantNodes(e.draft)
	if len(relevant) == 0 {
		return 1
	}

	var total, done float64
	for _, n := range relevant {
		w := 1.0
		if wg, ok := n.Generator().(graph.Weighted); ok && wg.Complexity() > 0 {
			w = wg.Complexity()
		}
		total += w

		if store.IsReady(n.ID()) {
			done += w
			continue
		}
		if _, ok := n.Generator().(graph.Composite); ok {
			if inner, ok := store.Sub(n.ID()); ok {
				done += w * e.Progress(inner)
			}
		}
	}
	return done / total
}
