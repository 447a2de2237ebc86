package tiles

import (
	"context"
	"runtime"
	"sync"

	"github.com/vk/tilegraph/internal/ctxlog"
	"github.com/vk/tilegraph/internal/engine"
	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/tilestore"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one tile.
type Result struct {
	Tile   graph.Tile
	Report *engine.Report
	Err    error
}

// Runner evaluates a graph over tiles with a bounded number of workers.
type Runner struct {
	engine  *engine.Engine
	graph   *graph.Graph
	workers int
	onDone  func(Result)

	mu     sync.Mutex
	stores map[graph.Tile]*tilestore.Store
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// OnTileDone registers fn to be called with every finished tile. It runs on
// the worker goroutine and must be safe for concurrent use.
func OnTileDone(fn func(Result)) RunnerOption {
	return func(r *Runner) { r.onDone = fn }
}

// NewRunner creates a runner. A non-positive worker count uses GOMAXPROCS.
func NewRunner(e *engine.Engine, g *graph.Graph, workers int, opts ...RunnerOption) *Runner {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	r := &Runner{
		engine:  e,
		graph:   g,
		workers: workers,
		stores:  make(map[graph.Tile]*tilestore.Store),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the store of tile, creating it on first use.
func (r *Runner) Store(tile graph.Tile) *tilestore.Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[tile]
	if !ok {
		s = tilestore.New(r.graph)
		r.stores[tile] = s
	}
	return s
}

// Forget drops the store of tile.
func (r *Runner) Forget(tile graph.Tile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, tile)
}

// Len returns the number of tiles with a store.
func (r *Runner) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Run evaluates every tile and returns the results in the order of tiles.
// A failing tile never stops the others; the returned error combines the
// errors of all failed tiles.
func (r *Runner) Run(ctx context.Context, tiles []graph.Tile) ([]Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Evaluating tiles.", "count", len(tiles), "workers", r.workers)

	results := make([]Result, len(tiles))
	var eg errgroup.Group
	eg.SetLimit(r.workers)
	for i, tile := range tiles {
		i, tile := i, tile
		eg.Go(func() error {
			tctx := ctxlog.With(ctx, "tile", tile.String())
			report, err := r.engine.Evaluate(tctx, r.Store(tile), tile)
			if err != nil {
				ctxlog.FromContext(tctx).Error("Tile evaluation failed.", "error", err)
			}
			results[i] = Result{Tile: tile, Report: report, Err: err}
			if r.onDone != nil {
				r.onDone(results[i])
			}
			return nil
		})
	}
	// Workers never return an error; failures live in the results.
	_ = eg.Wait()

	var err error
	for _, res := range results {
		err = multierr.Append(err, res.Err)
	}
	return results, err
}
