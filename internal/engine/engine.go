package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/tilegraph/internal/ctxlog"
	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/tilestore"
)

// ErrInvariant marks an internal inconsistency that aborts the tile, as
// opposed to an unready input, which is a normal state.
var ErrInvariant = errors.New("engine invariant violated")

// DefaultMaxDepth bounds function nesting.
const DefaultMaxDepth = 32

// Engine holds evaluation settings. It keeps no per-tile state and one Engine
// may evaluate many tiles concurrently.
type Engine struct {
	draft    bool
	external graph.External
	maxDepth int
}

// Option configures an Engine.
type Option func(*Engine)

// WithDraft restricts evaluation to outputs that opt into draft mode.
func WithDraft(draft bool) Option {
	return func(e *Engine) { e.draft = draft }
}

// WithExternal sets the source Preparer generators read from.
func WithExternal(ext graph.External) Option {
	return func(e *Engine) { e.external = ext }
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) { e.maxDepth = depth }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{maxDepth: DefaultMaxDepth, external: noExternal{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Draft reports whether the engine evaluates in draft mode.
func (e *Engine) Draft() bool {
	return e.draft
}

// Warning is a node-local, non-fatal message produced during a pass.
type Warning struct {
	Node    string
	Message string
}

// Report summarises one Evaluate call.
type Report struct {
	Tile graph.Tile
	// Generated counts Generate calls that were committed.
	Generated int
	// Cancelled is set when the context ended the pass early.
	Cancelled bool
	// Progress is the complexity-weighted ready fraction after the pass.
	Progress      float64
	Warnings      []Warning
	Finalizations []tilestore.Finalization
}

// Evaluate brings every relevant node of the store's graph up to date for
// tile. Products that are already ready are reused. Cancellation through ctx
// stops the pass, keeps everything committed so far and is reported through
// Report.Cancelled with a nil error.
func (e *Engine) Evaluate(ctx context.Context, store *tilestore.Store, tile graph.Tile) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	r := &run{
		engine:   e,
		tile:     tile,
		report:   &Report{Tile: tile},
		inflight: make(map[inflightKey]bool),
	}

	store.Prune()
	e.clearStore(store, false)

	err := r.pass(ctx, store, 0)
	r.report.Progress = e.Progress(store)
	r.report.Finalizations = store.Finalizations()

	if isCancellation(err) {
		logger.Debug("Tile evaluation cancelled.", "tile", tile, "generated", r.report.Generated)
		r.report.Cancelled = true
		return r.report, nil
	}
	if err != nil {
		return r.report, fmt.Errorf("evaluating %s: %w", tile, err)
	}
	logger.Debug("Tile evaluated.", "tile", tile, "generated", r.report.Generated)
	return r.report, nil
}

// Clear runs only the invalidation pass. With totalRebuild every node is
// marked not ready.
func (e *Engine) Clear(store *tilestore.Store, totalRebuild bool) {
	e.clearStore(store, totalRebuild)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

type inflightKey struct {
	store tilestore.StoreID
	node  graph.NodeID
}

// run is the state of one Evaluate call.
type run struct {
	engine   *Engine
	tile     graph.Tile
	report   *Report
	inflight map[inflightKey]bool
}

// pass prepares and then pulls every relevant node of the store's graph.
func (r *run) pass(ctx context.Context, store *tilestore.Store, depth int) error {
	relevant := store.Graph().RelevantNodes(r.engine.draft)
	if err := r.prepare(ctx, store, relevant); err != nil {
		return err
	}
	for _, n := range relevant {
		if err := r.ensure(ctx, store, n, depth); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) prepare(ctx context.Context, store *tilestore.Store, nodes []*graph.Node) error {
	for _, n := range nodes {
		p, ok := n.Generator().(graph.Preparer)
		if !ok || store.IsReady(n.ID()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := p.Prepare(ctx, r.tile, r.engine.external)
		if err != nil {
			return fmt.Errorf("preparing node %q: %w", n.Label(), err)
		}
		store.SetPrepared(n.ID(), v)
	}
	return nil
}

// ensure makes n ready in store, generating its upstream first.
func (r *run) ensure(ctx context.Context, store *tilestore.Store, n *graph.Node, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if store.IsReady(n.ID()) {
		return nil
	}

	key := inflightKey{store: store.ID(), node: n.ID()}
	if r.inflight[key] {
		return fmt.Errorf("%w: node %q re-entered while generating", ErrInvariant, n.Label())
	}
	r.inflight[key] = true
	defer delete(r.inflight, key)

	g := store.Graph()
	for _, id := range g.UpstreamNodes(n.ID()) {
		up, ok := g.Node(id)
		if !ok {
			return fmt.Errorf("%w: node %q has a link from missing node %s", ErrInvariant, n.Label(), id)
		}
		if err := r.ensure(ctx, store, up, depth); err != nil {
			return err
		}
	}

	gen := n.Generator()
	ctxlog.FromContext(ctx).Debug("Generating node.", "tile", r.tile, "node", n.Label(), "kind", gen.Kind(), "depth", depth)

	tc := newTileContext(r, store, n, depth)
	if err := gen.Generate(ctx, tc); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("generating node %q (%s): %w", n.Label(), gen.Kind(), err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tc.commit()
	r.report.Generated++
	return nil
}

type noExternal struct{}

func (noExternal) Fetch(_ context.Context, _ graph.Tile, source string) (any, error) {
	return nil, fmt.Errorf("no external source configured for %q", source)
}
