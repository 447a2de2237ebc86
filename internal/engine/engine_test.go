package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/product"
	"github.com/vk/tilegraph/internal/tilestore"
)

var testTile = graph.Tile{X: 1, Z: 2, Resolution: 4, Size: 10}

// counterGen sums its inlets plus add and counts Generate calls.
type counterGen struct {
	inlets []string
	add    float64
	output bool
	draft  bool
	err    error
	warn   string
	hook   func()
	calls  int
}

func (c *counterGen) Kind() string { return "counter" }

func (c *counterGen) Ports() []graph.PortSpec {
	var ports []graph.PortSpec
	for _, name := range c.inlets {
		ports = append(ports, graph.Inlet(name, product.KindVector))
	}
	return append(ports, graph.Outlet("out", product.KindVector))
}

func (c *counterGen) Generate(ctx context.Context, tc graph.TileContext) error {
	c.calls++
	if c.hook != nil {
		c.hook()
	}
	if c.err != nil {
		return c.err
	}
	sum := c.add
	for _, name := range c.inlets {
		p, err := tc.ReadInlet(ctx, name)
		if err != nil {
			return err
		}
		sum += product.AsVector(p).X()
	}
	if c.warn != "" {
		tc.Warn(c.warn)
	}
	if c.output {
		tc.Finalize(graph.EmptyApply)
	}
	tc.Store("out", product.Scalar(sum))
	return nil
}

func (c *counterGen) IsOutput() bool { return c.output }
func (c *counterGen) InDraft() bool  { return c.draft }

func addNode(t *testing.T, g *graph.Graph, name string, gen graph.Generator) *graph.Node {
	t.Helper()
	n, err := g.AddNode(name, gen)
	require.NoError(t, err)
	return n
}

func link(t *testing.T, g *graph.Graph, from *graph.Node, outlet string, to *graph.Node, inlet string) {
	t.Helper()
	require.NoError(t, g.Link(
		graph.PortID{Node: from.ID(), Name: outlet},
		graph.PortID{Node: to.ID(), Name: inlet},
	))
}

func readX(t *testing.T, s *tilestore.Store, n *graph.Node) float64 {
	t.Helper()
	p, ok := s.ReadProduct(graph.PortID{Node: n.ID(), Name: "out"})
	require.True(t, ok, "node %q not ready", n.Name())
	return product.AsVector(p).X()
}

// chain builds a -> b -> out where a stores 1, b adds 2.
func chain(t *testing.T) (*graph.Graph, map[string]*graph.Node, map[string]*counterGen) {
	t.Helper()
	g := graph.New("chain")
	gens := map[string]*counterGen{
		"a":   {add: 1},
		"b":   {inlets: []string{"x"}, add: 2},
		"out": {inlets: []string{"x"}, output: true},
	}
	nodes := map[string]*graph.Node{}
	for _, name := range []string{"a", "b", "out"} {
		nodes[name] = addNode(t, g, name, gens[name])
	}
	link(t, g, nodes["a"], "out", nodes["b"], "x")
	link(t, g, nodes["b"], "out", nodes["out"], "x")
	return g, nodes, gens
}

func TestEvaluate_Idempotent(t *testing.T) {
	g, nodes, gens := chain(t)
	store := tilestore.New(g)
	e := New()
	ctx := context.Background()

	report, err := e.Evaluate(ctx, store, testTile)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Generated)
	assert.Equal(t, 1.0, report.Progress)
	assert.Equal(t, 3.0, readX(t, store, nodes["out"]))

	before, _ := store.ReadProduct(graph.PortID{Node: nodes["b"].ID(), Name: "out"})

	report, err = e.Evaluate(ctx, store, testTile)
	require.NoError(t, err)
	assert.Zero(t, report.Generated)
	for name, gen := range gens {
		assert.Equal(t, 1, gen.calls, "node %s regenerated", name)
	}
	after, _ := store.ReadProduct(graph.PortID{Node: nodes["b"].ID(), Name: "out"})
	assert.Equal(t, before, after)
}

func TestClear_InvalidatesOnlyDownstream(t *testing.T) {
	g, nodes, gens := chain(t)
	side := addNode(t, g, "side", &counterGen{add: 5})
	sideOut := addNode(t, g, "side_out", &counterGen{inlets: []string{"x"}, output: true})
	link(t, g, side, "out", sideOut, "x")

	store := tilestore.New(g)
	e := New()
	_, err := e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)
	sideBefore, _ := store.ReadProduct(graph.PortID{Node: sideOut.ID(), Name: "out"})

	require.NoError(t, g.Configure(nodes["b"].ID(), func(gen graph.Generator) error {
		gen.(*counterGen).add = 10
		return nil
	}))
	assert.True(t, store.VersionChanged(nodes["b"].ID()))
	assert.False(t, store.VersionChanged(nodes["a"].ID()))

	readySet := func() map[string]bool {
		out := map[string]bool{}
		for _, n := range g.Nodes() {
			out[n.Name()] = store.IsReady(n.ID())
		}
		return out
	}

	e.Clear(store, false)
	first := readySet()
	assert.Equal(t, map[string]bool{
		"a": true, "b": false, "out": false, "side": true, "side_out": true,
	}, first)

	e.Clear(store, false)
	assert.Equal(t, first, readySet(), "clearing twice must not change the not-ready set")

	sideAfter, ok := store.ReadProduct(graph.PortID{Node: sideOut.ID(), Name: "out"})
	require.True(t, ok)
	assert.Equal(t, sideBefore, sideAfter)

	// the stale product is still there for inspection
	stale, ok := store.Product(graph.PortID{Node: nodes["b"].ID(), Name: "out"})
	require.True(t, ok)
	assert.Equal(t, 3.0, product.AsVector(stale).X())

	report, err := e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Generated)
	assert.Equal(t, 1, gens["a"].calls)
	assert.Equal(t, 11.0, readX(t, store, nodes["out"]))
}

func TestClear_TotalRebuild(t *testing.T) {
	g, nodes, gens := chain(t)
	store := tilestore.New(g)
	e := New()
	_, err := e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)

	e.Clear(store, true)
	for _, n := range nodes {
		assert.False(t, store.IsReady(n.ID()))
	}

	_, err = e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)
	for _, gen := range gens {
		assert.Equal(t, 2, gen.calls)
	}
}

func TestEvaluate_LinkChangeInvalidates(t *testing.T) {
	g, nodes, _ := chain(t)
	store := tilestore.New(g)
	e := New()
	_, err := e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)

	c := addNode(t, g, "c", &counterGen{add: 100})
	link(t, g, c, "out", nodes["b"], "x")

	_, err = e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)
	assert.Equal(t, 102.0, readX(t, store, nodes["out"]))
}

func TestEvaluate_RemovedUpstreamReadsAsNothing(t *testing.T) {
	g, nodes, _ := chain(t)
	store := tilestore.New(g)
	e := New()
	_, err := e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)

	require.NoError(t, g.RemoveNode(nodes["a"].ID()))
	_, err = e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)
	assert.Equal(t, 2.0, readX(t, store, nodes["out"]))

	_, ok := store.Product(graph.PortID{Node: nodes["a"].ID(), Name: "out"})
	assert.False(t, ok, "pruned node's product must be gone")
}

func TestEvaluate_GeneratorErrorAbortsTile(t *testing.T) {
	g, nodes, gens := chain(t)
	boom := errors.New("boom")
	gens["b"].err = boom

	store := tilestore.New(g)
	report, err := New().Evaluate(context.Background(), store, testTile)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvariant)
	assert.False(t, report.Cancelled)

	assert.True(t, store.IsReady(nodes["a"].ID()))
	assert.False(t, store.IsReady(nodes["b"].ID()))
	assert.False(t, store.IsReady(nodes["out"].ID()))
}

func TestEvaluate_CancelledBeforeStart(t *testing.T) {
	g, nodes, gens := chain(t)
	store := tilestore.New(g)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New().Evaluate(ctx, store, testTile)
	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.Zero(t, report.Generated)
	assert.Zero(t, report.Progress)
	for name, n := range nodes {
		assert.False(t, store.IsReady(n.ID()), name)
		assert.Zero(t, gens[name].calls)
	}
}

func TestEvaluate_CancelDuringGenerateStoresNothing(t *testing.T) {
	g, nodes, gens := chain(t)
	store := tilestore.New(g)
	ctx, cancel := context.WithCancel(context.Background())
	gens["b"].hook = cancel

	report, err := New().Evaluate(ctx, store, testTile)
	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.True(t, store.IsReady(nodes["a"].ID()))
	assert.False(t, store.IsReady(nodes["b"].ID()))
	_, ok := store.Product(graph.PortID{Node: nodes["b"].ID(), Name: "out"})
	assert.False(t, ok, "a cancelled Generate must not leave a product behind")
}

func TestEvaluate_WarningsAndFinalize(t *testing.T) {
	g, nodes, gens := chain(t)
	gens["b"].warn = "clamped"
	store := tilestore.New(g)
	e := New()

	report, err := e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)
	assert.Equal(t, []Warning{{Node: "b", Message: "clamped"}}, report.Warnings)
	msg, ok := store.Message(nodes["b"].ID())
	require.True(t, ok)
	assert.Equal(t, "clamped", msg)

	require.Len(t, report.Finalizations, 1)
	assert.Equal(t, nodes["out"].ID(), report.Finalizations[0].Node)

	// regenerate the output; still one registration
	require.NoError(t, g.Configure(nodes["out"].ID(), nil))
	report, err = e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)
	assert.Len(t, report.Finalizations, 1)
	assert.Empty(t, report.Warnings)
}

func TestEvaluate_FinalizeWithdrawnUntilRegenerated(t *testing.T) {
	g, nodes, gens := chain(t)
	store := tilestore.New(g)
	e := New()

	report, err := e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)
	require.Len(t, report.Finalizations, 1)

	t.Run("failed upstream", func(t *testing.T) {
		require.NoError(t, g.Configure(nodes["a"].ID(), func(gen graph.Generator) error {
			gen.(*counterGen).err = errors.New("no data")
			return nil
		}))
		report, err := e.Evaluate(context.Background(), store, testTile)
		require.Error(t, err)
		assert.False(t, store.IsReady(nodes["out"].ID()))
		assert.Empty(t, report.Finalizations)
	})

	t.Run("cancelled regeneration", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		gens["b"].hook = cancel
		require.NoError(t, g.Configure(nodes["a"].ID(), func(gen graph.Generator) error {
			gen.(*counterGen).err = nil
			return nil
		}))
		report, err := e.Evaluate(ctx, store, testTile)
		require.NoError(t, err)
		require.True(t, report.Cancelled)
		assert.Empty(t, report.Finalizations)
	})

	gens["b"].hook = nil
	report, err = e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)
	require.Len(t, report.Finalizations, 1)
	assert.Equal(t, nodes["out"].ID(), report.Finalizations[0].Node)
}

func TestEvaluate_DraftSkipsNonDraftOutputs(t *testing.T) {
	g, nodes, gens := chain(t)
	gens["out"].draft = true
	heavy := &counterGen{add: 1}
	heavyNode := addNode(t, g, "heavy", heavy)
	final := addNode(t, g, "final", &counterGen{inlets: []string{"x"}, output: true})
	link(t, g, heavyNode, "out", final, "x")

	store := tilestore.New(g)
	e := New(WithDraft(true))
	assert.True(t, e.Draft())

	_, err := e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)
	assert.True(t, store.IsReady(nodes["out"].ID()))
	assert.Zero(t, heavy.calls)
	assert.False(t, store.IsReady(final.ID()))
}

// prepGen copies what Prepare fetched.
type prepGen struct {
	source string
}

func (p *prepGen) Kind() string { return "prep" }
func (p *prepGen) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.Outlet("out", product.KindVector)}
}
func (p *prepGen) Prepare(ctx context.Context, tile graph.Tile, ext graph.External) (any, error) {
	return ext.Fetch(ctx, tile, p.source)
}
func (p *prepGen) Generate(_ context.Context, tc graph.TileContext) error {
	tc.Store("out", tc.Prepared())
	return nil
}
func (p *prepGen) IsOutput() bool { return true }

type fakeExternal struct {
	fetches int
}

func (f *fakeExternal) Fetch(_ context.Context, tile graph.Tile, source string) (any, error) {
	f.fetches++
	if source == "missing" {
		return nil, errors.New("no such source")
	}
	return product.Scalar(float64(tile.X*10 + tile.Z)), nil
}

func TestEvaluate_PreparePass(t *testing.T) {
	g := graph.New("prep")
	n := addNode(t, g, "existing", &prepGen{source: "terrain"})
	ext := &fakeExternal{}
	e := New(WithExternal(ext))
	store := tilestore.New(g)

	_, err := e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)
	assert.Equal(t, 12.0, readX(t, store, n))

	_, err = e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)
	assert.Equal(t, 1, ext.fetches, "ready nodes are not prepared again")

	t.Run("prepare failure aborts the tile", func(t *testing.T) {
		g := graph.New("prep")
		addNode(t, g, "broken", &prepGen{source: "missing"})
		_, err := e.Evaluate(context.Background(), tilestore.New(g), testTile)
		assert.ErrorContains(t, err, "no such source")
	})

	t.Run("no external configured", func(t *testing.T) {
		g := graph.New("prep")
		addNode(t, g, "existing", &prepGen{source: "terrain"})
		_, err := New().Evaluate(context.Background(), tilestore.New(g), testTile)
		assert.ErrorContains(t, err, "no external source")
	})
}

// weightedGen is a counterGen with a complexity.
type weightedGen struct {
	counterGen
	weight float64
}

func (w *weightedGen) Complexity() float64 { return w.weight }

func TestProgress_WeightedByComplexity(t *testing.T) {
	g := graph.New("progress")
	cheap := addNode(t, g, "cheap", &weightedGen{counterGen: counterGen{add: 1}, weight: 1})
	costly := addNode(t, g, "costly", &weightedGen{counterGen: counterGen{add: 1}, weight: 3})
	out := addNode(t, g, "out", &counterGen{inlets: []string{"a", "b"}, output: true})
	link(t, g, cheap, "out", out, "a")
	link(t, g, costly, "out", out, "b")

	store := tilestore.New(g)
	e := New()
	assert.Zero(t, e.Progress(store))

	store.MarkReady(costly.ID())
	assert.InDelta(t, 3.0/5.0, e.Progress(store), 1e-9)

	assert.Equal(t, 1.0, e.Progress(tilestore.New(graph.New("empty"))))
}
