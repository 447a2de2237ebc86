package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/product"
	"github.com/vk/tilegraph/internal/tilestore"
	"github.com/vk/tilegraph/modules/constant"
	"github.com/vk/tilegraph/modules/function"
)

// valueGen stores a fixed product of any kind.
type valueGen struct {
	kind  product.Kind
	value any
}

func (v *valueGen) Kind() string { return "value" }
func (v *valueGen) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.Outlet("out", v.kind)}
}
func (v *valueGen) Generate(_ context.Context, tc graph.TileContext) error {
	tc.Store("out", v.value)
	return nil
}

// captureGen is an output that remembers what reached its inlet.
type captureGen struct {
	kind product.Kind
	got  any
}

func (c *captureGen) Kind() string { return "capture" }
func (c *captureGen) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.Inlet("in", c.kind)}
}
func (c *captureGen) Generate(ctx context.Context, tc graph.TileContext) error {
	p, err := tc.ReadInlet(ctx, "in")
	c.got = p
	return err
}
func (c *captureGen) IsOutput() bool { return true }

// passthrough builds an inner graph whose single input feeds its single output.
func passthrough(t *testing.T, kind product.Kind) *graph.Graph {
	t.Helper()
	sub := graph.New("passthrough")
	in := addNode(t, sub, "in", &function.Input{Name: "in", Type: kind})
	out := addNode(t, sub, "out", &function.Output{Name: "out", Type: kind})
	link(t, sub, in, "out", out, "in")
	return sub
}

// wrap builds src -> function(sub) -> capture in a new outer graph.
func wrap(t *testing.T, sub *graph.Graph, src graph.Generator, kind product.Kind) (*graph.Graph, *graph.Node, *captureGen) {
	t.Helper()
	g := graph.New("outer")
	fn := addNode(t, g, "fn", function.New(sub))
	capture := &captureGen{kind: kind}
	sink := addNode(t, g, "sink", capture)
	if src != nil {
		srcNode := addNode(t, g, "src", src)
		link(t, g, srcNode, "out", fn, "in")
	}
	link(t, g, fn, "out", sink, "in")
	return g, fn, capture
}

func TestFunction_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		kind  product.Kind
		value any
	}{
		{"vector", product.KindVector, product.Vec(1, -2, 3.5, 4)},
		{"matrix", product.KindMatrix, &product.Matrix{Resolution: 2, Data: []float64{1, 2, 3, 4}}},
		{"spline", product.KindSpline, &product.Spline{Points: []product.Vector{product.Vec(0, 0), product.Vec(1, 2)}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sub := passthrough(t, tc.kind)
			g, _, capture := wrap(t, sub, &valueGen{kind: tc.kind, value: tc.value}, tc.kind)

			report, err := New().Evaluate(context.Background(), tilestore.New(g), testTile)
			require.NoError(t, err)
			assert.False(t, report.Cancelled)
			assert.Equal(t, tc.value, capture.got)
		})
	}
}

func TestFunction_UnlinkedInputUsesDefault(t *testing.T) {
	sub := graph.New("defaults")
	in := addNode(t, sub, "in", &function.Input{Name: "in", Type: product.KindVector, Default: product.Vec(9)})
	out := addNode(t, sub, "out", &function.Output{Name: "out", Type: product.KindVector})
	link(t, sub, in, "out", out, "in")

	g, _, capture := wrap(t, sub, nil, product.KindVector)
	_, err := New().Evaluate(context.Background(), tilestore.New(g), testTile)
	require.NoError(t, err)
	assert.Equal(t, product.Vec(9), capture.got)
}

func TestFunction_InputChangeReachesInnerNodes(t *testing.T) {
	sub := graph.New("add")
	in := addNode(t, sub, "in", &function.Input{Name: "in", Type: product.KindVector})
	inc := addNode(t, sub, "inc", &counterGen{inlets: []string{"x"}, add: 1})
	out := addNode(t, sub, "out", &function.Output{Name: "out", Type: product.KindVector})
	link(t, sub, in, "out", inc, "x")
	link(t, sub, inc, "out", out, "in")

	src := &counterGen{add: 1}
	g, _, capture := wrap(t, sub, src, product.KindVector)
	store := tilestore.New(g)
	e := New()

	_, err := e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)
	assert.Equal(t, 2.0, product.AsVector(capture.got).X())

	srcNode, _ := g.NodeByName("src")
	require.NoError(t, g.Configure(srcNode.ID(), func(gen graph.Generator) error {
		gen.(*counterGen).add = 10
		return nil
	}))
	_, err = e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)
	assert.Equal(t, 11.0, product.AsVector(capture.got).X())
}

func TestFunction_InnerEditPropagatesUp(t *testing.T) {
	sub := graph.New("inner")
	inner := &counterGen{add: 1}
	innerNode := addNode(t, sub, "inner", inner)
	out := addNode(t, sub, "out", &function.Output{Name: "out", Type: product.KindVector})
	link(t, sub, innerNode, "out", out, "in")

	g, fn, capture := wrap(t, sub, nil, product.KindVector)
	store := tilestore.New(g)
	e := New()
	_, err := e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)

	require.NoError(t, sub.Configure(innerNode.ID(), func(gen graph.Generator) error {
		gen.(*counterGen).add = 4
		return nil
	}))
	e.Clear(store, false)
	assert.False(t, store.IsReady(fn.ID()), "a function is ready only while its inner graph is")

	_, err = e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)
	assert.Equal(t, 4.0, product.AsVector(capture.got).X())
	assert.Equal(t, 2, inner.calls)
}

func TestFunction_CancelKeepsStoredInnerNodes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancelled := false

	sub := graph.New("five")
	gens := []*counterGen{
		{add: 1},
		{inlets: []string{"x"}, add: 1},
		{inlets: []string{"x"}, add: 1, hook: func() {
			if !cancelled {
				cancelled = true
				cancel()
			}
		}},
		{inlets: []string{"x"}, add: 1},
	}
	var inner []*graph.Node
	for i, gen := range gens {
		n := addNode(t, sub, "n"+string(rune('1'+i)), gen)
		if i > 0 {
			link(t, sub, inner[i-1], "out", n, "x")
		}
		inner = append(inner, n)
	}
	portal := addNode(t, sub, "out", &function.Output{Name: "out", Type: product.KindVector})
	link(t, sub, inner[3], "out", portal, "in")
	inner = append(inner, portal)
	require.Len(t, inner, 5)

	g, fn, capture := wrap(t, sub, nil, product.KindVector)
	store := tilestore.New(g)
	e := New()

	report, err := e.Evaluate(ctx, store, testTile)
	require.NoError(t, err)
	require.True(t, report.Cancelled)
	assert.Greater(t, report.Progress, 0.0)
	assert.Less(t, report.Progress, 1.0)

	innerStore, ok := store.Sub(fn.ID())
	require.True(t, ok)
	var ready []string
	for _, n := range inner {
		if innerStore.IsReady(n.ID()) {
			ready = append(ready, n.Name())
		}
	}
	assert.Equal(t, []string{"n1", "n2"}, ready)
	assert.False(t, store.IsReady(fn.ID()))

	report, err = e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)
	assert.False(t, report.Cancelled)
	for _, n := range inner {
		assert.True(t, innerStore.IsReady(n.ID()), n.Name())
	}
	assert.Equal(t, 1, gens[0].calls)
	assert.Equal(t, 1, gens[1].calls)
	assert.Equal(t, 2, gens[2].calls)
	assert.Equal(t, 1, gens[3].calls)
	assert.Equal(t, 4.0, product.AsVector(capture.got).X())

	same, ok := store.Sub(fn.ID())
	require.True(t, ok)
	assert.Same(t, innerStore, same)
}

func TestFunction_ExposedOverride(t *testing.T) {
	sub := graph.New("exposed")
	k := addNode(t, sub, "k", &constant.Generator{Value: product.Scalar(1), Exposed: "k"})
	out := addNode(t, sub, "out", &function.Output{Name: "out", Type: product.KindVector})
	link(t, sub, k, "out", out, "in")

	g, fn, capture := wrap(t, sub, nil, product.KindVector)
	store := tilestore.New(g)
	e := New()
	configure := func(edit func(f *function.Function)) {
		t.Helper()
		require.NoError(t, g.Configure(fn.ID(), func(gen graph.Generator) error {
			edit(gen.(*function.Function))
			return nil
		}))
	}
	eval := func() float64 {
		t.Helper()
		_, err := e.Evaluate(context.Background(), store, testTile)
		require.NoError(t, err)
		return product.AsVector(capture.got).X()
	}

	assert.Equal(t, 1.0, eval())

	configure(func(f *function.Function) { f.SetOverride("k", product.Scalar(5)) })
	assert.Equal(t, 5.0, eval(), "override shadows the inner default")

	configure(func(f *function.Function) { f.ClearOverride("k") })
	assert.Equal(t, 1.0, eval(), "removing the override restores the inner default")

	configure(func(f *function.Function) { f.SetOverride("k", product.Scalar(7)) })
	assert.Equal(t, 7.0, eval())

	// a second instance over the same sub-graph keeps its own value
	other := addNode(t, g, "fn2", function.New(sub))
	otherCapture := &captureGen{kind: product.KindVector}
	otherSink := addNode(t, g, "sink2", otherCapture)
	link(t, g, other, "out", otherSink, "in")
	assert.Equal(t, 7.0, eval())
	assert.Equal(t, 1.0, product.AsVector(otherCapture.got).X())
}

func TestFunction_SwitchingSubGraphResetsStore(t *testing.T) {
	first := passthrough(t, product.KindVector)
	g, fn, capture := wrap(t, first, &valueGen{kind: product.KindVector, value: product.Scalar(3)}, product.KindVector)
	store := tilestore.New(g)
	e := New()
	_, err := e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)

	second := graph.New("constant")
	k := addNode(t, second, "k", constant.New(product.Scalar(8)))
	out := addNode(t, second, "out", &function.Output{Name: "out", Type: product.KindVector})
	link(t, second, k, "out", out, "in")

	require.NoError(t, g.Configure(fn.ID(), func(gen graph.Generator) error {
		gen.(*function.Function).SetGraph(second)
		return nil
	}))
	// the "in" inlet is gone with the new sub-graph
	_, hasIn := fn.Inlet("in")
	assert.False(t, hasIn)

	_, err = e.Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)
	assert.Equal(t, 8.0, product.AsVector(capture.got).X())

	inner, ok := store.Sub(fn.ID())
	require.True(t, ok)
	assert.Equal(t, second.ID(), inner.GraphID())
	assert.Equal(t, 2, store.Arena().Len())
}

func TestFunction_CollectsNestedFinalizations(t *testing.T) {
	sub := graph.New("with-output")
	in := addNode(t, sub, "in", &function.Input{Name: "in", Type: product.KindVector})
	out := addNode(t, sub, "out", &function.Output{Name: "out", Type: product.KindVector})
	emit := addNode(t, sub, "emit", &counterGen{inlets: []string{"x"}, output: true})
	link(t, sub, in, "out", out, "in")
	link(t, sub, in, "out", emit, "x")

	g, fn, _ := wrap(t, sub, &valueGen{kind: product.KindVector, value: product.Scalar(2)}, product.KindVector)
	store := tilestore.New(g)
	report, err := New().Evaluate(context.Background(), store, testTile)
	require.NoError(t, err)

	inner, ok := store.Sub(fn.ID())
	require.True(t, ok)
	require.Len(t, report.Finalizations, 1)
	assert.Equal(t, emit.ID(), report.Finalizations[0].Node)
	assert.Equal(t, inner.ID(), report.Finalizations[0].Store)
	assert.Equal(t, graph.EmptyApply, report.Finalizations[0].Data)
}

func TestFunction_NestingDepthGuard(t *testing.T) {
	g := graph.New("recursive")
	out := addNode(t, g, "out", &function.Output{Name: "out", Type: product.KindVector})
	fn := addNode(t, g, "fn", function.New(g))
	link(t, g, fn, "out", out, "in")

	_, err := New(WithMaxDepth(4)).Evaluate(context.Background(), tilestore.New(g), testTile)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvariant)
}
