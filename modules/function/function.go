package function

import (
	"context"
	"maps"

	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/product"
)

// Function evaluates an inner graph as a single node.
type Function struct {
	sub       *graph.Graph
	overrides map[string]product.Vector
}

// New creates a function node over sub.
func New(sub *graph.Graph) *Function {
	return &Function{sub: sub, overrides: make(map[string]product.Vector)}
}

// SetGraph points the function at another inner graph. Call it from
// graph.Configure so the boundary ports are re-synced.
func (f *Function) SetGraph(sub *graph.Graph) {
	f.sub = sub
}

// SetOverride shadows the value of the exposed inner node called name.
func (f *Function) SetOverride(name string, v product.Vector) {
	f.overrides[name] = v
}

// ClearOverride lets the exposed inner node called name produce its own value again.
func (f *Function) ClearOverride(name string) {
	delete(f.overrides, name)
}

func (f *Function) Kind() string { return KindFunction }

func (f *Function) Ports() []graph.PortSpec {
	if f.sub == nil {
		return nil
	}
	var ports []graph.PortSpec
	for _, n := range f.sub.Sources() {
		name := n.Generator().(graph.SourcePortal).SourceName()
		ports = append(ports, graph.Inlet(name, portalKind(n)))
	}
	for _, n := range f.sub.Sinks() {
		name := n.Generator().(graph.SinkPortal).SinkName()
		ports = append(ports, graph.Outlet(name, portalKind(n)))
	}
	return ports
}

func (f *Function) Generate(ctx context.Context, tc graph.TileContext) error {
	return tc.Descend(ctx, f.sub, f.overrides)
}

// SubGraph implements graph.Composite.
func (f *Function) SubGraph() *graph.Graph { return f.sub }

// Overrides implements graph.Composite.
func (f *Function) Overrides() map[string]product.Vector {
	return maps.Clone(f.overrides)
}

// Complexity implements graph.Weighted as the weight of the inner graph.
// A sub-graph that contains itself counts once.
func (f *Function) Complexity() float64 {
	return f.complexity(make(map[*graph.Graph]bool))
}

func (f *Function) complexity(visiting map[*graph.Graph]bool) float64 {
	if f.sub == nil || visiting[f.sub] {
		return 1
	}
	visiting[f.sub] = true
	defer delete(visiting, f.sub)

	var w float64
	for _, n := range f.sub.RelevantNodes(false) {
		w += weight(n.Generator(), visiting)
	}
	return max(w, 1)
}

func weight(gen graph.Generator, visiting map[*graph.Graph]bool) float64 {
	if fn, ok := gen.(*Function); ok {
		return fn.complexity(visiting)
	}
	if wg, ok := gen.(graph.Weighted); ok && wg.Complexity() > 0 {
		return wg.Complexity()
	}
	return 1
}

// portalKind is the kind of a portal's first outlet.
func portalKind(n *graph.Node) product.Kind {
	if outs := n.Outlets(); len(outs) > 0 {
		return outs[0].Kind
	}
	return product.KindAny
}
