package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/tilegraph/internal/product"
)

// Generator is the computation unit every node kind implements.
//
// # Contract
//
//   - **Kind** names the node type (used in logs and graph files).
//   - **Ports** declares inlets and outlets. It is called when the node is
//     added and after every Configure, and the graph diffs the result by name
//     so links on unchanged ports survive.
//   - **Generate** reads inlets through the TileContext, computes, and stores
//     one product per outlet. It must not keep references to the context after
//     returning, and must not mutate upstream products.
//
// Optional behaviour is declared by implementing the capability interfaces
// below (Preparer, Clearer, Weighted, OutputNode, Drafter, Composite,
// SourcePortal, SinkPortal, Exposed). The engine never inspects concrete types.
type Generator interface {
	Kind() string
	Ports() []PortSpec
	Generate(ctx context.Context, tc TileContext) error
}

// TileContext is the view of one tile that the engine hands to Generate.
type TileContext interface {
	// Tile describes the spatial unit being generated.
	Tile() Tile

	// ReadInlet returns the product feeding a singular inlet, pulling the
	// upstream node first when it is not ready. It returns (nil, nil) when the
	// inlet is unlinked or upstream produced nothing.
	ReadInlet(ctx context.Context, name string) (any, error)

	// ReadLayers returns the products feeding a multi inlet, one per link in
	// link order, each tagged with the outlet it came from. Missing products
	// are nil.
	ReadLayers(ctx context.Context, name string) ([]LayerInput, error)

	// Store sets the product of an outlet. Products are committed only when
	// Generate returns without error and the tile was not cancelled.
	Store(outlet string, p any)

	// Prepared returns what this node's Prepare returned for the tile.
	Prepared() any

	// Warn records a node-local, non-fatal message for the tile.
	Warn(msg string)

	// Finalize registers the payload an external collaborator applies once
	// generation succeeds. At most one registration per node per tile is kept.
	Finalize(data ApplyData)

	// Descend evaluates sub as this node's inner graph: outer inlet products
	// are pushed into sub's source portals, overrides into its exposed nodes,
	// and every sink portal's product is stored on the outlet with the same
	// name.
	Descend(ctx context.Context, sub *Graph, overrides map[string]product.Vector) error
}

// LayerInput is one link of a multi inlet.
type LayerInput struct {
	From    PortID
	// Source is the "node.outlet" address of From, using the node's label.
	Source  string
	Product any
}

// SourceNode returns the node part of Source.
func (l LayerInput) SourceNode() string {
	node, _, _ := strings.Cut(l.Source, ".")
	return node
}

// ProductReader is the read-only view of a tile store used by clearing hooks.
type ProductReader interface {
	ReadProduct(port PortID) (any, bool)
	IsReady(id NodeID) bool
}

// Tile describes one independent spatial unit of work.
type Tile struct {
	X, Z       int
	Resolution int
	Size       float64
}

func (t Tile) String() string {
	return fmt.Sprintf("tile[%d,%d]", t.X, t.Z)
}

// Origin returns the world position of the tile's first sample.
func (t Tile) Origin() (x, z float64) {
	return float64(t.X) * t.Size, float64(t.Z) * t.Size
}

// SamplePos returns the world position of sample (ix, iz).
func (t Tile) SamplePos(ix, iz int) (x, z float64) {
	ox, oz := t.Origin()
	step := t.Size / float64(max(t.Resolution-1, 1))
	return ox + float64(ix)*step, oz + float64(iz)*step
}

// External is the read-only outside world a Preparer may query, for example
// terrain that already exists.
type External interface {
	Fetch(ctx context.Context, tile Tile, source string) (any, error)
}

// Preparer is implemented by generators that acquire external resources in
// a pass separate from Generate.
type Preparer interface {
	Prepare(ctx context.Context, tile Tile, ext External) (any, error)
}

// Clearer lets a generator adjust the engine's readiness decision during
// clearing. ready holds the engine's decision; setting it to false forces the
// node to regenerate. A node the engine already cleared cannot be revived.
type Clearer interface {
	OnClearing(g *Graph, r ProductReader, ready *bool, totalRebuild bool)
}

// Weighted reports a relative generation cost used for progress reporting.
type Weighted interface {
	Complexity() float64
}

// OutputNode marks nodes whose results leave the graph. Relevance is
// computed backwards from them.
type OutputNode interface {
	IsOutput() bool
}

// Drafter lets an output opt in or out of draft evaluation.
type Drafter interface {
	InDraft() bool
}

// Composite is implemented by function nodes that delegate to an inner graph.
type Composite interface {
	SubGraph() *Graph
	Overrides() map[string]product.Vector
}

// SourcePortal marks the node inside a sub-graph that receives the outer
// inlet called SourceName.
type SourcePortal interface {
	SourceName() string
}

// SinkPortal marks the node inside a sub-graph whose product leaves through
// the outer outlet called SinkName.
type SinkPortal interface {
	SinkName() string
}

// Exposed marks inner nodes whose value a function instance may override.
type Exposed interface {
	ExposedName() string
}

// ApplyData is the payload an output hands to the outside world.
type ApplyData interface {
	Apply(ctx context.Context, target any) error
}

type emptyApply struct{}

func (emptyApply) Apply(context.Context, any) error { return nil }

// EmptyApply is the sentinel for "nothing to apply".
var EmptyApply ApplyData = emptyApply{}
