package function

import (
	"context"

	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/product"
)

// Input is the source portal of an inner graph. The enclosing function
// pushes the product of its inlet called Name into Input's "out" outlet.
// When that inlet is unlinked, Input produces Default instead.
type Input struct {
	Name    string
	Type    product.Kind
	Default product.Vector
}

func (i *Input) Kind() string { return KindInput }

func (i *Input) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.Outlet("out", i.Type)}
}

func (i *Input) Generate(_ context.Context, tc graph.TileContext) error {
	switch i.Type {
	case product.KindVector:
		tc.Store("out", i.Default)
	case product.KindMatrix:
		m := product.NewMatrix(tc.Tile().Resolution)
		m.Fill(i.Default.X())
		tc.Store("out", m)
	case product.KindSpline:
		tc.Store("out", &product.Spline{})
	}
	return nil
}

// SourceName implements graph.SourcePortal.
func (i *Input) SourceName() string { return i.Name }

// Output is the sink portal of an inner graph. Its product leaves the
// function through the outlet called Name.
type Output struct {
	Name string
	Type product.Kind
}

func (o *Output) Kind() string { return KindOutput }

func (o *Output) Ports() []graph.PortSpec {
	return []graph.PortSpec{
		graph.Inlet("in", o.Type),
		graph.Outlet("out", o.Type),
	}
}

func (o *Output) Generate(ctx context.Context, tc graph.TileContext) error {
	p, err := tc.ReadInlet(ctx, "in")
	if err != nil {
		return err
	}
	tc.Store("out", p)
	return nil
}

// SinkName implements graph.SinkPortal.
func (o *Output) SinkName() string { return o.Name }

// IsOutput implements graph.OutputNode; everything feeding a sink is relevant.
func (o *Output) IsOutput() bool { return true }
