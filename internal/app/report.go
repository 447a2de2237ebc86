package app

import (
	"fmt"

	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/product"
	"github.com/vk/tilegraph/internal/tiles"
	"github.com/vk/tilegraph/modules/terrain"
	"github.com/xlab/treeprint"
)

// renderResults draws one branch per tile with its progress, warnings and
// what every output node produced.
//
//	graph "main"
//	└── tile[0,0]
//	    ├── [progress]  100%
//	    ├── [warning]  sum: There is no function named "nosuchfn".
//	    └── [height]  matrix 3x3 min=0 max=2 mean=1
func renderResults(g *graph.Graph, runner *tiles.Runner, results []tiles.Result) string {
	tree := treeprint.NewWithRoot(fmt.Sprintf("graph %q", g.Name()))
	outputs := g.Outputs()

	for _, res := range results {
		branch := tree.AddBranch(res.Tile.String())
		if res.Err != nil {
			branch.AddMetaNode("error", res.Err.Error())
			continue
		}

		rep := res.Report
		if rep.Cancelled {
			branch.AddMetaNode("cancelled", fmt.Sprintf("%.0f%%", rep.Progress*100))
			continue
		}
		branch.AddMetaNode("progress", fmt.Sprintf("%.0f%%", rep.Progress*100))
		for _, w := range rep.Warnings {
			branch.AddMetaNode("warning", w.Node+": "+w.Message)
		}

		store := runner.Store(res.Tile)
		finals := make(map[graph.NodeID]graph.ApplyData, len(rep.Finalizations))
		for _, f := range rep.Finalizations {
			if f.Store == store.ID() {
				finals[f.Node] = f.Data
			}
		}
		for _, n := range outputs {
			if data, ok := finals[n.ID()]; ok {
				branch.AddMetaNode(n.Label(), describeApply(data))
				continue
			}
			for _, out := range n.Outlets() {
				p, ok := store.ReadProduct(out.ID())
				if !ok {
					continue
				}
				branch.AddMetaNode(n.Label(), describe(p))
			}
		}
	}
	return tree.String()
}

func describeApply(data graph.ApplyData) string {
	if data == graph.EmptyApply {
		return "empty"
	}
	if h, ok := data.(*terrain.HeightApply); ok {
		return describe(h.Heights)
	}
	return fmt.Sprintf("%T", data)
}

func describe(p any) string {
	switch v := p.(type) {
	case nil:
		return "no product"
	case product.Vector:
		return v.String()
	case *product.Matrix:
		lo, hi := v.MinMax()
		return fmt.Sprintf("matrix %dx%d min=%g max=%g mean=%g", v.Resolution, v.Resolution, lo, hi, v.Mean())
	case *product.Spline:
		return fmt.Sprintf("spline of %d points", len(v.Points))
	}
	return fmt.Sprint(p)
}
