package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/vk/tilegraph/internal/ctxlog"
	"github.com/vk/tilegraph/internal/engine"
	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/graphfile"
	"github.com/vk/tilegraph/internal/tiles"
	"go.uber.org/multierr"
)

// DefaultGraphName is evaluated when the configuration names no graph and
// more than one is defined.
const DefaultGraphName = "main"

// Run loads the graph files, evaluates the configured tile grid and prints
// the result tree to the app's writer. Failed tiles are part of the tree and
// of the returned error.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		stop := a.startHealthcheckServer(a.config.HealthcheckPort)
		defer stop()
	}

	g, err := a.loadGraph(ctx)
	if err != nil {
		return err
	}
	a.logger.Debug("Graph built.", "graph", g.Name(), "node_count", g.Len())

	if len(g.Outputs()) == 0 {
		a.logger.Warn("Graph has no output nodes, nothing will be generated.", "graph", g.Name())
	}

	e := engine.New(engine.WithDraft(a.config.Draft))
	tileList := a.config.Grid.Tiles()
	a.tilesTotal.Store(int64(len(tileList)))
	a.tilesDone.Store(0)
	runner := tiles.NewRunner(e, g, a.config.Workers, tiles.OnTileDone(func(tiles.Result) {
		a.tilesDone.Add(1)
	}))

	a.logger.Info("Evaluating tiles.", "graph", g.Name(), "tiles", len(tileList), "draft", a.config.Draft)
	results, runErr := runner.Run(ctx, tileList)
	fmt.Fprint(a.outW, renderResults(g, runner, results))

	if runErr != nil {
		failed := len(multierr.Errors(runErr))
		return fmt.Errorf("%d of %d tiles failed: %w", failed, len(tileList), runErr)
	}
	a.logger.Info("Evaluation finished.", "tiles", len(tileList))
	return nil
}

func (a *App) loadGraph(ctx context.Context) (*graph.Graph, error) {
	lib, err := graphfile.NewLoader(a.fs, a.registry).Load(ctx, a.config.GraphPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load graphs: %w", err)
	}

	name := a.config.GraphName
	if name == "" {
		names := lib.Names()
		switch {
		case len(names) == 1:
			name = names[0]
		case slices.Contains(names, DefaultGraphName):
			name = DefaultGraphName
		case len(names) == 0:
			return nil, fmt.Errorf("no graphs defined in %s", a.config.GraphPath)
		default:
			return nil, fmt.Errorf("several graphs defined in %s and none is named %q, choose one of %v",
				a.config.GraphPath, DefaultGraphName, names)
		}
	}

	g, err := lib.Graph(name)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return g, nil
}
