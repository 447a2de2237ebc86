package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/tilegraph/internal/app"
	"github.com/vk/tilegraph/internal/tiles"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("tilegraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
tilegraph - Evaluates procedural terrain graphs over a grid of tiles.

Usage:
  tilegraph [options] [GRAPH_PATH]

Arguments:
  GRAPH_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	graphFlag := flagSet.String("graph", "", "Path to the graph file or directory.")
	gFlag := flagSet.String("g", "", "Path to the graph file or directory (shorthand).")
	nameFlag := flagSet.String("name", "", "Name of the graph to evaluate. Defaults to \"main\" or the only graph.")
	xFlag := flagSet.Int("x", 0, "X coordinate of the first tile.")
	zFlag := flagSet.Int("z", 0, "Z coordinate of the first tile.")
	widthFlag := flagSet.Int("width", 1, "Number of tiles along X.")
	depthFlag := flagSet.Int("depth", 1, "Number of tiles along Z.")
	resolutionFlag := flagSet.Int("resolution", 33, "Samples per tile edge.")
	sizeFlag := flagSet.Float64("size", 64, "World size of a tile edge.")
	draftFlag := flagSet.Bool("draft", false, "Only evaluate outputs that opt into draft mode.")
	workersFlag := flagSet.Int("workers", 0, "Number of tiles evaluated concurrently. 0 uses every CPU.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *graphFlag != "" {
		path = *graphFlag
	} else if *gFlag != "" {
		path = *gFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Graph path determined.", "path", path)

	if path == "" {
		slog.Debug("No graph path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		GraphPath: path,
		GraphName: *nameFlag,
		Grid: tiles.Grid{
			X:          *xFlag,
			Z:          *zFlag,
			Width:      *widthFlag,
			Depth:      *depthFlag,
			Resolution: *resolutionFlag,
			Size:       *sizeFlag,
		},
		Draft:           *draftFlag,
		Workers:         *workersFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: *healthPortFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
