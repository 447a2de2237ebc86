package graphfile

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/vk/tilegraph/internal/ctxlog"
	"github.com/vk/tilegraph/internal/fsutil"
	"github.com/vk/tilegraph/internal/registry"
)

// Extension is the suffix of graph files.
const Extension = ".hcl"

// Loader reads graph files from a filesystem.
type Loader struct {
	fs       afero.Fs
	registry *registry.Registry
}

// NewLoader creates a Loader that builds nodes with the kinds of reg.
func NewLoader(fsys afero.Fs, reg *registry.Registry) *Loader {
	return &Loader{fs: fsys, registry: reg}
}

// Load parses path, a single file or a directory searched recursively for
// graph files, into a Library. Graphs are built lazily by Library.Graph.
func (l *Loader) Load(ctx context.Context, path string) (*Library, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading graph files.", "path", path)

	files, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	lib := newLibrary(l.registry)
	parser := hclparse.NewParser()
	for _, file := range files {
		src, err := afero.ReadFile(l.fs, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read graph file %s: %w", file, err)
		}
		if err := lib.parse(parser, file, src); err != nil {
			return nil, err
		}
	}

	if len(lib.order) == 0 {
		logger.Warn("No graphs found in path.", "path", path, "files", len(files))
	}
	logger.Debug("Graph files loaded.", "files", len(files), "graphs", len(lib.order))
	return lib, nil
}

// resolve returns path itself when it is a file, otherwise every graph file
// below it in lexical order.
func (l *Loader) resolve(path string) ([]string, error) {
	info, err := l.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("could not stat graph path %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	files, err := fsutil.FindFilesByExtension(l.fs, path, Extension)
	if err != nil {
		return nil, fmt.Errorf("failed to find graph files in %s: %w", path, err)
	}
	return files, nil
}

// Parse reads graphs from an in-memory source. filename is used in
// diagnostics only.
func Parse(reg *registry.Registry, filename string, src []byte) (*Library, error) {
	lib := newLibrary(reg)
	if err := lib.parse(hclparse.NewParser(), filename, src); err != nil {
		return nil, err
	}
	return lib, nil
}

func (lib *Library) parse(parser *hclparse.Parser, filename string, src []byte) error {
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse graph file %s: %w", filename, diags)
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode graph file %s: %w", filename, diags)
	}

	for _, g := range parsed.Graphs {
		if prev, ok := lib.defs[g.Name]; ok {
			return fmt.Errorf("graph %q in %s is already defined in %s", g.Name, filename, prev.file)
		}
		lib.defs[g.Name] = &definition{hclGraph: g, file: filename}
		lib.order = append(lib.order, g.Name)
	}
	return nil
}
