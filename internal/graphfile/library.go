package graphfile

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/tilegraph/internal/graph"
	"github.com/vk/tilegraph/internal/registry"
)

// ErrGraphNotFound is returned for a graph name no loaded file defines.
var ErrGraphNotFound = errors.New("graph not found")

// ErrRecursiveGraph is returned when a graph reaches itself through function
// nodes.
var ErrRecursiveGraph = errors.New("graph references itself")

// Library holds the graphs of a set of loaded files. It is not safe for
// concurrent use while graphs are being built.
type Library struct {
	registry *registry.Registry
	defs     map[string]*definition
	order    []string

	graphs   map[string]*graph.Graph
	building []string
}

func newLibrary(reg *registry.Registry) *Library {
	return &Library{
		registry: reg,
		defs:     make(map[string]*definition),
		graphs:   make(map[string]*graph.Graph),
	}
}

// Names returns the graph names in the order they were declared.
func (lib *Library) Names() []string {
	return append([]string(nil), lib.order...)
}

// Graph builds, once, and returns the named graph.
func (lib *Library) Graph(name string) (*graph.Graph, error) {
	if g, ok := lib.graphs[name]; ok {
		return g, nil
	}
	def, ok := lib.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrGraphNotFound, name)
	}
	for i, b := range lib.building {
		if b == name {
			chain := append(slices.Clone(lib.building[i:]), name)
			return nil, fmt.Errorf("%w: %s", ErrRecursiveGraph, strings.Join(chain, " -> "))
		}
	}

	lib.building = append(lib.building, name)
	defer func() { lib.building = lib.building[:len(lib.building)-1] }()

	g, err := lib.build(def)
	if err != nil {
		return nil, err
	}
	lib.graphs[name] = g
	return g, nil
}

func (lib *Library) build(def *definition) (*graph.Graph, error) {
	g := graph.New(def.Name)

	for _, n := range def.Nodes {
		kind, ok := lib.registry.Kind(n.Kind)
		if !ok {
			return nil, fmt.Errorf("%s: graph %q: node %q has unknown kind %q", def.file, def.Name, n.Name, n.Kind)
		}
		cfg := kind.NewConfig()
		if diags := gohcl.DecodeBody(n.Body, nil, cfg); diags.HasErrors() {
			return nil, fmt.Errorf("%s: graph %q: failed to decode node %q: %w", def.file, def.Name, n.Name, diags)
		}
		gen, err := kind.Build(cfg, &env{lib: lib, node: n.Name})
		if err != nil {
			return nil, fmt.Errorf("%s: graph %q: building node %q: %w", def.file, def.Name, n.Name, err)
		}
		if _, err := g.AddNode(n.Name, gen); err != nil {
			return nil, fmt.Errorf("%s: graph %q: %w", def.file, def.Name, err)
		}
	}

	for _, l := range def.Links {
		from, err := resolvePort(g, l.From)
		if err != nil {
			return nil, fmt.Errorf("%s: graph %q: link from: %w", def.file, def.Name, err)
		}
		to, err := resolvePort(g, l.To)
		if err != nil {
			return nil, fmt.Errorf("%s: graph %q: link to: %w", def.file, def.Name, err)
		}
		if err := g.LinkExclusive(from, to); err != nil {
			return nil, fmt.Errorf("%s: graph %q: linking %s to %s: %w", def.file, def.Name, l.From, l.To, err)
		}
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%s: graph %q is invalid: %w", def.file, def.Name, err)
	}
	return g, nil
}

func resolvePort(g *graph.Graph, addr string) (graph.PortID, error) {
	nodeName, port, err := splitAddress(addr)
	if err != nil {
		return graph.PortID{}, err
	}
	n, ok := g.NodeByName(nodeName)
	if !ok {
		return graph.PortID{}, fmt.Errorf("%w: %q", graph.ErrNodeNotFound, nodeName)
	}
	return graph.PortID{Node: n.ID(), Name: port}, nil
}

// env is the registry.Env of one node being built.
type env struct {
	lib  *Library
	node string
}

func (e *env) Graph(name string) (*graph.Graph, error) { return e.lib.Graph(name) }
func (e *env) NodeName() string { return e.node }
