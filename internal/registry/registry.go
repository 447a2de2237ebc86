package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/tilegraph/internal/graph"
)

// Module is the interface that all node-kind modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Env is what a kind may look up while it is being built.
type Env interface {
	// Graph returns another graph of the same file by name, building it on
	// first use. Function nodes use it to resolve their sub-graph.
	Graph(name string) (*graph.Graph, error)
	// NodeName is the name of the node being built.
	NodeName() string
}

// RegisteredKind holds the compiled Go parts of a node kind.
type RegisteredKind struct {
	// NewConfig returns a pointer to a struct with hcl tags that the node's
	// block body is decoded into.
	NewConfig func() any
	// Build turns the decoded configuration into a generator.
	Build func(cfg any, env Env) (graph.Generator, error)
}

// Registry holds every registered node kind of one application instance.
type Registry struct {
	kinds map[string]*RegisteredKind
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{kinds: make(map[string]*RegisteredKind)}
}

// NewWith creates a Registry populated by the given modules.
func NewWith(modules ...Module) *Registry {
	r := New()
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// RegisterKind registers the builder of a node kind. Registering the same
// kind twice is a programming error and panics.
func (r *Registry) RegisterKind(name string, kind *RegisteredKind) {
	if _, exists := r.kinds[name]; exists {
		panic(fmt.Sprintf("node kind '%s' already registered", name))
	}
	if kind == nil || kind.NewConfig == nil || kind.Build == nil {
		panic(fmt.Sprintf("node kind '%s' registered without config or builder", name))
	}
	slog.Debug("Registering node kind.", "kind", name)
	r.kinds[name] = kind
}

// Kind looks a registered kind up.
func (r *Registry) Kind(name string) (*RegisteredKind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
