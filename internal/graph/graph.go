package graph

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Graph is the node and link container of one generation pipeline.
// All methods are safe for concurrent use; evaluation only takes read locks.
type Graph struct {
	id   uuid.UUID
	name string

	mu    sync.RWMutex
	nodes map[NodeID]*Node
	names map[string]NodeID
	// order keeps node insertion order so every query is deterministic.
	order []NodeID
	// links are kept in creation order, which is also the layer order of
	// multi inlets.
	links []Link
}

// New creates an empty graph with a fresh identity.
func New(name string) *Graph {
	return &Graph{
		id:    uuid.New(),
		name:  name,
		nodes: make(map[NodeID]*Node),
		names: make(map[string]NodeID),
	}
}

// ID identifies the graph. Sub-stores remember it to detect that a function
// was pointed at a different sub-graph.
func (g *Graph) ID() uuid.UUID {
	return g.id
}

// Name returns the graph's name.
func (g *Graph) Name() string {
	return g.name
}

// AddNode adds gen under a freshly generated id.
func (g *Graph) AddNode(name string, gen Generator) (*Node, error) {
	return g.AddNodeWithID(NewNodeID(), name, gen)
}

// AddNodeWithID adds gen under a caller-chosen id, as needed when restoring
// persisted graphs. Names must be unique when non-empty.
func (g *Graph) AddNodeWithID(id NodeID, name string, gen Generator) (*Node, error) {
	if gen == nil {
		return nil, fmt.Errorf("node %q has no generator", name)
	}
	// Ports may query other graphs, or this one for a function over itself,
	// so it runs before the lock is taken.
	specs := gen.Ports()

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	if name != "" {
		if _, ok := g.names[name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
	}

	n := &Node{id: id, name: name, gen: gen}
	n.version.Store(1)
	for _, spec := range specs {
		n.addPort(spec)
	}

	g.nodes[id] = n
	if name != "" {
		g.names[name] = id
	}
	g.order = append(g.order, id)
	return n, nil
}

// RemoveNode deletes a node and every link touching it. Nodes that lose an
// inlet link get their version bumped.
func (g *Graph) RemoveNode(id NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	g.removeLinksWhere(func(l Link) bool {
		return l.From.Node == id || l.To.Node == id
	})

	delete(g.nodes, id)
	if n.name != "" {
		delete(g.names, n.name)
	}
	for i, oid := range g.order {
		if oid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}

// Configure is the configuration-edit path. fn mutates the generator; the
// node's ports are then re-synced against Ports() by name and its version is
// bumped. Links on ports whose name, direction and kind are unchanged survive.
// A nil fn only re-syncs and bumps.
func (g *Graph) Configure(id NodeID, fn func(Generator) error) error {
	n, ok := g.Node(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if fn != nil {
		if err := fn(n.gen); err != nil {
			return fmt.Errorf("configuring node %q: %w", n.Label(), err)
		}
	}
	specs := n.gen.Ports()

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	g.syncPorts(n, specs)
	n.bump()
	return nil
}

// syncPorts applies a name-keyed diff between the node's materialised ports
// and what its generator declares now.
func (g *Graph) syncPorts(n *Node, specs []PortSpec) {
	existing := make(map[portKey]*Port, len(n.inlets)+len(n.outlets))
	for _, p := range n.inlets {
		existing[portKey{p.Dir, p.Name}] = p
	}
	for _, p := range n.outlets {
		existing[portKey{p.Dir, p.Name}] = p
	}

	inlets := make([]*Port, 0, len(specs))
	outlets := make([]*Port, 0, len(specs))
	kept := make(map[portKey]bool, len(specs))
	for _, spec := range specs {
		key := portKey{spec.Dir, spec.Name}
		p, ok := existing[key]
		if !ok || p.PortSpec != spec {
			p = &Port{PortSpec: spec, Node: n.id}
		} else {
			kept[key] = true
		}
		if spec.Dir == In {
			inlets = append(inlets, p)
		} else {
			outlets = append(outlets, p)
		}
	}
	n.inlets, n.outlets = inlets, outlets

	g.removeLinksWhere(func(l Link) bool {
		switch {
		case l.To.Node == n.id:
			return !kept[portKey{In, l.To.Name}]
		case l.From.Node == n.id:
			return !kept[portKey{Out, l.From.Name}]
		}
		return false
	})
}

type portKey struct {
	dir  Direction
	name string
}

func (n *Node) addPort(spec PortSpec) {
	p := &Port{PortSpec: spec, Node: n.id}
	if spec.Dir == In {
		n.inlets = append(n.inlets, p)
	} else {
		n.outlets = append(n.outlets, p)
	}
}

// Node looks a node up by id.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// NodeByName looks a node up by its unique name.
func (g *Graph) NodeByName(name string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.names[name]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodesLocked()
}

func (g *Graph) nodesLocked() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}
