package graph

import "sync/atomic"

// Node is a single vertex in the graph: a generator plus identity, name,
// version and the ports it currently exposes.
type Node struct {
	id   NodeID
	name string
	gen  Generator

	// version is bumped on every configuration or inlet-link change.
	version atomic.Uint64

	// inlets and outlets keep the order the generator declared them in.
	inlets  []*Port
	outlets []*Port
}

// ID returns the node's stable identity.
func (n *Node) ID() NodeID {
	return n.id
}

// Name returns the human-readable name, unique within the graph.
func (n *Node) Name() string {
	return n.name
}

// Generator returns the node's computation unit.
func (n *Node) Generator() Generator {
	return n.gen
}

// Version atomically returns the current configuration version.
func (n *Node) Version() uint64 {
	return n.version.Load()
}

func (n *Node) bump() {
	n.version.Add(1)
}

// Inlets returns the node's inlets in declaration order.
func (n *Node) Inlets() []*Port {
	return append([]*Port(nil), n.inlets...)
}

// Outlets returns the node's outlets in declaration order.
func (n *Node) Outlets() []*Port {
	return append([]*Port(nil), n.outlets...)
}

// Inlet looks up an inlet by name.
func (n *Node) Inlet(name string) (*Port, bool) {
	return findPort(n.inlets, name)
}

// Outlet looks up an outlet by name.
func (n *Node) Outlet(name string) (*Port, bool) {
	return findPort(n.outlets, name)
}

// Label is the name when set, the id otherwise. Used in logs and errors.
func (n *Node) Label() string {
	if n.name != "" {
		return n.name
	}
	return n.id.String()
}

func findPort(ports []*Port, name string) (*Port, bool) {
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

func (n *Node) port(dir Direction, name string) (*Port, bool) {
	if dir == In {
		return n.Inlet(name)
	}
	return n.Outlet(name)
}
