package graph

import (
	"fmt"

	"github.com/vk/tilegraph/internal/product"
	"go.uber.org/multierr"
)

// TopoOrder returns every node so that each comes after all of its upstream
// nodes. Ties are broken by insertion order, making the result stable.
func (g *Graph) TopoOrder() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	indegree := make(map[NodeID]int, len(g.nodes))
	dependents := make(map[NodeID][]NodeID, len(g.nodes))
	seenEdge := make(map[[2]NodeID]bool)
	for _, l := range g.links {
		edge := [2]NodeID{l.From.Node, l.To.Node}
		if seenEdge[edge] {
			continue
		}
		seenEdge[edge] = true
		indegree[l.To.Node]++
		dependents[l.From.Node] = append(dependents[l.From.Node], l.To.Node)
	}

	rank := make(map[NodeID]int, len(g.order))
	for i, id := range g.order {
		rank[id] = i
	}

	var queue []NodeID
	for _, id := range g.order {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	out := make([]*Node, 0, len(g.order))
	for len(queue) > 0 {
		// pick the earliest-inserted ready node
		best := 0
		for i := 1; i < len(queue); i++ {
			if rank[queue[i]] < rank[queue[best]] {
				best = i
			}
		}
		id := queue[best]
		queue = append(queue[:best], queue[best+1:]...)
		out = append(out, g.nodes[id])

		for _, d := range dependents[id] {
			indegree[d]--
			if indegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}
	return out
}

// Outputs returns the nodes whose generator declares itself an output, in
// insertion order.
func (g *Graph) Outputs() []*Node {
	return g.filter(func(n *Node) bool {
		o, ok := n.gen.(OutputNode)
		return ok && o.IsOutput()
	})
}

// Sources returns the function-inlet portals of this graph.
func (g *Graph) Sources() []*Node {
	return g.filter(func(n *Node) bool {
		_, ok := n.gen.(SourcePortal)
		return ok
	})
}

// Sinks returns the function-outlet portals of this graph.
func (g *Graph) Sinks() []*Node {
	return g.filter(func(n *Node) bool {
		_, ok := n.gen.(SinkPortal)
		return ok
	})
}

// ExposedNodes returns the nodes whose value a function instance may override.
func (g *Graph) ExposedNodes() []*Node {
	return g.filter(func(n *Node) bool {
		e, ok := n.gen.(Exposed)
		return ok && e.ExposedName() != ""
	})
}

func (g *Graph) filter(keep func(*Node) bool) []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Node
	for _, id := range g.order {
		if n := g.nodes[id]; keep(n) {
			out = append(out, n)
		}
	}
	return out
}

// RelevantNodes returns the nodes required to produce the graph's outputs:
// the outputs themselves first, in insertion order, followed by everything
// reachable backwards from them in breadth-first order. In draft mode outputs
// that do not opt into drafts are left out, along with anything only they need.
func (g *Graph) RelevantNodes(draft bool) []*Node {
	outputs := g.Outputs()

	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[NodeID]bool)
	var out []*Node
	var queue []NodeID
	for _, n := range outputs {
		if draft {
			if d, ok := n.gen.(Drafter); ok && !d.InDraft() {
				continue
			}
		}
		seen[n.id] = true
		out = append(out, n)
		queue = append(queue, n.id)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, l := range g.links {
			if l.To.Node != cur || seen[l.From.Node] {
				continue
			}
			seen[l.From.Node] = true
			out = append(out, g.nodes[l.From.Node])
			queue = append(queue, l.From.Node)
		}
	}
	return out
}

// DetectCycles checks the graph for any cycles. Link already refuses to
// create one, so this only matters for graphs assembled some other way.
func (g *Graph) DetectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.detectCycles()
}

func (g *Graph) detectCycles() error {
	// permanent: fully visited and known to be acyclic.
	// temporary: on the current recursion stack.
	permanent := make(map[NodeID]bool)
	temporary := make(map[NodeID]bool)

	var visit func(id NodeID) error
	visit = func(id NodeID) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return fmt.Errorf("%w: involving node %q", ErrCycle, g.label(id))
		}
		temporary[id] = true
		for _, l := range g.links {
			if l.From.Node != id {
				continue
			}
			if err := visit(l.To.Node); err != nil {
				return err
			}
		}
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	for _, id := range g.order {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) label(id NodeID) string {
	if n, ok := g.nodes[id]; ok {
		return n.Label()
	}
	return id.String()
}

// Validate checks the structural invariants a deserialized graph must hold
// before evaluation: every link references existing ports of compatible
// kinds, singular inlets have at most one link, and there are no cycles.
// All problems are reported together.
func (g *Graph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs error
	perInlet := make(map[PortID]int)
	for _, l := range g.links {
		out, in, err := g.resolveLink(l.From, l.To)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s: %w", ErrDanglingLink, l, err))
			continue
		}
		if !product.Compatible(out.Kind, in.Kind) {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrTypeMismatch, l))
		}
		perInlet[l.To]++
		if !in.Multi && perInlet[l.To] == 2 {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrInletOccupied, l.To))
		}
	}
	errs = multierr.Append(errs, g.detectCycles())
	return errs
}
