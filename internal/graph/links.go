package graph

import (
	"fmt"

	"github.com/vk/tilegraph/internal/product"
)

// Link is a directed outlet → inlet association.
type Link struct {
	From PortID
	To   PortID
}

func (l Link) String() string {
	return l.From.String() + " -> " + l.To.String()
}

// Link connects an outlet to an inlet. A singular inlet that is already
// linked has its previous link replaced. Multi inlets append a new layer.
// On failure the graph is left unchanged.
func (g *Graph) Link(from, to PortID) error {
	return g.link(from, to, false)
}

// LinkExclusive is Link without replacement: it fails with ErrInletOccupied
// when a singular inlet already has a link.
func (g *Graph) LinkExclusive(from, to PortID) error {
	return g.link(from, to, true)
}

func (g *Graph) link(from, to PortID, exclusive bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	out, in, err := g.resolveLink(from, to)
	if err != nil {
		return err
	}

	if !product.Compatible(out.Kind, in.Kind) {
		return fmt.Errorf("%w: %s (%s) -> %s (%s)", ErrTypeMismatch, from, out.Kind, to, in.Kind)
	}
	if from.Node == to.Node || g.reachable(to.Node, from.Node) {
		return fmt.Errorf("%w: %s -> %s", ErrCycle, from, to)
	}

	if !in.Multi {
		if exclusive && len(g.linksTo(to)) > 0 {
			return fmt.Errorf("%w: %s", ErrInletOccupied, to)
		}
		g.removeLinksWhere(func(l Link) bool { return l.To == to })
	} else {
		for _, l := range g.links {
			if l.From == from && l.To == to {
				return nil
			}
		}
	}

	g.links = append(g.links, Link{From: from, To: to})
	g.nodes[to.Node].bump()
	return nil
}

func (g *Graph) resolveLink(from, to PortID) (*Port, *Port, error) {
	fromNode, ok := g.nodes[from.Node]
	if !ok {
		return nil, nil, fmt.Errorf("%w: source %s", ErrNodeNotFound, from.Node)
	}
	toNode, ok := g.nodes[to.Node]
	if !ok {
		return nil, nil, fmt.Errorf("%w: destination %s", ErrNodeNotFound, to.Node)
	}
	out, ok := fromNode.port(Out, from.Name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: outlet %q on %q", ErrPortNotFound, from.Name, fromNode.Label())
	}
	in, ok := toNode.port(In, to.Name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: inlet %q on %q", ErrPortNotFound, to.Name, toNode.Label())
	}
	return out, in, nil
}

// reachable reports whether target can be reached from start by following
// links downstream.
func (g *Graph) reachable(start, target NodeID) bool {
	seen := map[NodeID]bool{start: true}
	stack := []NodeID{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == target {
			return true
		}
		for _, l := range g.links {
			if l.From.Node == cur && !seen[l.To.Node] {
				seen[l.To.Node] = true
				stack = append(stack, l.To.Node)
			}
		}
	}
	return false
}

// Unlink removes one link.
func (g *Graph) Unlink(from, to PortID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.removeLinksWhere(func(l Link) bool { return l.From == from && l.To == to }) == 0 {
		return fmt.Errorf("%w: %s -> %s", ErrLinkNotFound, from, to)
	}
	return nil
}

// UnlinkInlet removes every link into an inlet and returns how many there were.
func (g *Graph) UnlinkInlet(to PortID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.removeLinksWhere(func(l Link) bool { return l.To == to })
}

// removeLinksWhere drops matching links, bumping the version of every node
// that lost an inlet link. The caller holds the write lock.
func (g *Graph) removeLinksWhere(match func(Link) bool) int {
	kept := g.links[:0]
	removed := 0
	for _, l := range g.links {
		if !match(l) {
			kept = append(kept, l)
			continue
		}
		removed++
		if n, ok := g.nodes[l.To.Node]; ok {
			n.bump()
		}
	}
	clear(g.links[len(kept):])
	g.links = kept
	return removed
}

// Links returns a copy of every link in creation order.
func (g *Graph) Links() []Link {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Link(nil), g.links...)
}

// Upstream returns the outlets feeding an inlet, in layer order. An unlinked
// inlet yields an empty slice.
func (g *Graph) Upstream(inlet PortID) []PortID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	links := g.linksTo(inlet)
	out := make([]PortID, len(links))
	for i, l := range links {
		out[i] = l.From
	}
	return out
}

func (g *Graph) linksTo(inlet PortID) []Link {
	var out []Link
	for _, l := range g.links {
		if l.To == inlet {
			out = append(out, l)
		}
	}
	return out
}

// UpstreamNodes returns the distinct nodes linked into any inlet of id.
func (g *Graph) UpstreamNodes(id NodeID) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.neighbours(id, func(l Link) (NodeID, bool) {
		return l.From.Node, l.To.Node == id
	})
}

// Downstream returns the distinct nodes fed directly by any outlet of id.
func (g *Graph) Downstream(id NodeID) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.neighbours(id, func(l Link) (NodeID, bool) {
		return l.To.Node, l.From.Node == id
	})
}

func (g *Graph) neighbours(id NodeID, pick func(Link) (NodeID, bool)) []NodeID {
	var out []NodeID
	seen := make(map[NodeID]bool)
	for _, l := range g.links {
		other, ok := pick(l)
		if ok && !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
	}
	return out
}
