package graph

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/tilegraph/internal/product"
)

// NodeID is the stable identity of a node. It is assigned when the node is
// added and never changes, even across configuration edits.
type NodeID uuid.UUID

// NewNodeID returns a fresh random id.
func NewNodeID() NodeID {
	return NodeID(uuid.New())
}

// ParseNodeID parses the canonical uuid text form.
func ParseNodeID(s string) (NodeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NodeID{}, fmt.Errorf("invalid node id %q: %w", s, err)
	}
	return NodeID(u), nil
}

func (id NodeID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id is the zero value.
func (id NodeID) IsZero() bool {
	return id == NodeID{}
}

// PortID addresses one port of one node.
type PortID struct {
	Node NodeID
	Name string
}

func (p PortID) String() string {
	return p.Node.String() + "/" + p.Name
}

// Direction distinguishes inlets from outlets.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "inlet"
	}
	return "outlet"
}

// PortSpec is what a generator declares about one of its ports.
type PortSpec struct {
	Name  string
	Dir   Direction
	Kind  product.Kind
	Multi bool
}

// Inlet is shorthand for a singular inlet spec.
func Inlet(name string, kind product.Kind) PortSpec {
	return PortSpec{Name: name, Dir: In, Kind: kind}
}

// MultiInlet is shorthand for an ordered multi-link inlet spec.
func MultiInlet(name string, kind product.Kind) PortSpec {
	return PortSpec{Name: name, Dir: In, Kind: kind, Multi: true}
}

// Outlet is shorthand for an outlet spec.
func Outlet(name string, kind product.Kind) PortSpec {
	return PortSpec{Name: name, Dir: Out, Kind: kind}
}

// Port is a port materialised on a node.
type Port struct {
	PortSpec
	Node NodeID
}

// ID returns the port's address.
func (p *Port) ID() PortID {
	return PortID{Node: p.Node, Name: p.Name}
}
