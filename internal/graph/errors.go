package graph

import "errors"

var (
	// ErrTypeMismatch is returned when an outlet's kind cannot feed an inlet.
	ErrTypeMismatch = errors.New("port type mismatch")
	// ErrInletOccupied is returned by LinkExclusive for a linked singular inlet.
	ErrInletOccupied = errors.New("inlet already linked")
	// ErrCycle is returned when a link would make the graph cyclic.
	ErrCycle = errors.New("link would create a cycle")
	// ErrDuplicateID is returned when a node id is already in use.
	ErrDuplicateID = errors.New("duplicate node id")
	// ErrDuplicateName is returned when a node name is already in use.
	ErrDuplicateName = errors.New("duplicate node name")
	// ErrNodeNotFound is returned for operations on unknown nodes.
	ErrNodeNotFound = errors.New("node not found")
	// ErrPortNotFound is returned when a node has no port with that name and direction.
	ErrPortNotFound = errors.New("port not found")
	// ErrLinkNotFound is returned by Unlink for a link that does not exist.
	ErrLinkNotFound = errors.New("link not found")
	// ErrDanglingLink is reported by Validate for links to missing ports.
	ErrDanglingLink = errors.New("dangling link")
)
