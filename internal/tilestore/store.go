package tilestore

import (
	"github.com/google/uuid"
	"github.com/vk/tilegraph/internal/graph"
)

type entry struct {
	ready   bool
	version uint64
}

// Store is the cache of one graph's products for one tile. Stores are created
// by New (the root) or CreateLoadSub (nested) and live in an Arena.
type Store struct {
	arena   *Arena
	id      StoreID
	parent  StoreID
	g       *graph.Graph
	graphID uuid.UUID

	entries  map[graph.NodeID]*entry
	products map[graph.PortID]any
	prepared map[graph.NodeID]any
	messages map[graph.NodeID]string

	finals     map[graph.NodeID]graph.ApplyData
	finalOrder []graph.NodeID
}

var _ graph.ProductReader = (*Store)(nil)

// ID returns the store's address in its arena.
func (s *Store) ID() StoreID {
	return s.id
}

// Arena returns the arena the store lives in.
func (s *Store) Arena() *Arena {
	return s.arena
}

// Graph returns the graph whose products this store caches.
func (s *Store) Graph() *graph.Graph {
	return s.g
}

// GraphID is the id of the graph the store was created for.
func (s *Store) GraphID() uuid.UUID {
	return s.graphID
}

func (s *Store) liveVersion(id graph.NodeID) (uint64, bool) {
	n, ok := s.g.Node(id)
	if !ok {
		return 0, false
	}
	return n.Version(), true
}

// valid reports whether id's entry is ready and stamped with the live version.
// The caller holds at least the read lock.
func (s *Store) valid(id graph.NodeID) bool {
	e, ok := s.entries[id]
	if !ok || !e.ready {
		return false
	}
	live, ok := s.liveVersion(id)
	return ok && e.version == live
}

// ReadProduct is a pure lookup: it returns the product on port when its node
// is ready at the live version. A ready node that stored nothing on the port
// yields (nil, true).
func (s *Store) ReadProduct(port graph.PortID) (any, bool) {
	s.arena.mu.RLock()
	defer s.arena.mu.RUnlock()
	if !s.valid(port.Node) {
		return nil, false
	}
	return s.products[port], true
}

// Product returns whatever was last stored on port, ready or not.
func (s *Store) Product(port graph.PortID) (any, bool) {
	s.arena.mu.RLock()
	defer s.arena.mu.RUnlock()
	p, ok := s.products[port]
	return p, ok
}

// IsReady reports whether id's products may be consumed.
func (s *Store) IsReady(id graph.NodeID) bool {
	s.arena.mu.RLock()
	defer s.arena.mu.RUnlock()
	return s.valid(id)
}

// StoreProduct sets the product of port, marks its node ready and stamps it
// with the node's current version.
func (s *Store) StoreProduct(port graph.PortID, value any) {
	s.arena.mu.Lock()
	defer s.arena.mu.Unlock()
	s.products[port] = value
	s.markReady(port.Node)
}

// MarkReady marks id ready at its current version without touching products.
func (s *Store) MarkReady(id graph.NodeID) {
	s.arena.mu.Lock()
	defer s.arena.mu.Unlock()
	s.markReady(id)
}

func (s *Store) markReady(id graph.NodeID) {
	live, _ := s.liveVersion(id)
	s.entries[id] = &entry{ready: true, version: live}
}

// ClearReady marks id not ready. Products and the version stamp are kept.
func (s *Store) ClearReady(id graph.NodeID) {
	s.arena.mu.Lock()
	defer s.arena.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		e.ready = false
	}
}

// Observe makes sure id has an entry. A node seen for the first time is
// recorded as not ready at its live version, so it does not count as changed
// by its own configuration.
func (s *Store) Observe(id graph.NodeID) {
	s.arena.mu.Lock()
	defer s.arena.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		return
	}
	live, _ := s.liveVersion(id)
	s.entries[id] = &entry{version: live}
}

// VersionChanged reports whether id's live version differs from the version
// stamped on its entry. A node with no entry has not changed.
func (s *Store) VersionChanged(id graph.NodeID) bool {
	s.arena.mu.RLock()
	defer s.arena.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	live, _ := s.liveVersion(id)
	return e.version != live
}

// SetPrepared records what the node's Prepare returned for this tile.
func (s *Store) SetPrepared(id graph.NodeID, v any) {
	s.arena.mu.Lock()
	defer s.arena.mu.Unlock()
	s.prepared[id] = v
}

// Prepared returns the value recorded by SetPrepared.
func (s *Store) Prepared(id graph.NodeID) (any, bool) {
	s.arena.mu.RLock()
	defer s.arena.mu.RUnlock()
	v, ok := s.prepared[id]
	return v, ok
}

// SetMessage records a node-local warning. An empty message clears it.
func (s *Store) SetMessage(id graph.NodeID, msg string) {
	s.arena.mu.Lock()
	defer s.arena.mu.Unlock()
	if msg == "" {
		delete(s.messages, id)
		return
	}
	s.messages[id] = msg
}

// Message returns the node's warning, if any.
func (s *Store) Message(id graph.NodeID) (string, bool) {
	s.arena.mu.RLock()
	defer s.arena.mu.RUnlock()
	m, ok := s.messages[id]
	return m, ok
}

// Messages returns a copy of every node warning in this store.
func (s *Store) Messages() map[graph.NodeID]string {
	s.arena.mu.RLock()
	defer s.arena.mu.RUnlock()
	out := make(map[graph.NodeID]string, len(s.messages))
	for k, v := range s.messages {
		out[k] = v
	}
	return out
}

// Finalization pairs an output node with the payload it registered. Store is
// the store the node was generated in, which differs from the root for output
// nodes inside function sub-graphs.
type Finalization struct {
	Store StoreID
	Node  graph.NodeID
	Data  graph.ApplyData
}

// RegisterFinalize records data for id. A node has at most one outstanding
// registration; registering again replaces the previous payload.
func (s *Store) RegisterFinalize(id graph.NodeID, data graph.ApplyData) {
	if data == nil {
		data = graph.EmptyApply
	}
	s.arena.mu.Lock()
	defer s.arena.mu.Unlock()
	if _, ok := s.finals[id]; !ok {
		s.finalOrder = append(s.finalOrder, id)
	}
	s.finals[id] = data
}

// Finalizations lists the payloads of nodes that are ready, in
// first-registration order, followed by those of nested stores in graph node
// order. A payload whose node was cleared, failed or was reconfigured since it
// registered is withheld until the node generates again.
func (s *Store) Finalizations() []Finalization {
	s.arena.mu.RLock()
	defer s.arena.mu.RUnlock()
	return s.appendFinalizations(nil)
}

// appendFinalizations requires the arena read lock.
func (s *Store) appendFinalizations(out []Finalization) []Finalization {
	for _, id := range s.finalOrder {
		if s.valid(id) {
			out = append(out, Finalization{Store: s.id, Node: id, Data: s.finals[id]})
		}
	}
	for _, n := range s.g.Nodes() {
		childID, ok := s.arena.children[childKey{parent: s.id, node: n.ID()}]
		if !ok {
			continue
		}
		out = s.arena.stores[childID].appendFinalizations(out)
	}
	return out
}

// CreateLoadSub returns the nested store owned by node, creating it on first
// access. The same store is returned on every call while sub stays the same
// graph; a store created for a different graph is dropped and replaced.
func (s *Store) CreateLoadSub(node graph.NodeID, sub *graph.Graph) *Store {
	s.arena.mu.Lock()
	defer s.arena.mu.Unlock()

	key := childKey{parent: s.id, node: node}
	if id, ok := s.arena.children[key]; ok {
		existing := s.arena.stores[id]
		if existing.graphID == sub.ID() {
			return existing
		}
		s.arena.drop(id)
	}
	child := s.arena.create(s.id, sub)
	s.arena.children[key] = child.id
	return child
}

// Sub returns the nested store owned by node without creating it.
func (s *Store) Sub(node graph.NodeID) (*Store, bool) {
	s.arena.mu.RLock()
	defer s.arena.mu.RUnlock()
	id, ok := s.arena.children[childKey{parent: s.id, node: node}]
	if !ok {
		return nil, false
	}
	return s.arena.stores[id], true
}

// DropSub removes the nested store owned by node and everything beneath it.
func (s *Store) DropSub(node graph.NodeID) {
	s.arena.mu.Lock()
	defer s.arena.mu.Unlock()
	key := childKey{parent: s.id, node: node}
	if id, ok := s.arena.children[key]; ok {
		s.arena.drop(id)
		delete(s.arena.children, key)
	}
}

// Prune forgets nodes that are no longer part of the graph, together with
// their sub-stores, and prunes the remaining sub-stores the same way.
func (s *Store) Prune() {
	s.arena.mu.Lock()
	defer s.arena.mu.Unlock()
	s.prune()
}

func (s *Store) prune() {
	gone := func(id graph.NodeID) bool {
		_, ok := s.g.Node(id)
		return !ok
	}

	for id := range s.entries {
		if gone(id) {
			delete(s.entries, id)
		}
	}
	for port := range s.products {
		if gone(port.Node) {
			delete(s.products, port)
		}
	}
	for id := range s.prepared {
		if gone(id) {
			delete(s.prepared, id)
		}
	}
	for id := range s.messages {
		if gone(id) {
			delete(s.messages, id)
		}
	}
	kept := s.finalOrder[:0]
	for _, id := range s.finalOrder {
		if gone(id) {
			delete(s.finals, id)
			continue
		}
		kept = append(kept, id)
	}
	s.finalOrder = kept

	var live []*Store
	for key, child := range s.arena.children {
		if key.parent != s.id {
			continue
		}
		if gone(key.node) {
			s.arena.drop(child)
			delete(s.arena.children, key)
			continue
		}
		live = append(live, s.arena.stores[child])
	}
	for _, child := range live {
		child.prune()
	}
}
