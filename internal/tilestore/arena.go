package tilestore

import (
	"sync"

	"github.com/vk/tilegraph/internal/graph"
)

// StoreID addresses a store inside its arena.
type StoreID int

// RootID is the id of the store created together with the arena.
const RootID StoreID = 0

type childKey struct {
	parent StoreID
	node   graph.NodeID
}

// Arena owns every store of one tile.
type Arena struct {
	mu       sync.RWMutex
	stores   map[StoreID]*Store
	children map[childKey]StoreID
	next     StoreID
}

// New creates an arena whose root store caches products of g.
func New(g *graph.Graph) *Store {
	a := &Arena{
		stores:   make(map[StoreID]*Store),
		children: make(map[childKey]StoreID),
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.create(-1, g)
}

// Len returns how many stores, the root included, the arena holds.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.stores)
}

// Store looks a store up by id.
func (a *Arena) Store(id StoreID) (*Store, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.stores[id]
	return s, ok
}

// Root returns the arena's root store.
func (a *Arena) Root() *Store {
	s, _ := a.Store(RootID)
	return s
}

// create registers a fresh store. The caller holds the write lock.
func (a *Arena) create(parent StoreID, g *graph.Graph) *Store {
	s := &Store{
		arena:    a,
		id:       a.next,
		parent:   parent,
		g:        g,
		graphID:  g.ID(),
		entries:  make(map[graph.NodeID]*entry),
		products: make(map[graph.PortID]any),
		prepared: make(map[graph.NodeID]any),
		messages: make(map[graph.NodeID]string),
		finals:   make(map[graph.NodeID]graph.ApplyData),
	}
	a.stores[s.id] = s
	a.next++
	return s
}

// drop removes a store and every store nested beneath it. The caller holds
// the write lock.
func (a *Arena) drop(id StoreID) {
	for key, child := range a.children {
		if key.parent == id {
			a.drop(child)
			delete(a.children, key)
		}
	}
	delete(a.stores, id)
}
