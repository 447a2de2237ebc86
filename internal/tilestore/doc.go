// Package tilestore provides the per-tile cache of products together with
// their readiness flags and version stamps.
//
// # Purpose
//
// One Store holds everything a single tile knows about one graph: the product
// stored on every outlet, whether each node is ready, and the node version
// each entry was produced at. Function nodes own a nested store for their
// inner graph, and that store may own further stores, as deep as functions
// are nested.
//
// # Arena of Stores
//
// Nested stores are not owned through pointers. Every store of a tile lives
// in one Arena, addressed by a StoreID, and parent → child relations are a
// table keyed by (parent StoreID, NodeID):
//
//	Arena
//	├── 0: root store (graph "main")
//	├── 1: sub-store of node "erosion"   (parent 0)
//	└── 2: sub-store of node "ridge"     (parent 1)
//
// Dropping a sub-store removes its row and every row beneath it. Nothing
// references a store except through the arena, so no ownership cycles can
// form and a store's lifetime is independent of the call stack that created
// it.
//
// # Readiness and Versions
//
//   - **Ready:** a product may be consumed in this evaluation pass.
//   - **Version:** the owning node's version when the entry was produced.
//
// An entry is valid for consumption only while it is ready *and* its version
// equals the node's live version. ClearReady keeps the product, so a stale
// value remains inspectable until Generate overwrites it.
//
// # Concurrency Model
//
// Tiles never share a store. Within a tile evaluation is single-threaded, but
// progress may be read from another goroutine, so every store of an arena is
// guarded by the arena's RWMutex.
package tilestore
