// Package engine evaluates a graph for one tile: it pulls products through
// the graph on demand and invalidates cached products after edits.
//
// For a detailed description of the two traversals, read on.
//
// # Evaluation Pass
//
// Evaluate runs three steps against a tile's root store:
//
//  1. **Clear:** walk the graph in topological order and mark not-ready
//     every node whose own version changed or whose upstream is not ready.
//  2. **Prepare:** give Preparer generators their external resources.
//  3. **Pull:** ensure every relevant node, outputs first.
//
// # Pull
//
// Ensuring a node first ensures everything linked into its inlets, then
// calls Generate. Products a generator stores are buffered and committed to
// the store only when Generate returns without error and the context is
// still live, so a cancelled pass never leaves a half-written node behind:
//
//	ensure(n)
//	  ├── ctx done?        → stop, nothing stored
//	  ├── ready?           → done
//	  ├── ensure(upstream) ...
//	  ├── Generate(n)      → products buffered
//	  ├── ctx done?        → stop, buffer dropped
//	  └── commit + mark ready
//
// # Functions
//
// A function node calls TileContext.Descend with its inner graph. Descend
// loads or creates the nested store, pushes outer inlet products into the
// inner source portals and per-instance overrides into exposed nodes, pulls
// the inner graph with the same algorithm, and stores every sink portal's
// product on the outer outlet of the same name.
//
// # Clearing Functions
//
// A function node is ready iff itself and every relevant node of its inner
// graph are ready. Clearing goes down into the nested store first and then
// reconciles upwards: a node whose version changed clears the exposed inner
// nodes; any change on the node or its inputs clears every relevant inner
// node; and a not-ready inner node leaves the function node not ready.
//
// # Errors
//
//   - **Cancellation** is not an error: Evaluate returns a Report with
//     Cancelled set and a nil error.
//   - **Generator errors** abort the tile and are returned wrapped.
//   - **Invariant violations** wrap ErrInvariant and abort the tile.
package engine
