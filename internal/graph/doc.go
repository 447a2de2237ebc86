// Package graph holds the node/edge container of a generation pipeline and
// the contract every node kind implements.
//
// # Why Graph Package Exists
//
// The graph is the static half of the engine. It answers "what exists and
// how is it wired" and knows nothing about tiles or products. Per-tile state
// lives in tilestore, and the traversal that combines both lives in engine.
//
//	┌──────────────┐    reads     ┌────────────────┐
//	│    engine    │─────────────▶│     graph      │
//	│ (pull/clear) │              │ nodes, ports,  │
//	└──────┬───────┘              │ links, topo    │
//	       │ reads/writes         └────────────────┘
//	       ▼
//	┌──────────────┐
//	│  tilestore   │
//	│ per-tile     │
//	│ products     │
//	└──────────────┘
//
// # Nodes, Ports and Links
//
//   - **Node:** a Generator plus identity (NodeID, stable for the node's
//     lifetime), a human name unique within the graph, and a version counter.
//   - **Port:** a typed inlet or outlet declared by the generator through
//     Ports(). Inlets are singular (one link) or multi (ordered links).
//   - **Link:** outlet → inlet. Links are validated on creation: kinds must be
//     compatible and the link may not close a cycle.
//
// # Versions
//
// A node's version is bumped by Configure and by any link change on one of
// its inlets. Cached products are stamped with the version they were
// produced at; a mismatch is what marks a node as "changed by its own
// configuration" during clearing.
//
// # Editing
//
// Every mutation goes through Graph methods so the invariants hold after
// each call: no dangling links, unique ids and names, no cycles. Edits must
// not run concurrently with tile evaluation; the graph is read-only while
// tiles are being generated.
package graph
