/*
Package tiles evaluates one graph over many tiles in parallel.

Every tile owns its own tilestore.Store, so tiles share nothing mutable but
the read-only graph and its generators. A Runner keeps those stores between
runs, which lets a second Run over the same tiles reuse everything that is
still valid and only regenerate what an edit invalidated.

# Failure isolation

A tile that fails, for example on an engine invariant, is logged and
reported in its Result. The other tiles still complete and Run returns the
combined error of every failed tile:

	tile[0,0] ok
	tile[1,0] error  --+
	tile[0,1] ok       +--> multierr of all failures
	tile[1,1] error  --+
*/
package tiles
