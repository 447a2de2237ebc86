// Package product defines the values that generators attach to their
// outlets for one tile.
//
// Products are type-erased (`any`) at the store boundary and type-checked by
// the consumer. Every port carries a Kind tag; the graph only accepts links
// between compatible kinds (see Compatible), and the engine applies Convert
// when an outlet's kind differs from the inlet it feeds.
//
// The shapes shipped here are:
//   - Vector: up to four float components plus an optional object reference.
//   - Matrix: a square 2-D float field covering one tile.
//   - Spline: an ordered list of points.
//
// Products are immutable once stored. Generators that want to modify an
// upstream value must Clone it first.
package product
