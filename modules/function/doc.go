// Package function provides nested graphs: the function node that evaluates
// an inner graph, and the input and output portals that form the inner
// graph's boundary.
//
//	outer graph                     inner graph
//	┌──────────┐  "height"   ┌────────────────────────────────────┐
//	│ upstream │────────────▶│ input "height" ─▶ ... ─▶ output "out" │──▶ outlet "out"
//	└──────────┘             └────────────────────────────────────┘
//
// A function node derives its ports from the portals of its inner graph: one
// inlet per Input, named after it, and one outlet per Output.
package function
