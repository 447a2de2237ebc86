// Package calc implements the small formula language used by calculator
// nodes.
//
// Formulas are parsed with the HCL native expression syntax, so operator
// precedence, parentheses, comparisons and the `cond ? a : b` form follow
// HCL rules. Only a numeric subset is accepted: number and bool literals,
// bare variable names, the arithmetic/logic operators and the functions in
// the built-in table (see Functions). Everything else is reported by
// CheckValidity.
//
// # Vector semantics
//
// Every value is a product.Vector. A formula is evaluated once per component
// with each variable bound to that component as a cty number, which gives
// component-wise broadcasting for free. One-component variables are promoted
// to every component. The `vec(x, y, z, w)` function builds a vector literal.
//
// A Calculator never panics and never fails to construct: malformed text
// produces a Calculator that reports its own problems and evaluates to the
// zero vector.
package calc
