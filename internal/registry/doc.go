// Package registry maps the node kinds named in graph files to the Go code
// that builds their generators.
//
// Every module under modules/ registers one or more kinds during startup.
// A kind carries a constructor for its HCL configuration struct (decoded with
// gohcl) and a Build function that turns the decoded configuration into a
// graph.Generator. Graph-file loading never references a concrete generator
// type; it only goes through the registry.
package registry
