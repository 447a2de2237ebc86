/*
Package graphfile loads graph definitions from HCL files.

A file declares any number of graphs. Each graph lists its nodes by kind and
name and links outlets to inlets with "node.port" addresses:

	graph "island" {
	  node "constant" "sea_level" {
	    value = [2]
	  }
	  node "gradient" "slope" {
	    axis  = "x"
	    scale = 0.25
	  }
	  node "blend" "mix" {
	    layer {}
	    layer {
	      op = "max"
	    }
	  }
	  node "height_output" "out" {}

	  link {
	    from = "slope.out"
	    to   = "mix.layers"
	  }
	  link {
	    from = "mix.out"
	    to   = "out.height"
	  }
	}

The node body is decoded into the configuration struct of its kind, as
registered in a registry.Registry. Function nodes refer to another graph of
the loaded files by name; those graphs are built on first reference, and a
graph that reaches itself through function nodes is rejected.
*/
package graphfile
