package graphfile

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
)

// hclFile is the top-level structure of a graph file.
type hclFile struct {
	Graphs []*hclGraph `hcl:"graph,block"`
}

type hclGraph struct {
	Name  string     `hcl:"name,label"`
	Nodes []*hclNode `hcl:"node,block"`
	Links []*hclLink `hcl:"link,block"`
}

type hclNode struct {
	Kind string   `hcl:"kind,label"`
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type hclLink struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// definition is a parsed, not yet built graph.
type definition struct {
	*hclGraph
	file string
}

// splitAddress splits a "node.port" link endpoint.
func splitAddress(addr string) (node, port string, err error) {
	node, port, ok := strings.Cut(addr, ".")
	if !ok || node == "" || port == "" {
		return "", "", fmt.Errorf("invalid port address %q, want \"node.port\"", addr)
	}
	return node, port, nil
}
