// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"strings"
)

// Mermaid renders the graph as a Mermaid flowchart. Node ids contain
// characters Mermaid does not accept, so nodes are aliased n0, n1, ... in
// topological order.
func (g *Graph) Mermaid() string {
	alias := make(map[string]string, len(g.order))
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, id := range g.order {
		n := g.nodes[id]
		alias[id] = fmt.Sprintf("n%d", i)
		shape := "[%q]"
		if !n.IsOutput() {
			shape = "([%q])"
		}
		fmt.Fprintf(&sb, "    %s"+shape+"\n", alias[id], n.Kind+": "+displayName(n))
	}
	for _, e := range g.edges {
		fmt.Fprintf(&sb, "    %s --> %s\n", alias[e.From], alias[e.To])
	}
	for _, id := range g.order {
		if !g.nodes[id].IsOutput() {
			fmt.Fprintf(&sb, "    style %s fill:#90EE90\n", alias[id])
		}
	}
	return sb.String()
}

// DOT renders the graph in Graphviz DOT syntax.
func (g *Graph) DOT() string {
	var sb strings.Builder
	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=TB;\n")
	sb.WriteString("    node [shape=box, style=rounded];\n")

	for _, id := range g.order {
		n := g.nodes[id]
		attrs := fmt.Sprintf("label=%q", n.Kind+"\n"+displayName(n))
		if !n.IsOutput() {
			attrs += ", shape=ellipse, style=filled, fillcolor=\"#90EE90\""
		}
		fmt.Fprintf(&sb, "    %q [%s];\n", id, attrs)
	}
	for _, e := range g.edges {
		fmt.Fprintf(&sb, "    %q -> %q;\n", e.From, e.To)
	}
	sb.WriteString("}\n")
	return sb.String()
}

func displayName(n Node) string {
	if n.IsOutput() {
		return n.Path
	}
	return n.Label
}
