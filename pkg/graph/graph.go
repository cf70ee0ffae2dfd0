// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

// Package graph builds the dependency graph of one engine cycle.
//
// Entities become input nodes; the artifacts produced for them become output
// nodes. Every artifact depends on its entity and on any node listed in its
// descriptor's DependsOn. A Graph is constructed once by Build and never
// mutated afterwards; accessors hand out copies.
package graph

import (
	"maps"
	"slices"
	"sort"
)

// Mode distinguishes source entities from generated artifacts.
type Mode string

const (
	// ModeInput marks an entity node. Inputs anchor edges and are never written.
	ModeInput Mode = "input"
	// ModeOutput marks a generated artifact.
	ModeOutput Mode = "output"
)

// EntityKind is the reserved kind of input nodes.
const EntityKind = "entity"

// ProjectSlug is the slug used for shared, project-level artifacts.
const ProjectSlug = "project"

// Descriptor describes one artifact to generate.
type Descriptor struct {
	Kind      string
	Path      string
	Content   []byte
	Label     string
	Data      map[string]any
	DependsOn []string
}

// Input is one entity together with the artifacts produced for it.
type Input struct {
	Name      string
	Data      map[string]any
	Artifacts []Descriptor
}

// Node is a vertex of the graph.
type Node struct {
	ID        string         `json:"id" yaml:"id"`
	Kind      string         `json:"kind" yaml:"kind"`
	Mode      Mode           `json:"mode" yaml:"mode"`
	Path      string         `json:"path,omitempty" yaml:"path,omitempty"`
	Label     string         `json:"label,omitempty" yaml:"label,omitempty"`
	Data      map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	DependsOn []string       `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	Content   []byte         `json:"-" yaml:"-"`
}

// IsOutput reports whether the node is a generated artifact.
func (n Node) IsOutput() bool {
	return n.Mode == ModeOutput
}

func (n Node) clone() Node {
	n.Data = maps.Clone(n.Data)
	n.DependsOn = slices.Clone(n.DependsOn)
	n.Content = slices.Clone(n.Content)
	return n
}

// Edge is a dependency: To requires From.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Graph is an immutable DAG of nodes with a topological order.
type Graph struct {
	version    int
	nodes      map[string]Node
	edges      []Edge
	order      []string
	dependents map[string][]string
}

// Version returns the engine version the graph was built for.
func (g *Graph) Version() int {
	return g.version
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// Nodes returns every node sorted by id.
func (g *Graph) Nodes() []Node {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.nodes[id].clone())
	}
	return out
}

// Edges returns the edges sorted by (from, to).
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// Order returns the nodes in topological order: every node appears after
// all nodes it depends on.
func (g *Graph) Order() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id].clone())
	}
	return out
}

// OrderIDs returns the node ids in topological order.
func (g *Graph) OrderIDs() []string {
	return slices.Clone(g.order)
}

// Outputs returns the output nodes in topological order.
func (g *Graph) Outputs() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		if n := g.nodes[id]; n.IsOutput() {
			out = append(out, n.clone())
		}
	}
	return out
}

// Dependents returns the ids of nodes that depend directly on id, sorted.
func (g *Graph) Dependents(id string) []string {
	return slices.Clone(g.dependents[id])
}
