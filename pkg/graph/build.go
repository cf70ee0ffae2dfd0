// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"maps"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// BuildOptions configures Build.
type BuildOptions struct {
	// Version is the engine version recorded on the graph and used by the
	// planner when hashing node payloads.
	Version int
	// Shared holds project-level artifacts that belong to no entity, such as
	// an aggregate API document. They get the "project" slug and only the
	// edges listed in their DependsOn.
	Shared []Descriptor
}

type builder struct {
	nodes   map[string]*Node
	seq     []string
	index   map[string]int
	paths   map[string]string
	edges   map[Edge]struct{}
	pending []pendingDep
}

type pendingDep struct {
	from, to string
}

// Build constructs the graph for inputs. It fails with *ValidationError on
// malformed nodes or dangling references and with *CycleError when the
// dependency relation cannot be ordered.
func Build(inputs []Input, opts BuildOptions) (*Graph, error) {
	b := &builder{
		nodes: make(map[string]*Node),
		index: make(map[string]int),
		paths: make(map[string]string),
		edges: make(map[Edge]struct{}),
	}

	for _, in := range inputs {
		entityID, err := b.addEntity(in)
		if err != nil {
			return nil, err
		}
		slug := Slug(in.Name)
		for _, d := range in.Artifacts {
			if err := b.addArtifact(entityID, slug, d); err != nil {
				return nil, err
			}
		}
	}
	for _, d := range opts.Shared {
		if err := b.addArtifact("", ProjectSlug, d); err != nil {
			return nil, err
		}
	}

	if err := b.link(); err != nil {
		return nil, err
	}
	order, err := b.sort()
	if err != nil {
		return nil, err
	}
	return b.finish(opts.Version, order), nil
}

func (b *builder) add(n *Node) error {
	if _, exists := b.nodes[n.ID]; exists {
		return &ValidationError{NodeID: n.ID, Reason: "duplicate node id"}
	}
	b.index[n.ID] = len(b.seq)
	b.seq = append(b.seq, n.ID)
	b.nodes[n.ID] = n
	return nil
}

func (b *builder) addEntity(in Input) (string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", &ValidationError{Reason: "entity name is required"}
	}
	if Slug(name) == "" {
		return "", &ValidationError{NodeID: EntityID(name), Reason: "entity name has no usable characters"}
	}
	id := EntityID(name)
	if _, exists := b.nodes[id]; exists {
		return "", &ValidationError{NodeID: id, Reason: "duplicate entity"}
	}
	n := &Node{
		ID:    id,
		Kind:  EntityKind,
		Mode:  ModeInput,
		Label: name,
		Data:  maps.Clone(in.Data),
	}
	return id, b.add(n)
}

func (b *builder) addArtifact(entityID, slug string, d Descriptor) error {
	kind := strings.TrimSpace(d.Kind)
	switch {
	case kind == "":
		return &ValidationError{NodeID: entityID, Reason: "artifact kind is required"}
	case kind == EntityKind:
		return &ValidationError{NodeID: entityID, Reason: "artifact kind is reserved:", Ref: kind}
	case strings.Contains(kind, ":"):
		return &ValidationError{NodeID: entityID, Reason: "artifact kind must not contain ':':", Ref: kind}
	}

	clean, err := cleanPath(d.Path)
	if err != nil {
		err.NodeID = entityID
		return err
	}

	id := ArtifactID(kind, slug, clean)
	if owner, taken := b.paths[clean]; taken {
		return &ValidationError{NodeID: id, Reason: "path already produced by", Ref: owner}
	}

	label := d.Label
	if label == "" {
		label = clean
	}
	n := &Node{
		ID:      id,
		Kind:    kind,
		Mode:    ModeOutput,
		Path:    clean,
		Label:   label,
		Data:    maps.Clone(d.Data),
		Content: slices.Clone(d.Content),
	}
	if err := b.add(n); err != nil {
		return err
	}
	b.paths[clean] = id

	if entityID != "" {
		b.pending = append(b.pending, pendingDep{from: entityID, to: id})
	}
	for _, dep := range d.DependsOn {
		b.pending = append(b.pending, pendingDep{from: strings.TrimSpace(dep), to: id})
	}
	return nil
}

// link resolves every recorded dependency once all nodes exist, so that
// references across entities are legal regardless of input order.
func (b *builder) link() error {
	for _, p := range b.pending {
		if p.from == "" {
			return &ValidationError{NodeID: p.to, Reason: "empty dependency id"}
		}
		if p.from == p.to {
			return &CycleError{Cycle: []string{p.to, p.to}}
		}
		if _, ok := b.nodes[p.from]; !ok {
			return &ValidationError{NodeID: p.to, Reason: "depends on unknown node", Ref: p.from}
		}
		e := Edge{From: p.from, To: p.to}
		if _, dup := b.edges[e]; dup {
			continue
		}
		b.edges[e] = struct{}{}
		to := b.nodes[p.to]
		to.DependsOn = append(to.DependsOn, p.from)
	}
	for _, n := range b.nodes {
		sort.Strings(n.DependsOn)
	}
	return nil
}

func (b *builder) finish(version int, order []string) *Graph {
	g := &Graph{
		version:    version,
		nodes:      make(map[string]Node, len(b.nodes)),
		edges:      make([]Edge, 0, len(b.edges)),
		order:      order,
		dependents: make(map[string][]string),
	}
	for id, n := range b.nodes {
		g.nodes[id] = *n
	}
	for e := range b.edges {
		g.edges = append(g.edges, e)
		g.dependents[e.From] = append(g.dependents[e.From], e.To)
	}
	sort.Slice(g.edges, func(i, j int) bool {
		if g.edges[i].From != g.edges[j].From {
			return g.edges[i].From < g.edges[j].From
		}
		return g.edges[i].To < g.edges[j].To
	})
	for _, deps := range g.dependents {
		sort.Strings(deps)
	}
	return g
}

// cleanPath normalises a project-relative artifact path to forward slashes
// and rejects anything that would land outside the project directory.
func cleanPath(raw string) (string, *ValidationError) {
	p := strings.TrimSpace(strings.ReplaceAll(raw, "\\", "/"))
	if p == "" {
		return "", &ValidationError{Reason: "artifact path is required"}
	}
	if path.IsAbs(p) || filepath.VolumeName(p) != "" {
		return "", &ValidationError{Reason: "artifact path must be project-relative:", Ref: raw}
	}
	clean := path.Clean(p)
	if !filepath.IsLocal(filepath.FromSlash(clean)) {
		return "", &ValidationError{Reason: "artifact path escapes the project:", Ref: raw}
	}
	return clean, nil
}
