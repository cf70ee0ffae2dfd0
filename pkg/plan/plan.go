// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

// Package plan diffs a freshly built graph against the last applied state.
//
// Every output node is hashed and classified as create, update or noop;
// ids that were applied before but are no longer produced become deletes.
// Input nodes are never planned. Compute is a pure function: the same graph
// and state always yield the same steps in the same order.
package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"sort"

	"github.com/tsera-dev/tsera/pkg/graph"
	"github.com/tsera-dev/tsera/pkg/hash"
	"github.com/tsera-dev/tsera/pkg/state"
)

// Action classifies a step.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionNoop   Action = "noop"
)

// Step is one planned change.
type Step struct {
	Action Action     `json:"action"`
	Node   graph.Node `json:"node"`
	// Hash is the current content hash. Delete steps carry the hash that
	// was last applied.
	Hash         string `json:"hash"`
	PreviousHash string `json:"previousHash,omitempty"`
	// Retain is set on deletes whose path is written by another node of the
	// same plan. Only the state entry is dropped; the file stays.
	Retain bool `json:"retain,omitempty"`
}

// Summary counts steps by action. Total counts every classified output,
// including noops that were not listed.
type Summary struct {
	Create  int  `json:"create"`
	Update  int  `json:"update"`
	Delete  int  `json:"delete"`
	Noop    int  `json:"noop"`
	Total   int  `json:"total"`
	Changed bool `json:"changed"`
}

// Plan is the ordered list of steps needed to bring disk in line with a graph.
type Plan struct {
	Version int     `json:"version"`
	Steps   []Step  `json:"steps"`
	Summary Summary `json:"summary"`
}

// Options tunes Compute.
type Options struct {
	// IncludeUnchanged lists noop steps in Steps. They are counted either way.
	IncludeUnchanged bool
}

// Compute classifies every output node of g against prev.
func Compute(g *graph.Graph, prev state.State, opts Options) (*Plan, error) {
	if g == nil {
		return nil, fmt.Errorf("plan: graph is nil")
	}
	p := &Plan{Version: g.Version(), Steps: []Step{}}
	seen := make(map[string]struct{})
	owned := make(map[string]struct{})

	for _, n := range g.Outputs() {
		seen[n.ID] = struct{}{}
		owned[path.Clean(n.Path)] = struct{}{}
		current, err := NodeHash(n, g.Version())
		if err != nil {
			return nil, fmt.Errorf("plan: node %q: %w", n.ID, err)
		}

		step := Step{Node: n, Hash: current}
		entry, applied := prev[n.ID]
		switch {
		case !applied:
			step.Action = ActionCreate
		case entry.Hash != current:
			step.Action = ActionUpdate
			step.PreviousHash = entry.Hash
		default:
			step.Action = ActionNoop
			step.PreviousHash = entry.Hash
		}
		p.count(step.Action)
		if step.Action != ActionNoop || opts.IncludeUnchanged {
			p.Steps = append(p.Steps, step)
		}
	}

	orphans := make([]string, 0)
	for id := range prev {
		if _, ok := seen[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		entry := prev[id]
		_, retain := owned[path.Clean(entry.Path)]
		p.Steps = append(p.Steps, Step{
			Action:       ActionDelete,
			Node:         graph.Node{ID: id, Kind: entry.Kind, Mode: graph.ModeOutput, Path: entry.Path, Label: entry.Path},
			Hash:         entry.Hash,
			PreviousHash: entry.Hash,
			Retain:       retain,
		})
		p.count(ActionDelete)
	}

	p.Summary.Changed = p.Summary.Create+p.Summary.Update+p.Summary.Delete > 0
	return p, nil
}

func (p *Plan) count(a Action) {
	switch a {
	case ActionCreate:
		p.Summary.Create++
	case ActionUpdate:
		p.Summary.Update++
	case ActionDelete:
		p.Summary.Delete++
	case ActionNoop:
		p.Summary.Noop++
	}
	p.Summary.Total++
}

// NodeHash returns the content hash of an output node. The id is not part
// of the payload; label and dependency edges are reporting metadata and do
// not invalidate an artifact.
func NodeHash(n graph.Node, version int) (string, error) {
	data := n.Data
	if data == nil {
		data = map[string]any{}
	}
	content := n.Content
	if content == nil {
		content = []byte{}
	}
	return hash.Hash(map[string]any{
		"kind":    n.Kind,
		"path":    n.Path,
		"content": content,
		"data":    data,
	}, hash.Options{Version: version})
}

// Changed returns the steps that touch disk.
func (p *Plan) Changed() []Step {
	out := make([]Step, 0, len(p.Steps))
	for _, s := range p.Steps {
		if s.Action != ActionNoop {
			out = append(out, s)
		}
	}
	return out
}

// Fingerprint returns a digest of the ordered (action, id, hash) tuples.
// Two plans with the same fingerprint perform the same work in the same order.
func (p *Plan) Fingerprint() string {
	if p == nil {
		return ""
	}
	h := sha256.New()
	writeField := func(data string) {
		n := uint64(len(data))
		h.Write([]byte{
			byte(n >> 56), byte(n >> 48), byte(n >> 40), byte(n >> 32),
			byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n),
		})
		h.Write([]byte(data))
	}

	writeField(fmt.Sprint(len(p.Steps)))
	for _, s := range p.Steps {
		writeField(string(s.Action))
		writeField(s.Node.ID)
		writeField(s.Hash)
		if s.Retain {
			writeField("retain")
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
