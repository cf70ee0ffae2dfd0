// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

// Package state persists the record of the last successfully applied
// generation: for every output node, the hash, path and kind that were
// written. It also writes a diagnostic snapshot of the graph next to it.
package state

import (
	"maps"
	"sort"

	"github.com/google/uuid"

	"github.com/tsera-dev/tsera/pkg/hash"
)

// Entry is what was last applied for one node.
type Entry struct {
	Hash string `json:"hash"`
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// State maps node ids to their last applied entry. The zero value is the
// empty state of a first run.
type State map[string]Entry

// Clone returns an independent copy. Cloning nil yields an empty state.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	return maps.Clone(s)
}

// Equal reports whether both states record the same entries.
func (s State) Equal(other State) bool {
	return maps.Equal(s, other)
}

// IDs returns the node ids in lexicographic order.
func (s State) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// generationSpace namespaces generation ids.
var generationSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://tsera.dev/generation"))

// GenerationID returns a name-based UUID identifying the applied generation.
// Equal states always share an id.
func GenerationID(s State) (uuid.UUID, error) {
	canonical, err := hash.Canonical(s.Clone())
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.NewSHA1(generationSpace, canonical), nil
}
