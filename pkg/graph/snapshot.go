package graph

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Snapshot is the serialisable view of a graph. Artifact content is left
// out; the snapshot is for inspection, not for rebuilding.
type Snapshot struct {
	Version int             `json:"version" yaml:"version"`
	Nodes   map[string]Node `json:"nodes" yaml:"nodes"`
	Edges   []Edge          `json:"edges" yaml:"edges"`
	Order   []string        `json:"order" yaml:"order"`
}

// Snapshot returns a copy of the graph suitable for serialisation.
func (g *Graph) Snapshot() Snapshot {
	nodes := make(map[string]Node, len(g.nodes))
	for id, n := range g.nodes {
		n = n.clone()
		n.Content = nil
		nodes[id] = n
	}
	return Snapshot{
		Version: g.version,
		Nodes:   nodes,
		Edges:   g.Edges(),
		Order:   g.OrderIDs(),
	}
}

// MarshalJSON serializes a graph snapshot to JSON. Use pretty for indented output.
func MarshalJSON(g *Graph, pretty bool) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("graph is nil")
	}
	if pretty {
		return json.MarshalIndent(g.Snapshot(), "", "  ")
	}
	return json.Marshal(g.Snapshot())
}

// MarshalYAML serializes a graph snapshot to YAML.
func MarshalYAML(g *Graph) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("graph is nil")
	}
	return yaml.Marshal(g.Snapshot())
}

// ParseSnapshotJSON loads a snapshot previously written by MarshalJSON.
func ParseSnapshotJSON(data []byte) (*Snapshot, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON payload")
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse json snapshot: %w", err)
	}
	return &s, nil
}
