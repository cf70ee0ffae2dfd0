// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	tserrors "github.com/tsera-dev/tsera/pkg/errors"
	"github.com/tsera-dev/tsera/pkg/fsutil"
	"github.com/tsera-dev/tsera/pkg/graph"
	"github.com/tsera-dev/tsera/pkg/hash"
)

const (
	// Dir is the project-local directory holding engine state.
	Dir = ".tsera"
	// ManifestFile holds the applied state.
	ManifestFile = "manifest.json"
	// GraphFile holds the diagnostic graph snapshot.
	GraphFile = "graph.json"
)

// ReadError reports a manifest that exists but cannot be used.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("state: read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ErrorCode implements errors.Coded.
func (e *ReadError) ErrorCode() tserrors.ErrorCode {
	return tserrors.CodeStateRead
}

// ManifestPath returns the manifest location for a project.
func ManifestPath(projectDir string) string {
	return filepath.Join(projectDir, Dir, ManifestFile)
}

// GraphPath returns the graph snapshot location for a project.
func GraphPath(projectDir string) string {
	return filepath.Join(projectDir, Dir, GraphFile)
}

// Read loads the manifest of projectDir. A missing directory or file is a
// first run and yields an empty state; anything else that cannot be parsed
// as a manifest is a *ReadError.
func Read(projectDir string) (State, error) {
	path := ManifestPath(projectDir)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	s, err := decode(data)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	return s, nil
}

func decode(data []byte) (State, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("manifest is not a JSON object")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, err
	}
	s := make(State, len(raw))
	for id, msg := range raw {
		var e Entry
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil, fmt.Errorf("entry %q: %w", id, err)
		}
		switch {
		case !hash.IsDigest(e.Hash):
			return nil, fmt.Errorf("entry %q: hash is not a sha256 hex digest", id)
		case e.Path == "":
			return nil, fmt.Errorf("entry %q: path is required", id)
		case e.Kind == "":
			return nil, fmt.Errorf("entry %q: kind is required", id)
		}
		s[id] = e
	}
	return s, nil
}

// Write replaces the manifest of projectDir with s.
func Write(projectDir string, s State) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	return writeFile(ManifestPath(projectDir), data)
}

func encode(s State) ([]byte, error) {
	if s == nil {
		s = State{}
	}
	// encoding/json sorts map keys.
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("state: encode manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteGraphSnapshot records g for inspection. Planning never reads it.
func WriteGraphSnapshot(projectDir string, g *graph.Graph) error {
	data, err := graph.MarshalJSON(g, true)
	if err != nil {
		return fmt.Errorf("state: encode graph snapshot: %w", err)
	}
	return writeFile(GraphPath(projectDir), append(data, '\n'))
}

// ReadGraphSnapshot loads the last snapshot, or nil when none was written.
func ReadGraphSnapshot(projectDir string) (*graph.Snapshot, error) {
	data, err := os.ReadFile(GraphPath(projectDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return graph.ParseSnapshotJSON(data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("state: create %s: %w", filepath.Dir(path), err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("state: write %s: %w", path, err)
	}
	return nil
}
