// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

// Package cdsync keeps CI workflow files in step with the project.
//
// Workflows are rendered from provider templates and tracked by content hash
// in .tsera/workflows-meta.json. A tracked file whose hash still matches the
// recorded one belongs to tsera and may be rewritten or removed; anything
// else on disk is the user's and is left alone unless Force is set.
package cdsync

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	tserrors "github.com/tsera-dev/tsera/pkg/errors"
	"github.com/tsera-dev/tsera/pkg/fsutil"
	"github.com/tsera-dev/tsera/pkg/hash"
	"github.com/tsera-dev/tsera/pkg/state"
)

// MetaFile is the name of the workflow metadata file inside state.Dir.
const MetaFile = "workflows-meta.json"

// Outcome classifies what happened to one workflow file.
type Outcome string

const (
	Created   Outcome = "created"
	Updated   Outcome = "updated"
	Unchanged Outcome = "unchanged"
	Skipped   Outcome = "skipped"  // tracked but modified locally
	Conflict  Outcome = "conflict" // untracked file with different content
	Removed   Outcome = "removed"
)

// Data is passed to the workflow templates.
type Data struct {
	ProjectName  string
	Module       string
	ToolVersion  string
	EntitiesDir  string
	OutputPrefix string // empty or ending in "/"
	Dialect      string
}

// Options configures Sync.
type Options struct {
	Provider string // github, gitlab
	// Dir overrides the provider's default workflow directory.
	Dir    string
	Force  bool
	DryRun bool
	Data   Data
}

// Change is the outcome for one project-relative path.
type Change struct {
	Path    string  `json:"path"`
	Outcome Outcome `json:"outcome"`
}

// Report lists changes in path order.
type Report struct {
	Provider string   `json:"provider"`
	Changes  []Change `json:"changes"`
}

// Count returns how many changes had outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, c := range r.Changes {
		if c.Outcome == o {
			n++
		}
	}
	return n
}

type workflow struct {
	name     string
	template string
}

type provider struct {
	dir       string
	workflows []workflow
}

var providers = map[string]provider{
	"github": {
		dir: ".github/workflows",
		workflows: []workflow{
			{"tsera-generate.yml", githubGenerateTemplate},
			{"tsera-migrations.yml", githubMigrationsTemplate},
		},
	},
	"gitlab": {
		dir: ".gitlab",
		workflows: []workflow{
			{"tsera.gitlab-ci.yml", gitlabTemplate},
		},
	},
}

// Providers lists the supported CI providers.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render returns the workflow files for opts keyed by project-relative path.
func Render(opts Options) (map[string][]byte, error) {
	p, ok := providers[strings.ToLower(opts.Provider)]
	if !ok {
		return nil, tserrors.New(tserrors.CodeConfig,
			fmt.Sprintf("unknown cd provider %q (want one of %s)", opts.Provider, strings.Join(Providers(), ", ")), nil)
	}
	dir := p.dir
	if opts.Dir != "" {
		dir = strings.ReplaceAll(opts.Dir, "\\", "/")
	}

	out := make(map[string][]byte, len(p.workflows))
	for _, w := range p.workflows {
		tmpl, err := template.New(w.name).Delims("[[", "]]").Option("missingkey=error").Parse(w.template)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", w.name, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, opts.Data); err != nil {
			return nil, fmt.Errorf("rendering %s: %w", w.name, err)
		}
		out[path.Join(dir, w.name)] = buf.Bytes()
	}
	return out, nil
}

// Sync renders the workflows and reconciles them with projectDir. The
// metadata file is written once, after every file was handled.
func Sync(projectDir string, opts Options) (*Report, error) {
	rendered, err := Render(opts)
	if err != nil {
		return nil, err
	}
	meta, err := ReadMeta(projectDir)
	if err != nil {
		return nil, err
	}

	report := &Report{Provider: strings.ToLower(opts.Provider), Changes: []Change{}}
	next := make(map[string]string, len(meta))

	paths := make([]string, 0, len(rendered))
	for p := range rendered {
		paths = append(paths, p)
	}
	for p := range meta {
		if _, ok := rendered[p]; !ok {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	for _, rel := range paths {
		target, ok := fsutil.WithinDir(projectDir, rel)
		if !ok {
			return nil, fmt.Errorf("cd sync: %s escapes the project directory", rel)
		}
		current, exists, err := fileHash(target)
		if err != nil {
			return nil, err
		}
		recorded, tracked := meta[rel]
		content, wanted := rendered[rel]

		var outcome Outcome
		if wanted {
			desired := sum(content)
			switch {
			case !exists:
				outcome = Created
			case current == desired:
				outcome = Unchanged
			case tracked && current == recorded, opts.Force:
				outcome = Updated
			case tracked:
				outcome = Skipped
			default:
				outcome = Conflict
			}
			switch outcome {
			case Created, Updated:
				if !opts.DryRun {
					if err := writeFile(target, content); err != nil {
						return nil, err
					}
				}
				next[rel] = desired
			case Unchanged:
				next[rel] = desired
			case Skipped:
				next[rel] = recorded
			}
		} else {
			switch {
			case !exists:
				outcome = Removed
			case current == recorded, opts.Force:
				outcome = Removed
				if !opts.DryRun {
					if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
						return nil, fmt.Errorf("removing %s: %w", rel, err)
					}
				}
			default:
				outcome = Skipped
			}
		}
		report.Changes = append(report.Changes, Change{Path: rel, Outcome: outcome})
	}

	if !opts.DryRun {
		if err := WriteMeta(projectDir, next); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// MetaPath returns the location of the workflow metadata file.
func MetaPath(projectDir string) string {
	return filepath.Join(projectDir, state.Dir, MetaFile)
}

// ReadMeta loads the tracked workflow hashes. A missing file is empty.
func ReadMeta(projectDir string) (map[string]string, error) {
	p := MetaPath(projectDir)
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	meta := map[string]string{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, tserrors.New(tserrors.CodeStateRead, "corrupt workflow metadata", err).WithContext("file", p)
	}
	return meta, nil
}

// WriteMeta replaces the tracked workflow hashes.
func WriteMeta(projectDir string, meta map[string]string) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(MetaPath(projectDir), append(data, '\n'))
}

func writeFile(target string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(target, data, 0o644)
}

func fileHash(p string) (string, bool, error) {
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return sum(data), true, nil
}

func sum(data []byte) string {
	return hash.Sum(data)
}
