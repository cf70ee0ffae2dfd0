// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

// Package scaffold generates new TSera projects.
package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"

	"github.com/tsera-dev/tsera/pkg/fsutil"
)

// Options configures project generation.
type Options struct {
	ProjectName string
	Template    string // minimal, blog
	Dialect     string // postgres, sqlite, mysql
	CIProvider  string // github, gitlab or empty
	Overwrite   bool
}

// Templates lists the project templates.
var Templates = []string{"minimal", "blog"}

type fileSpec struct {
	Path     string
	Template string
}

// Generate creates a project in dir and returns the files it wrote, relative
// to dir. Existing files are an error unless Overwrite is set.
func Generate(dir string, opts Options) ([]string, error) {
	if opts.Template == "" {
		opts.Template = "minimal"
	}
	if opts.Dialect == "" {
		opts.Dialect = "postgres"
	}
	files, err := filesFor(opts)
	if err != nil {
		return nil, err
	}

	if !opts.Overwrite {
		for _, f := range files {
			if _, err := os.Stat(filepath.Join(dir, f.Path)); !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%s already exists; use --overwrite to replace it", f.Path)
			}
		}
	}

	created := make([]string, 0, len(files))
	for _, f := range files {
		if err := generateFile(dir, f, opts); err != nil {
			return created, fmt.Errorf("generating %s: %w", f.Path, err)
		}
		created = append(created, f.Path)
	}
	return created, nil
}

func filesFor(opts Options) ([]fileSpec, error) {
	files := []fileSpec{
		{"tsera.config.yaml", configYAMLTemplate},
		{"tsera.config.dev.yaml", configDevYAMLTemplate},
		{".gitignore", gitignoreTemplate},
		{"README.md", readmeTemplate},
		{"entities/user.yaml", userEntityTemplate},
	}
	switch opts.Template {
	case "minimal":
	case "blog":
		files = append(files, fileSpec{"entities/post.hcl", postEntityTemplate})
	default:
		return nil, fmt.Errorf("unknown template %q", opts.Template)
	}
	return files, nil
}

func generateFile(dir string, spec fileSpec, opts Options) error {
	tmpl, err := template.New(spec.Path).Parse(spec.Template)
	if err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}
	path := filepath.Join(dir, spec.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, opts); err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}
