// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package entity

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	tserrors "github.com/tsera-dev/tsera/pkg/errors"
)

// Extensions lists the file extensions LoadDir understands.
var Extensions = []string{".yaml", ".yml", ".json", ".hcl"}

type document struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Table       string     `yaml:"table"`
	Flags       *flagsDoc  `yaml:"flags"`
	Fields      []fieldDoc `yaml:"fields"`
}

type flagsDoc struct {
	Migration *bool `yaml:"migration"`
	Doc       *bool `yaml:"doc"`
	Test      *bool `yaml:"test"`
	OpenAPI   *bool `yaml:"openapi"`
}

type fieldDoc struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Optional    bool   `yaml:"optional"`
	Unique      bool   `yaml:"unique"`
	Default     any    `yaml:"default"`
	Description string `yaml:"description"`
}

// LoadDir reads every entity definition under dir in lexical path order.
// Entity names must be unique across files.
func LoadDir(dir string) ([]Entity, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, tserrors.New(tserrors.CodeNotFound, "entities directory not found", err).
				WithContext("dir", dir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, tserrors.New(tserrors.CodeInvalidInput, "entities path is not a directory", nil).
			WithContext("dir", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsDefinitionFile(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	var out []Entity
	seen := make(map[string]string)
	for _, file := range files {
		entities, err := LoadFile(file)
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			key := strings.ToLower(e.Name())
			if prev, dup := seen[key]; dup {
				return nil, tserrors.New(tserrors.CodeInvalidInput,
					fmt.Sprintf("entity %q defined twice", e.Name()), nil).
					WithContext("file", file).
					WithContext("previous", prev)
			}
			seen[key] = file
			out = append(out, e)
		}
	}
	return out, nil
}

// IsDefinitionFile reports whether path has an entity definition extension.
func IsDefinitionFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, known := range Extensions {
		if ext == known {
			return true
		}
	}
	return false
}

// LoadFile reads the entities defined in one file.
func LoadFile(path string) ([]Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		return ParseHCL(data, path)
	}
	return ParseYAML(data, path)
}

// ParseYAML decodes one or more YAML (or JSON) documents, one entity each.
func ParseYAML(data []byte, source string) ([]Entity, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var out []Entity
	for {
		var doc document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, tserrors.New(tserrors.CodeInvalidInput, "parse entity definition", err).
				WithContext("file", source)
		}
		e, err := doc.build(source)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, tserrors.New(tserrors.CodeInvalidInput, "no entity defined", nil).
			WithContext("file", source)
	}
	return out, nil
}

func (d document) build(source string) (Entity, error) {
	b := NewBuilder(d.Name).
		Description(d.Description).
		Table(d.Table).
		Flags(d.Flags.resolve()).
		Source(source)
	for _, f := range d.Fields {
		b.Field(Field{
			Name:        f.Name,
			Type:        FieldType(f.Type),
			Optional:    f.Optional,
			Unique:      f.Unique,
			Default:     f.Default,
			Description: f.Description,
		})
	}
	return b.Build()
}

func (f *flagsDoc) resolve() Flags {
	out := DefaultFlags()
	if f == nil {
		return out
	}
	pick := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	pick(&out.Migration, f.Migration)
	pick(&out.Doc, f.Doc)
	pick(&out.Test, f.Test)
	pick(&out.OpenAPI, f.OpenAPI)
	return out
}
