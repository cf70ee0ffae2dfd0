// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

// Package entity models the declarative data definitions artifacts are
// generated from. An Entity is built once through a Builder and is
// read-only afterwards: accessors return copies.
package entity

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode"

	tserrors "github.com/tsera-dev/tsera/pkg/errors"
)

// FieldType is the logical type of a field.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeText     FieldType = "text"
	TypeInteger  FieldType = "integer"
	TypeNumber   FieldType = "number"
	TypeBoolean  FieldType = "boolean"
	TypeDate     FieldType = "date"
	TypeDatetime FieldType = "datetime"
	TypeUUID     FieldType = "uuid"
	TypeJSON     FieldType = "json"
)

var fieldTypes = []FieldType{
	TypeString, TypeText, TypeInteger, TypeNumber, TypeBoolean,
	TypeDate, TypeDatetime, TypeUUID, TypeJSON,
}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	return slices.Contains(fieldTypes, t)
}

// Field is one attribute of an entity.
type Field struct {
	Name        string
	Type        FieldType
	Optional    bool
	Unique      bool
	Default     any
	Description string
}

// Flags select which per-entity artifacts are generated.
type Flags struct {
	Migration bool `json:"migration" yaml:"migration"`
	Doc       bool `json:"doc" yaml:"doc"`
	Test      bool `json:"test" yaml:"test"`
	OpenAPI   bool `json:"openapi" yaml:"openapi"`
}

// DefaultFlags enables every artifact.
func DefaultFlags() Flags {
	return Flags{Migration: true, Doc: true, Test: true, OpenAPI: true}
}

// Entity is an immutable entity definition.
type Entity struct {
	name        string
	description string
	table       string
	fields      []Field
	flags       Flags
	source      string
}

// Name returns the entity name as declared.
func (e Entity) Name() string { return e.name }

// Description returns the free-form description.
func (e Entity) Description() string { return e.description }

// Table returns the database table name.
func (e Entity) Table() string { return e.table }

// Flags returns the artifact selection.
func (e Entity) Flags() Flags { return e.flags }

// Source returns the file the entity was loaded from, if any.
func (e Entity) Source() string { return e.source }

// Fields returns a copy of the fields in declaration order.
func (e Entity) Fields() []Field {
	out := slices.Clone(e.fields)
	for i := range out {
		out[i].Default = cloneValue(out[i].Default)
	}
	return out
}

// Field returns the field called name.
func (e Entity) Field(name string) (Field, bool) {
	for _, f := range e.fields {
		if f.Name == name {
			f.Default = cloneValue(f.Default)
			return f, true
		}
	}
	return Field{}, false
}

// Payload returns the entity as plain data. It is what graph input nodes
// carry and what artifact hashes ultimately depend on.
func (e Entity) Payload() map[string]any {
	fields := make([]any, 0, len(e.fields))
	for _, f := range e.fields {
		fm := map[string]any{
			"name":     f.Name,
			"type":     string(f.Type),
			"optional": f.Optional,
			"unique":   f.Unique,
		}
		if f.Default != nil {
			fm["default"] = cloneValue(f.Default)
		}
		if f.Description != "" {
			fm["description"] = f.Description
		}
		fields = append(fields, fm)
	}
	return map[string]any{
		"name":        e.name,
		"description": e.description,
		"table":       e.table,
		"fields":      fields,
		"flags": map[string]any{
			"migration": e.flags.Migration,
			"doc":       e.flags.Doc,
			"test":      e.flags.Test,
			"openapi":   e.flags.OpenAPI,
		},
	}
}

// Builder assembles an Entity.
type Builder struct {
	e    Entity
	errs []string
}

// NewBuilder starts an entity called name with every artifact enabled.
func NewBuilder(name string) *Builder {
	return &Builder{e: Entity{name: strings.TrimSpace(name), flags: DefaultFlags()}}
}

// Description sets the description.
func (b *Builder) Description(d string) *Builder {
	b.e.description = strings.TrimSpace(d)
	return b
}

// Table overrides the derived table name.
func (b *Builder) Table(name string) *Builder {
	b.e.table = strings.TrimSpace(name)
	return b
}

// Flags replaces the artifact selection.
func (b *Builder) Flags(f Flags) *Builder {
	b.e.flags = f
	return b
}

// Source records where the definition came from.
func (b *Builder) Source(path string) *Builder {
	b.e.source = path
	return b
}

// Field appends a field.
func (b *Builder) Field(f Field) *Builder {
	f.Name = strings.TrimSpace(f.Name)
	f.Type = FieldType(strings.ToLower(strings.TrimSpace(string(f.Type))))
	f.Default = cloneValue(f.Default)
	b.e.fields = append(b.e.fields, f)
	return b
}

var identifier = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Build validates the definition and returns the finished entity.
func (b *Builder) Build() (Entity, error) {
	e := b.e
	var problems []string
	if !identifier.MatchString(e.name) {
		problems = append(problems, fmt.Sprintf("entity name %q must start with a letter and contain only letters, digits or '_'", e.name))
	}
	if len(e.fields) == 0 {
		problems = append(problems, "at least one field is required")
	}
	seen := make(map[string]struct{}, len(e.fields))
	for _, f := range e.fields {
		if !identifier.MatchString(f.Name) {
			problems = append(problems, fmt.Sprintf("field name %q is not an identifier", f.Name))
		}
		if _, dup := seen[strings.ToLower(f.Name)]; dup {
			problems = append(problems, fmt.Sprintf("duplicate field %q", f.Name))
		}
		seen[strings.ToLower(f.Name)] = struct{}{}
		if !f.Type.Valid() {
			problems = append(problems, fmt.Sprintf("field %q has unknown type %q", f.Name, f.Type))
		}
	}
	if e.table == "" {
		e.table = TableName(e.name)
	} else if !identifier.MatchString(e.table) {
		problems = append(problems, fmt.Sprintf("table name %q is not an identifier", e.table))
	}

	if len(problems) > 0 {
		err := tserrors.New(tserrors.CodeInvalidInput,
			fmt.Sprintf("entity %q: %s", e.name, strings.Join(problems, "; ")), nil).
			WithContext("entity", e.name)
		if e.source != "" {
			err = err.WithContext("file", e.source)
		}
		return Entity{}, err
	}
	e.fields = slices.Clone(e.fields)
	return e, nil
}

// TableName derives a snake_case plural table name: "UserProfile" becomes
// "user_profiles".
func TableName(name string) string {
	var sb strings.Builder
	prevLower := false
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			prevLower = false
		case r == '-' || r == ' ':
			sb.WriteByte('_')
			prevLower = false
		default:
			sb.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	s := sb.String()
	switch {
	case strings.HasSuffix(s, "s"):
		return s
	case strings.HasSuffix(s, "y") && len(s) > 1 && !strings.ContainsRune("aeiou", rune(s[len(s)-2])):
		return s[:len(s)-1] + "ies"
	default:
		return s + "s"
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := maps.Clone(t)
		for k, val := range out {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := slices.Clone(t)
		for i, val := range out {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
