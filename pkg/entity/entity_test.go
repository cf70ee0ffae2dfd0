// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package entity

import (
	"os"
	"path/filepath"
	"testing"

	tserrors "github.com/tsera-dev/tsera/pkg/errors"
)

func TestBuilder(t *testing.T) {
	e, err := NewBuilder("UserProfile").
		Description("A user").
		Field(Field{Name: "id", Type: TypeUUID}).
		Field(Field{Name: "email", Type: "String", Unique: true}).
		Field(Field{Name: "tags", Type: TypeJSON, Optional: true, Default: []any{"a"}}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if e.Name() != "UserProfile" || e.Table() != "user_profiles" {
		t.Fatalf("unexpected entity %q table %q", e.Name(), e.Table())
	}
	if f, ok := e.Field("email"); !ok || f.Type != TypeString || !f.Unique {
		t.Fatalf("unexpected email field %+v", f)
	}
	if e.Flags() != DefaultFlags() {
		t.Fatalf("expected default flags, got %+v", e.Flags())
	}
}

func TestEntityIsImmutable(t *testing.T) {
	b := NewBuilder("User").Field(Field{Name: "tags", Type: TypeJSON, Default: []any{"a"}})
	e, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	b.Field(Field{Name: "extra", Type: TypeString})

	fields := e.Fields()
	fields[0].Name = "mutated"
	fields[0].Default.([]any)[0] = "b"

	if len(e.Fields()) != 1 {
		t.Fatalf("builder changes after Build must not leak into the entity")
	}
	f, _ := e.Field("tags")
	if f.Default.([]any)[0] != "a" {
		t.Fatalf("entity default was mutated through a copy")
	}
}

func TestBuilderValidation(t *testing.T) {
	tests := map[string]*Builder{
		"bad name":        NewBuilder("9user").Field(Field{Name: "id", Type: TypeUUID}),
		"no fields":       NewBuilder("User"),
		"unknown type":    NewBuilder("User").Field(Field{Name: "id", Type: "varchar"}),
		"duplicate field": NewBuilder("User").Field(Field{Name: "id", Type: TypeUUID}).Field(Field{Name: "ID", Type: TypeUUID}),
		"bad field name":  NewBuilder("User").Field(Field{Name: "first name", Type: TypeString}),
		"bad table":       NewBuilder("User").Table("users;drop").Field(Field{Name: "id", Type: TypeUUID}),
	}
	for name, b := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := b.Build()
			if tserrors.CodeOf(err) != tserrors.CodeInvalidInput {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestTableName(t *testing.T) {
	tests := map[string]string{
		"User":        "users",
		"UserProfile": "user_profiles",
		"Category":    "categories",
		"Day":         "days",
		"Address":     "address",
		"blog-post":   "blog_posts",
	}
	for in, want := range tests {
		if got := TableName(in); got != want {
			t.Errorf("TableName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPayload(t *testing.T) {
	e, err := NewBuilder("User").
		Field(Field{Name: "age", Type: TypeInteger, Default: 18}).
		Flags(Flags{Doc: true}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	p := e.Payload()
	fields := p["fields"].([]any)
	if len(fields) != 1 || fields[0].(map[string]any)["default"] != 18 {
		t.Fatalf("unexpected fields payload %v", fields)
	}
	flags := p["flags"].(map[string]any)
	if flags["doc"] != true || flags["migration"] != false {
		t.Fatalf("unexpected flags payload %v", flags)
	}
}

const userYAML = `name: User
description: Registered user
fields:
  - name: id
    type: uuid
  - name: email
    type: string
    unique: true
  - name: age
    type: integer
    optional: true
    default: 18
flags:
  test: false
`

const postJSON = `{"name": "Post", "fields": [{"name": "title", "type": "text"}]}`

const commentHCL = `
entity "Comment" {
  description = "A comment"
  table       = "post_comments"
  openapi     = false

  field "body" {
    type = "text"
  }
  field "score" {
    type    = "integer"
    default = 1
  }
  field "meta" {
    type     = "json"
    optional = true
    default  = { tags = ["a", "b"], pinned = false }
  }
}
`

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"user.yaml":          userYAML,
		"post.json":          postJSON,
		"nested/comment.hcl": commentHCL,
		"README.md":          "ignored",
		".hidden/skip.yaml":  "not: [valid",
	})

	entities, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entities) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(entities))
	}
	// Lexical path order: nested/comment.hcl, post.json, user.yaml.
	names := []string{entities[0].Name(), entities[1].Name(), entities[2].Name()}
	if names[0] != "Comment" || names[1] != "Post" || names[2] != "User" {
		t.Fatalf("unexpected order %v", names)
	}

	comment := entities[0]
	if comment.Table() != "post_comments" || comment.Flags().OpenAPI || !comment.Flags().Doc {
		t.Fatalf("unexpected comment entity: table %q flags %+v", comment.Table(), comment.Flags())
	}
	score, _ := comment.Field("score")
	if score.Default != int64(1) {
		t.Fatalf("expected integer default, got %#v", score.Default)
	}
	meta, _ := comment.Field("meta")
	m, ok := meta.Default.(map[string]any)
	if !ok || m["pinned"] != false || len(m["tags"].([]any)) != 2 {
		t.Fatalf("unexpected object default %#v", meta.Default)
	}

	user := entities[2]
	if user.Flags().Test || !user.Flags().Migration {
		t.Fatalf("unexpected user flags %+v", user.Flags())
	}
	if age, _ := user.Field("age"); age.Default != 18 || !age.Optional {
		t.Fatalf("unexpected age field %+v", age)
	}
	if user.Source() != filepath.Join(dir, "user.yaml") {
		t.Fatalf("unexpected source %q", user.Source())
	}
}

func TestLoadDirErrors(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "missing")); tserrors.CodeOf(err) != tserrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.yaml": userYAML,
		"b.yaml": userYAML,
	})
	if _, err := LoadDir(dir); tserrors.CodeOf(err) != tserrors.CodeInvalidInput {
		t.Fatalf("expected duplicate entity error, got %v", err)
	}
}

func TestParseYAMLRejectsUnknownKeys(t *testing.T) {
	_, err := ParseYAML([]byte("name: User\ncolumns: []\n"), "user.yaml")
	if tserrors.CodeOf(err) != tserrors.CodeInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestParseYAMLMultiDocument(t *testing.T) {
	data := userYAML + "---\n" + "name: Tag\nfields:\n  - name: label\n    type: string\n"
	entities, err := ParseYAML([]byte(data), "all.yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entities) != 2 || entities[1].Name() != "Tag" {
		t.Fatalf("unexpected entities %v", entities)
	}
}

func TestParseHCLErrors(t *testing.T) {
	for name, src := range map[string]string{
		"syntax":    `entity "User" {`,
		"no entity": `other "x" {}`,
		"bad type":  `entity "User" { field "id" { type = "nope" } }`,
		"no type":   `entity "User" { field "id" {} }`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseHCL([]byte(src), "x.hcl"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
