// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"fmt"

	"github.com/tsera-dev/tsera/pkg/artifact/dialect"
	"github.com/tsera-dev/tsera/pkg/graph"
	"github.com/tsera-dev/tsera/pkg/hash"
)

// MigrationBuilder emits migrations/<timestamp>_create_<table>.sql for
// entities with the migration flag set.
//
// The timestamp is derived from the DDL itself, salted with the entity slug,
// so regenerating an unchanged entity reproduces the same file name and a
// changed table gets a new one.
type MigrationBuilder struct {
	Dialect dialect.Dialect
}

func (MigrationBuilder) Kind() string { return KindMigration }

func (b MigrationBuilder) Build(ctx Context) ([]graph.Descriptor, error) {
	e := ctx.Entity
	if !e.Flags().Migration {
		return nil, nil
	}
	if b.Dialect == nil {
		return nil, fmt.Errorf("migration builder has no dialect")
	}

	ddl := b.Dialect.CreateTable(e)
	version := 1
	if ctx.Config != nil {
		version = ctx.Config.Engine.Version
	}
	slug := graph.Slug(e.Name())
	digest, err := hash.Hash(ddl, hash.Options{Version: version, Salt: slug})
	if err != nil {
		return nil, err
	}
	ts, err := hash.MigrationTimestamp(digest)
	if err != nil {
		return nil, err
	}

	content := fmt.Sprintf("-- %s: create %s (%s)\n\n%s", e.Name(), e.Table(), b.Dialect.Name(), ddl)
	return []graph.Descriptor{{
		Kind:    KindMigration,
		Path:    OutputPath(ctx.Config, fmt.Sprintf("migrations/%s_create_%s.sql", ts, e.Table())),
		Content: []byte(content),
		Label:   "create " + e.Table(),
		Data:    map[string]any{"dialect": b.Dialect.Name(), "table": e.Table()},
	}}, nil
}
