// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

// Package artifact turns entities into artifact descriptors for the graph
// builder. Each Builder handles one kind of per-entity artifact; an
// AggregateBuilder produces project-level artifacts from every entity at once.
// Builders only render content. Nothing here touches the filesystem.
package artifact

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/tsera-dev/tsera/pkg/artifact/dialect"
	"github.com/tsera-dev/tsera/pkg/config"
	"github.com/tsera-dev/tsera/pkg/entity"
	tserrors "github.com/tsera-dev/tsera/pkg/errors"
	"github.com/tsera-dev/tsera/pkg/graph"
)

// Artifact kinds.
const (
	KindSchema    = "schema"
	KindMigration = "migration"
	KindDoc       = "doc"
	KindTest      = "test"
	KindOpenAPI   = "openapi"
)

// Context is what a builder sees for one entity.
type Context struct {
	Entity     entity.Entity
	Config     *config.Config
	ProjectDir string
}

// Builder produces the artifacts of one kind for a single entity.
type Builder interface {
	Kind() string
	Build(ctx Context) ([]graph.Descriptor, error)
}

// AggregateBuilder produces project-level artifacts from all entities.
type AggregateBuilder interface {
	Kind() string
	BuildAll(cfg *config.Config, entities []entity.Entity) ([]graph.Descriptor, error)
}

// Registry holds the builders enabled for a project.
type Registry struct {
	cfg        *config.Config
	projectDir string
	builders   []Builder
	aggregates []AggregateBuilder
}

// NewRegistry selects builders from the artifacts section of cfg. The
// migration builder gets the dialect named by db.dialect.
func NewRegistry(cfg *config.Config, projectDir string) (*Registry, error) {
	if cfg == nil {
		return nil, tserrors.New(tserrors.CodeConfig, "artifact registry needs a configuration", nil)
	}
	r := &Registry{cfg: cfg, projectDir: projectDir}
	a := cfg.Artifacts
	if a.Schema {
		r.builders = append(r.builders, SchemaBuilder{})
	}
	if a.Migration {
		d, err := dialect.For(cfg.DB.Dialect)
		if err != nil {
			return nil, err
		}
		r.builders = append(r.builders, MigrationBuilder{Dialect: d})
	}
	if a.Doc {
		r.builders = append(r.builders, DocBuilder{})
	}
	if a.Test {
		r.builders = append(r.builders, TestBuilder{})
	}
	if a.OpenAPI {
		r.aggregates = append(r.aggregates, OpenAPIBuilder{})
	}
	return r, nil
}

// Register appends a custom per-entity builder.
func (r *Registry) Register(b Builder) {
	r.builders = append(r.builders, b)
}

// RegisterAggregate appends a custom project-level builder.
func (r *Registry) RegisterAggregate(b AggregateBuilder) {
	r.aggregates = append(r.aggregates, b)
}

// Kinds lists the enabled artifact kinds in build order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.builders)+len(r.aggregates))
	for _, b := range r.builders {
		kinds = append(kinds, b.Kind())
	}
	for _, b := range r.aggregates {
		kinds = append(kinds, b.Kind())
	}
	return kinds
}

// Produce runs every builder over entities. It returns one graph input per
// entity, in the given order, plus the shared project-level descriptors.
func (r *Registry) Produce(ctx context.Context, entities []entity.Entity) ([]graph.Input, []graph.Descriptor, error) {
	inputs := make([]graph.Input, 0, len(entities))
	for _, e := range entities {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		in := graph.Input{Name: e.Name(), Data: e.Payload()}
		bctx := Context{Entity: e, Config: r.cfg, ProjectDir: r.projectDir}
		for _, b := range r.builders {
			ds, err := b.Build(bctx)
			if err != nil {
				return nil, nil, fmt.Errorf("%s artifact for %s: %w", b.Kind(), e.Name(), err)
			}
			in.Artifacts = append(in.Artifacts, ds...)
		}
		inputs = append(inputs, in)
	}

	var shared []graph.Descriptor
	for _, b := range r.aggregates {
		ds, err := b.BuildAll(r.cfg, entities)
		if err != nil {
			return nil, nil, fmt.Errorf("%s artifact: %w", b.Kind(), err)
		}
		shared = append(shared, ds...)
	}
	return inputs, shared, nil
}

// OutputPath joins rel under the configured output prefix.
func OutputPath(cfg *config.Config, rel string) string {
	prefix := ""
	if cfg != nil {
		prefix = strings.TrimSpace(strings.ReplaceAll(cfg.Paths.Output, "\\", "/"))
	}
	if prefix == "" || prefix == "." {
		return path.Clean(rel)
	}
	return path.Join(prefix, rel)
}

// SchemaPath returns the project-relative path of an entity's JSON Schema.
func SchemaPath(cfg *config.Config, e entity.Entity) string {
	return OutputPath(cfg, "schemas/"+graph.Slug(e.Name())+".schema.json")
}

// SchemaID returns the graph node id of an entity's JSON Schema.
func SchemaID(cfg *config.Config, e entity.Entity) string {
	return graph.ArtifactID(KindSchema, graph.Slug(e.Name()), SchemaPath(cfg, e))
}

func schemaEnabled(cfg *config.Config) bool {
	return cfg != nil && cfg.Artifacts.Schema
}
