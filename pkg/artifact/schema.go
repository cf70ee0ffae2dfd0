package artifact

import (
	"encoding/json"

	"github.com/tsera-dev/tsera/pkg/entity"
	"github.com/tsera-dev/tsera/pkg/graph"
)

const jsonSchemaDialect = "https://json-schema.org/draft/2020-12/schema"

// Schema is the subset of JSON Schema tsera emits. It is shared by the
// standalone schema files and the OpenAPI components.
type Schema struct {
	Schema               string             `json:"$schema,omitempty" yaml:"-"`
	ID                   string             `json:"$id,omitempty" yaml:"-"`
	Ref                  string             `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Title                string             `json:"title,omitempty" yaml:"title,omitempty"`
	Type                 string             `json:"type,omitempty" yaml:"type,omitempty"`
	Format               string             `json:"format,omitempty" yaml:"format,omitempty"`
	Description          string             `json:"description,omitempty" yaml:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items                *Schema            `json:"items,omitempty" yaml:"items,omitempty"`
	Required             []string           `json:"required,omitempty" yaml:"required,omitempty"`
	Default              any                `json:"default,omitempty" yaml:"default,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
}

// SchemaBuilder emits schemas/<slug>.schema.json.
type SchemaBuilder struct{}

func (SchemaBuilder) Kind() string { return KindSchema }

func (SchemaBuilder) Build(ctx Context) ([]graph.Descriptor, error) {
	s := EntitySchema(ctx.Entity)
	s.Schema = jsonSchemaDialect
	s.ID = graph.Slug(ctx.Entity.Name())

	content, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	content = append(content, '\n')

	return []graph.Descriptor{{
		Kind:    KindSchema,
		Path:    SchemaPath(ctx.Config, ctx.Entity),
		Content: content,
		Label:   ctx.Entity.Name() + " schema",
		Data:    map[string]any{"fields": len(s.Properties), "required": len(s.Required)},
	}}, nil
}

// EntitySchema describes e as a closed JSON object.
func EntitySchema(e entity.Entity) *Schema {
	closed := false
	s := &Schema{
		Title:                e.Name(),
		Type:                 "object",
		Description:          e.Description(),
		Properties:           make(map[string]*Schema),
		AdditionalProperties: &closed,
	}
	for _, f := range e.Fields() {
		prop := fieldSchema(f.Type)
		prop.Description = f.Description
		prop.Default = f.Default
		s.Properties[f.Name] = prop
		if !f.Optional {
			s.Required = append(s.Required, f.Name)
		}
	}
	return s
}

func fieldSchema(t entity.FieldType) *Schema {
	switch t {
	case entity.TypeInteger:
		return &Schema{Type: "integer"}
	case entity.TypeNumber:
		return &Schema{Type: "number"}
	case entity.TypeBoolean:
		return &Schema{Type: "boolean"}
	case entity.TypeDate:
		return &Schema{Type: "string", Format: "date"}
	case entity.TypeDatetime:
		return &Schema{Type: "string", Format: "date-time"}
	case entity.TypeUUID:
		return &Schema{Type: "string", Format: "uuid"}
	case entity.TypeJSON:
		// any JSON value
		return &Schema{}
	default:
		return &Schema{Type: "string"}
	}
}
