// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"bytes"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/tsera-dev/tsera/pkg/config"
	"github.com/tsera-dev/tsera/pkg/entity"
	"github.com/tsera-dev/tsera/pkg/graph"
)

const openAPIVersion = "3.1.0"

// OpenAPISpec is the OpenAPI 3.1 document rendered for the project.
type OpenAPISpec struct {
	OpenAPI    string               `json:"openapi" yaml:"openapi"`
	Info       OpenAPIInfo          `json:"info" yaml:"info"`
	Paths      map[string]*PathItem `json:"paths" yaml:"paths"`
	Components Components           `json:"components" yaml:"components"`
}

// OpenAPIInfo contains API metadata.
type OpenAPIInfo struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string `json:"version" yaml:"version"`
}

// Components holds reusable schemas, one per entity.
type Components struct {
	Schemas map[string]*Schema `json:"schemas" yaml:"schemas"`
}

// PathItem represents operations on a path.
type PathItem struct {
	Get    *Operation `json:"get,omitempty" yaml:"get,omitempty"`
	Post   *Operation `json:"post,omitempty" yaml:"post,omitempty"`
	Delete *Operation `json:"delete,omitempty" yaml:"delete,omitempty"`
}

// Operation represents an API operation.
type Operation struct {
	OperationID string              `json:"operationId" yaml:"operationId"`
	Summary     string              `json:"summary,omitempty" yaml:"summary,omitempty"`
	Tags        []string            `json:"tags,omitempty" yaml:"tags,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses" yaml:"responses"`
}

// Parameter represents an operation parameter.
type Parameter struct {
	Name     string  `json:"name" yaml:"name"`
	In       string  `json:"in" yaml:"in"` // query, path, header, cookie
	Required bool    `json:"required" yaml:"required"`
	Schema   *Schema `json:"schema" yaml:"schema"`
}

// RequestBody represents a request body.
type RequestBody struct {
	Required bool                 `json:"required" yaml:"required"`
	Content  map[string]MediaType `json:"content" yaml:"content"`
}

// MediaType represents content type details.
type MediaType struct {
	Schema *Schema `json:"schema" yaml:"schema"`
}

// Response represents an API response.
type Response struct {
	Description string               `json:"description" yaml:"description"`
	Content     map[string]MediaType `json:"content,omitempty" yaml:"content,omitempty"`
}

// OpenAPIBuilder emits the project-wide openapi.yaml covering every entity
// with the openapi flag set. It depends on the schema nodes of those
// entities when schemas are generated.
type OpenAPIBuilder struct{}

func (OpenAPIBuilder) Kind() string { return KindOpenAPI }

func (OpenAPIBuilder) BuildAll(cfg *config.Config, entities []entity.Entity) ([]graph.Descriptor, error) {
	doc := OpenAPISpec{
		OpenAPI:    openAPIVersion,
		Info:       OpenAPIInfo{Title: "api", Version: "0.1.0"},
		Paths:      make(map[string]*PathItem),
		Components: Components{Schemas: make(map[string]*Schema)},
	}
	if cfg != nil {
		doc.Info.Title = cfg.Project.Name
		doc.Info.Version = cfg.Project.Version
	}

	var deps, names []string
	for _, e := range entities {
		if !e.Flags().OpenAPI {
			continue
		}
		names = append(names, e.Name())
		doc.Components.Schemas[e.Name()] = EntitySchema(e)
		addEntityPaths(doc.Paths, e)
		if schemaEnabled(cfg) {
			deps = append(deps, SchemaID(cfg, e))
		}
	}
	if len(names) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	return []graph.Descriptor{{
		Kind:      KindOpenAPI,
		Path:      OutputPath(cfg, "openapi.yaml"),
		Content:   buf.Bytes(),
		Label:     "OpenAPI",
		Data:      map[string]any{"entities": names},
		DependsOn: deps,
	}}, nil
}

func addEntityPaths(paths map[string]*PathItem, e entity.Entity) {
	name := e.Name()
	ref := &Schema{Ref: "#/components/schemas/" + name}
	jsonBody := map[string]MediaType{"application/json": {Schema: ref}}
	tags := []string{name}

	paths["/"+e.Table()] = &PathItem{
		Get: &Operation{
			OperationID: "list" + exported(name),
			Summary:     "List " + name + " records",
			Tags:        tags,
			Responses: map[string]Response{
				"200": {
					Description: "OK",
					Content:     map[string]MediaType{"application/json": {Schema: &Schema{Type: "array", Items: ref}}},
				},
			},
		},
		Post: &Operation{
			OperationID: "create" + exported(name),
			Summary:     "Create a " + name,
			Tags:        tags,
			RequestBody: &RequestBody{Required: true, Content: jsonBody},
			Responses: map[string]Response{
				"201": {Description: "Created", Content: jsonBody},
				"400": {Description: "Invalid payload"},
			},
		},
	}

	id, ok := e.Field("id")
	if !ok {
		return
	}
	param := []Parameter{{Name: "id", In: "path", Required: true, Schema: fieldSchema(id.Type)}}
	paths["/"+e.Table()+"/{id}"] = &PathItem{
		Get: &Operation{
			OperationID: "get" + exported(name),
			Summary:     "Fetch a " + name + " by id",
			Tags:        tags,
			Parameters:  param,
			Responses: map[string]Response{
				"200": {Description: "OK", Content: jsonBody},
				"404": {Description: "Not found"},
			},
		},
		Delete: &Operation{
			OperationID: "delete" + exported(name),
			Summary:     "Delete a " + name,
			Tags:        tags,
			Parameters:  param,
			Responses: map[string]Response{
				"204": {Description: "Deleted"},
				"404": {Description: "Not found"},
			},
		},
	}
}

func exported(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}
