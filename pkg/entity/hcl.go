// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package entity

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	tserrors "github.com/tsera-dev/tsera/pkg/errors"
)

// hclRoot decodes the top-level blocks of an HCL definition file:
//
//	entity "User" {
//	  table = "users"
//	  field "email" {
//	    type   = "string"
//	    unique = true
//	  }
//	}
type hclRoot struct {
	Entities []*hclEntity `hcl:"entity,block"`
	Remain   hcl.Body     `hcl:",remain"`
}

type hclEntity struct {
	Name        string      `hcl:"name,label"`
	Description string      `hcl:"description,optional"`
	Table       string      `hcl:"table,optional"`
	Migration   *bool       `hcl:"migration,optional"`
	Doc         *bool       `hcl:"doc,optional"`
	Test        *bool       `hcl:"test,optional"`
	OpenAPI     *bool       `hcl:"openapi,optional"`
	Fields      []*hclField `hcl:"field,block"`
}

type hclField struct {
	Name        string    `hcl:"name,label"`
	Type        string    `hcl:"type"`
	Optional    bool      `hcl:"optional,optional"`
	Unique      bool      `hcl:"unique,optional"`
	Default     cty.Value `hcl:"default,optional"`
	Description string    `hcl:"description,optional"`
}

// ParseHCL decodes the entity blocks of an HCL file.
func ParseHCL(data []byte, source string) ([]Entity, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, source)
	if diags.HasErrors() {
		return nil, tserrors.New(tserrors.CodeInvalidInput, "parse HCL entity definition", diags).
			WithContext("file", source)
	}

	var root hclRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, tserrors.New(tserrors.CodeInvalidInput, "decode HCL entity definition", diags).
			WithContext("file", source)
	}
	if len(root.Entities) == 0 {
		return nil, tserrors.New(tserrors.CodeInvalidInput, "no entity defined", nil).
			WithContext("file", source)
	}

	out := make([]Entity, 0, len(root.Entities))
	for _, he := range root.Entities {
		flags := (&flagsDoc{Migration: he.Migration, Doc: he.Doc, Test: he.Test, OpenAPI: he.OpenAPI}).resolve()
		b := NewBuilder(he.Name).
			Description(he.Description).
			Table(he.Table).
			Flags(flags).
			Source(source)
		for _, hf := range he.Fields {
			def, err := ctyToNative(hf.Default)
			if err != nil {
				return nil, tserrors.New(tserrors.CodeInvalidInput,
					fmt.Sprintf("field %q: default", hf.Name), err).
					WithContext("file", source).
					WithContext("entity", he.Name)
			}
			b.Field(Field{
				Name:        hf.Name,
				Type:        FieldType(hf.Type),
				Optional:    hf.Optional,
				Unique:      hf.Unique,
				Default:     def,
				Description: hf.Description,
			})
		}
		e, err := b.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// ctyToNative converts a cty value to plain Go data. Whole numbers become
// int64 so defaults hash the same as their YAML counterparts.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("convert number: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		var b bool
		if err := gocty.FromCtyValue(v, &b); err != nil {
			return nil, fmt.Errorf("convert bool: %w", err)
		}
		return b, nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, val := it.Element()
			native, err := ctyToNative(val)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, val := it.Element()
			native, err := ctyToNative(val)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported type %s", ty.FriendlyName())
	}
}
