// Package dialect renders DDL for the supported SQL databases. A Dialect is
// chosen once from configuration and handed to the migration builder.
package dialect

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tsera-dev/tsera/pkg/entity"
	tserrors "github.com/tsera-dev/tsera/pkg/errors"
)

// Dialect renders identifiers and table definitions for one database.
type Dialect interface {
	Name() string
	ColumnType(t entity.FieldType) string
	Quote(ident string) string
	CreateTable(e entity.Entity) string
}

// Names lists the registered dialects.
func Names() []string {
	return []string{"mysql", "postgres", "sqlite"}
}

// For returns the dialect registered under name.
func For(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql":
		return Postgres{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "mysql":
		return MySQL{}, nil
	}
	return nil, tserrors.New(tserrors.CodeConfig,
		fmt.Sprintf("unknown database dialect %q (want one of %s)", name, strings.Join(Names(), ", ")), nil)
}

// base carries what the dialects have in common.
type base struct {
	types    map[entity.FieldType]string
	reserved []string
	open     string
	close    string
}

func (b base) columnType(t entity.FieldType) string {
	if ct, ok := b.types[t]; ok {
		return ct
	}
	return "TEXT"
}

// quote wraps ident only when it is reserved or not a plain lower-case
// identifier, so generated SQL stays readable.
func (b base) quote(ident string) string {
	if plainIdent(ident) && !slices.Contains(b.reserved, strings.ToLower(ident)) {
		return ident
	}
	escaped := strings.ReplaceAll(ident, b.close, b.close+b.close)
	return b.open + escaped + b.close
}

func plainIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func (b base) createTable(d Dialect, e entity.Entity) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %s (\n", d.Quote(e.Table()))

	fields := e.Fields()
	hasID := false
	for _, f := range fields {
		if strings.EqualFold(f.Name, "id") {
			hasID = true
		}
	}

	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		col := fmt.Sprintf("  %s %s", d.Quote(f.Name), d.ColumnType(f.Type))
		if hasID && strings.EqualFold(f.Name, "id") {
			col += " PRIMARY KEY"
		} else {
			if !f.Optional {
				col += " NOT NULL"
			}
			if f.Unique {
				col += " UNIQUE"
			}
		}
		if lit, ok := literal(f.Default); ok {
			col += " DEFAULT " + lit
		}
		lines = append(lines, col)
	}
	sb.WriteString(strings.Join(lines, ",\n"))
	sb.WriteString("\n);\n")
	return sb.String()
}

// literal renders scalar defaults. Structured defaults stay in application
// code.
func literal(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'", true
	case bool:
		if t {
			return "TRUE", true
		}
		return "FALSE", true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", t), true
	case float32, float64:
		return fmt.Sprintf("%v", t), true
	}
	return "", false
}
