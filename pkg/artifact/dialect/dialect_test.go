package dialect

import (
	"strings"
	"testing"

	"github.com/tsera-dev/tsera/pkg/entity"
	tserrors "github.com/tsera-dev/tsera/pkg/errors"
)

func sampleEntity(t *testing.T) entity.Entity {
	t.Helper()
	e, err := entity.NewBuilder("Order").
		Field(entity.Field{Name: "id", Type: entity.TypeUUID}).
		Field(entity.Field{Name: "user", Type: entity.TypeString, Unique: true}).
		Field(entity.Field{Name: "total", Type: entity.TypeNumber, Default: 0}).
		Field(entity.Field{Name: "note", Type: entity.TypeText, Optional: true, Default: "it's"}).
		Build()
	if err != nil {
		t.Fatalf("build entity: %v", err)
	}
	return e
}

func TestFor(t *testing.T) {
	for _, name := range []string{"postgres", "PostgreSQL", "sqlite", "sqlite3", "mysql"} {
		d, err := For(name)
		if err != nil {
			t.Fatalf("For(%q): %v", name, err)
		}
		if d.Name() == "" {
			t.Fatalf("dialect without name")
		}
	}
	_, err := For("oracle")
	if tserrors.CodeOf(err) != tserrors.CodeConfig {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestQuoteReservedWords(t *testing.T) {
	tests := []struct {
		d    Dialect
		in   string
		want string
	}{
		{Postgres{}, "user", `"user"`},
		{Postgres{}, "email", "email"},
		{Postgres{}, "createdAt", `"createdAt"`},
		{SQLite{}, "order", `"order"`},
		{MySQL{}, "key", "`key`"},
		{MySQL{}, "odd`name", "`odd``name`"},
	}
	for _, tt := range tests {
		if got := tt.d.Quote(tt.in); got != tt.want {
			t.Errorf("%s.Quote(%q) = %s, want %s", tt.d.Name(), tt.in, got, tt.want)
		}
	}
}

func TestCreateTable(t *testing.T) {
	e := sampleEntity(t)

	got := Postgres{}.CreateTable(e)
	want := `CREATE TABLE IF NOT EXISTS orders (
  id UUID PRIMARY KEY,
  "user" VARCHAR(255) NOT NULL UNIQUE,
  total DOUBLE PRECISION NOT NULL DEFAULT 0,
  note TEXT DEFAULT 'it''s'
);
`
	if got != want {
		t.Fatalf("unexpected postgres DDL:\n%s", got)
	}

	if ddl := (SQLite{}).CreateTable(e); !strings.Contains(ddl, "id TEXT PRIMARY KEY") {
		t.Fatalf("unexpected sqlite DDL:\n%s", ddl)
	}
	if ddl := (MySQL{}).CreateTable(e); !strings.Contains(ddl, "id CHAR(36) PRIMARY KEY") {
		t.Fatalf("unexpected mysql DDL:\n%s", ddl)
	}
}
