package dialect

import "github.com/tsera-dev/tsera/pkg/entity"

var sqliteBase = base{
	types: map[entity.FieldType]string{
		entity.TypeString:   "TEXT",
		entity.TypeText:     "TEXT",
		entity.TypeInteger:  "INTEGER",
		entity.TypeNumber:   "REAL",
		entity.TypeBoolean:  "INTEGER",
		entity.TypeDate:     "TEXT",
		entity.TypeDatetime: "TEXT",
		entity.TypeUUID:     "TEXT",
		entity.TypeJSON:     "TEXT",
	},
	reserved: []string{
		"abort", "action", "add", "all", "alter", "and", "as", "asc", "between", "by",
		"case", "check", "collate", "column", "commit", "constraint", "create", "default",
		"delete", "desc", "distinct", "drop", "else", "end", "escape", "except", "exists",
		"from", "glob", "group", "having", "in", "index", "insert", "intersect", "into",
		"is", "join", "key", "like", "limit", "match", "not", "null", "of", "offset", "on",
		"or", "order", "primary", "references", "regexp", "select", "set", "table", "then",
		"to", "transaction", "union", "unique", "update", "using", "values", "when", "where",
	},
	open:  `"`,
	close: `"`,
}

// SQLite renders SQLite DDL.
type SQLite struct{}

func (SQLite) Name() string                         { return "sqlite" }
func (SQLite) ColumnType(t entity.FieldType) string { return sqliteBase.columnType(t) }
func (SQLite) Quote(ident string) string            { return sqliteBase.quote(ident) }

func (s SQLite) CreateTable(e entity.Entity) string {
	return sqliteBase.createTable(s, e)
}
