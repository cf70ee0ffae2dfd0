package dialect

import "github.com/tsera-dev/tsera/pkg/entity"

var postgresBase = base{
	types: map[entity.FieldType]string{
		entity.TypeString:   "VARCHAR(255)",
		entity.TypeText:     "TEXT",
		entity.TypeInteger:  "BIGINT",
		entity.TypeNumber:   "DOUBLE PRECISION",
		entity.TypeBoolean:  "BOOLEAN",
		entity.TypeDate:     "DATE",
		entity.TypeDatetime: "TIMESTAMPTZ",
		entity.TypeUUID:     "UUID",
		entity.TypeJSON:     "JSONB",
	},
	reserved: []string{
		"all", "analyse", "analyze", "and", "any", "array", "as", "asc", "authorization",
		"both", "case", "cast", "check", "collate", "column", "constraint", "create",
		"current_date", "current_time", "current_timestamp", "current_user", "default",
		"desc", "distinct", "do", "else", "end", "except", "false", "for", "foreign",
		"from", "grant", "group", "having", "in", "initially", "intersect", "into",
		"leading", "limit", "localtime", "not", "null", "offset", "on", "only", "or",
		"order", "placing", "primary", "references", "returning", "select", "session_user",
		"some", "table", "then", "to", "trailing", "true", "union", "unique", "user",
		"using", "when", "where", "window", "with",
	},
	open:  `"`,
	close: `"`,
}

// Postgres renders PostgreSQL DDL.
type Postgres struct{}

func (Postgres) Name() string                         { return "postgres" }
func (Postgres) ColumnType(t entity.FieldType) string { return postgresBase.columnType(t) }
func (Postgres) Quote(ident string) string            { return postgresBase.quote(ident) }

func (p Postgres) CreateTable(e entity.Entity) string {
	return postgresBase.createTable(p, e)
}
