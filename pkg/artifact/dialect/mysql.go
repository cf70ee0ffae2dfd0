package dialect

import "github.com/tsera-dev/tsera/pkg/entity"

var mysqlBase = base{
	types: map[entity.FieldType]string{
		entity.TypeString:   "VARCHAR(255)",
		entity.TypeText:     "TEXT",
		entity.TypeInteger:  "BIGINT",
		entity.TypeNumber:   "DOUBLE",
		entity.TypeBoolean:  "BOOLEAN",
		entity.TypeDate:     "DATE",
		entity.TypeDatetime: "DATETIME(6)",
		entity.TypeUUID:     "CHAR(36)",
		entity.TypeJSON:     "JSON",
	},
	reserved: []string{
		"add", "all", "alter", "and", "as", "asc", "between", "by", "case", "change",
		"check", "column", "condition", "constraint", "create", "cross", "database",
		"default", "delete", "desc", "distinct", "drop", "else", "exists", "false", "for",
		"foreign", "from", "group", "having", "in", "index", "insert", "interval", "into",
		"is", "join", "key", "keys", "like", "limit", "match", "not", "null", "on", "option",
		"or", "order", "primary", "range", "read", "references", "rename", "select", "set",
		"show", "table", "then", "to", "true", "union", "unique", "update", "usage", "use",
		"using", "values", "when", "where", "with", "write",
	},
	open:  "`",
	close: "`",
}

// MySQL renders MySQL DDL.
type MySQL struct{}

func (MySQL) Name() string                         { return "mysql" }
func (MySQL) ColumnType(t entity.FieldType) string { return mysqlBase.columnType(t) }
func (MySQL) Quote(ident string) string            { return mysqlBase.quote(ident) }

func (m MySQL) CreateTable(e entity.Entity) string {
	return mysqlBase.createTable(m, e)
}
