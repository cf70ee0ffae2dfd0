package artifact

import (
	"fmt"
	"strings"

	"github.com/tsera-dev/tsera/pkg/graph"
)

// DocBuilder emits docs/entities/<slug>.md.
type DocBuilder struct{}

func (DocBuilder) Kind() string { return KindDoc }

func (DocBuilder) Build(ctx Context) ([]graph.Descriptor, error) {
	e := ctx.Entity
	if !e.Flags().Doc {
		return nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", e.Name())
	if d := e.Description(); d != "" {
		sb.WriteString(d + "\n\n")
	}
	fmt.Fprintf(&sb, "Table: `%s`\n\n", e.Table())
	sb.WriteString("| Field | Type | Required | Unique | Default | Description |\n")
	sb.WriteString("|-------|------|----------|--------|---------|-------------|\n")
	for _, f := range e.Fields() {
		def := ""
		if f.Default != nil {
			def = "`" + fmt.Sprint(f.Default) + "`"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s |\n",
			f.Name, f.Type, yesNo(!f.Optional), yesNo(f.Unique), def, cell(f.Description))
	}

	return []graph.Descriptor{{
		Kind:    KindDoc,
		Path:    OutputPath(ctx.Config, "docs/entities/"+graph.Slug(e.Name())+".md"),
		Content: []byte(sb.String()),
		Label:   e.Name() + " docs",
	}}, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// cell keeps a value on one table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
