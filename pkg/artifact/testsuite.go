package artifact

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/tsera-dev/tsera/pkg/graph"
)

// TestBuilder emits tests/<slug>.test.ts, a Deno test checking the generated
// schema. The test node depends on the schema node when schemas are enabled.
type TestBuilder struct{}

func (TestBuilder) Kind() string { return KindTest }

func (TestBuilder) Build(ctx Context) ([]graph.Descriptor, error) {
	e := ctx.Entity
	if !e.Flags().Test {
		return nil, nil
	}
	slug := graph.Slug(e.Name())
	testPath := OutputPath(ctx.Config, "tests/"+slug+".test.ts")

	var fields, required []string
	for _, f := range e.Fields() {
		fields = append(fields, f.Name)
		if !f.Optional {
			required = append(required, f.Name)
		}
	}
	slices.Sort(fields)
	slices.Sort(required)

	var sb strings.Builder
	sb.WriteString("// Generated by tsera. Changes are overwritten on the next run.\n")
	sb.WriteString(`import { assertEquals } from "jsr:@std/assert";` + "\n")

	d := graph.Descriptor{
		Kind:  KindTest,
		Path:  testPath,
		Label: e.Name() + " tests",
	}
	if schemaEnabled(ctx.Config) {
		rel, err := relPath(path.Dir(testPath), SchemaPath(ctx.Config, e))
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&sb, "import schema from %q with { type: \"json\" };\n\n", rel)
		fmt.Fprintf(&sb, "Deno.test(%q, () => {\n", e.Name()+" schema lists every field")
		fmt.Fprintf(&sb, "  assertEquals(Object.keys(schema.properties).sort(), %s);\n", tsList(fields))
		sb.WriteString("});\n\n")
		fmt.Fprintf(&sb, "Deno.test(%q, () => {\n", e.Name()+" schema requires mandatory fields")
		fmt.Fprintf(&sb, "  assertEquals([...(schema.required ?? [])].sort(), %s);\n", tsList(required))
		sb.WriteString("});\n")
		d.DependsOn = []string{SchemaID(ctx.Config, e)}
	} else {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "const fields = %s;\n\n", tsList(fields))
		fmt.Fprintf(&sb, "Deno.test(%q, () => {\n", e.Name()+" declares its fields")
		fmt.Fprintf(&sb, "  assertEquals(fields.length, %d);\n", len(fields))
		sb.WriteString("});\n")
	}
	d.Content = []byte(sb.String())
	return []graph.Descriptor{d}, nil
}

func tsList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// relPath returns target relative to dir for slash-separated paths.
func relPath(dir, target string) (string, error) {
	from := splitPath(dir)
	to := splitPath(target)
	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}
	if slices.Contains(from[i:], "..") {
		return "", fmt.Errorf("cannot relate %q to %q", target, dir)
	}
	parts := make([]string, 0, len(from)-i+len(to)-i)
	for range from[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, to[i:]...)
	rel := strings.Join(parts, "/")
	if !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel, nil
}

func splitPath(p string) []string {
	p = path.Clean(p)
	if p == "." {
		return nil
	}
	return strings.Split(p, "/")
}
