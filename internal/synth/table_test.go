package synth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"flowforge/internal/manifest"
	"flowforge/internal/resource"
)

func todosTable() resource.Table {
	return resource.Table{
		TableName:   "todos",
		DisplayName: "Todos",
		Columns: []resource.Column{
			{Name: "id", Type: resource.ColInteger, PrimaryKey: true, AutoIncrement: true},
			{Name: "title", Type: resource.ColText, NotNull: true},
			{Name: "done", Type: resource.ColBoolean, Default: false},
		},
	}
}

func TestTableUpsertWritesSchemaAndIndex(t *testing.T) {
	deps, syncer := newTestDeps(t)
	s := NewTableSynth(deps)
	ctx := context.Background()

	out, err := s.Upsert(ctx, todosTable())
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(out.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", out.Warnings)
	}

	src := readArtifact(t, deps, "schema/todos/todos.go")
	for _, want := range []string{
		"package todos",
		`sqlschema.NewTable("todos"`,
		`sqlschema.Integer("id").PrimaryKey().AutoIncrement()`,
		`sqlschema.Text("title").NotNull()`,
		`sqlschema.Boolean("done").Default(false)`,
	} {
		if !strings.Contains(src, want) {
			t.Fatalf("schema artifact missing %q:\n%s", want, src)
		}
	}

	index := readArtifact(t, deps, "schema/index.go")
	if !strings.Contains(index, `"app/schema/todos"`) {
		t.Fatalf("index missing todos import:\n%s", index)
	}
	if !strings.Contains(index, "todos.Table") {
		t.Fatalf("index missing todos entry:\n%s", index)
	}

	if syncer.calls != 1 {
		t.Fatalf("expected 1 migration sync, got %d", syncer.calls)
	}

	m, _, err := deps.Manifests.Read(ctx, manifest.KindTable)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if _, ok := m["todos"]; !ok {
		t.Fatal("table manifest entry missing")
	}
}

func TestTableUpsertIsIdempotent(t *testing.T) {
	deps, _ := newTestDeps(t)
	s := NewTableSynth(deps)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, todosTable()); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	first := readArtifact(t, deps, "schema/todos/todos.go")

	if _, err := s.Upsert(ctx, todosTable()); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	second := readArtifact(t, deps, "schema/todos/todos.go")

	if first != second {
		t.Fatalf("re-upsert is not byte-identical:\n%s\n---\n%s", first, second)
	}
}

func TestTableForeignKeyImportsTargetPackage(t *testing.T) {
	deps, _ := newTestDeps(t)
	s := NewTableSynth(deps)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, todosTable()); err != nil {
		t.Fatalf("upsert todos: %v", err)
	}
	_, err := s.Upsert(ctx, resource.Table{
		TableName: "comments",
		Columns: []resource.Column{
			{Name: "id", Type: resource.ColInteger, PrimaryKey: true},
			{Name: "todo_id", Type: resource.ColInteger, ForeignKey: &resource.ForeignKey{Table: "todos", Column: "id", OnDelete: "cascade"}},
			{Name: "parent_id", Type: resource.ColInteger, ForeignKey: &resource.ForeignKey{Table: "comments", Column: "id"}},
		},
	})
	if err != nil {
		t.Fatalf("upsert comments: %v", err)
	}

	src := readArtifact(t, deps, "schema/comments/comments.go")
	if !strings.Contains(src, `"app/schema/todos"`) {
		t.Fatalf("cross-table reference must import the target package:\n%s", src)
	}
	if !strings.Contains(src, `.References(todos.Table, "id", "cascade")`) {
		t.Fatalf("missing References call:\n%s", src)
	}
	if !strings.Contains(src, `.SelfReference("id")`) {
		t.Fatalf("self reference must not import its own package:\n%s", src)
	}
	if strings.Contains(src, `"app/schema/comments"`) {
		t.Fatalf("artifact imports itself:\n%s", src)
	}
}

func TestTableDeleteArchivesAndDrops(t *testing.T) {
	deps, syncer := newTestDeps(t)
	s := NewTableSynth(deps)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, todosTable()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	syncer.calls = 0

	out, err := s.Delete(ctx, "todos")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(out.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", out.Warnings)
	}

	if deps.WS.Exists("schema/todos") {
		t.Fatal("schema dir should be moved away")
	}
	if !deps.WS.Exists("schema/_archive/todos_20250301T120000") {
		t.Fatal("archived tree missing")
	}

	index := readArtifact(t, deps, "schema/index.go")
	if strings.Contains(index, "todos.Table") {
		t.Fatalf("index still references deleted table:\n%s", index)
	}

	m, _, err := deps.Manifests.Read(ctx, manifest.KindTable)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if _, ok := m["todos"]; ok {
		t.Fatal("manifest entry should be gone")
	}
	if syncer.calls != 1 {
		t.Fatalf("expected 1 migration sync after delete, got %d", syncer.calls)
	}
}

func TestTableDeleteMissingArtifactWarns(t *testing.T) {
	deps, _ := newTestDeps(t)
	s := NewTableSynth(deps)

	out, err := s.Delete(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(out.Warnings) != 1 {
		t.Fatalf("expected absence warning, got %v", out.Warnings)
	}
}

func TestTableUpsertRejectsUnknownColumnType(t *testing.T) {
	deps, _ := newTestDeps(t)
	s := NewTableSynth(deps)

	_, err := s.Upsert(context.Background(), resource.Table{
		TableName: "bad",
		Columns:   []resource.Column{{Name: "x", Type: "uuid"}},
	})
	var pe *PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}
