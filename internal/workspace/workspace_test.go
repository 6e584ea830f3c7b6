package workspace

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
)

func testWS(t *testing.T) *Workspace {
	t.Helper()
	w := New(memfs.New(), "app")
	w.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return w
}

func TestWriteReadRemove(t *testing.T) {
	w := testWS(t)
	if err := w.WriteFile("schema/todos/todos.go", []byte("package todos\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := w.ReadFile("schema/todos/todos.go")
	if err != nil || string(data) != "package todos\n" {
		t.Fatalf("read: %v %q", err, data)
	}
	if err := w.Remove("schema/todos/todos.go"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if w.Exists("schema/todos/todos.go") {
		t.Fatal("file should be gone")
	}
	// Removing again is not an error.
	if err := w.Remove("schema/todos/todos.go"); err != nil {
		t.Fatalf("idempotent remove: %v", err)
	}
}

func TestDirNamesSortedAndMissingIsEmpty(t *testing.T) {
	w := testWS(t)
	names, err := w.DirNames("schema")
	if err != nil || names != nil {
		t.Fatalf("missing dir should list empty, got %v %v", names, err)
	}
	for _, p := range []string{"schema/users/users.go", "schema/todos/todos.go"} {
		if err := w.WriteFile(p, []byte("x")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	names, err = w.DirNames("schema")
	if err != nil {
		t.Fatalf("dir names: %v", err)
	}
	if len(names) != 2 || names[0] != "todos" || names[1] != "users" {
		t.Fatalf("expected sorted [todos users], got %v", names)
	}
}

func TestArchiveMovesTree(t *testing.T) {
	w := testWS(t)
	if err := w.WriteFile("schema/todos/todos.go", []byte("package todos\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	dest, err := w.Archive("schema/todos", "schema/_archive")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if dest != "schema/_archive/todos_20260301T120000" {
		t.Fatalf("unexpected archive path %s", dest)
	}
	if w.Exists("schema/todos") {
		t.Fatal("source should be gone after archive")
	}
	data, err := w.ReadFile(dest + "/todos.go")
	if err != nil || string(data) != "package todos\n" {
		t.Fatalf("archived file content: %v %q", err, data)
	}
}

func TestArchiveSingleFile(t *testing.T) {
	w := testWS(t)
	if err := w.WriteFile("pages/page.go", []byte("package page\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	dest, err := w.Archive("pages/page.go", "pages/_archive")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if dest != "pages/_archive/page_20260301T120000.go" {
		t.Fatalf("unexpected archive path %s", dest)
	}
	if w.Exists("pages/page.go") {
		t.Fatal("source file should be gone after archive")
	}
}

func TestArchiveRejectsRootInsideSource(t *testing.T) {
	w := testWS(t)
	if err := w.WriteFile("pages/page.go", []byte("package page\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := w.Archive("pages", "pages/_archive"); err == nil {
		t.Fatal("archiving a tree into itself must be refused")
	}
	// The refusal happens before any copy; the source is untouched.
	if !w.Exists("pages/page.go") {
		t.Fatal("source must survive a refused archive")
	}
}
