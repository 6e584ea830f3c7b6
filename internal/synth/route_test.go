package synth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"flowforge/internal/cascade"
	"flowforge/internal/manifest"
	"flowforge/internal/resource"
)

func TestRouteUpsertWritesPage(t *testing.T) {
	deps, _ := newTestDeps(t)
	s := NewRouteSynth(deps)
	ctx := context.Background()

	out, err := s.Upsert(ctx, resource.Route{RouteID: "todos", Path: "todos/", PageName: "Todos"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !strings.Contains(out.Message, "/todos") {
		t.Fatalf("message should carry the normalized path, got %q", out.Message)
	}

	src := readArtifact(t, deps, "pages/todos/page.go")
	for _, want := range []string{
		"package page",
		`Route: "/todos",`,
		`Name: "Todos",`,
		`{Label: "todos", Href: "/todos"},`,
		"tpls := rc.TemplatesFor(Page.Route)",
		`return ui.Text("No templates registered for " + Page.Route)`,
		"return ui.Fragment(nodes...)",
	} {
		if !strings.Contains(flat(src), want) {
			t.Fatalf("page missing %q:\n%s", want, src)
		}
	}

	m, _, err := deps.Manifests.Read(ctx, manifest.KindRoute)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if _, ok := m["/todos"]; !ok {
		t.Fatal("manifest keyed by normalized path")
	}
}

func TestRouteParamSegmentsBecomeBracketDirs(t *testing.T) {
	deps, _ := newTestDeps(t)
	s := NewRouteSynth(deps)

	_, err := s.Upsert(context.Background(), resource.Route{
		RouteID: "user_post", Path: "/users/:uid/posts/:pid", PageName: "Post",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	src := readArtifact(t, deps, "pages/users/[uid]/posts/[pid]/page.go")
	if !strings.Contains(flat(src), `Route: "/users/[uid]/posts/[pid]",`) {
		t.Fatalf("normalized route missing:\n%s", src)
	}
	// One breadcrumb per segment, hrefs accumulate prefixes.
	for _, want := range []string{
		`{Label: "users", Href: "/users"},`,
		`{Label: "[uid]", Href: "/users/[uid]"},`,
		`{Label: "posts", Href: "/users/[uid]/posts"},`,
		`{Label: "[pid]", Href: "/users/[uid]/posts/[pid]"},`,
	} {
		if !strings.Contains(flat(src), want) {
			t.Fatalf("breadcrumb missing %q:\n%s", want, src)
		}
	}
}

func TestRouteDeleteArchivesPageTree(t *testing.T) {
	deps, _ := newTestDeps(t)
	s := NewRouteSynth(deps)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, resource.Route{RouteID: "todos", Path: "/todos", PageName: "Todos"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	out, err := s.Delete(ctx, "/todos")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(out.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", out.Warnings)
	}
	if deps.WS.Exists("pages/todos") {
		t.Fatal("route dir should be archived away")
	}
	if !deps.WS.Exists("pages/_archive/todos_20250301T120000") {
		t.Fatal("archived route tree missing")
	}

	m, _, err := deps.Manifests.Read(ctx, manifest.KindRoute)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if _, ok := m["/todos"]; ok {
		t.Fatal("manifest entry should be gone")
	}
}

func TestRouteDeleteRootLeavesSiblings(t *testing.T) {
	deps, _ := newTestDeps(t)
	s := NewRouteSynth(deps)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, resource.Route{RouteID: "home", Path: "/", PageName: "Home"}); err != nil {
		t.Fatalf("upsert root: %v", err)
	}
	if _, err := s.Upsert(ctx, resource.Route{RouteID: "todos", Path: "/todos", PageName: "Todos"}); err != nil {
		t.Fatalf("upsert todos: %v", err)
	}

	out, err := s.Delete(ctx, "/")
	if err != nil {
		t.Fatalf("delete root: %v", err)
	}
	if len(out.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", out.Warnings)
	}

	// Only the root page file moves; sibling routes stay in place.
	if deps.WS.Exists("pages/page.go") {
		t.Fatal("root page should be archived away")
	}
	if !deps.WS.Exists("pages/_archive/page_20250301T120000.go") {
		t.Fatal("archived root page missing")
	}
	if !deps.WS.Exists("pages/todos/page.go") {
		t.Fatal("sibling route must survive root deletion")
	}

	m, _, err := deps.Manifests.Read(ctx, manifest.KindRoute)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if _, ok := m["/"]; ok {
		t.Fatal("root manifest entry should be gone")
	}
	if _, ok := m["/todos"]; !ok {
		t.Fatal("sibling manifest entry must survive")
	}
}

func TestRouteDeleteUnknownPath(t *testing.T) {
	deps, _ := newTestDeps(t)
	s := NewRouteSynth(deps)

	_, err := s.Delete(context.Background(), "/ghost")
	var pe *PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestEnsureRouteIsIdempotent(t *testing.T) {
	deps, _ := newTestDeps(t)
	s := NewRouteSynth(deps)
	ctx := context.Background()

	if err := s.EnsureRoute(ctx, "/todos"); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	first := readArtifact(t, deps, "pages/todos/page.go")

	// Hand-edit marker to prove the second ensure does not rewrite.
	if err := deps.WS.WriteFile("pages/todos/page.go", append([]byte(first), '\n')); err != nil {
		t.Fatalf("touch page: %v", err)
	}
	if err := s.EnsureRoute(ctx, "/todos"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	second := readArtifact(t, deps, "pages/todos/page.go")
	if second != first+"\n" {
		t.Fatal("ensure rewrote an existing route")
	}
}

func TestEnsureDetailRouteWritesDynamicPage(t *testing.T) {
	deps, _ := newTestDeps(t)
	s := NewRouteSynth(deps)
	ctx := context.Background()

	err := s.EnsureDetailRoute(ctx, cascade.DetailSpec{
		ParentRoute:  "/todos",
		TableName:    "todos",
		EndpointPath: "/todos",
		PrimaryKey:   "id",
	})
	if err != nil {
		t.Fatalf("ensure detail: %v", err)
	}

	src := readArtifact(t, deps, "pages/todos/[id]/page.go")
	for _, want := range []string{
		`Route: "/todos/[id]",`,
		"Detail: true,",
		`id := rc.Param("id")`,
		`rec, err := rc.FetchOne("/api/todos", "id", id)`,
		`return ui.Text("Record not found")`,
		`DeleteEndpoint: "/api/todos",`,
		`DeleteMethod: "DELETE",`,
		`BackTo: "/todos",`,
	} {
		if !strings.Contains(flat(src), want) {
			t.Fatalf("detail page missing %q:\n%s", want, src)
		}
	}

	m, _, err := deps.Manifests.Read(ctx, manifest.KindRoute)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	raw, ok := m["/todos/[id]"]
	if !ok {
		t.Fatal("detail route manifest entry missing")
	}
	var r resource.Route
	if err := json.Unmarshal(raw, &r); err != nil {
		t.Fatalf("decode route: %v", err)
	}
	if !r.Dynamic {
		t.Fatal("detail route must be dynamic")
	}
}
