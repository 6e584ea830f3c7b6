package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"

	"flowforge/internal/cascade"
	"flowforge/internal/manifest"
	"flowforge/internal/resource"
	"flowforge/internal/synth"
	"flowforge/internal/workspace"
	"flowforge/pkg/store"
)

type stubSyncer struct{}

func (stubSyncer) Sync(context.Context) error { return nil }

func newDispatcher(t *testing.T) (*Dispatcher, *workspace.Workspace) {
	t.Helper()
	ctx := context.Background()

	manifests, err := manifest.Open(ctx, filepath.Join(t.TempDir(), "manifests.db"))
	if err != nil {
		t.Fatalf("open manifests: %v", err)
	}
	t.Cleanup(func() { manifests.Close() })

	db, err := store.New(ctx, store.Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "app.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(db.Close)

	ws := workspace.New(memfs.New(), "app")
	deps := synth.Deps{Manifests: manifests, WS: ws, Migrator: stubSyncer{}, DB: db}

	routes := synth.NewRouteSynth(deps)
	return &Dispatcher{
		Tables:    synth.NewTableSynth(deps),
		Endpoints: synth.NewEndpointSynth(deps),
		Routes:    routes,
		Templates: synth.NewTemplateSynth(deps, cascade.NewCoordinator(routes)),
		Layouts:   synth.NewLayoutSynth(deps),
	}, ws
}

func node(t *testing.T, nodeType, op string, payload any) resource.FlowNode {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return resource.FlowNode{NodeType: nodeType, Operation: op, Payload: raw}
}

func TestDispatchTableUpsert(t *testing.T) {
	d, ws := newDispatcher(t)

	res, err := d.Dispatch(context.Background(), node(t, "table", "upsert", map[string]any{
		"tableName": "todos",
		"columns": []map[string]any{
			{"name": "id", "type": "integer", "primaryKey": true},
			{"name": "title", "type": "text"},
		},
	}))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.OperationID == "" {
		t.Fatal("operation id missing")
	}
	if res.Message == "" {
		t.Fatal("message missing")
	}
	if !ws.Exists("schema/todos/todos.go") {
		t.Fatal("schema artifact missing")
	}
}

func TestDispatchUnknownNodeType(t *testing.T) {
	d, _ := newDispatcher(t)

	_, err := d.Dispatch(context.Background(), node(t, "widget", "upsert", map[string]any{}))
	var app *AppError
	if !errors.As(err, &app) || app.Code != "UNKNOWN_NODE_TYPE" || app.Status != 400 {
		t.Fatalf("expected UNKNOWN_NODE_TYPE 400, got %v", err)
	}
}

func TestDispatchUnknownOperation(t *testing.T) {
	d, _ := newDispatcher(t)

	_, err := d.Dispatch(context.Background(), node(t, "table", "patch", map[string]any{}))
	var app *AppError
	if !errors.As(err, &app) || app.Code != "UNKNOWN_OPERATION" {
		t.Fatalf("expected UNKNOWN_OPERATION, got %v", err)
	}
}

func TestDispatchInvalidPayload(t *testing.T) {
	d, _ := newDispatcher(t)

	_, err := d.Dispatch(context.Background(), resource.FlowNode{
		NodeType:  "table",
		Operation: "upsert",
		Payload:   json.RawMessage(`{"tableName": `),
	})
	var app *AppError
	if !errors.As(err, &app) || app.Code != "INVALID_PAYLOAD" {
		t.Fatalf("expected INVALID_PAYLOAD, got %v", err)
	}
}

func TestDispatchValidationDetails(t *testing.T) {
	d, _ := newDispatcher(t)

	_, err := d.Dispatch(context.Background(), node(t, "endpoint", "upsert", map[string]any{
		"path":   "/todos",
		"method": "PATCH",
		"table":  "todos",
		"action": "select",
		"where": []map[string]any{
			{"column": "id", "op": "=", "source": "headers.id"},
		},
	}))
	var app *AppError
	if !errors.As(err, &app) || app.Code != "VALIDATION_FAILED" || app.Status != 422 {
		t.Fatalf("expected VALIDATION_FAILED 422, got %v", err)
	}
	var fields []string
	for _, det := range app.Details {
		fields = append(fields, det.Field)
	}
	if len(app.Details) != 2 {
		t.Fatalf("expected method and source details, got %v", fields)
	}
}

func TestDispatchPreconditionFailure(t *testing.T) {
	d, _ := newDispatcher(t)

	_, err := d.Dispatch(context.Background(), node(t, "route", "delete", map[string]any{
		"path": "/ghost",
	}))
	var app *AppError
	if !errors.As(err, &app) || app.Code != "PRECONDITION_FAILED" || app.Status != 422 {
		t.Fatalf("expected PRECONDITION_FAILED 422, got %v", err)
	}
}

func TestDispatchWarningsSurface(t *testing.T) {
	d, _ := newDispatcher(t)
	ctx := context.Background()

	// Deleting a table whose artifact never existed succeeds with a warning.
	res, err := d.Dispatch(ctx, node(t, "table", "delete", map[string]any{
		"tableName": "ghost",
	}))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected absence warning, got %v", res.Warnings)
	}
}

func TestDispatchTemplateCascade(t *testing.T) {
	d, ws := newDispatcher(t)

	_, err := d.Dispatch(context.Background(), node(t, "template", "upsert", map[string]any{
		"templateId": "todo_list",
		"routePath":  "/todos",
		"components": []map[string]any{
			{
				"id": "grid", "type": "table", "tableName": "todos",
				"dynamicRouting": true,
				"dataSource":     map[string]any{"endpointPath": "/todos", "primaryKey": "id"},
			},
		},
	}))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !ws.Exists("pages/todos/page.go") {
		t.Fatal("cascaded route missing")
	}
	if !ws.Exists("pages/todos/[id]/page.go") {
		t.Fatal("cascaded detail route missing")
	}
	if !ws.Exists("templates/todo_list.go") {
		t.Fatal("template artifact missing")
	}
}
