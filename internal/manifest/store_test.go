package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "manifests.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReadMissingKindIsEmpty(t *testing.T) {
	s := openTestStore(t)
	m, version, err := s.Read(context.Background(), KindRoute)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(m) != 0 || version != 0 {
		t.Fatalf("expected empty mapping at version 0, got %d entries at v%d", len(m), version)
	}
}

func TestWriteReadRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m := map[string]json.RawMessage{
		"/todos": json.RawMessage(`{"routeId":"todos","path":"/todos"}`),
	}
	if err := s.Write(ctx, KindRoute, m, 0); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, version, err := s.Read(ctx, KindRoute)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected version 1, got %d", version)
	}
	if string(got["/todos"]) != `{"routeId":"todos","path":"/todos"}` {
		t.Fatalf("unexpected payload: %s", got["/todos"])
	}

	// Full replace, not merge.
	if err := s.Write(ctx, KindRoute, map[string]json.RawMessage{}, 1); err != nil {
		t.Fatalf("second write: %v", err)
	}
	got, version, err = s.Read(ctx, KindRoute)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 0 || version != 2 {
		t.Fatalf("expected empty mapping at v2, got %d entries at v%d", len(got), version)
	}
}

func TestVersionConflictDetected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Write(ctx, KindTable, map[string]json.RawMessage{}, 0); err != nil {
		t.Fatalf("write: %v", err)
	}
	// A stale writer holding version 0 must be rejected.
	err := s.Write(ctx, KindTable, map[string]json.RawMessage{}, 0)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestKindsAreIndependent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Write(ctx, KindTemplate, map[string]json.RawMessage{"a": json.RawMessage(`{}`)}, 0); err != nil {
		t.Fatalf("write template: %v", err)
	}
	m, version, err := s.Read(ctx, KindLayout)
	if err != nil {
		t.Fatalf("read layout: %v", err)
	}
	if len(m) != 0 || version != 0 {
		t.Fatalf("layout manifest should be untouched, got %d entries at v%d", len(m), version)
	}
}
