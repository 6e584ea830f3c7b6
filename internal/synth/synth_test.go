package synth

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"

	"flowforge/internal/manifest"
	"flowforge/internal/workspace"
	"flowforge/pkg/store"
)

type stubSyncer struct {
	calls int
	err   error
}

func (s *stubSyncer) Sync(context.Context) error {
	s.calls++
	return s.err
}

func newTestDeps(t *testing.T) (Deps, *stubSyncer) {
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
	ws.Now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	syncer := &stubSyncer{}
	return Deps{Manifests: manifests, WS: ws, Migrator: syncer, DB: db}, syncer
}

func readArtifact(t *testing.T, d Deps, path string) string {
	t.Helper()
	data, err := d.WS.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// flat collapses all whitespace runs so assertions are immune to
// formatter alignment.
func flat(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
