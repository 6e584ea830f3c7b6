// Package app assembles the compiler: storage, manifests, workspace,
// migration runner, synthesizers and the dispatcher, wired in dependency
// order from configuration.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5/osfs"

	"flowforge/internal/cascade"
	"flowforge/internal/config"
	"flowforge/internal/dispatch"
	"flowforge/internal/manifest"
	"flowforge/internal/migrate"
	"flowforge/internal/synth"
	"flowforge/internal/workspace"
	"flowforge/pkg/store"
)

type App struct {
	Config     *config.Config
	DB         *store.Store
	Manifests  *manifest.Store
	Workspace  *workspace.Workspace
	Dispatcher *dispatch.Dispatcher
}

// Build wires the full compiler from configuration.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := os.MkdirAll(cfg.Workspace.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	if cfg.Database.IsSQLite() {
		if err := os.MkdirAll(cfg.Database.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := store.New(ctx, store.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN()})
	if err != nil {
		return nil, err
	}

	manifests, err := manifest.Open(ctx, cfg.Manifest.Path)
	if err != nil {
		db.Close()
		return nil, err
	}

	ws := workspace.New(osfs.New(cfg.Workspace.Root), cfg.Workspace.Module)

	var migrator migrate.Syncer
	if len(cfg.Migrate.Generate) == 0 && len(cfg.Migrate.Apply) == 0 {
		migrator = migrate.Noop{}
	} else {
		dir := cfg.Migrate.Dir
		if dir == "" {
			dir = cfg.Workspace.Root
		}
		migrator = migrate.NewRunner(cfg.Migrate.Generate, cfg.Migrate.Apply, dir)
	}

	deps := synth.Deps{Manifests: manifests, WS: ws, Migrator: migrator, DB: db}
	routes := synth.NewRouteSynth(deps)

	return &App{
		Config:    cfg,
		DB:        db,
		Manifests: manifests,
		Workspace: ws,
		Dispatcher: &dispatch.Dispatcher{
			Tables:    synth.NewTableSynth(deps),
			Endpoints: synth.NewEndpointSynth(deps),
			Routes:    routes,
			Templates: synth.NewTemplateSynth(deps, cascade.NewCoordinator(routes)),
			Layouts:   synth.NewLayoutSynth(deps),
		},
	}, nil
}

// Close releases the app's storage handles.
func (a *App) Close() {
	a.Manifests.Close()
	a.DB.Close()
}
