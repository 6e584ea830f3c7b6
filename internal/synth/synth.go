// Package synth holds the per-resource synthesizers: each turns a
// declarative payload (plus manifest context) into generated artifacts in
// the application workspace, and owns exactly one artifact-writing side
// effect per resource kind.
package synth

import (
	"fmt"

	"flowforge/internal/manifest"
	"flowforge/internal/workspace"
	"flowforge/pkg/store"

	"flowforge/internal/migrate"
)

// Workspace layout of the generated application tree.
const (
	SchemaDir    = "schema"
	APIDir       = "api"
	PagesDir     = "pages"
	TemplatesDir = "templates"
	LayoutsDir   = "layouts"
)

// Runtime import paths generated artifacts are written against.
const (
	importSQLSchema = "flowforge/pkg/sqlschema"
	importAppRT     = "flowforge/pkg/apprt"
	importStore     = "flowforge/pkg/store"
	importUI        = "flowforge/pkg/ui"
)

// Deps are the collaborators every synthesizer shares.
type Deps struct {
	Manifests *manifest.Store
	WS        *workspace.Workspace
	Migrator  migrate.Syncer
	DB        *store.Store
}

// Outcome is a successful operation's user-facing message plus any
// best-effort cleanup warnings collected along the way.
type Outcome struct {
	Message  string
	Warnings []string
}

// PreconditionError marks a request that is well-formed but violates an
// operation precondition; it is reported before any write happens.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string { return e.Reason }

func preconditionf(format string, args ...any) error {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}
