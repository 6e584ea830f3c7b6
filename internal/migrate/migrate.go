// Package migrate invokes the external migration collaborator: first
// generate a migration from the current schema sources, then apply it to
// storage. Both steps must succeed; failure aborts the calling operation
// with no rollback of artifacts already written.
package migrate

import (
	"context"
	"fmt"
	"log"
	"os/exec"
)

// Syncer is what synthesizers depend on; tests substitute a recorder.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Runner shells out to the two configured commands.
type Runner struct {
	Generate []string // argv of the "generate migration" command
	Apply    []string // argv of the "apply migration" command
	Dir      string   // working directory, usually the workspace root
}

func NewRunner(generate, apply []string, dir string) *Runner {
	return &Runner{Generate: generate, Apply: apply, Dir: dir}
}

// Sync runs generate then apply, in order.
func (r *Runner) Sync(ctx context.Context) error {
	if err := r.run(ctx, "generate", r.Generate); err != nil {
		return err
	}
	return r.run(ctx, "apply", r.Apply)
}

// Noop satisfies Syncer for deployments that run migrations out of band.
type Noop struct{}

func (Noop) Sync(context.Context) error {
	log.Println("migration sync skipped (no commands configured)")
	return nil
}

func (r *Runner) run(ctx context.Context, step string, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("migration %s command not configured", step)
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("migration %s (%s): %w: %s", step, argv[0], err, out)
	}
	log.Printf("migration %s ok (%s)", step, argv[0])
	return nil
}
