// Package workspace defines the boundary to whatever prepares working
// directories for sessions.
//
// The engine only needs a directory path per session; how that directory
// comes to exist (a git worktree per branch, a checkout service, a plain
// local folder) is deliberately outside this module. Callers implement
// Provider and hand the result to the engine's Start.
package workspace

import (
	"context"
	"fmt"
	"os"
)

// Provider yields the working directory a session for the given branch
// should run in. Implementations may create the directory on demand;
// they must return a path that exists when they return nil.
type Provider interface {
	Path(ctx context.Context, branch string) (string, error)
}

// Dir is a Provider that serves one fixed local directory regardless of
// branch. It is the right choice when session isolation is handled
// elsewhere or not needed.
type Dir string

// Path returns the fixed directory, verifying it exists.
func (d Dir) Path(_ context.Context, _ string) (string, error) {
	info, err := os.Stat(string(d))
	if err != nil {
		return "", fmt.Errorf("workspace dir: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("workspace dir: %s is not a directory", string(d))
	}
	return string(d), nil
}
