package fixtures

import (
	"context"
	"fmt"
	"os"
)

// WorkDir makes a directory the process working directory for the duration of a test, and puts
// back whatever the working directory was at acquisition time when it is released, no matter
// how many times the test changed it in between.
type WorkDir struct {
	dir      string
	previous string
	res      *Resource[string]
}

// NewWorkDir creates an unacquired WorkDir for dir.
func NewWorkDir(dir string) *WorkDir {
	w := &WorkDir{dir: dir}
	w.res = NewResource(w.enter, w.restore)
	return w
}

// Path returns the directory that the resource switches into.
func (w *WorkDir) Path() string { return w.dir }

// Previous returns the working directory recorded at acquisition, or "" if not yet acquired.
func (w *WorkDir) Previous() string { return w.previous }

// State returns the resource state.
func (w *WorkDir) State() State { return w.res.State() }

// Acquire records the current working directory and changes into Path.
func (w *WorkDir) Acquire() error {
	return w.res.Acquire(context.Background())
}

// Release changes back to the recorded directory.
func (w *WorkDir) Release() error {
	return w.res.Release(context.Background())
}

func (w *WorkDir) enter(context.Context) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if err := os.Chdir(w.dir); err != nil {
		return "", fmt.Errorf("changing to working directory: %w", err)
	}
	w.previous = cwd
	return w.dir, nil
}

func (w *WorkDir) restore(_ context.Context, _ string, acquired bool) error {
	if !acquired {
		return nil
	}
	if err := os.Chdir(w.previous); err != nil {
		return fmt.Errorf("restoring working directory: %w", err)
	}
	return nil
}
