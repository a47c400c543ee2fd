package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fmfi-svt/podstrom/internal/config"
	"github.com/fmfi-svt/podstrom/internal/git"
	"github.com/fmfi-svt/podstrom/internal/output"
)

// Context provides access to the object store and output for commands
type Context struct {
	context.Context
	Store  git.ObjectStore
	Splog  *output.Splog
	Stdout io.Writer
	// WorkDir is the directory the run was started in (or -C)
	WorkDir string
	// GitDir is the repository's git directory, "" for in-memory stores
	GitDir string
}

// NewContext creates a context over an already opened store
func NewContext(ctx context.Context, store git.ObjectStore, splog *output.Splog) *Context {
	if splog == nil {
		splog = output.NewSplog()
	}
	return &Context{
		Context: ctx,
		Store:   store,
		Splog:   splog,
		Stdout:  os.Stdout,
	}
}

// OpenStore opens the object store backend for the repository containing dir
func OpenStore(ctx context.Context, backend, dir string) (git.ObjectStore, error) {
	switch backend {
	case config.BackendGit, "":
		return git.OpenCLIStore(ctx, git.NewCommandRunner(dir))
	case config.BackendGoGit:
		return git.OpenGoGitStore(dir)
	default:
		return nil, config.ValidateBackend(backend)
	}
}

// FindGitDir locates the git directory of the repository containing dir.
// go-git is asked first; the git binary is the fallback for layouts go-git
// cannot open.
func FindGitDir(ctx context.Context, dir string) (string, error) {
	gitDir, err := git.FindGitDir(dir)
	if err == nil {
		return gitDir, nil
	}
	out, runErr := git.NewCommandRunner(dir).Run(ctx, "rev-parse", "--absolute-git-dir")
	if runErr != nil || out == "" {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	return out, nil
}

// Close releases the store and the log file
func (c *Context) Close() error {
	var errs []error
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close object store: %w", err))
		}
	}
	if c.Splog != nil {
		if err := c.Splog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close log file: %w", err))
		}
	}
	return errors.Join(errs...)
}
