package git

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	podstromerrors "github.com/fmfi-svt/podstrom/internal/errors"
)

// CommandRunner handles execution of git commands
type CommandRunner struct {
	workingDir string
	env        []string
}

// NewCommandRunner creates a new CommandRunner
func NewCommandRunner(workingDir string) *CommandRunner {
	return &CommandRunner{workingDir: workingDir}
}

// WithEnv returns a copy of the runner that adds env to every command
func (r *CommandRunner) WithEnv(env ...string) *CommandRunner {
	return &CommandRunner{
		workingDir: r.workingDir,
		env:        append(append([]string{}, r.env...), env...),
	}
}

// WorkingDir returns the directory commands run in
func (r *CommandRunner) WorkingDir() string {
	return r.workingDir
}

func (r *CommandRunner) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", args...)
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}
	return cmd
}

// Run executes a git command and returns its trimmed output
func (r *CommandRunner) Run(ctx context.Context, args ...string) (string, error) {
	return r.runInternal(ctx, nil, true, args...)
}

// RunWithInput executes a git command with the given stdin and returns its trimmed output
func (r *CommandRunner) RunWithInput(ctx context.Context, input []byte, args ...string) (string, error) {
	return r.runInternal(ctx, input, true, args...)
}

// runInternal is the internal implementation that handles input and trimming
func (r *CommandRunner) runInternal(ctx context.Context, input []byte, trim bool, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cmd := r.command(ctx, args...)
	if input != nil {
		cmd.Stdin = bytes.NewReader(input)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", podstromerrors.NewGitCommandError("git", args, stdout.String(), stderr.String(), ctx.Err())
		}
		return "", podstromerrors.NewGitCommandError("git", args, stdout.String(), stderr.String(), err)
	}
	if trim {
		return strings.TrimSpace(stdout.String()), nil
	}
	return stdout.String(), nil
}

// Stream executes a git command and hands its stdout to consume while it runs.
// The command is waited for on every path; a consume error wins over the exit status.
func (r *CommandRunner) Stream(ctx context.Context, consume func(io.Reader) error, args ...string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cmd := r.command(ctx, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return podstromerrors.NewGitCommandError("git", args, "", "", err)
	}
	if err := cmd.Start(); err != nil {
		return podstromerrors.NewGitCommandError("git", args, "", stderr.String(), err)
	}

	consumeErr := consume(stdout)
	if consumeErr != nil {
		// Unblock the child if it is still writing
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()
	if consumeErr != nil {
		return consumeErr
	}
	if waitErr != nil {
		return podstromerrors.NewGitCommandError("git", args, "", stderr.String(), waitErr)
	}
	return nil
}
