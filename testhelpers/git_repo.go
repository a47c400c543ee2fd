// Package testhelpers provides testing utilities for podstrom: throwaway on-disk
// repositories driven by the git binary, and an in-memory history builder.
package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// repoEpoch is the author/committer date of the first commit in a GitRepo
var repoEpoch = time.Date(2020, time.January, 1, 12, 0, 0, 0, time.UTC)

// GitRepo represents a Git repository for testing purposes.
type GitRepo struct {
	Dir     string
	commits int
}

// NewGitRepo initializes a new Git repository in the specified directory using 'git init'.
func NewGitRepo(dir string) (*GitRepo, error) {
	// Use git -c flags to avoid reading global config and set local configs
	cmd := exec.Command("git", "-c", "init.defaultBranch=main", "-c", "core.autocrlf=false", "init", "-b", "main", dir)
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("failed to init repo: %w, output: %s", err, out)
	}

	repo := &GitRepo{Dir: dir}

	// Configure Git user (required for commits)
	if err := repo.RunGitCommand("config", "user.name", "Test User"); err != nil {
		return nil, err
	}
	if err := repo.RunGitCommand("config", "user.email", "test@example.com"); err != nil {
		return nil, err
	}
	if err := repo.RunGitCommand("config", "commit.gpgsign", "false"); err != nil {
		return nil, err
	}

	return repo, nil
}

// env isolates commands from the user's git config and pins commit dates so
// commit ids are reproducible.
func (r *GitRepo) env() []string {
	date := repoEpoch.Add(time.Duration(r.commits) * time.Minute).Format(time.RFC3339)
	return append(os.Environ(),
		"GIT_CONFIG_GLOBAL=/dev/null",
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_AUTHOR_DATE="+date,
		"GIT_COMMITTER_DATE="+date,
	)
}

// RunGitCommand executes a git command and returns an error if it fails.
func (r *GitRepo) RunGitCommand(args ...string) error {
	_, err := r.RunGitCommandAndGetOutput(args...)
	return err
}

// RunGitCommandAndGetOutput executes a git command and returns its trimmed output.
func (r *GitRepo) RunGitCommandAndGetOutput(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = r.env()
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w, stderr: %s", strings.Join(args, " "), err, stderr.String())
	}
	return strings.TrimSpace(string(output)), nil
}

// WriteFile writes content to a slash separated path inside the work tree.
func (r *GitRepo) WriteFile(path, content string) error {
	filePath := filepath.Join(r.Dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// RemoveFile deletes a path from the work tree.
func (r *GitRepo) RemoveFile(path string) error {
	return os.RemoveAll(filepath.Join(r.Dir, filepath.FromSlash(path)))
}

// CommitAll stages every change and commits it, returning the new commit id.
func (r *GitRepo) CommitAll(message string) (string, error) {
	if err := r.RunGitCommand("add", "--all"); err != nil {
		return "", err
	}
	if err := r.RunGitCommand("commit", "--allow-empty", "-m", message); err != nil {
		return "", err
	}
	r.commits++
	return r.GetRevision("HEAD")
}

// CommitFiles writes files and commits them, returning the new commit id.
func (r *GitRepo) CommitFiles(files map[string]string, message string) (string, error) {
	for path, content := range files {
		if err := r.WriteFile(path, content); err != nil {
			return "", err
		}
	}
	return r.CommitAll(message)
}

// CreateAndCheckoutBranch creates and checks out a new branch.
func (r *GitRepo) CreateAndCheckoutBranch(name string) error {
	return r.RunGitCommand("checkout", "-b", name)
}

// CheckoutBranch checks out a branch.
func (r *GitRepo) CheckoutBranch(name string) error {
	return r.RunGitCommand("checkout", name)
}

// MergeBranch merges a branch into the current one, always creating a merge commit.
func (r *GitRepo) MergeBranch(branch, message string) (string, error) {
	if err := r.RunGitCommand("merge", "--no-ff", "-m", message, branch); err != nil {
		return "", err
	}
	r.commits++
	return r.GetRevision("HEAD")
}

// GetRevision returns the SHA of a revision (branch, tag, or commit reference).
func (r *GitRepo) GetRevision(rev string) (string, error) {
	return r.RunGitCommandAndGetOutput("rev-parse", rev)
}

// ListTree returns the paths in the tree of rev, recursively.
func (r *GitRepo) ListTree(rev string) ([]string, error) {
	output, err := r.RunGitCommandAndGetOutput("ls-tree", "-r", "--name-only", rev)
	if err != nil {
		return nil, err
	}
	return splitLines(output), nil
}

// GetParents returns the parent ids of rev in order.
func (r *GitRepo) GetParents(rev string) ([]string, error) {
	output, err := r.RunGitCommandAndGetOutput("rev-list", "--parents", "-n", "1", rev)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(output)
	if len(fields) == 0 {
		return nil, fmt.Errorf("no such revision %s", rev)
	}
	return fields[1:], nil
}

// GetCommitCount returns the number of commits reachable from rev.
func (r *GitRepo) GetCommitCount(rev string) (int, error) {
	output, err := r.RunGitCommandAndGetOutput("rev-list", "--count", rev)
	if err != nil {
		return 0, err
	}
	var count int
	if _, err := fmt.Sscanf(output, "%d", &count); err != nil {
		return 0, fmt.Errorf("failed to parse commit count: %w", err)
	}
	return count, nil
}

// splitLines splits a string by newlines and returns non-empty lines.
func splitLines(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}
