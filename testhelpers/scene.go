package testhelpers

import (
	"os/exec"
	"testing"
)

// Scene represents a test scene with a temporary directory and Git repository.
type Scene struct {
	Dir  string
	Repo *GitRepo
}

// SceneSetup is a function type for setting up a scene.
type SceneSetup func(*Scene) error

// RequireGit skips the test when no git binary is installed.
func RequireGit(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

// NewScene creates a new test scene with a temporary directory and Git repository.
// The directory is removed by the testing framework.
func NewScene(t testing.TB, setup SceneSetup) *Scene {
	t.Helper()
	RequireGit(t)

	dir := t.TempDir()
	repo, err := NewGitRepo(dir)
	if err != nil {
		t.Fatalf("Failed to create Git repo: %v", err)
	}

	scene := &Scene{Dir: dir, Repo: repo}
	if setup != nil {
		if err := setup(scene); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}
	return scene
}

// SubdirSceneSetup builds the three commit history used by the extraction tests:
// sub/a at the root, sub/b and other/x in the second commit, and a change to
// other/x only in the third.
func SubdirSceneSetup(scene *Scene) error {
	steps := []struct {
		files   map[string]string
		message string
	}{
		{map[string]string{"sub/a": "a\n"}, "R"},
		{map[string]string{"sub/b": "b\n", "other/x": "x1\n"}, "C1"},
		{map[string]string{"other/x": "x2\n"}, "C2"},
	}
	for _, step := range steps {
		if _, err := scene.Repo.CommitFiles(step.files, step.message); err != nil {
			return err
		}
	}
	return nil
}
