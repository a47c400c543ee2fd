package main_test

import (
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fmfi-svt/podstrom/testhelpers"
)

func TestMain(m *testing.M) {
	code := m.Run()
	testhelpers.CleanupBinary()
	os.Exit(code)
}

func TestPodstromBinary(t *testing.T) {
	scene := testhelpers.NewScene(t, testhelpers.SubdirSceneSetup)
	binaryPath := testhelpers.RequireBinary(t)

	t.Run("prints the rewritten id on stdout", func(t *testing.T) {
		cmd := exec.Command(binaryPath, "--path", "sub", "main")
		cmd.Dir = scene.Dir
		var stderr strings.Builder
		cmd.Stderr = &stderr
		stdout, err := cmd.Output()
		require.NoError(t, err, "stderr: %s", stderr.String())

		id := strings.TrimSpace(string(stdout))
		require.Len(t, id, 40)
		require.Contains(t, stderr.String(), "found 0 subtree commits")

		files, err := scene.Repo.ListTree(id)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, files)
	})

	t.Run("exits 1 on error", func(t *testing.T) {
		cmd := exec.Command(binaryPath, "--path", "sub", "--update", "x", "main", "main~1")
		cmd.Dir = scene.Dir
		output, err := cmd.CombinedOutput()

		var exitErr *exec.ExitError
		require.True(t, errors.As(err, &exitErr), "output: %s", output)
		require.Equal(t, 1, exitErr.ExitCode())
		require.Contains(t, string(output), "error: only one input commit may be given when updating")
	})
}
