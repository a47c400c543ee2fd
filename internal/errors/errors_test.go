package errors_test

import (
	"errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	podstromerrors "github.com/fmfi-svt/podstrom/internal/errors"
)

func TestUnresolvableRevisionError(t *testing.T) {
	cause := errors.New("exit status 128")
	err := fmt.Errorf("resolving input: %w", podstromerrors.NewUnresolvableRevisionError("feature", cause))

	require.ErrorIs(t, err, podstromerrors.ErrUnresolvableRevision)
	require.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, podstromerrors.ErrObjectMissing)

	var revErr *podstromerrors.UnresolvableRevisionError
	require.True(t, errors.As(err, &revErr))
	assert.Equal(t, "feature", revErr.Revision)
	assert.Contains(t, err.Error(), `"feature"`)

	assert.Equal(t, `cannot resolve revision "x"`, podstromerrors.NewUnresolvableRevisionError("x", nil).Error())
}

func TestStoreWriteError(t *testing.T) {
	cause := errors.New("disk full")
	err := podstromerrors.NewStoreWriteError("commit", cause)

	require.ErrorIs(t, err, podstromerrors.ErrStoreWriteFailure)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to write commit object: disk full", err.Error())
}

func TestObjectMissingError(t *testing.T) {
	err := podstromerrors.NewObjectMissingError("abc^{}")
	require.ErrorIs(t, err, podstromerrors.ErrObjectMissing)
	assert.Equal(t, "object abc^{} is missing", err.Error())
}

func TestGitCommandError(t *testing.T) {
	cause := &exec.ExitError{}
	err := podstromerrors.NewGitCommandError("git", []string{"update-ref", "-m", "running podstrom", "refs/heads/x", "abc"}, "", "fatal: bad object", cause)

	assert.Equal(t, "git update-ref -m 'running podstrom' refs/heads/x abc", err.CommandLine())
	assert.Contains(t, err.Error(), "stderr: fatal: bad object")
	assert.NotContains(t, err.Error(), "stdout:")

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
}
