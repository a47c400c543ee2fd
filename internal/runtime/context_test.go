package runtime_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fmfi-svt/podstrom/internal/git"
	"github.com/fmfi-svt/podstrom/internal/runtime"
	"github.com/fmfi-svt/podstrom/testhelpers"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.SubdirSceneSetup)
	head, err := scene.Repo.GetRevision("HEAD")
	require.NoError(t, err)

	for _, backend := range []string{"git", "go-git"} {
		t.Run(backend, func(t *testing.T) {
			store, err := runtime.OpenStore(ctx, backend, scene.Dir)
			require.NoError(t, err)

			rt := runtime.NewContext(ctx, store, nil)
			got, err := rt.Store.ResolveRevision(ctx, "main")
			require.NoError(t, err)
			require.Equal(t, git.ObjectID(head), got)
			require.NoError(t, rt.Close())
		})
	}

	t.Run("unknown backend", func(t *testing.T) {
		_, err := runtime.OpenStore(ctx, "svn", scene.Dir)
		require.ErrorContains(t, err, "unknown backend")
	})
}

func TestFindGitDir(t *testing.T) {
	ctx := context.Background()
	scene := testhelpers.NewScene(t, nil)

	gitDir, err := runtime.FindGitDir(ctx, scene.Dir)
	require.NoError(t, err)
	require.Equal(t, ".git", filepath.Base(gitDir))

	_, err = runtime.FindGitDir(ctx, t.TempDir())
	require.ErrorContains(t, err, "not a git repository")
}
