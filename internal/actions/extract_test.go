package actions_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fmfi-svt/podstrom/internal/actions"
	podstromerrors "github.com/fmfi-svt/podstrom/internal/errors"
	"github.com/fmfi-svt/podstrom/internal/git"
	"github.com/fmfi-svt/podstrom/internal/output"
	"github.com/fmfi-svt/podstrom/internal/runtime"
	"github.com/fmfi-svt/podstrom/internal/subtree"
	"github.com/fmfi-svt/podstrom/testhelpers"
)

// newTestContext returns a context over store whose results and logs are captured
func newTestContext(t *testing.T, store git.ObjectStore) (*runtime.Context, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	splog, err := output.NewSplogWithOptions(output.Options{Writer: &stderr, NoColor: true})
	require.NoError(t, err)
	ctx := runtime.NewContext(context.Background(), store, splog)
	ctx.Stdout = &stdout
	return ctx, &stdout, &stderr
}

func threeCommits(h *testhelpers.History) (r, c1, c2 git.ObjectID) {
	r = h.CommitFiles(map[string]string{"sub/a": "a"}, "R\n")
	c1 = h.CommitFiles(map[string]string{"sub/a": "a", "sub/b": "b", "other/x": "x1"}, "C1\n", r)
	c2 = h.CommitFiles(map[string]string{"sub/a": "a", "sub/b": "b", "other/x": "x2"}, "C2\n", c1)
	h.Branch("main", c2)
	h.Branch("older", c1)
	return r, c1, c2
}

func printedIDs(stdout *bytes.Buffer) []git.ObjectID {
	var ids []git.ObjectID
	for _, line := range strings.Split(strings.TrimSpace(stdout.String()), "\n") {
		if line != "" {
			ids = append(ids, git.ObjectID(line))
		}
	}
	return ids
}

func TestExtractAction(t *testing.T) {
	t.Run("prints one id per revision in input order", func(t *testing.T) {
		h := testhelpers.NewHistory(t)
		_, c1, c2 := threeCommits(h)
		ctx, stdout, stderr := newTestContext(t, h.Store)

		err := actions.ExtractAction(ctx, actions.ExtractOptions{Path: "sub", Revisions: []string{"main", "older"}})
		require.NoError(t, err)

		ids := printedIDs(stdout)
		require.Len(t, ids, 2)

		top := h.ReadCommit(ids[0])
		require.Equal(t, h.Tree(map[string]string{"a": "a", "b": "b"}), top.Tree())
		require.Equal(t, []git.ObjectID{ids[1]}, top.Parents())

		marker, ok := subtree.ParseMarker(top.Message)
		require.True(t, ok)
		require.Equal(t, c2, marker.Original)
		marker, _ = subtree.ParseMarker(h.ReadCommit(ids[1]).Message)
		require.Equal(t, c1, marker.Original)

		require.Contains(t, stderr.String(), "scanning history for rewritten commits")
		require.Contains(t, stderr.String(), "found 0 subtree commits")
		require.Contains(t, stderr.String(), "rewrote 3 commits, 1 already rewritten, 0 excluded")
	})

	t.Run("update moves the branch instead of printing", func(t *testing.T) {
		h := testhelpers.NewHistory(t)
		threeCommits(h)
		ctx, stdout, _ := newTestContext(t, h.Store)

		require.NoError(t, actions.ExtractAction(ctx, actions.ExtractOptions{Path: "sub", Revisions: []string{"main"}, Update: "split"}))
		require.Empty(t, stdout.String())

		split, err := h.Store.ResolveRevision(context.Background(), "refs/heads/split")
		require.NoError(t, err)
		require.Equal(t, h.Tree(map[string]string{"a": "a", "b": "b"}), h.ReadCommit(split).Tree())
	})

	t.Run("second run reuses the first run's commits", func(t *testing.T) {
		h := testhelpers.NewHistory(t)
		_, _, c2 := threeCommits(h)

		ctx, _, _ := newTestContext(t, h.Store)
		require.NoError(t, actions.ExtractAction(ctx, actions.ExtractOptions{Path: "sub", Revisions: []string{"main"}, Update: "split"}))
		first, err := h.Store.ResolveRevision(context.Background(), "split")
		require.NoError(t, err)

		c3 := h.CommitFiles(map[string]string{"sub/a": "a2", "sub/b": "b", "other/x": "x2"}, "C3\n", c2)
		h.Branch("main", c3)

		ctx, stdout, stderr := newTestContext(t, h.Store)
		require.NoError(t, actions.ExtractAction(ctx, actions.ExtractOptions{Path: "sub", Revisions: []string{"main"}}))
		require.Contains(t, stderr.String(), "found 3 subtree commits")
		require.Contains(t, stderr.String(), "rewrote 1 commits, 1 already rewritten")

		ids := printedIDs(stdout)
		require.Len(t, ids, 1)
		require.Equal(t, []git.ObjectID{first}, h.ReadCommit(ids[0]).Parents())
	})

	t.Run("update rejects several revisions before touching the store", func(t *testing.T) {
		h := testhelpers.NewHistory(t)
		threeCommits(h)
		ctx, stdout, _ := newTestContext(t, h.Store)

		err := actions.ExtractAction(ctx, actions.ExtractOptions{Path: "sub", Revisions: []string{"main", "older"}, Update: "split"})
		require.ErrorIs(t, err, podstromerrors.ErrUpdateWithMultipleRevs)
		require.Empty(t, stdout.String())
	})

	t.Run("an unresolvable revision fails before any output", func(t *testing.T) {
		h := testhelpers.NewHistory(t)
		threeCommits(h)
		counting := &writeCounter{ObjectStore: h.Store}
		ctx, stdout, _ := newTestContext(t, counting)

		err := actions.ExtractAction(ctx, actions.ExtractOptions{Path: "sub", Revisions: []string{"main", "nope"}})
		require.ErrorIs(t, err, podstromerrors.ErrUnresolvableRevision)
		require.Empty(t, stdout.String())
		require.Zero(t, counting.writes)
	})

	t.Run("no revisions", func(t *testing.T) {
		ctx, _, _ := newTestContext(t, git.NewMemoryStore())
		require.Error(t, actions.ExtractAction(ctx, actions.ExtractOptions{Path: "sub"}))
	})

	t.Run("an excluded revision is an error", func(t *testing.T) {
		h := testhelpers.NewHistory(t)
		h.Branch("main", h.CommitFiles(map[string]string{"other/x": "x"}, "unrelated\n"))
		ctx, stdout, _ := newTestContext(t, h.Store)

		err := actions.ExtractAction(ctx, actions.ExtractOptions{Path: "sub", Revisions: []string{"main"}, SkipAbsent: true})
		require.ErrorIs(t, err, podstromerrors.ErrNothingToExtract)
		require.Empty(t, stdout.String())
	})

	t.Run("strips signatures when asked", func(t *testing.T) {
		h := testhelpers.NewHistory(t)
		tree := h.Tree(map[string]string{"sub/a": "a"})
		signed := h.RawCommit("tree " + tree.String() + "\n" +
			"author A <a@example.com> 1577880000 +0000\n" +
			"committer A <a@example.com> 1577880000 +0000\n" +
			"gpgsig -----BEGIN PGP SIGNATURE-----\n \n abc\n -----END PGP SIGNATURE-----\n" +
			"\nsigned\n")
		h.Branch("main", signed)
		ctx, stdout, _ := newTestContext(t, h.Store)

		require.NoError(t, actions.ExtractAction(ctx, actions.ExtractOptions{Path: "sub", Revisions: []string{"main"}, StripSignatures: true}))
		ids := printedIDs(stdout)
		require.Len(t, ids, 1)
		for _, header := range h.ReadCommit(ids[0]).Headers {
			require.False(t, strings.HasPrefix(header, "gpgsig"), header)
		}
	})
}

// writeCounter counts object writes
type writeCounter struct {
	git.ObjectStore
	writes int
}

func (s *writeCounter) WriteObject(ctx context.Context, objType git.ObjectType, payload []byte) (git.ObjectID, error) {
	s.writes++
	return s.ObjectStore.WriteObject(ctx, objType, payload)
}
