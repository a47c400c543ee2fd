package subtree_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fmfi-svt/podstrom/internal/git"
	"github.com/fmfi-svt/podstrom/internal/subtree"
	"github.com/fmfi-svt/podstrom/testhelpers"
)

// emptyTreeID is git's well-known id of the tree with no entries
const emptyTreeID = git.ObjectID("4b825dc642cb6eb9a060e54bf8d69288fbee4904")

func TestTreeFilter(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the subdirectory tree unchanged", func(t *testing.T) {
		h := testhelpers.NewHistory(t)
		commit := h.CommitFiles(map[string]string{
			"sub/a":     "A",
			"sub/d/e":   "E",
			"other/x":   "X",
			"README.md": "readme",
		}, "root\n")

		filter := subtree.NewTreeFilter(h.Store, "sub")
		tree, found, err := filter.Filter(ctx, commit)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, h.Tree(map[string]string{"a": "A", "d/e": "E"}), tree)
	})

	t.Run("resolves nested paths", func(t *testing.T) {
		h := testhelpers.NewHistory(t)
		commit := h.CommitFiles(map[string]string{"a/b/c/f": "F"}, "nested\n")

		tree, found, err := subtree.NewTreeFilter(h.Store, "/a/b/").Filter(ctx, commit)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, h.Tree(map[string]string{"c/f": "F"}), tree)
	})

	t.Run("missing directory gives the empty tree", func(t *testing.T) {
		h := testhelpers.NewHistory(t)
		commit := h.CommitFiles(map[string]string{"other/x": "X"}, "no sub\n")

		tree, found, err := subtree.NewTreeFilter(h.Store, "sub").Filter(ctx, commit)
		require.NoError(t, err)
		require.False(t, found)
		require.Equal(t, emptyTreeID, tree)
	})

	t.Run("a file at the path gives the empty tree", func(t *testing.T) {
		h := testhelpers.NewHistory(t)
		commit := h.CommitFiles(map[string]string{"sub": "just a file"}, "file\n")

		tree, found, err := subtree.NewTreeFilter(h.Store, "sub").Filter(ctx, commit)
		require.NoError(t, err)
		require.False(t, found)
		require.Equal(t, emptyTreeID, tree)
	})

	t.Run("empty path selects the whole tree", func(t *testing.T) {
		h := testhelpers.NewHistory(t)
		files := map[string]string{"x": "1", "y/z": "2"}
		commit := h.CommitFiles(files, "all\n")

		tree, found, err := subtree.NewTreeFilter(h.Store, "").Filter(ctx, commit)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, h.Tree(files), tree)
	})

	t.Run("empty tree is written once", func(t *testing.T) {
		h := testhelpers.NewHistory(t)
		counting := &countingStore{ObjectStore: h.Store}
		first := h.CommitFiles(map[string]string{"x": "1"}, "one\n")
		second := h.CommitFiles(map[string]string{"y": "2"}, "two\n", first)

		filter := subtree.NewTreeFilter(counting, "sub")
		for _, c := range []git.ObjectID{first, second, first} {
			tree, _, err := filter.Filter(ctx, c)
			require.NoError(t, err)
			require.Equal(t, emptyTreeID, tree)
		}
		require.Equal(t, 1, counting.writes[git.TreeObject])
	})
}
