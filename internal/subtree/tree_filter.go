package subtree

import (
	"context"
	"fmt"

	"github.com/fmfi-svt/podstrom/internal/git"
)

// TreeFilter resolves the tree a rewritten commit should carry.
// The subdirectory's tree object is reused as is: it is content addressed,
// so its id does not depend on where it sits in the original tree.
type TreeFilter struct {
	store     git.ObjectStore
	path      string
	emptyTree git.ObjectID
}

// NewTreeFilter creates a filter extracting path from each commit
func NewTreeFilter(store git.ObjectStore, path string) *TreeFilter {
	return &TreeFilter{store: store, path: NormalizePath(path)}
}

// Path returns the normalized subdirectory path
func (f *TreeFilter) Path() string {
	return f.path
}

// EmptyTree returns the canonical empty tree, writing it on first use
func (f *TreeFilter) EmptyTree(ctx context.Context) (git.ObjectID, error) {
	if f.emptyTree.IsZero() {
		id, err := f.store.WriteObject(ctx, git.TreeObject, []byte{})
		if err != nil {
			return "", fmt.Errorf("failed to write empty tree: %w", err)
		}
		f.emptyTree = id
	}
	return f.emptyTree, nil
}

// Filter returns the tree of path in commit. When path is missing or is not
// a directory the empty tree is returned and found is false.
func (f *TreeFilter) Filter(ctx context.Context, commit git.ObjectID) (tree git.ObjectID, found bool, err error) {
	info, err := f.store.Inspect(ctx, commit.String()+":"+f.path)
	if err != nil {
		return "", false, fmt.Errorf("failed to inspect %s:%s: %w", commit, f.path, err)
	}
	if info.Missing || info.Type != git.TreeObject {
		empty, err := f.EmptyTree(ctx)
		if err != nil {
			return "", false, err
		}
		return empty, false, nil
	}
	return info.ID, true, nil
}
