package testhelpers

import (
	"context"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/fmfi-svt/podstrom/internal/git"
)

// historyEpoch is the author/committer time of the first commit built by a History
var historyEpoch = time.Date(2020, time.January, 1, 12, 0, 0, 0, time.UTC)

// History builds trees and commits directly in an object store.
// Every commit gets a distinct, deterministic timestamp so ids are stable across runs.
type History struct {
	t     testing.TB
	Store git.ObjectStore
	clock time.Time
}

// NewHistory creates a History on an in-memory go-git store
func NewHistory(t testing.TB) *History {
	return NewHistoryOn(t, git.NewMemoryStore())
}

// NewHistoryOn creates a History writing into store
func NewHistoryOn(t testing.TB, store git.ObjectStore) *History {
	return &History{t: t, Store: store, clock: historyEpoch}
}

// Tree writes a tree holding files (slash separated path -> content) and returns its id.
// A nil or empty map gives the empty tree.
func (h *History) Tree(files map[string]string) git.ObjectID {
	h.t.Helper()
	root := &dirNode{}
	for path, content := range files {
		root.add(strings.Split(path, "/"), content)
	}
	return h.writeDir(root)
}

type dirNode struct {
	files map[string]string
	dirs  map[string]*dirNode
}

func (d *dirNode) add(parts []string, content string) {
	if len(parts) == 1 {
		if d.files == nil {
			d.files = make(map[string]string)
		}
		d.files[parts[0]] = content
		return
	}
	if d.dirs == nil {
		d.dirs = make(map[string]*dirNode)
	}
	child, ok := d.dirs[parts[0]]
	if !ok {
		child = &dirNode{}
		d.dirs[parts[0]] = child
	}
	child.add(parts[1:], content)
}

func (h *History) writeDir(d *dirNode) git.ObjectID {
	h.t.Helper()
	var entries []object.TreeEntry
	for name, content := range d.files {
		id := h.write(git.BlobObject, []byte(content))
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: plumbing.NewHash(id.String())})
	}
	for name, child := range d.dirs {
		id := h.writeDir(child)
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: plumbing.NewHash(id.String())})
	}

	// git orders entries as if directory names ended in "/"
	sortKey := func(e object.TreeEntry) string {
		if e.Mode == filemode.Dir {
			return e.Name + "/"
		}
		return e.Name
	}
	sort.Slice(entries, func(i, j int) bool {
		return sortKey(entries[i]) < sortKey(entries[j])
	})

	tree := &object.Tree{Entries: entries}
	return h.writeEncoded(git.TreeObject, tree.Encode)
}

// Commit writes a commit with the given tree, message and parents
func (h *History) Commit(tree git.ObjectID, message string, parents ...git.ObjectID) git.ObjectID {
	h.t.Helper()
	h.clock = h.clock.Add(time.Minute)
	sig := object.Signature{Name: "Test User", Email: "test@example.com", When: h.clock}

	commit := &object.Commit{
		Author:    sig,
		Committer: sig,
		Message:   message,
		TreeHash:  plumbing.NewHash(tree.String()),
	}
	for _, p := range parents {
		commit.ParentHashes = append(commit.ParentHashes, plumbing.NewHash(p.String()))
	}
	return h.writeEncoded(git.CommitObject, commit.Encode)
}

// CommitFiles writes a tree for files and a commit on top of it
func (h *History) CommitFiles(files map[string]string, message string, parents ...git.ObjectID) git.ObjectID {
	h.t.Helper()
	return h.Commit(h.Tree(files), message, parents...)
}

// RawCommit writes body verbatim as a commit object
func (h *History) RawCommit(body string) git.ObjectID {
	h.t.Helper()
	return h.write(git.CommitObject, []byte(body))
}

// Branch points refs/heads/<name> at id
func (h *History) Branch(name string, id git.ObjectID) {
	h.t.Helper()
	require.NoError(h.t, h.Store.UpdateRef(context.Background(), "refs/heads/"+name, id, "test"))
}

// ReadCommit loads and parses a commit
func (h *History) ReadCommit(id git.ObjectID) *git.CommitRecord {
	h.t.Helper()
	objType, body, err := h.Store.ReadObject(context.Background(), id)
	require.NoError(h.t, err)
	require.Equal(h.t, git.CommitObject, objType)
	record, err := git.ParseCommit(body)
	require.NoError(h.t, err)
	return record
}

func (h *History) write(objType git.ObjectType, payload []byte) git.ObjectID {
	h.t.Helper()
	id, err := h.Store.WriteObject(context.Background(), objType, payload)
	require.NoError(h.t, err)
	return id
}

// writeEncoded runs a go-git encoder and stores the bytes it produced
func (h *History) writeEncoded(objType git.ObjectType, encode func(plumbing.EncodedObject) error) git.ObjectID {
	h.t.Helper()
	obj := &plumbing.MemoryObject{}
	require.NoError(h.t, encode(obj))
	reader, err := obj.Reader()
	require.NoError(h.t, err)
	defer reader.Close()
	payload, err := io.ReadAll(reader)
	require.NoError(h.t, err)
	return h.write(objType, payload)
}
