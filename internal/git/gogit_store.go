package git

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/memory"

	podstromerrors "github.com/fmfi-svt/podstrom/internal/errors"
)

// maxPeelDepth bounds tag-to-tag chains
const maxPeelDepth = 32

// GoGitStore implements ObjectStore directly on a go-git repository.
type GoGitStore struct {
	repo *gogit.Repository
}

// NewGoGitStore wraps an already opened go-git repository
func NewGoGitStore(repo *gogit.Repository) *GoGitStore {
	return &GoGitStore{repo: repo}
}

// OpenGoGitStore opens the repository containing path
func OpenGoGitStore(path string) (*GoGitStore, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return NewGoGitStore(repo), nil
}

// FindGitDir returns the git directory of the repository containing path
func FindGitDir(path string) (string, error) {
	store, err := OpenGoGitStore(path)
	if err != nil {
		return "", err
	}
	dir := store.GitDir()
	if dir == "" {
		return "", fmt.Errorf("repository at %s is not stored on disk", path)
	}
	return dir, nil
}

// GitDir returns the directory holding the repository's objects and refs, or "" for in-memory stores
func (s *GoGitStore) GitDir() string {
	if fs, ok := s.repo.Storer.(*filesystem.Storage); ok {
		return fs.Filesystem().Root()
	}
	return ""
}

// NewMemoryStore creates an empty repository held entirely in memory
func NewMemoryStore() *GoGitStore {
	repo, err := gogit.Init(memory.NewStorage(), nil)
	if err != nil {
		// Init on a fresh memory storage cannot find an existing repository
		panic(fmt.Sprintf("failed to init in-memory repository: %v", err))
	}
	return NewGoGitStore(repo)
}

// toHash converts an id to a go-git hash, rejecting anything that is not a full sha1
func toHash(id ObjectID) (plumbing.Hash, bool) {
	if len(id) != 2*len(plumbing.ZeroHash) {
		return plumbing.ZeroHash, false
	}
	if _, err := hex.DecodeString(string(id)); err != nil {
		return plumbing.ZeroHash, false
	}
	return plumbing.NewHash(string(id)), true
}

func fromHash(h plumbing.Hash) ObjectID {
	return ObjectID(h.String())
}

// ResolveRevision resolves name with go-git's revision parser and peels it to a commit
func (s *GoGitStore) ResolveRevision(_ context.Context, name string) (ObjectID, error) {
	h, err := s.repo.ResolveRevision(plumbing.Revision(name))
	if err != nil {
		return "", podstromerrors.NewUnresolvableRevisionError(name, err)
	}
	obj, err := s.peel(*h)
	if err != nil {
		return "", podstromerrors.NewUnresolvableRevisionError(name, err)
	}
	if obj.Type() != plumbing.CommitObject {
		return "", podstromerrors.NewUnresolvableRevisionError(name, fmt.Errorf("%s is a %s, not a commit", h, obj.Type()))
	}
	return fromHash(obj.Hash()), nil
}

// peel loads an object and follows tags until a non-tag object is reached
func (s *GoGitStore) peel(h plumbing.Hash) (plumbing.EncodedObject, error) {
	for range maxPeelDepth {
		obj, err := s.repo.Storer.EncodedObject(plumbing.AnyObject, h)
		if err != nil {
			return nil, err
		}
		if obj.Type() != plumbing.TagObject {
			return obj, nil
		}
		tag, err := object.DecodeTag(s.repo.Storer, obj)
		if err != nil {
			return nil, fmt.Errorf("failed to decode tag %s: %w", h, err)
		}
		h = tag.Target
	}
	return nil, fmt.Errorf("tag chain at %s is too deep", h)
}

// Inspect answers the same queries as `git cat-file --batch`:
// "<id>", "<id>^{}" and "<id>:<path>".
func (s *GoGitStore) Inspect(_ context.Context, query string) (ObjectInfo, error) {
	switch {
	case strings.HasSuffix(query, "^{}"):
		h, ok := toHash(ObjectID(strings.TrimSuffix(query, "^{}")))
		if !ok {
			return ObjectInfo{Missing: true}, nil
		}
		obj, err := s.peel(h)
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return ObjectInfo{Missing: true}, nil
		}
		if err != nil {
			return ObjectInfo{}, err
		}
		return infoOf(obj), nil

	case strings.Contains(query, ":"):
		rev, path, _ := strings.Cut(query, ":")
		return s.inspectPath(ObjectID(rev), path)

	default:
		h, ok := toHash(ObjectID(query))
		if !ok {
			return ObjectInfo{Missing: true}, nil
		}
		obj, err := s.repo.Storer.EncodedObject(plumbing.AnyObject, h)
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return ObjectInfo{Missing: true}, nil
		}
		if err != nil {
			return ObjectInfo{}, err
		}
		return infoOf(obj), nil
	}
}

// inspectPath resolves path inside the tree of a commit or tree
func (s *GoGitStore) inspectPath(rev ObjectID, path string) (ObjectInfo, error) {
	h, ok := toHash(rev)
	if !ok {
		return ObjectInfo{Missing: true}, nil
	}
	obj, err := s.peel(h)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return ObjectInfo{Missing: true}, nil
	}
	if err != nil {
		return ObjectInfo{}, err
	}

	var tree *object.Tree
	switch obj.Type() {
	case plumbing.CommitObject:
		commit, err := object.DecodeCommit(s.repo.Storer, obj)
		if err != nil {
			return ObjectInfo{}, fmt.Errorf("failed to decode commit %s: %w", obj.Hash(), err)
		}
		if tree, err = commit.Tree(); err != nil {
			return ObjectInfo{}, fmt.Errorf("failed to load tree of %s: %w", obj.Hash(), err)
		}
	case plumbing.TreeObject:
		if tree, err = object.DecodeTree(s.repo.Storer, obj); err != nil {
			return ObjectInfo{}, fmt.Errorf("failed to decode tree %s: %w", obj.Hash(), err)
		}
	default:
		return ObjectInfo{Missing: true}, nil
	}

	path = strings.Trim(path, "/")
	if path == "" {
		return s.infoByHash(tree.Hash, TreeObject)
	}

	entry, err := tree.FindEntry(path)
	switch {
	case errors.Is(err, object.ErrEntryNotFound),
		errors.Is(err, object.ErrDirectoryNotFound),
		errors.Is(err, object.ErrFileNotFound),
		errors.Is(err, plumbing.ErrObjectNotFound):
		// An intermediate component that is a file also lands here
		return ObjectInfo{Missing: true}, nil
	case err != nil:
		return ObjectInfo{}, fmt.Errorf("failed to look up %s in %s: %w", path, rev, err)
	}

	switch entry.Mode {
	case filemode.Dir:
		return s.infoByHash(entry.Hash, TreeObject)
	case filemode.Submodule:
		// The submodule commit lives in another repository
		return ObjectInfo{ID: fromHash(entry.Hash), Type: CommitObject}, nil
	default:
		return s.infoByHash(entry.Hash, BlobObject)
	}
}

func (s *GoGitStore) infoByHash(h plumbing.Hash, objType ObjectType) (ObjectInfo, error) {
	obj, err := s.repo.Storer.EncodedObject(plumbing.AnyObject, h)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return ObjectInfo{Missing: true}, nil
	}
	if err != nil {
		return ObjectInfo{}, err
	}
	info := infoOf(obj)
	info.Type = objType
	return info, nil
}

func infoOf(obj plumbing.EncodedObject) ObjectInfo {
	return ObjectInfo{
		ID:   fromHash(obj.Hash()),
		Type: ObjectType(obj.Type().String()),
		Size: obj.Size(),
	}
}

// ReadObject returns the payload of a peeled object
func (s *GoGitStore) ReadObject(_ context.Context, id ObjectID) (ObjectType, []byte, error) {
	h, ok := toHash(id)
	if !ok {
		return "", nil, podstromerrors.NewObjectMissingError(id.String())
	}
	obj, err := s.peel(h)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return "", nil, podstromerrors.NewObjectMissingError(id.String())
	}
	if err != nil {
		return "", nil, err
	}

	reader, err := obj.Reader()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open object %s: %w", id, err)
	}
	defer reader.Close()

	payload, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read object %s: %w", id, err)
	}
	return ObjectType(obj.Type().String()), payload, nil
}

// WriteObject stores payload as a new object of the given type
func (s *GoGitStore) WriteObject(_ context.Context, objType ObjectType, payload []byte) (ObjectID, error) {
	t, err := plumbing.ParseObjectType(string(objType))
	if err != nil {
		return "", podstromerrors.NewStoreWriteError(string(objType), err)
	}

	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(t)
	obj.SetSize(int64(len(payload)))

	w, err := obj.Writer()
	if err != nil {
		return "", podstromerrors.NewStoreWriteError(string(objType), err)
	}
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return "", podstromerrors.NewStoreWriteError(string(objType), err)
	}
	if err := w.Close(); err != nil {
		return "", podstromerrors.NewStoreWriteError(string(objType), err)
	}

	h, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return "", podstromerrors.NewStoreWriteError(string(objType), err)
	}
	return fromHash(h), nil
}

// UpdateRef points name at target. go-git keeps no reflog, so message is unused.
func (s *GoGitStore) UpdateRef(_ context.Context, name string, target ObjectID, _ string) error {
	h, ok := toHash(target)
	if !ok {
		return fmt.Errorf("invalid ref target %q", target)
	}
	ref := plumbing.NewHashReference(plumbing.ReferenceName(name), h)
	if err := s.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("failed to update %s: %w", name, err)
	}
	return nil
}

// ForEachCommit walks every commit reachable from HEAD and all references
func (s *GoGitStore) ForEachCommit(ctx context.Context, fn func(CommitInfo) error) error {
	tips, err := s.refTips()
	if err != nil {
		return err
	}

	seen := make(map[plumbing.Hash]struct{}, len(tips))
	stack := make([]plumbing.Hash, 0, len(tips))
	for _, tip := range tips {
		if _, ok := seen[tip]; ok {
			continue
		}
		seen[tip] = struct{}{}
		stack = append(stack, tip)
	}

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		commit, err := s.repo.CommitObject(h)
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			// Shallow boundary
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load commit %s: %w", h, err)
		}

		if err := fn(CommitInfo{
			ID:            fromHash(commit.Hash),
			Message:       commit.Message,
			CommitterTime: commit.Committer.When,
		}); err != nil {
			return err
		}

		for _, p := range commit.ParentHashes {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			stack = append(stack, p)
		}
	}
	return nil
}

// refTips returns the commit each reference (and HEAD) ultimately points at
func (s *GoGitStore) refTips() ([]plumbing.Hash, error) {
	var tips []plumbing.Hash
	add := func(h plumbing.Hash) {
		obj, err := s.peel(h)
		if err != nil || obj.Type() != plumbing.CommitObject {
			// refs to trees, blobs or missing objects hold no history
			return
		}
		tips = append(tips, obj.Hash())
	}

	if head, err := s.repo.Head(); err == nil {
		add(head.Hash())
	}

	refs, err := s.repo.References()
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() == plumbing.HashReference {
			add(ref.Hash())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate references: %w", err)
	}
	return tips, nil
}

// Close is a no-op; go-git storers hold no process state
func (s *GoGitStore) Close() error {
	return nil
}
