package git

import (
	"context"
	"time"
)

// ObjectID is a content hash identifying a commit, tree or blob.
// It is compared and hashed as an opaque value and never parsed.
type ObjectID string

// String returns the hex form of the id
func (id ObjectID) String() string {
	return string(id)
}

// IsZero reports whether the id is empty
func (id ObjectID) IsZero() bool {
	return id == ""
}

// ObjectType is the type name git uses for an object
type ObjectType string

// Object types understood by the store
const (
	CommitObject ObjectType = "commit"
	TreeObject   ObjectType = "tree"
	BlobObject   ObjectType = "blob"
	TagObject    ObjectType = "tag"
)

// ObjectInfo is the metadata returned for a batch lookup.
// When Missing is set, the other fields are empty.
type ObjectInfo struct {
	ID      ObjectID
	Type    ObjectType
	Size    int64
	Missing bool
}

// CommitInfo is what a history scan yields for each commit
type CommitInfo struct {
	ID            ObjectID
	Message       string
	CommitterTime time.Time
}

// ObjectStore is the narrow, synchronous protocol to the object database.
// Implementations are not safe for concurrent use: callers must serialize
// all access to one instance.
type ObjectStore interface {
	// ResolveRevision resolves a revision name to a commit id
	ResolveRevision(ctx context.Context, name string) (ObjectID, error)

	// Inspect looks up "<id>", "<id>:<path>" or "<id>^{}".
	// A query that does not resolve is reported with Missing set, not as an error.
	Inspect(ctx context.Context, query string) (ObjectInfo, error)

	// ReadObject returns the type and payload of an object, peeling tags
	ReadObject(ctx context.Context, id ObjectID) (ObjectType, []byte, error)

	// WriteObject durably stores a new object and returns its id
	WriteObject(ctx context.Context, objType ObjectType, payload []byte) (ObjectID, error)

	// UpdateRef points a named reference at a commit
	UpdateRef(ctx context.Context, name string, target ObjectID, message string) error

	// ForEachCommit calls fn for every commit reachable from any reference.
	// The order is unspecified.
	ForEachCommit(ctx context.Context, fn func(CommitInfo) error) error

	// Close releases the store's resources
	Close() error
}
