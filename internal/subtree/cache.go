package subtree

import (
	"context"
	"fmt"
	"time"

	"github.com/fmfi-svt/podstrom/internal/git"
)

// Cache maps original commit ids to their rewritten counterparts.
// Entries are only ever added. It is owned by one Rewriter and is not
// safe for concurrent use.
type Cache struct {
	entries map[git.ObjectID]git.ObjectID
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[git.ObjectID]git.ObjectID)}
}

// Get returns the rewritten id for original, if known
func (c *Cache) Get(original git.ObjectID) (git.ObjectID, bool) {
	id, ok := c.entries[original]
	return id, ok
}

// Put records the rewritten id for original
func (c *Cache) Put(original, rewritten git.ObjectID) {
	c.entries[original] = rewritten
}

// Len returns the number of entries
func (c *Cache) Len() int {
	return len(c.entries)
}

type cacheCandidate struct {
	id   git.ObjectID
	when time.Time
}

// better reports whether a should replace b when both claim the same original.
// The latest committer time wins and ties go to the smaller id, so the
// result does not depend on scan order.
func (a cacheCandidate) better(b cacheCandidate) bool {
	if !a.when.Equal(b.when) {
		return a.when.After(b.when)
	}
	return a.id < b.id
}

// BuildCache scans every commit reachable from any reference and records
// each one whose message ends in a marker for path.
func BuildCache(ctx context.Context, store git.ObjectStore, path string, log Logger) (*Cache, error) {
	log = loggerOrNop(log)

	candidates := make(map[git.ObjectID]cacheCandidate)
	scanned := 0
	err := store.ForEachCommit(ctx, func(c git.CommitInfo) error {
		scanned++
		marker, ok := ParseMarker(c.Message)
		if !ok || !marker.Matches(path) {
			return nil
		}
		candidate := cacheCandidate{id: c.ID, when: c.CommitterTime}
		if existing, seen := candidates[marker.Original]; seen && !candidate.better(existing) {
			return nil
		}
		candidates[marker.Original] = candidate
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan history: %w", err)
	}

	cache := NewCache()
	for original, candidate := range candidates {
		cache.Put(original, candidate.id)
	}
	log.Info("found %d subtree commits in %d scanned", cache.Len(), scanned)
	return cache, nil
}
