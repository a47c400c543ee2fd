package subtree

import (
	"context"
	"fmt"

	"github.com/emirpasic/gods/stacks/arraystack"

	podstromerrors "github.com/fmfi-svt/podstrom/internal/errors"
	"github.com/fmfi-svt/podstrom/internal/git"
)

// Options tune how commits are rewritten
type Options struct {
	// StripSignatures drops gpgsig headers, whose signatures cannot verify
	// against the rewritten body anyway
	StripSignatures bool

	// SkipAbsent excludes commits that lack the subdirectory instead of giving
	// them the empty tree. Children of an excluded commit lose that parent link.
	SkipAbsent bool
}

// Stats counts what a Rewriter has done so far
type Stats struct {
	Rewritten int
	CacheHits int
	Excluded  int
}

// Rewriter transforms original commits into commits whose trees hold only
// one subdirectory. It owns its cache and must not be used concurrently.
type Rewriter struct {
	store    git.ObjectStore
	filter   *TreeFilter
	cache    *Cache
	excluded map[git.ObjectID]struct{}
	opts     Options
	log      Logger
	stats    Stats
}

// NewRewriter creates a Rewriter for path. A nil cache starts empty.
func NewRewriter(store git.ObjectStore, path string, cache *Cache, opts Options, log Logger) *Rewriter {
	if cache == nil {
		cache = NewCache()
	}
	return &Rewriter{
		store:    store,
		filter:   NewTreeFilter(store, path),
		cache:    cache,
		excluded: make(map[git.ObjectID]struct{}),
		opts:     opts,
		log:      loggerOrNop(log),
	}
}

// Cache returns the memoization table
func (r *Rewriter) Cache() *Cache {
	return r.cache
}

// Stats returns counters accumulated over all Transform calls
func (r *Rewriter) Stats() Stats {
	return r.stats
}

// pending is a commit on the work stack whose parents are being resolved
type pending struct {
	id      git.ObjectID
	record  *git.CommitRecord
	tree    git.ObjectID
	parents []git.ObjectID
	next    int
}

// Transform returns the rewritten counterpart of original. ok is false only
// when SkipAbsent is set and original was excluded.
//
// Parents are always rewritten before their children. The traversal keeps
// its own stack, so its depth is bounded by memory rather than by the
// goroutine stack.
func (r *Rewriter) Transform(ctx context.Context, original git.ObjectID) (id git.ObjectID, ok bool, err error) {
	if id, ok, done := r.lookup(original); done {
		r.stats.CacheHits++
		return id, ok, nil
	}

	stack := arraystack.New()
	onStack := map[git.ObjectID]struct{}{original: {}}
	stack.Push(&pending{id: original})

	for !stack.Empty() {
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		default:
		}

		top, _ := stack.Peek()
		current := top.(*pending)

		if current.record == nil {
			keep, err := r.load(ctx, current)
			if err != nil {
				return "", false, err
			}
			if !keep {
				r.excluded[current.id] = struct{}{}
				r.stats.Excluded++
				r.finish(stack, onStack, current)
				continue
			}
		}

		pushed, err := r.pushNextParent(stack, onStack, current)
		if err != nil {
			return "", false, err
		}
		if pushed {
			continue
		}

		newID, err := r.write(ctx, current)
		if err != nil {
			return "", false, err
		}
		r.cache.Put(current.id, newID)
		r.stats.Rewritten++
		r.finish(stack, onStack, current)
	}

	id, ok, _ = r.lookup(original)
	return id, ok, nil
}

// lookup reports the outcome for an already processed commit
func (r *Rewriter) lookup(original git.ObjectID) (id git.ObjectID, ok bool, done bool) {
	if id, found := r.cache.Get(original); found {
		return id, true, true
	}
	if _, found := r.excluded[original]; found {
		return "", false, true
	}
	return "", false, false
}

func (r *Rewriter) finish(stack *arraystack.Stack, onStack map[git.ObjectID]struct{}, current *pending) {
	stack.Pop()
	delete(onStack, current.id)
}

// load reads the commit and resolves its tree. It returns false when the
// commit is excluded.
func (r *Rewriter) load(ctx context.Context, p *pending) (bool, error) {
	objType, body, err := r.store.ReadObject(ctx, p.id)
	if err != nil {
		return false, fmt.Errorf("failed to read commit %s: %w", p.id, err)
	}
	if objType != git.CommitObject {
		return false, fmt.Errorf("object %s is a %s, not a commit", p.id, objType)
	}
	record, err := git.ParseCommit(body)
	if err != nil {
		return false, fmt.Errorf("failed to parse commit %s: %w", p.id, err)
	}

	tree, found, err := r.filter.Filter(ctx, p.id)
	if err != nil {
		return false, err
	}
	if !found && r.opts.SkipAbsent {
		r.log.Debug("skipping %s: no %s", p.id, r.filter.Path())
		return false, nil
	}

	p.record = record
	p.tree = tree
	p.parents = record.Parents()
	return true, nil
}

// pushNextParent pushes the first parent of p that is not yet processed.
// It returns false once every parent is resolved.
func (r *Rewriter) pushNextParent(stack *arraystack.Stack, onStack map[git.ObjectID]struct{}, p *pending) (bool, error) {
	for p.next < len(p.parents) {
		parent := p.parents[p.next]
		p.next++

		if _, _, done := r.lookup(parent); done {
			r.stats.CacheHits++
			continue
		}
		if _, cycle := onStack[parent]; cycle {
			return false, fmt.Errorf("%w: %s is its own ancestor", podstromerrors.ErrHistoryCycle, parent)
		}
		onStack[parent] = struct{}{}
		stack.Push(&pending{id: parent})
		return true, nil
	}
	return false, nil
}

// write builds the rewritten commit body for p and stores it
func (r *Rewriter) write(ctx context.Context, p *pending) (git.ObjectID, error) {
	record := &git.CommitRecord{Message: p.record.Message}
	if r.opts.StripSignatures {
		p.record.StripSignature()
	}

	for _, line := range p.record.Headers {
		if git.IsTreeLine(line) {
			record.Headers = append(record.Headers, git.TreeLine(p.tree))
			continue
		}
		if parent, isParent := git.ParentOf(line); isParent {
			newParent, ok, done := r.lookup(parent)
			if !done {
				return "", fmt.Errorf("parent %s of %s was not processed", parent, p.id)
			}
			if ok {
				record.Headers = append(record.Headers, git.ParentLine(newParent))
			}
			continue
		}
		record.Headers = append(record.Headers, line)
	}
	record.Message = AppendMarker(record.Message, r.filter.Path(), p.id)

	r.log.Debug("saving %s", p.record.Subject())
	id, err := r.store.WriteObject(ctx, git.CommitObject, record.Bytes())
	if err != nil {
		return "", fmt.Errorf("failed to save rewrite of %s: %w", p.id, err)
	}
	return id, nil
}
