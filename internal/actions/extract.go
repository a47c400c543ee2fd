package actions

import (
	"fmt"
	"strings"

	podstromerrors "github.com/fmfi-svt/podstrom/internal/errors"
	"github.com/fmfi-svt/podstrom/internal/git"
	"github.com/fmfi-svt/podstrom/internal/runtime"
	"github.com/fmfi-svt/podstrom/internal/subtree"
)

// UpdateRefMessage is the reflog message for refs moved by an extraction
const UpdateRefMessage = "running podstrom"

// ExtractOptions contains options for the extract command
type ExtractOptions struct {
	Path      string
	Revisions []string
	// Update names a branch to point at the single result instead of printing it
	Update          string
	StripSignatures bool
	SkipAbsent      bool
}

// ExtractAction rewrites each revision into the history of opts.Path and
// prints the resulting ids, or moves opts.Update to the single result.
// Every revision is resolved before anything is written.
func ExtractAction(ctx *runtime.Context, opts ExtractOptions) error {
	if len(opts.Revisions) == 0 {
		return fmt.Errorf("no revisions given")
	}
	if opts.Update != "" && len(opts.Revisions) > 1 {
		return podstromerrors.ErrUpdateWithMultipleRevs
	}

	originals := make([]git.ObjectID, 0, len(opts.Revisions))
	for _, rev := range opts.Revisions {
		id, err := ctx.Store.ResolveRevision(ctx, rev)
		if err != nil {
			return err
		}
		originals = append(originals, id)
	}

	ctx.Splog.Info("scanning history for rewritten commits")
	cache, err := subtree.BuildCache(ctx, ctx.Store, opts.Path, ctx.Splog)
	if err != nil {
		return err
	}

	rewriter := subtree.NewRewriter(ctx.Store, opts.Path, cache, subtree.Options{
		StripSignatures: opts.StripSignatures,
		SkipAbsent:      opts.SkipAbsent,
	}, ctx.Splog)

	results := make([]git.ObjectID, 0, len(originals))
	for i, original := range originals {
		rewritten, ok, err := rewriter.Transform(ctx, original)
		if err != nil {
			return fmt.Errorf("failed to rewrite %s: %w", opts.Revisions[i], err)
		}
		if !ok {
			return fmt.Errorf("%s: %w %q", opts.Revisions[i], podstromerrors.ErrNothingToExtract, displayPath(opts.Path))
		}
		results = append(results, rewritten)
	}

	stats := rewriter.Stats()
	ctx.Splog.Info("rewrote %d commits, %d already rewritten, %d excluded", stats.Rewritten, stats.CacheHits, stats.Excluded)

	if opts.Update != "" {
		ref := branchRef(opts.Update)
		if err := ctx.Store.UpdateRef(ctx, ref, results[0], UpdateRefMessage); err != nil {
			return err
		}
		ctx.Splog.Info("updated %s to %s", ref, results[0])
		return nil
	}

	for _, id := range results {
		if _, err := fmt.Fprintln(ctx.Stdout, id); err != nil {
			return fmt.Errorf("failed to print result: %w", err)
		}
	}
	return nil
}

// branchRef qualifies a branch name; fully qualified refs are left alone
func branchRef(name string) string {
	if strings.HasPrefix(name, "refs/") {
		return name
	}
	return "refs/heads/" + name
}

func displayPath(path string) string {
	if p := subtree.NormalizePath(path); p != "" {
		return p
	}
	return "/"
}
