// Package git provides access to a git object database.
//
// It defines the [ObjectStore] contract used by the history rewriter and two
// implementations of it:
//   - [CLIStore], which drives the git binary: a long-lived
//     `git cat-file --batch` process for lookups plus one-shot commands for
//     writes, revision resolution and ref updates
//   - [GoGitStore], which works directly on go-git storers, either an
//     on-disk repository or an in-memory one used by tests
//
// This package should be the only place where git commands are executed.
package git
