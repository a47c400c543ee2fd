// Package subtree rewrites a commit graph so that every tree holds only one
// subdirectory of the original, keeping parent/child lineage.
//
// Rewritten commits carry a marker naming their original commit as the last
// line of the message. [BuildCache] recovers the original -> rewritten mapping
// from those markers, which is what lets a later run over an extended
// history reuse earlier work instead of recomputing it. [Rewriter] is the
// engine: it transforms a commit after all of its parents, walking the
// history with an explicit stack so deep linear histories cannot exhaust the
// call stack.
package subtree
