// Package errors provides sentinel errors and custom error types for podstrom.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"

	"github.com/kballard/go-shellquote"
)

// Sentinel errors for common conditions
var (
	// ErrUnresolvableRevision indicates that a revision name does not resolve to a commit
	ErrUnresolvableRevision = errors.New("unresolvable revision")

	// ErrStoreWriteFailure indicates that the object store refused or failed a write
	ErrStoreWriteFailure = errors.New("object store write failed")

	// ErrObjectMissing indicates that an object expected to exist is not in the store
	ErrObjectMissing = errors.New("object missing")

	// ErrChannelClosed indicates use of a metadata channel after it was closed
	ErrChannelClosed = errors.New("metadata channel closed")

	// ErrHistoryCycle indicates that a commit is reachable from itself
	ErrHistoryCycle = errors.New("commit history contains a cycle")

	// ErrNothingToExtract indicates that a requested revision was excluded because it lacks the subdirectory
	ErrNothingToExtract = errors.New("revision does not contain the subdirectory")

	// ErrUpdateWithMultipleRevs indicates --update was combined with several revisions
	ErrUpdateWithMultipleRevs = errors.New("only one input commit may be given when updating")
)

// UnresolvableRevisionError represents a revision name that could not be resolved
type UnresolvableRevisionError struct {
	Revision string
	Err      error
}

func (e *UnresolvableRevisionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot resolve revision %q: %v", e.Revision, e.Err)
	}
	return fmt.Sprintf("cannot resolve revision %q", e.Revision)
}

func (e *UnresolvableRevisionError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrUnresolvableRevision
func (e *UnresolvableRevisionError) Is(target error) bool {
	return target == ErrUnresolvableRevision
}

// NewUnresolvableRevisionError creates a new UnresolvableRevisionError
func NewUnresolvableRevisionError(revision string, err error) *UnresolvableRevisionError {
	return &UnresolvableRevisionError{Revision: revision, Err: err}
}

// StoreWriteError represents a failed object write
type StoreWriteError struct {
	ObjectType string
	Err        error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("failed to write %s object: %v", e.ObjectType, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrStoreWriteFailure
func (e *StoreWriteError) Is(target error) bool {
	return target == ErrStoreWriteFailure
}

// NewStoreWriteError creates a new StoreWriteError
func NewStoreWriteError(objectType string, err error) *StoreWriteError {
	return &StoreWriteError{ObjectType: objectType, Err: err}
}

// ObjectMissingError represents an object that the store does not have
type ObjectMissingError struct {
	Query string
}

func (e *ObjectMissingError) Error() string {
	return fmt.Sprintf("object %s is missing", e.Query)
}

// Is returns true if the target error is ErrObjectMissing
func (e *ObjectMissingError) Is(target error) bool {
	return target == ErrObjectMissing
}

// NewObjectMissingError creates a new ObjectMissingError
func NewObjectMissingError(query string) *ObjectMissingError {
	return &ObjectMissingError{Query: query}
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.CommandLine())
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

// CommandLine renders the failed command as a shell-quoted string
func (e *GitCommandError) CommandLine() string {
	return shellquote.Join(append([]string{e.Command}, e.Args...)...)
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}
