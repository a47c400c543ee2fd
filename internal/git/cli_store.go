package git

import (
	"context"
	"fmt"
	"io"

	podstromerrors "github.com/fmfi-svt/podstrom/internal/errors"
)

// CLIStore implements ObjectStore on top of the git binary.
// Lookups go through one long-lived BatchChannel; writes, revision
// resolution and ref updates are one-shot commands.
type CLIStore struct {
	runner  *CommandRunner
	channel *BatchChannel
}

// OpenCLIStore starts the metadata channel for the repository the runner points at.
func OpenCLIStore(ctx context.Context, runner *CommandRunner) (*CLIStore, error) {
	channel, err := StartBatchChannel(ctx, runner)
	if err != nil {
		return nil, fmt.Errorf("failed to start metadata channel: %w", err)
	}
	return &CLIStore{runner: runner, channel: channel}, nil
}

// ResolveRevision runs `git rev-parse --verify <name>^{commit}`
func (s *CLIStore) ResolveRevision(ctx context.Context, name string) (ObjectID, error) {
	out, err := s.runner.Run(ctx, "rev-parse", "--verify", "--end-of-options", name+"^{commit}")
	if err != nil {
		return "", podstromerrors.NewUnresolvableRevisionError(name, err)
	}
	if out == "" {
		return "", podstromerrors.NewUnresolvableRevisionError(name, nil)
	}
	return ObjectID(out), nil
}

// Inspect queries the metadata channel
func (s *CLIStore) Inspect(_ context.Context, query string) (ObjectInfo, error) {
	return s.channel.Inspect(query)
}

// ReadObject reads a peeled object through the metadata channel
func (s *CLIStore) ReadObject(_ context.Context, id ObjectID) (ObjectType, []byte, error) {
	query := id.String() + "^{}"
	info, payload, err := s.channel.Read(query)
	if err != nil {
		return "", nil, err
	}
	if info.Missing {
		return "", nil, podstromerrors.NewObjectMissingError(query)
	}
	return info.Type, payload, nil
}

// WriteObject runs `git hash-object -w --stdin` for one object
func (s *CLIStore) WriteObject(ctx context.Context, objType ObjectType, payload []byte) (ObjectID, error) {
	if payload == nil {
		payload = []byte{}
	}
	out, err := s.runner.RunWithInput(ctx, payload, "hash-object", "-t", string(objType), "-w", "--stdin")
	if err != nil {
		return "", podstromerrors.NewStoreWriteError(string(objType), err)
	}
	if out == "" {
		return "", podstromerrors.NewStoreWriteError(string(objType), fmt.Errorf("hash-object printed no id"))
	}
	return ObjectID(out), nil
}

// UpdateRef runs `git update-ref -m <message> <name> <target>`
func (s *CLIStore) UpdateRef(ctx context.Context, name string, target ObjectID, message string) error {
	if _, err := s.runner.Run(ctx, "update-ref", "-m", message, name, target.String()); err != nil {
		return fmt.Errorf("failed to update %s: %w", name, err)
	}
	return nil
}

// ForEachCommit streams `git log --all --format=raw`
func (s *CLIStore) ForEachCommit(ctx context.Context, fn func(CommitInfo) error) error {
	return s.runner.Stream(ctx, func(r io.Reader) error {
		return parseRawLog(r, fn)
	}, rawLogArgs...)
}

// Close shuts down the metadata channel
func (s *CLIStore) Close() error {
	return s.channel.Close()
}
