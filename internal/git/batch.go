package git

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	podstromerrors "github.com/fmfi-svt/podstrom/internal/errors"
)

// BatchChannel is a request/response channel over `git cat-file --batch`.
// One query line is written and its whole response, header and payload,
// is consumed before the next query is sent. Responses carry no
// correlation id, so a BatchChannel must never be used concurrently.
type BatchChannel struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	// broken is set once a response could not be fully consumed; the
	// stream position is unknown after that and every query fails.
	broken error
	closed bool
}

// StartBatchChannel spawns `git cat-file --batch` using the runner's directory and env.
func StartBatchChannel(ctx context.Context, r *CommandRunner) (*BatchChannel, error) {
	args := []string{"cat-file", "--batch"}
	cmd := r.command(ctx, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, podstromerrors.NewGitCommandError("git", args, "", "", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, podstromerrors.NewGitCommandError("git", args, "", "", err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, podstromerrors.NewGitCommandError("git", args, "", "", err)
	}

	ch := NewBatchChannel(stdin, stdout)
	ch.cmd = cmd
	return ch, nil
}

// NewBatchChannel wraps an already connected request writer and response reader.
func NewBatchChannel(stdin io.WriteCloser, stdout io.Reader) *BatchChannel {
	return &BatchChannel{
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
	}
}

// Inspect sends one query and returns the object metadata, discarding the payload.
func (c *BatchChannel) Inspect(query string) (ObjectInfo, error) {
	info, _, err := c.roundTrip(query, false)
	return info, err
}

// Read sends one query and returns the object metadata together with its payload.
func (c *BatchChannel) Read(query string) (ObjectInfo, []byte, error) {
	return c.roundTrip(query, true)
}

func (c *BatchChannel) roundTrip(query string, keep bool) (ObjectInfo, []byte, error) {
	if c.closed {
		return ObjectInfo{}, nil, podstromerrors.ErrChannelClosed
	}
	if c.broken != nil {
		return ObjectInfo{}, nil, fmt.Errorf("metadata channel unusable: %w", c.broken)
	}
	if query == "" || strings.ContainsAny(query, "\n\r") {
		return ObjectInfo{}, nil, fmt.Errorf("invalid batch query %q", query)
	}

	if _, err := io.WriteString(c.stdin, query+"\n"); err != nil {
		c.broken = err
		return ObjectInfo{}, nil, fmt.Errorf("failed to send batch query %q: %w", query, err)
	}

	header, err := c.stdout.ReadString('\n')
	if err != nil {
		c.broken = err
		return ObjectInfo{}, nil, fmt.Errorf("failed to read batch response for %q: %w", query, err)
	}
	header = strings.TrimSuffix(header, "\n")

	if strings.HasSuffix(header, " missing") {
		return ObjectInfo{Missing: true}, nil, nil
	}
	if strings.HasSuffix(header, " ambiguous") {
		return ObjectInfo{}, nil, fmt.Errorf("batch query %q is ambiguous", query)
	}

	info, err := parseBatchHeader(header)
	if err != nil {
		c.broken = err
		return ObjectInfo{}, nil, err
	}

	// The payload is followed by one newline; both are always consumed.
	var payload []byte
	if keep {
		buf := make([]byte, info.Size+1)
		if _, err := io.ReadFull(c.stdout, buf); err != nil {
			c.broken = err
			return ObjectInfo{}, nil, fmt.Errorf("short batch payload for %q: %w", query, err)
		}
		if buf[info.Size] != '\n' {
			c.broken = fmt.Errorf("payload for %q not newline terminated", query)
			return ObjectInfo{}, nil, c.broken
		}
		payload = buf[:info.Size]
	} else if _, err := io.CopyN(io.Discard, c.stdout, info.Size+1); err != nil {
		c.broken = err
		return ObjectInfo{}, nil, fmt.Errorf("short batch payload for %q: %w", query, err)
	}

	return info, payload, nil
}

// parseBatchHeader parses "<id> <type> <size>"
func parseBatchHeader(header string) (ObjectInfo, error) {
	fields := strings.Fields(header)
	if len(fields) != 3 {
		return ObjectInfo{}, fmt.Errorf("malformed batch response %q", header)
	}
	size, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil || size < 0 {
		return ObjectInfo{}, fmt.Errorf("malformed size in batch response %q", header)
	}
	return ObjectInfo{
		ID:   ObjectID(fields[0]),
		Type: ObjectType(fields[1]),
		Size: size,
	}, nil
}

// Close closes the request stream so the git process can exit, then waits for it.
// It is safe to call more than once.
func (c *BatchChannel) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	closeErr := c.stdin.Close()
	if c.cmd == nil {
		return closeErr
	}
	if err := c.cmd.Wait(); err != nil && c.broken == nil {
		return podstromerrors.NewGitCommandError("git", []string{"cat-file", "--batch"}, "", "", err)
	}
	return closeErr
}
