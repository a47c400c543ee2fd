package git

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// rawLogArgs lists every commit reachable from any ref in raw format.
// Signature display and decorations are forced off so user config cannot
// add lines the parser does not expect.
var rawLogArgs = []string{"log", "--all", "--format=raw", "--no-show-signature", "--no-decorate", "--no-color"}

const messageIndent = "    "

// parseRawLog reads `git log --format=raw` output and calls fn once per commit.
func parseRawLog(r io.Reader, fn func(CommitInfo) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var (
		current  *CommitInfo
		inHeader bool
		message  []string
	)

	flush := func() error {
		if current == nil {
			return nil
		}
		for len(message) > 0 && message[len(message)-1] == "" {
			message = message[:len(message)-1]
		}
		if len(message) > 0 {
			current.Message = strings.Join(message, "\n") + "\n"
		}
		err := fn(*current)
		current = nil
		message = message[:0]
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "commit ") {
			if err := flush(); err != nil {
				return err
			}
			fields := strings.Fields(line)
			current = &CommitInfo{ID: ObjectID(fields[1])}
			inHeader = true
			continue
		}
		if current == nil {
			if line == "" {
				continue
			}
			return fmt.Errorf("unexpected line before first commit in log: %q", line)
		}

		if inHeader {
			if line == "" {
				inHeader = false
				continue
			}
			if strings.HasPrefix(line, "committer ") {
				current.CommitterTime = parseSignatureTime(line)
			}
			continue
		}

		message = append(message, strings.TrimPrefix(line, messageIndent))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read log: %w", err)
	}
	return flush()
}

// parseSignatureTime extracts the timestamp from "committer Name <email> 1700000000 +0100"
func parseSignatureTime(line string) time.Time {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(fields[len(fields)-2], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}
