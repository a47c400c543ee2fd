package git

import (
	"bytes"
	"fmt"
	"strings"
)

// Header keys with special meaning in a commit body
const (
	treeHeader   = "tree "
	parentHeader = "parent "
)

// signatureHeaders are the header keys that carry a signature over the commit body
var signatureHeaders = []string{"gpgsig ", "gpgsig-sha256 "}

// CommitRecord is a raw commit body: ordered header lines, a blank line, and the message.
// Header lines are kept verbatim, including continuation lines of multi-line
// headers (those start with a single space).
type CommitRecord struct {
	Headers []string
	Message string
}

// ParseCommit splits a raw commit body at its first blank line.
// A body without a blank line is a commit with an empty message.
func ParseCommit(body []byte) (*CommitRecord, error) {
	text := string(body)
	header, message, found := strings.Cut(text, "\n\n")
	if !found {
		header = strings.TrimSuffix(text, "\n")
	}
	if header == "" {
		return nil, fmt.Errorf("commit body has no headers")
	}

	record := &CommitRecord{
		Headers: strings.Split(header, "\n"),
		Message: message,
	}
	if record.Tree().IsZero() {
		return nil, fmt.Errorf("commit body has no tree header")
	}
	return record, nil
}

// Tree returns the id from the tree header
func (c *CommitRecord) Tree() ObjectID {
	for _, line := range c.Headers {
		if strings.HasPrefix(line, treeHeader) {
			return ObjectID(line[len(treeHeader):])
		}
	}
	return ""
}

// Parents returns the parent ids in header order
func (c *CommitRecord) Parents() []ObjectID {
	var parents []ObjectID
	for _, line := range c.Headers {
		if strings.HasPrefix(line, parentHeader) {
			parents = append(parents, ObjectID(line[len(parentHeader):]))
		}
	}
	return parents
}

// Subject returns the first line of the message
func (c *CommitRecord) Subject() string {
	subject, _, _ := strings.Cut(c.Message, "\n")
	return subject
}

// StripSignature removes signature headers together with their continuation lines.
func (c *CommitRecord) StripSignature() {
	kept := c.Headers[:0]
	inSignature := false
	for _, line := range c.Headers {
		if inSignature && strings.HasPrefix(line, " ") {
			continue
		}
		inSignature = false
		if isSignatureHeader(line) {
			inSignature = true
			continue
		}
		kept = append(kept, line)
	}
	c.Headers = kept
}

func isSignatureHeader(line string) bool {
	for _, prefix := range signatureHeaders {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// Bytes serialises the record back into a commit body
func (c *CommitRecord) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString(strings.Join(c.Headers, "\n"))
	buf.WriteString("\n\n")
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// TreeLine formats a tree header line
func TreeLine(id ObjectID) string {
	return treeHeader + id.String()
}

// ParentLine formats a parent header line
func ParentLine(id ObjectID) string {
	return parentHeader + id.String()
}

// IsTreeLine reports whether a header line is the tree header
func IsTreeLine(line string) bool {
	return strings.HasPrefix(line, treeHeader)
}

// ParentOf returns the id carried by a parent header line
func ParentOf(line string) (ObjectID, bool) {
	if !strings.HasPrefix(line, parentHeader) {
		return "", false
	}
	return ObjectID(line[len(parentHeader):]), true
}
