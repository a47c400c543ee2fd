package subtree

import (
	"strings"

	"github.com/fmfi-svt/podstrom/internal/git"
)

// These line formats are the durable contract with history written by
// earlier runs. Changing them breaks reuse of that history.
const (
	// MarkerPrefix starts the last message line of every rewritten commit
	MarkerPrefix = "podstrom-original-id: "

	// PathPrefix starts the line above the marker recording the extracted path
	PathPrefix = "podstrom-path: "
)

// rootPath is how an extraction of the whole tree records its path
const rootPath = "/"

// Marker is what a rewritten commit's message says about its origin
type Marker struct {
	Original git.ObjectID

	// Path is the extracted subdirectory; only meaningful when HasPath is set
	Path    string
	HasPath bool
}

// Matches reports whether the marker belongs to an extraction of path.
// Markers that do not record a path match any path.
func (m Marker) Matches(path string) bool {
	return !m.HasPath || m.Path == NormalizePath(path)
}

// NormalizePath strips leading and trailing slashes; "" means the whole tree
func NormalizePath(path string) string {
	return strings.Trim(path, "/")
}

// FormatMarker returns the lines appended to a rewritten commit's message
func FormatMarker(path string, original git.ObjectID) string {
	path = NormalizePath(path)
	if path == "" {
		path = rootPath
	}
	return PathPrefix + path + "\n" + MarkerPrefix + original.String() + "\n"
}

// AppendMarker returns message followed by a blank separator and the marker lines
func AppendMarker(message, path string, original git.ObjectID) string {
	return message + "\n" + FormatMarker(path, original)
}

// ParseMarker reads the marker from the last non-empty line of message.
// Besides the current two-line form it accepts the older single line
// "podstrom-original-id: <path> <id>".
func ParseMarker(message string) (Marker, bool) {
	lines := strings.Split(strings.TrimRight(message, "\n"), "\n")
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, MarkerPrefix) {
		return Marker{}, false
	}
	rest := last[len(MarkerPrefix):]

	var m Marker
	if i := strings.LastIndexByte(rest, ' '); i >= 0 {
		m.Path = NormalizePath(rest[:i])
		m.HasPath = true
		rest = rest[i+1:]
	}
	if !isObjectID(rest) {
		return Marker{}, false
	}
	m.Original = git.ObjectID(rest)

	if !m.HasPath && len(lines) > 1 {
		if above := lines[len(lines)-2]; strings.HasPrefix(above, PathPrefix) {
			m.Path = above[len(PathPrefix):]
			if m.Path == rootPath {
				m.Path = ""
			} else {
				m.Path = NormalizePath(m.Path)
			}
			m.HasPath = true
		}
	}
	return m, true
}

// isObjectID accepts full sha1 and sha256 hex ids
func isObjectID(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
