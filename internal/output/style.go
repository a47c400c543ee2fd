package output

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Styles renders level prefixes for console output
type Styles struct {
	warn  lipgloss.Style
	err   lipgloss.Style
	debug lipgloss.Style
}

// ColorEnabled reports whether w is a terminal and colour was not turned off
// through noColor or the NO_COLOR environment variable.
func ColorEnabled(w io.Writer, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewStyles creates styles for w, falling back to plain text when colour is disabled
func NewStyles(w io.Writer, noColor bool) *Styles {
	renderer := lipgloss.NewRenderer(w)
	if !ColorEnabled(w, noColor) {
		renderer.SetColorProfile(termenv.Ascii)
	}
	return &Styles{
		warn:  renderer.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		err:   renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		debug: renderer.NewStyle().Faint(true),
	}
}

// Prefix returns the styled marker printed before a message of the given level
func (s *Styles) Prefix(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return s.err.Render("error:") + " "
	case level >= slog.LevelWarn:
		return s.warn.Render("warning:") + " "
	case level < slog.LevelInfo:
		return s.debug.Render("debug:") + " "
	default:
		return ""
	}
}
