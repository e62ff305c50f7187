package logtree

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Styles decorates the parts of a line. Every field maps plain text to the
// text that is written; with colour off they are all identity.
type Styles struct {
	Bold func(string) string // commands after "$ "
	Dim  func(string) string // relayed child output
	Cyan func(string) string // paths entered with Cd
	Red  func(string) string // Moan labels
}

// PlainStyles returns styles that leave text untouched.
func PlainStyles() Styles {
	id := func(s string) string { return s }
	return Styles{Bold: id, Dim: id, Cyan: id, Red: id}
}

// NewStyles returns lipgloss-backed styles rendered for w. Colour is forced
// on even when w is not a terminal.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(termenv.ANSI256)

	bold := r.NewStyle().Bold(true)
	dim := r.NewStyle().Faint(true)
	cyan := r.NewStyle().Foreground(lipgloss.Color("6"))
	red := r.NewStyle().Foreground(lipgloss.Color("1"))

	return Styles{
		Bold: func(s string) string { return bold.Render(s) },
		Dim:  func(s string) string { return dim.Render(s) },
		Cyan: func(s string) string { return cyan.Render(s) },
		Red:  func(s string) string { return red.Render(s) },
	}
}

// ColorEnabled reports whether output to w should be coloured by default: w
// must be a terminal and NO_COLOR must be unset.
func ColorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// markerStyle styles the text after a leading marker, leaving the marker
// plain. Continuation lines without the marker are styled whole.
func markerStyle(marker string, style func(string) string) func(string) string {
	return func(s string) string {
		if rest, ok := strings.CutPrefix(s, marker); ok {
			return marker + style(rest)
		}
		return style(s)
	}
}
