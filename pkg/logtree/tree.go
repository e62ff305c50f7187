package logtree

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modoterra/logtree/pkg/core"
)

// Tree is the top-level scope. It owns the indentation state and serialises
// every line written to its output, so concurrent writers never split a line.
type Tree struct {
	mu       sync.Mutex // held while a line is formatted and written
	out      io.Writer
	tracker  *Tracker
	styles   Styles
	logger   *slog.Logger
	observer core.Observer
	redirect atomic.Pointer[Redirect]
	err      error // first write error
}

// Option configures a Tree.
type Option func(*Tree)

// WithIndent sets the number of spaces per nesting level.
func WithIndent(n int) Option {
	return func(t *Tree) { t.tracker = NewTracker(n) }
}

// WithColor forces colour on or off instead of detecting a terminal.
func WithColor(on bool) Option {
	return func(t *Tree) {
		if on {
			t.styles = NewStyles(t.out)
		} else {
			t.styles = PlainStyles()
		}
	}
}

// WithStyles installs custom styles.
func WithStyles(s Styles) Option {
	return func(t *Tree) { t.styles = s }
}

// WithLogger sets the logger used for process lifecycle diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tree) { t.logger = l }
}

// WithObserver registers o to receive every emitted line. o is called with
// the tree's lock held and must not write to the tree.
func WithObserver(o core.Observer) Option {
	return func(t *Tree) { t.observer = o }
}

// New creates a tree writing to out.
func New(out io.Writer, opts ...Option) *Tree {
	t := &Tree{
		out:     out,
		tracker: NewTracker(DefaultIndent),
		styles:  PlainStyles(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if ColorEnabled(out) {
		t.styles = NewStyles(out)
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Tracker exposes the tree's indentation state.
func (t *Tree) Tracker() *Tracker { return t.tracker }

// Depth returns the current nesting depth.
func (t *Tree) Depth() int { return t.tracker.Depth() }

// Styles returns the styles lines are decorated with.
func (t *Tree) Styles() Styles { return t.styles }

// Err returns the first error encountered writing to the output, if any.
func (t *Tree) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// sync waits for output still in flight through an installed Redirect, so
// it is emitted at the depth it was written at.
func (t *Tree) sync() {
	if r := t.redirect.Load(); r != nil {
		r.Sync()
	}
}

// Println writes a plain line at the current depth.
func (t *Tree) Println(a ...any) {
	t.sync()
	t.emit(-1, core.OriginPrint, strings.TrimSuffix(fmt.Sprintln(a...), "\n"), nil)
}

// Printf writes a formatted plain line at the current depth.
func (t *Tree) Printf(format string, a ...any) {
	t.sync()
	t.emit(-1, core.OriginPrint, strings.TrimSuffix(fmt.Sprintf(format, a...), "\n"), nil)
}

// Notef writes a "* " line at the current depth without opening a level.
func (t *Tree) Notef(format string, a ...any) {
	t.sync()
	t.emit(-1, core.OriginNote, "* "+fmt.Sprintf(format, a...), nil)
}

// Moan writes a "! " line at the current depth without opening a level.
func (t *Tree) Moan(msg string) {
	t.sync()
	t.emit(-1, core.OriginNote, "! "+msg, markerStyle("! ", t.styles.Red))
}

// emit writes text at depth, or at the tracker's depth when depth is
// negative. Embedded newlines produce one prefixed line each.
func (t *Tree) emit(depth int, origin core.Origin, text string, style func(string) string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emitLocked(depth, origin, text, style)
}

func (t *Tree) emitLocked(depth int, origin core.Origin, text string, style func(string) string) {
	if depth < 0 {
		depth = t.tracker.Depth()
	}
	prefix := t.tracker.PrefixAt(depth)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		styled := line
		if style != nil {
			styled = style(line)
		}
		if _, err := io.WriteString(t.out, prefix+styled+"\n"); err != nil && t.err == nil {
			t.err = err
		}
		if t.observer != nil {
			t.observer.Observe(core.Line{
				Origin:   origin,
				Depth:    depth,
				TsUnixMs: time.Now().UnixMilli(),
				Text:     line,
			})
		}
	}
}

type ctxKey struct{}

// WithTree returns a context carrying t.
func WithTree(ctx context.Context, t *Tree) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the tree carried by ctx, or nil.
func FromContext(ctx context.Context) *Tree {
	t, _ := ctx.Value(ctxKey{}).(*Tree)
	return t
}
