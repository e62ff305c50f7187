package logtree

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/modoterra/logtree/pkg/core"
)

// Section is an open indent level. Close it exactly once, innermost first.
type Section struct {
	tree    *Tree
	label   string
	depth   int // depth returned by the push
	restore func() error
	closed  bool
}

// Section prints "* label" and opens a level.
func (t *Tree) Section(label string) *Section {
	return t.open("* ", label, nil)
}

// MoanSection prints "! label" and opens a level.
func (t *Tree) MoanSection(label string) *Section {
	return t.open("! ", label, markerStyle("! ", t.styles.Red))
}

func (t *Tree) open(marker, label string, style func(string) string) *Section {
	t.sync()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emitLocked(-1, core.OriginNote, marker+label, style)
	return &Section{tree: t, label: label, depth: t.tracker.Push(label)}
}

// Label returns the text the section was opened with.
func (s *Section) Label() string { return s.label }

// Depth returns the depth of lines written inside the section.
func (s *Section) Depth() int { return s.depth }

// Close runs the section's cleanup and closes its level. A second Close, or
// closing a section while a deeper one is still open, returns an
// *UnbalancedScopeError; in the latter case the deeper levels are closed too.
func (s *Section) Close() error {
	if s.closed {
		return &UnbalancedScopeError{Depth: s.tree.Depth(), Want: s.depth}
	}
	s.closed = true
	s.tree.sync()
	var err error
	if s.restore != nil {
		err = s.restore()
	}
	return errors.CombineErrors(err, s.tree.tracker.PopTo(s.depth))
}

// Note prints "* label", runs fn one level deeper and closes the level on
// every exit path, panics included.
func (t *Tree) Note(ctx context.Context, label string, fn func(context.Context) error) error {
	return scoped(ctx, t, t.Section(label), fn)
}

// MoanNote is Note with a "! " marker.
func (t *Tree) MoanNote(ctx context.Context, label string, fn func(context.Context) error) error {
	return scoped(ctx, t, t.MoanSection(label), fn)
}

func scoped(ctx context.Context, t *Tree, s *Section, fn func(context.Context) error) (err error) {
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(WithTree(ctx, t))
}
