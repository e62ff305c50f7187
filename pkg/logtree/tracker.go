package logtree

import (
	"slices"
	"strings"
	"sync"
)

// DefaultIndent is the number of spaces per nesting level.
const DefaultIndent = 2

// Tracker holds the stack of open section labels. Its depth is always the
// length of that stack.
type Tracker struct {
	mu    sync.Mutex
	width int
	stack []string
}

// NewTracker returns an empty tracker indenting width spaces per level.
func NewTracker(width int) *Tracker {
	if width < 0 {
		width = 0
	}
	return &Tracker{width: width}
}

// Push opens a level for label and returns the new depth.
func (t *Tracker) Push(label string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stack = append(t.stack, label)
	return len(t.stack)
}

// Pop closes the innermost level and returns its label.
func (t *Tracker) Pop() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.stack) == 0 {
		return "", &UnbalancedScopeError{}
	}
	label := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	return label, nil
}

// PopLabel closes the innermost level if it was opened with label. When a
// different level is innermost nothing changes and an *UnbalancedScopeError
// naming both labels is returned.
func (t *Tracker) PopLabel(label string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := len(t.stack)
	if cur == 0 {
		return &UnbalancedScopeError{Label: label}
	}
	if top := t.stack[cur-1]; top != label {
		return &UnbalancedScopeError{Depth: cur, Want: cur, Label: label, Top: top}
	}
	t.stack = t.stack[:cur-1]
	return nil
}

// PopTo closes the level that was opened when Push returned depth.
//
// If deeper levels are still open they are discarded along with it, so the
// tracker ends at depth-1 either way, and an *UnbalancedScopeError is
// returned. If the tracker is already shallower than depth nothing changes.
func (t *Tracker) PopTo(depth int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := len(t.stack)
	if depth <= 0 || cur < depth {
		return &UnbalancedScopeError{Depth: cur, Want: depth}
	}
	t.stack = t.stack[:depth-1]
	if cur != depth {
		return &UnbalancedScopeError{Depth: cur, Want: depth}
	}
	return nil
}

// Depth returns the number of open levels.
func (t *Tracker) Depth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.stack)
}

// Labels returns a copy of the open labels, outermost first.
func (t *Tracker) Labels() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.stack)
}

// Prefix returns the whitespace for the current depth.
func (t *Tracker) Prefix() string {
	return t.PrefixAt(t.Depth())
}

// PrefixAt returns the whitespace for an explicit depth.
func (t *Tracker) PrefixAt(depth int) string {
	if depth <= 0 {
		return ""
	}
	return strings.Repeat(" ", depth*t.width)
}
