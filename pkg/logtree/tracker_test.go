package logtree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackerPushPop(t *testing.T) {
	tr := NewTracker(2)
	require.Equal(t, 0, tr.Depth())
	require.Equal(t, 1, tr.Push("a"))
	require.Equal(t, 2, tr.Push("b"))
	require.Equal(t, []string{"a", "b"}, tr.Labels())
	require.Equal(t, "    ", tr.Prefix())

	label, err := tr.Pop()
	require.NoError(t, err)
	require.Equal(t, "b", label)
	label, err = tr.Pop()
	require.NoError(t, err)
	require.Equal(t, "a", label)
	require.Equal(t, 0, tr.Depth())
	require.Equal(t, "", tr.Prefix())
}

func TestTrackerPopAtZero(t *testing.T) {
	tr := NewTracker(2)
	_, err := tr.Pop()
	require.ErrorIs(t, err, ErrUnbalancedScope)
	require.Equal(t, 0, tr.Depth())
}

func TestTrackerPopTo(t *testing.T) {
	tr := NewTracker(2)
	outer := tr.Push("outer")
	inner := tr.Push("inner")

	// Closing the outer level first discards the inner one as well.
	err := tr.PopTo(outer)
	require.ErrorIs(t, err, ErrUnbalancedScope)
	require.Equal(t, 0, tr.Depth())

	// The abandoned inner level can no longer be closed.
	err = tr.PopTo(inner)
	require.ErrorIs(t, err, ErrUnbalancedScope)
	require.Equal(t, 0, tr.Depth())

	d := tr.Push("again")
	require.NoError(t, tr.PopTo(d))
	require.Equal(t, 0, tr.Depth())
}

func TestTrackerPopLabel(t *testing.T) {
	tr := NewTracker(2)
	err := tr.PopLabel("none")
	require.ErrorIs(t, err, ErrUnbalancedScope)
	require.EqualError(t, err, "logtree: pop at depth 0")

	tr.Push("outer")
	tr.Push("inner")

	err = tr.PopLabel("outer")
	var ue *UnbalancedScopeError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, "inner", ue.Top)
	require.EqualError(t, err, `logtree: closing "outer" while "inner" is innermost`)
	require.Equal(t, 2, tr.Depth())

	require.NoError(t, tr.PopLabel("inner"))
	require.NoError(t, tr.PopLabel("outer"))
	require.Equal(t, 0, tr.Depth())
}

func TestTrackerPrefixWidth(t *testing.T) {
	tests := []struct {
		width, depth int
		want         string
	}{
		{2, 0, ""},
		{2, 1, "  "},
		{2, 3, "      "},
		{4, 2, "        "},
		{0, 5, ""},
		{-1, 2, ""},
	}
	for _, tt := range tests {
		got := NewTracker(tt.width).PrefixAt(tt.depth)
		if got != tt.want {
			t.Errorf("PrefixAt(width=%d, depth=%d) = %q, want %q", tt.width, tt.depth, got, tt.want)
		}
	}
}
