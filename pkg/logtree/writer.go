package logtree

import (
	"bytes"
	"sync"

	"github.com/modoterra/logtree/pkg/core"
)

// LineWriter is an io.Writer that buffers data until a newline and emits
// each complete line through its tree at the tree's current depth.
type LineWriter struct {
	tree   *Tree
	origin core.Origin
	style  func(string) string

	mu  sync.Mutex
	buf []byte
}

// Stdout returns a writer for direct output at the current depth.
func (t *Tree) Stdout() *LineWriter {
	return &LineWriter{tree: t, origin: core.OriginPrint}
}

// Stderr returns a writer for direct error output at the current depth.
// Its lines are tagged core.OriginStderr.
func (t *Tree) Stderr() *LineWriter {
	return &LineWriter{tree: t, origin: core.OriginStderr}
}

// Write never fails; output errors are reported by Tree.Err.
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.tree.emit(-1, w.origin, string(w.buf[:i]), w.style)
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) == 0 {
		w.buf = nil
	}
	return len(p), nil
}

// Flush emits buffered data that has no trailing newline yet.
func (w *LineWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.tree.emit(-1, w.origin, string(w.buf), w.style)
		w.buf = nil
	}
	return w.tree.Err()
}

// Buffered returns the number of bytes waiting for a newline.
func (w *LineWriter) Buffered() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buf)
}
