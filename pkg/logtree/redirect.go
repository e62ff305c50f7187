package logtree

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// syncMarker is written through the pipes to find out when everything
// written before it has been emitted. It never reaches the output.
var syncMarker = []byte("\x00logtree:sync\x00")

// Redirect swaps os.Stdout and os.Stderr for pipes whose contents are
// re-indented through a tree. Only the package variables change: file
// descriptors 1 and 2 are untouched, so subprocesses that inherit them
// bypass the tree. Use Tree.Run to launch commands instead.
type Redirect struct {
	tree    *Tree
	prev    *Redirect
	prevOut *os.File
	prevErr *os.File
	outW    *os.File
	errW    *os.File
	outAck  chan struct{}
	errAck  chan struct{}
	group   errgroup.Group

	mu     sync.Mutex
	closed bool
	err    error
}

// Install redirects os.Stdout and os.Stderr until Restore is called.
func (t *Tree) Install() (*Redirect, error) {
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "stdout pipe")
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return nil, errors.Wrap(err, "stderr pipe")
	}

	r := &Redirect{
		tree:    t,
		prevOut: os.Stdout,
		prevErr: os.Stderr,
		outW:    outW,
		errW:    errW,
		outAck:  make(chan struct{}, 1),
		errAck:  make(chan struct{}, 1),
	}
	r.group.Go(func() error { return pump(outR, t.Stdout(), r.outAck) })
	r.group.Go(func() error { return pump(errR, t.Stderr(), r.errAck) })

	r.prev = t.redirect.Swap(r)
	os.Stdout = outW
	os.Stderr = errW
	t.logger.Debug("streams redirected")
	return r, nil
}

// Restore puts the previous streams back, waits until everything written so
// far has been emitted and flushes partial lines. It is safe to call twice.
func (r *Redirect) Restore() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.err
	}
	r.closed = true

	os.Stdout = r.prevOut
	os.Stderr = r.prevErr
	r.tree.redirect.CompareAndSwap(r, r.prev)

	werr := errors.CombineErrors(r.outW.Close(), r.errW.Close())
	r.err = errors.CombineErrors(r.group.Wait(), werr)
	r.tree.logger.Debug("streams restored", "err", r.err)
	return r.err
}

// Sync blocks until everything written to the redirected streams so far has
// been emitted.
func (r *Redirect) Sync() {
	r.mu.Lock()
	if !r.closed {
		if _, err := r.outW.Write(syncMarker); err == nil {
			<-r.outAck
		}
		if _, err := r.errW.Write(syncMarker); err == nil {
			<-r.errAck
		}
	}
	r.mu.Unlock()
	if r.prev != nil {
		r.prev.Sync()
	}
}

// pump copies src into w, acknowledging every sync marker it strips.
func pump(src *os.File, w *LineWriter, ack chan<- struct{}) error {
	defer src.Close()
	buf := make([]byte, 32*1024)
	var pending []byte
	for {
		n, err := src.Read(buf)
		pending = append(pending, buf[:n]...)
		for {
			i := bytes.Index(pending, syncMarker)
			if i < 0 {
				break
			}
			w.Write(pending[:i])
			pending = pending[i+len(syncMarker):]
			ack <- struct{}{}
		}
		keep := markerPrefixLen(pending)
		w.Write(pending[:len(pending)-keep])
		pending = append([]byte(nil), pending[len(pending)-keep:]...)

		if err == io.EOF {
			w.Write(pending)
			return w.Flush()
		}
		if err != nil {
			return errors.CombineErrors(errors.Wrap(err, "read redirected stream"), w.Flush())
		}
	}
}

// markerPrefixLen returns the length of the longest suffix of b that is a
// proper prefix of syncMarker.
func markerPrefixLen(b []byte) int {
	for n := min(len(b), len(syncMarker)-1); n > 0; n-- {
		if bytes.HasSuffix(b, syncMarker[:n]) {
			return n
		}
	}
	return 0
}

// Capture runs fn with os.Stdout and os.Stderr redirected through t. The
// streams are restored however fn exits.
func Capture(t *Tree, fn func() error) (err error) {
	r, err := t.Install()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := r.Restore(); err == nil {
			err = rerr
		}
	}()
	return fn()
}
