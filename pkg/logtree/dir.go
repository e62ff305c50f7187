package logtree

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// Cd prints "* Entering <abs>." and changes the working directory to path,
// resolved against the current one. Closing the returned section restores
// the previous directory.
//
// The working directory is process state: goroutines running concurrently
// with the scope observe the change.
func (t *Tree) Cd(path string) (*Section, error) {
	abs, err := resolveDir(path)
	if err != nil {
		return nil, err
	}
	prev, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "getwd")
	}

	s := t.open("* ", "Entering "+abs+".", func(string) string {
		return "* Entering " + t.styles.Cyan(abs) + "."
	})
	if err := os.Chdir(abs); err != nil {
		return nil, errors.CombineErrors(errors.Wrapf(err, "chdir %s", abs), s.Close())
	}
	s.restore = func() error {
		return errors.Wrapf(os.Chdir(prev), "restore working directory %s", prev)
	}
	return s, nil
}

// InDir runs fn inside Cd(path) and restores the directory on every exit
// path.
func (t *Tree) InDir(ctx context.Context, path string, fn func(context.Context) error) error {
	s, err := t.Cd(path)
	if err != nil {
		return err
	}
	return scoped(ctx, t, s, fn)
}

// resolveDir returns the absolute form of path after checking that it names
// an existing directory.
func resolveDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", path)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &DirectoryNotFoundError{Path: abs, Err: err}
	}
	if !info.IsDir() {
		return "", &DirectoryNotFoundError{Path: abs, Err: errors.Newf("%s is not a directory", abs)}
	}
	return abs, nil
}
