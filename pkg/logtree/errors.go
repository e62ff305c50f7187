package logtree

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrUnbalancedScope is matched by every *UnbalancedScopeError.
	ErrUnbalancedScope = errors.New("logtree: unbalanced scope")
	// ErrProcessFailed is matched by every *ProcessError.
	ErrProcessFailed = errors.New("logtree: process failed")
	// ErrDirectoryNotFound is matched by every *DirectoryNotFoundError.
	ErrDirectoryNotFound = errors.New("logtree: directory not found")
)

// UnbalancedScopeError reports a pop that does not match the innermost push.
// It always indicates a programming error in the caller.
type UnbalancedScopeError struct {
	Depth int    // depth at the time of the pop
	Want  int    // depth the closing scope was opened at, 0 for a bare pop
	Label string // label the caller expected to close, if known
	Top   string // innermost open label when Label did not match
}

func (e *UnbalancedScopeError) Error() string {
	if e.Label != "" && e.Depth > 0 {
		return fmt.Sprintf("logtree: closing %q while %q is innermost", e.Label, e.Top)
	}
	if e.Want == 0 {
		return "logtree: pop at depth 0"
	}
	return fmt.Sprintf("logtree: closing scope opened at depth %d while at depth %d", e.Want, e.Depth)
}

func (e *UnbalancedScopeError) Is(target error) bool { return target == ErrUnbalancedScope }

// ProcessError is returned when a child process exits non-zero or cannot be
// started because its binary is missing.
type ProcessError struct {
	Argv     []string
	ExitCode int
	NotFound bool
	Err      error
}

func (e *ProcessError) Error() string {
	cmd := strings.Join(e.Argv, " ")
	if e.NotFound {
		return fmt.Sprintf("command not found: %s", cmd)
	}
	return fmt.Sprintf("command %q exited with code %d", cmd, e.ExitCode)
}

func (e *ProcessError) Unwrap() error { return e.Err }

func (e *ProcessError) Is(target error) bool { return target == ErrProcessFailed }

// DirectoryNotFoundError is returned when a directory scope or a working
// directory override names a path that is missing or not a directory.
type DirectoryNotFoundError struct {
	Path string
	Err  error
}

func (e *DirectoryNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("directory not found: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("directory not found: %s", e.Path)
}

func (e *DirectoryNotFoundError) Unwrap() error { return e.Err }

func (e *DirectoryNotFoundError) Is(target error) bool { return target == ErrDirectoryNotFound }

// ExitCode extracts the exit code carried by err. It reports 0 for a nil
// error, 127 for a missing binary and 1 for errors that carry no code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var pe *ProcessError
	if errors.As(err, &pe) {
		if pe.NotFound {
			return 127
		}
		if pe.ExitCode > 0 {
			return pe.ExitCode
		}
	}
	return 1
}
