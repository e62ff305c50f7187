package logtree

import (
	"context"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/modoterra/logtree/pkg/core"
)

// DefaultGracePeriod is how long a cancelled process group gets between
// SIGTERM and SIGKILL.
const DefaultGracePeriod = 5 * time.Second

// drainDelay bounds how long output is still read once the child has exited.
var drainDelay = 250 * time.Millisecond

type runConfig struct {
	dir   string
	env   map[string]string
	check bool
	quiet bool
	grace time.Duration
}

// RunOption configures Start and Run.
type RunOption func(*runConfig)

// WithDir runs the command in dir instead of the current directory.
func WithDir(dir string) RunOption {
	return func(c *runConfig) { c.dir = dir }
}

// WithEnv adds variables on top of the parent environment.
func WithEnv(env map[string]string) RunOption {
	return func(c *runConfig) { c.env = env }
}

// NoCheck makes a non-zero exit code a normal result instead of a
// *ProcessError.
func NoCheck() RunOption {
	return func(c *runConfig) { c.check = false }
}

// Quiet suppresses the "$ command" line; output is relayed at the current
// depth instead of one level below it.
func Quiet() RunOption {
	return func(c *runConfig) { c.quiet = true }
}

// WithGracePeriod sets the delay between SIGTERM and SIGKILL on cancellation.
func WithGracePeriod(d time.Duration) RunOption {
	return func(c *runConfig) { c.grace = d }
}

// Process is a child started by Tree.Start. Its output is relayed through
// the tree while it runs.
type Process struct {
	Argv []string
	Dir  string
	Env  map[string]string

	tree  *Tree
	cmd   *exec.Cmd
	depth int // depth child lines are emitted at
	check bool
	grace time.Duration

	startedAt time.Time
	lines     atomic.Int64
	killed    atomic.Bool
	done      chan struct{}

	mu       sync.Mutex
	exitCode int
	duration time.Duration
	err      error
}

// Run starts argv and waits for it. See Start and Process.Wait.
func (t *Tree) Run(ctx context.Context, argv []string, opts ...RunOption) (int, error) {
	p, err := t.Start(ctx, argv, opts...)
	if err != nil {
		return ExitCode(err), err
	}
	return p.Wait()
}

// Start prints "$ <argv>" at the current depth and launches argv with stdout
// and stderr piped. Each line the child writes is emitted one level below
// the "$" line as soon as it is complete. The depth is fixed here, so
// sections opened or closed while the child runs do not move its output.
//
// If ctx is cancelled before the child exits, its process group receives
// SIGTERM and, after the grace period, SIGKILL. Wait still drains both
// pipes and reaps the child before returning. Completion follows the
// child's exit: output held open by a background grandchild is read for
// a short delay only.
func (t *Tree) Start(ctx context.Context, argv []string, opts ...RunOption) (*Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("logtree: empty command")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(err, "run %q", strings.Join(argv, " "))
	}
	cfg := runConfig{check: true, grace: DefaultGracePeriod}
	for _, opt := range opts {
		opt(&cfg)
	}

	dir := cfg.dir
	if dir != "" {
		abs, err := resolveDir(dir)
		if err != nil {
			return nil, err
		}
		dir = abs
	}

	t.sync()
	depth := t.tracker.Depth()
	if !cfg.quiet {
		t.emit(depth, core.OriginNote, "$ "+strings.Join(argv, " "), markerStyle("$ ", t.styles.Bold))
		depth++
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = buildEnv(os.Environ(), cfg.env)

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
	cmd.Stdout = outW
	cmd.Stderr = errW

	err = cmd.Start()
	// The child holds its own copies of the write ends.
	outW.Close()
	errW.Close()
	if err != nil {
		outR.Close()
		errR.Close()
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, &ProcessError{Argv: argv, ExitCode: 127, NotFound: true, Err: err}
		}
		return nil, errors.Wrapf(err, "start %q", strings.Join(argv, " "))
	}

	p := &Process{
		Argv:      argv,
		Dir:       dir,
		Env:       cfg.env,
		tree:      t,
		cmd:       cmd,
		depth:     depth,
		check:     cfg.check,
		grace:     cfg.grace,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	t.logger.Debug("process started", "pid", cmd.Process.Pid, "argv", argv, "dir", dir)

	exited := make(chan struct{})
	go p.watch(ctx, exited)
	go func() {
		defer close(p.done)

		var g errgroup.Group
		g.Go(func() error { return p.drain(outR, core.OriginStdout) })
		g.Go(func() error { return p.drain(errR, core.OriginStderr) })
		drained := make(chan error, 1)
		go func() { drained <- g.Wait() }()

		waitErr := cmd.Wait()
		close(exited)

		// A background grandchild may keep the write ends open after the
		// child exits. Give trailing output a moment, then stop reading.
		var drainErr error
		timer := time.NewTimer(drainDelay)
		select {
		case drainErr = <-drained:
			timer.Stop()
		case <-timer.C:
			t.logger.Debug("output still open after exit", "pid", cmd.Process.Pid)
			outR.Close()
			errR.Close()
			drainErr = <-drained
		}
		p.finish(ctx, drainErr, waitErr)
	}()
	return p, nil
}

// drain relays r until EOF or until r is closed after the child exits.
func (p *Process) drain(r *os.File, origin core.Origin) error {
	defer r.Close()
	err := scanLines(r, func(line string) { p.relay(origin, line) })
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

func (p *Process) relay(origin core.Origin, line string) {
	p.lines.Add(1)
	p.tree.emit(p.depth, origin, line, p.tree.styles.Dim)
}

// watch terminates the process group once ctx is done, escalating to
// SIGKILL if it outlives the grace period.
func (p *Process) watch(ctx context.Context, exited <-chan struct{}) {
	select {
	case <-exited:
		return
	case <-ctx.Done():
	}
	p.killed.Store(true)
	p.signal(unix.SIGTERM)

	timer := time.NewTimer(p.grace)
	defer timer.Stop()
	select {
	case <-exited:
	case <-timer.C:
		p.signal(unix.SIGKILL)
	}
}

func (p *Process) signal(sig unix.Signal) {
	pid := p.cmd.Process.Pid
	p.tree.logger.Info("signalling process group", "pid", pid, "signal", sig.String())
	if err := unix.Kill(-pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		p.tree.logger.Warn("signal process group", "pid", pid, "signal", sig.String(), "err", err)
	}
}

func (p *Process) finish(ctx context.Context, drainErr, waitErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.duration = time.Since(p.startedAt)
	p.exitCode = -1
	if ps := p.cmd.ProcessState; ps != nil {
		p.exitCode = ps.ExitCode()
		if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			p.exitCode = 128 + int(ws.Signal())
		}
	}

	var exitErr *exec.ExitError
	switch {
	case p.killed.Load():
		p.err = errors.Wrapf(ctx.Err(), "run %q", strings.Join(p.Argv, " "))
	case drainErr != nil:
		p.err = errors.Wrapf(drainErr, "relay output of %q", strings.Join(p.Argv, " "))
	case waitErr != nil && !errors.As(waitErr, &exitErr):
		p.err = errors.Wrapf(waitErr, "wait %q", strings.Join(p.Argv, " "))
	case p.exitCode != 0 && p.check:
		p.err = &ProcessError{Argv: p.Argv, ExitCode: p.exitCode, Err: waitErr}
	}

	p.tree.logger.Debug("process exited",
		"pid", p.cmd.Process.Pid,
		"exit_code", p.exitCode,
		"duration", p.duration,
		"lines", p.lines.Load(),
		"err", p.err)
}

// Wait blocks until the process has exited and both of its output streams
// are drained. It returns the exit code, and a *ProcessError if the code is
// non-zero and the process was started without NoCheck. After cancellation
// the error wraps the context's error. Wait may be called more than once.
func (p *Process) Wait() (int, error) {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode, p.err
}

// Done is closed once Wait would no longer block.
func (p *Process) Done() <-chan struct{} { return p.done }

// Pid returns the child's process ID.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Lines returns the number of lines relayed so far.
func (p *Process) Lines() int { return int(p.lines.Load()) }

// Duration returns how long the process ran, or 0 while it is running.
func (p *Process) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// buildEnv appends extra on top of base in sorted key order so repeated runs
// see identical environments.
func buildEnv(base []string, extra map[string]string) []string {
	env := slices.Clone(base)
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}
