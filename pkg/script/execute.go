package script

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/modoterra/logtree/pkg/core"
	"github.com/modoterra/logtree/pkg/logtree"
)

// Options controls Execute.
type Options struct {
	// DryRun prints the tree of steps without changing directory or
	// starting any command.
	DryRun bool
	// Shell runs shell steps; defaults to "sh".
	Shell string
	// RunOptions are passed to every command, before step options.
	RunOptions []logtree.RunOption
	Logger     *slog.Logger
}

type executor struct {
	tree   *logtree.Tree
	script *Script
	opts   Options
	logger *slog.Logger
	report *Report
	dir    string // working directory as seen by a dry run
}

// Execute runs the script's steps through tree. The first failing command
// stops the script: every open section is closed, the remaining steps are
// reported as skipped and the command's error is returned. Commands with
// check: false fail only their own step.
func Execute(ctx context.Context, tree *logtree.Tree, s *Script, opts Options) (*Report, error) {
	if opts.Shell == "" {
		opts.Shell = "sh"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := &executor{
		tree:   tree,
		script: s,
		opts:   opts,
		logger: logger,
		report: &Report{Script: s.Name},
	}
	if opts.DryRun {
		e.dir = "."
		if wd, err := filepath.Abs("."); err == nil {
			e.dir = wd
		}
	}

	logger.Info("script started", "name", s.Name, "steps", len(s.Steps), "dry_run", opts.DryRun)
	start := time.Now()
	err := e.steps(ctx, s.Steps, nil)
	e.report.Duration = time.Since(start)
	logger.Info("script finished", "name", s.Name, "duration", e.report.Duration, "err", err)
	return e.report, err
}

func (e *executor) steps(ctx context.Context, steps []Step, path []int) error {
	for i, st := range steps {
		p := append(slices.Clone(path), i)
		if err := e.step(ctx, st, p); err != nil {
			e.skip(steps[i+1:], path, i+1)
			return err
		}
	}
	return nil
}

func (e *executor) step(ctx context.Context, st Step, path []int) error {
	idx := len(e.report.Results)
	res := core.StepResult{
		ID:    core.StepID(path...),
		Kind:  st.Kind(),
		Label: st.Label(),
	}
	e.report.Results = append(e.report.Results, res)

	start := time.Now()
	var err error
	switch res.Kind {
	case core.KindNote:
		err = e.section(ctx, st, path, func(l string) { e.tree.Notef("%s", l) }, e.tree.Note)
	case core.KindMoan:
		err = e.section(ctx, st, path, e.tree.Moan, e.tree.MoanNote)
	case core.KindCd:
		err = e.cd(ctx, st, path)
	case core.KindRun, core.KindShell:
		res.ExitCode, res.Lines, err = e.run(ctx, st)
	default:
		err = errors.Newf("step %s: no action", res.ID)
	}
	res.Duration = time.Since(start)

	switch {
	case err != nil:
		res.Status = core.StatusFailed
		e.logger.Warn("step failed", "step", res.ID, "kind", res.Kind, "err", err)
	case res.ExitCode != 0:
		res.Status = core.StatusFailed
	default:
		res.Status = core.StatusOK
	}
	e.report.Results[idx] = res
	return err
}

// section handles note and moan: a step without children prints a single
// line, a step with children opens a level for them.
func (e *executor) section(
	ctx context.Context,
	st Step,
	path []int,
	line func(string),
	scope func(context.Context, string, func(context.Context) error) error,
) error {
	label := st.Label()
	if len(st.Steps) == 0 {
		line(label)
		return nil
	}
	return scope(ctx, label, func(ctx context.Context) error {
		return e.steps(ctx, st.Steps, path)
	})
}

func (e *executor) cd(ctx context.Context, st Step, path []int) error {
	if !e.opts.DryRun {
		return e.tree.InDir(ctx, st.Cd, func(ctx context.Context) error {
			return e.steps(ctx, st.Steps, path)
		})
	}

	target := st.Cd
	if !filepath.IsAbs(target) {
		target = filepath.Join(e.dir, target)
	}
	prev := e.dir
	e.dir = filepath.Clean(target)
	defer func() { e.dir = prev }()
	return e.tree.Note(ctx, "Entering "+e.dir+".", func(ctx context.Context) error {
		return e.steps(ctx, st.Steps, path)
	})
}

func (e *executor) run(ctx context.Context, st Step) (int, int, error) {
	argv := st.Run
	if st.Kind() == core.KindShell {
		argv = []string{e.opts.Shell, "-c", st.Shell}
	}

	if e.opts.DryRun {
		if !st.Quiet {
			e.tree.Printf("$ %s", strings.Join(argv, " "))
		}
		return 0, 0, nil
	}

	opts := slices.Clone(e.opts.RunOptions)
	if env := mergeEnv(e.script.Env, st.Env); len(env) > 0 {
		opts = append(opts, logtree.WithEnv(env))
	}
	if st.Dir != "" {
		opts = append(opts, logtree.WithDir(st.Dir))
	}
	if !st.Checked() {
		opts = append(opts, logtree.NoCheck())
	}
	if st.Quiet {
		opts = append(opts, logtree.Quiet())
	}

	p, err := e.tree.Start(ctx, argv, opts...)
	if err != nil {
		return logtree.ExitCode(err), 0, err
	}
	code, err := p.Wait()
	return code, p.Lines(), err
}

// skip records steps that never ran because an earlier one failed.
func (e *executor) skip(steps []Step, path []int, offset int) {
	for i, st := range steps {
		p := append(slices.Clone(path), offset+i)
		e.report.Results = append(e.report.Results, core.StepResult{
			ID:     core.StepID(p...),
			Kind:   st.Kind(),
			Label:  st.Label(),
			Status: core.StatusSkipped,
		})
		e.skip(st.Steps, p, 0)
	}
}

func mergeEnv(base, over map[string]string) map[string]string {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	env := maps.Clone(base)
	if env == nil {
		env = make(map[string]string, len(over))
	}
	maps.Copy(env, over)
	return env
}
