package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/modoterra/logtree/internal/buildinfo"
	"github.com/modoterra/logtree/pkg/logtree"
	"github.com/modoterra/logtree/pkg/script"
	"github.com/modoterra/logtree/pkg/script/presets"
)

const defaultScript = "logtree.yaml"

var cfg = viper.New()

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(logtree.ExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:          "logtree",
	Short:        "Nested, indented output for multi-step scripts",
	Long:         "logtree runs scripts and commands, printing their output as an indented tree of notes, directory changes and commands.",
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output: auto, always or never")
	pf.Int("indent", logtree.DefaultIndent, "spaces per nesting level")
	pf.String("log-level", "warn", "diagnostic log level: debug, info, warn or error")
	if err := cfg.BindPFlags(pf); err != nil {
		panic(err)
	}
	cfg.SetEnvPrefix("LOGTREE")
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger writes diagnostics to the command's stderr, which is resolved
// before any redirect is installed.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.GetString("log-level"))); err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})), nil
}

func newTree(cmd *cobra.Command) (*logtree.Tree, *slog.Logger, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, nil, err
	}
	indent := cfg.GetInt("indent")
	if indent < 0 {
		return nil, nil, errors.Newf("invalid indent %d", indent)
	}
	opts := []logtree.Option{logtree.WithIndent(indent), logtree.WithLogger(logger)}
	switch mode := cfg.GetString("color"); mode {
	case "auto":
	case "always":
		opts = append(opts, logtree.WithColor(true))
	case "never":
		opts = append(opts, logtree.WithColor(false))
	default:
		return nil, nil, errors.Newf("invalid color mode %q (want auto, always or never)", mode)
	}
	return logtree.New(cmd.OutOrStdout(), opts...), logger, nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

func scriptPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return defaultScript
}

// --- Run ---

var (
	runDryRun  bool
	runSummary bool
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a logtree script",
	Long:  "Runs the steps of a YAML or TOML script (default logtree.yaml), stopping at the first failing command.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := scriptPath(args)
		s, err := script.Load(path)
		if err != nil {
			return err
		}
		if errs := script.Validate(s); len(errs) > 0 {
			return invalid(cmd, path, errs)
		}

		tree, logger, err := newTree(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signalContext(cmd)
		defer stop()

		var rep *script.Report
		err = logtree.Capture(tree, func() error {
			var err error
			rep, err = script.Execute(ctx, tree, s, script.Options{DryRun: runDryRun, Logger: logger})
			return err
		})
		if runSummary && rep != nil {
			fmt.Fprintln(cmd.OutOrStdout())
			rep.Render(cmd.OutOrStdout())
		}
		return err
	},
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "print the steps without running them")
	runCmd.Flags().BoolVar(&runSummary, "summary", false, "print a table of commands after the run")
}

// --- Exec ---

var (
	execNote string
	execDir  string
)

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- command [args...]",
	Short: "Run a single command with indented output",
	Long:  "Runs one command, relaying its output one level below the command line. The exit status mirrors the command's.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, _, err := newTree(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signalContext(cmd)
		defer stop()

		var opts []logtree.RunOption
		if execDir != "" {
			opts = append(opts, logtree.WithDir(execDir))
		}
		run := func(ctx context.Context) error {
			_, err := tree.Run(ctx, args, opts...)
			return err
		}
		return logtree.Capture(tree, func() error {
			if execNote == "" {
				return run(ctx)
			}
			return tree.Note(ctx, execNote, run)
		})
	},
}

func init() {
	execCmd.Flags().StringVar(&execNote, "note", "", "open a note with this label around the command")
	execCmd.Flags().StringVar(&execDir, "dir", "", "working directory for the command")
	execCmd.Flags().SetInterspersed(false)
}

// --- Validate ---

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a logtree script",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := scriptPath(args)
		s, err := script.Load(path)
		if err != nil {
			return err
		}
		if errs := script.Validate(s); len(errs) > 0 {
			return invalid(cmd, path, errs)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d steps)\n", path, len(s.Steps))
		return nil
	},
}

func invalid(cmd *cobra.Command, path string, errs []error) error {
	for _, e := range errs {
		fmt.Fprintf(cmd.ErrOrStderr(), "  • %s\n", e)
	}
	return errors.Newf("%s: %d error(s)", path, len(errs))
}

// --- Init ---

var (
	initRoot   string
	initOutput string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a starter script for a project",
	Long:  "Inspects the project root for go.mod, package.json and Makefile and writes a script that builds it.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := presets.Generate(initRoot)
		if err != nil {
			return err
		}
		if err := script.Save(s, initOutput); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated %s for %s\n", initOutput, s.Name)
		for _, st := range s.Steps[0].Steps {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s (%d commands)\n", st.Label(), len(st.Steps))
		}
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initRoot, "root", ".", "project root directory")
	initCmd.Flags().StringVar(&initOutput, "output", defaultScript, "output file path (.toml writes TOML)")
}

// --- Version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "logtree %s (%s) built %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
	},
}
