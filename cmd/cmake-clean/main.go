package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cmake-clean/internal/config"
	"cmake-clean/internal/database"
	"cmake-clean/internal/exitcodes"
	"cmake-clean/internal/logging"
	"cmake-clean/internal/makeclean"
	"cmake-clean/internal/metrics"
	"cmake-clean/internal/runner"
	"cmake-clean/internal/safety"
	"cmake-clean/internal/ui"
)

type options struct {
	configPath  string
	dryRun      bool
	noMake      bool
	verbose     int
	quiet       bool
	historyDB   string
	metricsFile string
	logFile     string
}

// usageError marks bad flags or arguments
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// configError marks a configuration that failed to load or validate
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func main() {
	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes the command line and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitcodes.Success
	}

	fmt.Fprintf(stderr, "cmake-clean: %v\n", err)
	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprint(stderr, cmd.UsageString())
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var uerr *usageError
	var cerr *configError
	switch {
	case err == nil:
		return exitcodes.Success
	case errors.As(err, &uerr):
		return exitcodes.Usage
	case errors.As(err, &cerr):
		return exitcodes.InvalidConfig
	case safety.IsViolation(err):
		return exitcodes.SafetyViolation
	default:
		return exitcodes.RuntimeError
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "cmake-clean [flags] [DIR...]",
		Short: "Remove CMake-generated build artifacts",
		Long: `cmake-clean runs "make clean" in each directory, then deletes the files and
directories CMake generated there: cache and packaging files at the top level,
CMakeFiles directories with their Makefile and cmake_install.cmake, and any
directories left empty. Version control directories (.git, .svn, CVS) are
never entered. DIR defaults to the current directory.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose > 0 && opts.quiet {
				return &usageError{errors.New("--verbose and --quiet are mutually exclusive")}
			}
			return execute(cmd.Context(), opts, args, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file (default: built-in CMake rules)")
	f.BoolVarP(&opts.dryRun, "dry-run", "n", false, "list what would be removed without deleting or running make")
	f.BoolVar(&opts.noMake, "no-make", false, "skip the make clean step")
	f.CountVarP(&opts.verbose, "verbose", "v", "increase log verbosity (repeatable)")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "only log errors")
	f.StringVar(&opts.historyDB, "history-db", "", "record removals in this SQLite database")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	f.StringVar(&opts.logFile, "log-file", "", "also write debug logs as JSON to this file")

	return cmd
}

// applyFlags lets command-line flags override the config file
func applyFlags(cfg *config.Config, opts *options) {
	if opts.noMake {
		cfg.Make.Enabled = false
	}
	if opts.historyDB != "" {
		cfg.History.DatabasePath = opts.historyDB
	}
	if opts.metricsFile != "" {
		cfg.Metrics.TextfilePath = opts.metricsFile
	}
	if opts.logFile != "" {
		cfg.Logging.File = opts.logFile
	}
}

func execute(ctx context.Context, opts *options, targets []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return &configError{err}
	}
	applyFlags(cfg, opts)

	logger := logging.New(logging.Config{
		Verbosity: opts.verbose,
		Quiet:     opts.quiet,
		JSON:      cfg.Logging.JSON,
		File:      cfg.Logging.File,
		Output:    stderr,
	})
	if opts.configPath != "" {
		logger.WithField("config", opts.configPath).Debug("configuration loaded")
	}
	if opts.dryRun {
		logger.Info("dry run: nothing will be deleted")
	}

	// Initialize database for removal history
	var db *database.HistoryDB
	if cfg.History.DatabasePath != "" {
		logger.WithField("path", cfg.History.DatabasePath).Debug("opening history database")
		db, err = database.NewHistoryDB(cfg.History.DatabasePath)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.WithError(err).Error("failed to close history database")
			}
		}()
	}

	ropts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithDryRun(opts.dryRun),
		runner.WithHistory(db),
	}
	if cfg.Make.Enabled {
		inv := makeclean.New(cfg.Make, logger)
		inv.Stdout = stdout
		inv.Stderr = stderr
		ropts = append(ropts, runner.WithCleaner(inv))
	}

	summary, runErr := runner.New(cfg.Rules(), ropts...).Run(ctx, targets)

	if cfg.Metrics.TextfilePath != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			logger.WithError(err).Warn("failed to write metrics textfile")
		}
	}
	if runErr != nil {
		return runErr
	}

	if opts.dryRun {
		return ui.PrintDryRun(stdout, summary.Removals())
	}
	return nil
}
