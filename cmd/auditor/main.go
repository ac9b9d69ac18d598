// Package main provides the auditor binary: the aggregate and rank stages
// of the narrative-asymmetry audit plus the supporting analysis commands.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/artifact"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/config"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/ledger"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "auditor"
)

// #region main

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// stageError marks a failure inside a pipeline stage (exit 1). Every other
// error is a usage or configuration problem (exit 2).
type stageError struct {
	err error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var se *stageError
	if errors.As(err, &se) {
		return 1
	}
	return 2
}

// #endregion main

// #region root

// app is the state shared by every subcommand once config is loaded.
type app struct {
	configPath string
	logLevel   string

	out    io.Writer
	cfg    *config.Config
	logger *slog.Logger
	store  *artifact.Store
	ledger *ledger.Store // nil when no ledger is configured
}

// run executes one command line and releases the ledger afterwards.
func run(args []string, out io.Writer) error {
	a := &app{out: out}
	defer a.teardown()

	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(out)
	return cmd.Execute()
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Narrative-asymmetry auditor for multi-model answer logs",
		Long: `Auditor turns raw answer logs from several language models into
per-question divergence metrics and a short ranked list of narrated insights.

Stages:
- aggregate: raw_responses.jsonl -> report_questions_<run>.json, metrics_questions_<run>.csv
- rank:      metrics + report -> top_insights_<run>.json, top_insights_<run>.md

Settings come from ~/.config/biaslab/config.yaml, the nearest biaslab.yaml,
--config and BIASLAB_* environment variables, in that order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		aggregateCmd(a),
		rankCmd(a),
		pipelineCmd(a),
		lexicalCmd(a),
		sanityCmd(a),
		showCmd(a),
		runsCmd(a),
		initConfigCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				return nil
			},
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(a.out, "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// initConfigCmd writes the default user config. It runs before any config
// exists, so it skips the usual setup.
func initConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Create ~/.config/biaslab/config.yaml with default settings",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger = newLogger(a.logLevel)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.NewLoader(a.logger).EnsureUserConfig()
			if err != nil {
				return fmt.Errorf("init config: %w", err)
			}
			fmt.Fprintf(a.out, "user config: %s\n", path)
			return nil
		},
	}
}

// setup configures logging, loads config and opens the ledger.
func (a *app) setup() error {
	a.logger = newLogger(a.logLevel)
	slog.SetDefault(a.logger)

	cfg, err := config.NewLoader(a.logger).Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	a.store = artifact.NewStore(cfg.Paths.RunsDir, cfg.Paths.ReportsDir)

	if cfg.Paths.Ledger != "" {
		store, err := ledger.NewStore(cfg.Paths.Ledger)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		a.ledger = store
		a.logger.Debug("ledger enabled", "path", cfg.Paths.Ledger)
	}
	return nil
}

func (a *app) teardown() {
	if a.ledger == nil {
		return
	}
	if err := a.ledger.Close(); err != nil {
		a.logger.Warn("close ledger", "error", err)
	}
	a.ledger = nil
}

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// #endregion root
