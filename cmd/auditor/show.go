package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour/v2"
	"github.com/spf13/cobra"
)

// #region show

func showCmd(a *app) *cobra.Command {
	var (
		width int
		plain bool
	)
	cmd := &cobra.Command{
		Use:   "show <run_id>",
		Short: "Render a run's insight document in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.show(args[0], width, plain)
		},
	}
	cmd.Flags().IntVar(&width, "width", 100, "Word wrap width")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print raw Markdown")
	return cmd
}

func (a *app) show(runID string, width int, plain bool) error {
	md, err := a.store.ReadInsightsMarkdown(runID)
	if err != nil {
		return &stageError{err: err}
	}
	if plain {
		_, err := fmt.Fprint(a.out, md)
		return err
	}
	rendered, err := renderMarkdown(md, width)
	if err != nil {
		a.logger.Warn("markdown render failed, printing raw", "error", err)
		rendered = md
	}
	_, err = fmt.Fprintln(a.out, rendered)
	return err
}

func renderMarkdown(md string, width int) (string, error) {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dracula"),
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.TrimRight(out, "\n"), nil
}

// #endregion show

// #region runs

func runsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List runs with an aggregate report, newest id first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := a.store.ListRuns()
			if err != nil {
				return &stageError{err: err}
			}
			if len(runs) == 0 {
				a.logger.Info("no runs found", "reports_dir", a.cfg.Paths.ReportsDir)
				return nil
			}
			for _, runID := range runs {
				status := "aggregated"
				if _, err := a.store.ReadInsightsMarkdown(runID); err == nil {
					status = "ranked"
				}
				fmt.Fprintf(a.out, "%-32s %s\n", runID, status)
			}
			return nil
		},
	}
}

// #endregion runs
