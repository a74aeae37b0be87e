package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/fraudguard/internal/analysis"
	"github.com/opensource-finance/fraudguard/internal/tui"
)

func dashboardCmd() *cobra.Command {
	var (
		user      string
		exportDir string
		logFile   string
		style     string
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Open the terminal dashboard",
		Long: `Open the interactive dashboard. Submissions, filters and exports behave as
they do over HTTP, with one in-memory ledger for the lifetime of the program.

Logs would corrupt the screen, so they are discarded unless --log-file is set.`,
		Example: `  fraudguard dashboard
  fraudguard dashboard --user analyst@example.com --export-dir ./exports`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logOut := io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				defer f.Close()
				logOut = f
			}
			if err := setupLogging(cfg.Logging, logOut); err != nil {
				return err
			}

			heuristic, _, err := buildHeuristic(cfg, true, slog.Default())
			if err != nil {
				return err
			}
			defer heuristic.Engine().Close()

			renderer, err := tui.NewRenderer(72, style)
			if err != nil {
				slog.Warn("markdown renderer unavailable", "error", err)
				renderer = nil
			}

			return tui.Run(cmd.Context(), tui.Config{
				Analyzer:  analysis.NewAnalyzer(heuristic, cfg.Analysis.StepDelay, slog.Default()),
				User:      user,
				ExportDir: exportDir,
				Renderer:  renderer,
			})
		},
	}

	cmd.Flags().StringVar(&user, "user", os.Getenv("USER"), "name shown in the header")
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "directory for CSV exports (default: working directory)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "append logs to this file")
	cmd.Flags().StringVar(&style, "style", "", "glamour style for explanations")
	return cmd
}
