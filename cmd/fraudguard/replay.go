package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/replay"
)

func replayCmd() *cobra.Command {
	var (
		csvPath string
		limit   int
		workers int
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Score a labelled CSV and report detection metrics",
		Long: `Replay labelled transactions through the verdict heuristic and print the
confusion matrix with precision, recall, F1 and accuracy.

The CSV needs a header with at least an amount column and a label column
(isFraud, fraud or label). Rows that fail validation are skipped.`,
		Example: `  fraudguard replay --csv testdata/transactions.csv
  fraudguard replay --csv big.csv --limit 10000 --workers 16`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(csvPath)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", csvPath, err)
			}
			defer f.Close()

			cases, skipped, err := replay.ReadCSV(f, limit)
			if err != nil {
				return err
			}
			errw := cmd.ErrOrStderr()
			fmt.Fprintf(errw, "Loaded %s cases (%s skipped)\n", humanize.Comma(int64(len(cases))), humanize.Comma(int64(skipped)))
			if len(cases) == 0 {
				return fmt.Errorf("no usable rows in %s", csvPath)
			}

			heuristic, _, err := buildHeuristic(cfg, true, slog.Default())
			if err != nil {
				return err
			}
			defer heuristic.Engine().Close()

			bar := progressbar.NewOptions(len(cases),
				progressbar.OptionSetWriter(errw),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan][bold]Replaying...[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(errw)
				}),
			)

			m, err := replay.Run(cmd.Context(), heuristic, cases, workers, func(c replay.Case, _ domain.Verdict, err error) {
				if err != nil {
					slog.Debug("replay case failed", "line", c.Line, "error", err)
				}
				_ = bar.Add(1)
			})
			if err != nil {
				return err
			}

			printMetrics(cmd.OutOrStdout(), m, heuristic.Threshold())
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "labelled CSV file")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many rows (0 = all)")
	cmd.Flags().IntVar(&workers, "workers", 8, "concurrent evaluations")
	_ = cmd.MarkFlagRequired("csv")
	return cmd
}

func printMetrics(w io.Writer, m *replay.Metrics, threshold float64) {
	fraud := m.TruePositives + m.FalseNegatives
	legit := m.FalsePositives + m.TrueNegatives

	fmt.Fprintf(w, "\nREPLAY RESULTS (threshold %.2f)\n", threshold)
	fmt.Fprintf(w, "   Scored:      %s\n", humanize.Comma(m.Total()))
	fmt.Fprintf(w, "   Fraud:       %s\n", humanize.Comma(fraud))
	fmt.Fprintf(w, "   Not fraud:   %s\n", humanize.Comma(legit))
	fmt.Fprintf(w, "   Errors:      %s\n", humanize.Comma(m.Errors))

	fmt.Fprintln(w, "\nCONFUSION MATRIX")
	fmt.Fprintln(w, "                        Predicted")
	fmt.Fprintln(w, "                   FRAUD       LEGIT")
	fmt.Fprintln(w, "              ┌──────────┬──────────┐")
	fmt.Fprintf(w, "   Actual  F  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Fprintln(w, "              ├──────────┼──────────┤")
	fmt.Fprintf(w, "          NF  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Fprintln(w, "              └──────────┴──────────┘")

	fmt.Fprintln(w, "\nDETECTION METRICS")
	fmt.Fprintf(w, "   Precision:  %.4f  (of alerts, how many were actual fraud)\n", m.Precision())
	fmt.Fprintf(w, "   Recall:     %.4f  (of fraud, how many were caught)\n", m.Recall())
	fmt.Fprintf(w, "   F1-Score:   %.4f\n", m.F1())
	fmt.Fprintf(w, "   Accuracy:   %.4f\n", m.Accuracy())

	if legit > 0 {
		fmt.Fprintf(w, "   False alarms: %d / %d (%.2f%%)\n", m.FalsePositives, legit, float64(m.FalsePositives)/float64(legit)*100)
	}

	fmt.Fprintln(w, "\nPERFORMANCE")
	fmt.Fprintf(w, "   Duration:    %s\n", m.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "   Throughput:  %s cases/sec\n", humanize.CommafWithDigits(m.Throughput(), 1))
}
