package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/opensource-finance/fraudguard/internal/analysis"
	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/explain"
	"github.com/opensource-finance/fraudguard/internal/ledger"
	"github.com/opensource-finance/fraudguard/internal/tui"
)

type analyzeOptions struct {
	kind   string
	input  domain.InputRecord
	delay  time.Duration
	asJSON bool
	style  string
	width  int
}

func analyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one transaction or session from the command line",
		Long: `Run a single input through the analysis pipeline and print the verdict
with its explanation.

Progress is drawn on stderr so the result can be piped.`,
		Example: `  # Late-night high-value transfer
  fraudguard analyze --amount 6000 --merchant "Online Transfer" --location mumbai --time 23:30

  # Behaviour session (needs behavior.scorer set to random or remote)
  fraudguard analyze --kind behavior --user-id U-7 --session-id S-1 --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.kind, "kind", string(domain.KindTransaction), "model kind (transaction, behavior)")
	f.StringVar(&opts.input.TransactionID, "transaction-id", "", "transaction ID (generated when empty)")
	f.StringVar(&opts.input.Amount, "amount", "", "transaction amount in rupees")
	f.StringVar(&opts.input.MerchantCategory, "merchant", "", "merchant category")
	f.StringVar(&opts.input.Location, "location", "", "location key, e.g. mumbai")
	f.StringVar(&opts.input.UserID, "user-id", "", "user ID (behavior)")
	f.StringVar(&opts.input.SessionID, "session-id", "", "session ID (behavior)")
	f.StringVar(&opts.input.Date, "date", "", "date as YYYY-MM-DD (defaults to today)")
	f.StringVar(&opts.input.Time, "time", "", "time as HH:MM")
	f.DurationVar(&opts.delay, "step-delay", 600*time.Millisecond, "pause between progress steps")
	f.BoolVar(&opts.asJSON, "json", false, "print the record as JSON")
	f.StringVar(&opts.style, "style", "", "glamour style (dark, light, notty); auto-detected when empty")
	f.IntVar(&opts.width, "width", 80, "wrap width for the explanation")

	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions) error {
	kind, err := domain.ParseKind(opts.kind)
	if err != nil {
		return err
	}
	in := opts.input
	in.Kind = kind

	heuristic, _, err := buildHeuristic(cfg, true, slog.Default())
	if err != nil {
		return err
	}
	defer heuristic.Engine().Close()

	analyzer := analysis.NewAnalyzer(heuristic, opts.delay, slog.Default())

	bar := newStepBar(cmd.ErrOrStderr(), kind)
	rec, err := analyzer.Analyze(cmd.Context(), ledger.New(), in, func(step analysis.Step) {
		bar.Describe(step.Message)
		_ = bar.Set(step.Percent)
	})
	if err != nil {
		_ = bar.Exit()
		return err
	}
	_ = bar.Finish()

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	renderer, err := tui.NewRenderer(opts.width, opts.style)
	if err != nil {
		slog.Warn("markdown renderer unavailable", "error", err)
		renderer = nil
	}
	fmt.Fprintf(out, "%s  %s  %s  p=%.4f\n", rec.Timestamp, rec.Location, explain.FormatAmount(rec.Amount), rec.Probability)
	fmt.Fprint(out, tui.RenderRecord(renderer, rec))
	return nil
}

func newStepBar(w io.Writer, kind domain.ModelKind) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan][bold]Analyzing %s...[reset]", kind.Label())),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}
