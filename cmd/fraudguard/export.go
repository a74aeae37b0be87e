package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/ledger"
	"github.com/opensource-finance/fraudguard/internal/repository"
)

func exportCmd() *cobra.Command {
	var (
		sessionID string
		recordID  string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export archived results as CSV",
		Long: `Read results the archive worker stored for a dashboard session and write
them in the dashboard's CSV layout.

Without --session, the archived sessions are listed. With --record, the one
archived record is printed as JSON.`,
		Example: `  fraudguard export
  fraudguard export --session 5f0c... --output results.csv
  fraudguard export --session 5f0c... --record TXN003`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if recordID != "" && sessionID == "" {
				return fmt.Errorf("--record requires --session")
			}

			repo, err := repository.New(cfg.Repository)
			if err != nil {
				return fmt.Errorf("failed to initialize repository: %w", err)
			}
			if repo == nil {
				return fmt.Errorf("no repository configured (repository.driver is none)")
			}
			defer repo.Close()

			ctx := cmd.Context()
			if sessionID == "" {
				sessions, err := repo.ListSessions(ctx)
				if err != nil {
					return err
				}
				for _, id := range sessions {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			}

			if recordID != "" {
				return writeRecord(ctx, cmd.OutOrStdout(), repo, sessionID, recordID)
			}

			stored, err := repo.ListResults(ctx, sessionID)
			if err != nil {
				return err
			}
			records := make([]domain.ResultRecord, len(stored))
			for i, r := range stored {
				records[i] = *r
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			if err := ledger.ExportCSV(w, records); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s %s to %s\n",
					humanize.Comma(int64(len(records))), plural(len(records), "record"), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "dashboard session ID")
	cmd.Flags().StringVar(&recordID, "record", "", "print one archived record as JSON")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

// writeRecord prints one archived record as indented JSON.
func writeRecord(ctx context.Context, w io.Writer, repo domain.Repository, sessionID, recordID string) error {
	record, err := repo.GetResult(ctx, sessionID, recordID)
	if err != nil {
		return fmt.Errorf("record %s: %w", recordID, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
