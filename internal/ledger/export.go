package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// ExportHeader is the fixed CSV column set.
var ExportHeader = []string{
	"ID",
	"Type",
	"Location",
	"Amount (₹)",
	"Timestamp",
	"Status",
	"Summary",
	"Explanation",
	"Detailed Explanation",
}

// ExportFilename names the download for a kind; an empty kind exports all.
func ExportFilename(kind domain.ModelKind) string {
	name := string(kind)
	if name == "" {
		name = domain.FilterAll
	}
	return name + "-analysis-results.csv"
}

// ExportCSV writes records as RFC 4180 CSV, one physical line per record and
// no line break after the last one.
func ExportCSV(w io.Writer, records []domain.ResultRecord) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(exportRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	_, err := w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return err
}

func exportRow(r domain.ResultRecord) []string {
	amount := "N/A"
	if r.Kind != domain.KindBehavior {
		amount = fmt.Sprintf("₹%.2f", r.Amount)
	}
	return []string{
		r.ID,
		r.MerchantCategory,
		r.Location,
		amount,
		r.Timestamp,
		string(r.FraudStatus),
		foldLines(r.Summary),
		foldLines(r.Explanation),
		foldLines(r.DetailedExplanation),
	}
}

// foldLines joins the non-blank lines of s with single spaces.
func foldLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, " ")
}
