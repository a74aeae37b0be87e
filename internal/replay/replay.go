// Package replay runs labelled transactions through the heuristic and
// measures its verdicts against the labels.
package replay

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// Evaluator scores one input.
type Evaluator interface {
	Evaluate(ctx context.Context, in domain.InputRecord) (domain.Verdict, error)
}

// Case is one labelled row.
type Case struct {
	Line  int
	Input domain.InputRecord
	Fraud bool
}

// Column names accepted in the header (case-insensitive).
var columns = map[string][]string{
	"id":       {"transactionid", "id"},
	"amount":   {"amount"},
	"merchant": {"merchantcategory", "merchant", "type"},
	"location": {"location"},
	"date":     {"date"},
	"time":     {"time"},
	"label":    {"isfraud", "fraud", "label"},
}

// ReadCSV reads labelled transactions. The header must name an amount and a
// label column; rows that cannot be parsed are skipped and counted.
// limit > 0 stops after that many cases.
func ReadCSV(r io.Reader, limit int) (cases []Case, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int)
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(col))
		for field, aliases := range columns {
			if _, seen := index[field]; seen {
				continue
			}
			for _, a := range aliases {
				if name == a {
					index[field] = i
				}
			}
		}
	}
	for _, required := range []string{"amount", "label"} {
		if _, ok := index[required]; !ok {
			return nil, 0, fmt.Errorf("%w: csv has no %s column", domain.ErrInvalidInput, required)
		}
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			skipped++
			continue
		}

		get := func(field string) string {
			i, ok := index[field]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		fraud, ok := parseLabel(get("label"))
		if !ok {
			skipped++
			continue
		}

		in := domain.InputRecord{
			Kind:             domain.KindTransaction,
			TransactionID:    get("id"),
			Amount:           get("amount"),
			MerchantCategory: get("merchant"),
			Location:         get("location"),
			Date:             get("date"),
			Time:             get("time"),
		}
		if err := in.Validate(); err != nil {
			skipped++
			continue
		}

		cases = append(cases, Case{Line: line, Input: in, Fraud: fraud})
		if limit > 0 && len(cases) >= limit {
			break
		}
	}

	return cases, skipped, nil
}

func parseLabel(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "fraud":
		return true, true
	case "0", "false", "no", "not fraud", "not-fraud":
		return false, true
	default:
		return false, false
	}
}

// Metrics is a confusion matrix plus timing.
type Metrics struct {
	TruePositives  int64
	FalsePositives int64
	TrueNegatives  int64
	FalseNegatives int64
	Errors         int64

	Duration time.Duration
}

// Total counts the cases that produced a verdict.
func (m *Metrics) Total() int64 {
	return m.TruePositives + m.FalsePositives + m.TrueNegatives + m.FalseNegatives
}

// Precision is the share of alerts that were fraud.
func (m *Metrics) Precision() float64 {
	return ratio(m.TruePositives, m.TruePositives+m.FalsePositives)
}

// Recall is the share of fraud that was caught.
func (m *Metrics) Recall() float64 {
	return ratio(m.TruePositives, m.TruePositives+m.FalseNegatives)
}

// F1 is the harmonic mean of precision and recall.
func (m *Metrics) F1() float64 {
	p, r := m.Precision(), m.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Accuracy is the share of correct verdicts.
func (m *Metrics) Accuracy() float64 {
	return ratio(m.TruePositives+m.TrueNegatives, m.Total())
}

// Throughput is verdicts per second.
func (m *Metrics) Throughput() float64 {
	if m.Duration <= 0 {
		return 0
	}
	return float64(m.Total()) / m.Duration.Seconds()
}

func ratio(n, d int64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// Run evaluates every case with up to workers concurrent evaluations.
// Evaluation errors are counted, not returned; only cancellation stops
// the run early. done is called after each case, possibly concurrently,
// and may be nil.
func Run(ctx context.Context, eval Evaluator, cases []Case, workers int, done func(Case, domain.Verdict, error)) (*Metrics, error) {
	if workers <= 0 {
		workers = 1
	}

	var tp, fp, tn, fn, failed atomic.Int64
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, c := range cases {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			v, err := eval.Evaluate(gctx, c.Input)
			switch {
			case err != nil:
				failed.Add(1)
			case v.IsFraud && c.Fraud:
				tp.Add(1)
			case v.IsFraud:
				fp.Add(1)
			case c.Fraud:
				fn.Add(1)
			default:
				tn.Add(1)
			}

			if done != nil {
				done(c, v, err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	return &Metrics{
		TruePositives:  tp.Load(),
		FalsePositives: fp.Load(),
		TrueNegatives:  tn.Load(),
		FalseNegatives: fn.Load(),
		Errors:         failed.Load(),
		Duration:       time.Since(start),
	}, err
}
