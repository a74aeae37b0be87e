// Package ledger holds the append-only sequence of analysed records.
package ledger

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// Ledger is an immutable ordered list of result records.
// The zero value is an empty ledger.
type Ledger struct {
	records []domain.ResultRecord
}

// New returns a ledger holding the given records in order.
func New(records ...domain.ResultRecord) Ledger {
	return Ledger{records: slices.Clone(records)}
}

// Append returns a new ledger with r at the end. The receiver is unchanged.
func (l Ledger) Append(r domain.ResultRecord) Ledger {
	next := make([]domain.ResultRecord, len(l.records), len(l.records)+1)
	copy(next, l.records)
	return Ledger{records: append(next, r)}
}

// Len returns the number of records.
func (l Ledger) Len() int {
	return len(l.records)
}

// Records returns a copy of all records in insertion order.
func (l Ledger) Records() []domain.ResultRecord {
	return slices.Clone(l.records)
}

// Get finds a record by ID.
func (l Ledger) Get(id string) (domain.ResultRecord, error) {
	for _, r := range l.records {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.ResultRecord{}, fmt.Errorf("%w: record %s", domain.ErrNotFound, id)
}

// Has reports whether a record with the given ID exists.
func (l Ledger) Has(id string) bool {
	for _, r := range l.records {
		if r.ID == id {
			return true
		}
	}
	return false
}

// NextID returns the identifier for the next record of the given kind.
// A supplied transaction ID wins but must not already be in the ledger.
// Generated IDs start at Len()+1 and skip numbers already taken.
func (l Ledger) NextID(kind domain.ModelKind, supplied string) (string, error) {
	prefix := "TXN"
	if kind == domain.KindBehavior {
		prefix = "SES"
	} else if s := strings.TrimSpace(supplied); s != "" {
		if l.Has(s) {
			return "", fmt.Errorf("%w: transaction ID %q is already recorded", domain.ErrInvalidInput, s)
		}
		return s, nil
	}

	for n := len(l.records) + 1; ; n++ {
		id := fmt.Sprintf("%s%03d", prefix, n)
		if !l.Has(id) {
			return id, nil
		}
	}
}

// Filter returns the records matching the status and location filters in
// insertion order. "all" passes everything through.
func (l Ledger) Filter(status, location string) ([]domain.ResultRecord, error) {
	st, err := domain.ParseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	loc, err := domain.ParseLocationFilter(location)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ResultRecord, 0, len(l.records))
	for _, r := range l.records {
		if st != domain.FilterAll && r.FraudStatus.Slug() != st {
			continue
		}
		if loc != domain.FilterAll && !strings.Contains(r.Location, loc) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Summary holds the dashboard totals.
type Summary struct {
	Total       int     `json:"total"`
	Fraud       int     `json:"fraud"`
	Legitimate  int     `json:"legitimate"`
	TotalAmount float64 `json:"totalAmount"`
}

// Summary computes totals over every record.
func (l Ledger) Summary() Summary {
	return Summarize(l.records)
}

// Summarize computes totals over the given records.
func Summarize(records []domain.ResultRecord) Summary {
	var s Summary
	for _, r := range records {
		s.Total++
		if r.IsFraud() {
			s.Fraud++
		} else {
			s.Legitimate++
		}
		s.TotalAmount += r.Amount
	}
	return s
}

// MarshalJSON encodes the ledger as a JSON array.
func (l Ledger) MarshalJSON() ([]byte, error) {
	if l.records == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.records)
}

// UnmarshalJSON decodes a JSON array of records.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	var records []domain.ResultRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	l.records = records
	return nil
}
