package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ModelKind selects the analysis mode and with it the input field set.
type ModelKind string

const (
	KindTransaction ModelKind = "transaction"
	KindBehavior    ModelKind = "behavior"
)

// Kinds lists the supported model kinds in picker order.
var Kinds = []ModelKind{KindTransaction, KindBehavior}

// ParseKind validates a model kind string.
func ParseKind(s string) (ModelKind, error) {
	switch ModelKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindTransaction:
		return KindTransaction, nil
	case KindBehavior:
		return KindBehavior, nil
	default:
		return "", fmt.Errorf("%w: unknown model kind %q", ErrInvalidInput, s)
	}
}

// Label returns the display name shown in the model picker.
func (k ModelKind) Label() string {
	switch k {
	case KindTransaction:
		return "Transaction Input"
	case KindBehavior:
		return "Behaviour Input"
	default:
		return string(k)
	}
}

// Description returns the one-line help text for the kind.
func (k ModelKind) Description() string {
	switch k {
	case KindTransaction:
		return "Analyzes individual transaction patterns and anomalies"
	case KindBehavior:
		return "Analyzes user behavior patterns and session data"
	default:
		return ""
	}
}

// Layouts for the raw date and time fields.
const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04"
	TimestampLayout = "2006-01-02 15:04"

	// DefaultHour is used when no time of day was supplied.
	DefaultHour = 12
)

// InputRecord is one submission from a front end.
// Only the fields of the active Kind are meaningful.
type InputRecord struct {
	Kind ModelKind `json:"kind"`

	// Transaction fields
	TransactionID    string `json:"transactionId,omitempty"`
	Amount           string `json:"amount,omitempty"`
	MerchantCategory string `json:"merchantCategory,omitempty"`
	Location         string `json:"location,omitempty"`

	// Behavior fields
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`

	// Shared
	Date string `json:"date,omitempty"` // YYYY-MM-DD
	Time string `json:"time,omitempty"` // HH:MM
}

// Normalize trims every field and clears the fields of the inactive kind.
func (in InputRecord) Normalize() InputRecord {
	out := InputRecord{
		Kind:     in.Kind,
		Location: strings.TrimSpace(in.Location),
		Date:     strings.TrimSpace(in.Date),
		Time:     strings.TrimSpace(in.Time),
	}
	switch in.Kind {
	case KindTransaction:
		out.TransactionID = strings.TrimSpace(in.TransactionID)
		out.Amount = strings.TrimSpace(in.Amount)
		out.MerchantCategory = strings.TrimSpace(in.MerchantCategory)
	case KindBehavior:
		out.UserID = strings.TrimSpace(in.UserID)
		out.SessionID = strings.TrimSpace(in.SessionID)
	}
	return out
}

// Validate rejects input that the heuristic cannot score.
// Unparseable amounts are an error rather than a silent "not fraud".
func (in InputRecord) Validate() error {
	if _, err := ParseKind(string(in.Kind)); err != nil {
		return err
	}

	if in.Kind == KindTransaction {
		if _, err := in.AmountValue(); err != nil {
			return err
		}
	}

	if in.Time != "" {
		if _, err := time.Parse(TimeLayout, in.Time); err != nil {
			return fmt.Errorf("%w: %q is not HH:MM", ErrInvalidTime, in.Time)
		}
	}

	if in.Date != "" {
		if _, err := time.Parse(DateLayout, in.Date); err != nil {
			return fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDate, in.Date)
		}
	}

	return nil
}

// AmountValue parses the transaction amount.
func (in InputRecord) AmountValue() (float64, error) {
	if in.Amount == "" {
		return 0, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}
	v, err := strconv.ParseFloat(in.Amount, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, in.Amount)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: amount must not be negative", ErrInvalidAmount)
	}
	return v, nil
}

// Hour returns the hour of day, or DefaultHour when no time was given.
func (in InputRecord) Hour() int {
	t, err := time.Parse(TimeLayout, in.Time)
	if err != nil {
		return DefaultHour
	}
	return t.Hour()
}

// Minute returns the minute of the hour, or 0 when no time was given.
func (in InputRecord) Minute() int {
	t, err := time.Parse(TimeLayout, in.Time)
	if err != nil {
		return 0
	}
	return t.Minute()
}

// Timestamp renders the submission time as "YYYY-MM-DD HH:MM".
// Missing date falls back to now's UTC date, missing time to 00:00.
func (in InputRecord) Timestamp(now time.Time) string {
	date := in.Date
	if date == "" {
		date = now.UTC().Format(DateLayout)
	}
	clock := in.Time
	if clock == "" {
		clock = "00:00"
	}
	return date + " " + clock
}

// RuleScore is one rule's contribution to a verdict.
type RuleScore struct {
	RuleID string  `json:"ruleId"`
	Score  float64 `json:"score"`
}

// Verdict is the fraud/not-fraud decision for one input.
type Verdict struct {
	Kind        ModelKind   `json:"kind"`
	IsFraud     bool        `json:"isFraud"`
	Probability float64     `json:"probability"`
	Scorer      string      `json:"scorer"`
	RuleScores  []RuleScore `json:"ruleScores,omitempty"`
}

// Risk levels.
const (
	RiskHigh = "HIGH RISK"
	RiskLow  = "LOW RISK"
)

// Classification labels.
const (
	ClassFraudulentTransaction = "Fraudulent Transaction"
	ClassLegitimateTransaction = "Legitimate Transaction"
	ClassSuspiciousSession     = "Suspicious Session"
	ClassNormalSession         = "Normal Session"
)

// RiskLevelFor maps a verdict to its risk level.
func RiskLevelFor(isFraud bool) string {
	if isFraud {
		return RiskHigh
	}
	return RiskLow
}

// ClassificationFor maps (kind, verdict) to one of the four labels.
func ClassificationFor(kind ModelKind, isFraud bool) string {
	switch {
	case kind == KindBehavior && isFraud:
		return ClassSuspiciousSession
	case kind == KindBehavior:
		return ClassNormalSession
	case isFraud:
		return ClassFraudulentTransaction
	default:
		return ClassLegitimateTransaction
	}
}

// Explanation is the prose rendered for a verdict.
type Explanation struct {
	Explanation         string `json:"explanation"`
	DetailedExplanation string `json:"detailedExplanation"`
	Summary             string `json:"summary"`
	RiskLevel           string `json:"riskLevel"`
	Classification      string `json:"classification"`
}

// FraudStatus is the ledger-level verdict label.
type FraudStatus string

const (
	StatusFraud    FraudStatus = "Fraud"
	StatusNotFraud FraudStatus = "Not Fraud"
)

// StatusFor maps a verdict to its ledger label.
func StatusFor(isFraud bool) FraudStatus {
	if isFraud {
		return StatusFraud
	}
	return StatusNotFraud
}

// Slug returns the filter token for the status ("fraud", "not-fraud").
func (s FraudStatus) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(s)), " ", "-")
}

// ResultRecord is an analysed submission as stored in the ledger.
// Records are never mutated once created.
type ResultRecord struct {
	ID               string      `json:"id"`
	Kind             ModelKind   `json:"kind"`
	MerchantCategory string      `json:"merchantCategory"`
	Location         string      `json:"location"`
	Amount           float64     `json:"amount"`
	UserID           string      `json:"userId,omitempty"`
	SessionID        string      `json:"sessionId,omitempty"`
	Timestamp        string      `json:"timestamp"`
	FraudStatus      FraudStatus `json:"fraudStatus"`
	Probability      float64     `json:"probability"`

	Explanation         string `json:"explanation"`
	DetailedExplanation string `json:"detailedExplanation"`
	Summary             string `json:"summary"`
	RiskLevel           string `json:"riskLevel"`
	Classification      string `json:"classification"`

	CreatedAt time.Time `json:"createdAt"`
}

// IsFraud reports whether the record was flagged.
func (r ResultRecord) IsFraud() bool {
	return r.FraudStatus == StatusFraud
}
