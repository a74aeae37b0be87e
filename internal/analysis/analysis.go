// Package analysis runs one submission through validation, the verdict
// heuristic and the explanation templates, reporting progress on the way.
package analysis

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/explain"
	"github.com/opensource-finance/fraudguard/internal/ledger"
	"github.com/opensource-finance/fraudguard/internal/verdict"
)

var tracer = otel.Tracer("fraudguard-analysis")

// Step is one progress milestone.
type Step struct {
	Percent int
	Message string
}

var transactionSteps = []Step{
	{20, "Validating transaction data..."},
	{40, "Analyzing spending patterns..."},
	{60, "Checking location anomalies..."},
	{80, "Running fraud detection algorithms..."},
	{100, "Generating analysis report..."},
}

var behaviorSteps = []Step{
	{20, "Analyzing user session data..."},
	{40, "Processing behavioral biometrics..."},
	{60, "Comparing with user baseline..."},
	{80, "Running behavior analysis algorithms..."},
	{100, "Generating behavior report..."},
}

// Steps returns the progress steps shown for a kind.
func Steps(kind domain.ModelKind) []Step {
	if kind == domain.KindBehavior {
		return behaviorSteps
	}
	return transactionSteps
}

// ProgressFunc receives each step as it is reached. It may be nil.
type ProgressFunc func(Step)

// Evaluator is the verdict heuristic as the analyzer uses it.
type Evaluator interface {
	Evaluate(ctx context.Context, in domain.InputRecord) (domain.Verdict, error)
}

// Analyzer produces result records.
type Analyzer struct {
	heuristic Evaluator
	stepDelay time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewAnalyzer creates an analyzer. stepDelay pauses between progress steps.
func NewAnalyzer(heuristic Evaluator, stepDelay time.Duration, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		heuristic: heuristic,
		stepDelay: stepDelay,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for timestamps.
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

// Analyze evaluates in against the current ledger. The ledger is only read
// to number the new record; appending it is the caller's job.
func (a *Analyzer) Analyze(ctx context.Context, l ledger.Ledger, in domain.InputRecord, progress ProgressFunc) (domain.ResultRecord, error) {
	start := time.Now()
	in = in.Normalize()

	ctx, span := tracer.Start(ctx, "analysis.analyze",
		trace.WithAttributes(
			attribute.String("analysis.kind", string(in.Kind)),
			attribute.Int("ledger.size", l.Len()),
		),
	)
	defer span.End()

	if err := Check(l, in); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.ResultRecord{}, err
	}

	for _, step := range Steps(in.Kind) {
		if err := a.pause(ctx); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return domain.ResultRecord{}, err
		}
		if progress != nil {
			progress(step)
		}
	}

	v, err := a.heuristic.Evaluate(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.Warn("analysis failed",
			"kind", in.Kind,
			"error", err,
		)
		return domain.ResultRecord{}, err
	}

	record, err := BuildRecord(l, in, v, a.now())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.ResultRecord{}, err
	}

	span.SetAttributes(
		attribute.String("record.id", record.ID),
		attribute.Bool("record.fraud", v.IsFraud),
		attribute.Float64("record.probability", v.Probability),
	)

	a.logger.Info("analysis complete",
		"record_id", record.ID,
		"kind", in.Kind,
		"fraud_status", record.FraudStatus,
		"probability", v.Probability,
		"scorer", v.Scorer,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return record, nil
}

func (a *Analyzer) pause(ctx context.Context) error {
	if a.stepDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(a.stepDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Check reports whether in can be analysed against l: the input must be
// valid and a supplied transaction ID must not already be recorded.
func Check(l ledger.Ledger, in domain.InputRecord) error {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}
	_, err := l.NextID(in.Kind, in.TransactionID)
	return err
}

// BuildRecord assembles the ledger record for a verdict. It fails when a
// supplied transaction ID is already in l.
func BuildRecord(l ledger.Ledger, in domain.InputRecord, v domain.Verdict, now time.Time) (domain.ResultRecord, error) {
	id, err := l.NextID(in.Kind, in.TransactionID)
	if err != nil {
		return domain.ResultRecord{}, err
	}
	exp := explain.Verdict(v, in)

	record := domain.ResultRecord{
		ID:                  id,
		Kind:                in.Kind,
		Location:            domain.LocationDisplay(in.Location),
		UserID:              in.UserID,
		SessionID:           in.SessionID,
		Timestamp:           in.Timestamp(now),
		FraudStatus:         domain.StatusFor(v.IsFraud),
		Probability:         v.Probability,
		Explanation:         exp.Explanation,
		DetailedExplanation: exp.DetailedExplanation,
		Summary:             exp.Summary,
		RiskLevel:           exp.RiskLevel,
		Classification:      exp.Classification,
		CreatedAt:           now.UTC(),
	}

	if in.Kind == domain.KindBehavior {
		record.MerchantCategory = "Behavioral Analysis"
	} else {
		record.MerchantCategory = in.MerchantCategory
		if record.MerchantCategory == "" {
			record.MerchantCategory = "General"
		}
		record.Amount, _ = in.AmountValue()
	}

	return record, nil
}

var _ Evaluator = (*verdict.Heuristic)(nil)
