// Package verdict turns an input record into a fraud verdict.
// Transaction records are scored by the CEL rule model; behaviour records
// are delegated to a pluggable Scorer.
package verdict

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/rules"
)

// Heuristic produces verdicts.
type Heuristic struct {
	engine    *rules.Engine
	model     *rules.Model
	behavior  Scorer
	threshold float64
	logger    *slog.Logger
}

// NewHeuristic creates a heuristic over a rule engine that already holds the
// transaction model's rules. A nil behaviour scorer means "model unavailable".
// A threshold outside (0, 1] falls back to domain.DefaultAlertThreshold;
// config validation rejects such values before they get here.
func NewHeuristic(engine *rules.Engine, behavior Scorer, threshold float64, logger *slog.Logger) *Heuristic {
	if threshold <= 0 || threshold > 1 {
		threshold = domain.DefaultAlertThreshold
	}
	if behavior == nil {
		behavior = NoneScorer{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	model := rules.TransactionModel()
	model.Threshold = threshold

	return &Heuristic{
		engine:    engine,
		model:     model,
		behavior:  behavior,
		threshold: threshold,
		logger:    logger,
	}
}

// NewDefaultHeuristic builds an engine with the built-in rules.
func NewDefaultHeuristic(maxWorkers int, behavior Scorer, threshold float64, logger *slog.Logger) (*Heuristic, error) {
	engine, err := rules.NewEngine(maxWorkers)
	if err != nil {
		return nil, err
	}
	if err := engine.LoadRules(rules.BuiltinRules()); err != nil {
		return nil, err
	}
	return NewHeuristic(engine, behavior, threshold, logger), nil
}

// Engine returns the underlying rule engine.
func (h *Heuristic) Engine() *rules.Engine {
	return h.engine
}

// Threshold returns the probability a verdict must exceed to be fraud.
func (h *Heuristic) Threshold() float64 {
	return h.threshold
}

// Evaluate scores one input record.
func (h *Heuristic) Evaluate(ctx context.Context, in domain.InputRecord) (domain.Verdict, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return domain.Verdict{}, err
	}

	switch in.Kind {
	case domain.KindTransaction:
		return h.evaluateTransaction(ctx, in)
	case domain.KindBehavior:
		return h.evaluateBehavior(ctx, in)
	default:
		return domain.Verdict{}, fmt.Errorf("%w: unknown model kind %q", domain.ErrInvalidInput, in.Kind)
	}
}

func (h *Heuristic) evaluateTransaction(ctx context.Context, in domain.InputRecord) (domain.Verdict, error) {
	input, err := rules.InputFrom(in)
	if err != nil {
		return domain.Verdict{}, err
	}

	// The loaded rule set may change under a rules-file reload.
	model := *h.model
	model.RuleIDs = h.engine.RuleIDsFor(domain.KindTransaction)
	if len(model.RuleIDs) == 0 {
		return domain.Verdict{}, fmt.Errorf("%w: no transaction rules loaded", domain.ErrModelUnavailable)
	}

	scored, err := model.Evaluate(ctx, h.engine, input)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("evaluate transaction rules: %w", err)
	}

	h.logger.Debug("transaction scored",
		"probability", scored.Probability,
		"fraud", scored.Triggered,
	)

	return domain.Verdict{
		Kind:        domain.KindTransaction,
		IsFraud:     scored.Triggered,
		Probability: scored.Probability,
		Scorer:      "rules",
		RuleScores:  scored.Scores,
	}, nil
}

func (h *Heuristic) evaluateBehavior(ctx context.Context, in domain.InputRecord) (domain.Verdict, error) {
	p, err := h.behavior.Score(ctx, in)
	if err != nil {
		return domain.Verdict{}, err
	}

	return domain.Verdict{
		Kind:        domain.KindBehavior,
		IsFraud:     p > h.threshold,
		Probability: rules.Round4(p),
		Scorer:      h.behavior.Name(),
	}, nil
}
