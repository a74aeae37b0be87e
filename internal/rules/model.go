package rules

import (
	"context"
	"fmt"
	"math"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// Model groups the rules that score one model kind.
// Rule scores are summed, not weighted: the probability is the sum of all
// contributions and a record is fraud when it is strictly above Threshold.
type Model struct {
	Kind      domain.ModelKind
	RuleIDs   []string
	Threshold float64
}

// ModelResult is the outcome of scoring one input against a model.
type ModelResult struct {
	Probability float64
	Triggered   bool
	Scores      []domain.RuleScore
}

// Score sums the given rule results for the model's rules.
// Results for rules outside the model are ignored. The threshold is tested
// against the exact sum; only the reported Probability is rounded.
func (m *Model) Score(results []RuleResult) ModelResult {
	scores := make(map[string]float64, len(results))
	for _, r := range results {
		scores[r.RuleID] = r.Score
	}

	out := ModelResult{Scores: make([]domain.RuleScore, 0, len(m.RuleIDs))}
	var total float64
	for _, id := range m.RuleIDs {
		score, ok := scores[id]
		if !ok {
			continue
		}
		total += score
		out.Scores = append(out.Scores, domain.RuleScore{RuleID: id, Score: score})
	}

	out.Probability = Round4(total)
	out.Triggered = total > m.Threshold+sumTolerance
	return out
}

// sumTolerance absorbs float error in summed scores, so 0.1+0.2+0.3 is not
// above a 0.6 threshold.
const sumTolerance = 1e-9

// Evaluate runs the model's rules on the engine and scores them.
// A rule that fails to evaluate fails the whole model.
func (m *Model) Evaluate(ctx context.Context, engine *Engine, input *EvaluateInput) (ModelResult, error) {
	results, err := engine.EvaluateAll(ctx, input, m.RuleIDs...)
	if err != nil {
		return ModelResult{}, err
	}
	for _, r := range results {
		if r.Err != "" {
			return ModelResult{}, fmt.Errorf("rule %s: %s", r.RuleID, r.Err)
		}
	}
	return m.Score(results), nil
}

// Round4 rounds a probability to four decimal places.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
