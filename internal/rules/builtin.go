package rules

import "github.com/opensource-finance/fraudguard/internal/domain"

// Built-in rule IDs.
const (
	RuleHighAmount  = "high-amount"
	RuleUnusualHour = "unusual-hour"
)

// BuiltinRules returns the transaction heuristic rules.
func BuiltinRules() []*RuleConfig {
	return []*RuleConfig{
		{
			ID:          RuleHighAmount,
			Name:        "High Amount",
			Description: "Base score: 0.7 above ₹5,000, 0.3 otherwise",
			Kind:        domain.KindTransaction,
			Expression:  "amount > 5000.0 ? 0.7 : 0.3",
			Enabled:     true,
		},
		{
			ID:          RuleUnusualHour,
			Name:        "Unusual Hour",
			Description: "Adds 0.2 before 06:00 or after 22:59",
			Kind:        domain.KindTransaction,
			Expression:  "hour < 6 || hour > 22 ? 0.2 : 0.0",
			Enabled:     true,
		},
	}
}

// TransactionModel groups the built-in transaction rules.
func TransactionModel() *Model {
	return &Model{
		Kind:      domain.KindTransaction,
		RuleIDs:   []string{RuleHighAmount, RuleUnusualHour},
		Threshold: domain.DefaultAlertThreshold,
	}
}
