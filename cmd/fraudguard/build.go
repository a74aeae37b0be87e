package main

import (
	"fmt"
	"log/slog"

	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/predict"
	"github.com/opensource-finance/fraudguard/internal/rules"
	"github.com/opensource-finance/fraudguard/internal/verdict"
)

// buildHeuristic wires the prediction client, behaviour scorer and rule
// engine. Rules from cfg.Analysis.RulesFile are overlaid once when
// overlay is true; serve hands that job to the watcher instead.
func buildHeuristic(cfg *domain.Config, overlay bool, logger *slog.Logger) (*verdict.Heuristic, *predict.Client, error) {
	client := predict.NewClient(cfg.Predict, logger)

	scorer, err := verdict.NewScorer(cfg.Behavior, client)
	if err != nil {
		return nil, nil, err
	}

	heuristic, err := verdict.NewDefaultHeuristic(cfg.Analysis.MaxWorkers, scorer, cfg.Analysis.AlertThreshold, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize rule engine: %w", err)
	}

	if overlay && cfg.Analysis.RulesFile != "" {
		fileRules, err := rules.LoadFile(cfg.Analysis.RulesFile)
		if err != nil {
			return nil, nil, err
		}
		if err := heuristic.Engine().ReloadRules(rules.Merge(rules.BuiltinRules(), fileRules)); err != nil {
			return nil, nil, fmt.Errorf("failed to load %s: %w", cfg.Analysis.RulesFile, err)
		}
	}

	logger.Debug("heuristic initialized",
		"rules", heuristic.Engine().RulesCount(),
		"behavior_scorer", scorer.Name(),
		"threshold", heuristic.Threshold(),
	)
	return heuristic, client, nil
}
