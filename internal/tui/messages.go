package tui

import (
	"github.com/opensource-finance/fraudguard/internal/analysis"
	"github.com/opensource-finance/fraudguard/internal/domain"
)

// progressMsg reports one analysis step.
type progressMsg struct {
	step analysis.Step
}

// finishedMsg ends an analysis with a record or an error.
type finishedMsg struct {
	record domain.ResultRecord
	err    error
}

// exportedMsg reports the outcome of a CSV export.
type exportedMsg struct {
	path  string
	count int
	err   error
}
