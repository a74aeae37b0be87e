package app

import (
	"github.com/opensource-finance/fraudguard/internal/domain"
)

// Event is anything Reduce understands.
type Event interface {
	event()
}

// ModelSelected switches the active model kind.
type ModelSelected struct {
	Kind domain.ModelKind
}

// FieldChanged sets one form field.
type FieldChanged struct {
	Field string
	Value string
}

// AnalysisStarted marks the start of an evaluation.
type AnalysisStarted struct{}

// AnalysisProgressed reports a progress step.
type AnalysisProgressed struct {
	Percent int
	Message string
}

// AnalysisCompleted carries the finished record.
type AnalysisCompleted struct {
	Record domain.ResultRecord
}

// AnalysisFailed ends an evaluation without a record.
type AnalysisFailed struct {
	Err error
}

// FiltersChanged replaces the ledger filters.
type FiltersChanged struct {
	Status   string
	Location string
}

// SessionReset clears everything, including the ledger.
type SessionReset struct{}

func (ModelSelected) event()      {}
func (FieldChanged) event()       {}
func (AnalysisStarted) event()    {}
func (AnalysisProgressed) event() {}
func (AnalysisCompleted) event()  {}
func (AnalysisFailed) event()     {}
func (FiltersChanged) event()     {}
func (SessionReset) event()       {}

// Reduce returns the state after ev. It never mutates s.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case ModelSelected:
		kind, err := domain.ParseKind(string(e.Kind))
		if err != nil {
			s.LastError = err.Error()
			return s
		}
		s.Kind = kind
		s.LastError = ""

	case FieldChanged:
		s.Form = setField(s.Form, e.Field, e.Value)

	case AnalysisStarted:
		if s.Analyzing {
			return s
		}
		s.Analyzing = true
		s.Progress = 0
		s.ProgressMessage = ""
		s.LastError = ""

	case AnalysisProgressed:
		if !s.Analyzing {
			return s
		}
		s.Progress = clampPercent(e.Percent)
		s.ProgressMessage = e.Message

	case AnalysisCompleted:
		s.Ledger = s.Ledger.Append(e.Record)
		s.Analyzing = false
		s.Progress = 0
		s.ProgressMessage = ""
		s.LastError = ""
		s.Form = clearForm(s.Form, e.Record.Kind)

	case AnalysisFailed:
		s.Analyzing = false
		s.Progress = 0
		s.ProgressMessage = ""
		if e.Err != nil {
			s.LastError = e.Err.Error()
		}

	case FiltersChanged:
		status, err := domain.ParseStatusFilter(e.Status)
		if err != nil {
			s.LastError = err.Error()
			return s
		}
		location, err := domain.ParseLocationFilter(e.Location)
		if err != nil {
			s.LastError = err.Error()
			return s
		}
		s.StatusFilter = status
		s.LocationFilter = location
		s.LastError = ""

	case SessionReset:
		return NewState()
	}
	return s
}

// ReduceAll folds a sequence of events.
func ReduceAll(s State, events ...Event) State {
	for _, ev := range events {
		s = Reduce(s, ev)
	}
	return s
}

func setField(f Form, field, value string) Form {
	switch field {
	case FieldTransactionID:
		f.TransactionID = value
	case FieldAmount:
		f.Amount = value
	case FieldMerchant:
		f.MerchantCategory = value
	case FieldLocation:
		f.Location = value
	case FieldUserID:
		f.UserID = value
	case FieldSessionID:
		f.SessionID = value
	case FieldDate:
		f.Date = value
	case FieldTime:
		f.Time = value
	}
	return f
}

// clearForm resets the submitted kind's fields plus the shared ones.
func clearForm(f Form, kind domain.ModelKind) Form {
	if kind == domain.KindBehavior {
		f.UserID = ""
		f.SessionID = ""
	} else {
		f.TransactionID = ""
		f.Amount = ""
		f.MerchantCategory = ""
	}
	f.Location = ""
	f.Date = ""
	f.Time = ""
	return f
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
