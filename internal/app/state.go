// Package app holds the dashboard state and the reducer that changes it.
// Front ends never mutate State directly; they dispatch events through Reduce.
package app

import (
	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/ledger"
)

// Form field names accepted by FieldChanged.
const (
	FieldTransactionID = "transactionId"
	FieldAmount        = "amount"
	FieldMerchant      = "merchantCategory"
	FieldLocation      = "location"
	FieldUserID        = "userId"
	FieldSessionID     = "sessionId"
	FieldDate          = "date"
	FieldTime          = "time"
)

// Form is the raw text of the input fields.
type Form struct {
	TransactionID    string `json:"transactionId"`
	Amount           string `json:"amount"`
	MerchantCategory string `json:"merchantCategory"`
	Location         string `json:"location"`
	UserID           string `json:"userId"`
	SessionID        string `json:"sessionId"`
	Date             string `json:"date"`
	Time             string `json:"time"`
}

// State is one dashboard session.
type State struct {
	Kind   domain.ModelKind `json:"kind"`
	Form   Form             `json:"form"`
	Ledger ledger.Ledger    `json:"ledger"`

	StatusFilter   string `json:"statusFilter"`
	LocationFilter string `json:"locationFilter"`

	Analyzing       bool   `json:"analyzing"`
	Progress        int    `json:"progress"`
	ProgressMessage string `json:"progressMessage,omitempty"`

	LastError string `json:"lastError,omitempty"`
}

// NewState returns the state of a fresh session.
func NewState() State {
	return State{
		Kind:           domain.KindTransaction,
		StatusFilter:   domain.FilterAll,
		LocationFilter: domain.FilterAll,
	}
}

// CanSubmit reports whether a new analysis may start.
func (s State) CanSubmit() bool {
	return !s.Analyzing
}

// Input builds the record for the active kind from the form.
func (s State) Input() domain.InputRecord {
	in := domain.InputRecord{
		Kind:             s.Kind,
		TransactionID:    s.Form.TransactionID,
		Amount:           s.Form.Amount,
		MerchantCategory: s.Form.MerchantCategory,
		Location:         s.Form.Location,
		UserID:           s.Form.UserID,
		SessionID:        s.Form.SessionID,
		Date:             s.Form.Date,
		Time:             s.Form.Time,
	}
	return in.Normalize()
}

// View is what a front end renders below the form.
type View struct {
	Kind           domain.ModelKind      `json:"kind"`
	StatusFilter   string                `json:"statusFilter"`
	LocationFilter string                `json:"locationFilter"`
	Records        []domain.ResultRecord `json:"records"`
	Summary        ledger.Summary        `json:"summary"`
}

// View applies the filters to the ledger. Summary covers every record.
func (s State) View() (View, error) {
	records, err := s.Ledger.Filter(s.StatusFilter, s.LocationFilter)
	if err != nil {
		return View{}, err
	}
	return View{
		Kind:           s.Kind,
		StatusFilter:   s.StatusFilter,
		LocationFilter: s.LocationFilter,
		Records:        records,
		Summary:        s.Ledger.Summary(),
	}, nil
}
