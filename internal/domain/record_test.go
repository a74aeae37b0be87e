package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    ModelKind
		wantErr bool
	}{
		{"transaction", KindTransaction, false},
		{" Behavior ", KindBehavior, false},
		{"TRANSACTION", KindTransaction, false},
		{"account", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ParseKind(%q): expected ErrInvalidInput, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseKind(%q) = %q, %v; expected %q", tt.in, got, err, tt.want)
		}
	}
}

func TestNormalizeClearsInactiveKind(t *testing.T) {
	in := InputRecord{
		Kind:          KindBehavior,
		TransactionID: "T1",
		Amount:        "500",
		UserID:        "  U-9 ",
		SessionID:     "S-1",
		Location:      " delhi ",
		Time:          "09:15 ",
	}

	got := in.Normalize()
	if got.TransactionID != "" || got.Amount != "" {
		t.Errorf("expected transaction fields cleared, got %+v", got)
	}
	if got.UserID != "U-9" || got.Location != "delhi" || got.Time != "09:15" {
		t.Errorf("expected trimmed behaviour fields, got %+v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		in   InputRecord
		want error
	}{
		{"valid transaction", InputRecord{Kind: KindTransaction, Amount: "6000", Time: "23:30", Date: "2024-03-01"}, nil},
		{"zero amount", InputRecord{Kind: KindTransaction, Amount: "0"}, nil},
		{"missing amount", InputRecord{Kind: KindTransaction}, ErrInvalidAmount},
		{"text amount", InputRecord{Kind: KindTransaction, Amount: "lots"}, ErrInvalidAmount},
		{"negative amount", InputRecord{Kind: KindTransaction, Amount: "-1"}, ErrInvalidAmount},
		{"NaN amount", InputRecord{Kind: KindTransaction, Amount: "NaN"}, ErrInvalidAmount},
		{"bad time", InputRecord{Kind: KindTransaction, Amount: "1", Time: "25:00"}, ErrInvalidTime},
		{"bad date", InputRecord{Kind: KindTransaction, Amount: "1", Date: "01/03/2024"}, ErrInvalidDate},
		{"behaviour needs no amount", InputRecord{Kind: KindBehavior}, nil},
		{"unknown kind", InputRecord{Kind: "x"}, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected %v to match ErrInvalidInput", err)
			}
		})
	}
}

func TestHourAndMinute(t *testing.T) {
	in := InputRecord{Time: "23:45"}
	if in.Hour() != 23 || in.Minute() != 45 {
		t.Errorf("expected 23:45, got %d:%d", in.Hour(), in.Minute())
	}

	empty := InputRecord{}
	if empty.Hour() != DefaultHour {
		t.Errorf("expected default hour %d, got %d", DefaultHour, empty.Hour())
	}
	if empty.Minute() != 0 {
		t.Errorf("expected minute 0, got %d", empty.Minute())
	}
}

func TestTimestamp(t *testing.T) {
	now := time.Date(2024, 6, 15, 22, 10, 0, 0, time.FixedZone("IST", 5*3600+1800))

	if got := (InputRecord{Date: "2024-03-01", Time: "23:30"}).Timestamp(now); got != "2024-03-01 23:30" {
		t.Errorf("expected '2024-03-01 23:30', got %q", got)
	}
	// 22:10 IST is 16:40 UTC on the same day.
	if got := (InputRecord{}).Timestamp(now); got != "2024-06-15 00:00" {
		t.Errorf("expected '2024-06-15 00:00', got %q", got)
	}
}

func TestClassificationFor(t *testing.T) {
	tests := []struct {
		kind  ModelKind
		fraud bool
		want  string
	}{
		{KindTransaction, true, ClassFraudulentTransaction},
		{KindTransaction, false, ClassLegitimateTransaction},
		{KindBehavior, true, ClassSuspiciousSession},
		{KindBehavior, false, ClassNormalSession},
	}
	for _, tt := range tests {
		if got := ClassificationFor(tt.kind, tt.fraud); got != tt.want {
			t.Errorf("ClassificationFor(%s, %v) = %q; expected %q", tt.kind, tt.fraud, got, tt.want)
		}
	}

	if RiskLevelFor(true) != RiskHigh || RiskLevelFor(false) != RiskLow {
		t.Error("unexpected risk levels")
	}
}

func TestStatusSlug(t *testing.T) {
	if StatusFor(true).Slug() != FilterFraud {
		t.Errorf("expected %q, got %q", FilterFraud, StatusFor(true).Slug())
	}
	if StatusFor(false).Slug() != FilterNotFraud {
		t.Errorf("expected %q, got %q", FilterNotFraud, StatusFor(false).Slug())
	}
}
