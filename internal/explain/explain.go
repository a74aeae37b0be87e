// Package explain renders the prose that accompanies a verdict.
//
// Rendering is pure: the same kind, verdict and fields always produce
// byte-identical text. The derived flags only pick wording; they never
// influence the verdict itself.
package explain

import (
	"math"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/opensource-finance/fraudguard/internal/domain"
)

// HighAmountLimit is the amount above which the wording calls a transaction large.
const HighAmountLimit = 5000

var templates = template.Must(template.New("explain").Parse(templateText))

// Fields are the raw submission values substituted into the prose.
type Fields struct {
	Amount    float64
	Merchant  string
	Location  string
	Time      string // HH:MM or empty
	UserID    string
	SessionID string
}

// FieldsFrom captures the values of an input record at submission time.
// The location is substituted in its display form.
func FieldsFrom(in domain.InputRecord) Fields {
	f := Fields{
		Merchant:  in.MerchantCategory,
		Location:  domain.LocationDisplay(in.Location),
		Time:      in.Time,
		UserID:    in.UserID,
		SessionID: in.SessionID,
	}
	if in.Kind == domain.KindTransaction {
		if v, err := in.AmountValue(); err == nil {
			f.Amount = v
		}
	}
	return f
}

type templateData struct {
	Amount    string
	Merchant  string
	Location  string
	Time      string
	UserID    string
	SessionID string

	HighAmount       bool
	UnusualTime      bool
	HighRiskMerchant bool
}

// Explain renders the explanation for a verdict.
func Explain(kind domain.ModelKind, isFraud bool, f Fields) domain.Explanation {
	hour := domain.InputRecord{Time: f.Time}.Hour()

	data := templateData{
		Amount:           FormatAmount(f.Amount),
		Merchant:         f.Merchant,
		Location:         f.Location,
		Time:             f.Time,
		UserID:           f.UserID,
		SessionID:        f.SessionID,
		HighAmount:       f.Amount > HighAmountLimit,
		UnusualTime:      hour < 6 || hour > 22,
		HighRiskMerchant: domain.IsHighRiskMerchant(f.Merchant),
	}

	if kind != domain.KindBehavior {
		kind = domain.KindTransaction
	}
	prefix := string(kind) + ".legit."
	if isFraud {
		prefix = string(kind) + ".fraud."
	}

	return domain.Explanation{
		Explanation:         render(prefix+"explanation", data),
		DetailedExplanation: render(prefix+"detailed", data),
		Summary:             render(prefix+"summary", data),
		RiskLevel:           domain.RiskLevelFor(isFraud),
		Classification:      domain.ClassificationFor(kind, isFraud),
	}
}

// Verdict is shorthand for Explain over a verdict and its input.
func Verdict(v domain.Verdict, in domain.InputRecord) domain.Explanation {
	return Explain(v.Kind, v.IsFraud, FieldsFrom(in))
}

func render(name string, data templateData) string {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		// Templates are static and data is a plain struct.
		panic(err)
	}
	return b.String()
}

// FormatAmount groups digits the en-US way and keeps at most three
// fractional digits: 7000 → "7,000", 1234.5678 → "1,234.568".
func FormatAmount(v float64) string {
	return humanize.CommafWithDigits(math.Round(v*1000)/1000, 3)
}
