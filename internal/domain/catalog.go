package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Option is a value/label pair offered by a front end picker.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// LocationOptions are the predefined cities.
var LocationOptions = []Option{
	{Value: "mumbai", Label: "Mumbai, Maharashtra"},
	{Value: "delhi", Label: "Delhi, NCR"},
	{Value: "bangalore", Label: "Bangalore, Karnataka"},
	{Value: "chennai", Label: "Chennai, Tamil Nadu"},
	{Value: "kolkata", Label: "Kolkata, West Bengal"},
	{Value: "pune", Label: "Pune, Maharashtra"},
	{Value: "hyderabad", Label: "Hyderabad, Telangana"},
	{Value: "ahmedabad", Label: "Ahmedabad, Gujarat"},
	{Value: "jaipur", Label: "Jaipur, Rajasthan"},
	{Value: "lucknow", Label: "Lucknow, Uttar Pradesh"},
}

// MerchantOptions are the predefined merchant categories.
var MerchantOptions = []Option{
	{Value: "Online Retail", Label: "Online Retail"},
	{Value: "Gas Station", Label: "Gas Station"},
	{Value: "Restaurant", Label: "Restaurant"},
	{Value: "ATM Withdrawal", Label: "ATM Withdrawal"},
	{Value: "Grocery Store", Label: "Grocery Store"},
	{Value: "Entertainment", Label: "Entertainment"},
	{Value: "Healthcare", Label: "Healthcare"},
	{Value: "Travel", Label: "Travel & Transportation"},
	{Value: "Education", Label: "Education"},
	{Value: "Utilities", Label: "Utilities"},
	{Value: "Insurance", Label: "Insurance"},
	{Value: "Banking", Label: "Banking Services"},
}

// HighRiskMerchants only change explanation wording, never the verdict.
var HighRiskMerchants = []string{"Online Retail", "ATM Withdrawal"}

// IsHighRiskMerchant reports whether the merchant category is high risk.
func IsHighRiskMerchant(merchant string) bool {
	for _, m := range HighRiskMerchants {
		if m == merchant {
			return true
		}
	}
	return false
}

// TimeOptions returns the 24 whole hours "00:00" … "23:00".
func TimeOptions() []Option {
	opts := make([]Option, 24)
	for h := range opts {
		v := fmt.Sprintf("%02d:00", h)
		opts[h] = Option{Value: v, Label: v}
	}
	return opts
}

// LocationDisplay maps a location value to its display label.
// Unknown values are returned with the first letter upper-cased.
func LocationDisplay(value string) string {
	for _, opt := range LocationOptions {
		if opt.Value == value {
			return opt.Label
		}
	}
	r, size := utf8.DecodeRuneInString(value)
	if r == utf8.RuneError {
		return value
	}
	return string(unicode.ToUpper(r)) + value[size:]
}

// Ledger filter values.
const (
	FilterAll      = "all"
	FilterFraud    = "fraud"
	FilterNotFraud = "not-fraud"
)

// StatusFilters lists the accepted status filter values.
var StatusFilters = []string{FilterAll, FilterFraud, FilterNotFraud}

// LocationFilters lists the accepted location filter values.
var LocationFilters = []string{FilterAll, "Mumbai", "Delhi", "Bangalore", "Chennai", "Kolkata"}

// ParseStatusFilter validates a status filter. Empty means all.
func ParseStatusFilter(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range StatusFilters {
		if f == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, s)
}

// ParseLocationFilter validates a location filter. Empty means all.
func ParseLocationFilter(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range LocationFilters {
		if strings.EqualFold(f, s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown location %q", ErrInvalidFilter, s)
}
