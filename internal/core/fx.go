package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FXRates holds fixed conversion rates to CHF keyed by upper-cased currency
// label. The company reports in CHF with an internal fixed policy rather
// than live market rates.
type FXRates map[string]float64

// DefaultFXRates mirrors the fallback policy used when no rates are
// configured.
func DefaultFXRates() FXRates {
	return FXRates{
		"CHF":  1.0,
		"EUR":  0.96,
		"EURO": 0.96,
		"USD":  0.90,
		"CAD":  0.66,
	}
}

// ParseFXRates reads a JSON object of label->rate. Empty or malformed input
// yields the default policy; parsing is permissive on purpose, a broken env
// var must not take the report down.
func ParseFXRates(jsonStr string) FXRates {
	if strings.TrimSpace(jsonStr) == "" {
		return DefaultFXRates()
	}
	var raw map[string]float64
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return DefaultFXRates()
	}
	out := make(FXRates, len(raw))
	for k, v := range raw {
		out[strings.ToUpper(k)] = v
	}
	if len(out) == 0 {
		return DefaultFXRates()
	}
	return out
}

// ToCHF converts an amount using the policy; unlisted currencies convert 1:1.
func (r FXRates) ToCHF(amount Money, currency string) Money {
	rate, ok := r[strings.ToUpper(strings.TrimSpace(currency))]
	if !ok {
		rate = 1.0
	}
	return MoneyFromFloat(amount.Float() * rate)
}

// PolicyDescription renders a human-readable line for report footers.
func (r FXRates) PolicyDescription() string {
	if len(r) == 0 {
		return "Standard 1:1 CHF conversion"
	}
	labels := make([]string, 0, len(r))
	for k := range r {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("1 %s = %.4f CHF", l, r[l]))
	}
	return "Internal fixed conversion policy: " + strings.Join(parts, ", ")
}
