package core

import "strings"

// Canonical currency labels as they appear in the store.
const (
	CurrencyUSD  = "USD"
	CurrencyCHF  = "CHF"
	CurrencyEuro = "Euro"
	CurrencyCAD  = "CAD"

	// CurrencyUnknown is the sentinel bucket for legacy records that
	// predate write-time normalization.
	CurrencyUnknown = "Unknown"
)

// currencyAliases maps upper-cased symbols and codes onto canonical labels.
var currencyAliases = map[string]string{
	"USD":  CurrencyUSD,
	"US$":  CurrencyUSD,
	"$":    CurrencyUSD,
	"$US":  CurrencyUSD,
	"$USD": CurrencyUSD,
	"CHF":  CurrencyCHF,
	"SFR":  CurrencyCHF,
	"FR.":  CurrencyCHF,
	"FR":   CurrencyCHF,
	"CHF.": CurrencyCHF,
	"EUR":  CurrencyEuro,
	"EURO": CurrencyEuro,
	"€":    CurrencyEuro,
	"CAD":  CurrencyCAD,
	"C$":   CurrencyCAD,
	"CA$":  CurrencyCAD,
}

// NormalizeCurrency resolves a free-form currency value to a canonical label.
// Empty input falls back to def; recognized symbols and codes map
// case-insensitively onto the canonical set; anything else passes through
// trimmed so the store never rejects an honest but unusual label. The result
// is never empty as long as def is not.
func NormalizeCurrency(raw, def string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return def
	}
	if canonical, ok := currencyAliases[strings.ToUpper(value)]; ok {
		return canonical
	}
	return value
}
