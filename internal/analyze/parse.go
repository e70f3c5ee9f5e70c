package analyze

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"expensify/internal/core"
)

var categorySynonyms = []struct {
	canonical string
	synonyms  []string
}{
	{"Travels", []string{"travel", "travels", "trip", "transport", "transportation", "flight", "train", "taxi", "uber", "lyft", "car"}},
	{"Meals", []string{"meal", "meals", "food", "lunch", "dinner", "breakfast", "restaurant", "cafe", "coffee"}},
	{"Supplies", []string{"supply", "supplies", "office supplies", "stationery", "hardware", "equipment"}},
}

var allowedCategories = []string{"Travels", "Meals", "Supplies", "Others"}

// parseExtraction turns the raw model response into a normalized
// Extraction. Models occasionally wrap JSON in markdown fences or
// surrounding prose, so the object is located by its braces first.
func parseExtraction(text string) (Extraction, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return Extraction{}, fmt.Errorf("no JSON object in model response")
	}

	var raw struct {
		Name      string `json:"name"`
		Amount    any    `json:"amount"`
		Currency  string `json:"currency"`
		Date      string `json:"date"`
		Attendees string `json:"attendees"`
		Occasion  string `json:"occasion"`
		Payment   string `json:"payment_method"`
		Category  string `json:"category"`
		VATRate   any    `json:"vat_rate"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return Extraction{}, fmt.Errorf("unmarshal model response: %w", err)
	}

	out := Extraction{
		Name:      strings.TrimSpace(raw.Name),
		Amount:    asFloat(raw.Amount),
		Currency:  core.NormalizeCurrency(raw.Currency, ""),
		Attendees: strings.TrimSpace(raw.Attendees),
		Occasion:  strings.TrimSpace(raw.Occasion),
		Payment:   strings.TrimSpace(raw.Payment),
		Category:  normalizeCategory(raw.Category),
	}

	// A proposed date the form cannot submit is worse than no date.
	if d := strings.TrimSpace(raw.Date); d != "" {
		if _, err := core.ParseDate(d); err == nil {
			out.Date = d
		}
	}

	if rate, ok := core.NormalizeVATRate(asFloat(raw.VATRate)); ok {
		out.VATRate = rate
	} else {
		out.VATRate = 8.1
	}

	return out, nil
}

// normalizeCategory resolves a free-form category label onto the allowed
// set, mapping common synonyms and defaulting to Others.
func normalizeCategory(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return ""
	}
	for _, group := range categorySynonyms {
		for _, syn := range group.synonyms {
			if value == syn || strings.Contains(value, syn) {
				return group.canonical
			}
		}
	}
	for _, allowed := range allowedCategories {
		if value == strings.ToLower(allowed) {
			return allowed
		}
	}
	return "Others"
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
