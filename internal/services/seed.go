package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"expensify/internal/core"
)

// Demo data pools for seeding.
var (
	seedCategories = []string{"Meals", "Travels", "Supplies", "Others"}
	seedPayments   = []string{"Company card", "Personal", "Cash", "Other"}
	seedPeople     = []string{"Bob", "Alice", "Ayesha", "Emily", "Abtin", "Niklas"}

	seedMerchants = map[string][]string{
		"Meals":    {"Starbucks", "Local Bakery", "Pizza Place", "Sushi Bar", "Cafeteria"},
		"Travels":  {"Uber", "SBB", "Swiss Air", "Hotel City", "Taxi Basel"},
		"Supplies": {"Staples", "Office Depot", "Migros", "Coop", "Hardware Store"},
		"Others":   {"Amazon", "Apple Store", "Fnac", "Kiosk", "General Store"},
	}

	seedOccasions = map[string][]string{
		"Meals":    {"Team lunch", "Coffee with client", "Dinner with partner"},
		"Travels":  {"Taxi to client", "Train to Zurich", "Flight to meeting", "Hotel night"},
		"Supplies": {"Office supplies", "Printer paper", "Notebook & pens", "Cables & adapters"},
		"Others":   {"Subscription", "Small equipment", "Misc expense"},
	}
)

// SeedSamples creates count demo expenses spread across the month. Used
// for demos and for exercising the report against a realistic data
// shape; receipts point at a placeholder URL and carry no image hash.
func (s *ExpenseService) SeedSamples(ctx context.Context, month core.Month, count int, statusPool []core.Status) ([]string, error) {
	if count < 1 {
		count = 10
	}
	if count > 50 {
		count = 50
	}
	if len(statusPool) == 0 {
		statusPool = []core.Status{core.StatusUnderReview}
	}

	var ids []string
	for i := 0; i < count; i++ {
		category := pick(seedCategories)
		merchant := pick(seedMerchants[category])
		occasion := pick(seedOccasions[category])
		currency := seedCurrency()
		original := seedAmount(category)

		record := core.Record{
			Name:           fmt.Sprintf("%s %s", merchant, occasion),
			Amount:         s.fx.ToCHF(original, currency),
			OriginalAmount: original,
			Currency:       currency,
			Date:           core.NewDate(month.Year, month.Month, 1+rand.Intn(month.Days())),
			DateAdded:      core.Today(),
			Status:         statusPool[rand.Intn(len(statusPool))],
			Attendees:      strings.Join(sample(seedPeople, 1+rand.Intn(4)), ", "),
			Occasion:       occasion,
			Payment:        pick(seedPayments),
			Category:       category,
			ReimburseTo:    pick(seedPeople),
			ReceiptURL:     "https://example.com/receipt",
			VATRate:        seedVATRate(category, merchant),
		}

		id, err := s.store.Create(ctx, record)
		if err != nil {
			return ids, fmt.Errorf("seed sample %d: %w", i+1, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedAmount(category string) core.Money {
	span := func(lo, hi float64) core.Money {
		return core.MoneyFromFloat(lo + rand.Float64()*(hi-lo))
	}
	switch category {
	case "Meals":
		return span(12, 85)
	case "Supplies":
		return span(9, 220)
	case "Travels":
		return span(15, 520)
	}
	return span(7, 160)
}

// seedVATRate mirrors the Swiss rate split: reduced rate for groceries,
// special rate for lodging, normal rate otherwise.
func seedVATRate(category, merchant string) float64 {
	lower := strings.ToLower(merchant)
	switch category {
	case "Travels":
		if strings.Contains(lower, "hotel") {
			return 3.8
		}
	case "Supplies":
		for _, keyword := range []string{"migros", "coop", "kiosk"} {
			if strings.Contains(lower, keyword) {
				return 2.6
			}
		}
	}
	return 8.1
}

// seedCurrency is mostly CHF with an occasional foreign currency, like
// real submissions.
func seedCurrency() string {
	if rand.Float64() < 0.95 {
		return "CHF"
	}
	switch roll := rand.Float64(); {
	case roll < 0.6:
		return "Euro"
	case roll < 0.9:
		return "USD"
	default:
		return "CAD"
	}
}

func pick(pool []string) string {
	return pool[rand.Intn(len(pool))]
}

func sample(pool []string, k int) []string {
	if k > len(pool) {
		k = len(pool)
	}
	idx := rand.Perm(len(pool))[:k]
	out := make([]string, k)
	for i, j := range idx {
		out[i] = pool[j]
	}
	return out
}
