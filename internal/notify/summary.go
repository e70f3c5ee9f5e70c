package notify

import (
	"fmt"
	"sort"
	"strings"

	"expensify/internal/core"
)

// SummarySubject builds the subject line for a monthly summary email.
func SummarySubject(report core.Report) string {
	return fmt.Sprintf("Expense summary %s", report.Month)
}

// SummaryBody renders a plain-text monthly summary from an aggregated
// report, one section per currency.
func SummaryBody(report core.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Expense summary for %s\n", report.Month)
	fmt.Fprintf(&b, "Statuses included: %s\n", strings.Join(report.StatusesIncluded, ", "))
	fmt.Fprintf(&b, "Expenses counted: %d\n\n", report.Total.Count)

	if report.Total.Count == 0 {
		b.WriteString("No matching expenses were recorded this month.\n")
		return b.String()
	}

	for _, currency := range report.CurrencyLabels() {
		bucket := report.ByCurrency[currency]

		fmt.Fprintf(&b, "%s: %s gross (%d expenses)\n", currency, bucket.Sum, bucket.Count)
		fmt.Fprintf(&b, "  net %s, VAT %s\n", bucket.Net, bucket.VAT)

		for _, category := range sortedKeys(bucket.ByCategory) {
			fmt.Fprintf(&b, "  %s: %s\n", category, bucket.ByCategory[category])
		}

		if bucket.CompanyCard.Cents != 0 {
			fmt.Fprintf(&b, "  company card charged: %s\n", bucket.CompanyCard)
		}
		for _, employee := range sortedKeys(bucket.Reimbursements) {
			fmt.Fprintf(&b, "  reimburse %s: %s\n", employee, bucket.Reimbursements[employee])
		}
		if bucket.PendingProgress.Count > 0 {
			fmt.Fprintf(&b, "  pending in progress: %s (%d)\n", bucket.PendingProgress.Gross, bucket.PendingProgress.Count)
		}
		if bucket.PendingReview.Count > 0 {
			fmt.Fprintf(&b, "  pending review: %s (%d)\n", bucket.PendingReview.Gross, bucket.PendingReview.Count)
		}
		b.WriteString("\n")
	}

	if report.FXPolicy != "" {
		fmt.Fprintf(&b, "%s\n", report.FXPolicy)
	}

	return b.String()
}

func sortedKeys(m map[string]core.Money) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
