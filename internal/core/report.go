package core

import (
	"sort"
	"strings"
)

type (
	// BucketTotal is a cent-accurate sum plus the number of records it
	// covers.
	BucketTotal struct {
		Sum   Money
		Count int
	}

	// PendingTotal tracks records that exist in the month but sit in a
	// not-yet-settled status, regardless of the eligible set.
	PendingTotal struct {
		Count int
		Gross Money
	}

	// CurrencyBucket groups everything the report knows about one
	// currency label: the headline sum and count plus the breakdowns the
	// rendered report shows.
	CurrencyBucket struct {
		Sum   Money
		Count int

		Net Money
		VAT Money

		ByCategory      map[string]Money
		ByPayment       map[string]Money
		CompanyCard     Money
		Reimbursements  map[string]Money
		PendingProgress PendingTotal
		PendingReview   PendingTotal
	}

	// ReportRow is one eligible record flattened for the detail table.
	ReportRow struct {
		RecordID string
		Date     Date
		Payer    string
		Category string
		Payment  string
		Gross    Money
		Net      Money
		VAT      Money
		Currency string
		Status   Status
	}

	// Report is the monthly aggregation result. It is a pure function of
	// (records, month, statuses) and carries the applied inputs back so a
	// caller can always answer "why is this report empty".
	Report struct {
		Month            Month
		StatusesIncluded []string
		ByCurrency       map[string]*CurrencyBucket
		Total            BucketTotal
		Rows             []ReportRow
		FXPolicy         string
	}
)

// Aggregate builds the monthly report from a full snapshot of the record
// set. Selection happens client-side: a record survives iff its date falls
// in the target month (falling back to the date it was added when the
// expense date is unset) and its normalized status is one of the eligible
// statuses. Survivors are grouped by currency — a missing currency goes to
// the "Unknown" bucket rather than being dropped, so Total.Count always
// equals the number of filtered records. All sums are integer cents.
//
// Records in the month with a pending status are tallied into the pending
// section of their bucket even when excluded from the eligible set.
//
// The output contains no insertion-order dependency: buckets are keyed by
// label and rows are sorted, so shuffling the input never changes the
// result.
func Aggregate(records []Record, month Month, statuses []Status) Report {
	eligible := make(map[Status]struct{}, len(statuses))
	included := make([]string, 0, len(statuses))
	for _, s := range statuses {
		if _, dup := eligible[s]; dup {
			continue
		}
		eligible[s] = struct{}{}
		included = append(included, string(s))
	}
	sort.Strings(included)

	report := Report{
		Month:            month,
		StatusesIncluded: included,
		ByCurrency:       make(map[string]*CurrencyBucket),
	}

	for _, r := range records {
		occurred := r.Date
		if occurred.IsZero() {
			occurred = r.DateAdded
		}
		if !month.Contains(occurred) {
			continue
		}

		label := strings.TrimSpace(r.Currency)
		if label == "" {
			label = CurrencyUnknown
		}
		bucket := report.ByCurrency[label]
		if bucket == nil {
			bucket = &CurrencyBucket{
				ByCategory:     make(map[string]Money),
				ByPayment:      make(map[string]Money),
				Reimbursements: make(map[string]Money),
			}
			report.ByCurrency[label] = bucket
		}

		status := NormalizeStatus(string(r.Status))
		switch status {
		case StatusInProgress:
			bucket.PendingProgress.Count++
			bucket.PendingProgress.Gross = bucket.PendingProgress.Gross.Add(r.Amount)
		case StatusUnderReview:
			bucket.PendingReview.Count++
			bucket.PendingReview.Gross = bucket.PendingReview.Gross.Add(r.Amount)
		}

		if _, ok := eligible[status]; !ok {
			continue
		}

		vat := vatAmount(r.Amount, r.VATRate)
		net := Money{Cents: r.Amount.Cents - vat.Cents}

		bucket.Sum = bucket.Sum.Add(r.Amount)
		bucket.Count++
		bucket.Net = bucket.Net.Add(net)
		bucket.VAT = bucket.VAT.Add(vat)

		category := strings.TrimSpace(r.Category)
		if category == "" {
			category = "Others"
		}
		payment := NormalizePaymentMethod(r.Payment)
		bucket.ByCategory[category] = bucket.ByCategory[category].Add(r.Amount)
		bucket.ByPayment[payment] = bucket.ByPayment[payment].Add(r.Amount)

		switch {
		case strings.HasPrefix(strings.ToLower(payment), "company"):
			bucket.CompanyCard = bucket.CompanyCard.Add(r.Amount)
		case payment == "Personal" || payment == "Cash":
			payer := strings.TrimSpace(r.ReimburseTo)
			if payer == "" || payer == "None" {
				payer = CurrencyUnknown
			}
			bucket.Reimbursements[payer] = bucket.Reimbursements[payer].Add(r.Amount)
		}

		report.Rows = append(report.Rows, ReportRow{
			RecordID: r.ID,
			Date:     occurred,
			Payer:    strings.TrimSpace(r.ReimburseTo),
			Category: category,
			Payment:  payment,
			Gross:    r.Amount,
			Net:      net,
			VAT:      vat,
			Currency: label,
			Status:   status,
		})

		report.Total.Sum = report.Total.Sum.Add(r.Amount)
		report.Total.Count++
	}

	sort.Slice(report.Rows, func(i, j int) bool {
		a, b := report.Rows[i], report.Rows[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Before(b.Date.Time)
		}
		return a.RecordID < b.RecordID
	})

	return report
}

// CurrencyLabels returns the bucket labels in stable sorted order.
func (r Report) CurrencyLabels() []string {
	labels := make([]string, 0, len(r.ByCurrency))
	for l := range r.ByCurrency {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// vatAmount extracts the VAT share of a gross amount for a percent rate.
// A zero or unrecognized rate yields zero VAT.
func vatAmount(gross Money, rate float64) Money {
	if rate > 0 && rate < 1 {
		rate *= 100
	}
	if rate <= 0 {
		return Money{}
	}
	return MoneyFromFloat(gross.Float() * rate / 100.0)
}
