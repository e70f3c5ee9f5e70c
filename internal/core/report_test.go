package core

import (
	"math/rand"
	"reflect"
	"testing"
)

func reportFixture() []Record {
	return []Record{
		{ID: "r1", Amount: Money{Cents: 1000}, Currency: "Euro", Status: StatusDone, Date: NewDate(2024, 3, 5)},
		{ID: "r2", Amount: Money{Cents: 500}, Currency: "Euro", Status: StatusDone, Date: NewDate(2024, 3, 20)},
		{ID: "r3", Amount: Money{Cents: 700}, Currency: "Dollar", Status: StatusUnderReview, Date: NewDate(2024, 3, 10)},
		{ID: "r4", Amount: Money{Cents: 300}, Currency: "Euro", Status: StatusDone, Date: NewDate(2024, 4, 1)},
	}
}

func TestAggregateFiltersByMonthAndStatus(t *testing.T) {
	report := Aggregate(reportFixture(), Month{2024, 3}, []Status{StatusDone, StatusUnderReview})

	euro := report.ByCurrency["Euro"]
	if euro == nil || euro.Sum.Cents != 1500 || euro.Count != 2 {
		t.Fatalf("Euro bucket: expected sum=1500 count=2, got %+v", euro)
	}
	dollar := report.ByCurrency["Dollar"]
	if dollar == nil || dollar.Sum.Cents != 700 || dollar.Count != 1 {
		t.Fatalf("Dollar bucket: expected sum=700 count=1, got %+v", dollar)
	}
	if report.Total.Sum.Cents != 2200 || report.Total.Count != 3 {
		t.Fatalf("total: expected sum=2200 count=3, got %+v", report.Total)
	}
	if len(report.ByCurrency) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(report.ByCurrency))
	}
}

func TestAggregateStatusRestriction(t *testing.T) {
	report := Aggregate(reportFixture(), Month{2024, 3}, []Status{StatusDone})

	if _, ok := report.ByCurrency["Dollar"]; ok {
		// The Under Review record still opens a bucket via the pending
		// section, but it must not contribute to the eligible sums.
		if report.ByCurrency["Dollar"].Count != 0 || report.ByCurrency["Dollar"].Sum.Cents != 0 {
			t.Fatalf("Dollar bucket leaked into eligible totals: %+v", report.ByCurrency["Dollar"])
		}
	}
	euro := report.ByCurrency["Euro"]
	if euro == nil || euro.Sum.Cents != 1500 || euro.Count != 2 {
		t.Fatalf("Euro bucket: expected sum=1500 count=2, got %+v", euro)
	}
	if report.Total.Sum.Cents != 1500 || report.Total.Count != 2 {
		t.Fatalf("total: expected sum=1500 count=2, got %+v", report.Total)
	}
}

func TestAggregateUnknownCurrencyBucket(t *testing.T) {
	records := []Record{
		{ID: "r1", Amount: Money{Cents: 100}, Status: StatusDone, Date: NewDate(2024, 3, 1)},
		{ID: "r2", Amount: Money{Cents: 200}, Currency: "  ", Status: StatusDone, Date: NewDate(2024, 3, 2)},
	}
	report := Aggregate(records, Month{2024, 3}, []Status{StatusDone})
	unk := report.ByCurrency[CurrencyUnknown]
	if unk == nil || unk.Sum.Cents != 300 || unk.Count != 2 {
		t.Fatalf("Unknown bucket: expected sum=300 count=2, got %+v", unk)
	}
	if report.Total.Count != 2 {
		t.Fatalf("records without currency must stay in the total count, got %d", report.Total.Count)
	}
}

func TestAggregateDateAddedFallback(t *testing.T) {
	records := []Record{
		{ID: "r1", Amount: Money{Cents: 100}, Currency: "CHF", Status: StatusDone, DateAdded: NewDate(2024, 3, 7)},
	}
	report := Aggregate(records, Month{2024, 3}, []Status{StatusDone})
	if report.Total.Count != 1 {
		t.Fatalf("record without expense date should fall back to date added")
	}
}

func TestAggregateEmptyInputs(t *testing.T) {
	report := Aggregate(nil, Month{2024, 3}, []Status{StatusDone})
	if report.Total.Count != 0 || report.Total.Sum.Cents != 0 {
		t.Fatalf("empty record set: expected empty report, got %+v", report.Total)
	}
	if len(report.ByCurrency) != 0 {
		t.Fatalf("expected no buckets, got %d", len(report.ByCurrency))
	}

	// An explicitly empty eligible set is not an error either.
	report = Aggregate(reportFixture(), Month{2024, 3}, nil)
	if report.Total.Count != 0 {
		t.Fatalf("empty status set: expected count=0, got %d", report.Total.Count)
	}
	if report.Month != (Month{2024, 3}) {
		t.Fatalf("report must echo the resolved month")
	}
}

func TestAggregateOrderIndependentAndIdempotent(t *testing.T) {
	records := reportFixture()
	base := Aggregate(records, Month{2024, 3}, []Status{StatusDone, StatusUnderReview})

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := append([]Record(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got := Aggregate(shuffled, Month{2024, 3}, []Status{StatusDone, StatusUnderReview})
		if !reflect.DeepEqual(base, got) {
			t.Fatalf("shuffle %d changed the report", i)
		}
	}

	again := Aggregate(records, Month{2024, 3}, []Status{StatusDone, StatusUnderReview})
	if !reflect.DeepEqual(base, again) {
		t.Fatalf("aggregation is not idempotent over unchanged input")
	}
}

func TestAggregatePendingSection(t *testing.T) {
	records := []Record{
		{ID: "r1", Amount: Money{Cents: 100}, Currency: "CHF", Status: StatusInProgress, Date: NewDate(2024, 3, 3)},
		{ID: "r2", Amount: Money{Cents: 250}, Currency: "CHF", Status: StatusUnderReview, Date: NewDate(2024, 3, 4)},
	}
	report := Aggregate(records, Month{2024, 3}, []Status{StatusDone})
	chf := report.ByCurrency["CHF"]
	if chf == nil {
		t.Fatalf("pending records should still open their bucket")
	}
	if chf.PendingProgress.Count != 1 || chf.PendingProgress.Gross.Cents != 100 {
		t.Fatalf("in-progress pending: got %+v", chf.PendingProgress)
	}
	if chf.PendingReview.Count != 1 || chf.PendingReview.Gross.Cents != 250 {
		t.Fatalf("under-review pending: got %+v", chf.PendingReview)
	}
	if report.Total.Count != 0 {
		t.Fatalf("pending records must not enter eligible totals")
	}
}

func TestAggregateBreakdowns(t *testing.T) {
	records := []Record{
		{ID: "r1", Amount: Money{Cents: 10000}, Currency: "CHF", Status: StatusDone, Date: NewDate(2024, 5, 1),
			Category: "Meals", Payment: "Company card", VATRate: 8.1},
		{ID: "r2", Amount: Money{Cents: 20000}, Currency: "CHF", Status: StatusDone, Date: NewDate(2024, 5, 2),
			Category: "Travels", Payment: "Personal", ReimburseTo: "Bob"},
		{ID: "r3", Amount: Money{Cents: 5000}, Currency: "CHF", Status: StatusDone, Date: NewDate(2024, 5, 3),
			Payment: "cash", ReimburseTo: "Bob"},
	}
	report := Aggregate(records, Month{2024, 5}, []Status{StatusDone})
	chf := report.ByCurrency["CHF"]
	if chf.ByCategory["Meals"].Cents != 10000 || chf.ByCategory["Travels"].Cents != 20000 {
		t.Fatalf("category breakdown wrong: %+v", chf.ByCategory)
	}
	if chf.ByCategory["Others"].Cents != 5000 {
		t.Fatalf("empty category should land in Others: %+v", chf.ByCategory)
	}
	if chf.CompanyCard.Cents != 10000 {
		t.Fatalf("company card charged: expected 10000, got %d", chf.CompanyCard.Cents)
	}
	if chf.Reimbursements["Bob"].Cents != 25000 {
		t.Fatalf("reimbursements owed to Bob: expected 25000, got %d", chf.Reimbursements["Bob"].Cents)
	}
	if chf.VAT.Cents != 810 {
		t.Fatalf("VAT share of 100.00 at 8.1%%: expected 810, got %d", chf.VAT.Cents)
	}
	if chf.Net.Cents != 10000-810+20000+5000 {
		t.Fatalf("net total wrong: %d", chf.Net.Cents)
	}
	labels := report.CurrencyLabels()
	if len(labels) != 1 || labels[0] != "CHF" {
		t.Fatalf("labels: %v", labels)
	}
}
