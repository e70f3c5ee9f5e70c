package airtable

import (
	"testing"

	"expensify/internal/core"
)

func TestFromFields(t *testing.T) {
	fields := map[string]any{
		"Name":         "Starbucks Team Lunch",
		"Amount":       42.5,
		"Currency":     "Euro",
		"Date":         "2024-03-05",
		"Date added":   "2024-03-06",
		"Status":       "in_progress",
		"Payment":      "company card",
		"Category":     "Meals",
		"Reimburse to": "Alice",
		"Hash":         "abc123",
		"VAT Rate":     8.1,
		"Receipt":      []any{map[string]any{"url": "https://files.example/r.jpg"}},
	}
	r := fromFields("recXYZ", fields)
	if r.ID != "recXYZ" {
		t.Fatalf("id: %s", r.ID)
	}
	if r.Amount.Cents != 4250 {
		t.Fatalf("amount: %d", r.Amount.Cents)
	}
	if r.Status != core.StatusInProgress {
		t.Fatalf("status: %s", r.Status)
	}
	if r.Date.String() != "2024-03-05" || r.DateAdded.String() != "2024-03-06" {
		t.Fatalf("dates: %s / %s", r.Date, r.DateAdded)
	}
	if r.ReceiptURL != "https://files.example/r.jpg" {
		t.Fatalf("receipt url: %s", r.ReceiptURL)
	}
	if r.VATRate != 8.1 {
		t.Fatalf("vat: %v", r.VATRate)
	}
}

func TestFromFieldsLegacyApproved(t *testing.T) {
	r := fromFields("rec1", map[string]any{"Approved": true})
	if r.Status != core.StatusDone {
		t.Fatalf("approved=true should map to Done, got %s", r.Status)
	}
	r = fromFields("rec2", map[string]any{"Approved": false})
	if r.Status != core.StatusUnderReview {
		t.Fatalf("approved=false should map to Under Review, got %s", r.Status)
	}
	r = fromFields("rec3", map[string]any{})
	if r.Status != core.StatusUnderReview {
		t.Fatalf("missing status should default to Under Review, got %s", r.Status)
	}
}

func TestFirstAttachmentURL(t *testing.T) {
	if got := firstAttachmentURL(nil); got != "" {
		t.Fatalf("nil: %q", got)
	}
	if got := firstAttachmentURL([]any{}); got != "" {
		t.Fatalf("empty: %q", got)
	}
	if got := firstAttachmentURL("not a list"); got != "" {
		t.Fatalf("wrong type: %q", got)
	}
	got := firstAttachmentURL([]any{map[string]any{"url": "https://x/y.png"}})
	if got != "https://x/y.png" {
		t.Fatalf("url: %q", got)
	}
}
