// Package analyze extracts expense fields from a receipt image so the
// submission form can be prefilled. Extraction goes through a vision
// model; the raw model output is normalized onto the same canonical
// currency, category and VAT sets the rest of the application uses.
package analyze

import "context"

// Extraction is the set of prefill fields read off a receipt. String
// fields are empty and numbers zero when the receipt does not show them,
// except VATRate which always carries an allowed Swiss rate.
type Extraction struct {
	Name      string  `json:"name"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Date      string  `json:"date"`
	Attendees string  `json:"attendees"`
	Occasion  string  `json:"occasion"`
	Payment   string  `json:"payment_method"`
	Category  string  `json:"category"`
	VATRate   float64 `json:"vat_rate"`
}

// Analyzer reads a receipt image and extracts prefill fields.
type Analyzer interface {
	AnalyzeReceipt(ctx context.Context, image []byte, mimeType string) (Extraction, error)
	Close() error
}
