// Package airtable adapts the hosted Airtable base to the records port.
// One row per expense; the receipt image is referenced as an attachment URL,
// raw bytes never travel to the store.
package airtable

import (
	"context"
	"fmt"
	"strings"

	airtableapi "github.com/mehanizm/airtable"

	"expensify/internal/core"
	"expensify/internal/records"
)

// Column names of the Expenses table.
const (
	fieldName        = "Name"
	fieldAmount      = "Amount"
	fieldCurrency    = "Currency"
	fieldDate        = "Date"
	fieldDateAdded   = "Date added"
	fieldStatus      = "Status"
	fieldAttendees   = "Attendees"
	fieldOccasion    = "Occasion"
	fieldPayment     = "Payment"
	fieldCategory    = "Category"
	fieldReimburseTo = "Reimburse to"
	fieldReceipt     = "Receipt"
	fieldOrigAmount  = "Original Amount"
	fieldHash        = "Hash"
	fieldVATRate     = "VAT Rate"
	fieldUploadedBy  = "Uploaded By"
	fieldApproved    = "Approved" // legacy boolean column
)

type Config struct {
	APIKey    string
	BaseID    string
	TableName string
}

type Store struct {
	table *airtableapi.Table
}

var _ records.Store = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing Airtable API key")
	}
	if cfg.BaseID == "" {
		return nil, fmt.Errorf("missing Airtable base ID")
	}
	table := cfg.TableName
	if table == "" {
		table = "Expenses"
	}
	client := airtableapi.NewClient(cfg.APIKey)
	return &Store{table: client.GetTable(cfg.BaseID, table)}, nil
}

func (s *Store) Create(_ context.Context, r core.Record) (string, error) {
	fields := map[string]any{
		fieldName:        r.Name,
		fieldAmount:      r.Amount.Float(),
		fieldCurrency:    r.Currency,
		fieldDate:        r.Date.String(),
		fieldDateAdded:   r.DateAdded.String(),
		fieldStatus:      string(r.Status),
		fieldAttendees:   r.Attendees,
		fieldOccasion:    r.Occasion,
		fieldPayment:     r.Payment,
		fieldCategory:    r.Category,
		fieldReimburseTo: r.ReimburseTo,
		fieldHash:        r.ImageHash,
		fieldOrigAmount:  r.OriginalAmount.Float(),
	}
	if r.ReceiptURL != "" {
		fields[fieldReceipt] = []map[string]any{{"url": r.ReceiptURL}}
	}
	if r.VATRate > 0 {
		fields[fieldVATRate] = r.VATRate
	}
	if r.UploadedBy != "" {
		fields[fieldUploadedBy] = r.UploadedBy
	}

	toSend := &airtableapi.Records{
		Records: []*airtableapi.Record{{Fields: fields}},
	}
	created, err := s.table.AddRecords(toSend)
	if err != nil {
		return "", fmt.Errorf("airtable create: %w", err)
	}
	if len(created.Records) == 0 {
		return "", fmt.Errorf("airtable create: empty response")
	}
	return created.Records[0].ID, nil
}

// ListMonth narrows the fetch with a filter formula on the creation month.
// The caller still re-checks dates; the formula only trims page count.
func (s *Store) ListMonth(ctx context.Context, month core.Month) ([]core.Record, error) {
	formula := fmt.Sprintf("DATETIME_FORMAT({%s}, 'YYYY-MM') = '%s'", fieldDateAdded, month)
	return s.list(ctx, formula)
}

func (s *Store) ListAll(ctx context.Context) ([]core.Record, error) {
	return s.list(ctx, "")
}

func (s *Store) list(ctx context.Context, formula string) ([]core.Record, error) {
	var out []core.Record
	offset := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		query := s.table.GetRecords()
		if formula != "" {
			query = query.WithFilterFormula(formula)
		}
		if offset != "" {
			query = query.WithOffset(offset)
		}
		page, err := query.Do()
		if err != nil {
			return nil, fmt.Errorf("airtable list: %w", err)
		}
		for _, rec := range page.Records {
			out = append(out, fromFields(rec.ID, rec.Fields))
		}
		if page.Offset == "" {
			return out, nil
		}
		offset = page.Offset
	}
}

func (s *Store) UpdateStatus(_ context.Context, id string, status core.Status) error {
	rec, err := s.table.GetRecord(id)
	if err != nil {
		return fmt.Errorf("airtable get record %s: %w", id, err)
	}
	if _, err := rec.UpdateRecordPartial(map[string]any{fieldStatus: string(status)}); err != nil {
		return fmt.Errorf("airtable update status %s: %w", id, err)
	}
	return nil
}

func fromFields(id string, fields map[string]any) core.Record {
	r := core.Record{
		ID:             id,
		Name:           str(fields[fieldName]),
		Amount:         core.MoneyFromFloat(num(fields[fieldAmount])),
		OriginalAmount: core.MoneyFromFloat(num(fields[fieldOrigAmount])),
		Currency:       str(fields[fieldCurrency]),
		Attendees:      str(fields[fieldAttendees]),
		Occasion:       str(fields[fieldOccasion]),
		Payment:        str(fields[fieldPayment]),
		Category:       str(fields[fieldCategory]),
		ReimburseTo:    str(fields[fieldReimburseTo]),
		ImageHash:      str(fields[fieldHash]),
		VATRate:        num(fields[fieldVATRate]),
		UploadedBy:     str(fields[fieldUploadedBy]),
		ReceiptURL:     firstAttachmentURL(fields[fieldReceipt]),
	}
	if d, err := core.ParseDate(str(fields[fieldDate])); err == nil {
		r.Date = d
	}
	if d, err := core.ParseDate(str(fields[fieldDateAdded])); err == nil {
		r.DateAdded = d
	}
	// Legacy rows carry the Approved boolean instead of a Status value.
	statusRaw := str(fields[fieldStatus])
	if statusRaw == "" {
		if approved, ok := fields[fieldApproved].(bool); ok {
			statusRaw = fmt.Sprintf("%t", approved)
		}
	}
	r.Status = core.NormalizeStatus(statusRaw)
	return r
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// firstAttachmentURL digs the first URL out of an Airtable attachment list.
func firstAttachmentURL(v any) string {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	entry, ok := list[0].(map[string]any)
	if !ok {
		return ""
	}
	return str(entry["url"])
}
