// Package sheets adapts a Google Sheets spreadsheet to the records port.
// One row per record; the row number doubles as the store-assigned id
// ("row<N>"). Useful for teams that keep the expense sheet they already
// review in.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expensify/internal/core"
	"expensify/internal/records"
)

// Column layout of the expenses sheet. Row 1 is the header.
//
//	A Name | B Amount | C Currency | D Date | E Date added | F Status |
//	G Attendees | H Occasion | I Payment | J Category | K Reimburse to |
//	L Receipt URL | M Hash | N VAT Rate | O Uploaded By | P Original Amount
const (
	headerRows   = 1
	statusColumn = "F"
	lastColumn   = "P"
)

type Config struct {
	SpreadsheetID string
	SheetName     string
}

type Store struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ records.Store = (*Store)(nil)

// New builds a client authenticated with service-account credentials from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Expenses"
	}

	credentials, err := loadCredentials()
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Store{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetName: sheetName}, nil
}

func loadCredentials() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	credentials, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return credentials, nil
}

func (s *Store) Create(ctx context.Context, r core.Record) (string, error) {
	rng := fmt.Sprintf("%s!A:%s", s.sheetName, lastColumn)
	vr := &gsheet.ValueRange{Values: [][]any{toRow(r)}}
	resp, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", s.sheetName, err)
	}
	if resp.Updates == nil || resp.Updates.UpdatedRange == "" {
		return "", fmt.Errorf("append to sheet %s: no updated range in response", s.sheetName)
	}
	row, err := rowFromRange(resp.Updates.UpdatedRange)
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", s.sheetName, err)
	}
	return rowID(row), nil
}

func (s *Store) ListMonth(ctx context.Context, month core.Month) ([]core.Record, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Record
	for _, r := range all {
		added := r.DateAdded
		if added.IsZero() {
			added = r.Date
		}
		if month.Contains(added) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListAll(ctx context.Context) ([]core.Record, error) {
	rng := fmt.Sprintf("%s!A%d:%s", s.sheetName, headerRows+1, lastColumn)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	var out []core.Record
	for i, row := range resp.Values {
		cols := toStrings(row)
		if isBlankRow(cols) {
			continue
		}
		out = append(out, fromRow(rowID(headerRows+1+i), cols))
	}
	return out, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status core.Status) error {
	row, err := rowFromID(id)
	if err != nil {
		return err
	}
	rng := fmt.Sprintf("%s!%s%d", s.sheetName, statusColumn, row)
	vr := &gsheet.ValueRange{Values: [][]any{{string(status)}}}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func toRow(r core.Record) []any {
	return []any{
		r.Name,
		r.Amount.Float(),
		r.Currency,
		r.Date.String(),
		r.DateAdded.String(),
		string(r.Status),
		r.Attendees,
		r.Occasion,
		r.Payment,
		r.Category,
		r.ReimburseTo,
		r.ReceiptURL,
		r.ImageHash,
		vatCell(r.VATRate),
		r.UploadedBy,
		r.OriginalAmount.Float(),
	}
}

func vatCell(rate float64) any {
	if rate <= 0 {
		return ""
	}
	return rate
}

func fromRow(id string, cols []string) core.Record {
	get := func(i int) string {
		if i < 0 || i >= len(cols) {
			return ""
		}
		return cols[i]
	}
	r := core.Record{
		ID:          id,
		Name:        get(0),
		Currency:    get(2),
		Status:      core.NormalizeStatus(get(5)),
		Attendees:   get(6),
		Occasion:    get(7),
		Payment:     get(8),
		Category:    get(9),
		ReimburseTo: get(10),
		ReceiptURL:  get(11),
		ImageHash:   get(12),
	}
	if cents, ok := parseDecimalCell(get(1)); ok {
		r.Amount = core.Money{Cents: cents}
	}
	if d, err := core.ParseDate(get(3)); err == nil {
		r.Date = d
	}
	if d, err := core.ParseDate(get(4)); err == nil {
		r.DateAdded = d
	}
	if v, err := strconv.ParseFloat(strings.ReplaceAll(get(13), ",", "."), 64); err == nil {
		if rate, ok := core.NormalizeVATRate(v); ok {
			r.VATRate = rate
		}
	}
	r.UploadedBy = get(14)
	if cents, ok := parseDecimalCell(get(15)); ok {
		r.OriginalAmount = core.Money{Cents: cents}
	}
	return r
}

// parseDecimalCell reads an amount cell as it comes back from the API:
// either a plain number or a string with comma or dot separators.
func parseDecimalCell(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return core.MoneyFromFloat(f).Cents, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlankRow(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}

func rowID(row int) string {
	return fmt.Sprintf("row%d", row)
}

func rowFromID(id string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "row"))
	if err != nil || n <= headerRows {
		return 0, fmt.Errorf("invalid record id %q", id)
	}
	return n, nil
}

// rowFromRange extracts the row number from an A1 range like
// "Expenses!A7:O7".
func rowFromRange(a1 string) (int, error) {
	if i := strings.IndexByte(a1, '!'); i >= 0 {
		a1 = a1[i+1:]
	}
	if i := strings.IndexByte(a1, ':'); i >= 0 {
		a1 = a1[:i]
	}
	digits := strings.TrimLeft(a1, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("cannot parse range %q", a1)
	}
	return n, nil
}
