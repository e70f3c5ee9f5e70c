// Package services orchestrates expense operations across the record
// store, the receipt file store, and the notification channel.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"expensify/internal/amqp"
	"expensify/internal/core"
	"expensify/internal/records"
)

// Publisher is the outbound notification port. Satisfied by *amqp.Client;
// nil disables publishing.
type Publisher interface {
	PublishExpenseCreated(ctx context.Context, msg *amqp.ExpenseCreatedMessage) error
}

// ReceiptSaver persists receipt bytes and returns the public URL.
// Satisfied by *filestore.Store.
type ReceiptSaver interface {
	Save(data []byte, suggestedName string) (url, filename string, err error)
}

// ExpenseService wires the core rules to the configured backends.
type ExpenseService struct {
	store           records.Store
	files           ReceiptSaver
	publisher       Publisher
	fx              core.FXRates
	defaultCurrency string
	defaultStatuses []core.Status
}

type Config struct {
	Store           records.Store
	Files           ReceiptSaver
	Publisher       Publisher
	FX              core.FXRates
	DefaultCurrency string
	DefaultStatuses []core.Status
}

func NewExpenseService(cfg Config) *ExpenseService {
	fx := cfg.FX
	if fx == nil {
		fx = core.DefaultFXRates()
	}
	currency := cfg.DefaultCurrency
	if currency == "" {
		currency = "CHF"
	}
	statuses := cfg.DefaultStatuses
	if len(statuses) == 0 {
		statuses = append([]core.Status(nil), core.AllowedStatuses...)
	}
	return &ExpenseService{
		store:           cfg.Store,
		files:           cfg.Files,
		publisher:       cfg.Publisher,
		fx:              fx,
		defaultCurrency: currency,
		defaultStatuses: statuses,
	}
}

// CreateExpenseInput carries the raw submission; all fields except the
// image and amount are optional.
type CreateExpenseInput struct {
	Name          string
	Amount        string
	Currency      string
	Date          string
	Attendees     string
	Occasion      string
	Payment       string
	Category      string
	ReimburseTo   string
	VATRate       float64
	UploadedBy    string
	Image         []byte
	ImageFilename string
}

type CreateExpenseResult struct {
	ID         string
	ReceiptURL string
	ImageHash  string
	UploadedBy string
}

// CreateExpense validates and normalizes the submission, stores the
// receipt, writes the record, and fires the created event. Validation
// failures happen before any write; a notification failure never fails
// the create.
func (s *ExpenseService) CreateExpense(ctx context.Context, in CreateExpenseInput) (CreateExpenseResult, error) {
	hash, err := core.Fingerprint(in.Image)
	if err != nil {
		return CreateExpenseResult{}, err
	}

	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return CreateExpenseResult{}, fmt.Errorf("%w: %q", core.ErrInvalidAmount, in.Amount)
	}
	original := core.Money{Cents: cents}

	currency := core.NormalizeCurrency(in.Currency, s.defaultCurrency)

	expenseDate := core.Today()
	if d, err := core.ParseDate(strings.TrimSpace(in.Date)); err == nil {
		expenseDate = d
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = fmt.Sprintf("Expense %s", expenseDate)
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "Uncategorized"
	}
	reimburseTo := strings.TrimSpace(in.ReimburseTo)
	if reimburseTo == "" {
		reimburseTo = "None"
	}
	vatRate, ok := core.NormalizeVATRate(in.VATRate)
	if !ok {
		vatRate = 0
	}

	receiptURL, filename, err := s.files.Save(in.Image, in.ImageFilename)
	if err != nil {
		return CreateExpenseResult{}, fmt.Errorf("store receipt: %w", err)
	}

	record := core.Record{
		Name:           name,
		Amount:         s.fx.ToCHF(original, currency),
		OriginalAmount: original,
		Currency:       currency,
		Date:           expenseDate,
		DateAdded:      core.Today(),
		Status:         core.StatusUnderReview,
		Attendees:      strings.TrimSpace(in.Attendees),
		Occasion:       strings.TrimSpace(in.Occasion),
		Payment:        strings.TrimSpace(in.Payment),
		Category:       category,
		ReimburseTo:    reimburseTo,
		ReceiptURL:     receiptURL,
		ImageHash:      hash,
		VATRate:        vatRate,
		UploadedBy:     strings.TrimSpace(in.UploadedBy),
	}

	id, err := s.store.Create(ctx, record)
	if err != nil {
		return CreateExpenseResult{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense created",
		"id", id,
		"amount_cents", record.Amount.Cents,
		"currency", currency,
		"image_hash", hash,
		"receipt_file", filename)

	s.publishCreated(ctx, id, record)

	return CreateExpenseResult{
		ID:         id,
		ReceiptURL: receiptURL,
		ImageHash:  hash,
		UploadedBy: record.UploadedBy,
	}, nil
}

func (s *ExpenseService) publishCreated(ctx context.Context, id string, r core.Record) {
	if s.publisher == nil {
		return
	}
	msg := &amqp.ExpenseCreatedMessage{
		ID:          id,
		Name:        r.Name,
		AmountCents: r.Amount.Cents,
		Currency:    r.Currency,
		Month:       core.Month{Year: r.DateAdded.Year(), Month: int(r.DateAdded.Month())}.String(),
		ImageHash:   r.ImageHash,
		UploadedBy:  r.UploadedBy,
		Timestamp:   time.Now(),
	}
	if err := s.publisher.PublishExpenseCreated(ctx, msg); err != nil {
		// The record is already stored; the event is advisory.
		slog.ErrorContext(ctx, "Failed to publish expense created event",
			"id", id, "error", err)
	}
}

// ListExpenses returns the month's records annotated with duplicate
// hints, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, month core.Month) ([]core.ListedRecord, error) {
	recs, err := s.store.ListMonth(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	listed := core.AnnotateDuplicates(recs)
	sort.SliceStable(listed, func(i, j int) bool {
		a, b := listed[i].DateAdded, listed[j].DateAdded
		if !a.Equal(b.Time) {
			return b.Before(a.Time)
		}
		return listed[i].ID > listed[j].ID
	})
	return listed, nil
}

// UpdateStatus validates the new status against the allowed set before
// touching the store.
func (s *ExpenseService) UpdateStatus(ctx context.Context, id string, status string) (core.Status, error) {
	trimmed := core.Status(strings.TrimSpace(status))
	if !trimmed.Valid() {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidStatus, status)
	}
	if err := s.store.UpdateStatus(ctx, id, trimmed); err != nil {
		return "", fmt.Errorf("update status: %w", err)
	}
	return trimmed, nil
}

// MonthlyReport aggregates a fresh full snapshot. A nil status slice
// means the configured default set; an empty non-nil slice is honored
// and yields an empty report.
func (s *ExpenseService) MonthlyReport(ctx context.Context, month core.Month, statuses []core.Status) (core.Report, error) {
	if statuses == nil {
		statuses = s.defaultStatuses
	}
	recs, err := s.store.ListAll(ctx)
	if err != nil {
		return core.Report{}, fmt.Errorf("fetch records for report: %w", err)
	}
	report := core.Aggregate(recs, month, statuses)
	report.FXPolicy = s.fx.PolicyDescription()
	return report, nil
}

// DefaultStatuses returns a copy of the configured eligible set.
func (s *ExpenseService) DefaultStatuses() []core.Status {
	return append([]core.Status(nil), s.defaultStatuses...)
}
