// Package sqlite holds a local record store for self-hosted deployments
// that do not want a hosted base at all.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"

	"expensify/internal/core"
	"expensify/internal/records"
)

type Store struct {
	db *sql.DB
}

var _ records.Store = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const insertExpense = `
INSERT INTO expenses (
    name, amount_cents, original_amount_cents, currency, expense_date,
    date_added, status, attendees, occasion, payment, category,
    reimburse_to, receipt_url, image_hash, vat_rate, uploaded_by
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *Store) Create(ctx context.Context, r core.Record) (string, error) {
	res, err := s.db.ExecContext(ctx, insertExpense,
		r.Name, r.Amount.Cents, r.OriginalAmount.Cents, r.Currency, r.Date.String(),
		r.DateAdded.String(), string(r.Status), r.Attendees, r.Occasion, r.Payment,
		r.Category, r.ReimburseTo, r.ReceiptURL, r.ImageHash, r.VATRate, r.UploadedBy)
	if err != nil {
		return "", fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("insert expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"amount_cents", r.Amount.Cents,
		"currency", r.Currency,
		"image_hash", r.ImageHash)

	return strconv.FormatInt(id, 10), nil
}

const selectExpenses = `
SELECT id, name, amount_cents, original_amount_cents, currency, expense_date,
       date_added, status, attendees, occasion, payment, category,
       reimburse_to, receipt_url, image_hash, vat_rate, uploaded_by
  FROM expenses`

func (s *Store) ListMonth(ctx context.Context, month core.Month) ([]core.Record, error) {
	query := selectExpenses + ` WHERE substr(date_added, 1, 7) = ? ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, month.String())
	if err != nil {
		return nil, fmt.Errorf("list month expenses: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) ListAll(ctx context.Context) ([]core.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectExpenses+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status core.Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE expenses SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record %s not found", id)
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]core.Record, error) {
	var out []core.Record
	for rows.Next() {
		var (
			id                int64
			r                 core.Record
			dateStr, addedStr string
			statusStr         string
		)
		if err := rows.Scan(&id, &r.Name, &r.Amount.Cents, &r.OriginalAmount.Cents, &r.Currency,
			&dateStr, &addedStr, &statusStr, &r.Attendees, &r.Occasion, &r.Payment, &r.Category,
			&r.ReimburseTo, &r.ReceiptURL, &r.ImageHash, &r.VATRate, &r.UploadedBy); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		r.ID = strconv.FormatInt(id, 10)
		r.Status = core.NormalizeStatus(statusStr)
		if d, err := core.ParseDate(dateStr); err == nil {
			r.Date = d
		}
		if d, err := core.ParseDate(addedStr); err == nil {
			r.DateAdded = d
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}
