package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusDone        Status = "Done"
	StatusInProgress  Status = "In-Progress"
	StatusUnderReview Status = "Under Review"
)

type (
	Status string

	Date struct {
		time.Time
	}

	// Record is the unit persisted to the remote store and aggregated
	// into reports. ID and ImageHash are immutable once set; Status is
	// the only field mutated after creation.
	Record struct {
		ID     string
		Name   string
		Amount Money
		// OriginalAmount carries the submitted amount before FX
		// conversion; Currency is the submitted currency label.
		OriginalAmount Money
		Currency       string
		Date           Date
		DateAdded      Date
		Status         Status
		Attendees      string
		Occasion       string
		Payment        string
		Category       string
		ReimburseTo    string
		ReceiptURL     string
		ImageHash      string
		VATRate        float64
		UploadedBy     string
	}

	// ListedRecord decorates a Record with the advisory duplicate hint
	// computed over a listing window.
	ListedRecord struct {
		Record
		DuplicateCount int
		DuplicateHint  bool
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyImage    = errors.New("empty image")
	ErrInvalidStatus = errors.New("invalid status")
)

// AllowedStatuses is the enumerated set accepted by status updates.
var AllowedStatuses = []Status{StatusDone, StatusInProgress, StatusUnderReview}

func (s Status) Valid() bool {
	for _, a := range AllowedStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// NormalizeStatus maps status values coming back from the store onto the
// allowed set. Legacy records carry booleans from the old Approved column;
// unknown non-empty values are kept as-is so the aggregator can filter them.
func NormalizeStatus(raw string) Status {
	value := strings.TrimSpace(raw)
	lower := strings.ToLower(value)
	lower = strings.ReplaceAll(lower, "_", "-")
	lower = strings.ReplaceAll(lower, " ", "-")
	switch lower {
	case "done":
		return StatusDone
	case "in-progress", "inprogress":
		return StatusInProgress
	case "under-review", "underreview", "under-review.":
		return StatusUnderReview
	}
	switch value {
	case "True", "true", "1":
		return StatusDone
	case "False", "false", "0":
		return StatusUnderReview
	}
	if value == "" {
		return StatusUnderReview
	}
	return Status(value)
}

// NormalizePaymentMethod maps free-form payment labels onto the small set the
// report groups by. Unrecognized non-empty values pass through trimmed.
func NormalizePaymentMethod(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "":
		return "Other"
	case "company card", "company-card", "companycard":
		return "Company card"
	case "personal", "personal reimbursement", "personal-reimbursement", "reimbursement":
		return "Personal"
	case "cash":
		return "Cash"
	}
	return strings.TrimSpace(raw)
}

// VAT rates recognized by the form and the receipt analyzer (Swiss rates).
var allowedVATRates = map[float64]struct{}{8.1: {}, 2.6: {}, 3.8: {}}

// NormalizeVATRate returns one of the allowed VAT rates, accepting both
// percent (8.1) and fraction (0.081) input. ok is false for anything else.
func NormalizeVATRate(value float64) (float64, bool) {
	if value > 0 && value < 1 {
		value = roundTo(value*100, 3)
	}
	if _, ok := allowedVATRates[value]; ok {
		return value, true
	}
	return 0, false
}

func roundTo(v float64, places int) float64 {
	scale := 1.0
	for i := 0; i < places; i++ {
		scale *= 10
	}
	if v >= 0 {
		return float64(int64(v*scale+0.5)) / scale
	}
	return float64(int64(v*scale-0.5)) / scale
}

// NewDate builds a calendar date; time-of-day is always midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD form value.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar date.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String formats as YYYY-MM-DD, empty string for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}
