package core

import (
	"fmt"
	"strings"
	"time"
)

// Month identifies a calendar month. Date comparisons are by calendar
// fields only; no timezone conversion is ever applied.
type Month struct {
	Year  int
	Month int // 1-12
}

// CurrentMonth returns the month of today's date.
func CurrentMonth() Month {
	now := time.Now().UTC()
	return Month{Year: now.Year(), Month: int(now.Month())}
}

// ParseMonth parses a YYYY-MM period string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: int(t.Month())}, nil
}

// Contains reports whether d falls inside the month. The zero date is never
// contained.
func (m Month) Contains(d Date) bool {
	if d.IsZero() {
		return false
	}
	return d.Year() == m.Year && int(d.Month()) == m.Month
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return time.Date(m.Year, time.Month(m.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// String formats as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}
