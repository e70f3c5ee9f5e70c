package core

import "testing"

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Year != 2024 || m.Month != 3 {
		t.Fatalf("unexpected month: %+v", m)
	}
	if m.String() != "2024-03" {
		t.Fatalf("round trip failed: %s", m.String())
	}
	for _, bad := range []string{"", "2024", "2024-13", "03-2024"} {
		if _, err := ParseMonth(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestMonthContains(t *testing.T) {
	m := Month{Year: 2024, Month: 3}
	cases := []struct {
		d    Date
		want bool
	}{
		{NewDate(2024, 3, 1), true},
		{NewDate(2024, 3, 31), true},
		{NewDate(2024, 4, 1), false},
		{NewDate(2024, 2, 29), false},
		{NewDate(2023, 3, 15), false},
		{Date{}, false},
	}
	for _, tc := range cases {
		if got := m.Contains(tc.d); got != tc.want {
			t.Fatalf("%v in %v: expected %v, got %v", tc.d, m, tc.want, got)
		}
	}
}

func TestMonthDays(t *testing.T) {
	cases := []struct {
		m    Month
		want int
	}{
		{Month{2024, 2}, 29}, // leap year
		{Month{2023, 2}, 28},
		{Month{2024, 4}, 30},
		{Month{2024, 12}, 31},
	}
	for _, tc := range cases {
		if got := tc.m.Days(); got != tc.want {
			t.Fatalf("%v expected %d days, got %d", tc.m, tc.want, got)
		}
	}
}
