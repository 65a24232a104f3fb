package calendar

import (
	"testing"
	"time"
)

func TestSameMonthDay(t *testing.T) {
	cases := []struct {
		a, b time.Time
		want bool
	}{
		{time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC), true},
		{time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC), time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		if got := SameMonthDay(tc.a, tc.b); got != tc.want {
			t.Errorf("SameMonthDay(%s, %s) = %v, want %v", tc.a.Format(time.DateOnly), tc.b.Format(time.DateOnly), got, tc.want)
		}
	}
}

func TestChristmas(t *testing.T) {
	if !Christmas.On(time.Date(2026, 12, 25, 23, 59, 0, 0, time.UTC)) {
		t.Fatal("expected Dec 25 to be Christmas")
	}
	if Christmas.On(time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("Dec 24 is not Christmas")
	}
}

func TestFixedAndSystem(t *testing.T) {
	day := time.Date(2026, 12, 25, 9, 0, 0, 0, time.UTC)
	if got := Fixed(day).Today(); !got.Equal(day) {
		t.Fatalf("Fixed.Today = %v", got)
	}
	loc := time.FixedZone("CET", 3600)
	if got := NewSystem(loc).Today().Location(); got != loc {
		t.Fatalf("System.Today location = %v", got)
	}
	if got := NewSystem(nil).Today().Location(); got != time.UTC {
		t.Fatalf("nil location should default to UTC, got %v", got)
	}
}
