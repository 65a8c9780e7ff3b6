package common

import (
	"testing"
	"time"
)

func TestParseDay(t *testing.T) {
	got, err := ParseDay("2023-01-05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	for _, bad := range []string{"", "05-01-2023", "2023-13-01", "yesterday"} {
		if _, err := ParseDay(bad); err == nil {
			t.Errorf("ParseDay(%q): expected error", bad)
		}
	}
}

func TestDaysBetweenInclusive(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)

	days := DaysBetween(start, end)
	if len(days) != 3 {
		t.Fatalf("got %d days, want 3", len(days))
	}
	if !days[0].Equal(start) || !days[2].Equal(end) {
		t.Errorf("range endpoints: got %v..%v", days[0], days[2])
	}

	// Single-day and reversed ranges.
	if got := DaysBetween(start, start); len(got) != 1 {
		t.Errorf("single day: got %d, want 1", len(got))
	}
	if got := DaysBetween(end, start); len(got) != 0 {
		t.Errorf("reversed: got %d, want 0", len(got))
	}
}
