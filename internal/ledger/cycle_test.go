package ledger

import (
	"testing"
	"time"
)

func TestCycleBounds_MidCycle(t *testing.T) {
	now := time.Date(2025, time.January, 20, 12, 0, 0, 0, time.UTC)
	start, end := CycleBounds(15, now)

	wantStart := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("expected start %v, got %v", wantStart, start)
	}
	wantEnd := time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond)
	if !end.Equal(wantEnd) {
		t.Fatalf("expected end %v, got %v", wantEnd, end)
	}
}

func TestCycleBounds_AnchorLaterThisMonth(t *testing.T) {
	// Anchor day has not occurred yet this month: the cycle began last month.
	now := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	start, end := CycleBounds(25, now)

	wantStart := time.Date(2025, time.February, 25, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("expected start %v, got %v", wantStart, start)
	}
	wantEnd := time.Date(2025, time.March, 25, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond)
	if !end.Equal(wantEnd) {
		t.Fatalf("expected end %v, got %v", wantEnd, end)
	}
}

func TestCycleBounds_AnchorClampsToShortMonth(t *testing.T) {
	now := time.Date(2025, time.February, 28, 23, 0, 0, 0, time.UTC)
	start, end := CycleBounds(31, now)

	wantStart := time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("expected start %v, got %v", wantStart, start)
	}
	wantEnd := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond)
	if !end.Equal(wantEnd) {
		t.Fatalf("expected end %v, got %v", wantEnd, end)
	}
}

func TestCycleBounds_YearBoundary(t *testing.T) {
	now := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	start, end := CycleBounds(15, now)

	wantStart := time.Date(2024, time.December, 15, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("expected start %v, got %v", wantStart, start)
	}
	wantEnd := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond)
	if !end.Equal(wantEnd) {
		t.Fatalf("expected end %v, got %v", wantEnd, end)
	}
}

func TestCycleBounds_ContainsNow(t *testing.T) {
	for anchor := 1; anchor <= 31; anchor++ {
		for _, now := range []time.Time{
			time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, time.February, 28, 23, 59, 0, 0, time.UTC),
			time.Date(2024, time.February, 29, 12, 0, 0, 0, time.UTC),
			time.Date(2025, time.December, 31, 23, 0, 0, 0, time.UTC),
		} {
			start, end := CycleBounds(anchor, now)
			if start.After(now) {
				t.Fatalf("anchor %d now %v: start %v after now", anchor, now, start)
			}
			if end.Before(now) {
				t.Fatalf("anchor %d now %v: end %v before now", anchor, now, end)
			}
		}
	}
}
