package ledger

import "time"

// CycleBounds computes the billing cycle containing now for the given
// anchor day-of-month. The start is the anchor-day occurrence at or
// before now at 00:00:00; the end is one calendar month later minus one
// millisecond (23:59:59.999). Anchor days past the end of a month clamp
// to that month's last day, so an account anchored on the 31st cycles on
// Feb 28 (or 29) without drifting.
func CycleBounds(anchorDay int, now time.Time) (time.Time, time.Time) {
	if anchorDay < 1 {
		anchorDay = 1
	}
	if anchorDay > 31 {
		anchorDay = 31
	}

	loc := now.Location()
	year, month, _ := now.Date()

	start := time.Date(year, month, clampDay(year, month, anchorDay), 0, 0, 0, 0, loc)
	if start.After(now) {
		prevYear, prevMonth := year, month-1
		if prevMonth < time.January {
			prevYear, prevMonth = year-1, time.December
		}
		start = time.Date(prevYear, prevMonth, clampDay(prevYear, prevMonth, anchorDay), 0, 0, 0, 0, loc)
	}

	startYear, startMonth, _ := start.Date()
	nextYear, nextMonth := startYear, startMonth+1
	if nextMonth > time.December {
		nextYear, nextMonth = startYear+1, time.January
	}
	end := time.Date(nextYear, nextMonth, clampDay(nextYear, nextMonth, anchorDay), 0, 0, 0, 0, loc).
		Add(-time.Millisecond)

	return start, end
}

// clampDay bounds day to the number of days in the given month.
func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}
