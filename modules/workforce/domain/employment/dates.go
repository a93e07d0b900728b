package employment

import "time"

const (
	// IngestStaleMonths closes an employment on ingest when its last known
	// employed date is more than this many months before the extract date.
	IngestStaleMonths = 5
	// SweepStaleMonths closes an open employment during maintenance when its last
	// known employed date is more than this many months before its last extract date.
	SweepStaleMonths = 3
)

// DateOnly truncates t to a UTC calendar date.
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddMonths moves d by n calendar months, clamping to the last day of the target
// month (31 Jul - 5 months = 28/29 Feb).
func AddMonths(d time.Time, n int) time.Time {
	d = DateOnly(d)
	y, m, day := d.Date()
	total := int(m) - 1 + n
	ty := y + total/12
	tm := total % 12
	if tm < 0 {
		tm += 12
		ty--
	}
	last := daysIn(time.Month(tm+1), ty)
	if day > last {
		day = last
	}
	return time.Date(ty, time.Month(tm+1), day, 0, 0, 0, 0, time.UTC)
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsStale reports whether lastKnown lies strictly more than months before reference.
func IsStale(lastKnown, reference time.Time, months int) bool {
	return DateOnly(lastKnown).Before(AddMonths(reference, -months))
}

// CapToExtractDate returns the last known employed date implied by a row:
// the reported end date, never later than the date the extract was taken.
func CapToExtractDate(endDate, extractDate time.Time) time.Time {
	endDate, extractDate = DateOnly(endDate), DateOnly(extractDate)
	if endDate.After(extractDate) {
		return extractDate
	}
	return endDate
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
