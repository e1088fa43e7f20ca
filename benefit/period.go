/*
period.go - Reset-period boundary computation

PURPOSE:
  Pure date math converting a frequency (plus an optional day-of-month
  anchor) and a reference date into the concrete [start, end] period
  containing the reference, and the next reset date.

ANCHORING:
  Monthly:    calendar month, or anchored to a day-of-month when set
  Quarterly:  calendar quarters starting Jan/Apr/Jul/Oct
  SemiAnnual: halves starting Jan/Jul
  Annual:     calendar year

CLAMPING POLICY:
  A day-of-month anchor that does not exist in the target month (31 in
  February) clamps to the last day of that month. An anchor outside
  1..31 is treated as absent and the period falls back to the plain
  calendar month; no error ever crosses this boundary.

INVARIANT:
  start <= end < nextReset, and nextReset == end + 1 day.
*/
package benefit

import "time"

// =============================================================================
// PERIOD - A benefit's reset window
// =============================================================================

// Period is an inclusive [Start, End] date range.
type Period struct {
	Start Date
	End   Date
}

// Contains returns true if the date is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Overlaps performs the inclusive-inclusive overlap test against
// another range. Symmetric: p.Overlaps(q) == q.Overlaps(p).
func (p Period) Overlaps(q Period) bool {
	return p.Start.BeforeOrEqual(q.End) && p.End.AfterOrEqual(q.Start)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// PERIOD CALCULATOR
// =============================================================================

// ComputePeriod returns the reset period containing ref for the given
// frequency, and the next reset date (exclusive, one day past the end).
// resetDay anchors monthly periods to a day-of-month; pass 0 for
// calendar-month periods. It is ignored for other frequencies.
func ComputePeriod(freq Frequency, ref Date, resetDay int) (Period, Date) {
	switch freq {
	case Monthly:
		if resetDay >= 1 && resetDay <= 31 {
			return monthlyAnchored(ref, resetDay)
		}
		return calendarAligned(ref, 1)
	case Quarterly:
		return calendarAligned(ref, 3)
	case SemiAnnual:
		return calendarAligned(ref, 6)
	case Annual:
		return calendarAligned(ref, 12)
	default:
		// Unknown frequency degrades to the calendar month.
		return calendarAligned(ref, 1)
	}
}

// calendarAligned computes a period of spanMonths months anchored at
// calendar boundaries: months {1}, {1,4,7,10}, {1,7}, or {1} of the
// year depending on span.
func calendarAligned(ref Date, spanMonths int) (Period, Date) {
	monthIndex := int(ref.Month()) - 1 // 0-based
	startMonth := time.Month(monthIndex/spanMonths*spanMonths + 1)

	start := NewDate(ref.Year(), startMonth, 1)
	next := start.AddMonths(spanMonths) // day 1, safe from normalization
	end := next.AddDays(-1)
	return Period{Start: start, End: end}, next
}

// monthlyAnchored computes the monthly period anchored at a day-of-month.
// The start is the most recent occurrence of the anchor day at or before
// ref, rolling back one calendar month when the day hasn't occurred yet.
// Anchor days missing from a month clamp to its last day, so a day-31
// anchor yields Jan 31 .. Feb 27 with the next reset on Feb 28.
func monthlyAnchored(ref Date, resetDay int) (Period, Date) {
	start := clampedDay(ref.Year(), ref.Month(), resetDay)
	if start.After(ref) {
		prev := NewDate(ref.Year(), ref.Month(), 1).AddMonths(-1)
		start = clampedDay(prev.Year(), prev.Month(), resetDay)
	}

	after := NewDate(start.Year(), start.Month(), 1).AddMonths(1)
	next := clampedDay(after.Year(), after.Month(), resetDay)
	end := next.AddDays(-1)
	return Period{Start: start, End: end}, next
}

// clampedDay builds a date in year/month with the day clamped to the
// last day of the month when it doesn't exist.
func clampedDay(year int, month time.Month, day int) Date {
	if max := DaysInMonth(year, month); day > max {
		day = max
	}
	return NewDate(year, month, day)
}

// =============================================================================
// ROLLUP WINDOW - Reporting range, distinct from a benefit's own period
// =============================================================================

// Window is a named reporting range: a period class plus its concrete
// bounds for a given reference date. Recomputed on demand, never stored.
type Window struct {
	Kind Frequency
	Period
}

// WindowFor returns the roll-up window of the given class containing ref.
// Windows are always calendar-aligned; day-of-month anchors apply only
// to individual benefits, not to reporting.
func WindowFor(kind Frequency, ref Date) Window {
	p, _ := ComputePeriod(kind, ref, 0)
	return Window{Kind: kind, Period: p}
}
