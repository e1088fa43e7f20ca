package benefit_test

import (
	"testing"
	"time"

	"github.com/warp/benefit-engine/benefit"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) benefit.Date {
	return benefit.NewDate(year, month, day)
}

func assertPeriod(t *testing.T, p benefit.Period, next benefit.Date, wantStart, wantEnd, wantNext benefit.Date) {
	t.Helper()
	if !p.Start.Equal(wantStart) {
		t.Errorf("start = %s, want %s", p.Start, wantStart)
	}
	if !p.End.Equal(wantEnd) {
		t.Errorf("end = %s, want %s", p.End, wantEnd)
	}
	if !next.Equal(wantNext) {
		t.Errorf("next reset = %s, want %s", next, wantNext)
	}
}

// =============================================================================
// CALENDAR-ALIGNED PERIODS
// =============================================================================

func TestComputePeriod_Monthly_CalendarMonth(t *testing.T) {
	// GIVEN: A monthly benefit with no day-of-month anchor
	// WHEN: Computing the period for mid-January
	// THEN: The period is the full calendar month

	p, next := benefit.ComputePeriod(benefit.Monthly, date(2026, time.January, 15), 0)
	assertPeriod(t, p, next, date(2026, time.January, 1), date(2026, time.January, 31), date(2026, time.February, 1))
}

func TestComputePeriod_Monthly_February(t *testing.T) {
	// February's shorter span must come out of the same math.
	p, next := benefit.ComputePeriod(benefit.Monthly, date(2026, time.February, 1), 0)
	assertPeriod(t, p, next, date(2026, time.February, 1), date(2026, time.February, 28), date(2026, time.March, 1))
}

func TestComputePeriod_Monthly_LeapFebruary(t *testing.T) {
	p, next := benefit.ComputePeriod(benefit.Monthly, date(2028, time.February, 10), 0)
	assertPeriod(t, p, next, date(2028, time.February, 1), date(2028, time.February, 29), date(2028, time.March, 1))
}

func TestComputePeriod_Quarterly(t *testing.T) {
	// Quarters anchor at Jan/Apr/Jul/Oct regardless of the reference day.
	p, next := benefit.ComputePeriod(benefit.Quarterly, date(2026, time.May, 10), 0)
	assertPeriod(t, p, next, date(2026, time.April, 1), date(2026, time.June, 30), date(2026, time.July, 1))
}

func TestComputePeriod_SemiAnnual(t *testing.T) {
	p, next := benefit.ComputePeriod(benefit.SemiAnnual, date(2026, time.August, 20), 0)
	assertPeriod(t, p, next, date(2026, time.July, 1), date(2026, time.December, 31), date(2027, time.January, 1))

	p, next = benefit.ComputePeriod(benefit.SemiAnnual, date(2026, time.March, 3), 0)
	assertPeriod(t, p, next, date(2026, time.January, 1), date(2026, time.June, 30), date(2026, time.July, 1))
}

func TestComputePeriod_Annual(t *testing.T) {
	p, next := benefit.ComputePeriod(benefit.Annual, date(2026, time.September, 9), 0)
	assertPeriod(t, p, next, date(2026, time.January, 1), date(2026, time.December, 31), date(2027, time.January, 1))
}

// =============================================================================
// DAY-OF-MONTH ANCHORED PERIODS
// =============================================================================

func TestComputePeriod_Anchored_AfterAnchorDay(t *testing.T) {
	// GIVEN: A monthly benefit anchored to the 15th
	// WHEN: The reference is on or after the anchor day
	// THEN: The period starts on this month's 15th

	p, next := benefit.ComputePeriod(benefit.Monthly, date(2026, time.March, 20), 15)
	assertPeriod(t, p, next, date(2026, time.March, 15), date(2026, time.April, 14), date(2026, time.April, 15))
}

func TestComputePeriod_Anchored_BeforeAnchorDay(t *testing.T) {
	// Reference before the anchor rolls back to last month's occurrence.
	p, next := benefit.ComputePeriod(benefit.Monthly, date(2026, time.March, 10), 15)
	assertPeriod(t, p, next, date(2026, time.February, 15), date(2026, time.March, 14), date(2026, time.March, 15))
}

func TestComputePeriod_Anchored_ClampsToShortMonth(t *testing.T) {
	// GIVEN: An anchor day (31) that February does not have
	// WHEN: Computing the period containing early February
	// THEN: The next reset clamps to Feb 28, never errors

	p, next := benefit.ComputePeriod(benefit.Monthly, date(2026, time.February, 10), 31)
	assertPeriod(t, p, next, date(2026, time.January, 31), date(2026, time.February, 27), date(2026, time.February, 28))
}

func TestComputePeriod_Anchored_FirstOfMonth(t *testing.T) {
	// Anchor day 1 behaves identically to the calendar month.
	p, next := benefit.ComputePeriod(benefit.Monthly, date(2026, time.June, 12), 1)
	assertPeriod(t, p, next, date(2026, time.June, 1), date(2026, time.June, 30), date(2026, time.July, 1))
}

func TestComputePeriod_InvalidAnchor_FallsBackToCalendarMonth(t *testing.T) {
	// Anchors outside 1..31 are treated as absent.
	for _, day := range []int{-1, 0, 32, 99} {
		p, next := benefit.ComputePeriod(benefit.Monthly, date(2026, time.January, 15), day)
		assertPeriod(t, p, next, date(2026, time.January, 1), date(2026, time.January, 31), date(2026, time.February, 1))
	}
}

func TestComputePeriod_UnknownFrequency_DegradesToMonth(t *testing.T) {
	p, next := benefit.ComputePeriod(benefit.Frequency("weekly"), date(2026, time.January, 15), 0)
	assertPeriod(t, p, next, date(2026, time.January, 1), date(2026, time.January, 31), date(2026, time.February, 1))
}

// =============================================================================
// STRUCTURAL INVARIANTS
// =============================================================================

func TestComputePeriod_BoundsInvariant(t *testing.T) {
	// For every frequency and a spread of reference dates:
	// start <= ref <= end, and next reset is exactly end + 1 day.

	refs := []benefit.Date{
		date(2026, time.January, 1),
		date(2026, time.February, 28),
		date(2026, time.June, 15),
		date(2026, time.December, 31),
		date(2028, time.February, 29),
	}
	freqs := []benefit.Frequency{benefit.Monthly, benefit.Quarterly, benefit.SemiAnnual, benefit.Annual}

	for _, freq := range freqs {
		for _, ref := range refs {
			for _, anchor := range []int{0, 15, 31} {
				p, next := benefit.ComputePeriod(freq, ref, anchor)
				if !p.Contains(ref) {
					t.Errorf("%s/%d: period %s does not contain ref %s", freq, anchor, p, ref)
				}
				if !next.Equal(p.End.AddDays(1)) {
					t.Errorf("%s/%d: next reset %s != end+1 (%s)", freq, anchor, next, p.End.AddDays(1))
				}
				if p.End.Before(p.Start) {
					t.Errorf("%s/%d: end %s before start %s", freq, anchor, p.End, p.Start)
				}
			}
		}
	}
}

// =============================================================================
// OVERLAP AND WINDOWS
// =============================================================================

func TestPeriod_Overlaps_Symmetric(t *testing.T) {
	jan := benefit.Period{Start: date(2026, time.January, 1), End: date(2026, time.January, 31)}
	q1 := benefit.Period{Start: date(2026, time.January, 1), End: date(2026, time.March, 31)}
	feb := benefit.Period{Start: date(2026, time.February, 1), End: date(2026, time.February, 28)}

	cases := []struct {
		name string
		a, b benefit.Period
		want bool
	}{
		{"nested", jan, q1, true},
		{"disjoint", jan, feb, false},
		{"shared boundary day", jan, benefit.Period{Start: date(2026, time.January, 31), End: date(2026, time.February, 15)}, true},
	}
	for _, tc := range cases {
		if got := tc.a.Overlaps(tc.b); got != tc.want {
			t.Errorf("%s: Overlaps = %v, want %v", tc.name, got, tc.want)
		}
		if tc.a.Overlaps(tc.b) != tc.b.Overlaps(tc.a) {
			t.Errorf("%s: Overlaps is not symmetric", tc.name)
		}
	}
}

func TestWindowFor_IgnoresAnchors(t *testing.T) {
	// Reporting windows are always calendar-aligned.
	w := benefit.WindowFor(benefit.Monthly, date(2026, time.March, 20))
	assertPeriod(t, w.Period, w.End.AddDays(1), date(2026, time.March, 1), date(2026, time.March, 31), date(2026, time.April, 1))
	if w.Kind != benefit.Monthly {
		t.Errorf("kind = %s, want monthly", w.Kind)
	}
}
