/*
metrics.go - Roll-up window aggregation

PURPOSE:
  Computes total / available / redeemed value and counts for a set of
  benefits against a reporting window, scaling potential value by a
  frequency-to-window multiplier so a monthly $10 credit counts as
  $120 toward an annual window.

TWO REDEMPTION MODES:
  Aggregate:             redeemed = sum of value for currently-used
                         benefits (status snapshot)
  AggregateWithHistory:  redeemed = caller-supplied historical sum from
                         usage records. Needed because a benefit's
                         status only reflects the current rollover
                         period, not earlier ones in the window.
*/
package benefit

import "github.com/shopspring/decimal"

// =============================================================================
// SUMMARY - Aggregation result
// =============================================================================

type Summary struct {
	Window Window

	// TotalValue is potential value, multiplier-scaled.
	TotalValue decimal.Decimal

	// RedeemedValue / AvailableValue accumulate actual per-instance
	// value (no multiplier), split by status.
	RedeemedValue  decimal.Decimal
	AvailableValue decimal.Decimal

	UsedCount      int
	AvailableCount int
	TotalCount     int
}

// PercentUsed returns round(redeemed / total * 100), 0 when total is 0.
func (s Summary) PercentUsed() int {
	if s.TotalValue.IsZero() {
		return 0
	}
	pct := s.RedeemedValue.Div(s.TotalValue).Mul(decimal.NewFromInt(100))
	return int(pct.Round(0).IntPart())
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregate computes the summary for all benefits whose current period
// overlaps the window (inclusive-inclusive on both sides).
//
// With applyMultiplier, each benefit's contribution to TotalValue is
// scaled by max(1, benefitPeriodsPerYear / windowPeriodsPerYear): the
// number of times its period recurs within the window, never below 1.
func Aggregate(benefits []Benefit, w Window, applyMultiplier bool) Summary {
	s := Summary{
		Window:         w,
		TotalValue:     decimal.Zero,
		RedeemedValue:  decimal.Zero,
		AvailableValue: decimal.Zero,
	}

	for i := range benefits {
		b := &benefits[i]
		if !b.Period().Overlaps(w.Period) {
			continue
		}

		multiplier := int64(1)
		if applyMultiplier {
			if m := int64(b.EffectiveFrequency().PeriodsPerYear() / w.Kind.PeriodsPerYear()); m > 1 {
				multiplier = m
			}
		}
		s.TotalValue = s.TotalValue.Add(b.Value.Mul(decimal.NewFromInt(multiplier)))
		s.TotalCount++

		switch b.Status {
		case StatusUsed:
			s.RedeemedValue = s.RedeemedValue.Add(b.Value)
			s.UsedCount++
		case StatusAvailable:
			s.AvailableValue = s.AvailableValue.Add(b.Value)
			s.AvailableCount++
		}
	}
	return s
}

// AggregateWithHistory is Aggregate with the status-snapshot redeemed
// value replaced by a ledger-accurate sum queried from usage records
// within the window.
func AggregateWithHistory(benefits []Benefit, w Window, historicalRedeemed decimal.Decimal) Summary {
	s := Aggregate(benefits, w, true)
	s.RedeemedValue = historicalRedeemed
	return s
}
