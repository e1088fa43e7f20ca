/*
Package benefit implements the lifecycle engine for recurring, perishable
card benefits.

PURPOSE:
  A credit card carries benefits that reset on a schedule ("$15 monthly
  rideshare credit", "$300 annual travel credit"). This package owns the
  hard parts of tracking them: computing reset-period boundaries for each
  frequency, enforcing the redemption state machine, aggregating value
  across roll-up windows, and deriving urgency tiers and the single
  user-facing insight.

KEY CONCEPTS IN THIS FILE (types.go):
  - Card: owns benefits; deleting a card deletes its benefits
  - Benefit: a recurring credit with a current period and a status
  - UsageRecord: immutable snapshot of a redemption (survives renames)
  - Frequency: how often a benefit resets (monthly ... annual)

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all currency values, never float64
  2. Explicit time: every computation takes a reference Date; the engine
     never reads the wall clock
  3. Snapshots: usage history denormalizes names at redemption time so
     history stays accurate after renames and card deletion

SEE ALSO:
  - period.go: period boundary computation
  - state.go: status transitions and usage records
  - metrics.go: roll-up window aggregation
*/
package benefit

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CardID string
type BenefitID string
type UsageRecordID string

// =============================================================================
// FREQUENCY - How often a benefit resets
// =============================================================================

type Frequency string

const (
	Monthly    Frequency = "monthly"
	Quarterly  Frequency = "quarterly"
	SemiAnnual Frequency = "semiannual"
	Annual     Frequency = "annual"
)

// PeriodsPerYear returns how many reset periods a frequency produces in
// a calendar year. Unknown frequencies count as annual.
func (f Frequency) PeriodsPerYear() int {
	switch f {
	case Monthly:
		return 12
	case Quarterly:
		return 4
	case SemiAnnual:
		return 2
	default:
		return 1
	}
}

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case Monthly, Quarterly, SemiAnnual, Annual:
		return true
	}
	return false
}

// =============================================================================
// STATUS - Redemption state of a benefit within its current period
// =============================================================================

type Status string

const (
	StatusAvailable Status = "available"
	StatusUsed      Status = "used"
	StatusExpired   Status = "expired"
)

// =============================================================================
// CARD - Owner of benefits
// =============================================================================

// Card is a user-owned credit card. Benefits are exclusively owned by
// one card and are cascade-deleted with it.
type Card struct {
	ID        CardID
	Name      string
	Issuer    string
	AnnualFee decimal.Decimal
	FeeDue    *Date // next annual fee date, nil when the card has no fee
	OpenedAt  Date
	CreatedAt time.Time
}

// =============================================================================
// BENEFIT - A recurring credit with a current period
// =============================================================================

// Benefit tracks one recurring credit through its reset periods.
//
// Invariant: CurrentPeriodStart <= CurrentPeriodEnd < NextReset, with
// NextReset exactly one day after CurrentPeriodEnd. The period fields
// are only ever written together (see state.go).
type Benefit struct {
	ID     BenefitID
	CardID CardID

	// Display fields, optionally overridden from the template.
	Name     string
	Category string
	Value    decimal.Decimal

	// Frequency may be empty for legacy benefits with no template link;
	// EffectiveFrequency falls back to inference from the period span.
	Frequency Frequency

	// ResetDay anchors monthly periods to a day-of-month (1-31).
	// Zero means calendar-month periods.
	ResetDay int

	Status Status

	CurrentPeriodStart Date
	CurrentPeriodEnd   Date // inclusive
	NextReset          Date // exclusive, == CurrentPeriodEnd + 1 day

	// LastReminderAt is set when the user snoozes; doubles as reminder
	// de-dup state. Cleared on rollover.
	LastReminderAt *time.Time

	// ReminderHandle is the external transport's opaque handle, when the
	// transport returns one. Cleared on rollover.
	ReminderHandle string

	CreatedAt time.Time
}

// Period returns the benefit's current reset window.
func (b *Benefit) Period() Period {
	return Period{Start: b.CurrentPeriodStart, End: b.CurrentPeriodEnd}
}

// EffectiveFrequency resolves the frequency used for period math:
// the stored frequency when present, otherwise inferred from the span
// of the current period.
func (b *Benefit) EffectiveFrequency() Frequency {
	if b.Frequency.Valid() {
		return b.Frequency
	}
	return InferFrequency(b.CurrentPeriodStart, b.CurrentPeriodEnd)
}

// DaysRemaining returns whole days from today until the period end.
// Zero on the last day, negative once the period has lapsed.
func (b *Benefit) DaysRemaining(today Date) int {
	return DaysBetween(today, b.CurrentPeriodEnd)
}

// Lapsed reports whether the current period has elapsed.
func (b *Benefit) Lapsed(today Date) bool {
	return today.After(b.CurrentPeriodEnd)
}

// =============================================================================
// USAGE RECORD - Immutable redemption history
// =============================================================================

// UsageRecord is the historical fact that a benefit was redeemed in a
// given period window. CardName and BenefitName are denormalized
// snapshots taken at redemption time so that history remains readable
// after renames and card deletion. Never joined back to live state.
type UsageRecord struct {
	ID        UsageRecordID
	BenefitID BenefitID
	CardID    CardID

	CardName    string
	BenefitName string

	PeriodStart   Date
	PeriodEnd     Date
	ValueRedeemed decimal.Decimal

	UsedAt time.Time
}
