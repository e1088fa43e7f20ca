/*
insight.go - Single-banner insight resolution

PURPOSE:
  Picks exactly one "insight" to surface from the current aggregate
  state, by fixed precedence. Stateless: re-derived on every data load,
  never persisted, no memory of what was shown before.

PRECEDENCE (first match wins):
  1. benefit expiring today
  2. annual fee due within 7 days (fee > 0)
  3. subscription renewing within 7 days
  4. coupon expiring within 3 days
  5. available value above the high-value threshold
  6. more than half of benefits used (non-empty set)
  7. no benefits at all -> onboarding
  8. none
*/
package benefit

import "github.com/shopspring/decimal"

// =============================================================================
// INSIGHT - Tagged variant with just enough payload to render
// =============================================================================

type InsightKind string

const (
	InsightUrgentExpiring       InsightKind = "urgent_expiring"
	InsightAnnualFeeDue         InsightKind = "annual_fee_due"
	InsightSubscriptionsRenewing InsightKind = "subscriptions_renewing"
	InsightCouponsExpiring      InsightKind = "coupons_expiring"
	InsightAvailableValue       InsightKind = "available_value"
	InsightMonthlySuccess       InsightKind = "monthly_success"
	InsightOnboarding           InsightKind = "onboarding"
)

type Insight struct {
	Kind  InsightKind
	Count int
	Value decimal.Decimal
}

// highValueThreshold is in currency units; above it the available-value
// banner fires.
var highValueThreshold = decimal.NewFromInt(100)

// =============================================================================
// RESOLVER
// =============================================================================

// InsightInput is the aggregate state the resolver reads. Callers fill
// the optional cross-entity counts (subscriptions, coupons, fees) with
// zero when those features are absent.
type InsightInput struct {
	ExpiringTodayCount int
	ExpiringTodayValue decimal.Decimal

	TotalAvailableValue decimal.Decimal
	UsedCount           int
	TotalCount          int
	RedeemedThisMonth   decimal.Decimal

	SubscriptionsRenewingSoon int             // within 7 days
	CouponsExpiringSoon       int             // within 3 days
	AnnualFeeDueSoon          decimal.Decimal // zero when no fee due within 7 days
}

// ResolveInsight returns the single highest-priority insight, or nil.
func ResolveInsight(in InsightInput) *Insight {
	switch {
	case in.ExpiringTodayCount > 0:
		return &Insight{Kind: InsightUrgentExpiring, Count: in.ExpiringTodayCount, Value: in.ExpiringTodayValue}

	case in.AnnualFeeDueSoon.IsPositive():
		return &Insight{Kind: InsightAnnualFeeDue, Count: 1, Value: in.AnnualFeeDueSoon}

	case in.SubscriptionsRenewingSoon > 0:
		return &Insight{Kind: InsightSubscriptionsRenewing, Count: in.SubscriptionsRenewingSoon}

	case in.CouponsExpiringSoon > 0:
		return &Insight{Kind: InsightCouponsExpiring, Count: in.CouponsExpiringSoon}

	case in.TotalAvailableValue.GreaterThan(highValueThreshold):
		return &Insight{Kind: InsightAvailableValue, Value: in.TotalAvailableValue}

	case in.TotalCount > 0 && in.UsedCount > in.TotalCount/2:
		return &Insight{Kind: InsightMonthlySuccess, Count: in.UsedCount, Value: in.RedeemedThisMonth}

	case in.TotalCount == 0:
		return &Insight{Kind: InsightOnboarding}

	default:
		return nil
	}
}
