/*
scheduler.go - Reminder scheduling decisions

TIERS:
  Benefits get an always-on same-day reminder (fixed 08:00 local) plus
  up to three escalation tiers (1 day / 3 days / 1 week before period
  end), each independently toggleable and fired at the user's preferred
  clock time. Subscriptions, coupons, and card fees get a single
  future-dated trigger at (due date - configured lead days).

IDENTIFIER SCHEME:
  benefit:<id>:<tier>    tier in {sameday, 1d, 3d, 7d, snoozed}
  subscription:<id>:lead
  coupon:<id>:lead
  cardfee:<id>:lead

  The id set per entity is fixed and enumerable, so cancellation never
  needs a wildcard lookup.
*/
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/benefit-engine/benefit"
	"github.com/warp/benefit-engine/coupon"
	"github.com/warp/benefit-engine/subscription"
)

// sameDayHour is the fixed local hour for same-day reminders.
const sameDayHour = 8

// =============================================================================
// PREFERENCES
// =============================================================================

// Prefs is the user-facing reminder configuration, consumed as plain
// booleans and integers.
type Prefs struct {
	Enabled bool

	// Per-tier enablement for benefit escalation reminders.
	OneDayBefore   bool
	ThreeDaysBefore bool
	OneWeekBefore  bool

	// Preferred clock time for non-same-day reminders.
	Hour   int // 0-23
	Minute int // 0-59

	// Single-tier lead times.
	CouponLeadDays       int
	SubscriptionLeadDays int
	CardFeeLeadDays      int

	// Snooze target distance: 1, 3, or 7 days.
	SnoozeDays int
}

// DefaultPrefs mirrors the out-of-box configuration.
func DefaultPrefs() Prefs {
	return Prefs{
		Enabled:              true,
		OneDayBefore:         true,
		ThreeDaysBefore:      true,
		OneWeekBefore:        false,
		Hour:                 9,
		Minute:               0,
		CouponLeadDays:       3,
		SubscriptionLeadDays: 3,
		CardFeeLeadDays:      7,
		SnoozeDays:           1,
	}
}

// =============================================================================
// TIERS AND IDENTIFIERS
// =============================================================================

type Tier struct {
	Key        string
	OffsetDays int
}

// escalation tiers, paired with the pref flag that gates each.
var (
	tierSameDay   = Tier{Key: "sameday", OffsetDays: 0}
	tierOneDay    = Tier{Key: "1d", OffsetDays: 1}
	tierThreeDays = Tier{Key: "3d", OffsetDays: 3}
	tierOneWeek   = Tier{Key: "7d", OffsetDays: 7}
)

func benefitReminderID(id benefit.BenefitID, tierKey string) string {
	return fmt.Sprintf("benefit:%s:%s", id, tierKey)
}

// BenefitReminderIDs enumerates every id the scheduler may have
// requested for a benefit, including the snooze id.
func BenefitReminderIDs(id benefit.BenefitID) []string {
	return []string{
		benefitReminderID(id, tierSameDay.Key),
		benefitReminderID(id, tierOneDay.Key),
		benefitReminderID(id, tierThreeDays.Key),
		benefitReminderID(id, tierOneWeek.Key),
		benefitReminderID(id, "snoozed"),
	}
}

func subscriptionReminderID(id subscription.ID) string {
	return fmt.Sprintf("subscription:%s:lead", id)
}

func couponReminderID(id coupon.ID) string {
	return fmt.Sprintf("coupon:%s:lead", id)
}

func cardFeeReminderID(id benefit.CardID) string {
	return fmt.Sprintf("cardfee:%s:lead", id)
}

// =============================================================================
// SCHEDULER
// =============================================================================

// Scheduler issues reminder decisions against the Transport. Calls for
// different entities are independent and order-insensitive; calls for
// the same entity must not be interleaved (cancel before re-request).
type Scheduler struct {
	Transport Transport
	Prefs     Prefs

	// Location builds local-time trigger instants. Defaults to UTC.
	Location *time.Location

	// Now decides whether a trigger is still in the future.
	Now func() time.Time
}

func NewScheduler(transport Transport, prefs Prefs, loc *time.Location) *Scheduler {
	return &Scheduler{Transport: transport, Prefs: prefs, Location: loc, Now: time.Now}
}

func (s *Scheduler) loc() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// enabledTiers returns the escalation tiers the prefs have switched on.
func (s *Scheduler) enabledTiers() []Tier {
	var tiers []Tier
	if s.Prefs.OneDayBefore {
		tiers = append(tiers, tierOneDay)
	}
	if s.Prefs.ThreeDaysBefore {
		tiers = append(tiers, tierThreeDays)
	}
	if s.Prefs.OneWeekBefore {
		tiers = append(tiers, tierOneWeek)
	}
	return tiers
}

// =============================================================================
// BENEFIT REMINDERS
// =============================================================================

// ScheduleBenefit requests one reminder per applicable tier whose
// trigger instant is still in the future. Re-running is idempotent:
// the same ids are re-requested and replace their predecessors.
// Non-available benefits and disabled notifications cancel instead.
func (s *Scheduler) ScheduleBenefit(ctx context.Context, b *benefit.Benefit) error {
	if !s.Prefs.Enabled || b.Status != benefit.StatusAvailable {
		return s.CancelBenefit(ctx, b.ID)
	}

	payload := Payload{
		Kind:  "benefit",
		Title: b.Name,
		Body:  fmt.Sprintf("%s credit expires %s", b.Value.StringFixed(2), b.CurrentPeriodEnd),
		RefID: string(b.ID),
	}

	// Always-on same-day reminder at the fixed morning hour.
	firesAt := b.CurrentPeriodEnd.At(sameDayHour, 0, s.loc())
	if firesAt.After(s.now()) {
		if err := s.Transport.Request(ctx, benefitReminderID(b.ID, tierSameDay.Key), firesAt, payload); err != nil {
			return err
		}
	}

	for _, tier := range s.enabledTiers() {
		trigger := b.CurrentPeriodEnd.AddDays(-tier.OffsetDays).At(s.Prefs.Hour, s.Prefs.Minute, s.loc())
		if !trigger.After(s.now()) {
			continue
		}
		if err := s.Transport.Request(ctx, benefitReminderID(b.ID, tier.Key), trigger, payload); err != nil {
			return err
		}
	}
	return nil
}

// SnoozeBenefit cancels every tier-keyed reminder and requests exactly
// one replacement on the snooze target date at the preferred time.
// Returns the snooze instant so the caller can stamp LastReminderAt.
func (s *Scheduler) SnoozeBenefit(ctx context.Context, b *benefit.Benefit, today benefit.Date) (time.Time, error) {
	if err := s.Transport.Cancel(ctx, BenefitReminderIDs(b.ID)); err != nil {
		return time.Time{}, err
	}

	days := s.Prefs.SnoozeDays
	if days <= 0 {
		days = 1
	}
	target := today.AddDays(days).At(s.Prefs.Hour, s.Prefs.Minute, s.loc())

	payload := Payload{
		Kind:  "benefit",
		Title: b.Name,
		Body:  fmt.Sprintf("snoozed reminder: %s credit expires %s", b.Value.StringFixed(2), b.CurrentPeriodEnd),
		RefID: string(b.ID),
	}
	if err := s.Transport.Request(ctx, benefitReminderID(b.ID, "snoozed"), target, payload); err != nil {
		return time.Time{}, err
	}
	return target, nil
}

// CancelBenefit removes the benefit's full reminder id set: every tier
// plus the snooze id. Called when a benefit is used, reset, or its
// card is deleted.
func (s *Scheduler) CancelBenefit(ctx context.Context, id benefit.BenefitID) error {
	return s.Transport.Cancel(ctx, BenefitReminderIDs(id))
}

// Reconcile cancels all outstanding reminders for the whole benefit
// set, then re-runs the scheduling decision for every available
// benefit. A full rebuild rather than a diff; correctness over
// efficiency.
func (s *Scheduler) Reconcile(ctx context.Context, benefits []benefit.Benefit) error {
	var ids []string
	for i := range benefits {
		ids = append(ids, BenefitReminderIDs(benefits[i].ID)...)
	}
	if len(ids) > 0 {
		if err := s.Transport.Cancel(ctx, ids); err != nil {
			return err
		}
	}

	if !s.Prefs.Enabled {
		return nil
	}
	for i := range benefits {
		b := &benefits[i]
		if b.Status != benefit.StatusAvailable {
			continue
		}
		if err := s.ScheduleBenefit(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SINGLE-TIER REMINDERS - Subscriptions, coupons, card fees
// =============================================================================

// ScheduleSubscription requests the single renewal reminder at
// (renewal date - lead days), or cancels it when inactive or past.
func (s *Scheduler) ScheduleSubscription(ctx context.Context, sub *subscription.Subscription) error {
	id := subscriptionReminderID(sub.ID)
	if !s.Prefs.Enabled || !sub.Active {
		return s.Transport.Cancel(ctx, []string{id})
	}

	trigger := sub.RenewsAt.AddDays(-s.Prefs.SubscriptionLeadDays).At(s.Prefs.Hour, s.Prefs.Minute, s.loc())
	if !trigger.After(s.now()) {
		return s.Transport.Cancel(ctx, []string{id})
	}
	return s.Transport.Request(ctx, id, trigger, Payload{
		Kind:  "subscription",
		Title: sub.Name,
		Body:  fmt.Sprintf("renews %s for %s", sub.RenewsAt, sub.Amount.StringFixed(2)),
		RefID: string(sub.ID),
	})
}

// ScheduleCoupon requests the single expiry reminder at
// (expiration - lead days), or cancels it once used or past.
func (s *Scheduler) ScheduleCoupon(ctx context.Context, c *coupon.Coupon) error {
	id := couponReminderID(c.ID)
	if !s.Prefs.Enabled || c.Used {
		return s.Transport.Cancel(ctx, []string{id})
	}

	trigger := c.ExpiresAt.AddDays(-s.Prefs.CouponLeadDays).At(s.Prefs.Hour, s.Prefs.Minute, s.loc())
	if !trigger.After(s.now()) {
		return s.Transport.Cancel(ctx, []string{id})
	}
	return s.Transport.Request(ctx, id, trigger, Payload{
		Kind:  "coupon",
		Title: c.Name,
		Body:  fmt.Sprintf("expires %s", c.ExpiresAt),
		RefID: string(c.ID),
	})
}

// ScheduleCardFee requests the single annual-fee reminder. Cards with
// no fee or no due date cancel instead.
func (s *Scheduler) ScheduleCardFee(ctx context.Context, card *benefit.Card) error {
	id := cardFeeReminderID(card.ID)
	if !s.Prefs.Enabled || card.FeeDue == nil || !card.AnnualFee.IsPositive() {
		return s.Transport.Cancel(ctx, []string{id})
	}

	trigger := card.FeeDue.AddDays(-s.Prefs.CardFeeLeadDays).At(s.Prefs.Hour, s.Prefs.Minute, s.loc())
	if !trigger.After(s.now()) {
		return s.Transport.Cancel(ctx, []string{id})
	}
	return s.Transport.Request(ctx, id, trigger, Payload{
		Kind:  "card_fee",
		Title: card.Name,
		Body:  fmt.Sprintf("annual fee %s due %s", card.AnnualFee.StringFixed(2), *card.FeeDue),
		RefID: string(card.ID),
	})
}
