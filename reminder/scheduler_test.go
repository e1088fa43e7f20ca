package reminder_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/benefit"
	"github.com/warp/benefit-engine/coupon"
	"github.com/warp/benefit-engine/reminder"
	"github.com/warp/benefit-engine/subscription"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// Fixed "now": March 1 2026, noon UTC.
var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func newTestScheduler(prefs reminder.Prefs) (*reminder.Scheduler, *reminder.MemoryTransport) {
	transport := reminder.NewMemoryTransport()
	s := reminder.NewScheduler(transport, prefs, time.UTC)
	s.Now = func() time.Time { return testNow }
	return s, transport
}

// marchBenefit ends its period on March 15 2026.
func marchBenefit(id string) *benefit.Benefit {
	return &benefit.Benefit{
		ID:                 benefit.BenefitID(id),
		Name:               "Dining Credit",
		Value:              decimal.NewFromInt(10),
		Frequency:          benefit.Monthly,
		Status:             benefit.StatusAvailable,
		CurrentPeriodStart: benefit.NewDate(2026, time.February, 15),
		CurrentPeriodEnd:   benefit.NewDate(2026, time.March, 15),
		NextReset:          benefit.NewDate(2026, time.March, 16),
	}
}

// =============================================================================
// BENEFIT SCHEDULING
// =============================================================================

func TestScheduleBenefit_RequestsEnabledTiers(t *testing.T) {
	// GIVEN: Default prefs (same-day always, 1d + 3d on, 7d off)
	// WHEN: Scheduling a benefit whose period ends March 15
	// THEN: Exactly three reminders exist with deterministic ids

	s, transport := newTestScheduler(reminder.DefaultPrefs())
	b := marchBenefit("ben-1")

	if err := s.ScheduleBenefit(context.Background(), b); err != nil {
		t.Fatalf("ScheduleBenefit: %v", err)
	}

	if got := len(transport.Outstanding()); got != 3 {
		t.Fatalf("outstanding = %d, want 3", got)
	}

	sameday, ok := transport.Get("benefit:ben-1:sameday")
	if !ok {
		t.Fatal("missing sameday reminder")
	}
	if want := time.Date(2026, time.March, 15, 8, 0, 0, 0, time.UTC); !sameday.FiresAt.Equal(want) {
		t.Errorf("sameday fires at %v, want %v (fixed morning hour)", sameday.FiresAt, want)
	}

	oneDay, ok := transport.Get("benefit:ben-1:1d")
	if !ok {
		t.Fatal("missing 1d reminder")
	}
	if want := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC); !oneDay.FiresAt.Equal(want) {
		t.Errorf("1d fires at %v, want %v (preferred time)", oneDay.FiresAt, want)
	}

	threeDay, ok := transport.Get("benefit:ben-1:3d")
	if !ok {
		t.Fatal("missing 3d reminder")
	}
	if want := time.Date(2026, time.March, 12, 9, 0, 0, 0, time.UTC); !threeDay.FiresAt.Equal(want) {
		t.Errorf("3d fires at %v, want %v", threeDay.FiresAt, want)
	}

	if _, ok := transport.Get("benefit:ben-1:7d"); ok {
		t.Error("7d reminder requested but the tier is off by default")
	}
}

func TestScheduleBenefit_Idempotent(t *testing.T) {
	// Requests replace on id: re-running yields the same set, no
	// duplicates.
	s, transport := newTestScheduler(reminder.DefaultPrefs())
	b := marchBenefit("ben-1")
	ctx := context.Background()

	if err := s.ScheduleBenefit(ctx, b); err != nil {
		t.Fatal(err)
	}
	if err := s.ScheduleBenefit(ctx, b); err != nil {
		t.Fatal(err)
	}

	if got := len(transport.Outstanding()); got != 3 {
		t.Errorf("outstanding after re-run = %d, want 3", got)
	}
}

func TestScheduleBenefit_SkipsPastTriggers(t *testing.T) {
	// Period ends today; the 08:00 same-day slot and every escalation
	// tier are already behind noon. Nothing is requested.
	s, transport := newTestScheduler(reminder.DefaultPrefs())
	b := marchBenefit("ben-1")
	b.CurrentPeriodEnd = benefit.NewDate(2026, time.March, 1)
	b.NextReset = benefit.NewDate(2026, time.March, 2)

	if err := s.ScheduleBenefit(context.Background(), b); err != nil {
		t.Fatal(err)
	}
	if got := len(transport.Outstanding()); got != 0 {
		t.Errorf("outstanding = %d, want 0 for past triggers", got)
	}
}

func TestScheduleBenefit_NonAvailable_Cancels(t *testing.T) {
	s, transport := newTestScheduler(reminder.DefaultPrefs())
	b := marchBenefit("ben-1")
	ctx := context.Background()

	if err := s.ScheduleBenefit(ctx, b); err != nil {
		t.Fatal(err)
	}

	b.Status = benefit.StatusUsed
	if err := s.ScheduleBenefit(ctx, b); err != nil {
		t.Fatal(err)
	}
	if got := len(transport.Outstanding()); got != 0 {
		t.Errorf("outstanding = %d, want 0 after benefit used", got)
	}
}

func TestScheduleBenefit_DisabledPrefs_Cancels(t *testing.T) {
	prefs := reminder.DefaultPrefs()
	s, transport := newTestScheduler(prefs)
	b := marchBenefit("ben-1")
	ctx := context.Background()

	if err := s.ScheduleBenefit(ctx, b); err != nil {
		t.Fatal(err)
	}

	s.Prefs.Enabled = false
	if err := s.ScheduleBenefit(ctx, b); err != nil {
		t.Fatal(err)
	}
	if got := len(transport.Outstanding()); got != 0 {
		t.Errorf("outstanding = %d, want 0 when notifications disabled", got)
	}
}

// =============================================================================
// SNOOZE
// =============================================================================

func TestSnoozeBenefit_SingleReplacement(t *testing.T) {
	// GIVEN: A benefit with a full tier set scheduled
	// WHEN: Snoozing (default 1 day)
	// THEN: Only the snoozed reminder survives, on tomorrow at the
	//       preferred time

	s, transport := newTestScheduler(reminder.DefaultPrefs())
	b := marchBenefit("ben-1")
	ctx := context.Background()
	today := benefit.NewDate(2026, time.March, 1)

	if err := s.ScheduleBenefit(ctx, b); err != nil {
		t.Fatal(err)
	}

	target, err := s.SnoozeBenefit(ctx, b, today)
	if err != nil {
		t.Fatalf("SnoozeBenefit: %v", err)
	}
	if want := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC); !target.Equal(want) {
		t.Errorf("snooze target = %v, want %v", target, want)
	}

	outstanding := transport.Outstanding()
	if len(outstanding) != 1 {
		t.Fatalf("outstanding = %d, want exactly the snoozed reminder", len(outstanding))
	}
	if _, ok := transport.Get("benefit:ben-1:snoozed"); !ok {
		t.Error("snoozed id missing")
	}
}

func TestSnoozeBenefit_LongerDistance(t *testing.T) {
	prefs := reminder.DefaultPrefs()
	prefs.SnoozeDays = 7
	s, _ := newTestScheduler(prefs)
	b := marchBenefit("ben-1")

	target, err := s.SnoozeBenefit(context.Background(), b, benefit.NewDate(2026, time.March, 1))
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2026, time.March, 8, 9, 0, 0, 0, time.UTC); !target.Equal(want) {
		t.Errorf("snooze target = %v, want %v", target, want)
	}
}

// =============================================================================
// CANCEL AND RECONCILE
// =============================================================================

func TestCancelBenefit_RemovesFullIdSet(t *testing.T) {
	s, transport := newTestScheduler(reminder.DefaultPrefs())
	b := marchBenefit("ben-1")
	ctx := context.Background()

	if err := s.ScheduleBenefit(ctx, b); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SnoozeBenefit(ctx, b, benefit.NewDate(2026, time.March, 1)); err != nil {
		t.Fatal(err)
	}

	if err := s.CancelBenefit(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if got := len(transport.Outstanding()); got != 0 {
		t.Errorf("outstanding = %d, want 0 after cancel", got)
	}
}

func TestCancelBenefit_UnknownIds_NoError(t *testing.T) {
	s, _ := newTestScheduler(reminder.DefaultPrefs())
	if err := s.CancelBenefit(context.Background(), "ghost"); err != nil {
		t.Fatalf("cancel of unknown ids should be a no-op, got %v", err)
	}
}

func TestReconcile_RebuildsFromState(t *testing.T) {
	// GIVEN: One available and one used benefit, plus a stale reminder
	//        for the used one
	// WHEN: Reconciling
	// THEN: Only the available benefit's reminders remain

	s, transport := newTestScheduler(reminder.DefaultPrefs())
	ctx := context.Background()

	avail := marchBenefit("avail")
	used := marchBenefit("used")
	if err := s.ScheduleBenefit(ctx, used); err != nil {
		t.Fatal(err)
	}
	used.Status = benefit.StatusUsed

	if err := s.Reconcile(ctx, []benefit.Benefit{*avail, *used}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if got := len(transport.Outstanding()); got != 3 {
		t.Errorf("outstanding = %d, want 3 (available benefit only)", got)
	}
	for _, id := range reminder.BenefitReminderIDs(used.ID) {
		if _, ok := transport.Get(id); ok {
			t.Errorf("stale reminder %s survived reconcile", id)
		}
	}
}

// =============================================================================
// SINGLE-TIER REMINDERS
// =============================================================================

func TestScheduleSubscription_LeadTime(t *testing.T) {
	s, transport := newTestScheduler(reminder.DefaultPrefs())
	sub := &subscription.Subscription{
		ID:       "sub-1",
		Name:     "Streaming",
		Amount:   decimal.NewFromInt(15),
		Cycle:    subscription.CycleMonthly,
		RenewsAt: benefit.NewDate(2026, time.March, 20),
		Active:   true,
	}

	if err := s.ScheduleSubscription(context.Background(), sub); err != nil {
		t.Fatal(err)
	}

	got, ok := transport.Get("subscription:sub-1:lead")
	if !ok {
		t.Fatal("missing subscription reminder")
	}
	// Default lead is 3 days before renewal.
	if want := time.Date(2026, time.March, 17, 9, 0, 0, 0, time.UTC); !got.FiresAt.Equal(want) {
		t.Errorf("fires at %v, want %v", got.FiresAt, want)
	}
}

func TestScheduleSubscription_Inactive_Cancels(t *testing.T) {
	s, transport := newTestScheduler(reminder.DefaultPrefs())
	sub := &subscription.Subscription{
		ID:       "sub-1",
		RenewsAt: benefit.NewDate(2026, time.March, 20),
		Active:   true,
	}
	ctx := context.Background()

	if err := s.ScheduleSubscription(ctx, sub); err != nil {
		t.Fatal(err)
	}
	sub.Active = false
	if err := s.ScheduleSubscription(ctx, sub); err != nil {
		t.Fatal(err)
	}
	if got := len(transport.Outstanding()); got != 0 {
		t.Errorf("outstanding = %d, want 0 for inactive subscription", got)
	}
}

func TestScheduleCoupon_UsedOrPast_Cancels(t *testing.T) {
	s, transport := newTestScheduler(reminder.DefaultPrefs())
	ctx := context.Background()

	c := &coupon.Coupon{
		ID:        "cpn-1",
		Name:      "Free Delivery",
		ExpiresAt: benefit.NewDate(2026, time.March, 10),
	}
	if err := s.ScheduleCoupon(ctx, c); err != nil {
		t.Fatal(err)
	}
	if _, ok := transport.Get("coupon:cpn-1:lead"); !ok {
		t.Fatal("missing coupon reminder")
	}

	c.Used = true
	if err := s.ScheduleCoupon(ctx, c); err != nil {
		t.Fatal(err)
	}
	if got := len(transport.Outstanding()); got != 0 {
		t.Errorf("outstanding = %d, want 0 for used coupon", got)
	}

	// A trigger already in the past never gets requested.
	past := &coupon.Coupon{ID: "cpn-2", ExpiresAt: benefit.NewDate(2026, time.March, 2)}
	if err := s.ScheduleCoupon(ctx, past); err != nil {
		t.Fatal(err)
	}
	if _, ok := transport.Get("coupon:cpn-2:lead"); ok {
		t.Error("past coupon trigger requested")
	}
}

func TestScheduleCardFee_RequiresFeeAndDueDate(t *testing.T) {
	s, transport := newTestScheduler(reminder.DefaultPrefs())
	ctx := context.Background()

	due := benefit.NewDate(2026, time.April, 1)
	card := &benefit.Card{
		ID:        "card-1",
		Name:      "Platinum",
		AnnualFee: decimal.NewFromInt(695),
		FeeDue:    &due,
	}
	if err := s.ScheduleCardFee(ctx, card); err != nil {
		t.Fatal(err)
	}
	got, ok := transport.Get("cardfee:card-1:lead")
	if !ok {
		t.Fatal("missing card fee reminder")
	}
	// Default lead is 7 days.
	if want := time.Date(2026, time.March, 25, 9, 0, 0, 0, time.UTC); !got.FiresAt.Equal(want) {
		t.Errorf("fires at %v, want %v", got.FiresAt, want)
	}

	card.FeeDue = nil
	if err := s.ScheduleCardFee(ctx, card); err != nil {
		t.Fatal(err)
	}
	if _, ok := transport.Get("cardfee:card-1:lead"); ok {
		t.Error("fee reminder survived clearing the due date")
	}
}
