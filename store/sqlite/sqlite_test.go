package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/benefit-engine/benefit"
	"github.com/warp/benefit-engine/coupon"
	"github.com/warp/benefit-engine/reminder"
	"github.com/warp/benefit-engine/store/sqlite"
	"github.com/warp/benefit-engine/subscription"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedCard(t *testing.T, store *sqlite.Store, id string) *benefit.Card {
	t.Helper()
	due := benefit.NewDate(2027, time.January, 15)
	card := &benefit.Card{
		ID:        benefit.CardID(id),
		Name:      "Sapphire Reserve",
		Issuer:    "Chase",
		AnnualFee: decimal.NewFromInt(550),
		FeeDue:    &due,
		OpenedAt:  benefit.NewDate(2026, time.January, 15),
		CreatedAt: time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveCard(context.Background(), card))
	return card
}

func seedBenefit(t *testing.T, store *sqlite.Store, id, cardID string) *benefit.Benefit {
	t.Helper()
	b := &benefit.Benefit{
		ID:                 benefit.BenefitID(id),
		CardID:             benefit.CardID(cardID),
		Name:               "DoorDash Credit",
		Category:           "dining",
		Value:              decimal.NewFromInt(5),
		Frequency:          benefit.Monthly,
		Status:             benefit.StatusAvailable,
		CurrentPeriodStart: benefit.NewDate(2026, time.January, 1),
		CurrentPeriodEnd:   benefit.NewDate(2026, time.January, 31),
		NextReset:          benefit.NewDate(2026, time.February, 1),
		CreatedAt:          time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveBenefit(context.Background(), b))
	return b
}

func usageRecord(id, benefitID, cardID string, value int64, usedAt time.Time) benefit.UsageRecord {
	return benefit.UsageRecord{
		ID:            benefit.UsageRecordID(id),
		BenefitID:     benefit.BenefitID(benefitID),
		CardID:        benefit.CardID(cardID),
		CardName:      "Sapphire Reserve",
		BenefitName:   "DoorDash Credit",
		PeriodStart:   benefit.NewDate(2026, time.January, 1),
		PeriodEnd:     benefit.NewDate(2026, time.January, 31),
		ValueRedeemed: decimal.NewFromInt(value),
		UsedAt:        usedAt,
	}
}

// =============================================================================
// CARDS AND BENEFITS
// =============================================================================

func TestCard_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	card := seedCard(t, store, "card-1")

	got, err := store.GetCard(ctx, "card-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, card.Name, got.Name)
	assert.True(t, got.AnnualFee.Equal(decimal.NewFromInt(550)))
	require.NotNil(t, got.FeeDue)
	assert.True(t, got.FeeDue.Equal(*card.FeeDue))
	assert.True(t, got.OpenedAt.Equal(card.OpenedAt))
}

func TestCard_GetMissing_ReturnsNil(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetCard(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCard_SaveIsUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	card := seedCard(t, store, "card-1")
	card.Name = "Renamed"
	card.FeeDue = nil
	require.NoError(t, store.SaveCard(ctx, card))

	got, err := store.GetCard(ctx, "card-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Nil(t, got.FeeDue)

	cards, err := store.ListCards(ctx)
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestBenefit_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedCard(t, store, "card-1")
	b := seedBenefit(t, store, "ben-1", "card-1")

	snooze := time.Date(2026, time.January, 20, 9, 0, 0, 0, time.UTC)
	b.Status = benefit.StatusUsed
	b.LastReminderAt = &snooze
	b.ReminderHandle = "handle-7"
	require.NoError(t, store.SaveBenefit(ctx, b))

	got, err := store.GetBenefit(ctx, "ben-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, benefit.StatusUsed, got.Status)
	assert.Equal(t, benefit.Monthly, got.Frequency)
	assert.True(t, got.CurrentPeriodEnd.Equal(benefit.NewDate(2026, time.January, 31)))
	require.NotNil(t, got.LastReminderAt)
	assert.True(t, got.LastReminderAt.Equal(snooze))
	assert.Equal(t, "handle-7", got.ReminderHandle)
}

func TestDeleteCard_CascadesBenefits_KeepsUsage(t *testing.T) {
	// GIVEN: A card with a benefit and a redemption record
	// WHEN: Deleting the card
	// THEN: The benefit cascades away; the usage record survives with
	//       its name snapshots intact

	store := newTestStore(t)
	ctx := context.Background()

	seedCard(t, store, "card-1")
	seedBenefit(t, store, "ben-1", "card-1")
	rec := usageRecord("use-1", "ben-1", "card-1", 5, time.Now().UTC())
	require.NoError(t, store.InsertUsage(ctx, rec))

	require.NoError(t, store.DeleteCard(ctx, "card-1"))

	gotBenefit, err := store.GetBenefit(ctx, "ben-1")
	require.NoError(t, err)
	assert.Nil(t, gotBenefit, "benefit should cascade with the card")

	records, err := store.ListUsageInRange(ctx,
		benefit.NewDate(2026, time.January, 1), benefit.NewDate(2026, time.December, 31))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Sapphire Reserve", records[0].CardName)
	assert.Equal(t, "DoorDash Credit", records[0].BenefitName)
}

// =============================================================================
// USAGE RECORDS
// =============================================================================

func TestLatestUsageForPeriod_TieBreaksOnInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedCard(t, store, "card-1")
	b := seedBenefit(t, store, "ben-1", "card-1")

	// Two records with the same UsedAt: the later insertion wins.
	at := time.Date(2026, time.January, 20, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertUsage(ctx, usageRecord("use-1", "ben-1", "card-1", 5, at)))
	require.NoError(t, store.InsertUsage(ctx, usageRecord("use-2", "ben-1", "card-1", 5, at)))

	got, err := store.LatestUsageForPeriod(ctx, "ben-1", b.Period())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, benefit.UsageRecordID("use-2"), got.ID)
}

func TestLatestUsageForPeriod_ScopedToPeriodWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedCard(t, store, "card-1")
	b := seedBenefit(t, store, "ben-1", "card-1")

	old := usageRecord("use-old", "ben-1", "card-1", 5, time.Now().UTC())
	old.PeriodStart = benefit.NewDate(2025, time.December, 1)
	old.PeriodEnd = benefit.NewDate(2025, time.December, 31)
	require.NoError(t, store.InsertUsage(ctx, old))

	got, err := store.LatestUsageForPeriod(ctx, "ben-1", b.Period())
	require.NoError(t, err)
	assert.Nil(t, got, "previous-period record must not match")
}

func TestSumRedeemedInRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedCard(t, store, "card-1")
	seedBenefit(t, store, "ben-1", "card-1")

	now := time.Now().UTC()
	a := usageRecord("use-1", "ben-1", "card-1", 5, now)
	b := usageRecord("use-2", "ben-1", "card-1", 10, now)
	b.ValueRedeemed = decimal.RequireFromString("10.50")
	out := usageRecord("use-3", "ben-1", "card-1", 99, now)
	out.PeriodEnd = benefit.NewDate(2026, time.March, 31)

	for _, rec := range []benefit.UsageRecord{a, b, out} {
		require.NoError(t, store.InsertUsage(ctx, rec))
	}

	sum, err := store.SumRedeemedInRange(ctx,
		benefit.NewDate(2026, time.January, 1), benefit.NewDate(2026, time.January, 31))
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("15.50")), "sum = %s", sum)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedCard(t, store, "card-1")
	b := seedBenefit(t, store, "ben-1", "card-1")

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx benefit.Store) error {
		b.Status = benefit.StatusUsed
		if err := tx.SaveBenefit(ctx, b); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.GetBenefit(ctx, "ben-1")
	require.NoError(t, err)
	assert.Equal(t, benefit.StatusAvailable, got.Status, "write must roll back")
}

func TestWithTx_CommitsBothWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedCard(t, store, "card-1")
	b := seedBenefit(t, store, "ben-1", "card-1")

	rec := usageRecord("use-1", "ben-1", "card-1", 5, time.Now().UTC())
	err := store.WithTx(ctx, func(tx benefit.Store) error {
		b.Status = benefit.StatusUsed
		if err := tx.SaveBenefit(ctx, b); err != nil {
			return err
		}
		return tx.InsertUsage(ctx, rec)
	})
	require.NoError(t, err)

	got, err := store.GetBenefit(ctx, "ben-1")
	require.NoError(t, err)
	assert.Equal(t, benefit.StatusUsed, got.Status)

	latest, err := store.LatestUsageForPeriod(ctx, "ben-1", b.Period())
	require.NoError(t, err)
	require.NotNil(t, latest)
}

// =============================================================================
// SUBSCRIPTIONS AND COUPONS
// =============================================================================

func TestSubscription_RoundTripAndPayments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sub := &subscription.Subscription{
		ID:        "sub-1",
		Name:      "Streaming",
		Amount:    decimal.RequireFromString("15.99"),
		Cycle:     subscription.CycleMonthly,
		RenewsAt:  benefit.NewDate(2026, time.April, 1),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveSubscription(ctx, sub))

	got, err := store.GetSubscription(ctx, "sub-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Amount.Equal(sub.Amount))
	assert.True(t, got.Active)

	p := subscription.Payment{
		ID:             "pay-1",
		SubscriptionID: "sub-1",
		Name:           "Streaming",
		Amount:         sub.Amount,
		PaidAt:         benefit.NewDate(2026, time.March, 1),
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, store.InsertPayment(ctx, p))

	payments, err := store.ListPayments(ctx, "sub-1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].PaidAt.Equal(p.PaidAt))
}

func TestCoupon_RoundTripAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := &coupon.Coupon{
		ID:        "cpn-1",
		Name:      "Free Delivery",
		Merchant:  "DoorDash",
		Value:     decimal.NewFromInt(8),
		ExpiresAt: benefit.NewDate(2026, time.February, 14),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveCoupon(ctx, c))

	got, err := store.GetCoupon(ctx, "cpn-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Used)

	c.Used = true
	require.NoError(t, store.SaveCoupon(ctx, c))
	got, err = store.GetCoupon(ctx, "cpn-1")
	require.NoError(t, err)
	assert.True(t, got.Used)

	require.NoError(t, store.DeleteCoupon(ctx, "cpn-1"))
	got, err = store.GetCoupon(ctx, "cpn-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// =============================================================================
// REMINDER TRANSPORT
// =============================================================================

func TestReminderTransport_RequestUpsertsAndCancelDeletes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	payload := reminder.Payload{Kind: "benefit", Title: "Dining Credit", RefID: "ben-1"}
	first := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Request(ctx, "benefit:ben-1:1d", first, payload))

	// Re-request replaces rather than duplicates.
	second := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Request(ctx, "benefit:ben-1:1d", second, payload))

	pending, err := store.PendingReminders(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].FiresAt.Equal(second))
	assert.Equal(t, "ben-1", pending[0].Payload.RefID)

	// Cancel ignores unknown ids alongside real ones.
	require.NoError(t, store.Cancel(ctx, []string{"benefit:ben-1:1d", "benefit:ghost:3d"}))
	pending, err = store.PendingReminders(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReminderTransport_CancelEmptyList_NoOp(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Cancel(context.Background(), nil))
}
