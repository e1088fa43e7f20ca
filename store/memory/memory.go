// Package memory provides an in-memory implementation of the benefit,
// subscription, and coupon stores (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/benefit"
	"github.com/warp/benefit-engine/coupon"
	"github.com/warp/benefit-engine/subscription"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	cards    map[benefit.CardID]benefit.Card
	benefits map[benefit.BenefitID]benefit.Benefit
	usage    []benefit.UsageRecord
	subs     map[subscription.ID]subscription.Subscription
	payments []subscription.Payment
	coupons  map[coupon.ID]coupon.Coupon
}

func New() *Memory {
	return &Memory{
		cards:    make(map[benefit.CardID]benefit.Card),
		benefits: make(map[benefit.BenefitID]benefit.Benefit),
		subs:     make(map[subscription.ID]subscription.Subscription),
		coupons:  make(map[coupon.ID]coupon.Coupon),
	}
}

// Interface checks.
var (
	_ benefit.Store      = (*Memory)(nil)
	_ subscription.Store = (*Memory)(nil)
	_ coupon.Store       = (*Memory)(nil)
)

// =============================================================================
// CARDS
// =============================================================================

func (m *Memory) SaveCard(_ context.Context, card *benefit.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[card.ID] = *card
	return nil
}

func (m *Memory) GetCard(_ context.Context, id benefit.CardID) (*benefit.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.cards[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *Memory) ListCards(_ context.Context) ([]benefit.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]benefit.Card, 0, len(m.cards))
	for _, c := range m.cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteCard cascades to the card's benefits. Usage records survive on
// purpose: they carry their own name snapshots.
func (m *Memory) DeleteCard(_ context.Context, id benefit.CardID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cards, id)
	for bid, b := range m.benefits {
		if b.CardID == id {
			delete(m.benefits, bid)
		}
	}
	return nil
}

// =============================================================================
// BENEFITS
// =============================================================================

func (m *Memory) SaveBenefit(_ context.Context, b *benefit.Benefit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.benefits[b.ID] = *b
	return nil
}

func (m *Memory) GetBenefit(_ context.Context, id benefit.BenefitID) (*benefit.Benefit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.benefits[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (m *Memory) ListBenefits(_ context.Context, cardID benefit.CardID) ([]benefit.Benefit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []benefit.Benefit
	for _, b := range m.benefits {
		if b.CardID == cardID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListAllBenefits(_ context.Context) ([]benefit.Benefit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]benefit.Benefit, 0, len(m.benefits))
	for _, b := range m.benefits {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// USAGE RECORDS
// =============================================================================

func (m *Memory) InsertUsage(_ context.Context, rec benefit.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = append(m.usage, rec)
	return nil
}

func (m *Memory) DeleteUsage(_ context.Context, id benefit.UsageRecordID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rec := range m.usage {
		if rec.ID == id {
			m.usage = append(m.usage[:i], m.usage[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) LatestUsageForPeriod(_ context.Context, id benefit.BenefitID, period benefit.Period) (*benefit.UsageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *benefit.UsageRecord
	for i := range m.usage {
		rec := m.usage[i]
		if rec.BenefitID != id || !rec.PeriodStart.Equal(period.Start) || !rec.PeriodEnd.Equal(period.End) {
			continue
		}
		// >= keeps the later insertion on UsedAt ties.
		if best == nil || !rec.UsedAt.Before(best.UsedAt) {
			best = &rec
		}
	}
	if best == nil {
		return nil, nil
	}
	out := *best
	return &out, nil
}

func (m *Memory) ListUsageInRange(_ context.Context, from, to benefit.Date) ([]benefit.UsageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []benefit.UsageRecord
	for _, rec := range m.usage {
		if rec.PeriodEnd.AfterOrEqual(from) && rec.PeriodEnd.BeforeOrEqual(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *Memory) SumRedeemedInRange(_ context.Context, from, to benefit.Date) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, rec := range m.usage {
		if rec.PeriodEnd.AfterOrEqual(from) && rec.PeriodEnd.BeforeOrEqual(to) {
			sum = sum.Add(rec.ValueRedeemed)
		}
	}
	return sum, nil
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

func (m *Memory) SaveSubscription(_ context.Context, s *subscription.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[s.ID] = *s
	return nil
}

func (m *Memory) GetSubscription(_ context.Context, id subscription.ID) (*subscription.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.subs[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *Memory) ListSubscriptions(_ context.Context) ([]subscription.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]subscription.Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) InsertPayment(_ context.Context, p subscription.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, p)
	return nil
}

func (m *Memory) ListPayments(_ context.Context, id subscription.ID) ([]subscription.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []subscription.Payment
	for _, p := range m.payments {
		if p.SubscriptionID == id {
			out = append(out, p)
		}
	}
	return out, nil
}

// =============================================================================
// COUPONS
// =============================================================================

func (m *Memory) SaveCoupon(_ context.Context, c *coupon.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coupons[c.ID] = *c
	return nil
}

func (m *Memory) GetCoupon(_ context.Context, id coupon.ID) (*coupon.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.coupons[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *Memory) ListCoupons(_ context.Context) ([]coupon.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]coupon.Coupon, 0, len(m.coupons))
	for _, c := range m.coupons {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteCoupon(_ context.Context, id coupon.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.coupons, id)
	return nil
}

// =============================================================================
// TRANSACTIONS - Snapshot + rollback
// =============================================================================

// WithTx simulates atomicity with a snapshot restored on error. The
// callback runs against an unlocked view while this call holds the
// write lock.
func (m *Memory) WithTx(ctx context.Context, fn func(benefit.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	cards    map[benefit.CardID]benefit.Card
	benefits map[benefit.BenefitID]benefit.Benefit
	usage    []benefit.UsageRecord
}

func (m *Memory) snapshot() memorySnapshot {
	cards := make(map[benefit.CardID]benefit.Card, len(m.cards))
	for k, v := range m.cards {
		cards[k] = v
	}
	benefits := make(map[benefit.BenefitID]benefit.Benefit, len(m.benefits))
	for k, v := range m.benefits {
		benefits[k] = v
	}
	usage := append([]benefit.UsageRecord{}, m.usage...)
	return memorySnapshot{cards: cards, benefits: benefits, usage: usage}
}

func (m *Memory) restore(s memorySnapshot) {
	m.cards = s.cards
	m.benefits = s.benefits
	m.usage = s.usage
}

// txView exposes the parent's state without re-locking; only valid
// while WithTx holds the lock.
type txView struct {
	parent *Memory
}

var _ benefit.Store = (*txView)(nil)

func (v *txView) SaveCard(_ context.Context, card *benefit.Card) error {
	v.parent.cards[card.ID] = *card
	return nil
}

func (v *txView) GetCard(_ context.Context, id benefit.CardID) (*benefit.Card, error) {
	if c, ok := v.parent.cards[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (v *txView) ListCards(_ context.Context) ([]benefit.Card, error) {
	out := make([]benefit.Card, 0, len(v.parent.cards))
	for _, c := range v.parent.cards {
		out = append(out, c)
	}
	return out, nil
}

func (v *txView) DeleteCard(_ context.Context, id benefit.CardID) error {
	delete(v.parent.cards, id)
	for bid, b := range v.parent.benefits {
		if b.CardID == id {
			delete(v.parent.benefits, bid)
		}
	}
	return nil
}

func (v *txView) SaveBenefit(_ context.Context, b *benefit.Benefit) error {
	v.parent.benefits[b.ID] = *b
	return nil
}

func (v *txView) GetBenefit(_ context.Context, id benefit.BenefitID) (*benefit.Benefit, error) {
	if b, ok := v.parent.benefits[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (v *txView) ListBenefits(_ context.Context, cardID benefit.CardID) ([]benefit.Benefit, error) {
	var out []benefit.Benefit
	for _, b := range v.parent.benefits {
		if b.CardID == cardID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (v *txView) ListAllBenefits(_ context.Context) ([]benefit.Benefit, error) {
	out := make([]benefit.Benefit, 0, len(v.parent.benefits))
	for _, b := range v.parent.benefits {
		out = append(out, b)
	}
	return out, nil
}

func (v *txView) InsertUsage(_ context.Context, rec benefit.UsageRecord) error {
	v.parent.usage = append(v.parent.usage, rec)
	return nil
}

func (v *txView) DeleteUsage(_ context.Context, id benefit.UsageRecordID) error {
	for i, rec := range v.parent.usage {
		if rec.ID == id {
			v.parent.usage = append(v.parent.usage[:i], v.parent.usage[i+1:]...)
			return nil
		}
	}
	return nil
}

func (v *txView) LatestUsageForPeriod(ctx context.Context, id benefit.BenefitID, period benefit.Period) (*benefit.UsageRecord, error) {
	var best *benefit.UsageRecord
	for i := range v.parent.usage {
		rec := v.parent.usage[i]
		if rec.BenefitID != id || !rec.PeriodStart.Equal(period.Start) || !rec.PeriodEnd.Equal(period.End) {
			continue
		}
		if best == nil || !rec.UsedAt.Before(best.UsedAt) {
			best = &rec
		}
	}
	if best == nil {
		return nil, nil
	}
	out := *best
	return &out, nil
}

func (v *txView) ListUsageInRange(_ context.Context, from, to benefit.Date) ([]benefit.UsageRecord, error) {
	var out []benefit.UsageRecord
	for _, rec := range v.parent.usage {
		if rec.PeriodEnd.AfterOrEqual(from) && rec.PeriodEnd.BeforeOrEqual(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (v *txView) SumRedeemedInRange(_ context.Context, from, to benefit.Date) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, rec := range v.parent.usage {
		if rec.PeriodEnd.AfterOrEqual(from) && rec.PeriodEnd.BeforeOrEqual(to) {
			sum = sum.Add(rec.ValueRedeemed)
		}
	}
	return sum, nil
}

func (v *txView) WithTx(ctx context.Context, fn func(benefit.Store) error) error {
	return fn(v)
}
