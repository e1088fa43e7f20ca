/*
Package subscription tracks recurring paid subscriptions alongside card
benefits. Simpler than the benefit state machine: only active/inactive
plus a renewal-date cursor that advances monotonically, emitting a
Payment record per elapsed cycle.
*/
package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/benefit"
)

// =============================================================================
// TYPES
// =============================================================================

type ID string
type PaymentID string

type Cycle string

const (
	CycleMonthly Cycle = "monthly"
	CycleAnnual  Cycle = "annual"
)

// months per billing cycle; unknown cycles bill monthly.
func (c Cycle) months() int {
	if c == CycleAnnual {
		return 12
	}
	return 1
}

type Subscription struct {
	ID     ID
	Name   string
	Amount decimal.Decimal
	Cycle  Cycle

	// RenewsAt is the next renewal date. Only ever moves forward.
	RenewsAt benefit.Date

	Active    bool
	CreatedAt time.Time
}

// DaysUntilRenewal returns whole days from today to the renewal date.
func (s *Subscription) DaysUntilRenewal(today benefit.Date) int {
	return benefit.DaysBetween(today, s.RenewsAt)
}

// RenewingSoon reports whether the renewal falls within leadDays.
func (s *Subscription) RenewingSoon(today benefit.Date, leadDays int) bool {
	d := s.DaysUntilRenewal(today)
	return s.Active && d >= 0 && d <= leadDays
}

// Payment records one billed cycle, emitted when the cursor advances.
// Denormalizes the subscription name so history survives renames.
type Payment struct {
	ID             PaymentID
	SubscriptionID ID
	Name           string
	Amount         decimal.Decimal
	PaidAt         benefit.Date
	CreatedAt      time.Time
}

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	SaveSubscription(ctx context.Context, s *Subscription) error

	// GetSubscription returns nil, nil on a miss.
	GetSubscription(ctx context.Context, id ID) (*Subscription, error)

	ListSubscriptions(ctx context.Context) ([]Subscription, error)

	InsertPayment(ctx context.Context, p Payment) error

	ListPayments(ctx context.Context, id ID) ([]Payment, error)
}

// =============================================================================
// ADVANCE - The renewal cursor
// =============================================================================

// Advance moves the renewal cursor past today, one cycle at a time,
// returning a Payment per elapsed cycle. Pure; persistence is the
// service's job. Inactive subscriptions never advance.
func Advance(s *Subscription, today benefit.Date, now time.Time) []Payment {
	if !s.Active {
		return nil
	}

	var payments []Payment
	for s.RenewsAt.BeforeOrEqual(today) {
		payments = append(payments, Payment{
			ID:             PaymentID(uuid.NewString()),
			SubscriptionID: s.ID,
			Name:           s.Name,
			Amount:         s.Amount,
			PaidAt:         s.RenewsAt,
			CreatedAt:      now,
		})
		s.RenewsAt = s.RenewsAt.AddMonths(s.Cycle.months())
	}
	return payments
}

// =============================================================================
// SERVICE
// =============================================================================

// Service persists cursor advances.
type Service struct {
	Store Store
	Now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{Store: store, Now: time.Now}
}

func (svc *Service) now() time.Time {
	if svc.Now != nil {
		return svc.Now()
	}
	return time.Now()
}

// AdvanceDue advances one subscription and records its payments.
func (svc *Service) AdvanceDue(ctx context.Context, id ID, today benefit.Date) (*Subscription, []Payment, error) {
	s, err := svc.Store.GetSubscription(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if s == nil {
		return nil, nil, &benefit.NotFoundError{Kind: "subscription", ID: string(id)}
	}

	payments := Advance(s, today, svc.now())
	if len(payments) == 0 {
		return s, nil, nil
	}

	if err := svc.Store.SaveSubscription(ctx, s); err != nil {
		return nil, nil, err
	}
	for _, p := range payments {
		if err := svc.Store.InsertPayment(ctx, p); err != nil {
			return nil, nil, err
		}
	}
	return s, payments, nil
}

// AdvanceAllDue sweeps every active subscription whose renewal date has
// passed. Called by the background scheduler.
func (svc *Service) AdvanceAllDue(ctx context.Context, today benefit.Date) (int, error) {
	subs, err := svc.Store.ListSubscriptions(ctx)
	if err != nil {
		return 0, err
	}

	advanced := 0
	for i := range subs {
		s := &subs[i]
		payments := Advance(s, today, svc.now())
		if len(payments) == 0 {
			continue
		}
		if err := svc.Store.SaveSubscription(ctx, s); err != nil {
			return advanced, err
		}
		for _, p := range payments {
			if err := svc.Store.InsertPayment(ctx, p); err != nil {
				return advanced, err
			}
		}
		advanced++
	}
	return advanced, nil
}
