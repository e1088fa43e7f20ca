// Package coupon tracks non-recurring perishable items: a single
// expiration date and a binary used flag, no period machinery.
package coupon

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/benefit"
)

type ID string

type Coupon struct {
	ID        ID
	Name      string
	Merchant  string
	Value     decimal.Decimal
	ExpiresAt benefit.Date
	Used      bool
	CreatedAt time.Time
}

// DaysRemaining returns whole days until expiration; negative once past.
func (c *Coupon) DaysRemaining(today benefit.Date) int {
	return benefit.DaysBetween(today, c.ExpiresAt)
}

// Expired reports whether the coupon's date has passed unused.
func (c *Coupon) Expired(today benefit.Date) bool {
	return !c.Used && today.After(c.ExpiresAt)
}

// ExpiringSoon reports an unused coupon within leadDays of expiry.
func (c *Coupon) ExpiringSoon(today benefit.Date, leadDays int) bool {
	d := c.DaysRemaining(today)
	return !c.Used && d >= 0 && d <= leadDays
}

// Urgency classifies the coupon's days remaining.
func (c *Coupon) Urgency(today benefit.Date) benefit.Urgency {
	return benefit.ClassifyUrgency(c.DaysRemaining(today))
}

type Store interface {
	SaveCoupon(ctx context.Context, c *Coupon) error

	// GetCoupon returns nil, nil on a miss.
	GetCoupon(ctx context.Context, id ID) (*Coupon, error)

	ListCoupons(ctx context.Context) ([]Coupon, error)

	DeleteCoupon(ctx context.Context, id ID) error
}

// MarkUsed flips the used flag and persists. Idempotent: using a used
// coupon is a no-op, not an error.
func MarkUsed(ctx context.Context, store Store, id ID) (*Coupon, error) {
	c, err := store.GetCoupon(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &benefit.NotFoundError{Kind: "coupon", ID: string(id)}
	}
	if c.Used {
		return c, nil
	}
	c.Used = true
	if err := store.SaveCoupon(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
