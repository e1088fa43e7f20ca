/*
store.go - Persistence interfaces for the benefit engine

PURPOSE:
  The engine never issues queries of its own; it reads and writes whole
  entities through these interfaces. Implementations:
  - store/sqlite: production store
  - store/memory: in-memory store for tests

ATOMICITY:
  A state transition and its usage-record write must land together
  (a benefit must never be 'used' without its record, or vice versa).
  WithTx provides that unit; the memory store simulates it with a
  snapshot + rollback.
*/
package benefit

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CARD STORE
// =============================================================================

type CardStore interface {
	SaveCard(ctx context.Context, card *Card) error

	// GetCard returns nil, nil on a miss.
	GetCard(ctx context.Context, id CardID) (*Card, error)

	ListCards(ctx context.Context) ([]Card, error)

	// DeleteCard removes the card and cascades to its benefits.
	// Usage records survive: they carry their own name snapshots.
	DeleteCard(ctx context.Context, id CardID) error
}

// =============================================================================
// BENEFIT STORE
// =============================================================================

type BenefitStore interface {
	SaveBenefit(ctx context.Context, b *Benefit) error

	// GetBenefit returns nil, nil on a miss.
	GetBenefit(ctx context.Context, id BenefitID) (*Benefit, error)

	// ListBenefits returns all benefits owned by a card.
	ListBenefits(ctx context.Context, cardID CardID) ([]Benefit, error)

	// ListAllBenefits returns every benefit across all cards.
	ListAllBenefits(ctx context.Context) ([]Benefit, error)
}

// =============================================================================
// USAGE STORE - Redemption history
// =============================================================================

type UsageStore interface {
	InsertUsage(ctx context.Context, rec UsageRecord) error

	DeleteUsage(ctx context.Context, id UsageRecordID) error

	// LatestUsageForPeriod returns the most recent record matching the
	// benefit and exact period window, tie-broken by highest UsedAt.
	// nil, nil when none exists.
	LatestUsageForPeriod(ctx context.Context, id BenefitID, period Period) (*UsageRecord, error)

	// ListUsageInRange returns records whose period end falls in [from, to].
	ListUsageInRange(ctx context.Context, from, to Date) ([]UsageRecord, error)

	// SumRedeemedInRange totals ValueRedeemed over the same range.
	// Feeds the aggregator's ledger-accurate redemption mode.
	SumRedeemedInRange(ctx context.Context, from, to Date) (decimal.Decimal, error)
}

// =============================================================================
// COMBINED STORE
// =============================================================================

// Store is the full persistence collaborator for cards, benefits, and
// usage history.
type Store interface {
	CardStore
	BenefitStore
	UsageStore

	// WithTx executes fn atomically. If fn returns an error, none of
	// its writes are visible.
	WithTx(ctx context.Context, fn func(Store) error) error
}
