/*
Package reminder decides which local-notification instants to request
or cancel for benefits, subscriptions, coupons, and card fees.

The package owns only the scheduling DECISIONS. Delivery belongs to the
Transport collaborator (the OS notification scheduler in the app, a
sqlite table on the server, a recorder in tests). Requests are
fire-and-forget with best-effort delivery; nothing flows back.

Idempotency comes from deterministic identifiers: re-requesting with
the same id replaces rather than duplicates, and cancelling enumerates
a fixed id set per entity instead of a wildcard lookup.
*/
package reminder

import (
	"context"
	"log"
	"time"
)

// =============================================================================
// TRANSPORT - External notification collaborator
// =============================================================================

// Payload is what the notification renders. Kept minimal on purpose;
// the transport owns presentation.
type Payload struct {
	Kind  string `json:"kind"` // "benefit", "subscription", "coupon", "card_fee"
	Title string `json:"title"`
	Body  string `json:"body"`
	RefID string `json:"ref_id"`
}

// Transport accepts reminder requests and cancellations. Both are
// best-effort; errors are surfaced but no delivery confirmation exists.
type Transport interface {
	// Request schedules a reminder. Requesting an existing id replaces it.
	Request(ctx context.Context, id string, firesAt time.Time, payload Payload) error

	// Cancel removes the given ids. Unknown ids are ignored.
	Cancel(ctx context.Context, ids []string) error
}

// =============================================================================
// LOG TRANSPORT - Dry-run implementation
// =============================================================================

// LogTransport prints decisions instead of delivering them. Useful for
// dry runs and local development without a real scheduler.
type LogTransport struct{}

func (LogTransport) Request(_ context.Context, id string, firesAt time.Time, payload Payload) error {
	log.Printf("[Reminder] request %s at %s: %s", id, firesAt.Format(time.RFC3339), payload.Title)
	return nil
}

func (LogTransport) Cancel(_ context.Context, ids []string) error {
	log.Printf("[Reminder] cancel %d ids", len(ids))
	return nil
}
