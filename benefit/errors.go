/*
errors.go - Centralized error types for the benefit engine

ERROR CATEGORIES:
  1. Transition errors - illegal state-machine moves (always recoverable,
     surfaced to the user as validation messages)
  2. Lookup errors - id-based misses (surfaced as no-op / already-gone)

The pure computation components (period math, frequency inference,
urgency, insight, aggregation) never return errors for valid input;
malformed date anchors degrade to safe defaults inside period.go.
*/
package benefit

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTransition is returned when a state-machine move is not
	// legal for the benefit's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotFound is returned on id-based lookup misses.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TransitionError reports an attempted move that the state machine
// rejected, with enough context for a user-facing message.
type TransitionError struct {
	BenefitID BenefitID
	From      Status
	Attempted string // "mark_used" or "undo"
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s benefit %s in status %q", e.Attempted, e.BenefitID, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// NotFoundError reports which entity was missing.
type NotFoundError struct {
	Kind string // "card", "benefit", "subscription", "coupon", "usage record"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to an invalid request
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
