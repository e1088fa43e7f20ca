/*
state.go - The benefit state machine

PURPOSE:
  Enforces the legal status transitions over a benefit's redemption
  state and rolls benefits into new periods:

    available --markUsed--> used
    used --undoMarkUsed--> available   (same period only)
    available --expire sweep--> expired (period lapsed, never redeemed)
    any --rollover--> available         (with a fresh period)

  markUsed emits an immutable UsageRecord snapshotting period bounds,
  value, and display names at time of use; undoMarkUsed deletes the
  most recent matching record for the same period window.

GUARDS:
  CanMarkUsed / CanUndo are the pure predicates the UI gates on. They
  must stay in lockstep with the transition checks below; the tests
  exercise both together.
*/
package benefit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// PURE GUARDS AND TRANSITIONS
// =============================================================================

// CanMarkUsed reports whether markUsed is legal for the benefit.
func CanMarkUsed(b *Benefit) bool {
	return b.Status == StatusAvailable
}

// CanUndo reports whether undoMarkUsed is legal. A rollover flips the
// status back to available, so a 'used' status always refers to the
// current period; there is nothing older to undo into.
func CanUndo(b *Benefit) bool {
	return b.Status == StatusUsed
}

// Rollover advances the benefit into new periods until today falls
// inside the current one, resolving the effective frequency per step
// and recomputing bounds via the period calculator. Snooze and
// reminder state are cleared so notifications reschedule fresh.
//
// No-op while today <= CurrentPeriodEnd, which is what makes calling
// it twice with no time passing yield identical bounds.
//
// Returns true if the period advanced.
func Rollover(b *Benefit, today Date) bool {
	if !b.Lapsed(today) {
		return false
	}

	for b.Lapsed(today) {
		nextStart := b.CurrentPeriodEnd.AddDays(1)
		period, next := ComputePeriod(b.EffectiveFrequency(), nextStart, b.ResetDay)
		b.CurrentPeriodStart = period.Start
		b.CurrentPeriodEnd = period.End
		b.NextReset = next
	}

	b.Status = StatusAvailable
	b.LastReminderAt = nil
	b.ReminderHandle = ""
	return true
}

// ExpireLapsed marks an available benefit expired once its period has
// elapsed. The period fields are untouched; a later Rollover moves the
// benefit into its next available period. Returns true on transition.
func ExpireLapsed(b *Benefit, today Date) bool {
	if b.Status != StatusAvailable || !b.Lapsed(today) {
		return false
	}
	b.Status = StatusExpired
	return true
}

// =============================================================================
// STATE SERVICE - Transitions with persistence
// =============================================================================

// Service applies state transitions and persists them through the
// Store. Callers are expected to serialize access per benefit; the
// service performs no locking of its own.
type Service struct {
	Store Store

	// Now stamps usage records. Defaults to time.Now; tests inject a
	// fixed clock.
	Now func() time.Time
}

func NewService(store Store) *Service {
	return &Service{Store: store, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// MarkUsed transitions an available benefit to used and records the
// redemption. Fails with ErrInvalidTransition for any other status.
func (s *Service) MarkUsed(ctx context.Context, id BenefitID) (*UsageRecord, error) {
	b, err := s.Store.GetBenefit(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, &NotFoundError{Kind: "benefit", ID: string(id)}
	}
	if !CanMarkUsed(b) {
		return nil, &TransitionError{BenefitID: id, From: b.Status, Attempted: "mark_used"}
	}

	// Snapshot the owning card's name now; the record must survive a
	// later rename or deletion.
	cardName := ""
	if card, err := s.Store.GetCard(ctx, b.CardID); err != nil {
		return nil, err
	} else if card != nil {
		cardName = card.Name
	}

	rec := UsageRecord{
		ID:            UsageRecordID(uuid.NewString()),
		BenefitID:     b.ID,
		CardID:        b.CardID,
		CardName:      cardName,
		BenefitName:   b.Name,
		PeriodStart:   b.CurrentPeriodStart,
		PeriodEnd:     b.CurrentPeriodEnd,
		ValueRedeemed: b.Value,
		UsedAt:        s.now(),
	}

	b.Status = StatusUsed
	err = s.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.SaveBenefit(ctx, b); err != nil {
			return err
		}
		return tx.InsertUsage(ctx, rec)
	})
	if err != nil {
		b.Status = StatusAvailable
		return nil, err
	}
	return &rec, nil
}

// UndoMarkUsed reverts a used benefit to available and deletes the most
// recent usage record for the current period window. Fails with
// ErrInvalidTransition unless the status is used.
func (s *Service) UndoMarkUsed(ctx context.Context, id BenefitID) error {
	b, err := s.Store.GetBenefit(ctx, id)
	if err != nil {
		return err
	}
	if b == nil {
		return &NotFoundError{Kind: "benefit", ID: string(id)}
	}
	if !CanUndo(b) {
		return &TransitionError{BenefitID: id, From: b.Status, Attempted: "undo"}
	}

	rec, err := s.Store.LatestUsageForPeriod(ctx, b.ID, b.Period())
	if err != nil {
		return err
	}

	b.Status = StatusAvailable
	err = s.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.SaveBenefit(ctx, b); err != nil {
			return err
		}
		if rec != nil {
			return tx.DeleteUsage(ctx, rec.ID)
		}
		return nil
	})
	if err != nil {
		b.Status = StatusUsed
		return err
	}
	return nil
}

// ResetForNewPeriod rolls the benefit forward when its period has
// elapsed and persists the result. Always legal; a no-op when the
// current period still contains today.
func (s *Service) ResetForNewPeriod(ctx context.Context, id BenefitID, today Date) (*Benefit, error) {
	b, err := s.Store.GetBenefit(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, &NotFoundError{Kind: "benefit", ID: string(id)}
	}

	if !Rollover(b, today) {
		return b, nil
	}
	if err := s.Store.SaveBenefit(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// SweepLapsed expires and rolls over every benefit whose period has
// elapsed. Returns the benefits that changed. Called by the background
// scheduler and the manual rollover endpoint.
func (s *Service) SweepLapsed(ctx context.Context, today Date) ([]Benefit, error) {
	all, err := s.Store.ListAllBenefits(ctx)
	if err != nil {
		return nil, err
	}

	var changed []Benefit
	for i := range all {
		b := &all[i]
		if !b.Lapsed(today) {
			continue
		}
		ExpireLapsed(b, today)
		Rollover(b, today)
		if err := s.Store.SaveBenefit(ctx, b); err != nil {
			return changed, err
		}
		changed = append(changed, *b)
	}
	return changed, nil
}
