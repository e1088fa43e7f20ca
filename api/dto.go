/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

Request structs carry validator tags; handlers run them through the
shared validator instance before touching the domain.
*/
package api

import (
	"time"

	"github.com/warp/benefit-engine/benefit"
	"github.com/warp/benefit-engine/coupon"
	"github.com/warp/benefit-engine/reminder"
	"github.com/warp/benefit-engine/subscription"
)

// =============================================================================
// CARDS
// =============================================================================

type CardDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Issuer    string  `json:"issuer"`
	AnnualFee string  `json:"annual_fee"`
	FeeDue    *string `json:"fee_due,omitempty"`
	OpenedAt  string  `json:"opened_at"`
}

type CardDetailDTO struct {
	CardDTO
	Benefits []BenefitDTO `json:"benefits"`
}

// CreateCardRequest adds a card from a catalog template.
type CreateCardRequest struct {
	TemplateID string `json:"template_id" validate:"required"`
}

type CardTemplateDTO struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Issuer    string               `json:"issuer"`
	AnnualFee float64              `json:"annual_fee"`
	Benefits  []BenefitTemplateDTO `json:"benefits"`
}

type BenefitTemplateDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Value     float64 `json:"value"`
	Frequency string  `json:"frequency"`
}

// =============================================================================
// BENEFITS
// =============================================================================

type BenefitDTO struct {
	ID            string `json:"id"`
	CardID        string `json:"card_id"`
	Name          string `json:"name"`
	Category      string `json:"category,omitempty"`
	Value         string `json:"value"`
	Frequency     string `json:"frequency"`
	Status        string `json:"status"`
	PeriodStart   string `json:"period_start"`
	PeriodEnd     string `json:"period_end"`
	NextReset     string `json:"next_reset"`
	DaysRemaining int    `json:"days_remaining"`
	Urgency       string `json:"urgency"`
}

type UsageRecordDTO struct {
	ID            string `json:"id"`
	BenefitID     string `json:"benefit_id"`
	CardName      string `json:"card_name"`
	BenefitName   string `json:"benefit_name"`
	PeriodStart   string `json:"period_start"`
	PeriodEnd     string `json:"period_end"`
	ValueRedeemed string `json:"value_redeemed"`
	UsedAt        string `json:"used_at"`
}

// =============================================================================
// SUMMARY AND INSIGHT
// =============================================================================

type SummaryDTO struct {
	Window         string `json:"window"`
	WindowStart    string `json:"window_start"`
	WindowEnd      string `json:"window_end"`
	TotalValue     string `json:"total_value"`
	RedeemedValue  string `json:"redeemed_value"`
	AvailableValue string `json:"available_value"`
	UsedCount      int    `json:"used_count"`
	AvailableCount int    `json:"available_count"`
	TotalCount     int    `json:"total_count"`
	PercentUsed    int    `json:"percent_used"`
}

type InsightDTO struct {
	Kind  string `json:"kind"`
	Count int    `json:"count,omitempty"`
	Value string `json:"value,omitempty"`
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

type SubscriptionDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Cycle    string `json:"cycle"`
	RenewsAt string `json:"renews_at"`
	Active   bool   `json:"active"`
}

type CreateSubscriptionRequest struct {
	Name     string  `json:"name" validate:"required"`
	Amount   float64 `json:"amount" validate:"gt=0"`
	Cycle    string  `json:"cycle" validate:"oneof=monthly annual"`
	RenewsAt string  `json:"renews_at" validate:"required,datetime=2006-01-02"`
}

type PaymentDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Amount string `json:"amount"`
	PaidAt string `json:"paid_at"`
}

// =============================================================================
// COUPONS
// =============================================================================

type CouponDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Merchant      string `json:"merchant,omitempty"`
	Value         string `json:"value"`
	ExpiresAt     string `json:"expires_at"`
	Used          bool   `json:"used"`
	DaysRemaining int    `json:"days_remaining"`
	Urgency       string `json:"urgency"`
}

type CreateCouponRequest struct {
	Name      string  `json:"name" validate:"required"`
	Merchant  string  `json:"merchant"`
	Value     float64 `json:"value" validate:"gte=0"`
	ExpiresAt string  `json:"expires_at" validate:"required,datetime=2006-01-02"`
}

// =============================================================================
// REMINDERS
// =============================================================================

type ReminderDTO struct {
	ID      string           `json:"id"`
	FiresAt string           `json:"fires_at"`
	Payload reminder.Payload `json:"payload"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func cardToDTO(c *benefit.Card) CardDTO {
	dto := CardDTO{
		ID:        string(c.ID),
		Name:      c.Name,
		Issuer:    c.Issuer,
		AnnualFee: c.AnnualFee.StringFixed(2),
		OpenedAt:  c.OpenedAt.String(),
	}
	if c.FeeDue != nil {
		s := c.FeeDue.String()
		dto.FeeDue = &s
	}
	return dto
}

func benefitToDTO(b *benefit.Benefit, today benefit.Date) BenefitDTO {
	days := b.DaysRemaining(today)
	return BenefitDTO{
		ID:            string(b.ID),
		CardID:        string(b.CardID),
		Name:          b.Name,
		Category:      b.Category,
		Value:         b.Value.StringFixed(2),
		Frequency:     string(b.EffectiveFrequency()),
		Status:        string(b.Status),
		PeriodStart:   b.CurrentPeriodStart.String(),
		PeriodEnd:     b.CurrentPeriodEnd.String(),
		NextReset:     b.NextReset.String(),
		DaysRemaining: days,
		Urgency:       benefit.ClassifyUrgency(days).String(),
	}
}

func usageToDTO(rec *benefit.UsageRecord) UsageRecordDTO {
	return UsageRecordDTO{
		ID:            string(rec.ID),
		BenefitID:     string(rec.BenefitID),
		CardName:      rec.CardName,
		BenefitName:   rec.BenefitName,
		PeriodStart:   rec.PeriodStart.String(),
		PeriodEnd:     rec.PeriodEnd.String(),
		ValueRedeemed: rec.ValueRedeemed.StringFixed(2),
		UsedAt:        rec.UsedAt.Format(time.RFC3339),
	}
}

func summaryToDTO(s benefit.Summary) SummaryDTO {
	return SummaryDTO{
		Window:         string(s.Window.Kind),
		WindowStart:    s.Window.Start.String(),
		WindowEnd:      s.Window.End.String(),
		TotalValue:     s.TotalValue.StringFixed(2),
		RedeemedValue:  s.RedeemedValue.StringFixed(2),
		AvailableValue: s.AvailableValue.StringFixed(2),
		UsedCount:      s.UsedCount,
		AvailableCount: s.AvailableCount,
		TotalCount:     s.TotalCount,
		PercentUsed:    s.PercentUsed(),
	}
}

func subscriptionToDTO(s *subscription.Subscription) SubscriptionDTO {
	return SubscriptionDTO{
		ID:       string(s.ID),
		Name:     s.Name,
		Amount:   s.Amount.StringFixed(2),
		Cycle:    string(s.Cycle),
		RenewsAt: s.RenewsAt.String(),
		Active:   s.Active,
	}
}

func couponToDTO(c *coupon.Coupon, today benefit.Date) CouponDTO {
	days := c.DaysRemaining(today)
	return CouponDTO{
		ID:            string(c.ID),
		Name:          c.Name,
		Merchant:      c.Merchant,
		Value:         c.Value.StringFixed(2),
		ExpiresAt:     c.ExpiresAt.String(),
		Used:          c.Used,
		DaysRemaining: days,
		Urgency:       c.Urgency(today).String(),
	}
}
