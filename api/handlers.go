/*
handlers.go - HTTP handler implementations

PURPOSE:
  Connects the engine to HTTP. Handlers stay thin: decode + validate
  the DTO, call into the domain services, convert back to DTOs.

ERROR MAPPING:
  benefit.ErrInvalidTransition -> 409 Conflict (user-actionable)
  benefit.ErrNotFound          -> 404 Not Found
  validation failures          -> 400 Bad Request
  anything else                -> 500
*/
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/benefit"
	"github.com/warp/benefit-engine/catalog"
	"github.com/warp/benefit-engine/coupon"
	"github.com/warp/benefit-engine/reminder"
	"github.com/warp/benefit-engine/store/sqlite"
	"github.com/warp/benefit-engine/subscription"
)

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	Store         *sqlite.Store
	Benefits      *benefit.Service
	Subscriptions *subscription.Service
	Catalog       *catalog.Catalog
	Reminders     *reminder.Scheduler

	// Location defines "today" for request handling.
	Location *time.Location

	// Now is injectable for tests.
	Now func() time.Time

	validate *validator.Validate
}

func NewHandler(store *sqlite.Store, cat *catalog.Catalog, sched *reminder.Scheduler, loc *time.Location) *Handler {
	return &Handler{
		Store:         store,
		Benefits:      benefit.NewService(store),
		Subscriptions: subscription.NewService(store),
		Catalog:       cat,
		Reminders:     sched,
		Location:      loc,
		Now:           time.Now,
		validate:      validator.New(),
	}
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) today() benefit.Date {
	return benefit.DateOf(h.now(), h.Location)
}

// =============================================================================
// HELPERS
// =============================================================================

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("[API] encode response: %v", err)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case benefit.IsClientError(err):
		respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case benefit.IsNotFound(err):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		log.Printf("[API] internal error: %v", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// decodeValid decodes the body into req and runs validator tags.
func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	return true
}

// =============================================================================
// CATALOG
// =============================================================================

func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	templates := h.Catalog.Cards()
	out := make([]CardTemplateDTO, 0, len(templates))
	for _, t := range templates {
		dto := CardTemplateDTO{ID: t.ID, Name: t.Name, Issuer: t.Issuer, AnnualFee: t.AnnualFee}
		for _, b := range t.Benefits {
			dto.Benefits = append(dto.Benefits, BenefitTemplateDTO{
				ID: b.ID, Name: b.Name, Category: b.Category, Value: b.Value, Frequency: b.Frequency,
			})
		}
		out = append(out, dto)
	}
	respondJSON(w, http.StatusOK, out)
}

// =============================================================================
// CARDS
// =============================================================================

func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	card, benefits, err := h.Catalog.Instantiate(req.TemplateID, h.today(), h.now())
	if err != nil {
		respondError(w, err)
		return
	}

	ctx := r.Context()
	if err := h.Store.SaveCard(ctx, card); err != nil {
		respondError(w, err)
		return
	}
	for i := range benefits {
		if err := h.Store.SaveBenefit(ctx, &benefits[i]); err != nil {
			respondError(w, err)
			return
		}
		if err := h.Reminders.ScheduleBenefit(ctx, &benefits[i]); err != nil {
			log.Printf("[API] schedule reminders for %s: %v", benefits[i].ID, err)
		}
	}
	if err := h.Reminders.ScheduleCardFee(ctx, card); err != nil {
		log.Printf("[API] schedule fee reminder for %s: %v", card.ID, err)
	}

	today := h.today()
	detail := CardDetailDTO{CardDTO: cardToDTO(card)}
	for i := range benefits {
		detail.Benefits = append(detail.Benefits, benefitToDTO(&benefits[i], today))
	}
	respondJSON(w, http.StatusCreated, detail)
}

func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.Store.ListCards(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]CardDTO, 0, len(cards))
	for i := range cards {
		out = append(out, cardToDTO(&cards[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	id := benefit.CardID(chi.URLParam(r, "id"))
	ctx := r.Context()

	card, err := h.Store.GetCard(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	if card == nil {
		respondError(w, &benefit.NotFoundError{Kind: "card", ID: string(id)})
		return
	}

	benefits, err := h.Store.ListBenefits(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}

	today := h.today()
	detail := CardDetailDTO{CardDTO: cardToDTO(card)}
	for i := range benefits {
		detail.Benefits = append(detail.Benefits, benefitToDTO(&benefits[i], today))
	}
	respondJSON(w, http.StatusOK, detail)
}

// DeleteCard removes the card, its benefits (cascade), and every
// reminder keyed to them. Usage history survives.
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	id := benefit.CardID(chi.URLParam(r, "id"))
	ctx := r.Context()

	card, err := h.Store.GetCard(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	if card == nil {
		respondError(w, &benefit.NotFoundError{Kind: "card", ID: string(id)})
		return
	}

	benefits, err := h.Store.ListBenefits(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.Store.DeleteCard(ctx, id); err != nil {
		respondError(w, err)
		return
	}

	for i := range benefits {
		if err := h.Reminders.CancelBenefit(ctx, benefits[i].ID); err != nil {
			log.Printf("[API] cancel reminders for %s: %v", benefits[i].ID, err)
		}
	}
	// A fee-less card cancels its fee reminder; same path cleans up here.
	card.FeeDue = nil
	if err := h.Reminders.ScheduleCardFee(ctx, card); err != nil {
		log.Printf("[API] cancel fee reminder for %s: %v", id, err)
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// BENEFITS
// =============================================================================

func (h *Handler) ListBenefits(w http.ResponseWriter, r *http.Request) {
	benefits, err := h.Store.ListAllBenefits(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	today := h.today()
	out := make([]BenefitDTO, 0, len(benefits))
	for i := range benefits {
		out = append(out, benefitToDTO(&benefits[i], today))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) MarkBenefitUsed(w http.ResponseWriter, r *http.Request) {
	id := benefit.BenefitID(chi.URLParam(r, "id"))
	ctx := r.Context()

	rec, err := h.Benefits.MarkUsed(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}

	// A used benefit needs no further nudging this period.
	if err := h.Reminders.CancelBenefit(ctx, id); err != nil {
		log.Printf("[API] cancel reminders for %s: %v", id, err)
	}

	respondJSON(w, http.StatusOK, usageToDTO(rec))
}

func (h *Handler) UndoBenefitUsed(w http.ResponseWriter, r *http.Request) {
	id := benefit.BenefitID(chi.URLParam(r, "id"))
	ctx := r.Context()

	if err := h.Benefits.UndoMarkUsed(ctx, id); err != nil {
		respondError(w, err)
		return
	}

	b, err := h.Store.GetBenefit(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	if b != nil {
		if err := h.Reminders.ScheduleBenefit(ctx, b); err != nil {
			log.Printf("[API] reschedule reminders for %s: %v", id, err)
		}
	}

	respondJSON(w, http.StatusOK, benefitToDTO(b, h.today()))
}

func (h *Handler) SnoozeBenefit(w http.ResponseWriter, r *http.Request) {
	id := benefit.BenefitID(chi.URLParam(r, "id"))
	ctx := r.Context()

	b, err := h.Store.GetBenefit(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	if b == nil {
		respondError(w, &benefit.NotFoundError{Kind: "benefit", ID: string(id)})
		return
	}

	snoozedUntil, err := h.Reminders.SnoozeBenefit(ctx, b, h.today())
	if err != nil {
		respondError(w, err)
		return
	}

	b.LastReminderAt = &snoozedUntil
	if err := h.Store.SaveBenefit(ctx, b); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, benefitToDTO(b, h.today()))
}

// TriggerRollover expires and resets every lapsed benefit, then
// rebuilds reminders for the benefits that changed.
func (h *Handler) TriggerRollover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	changed, err := h.Benefits.SweepLapsed(ctx, h.today())
	if err != nil {
		respondError(w, err)
		return
	}
	rolloversProcessed.Add(float64(len(changed)))

	for i := range changed {
		if err := h.Reminders.ScheduleBenefit(ctx, &changed[i]); err != nil {
			log.Printf("[API] reschedule reminders for %s: %v", changed[i].ID, err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]int{"rolled_over": len(changed)})
}

// =============================================================================
// SUMMARY AND INSIGHT
// =============================================================================

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	kind := benefit.Frequency(r.URL.Query().Get("window"))
	if !kind.Valid() {
		kind = benefit.Monthly
	}
	ctx := r.Context()
	today := h.today()
	window := benefit.WindowFor(kind, today)

	benefits, err := h.Store.ListAllBenefits(ctx)
	if err != nil {
		respondError(w, err)
		return
	}

	var summary benefit.Summary
	if r.URL.Query().Get("historical") == "true" {
		redeemed, err := h.Store.SumRedeemedInRange(ctx, window.Start, window.End)
		if err != nil {
			respondError(w, err)
			return
		}
		summary = benefit.AggregateWithHistory(benefits, window, redeemed)
	} else {
		summary = benefit.Aggregate(benefits, window, true)
	}

	respondJSON(w, http.StatusOK, summaryToDTO(summary))
}

func (h *Handler) GetInsight(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := h.today()

	in, err := h.buildInsightInput(ctx, today)
	if err != nil {
		respondError(w, err)
		return
	}

	insight := benefit.ResolveInsight(*in)
	if insight == nil {
		respondJSON(w, http.StatusOK, nil)
		return
	}
	dto := InsightDTO{Kind: string(insight.Kind), Count: insight.Count}
	if !insight.Value.IsZero() {
		dto.Value = insight.Value.StringFixed(2)
	}
	respondJSON(w, http.StatusOK, dto)
}

// buildInsightInput projects the full data set into the resolver's
// aggregate input. Recomputed per request, never cached.
func (h *Handler) buildInsightInput(ctx context.Context, today benefit.Date) (*benefit.InsightInput, error) {
	benefits, err := h.Store.ListAllBenefits(ctx)
	if err != nil {
		return nil, err
	}

	in := benefit.InsightInput{
		ExpiringTodayValue:  decimal.Zero,
		TotalAvailableValue: decimal.Zero,
		RedeemedThisMonth:   decimal.Zero,
		AnnualFeeDueSoon:    decimal.Zero,
	}
	for i := range benefits {
		b := &benefits[i]
		in.TotalCount++
		switch b.Status {
		case benefit.StatusUsed:
			in.UsedCount++
		case benefit.StatusAvailable:
			in.TotalAvailableValue = in.TotalAvailableValue.Add(b.Value)
			if benefit.ClassifyUrgency(b.DaysRemaining(today)) == benefit.UrgencyToday {
				in.ExpiringTodayCount++
				in.ExpiringTodayValue = in.ExpiringTodayValue.Add(b.Value)
			}
		}
	}

	month := benefit.WindowFor(benefit.Monthly, today)
	if in.RedeemedThisMonth, err = h.Store.SumRedeemedInRange(ctx, month.Start, month.End); err != nil {
		return nil, err
	}

	cards, err := h.Store.ListCards(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		c := &cards[i]
		if c.FeeDue == nil || !c.AnnualFee.IsPositive() {
			continue
		}
		days := benefit.DaysBetween(today, *c.FeeDue)
		if days >= 0 && days <= 7 {
			in.AnnualFeeDueSoon = c.AnnualFee
			break
		}
	}

	subs, err := h.Store.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		if subs[i].RenewingSoon(today, 7) {
			in.SubscriptionsRenewingSoon++
		}
	}

	coupons, err := h.Store.ListCoupons(ctx)
	if err != nil {
		return nil, err
	}
	for i := range coupons {
		if coupons[i].ExpiringSoon(today, 3) {
			in.CouponsExpiringSoon++
		}
	}

	return &in, nil
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Store.ListSubscriptions(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]SubscriptionDTO, 0, len(subs))
	for i := range subs {
		out = append(out, subscriptionToDTO(&subs[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req CreateSubscriptionRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	renews, err := benefit.ParseDate(req.RenewsAt)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid renews_at"})
		return
	}

	sub := &subscription.Subscription{
		ID:        subscription.ID(uuid.NewString()),
		Name:      req.Name,
		Amount:    decimal.NewFromFloat(req.Amount),
		Cycle:     subscription.Cycle(req.Cycle),
		RenewsAt:  renews,
		Active:    true,
		CreatedAt: h.now(),
	}

	ctx := r.Context()
	if err := h.Store.SaveSubscription(ctx, sub); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Reminders.ScheduleSubscription(ctx, sub); err != nil {
		log.Printf("[API] schedule reminder for subscription %s: %v", sub.ID, err)
	}
	respondJSON(w, http.StatusCreated, subscriptionToDTO(sub))
}

func (h *Handler) AdvanceSubscription(w http.ResponseWriter, r *http.Request) {
	id := subscription.ID(chi.URLParam(r, "id"))
	ctx := r.Context()

	sub, payments, err := h.Subscriptions.AdvanceDue(ctx, id, h.today())
	if err != nil {
		respondError(w, err)
		return
	}
	subscriptionAdvances.Add(float64(len(payments)))

	if err := h.Reminders.ScheduleSubscription(ctx, sub); err != nil {
		log.Printf("[API] reschedule reminder for subscription %s: %v", sub.ID, err)
	}

	out := struct {
		Subscription SubscriptionDTO `json:"subscription"`
		Payments     []PaymentDTO    `json:"payments"`
	}{Subscription: subscriptionToDTO(sub)}
	for _, p := range payments {
		out.Payments = append(out.Payments, PaymentDTO{
			ID: string(p.ID), Name: p.Name, Amount: p.Amount.StringFixed(2), PaidAt: p.PaidAt.String(),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id := subscription.ID(chi.URLParam(r, "id"))
	payments, err := h.Store.ListPayments(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]PaymentDTO, 0, len(payments))
	for _, p := range payments {
		out = append(out, PaymentDTO{
			ID: string(p.ID), Name: p.Name, Amount: p.Amount.StringFixed(2), PaidAt: p.PaidAt.String(),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// =============================================================================
// COUPONS
// =============================================================================

func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.Store.ListCoupons(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	today := h.today()
	out := make([]CouponDTO, 0, len(coupons))
	for i := range coupons {
		out = append(out, couponToDTO(&coupons[i], today))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req CreateCouponRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	expires, err := benefit.ParseDate(req.ExpiresAt)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid expires_at"})
		return
	}

	c := &coupon.Coupon{
		ID:        coupon.ID(uuid.NewString()),
		Name:      req.Name,
		Merchant:  req.Merchant,
		Value:     decimal.NewFromFloat(req.Value),
		ExpiresAt: expires,
		CreatedAt: h.now(),
	}

	ctx := r.Context()
	if err := h.Store.SaveCoupon(ctx, c); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Reminders.ScheduleCoupon(ctx, c); err != nil {
		log.Printf("[API] schedule reminder for coupon %s: %v", c.ID, err)
	}
	respondJSON(w, http.StatusCreated, couponToDTO(c, h.today()))
}

func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id := coupon.ID(chi.URLParam(r, "id"))
	ctx := r.Context()

	c, err := h.Store.GetCoupon(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	if c == nil {
		respondError(w, &benefit.NotFoundError{Kind: "coupon", ID: string(id)})
		return
	}

	if err := h.Store.DeleteCoupon(ctx, id); err != nil {
		respondError(w, err)
		return
	}
	c.Used = true // schedule path reads Used to decide; deletion cancels
	if err := h.Reminders.ScheduleCoupon(ctx, c); err != nil {
		log.Printf("[API] cancel reminder for coupon %s: %v", id, err)
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) UseCoupon(w http.ResponseWriter, r *http.Request) {
	id := coupon.ID(chi.URLParam(r, "id"))
	ctx := r.Context()

	c, err := coupon.MarkUsed(ctx, h.Store, id)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.Reminders.ScheduleCoupon(ctx, c); err != nil {
		log.Printf("[API] cancel reminder for coupon %s: %v", c.ID, err)
	}
	respondJSON(w, http.StatusOK, couponToDTO(c, h.today()))
}

// =============================================================================
// REMINDERS
// =============================================================================

func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Store.PendingReminders(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]ReminderDTO, 0, len(pending))
	for _, p := range pending {
		out = append(out, ReminderDTO{ID: p.ID, FiresAt: p.FiresAt.Format(time.RFC3339), Payload: p.Payload})
	}
	respondJSON(w, http.StatusOK, out)
}

// ReconcileReminders rebuilds the full benefit reminder set from
// scratch: cancel everything, re-schedule every available benefit.
func (h *Handler) ReconcileReminders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	benefits, err := h.Store.ListAllBenefits(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.Reminders.Reconcile(ctx, benefits); err != nil {
		respondError(w, err)
		return
	}
	reconcileRuns.Inc()
	respondJSON(w, http.StatusOK, map[string]int{"benefits": len(benefits)})
}
