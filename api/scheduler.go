/*
scheduler.go - Automated lifecycle scheduler

PURPOSE:
  Periodically sweeps benefits whose period has ended (rollover),
  advances subscription renewal cursors, and keeps the reminder set
  consistent with the resulting state.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Every pass is idempotent: rollover guards on the current period,
    cursor advances are monotonic, reminder requests replace on id
  - Reminder scheduling failures are logged, never fatal; the next
    pass or a manual reconcile repairs them

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewLifecycleScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerRollover endpoint (manual sweep)
  - benefit/state.go: SweepLapsed
  - subscription/subscription.go: AdvanceAllDue
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"
)

// LifecycleScheduler runs the periodic rollover and renewal sweep.
type LifecycleScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewLifecycleScheduler creates a new scheduler.
func NewLifecycleScheduler(handler *Handler) *LifecycleScheduler {
	return &LifecycleScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ls *LifecycleScheduler) Start() {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if !ls.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	ls.ticker = time.NewTicker(ls.CheckInterval)
	ls.wg.Add(1)

	go ls.run()

	log.Printf("[Scheduler] Started with check interval: %v", ls.CheckInterval)
}

// Stop stops the scheduler.
func (ls *LifecycleScheduler) Stop() {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.ticker != nil {
		ls.ticker.Stop()
		close(ls.stop)
		ls.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (ls *LifecycleScheduler) run() {
	defer ls.wg.Done()

	// Run immediately on start
	ls.checkAndProcess()

	for {
		select {
		case <-ls.ticker.C:
			ls.checkAndProcess()
		case <-ls.stop:
			return
		}
	}
}

func (ls *LifecycleScheduler) checkAndProcess() {
	ctx := context.Background()
	h := ls.Handler
	today := h.today()

	log.Printf("[Scheduler] Sweeping lifecycle state for %s", today)

	// Roll over every benefit whose period has ended.
	changed, err := h.Benefits.SweepLapsed(ctx, today)
	if err != nil {
		log.Printf("[Scheduler] Error sweeping benefits: %v", err)
	} else if len(changed) > 0 {
		rolloversProcessed.Add(float64(len(changed)))
		for i := range changed {
			if err := h.Reminders.ScheduleBenefit(ctx, &changed[i]); err != nil {
				log.Printf("[Scheduler] Error rescheduling reminders for %s: %v", changed[i].ID, err)
			}
		}
		log.Printf("[Scheduler] Rolled over %d benefits", len(changed))
	}

	// Advance subscription renewal cursors past today.
	advanced, err := h.Subscriptions.AdvanceAllDue(ctx, today)
	if err != nil {
		log.Printf("[Scheduler] Error advancing subscriptions: %v", err)
	} else if advanced > 0 {
		subscriptionAdvances.Add(float64(advanced))
		log.Printf("[Scheduler] Advanced %d subscriptions", advanced)
	}

	// Refresh single-tier reminders against the new cursor positions.
	ls.refreshLeadReminders(ctx)
}

// refreshLeadReminders re-runs the scheduling decision for every
// subscription, coupon, and card fee. Requests replace on id, so
// re-running against unchanged state is a no-op.
func (ls *LifecycleScheduler) refreshLeadReminders(ctx context.Context) {
	h := ls.Handler

	subs, err := h.Store.ListSubscriptions(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing subscriptions: %v", err)
	} else {
		for i := range subs {
			if err := h.Reminders.ScheduleSubscription(ctx, &subs[i]); err != nil {
				log.Printf("[Scheduler] Error scheduling reminder for subscription %s: %v", subs[i].ID, err)
			}
		}
	}

	coupons, err := h.Store.ListCoupons(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing coupons: %v", err)
	} else {
		for i := range coupons {
			if err := h.Reminders.ScheduleCoupon(ctx, &coupons[i]); err != nil {
				log.Printf("[Scheduler] Error scheduling reminder for coupon %s: %v", coupons[i].ID, err)
			}
		}
	}

	cards, err := h.Store.ListCards(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing cards: %v", err)
	} else {
		for i := range cards {
			if err := h.Reminders.ScheduleCardFee(ctx, &cards[i]); err != nil {
				log.Printf("[Scheduler] Error scheduling fee reminder for %s: %v", cards[i].ID, err)
			}
		}
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (ls *LifecycleScheduler) RunNow() {
	ls.checkAndProcess()
}
