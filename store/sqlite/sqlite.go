/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces, plus a table-backed reminder transport.

INTERFACES IMPLEMENTED:
  benefit.Store:      cards, benefits, usage records
  subscription.Store: subscriptions, payments
  coupon.Store:       coupons
  reminder.Transport: scheduled reminders (server-side stand-in for the
                      OS notification scheduler)

KEY TABLES:
  cards:                 card entities (annual fee, fee due date)
  benefits:              current period + status per benefit,
                         ON DELETE CASCADE with the owning card
  usage_records:         redemption history with denormalized name
                         snapshots; intentionally NO foreign key so
                         history survives card deletion
  subscriptions:         renewal cursor entities
  subscription_payments: one row per advanced billing cycle
  coupons:               single-expiry items
  reminders:             outstanding reminder requests, keyed by the
                         scheduler's deterministic ids (request =
                         upsert, cancel = delete)

WAL MODE:
  Opened with WAL and foreign keys on, same flags for file and
  in-memory databases. Use ":memory:" in tests.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/benefit"
	"github.com/warp/benefit-engine/coupon"
	"github.com/warp/benefit-engine/reminder"
	"github.com/warp/benefit-engine/subscription"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339Nano
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	queries
}

// Interface checks.
var (
	_ benefit.Store      = (*Store)(nil)
	_ subscription.Store = (*Store)(nil)
	_ coupon.Store       = (*Store)(nil)
	_ reminder.Transport = (*Store)(nil)
)

// New opens (and migrates) a SQLite store. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The cascade-delete invariant and WithTx both assume a single
	// connection for in-memory databases.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, queries: queries{q: db}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		issuer TEXT,
		annual_fee TEXT NOT NULL,
		fee_due TEXT,
		opened_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS benefits (
		id TEXT PRIMARY KEY,
		card_id TEXT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		category TEXT,
		value TEXT NOT NULL,
		frequency TEXT,
		reset_day INTEGER DEFAULT 0,
		status TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		next_reset TEXT NOT NULL,
		last_reminder_at TEXT,
		reminder_handle TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_benefits_card
		ON benefits(card_id);
	CREATE INDEX IF NOT EXISTS idx_benefits_period_end
		ON benefits(period_end);

	-- Redemption history. Deliberately no foreign keys: records carry
	-- name snapshots and must survive benefit/card deletion.
	CREATE TABLE IF NOT EXISTS usage_records (
		id TEXT PRIMARY KEY,
		benefit_id TEXT NOT NULL,
		card_id TEXT NOT NULL,
		card_name TEXT,
		benefit_name TEXT,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		value_redeemed TEXT NOT NULL,
		used_at TEXT NOT NULL
	);

	-- Hot path: undo lookups by benefit + exact period window
	CREATE INDEX IF NOT EXISTS idx_usage_benefit_period
		ON usage_records(benefit_id, period_start, period_end);
	-- Window sums for historical redemption totals
	CREATE INDEX IF NOT EXISTS idx_usage_period_end
		ON usage_records(period_end);

	CREATE TABLE IF NOT EXISTS subscriptions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		amount TEXT NOT NULL,
		cycle TEXT NOT NULL,
		renews_at TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_subscriptions_renews_at
		ON subscriptions(renews_at);

	CREATE TABLE IF NOT EXISTS subscription_payments (
		id TEXT PRIMARY KEY,
		subscription_id TEXT NOT NULL,
		name TEXT,
		amount TEXT NOT NULL,
		paid_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_subscription
		ON subscription_payments(subscription_id, paid_at);

	CREATE TABLE IF NOT EXISTS coupons (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		merchant TEXT,
		value TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		used INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_coupons_expires_at
		ON coupons(expires_at);

	CREATE TABLE IF NOT EXISTS reminders (
		id TEXT PRIMARY KEY,
		fires_at TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(benefit.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	view := &txStore{queries: queries{q: tx}}
	if err := fn(view); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// txStore is the transactional view handed to WithTx callbacks.
type txStore struct {
	queries
}

var _ benefit.Store = (*txStore)(nil)

// Nested WithTx reuses the open transaction.
func (t *txStore) WithTx(ctx context.Context, fn func(benefit.Store) error) error {
	return fn(t)
}

// =============================================================================
// QUERIES - Shared between Store and txStore
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q execer
}

// -----------------------------------------------------------------------------
// Cards
// -----------------------------------------------------------------------------

func (s queries) SaveCard(ctx context.Context, card *benefit.Card) error {
	var feeDue any
	if card.FeeDue != nil {
		feeDue = card.FeeDue.String()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO cards (id, name, issuer, annual_fee, fee_due, opened_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			issuer = excluded.issuer,
			annual_fee = excluded.annual_fee,
			fee_due = excluded.fee_due,
			opened_at = excluded.opened_at`,
		string(card.ID), card.Name, card.Issuer, card.AnnualFee.String(),
		feeDue, card.OpenedAt.String(), card.CreatedAt.Format(timeLayout))
	return err
}

func (s queries) GetCard(ctx context.Context, id benefit.CardID) (*benefit.Card, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, name, issuer, annual_fee, fee_due, opened_at, created_at
		FROM cards WHERE id = ?`, string(id))
	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return card, nil
}

func (s queries) ListCards(ctx context.Context) ([]benefit.Card, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, issuer, annual_fee, fee_due, opened_at, created_at
		FROM cards ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []benefit.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *card)
	}
	return out, rows.Err()
}

func (s queries) DeleteCard(ctx context.Context, id benefit.CardID) error {
	// Benefits go with the card via ON DELETE CASCADE; usage records
	// stay (they snapshot their names).
	_, err := s.q.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, string(id))
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(r rowScanner) (*benefit.Card, error) {
	var (
		card             benefit.Card
		id, fee          string
		feeDue           sql.NullString
		opened, created  string
	)
	if err := r.Scan(&id, &card.Name, &card.Issuer, &fee, &feeDue, &opened, &created); err != nil {
		return nil, err
	}
	card.ID = benefit.CardID(id)

	var err error
	if card.AnnualFee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("card %s: bad annual_fee: %w", id, err)
	}
	if feeDue.Valid {
		d, err := benefit.ParseDate(feeDue.String)
		if err != nil {
			return nil, fmt.Errorf("card %s: bad fee_due: %w", id, err)
		}
		card.FeeDue = &d
	}
	if card.OpenedAt, err = benefit.ParseDate(opened); err != nil {
		return nil, fmt.Errorf("card %s: bad opened_at: %w", id, err)
	}
	if card.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("card %s: bad created_at: %w", id, err)
	}
	return &card, nil
}

// -----------------------------------------------------------------------------
// Benefits
// -----------------------------------------------------------------------------

func (s queries) SaveBenefit(ctx context.Context, b *benefit.Benefit) error {
	var lastReminder any
	if b.LastReminderAt != nil {
		lastReminder = b.LastReminderAt.Format(timeLayout)
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO benefits (id, card_id, name, category, value, frequency, reset_day,
			status, period_start, period_end, next_reset, last_reminder_at, reminder_handle, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			card_id = excluded.card_id,
			name = excluded.name,
			category = excluded.category,
			value = excluded.value,
			frequency = excluded.frequency,
			reset_day = excluded.reset_day,
			status = excluded.status,
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			next_reset = excluded.next_reset,
			last_reminder_at = excluded.last_reminder_at,
			reminder_handle = excluded.reminder_handle`,
		string(b.ID), string(b.CardID), b.Name, b.Category, b.Value.String(),
		string(b.Frequency), b.ResetDay, string(b.Status),
		b.CurrentPeriodStart.String(), b.CurrentPeriodEnd.String(), b.NextReset.String(),
		lastReminder, b.ReminderHandle, b.CreatedAt.Format(timeLayout))
	return err
}

const benefitColumns = `id, card_id, name, category, value, frequency, reset_day,
	status, period_start, period_end, next_reset, last_reminder_at, reminder_handle, created_at`

func (s queries) GetBenefit(ctx context.Context, id benefit.BenefitID) (*benefit.Benefit, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+benefitColumns+` FROM benefits WHERE id = ?`, string(id))
	b, err := scanBenefit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s queries) ListBenefits(ctx context.Context, cardID benefit.CardID) ([]benefit.Benefit, error) {
	return s.listBenefits(ctx,
		`SELECT `+benefitColumns+` FROM benefits WHERE card_id = ? ORDER BY created_at, id`,
		string(cardID))
}

func (s queries) ListAllBenefits(ctx context.Context) ([]benefit.Benefit, error) {
	return s.listBenefits(ctx,
		`SELECT `+benefitColumns+` FROM benefits ORDER BY created_at, id`)
}

func (s queries) listBenefits(ctx context.Context, query string, args ...any) ([]benefit.Benefit, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []benefit.Benefit
	for rows.Next() {
		b, err := scanBenefit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scanBenefit(r rowScanner) (*benefit.Benefit, error) {
	var (
		b                        benefit.Benefit
		id, cardID, value        string
		freq, status             string
		start, end, next, created string
		lastReminder             sql.NullString
	)
	if err := r.Scan(&id, &cardID, &b.Name, &b.Category, &value, &freq, &b.ResetDay,
		&status, &start, &end, &next, &lastReminder, &b.ReminderHandle, &created); err != nil {
		return nil, err
	}
	b.ID = benefit.BenefitID(id)
	b.CardID = benefit.CardID(cardID)
	b.Frequency = benefit.Frequency(freq)
	b.Status = benefit.Status(status)

	var err error
	if b.Value, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("benefit %s: bad value: %w", id, err)
	}
	if b.CurrentPeriodStart, err = benefit.ParseDate(start); err != nil {
		return nil, fmt.Errorf("benefit %s: bad period_start: %w", id, err)
	}
	if b.CurrentPeriodEnd, err = benefit.ParseDate(end); err != nil {
		return nil, fmt.Errorf("benefit %s: bad period_end: %w", id, err)
	}
	if b.NextReset, err = benefit.ParseDate(next); err != nil {
		return nil, fmt.Errorf("benefit %s: bad next_reset: %w", id, err)
	}
	if lastReminder.Valid {
		t, err := time.Parse(timeLayout, lastReminder.String)
		if err != nil {
			return nil, fmt.Errorf("benefit %s: bad last_reminder_at: %w", id, err)
		}
		b.LastReminderAt = &t
	}
	if b.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("benefit %s: bad created_at: %w", id, err)
	}
	return &b, nil
}

// -----------------------------------------------------------------------------
// Usage records
// -----------------------------------------------------------------------------

func (s queries) InsertUsage(ctx context.Context, rec benefit.UsageRecord) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO usage_records (id, benefit_id, card_id, card_name, benefit_name,
			period_start, period_end, value_redeemed, used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.ID), string(rec.BenefitID), string(rec.CardID),
		rec.CardName, rec.BenefitName,
		rec.PeriodStart.String(), rec.PeriodEnd.String(),
		rec.ValueRedeemed.String(), rec.UsedAt.Format(timeLayout))
	return err
}

func (s queries) DeleteUsage(ctx context.Context, id benefit.UsageRecordID) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM usage_records WHERE id = ?`, string(id))
	return err
}

const usageColumns = `id, benefit_id, card_id, card_name, benefit_name,
	period_start, period_end, value_redeemed, used_at`

func (s queries) LatestUsageForPeriod(ctx context.Context, id benefit.BenefitID, period benefit.Period) (*benefit.UsageRecord, error) {
	// rowid breaks UsedAt ties in favor of the later insertion.
	row := s.q.QueryRowContext(ctx, `
		SELECT `+usageColumns+` FROM usage_records
		WHERE benefit_id = ? AND period_start = ? AND period_end = ?
		ORDER BY used_at DESC, rowid DESC LIMIT 1`,
		string(id), period.Start.String(), period.End.String())
	rec, err := scanUsage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s queries) ListUsageInRange(ctx context.Context, from, to benefit.Date) ([]benefit.UsageRecord, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+usageColumns+` FROM usage_records
		WHERE period_end >= ? AND period_end <= ?
		ORDER BY used_at`, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []benefit.UsageRecord
	for rows.Next() {
		rec, err := scanUsage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s queries) SumRedeemedInRange(ctx context.Context, from, to benefit.Date) (decimal.Decimal, error) {
	recs, err := s.ListUsageInRange(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	// Summed in Go: decimal values are stored as TEXT and SQLite's SUM
	// would coerce them to float.
	sum := decimal.Zero
	for _, rec := range recs {
		sum = sum.Add(rec.ValueRedeemed)
	}
	return sum, nil
}

func scanUsage(r rowScanner) (*benefit.UsageRecord, error) {
	var (
		rec                  benefit.UsageRecord
		id, benefitID, cardID string
		start, end            string
		value, usedAt         string
	)
	if err := r.Scan(&id, &benefitID, &cardID, &rec.CardName, &rec.BenefitName,
		&start, &end, &value, &usedAt); err != nil {
		return nil, err
	}
	rec.ID = benefit.UsageRecordID(id)
	rec.BenefitID = benefit.BenefitID(benefitID)
	rec.CardID = benefit.CardID(cardID)

	var err error
	if rec.PeriodStart, err = benefit.ParseDate(start); err != nil {
		return nil, fmt.Errorf("usage %s: bad period_start: %w", id, err)
	}
	if rec.PeriodEnd, err = benefit.ParseDate(end); err != nil {
		return nil, fmt.Errorf("usage %s: bad period_end: %w", id, err)
	}
	if rec.ValueRedeemed, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("usage %s: bad value_redeemed: %w", id, err)
	}
	if rec.UsedAt, err = time.Parse(timeLayout, usedAt); err != nil {
		return nil, fmt.Errorf("usage %s: bad used_at: %w", id, err)
	}
	return &rec, nil
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

func (s queries) SaveSubscription(ctx context.Context, sub *subscription.Subscription) error {
	active := 0
	if sub.Active {
		active = 1
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO subscriptions (id, name, amount, cycle, renews_at, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			amount = excluded.amount,
			cycle = excluded.cycle,
			renews_at = excluded.renews_at,
			active = excluded.active`,
		string(sub.ID), sub.Name, sub.Amount.String(), string(sub.Cycle),
		sub.RenewsAt.String(), active, sub.CreatedAt.Format(timeLayout))
	return err
}

func (s queries) GetSubscription(ctx context.Context, id subscription.ID) (*subscription.Subscription, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, name, amount, cycle, renews_at, active, created_at
		FROM subscriptions WHERE id = ?`, string(id))
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s queries) ListSubscriptions(ctx context.Context) ([]subscription.Subscription, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, amount, cycle, renews_at, active, created_at
		FROM subscriptions ORDER BY renews_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

func scanSubscription(r rowScanner) (*subscription.Subscription, error) {
	var (
		sub                 subscription.Subscription
		id, amount, cycle   string
		renews, created     string
		active              int
	)
	if err := r.Scan(&id, &sub.Name, &amount, &cycle, &renews, &active, &created); err != nil {
		return nil, err
	}
	sub.ID = subscription.ID(id)
	sub.Cycle = subscription.Cycle(cycle)
	sub.Active = active != 0

	var err error
	if sub.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("subscription %s: bad amount: %w", id, err)
	}
	if sub.RenewsAt, err = benefit.ParseDate(renews); err != nil {
		return nil, fmt.Errorf("subscription %s: bad renews_at: %w", id, err)
	}
	if sub.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("subscription %s: bad created_at: %w", id, err)
	}
	return &sub, nil
}

func (s queries) InsertPayment(ctx context.Context, p subscription.Payment) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO subscription_payments (id, subscription_id, name, amount, paid_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(p.ID), string(p.SubscriptionID), p.Name, p.Amount.String(),
		p.PaidAt.String(), p.CreatedAt.Format(timeLayout))
	return err
}

func (s queries) ListPayments(ctx context.Context, id subscription.ID) ([]subscription.Payment, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, subscription_id, name, amount, paid_at, created_at
		FROM subscription_payments WHERE subscription_id = ?
		ORDER BY paid_at`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []subscription.Payment
	for rows.Next() {
		var (
			p                      subscription.Payment
			pid, sid, amount       string
			paidAt, created        string
		)
		if err := rows.Scan(&pid, &sid, &p.Name, &amount, &paidAt, &created); err != nil {
			return nil, err
		}
		p.ID = subscription.PaymentID(pid)
		p.SubscriptionID = subscription.ID(sid)
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("payment %s: bad amount: %w", pid, err)
		}
		if p.PaidAt, err = benefit.ParseDate(paidAt); err != nil {
			return nil, fmt.Errorf("payment %s: bad paid_at: %w", pid, err)
		}
		if p.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("payment %s: bad created_at: %w", pid, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Coupons
// -----------------------------------------------------------------------------

func (s queries) SaveCoupon(ctx context.Context, c *coupon.Coupon) error {
	used := 0
	if c.Used {
		used = 1
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO coupons (id, name, merchant, value, expires_at, used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			merchant = excluded.merchant,
			value = excluded.value,
			expires_at = excluded.expires_at,
			used = excluded.used`,
		string(c.ID), c.Name, c.Merchant, c.Value.String(),
		c.ExpiresAt.String(), used, c.CreatedAt.Format(timeLayout))
	return err
}

func (s queries) GetCoupon(ctx context.Context, id coupon.ID) (*coupon.Coupon, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, name, merchant, value, expires_at, used, created_at
		FROM coupons WHERE id = ?`, string(id))
	c, err := scanCoupon(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s queries) ListCoupons(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, merchant, value, expires_at, used, created_at
		FROM coupons ORDER BY expires_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []coupon.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s queries) DeleteCoupon(ctx context.Context, id coupon.ID) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM coupons WHERE id = ?`, string(id))
	return err
}

func scanCoupon(r rowScanner) (*coupon.Coupon, error) {
	var (
		c                   coupon.Coupon
		id, value           string
		expires, created    string
		used                int
	)
	if err := r.Scan(&id, &c.Name, &c.Merchant, &value, &expires, &used, &created); err != nil {
		return nil, err
	}
	c.ID = coupon.ID(id)
	c.Used = used != 0

	var err error
	if c.Value, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("coupon %s: bad value: %w", id, err)
	}
	if c.ExpiresAt, err = benefit.ParseDate(expires); err != nil {
		return nil, fmt.Errorf("coupon %s: bad expires_at: %w", id, err)
	}
	if c.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("coupon %s: bad created_at: %w", id, err)
	}
	return &c, nil
}

// =============================================================================
// REMINDER TRANSPORT - Table-backed stand-in for the OS scheduler
// =============================================================================

// Request upserts the reminder row; re-requesting an id replaces it.
func (s *Store) Request(ctx context.Context, id string, firesAt time.Time, payload reminder.Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, fires_at, payload_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			fires_at = excluded.fires_at,
			payload_json = excluded.payload_json`,
		id, firesAt.UTC().Format(timeLayout), string(body), time.Now().UTC().Format(timeLayout))
	return err
}

// Cancel deletes the given ids; unknown ids are ignored.
func (s *Store) Cancel(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id IN (`+placeholders+`)`, args...)
	return err
}

// PendingReminders returns outstanding reminders ordered by fire time.
// Read by the API for inspection; delivery itself is out of scope.
func (s *Store) PendingReminders(ctx context.Context) ([]reminder.Scheduled, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fires_at, payload_json FROM reminders ORDER BY fires_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reminder.Scheduled
	for rows.Next() {
		var (
			rec            reminder.Scheduled
			firesAt, body  string
		)
		if err := rows.Scan(&rec.ID, &firesAt, &body); err != nil {
			return nil, err
		}
		if rec.FiresAt, err = time.Parse(timeLayout, firesAt); err != nil {
			return nil, fmt.Errorf("reminder %s: bad fires_at: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(body), &rec.Payload); err != nil {
			return nil, fmt.Errorf("reminder %s: bad payload: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
