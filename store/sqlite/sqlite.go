/*
Package sqlite provides the SQLite-backed store for the back-office.

PURPOSE:
  Persists everything the console edits: itineraries and their services,
  expenses, commissions, invoices, rate-sheet items, and reconciliation
  runs. In production the same patterns apply to PostgreSQL, with only
  minor SQL dialect differences.

KEY TABLES:
  itineraries:         bookings with a version counter for optimistic writes
  services:            costed line items under an itinerary
  expenses:            accounts-payable lines
  commissions:         receivable/payable commission entries
  invoices:            money documents (standard / deposit / final)
  rate_items:          JSON rate-sheet configs
  reconciliation_runs: audit trail of total-recompute jobs

CONSISTENCY:
  Two hardenings this schema exists for:
  - Itinerary writes carry an expected version. A stale write fails with
    ErrVersionConflict instead of silently winning, so two planners
    dragging the same booking on the calendar can't clobber each other.
  - A service cost change and the parent itinerary's total update commit
    in ONE SQL transaction, and the total is recomputed from the service
    rows inside that transaction, never trusted from the client.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  single writer at a time, better crash recovery.

CONCURRENCY:
  sync.RWMutex on top of database/sql, same as any single-node deployment
  of this size needs. PostgreSQL would handle this at the database level.

SEE ALSO:
  - finance.go: expense/commission/invoice/rate persistence
  - api/handlers.go: the HTTP layer over this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict is returned when an optimistic write carries a
	// stale version: someone else saved the record first.
	ErrVersionConflict = errors.New("version conflict: record was modified")
)

// =============================================================================
// RECORD TYPES
// =============================================================================

// Itinerary payment statuses.
const (
	PaymentNotPaid         = "not_paid"
	PaymentDepositReceived = "deposit_received"
	PaymentPartiallyPaid   = "partially_paid"
	PaymentPaid            = "paid"
	PaymentCompleted       = "completed"
)

// Itinerary is one booking on the calendar.
type Itinerary struct {
	ID            string
	Title         string
	StartDate     time.Time
	EndDate       time.Time
	NumTravelers  int
	PaymentStatus string
	TotalCost     decimal.Decimal
	Currency      string
	CostMode      string // auto: total derived from services; manual: staff override
	GuideID       string
	VehicleID     string
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Service is a costed line item (activity, meal, sleeper berth, ...)
// under an itinerary.
type Service struct {
	ID          string
	ItineraryID string
	RateID      string
	Description string
	ServiceDate time.Time
	Travelers   int
	CostMode    string
	Cost        decimal.Decimal
}

// ReconciliationRun records one pass of the totals reconciler.
type ReconciliationRun struct {
	ID                 string
	Trigger            string // cron or manual
	Status             string // running, completed, failed
	ItinerariesChecked int
	DriftFixed         int
	Error              string
	StartedAt          time.Time
	CompletedAt        *time.Time
}

// =============================================================================
// STORE
// =============================================================================

// Store implements persistence on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a store at the given path. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS itineraries (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		num_travelers INTEGER NOT NULL DEFAULT 1,
		payment_status TEXT NOT NULL DEFAULT 'not_paid',
		total_cost TEXT NOT NULL DEFAULT '0',
		currency TEXT NOT NULL DEFAULT 'EUR',
		cost_mode TEXT NOT NULL DEFAULT 'auto',
		guide_id TEXT,
		vehicle_id TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_itineraries_dates
		ON itineraries(start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_itineraries_payment_status
		ON itineraries(payment_status);

	CREATE TABLE IF NOT EXISTS services (
		id TEXT PRIMARY KEY,
		itinerary_id TEXT NOT NULL REFERENCES itineraries(id),
		rate_id TEXT,
		description TEXT NOT NULL,
		service_date TEXT NOT NULL,
		travelers INTEGER NOT NULL DEFAULT 1,
		cost_mode TEXT NOT NULL DEFAULT 'auto',
		cost TEXT NOT NULL DEFAULT '0'
	);

	CREATE INDEX IF NOT EXISTS idx_services_itinerary
		ON services(itinerary_id);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		itinerary_id TEXT,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'EUR',
		expense_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		category TEXT NOT NULL DEFAULT '',
		supplier_name TEXT NOT NULL DEFAULT '',
		supplier_type TEXT NOT NULL DEFAULT '',
		payment_date TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_status
		ON expenses(status);
	CREATE INDEX IF NOT EXISTS idx_expenses_supplier
		ON expenses(supplier_name);

	CREATE TABLE IF NOT EXISTS commissions (
		id TEXT PRIMARY KEY,
		itinerary_id TEXT,
		commission_type TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		party_name TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL DEFAULT 'EUR',
		base_amount TEXT NOT NULL DEFAULT '0',
		rate TEXT NOT NULL DEFAULT '0',
		amount TEXT NOT NULL DEFAULT '0',
		manual_amount INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		earned_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_commissions_type
		ON commissions(commission_type);
	CREATE INDEX IF NOT EXISTS idx_commissions_status
		ON commissions(status);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		itinerary_id TEXT,
		invoice_type TEXT NOT NULL DEFAULT 'standard',
		status TEXT NOT NULL DEFAULT 'draft',
		currency TEXT NOT NULL DEFAULT 'EUR',
		subtotal TEXT NOT NULL DEFAULT '0',
		tax_rate TEXT NOT NULL DEFAULT '0',
		tax_amount TEXT NOT NULL DEFAULT '0',
		discount_amount TEXT NOT NULL DEFAULT '0',
		total_amount TEXT NOT NULL DEFAULT '0',
		amount_paid TEXT NOT NULL DEFAULT '0',
		balance_due TEXT NOT NULL DEFAULT '0',
		issued_at TEXT,
		due_date TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_status
		ON invoices(status);
	CREATE INDEX IF NOT EXISTS idx_invoices_itinerary
		ON invoices(itinerary_id);

	CREATE TABLE IF NOT EXISTS rate_items (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rate_items_category
		ON rate_items(category);

	CREATE TABLE IF NOT EXISTS reconciliation_runs (
		id TEXT PRIMARY KEY,
		trigger_source TEXT NOT NULL DEFAULT 'cron',
		status TEXT NOT NULL DEFAULT 'running',
		itineraries_checked INTEGER NOT NULL DEFAULT 0,
		drift_fixed INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reconciliation_runs_status
		ON reconciliation_runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ITINERARIES
// =============================================================================

const dateLayout = "2006-01-02"

// SaveItinerary inserts or replaces an itinerary.
func (s *Store) SaveItinerary(ctx context.Context, it Itinerary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	if it.Version == 0 {
		it.Version = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO itineraries
		(id, title, start_date, end_date, num_travelers, payment_status, total_cost,
		 currency, cost_mode, guide_id, vehicle_id, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			num_travelers = excluded.num_travelers,
			payment_status = excluded.payment_status,
			total_cost = excluded.total_cost,
			currency = excluded.currency,
			cost_mode = excluded.cost_mode,
			guide_id = excluded.guide_id,
			vehicle_id = excluded.vehicle_id,
			version = itineraries.version + 1,
			updated_at = excluded.updated_at
	`,
		it.ID, it.Title,
		it.StartDate.Format(dateLayout), it.EndDate.Format(dateLayout),
		it.NumTravelers, it.PaymentStatus, it.TotalCost.String(),
		it.Currency, it.CostMode,
		nullString(it.GuideID), nullString(it.VehicleID),
		it.Version,
		it.CreatedAt.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save itinerary: %w", err)
	}
	return nil
}

// GetItinerary returns one itinerary, or ErrNotFound.
func (s *Store) GetItinerary(ctx context.Context, id string) (*Itinerary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getItinerary(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getItinerary(ctx context.Context, db queryer, id string) (*Itinerary, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, title, start_date, end_date, num_travelers, payment_status,
		       total_cost, currency, cost_mode, guide_id, vehicle_id, version,
		       created_at, updated_at
		FROM itineraries WHERE id = ?
	`, id)

	it, err := scanItinerary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get itinerary: %w", err)
	}
	return it, nil
}

// ListItineraries returns all itineraries ordered by start date.
func (s *Store) ListItineraries(ctx context.Context) ([]Itinerary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, start_date, end_date, num_travelers, payment_status,
		       total_cost, currency, cost_mode, guide_id, vehicle_id, version,
		       created_at, updated_at
		FROM itineraries ORDER BY start_date ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list itineraries: %w", err)
	}
	defer rows.Close()

	var out []Itinerary
	for rows.Next() {
		it, err := scanItinerary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanItinerary(row scannable) (*Itinerary, error) {
	var (
		it                   Itinerary
		start, end           string
		totalCost            string
		guideID, vehicleID   sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&it.ID, &it.Title, &start, &end, &it.NumTravelers,
		&it.PaymentStatus, &totalCost, &it.Currency, &it.CostMode,
		&guideID, &vehicleID, &it.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	it.StartDate, _ = time.Parse(dateLayout, start)
	it.EndDate, _ = time.Parse(dateLayout, end)
	it.TotalCost = parseDecimal(totalCost)
	it.GuideID = guideID.String
	it.VehicleID = vehicleID.String
	it.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	it.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &it, nil
}

// Reschedule moves an itinerary to new dates. The write carries the
// version the caller read; a stale version fails with ErrVersionConflict
// so overlapping calendar drags never silently overwrite each other.
func (s *Store) Reschedule(ctx context.Context, id string, start, end time.Time, expectedVersion int64) (*Itinerary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE itineraries
		SET start_date = ?, end_date = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, start.Format(dateLayout), end.Format(dateLayout),
		time.Now().UTC().Format(time.RFC3339), id, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to reschedule itinerary: %w", err)
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		if _, err := getItinerary(ctx, s.db, id); errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrVersionConflict
	}
	return getItinerary(ctx, s.db, id)
}

// UpdatePaymentStatus sets the stored payment status of a booking.
func (s *Store) UpdatePaymentStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE itineraries
		SET payment_status = ?, version = version + 1, updated_at = ?
		WHERE id = ?
	`, status, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// SERVICES
// =============================================================================

// SaveService inserts or replaces a service line and recomputes the
// parent itinerary's total in the same transaction.
func (s *Store) SaveService(ctx context.Context, svc Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO services
		(id, itinerary_id, rate_id, description, service_date, travelers, cost_mode, cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rate_id = excluded.rate_id,
			description = excluded.description,
			service_date = excluded.service_date,
			travelers = excluded.travelers,
			cost_mode = excluded.cost_mode,
			cost = excluded.cost
	`, svc.ID, svc.ItineraryID, nullString(svc.RateID), svc.Description,
		svc.ServiceDate.Format(dateLayout), svc.Travelers, svc.CostMode, svc.Cost.String())
	if err != nil {
		return fmt.Errorf("failed to save service: %w", err)
	}

	if _, err := recomputeTotalTx(ctx, tx, svc.ItineraryID); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateServiceCost changes one service's cost (and cost mode) and
// recomputes the parent itinerary's total from the service rows, all in
// one transaction. A failure rolls back both writes; there is no state
// where the service changed but the total did not.
//
// In auto mode with a rate attached, the cost is re-derived from the
// rate sheet (service date + travelers) inside the same transaction and
// the submitted cost is ignored. The staff-entered cost only stands in
// manual mode, or in auto mode when no rate is attached.
func (s *Store) UpdateServiceCost(ctx context.Context, serviceID string, cost decimal.Decimal, costMode string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		itineraryID string
		rateID      sql.NullString
		serviceDate string
		travelers   int
	)
	err = tx.QueryRowContext(ctx,
		"SELECT itinerary_id, rate_id, service_date, travelers FROM services WHERE id = ?",
		serviceID).Scan(&itineraryID, &rateID, &serviceDate, &travelers)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to find service: %w", err)
	}

	if costMode == "auto" && rateID.String != "" {
		rate, err := getRateTx(ctx, tx, rateID.String)
		if err != nil {
			return decimal.Zero, err
		}
		date, _ := time.Parse(dateLayout, serviceDate)
		cost = rate.PriceFor(date, travelers)
	}

	_, err = tx.ExecContext(ctx, "UPDATE services SET cost = ?, cost_mode = ? WHERE id = ?",
		cost.String(), costMode, serviceID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to update service cost: %w", err)
	}

	total, err := recomputeTotalTx(ctx, tx, itineraryID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := tx.Commit(); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// ListServices returns the service lines for one itinerary.
func (s *Store) ListServices(ctx context.Context, itineraryID string) ([]Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, itinerary_id, rate_id, description, service_date, travelers, cost_mode, cost
		FROM services WHERE itinerary_id = ? ORDER BY service_date ASC, id ASC
	`, itineraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var (
			svc         Service
			rateID      sql.NullString
			serviceDate string
			cost        string
		)
		if err := rows.Scan(&svc.ID, &svc.ItineraryID, &rateID, &svc.Description,
			&serviceDate, &svc.Travelers, &svc.CostMode, &cost); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		svc.RateID = rateID.String
		svc.ServiceDate, _ = time.Parse(dateLayout, serviceDate)
		svc.Cost = parseDecimal(cost)
		out = append(out, svc)
	}
	return out, rows.Err()
}

type execQueryer interface {
	queryer
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// recomputeTotalTx re-derives an itinerary's total from its service rows
// inside the caller's transaction. Manual-mode itineraries keep their
// staff-entered total; the recompute is reported but not applied.
func recomputeTotalTx(ctx context.Context, tx execQueryer, itineraryID string) (decimal.Decimal, error) {
	it, err := getItinerary(ctx, tx, itineraryID)
	if err != nil {
		return decimal.Zero, err
	}

	rows, err := tx.QueryContext(ctx, "SELECT cost FROM services WHERE itinerary_id = ?", itineraryID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum services: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var cost string
		if err := rows.Scan(&cost); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(parseDecimal(cost))
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, err
	}

	if it.CostMode == "manual" {
		return it.TotalCost, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE itineraries SET total_cost = ?, version = version + 1, updated_at = ?
		WHERE id = ?
	`, total.String(), time.Now().UTC().Format(time.RFC3339), itineraryID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to update itinerary total: %w", err)
	}
	return total, nil
}

// RecomputeItineraryTotal re-derives one itinerary's total from source
// rows. Returns the stored total, the derived total, and whether drift
// was found (and, for auto-mode itineraries, fixed).
func (s *Store) RecomputeItineraryTotal(ctx context.Context, itineraryID string) (stored, derived decimal.Decimal, drift bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, decimal.Zero, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	it, err := getItinerary(ctx, tx, itineraryID)
	if err != nil {
		return decimal.Zero, decimal.Zero, false, err
	}
	stored = it.TotalCost

	derived, err = recomputeTotalTx(ctx, tx, itineraryID)
	if err != nil {
		return decimal.Zero, decimal.Zero, false, err
	}
	if err := tx.Commit(); err != nil {
		return decimal.Zero, decimal.Zero, false, err
	}
	return stored, derived, !stored.Equal(derived), nil
}

// =============================================================================
// RECONCILIATION RUNS
// =============================================================================

// SaveReconciliationRun inserts or updates a run record.
func (s *Store) SaveReconciliationRun(ctx context.Context, run ReconciliationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completed any
	if run.CompletedAt != nil {
		completed = run.CompletedAt.Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_runs
		(id, trigger_source, status, itineraries_checked, drift_fixed, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			itineraries_checked = excluded.itineraries_checked,
			drift_fixed = excluded.drift_fixed,
			error = excluded.error,
			completed_at = excluded.completed_at
	`, run.ID, run.Trigger, run.Status, run.ItinerariesChecked, run.DriftFixed,
		nullString(run.Error), run.StartedAt.Format(time.RFC3339), completed)
	if err != nil {
		return fmt.Errorf("failed to save reconciliation run: %w", err)
	}
	return nil
}

// ListReconciliationRuns returns runs newest-first, optionally filtered
// by status.
func (s *Store) ListReconciliationRuns(ctx context.Context, status string) ([]ReconciliationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, trigger_source, status, itineraries_checked, drift_fixed, error, started_at, completed_at
		FROM reconciliation_runs
	`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY started_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliation runs: %w", err)
	}
	defer rows.Close()

	var out []ReconciliationRun
	for rows.Next() {
		var (
			run          ReconciliationRun
			errMsg       sql.NullString
			startedAt    string
			completedAt  sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Trigger, &run.Status, &run.ItinerariesChecked,
			&run.DriftFixed, &errMsg, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation run: %w", err)
		}
		run.Error = errMsg.String
		run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			run.CompletedAt = &t
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// =============================================================================
// RESET (scenario loading)
// =============================================================================

// Reset clears all data. Demo scenarios load into a clean database.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"services", "itineraries", "expenses", "commissions",
		"invoices", "rate_items", "reconciliation_runs",
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("failed to clear %s: %w", t, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
