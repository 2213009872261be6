/*
finance.go - Expense, commission, invoice, and rate-sheet persistence

PURPOSE:
  The finance half of the store. Row types come from the domain packages
  (payables.Expense, billing.Commission, billing.Invoice) so handlers and
  the report builders share one vocabulary; rate sheets are stored as the
  JSON configs the rates package parses.

SEE ALSO:
  - sqlite.go: schema, itineraries, services, reconciliation runs
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/meridian/tour-office/billing"
	"github.com/meridian/tour-office/payables"
	"github.com/meridian/tour-office/rates"
)

// =============================================================================
// EXPENSES
// =============================================================================

// SaveExpense inserts or replaces an expense.
func (s *Store) SaveExpense(ctx context.Context, e payables.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var paymentDate any
	if e.PaymentDate != nil {
		paymentDate = e.PaymentDate.Format(dateLayout)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses
		(id, itinerary_id, amount, currency, expense_date, status, category,
		 supplier_name, supplier_type, payment_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			itinerary_id = excluded.itinerary_id,
			amount = excluded.amount,
			currency = excluded.currency,
			expense_date = excluded.expense_date,
			status = excluded.status,
			category = excluded.category,
			supplier_name = excluded.supplier_name,
			supplier_type = excluded.supplier_type,
			payment_date = excluded.payment_date
	`, e.ID, nullString(e.ItineraryID), e.Amount.String(), e.Currency,
		e.ExpenseDate.Format(dateLayout), string(e.Status), e.Category,
		e.SupplierName, e.SupplierType, paymentDate)
	if err != nil {
		return fmt.Errorf("failed to save expense: %w", err)
	}
	return nil
}

// GetExpense returns one expense, or ErrNotFound.
func (s *Store) GetExpense(ctx context.Context, id string) (*payables.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, expenseSelect+" WHERE id = ?", id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

// ListExpenses returns all expenses ordered by expense date.
func (s *Store) ListExpenses(ctx context.Context) ([]payables.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, expenseSelect+" ORDER BY expense_date ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var out []payables.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// UpdateExpenseStatus moves an expense through its approval lifecycle.
// Marking paid records the payment date.
func (s *Store) UpdateExpenseStatus(ctx context.Context, id string, status payables.ExpenseStatus, paymentDate *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pd any
	if paymentDate != nil {
		pd = paymentDate.Format(dateLayout)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE expenses SET status = ?, payment_date = ? WHERE id = ?",
		string(status), pd, id)
	if err != nil {
		return fmt.Errorf("failed to update expense status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const expenseSelect = `
	SELECT id, itinerary_id, amount, currency, expense_date, status, category,
	       supplier_name, supplier_type, payment_date
	FROM expenses`

func scanExpense(row scannable) (*payables.Expense, error) {
	var (
		e           payables.Expense
		itineraryID sql.NullString
		amount      string
		expenseDate string
		status      string
		paymentDate sql.NullString
	)
	err := row.Scan(&e.ID, &itineraryID, &amount, &e.Currency, &expenseDate,
		&status, &e.Category, &e.SupplierName, &e.SupplierType, &paymentDate)
	if err != nil {
		return nil, err
	}

	e.ItineraryID = itineraryID.String
	e.Amount = parseDecimal(amount)
	e.ExpenseDate, _ = time.Parse(dateLayout, expenseDate)
	e.Status = payables.ExpenseStatus(status)
	if paymentDate.Valid {
		t, _ := time.Parse(dateLayout, paymentDate.String)
		e.PaymentDate = &t
	}
	return &e, nil
}

// =============================================================================
// COMMISSIONS
// =============================================================================

// SaveCommission inserts or replaces a commission entry.
func (s *Store) SaveCommission(ctx context.Context, c billing.Commission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	manual := 0
	if c.ManualAmount {
		manual = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commissions
		(id, itinerary_id, commission_type, category, party_name, currency,
		 base_amount, rate, amount, manual_amount, status, earned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			itinerary_id = excluded.itinerary_id,
			commission_type = excluded.commission_type,
			category = excluded.category,
			party_name = excluded.party_name,
			currency = excluded.currency,
			base_amount = excluded.base_amount,
			rate = excluded.rate,
			amount = excluded.amount,
			manual_amount = excluded.manual_amount,
			status = excluded.status,
			earned_at = excluded.earned_at
	`, c.ID, nullString(c.ItineraryID), string(c.Type), c.Category, c.PartyName,
		c.Currency, c.BaseAmount.String(), c.Rate.String(), c.Amount.String(),
		manual, string(c.Status), c.EarnedAt.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("failed to save commission: %w", err)
	}
	return nil
}

// GetCommission returns one commission, or ErrNotFound.
func (s *Store) GetCommission(ctx context.Context, id string) (*billing.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, commissionSelect+" WHERE id = ?", id)
	c, err := scanCommission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get commission: %w", err)
	}
	return c, nil
}

// ListCommissions returns commissions matching the given filters; empty
// filter values mean "all".
func (s *Store) ListCommissions(ctx context.Context, commissionType, category, status string) ([]billing.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := commissionSelect + " WHERE 1=1"
	var args []any
	if commissionType != "" {
		query += " AND commission_type = ?"
		args = append(args, commissionType)
	}
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY earned_at DESC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}
	defer rows.Close()

	var out []billing.Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

const commissionSelect = `
	SELECT id, itinerary_id, commission_type, category, party_name, currency,
	       base_amount, rate, amount, manual_amount, status, earned_at
	FROM commissions`

func scanCommission(row scannable) (*billing.Commission, error) {
	var (
		c                  billing.Commission
		itineraryID        sql.NullString
		cType, status      string
		base, rate, amount string
		manual             int
		earnedAt           string
	)
	err := row.Scan(&c.ID, &itineraryID, &cType, &c.Category, &c.PartyName,
		&c.Currency, &base, &rate, &amount, &manual, &status, &earnedAt)
	if err != nil {
		return nil, err
	}

	c.ItineraryID = itineraryID.String
	c.Type = billing.CommissionType(cType)
	c.Status = billing.CommissionStatus(status)
	c.BaseAmount = parseDecimal(base)
	c.Rate = parseDecimal(rate)
	c.Amount = parseDecimal(amount)
	c.ManualAmount = manual != 0
	c.EarnedAt, _ = time.Parse(dateLayout, earnedAt)
	return &c, nil
}

// =============================================================================
// INVOICES
// =============================================================================

// SaveInvoice inserts or replaces an invoice.
func (s *Store) SaveInvoice(ctx context.Context, inv billing.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var issuedAt, dueDate any
	if !inv.IssuedAt.IsZero() {
		issuedAt = inv.IssuedAt.Format(time.RFC3339)
	}
	if !inv.DueDate.IsZero() {
		dueDate = inv.DueDate.Format(dateLayout)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices
		(id, itinerary_id, invoice_type, status, currency, subtotal, tax_rate,
		 tax_amount, discount_amount, total_amount, amount_paid, balance_due,
		 issued_at, due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			itinerary_id = excluded.itinerary_id,
			invoice_type = excluded.invoice_type,
			status = excluded.status,
			currency = excluded.currency,
			subtotal = excluded.subtotal,
			tax_rate = excluded.tax_rate,
			tax_amount = excluded.tax_amount,
			discount_amount = excluded.discount_amount,
			total_amount = excluded.total_amount,
			amount_paid = excluded.amount_paid,
			balance_due = excluded.balance_due,
			issued_at = excluded.issued_at,
			due_date = excluded.due_date
	`, inv.ID, nullString(inv.ItineraryID), string(inv.Type), string(inv.Status),
		inv.Currency, inv.Subtotal.String(), inv.TaxRate.String(),
		inv.TaxAmount.String(), inv.DiscountAmount.String(), inv.TotalAmount.String(),
		inv.AmountPaid.String(), inv.BalanceDue.String(), issuedAt, dueDate)
	if err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

// GetInvoice returns one invoice, or ErrNotFound.
func (s *Store) GetInvoice(ctx context.Context, id string) (*billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, invoiceSelect+" WHERE id = ?", id)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

// ListInvoices returns invoices matching the filters; empty values mean
// "all". Status filters match the STORED status; display-time overdue
// reclassification happens in the handler, not in SQL.
func (s *Store) ListInvoices(ctx context.Context, status, invoiceType string) ([]billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := invoiceSelect + " WHERE 1=1"
	var args []any
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	if invoiceType != "" {
		query += " AND invoice_type = ?"
		args = append(args, invoiceType)
	}
	query += " ORDER BY issued_at DESC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var out []billing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// ListInvoicesByItinerary returns the invoices attached to one booking.
func (s *Store) ListInvoicesByItinerary(ctx context.Context, itineraryID string) ([]billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, invoiceSelect+" WHERE itinerary_id = ? ORDER BY issued_at ASC", itineraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var out []billing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

const invoiceSelect = `
	SELECT id, itinerary_id, invoice_type, status, currency, subtotal, tax_rate,
	       tax_amount, discount_amount, total_amount, amount_paid, balance_due,
	       issued_at, due_date
	FROM invoices`

func scanInvoice(row scannable) (*billing.Invoice, error) {
	var (
		inv               billing.Invoice
		itineraryID       sql.NullString
		invType, status   string
		subtotal, taxRate string
		taxAmount         string
		discount, total   string
		paid, balance     string
		issuedAt, dueDate sql.NullString
	)
	err := row.Scan(&inv.ID, &itineraryID, &invType, &status, &inv.Currency,
		&subtotal, &taxRate, &taxAmount, &discount, &total, &paid, &balance,
		&issuedAt, &dueDate)
	if err != nil {
		return nil, err
	}

	inv.ItineraryID = itineraryID.String
	inv.Type = billing.InvoiceType(invType)
	inv.Status = billing.InvoiceStatus(status)
	inv.Subtotal = parseDecimal(subtotal)
	inv.TaxRate = parseDecimal(taxRate)
	inv.TaxAmount = parseDecimal(taxAmount)
	inv.DiscountAmount = parseDecimal(discount)
	inv.TotalAmount = parseDecimal(total)
	inv.AmountPaid = parseDecimal(paid)
	inv.BalanceDue = parseDecimal(balance)
	if issuedAt.Valid {
		inv.IssuedAt, _ = time.Parse(time.RFC3339, issuedAt.String)
	}
	if dueDate.Valid {
		inv.DueDate, _ = time.Parse(dateLayout, dueDate.String)
	}
	return &inv, nil
}

// =============================================================================
// RATE SHEETS
// =============================================================================

// SaveRate stores a parsed rate-sheet item as its JSON config.
func (s *Store) SaveRate(ctx context.Context, r *rates.Rate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := rateConfigJSON(r)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rate_items (id, category, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category,
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`, r.ID, string(r.Category), configJSON, now, now)
	if err != nil {
		return fmt.Errorf("failed to save rate: %w", err)
	}
	return nil
}

// GetRate returns one parsed rate item, or ErrNotFound.
func (s *Store) GetRate(ctx context.Context, id string) (*rates.Rate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRateTx(ctx, s.db, id)
}

// getRateTx loads and parses one rate item inside the caller's
// transaction (or directly on the pool).
func getRateTx(ctx context.Context, db queryer, id string) (*rates.Rate, error) {
	var configJSON string
	err := db.QueryRowContext(ctx,
		"SELECT config_json FROM rate_items WHERE id = ?", id).Scan(&configJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rate: %w", err)
	}
	return rates.Parse(configJSON)
}

// ListRates returns parsed rate items, optionally filtered by category.
// A stored config that no longer parses is skipped rather than failing
// the whole sheet.
func (s *Store) ListRates(ctx context.Context, category string) ([]*rates.Rate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT config_json FROM rate_items"
	var args []any
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rates: %w", err)
	}
	defer rows.Close()

	var out []*rates.Rate
	for rows.Next() {
		var configJSON string
		if err := rows.Scan(&configJSON); err != nil {
			return nil, err
		}
		r, err := rates.Parse(configJSON)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRate removes a rate item.
func (s *Store) DeleteRate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM rate_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func rateConfigJSON(r *rates.Rate) (string, error) {
	raw, err := json.Marshal(r.ToJSON())
	if err != nil {
		return "", fmt.Errorf("failed to encode rate config: %w", err)
	}
	return string(raw), nil
}
