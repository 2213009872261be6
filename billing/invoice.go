/*
Package billing implements invoice and commission arithmetic for the
back-office.

PURPOSE:
  Owns the derivation rules for money documents: invoice totals, the
  invoice status machine, deposit/final invoice pairs, and commission
  amounts with manual-override semantics. Everything here operates on
  in-memory values; persistence and HTTP live elsewhere.

INVARIANTS (re-established on every recompute, never stored stale):
  total_amount = subtotal + tax_amount - discount_amount
  balance_due  = total_amount - amount_paid
  tax_amount   = round2(subtotal * tax_rate / 100)

STATUS MACHINE:
  draft -> sent -> (partial | paid)
  cancel is allowed from any non-terminal state.
  "overdue" is NOT a stored status: it is a display-time reclassification
  of any non-terminal, non-cancelled invoice past its due date with a
  balance outstanding. The stored status is untouched.

SEE ALSO:
  - commission.go: commission derivation and overrides
  - engine/derived.go: rounding and deposit math
*/
package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian/tour-office/engine"
)

// =============================================================================
// TYPES
// =============================================================================

type InvoiceType string

const (
	InvoiceStandard InvoiceType = "standard"
	InvoiceDeposit  InvoiceType = "deposit"
	InvoiceFinal    InvoiceType = "final"
)

type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "draft"
	StatusSent      InvoiceStatus = "sent"
	StatusPartial   InvoiceStatus = "partial"
	StatusPaid      InvoiceStatus = "paid"
	StatusCancelled InvoiceStatus = "cancelled"

	// DisplayOverdue is only ever returned by DisplayStatus, never stored.
	DisplayOverdue = "overdue"
)

// ErrInvalidTransition is returned for a status change the machine forbids.
var ErrInvalidTransition = errors.New("invalid invoice status transition")

// Invoice is a money document for one itinerary.
type Invoice struct {
	ID             string
	ItineraryID    string
	Type           InvoiceType
	Status         InvoiceStatus
	Currency       string
	Subtotal       decimal.Decimal
	TaxRate        decimal.Decimal // percent, 0-100
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	AmountPaid     decimal.Decimal
	BalanceDue     decimal.Decimal
	IssuedAt       time.Time
	DueDate        time.Time
}

// =============================================================================
// TOTALS
// =============================================================================

// RecomputeTotals re-derives tax, total, and balance from the source
// fields. Idempotent: calling it twice changes nothing.
func (inv *Invoice) RecomputeTotals() {
	inv.TaxAmount = engine.Round2(inv.Subtotal.Mul(inv.TaxRate).Div(decimal.NewFromInt(100)))
	inv.TotalAmount = engine.Round2(inv.Subtotal.Add(inv.TaxAmount).Sub(inv.DiscountAmount))
	inv.BalanceDue = engine.Round2(inv.TotalAmount.Sub(inv.AmountPaid))
}

// =============================================================================
// STATUS MACHINE
// =============================================================================

var allowedTransitions = map[InvoiceStatus][]InvoiceStatus{
	StatusDraft:   {StatusSent, StatusCancelled},
	StatusSent:    {StatusPartial, StatusPaid, StatusCancelled},
	StatusPartial: {StatusPartial, StatusPaid, StatusCancelled},
	// paid and cancelled are terminal
}

// TransitionTo moves the invoice to a new stored status, or returns
// ErrInvalidTransition when the machine forbids the move.
func (inv *Invoice) TransitionTo(next InvoiceStatus) error {
	for _, allowed := range allowedTransitions[inv.Status] {
		if next == allowed {
			inv.Status = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inv.Status, next)
}

// ApplyPayment records a payment, re-derives the balance, and advances the
// status to partial or paid as appropriate. Payments against draft or
// cancelled invoices are rejected.
func (inv *Invoice) ApplyPayment(amount decimal.Decimal) error {
	if amount.IsNegative() || amount.IsZero() {
		return fmt.Errorf("payment amount must be positive, got %s", amount)
	}
	if inv.Status == StatusDraft || inv.Status == StatusCancelled || inv.Status == StatusPaid {
		return fmt.Errorf("%w: cannot pay a %s invoice", ErrInvalidTransition, inv.Status)
	}

	inv.AmountPaid = inv.AmountPaid.Add(amount)
	inv.RecomputeTotals()

	if inv.BalanceDue.LessThanOrEqual(decimal.Zero) {
		return inv.TransitionTo(StatusPaid)
	}
	return inv.TransitionTo(StatusPartial)
}

// DisplayStatus returns the status the console shows. A non-terminal,
// non-cancelled invoice past its due date with a balance outstanding is
// presented as overdue; the stored status is never rewritten.
func (inv *Invoice) DisplayStatus(today time.Time) string {
	terminal := inv.Status == StatusPaid || inv.Status == StatusCancelled
	if !terminal && !inv.DueDate.IsZero() && inv.DueDate.Before(today) && inv.BalanceDue.GreaterThan(decimal.Zero) {
		return DisplayOverdue
	}
	return string(inv.Status)
}

// =============================================================================
// DEPOSIT / FINAL PAIRS
// =============================================================================

// DepositSplit describes the two-invoice split of one trip's cost.
type DepositSplit struct {
	DepositAmount decimal.Decimal
	FinalAmount   decimal.Decimal
}

// SplitDeposit computes the deposit/final pair for a trip. The final line
// is the remainder, so the two lines always reconstruct the full cost.
func SplitDeposit(fullCost, depositPercent decimal.Decimal) DepositSplit {
	dep := engine.DepositAmount(fullCost, depositPercent)
	return DepositSplit{
		DepositAmount: dep,
		FinalAmount:   engine.FinalBalance(fullCost, dep),
	}
}

// AmountFor returns the subtotal for one leg of the pair.
func (s DepositSplit) AmountFor(t InvoiceType) decimal.Decimal {
	if t == InvoiceDeposit {
		return s.DepositAmount
	}
	return s.FinalAmount
}
