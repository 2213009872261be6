package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/tour-office/billing"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func sentInvoice(subtotal, taxRate, discount float64) *billing.Invoice {
	inv := &billing.Invoice{
		ID:             "inv-1",
		Type:           billing.InvoiceStandard,
		Status:         billing.StatusSent,
		Currency:       "EUR",
		Subtotal:       d(subtotal),
		TaxRate:        d(taxRate),
		DiscountAmount: d(discount),
		DueDate:        time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC),
	}
	inv.RecomputeTotals()
	return inv
}

// =============================================================================
// TOTALS
// =============================================================================

func TestRecomputeTotals(t *testing.T) {
	// subtotal=1000, tax 10%, discount 50 -> tax=100, total=1050
	inv := sentInvoice(1000, 10, 50)

	assert.True(t, inv.TaxAmount.Equal(d(100)))
	assert.True(t, inv.TotalAmount.Equal(d(1050)))
	assert.True(t, inv.BalanceDue.Equal(d(1050)))

	// balance_due tracks amount_paid
	inv.AmountPaid = d(300)
	inv.RecomputeTotals()
	assert.True(t, inv.BalanceDue.Equal(d(750)))
}

func TestRecomputeTotals_Idempotent(t *testing.T) {
	inv := sentInvoice(999.99, 7.5, 12.34)
	first := inv.TotalAmount
	inv.RecomputeTotals()
	inv.RecomputeTotals()
	assert.Equal(t, first.String(), inv.TotalAmount.String())
}

// =============================================================================
// STATUS MACHINE
// =============================================================================

func TestTransitions(t *testing.T) {
	inv := &billing.Invoice{Status: billing.StatusDraft}

	require.NoError(t, inv.TransitionTo(billing.StatusSent))
	require.NoError(t, inv.TransitionTo(billing.StatusPartial))
	require.NoError(t, inv.TransitionTo(billing.StatusPaid))

	// paid is terminal
	err := inv.TransitionTo(billing.StatusSent)
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)
}

func TestTransitions_DraftCannotSkipToPaid(t *testing.T) {
	inv := &billing.Invoice{Status: billing.StatusDraft}
	assert.ErrorIs(t, inv.TransitionTo(billing.StatusPaid), billing.ErrInvalidTransition)
}

func TestTransitions_CancelFromNonTerminal(t *testing.T) {
	for _, from := range []billing.InvoiceStatus{billing.StatusDraft, billing.StatusSent, billing.StatusPartial} {
		inv := &billing.Invoice{Status: from}
		assert.NoError(t, inv.TransitionTo(billing.StatusCancelled), "from %s", from)
	}
	inv := &billing.Invoice{Status: billing.StatusPaid}
	assert.Error(t, inv.TransitionTo(billing.StatusCancelled))
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestApplyPayment_PartialThenPaid(t *testing.T) {
	inv := sentInvoice(1000, 0, 0)

	require.NoError(t, inv.ApplyPayment(d(400)))
	assert.Equal(t, billing.StatusPartial, inv.Status)
	assert.True(t, inv.BalanceDue.Equal(d(600)))

	require.NoError(t, inv.ApplyPayment(d(600)))
	assert.Equal(t, billing.StatusPaid, inv.Status)
	assert.True(t, inv.BalanceDue.IsZero())
}

func TestApplyPayment_Rejections(t *testing.T) {
	inv := sentInvoice(100, 0, 0)
	assert.Error(t, inv.ApplyPayment(decimal.Zero))
	assert.Error(t, inv.ApplyPayment(d(-5)))

	draft := &billing.Invoice{Status: billing.StatusDraft}
	assert.ErrorIs(t, draft.ApplyPayment(d(10)), billing.ErrInvalidTransition)
}

// =============================================================================
// DISPLAY STATUS
// =============================================================================

func TestDisplayStatus_OverdueIsDisplayOnly(t *testing.T) {
	inv := sentInvoice(1000, 10, 0)
	after := inv.DueDate.AddDate(0, 0, 5)
	before := inv.DueDate.AddDate(0, 0, -5)

	assert.Equal(t, "sent", inv.DisplayStatus(before))
	assert.Equal(t, billing.DisplayOverdue, inv.DisplayStatus(after))
	// stored status untouched by display-time reclassification
	assert.Equal(t, billing.StatusSent, inv.Status)
}

func TestDisplayStatus_TerminalNeverOverdue(t *testing.T) {
	inv := sentInvoice(1000, 0, 0)
	require.NoError(t, inv.ApplyPayment(d(1000)))
	late := inv.DueDate.AddDate(0, 1, 0)
	assert.Equal(t, "paid", inv.DisplayStatus(late))

	cancelled := sentInvoice(500, 0, 0)
	require.NoError(t, cancelled.TransitionTo(billing.StatusCancelled))
	assert.Equal(t, "cancelled", cancelled.DisplayStatus(late))
}

func TestDisplayStatus_NoBalanceNoOverdue(t *testing.T) {
	inv := sentInvoice(0, 0, 0)
	late := inv.DueDate.AddDate(0, 0, 10)
	assert.Equal(t, "sent", inv.DisplayStatus(late))
}

// =============================================================================
// DEPOSIT / FINAL PAIRS
// =============================================================================

func TestSplitDeposit(t *testing.T) {
	split := billing.SplitDeposit(d(2000), d(10))

	assert.True(t, split.DepositAmount.Equal(d(200)))
	assert.True(t, split.FinalAmount.Equal(d(1800)))
	assert.True(t, split.AmountFor(billing.InvoiceDeposit).Equal(d(200)))
	assert.True(t, split.AmountFor(billing.InvoiceFinal).Equal(d(1800)))
}

func TestSplitDeposit_ReconstructsFullCost(t *testing.T) {
	cases := []struct{ full, pct float64 }{
		{2000, 10}, {999.99, 33}, {1234.56, 12.5}, {100, 0}, {0, 25},
	}
	for _, c := range cases {
		split := billing.SplitDeposit(d(c.full), d(c.pct))
		sum := split.DepositAmount.Add(split.FinalAmount)
		assert.True(t, sum.Equal(d(c.full)), "full=%v pct=%v sum=%s", c.full, c.pct, sum)
	}
}
