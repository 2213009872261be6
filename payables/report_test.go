package payables_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/tour-office/engine"
	"github.com/meridian/tour-office/payables"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

var asOf = time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)

// expense dated `daysAgo` days before the reference date.
func expense(id string, daysAgo int, amount float64, status payables.ExpenseStatus) payables.Expense {
	return payables.Expense{
		ID:           id,
		Amount:       d(amount),
		Currency:     "EUR",
		ExpenseDate:  asOf.AddDate(0, 0, -daysAgo),
		Status:       status,
		Category:     "transport",
		SupplierName: "Nile Fleet",
		SupplierType: "transport",
	}
}

// =============================================================================
// AGING
// =============================================================================

func TestBuild_BucketsAndOverdue(t *testing.T) {
	expenses := []payables.Expense{
		expense("e-current", 10, 100, payables.ExpensePending),
		expense("e-30", 20, 200, payables.ExpenseApproved),
		expense("e-60", 45, 300, payables.ExpensePending),
		expense("e-90", 75, 400, payables.ExpensePending),
	}

	r := payables.Build(expenses, asOf, payables.Filter{})

	assert.True(t, r.Buckets.Current.Equal(d(100)))
	assert.True(t, r.Buckets.Days30.Equal(d(200)))
	assert.True(t, r.Buckets.Days60.Equal(d(300)))
	assert.True(t, r.Buckets.Days90Plus.Equal(d(400)))

	// bucket totals partition the outstanding total
	assert.True(t, r.Buckets.Total().Equal(r.Summary.TotalOutstanding))
	assert.True(t, r.Summary.TotalOverdue.Equal(d(900)))
	assert.Equal(t, 4, r.Summary.OutstandingCount)
	assert.Equal(t, 3, r.Summary.OverdueCount)
}

func TestBuild_TwentyDaysIsOverdue_TenIsNot(t *testing.T) {
	r := payables.Build([]payables.Expense{
		expense("a", 20, 50, payables.ExpensePending),
		expense("b", 10, 60, payables.ExpensePending),
	}, asOf, payables.Filter{})

	require.Len(t, r.Expenses, 2)
	byID := map[string]payables.AgedExpense{}
	for _, e := range r.Expenses {
		byID[e.ID] = e
	}
	assert.Equal(t, engine.Bucket30, byID["a"].Bucket)
	assert.True(t, byID["a"].Overdue)
	assert.Equal(t, engine.BucketCurrent, byID["b"].Bucket)
	assert.False(t, byID["b"].Overdue)
}

// =============================================================================
// PAID EXPENSES
// =============================================================================

func TestBuild_PaidLeavesAging(t *testing.T) {
	paidAt := asOf.AddDate(0, 0, -1)
	paid := expense("p", 40, 500, payables.ExpensePaid)
	paid.PaymentDate = &paidAt

	r := payables.Build([]payables.Expense{
		paid,
		expense("o", 5, 100, payables.ExpensePending),
	}, asOf, payables.Filter{})

	assert.True(t, r.Summary.TotalOutstanding.Equal(d(100)))
	assert.True(t, r.Summary.TotalPaid.Equal(d(500)))
	require.Len(t, r.RecentPayments, 1)
	assert.Equal(t, "p", r.RecentPayments[0].ID)
}

// =============================================================================
// SUPPLIER ROLLUPS
// =============================================================================

func TestBuild_SupplierRollup(t *testing.T) {
	hotel := expense("h1", 70, 1000, payables.ExpensePending)
	hotel.SupplierName = "Red Sea Lodge"
	hotel.SupplierType = "accommodation"
	hotel.Category = "hotel"

	r := payables.Build([]payables.Expense{
		expense("t1", 5, 100, payables.ExpensePending),
		expense("t2", 25, 200, payables.ExpensePending),
		hotel,
	}, asOf, payables.Filter{})

	require.Len(t, r.Suppliers, 2)
	// ordered by outstanding descending
	assert.Equal(t, "Red Sea Lodge", r.Suppliers[0].SupplierName)
	assert.True(t, r.Suppliers[0].Overdue)
	assert.Equal(t, 70, r.Suppliers[0].OldestDays)

	fleet := r.Suppliers[1]
	assert.Equal(t, "Nile Fleet", fleet.SupplierName)
	assert.True(t, fleet.Outstanding.Equal(d(300)))
	assert.Equal(t, 2, fleet.ExpenseCount)
	assert.Equal(t, 25, fleet.OldestDays)
	assert.True(t, fleet.Buckets.Current.Equal(d(100)))
	assert.True(t, fleet.Buckets.Days30.Equal(d(200)))
}

// =============================================================================
// BREAKDOWNS AND FILTERS
// =============================================================================

func TestBuild_Breakdowns(t *testing.T) {
	hotel := expense("h", 5, 300, payables.ExpensePending)
	hotel.Category = "hotel"
	hotel.SupplierType = "accommodation"

	r := payables.Build([]payables.Expense{
		expense("t", 5, 700, payables.ExpensePending),
		hotel,
	}, asOf, payables.Filter{})

	require.Len(t, r.CategoryBreakdown, 2)
	assert.Equal(t, "transport", r.CategoryBreakdown[0].Key)
	assert.Equal(t, int64(70), r.CategoryBreakdown[0].Percent)
	assert.Equal(t, "hotel", r.CategoryBreakdown[1].Key)
	assert.Equal(t, int64(30), r.CategoryBreakdown[1].Percent)

	require.Len(t, r.SupplierTypeBreakdown, 2)
	assert.Equal(t, "transport", r.SupplierTypeBreakdown[0].Key)
}

func TestBuild_Filters(t *testing.T) {
	hotel := expense("h", 45, 300, payables.ExpenseApproved)
	hotel.SupplierType = "accommodation"

	expenses := []payables.Expense{
		expense("t", 5, 700, payables.ExpensePending),
		hotel,
	}

	byType := payables.Build(expenses, asOf, payables.Filter{SupplierType: "accommodation"})
	require.Len(t, byType.Expenses, 1)
	assert.Equal(t, "h", byType.Expenses[0].ID)
	assert.True(t, byType.Summary.TotalOutstanding.Equal(d(300)))

	byBucket := payables.Build(expenses, asOf, payables.Filter{Bucket: engine.Bucket60})
	require.Len(t, byBucket.Expenses, 1)
	assert.Equal(t, "h", byBucket.Expenses[0].ID)

	byStatus := payables.Build(expenses, asOf, payables.Filter{Status: payables.ExpensePending})
	require.Len(t, byStatus.Expenses, 1)
	assert.Equal(t, "t", byStatus.Expenses[0].ID)
}

func TestBuild_EmptySnapshot(t *testing.T) {
	r := payables.Build(nil, asOf, payables.Filter{})
	assert.True(t, r.Summary.TotalOutstanding.IsZero())
	assert.Empty(t, r.Suppliers)
	assert.Empty(t, r.CategoryBreakdown)
}
