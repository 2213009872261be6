/*
Package payables builds the accounts-payable aging report.

PURPOSE:
  Given a snapshot of expenses and payments fetched from the store, derive
  everything the accounts-payable page renders: aging buckets, per-supplier
  rollups, category and supplier-type breakdowns, recent payments, and the
  header summary. Pure reduction over the snapshot: the builder never
  touches the store and takes its reference date as a parameter, so reports
  are reproducible for any as-of date.

WHAT COUNTS AS OUTSTANDING:
  Expenses in status pending or approved. Paid expenses leave the aging
  columns and appear only in payment history and period totals.

SEE ALSO:
  - engine/aging.go:     bucket policy (incl. the 61-day / "90+" note)
  - engine/aggregate.go: breakdown math
  - api/handlers.go:     the endpoint serving this report
*/
package payables

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian/tour-office/engine"
)

// =============================================================================
// SNAPSHOT TYPES
// =============================================================================

type ExpenseStatus string

const (
	ExpensePending  ExpenseStatus = "pending"
	ExpenseApproved ExpenseStatus = "approved"
	ExpensePaid     ExpenseStatus = "paid"
)

// Expense is one payable line as fetched from the store.
type Expense struct {
	ID           string
	ItineraryID  string
	Amount       decimal.Decimal
	Currency     string
	ExpenseDate  time.Time
	Status       ExpenseStatus
	Category     string
	SupplierName string
	SupplierType string
	PaymentDate  *time.Time
}

// Outstanding reports whether the expense still owes money.
func (e Expense) Outstanding() bool {
	return e.Status == ExpensePending || e.Status == ExpenseApproved
}

// =============================================================================
// REPORT TYPES
// =============================================================================

// SupplierPayable is the per-supplier rollup row.
type SupplierPayable struct {
	SupplierName string
	SupplierType string
	Outstanding  decimal.Decimal
	Buckets      engine.AgingTotals
	OldestDays   int
	Overdue      bool
	ExpenseCount int
}

// Summary is the header card of the accounts-payable page.
type Summary struct {
	TotalOutstanding decimal.Decimal
	TotalOverdue     decimal.Decimal
	TotalPaid        decimal.Decimal
	OutstandingCount int
	OverdueCount     int
}

// Report is the full payload for the accounts-payable page.
type Report struct {
	AsOf                  time.Time
	Buckets               engine.AgingTotals
	Suppliers             []SupplierPayable
	Expenses              []AgedExpense
	RecentPayments        []Expense
	Summary               Summary
	CategoryBreakdown     []engine.BreakdownEntry
	SupplierTypeBreakdown []engine.BreakdownEntry
}

// AgedExpense is an expense annotated with its aging classification.
type AgedExpense struct {
	Expense
	DaysOutstanding int
	Bucket          engine.Bucket
	Overdue         bool
}

// Filter narrows the report to one bucket, supplier type, or status.
// Zero values mean "all".
type Filter struct {
	Bucket       engine.Bucket
	SupplierType string
	Status       ExpenseStatus
}

const recentPaymentsLimit = 10

// =============================================================================
// REPORT BUILDER
// =============================================================================

// Build derives the full report from an expense snapshot as of a reference
// date. Filters apply to the expense list and supplier rollups; the
// summary and breakdowns always describe the filtered set, so the page's
// numbers agree with its rows.
func Build(expenses []Expense, asOf time.Time, f Filter) Report {
	r := Report{AsOf: asOf}

	suppliers := make(map[string]*SupplierPayable)
	var outstanding []AgedExpense

	for _, e := range expenses {
		if f.SupplierType != "" && e.SupplierType != f.SupplierType {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}

		if e.Status == ExpensePaid {
			r.Summary.TotalPaid = r.Summary.TotalPaid.Add(e.Amount)
			r.RecentPayments = append(r.RecentPayments, e)
			continue
		}
		if !e.Outstanding() {
			continue
		}

		days := engine.DaysBetween(e.ExpenseDate, asOf)
		aged := AgedExpense{
			Expense:         e,
			DaysOutstanding: days,
			Bucket:          engine.ClassifyDays(days),
			Overdue:         engine.IsOverdue(days),
		}
		if f.Bucket != "" && aged.Bucket != f.Bucket {
			continue
		}
		outstanding = append(outstanding, aged)

		r.Buckets.Add(aged.Bucket, e.Amount)
		r.Summary.TotalOutstanding = r.Summary.TotalOutstanding.Add(e.Amount)
		r.Summary.OutstandingCount++
		if aged.Overdue {
			r.Summary.TotalOverdue = r.Summary.TotalOverdue.Add(e.Amount)
			r.Summary.OverdueCount++
		}

		sp, ok := suppliers[e.SupplierName]
		if !ok {
			sp = &SupplierPayable{SupplierName: e.SupplierName, SupplierType: e.SupplierType}
			suppliers[e.SupplierName] = sp
		}
		sp.Outstanding = sp.Outstanding.Add(e.Amount)
		sp.Buckets.Add(aged.Bucket, e.Amount)
		sp.ExpenseCount++
		if days > sp.OldestDays {
			sp.OldestDays = days
		}
		if aged.Overdue {
			sp.Overdue = true
		}
	}

	r.Expenses = outstanding
	r.Suppliers = sortSuppliers(suppliers)
	r.RecentPayments = sortRecentPayments(r.RecentPayments)

	r.CategoryBreakdown = engine.Breakdown(engine.GroupSum(outstanding,
		func(e AgedExpense) string { return e.Category },
		func(e AgedExpense) decimal.Decimal { return e.Amount }))
	r.SupplierTypeBreakdown = engine.Breakdown(engine.GroupSum(outstanding,
		func(e AgedExpense) string { return e.SupplierType },
		func(e AgedExpense) decimal.Decimal { return e.Amount }))

	return r
}

// sortSuppliers orders rollups by outstanding amount descending, name
// ascending on ties.
func sortSuppliers(m map[string]*SupplierPayable) []SupplierPayable {
	out := make([]SupplierPayable, 0, len(m))
	for _, sp := range m {
		out = append(out, *sp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Outstanding.Equal(out[j].Outstanding) {
			return out[i].Outstanding.GreaterThan(out[j].Outstanding)
		}
		return out[i].SupplierName < out[j].SupplierName
	})
	return out
}

// sortRecentPayments orders paid expenses newest-first and caps the list.
func sortRecentPayments(paid []Expense) []Expense {
	sort.Slice(paid, func(i, j int) bool {
		ti, tj := paid[i].ExpenseDate, paid[j].ExpenseDate
		if paid[i].PaymentDate != nil {
			ti = *paid[i].PaymentDate
		}
		if paid[j].PaymentDate != nil {
			tj = *paid[j].PaymentDate
		}
		return ti.After(tj)
	})
	if len(paid) > recentPaymentsLimit {
		paid = paid[:recentPaymentsLimit]
	}
	return paid
}
