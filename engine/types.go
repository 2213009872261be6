/*
Package engine provides the pure computation core of the back-office.

PURPOSE:
  Everything in this package is a function of an in-memory snapshot: the
  caller fetches bookings/expenses/invoices from the store, hands them to
  the engine, and renders the result. The engine holds no state of its own
  and performs no I/O, which is what makes aging reports, conflict scans,
  and derived-cost math trivially testable.

KEY CONCEPTS IN THIS FILE (types.go):
  - Round2: the single rounding rule for currency (2 dp, half-up)
  - AmountOrZero: nil-safe amount coercion for sparse API records
  - DaysBetween: calendar-day arithmetic used by the aging classifier

DESIGN PRINCIPLES:
  1. Purity: no clocks, no stores. Reference dates are always parameters
  2. Precision: shopspring/decimal everywhere; float64 only at JSON edges
  3. Totality: degenerate inputs (nil amounts, zero totals, bad dates)
     resolve to safe zero values, never NaN and never a panic

SEE ALSO:
  - overlap.go:   booking conflict detection
  - aging.go:     days-outstanding bucketing
  - aggregate.go: group-by summation and percentages
  - derived.go:   commission / deposit derivation with override semantics
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY HELPERS
// =============================================================================

// Round2 rounds a currency amount to 2 decimal places, half-up.
// Every derived amount in the system goes through this exact rule so that
// repeated recomputation from the same inputs is byte-identical.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// AmountOrZero coerces a possibly-absent amount to a usable value.
// Records arriving from sparse API rows may omit amounts entirely; they
// contribute zero to every sum rather than poisoning it.
func AmountOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

var hundred = decimal.NewFromInt(100)

// =============================================================================
// DATE HELPERS
// =============================================================================

// DaysBetween returns whole calendar days from 'from' to 'to'.
// Both are truncated to midnight UTC first, so time-of-day never leaks
// into aging math. Negative when 'to' precedes 'from'.
func DaysBetween(from, to time.Time) int {
	return int(midnight(to).Sub(midnight(from)).Hours() / 24)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
