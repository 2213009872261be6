/*
aggregate.go - Group-by summation over fetched records

PURPOSE:
  The summary cards and breakdown bars on every report page reduce to the
  same operation: sum amounts grouped by some key (status, category,
  supplier, bucket) and express each group as a share of the grand total.

GUARANTEES:
  - Exact decimal accumulation; rounding happens only at presentation.
  - A record with a missing amount contributes zero, never NaN.
  - Percentage of a zero grand total is 0, never a division panic.

SEE ALSO:
  - payables/report.go: category and supplier-type breakdowns
  - api/handlers.go:    commission and profit-loss summaries
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// GroupSum sums amounts grouped by key.
func GroupSum[T any](items []T, key func(T) string, amount func(T) decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(items))
	for _, it := range items {
		k := key(it)
		out[k] = out[k].Add(amount(it))
	}
	return out
}

// SumAmounts sums amounts across all items.
func SumAmounts[T any](items []T, amount func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(amount(it))
	}
	return total
}

// PercentOf returns part/total as a percentage, exact (no rounding).
// A zero total yields 0 rather than NaN or infinity.
func PercentOf(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(total)
}

// WholePercent returns part/total as a whole-number percentage for
// bar-chart segments (0 decimal places, half-up).
func WholePercent(part, total decimal.Decimal) int64 {
	return PercentOf(part, total).Round(0).IntPart()
}

// =============================================================================
// BREAKDOWNS - ordered group totals with shares
// =============================================================================

// BreakdownEntry is one group's slice of a total.
type BreakdownEntry struct {
	Key     string
	Amount  decimal.Decimal
	Percent int64
}

// Breakdown turns a group-sum into entries ordered by amount descending
// (ties broken by key so output is deterministic), each carrying its
// whole-percent share of the grand total.
func Breakdown(groups map[string]decimal.Decimal) []BreakdownEntry {
	total := decimal.Zero
	for _, v := range groups {
		total = total.Add(v)
	}

	entries := make([]BreakdownEntry, 0, len(groups))
	for k, v := range groups {
		entries = append(entries, BreakdownEntry{Key: k, Amount: v, Percent: WholePercent(v, total)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Amount.Equal(entries[j].Amount) {
			return entries[i].Amount.GreaterThan(entries[j].Amount)
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}
