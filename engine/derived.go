/*
derived.go - Derived amounts: commissions, deposits, balances

PURPOSE:
  Amounts that follow from a base figure and a percentage: commission from
  base x rate, deposit from trip cost x deposit percent, final balance as
  the remainder. All derivation is idempotent: recomputing from unchanged
  inputs is byte-identical, so the UI can recompute freely on every edit.

OVERRIDE CONTRACT (last-input-wins):
  Staff can type directly into a computed field. The manual value persists
  until an upstream input (base or rate) changes, at which point the field
  is recomputed and the manual value is lost. This is the documented
  contract, not an accident of event ordering: whichever input the user
  touched last (the computed field or one of its sources) decides the
  value. OverridableAmount carries that state explicitly.

SEE ALSO:
  - billing/commission.go: commission records using OverridableAmount
  - billing/invoice.go:    deposit/final invoice pairs
*/
package engine

import "github.com/shopspring/decimal"

// CommissionAmount derives a commission from a base amount and a rate
// percentage (0-100), rounded to currency precision.
func CommissionAmount(base, ratePercent decimal.Decimal) decimal.Decimal {
	return Round2(base.Mul(ratePercent).Div(hundred))
}

// DepositAmount derives the upfront deposit line from a full trip cost and
// a deposit percentage.
func DepositAmount(fullCost, depositPercent decimal.Decimal) decimal.Decimal {
	return Round2(fullCost.Mul(depositPercent).Div(hundred))
}

// FinalBalance derives the remaining balance line after a deposit.
// Computed as a remainder, not a second percentage, so deposit + final
// always reconstructs the full cost exactly.
func FinalBalance(fullCost, depositAmount decimal.Decimal) decimal.Decimal {
	return Round2(fullCost.Sub(depositAmount))
}

// =============================================================================
// OVERRIDABLE AMOUNT - computed field with manual-override state
// =============================================================================

// OverridableAmount is a derived amount that a user may have overridden.
type OverridableAmount struct {
	value  decimal.Decimal
	manual bool
}

// DerivedAmount returns a computed (non-overridden) amount.
func DerivedAmount(v decimal.Decimal) OverridableAmount {
	return OverridableAmount{value: v}
}

// ManualAmount returns a manually-entered amount.
func ManualAmount(v decimal.Decimal) OverridableAmount {
	return OverridableAmount{value: v, manual: true}
}

// Value returns the current amount.
func (o OverridableAmount) Value() decimal.Decimal { return o.value }

// IsManual reports whether the amount was manually overridden.
func (o OverridableAmount) IsManual() bool { return o.manual }

// Override replaces the amount with a user-entered value.
func (o OverridableAmount) Override(v decimal.Decimal) OverridableAmount {
	return OverridableAmount{value: v, manual: true}
}

// Recompute applies the derivation again. An upstream input changed, so
// any manual override is dropped: last input wins.
func (o OverridableAmount) Recompute(derived decimal.Decimal) OverridableAmount {
	return OverridableAmount{value: derived}
}
