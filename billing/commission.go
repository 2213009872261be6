/*
commission.go - Commission records and derivation

PURPOSE:
  Commissions the operator receives from suppliers (receivable) or owes to
  agents (payable). The amount is derived from base x rate unless staff
  typed a figure directly into the amount field, in which case the manual
  value holds until base or rate changes again (last-input-wins, see
  engine/derived.go).
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian/tour-office/engine"
)

type CommissionType string

const (
	CommissionReceivable CommissionType = "receivable"
	CommissionPayable    CommissionType = "payable"
)

type CommissionStatus string

const (
	CommissionPending  CommissionStatus = "pending"
	CommissionInvoiced CommissionStatus = "invoiced"
	CommissionPaid     CommissionStatus = "paid"
)

// Commission is one commission entry against a booking or supplier.
type Commission struct {
	ID           string
	ItineraryID  string
	Type         CommissionType
	Category     string
	PartyName    string
	Currency     string
	BaseAmount   decimal.Decimal
	Rate         decimal.Decimal // percent, 0-100
	Amount       decimal.Decimal
	ManualAmount bool
	Status       CommissionStatus
	EarnedAt     time.Time
}

// Recalculate re-derives the amount from base and rate unless a manual
// override is in effect.
func (c *Commission) Recalculate() {
	if c.ManualAmount {
		return
	}
	c.Amount = engine.CommissionAmount(c.BaseAmount, c.Rate)
}

// SetBase changes the base amount. An upstream input changed, so any
// manual override is dropped and the amount is re-derived.
func (c *Commission) SetBase(base decimal.Decimal) {
	c.BaseAmount = base
	c.ManualAmount = false
	c.Recalculate()
}

// SetRate changes the rate percentage, dropping any manual override.
func (c *Commission) SetRate(rate decimal.Decimal) {
	c.Rate = rate
	c.ManualAmount = false
	c.Recalculate()
}

// OverrideAmount records a staff-entered amount. It persists until
// SetBase or SetRate is called.
func (c *Commission) OverrideAmount(amount decimal.Decimal) {
	c.Amount = engine.Round2(amount)
	c.ManualAmount = true
}

// =============================================================================
// SUMMARIES
// =============================================================================

// CommissionSummary is the header card on the commissions page.
type CommissionSummary struct {
	TotalReceivable decimal.Decimal
	TotalPayable    decimal.Decimal
	TotalPending    decimal.Decimal
	TotalPaid       decimal.Decimal
	Count           int
}

// Summarize folds a commission snapshot into page totals.
func Summarize(commissions []Commission) CommissionSummary {
	s := CommissionSummary{Count: len(commissions)}
	for _, c := range commissions {
		switch c.Type {
		case CommissionReceivable:
			s.TotalReceivable = s.TotalReceivable.Add(c.Amount)
		case CommissionPayable:
			s.TotalPayable = s.TotalPayable.Add(c.Amount)
		}
		switch c.Status {
		case CommissionPending:
			s.TotalPending = s.TotalPending.Add(c.Amount)
		case CommissionPaid:
			s.TotalPaid = s.TotalPaid.Add(c.Amount)
		}
	}
	return s
}
