/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures of the API contract, decoupled from the
  domain types. Amounts cross the wire as float64 with exact decimal math
  kept internal; dates are YYYY-MM-DD strings.

ENVELOPE:
  List endpoints wrap their payload in {"success": true, "data": ...}.
  There is exactly one deserialization boundary (the handlers); responses
  never rely on clients coalescing missing fields.

VALIDATION:
  Request DTOs carry go-playground/validator tags; handlers run the
  validator before touching the store, so a bad submit fails with a 400
  and a field-level message instead of a half-applied write.

SEE ALSO:
  - handlers.go: uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian/tour-office/billing"
	"github.com/meridian/tour-office/engine"
	"github.com/meridian/tour-office/payables"
	"github.com/meridian/tour-office/rates"
	"github.com/meridian/tour-office/store/sqlite"
)

const dateLayout = "2006-01-02"

// =============================================================================
// ITINERARIES
// =============================================================================

// ItineraryDTO is one booking in API responses.
type ItineraryDTO struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	NumTravelers  int     `json:"num_travelers"`
	PaymentStatus string  `json:"payment_status"`
	TotalCost     float64 `json:"total_cost"`
	Currency      string  `json:"currency"`
	CostMode      string  `json:"cost_mode"`
	GuideID       string  `json:"assigned_guide_id,omitempty"`
	VehicleID     string  `json:"assigned_vehicle_id,omitempty"`
	Version       int64   `json:"version"`
	HasConflict   bool    `json:"has_conflict"`
	DisplayCost   string  `json:"display_cost"`
}

// ItineraryListResponse is the calendar payload: bookings plus the ids
// participating in at least one date overlap.
type ItineraryListResponse struct {
	Success     bool           `json:"success"`
	Data        []ItineraryDTO `json:"data"`
	ConflictIDs []string       `json:"conflict_ids"`
}

// CreateItineraryRequest creates a booking.
type CreateItineraryRequest struct {
	Title         string  `json:"title" validate:"required"`
	StartDate     string  `json:"start_date" validate:"required"`
	EndDate       string  `json:"end_date" validate:"required"`
	NumTravelers  int     `json:"num_travelers" validate:"gte=1"`
	PaymentStatus string  `json:"payment_status" validate:"omitempty,oneof=not_paid deposit_received partially_paid paid completed"`
	TotalCost     float64 `json:"total_cost" validate:"gte=0"`
	Currency      string  `json:"currency"`
	CostMode      string  `json:"cost_mode" validate:"omitempty,oneof=auto manual"`
	GuideID       string  `json:"assigned_guide_id"`
	VehicleID     string  `json:"assigned_vehicle_id"`
}

// RescheduleRequest moves a booking on the calendar. Version is the one
// the client read; a stale version is rejected with 409.
type RescheduleRequest struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	Version   int64  `json:"version" validate:"gte=1"`
}

// ServiceDTO is one costed line under a booking.
type ServiceDTO struct {
	ID          string  `json:"id"`
	ItineraryID string  `json:"itinerary_id"`
	RateID      string  `json:"rate_id,omitempty"`
	Description string  `json:"description"`
	ServiceDate string  `json:"service_date"`
	Travelers   int     `json:"travelers"`
	CostMode    string  `json:"cost_mode"`
	Cost        float64 `json:"cost"`
}

// CreateServiceRequest adds a service line to a booking.
type CreateServiceRequest struct {
	RateID      string  `json:"rate_id"`
	Description string  `json:"description" validate:"required"`
	ServiceDate string  `json:"service_date" validate:"required"`
	Travelers   int     `json:"travelers" validate:"gte=1"`
	CostMode    string  `json:"cost_mode" validate:"omitempty,oneof=auto manual"`
	Cost        float64 `json:"cost" validate:"gte=0"`
}

// UpdateServiceCostRequest changes one service's cost and/or cost mode.
type UpdateServiceCostRequest struct {
	Cost     float64 `json:"cost" validate:"gte=0"`
	CostMode string  `json:"cost_mode" validate:"required,oneof=auto manual"`
}

// =============================================================================
// ACCOUNTS PAYABLE
// =============================================================================

// AgingBucketsDTO mirrors engine.AgingTotals for JSON.
type AgingBucketsDTO struct {
	Current    float64 `json:"current"`
	Days30     float64 `json:"days30"`
	Days60     float64 `json:"days60"`
	Days90Plus float64 `json:"days90Plus"`
}

// ExpenseDTO is one payable line with its aging annotation.
type ExpenseDTO struct {
	ID              string  `json:"id"`
	ItineraryID     string  `json:"itinerary_id,omitempty"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	DisplayAmount   string  `json:"display_amount"`
	ExpenseDate     string  `json:"expense_date"`
	Status          string  `json:"status"`
	Category        string  `json:"category"`
	SupplierName    string  `json:"supplier_name"`
	SupplierType    string  `json:"supplier_type"`
	PaymentDate     string  `json:"payment_date,omitempty"`
	DaysOutstanding int     `json:"days_outstanding"`
	AgingBucket     string  `json:"aging_bucket,omitempty"`
	AgingLabel      string  `json:"aging_label,omitempty"`
	IsOverdue       bool    `json:"is_overdue"`
}

// SupplierPayableDTO is the per-supplier rollup row.
type SupplierPayableDTO struct {
	SupplierName string          `json:"supplier_name"`
	SupplierType string          `json:"supplier_type"`
	Outstanding  float64         `json:"outstanding"`
	Buckets      AgingBucketsDTO `json:"buckets"`
	OldestDays   int             `json:"oldest_days"`
	Overdue      bool            `json:"overdue"`
	ExpenseCount int             `json:"expense_count"`
}

// BreakdownEntryDTO is one bar-chart segment.
type BreakdownEntryDTO struct {
	Key     string  `json:"key"`
	Amount  float64 `json:"amount"`
	Percent int64   `json:"percent"`
}

// PayablesResponse is the accounts-payable page payload.
type PayablesResponse struct {
	Success               bool                 `json:"success"`
	AsOf                  string               `json:"as_of"`
	Data                  []SupplierPayableDTO `json:"data"`
	Expenses              []ExpenseDTO         `json:"expenses"`
	RecentPayments        []ExpenseDTO         `json:"recentPayments"`
	Summary               PayablesSummaryDTO   `json:"summary"`
	Buckets               AgingBucketsDTO      `json:"buckets"`
	CategoryBreakdown     []BreakdownEntryDTO  `json:"categoryBreakdown"`
	SupplierTypeBreakdown []BreakdownEntryDTO  `json:"supplierTypeBreakdown"`
}

// PayablesSummaryDTO is the header card.
type PayablesSummaryDTO struct {
	TotalOutstanding float64 `json:"total_outstanding"`
	TotalOverdue     float64 `json:"total_overdue"`
	TotalPaid        float64 `json:"total_paid"`
	OutstandingCount int     `json:"outstanding_count"`
	OverdueCount     int     `json:"overdue_count"`
}

// CreateExpenseRequest records a payable.
type CreateExpenseRequest struct {
	ItineraryID  string  `json:"itinerary_id"`
	Amount       float64 `json:"amount" validate:"gte=0"`
	Currency     string  `json:"currency"`
	ExpenseDate  string  `json:"expense_date" validate:"required"`
	Category     string  `json:"category" validate:"required"`
	SupplierName string  `json:"supplier_name" validate:"required"`
	SupplierType string  `json:"supplier_type"`
}

// UpdateExpenseRequest approves or pays an expense.
type UpdateExpenseRequest struct {
	Status      string `json:"status" validate:"required,oneof=pending approved paid"`
	PaymentDate string `json:"payment_date,omitempty"`
}

// =============================================================================
// COMMISSIONS
// =============================================================================

// CommissionDTO is one commission entry.
type CommissionDTO struct {
	ID           string  `json:"id"`
	ItineraryID  string  `json:"itinerary_id,omitempty"`
	Type         string  `json:"commission_type"`
	Category     string  `json:"category"`
	PartyName    string  `json:"party_name"`
	Currency     string  `json:"currency"`
	BaseAmount   float64 `json:"base_amount"`
	Rate         float64 `json:"commission_rate"`
	Amount       float64 `json:"commission_amount"`
	ManualAmount bool    `json:"manual_amount"`
	Status       string  `json:"status"`
	EarnedAt     string  `json:"earned_at"`
}

// CommissionSummaryDTO is the commissions page header.
type CommissionSummaryDTO struct {
	TotalReceivable float64 `json:"total_receivable"`
	TotalPayable    float64 `json:"total_payable"`
	TotalPending    float64 `json:"total_pending"`
	TotalPaid       float64 `json:"total_paid"`
	Count           int     `json:"count"`
}

// CommissionListResponse is {data, summary}.
type CommissionListResponse struct {
	Data    []CommissionDTO      `json:"data"`
	Summary CommissionSummaryDTO `json:"summary"`
}

// CreateCommissionRequest records a commission.
type CreateCommissionRequest struct {
	ItineraryID string  `json:"itinerary_id"`
	Type        string  `json:"commission_type" validate:"required,oneof=receivable payable"`
	Category    string  `json:"category"`
	PartyName   string  `json:"party_name" validate:"required"`
	Currency    string  `json:"currency"`
	BaseAmount  float64 `json:"base_amount" validate:"gte=0"`
	Rate        float64 `json:"commission_rate" validate:"gte=0,lte=100"`
	EarnedAt    string  `json:"earned_at" validate:"required"`
}

// UpdateCommissionRequest edits a commission. Exactly the fields present
// drive the recompute: changing base or rate re-derives the amount and
// drops any manual override; sending amount alone records an override.
type UpdateCommissionRequest struct {
	BaseAmount *float64 `json:"base_amount,omitempty" validate:"omitempty,gte=0"`
	Rate       *float64 `json:"commission_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	Amount     *float64 `json:"commission_amount,omitempty" validate:"omitempty,gte=0"`
	Status     *string  `json:"status,omitempty" validate:"omitempty,oneof=pending invoiced paid"`
}

// =============================================================================
// INVOICES
// =============================================================================

// InvoiceDTO is one invoice. Status is the STORED status; DisplayStatus
// adds the display-time overdue reclassification.
type InvoiceDTO struct {
	ID             string  `json:"id"`
	ItineraryID    string  `json:"itinerary_id,omitempty"`
	Type           string  `json:"invoice_type"`
	Status         string  `json:"status"`
	DisplayStatus  string  `json:"display_status"`
	Currency       string  `json:"currency"`
	Subtotal       float64 `json:"subtotal"`
	TaxRate        float64 `json:"tax_rate"`
	TaxAmount      float64 `json:"tax_amount"`
	DiscountAmount float64 `json:"discount_amount"`
	TotalAmount    float64 `json:"total_amount"`
	AmountPaid     float64 `json:"amount_paid"`
	BalanceDue     float64 `json:"balance_due"`
	IssuedAt       string  `json:"issued_at,omitempty"`
	DueDate        string  `json:"due_date,omitempty"`
}

// CreateInvoiceRequest creates an invoice. For deposit/final types the
// subtotal is derived from the booking's total cost and DepositPercent;
// standard invoices take Subtotal directly.
type CreateInvoiceRequest struct {
	ItineraryID    string  `json:"itinerary_id"`
	Type           string  `json:"invoice_type" validate:"required,oneof=standard deposit final"`
	Subtotal       float64 `json:"subtotal" validate:"gte=0"`
	TaxRate        float64 `json:"tax_rate" validate:"gte=0,lte=100"`
	DiscountAmount float64 `json:"discount_amount" validate:"gte=0"`
	DepositPercent float64 `json:"deposit_percent" validate:"gte=0,lte=100"`
	DueDate        string  `json:"due_date"`
	Send           bool    `json:"send"`
}

// RecordPaymentRequest applies a payment to an invoice.
type RecordPaymentRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
}

// =============================================================================
// PROFIT / LOSS
// =============================================================================

// TripPnLDTO is one row of the profit-loss report.
type TripPnLDTO struct {
	ItineraryID   string  `json:"itinerary_id"`
	Title         string  `json:"title"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	PaymentStatus string  `json:"payment_status"`
	Revenue       float64 `json:"revenue"`
	Costs         float64 `json:"costs"`
	Margin        float64 `json:"margin"`
	MarginPercent int64   `json:"margin_percent"`
}

// PnLSummaryDTO is the report footer.
type PnLSummaryDTO struct {
	TotalRevenue  float64 `json:"total_revenue"`
	TotalCosts    float64 `json:"total_costs"`
	TotalMargin   float64 `json:"total_margin"`
	MarginPercent int64   `json:"margin_percent"`
	TripCount     int     `json:"trip_count"`
}

// PnLResponse is {success, data, summary}.
type PnLResponse struct {
	Success bool          `json:"success"`
	Data    []TripPnLDTO  `json:"data"`
	Summary PnLSummaryDTO `json:"summary"`
}

// =============================================================================
// RATES
// =============================================================================

// CreateRateRequest carries a rate-sheet config. The body is the
// rates.RateJSON schema itself; validation happens in the rates package.
type CreateRateRequest = rates.RateJSON

// =============================================================================
// SCENARIOS AND ADMIN
// =============================================================================

// ScenarioDTO describes one demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ReconciliationRunDTO is one totals-reconciler run.
type ReconciliationRunDTO struct {
	ID                 string `json:"id"`
	Trigger            string `json:"trigger"`
	Status             string `json:"status"`
	ItinerariesChecked int    `json:"itineraries_checked"`
	DriftFixed         int    `json:"drift_fixed"`
	Error              string `json:"error,omitempty"`
	StartedAt          string `json:"started_at"`
	CompletedAt        string `json:"completed_at,omitempty"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func f64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func toItineraryDTO(it sqlite.Itinerary, conflicts map[string]bool) ItineraryDTO {
	return ItineraryDTO{
		ID:            it.ID,
		Title:         it.Title,
		StartDate:     it.StartDate.Format(dateLayout),
		EndDate:       it.EndDate.Format(dateLayout),
		NumTravelers:  it.NumTravelers,
		PaymentStatus: it.PaymentStatus,
		TotalCost:     f64(it.TotalCost),
		Currency:      it.Currency,
		CostMode:      it.CostMode,
		GuideID:       it.GuideID,
		VehicleID:     it.VehicleID,
		Version:       it.Version,
		HasConflict:   conflicts[it.ID],
		DisplayCost:   engine.FormatMoney(it.TotalCost, it.Currency),
	}
}

func toServiceDTO(svc sqlite.Service) ServiceDTO {
	return ServiceDTO{
		ID:          svc.ID,
		ItineraryID: svc.ItineraryID,
		RateID:      svc.RateID,
		Description: svc.Description,
		ServiceDate: svc.ServiceDate.Format(dateLayout),
		Travelers:   svc.Travelers,
		CostMode:    svc.CostMode,
		Cost:        f64(svc.Cost),
	}
}

func toExpenseDTO(e payables.Expense) ExpenseDTO {
	dto := ExpenseDTO{
		ID:            e.ID,
		ItineraryID:   e.ItineraryID,
		Amount:        f64(e.Amount),
		Currency:      e.Currency,
		DisplayAmount: engine.FormatMoney(e.Amount, e.Currency),
		ExpenseDate:   e.ExpenseDate.Format(dateLayout),
		Status:        string(e.Status),
		Category:      e.Category,
		SupplierName:  e.SupplierName,
		SupplierType:  e.SupplierType,
	}
	if e.PaymentDate != nil {
		dto.PaymentDate = e.PaymentDate.Format(dateLayout)
	}
	return dto
}

func toAgedExpenseDTO(e payables.AgedExpense) ExpenseDTO {
	dto := toExpenseDTO(e.Expense)
	dto.DaysOutstanding = e.DaysOutstanding
	dto.AgingBucket = string(e.Bucket)
	dto.AgingLabel = e.Bucket.Label()
	dto.IsOverdue = e.Overdue
	return dto
}

func toBucketsDTO(a engine.AgingTotals) AgingBucketsDTO {
	return AgingBucketsDTO{
		Current:    f64(a.Current),
		Days30:     f64(a.Days30),
		Days60:     f64(a.Days60),
		Days90Plus: f64(a.Days90Plus),
	}
}

func toBreakdownDTOs(entries []engine.BreakdownEntry) []BreakdownEntryDTO {
	out := make([]BreakdownEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = BreakdownEntryDTO{Key: e.Key, Amount: f64(e.Amount), Percent: e.Percent}
	}
	return out
}

func toCommissionDTO(c billing.Commission) CommissionDTO {
	return CommissionDTO{
		ID:           c.ID,
		ItineraryID:  c.ItineraryID,
		Type:         string(c.Type),
		Category:     c.Category,
		PartyName:    c.PartyName,
		Currency:     c.Currency,
		BaseAmount:   f64(c.BaseAmount),
		Rate:         f64(c.Rate),
		Amount:       f64(c.Amount),
		ManualAmount: c.ManualAmount,
		Status:       string(c.Status),
		EarnedAt:     c.EarnedAt.Format(dateLayout),
	}
}

func toInvoiceDTO(inv billing.Invoice, today time.Time) InvoiceDTO {
	dto := InvoiceDTO{
		ID:             inv.ID,
		ItineraryID:    inv.ItineraryID,
		Type:           string(inv.Type),
		Status:         string(inv.Status),
		DisplayStatus:  inv.DisplayStatus(today),
		Currency:       inv.Currency,
		Subtotal:       f64(inv.Subtotal),
		TaxRate:        f64(inv.TaxRate),
		TaxAmount:      f64(inv.TaxAmount),
		DiscountAmount: f64(inv.DiscountAmount),
		TotalAmount:    f64(inv.TotalAmount),
		AmountPaid:     f64(inv.AmountPaid),
		BalanceDue:     f64(inv.BalanceDue),
	}
	if !inv.IssuedAt.IsZero() {
		dto.IssuedAt = inv.IssuedAt.Format(time.RFC3339)
	}
	if !inv.DueDate.IsZero() {
		dto.DueDate = inv.DueDate.Format(dateLayout)
	}
	return dto
}

func toRunDTO(run sqlite.ReconciliationRun) ReconciliationRunDTO {
	dto := ReconciliationRunDTO{
		ID:                 run.ID,
		Trigger:            run.Trigger,
		Status:             run.Status,
		ItinerariesChecked: run.ItinerariesChecked,
		DriftFixed:         run.DriftFixed,
		Error:              run.Error,
		StartedAt:          run.StartedAt.Format(time.RFC3339),
	}
	if run.CompletedAt != nil {
		dto.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return dto
}
