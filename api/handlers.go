/*
handlers.go - HTTP API handlers for the tour back-office

PURPOSE:
  Exposes the booking and finance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Itineraries:
    GET    /api/itineraries               Calendar list + conflict ids
    POST   /api/itineraries               Create booking
    GET    /api/itineraries/{id}          Booking details
    PUT    /api/itineraries/{id}          Reschedule (versioned)
    GET    /api/itineraries/{id}/services Service lines
    POST   /api/itineraries/{id}/services Add service line
    GET    /api/itineraries/{id}/invoices Invoices for a booking
    PUT    /api/services/{id}/cost        Update one service cost

  Payables:
    GET    /api/expenses                  Raw expense list
    POST   /api/expenses                  Record expense
    PUT    /api/expenses/{id}             Approve / pay expense
    GET    /api/reports/accounts-payable  Aging report
    GET    /api/reports/profit-loss       Per-trip P&L

  Commissions:
    GET    /api/commissions               List + summary
    POST   /api/commissions               Record commission
    PUT    /api/commissions/{id}          Edit (recompute or override)

  Invoices:
    GET    /api/invoices                  List with display status
    POST   /api/invoices                  Create (standard or deposit/final)
    POST   /api/invoices/{id}/send        draft -> sent
    POST   /api/invoices/{id}/cancel      Cancel
    POST   /api/invoices/{id}/payments    Record payment

  Rates:
    GET/POST /api/rates, GET/PUT/DELETE /api/rates/{id}

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Version conflict, invalid status transition
  - 500: Internal errors
  Read failures are reported, never swallowed into empty pages.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - reconcile.go: Totals reconciler
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/meridian/tour-office/billing"
	"github.com/meridian/tour-office/engine"
	"github.com/meridian/tour-office/payables"
	"github.com/meridian/tour-office/rates"
	"github.com/meridian/tour-office/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Log        zerolog.Logger
	Reconciler *Reconciler

	validate *validator.Validate

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, log zerolog.Logger) *Handler {
	h := &Handler{
		Store:    store,
		Log:      log,
		validate: validator.New(),
	}
	h.Reconciler = NewReconciler(store, log)
	return h
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// decode parses and validates a request body. Returns false after
// writing the error response.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				details = append(details, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: "validation failed", Code: "validation", Details: details,
			})
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// storeError maps store sentinels to HTTP status codes.
func (h *Handler) storeError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		writeError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, sqlite.ErrVersionConflict):
		writeError(w, http.StatusConflict, what+" was modified by another user, reload and retry")
	default:
		h.Log.Error().Err(err).Str("what", what).Msg("store operation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// =============================================================================
// ITINERARY HANDLERS
// =============================================================================

// ListItineraries returns all bookings plus the ids of those whose date
// ranges overlap another booking. Touching end/start dates count as a
// conflict; trips work in whole days here.
func (h *Handler) ListItineraries(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.ListItineraries(r.Context())
	if err != nil {
		h.storeError(w, err, "itineraries")
		return
	}

	spans := make([]engine.Span, len(items))
	for i, it := range items {
		spans[i] = engine.Span{ID: it.ID, Start: it.StartDate, End: it.EndDate}
	}
	conflicts := engine.DetectConflicts(spans)

	dtos := make([]ItineraryDTO, len(items))
	for i, it := range items {
		dtos[i] = toItineraryDTO(it, conflicts)
	}
	writeJSON(w, http.StatusOK, ItineraryListResponse{
		Success:     true,
		Data:        dtos,
		ConflictIDs: engine.ConflictIDs(spans),
	})
}

func (h *Handler) CreateItinerary(w http.ResponseWriter, r *http.Request) {
	var req CreateItineraryRequest
	if !h.decode(w, r, &req) {
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end_date is before start_date")
		return
	}

	it := sqlite.Itinerary{
		ID:            uuid.NewString(),
		Title:         req.Title,
		StartDate:     start,
		EndDate:       end,
		NumTravelers:  req.NumTravelers,
		PaymentStatus: req.PaymentStatus,
		TotalCost:     decimal.NewFromFloat(req.TotalCost),
		Currency:      req.Currency,
		CostMode:      req.CostMode,
		GuideID:       req.GuideID,
		VehicleID:     req.VehicleID,
	}
	if it.PaymentStatus == "" {
		it.PaymentStatus = sqlite.PaymentNotPaid
	}
	if it.Currency == "" {
		it.Currency = "EUR"
	}
	if it.CostMode == "" {
		it.CostMode = "auto"
	}
	if it.CostMode == "auto" {
		it.TotalCost = decimal.Zero
	}

	if err := h.Store.SaveItinerary(r.Context(), it); err != nil {
		h.storeError(w, err, "itinerary")
		return
	}
	saved, err := h.Store.GetItinerary(r.Context(), it.ID)
	if err != nil {
		h.storeError(w, err, "itinerary")
		return
	}
	writeJSON(w, http.StatusCreated, toItineraryDTO(*saved, nil))
}

func (h *Handler) GetItinerary(w http.ResponseWriter, r *http.Request) {
	it, err := h.Store.GetItinerary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err, "itinerary")
		return
	}
	writeJSON(w, http.StatusOK, toItineraryDTO(*it, nil))
}

// RescheduleItinerary moves a booking on the calendar. The request
// carries the version the client read; a stale version gets a 409 so
// two planners cannot silently overwrite each other's drag.
func (h *Handler) RescheduleItinerary(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end_date is before start_date")
		return
	}

	it, err := h.Store.Reschedule(r.Context(), chi.URLParam(r, "id"), start, end, req.Version)
	if err != nil {
		h.storeError(w, err, "itinerary")
		return
	}
	writeJSON(w, http.StatusOK, toItineraryDTO(*it, nil))
}

// =============================================================================
// SERVICE HANDLERS
// =============================================================================

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.Store.ListServices(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err, "services")
		return
	}
	dtos := make([]ServiceDTO, len(services))
	for i, svc := range services {
		dtos[i] = toServiceDTO(svc)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": dtos})
}

// CreateService adds a costed line to a booking. In auto mode with a
// rate attached, the cost comes from the rate sheet for the service
// date and traveler count; otherwise the submitted cost stands.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	itineraryID := chi.URLParam(r, "id")
	if _, err := h.Store.GetItinerary(r.Context(), itineraryID); err != nil {
		h.storeError(w, err, "itinerary")
		return
	}

	var req CreateServiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	serviceDate, err := parseDate(req.ServiceDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "service_date must be YYYY-MM-DD")
		return
	}

	mode := rates.CostMode(req.CostMode)
	if mode == "" {
		mode = rates.CostModeAuto
	}

	var rate *rates.Rate
	if req.RateID != "" {
		rate, err = h.Store.GetRate(r.Context(), req.RateID)
		if err != nil {
			h.storeError(w, err, "rate")
			return
		}
	}
	cost := rates.ResolveCost(mode, rate, serviceDate, req.Travelers, decimal.NewFromFloat(req.Cost))

	svc := sqlite.Service{
		ID:          uuid.NewString(),
		ItineraryID: itineraryID,
		RateID:      req.RateID,
		Description: req.Description,
		ServiceDate: serviceDate,
		Travelers:   req.Travelers,
		CostMode:    string(mode),
		Cost:        cost,
	}
	if err := h.Store.SaveService(r.Context(), svc); err != nil {
		h.storeError(w, err, "service")
		return
	}
	writeJSON(w, http.StatusCreated, toServiceDTO(svc))
}

// UpdateServiceCost changes one service's cost. Flipping back to auto
// mode re-derives the cost from the attached rate item; the submitted
// cost only stands in manual mode or when no rate is attached. The
// parent booking's total is recomputed in the same transaction, so the
// detail row and the calendar card can never disagree.
func (h *Handler) UpdateServiceCost(w http.ResponseWriter, r *http.Request) {
	var req UpdateServiceCostRequest
	if !h.decode(w, r, &req) {
		return
	}
	total, err := h.Store.UpdateServiceCost(r.Context(), chi.URLParam(r, "serviceID"),
		decimal.NewFromFloat(req.Cost), req.CostMode)
	if err != nil {
		h.storeError(w, err, "service")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"itinerary_total": f64(total),
	})
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.Store.ListExpenses(r.Context())
	if err != nil {
		h.storeError(w, err, "expenses")
		return
	}
	dtos := make([]ExpenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = toExpenseDTO(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": dtos})
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if !h.decode(w, r, &req) {
		return
	}
	expenseDate, err := parseDate(req.ExpenseDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "expense_date must be YYYY-MM-DD")
		return
	}

	e := payables.Expense{
		ID:           uuid.NewString(),
		ItineraryID:  req.ItineraryID,
		Amount:       decimal.NewFromFloat(req.Amount),
		Currency:     req.Currency,
		ExpenseDate:  expenseDate,
		Status:       payables.ExpensePending,
		Category:     req.Category,
		SupplierName: req.SupplierName,
		SupplierType: req.SupplierType,
	}
	if e.Currency == "" {
		e.Currency = "EUR"
	}
	if e.SupplierType == "" {
		e.SupplierType = "other"
	}
	if err := h.Store.SaveExpense(r.Context(), e); err != nil {
		h.storeError(w, err, "expense")
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(e))
}

// UpdateExpense moves an expense through pending -> approved -> paid.
// Marking paid stamps the payment date (today when not supplied), which
// removes the expense from aging and adds it to recent payments.
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req UpdateExpenseRequest
	if !h.decode(w, r, &req) {
		return
	}

	status := payables.ExpenseStatus(req.Status)
	var paymentDate *time.Time
	if status == payables.ExpensePaid {
		paid := time.Now().UTC().Truncate(24 * time.Hour)
		if req.PaymentDate != "" {
			parsed, err := parseDate(req.PaymentDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "payment_date must be YYYY-MM-DD")
				return
			}
			paid = parsed
		}
		paymentDate = &paid
	}

	id := chi.URLParam(r, "id")
	if err := h.Store.UpdateExpenseStatus(r.Context(), id, status, paymentDate); err != nil {
		h.storeError(w, err, "expense")
		return
	}
	e, err := h.Store.GetExpense(r.Context(), id)
	if err != nil {
		h.storeError(w, err, "expense")
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(*e))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// AccountsPayableReport builds the aging report. Query params: bucket,
// supplierType, status narrow the set; asOf (YYYY-MM-DD) moves the
// reference date, defaulting to today.
func (h *Handler) AccountsPayableReport(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.Store.ListExpenses(r.Context())
	if err != nil {
		h.storeError(w, err, "expenses")
		return
	}

	asOf := time.Now().UTC()
	if s := r.URL.Query().Get("asOf"); s != "" {
		parsed, err := parseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "asOf must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	bucket := r.URL.Query().Get("aging")
	if bucket == "" {
		bucket = r.URL.Query().Get("bucket")
	}
	filter := payables.Filter{
		Bucket:       engine.Bucket(bucket),
		SupplierType: r.URL.Query().Get("supplierType"),
		Status:       payables.ExpenseStatus(r.URL.Query().Get("status")),
	}
	report := payables.Build(expenses, asOf, filter)

	suppliers := make([]SupplierPayableDTO, len(report.Suppliers))
	for i, sp := range report.Suppliers {
		suppliers[i] = SupplierPayableDTO{
			SupplierName: sp.SupplierName,
			SupplierType: sp.SupplierType,
			Outstanding:  f64(sp.Outstanding),
			Buckets:      toBucketsDTO(sp.Buckets),
			OldestDays:   sp.OldestDays,
			Overdue:      sp.Overdue,
			ExpenseCount: sp.ExpenseCount,
		}
	}
	aged := make([]ExpenseDTO, len(report.Expenses))
	for i, e := range report.Expenses {
		aged[i] = toAgedExpenseDTO(e)
	}
	recent := make([]ExpenseDTO, len(report.RecentPayments))
	for i, e := range report.RecentPayments {
		recent[i] = toExpenseDTO(e)
	}

	writeJSON(w, http.StatusOK, PayablesResponse{
		Success:        true,
		AsOf:           report.AsOf.Format(dateLayout),
		Data:           suppliers,
		Expenses:       aged,
		RecentPayments: recent,
		Summary: PayablesSummaryDTO{
			TotalOutstanding: f64(report.Summary.TotalOutstanding),
			TotalOverdue:     f64(report.Summary.TotalOverdue),
			TotalPaid:        f64(report.Summary.TotalPaid),
			OutstandingCount: report.Summary.OutstandingCount,
			OverdueCount:     report.Summary.OverdueCount,
		},
		Buckets:               toBucketsDTO(report.Buckets),
		CategoryBreakdown:     toBreakdownDTOs(report.CategoryBreakdown),
		SupplierTypeBreakdown: toBreakdownDTOs(report.SupplierTypeBreakdown),
	})
}

// ProfitLossReport computes per-trip revenue, costs, and margin.
// Revenue is the total of the trip's non-cancelled invoices. Costs are
// the trip's expenses plus payable commissions. Query params: status
// (payment status), startDate, endDate (trip start window).
func (h *Handler) ProfitLossReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := h.Store.ListItineraries(ctx)
	if err != nil {
		h.storeError(w, err, "itineraries")
		return
	}
	expenses, err := h.Store.ListExpenses(ctx)
	if err != nil {
		h.storeError(w, err, "expenses")
		return
	}
	commissions, err := h.Store.ListCommissions(ctx, string(billing.CommissionPayable), "", "")
	if err != nil {
		h.storeError(w, err, "commissions")
		return
	}
	invoices, err := h.Store.ListInvoices(ctx, "", "")
	if err != nil {
		h.storeError(w, err, "invoices")
		return
	}

	q := r.URL.Query()
	statusFilter := q.Get("status")
	var fromDate, toDate time.Time
	if s := q.Get("startDate"); s != "" {
		if fromDate, err = parseDate(s); err != nil {
			writeError(w, http.StatusBadRequest, "startDate must be YYYY-MM-DD")
			return
		}
	}
	if s := q.Get("endDate"); s != "" {
		if toDate, err = parseDate(s); err != nil {
			writeError(w, http.StatusBadRequest, "endDate must be YYYY-MM-DD")
			return
		}
	}

	revenueByTrip := make(map[string]decimal.Decimal)
	for _, inv := range invoices {
		if inv.ItineraryID == "" || inv.Status == billing.StatusCancelled {
			continue
		}
		revenueByTrip[inv.ItineraryID] = revenueByTrip[inv.ItineraryID].Add(inv.TotalAmount)
	}
	costsByTrip := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		if e.ItineraryID != "" {
			costsByTrip[e.ItineraryID] = costsByTrip[e.ItineraryID].Add(e.Amount)
		}
	}
	for _, c := range commissions {
		if c.ItineraryID != "" {
			costsByTrip[c.ItineraryID] = costsByTrip[c.ItineraryID].Add(c.Amount)
		}
	}

	var rows []TripPnLDTO
	var totalRevenue, totalCosts decimal.Decimal
	for _, it := range items {
		if statusFilter != "" && it.PaymentStatus != statusFilter {
			continue
		}
		if !fromDate.IsZero() && it.StartDate.Before(fromDate) {
			continue
		}
		if !toDate.IsZero() && it.StartDate.After(toDate) {
			continue
		}

		revenue := revenueByTrip[it.ID]
		costs := costsByTrip[it.ID]
		margin := revenue.Sub(costs)
		totalRevenue = totalRevenue.Add(revenue)
		totalCosts = totalCosts.Add(costs)

		rows = append(rows, TripPnLDTO{
			ItineraryID:   it.ID,
			Title:         it.Title,
			StartDate:     it.StartDate.Format(dateLayout),
			EndDate:       it.EndDate.Format(dateLayout),
			PaymentStatus: it.PaymentStatus,
			Revenue:       f64(revenue),
			Costs:         f64(costs),
			Margin:        f64(margin),
			MarginPercent: engine.WholePercent(margin, revenue),
		})
	}
	totalMargin := totalRevenue.Sub(totalCosts)

	if rows == nil {
		rows = []TripPnLDTO{}
	}
	writeJSON(w, http.StatusOK, PnLResponse{
		Success: true,
		Data:    rows,
		Summary: PnLSummaryDTO{
			TotalRevenue:  f64(totalRevenue),
			TotalCosts:    f64(totalCosts),
			TotalMargin:   f64(totalMargin),
			MarginPercent: engine.WholePercent(totalMargin, totalRevenue),
			TripCount:     len(rows),
		},
	})
}

// =============================================================================
// COMMISSION HANDLERS
// =============================================================================

func (h *Handler) ListCommissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	commissions, err := h.Store.ListCommissions(r.Context(),
		q.Get("type"), q.Get("category"), q.Get("status"))
	if err != nil {
		h.storeError(w, err, "commissions")
		return
	}

	dtos := make([]CommissionDTO, len(commissions))
	for i, c := range commissions {
		dtos[i] = toCommissionDTO(c)
	}
	s := billing.Summarize(commissions)
	writeJSON(w, http.StatusOK, CommissionListResponse{
		Data: dtos,
		Summary: CommissionSummaryDTO{
			TotalReceivable: f64(s.TotalReceivable),
			TotalPayable:    f64(s.TotalPayable),
			TotalPending:    f64(s.TotalPending),
			TotalPaid:       f64(s.TotalPaid),
			Count:           s.Count,
		},
	})
}

func (h *Handler) CreateCommission(w http.ResponseWriter, r *http.Request) {
	var req CreateCommissionRequest
	if !h.decode(w, r, &req) {
		return
	}
	earnedAt, err := parseDate(req.EarnedAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "earned_at must be YYYY-MM-DD")
		return
	}

	c := billing.Commission{
		ID:          uuid.NewString(),
		ItineraryID: req.ItineraryID,
		Type:        billing.CommissionType(req.Type),
		Category:    req.Category,
		PartyName:   req.PartyName,
		Currency:    req.Currency,
		BaseAmount:  decimal.NewFromFloat(req.BaseAmount),
		Rate:        decimal.NewFromFloat(req.Rate),
		Status:      billing.CommissionPending,
		EarnedAt:    earnedAt,
	}
	if c.Currency == "" {
		c.Currency = "EUR"
	}
	c.Recalculate()

	if err := h.Store.SaveCommission(r.Context(), c); err != nil {
		h.storeError(w, err, "commission")
		return
	}
	writeJSON(w, http.StatusCreated, toCommissionDTO(c))
}

// UpdateCommission edits a commission. Changing base or rate re-derives
// the amount and clears any manual override; sending an amount records
// an override that stands until base or rate changes again. When both
// arrive in one request the amount is the later input and wins.
func (h *Handler) UpdateCommission(w http.ResponseWriter, r *http.Request) {
	var req UpdateCommissionRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.Store.GetCommission(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err, "commission")
		return
	}

	if req.BaseAmount != nil {
		c.SetBase(decimal.NewFromFloat(*req.BaseAmount))
	}
	if req.Rate != nil {
		c.SetRate(decimal.NewFromFloat(*req.Rate))
	}
	if req.Amount != nil {
		c.OverrideAmount(decimal.NewFromFloat(*req.Amount))
	}
	if req.Status != nil {
		c.Status = billing.CommissionStatus(*req.Status)
	}

	if err := h.Store.SaveCommission(r.Context(), *c); err != nil {
		h.storeError(w, err, "commission")
		return
	}
	writeJSON(w, http.StatusOK, toCommissionDTO(*c))
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	invoices, err := h.Store.ListInvoices(r.Context(), q.Get("status"), q.Get("type"))
	if err != nil {
		h.storeError(w, err, "invoices")
		return
	}
	today := time.Now().UTC()
	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv, today)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListItineraryInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.Store.ListInvoicesByItinerary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err, "invoices")
		return
	}
	today := time.Now().UTC()
	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv, today)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Store.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err, "invoice")
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv, time.Now().UTC()))
}

// CreateInvoice creates an invoice in draft (or sends it immediately
// with "send": true). Standard invoices take the submitted subtotal.
// Deposit and final invoices derive their subtotal from the booking's
// total cost: deposit takes deposit_percent of it, final takes the
// remainder so the two always add back to the full cost.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if !h.decode(w, r, &req) {
		return
	}

	invType := billing.InvoiceType(req.Type)
	subtotal := decimal.NewFromFloat(req.Subtotal)
	currency := "EUR"

	if invType == billing.InvoiceDeposit || invType == billing.InvoiceFinal {
		if req.ItineraryID == "" {
			writeError(w, http.StatusBadRequest, "deposit and final invoices require itinerary_id")
			return
		}
		if req.DepositPercent <= 0 {
			writeError(w, http.StatusBadRequest, "deposit and final invoices require deposit_percent")
			return
		}
		it, err := h.Store.GetItinerary(r.Context(), req.ItineraryID)
		if err != nil {
			h.storeError(w, err, "itinerary")
			return
		}
		split := billing.SplitDeposit(it.TotalCost, decimal.NewFromFloat(req.DepositPercent))
		subtotal = split.AmountFor(invType)
		currency = it.Currency
	} else if req.ItineraryID != "" {
		it, err := h.Store.GetItinerary(r.Context(), req.ItineraryID)
		if err != nil {
			h.storeError(w, err, "itinerary")
			return
		}
		currency = it.Currency
	}

	inv := billing.Invoice{
		ID:             uuid.NewString(),
		ItineraryID:    req.ItineraryID,
		Type:           invType,
		Status:         billing.StatusDraft,
		Currency:       currency,
		Subtotal:       subtotal,
		TaxRate:        decimal.NewFromFloat(req.TaxRate),
		DiscountAmount: decimal.NewFromFloat(req.DiscountAmount),
	}
	if req.DueDate != "" {
		due, err := parseDate(req.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
			return
		}
		inv.DueDate = due
	}
	inv.RecomputeTotals()

	if req.Send {
		if err := inv.TransitionTo(billing.StatusSent); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		inv.IssuedAt = time.Now().UTC()
	}

	if err := h.Store.SaveInvoice(r.Context(), inv); err != nil {
		h.storeError(w, err, "invoice")
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(inv, time.Now().UTC()))
}

func (h *Handler) SendInvoice(w http.ResponseWriter, r *http.Request) {
	h.transitionInvoice(w, r, billing.StatusSent)
}

func (h *Handler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	h.transitionInvoice(w, r, billing.StatusCancelled)
}

func (h *Handler) transitionInvoice(w http.ResponseWriter, r *http.Request, next billing.InvoiceStatus) {
	inv, err := h.Store.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err, "invoice")
		return
	}
	if err := inv.TransitionTo(next); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if next == billing.StatusSent && inv.IssuedAt.IsZero() {
		inv.IssuedAt = time.Now().UTC()
	}
	if err := h.Store.SaveInvoice(r.Context(), *inv); err != nil {
		h.storeError(w, err, "invoice")
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv, time.Now().UTC()))
}

// RecordPayment applies a payment to an invoice and reflects the result
// on the booking's payment status: a paid deposit invoice marks the
// booking deposit_received, a paid final or standard invoice marks it
// paid, and a partial payment marks it partially_paid.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	inv, err := h.Store.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err, "invoice")
		return
	}
	if err := inv.ApplyPayment(decimal.NewFromFloat(req.Amount)); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err := h.Store.SaveInvoice(r.Context(), *inv); err != nil {
		h.storeError(w, err, "invoice")
		return
	}

	if inv.ItineraryID != "" {
		var status string
		switch {
		case inv.Status == billing.StatusPaid && inv.Type == billing.InvoiceDeposit:
			status = sqlite.PaymentDepositReceived
		case inv.Status == billing.StatusPaid:
			status = sqlite.PaymentPaid
		case inv.Status == billing.StatusPartial:
			status = sqlite.PaymentPartiallyPaid
		}
		if status != "" {
			if err := h.Store.UpdatePaymentStatus(r.Context(), inv.ItineraryID, status); err != nil {
				h.Log.Error().Err(err).Str("itinerary", inv.ItineraryID).
					Msg("payment recorded but booking status update failed")
			}
		}
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv, time.Now().UTC()))
}

// =============================================================================
// RATE HANDLERS
// =============================================================================

func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.ListRates(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.storeError(w, err, "rates")
		return
	}
	dtos := make([]rates.RateJSON, len(list))
	for i, rate := range list {
		dtos[i] = rate.ToJSON()
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": dtos})
}

func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.Store.GetRate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err, "rate")
		return
	}
	writeJSON(w, http.StatusOK, rate.ToJSON())
}

func (h *Handler) CreateRate(w http.ResponseWriter, r *http.Request) {
	var req CreateRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	rate, err := rates.FromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Store.SaveRate(r.Context(), rate); err != nil {
		h.storeError(w, err, "rate")
		return
	}
	writeJSON(w, http.StatusCreated, rate.ToJSON())
}

func (h *Handler) UpdateRate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Store.GetRate(r.Context(), id); err != nil {
		h.storeError(w, err, "rate")
		return
	}

	var req CreateRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	req.ID = id
	rate, err := rates.FromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Store.SaveRate(r.Context(), rate); err != nil {
		h.storeError(w, err, "rate")
		return
	}
	writeJSON(w, http.StatusOK, rate.ToJSON())
}

func (h *Handler) DeleteRate(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteRate(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.storeError(w, err, "rate")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// =============================================================================
// RECONCILIATION HANDLERS
// =============================================================================

func (h *Handler) ListReconciliationRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListReconciliationRuns(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.storeError(w, err, "reconciliation runs")
		return
	}
	dtos := make([]ReconciliationRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": dtos})
}

// TriggerReconciliation runs the totals reconciler immediately.
func (h *Handler) TriggerReconciliation(w http.ResponseWriter, r *http.Request) {
	run, err := h.Reconciler.Run(r.Context(), TriggerManual)
	if err != nil {
		h.Log.Error().Err(err).Msg("manual reconciliation failed")
		writeError(w, http.StatusInternalServerError, "reconciliation failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*run))
}
