/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates bookings, services,
	expenses, commissions, and invoices that demonstrate specific features.

AVAILABLE SCENARIOS:

	high-season-overlap: Bookings with calendar conflicts over shared guides
	aging-payables:      Supplier expenses spread across all aging buckets
	deposit-final:       Deposit/final invoice pair through payment

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create rate sheet entries
 3. Create bookings with services
 4. Add finance records (expenses, commissions, invoices)

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "aging-payables"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Shared response helpers
  - rates/ratesheet.go: Rate JSON definitions used by seeds
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian/tour-office/billing"
	"github.com/meridian/tour-office/payables"
	"github.com/meridian/tour-office/rates"
	"github.com/meridian/tour-office/store/sqlite"
)

// =============================================================================
// SCENARIO REGISTRY
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "high-season-overlap",
		Name:        "High Season Overlap",
		Description: "Three June departures where two share dates, so the calendar flags a conflict.",
	},
	{
		ID:          "aging-payables",
		Name:        "Aging Payables",
		Description: "Supplier expenses spread across every aging bucket, with recent payments.",
	},
	{
		ID:          "deposit-final",
		Name:        "Deposit and Final Invoicing",
		Description: "A booking invoiced as a 30% deposit plus final balance, deposit already paid.",
	},
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": scenarios})
}

func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"scenario": h.currentScenario,
	})
}

func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		h.storeError(w, err, "database")
		return
	}

	var err error
	switch req.ScenarioID {
	case "high-season-overlap":
		err = loadHighSeasonOverlap(ctx, h.Store)
	case "aging-payables":
		err = loadAgingPayables(ctx, h.Store)
	case "deposit-final":
		err = loadDepositFinal(ctx, h.Store)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown scenario %q", req.ScenarioID))
		return
	}
	if err != nil {
		h.Log.Error().Err(err).Str("scenario", req.ScenarioID).Msg("scenario load failed")
		writeError(w, http.StatusInternalServerError, "scenario load failed: "+err.Error())
		return
	}

	h.currentScenario = req.ScenarioID
	h.Log.Info().Str("scenario", req.ScenarioID).Msg("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "scenario": req.ScenarioID})
}

func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.storeError(w, err, "database")
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func seedRates(ctx context.Context, store *sqlite.Store) error {
	configs := []string{
		`{"id":"act-felucca","name":"Felucca Sunset Sail","category":"activity","unit":"per_group","currency":"EUR","base_price":"120",
		  "seasons":[{"from":"2024-06-01","to":"2024-09-30","price":"150"}]}`,
		`{"id":"meal-nubian","name":"Nubian Village Dinner","category":"meal","unit":"per_person","currency":"EUR","base_price":"25"}`,
		`{"id":"train-luxor","name":"Sleeper Train Cairo-Luxor","category":"sleeper_train","unit":"per_cabin","currency":"EUR","base_price":"110"}`,
	}
	for _, cfg := range configs {
		rate, err := rates.Parse(cfg)
		if err != nil {
			return err
		}
		if err := store.SaveRate(ctx, rate); err != nil {
			return err
		}
	}
	return nil
}

func loadHighSeasonOverlap(ctx context.Context, store *sqlite.Store) error {
	if err := seedRates(ctx, store); err != nil {
		return err
	}

	bookings := []sqlite.Itinerary{
		{
			ID: "trip-nile-classic", Title: "Nile Classic",
			StartDate: day(2024, time.June, 1), EndDate: day(2024, time.June, 8),
			NumTravelers: 4, PaymentStatus: sqlite.PaymentDepositReceived,
			Currency: "EUR", CostMode: "auto", GuideID: "guide-amira",
		},
		{
			// Shares guide-amira and overlaps trip-nile-classic by four days
			ID: "trip-red-sea", Title: "Red Sea Extension",
			StartDate: day(2024, time.June, 5), EndDate: day(2024, time.June, 12),
			NumTravelers: 2, PaymentStatus: sqlite.PaymentNotPaid,
			Currency: "EUR", CostMode: "auto", GuideID: "guide-amira",
		},
		{
			ID: "trip-desert", Title: "White Desert Camp",
			StartDate: day(2024, time.June, 20), EndDate: day(2024, time.June, 24),
			NumTravelers: 6, PaymentStatus: sqlite.PaymentPaid,
			Currency: "EUR", CostMode: "auto", GuideID: "guide-karim",
		},
	}
	for _, it := range bookings {
		if err := store.SaveItinerary(ctx, it); err != nil {
			return err
		}
	}

	services := []sqlite.Service{
		{ID: "svc-felucca-1", ItineraryID: "trip-nile-classic", RateID: "act-felucca",
			Description: "Felucca Sunset Sail", ServiceDate: day(2024, time.June, 2),
			Travelers: 4, CostMode: "auto", Cost: decimal.NewFromInt(150)},
		{ID: "svc-dinner-1", ItineraryID: "trip-nile-classic", RateID: "meal-nubian",
			Description: "Nubian Village Dinner", ServiceDate: day(2024, time.June, 3),
			Travelers: 4, CostMode: "auto", Cost: decimal.NewFromInt(100)},
		{ID: "svc-train-1", ItineraryID: "trip-red-sea", RateID: "train-luxor",
			Description: "Sleeper Train Cairo-Luxor", ServiceDate: day(2024, time.June, 5),
			Travelers: 2, CostMode: "auto", Cost: decimal.NewFromInt(110)},
	}
	for _, svc := range services {
		if err := store.SaveService(ctx, svc); err != nil {
			return err
		}
	}
	return nil
}

func loadAgingPayables(ctx context.Context, store *sqlite.Store) error {
	now := time.Now().UTC()
	paid := now.AddDate(0, 0, -3)

	expenses := []payables.Expense{
		{ID: "exp-fresh", Amount: decimal.NewFromInt(400), Currency: "EUR",
			ExpenseDate: now.AddDate(0, 0, -5), Status: payables.ExpensePending,
			Category: "accommodation", SupplierName: "Cataract Hotel", SupplierType: "hotel"},
		{ID: "exp-month", Amount: decimal.NewFromInt(250), Currency: "EUR",
			ExpenseDate: now.AddDate(0, 0, -20), Status: payables.ExpenseApproved,
			Category: "transport", SupplierName: "Nile Fleet", SupplierType: "transport"},
		{ID: "exp-older", Amount: decimal.NewFromInt(600), Currency: "EUR",
			ExpenseDate: now.AddDate(0, 0, -45), Status: payables.ExpensePending,
			Category: "guides", SupplierName: "Aswan Guides Co", SupplierType: "guide"},
		{ID: "exp-ancient", Amount: decimal.NewFromInt(900), Currency: "EUR",
			ExpenseDate: now.AddDate(0, 0, -75), Status: payables.ExpenseApproved,
			Category: "accommodation", SupplierName: "Cataract Hotel", SupplierType: "hotel"},
		{ID: "exp-settled", Amount: decimal.NewFromInt(320), Currency: "EUR",
			ExpenseDate: now.AddDate(0, 0, -30), Status: payables.ExpensePaid,
			Category: "meals", SupplierName: "Nubian Kitchen", SupplierType: "restaurant",
			PaymentDate: &paid},
	}
	for _, e := range expenses {
		if err := store.SaveExpense(ctx, e); err != nil {
			return err
		}
	}

	commission := billing.Commission{
		ID: "com-hotel", Type: billing.CommissionReceivable, Category: "hotel",
		PartyName: "Cataract Hotel", Currency: "EUR",
		BaseAmount: decimal.NewFromInt(2000), Rate: decimal.NewFromInt(10),
		Status: billing.CommissionPending, EarnedAt: now.AddDate(0, 0, -10),
	}
	commission.Recalculate()
	return store.SaveCommission(ctx, commission)
}

func loadDepositFinal(ctx context.Context, store *sqlite.Store) error {
	trip := sqlite.Itinerary{
		ID: "trip-luxor-aswan", Title: "Luxor and Aswan by Sleeper",
		StartDate: day(2024, time.October, 10), EndDate: day(2024, time.October, 18),
		NumTravelers: 2, PaymentStatus: sqlite.PaymentDepositReceived,
		Currency: "EUR", CostMode: "manual", TotalCost: decimal.NewFromInt(2000),
	}
	if err := store.SaveItinerary(ctx, trip); err != nil {
		return err
	}

	split := billing.SplitDeposit(trip.TotalCost, decimal.NewFromInt(30))

	deposit := billing.Invoice{
		ID: "inv-deposit", ItineraryID: trip.ID, Type: billing.InvoiceDeposit,
		Status: billing.StatusSent, Currency: "EUR",
		Subtotal: split.DepositAmount,
		IssuedAt: time.Now().UTC().AddDate(0, 0, -30),
		DueDate:  time.Now().UTC().AddDate(0, 0, -16),
	}
	deposit.RecomputeTotals()
	if err := deposit.ApplyPayment(deposit.TotalAmount); err != nil {
		return err
	}
	if err := store.SaveInvoice(ctx, deposit); err != nil {
		return err
	}

	final := billing.Invoice{
		ID: "inv-final", ItineraryID: trip.ID, Type: billing.InvoiceFinal,
		Status: billing.StatusSent, Currency: "EUR",
		Subtotal: split.FinalAmount,
		IssuedAt: time.Now().UTC().AddDate(0, 0, -5),
		DueDate:  time.Now().UTC().AddDate(0, 0, 25),
	}
	final.RecomputeTotals()
	return store.SaveInvoice(ctx, final)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
