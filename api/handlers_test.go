package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/tour-office/api"
	"github.com/meridian/tour-office/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) *chi.Mux {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return api.NewRouter(api.NewHandler(store, zerolog.Nop()))
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), "body: %s", rec.Body.String())
}

func createItinerary(t *testing.T, router http.Handler, title, start, end string) string {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/itineraries", map[string]any{
		"title": title, "start_date": start, "end_date": end, "num_travelers": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var dto struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &dto)
	return dto.ID
}

// =============================================================================
// ITINERARIES
// =============================================================================

func TestItineraries_ConflictDetection(t *testing.T) {
	router := newTestRouter(t)

	a := createItinerary(t, router, "Nile Classic", "2024-06-01", "2024-06-05")
	b := createItinerary(t, router, "Red Sea Extension", "2024-06-04", "2024-06-08")
	c := createItinerary(t, router, "White Desert", "2024-06-10", "2024-06-12")

	rec := do(t, router, http.MethodGet, "/api/itineraries", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success     bool     `json:"success"`
		ConflictIDs []string `json:"conflict_ids"`
		Data        []struct {
			ID          string `json:"id"`
			HasConflict bool   `json:"has_conflict"`
		} `json:"data"`
	}
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.ElementsMatch(t, []string{a, b}, resp.ConflictIDs)
	for _, it := range resp.Data {
		assert.Equal(t, it.ID != c, it.HasConflict, "id %s", it.ID)
	}
}

func TestItineraries_CreateRejectsBadDates(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/itineraries", map[string]any{
		"title": "Backwards", "start_date": "2024-06-10", "end_date": "2024-06-01",
		"num_travelers": 2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/itineraries", map[string]any{
		"title": "No dates", "num_travelers": 2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReschedule_StaleVersionRejected(t *testing.T) {
	router := newTestRouter(t)
	id := createItinerary(t, router, "Nile Classic", "2024-06-01", "2024-06-05")

	rec := do(t, router, http.MethodPut, "/api/itineraries/"+id, map[string]any{
		"start_date": "2024-06-02", "end_date": "2024-06-06", "version": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var dto struct {
		Version int64 `json:"version"`
	}
	decodeBody(t, rec, &dto)
	assert.Equal(t, int64(2), dto.Version)

	// Second planner still holds version 1
	rec = do(t, router, http.MethodPut, "/api/itineraries/"+id, map[string]any{
		"start_date": "2024-06-03", "end_date": "2024-06-07", "version": 1,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/itineraries/missing", map[string]any{
		"start_date": "2024-06-03", "end_date": "2024-06-07", "version": 1,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// SERVICES
// =============================================================================

func TestServices_AutoCostFromRateSheet(t *testing.T) {
	router := newTestRouter(t)
	id := createItinerary(t, router, "Nile Classic", "2024-06-01", "2024-06-08")

	rec := do(t, router, http.MethodPost, "/api/rates", map[string]any{
		"id": "meal-1", "name": "Village Dinner", "category": "meal",
		"unit": "per_person", "currency": "EUR", "base_price": "25",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, fmt.Sprintf("/api/itineraries/%s/services", id), map[string]any{
		"rate_id": "meal-1", "description": "Village Dinner",
		"service_date": "2024-06-02", "travelers": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var svc struct {
		ID   string  `json:"id"`
		Cost float64 `json:"cost"`
	}
	decodeBody(t, rec, &svc)
	assert.Equal(t, 100.0, svc.Cost) // 25 per person x 4

	// Parent total follows in the same write
	rec = do(t, router, http.MethodGet, "/api/itineraries/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var it struct {
		TotalCost float64 `json:"total_cost"`
	}
	decodeBody(t, rec, &it)
	assert.Equal(t, 100.0, it.TotalCost)

	// Manual cost update moves the total too
	rec = do(t, router, http.MethodPut, "/api/services/"+svc.ID+"/cost", map[string]any{
		"cost": 120, "cost_mode": "manual",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var upd struct {
		ItineraryTotal float64 `json:"itinerary_total"`
	}
	decodeBody(t, rec, &upd)
	assert.Equal(t, 120.0, upd.ItineraryTotal)

	// Flipping back to auto re-derives from the rate sheet and ignores
	// the submitted cost
	rec = do(t, router, http.MethodPut, "/api/services/"+svc.ID+"/cost", map[string]any{
		"cost": 999, "cost_mode": "auto",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &upd)
	assert.Equal(t, 100.0, upd.ItineraryTotal)
}

// =============================================================================
// EXPENSES AND AGING REPORT
// =============================================================================

func TestPayablesReport_BucketsAndSummary(t *testing.T) {
	router := newTestRouter(t)

	seed := []map[string]any{
		{"amount": 400, "expense_date": "2024-06-25", "category": "accommodation",
			"supplier_name": "Cataract Hotel", "supplier_type": "hotel"},
		{"amount": 250, "expense_date": "2024-06-10", "category": "transport",
			"supplier_name": "Nile Fleet", "supplier_type": "transport"},
		{"amount": 900, "expense_date": "2024-04-01", "category": "accommodation",
			"supplier_name": "Cataract Hotel", "supplier_type": "hotel"},
	}
	for _, e := range seed {
		rec := do(t, router, http.MethodPost, "/api/expenses", e)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	// As of July 1: 6 days, 21 days, 91 days outstanding
	rec := do(t, router, http.MethodGet, "/api/reports/accounts-payable?asOf=2024-07-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Buckets struct {
			Current    float64 `json:"current"`
			Days30     float64 `json:"days30"`
			Days90Plus float64 `json:"days90Plus"`
		} `json:"buckets"`
		Summary struct {
			TotalOutstanding float64 `json:"total_outstanding"`
			OverdueCount     int     `json:"overdue_count"`
		} `json:"summary"`
		Data []struct {
			SupplierName string  `json:"supplier_name"`
			Outstanding  float64 `json:"outstanding"`
		} `json:"data"`
	}
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, 400.0, resp.Buckets.Current)
	assert.Equal(t, 250.0, resp.Buckets.Days30)
	assert.Equal(t, 900.0, resp.Buckets.Days90Plus)
	assert.Equal(t, 1550.0, resp.Summary.TotalOutstanding)
	assert.Equal(t, 2, resp.Summary.OverdueCount)
	require.NotEmpty(t, resp.Data)
	assert.Equal(t, "Cataract Hotel", resp.Data[0].SupplierName)
	assert.Equal(t, 1300.0, resp.Data[0].Outstanding)
}

func TestExpense_MarkPaidLeavesAging(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/expenses", map[string]any{
		"amount": 300, "expense_date": "2024-05-01", "category": "guides",
		"supplier_name": "Aswan Guides Co",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var exp struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &exp)

	rec = do(t, router, http.MethodPut, "/api/expenses/"+exp.ID, map[string]any{
		"status": "paid", "payment_date": "2024-06-20",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/reports/accounts-payable?asOf=2024-07-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Summary struct {
			TotalOutstanding float64 `json:"total_outstanding"`
			TotalPaid        float64 `json:"total_paid"`
		} `json:"summary"`
		RecentPayments []struct {
			ID string `json:"id"`
		} `json:"recentPayments"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, 0.0, resp.Summary.TotalOutstanding)
	assert.Equal(t, 300.0, resp.Summary.TotalPaid)
	require.Len(t, resp.RecentPayments, 1)
	assert.Equal(t, exp.ID, resp.RecentPayments[0].ID)
}

// =============================================================================
// COMMISSIONS
// =============================================================================

func TestCommission_OverrideThenRateChange(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/commissions", map[string]any{
		"commission_type": "receivable", "party_name": "Red Sea Lodge",
		"base_amount": 1000, "commission_rate": 10, "earned_at": "2024-06-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c struct {
		ID     string  `json:"id"`
		Amount float64 `json:"commission_amount"`
		Manual bool    `json:"manual_amount"`
	}
	decodeBody(t, rec, &c)
	assert.Equal(t, 100.0, c.Amount)
	assert.False(t, c.Manual)

	// Staff override sticks
	rec = do(t, router, http.MethodPut, "/api/commissions/"+c.ID, map[string]any{
		"commission_amount": 85,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &c)
	assert.Equal(t, 85.0, c.Amount)
	assert.True(t, c.Manual)

	// Upstream rate change wins over the stale override
	rec = do(t, router, http.MethodPut, "/api/commissions/"+c.ID, map[string]any{
		"commission_rate": 12,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &c)
	assert.Equal(t, 120.0, c.Amount)
	assert.False(t, c.Manual)
}

func TestCommissions_ListWithSummary(t *testing.T) {
	router := newTestRouter(t)

	for _, body := range []map[string]any{
		{"commission_type": "receivable", "party_name": "Lodge",
			"base_amount": 1000, "commission_rate": 10, "earned_at": "2024-06-01"},
		{"commission_type": "payable", "party_name": "Agent",
			"base_amount": 500, "commission_rate": 8, "earned_at": "2024-06-02"},
	} {
		rec := do(t, router, http.MethodPost, "/api/commissions", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, router, http.MethodGet, "/api/commissions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data    []struct{} `json:"data"`
		Summary struct {
			TotalReceivable float64 `json:"total_receivable"`
			TotalPayable    float64 `json:"total_payable"`
			Count           int     `json:"count"`
		} `json:"summary"`
	}
	decodeBody(t, rec, &resp)
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, 100.0, resp.Summary.TotalReceivable)
	assert.Equal(t, 40.0, resp.Summary.TotalPayable)
	assert.Equal(t, 2, resp.Summary.Count)
}

// =============================================================================
// INVOICES
// =============================================================================

func TestInvoices_DepositFinalFlow(t *testing.T) {
	router := newTestRouter(t)
	id := createItinerary(t, router, "Luxor by Sleeper", "2024-10-10", "2024-10-18")

	// Staff sets the package price directly
	rec := do(t, router, http.MethodPost, fmt.Sprintf("/api/itineraries/%s/services", id), map[string]any{
		"description": "Full package", "service_date": "2024-10-10",
		"travelers": 2, "cost_mode": "manual", "cost": 2000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/invoices", map[string]any{
		"itinerary_id": id, "invoice_type": "deposit", "deposit_percent": 30,
		"send": true, "due_date": "2024-09-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var deposit struct {
		ID          string  `json:"id"`
		Status      string  `json:"status"`
		TotalAmount float64 `json:"total_amount"`
	}
	decodeBody(t, rec, &deposit)
	assert.Equal(t, "sent", deposit.Status)
	assert.Equal(t, 600.0, deposit.TotalAmount)

	rec = do(t, router, http.MethodPost, "/api/invoices", map[string]any{
		"itinerary_id": id, "invoice_type": "final", "deposit_percent": 30, "send": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var final struct {
		TotalAmount float64 `json:"total_amount"`
	}
	decodeBody(t, rec, &final)
	assert.Equal(t, 1400.0, final.TotalAmount) // remainder, reconstructs 2000

	// Paying the deposit in full marks the booking deposit_received
	rec = do(t, router, http.MethodPost, "/api/invoices/"+deposit.ID+"/payments", map[string]any{
		"amount": 600,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var paidInv struct {
		Status     string  `json:"status"`
		BalanceDue float64 `json:"balance_due"`
	}
	decodeBody(t, rec, &paidInv)
	assert.Equal(t, "paid", paidInv.Status)
	assert.Equal(t, 0.0, paidInv.BalanceDue)

	rec = do(t, router, http.MethodGet, "/api/itineraries/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var it struct {
		PaymentStatus string `json:"payment_status"`
	}
	decodeBody(t, rec, &it)
	assert.Equal(t, "deposit_received", it.PaymentStatus)
}

func TestInvoices_PaymentOnDraftRejected(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/invoices", map[string]any{
		"invoice_type": "standard", "subtotal": 500,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var inv struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &inv)

	rec = do(t, router, http.MethodPost, "/api/invoices/"+inv.ID+"/payments", map[string]any{
		"amount": 100,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Sending first makes the payment legal
	rec = do(t, router, http.MethodPost, "/api/invoices/"+inv.ID+"/send", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodPost, "/api/invoices/"+inv.ID+"/payments", map[string]any{
		"amount": 100,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var after struct {
		Status string `json:"status"`
	}
	decodeBody(t, rec, &after)
	assert.Equal(t, "partial", after.Status)
}

func TestInvoices_DisplayOverdue(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/invoices", map[string]any{
		"invoice_type": "standard", "subtotal": 500, "send": true,
		"due_date": "2020-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var inv struct {
		Status        string `json:"status"`
		DisplayStatus string `json:"display_status"`
	}
	decodeBody(t, rec, &inv)
	assert.Equal(t, "sent", inv.Status) // stored status untouched
	assert.Equal(t, "overdue", inv.DisplayStatus)
}

// =============================================================================
// RATES
// =============================================================================

func TestRates_CRUDOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/rates", map[string]any{
		"id": "act-1", "name": "Snorkeling", "category": "activity",
		"unit": "per_person", "currency": "USD", "base_price": "35",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Sleeper trains cannot be priced per group
	rec = do(t, router, http.MethodPost, "/api/rates", map[string]any{
		"id": "train-bad", "name": "Bad Train", "category": "sleeper_train",
		"unit": "per_group", "base_price": "100",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/rates/act-1", map[string]any{
		"id": "act-1", "name": "Snorkeling Deluxe", "category": "activity",
		"unit": "per_person", "currency": "USD", "base_price": "45",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var rate struct {
		Name string `json:"name"`
	}
	decodeBody(t, rec, &rate)
	assert.Equal(t, "Snorkeling Deluxe", rate.Name)

	rec = do(t, router, http.MethodDelete, "/api/rates/act-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/rates/act-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// PROFIT-LOSS, RECONCILIATION, SCENARIOS
// =============================================================================

func TestProfitLoss_MarginPerTrip(t *testing.T) {
	router := newTestRouter(t)
	id := createItinerary(t, router, "Nile Classic", "2024-06-01", "2024-06-08")

	rec := do(t, router, http.MethodPost, "/api/invoices", map[string]any{
		"itinerary_id": id, "invoice_type": "standard", "subtotal": 2000, "send": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/expenses", map[string]any{
		"itinerary_id": id, "amount": 1200, "expense_date": "2024-05-20",
		"category": "accommodation", "supplier_name": "Cataract Hotel",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/reports/profit-loss", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data []struct {
			Revenue       float64 `json:"revenue"`
			Costs         float64 `json:"costs"`
			Margin        float64 `json:"margin"`
			MarginPercent int64   `json:"margin_percent"`
		} `json:"data"`
		Summary struct {
			TotalMargin float64 `json:"total_margin"`
		} `json:"summary"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 2000.0, resp.Data[0].Revenue)
	assert.Equal(t, 1200.0, resp.Data[0].Costs)
	assert.Equal(t, 800.0, resp.Data[0].Margin)
	assert.Equal(t, int64(40), resp.Data[0].MarginPercent)
	assert.Equal(t, 800.0, resp.Summary.TotalMargin)
}

func TestProfitLoss_ZeroRevenueNoPanic(t *testing.T) {
	router := newTestRouter(t)
	createItinerary(t, router, "Unsold Trip", "2024-06-01", "2024-06-08")

	rec := do(t, router, http.MethodGet, "/api/reports/profit-loss", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data []struct {
			MarginPercent int64 `json:"margin_percent"`
		} `json:"data"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, int64(0), resp.Data[0].MarginPercent)
}

func TestReconciliation_ManualTrigger(t *testing.T) {
	router := newTestRouter(t)
	createItinerary(t, router, "Nile Classic", "2024-06-01", "2024-06-08")

	rec := do(t, router, http.MethodPost, "/api/reconciliation/run", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var run struct {
		Trigger            string `json:"trigger"`
		Status             string `json:"status"`
		ItinerariesChecked int    `json:"itineraries_checked"`
	}
	decodeBody(t, rec, &run)
	assert.Equal(t, "manual", run.Trigger)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, 1, run.ItinerariesChecked)

	rec = do(t, router, http.MethodGet, "/api/reconciliation/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []struct{} `json:"data"`
	}
	decodeBody(t, rec, &list)
	assert.Len(t, list.Data, 1)
}

func TestScenarios_LoadAndReset(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", map[string]any{
		"scenario_id": "high-season-overlap",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/itineraries", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data        []struct{} `json:"data"`
		ConflictIDs []string   `json:"conflict_ids"`
	}
	decodeBody(t, rec, &resp)
	assert.Len(t, resp.Data, 3)
	assert.Len(t, resp.ConflictIDs, 2)

	rec = do(t, router, http.MethodPost, "/api/scenarios/load", map[string]any{
		"scenario_id": "no-such-scenario",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/itineraries", nil)
	decodeBody(t, rec, &resp)
	assert.Empty(t, resp.Data)
}
