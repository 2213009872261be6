/*
reconcile.go - Background totals reconciler

PURPOSE:
  Periodically re-derives every booking's total cost from its service
  rows and repairs drift. Totals are normally maintained transactionally
  on every service write; the reconciler is the safety net for totals
  that went stale through direct database edits or a missed migration.

SCHEDULING: robfig/cron
  The reconciler runs on a cron schedule (default hourly) and can also
  be triggered manually via POST /api/reconciliation/run. Each pass is
  recorded as a reconciliation_runs row so operators can see when it
  last ran and what it fixed.

RULES:
  - Auto-mode bookings: drift is fixed (total rewritten from services).
  - Manual-mode bookings: the staff override stands; drift is counted
    as checked but never rewritten.
  - A failing booking does not abort the pass; the error is logged and
    the pass continues.

SEE ALSO:
  - store/sqlite: RecomputeItineraryTotal, SaveReconciliationRun
  - handlers.go: TriggerReconciliation, ListReconciliationRuns
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/meridian/tour-office/store/sqlite"
)

// Run trigger sources.
const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// DefaultReconcileSchedule runs at the top of every hour.
const DefaultReconcileSchedule = "0 * * * *"

// Reconciler owns the cron entry and the reconciliation pass itself.
type Reconciler struct {
	store *sqlite.Store
	log   zerolog.Logger
	cron  *cron.Cron

	mu sync.Mutex // one pass at a time
}

// NewReconciler creates a reconciler. Call Start to begin the schedule.
func NewReconciler(store *sqlite.Store, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		store: store,
		log:   log.With().Str("component", "reconciler").Logger(),
	}
}

// Start registers the cron entry and starts the scheduler. An empty
// schedule uses the default.
func (rc *Reconciler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultReconcileSchedule
	}
	rc.cron = cron.New()
	_, err := rc.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := rc.Run(ctx, TriggerCron); err != nil {
			rc.log.Error().Err(err).Msg("scheduled reconciliation failed")
		}
	})
	if err != nil {
		return err
	}
	rc.cron.Start()
	rc.log.Info().Str("schedule", schedule).Msg("reconciler started")
	return nil
}

// Stop halts the scheduler and waits for a running pass to finish.
func (rc *Reconciler) Stop() {
	if rc.cron == nil {
		return
	}
	<-rc.cron.Stop().Done()
	rc.log.Info().Msg("reconciler stopped")
}

// Run executes one reconciliation pass and records it.
func (rc *Reconciler) Run(ctx context.Context, trigger string) (*sqlite.ReconciliationRun, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	run := sqlite.ReconciliationRun{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := rc.store.SaveReconciliationRun(ctx, run); err != nil {
		return nil, err
	}

	items, err := rc.store.ListItineraries(ctx)
	if err != nil {
		run.Status = RunFailed
		run.Error = err.Error()
		rc.finish(ctx, &run)
		return &run, err
	}

	for _, it := range items {
		stored, derived, drift, err := rc.store.RecomputeItineraryTotal(ctx, it.ID)
		if err != nil {
			rc.log.Error().Err(err).Str("itinerary", it.ID).Msg("recompute failed")
			continue
		}
		run.ItinerariesChecked++
		if drift && it.CostMode == "auto" {
			run.DriftFixed++
			rc.log.Warn().
				Str("itinerary", it.ID).
				Str("stored", stored.String()).
				Str("derived", derived.String()).
				Msg("total drift repaired")
		}
	}

	run.Status = RunCompleted
	rc.finish(ctx, &run)
	rc.log.Info().
		Str("trigger", trigger).
		Int("checked", run.ItinerariesChecked).
		Int("fixed", run.DriftFixed).
		Msg("reconciliation pass complete")
	return &run, nil
}

func (rc *Reconciler) finish(ctx context.Context, run *sqlite.ReconciliationRun) {
	now := time.Now().UTC()
	run.CompletedAt = &now
	if err := rc.store.SaveReconciliationRun(ctx, *run); err != nil {
		rc.log.Error().Err(err).Msg("failed to record reconciliation run")
	}
}
