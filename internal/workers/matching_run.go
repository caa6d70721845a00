// Package workers provides River job workers (matching runs).
package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
	"golang.org/x/time/rate"

	"github.com/ColeUyematsu/RoomMatchv2/internal/matcherrors"
	"github.com/ColeUyematsu/RoomMatchv2/internal/observability"
	"github.com/ColeUyematsu/RoomMatchv2/internal/service"
)

// matchingRunner is the minimal orchestrator interface the worker needs.
type matchingRunner interface {
	Run(ctx context.Context) (*service.RunResult, error)
}

// MatchingRunWorker executes the matching round loop as a background job.
// Soft outcomes (no data, insufficient pool) complete the job; only storage
// or computation failures are retried.
type MatchingRunWorker struct {
	river.WorkerDefaults[service.MatchingRunArgs]

	orchestrator matchingRunner
	limiter      *rate.Limiter
	metrics      observability.MatcherMetrics
	onCommitted  func()
}

// MatchingRunWorkerParams configures a MatchingRunWorker.
type MatchingRunWorkerParams struct {
	Orchestrator matchingRunner

	// Limiter throttles how often runs actually execute; throttled jobs
	// complete without running. May be nil (no limit).
	Limiter *rate.Limiter

	// Metrics may be nil when metrics are disabled.
	Metrics observability.MatcherMetrics

	// OnCommitted runs after a run that committed at least one pair
	// (e.g. to invalidate best-match caches). May be nil.
	OnCommitted func()
}

// NewMatchingRunWorker creates a matching-run worker.
func NewMatchingRunWorker(params MatchingRunWorkerParams) *MatchingRunWorker {
	return &MatchingRunWorker{
		orchestrator: params.Orchestrator,
		limiter:      params.Limiter,
		metrics:      params.Metrics,
		onCommitted:  params.OnCommitted,
	}
}

const matchingRunTimeout = 10 * time.Minute

// Timeout limits how long a single matching run can take.
func (w *MatchingRunWorker) Timeout(*river.Job[service.MatchingRunArgs]) time.Duration {
	return matchingRunTimeout
}

// Work runs the full round loop and records the outcome.
func (w *MatchingRunWorker) Work(ctx context.Context, job *river.Job[service.MatchingRunArgs]) error {
	if w.limiter != nil && !w.limiter.Allow() {
		slog.Info("matching run throttled", "trigger", job.Args.Trigger)
		return nil
	}

	start := time.Now()
	result, err := w.orchestrator.Run(ctx)

	switch {
	case errors.Is(err, matcherrors.ErrNoResponses):
		slog.Info("matching run skipped: no response data", "trigger", job.Args.Trigger)
		w.record(ctx, "no_data", 0, start)
		return nil

	case errors.Is(err, matcherrors.ErrInsufficientPool):
		slog.Info("matching run skipped: insufficient pool", "trigger", job.Args.Trigger)
		w.record(ctx, "insufficient_pool", 0, start)
		return nil

	case err != nil:
		rounds := 0
		if result != nil {
			rounds = result.Rounds
		}
		slog.Error("matching run failed", "trigger", job.Args.Trigger, "error", err)
		w.record(ctx, "error", rounds, start)
		return err
	}

	outcome := "converged"
	if result.CapReached {
		outcome = "cap_reached"
	}
	w.record(ctx, outcome, result.Rounds, start)

	slog.Info("matching run completed",
		"trigger", job.Args.Trigger,
		"outcome", outcome,
		"rounds", result.Rounds,
		"pairs", len(result.Pairs),
	)

	if len(result.Pairs) > 0 && w.onCommitted != nil {
		w.onCommitted()
	}

	return nil
}

func (w *MatchingRunWorker) record(ctx context.Context, outcome string, rounds int, start time.Time) {
	if w.metrics == nil {
		return
	}
	w.metrics.RecordMatchingRun(ctx, outcome, rounds, time.Since(start))
}
