package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lthibault/jitterbug/v2"
	"github.com/voterlookup/epic-extractor/internal/store"
	"github.com/voterlookup/epic-extractor/pkg/log"
	"github.com/voterlookup/epic-extractor/pkg/metrics"
)

const ReasonOrphaned = "job was not completed by the process that started it"

// Reaper marks jobs that no process is working on as failed.
type Reaper struct {
	store      store.Store
	staleAfter time.Duration
	interval   time.Duration
	isActive   func(uuid.UUID) bool
	now        func() time.Time
	logger     *log.StructuredLogger
}

// NewReaper builds a reaper. isActive reports the jobs this process is still
// running; they are never reaped.
func NewReaper(st store.Store, staleAfter, interval time.Duration, isActive func(uuid.UUID) bool) *Reaper {
	if isActive == nil {
		isActive = func(uuid.UUID) bool { return false }
	}
	return &Reaper{
		store:      st,
		staleAfter: staleAfter,
		interval:   interval,
		isActive:   isActive,
		now:        time.Now,
		logger:     log.NewDebugLogger("reaper"),
	}
}

// ReapOrphans fails every unfinished job. It is meant to run once at startup,
// before any job is launched.
func (r *Reaper) ReapOrphans(ctx context.Context) (int, error) {
	return r.reap(ctx, r.now())
}

// ReapStale fails unfinished jobs that have not been updated within the
// stale period.
func (r *Reaper) ReapStale(ctx context.Context) (int, error) {
	return r.reap(ctx, r.now().Add(-r.staleAfter))
}

// Start sweeps for stale jobs on a jittered interval until ctx is done.
func (r *Reaper) Start(ctx context.Context) {
	ticker := jitterbug.New(r.interval, &jitterbug.Norm{Stdev: r.interval / 10, Mean: 0})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			_, _ = r.ReapStale(ctx)
		}
	}()
}

func (r *Reaper) reap(ctx context.Context, before time.Time) (int, error) {
	tracer := r.logger.WithContext(ctx).
		Operation("reap_jobs").
		WithParam("before", before.Format(time.RFC3339)).
		Build()

	jobs, err := r.store.Job().ListStale(ctx, before)
	if err != nil {
		tracer.Error(err).Log()
		return 0, fmt.Errorf("listing stale jobs: %w", err)
	}

	reaped := 0
	for _, job := range jobs {
		if r.isActive(job.ID) {
			continue
		}
		ok, err := r.store.Job().MarkFailed(ctx, job.ID, ReasonOrphaned, r.now())
		if err != nil {
			tracer.Error(err).WithUUID("job_id", job.ID).Log()
			continue
		}
		if ok {
			reaped++
		}
	}

	metrics.IncreaseJobsReapedMetric(reaped)
	tracer.Success().WithInt("reaped", reaped).Log()
	return reaped, nil
}
