// Package orchestrator runs bulk extraction jobs: one identifier at a time,
// with a persisted disposition for each.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voterlookup/epic-extractor/internal/events"
	"github.com/voterlookup/epic-extractor/internal/extraction"
	"github.com/voterlookup/epic-extractor/internal/store"
	"github.com/voterlookup/epic-extractor/internal/store/model"
	"github.com/voterlookup/epic-extractor/internal/util"
	"github.com/voterlookup/epic-extractor/pkg/log"
	"github.com/voterlookup/epic-extractor/pkg/metrics"
)

const (
	DefaultRecordDelay = 500 * time.Millisecond

	ReasonInterrupted = "job interrupted before completion"
)

// Extractor is satisfied by *extraction.Engine.
type Extractor interface {
	Extract(ctx context.Context, identifier, regionCode string, maxAttempts int) extraction.Result
}

// Publisher receives job lifecycle events. *events.EventProducer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, kind string, v any) error
}

// outcome is what happened to one identifier before it is persisted.
type outcome struct {
	kind     string
	reason   string
	attempts int
	voter    *model.Voter
}

// progress is the job state after the identifiers seen so far.
type progress struct {
	counters model.JobCounters
	failed   model.FailedEntries
	last     string
}

// add returns a copy of p with one more disposition. The ledger is copied so
// a rolled back transaction leaves p untouched.
func (p progress) add(identifier, kind, reason string) progress {
	next := progress{counters: p.counters, last: kind}
	next.failed = make(model.FailedEntries, len(p.failed), len(p.failed)+1)
	copy(next.failed, p.failed)

	next.counters.Processed++
	switch kind {
	case model.LogStatusSuccess:
		next.counters.Successful++
	case model.LogStatusDuplicate:
		next.counters.Duplicates++
	default:
		next.counters.Failed++
		next.failed = append(next.failed, model.FailedEntry{Identifier: identifier, Reason: reason})
	}
	return next
}

type Orchestrator struct {
	store       store.Store
	extractor   Extractor
	maxAttempts int
	recordDelay time.Duration
	now         func() time.Time
	publisher   Publisher
	logger      *log.StructuredLogger
}

type Option func(*Orchestrator)

func WithMaxAttempts(n int) Option {
	return func(o *Orchestrator) {
		o.maxAttempts = n
	}
}

func WithRecordDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.recordDelay = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

func New(st store.Store, ex Extractor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       st,
		extractor:   ex,
		maxAttempts: extraction.DefaultMaxAttempts,
		recordDelay: DefaultRecordDelay,
		now:         time.Now,
		logger:      log.NewDebugLogger("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes identifiers in order and leaves the job completed. When ctx
// is cancelled midway the job is marked failed and the context error is
// returned.
func (o *Orchestrator) Run(ctx context.Context, jobID uuid.UUID, identifiers []string, regionCode string) error {
	tracer := o.logger.WithContext(ctx).
		Operation("run_job").
		WithUUID("job_id", jobID).
		WithInt("total", len(identifiers)).
		WithString("state_code", regionCode).
		Build()

	metrics.JobStarted()
	defer metrics.JobFinished()

	if err := o.store.Job().MarkInProgress(ctx, jobID, o.now()); err != nil {
		tracer.Error(err).Log()
		return fmt.Errorf("starting job %s: %w", jobID, err)
	}
	o.publish(ctx, events.JobStartedKind, events.JobEvent{
		JobID:  jobID.String(),
		Status: model.JobStatusInProgress,
		Total:  len(identifiers),
	})

	var p progress
	for i, identifier := range identifiers {
		if ctx.Err() != nil {
			return o.interrupt(ctx, jobID, len(identifiers), p.counters, tracer)
		}

		out := o.process(ctx, identifier, regionCode)
		// the disposition is persisted even when ctx was cancelled during extraction
		p = o.record(context.WithoutCancel(ctx), jobID, identifier, out, p, tracer)
		metrics.IncreaseJobRecordsMetric(p.last)

		if ctx.Err() != nil {
			return o.interrupt(ctx, jobID, len(identifiers), p.counters, tracer)
		}
		if i == len(identifiers)-1 {
			break
		}
		if err := util.Sleep(ctx, o.recordDelay); err != nil {
			return o.interrupt(ctx, jobID, len(identifiers), p.counters, tracer)
		}
	}
	counters, failed := p.counters, p.failed

	if err := o.store.Job().MarkCompleted(ctx, jobID, counters, failed, o.now()); err != nil {
		tracer.Error(err).Log()
		return fmt.Errorf("completing job %s: %w", jobID, err)
	}
	o.publish(ctx, events.JobCompletedKind, jobEvent(jobID, model.JobStatusCompleted, len(identifiers), counters, ""))

	tracer.Success().
		WithInt("successful", counters.Successful).
		WithInt("failed", counters.Failed).
		WithInt("duplicates", counters.Duplicates).
		Info().
		Log()
	return nil
}

func (o *Orchestrator) interrupt(ctx context.Context, jobID uuid.UUID, total int, counters model.JobCounters, tracer *log.OperationTracer) error {
	// the job's own context is done; the final write must still happen
	detached := context.WithoutCancel(ctx)
	if _, err := o.store.Job().MarkFailed(detached, jobID, ReasonInterrupted, o.now()); err != nil {
		tracer.Error(err).Log()
	}
	o.publish(detached, events.JobFailedKind, jobEvent(jobID, model.JobStatusFailed, total, counters, ReasonInterrupted))
	tracer.Step("interrupted").WithInt("processed", counters.Processed).Info().Log()
	return ctx.Err()
}

// process decides the disposition of one identifier without persisting it.
// A panic anywhere below is turned into a failed outcome for that identifier
// only.
func (o *Orchestrator) process(ctx context.Context, identifier, regionCode string) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{kind: model.LogStatusFailed, reason: fmt.Sprintf("unexpected error: %v", r)}
		}
	}()

	exists, err := o.store.Voter().Exists(ctx, identifier)
	if err != nil {
		return outcome{kind: model.LogStatusFailed, reason: fmt.Sprintf("duplicate check failed: %v", err)}
	}
	if exists {
		return outcome{kind: model.LogStatusDuplicate}
	}

	result := o.extractor.Extract(ctx, identifier, regionCode, o.maxAttempts)
	if !result.Succeeded() {
		return outcome{kind: model.LogStatusFailed, reason: result.Reason, attempts: result.AttemptsUsed}
	}
	if result.Voter == nil {
		return outcome{kind: model.LogStatusFailed, reason: "extraction returned no record", attempts: result.AttemptsUsed}
	}
	return outcome{kind: model.LogStatusSuccess, attempts: result.AttemptsUsed, voter: result.Voter}
}

// record writes the voter row, the log entry and the job progress for one
// identifier in a single transaction and returns the progress that was
// stored. If the transaction fails the identifier is recorded as failed
// outside of it.
func (o *Orchestrator) record(ctx context.Context, jobID uuid.UUID, identifier string, out outcome, cur progress, tracer *log.OperationTracer) progress {
	var next progress
	err := store.InTransaction(ctx, o.store, func(txCtx context.Context) error {
		entry := model.ExtractionLog{JobID: jobID, EpicNumber: identifier, Attempts: out.attempts}
		kind := out.kind

		if out.voter != nil {
			voter, created, err := o.store.Voter().CreateIfAbsent(txCtx, *out.voter)
			if err != nil {
				return fmt.Errorf("saving record: %w", err)
			}
			entry.VoterID = &voter.ID
			if !created {
				// another writer stored the row between the check and the insert
				kind = model.LogStatusDuplicate
			}
		}

		entry.Status = kind
		if kind == model.LogStatusFailed {
			entry.ErrorMessage = &out.reason
		}
		if _, err := o.store.ExtractionLog().Create(txCtx, entry); err != nil {
			return fmt.Errorf("writing extraction log: %w", err)
		}

		next = cur.add(identifier, kind, out.reason)
		return o.store.Job().UpdateProgress(txCtx, jobID, next.counters, next.failed)
	})
	if err == nil {
		return next
	}

	tracer.Step("record").WithString("epic_number", identifier).WithString("error", err.Error()).Info().Log()

	reason := err.Error()
	next = cur.add(identifier, model.LogStatusFailed, reason)
	if _, lerr := o.store.ExtractionLog().Create(ctx, model.ExtractionLog{
		JobID:        jobID,
		EpicNumber:   identifier,
		Status:       model.LogStatusFailed,
		Attempts:     out.attempts,
		ErrorMessage: &reason,
	}); lerr != nil {
		tracer.Step("write_extraction_log").WithString("error", lerr.Error()).Info().Log()
	}
	if perr := o.store.Job().UpdateProgress(ctx, jobID, next.counters, next.failed); perr != nil {
		tracer.Step("update_progress").WithString("error", perr.Error()).Info().Log()
	}
	return next
}

func (o *Orchestrator) publish(ctx context.Context, kind string, e events.JobEvent) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, kind, e); err != nil {
		o.logger.WithContext(ctx).
			Operation("publish_job_event").
			WithString("kind", kind).
			WithString("job_id", e.JobID).
			Build().
			Error(err).
			Log()
	}
}

func jobEvent(jobID uuid.UUID, status string, total int, c model.JobCounters, reason string) events.JobEvent {
	return events.JobEvent{
		JobID:      jobID.String(),
		Status:     status,
		Total:      total,
		Processed:  c.Processed,
		Successful: c.Successful,
		Failed:     c.Failed,
		Duplicates: c.Duplicates,
		Reason:     reason,
	}
}
