// Package extraction runs the captcha-gated lookup of a single identifier
// against the portal, retrying on every recoverable outcome.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/voterlookup/epic-extractor/internal/portal"
	"github.com/voterlookup/epic-extractor/internal/service/mappers"
	"github.com/voterlookup/epic-extractor/internal/solver"
	"github.com/voterlookup/epic-extractor/internal/store/model"
	"github.com/voterlookup/epic-extractor/internal/util"
	"github.com/voterlookup/epic-extractor/pkg/log"
	"github.com/voterlookup/epic-extractor/pkg/metrics"
)

const (
	DefaultMaxAttempts  = 5
	DefaultAttemptDelay = 500 * time.Millisecond

	ReasonCancelled = "cancelled"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

type ChallengeFetcher interface {
	FetchChallenge(ctx context.Context) (*portal.Challenge, error)
}

type LookupSubmitter interface {
	Submit(ctx context.Context, lookup portal.Lookup) portal.Outcome
}

// Portal is the part of the portal client the engine needs.
type Portal interface {
	ChallengeFetcher
	LookupSubmitter
}

// Result is the final outcome of one extraction. Record and Voter are set
// only when Status is StatusSuccess.
type Result struct {
	Identifier   string
	Status       Status
	AttemptsUsed int
	Record       map[string]any
	Voter        *model.Voter
	LastOutcome  portal.OutcomeKind
	Reason       string
}

func (r Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

type Engine struct {
	portal       Portal
	solver       solver.Solver
	maxAttempts  int
	attemptDelay time.Duration
	guessLength  int
	now          func() time.Time
	logger       *log.StructuredLogger
}

type Option func(*Engine)

func WithAttemptDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.attemptDelay = d
	}
}

// WithMaxAttempts sets the budget used when Extract is called with a
// non-positive maxAttempts.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

func WithGuessLength(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.guessLength = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(p Portal, s solver.Solver, opts ...Option) *Engine {
	e := &Engine{
		portal:       p,
		solver:       s,
		maxAttempts:  DefaultMaxAttempts,
		attemptDelay: DefaultAttemptDelay,
		guessLength:  solver.ExpectedGuessLength,
		now:          time.Now,
		logger:       log.NewDebugLogger("extraction_engine"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract looks up identifier within regionCode, spending at most maxAttempts
// challenges. It never returns an error: failures are reported through the
// result.
func (e *Engine) Extract(ctx context.Context, identifier, regionCode string, maxAttempts int) Result {
	if maxAttempts <= 0 {
		maxAttempts = e.maxAttempts
	}

	tracer := e.logger.WithContext(ctx).
		Operation("extract").
		WithString("epic_number", identifier).
		WithString("state_code", regionCode).
		WithInt("max_attempts", maxAttempts).
		Build()

	result := Result{Identifier: identifier, Status: StatusFailed}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return e.cancelled(result, tracer)
		}

		result.AttemptsUsed = attempt
		outcome := e.attempt(ctx, identifier, regionCode)
		result.LastOutcome = outcome.Kind
		metrics.IncreaseAttemptsMetric(string(outcome.Kind))

		if outcome.Succeeded() {
			voter := mappers.VoterFromRecord(identifier, outcome.Record, e.now())
			result.Status = StatusSuccess
			result.Record = outcome.Record
			result.Voter = &voter
			metrics.IncreaseExtractionsMetric(string(StatusSuccess))
			tracer.Success().WithInt("attempts", attempt).Info().Log()
			return result
		}

		event := tracer.Step("attempt_failed").
			WithInt("attempt", attempt).
			WithString("outcome", outcome.String())
		if outcome.Kind == portal.OutcomeUpstreamError || outcome.Kind == portal.OutcomeTransportError {
			event = event.Info()
		}
		event.Log()

		if attempt == maxAttempts {
			break
		}
		if err := util.Sleep(ctx, e.attemptDelay); err != nil {
			return e.cancelled(result, tracer)
		}
	}

	result.Reason = fmt.Sprintf("Failed to extract data after %d attempts", maxAttempts)
	metrics.IncreaseExtractionsMetric(string(StatusFailed))
	tracer.Error(errors.New(result.Reason)).WithString("last_outcome", string(result.LastOutcome)).Log()
	return result
}

func (e *Engine) cancelled(result Result, tracer *log.OperationTracer) Result {
	result.Status = StatusFailed
	result.Reason = ReasonCancelled
	metrics.IncreaseExtractionsMetric(ReasonCancelled)
	tracer.Step("cancelled").WithInt("attempts", result.AttemptsUsed).Info().Log()
	return result
}

// attempt runs one fetch, solve and submit cycle.
func (e *Engine) attempt(ctx context.Context, identifier, regionCode string) portal.Outcome {
	challenge, err := e.portal.FetchChallenge(ctx)
	if err != nil {
		var statusErr *portal.StatusError
		if errors.As(err, &statusErr) {
			return portal.Outcome{Kind: portal.OutcomeUpstreamError, StatusCode: statusErr.StatusCode, Err: err}
		}
		return portal.Outcome{Kind: portal.OutcomeTransportError, Err: err}
	}

	guess, err := e.solver.Solve(ctx, challenge.Image)
	if err != nil {
		return portal.Outcome{Kind: portal.OutcomeInvalidGuess, Err: err}
	}
	if err := solver.ValidateGuess(guess, e.guessLength); err != nil {
		return portal.Outcome{Kind: portal.OutcomeInvalidGuess, Err: err}
	}

	return e.portal.Submit(ctx, portal.Lookup{
		Guess:       guess,
		ChallengeID: challenge.ID,
		Identifier:  identifier,
		RegionCode:  regionCode,
	})
}
