package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrLauncherClosed = errors.New("launcher is shut down")

// Runner is satisfied by *Orchestrator.
type Runner interface {
	Run(ctx context.Context, jobID uuid.UUID, identifiers []string, regionCode string) error
}

// Handle tracks one launched job.
type Handle struct {
	JobID uuid.UUID
	done  chan struct{}
	err   error
}

func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the job returns and hands back its error.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Launcher runs jobs in the background, detached from the request that
// created them.
type Launcher struct {
	runner Runner
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	active map[uuid.UUID]*Handle
	wg     sync.WaitGroup
}

func NewLauncher(runner Runner) *Launcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Launcher{
		runner: runner,
		ctx:    ctx,
		cancel: cancel,
		active: make(map[uuid.UUID]*Handle),
	}
}

// Launch starts jobID in the background. Once Shutdown has begun the returned
// handle is already done and carries ErrLauncherClosed.
func (l *Launcher) Launch(jobID uuid.UUID, identifiers []string, regionCode string) *Handle {
	h := &Handle{JobID: jobID, done: make(chan struct{})}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		h.err = ErrLauncherClosed
		close(h.done)
		zap.S().Named("launcher").Warnw("job rejected after shutdown", "job_id", jobID)
		return h
	}
	l.active[jobID] = h
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		defer close(h.done)
		defer func() {
			l.mu.Lock()
			delete(l.active, jobID)
			l.mu.Unlock()
		}()

		h.err = l.runner.Run(l.ctx, jobID, identifiers, regionCode)
		if h.err != nil {
			zap.S().Named("launcher").Errorw("job returned an error", "job_id", jobID, "error", h.err)
		}
	}()

	return h
}

// IsActive reports whether jobID is running in this process.
func (l *Launcher) IsActive(jobID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.active[jobID]
	return ok
}

func (l *Launcher) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}

// Shutdown waits for running jobs until ctx is done. Jobs still running then
// are cancelled and marked failed before Shutdown returns.
func (l *Launcher) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		l.cancel()
		return nil
	case <-ctx.Done():
		l.cancel()
		<-finished
		return ctx.Err()
	}
}
