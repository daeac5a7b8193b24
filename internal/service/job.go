package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/voterlookup/epic-extractor/internal/store"
	"github.com/voterlookup/epic-extractor/internal/store/model"
	"github.com/voterlookup/epic-extractor/pkg/log"
)

const (
	DefaultJobListLimit = 10
	DefaultLogLimit     = 20
)

type JobService struct {
	store  store.Store
	logger *log.StructuredLogger
}

func NewJobService(st store.Store) *JobService {
	return &JobService{
		store:  st,
		logger: log.NewDebugLogger("job_service"),
	}
}

func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	tracer := s.logger.WithContext(ctx).Operation("get_job").WithUUID("job_id", id).Build()

	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		tracer.Error(err).Log()
		return nil, err
	}

	tracer.Success().Log()
	return job, nil
}

// ListJobs returns the newest jobs first. An empty status lists every job.
func (s *JobService) ListJobs(ctx context.Context, status string, limit int) (model.JobList, error) {
	if limit <= 0 {
		limit = DefaultJobListLimit
	}

	var filter *store.JobQueryFilter
	if status != "" {
		filter = store.NewJobQueryFilter().ByStatus(status)
	}

	return s.store.Job().List(ctx, filter, store.NewJobQueryOptions().WithLimit(limit))
}

// ListLogs returns the newest log entries of a job.
func (s *JobService) ListLogs(ctx context.Context, id uuid.UUID, limit int) (model.ExtractionLogList, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	if _, err := s.GetJob(ctx, id); err != nil {
		return nil, err
	}

	return s.store.ExtractionLog().ListByJob(ctx, id, limit)
}

func (s *JobService) Statistics(ctx context.Context) (model.Stats, error) {
	return s.store.Statistics(ctx)
}
