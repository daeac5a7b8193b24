package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voterlookup/epic-extractor/internal/store/model"
	"gorm.io/gorm"
)

type Job interface {
	Create(ctx context.Context, job model.Job) (*model.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Job, error)
	List(ctx context.Context, filter *JobQueryFilter, opts *JobQueryOptions) (model.JobList, error)
	MarkInProgress(ctx context.Context, id uuid.UUID, startedAt time.Time) error
	UpdateProgress(ctx context.Context, id uuid.UUID, counters model.JobCounters, failed model.FailedEntries) error
	MarkCompleted(ctx context.Context, id uuid.UUID, counters model.JobCounters, failed model.FailedEntries, completedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error)
	ListStale(ctx context.Context, before time.Time) (model.JobList, error)
}

type JobStore struct {
	db *gorm.DB
}

// Make sure we conform to Job interface
var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

func (s *JobStore) Create(ctx context.Context, job model.Job) (*model.Job, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = model.JobStatusPending
	}
	if err := s.getDB(ctx).Create(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return &job, nil
}

func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	var job model.Job
	result := s.getDB(ctx).First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job: %w", result.Error)
	}
	return &job, nil
}

func (s *JobStore) List(ctx context.Context, filter *JobQueryFilter, opts *JobQueryOptions) (model.JobList, error) {
	var jobs model.JobList
	tx := s.getDB(ctx).Model(&jobs).Order("created_at DESC")

	if filter != nil {
		tx = apply(tx, filter.QueryFn)
	}
	if opts != nil {
		tx = apply(tx, opts.QueryFn)
	}

	if err := tx.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *JobStore) MarkInProgress(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	return s.update(ctx, id, map[string]any{
		"status":     model.JobStatusInProgress,
		"started_at": startedAt,
	})
}

// UpdateProgress writes the counters and the failure ledger in one statement.
func (s *JobStore) UpdateProgress(ctx context.Context, id uuid.UUID, counters model.JobCounters, failed model.FailedEntries) error {
	columns := countersColumns(counters)
	if failed != nil {
		columns["failed_epics"] = model.MakeJSONField(failed)
	}
	return s.update(ctx, id, columns)
}

func (s *JobStore) MarkCompleted(ctx context.Context, id uuid.UUID, counters model.JobCounters, failed model.FailedEntries, completedAt time.Time) error {
	if failed == nil {
		failed = model.FailedEntries{}
	}
	columns := countersColumns(counters)
	columns["status"] = model.JobStatusCompleted
	columns["completed_at"] = completedAt
	columns["failed_epics"] = model.MakeJSONField(failed)
	return s.update(ctx, id, columns)
}

// MarkFailed moves a pending or in_progress job to failed. It reports false
// when the job had already reached a terminal state.
func (s *JobStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error) {
	result := s.getDB(ctx).Model(&model.Job{}).
		Where("id = ? AND status IN ?", id, []string{model.JobStatusPending, model.JobStatusInProgress}).
		Updates(map[string]any{
			"status":        model.JobStatusFailed,
			"error_message": reason,
			"completed_at":  at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("marking job failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListStale returns unfinished jobs whose row was last touched before the
// given time.
func (s *JobStore) ListStale(ctx context.Context, before time.Time) (model.JobList, error) {
	filter := NewJobQueryFilter().
		ByStatus(model.JobStatusPending, model.JobStatusInProgress).
		UpdatedBefore(before)
	return s.List(ctx, filter, nil)
}

func (s *JobStore) update(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	result := s.getDB(ctx).Model(&model.Job{}).Where("id = ?", id).Updates(columns)
	if result.Error != nil {
		return fmt.Errorf("updating job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func countersColumns(c model.JobCounters) map[string]any {
	return map[string]any{
		"processed_records":  c.Processed,
		"successful_records": c.Successful,
		"failed_records":     c.Failed,
		"duplicate_records":  c.Duplicates,
	}
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	return getDB(ctx, s.db)
}
