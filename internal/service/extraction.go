package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voterlookup/epic-extractor/internal/archive"
	"github.com/voterlookup/epic-extractor/internal/extraction"
	"github.com/voterlookup/epic-extractor/internal/orchestrator"
	"github.com/voterlookup/epic-extractor/internal/spreadsheet"
	"github.com/voterlookup/epic-extractor/internal/store"
	"github.com/voterlookup/epic-extractor/internal/store/model"
	"github.com/voterlookup/epic-extractor/pkg/log"
)

const (
	defaultRegion = "S08"

	reasonShuttingDown = "service is shutting down"
)

// JobLauncher is satisfied by *orchestrator.Launcher.
type JobLauncher interface {
	Launch(jobID uuid.UUID, identifiers []string, regionCode string) *orchestrator.Handle
}

// SingleExtraction is the outcome of ExtractSingle. Status is either
// success or duplicate; failures are returned as *ErrExtractionFailed.
type SingleExtraction struct {
	Status   string
	Voter    *model.Voter
	Attempts int
}

type Upload struct {
	Filename string
	Content  []byte
	Column   string
}

type ExtractionService struct {
	store         store.Store
	extractor     orchestrator.Extractor
	launcher      JobLauncher
	archiver      archive.Archiver
	maxAttempts   int
	defaultRegion string
	logger        *log.StructuredLogger
}

type ExtractionOption func(*ExtractionService)

// WithArchiver keeps a copy of every uploaded file.
func WithArchiver(a archive.Archiver) ExtractionOption {
	return func(s *ExtractionService) {
		s.archiver = a
	}
}

func WithMaxAttempts(n int) ExtractionOption {
	return func(s *ExtractionService) {
		s.maxAttempts = n
	}
}

func WithDefaultRegion(region string) ExtractionOption {
	return func(s *ExtractionService) {
		if region != "" {
			s.defaultRegion = region
		}
	}
}

func NewExtractionService(st store.Store, extractor orchestrator.Extractor, launcher JobLauncher, opts ...ExtractionOption) *ExtractionService {
	s := &ExtractionService{
		store:         st,
		extractor:     extractor,
		launcher:      launcher,
		maxAttempts:   extraction.DefaultMaxAttempts,
		defaultRegion: defaultRegion,
		logger:        log.NewDebugLogger("extraction_service"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ExtractSingle returns the stored record when the identifier is known and
// runs the engine otherwise.
func (s *ExtractionService) ExtractSingle(ctx context.Context, epicNumber, regionCode string) (*SingleExtraction, error) {
	regionCode = s.region(regionCode)
	tracer := s.logger.WithContext(ctx).
		Operation("extract_single").
		WithString("epic_number", epicNumber).
		WithString("state_code", regionCode).
		Build()

	existing, err := s.store.Voter().GetByEpic(ctx, epicNumber)
	switch {
	case err == nil:
		tracer.Success().WithString("status", model.LogStatusDuplicate).Log()
		return &SingleExtraction{Status: model.LogStatusDuplicate, Voter: existing}, nil
	case !errors.Is(err, store.ErrRecordNotFound):
		tracer.Error(err).Log()
		return nil, err
	}

	result := s.extractor.Extract(ctx, epicNumber, regionCode, s.maxAttempts)
	if !result.Succeeded() || result.Voter == nil {
		err := NewErrExtractionFailed(epicNumber, result.AttemptsUsed, result.Reason)
		tracer.Error(err).Log()
		return nil, err
	}

	voter, created, err := s.store.Voter().CreateIfAbsent(ctx, *result.Voter)
	if err != nil {
		tracer.Error(err).Log()
		return nil, fmt.Errorf("saving voter %s: %w", epicNumber, err)
	}

	status := model.LogStatusSuccess
	if !created {
		status = model.LogStatusDuplicate
	}
	tracer.Success().WithString("status", status).WithInt("attempts", result.AttemptsUsed).Log()
	return &SingleExtraction{Status: status, Voter: voter, Attempts: result.AttemptsUsed}, nil
}

// SubmitBulk creates a job for identifiers and starts it in the background.
func (s *ExtractionService) SubmitBulk(ctx context.Context, identifiers []string, regionCode string) (*model.Job, error) {
	name := fmt.Sprintf("Bulk extraction - %d EPICs", len(identifiers))
	job := model.NewJob(name, model.JobTypeBulk, s.region(regionCode), len(identifiers))
	return s.submit(ctx, job, identifiers)
}

// SubmitUpload reads identifiers out of an uploaded spreadsheet and starts a
// job for them with the default region.
func (s *ExtractionService) SubmitUpload(ctx context.Context, upload Upload) (*model.Job, error) {
	identifiers, err := spreadsheet.ParseIdentifiers(upload.Filename, upload.Content, upload.Column)
	if err != nil {
		return nil, NewErrFileCorrupted(err.Error())
	}

	job := model.NewJob("Excel upload - "+upload.Filename, model.JobTypeExcel, s.defaultRegion, len(identifiers))
	size := int64(len(upload.Content))
	job.FileName = &upload.Filename
	job.FileSize = &size

	if s.archiver != nil {
		object, err := s.archiver.Store(ctx, job.ID, upload.Filename, upload.Content)
		if err != nil {
			// the job runs without an archived copy
			s.logger.WithContext(ctx).
				Operation("archive_upload").
				WithUUID("job_id", job.ID).
				Build().
				Error(err).
				Log()
		} else {
			job.SourceObject = &object
		}
	}

	return s.submit(ctx, job, identifiers)
}

func (s *ExtractionService) submit(ctx context.Context, job *model.Job, identifiers []string) (*model.Job, error) {
	tracer := s.logger.WithContext(ctx).
		Operation("submit_job").
		WithUUID("job_id", job.ID).
		WithString("job_type", job.Type).
		WithInt("total", len(identifiers)).
		Build()

	created, err := s.store.Job().Create(ctx, *job)
	if err != nil {
		tracer.Error(err).Log()
		return nil, fmt.Errorf("creating job: %w", err)
	}

	h := s.launcher.Launch(created.ID, identifiers, created.RegionCode)
	select {
	case <-h.Done():
		if err := h.Wait(); errors.Is(err, orchestrator.ErrLauncherClosed) {
			if _, markErr := s.store.Job().MarkFailed(ctx, created.ID, reasonShuttingDown, time.Now()); markErr != nil {
				tracer.Error(markErr).Log()
			}
			tracer.Error(err).Log()
			return nil, fmt.Errorf("starting job %s: %w", created.ID, err)
		}
	default:
	}

	tracer.Success().Info().Log()
	return created, nil
}

func (s *ExtractionService) region(code string) string {
	if code == "" {
		return s.defaultRegion
	}
	return code
}
