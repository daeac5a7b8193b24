package v1alpha1

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/voterlookup/epic-extractor/internal/service"
	"github.com/voterlookup/epic-extractor/internal/service/mappers"
	"github.com/voterlookup/epic-extractor/pkg/log"
)

// (GET /api/v1/jobs)
func (h *ServiceHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("job_handler").WithContext(ctx).Operation("list_jobs").Build()

	limit, err := intParam(r, "limit", service.DefaultJobListLimit)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	jobs, err := h.jobSrv.ListJobs(ctx, r.URL.Query().Get("status"), limit)
	if err != nil {
		logger.Error(err).Log()
		respondError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to list jobs: %v", err))
		return
	}

	logger.Success().WithInt("count", len(jobs)).Log()
	respond(w, r, http.StatusOK, mappers.JobListToApi(jobs))
}

// (GET /api/v1/jobs/{id})
func (h *ServiceHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid job id: %v", err))
		return
	}
	logger := log.NewDebugLogger("job_handler").WithContext(ctx).Operation("get_job").WithUUID("job_id", id).Build()

	job, err := h.jobSrv.GetJob(ctx, id)
	if err != nil {
		logger.Error(err).Log()
		respondError(w, r, statusFor(err), err.Error())
		return
	}

	logger.Success().Log()
	respond(w, r, http.StatusOK, mappers.JobToApi(*job))
}

// (GET /api/v1/jobs/{id}/logs)
func (h *ServiceHandler) ListJobLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid job id: %v", err))
		return
	}
	logger := log.NewDebugLogger("job_handler").WithContext(ctx).Operation("list_job_logs").WithUUID("job_id", id).Build()

	limit, err := intParam(r, "limit", service.DefaultLogLimit)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.jobSrv.ListLogs(ctx, id, limit)
	if err != nil {
		logger.Error(err).Log()
		respondError(w, r, statusFor(err), err.Error())
		return
	}

	logger.Success().WithInt("count", len(entries)).Log()
	respond(w, r, http.StatusOK, mappers.ExtractionLogsToApi(entries))
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
