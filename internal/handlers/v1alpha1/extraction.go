package v1alpha1

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	api "github.com/voterlookup/epic-extractor/api/v1alpha1"
	"github.com/voterlookup/epic-extractor/internal/service"
	"github.com/voterlookup/epic-extractor/internal/service/mappers"
	"github.com/voterlookup/epic-extractor/internal/spreadsheet"
	"github.com/voterlookup/epic-extractor/internal/store/model"
	"github.com/voterlookup/epic-extractor/pkg/log"
)

// (POST /api/v1/extract/single)
func (h *ServiceHandler) ExtractSingle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("extraction_handler").WithContext(ctx).Operation("extract_single").Build()

	var req api.ExtractSingleRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	req.EpicNumber = strings.TrimSpace(req.EpicNumber)

	if err := h.validator.Struct(req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.extractionSrv.ExtractSingle(ctx, req.EpicNumber, req.StateCode)
	if err != nil {
		logger.Error(err).WithString("epic_number", req.EpicNumber).Log()

		var failed *service.ErrExtractionFailed
		if errors.As(err, &failed) {
			respond(w, r, http.StatusUnprocessableEntity, api.ExtractionResponse{
				Status:     api.ExtractionStatusFailed,
				Message:    err.Error(),
				EpicNumber: failed.EpicNumber,
				Attempts:   failed.Attempts,
			})
			return
		}
		respondError(w, r, statusFor(err), err.Error())
		return
	}

	message := "Data extracted and saved successfully"
	status := api.ExtractionStatusSuccess
	if result.Status == model.LogStatusDuplicate {
		message = "Voter already exists in database"
		status = api.ExtractionStatusDuplicate
	}

	voterID := result.Voter.ID
	logger.Success().WithString("status", status).WithUUID("voter_id", voterID).Log()
	respond(w, r, http.StatusOK, api.ExtractionResponse{
		Status:     status,
		Message:    message,
		EpicNumber: result.Voter.EpicNumber,
		Attempts:   result.Attempts,
		VoterID:    &voterID,
		Data:       mappers.VoterToApi(*result.Voter),
	})
}

// (POST /api/v1/extract/bulk)
func (h *ServiceHandler) ExtractBulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("extraction_handler").WithContext(ctx).Operation("extract_bulk").Build()

	var req api.ExtractBulkRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	for i := range req.EpicNumbers {
		req.EpicNumbers[i] = strings.TrimSpace(req.EpicNumbers[i])
	}

	if err := h.validator.Struct(req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.extractionSrv.SubmitBulk(ctx, req.EpicNumbers, req.StateCode)
	if err != nil {
		logger.Error(err).Log()
		respondError(w, r, statusFor(err), fmt.Sprintf("failed to create job: %v", err))
		return
	}

	logger.Success().WithUUID("job_id", job.ID).WithInt("total", job.Total).Log()
	respond(w, r, http.StatusAccepted, api.JobAccepted{
		Status:       "accepted",
		Message:      "Bulk extraction job created",
		JobID:        job.ID,
		TotalRecords: job.Total,
	})
}

// (POST /api/v1/extract/excel)
func (h *ServiceHandler) ExtractExcel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("extraction_handler").WithContext(ctx).Operation("extract_excel").Build()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxUploadSize))
			return
		}
		respondError(w, r, http.StatusBadRequest, fmt.Sprintf("failed to read multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if !spreadsheet.Supported(header.Filename) {
		respondError(w, r, http.StatusBadRequest, spreadsheet.ErrUnsupportedFormat.Error())
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		logger.Error(err).Log()
		respondError(w, r, http.StatusBadRequest, fmt.Sprintf("failed to read file: %v", err))
		return
	}

	job, err := h.extractionSrv.SubmitUpload(ctx, service.Upload{
		Filename: header.Filename,
		Content:  content,
		Column:   r.FormValue("epic_column"),
	})
	if err != nil {
		logger.Error(err).WithString("file", header.Filename).Log()
		respondError(w, r, statusFor(err), err.Error())
		return
	}

	logger.Success().WithUUID("job_id", job.ID).WithInt("total", job.Total).Log()
	respond(w, r, http.StatusAccepted, api.JobAccepted{
		Status:       "accepted",
		Message:      fmt.Sprintf("File uploaded successfully. Processing %d EPIC numbers", job.Total),
		JobID:        job.ID,
		TotalRecords: job.Total,
	})
}
