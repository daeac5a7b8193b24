package v1alpha1

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	api "github.com/voterlookup/epic-extractor/api/v1alpha1"
	"github.com/voterlookup/epic-extractor/internal/handlers/validator"
	"github.com/voterlookup/epic-extractor/internal/service"
	"github.com/voterlookup/epic-extractor/pkg/requestid"
)

const (
	apiVersion           = "1.0.0"
	defaultMaxUploadSize = 10 << 20
)

type ServiceHandler struct {
	extractionSrv *service.ExtractionService
	jobSrv        *service.JobService
	voterSrv      *service.VoterService
	healthSrv     *service.HealthService
	validator     *validator.Validator
	maxUploadSize int64
}

type HandlerOption func(*ServiceHandler)

func WithMaxUploadSize(n int64) HandlerOption {
	return func(h *ServiceHandler) {
		if n > 0 {
			h.maxUploadSize = n
		}
	}
}

func NewServiceHandler(extractionSrv *service.ExtractionService, jobSrv *service.JobService, voterSrv *service.VoterService, healthSrv *service.HealthService, opts ...HandlerOption) *ServiceHandler {
	v := validator.NewValidator()
	v.Register(validator.NewExtractionValidationRules()...)

	h := &ServiceHandler{
		extractionSrv: extractionSrv,
		jobSrv:        jobSrv,
		voterSrv:      voterSrv,
		healthSrv:     healthSrv,
		validator:     v,
		maxUploadSize: defaultMaxUploadSize,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *ServiceHandler) RegisterRoutes(router chi.Router) {
	router.Get("/", h.Root)
	router.Get("/health", h.Health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/extract/single", h.ExtractSingle)
		r.Post("/extract/bulk", h.ExtractBulk)
		r.Post("/extract/excel", h.ExtractExcel)

		r.Get("/jobs", h.ListJobs)
		r.Get("/jobs/{id}", h.GetJob)
		r.Get("/jobs/{id}/logs", h.ListJobLogs)

		r.Get("/voters/search", h.SearchVoters)
		r.Get("/voters/export", h.ExportVoters)
		r.Get("/voters/{epic_number}", h.GetVoter)

		r.Get("/stats", h.Stats)
	})
}

func respond(w http.ResponseWriter, r *http.Request, status int, body any) {
	render.Status(r, status)
	render.JSON(w, r, body)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	reqID := requestid.FromContext(r.Context())
	body := api.Error{Message: message}
	if reqID != "" {
		body.RequestId = &reqID
	}
	respond(w, r, status, body)
}

// statusFor maps service and validation errors onto response codes.
func statusFor(err error) int {
	var (
		invalid   *validator.ErrInvalidRequest
		corrupted *service.ErrFileCorrupted
		notFound  *service.ErrResourceNotFound
		failed    *service.ErrExtractionFailed
	)
	switch {
	case errors.As(err, &invalid), errors.As(err, &corrupted):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &failed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
