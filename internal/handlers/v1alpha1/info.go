package v1alpha1

import (
	"fmt"
	"net/http"

	api "github.com/voterlookup/epic-extractor/api/v1alpha1"
	"github.com/voterlookup/epic-extractor/internal/service/mappers"
	"github.com/voterlookup/epic-extractor/pkg/log"
)

type rootReply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}

// (GET /)
func (h *ServiceHandler) Root(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, rootReply{
		Status:  "ok",
		Message: "EPIC extraction API is running",
		Version: apiVersion,
	})
}

// (GET /health)
// The check always answers 200; the body carries the component states.
func (h *ServiceHandler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.healthSrv.Check(r.Context())
	if health.Overall != api.HealthHealthy {
		log.NewDebugLogger("info_handler").WithContext(r.Context()).Operation("health").Build().
			Step("degraded").
			WithString("overall", string(health.Overall)).
			WithString("database", string(health.Database)).
			WithString("portal", string(health.Portal)).
			Info().
			Log()
	}
	respond(w, r, http.StatusOK, health)
}

// (GET /api/v1/stats)
func (h *ServiceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("info_handler").WithContext(ctx).Operation("stats").Build()

	stats, err := h.jobSrv.Statistics(ctx)
	if err != nil {
		logger.Error(err).Log()
		respondError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to read statistics: %v", err))
		return
	}

	logger.Success().Log()
	respond(w, r, http.StatusOK, mappers.StatsToApi(stats))
}
