package v1alpha1

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/voterlookup/epic-extractor/internal/service"
	"github.com/voterlookup/epic-extractor/internal/service/mappers"
	"github.com/voterlookup/epic-extractor/pkg/log"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// (GET /api/v1/voters/search)
func (h *ServiceHandler) SearchVoters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	logger := log.NewDebugLogger("voter_handler").WithContext(ctx).Operation("search_voters").
		WithString("query", query.Get("query")).
		WithString("epic_number", query.Get("epic_number")).
		Build()

	limit, err := intParam(r, "limit", service.DefaultSearchLimit)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	voters, err := h.voterSrv.Search(ctx, service.VoterSearch{
		EpicNumber: strings.TrimSpace(query.Get("epic_number")),
		Query:      strings.TrimSpace(query.Get("query")),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		logger.Error(err).Log()
		respondError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to search voters: %v", err))
		return
	}

	logger.Success().WithInt("count", len(voters)).Log()
	respond(w, r, http.StatusOK, mappers.VoterListToApi(voters))
}

// (GET /api/v1/voters/export)
func (h *ServiceHandler) ExportVoters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	logger := log.NewDebugLogger("voter_handler").WithContext(ctx).Operation("export_voters").WithString("query", query).Build()

	// buffered so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.voterSrv.Export(ctx, &buf, query); err != nil {
		logger.Error(err).Log()
		respondError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to export voters: %v", err))
		return
	}

	filename := fmt.Sprintf("voters-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Error(err).Log()
		return
	}

	logger.Success().Log()
}

// (GET /api/v1/voters/{epic_number})
func (h *ServiceHandler) GetVoter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	epic := strings.TrimSpace(chi.URLParam(r, "epic_number"))
	logger := log.NewDebugLogger("voter_handler").WithContext(ctx).Operation("get_voter").WithString("epic_number", epic).Build()

	voter, err := h.voterSrv.GetVoter(ctx, epic)
	if err != nil {
		logger.Error(err).Log()
		respondError(w, r, statusFor(err), err.Error())
		return
	}

	logger.Success().Log()
	respond(w, r, http.StatusOK, mappers.VoterToApi(*voter))
}
