package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/massimocristi1970/CallAnalysisApp/internal/adapters/repository"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
)

// ReportDependencies fetches stored reports.
type ReportDependencies interface {
	Report(ctx context.Context, callID string) (model.Record, error)
}

// ReportHandler handles report lookups.
type ReportHandler struct {
	deps ReportDependencies
}

// NewReportHandler creates a new report handler.
func NewReportHandler(deps ReportDependencies) *ReportHandler {
	return &ReportHandler{deps: deps}
}

// HandleGetReport handles GET /reports/{call_id}.
func (h *ReportHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_report"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	callID := strings.TrimPrefix(r.URL.Path, "/reports/")
	if callID == "" || strings.Contains(callID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing call_id")))
		return
	}

	rec, err := h.deps.Report(r.Context(), callID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, rec)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal", WrapKind(op, ErrInternal, err))
	}
}
