package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/report"
)

// ScoreDependencies scores a call synchronously.
type ScoreDependencies interface {
	Score(ctx context.Context, c model.Call) (report.QAReport, error)
}

// ScoreHandler handles synchronous scoring requests.
type ScoreHandler struct {
	deps ScoreDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandleScore handles POST /score. The report is returned and not stored.
func (h *ScoreHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req, err := decodeCall(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	c := req.call()
	if c.CallID == "" {
		c.CallID = uuid.NewString()
	}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	rep, err := h.deps.Score(r.Context(), c)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, rep)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "cancelled", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal", WrapKind(op, ErrInternal, err))
	}
}
