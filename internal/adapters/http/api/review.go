package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/types"
)

const defaultReviewLimit = 10

// ReviewDependencies lists the weakest stored calls.
type ReviewDependencies interface {
	Review(ctx context.Context, limit int) ([]types.ReviewEntry, error)
}

// ReviewHandler handles review list requests.
type ReviewHandler struct {
	deps     ReviewDependencies
	maxLimit int
}

// NewReviewHandler creates a new review handler. maxLimit < 1 disables the cap.
func NewReviewHandler(deps ReviewDependencies, maxLimit int) *ReviewHandler {
	return &ReviewHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetReview handles GET /review?limit=N, lowest overall rule scores first.
func (h *ReviewHandler) HandleGetReview(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_review"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit := defaultReviewLimit
	if h.maxLimit > 0 && limit > h.maxLimit {
		limit = h.maxLimit
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || (h.maxLimit > 0 && n > h.maxLimit) {
			writeError(w, http.StatusBadRequest, "bad_request",
				WrapKind(op, ErrBadRequest, fmt.Errorf("limit must be between 1 and %d", h.maxLimit)))
			return
		}
		limit = n
	}

	entries, err := h.deps.Review(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", WrapKind(op, ErrInternal, err))
		return
	}
	if entries == nil {
		entries = []types.ReviewEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
