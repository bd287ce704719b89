package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/dedupe"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
)

// CallDependencies defines the interface for call submission dependencies.
type CallDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, c model.Call) error
}

// CallsHandler handles call submissions.
type CallsHandler struct {
	deps  CallDependencies
	newID func() string
}

// NewCallsHandler creates a new calls handler.
func NewCallsHandler(deps CallDependencies) *CallsHandler {
	return &CallsHandler{deps: deps, newID: uuid.NewString}
}

// HandlePostCall handles POST /calls requests. A call without call_id is given a
// fresh UUID, which is echoed back.
func (h *CallsHandler) HandlePostCall(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_call"
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
		c.CallID = h.newID()
	}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Mark as seen first so concurrent submissions of one call enqueue it once.
	if h.deps.SeenAndRecord(r.Context(), c.CallID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", CallID: c.CallID, Duplicate: true})
		return
	}

	if err := h.deps.Enqueue(r.Context(), c); err != nil {
		// Roll back so the client can retry.
		h.deps.Unrecord(r.Context(), c.CallID)
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", CallID: c.CallID})
}
