package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/types"
)

// AgentDependencies aggregates stored calls per agent.
type AgentDependencies interface {
	AgentSummary(ctx context.Context, filter types.AgentFilter) ([]types.AgentSummary, error)
}

// AgentsHandler handles per-agent monthly summaries.
type AgentsHandler struct {
	deps AgentDependencies
}

// NewAgentsHandler creates a new agents handler.
func NewAgentsHandler(deps AgentDependencies) *AgentsHandler {
	return &AgentsHandler{deps: deps}
}

var errBadYear = errors.New("year must be an integer between 1 and 9999")

// HandleGetAgents handles GET /agents?agent=NAME&year=YYYY. Both parameters are optional.
func (h *AgentsHandler) HandleGetAgents(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_agents"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	filter := types.AgentFilter{Agent: strings.TrimSpace(q.Get("agent"))}
	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1 || year > 9999 {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errBadYear))
			return
		}
		filter.Year = year
	}

	rows, err := h.deps.AgentSummary(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", WrapKind(op, ErrInternal, err))
		return
	}
	if rows == nil {
		rows = []types.AgentSummary{}
	}
	writeJSON(w, http.StatusOK, rows)
}
