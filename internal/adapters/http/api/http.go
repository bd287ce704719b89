// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/dedupe"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/report"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/taxonomy"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/types"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes a call for async scoring. An error means backpressure.
	Enqueue(ctx context.Context, c model.Call) error

	// Score scores a call synchronously without storing it.
	Score(ctx context.Context, c model.Call) (report.QAReport, error)

	// Read operations expose stored reports.
	Report(ctx context.Context, callID string) (model.Record, error)
	Review(ctx context.Context, limit int) ([]types.ReviewEntry, error)
	AgentSummary(ctx context.Context, filter types.AgentFilter) ([]types.AgentSummary, error)

	Taxonomy() taxonomy.Document
	Thresholds() taxonomy.Thresholds
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	callsHandler    *CallsHandler
	scoreHandler    *ScoreHandler
	reportHandler   *ReportHandler
	reviewHandler   *ReviewHandler
	agentsHandler   *AgentsHandler
	taxonomyHandler *TaxonomyHandler
}

// NewServer creates a new API server with all handlers. maxReviewLimit caps
// GET /review?limit.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxReviewLimit int) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		callsHandler:    NewCallsHandler(deps),
		scoreHandler:    NewScoreHandler(deps),
		reportHandler:   NewReportHandler(deps),
		reviewHandler:   NewReviewHandler(deps, maxReviewLimit),
		agentsHandler:   NewAgentsHandler(deps),
		taxonomyHandler: NewTaxonomyHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/calls", MetricsMiddleware(s.callsHandler.HandlePostCall, "calls"))
	mux.HandleFunc("/score", MetricsMiddleware(s.scoreHandler.HandleScore, "score"))
	mux.HandleFunc("/reports/", MetricsMiddleware(s.reportHandler.HandleGetReport, "reports"))
	mux.HandleFunc("/review", MetricsMiddleware(s.reviewHandler.HandleGetReview, "review"))
	mux.HandleFunc("/agents", MetricsMiddleware(s.agentsHandler.HandleGetAgents, "agents"))
	mux.HandleFunc("/taxonomy", MetricsMiddleware(s.taxonomyHandler.HandleGetTaxonomy, "taxonomy"))
}

// callRequest mirrors the OpenAPI schema for POST /calls and POST /score.
type callRequest struct {
	CallID     string   `json:"call_id" validate:"omitempty,max=128"`
	CallType   string   `json:"call_type" validate:"omitempty,max=64"`
	Agent      string   `json:"agent" validate:"omitempty,max=128"`
	Transcript string   `json:"transcript"`
	Chunks     []string `json:"chunks" validate:"omitempty,max=1000"`
}

func (c callRequest) call() model.Call {
	return model.Call{
		CallID:     strings.TrimSpace(c.CallID),
		CallType:   strings.TrimSpace(c.CallType),
		Agent:      strings.TrimSpace(c.Agent),
		Transcript: c.Transcript,
		Chunks:     c.Chunks,
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			return name
		})
	})
	return validate
}

// decodeCall reads and validates a call body.
func decodeCall(w http.ResponseWriter, r *http.Request) (callRequest, error) {
	var req callRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return req, err
	}
	if err := requestValidator().Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return req, fmt.Errorf("%s fails %s=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		return req, err
	}
	return req, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	CallID    string `json:"call_id"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
