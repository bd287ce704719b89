package api

import (
	"net/http"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/taxonomy"
)

// TaxonomyDependencies exposes the effective scoring configuration.
type TaxonomyDependencies interface {
	Taxonomy() taxonomy.Document
	Thresholds() taxonomy.Thresholds
}

type taxonomyResponse struct {
	taxonomy.Document
	Thresholds taxonomy.Thresholds `json:"thresholds"`
}

// TaxonomyHandler handles taxonomy requests.
type TaxonomyHandler struct {
	deps TaxonomyDependencies
}

// NewTaxonomyHandler creates a new taxonomy handler.
func NewTaxonomyHandler(deps TaxonomyDependencies) *TaxonomyHandler {
	return &TaxonomyHandler{deps: deps}
}

// HandleGetTaxonomy handles GET /taxonomy.
func (h *TaxonomyHandler) HandleGetTaxonomy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, taxonomyResponse{
		Document:   h.deps.Taxonomy(),
		Thresholds: h.deps.Thresholds(),
	})
}
