package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"accreditation/internal/catalog"
	"accreditation/internal/service"
)

// CatalogHandler serves the request types and the criteria tree
type CatalogHandler struct {
	wizards *service.WizardService
	source  catalog.CriteriaSource
	logger  *zap.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(wizards *service.WizardService, source catalog.CriteriaSource, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		wizards: wizards,
		source:  source,
		logger:  logger,
	}
}

// RequestTypes handles GET /v1/request-types
func (h *CatalogHandler) RequestTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.wizards.RequestTypes())
}

// Areas handles GET /v1/areas
func (h *CatalogHandler) Areas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.source.GetAreas(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, areas)
}

// Criteria handles GET /v1/areas/{areaId}/criteria
func (h *CatalogHandler) Criteria(w http.ResponseWriter, r *http.Request) {
	criteria, err := h.source.GetCriteriaByAreaID(r.Context(), mux.Vars(r)["areaId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if len(criteria) == 0 {
		writeError(w, http.StatusNotFound, "area not found")
		return
	}
	writeJSON(w, http.StatusOK, criteria)
}

// Indicators handles GET /v1/criteria/{criteriaId}/indicators
func (h *CatalogHandler) Indicators(w http.ResponseWriter, r *http.Request) {
	indicators, err := h.source.GetIndicatorsByCriteriaID(r.Context(), mux.Vars(r)["criteriaId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if len(indicators) == 0 {
		writeError(w, http.StatusNotFound, "criteria not found")
		return
	}
	writeJSON(w, http.StatusOK, indicators)
}
