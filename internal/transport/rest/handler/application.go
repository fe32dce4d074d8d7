package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"accreditation/internal/service"
)

// ApplicationHandler serves submitted applications
type ApplicationHandler struct {
	submissions *service.SubmissionService
	logger      *zap.Logger
}

// NewApplicationHandler creates a new application handler
func NewApplicationHandler(submissions *service.SubmissionService, logger *zap.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		submissions: submissions,
		logger:      logger,
	}
}

// Get handles GET /v1/applications/{id}
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	app, err := h.submissions.GetApplication(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// ListBySchool handles GET /v1/schools/{schoolId}/applications
func (h *ApplicationHandler) ListBySchool(w http.ResponseWriter, r *http.Request) {
	apps, err := h.submissions.ListBySchool(r.Context(), mux.Vars(r)["schoolId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}
