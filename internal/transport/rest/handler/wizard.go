package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"accreditation/internal/model"
	"accreditation/internal/service"
	"accreditation/internal/wizard"
)

// WizardHandler handles wizard session endpoints
type WizardHandler struct {
	wizards *service.WizardService
	logger  *zap.Logger
}

// NewWizardHandler creates a new wizard handler
func NewWizardHandler(wizards *service.WizardService, logger *zap.Logger) *WizardHandler {
	return &WizardHandler{
		wizards: wizards,
		logger:  logger,
	}
}

// StartRequest is the request body for opening a session
type StartRequest struct {
	RequestType string `json:"requestType"`
	SchoolID    string `json:"schoolId"`
}

// UpdateStepRequest carries the field values to merge into a step
type UpdateStepRequest struct {
	Data model.StepData `json:"data"`
}

// SubmitRequest is the request body for submitting a session
type SubmitRequest struct {
	Applicant model.Applicant `json:"applicant"`
}

// WizardResponse is a session snapshot with its id
type WizardResponse struct {
	ID string `json:"id"`
	wizard.Snapshot
}

// NavigationResponse reports whether a step move happened
type NavigationResponse struct {
	Moved bool `json:"moved"`
	WizardResponse
}

// Start handles POST /v1/wizards
func (h *WizardHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RequestType == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "requestType is required", Field: "requestType"})
		return
	}

	id, c, err := h.wizards.Start(r.Context(), req.RequestType, req.SchoolID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, WizardResponse{ID: id, Snapshot: c.Snapshot()})
}

// Get handles GET /v1/wizards/{id}
func (h *WizardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := h.wizards.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, WizardResponse{ID: id, Snapshot: c.Snapshot()})
}

// Score handles GET /v1/wizards/{id}/score
func (h *WizardHandler) Score(w http.ResponseWriter, r *http.Request) {
	c, err := h.wizards.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Score())
}

// UpdateStep handles PUT /v1/wizards/{id}/steps/{stepId}
func (h *WizardHandler) UpdateStep(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req UpdateStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.wizards.Get(r.Context(), vars["id"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := c.UpdateFormData(r.Context(), vars["stepId"], req.Data); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, WizardResponse{ID: vars["id"], Snapshot: c.Snapshot()})
}

// Next handles POST /v1/wizards/{id}/next
func (h *WizardHandler) Next(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := h.wizards.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := c.HandleNext(r.Context()); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, WizardResponse{ID: id, Snapshot: c.Snapshot()})
}

// Previous handles POST /v1/wizards/{id}/previous
func (h *WizardHandler) Previous(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := h.wizards.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	c.HandlePrevious(r.Context())
	writeJSON(w, http.StatusOK, WizardResponse{ID: id, Snapshot: c.Snapshot()})
}

// NextStep handles POST /v1/wizards/{id}/steps/next
func (h *WizardHandler) NextStep(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := h.wizards.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	moved, err := c.GoToNextStep(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, NavigationResponse{
		Moved:          moved,
		WizardResponse: WizardResponse{ID: id, Snapshot: c.Snapshot()},
	})
}

// PreviousStep handles POST /v1/wizards/{id}/steps/previous
func (h *WizardHandler) PreviousStep(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := h.wizards.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	moved := c.GoToPreviousStep(r.Context())
	writeJSON(w, http.StatusOK, NavigationResponse{
		Moved:          moved,
		WizardResponse: WizardResponse{ID: id, Snapshot: c.Snapshot()},
	})
}

// GoToStep handles POST /v1/wizards/{id}/steps/{index}/goto
func (h *WizardHandler) GoToStep(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "step index must be a number")
		return
	}

	c, err := h.wizards.Get(r.Context(), vars["id"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := c.GoToStep(r.Context(), index); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, WizardResponse{ID: vars["id"], Snapshot: c.Snapshot()})
}

// Submit handles POST /v1/wizards/{id}/submit
func (h *WizardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	submissionID, err := h.wizards.Submit(r.Context(), id, req.Applicant)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"submissionId": submissionID,
	})
}

// Discard handles DELETE /v1/wizards/{id}
func (h *WizardHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.wizards.Discard(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
