package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"accreditation/internal/model"
	"accreditation/internal/scoring"
	"accreditation/internal/service"
	"accreditation/internal/upload"
	"accreditation/internal/validation"
	"accreditation/internal/wizard"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error  string                   `json:"error"`
	Field  string                   `json:"field,omitempty"`
	Fields []*validation.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps domain errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		validationErr *wizard.ValidationError
		documentErr   *wizard.DocumentRequiredError
		incompleteErr *wizard.IncompleteStepError
		submissionErr *wizard.SubmissionError
		unknownOption *scoring.UnknownOptionError
		policyErr     *upload.PolicyError
	)

	switch {
	case errors.As(err, &validationErr):
		resp := ErrorResponse{Error: validationErr.Error(), Fields: validationErr.Fields}
		if len(validationErr.Fields) > 0 {
			resp.Error = validationErr.Fields[0].Message
			resp.Field = validationErr.Fields[0].Field
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.As(err, &documentErr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: documentErr.Error(),
			Field: model.DocumentKey(documentErr.QuestionID),
		})
	case errors.As(err, &incompleteErr):
		writeError(w, http.StatusUnprocessableEntity, incompleteErr.Error())
	case errors.As(err, &unknownOption):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: unknownOption.Error(),
			Field: unknownOption.QuestionID,
		})
	case errors.As(err, &submissionErr):
		logger.Error("submission failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, submissionErr.Message)
	case errors.As(err, &policyErr):
		writeError(w, http.StatusBadRequest, policyErr.Reason)
	case errors.Is(err, upload.ErrTooLarge):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, wizard.ErrSessionNotFound),
		errors.Is(err, wizard.ErrUnknownStep),
		errors.Is(err, wizard.ErrUnknownQuestion),
		errors.Is(err, service.ErrApplicationNotFound),
		errors.Is(err, upload.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, wizard.ErrNotCriteriaStep),
		errors.Is(err, service.ErrUnknownRequestType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, wizard.ErrSubmissionInFlight),
		errors.Is(err, wizard.ErrAlreadySubmitted):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
