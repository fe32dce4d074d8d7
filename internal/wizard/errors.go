package wizard

import (
	"errors"
	"fmt"

	"accreditation/internal/validation"
)

var (
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrAlreadySubmitted   = errors.New("this request has already been submitted")
	ErrUnknownStep        = errors.New("unknown step")
	ErrUnknownQuestion    = errors.New("unknown indicator")
	ErrNotCriteriaStep    = errors.New("step has no indicators")
	ErrSessionNotFound    = errors.New("wizard session not found")
)

// ValidationError blocks forward navigation on one or more fields
type ValidationError struct {
	StepID string
	Fields validation.Errors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %s: %s", e.StepID, e.Fields.Error())
}

// DocumentRequiredError is raised when an indicator needs a supporting
// document that has not been attached
type DocumentRequiredError struct {
	StepID     string
	QuestionID string
}

func (e *DocumentRequiredError) Error() string {
	return fmt.Sprintf("a supporting document is required for %s", e.QuestionID)
}

// IncompleteStepError means a step holds no data at all
type IncompleteStepError struct {
	StepIndex int
	StepID    string
}

func (e *IncompleteStepError) Error() string {
	return fmt.Sprintf("step %s is incomplete", e.StepID)
}

// SubmissionError wraps a Submitter failure. Message is safe to show to the user.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// PublicMessager is implemented by submitter errors that carry a message
// meant for the applicant
type PublicMessager interface {
	PublicMessage() string
}

const genericSubmissionMessage = "submission failed, please try again"

func newSubmissionError(err error) *SubmissionError {
	msg := genericSubmissionMessage
	var pm PublicMessager
	if errors.As(err, &pm) && pm.PublicMessage() != "" {
		msg = pm.PublicMessage()
	}
	return &SubmissionError{Message: msg, Err: err}
}
