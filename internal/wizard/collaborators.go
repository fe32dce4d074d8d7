package wizard

import (
	"context"

	"go.uber.org/zap"

	"accreditation/internal/model"
)

// Storage is the write-through cache used to resume a session. It is never
// authoritative while the controller is alive.
type Storage interface {
	Save(ctx context.Context, stepID string, data model.StepData) error
	Load(ctx context.Context) (model.AnswerSet, error)
	Clear(ctx context.Context) error
}

// PositionStorage is implemented by storages that also keep the navigation pointer
type PositionStorage interface {
	SavePosition(ctx context.Context, pos model.Position) error
	LoadPosition(ctx context.Context) (model.Position, bool, error)
}

// Submitter hands a finished request to the reviewing side and returns its id
type Submitter interface {
	Submit(ctx context.Context, payload model.SubmissionPayload) (string, error)
}

// SubmitterFunc adapts a function to Submitter
type SubmitterFunc func(ctx context.Context, payload model.SubmissionPayload) (string, error)

func (f SubmitterFunc) Submit(ctx context.Context, payload model.SubmissionPayload) (string, error) {
	return f(ctx, payload)
}

// Event types pushed to the presentation layer
const (
	EventScoreUpdate      = "score_update"
	EventStepChanged      = "step_changed"
	EventSubmissionResult = "submission_result"
	EventUploadProgress   = "upload_progress"
)

// Event is a state change notification
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubmissionResult is the data of a submission_result event
type SubmissionResult struct {
	SubmissionID string `json:"submissionId,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Option configures a Controller
type Option func(*Controller)

func WithStorage(s Storage) Option {
	return func(c *Controller) { c.storage = s }
}

func WithSubmitter(s Submitter) Option {
	return func(c *Controller) { c.submitter = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithSchoolID(id string) Option {
	return func(c *Controller) { c.schoolID = id }
}

// OnEvent registers a hook called after every state change. The hook runs
// outside the controller lock.
func OnEvent(fn func(Event)) Option {
	return func(c *Controller) { c.onEvent = fn }
}
