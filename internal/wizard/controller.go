// Package wizard sequences an applicant through the steps, criteria groups
// and indicators of a request type, gating forward moves on validation.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"accreditation/internal/model"
	"accreditation/internal/scoring"
	"accreditation/internal/validation"
)

// ApplicantStepID tags validation errors raised on the applicant data at submit
const ApplicantStepID = "applicant"

// Controller owns the answer set and navigation state of one wizard session
type Controller struct {
	mu sync.Mutex

	rt        *model.RequestType
	engine    *scoring.Engine
	storage   Storage
	submitter Submitter
	logger    *zap.Logger
	schoolID  string
	onEvent   func(Event)

	currentStep     int
	answers         model.AnswerSet
	stepsWithErrors map[int]bool
	navigators      map[int]*Navigator
	submitting      bool
	submissionID    string

	pending []Event
}

// New creates a controller positioned on the first indicator of the first step
func New(rt *model.RequestType, engine *scoring.Engine, opts ...Option) *Controller {
	c := &Controller{
		rt:              rt,
		engine:          engine,
		logger:          zap.NewNop(),
		answers:         make(model.AnswerSet),
		stepsWithErrors: make(map[int]bool),
		navigators:      make(map[int]*Navigator),
	}
	for _, opt := range opts {
		opt(c)
	}
	for i := range rt.Steps {
		if rt.Steps[i].Kind == model.StepKindCriteria {
			c.navigators[i] = NewNavigator(&rt.Steps[i])
		}
	}
	return c
}

// RequestType returns the layout the controller was built for
func (c *Controller) RequestType() *model.RequestType {
	return c.rt
}

func (c *Controller) unlockAndEmit() {
	events := c.pending
	c.pending = nil
	c.mu.Unlock()
	if c.onEvent == nil {
		return
	}
	for _, e := range events {
		c.onEvent(e)
	}
}

func (c *Controller) queue(typ string, data interface{}) {
	c.pending = append(c.pending, Event{Type: typ, Data: data})
}

// Restore loads persisted answers and position. Missing or unreadable
// storage leaves the fresh state in place.
func (c *Controller) Restore(ctx context.Context) error {
	if c.storage == nil {
		return nil
	}
	answers, err := c.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load wizard answers: %w", err)
	}

	c.mu.Lock()
	defer c.unlockAndEmit()

	for stepID, data := range answers {
		idx := c.rt.StepIndex(stepID)
		if idx < 0 {
			c.logger.Warn("dropping answers for unknown step", zap.String("step", stepID))
			continue
		}
		for k := range data {
			if !c.rt.Steps[idx].Owns(k) {
				c.logger.Warn("dropping unknown field", zap.String("step", stepID), zap.String("field", k))
				delete(data, k)
			}
		}
		c.answers.Merge(stepID, data)
	}

	ps, ok := c.storage.(PositionStorage)
	if !ok {
		return nil
	}
	pos, found, err := ps.LoadPosition(ctx)
	if err != nil {
		return fmt.Errorf("failed to load wizard position: %w", err)
	}
	if !found || pos.StepIndex < 0 || pos.StepIndex >= len(c.rt.Steps) {
		return nil
	}
	c.currentStep = pos.StepIndex
	if nav, ok := c.navigators[pos.StepIndex]; ok && pos.CriteriaID != "" {
		if err := nav.Seek(pos.CriteriaID, pos.IndicatorIndex); err != nil {
			c.logger.Warn("ignoring stale position", zap.Error(err))
			nav.Reset()
		}
	}
	c.queue(EventStepChanged, c.positionLocked())
	return nil
}

// UpdateFormData merges data into the step's answers and writes it through
// to storage. Values are not validated, but every key must be a field of
// the step.
func (c *Controller) UpdateFormData(ctx context.Context, stepID string, data model.StepData) error {
	c.mu.Lock()
	defer c.unlockAndEmit()

	if c.submissionID != "" {
		return ErrAlreadySubmitted
	}
	if c.submitting {
		return ErrSubmissionInFlight
	}
	idx := c.rt.StepIndex(stepID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownStep, stepID)
	}
	if fields := foreignFields(&c.rt.Steps[idx], data); len(fields) > 0 {
		return &ValidationError{StepID: stepID, Fields: fields}
	}

	c.answers.Merge(stepID, data)
	delete(c.stepsWithErrors, idx)
	c.persistStep(ctx, stepID)
	c.queue(EventScoreUpdate, c.scoreLocked())
	return nil
}

// SetAnswer selects an option for a single indicator
func (c *Controller) SetAnswer(ctx context.Context, stepID, questionID, optionID string) error {
	return c.UpdateFormData(ctx, stepID, model.StepData{questionID: optionID})
}

// CheckDocumentTarget reports whether a document can be attached to an indicator
func (c *Controller) CheckDocumentTarget(stepID, questionID string) error {
	idx := c.rt.StepIndex(stepID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownStep, stepID)
	}
	step := &c.rt.Steps[idx]
	if step.Kind != model.StepKindCriteria {
		return fmt.Errorf("%w: %s", ErrNotCriteriaStep, stepID)
	}
	if !stepHasQuestion(step, questionID) {
		return fmt.Errorf("%w: %s in step %s", ErrUnknownQuestion, questionID, stepID)
	}
	return nil
}

// AttachDocument records a stored document as the support for an indicator
func (c *Controller) AttachDocument(ctx context.Context, stepID, questionID, documentID string) error {
	if err := c.CheckDocumentTarget(stepID, questionID); err != nil {
		return err
	}
	return c.UpdateFormData(ctx, stepID, model.StepData{model.DocumentKey(questionID): documentID})
}

// AttachedDocument returns the document recorded for an indicator, or ""
func (c *Controller) AttachedDocument(stepID, questionID string) (string, error) {
	if err := c.CheckDocumentTarget(stepID, questionID); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.TrimSpace(c.answers.Value(stepID, model.DocumentKey(questionID))), nil
}

func foreignFields(step *model.Step, data model.StepData) validation.Errors {
	var out validation.Errors
	for k := range data {
		if !step.Owns(k) {
			out = append(out, &validation.FieldError{Field: k, Message: "is not a field of step " + step.ID})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func stepHasQuestion(step *model.Step, questionID string) bool {
	for _, g := range step.Criteria {
		for _, q := range g.Questions {
			if q.ID == questionID {
				return true
			}
		}
	}
	return false
}

// ValidateStep checks that a step holds data and that the data satisfies
// the step schema. The outcome is recorded in the steps-with-errors set.
func (c *Controller) ValidateStep(stepIndex int) error {
	c.mu.Lock()
	defer c.unlockAndEmit()
	if stepIndex < 0 || stepIndex >= len(c.rt.Steps) {
		return fmt.Errorf("%w: index %d", ErrUnknownStep, stepIndex)
	}
	return c.validateStepLocked(stepIndex)
}

func (c *Controller) validateStepLocked(i int) error {
	step := &c.rt.Steps[i]
	if !c.answers.HasData(step.ID) {
		c.stepsWithErrors[i] = true
		return &IncompleteStepError{StepIndex: i, StepID: step.ID}
	}
	if err := validation.ValidateSchema(step.Schema(), c.answers[step.ID]); err != nil {
		c.stepsWithErrors[i] = true
		var fields validation.Errors
		errors.As(err, &fields)
		return &ValidationError{StepID: step.ID, Fields: fields}
	}
	delete(c.stepsWithErrors, i)
	return nil
}

// GoToNextStep advances one step when the current one validates. It reports
// whether the position changed; the last step never advances.
func (c *Controller) GoToNextStep(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.unlockAndEmit()
	return c.goToNextStepLocked(ctx)
}

func (c *Controller) goToNextStepLocked(ctx context.Context) (bool, error) {
	if err := c.validateStepLocked(c.currentStep); err != nil {
		return false, err
	}
	if c.currentStep >= len(c.rt.Steps)-1 {
		return false, nil
	}
	c.setStepLocked(ctx, c.currentStep+1)
	return true, nil
}

// GoToPreviousStep retreats one step without validation, floored at the first
func (c *Controller) GoToPreviousStep(ctx context.Context) bool {
	c.mu.Lock()
	defer c.unlockAndEmit()
	return c.goToPreviousStepLocked(ctx)
}

func (c *Controller) goToPreviousStepLocked(ctx context.Context) bool {
	if c.currentStep == 0 {
		return false
	}
	c.setStepLocked(ctx, c.currentStep-1)
	return true
}

// GoToStep jumps to a step. Moving back is always allowed; moving forward
// requires every step in between to validate.
func (c *Controller) GoToStep(ctx context.Context, target int) error {
	c.mu.Lock()
	defer c.unlockAndEmit()

	if target < 0 || target >= len(c.rt.Steps) {
		return fmt.Errorf("%w: index %d", ErrUnknownStep, target)
	}
	for i := c.currentStep; i < target; i++ {
		if err := c.validateStepLocked(i); err != nil {
			return err
		}
	}
	if target != c.currentStep {
		c.setStepLocked(ctx, target)
	}
	return nil
}

func (c *Controller) setStepLocked(ctx context.Context, i int) {
	from := c.currentStep
	c.currentStep = i
	c.logger.Debug("step changed",
		zap.String("from", c.rt.Steps[from].ID),
		zap.String("to", c.rt.Steps[i].ID))
	c.persistPosition(ctx)
	c.queue(EventStepChanged, c.positionLocked())
}

// HandleNext validates the active field and moves forward. On criteria steps
// that is the current indicator (plus its document when one is required);
// on form steps it is the whole schema. Completing a step advances to the
// next one.
func (c *Controller) HandleNext(ctx context.Context) error {
	c.mu.Lock()
	defer c.unlockAndEmit()

	if c.submissionID != "" {
		return ErrAlreadySubmitted
	}
	step := &c.rt.Steps[c.currentStep]
	nav, ok := c.navigators[c.currentStep]
	if !ok {
		_, err := c.goToNextStepLocked(ctx)
		return err
	}

	q := nav.Current()
	if q == nil {
		_, err := c.goToNextStepLocked(ctx)
		return err
	}
	rule := model.FieldRule{Kind: model.RuleEnum, Options: q.OptionIDs()}
	if fe := validation.Validate(q.ID, rule, c.answers.Value(step.ID, q.ID)); fe != nil {
		return &ValidationError{StepID: step.ID, Fields: validation.Errors{fe}}
	}
	if q.DocumentRequired && strings.TrimSpace(c.answers.Value(step.ID, model.DocumentKey(q.ID))) == "" {
		return &DocumentRequiredError{StepID: step.ID, QuestionID: q.ID}
	}

	if nav.Next() == StepComplete {
		_, err := c.goToNextStepLocked(ctx)
		return err
	}
	c.persistPosition(ctx)
	c.queue(EventStepChanged, c.positionLocked())
	return nil
}

// HandlePrevious moves back one indicator, falling through to the previous
// group and then to the previous step. It never validates.
func (c *Controller) HandlePrevious(ctx context.Context) {
	c.mu.Lock()
	defer c.unlockAndEmit()

	nav, ok := c.navigators[c.currentStep]
	if !ok || nav.Previous() == StepExited {
		c.goToPreviousStepLocked(ctx)
		return
	}
	c.persistPosition(ctx)
	c.queue(EventStepChanged, c.positionLocked())
}

// HandleSubmit validates the applicant and every step, then hands the
// payload to the Submitter. The lock is released for the duration of the
// call; a second submit while one is in flight is refused.
func (c *Controller) HandleSubmit(ctx context.Context, applicant model.Applicant) (string, error) {
	c.mu.Lock()
	if c.submitting {
		c.unlockAndEmit()
		return "", ErrSubmissionInFlight
	}
	if c.submissionID != "" {
		c.unlockAndEmit()
		return "", ErrAlreadySubmitted
	}
	if c.submitter == nil {
		c.unlockAndEmit()
		return "", &SubmissionError{Message: genericSubmissionMessage, Err: errors.New("no submitter configured")}
	}
	payload, err := c.preparePayloadLocked(applicant)
	if err != nil {
		c.unlockAndEmit()
		return "", err
	}
	c.submitting = true
	c.unlockAndEmit()

	id, submitErr := c.submitter.Submit(ctx, payload)

	c.mu.Lock()
	defer c.unlockAndEmit()
	c.submitting = false

	if submitErr != nil {
		serr := newSubmissionError(submitErr)
		c.logger.Error("submission failed", zap.Error(submitErr))
		c.queue(EventSubmissionResult, SubmissionResult{Error: serr.Message})
		return "", serr
	}

	c.submissionID = id
	c.logger.Info("submission accepted", zap.String("submission_id", id))
	if c.storage != nil {
		if err := c.storage.Clear(ctx); err != nil {
			c.logger.Warn("failed to clear wizard storage", zap.Error(err))
		}
	}
	c.queue(EventSubmissionResult, SubmissionResult{SubmissionID: id})
	return id, nil
}

func (c *Controller) preparePayloadLocked(applicant model.Applicant) (model.SubmissionPayload, error) {
	if err := validation.ValidateSchema(validation.ApplicantSchema(), applicant.Fields()); err != nil {
		var fields validation.Errors
		errors.As(err, &fields)
		return model.SubmissionPayload{}, &ValidationError{StepID: ApplicantStepID, Fields: fields}
	}

	var first error
	for i := range c.rt.Steps {
		if err := c.validateStepLocked(i); err != nil && first == nil {
			first = err
		}
	}
	if first != nil {
		return model.SubmissionPayload{}, first
	}

	if err := c.engine.Check(c.answers.Indicators(c.rt)); err != nil {
		return model.SubmissionPayload{}, err
	}

	payload := model.SubmissionPayload{
		RequestTypeID: c.rt.ID,
		Applicant:     applicant,
		SchoolID:      c.schoolID,
		Answers:       make(model.Answers),
	}
	for _, step := range c.rt.Steps {
		data := c.answers[step.ID]
		switch step.Kind {
		case model.StepKindForm:
			for _, f := range step.Fields {
				v := strings.TrimSpace(data[f.ID])
				if f.ID == "combination" {
					payload.SelectedCombination = v
				}
				if f.Rule.Kind == model.RuleEnum && v != "" {
					payload.Options = append(payload.Options, v)
				}
			}
		case model.StepKindCriteria:
			for _, g := range step.Criteria {
				for _, q := range g.Questions {
					if v := strings.TrimSpace(data[q.ID]); v != "" {
						payload.Options = append(payload.Options, v)
						payload.Answers[q.ID] = v
					}
					if doc := strings.TrimSpace(data[model.DocumentKey(q.ID)]); doc != "" {
						payload.Documents = append(payload.Documents, doc)
					}
				}
			}
		}
	}
	return payload, nil
}

// Snapshot is a read-only view of the controller for the presentation layer
type Snapshot struct {
	RequestTypeID   string             `json:"requestType"`
	StepIndex       int                `json:"stepIndex"`
	StepID          string             `json:"stepId"`
	StepKind        model.StepKind     `json:"stepKind"`
	StepCount       int                `json:"stepCount"`
	Position        model.Position     `json:"position"`
	Indicator       *model.Question    `json:"indicator,omitempty"`
	Answers         model.AnswerSet    `json:"answers"`
	StepsWithErrors []int              `json:"stepsWithErrors"`
	IsSubmitting    bool               `json:"isSubmitting"`
	SubmissionID    string             `json:"submissionId,omitempty"`
	Score           model.ScoreSummary `json:"score"`
}

// Snapshot copies the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	step := &c.rt.Steps[c.currentStep]
	snap := Snapshot{
		RequestTypeID:   c.rt.ID,
		StepIndex:       c.currentStep,
		StepID:          step.ID,
		StepKind:        step.Kind,
		StepCount:       len(c.rt.Steps),
		Position:        c.positionLocked(),
		Answers:         c.answers.Clone(),
		StepsWithErrors: make([]int, 0, len(c.stepsWithErrors)),
		IsSubmitting:    c.submitting,
		SubmissionID:    c.submissionID,
		Score:           c.scoreLocked(),
	}
	if nav, ok := c.navigators[c.currentStep]; ok {
		if q := nav.Current(); q != nil {
			cp := *q
			snap.Indicator = &cp
		}
	}
	for i := range c.stepsWithErrors {
		snap.StepsWithErrors = append(snap.StepsWithErrors, i)
	}
	sort.Ints(snap.StepsWithErrors)
	return snap
}

// Score computes the live score summary
func (c *Controller) Score() model.ScoreSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scoreLocked()
}

func (c *Controller) scoreLocked() model.ScoreSummary {
	return c.engine.Summary(c.rt, c.answers.Indicators(c.rt))
}

func (c *Controller) positionLocked() model.Position {
	pos := model.Position{StepIndex: c.currentStep}
	if nav, ok := c.navigators[c.currentStep]; ok {
		_, pos.IndicatorIndex = nav.Position()
		pos.CriteriaID = nav.CriteriaID()
	}
	return pos
}

func (c *Controller) persistStep(ctx context.Context, stepID string) {
	if c.storage == nil {
		return
	}
	data := make(model.StepData, len(c.answers[stepID]))
	for k, v := range c.answers[stepID] {
		data[k] = v
	}
	if err := c.storage.Save(ctx, stepID, data); err != nil {
		c.logger.Warn("failed to persist step", zap.String("step", stepID), zap.Error(err))
	}
}

func (c *Controller) persistPosition(ctx context.Context) {
	ps, ok := c.storage.(PositionStorage)
	if !ok {
		return
	}
	if err := ps.SavePosition(ctx, c.positionLocked()); err != nil {
		c.logger.Warn("failed to persist position", zap.Error(err))
	}
}
