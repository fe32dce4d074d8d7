package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"accreditation/internal/model"
	"accreditation/internal/repository"
	"accreditation/internal/scoring"
	"accreditation/internal/wizard"
)

// SubmissionService scores and records finished requests
type SubmissionService struct {
	appRepo repository.ApplicationRepo
	catalog *model.Catalog
	engines map[string]*scoring.Engine
	logger  *zap.Logger
	now     func() time.Time
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(appRepo repository.ApplicationRepo, cat *model.Catalog, logger *zap.Logger) *SubmissionService {
	return &SubmissionService{
		appRepo: appRepo,
		catalog: cat,
		engines: scoring.ForCatalog(cat, false),
		logger:  logger,
		now:     time.Now,
	}
}

// Submit recomputes the score of a payload and stores the application.
// Submitting the same session twice returns the first application's id.
func (s *SubmissionService) Submit(ctx context.Context, sessionID string, payload model.SubmissionPayload) (string, error) {
	rt, ok := s.catalog.RequestType(payload.RequestTypeID)
	if !ok {
		return "", &PermanentError{Message: "this request type is no longer accepted", Err: ErrUnknownRequestType}
	}

	score := s.engines[rt.ID].ScoreForAll(payload.Answers)
	app := &model.Application{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		Payload:     payload,
		Score:       score,
		Decision:    scoring.Decide(score.Percentage, rt.Thresholds),
		SubmittedAt: s.now().UTC(),
	}

	if err := s.appRepo.Create(ctx, app); err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("failed to store application: %w", err)
		}
		existing, gerr := s.appRepo.GetBySessionID(ctx, sessionID)
		if gerr != nil {
			return "", fmt.Errorf("failed to load existing application: %w", gerr)
		}
		if existing == nil {
			return "", fmt.Errorf("%w: session %s reported a duplicate", ErrApplicationNotFound, sessionID)
		}
		s.logger.Info("duplicate submission resolved", zap.String("session", sessionID), zap.String("application", existing.ID))
		return existing.ID, nil
	}

	s.logger.Info("application recorded",
		zap.String("application", app.ID),
		zap.String("session", sessionID),
		zap.String("request_type", rt.ID),
		zap.Int("percentage", score.Percentage),
		zap.String("decision", string(app.Decision)))
	return app.ID, nil
}

// ForSession binds the service to one wizard session
func (s *SubmissionService) ForSession(sessionID string) wizard.Submitter {
	return wizard.SubmitterFunc(func(ctx context.Context, payload model.SubmissionPayload) (string, error) {
		return s.Submit(ctx, sessionID, payload)
	})
}

// GetApplication returns a stored application
func (s *SubmissionService) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}
	return app, nil
}

// ListBySchool returns a school's applications, newest first
func (s *SubmissionService) ListBySchool(ctx context.Context, schoolID string) ([]*model.Application, error) {
	apps, err := s.appRepo.GetBySchoolID(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	if apps == nil {
		apps = []*model.Application{}
	}
	return apps, nil
}
