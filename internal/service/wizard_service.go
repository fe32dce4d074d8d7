package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"accreditation/internal/cache"
	"accreditation/internal/model"
	"accreditation/internal/scoring"
	"accreditation/internal/wizard"
)

// SubmitterFactory returns the Submitter used by one session
type SubmitterFactory func(sessionID string) wizard.Submitter

// WizardService keeps one controller per active session and restores
// sessions from Redis after a restart
type WizardService struct {
	catalog     *model.Catalog
	engines     map[string]*scoring.Engine
	wizardCache cache.WizardCache
	submitters  SubmitterFactory
	broadcaster Broadcaster
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*wizard.Controller
}

// NewWizardService creates a new wizard service
func NewWizardService(cat *model.Catalog, wizardCache cache.WizardCache, submitters SubmitterFactory, strict bool, logger *zap.Logger) *WizardService {
	return &WizardService{
		catalog:     cat,
		engines:     scoring.ForCatalog(cat, strict),
		wizardCache: wizardCache,
		submitters:  submitters,
		logger:      logger,
		now:         time.Now,
		sessions:    make(map[string]*wizard.Controller),
	}
}

// SetBroadcaster sets the broadcaster (called after hub is created)
func (s *WizardService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// RequestTypes lists every request type an applicant can start
func (s *WizardService) RequestTypes() []model.RequestType {
	return s.catalog.RequestTypes
}

// Start opens a new session for a request type
func (s *WizardService) Start(ctx context.Context, requestTypeID, schoolID string) (string, *wizard.Controller, error) {
	if _, ok := s.catalog.RequestType(requestTypeID); !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownRequestType, requestTypeID)
	}

	now := s.now().UTC()
	meta := &model.SessionMeta{
		ID:            uuid.New().String(),
		RequestTypeID: requestTypeID,
		SchoolID:      schoolID,
		Status:        model.SessionActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.wizardCache.SetMeta(ctx, meta); err != nil {
		s.logger.Warn("failed to persist session meta", zap.String("session", meta.ID), zap.Error(err))
	}

	c := s.newController(meta)
	s.mu.Lock()
	s.sessions[meta.ID] = c
	s.mu.Unlock()

	s.logger.Info("wizard started",
		zap.String("session", meta.ID),
		zap.String("request_type", requestTypeID),
		zap.String("school", schoolID))
	return meta.ID, c, nil
}

// Get returns the controller of a session, restoring it from Redis when
// this process has not seen it yet. The restore runs without holding the
// registry lock; if another caller registered the session meanwhile, its
// controller wins.
func (s *WizardService) Get(ctx context.Context, id string) (*wizard.Controller, error) {
	s.mu.Lock()
	c, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		return c, nil
	}

	meta, err := s.wizardCache.GetMeta(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session meta: %w", err)
	}
	if meta == nil {
		return nil, wizard.ErrSessionNotFound
	}
	if meta.Status == model.SessionSubmitted {
		return nil, wizard.ErrAlreadySubmitted
	}
	if _, ok := s.catalog.RequestType(meta.RequestTypeID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRequestType, meta.RequestTypeID)
	}

	c = s.newController(meta)
	if err := c.Restore(ctx); err != nil {
		s.logger.Warn("failed to restore session, starting fresh", zap.String("session", id), zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		return existing, nil
	}
	s.sessions[id] = c
	s.logger.Debug("wizard restored", zap.String("session", id))
	return c, nil
}

// Exists reports whether a session is known to this process or to Redis
func (s *WizardService) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		return true, nil
	}
	meta, err := s.wizardCache.GetMeta(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to get session meta: %w", err)
	}
	return meta != nil, nil
}

// Submit hands the session to its submitter and marks it submitted on success
func (s *WizardService) Submit(ctx context.Context, id string, applicant model.Applicant) (string, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	submissionID, err := c.HandleSubmit(ctx, applicant)
	if err != nil {
		return "", err
	}

	meta, err := s.wizardCache.GetMeta(ctx, id)
	if err != nil || meta == nil {
		s.logger.Warn("failed to load session meta after submit", zap.String("session", id), zap.Error(err))
		return submissionID, nil
	}
	meta.Status = model.SessionSubmitted
	meta.SubmissionID = submissionID
	meta.UpdatedAt = s.now().UTC()
	if err := s.wizardCache.SetMeta(ctx, meta); err != nil {
		s.logger.Warn("failed to mark session submitted", zap.String("session", id), zap.Error(err))
	}
	return submissionID, nil
}

// Discard forgets a session and drops its stored state
func (s *WizardService) Discard(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	if err := s.wizardCache.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if s.broadcaster != nil {
		s.broadcaster.DisconnectSession(id)
	}
	return nil
}

func (s *WizardService) newController(meta *model.SessionMeta) *wizard.Controller {
	rt, _ := s.catalog.RequestType(meta.RequestTypeID)
	opts := []wizard.Option{
		wizard.WithStorage(cache.NewSessionStorage(s.wizardCache, meta.ID)),
		wizard.WithLogger(s.logger.With(zap.String("session", meta.ID))),
		wizard.WithSchoolID(meta.SchoolID),
		wizard.OnEvent(func(e wizard.Event) {
			if s.broadcaster != nil {
				s.broadcaster.BroadcastToSession(meta.ID, e.Type, e.Data)
			}
		}),
	}
	if s.submitters != nil {
		opts = append(opts, wizard.WithSubmitter(s.submitters(meta.ID)))
	}
	return wizard.New(rt, s.engines[rt.ID], opts...)
}
