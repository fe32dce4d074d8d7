package service

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"accreditation/internal/model"
	"accreditation/internal/upload"
	"accreditation/internal/wizard"
)

// UploadProgress is the payload of an upload_progress event
type UploadProgress struct {
	StepID     string `json:"stepId"`
	QuestionID string `json:"questionId"`
	upload.Progress
}

// DocumentService stores supporting documents and attaches them to indicators
type DocumentService struct {
	uploads     *upload.Manager
	wizards     *WizardService
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(uploads *upload.Manager, wizards *WizardService, logger *zap.Logger) *DocumentService {
	return &DocumentService{
		uploads: uploads,
		wizards: wizards,
		logger:  logger,
	}
}

// SetBroadcaster sets the broadcaster (called after hub is created)
func (s *DocumentService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// MaxBytes is the largest document body accepted
func (s *DocumentService) MaxBytes() int64 {
	return s.uploads.Policy().MaxBytes()
}

// Attach uploads f and records it as the document of an indicator. Progress
// ticks are pushed to the session while the upload runs.
func (s *DocumentService) Attach(ctx context.Context, sessionID, stepID, questionID string, f upload.File) (string, error) {
	c, err := s.wizards.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if err := c.CheckDocumentTarget(stepID, questionID); err != nil {
		return "", err
	}

	u, err := s.uploads.Start(ctx, f)
	if err != nil {
		return "", err
	}
	for p := range u.Progress() {
		if s.broadcaster != nil {
			s.broadcaster.BroadcastToSession(sessionID, wizard.EventUploadProgress, UploadProgress{
				StepID:     stepID,
				QuestionID: questionID,
				Progress:   p,
			})
		}
	}
	documentID, err := u.Wait()
	if err != nil {
		return "", err
	}

	if err := c.AttachDocument(ctx, stepID, questionID, documentID); err != nil {
		if rerr := s.uploads.Remove(context.Background(), documentID); rerr != nil {
			s.logger.Warn("failed to remove unattached document", zap.String("document", documentID), zap.Error(rerr))
		}
		return "", fmt.Errorf("failed to attach document: %w", err)
	}
	s.logger.Info("document attached",
		zap.String("session", sessionID),
		zap.String("question", questionID),
		zap.String("document", documentID))
	return documentID, nil
}

// Download opens the document attached to an indicator of a session
func (s *DocumentService) Download(ctx context.Context, sessionID, stepID, questionID string) (model.Document, io.ReadCloser, error) {
	c, err := s.wizards.Get(ctx, sessionID)
	if err != nil {
		return model.Document{}, nil, err
	}
	documentID, err := c.AttachedDocument(stepID, questionID)
	if err != nil {
		return model.Document{}, nil, err
	}
	if documentID == "" {
		return model.Document{}, nil, upload.ErrNotFound
	}
	doc, body, err := s.uploads.Open(ctx, documentID)
	if err != nil {
		return model.Document{}, nil, fmt.Errorf("failed to open document %s: %w", documentID, err)
	}
	return doc, body, nil
}
