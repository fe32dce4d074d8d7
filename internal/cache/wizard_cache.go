package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"accreditation/internal/model"
	"accreditation/internal/wizard"
)

// WizardCache handles Redis operations for in-progress wizard sessions
type WizardCache interface {
	// Session meta
	SetMeta(ctx context.Context, meta *model.SessionMeta) error
	GetMeta(ctx context.Context, sessionID string) (*model.SessionMeta, error)

	// Step answers (hash of stepID -> JSON)
	SaveStep(ctx context.Context, sessionID, stepID string, data model.StepData) error
	LoadSteps(ctx context.Context, sessionID string) (model.AnswerSet, error)

	// Navigation pointer
	SavePosition(ctx context.Context, sessionID string, pos model.Position) error
	LoadPosition(ctx context.Context, sessionID string) (*model.Position, error)

	ClearAnswers(ctx context.Context, sessionID string) error
	Delete(ctx context.Context, sessionID string) error
}

type wizardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWizardCache creates a new wizard cache. Every write refreshes the
// session's TTL.
func NewWizardCache(client *redis.Client, ttl time.Duration) WizardCache {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &wizardCache{
		client: client,
		ttl:    ttl,
	}
}

// Key helpers
func (c *wizardCache) stepsKey(sessionID string) string {
	return fmt.Sprintf("wizard:%s:steps", sessionID)
}

func (c *wizardCache) metaKey(sessionID string) string {
	return fmt.Sprintf("wizard:%s:meta", sessionID)
}

func (c *wizardCache) positionKey(sessionID string) string {
	return fmt.Sprintf("wizard:%s:position", sessionID)
}

func (c *wizardCache) touch(ctx context.Context, pipe redis.Pipeliner, sessionID string) {
	pipe.Expire(ctx, c.stepsKey(sessionID), c.ttl)
	pipe.Expire(ctx, c.metaKey(sessionID), c.ttl)
	pipe.Expire(ctx, c.positionKey(sessionID), c.ttl)
}

// Meta operations
func (c *wizardCache) SetMeta(ctx context.Context, meta *model.SessionMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.metaKey(meta.ID), data, c.ttl)
		c.touch(ctx, pipe, meta.ID)
		return nil
	})
	return err
}

func (c *wizardCache) GetMeta(ctx context.Context, sessionID string) (*model.SessionMeta, error) {
	data, err := c.client.Get(ctx, c.metaKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta model.SessionMeta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Step operations
func (c *wizardCache) SaveStep(ctx context.Context, sessionID, stepID string, data model.StepData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, c.stepsKey(sessionID), stepID, payload)
		c.touch(ctx, pipe, sessionID)
		return nil
	})
	return err
}

func (c *wizardCache) LoadSteps(ctx context.Context, sessionID string) (model.AnswerSet, error) {
	data, err := c.client.HGetAll(ctx, c.stepsKey(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	answers := make(model.AnswerSet, len(data))
	for stepID, jsonStr := range data {
		var step model.StepData
		if err := json.Unmarshal([]byte(jsonStr), &step); err != nil {
			continue
		}
		answers[stepID] = step
	}
	return answers, nil
}

// Position operations
func (c *wizardCache) SavePosition(ctx context.Context, sessionID string, pos model.Position) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.positionKey(sessionID), data, c.ttl)
		c.touch(ctx, pipe, sessionID)
		return nil
	})
	return err
}

func (c *wizardCache) LoadPosition(ctx context.Context, sessionID string) (*model.Position, error) {
	data, err := c.client.Get(ctx, c.positionKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var pos model.Position
	if err := json.Unmarshal([]byte(data), &pos); err != nil {
		return nil, err
	}
	return &pos, nil
}

// ClearAnswers drops answers and position but keeps the meta
func (c *wizardCache) ClearAnswers(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, c.stepsKey(sessionID), c.positionKey(sessionID)).Err()
}

func (c *wizardCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, c.stepsKey(sessionID), c.positionKey(sessionID), c.metaKey(sessionID)).Err()
}

// SessionStorage binds a WizardCache to one session so a wizard.Controller
// can write through to it
type SessionStorage struct {
	cache     WizardCache
	sessionID string
}

var (
	_ wizard.Storage         = (*SessionStorage)(nil)
	_ wizard.PositionStorage = (*SessionStorage)(nil)
)

func NewSessionStorage(cache WizardCache, sessionID string) *SessionStorage {
	return &SessionStorage{cache: cache, sessionID: sessionID}
}

func (s *SessionStorage) Save(ctx context.Context, stepID string, data model.StepData) error {
	return s.cache.SaveStep(ctx, s.sessionID, stepID, data)
}

func (s *SessionStorage) Load(ctx context.Context) (model.AnswerSet, error) {
	return s.cache.LoadSteps(ctx, s.sessionID)
}

func (s *SessionStorage) Clear(ctx context.Context) error {
	return s.cache.ClearAnswers(ctx, s.sessionID)
}

func (s *SessionStorage) SavePosition(ctx context.Context, pos model.Position) error {
	return s.cache.SavePosition(ctx, s.sessionID, pos)
}

func (s *SessionStorage) LoadPosition(ctx context.Context) (model.Position, bool, error) {
	pos, err := s.cache.LoadPosition(ctx, s.sessionID)
	if err != nil || pos == nil {
		return model.Position{}, false, err
	}
	return *pos, true, nil
}
