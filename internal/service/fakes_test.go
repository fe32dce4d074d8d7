package service

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"accreditation/internal/catalog"
	"accreditation/internal/model"
	"accreditation/internal/upload"
)

func testCatalog(t *testing.T) *model.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	cat, err = catalog.Resolve(context.Background(), cat, catalog.NewStaticSource(cat))
	require.NoError(t, err)
	return cat
}

type fakeWizardCache struct {
	mu    sync.Mutex
	metas map[string]model.SessionMeta
	steps map[string]model.AnswerSet
	pos   map[string]model.Position
}

func newFakeWizardCache() *fakeWizardCache {
	return &fakeWizardCache{
		metas: make(map[string]model.SessionMeta),
		steps: make(map[string]model.AnswerSet),
		pos:   make(map[string]model.Position),
	}
}

func (c *fakeWizardCache) SetMeta(ctx context.Context, meta *model.SessionMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metas[meta.ID] = *meta
	return nil
}

func (c *fakeWizardCache) GetMeta(ctx context.Context, id string) (*model.SessionMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok := c.metas[id]
	if !ok {
		return nil, nil
	}
	return &meta, nil
}

func (c *fakeWizardCache) SaveStep(ctx context.Context, id, stepID string, data model.StepData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.steps[id] == nil {
		c.steps[id] = make(model.AnswerSet)
	}
	c.steps[id][stepID] = data
	return nil
}

func (c *fakeWizardCache) LoadSteps(ctx context.Context, id string) (model.AnswerSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.steps[id].Clone(), nil
}

func (c *fakeWizardCache) SavePosition(ctx context.Context, id string, pos model.Position) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos[id] = pos
	return nil
}

func (c *fakeWizardCache) LoadPosition(ctx context.Context, id string) (*model.Position, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := c.pos[id]
	if !ok {
		return nil, nil
	}
	return &pos, nil
}

func (c *fakeWizardCache) ClearAnswers(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.steps, id)
	delete(c.pos, id)
	return nil
}

func (c *fakeWizardCache) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.steps, id)
	delete(c.pos, id)
	delete(c.metas, id)
	return nil
}

type fakeApplicationRepo struct {
	mu        sync.Mutex
	apps      map[string]*model.Application
	createErr error
	getErr    error
}

func newFakeApplicationRepo() *fakeApplicationRepo {
	return &fakeApplicationRepo{apps: make(map[string]*model.Application)}
}

func (r *fakeApplicationRepo) Create(ctx context.Context, app *model.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.apps[app.ID] = app
	return nil
}

func (r *fakeApplicationRepo) GetByID(ctx context.Context, id string) (*model.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apps[id], nil
}

func (r *fakeApplicationRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, app := range r.apps {
		if app.SessionID == sessionID {
			return app, nil
		}
	}
	return nil, nil
}

func (r *fakeApplicationRepo) GetBySchoolID(ctx context.Context, schoolID string) ([]*model.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Application
	for _, app := range r.apps {
		if app.Payload.SchoolID == schoolID {
			out = append(out, app)
		}
	}
	return out, nil
}

func (r *fakeApplicationRepo) EnsureIndexes(ctx context.Context) error { return nil }

type broadcast struct {
	session string
	msgType string
	payload interface{}
}

type fakeBroadcaster struct {
	mu           sync.Mutex
	messages     []broadcast
	disconnected []string
}

func (b *fakeBroadcaster) BroadcastToSession(sessionID, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, broadcast{sessionID, msgType, payload})
}

func (b *fakeBroadcaster) DisconnectSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = append(b.disconnected, sessionID)
}

func (b *fakeBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, m := range b.messages {
		out = append(out, m.msgType)
	}
	return out
}

type memoryDocumentStore struct {
	mu     sync.Mutex
	docs   map[string]model.Document
	bodies map[string][]byte
	seq    int
}

func (s *memoryDocumentStore) Put(ctx context.Context, doc model.Document, r io.Reader) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := "doc-" + strconv.Itoa(s.seq)
	if s.docs == nil {
		s.docs = make(map[string]model.Document)
		s.bodies = make(map[string][]byte)
	}
	doc.ID = id
	s.docs[id] = doc
	s.bodies[id] = body
	return id, nil
}

func (s *memoryDocumentStore) Open(ctx context.Context, id string) (model.Document, io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return model.Document{}, nil, upload.ErrNotFound
	}
	return doc, io.NopCloser(bytes.NewReader(s.bodies[id])), nil
}

func (s *memoryDocumentStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}
