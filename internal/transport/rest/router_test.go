package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"accreditation/internal/catalog"
	"accreditation/internal/model"
	"accreditation/internal/service"
	"accreditation/internal/transport/rest/handler"
	"accreditation/internal/transport/ws"
	"accreditation/internal/upload"
	"accreditation/internal/wizard"
)

type memoryWizardCache struct {
	mu    sync.Mutex
	metas map[string]model.SessionMeta
	steps map[string]model.AnswerSet
	pos   map[string]model.Position
}

func newMemoryWizardCache() *memoryWizardCache {
	return &memoryWizardCache{
		metas: make(map[string]model.SessionMeta),
		steps: make(map[string]model.AnswerSet),
		pos:   make(map[string]model.Position),
	}
}

func (c *memoryWizardCache) SetMeta(ctx context.Context, meta *model.SessionMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metas[meta.ID] = *meta
	return nil
}

func (c *memoryWizardCache) GetMeta(ctx context.Context, id string) (*model.SessionMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok := c.metas[id]
	if !ok {
		return nil, nil
	}
	return &meta, nil
}

func (c *memoryWizardCache) SaveStep(ctx context.Context, id, stepID string, data model.StepData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.steps[id] == nil {
		c.steps[id] = make(model.AnswerSet)
	}
	c.steps[id][stepID] = data
	return nil
}

func (c *memoryWizardCache) LoadSteps(ctx context.Context, id string) (model.AnswerSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.steps[id].Clone(), nil
}

func (c *memoryWizardCache) SavePosition(ctx context.Context, id string, pos model.Position) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos[id] = pos
	return nil
}

func (c *memoryWizardCache) LoadPosition(ctx context.Context, id string) (*model.Position, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := c.pos[id]
	if !ok {
		return nil, nil
	}
	return &pos, nil
}

func (c *memoryWizardCache) ClearAnswers(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.steps, id)
	delete(c.pos, id)
	return nil
}

func (c *memoryWizardCache) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.steps, id)
	delete(c.pos, id)
	delete(c.metas, id)
	return nil
}

type memoryStore struct {
	mu    sync.Mutex
	n     int
	docs  map[string][]byte
	names map[string]string
	types map[string]string
}

func (s *memoryStore) Put(ctx context.Context, doc model.Document, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	id := fmt.Sprintf("doc-%d", s.n)
	if s.docs == nil {
		s.docs = make(map[string][]byte)
		s.names = make(map[string]string)
		s.types = make(map[string]string)
	}
	s.docs[id] = data
	s.names[id] = doc.Name
	s.types[id] = doc.ContentType
	return id, nil
}

func (s *memoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

func (s *memoryStore) Open(ctx context.Context, id string) (model.Document, io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[id]
	if !ok {
		return model.Document{}, nil, upload.ErrNotFound
	}
	doc := model.Document{ID: id, Name: s.names[id], ContentType: s.types[id], Size: int64(len(data))}
	return doc, io.NopCloser(bytes.NewReader(data)), nil
}

type memoryApplicationRepo struct {
	mu   sync.Mutex
	apps []*model.Application
}

func (r *memoryApplicationRepo) Create(ctx context.Context, app *model.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps = append(r.apps, app)
	return nil
}

func (r *memoryApplicationRepo) GetByID(ctx context.Context, id string) (*model.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, app := range r.apps {
		if app.ID == id {
			return app, nil
		}
	}
	return nil, nil
}

func (r *memoryApplicationRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, app := range r.apps {
		if app.SessionID == sessionID {
			return app, nil
		}
	}
	return nil, nil
}

func (r *memoryApplicationRepo) GetBySchoolID(ctx context.Context, schoolID string) ([]*model.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Application
	for i := len(r.apps) - 1; i >= 0; i-- {
		if r.apps[i].Payload.SchoolID == schoolID {
			out = append(out, r.apps[i])
		}
	}
	return out, nil
}

func (r *memoryApplicationRepo) EnsureIndexes(ctx context.Context) error { return nil }

type testServer struct {
	handler http.Handler
	wizards *service.WizardService
	store   *memoryStore
}

func newTestServer(t *testing.T, cors CORSConfig) *testServer {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	src := catalog.NewStaticSource(cat)
	cat, err = catalog.Resolve(context.Background(), cat, src)
	require.NoError(t, err)

	submissions := service.NewSubmissionService(&memoryApplicationRepo{}, cat, zap.NewNop())
	submitters := func(sessionID string) wizard.Submitter {
		return submissions.ForSession(sessionID)
	}
	wizards := service.NewWizardService(cat, newMemoryWizardCache(), submitters, true, zap.NewNop())
	store := &memoryStore{}
	documents := service.NewDocumentService(upload.NewManager(store, upload.DefaultPolicy(), zap.NewNop()), wizards, zap.NewNop())

	hub := ws.NewHub(zap.NewNop())
	t.Cleanup(hub.Close)
	wizards.SetBroadcaster(hub)
	documents.SetBroadcaster(hub)

	return &testServer{
		handler: NewRouter(&Container{
			WizardService:     wizards,
			DocumentService:   documents,
			SubmissionService: submissions,
			Criteria:          src,
			WSHub:             hub,
			CORS:              cors,
		}),
		wizards: wizards,
		store:   store,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) start(t *testing.T, requestType string) handler.WizardResponse {
	t.Helper()
	rec := s.do(t, "POST", "/v1/wizards", handler.StartRequest{RequestType: requestType, SchoolID: "school-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp handler.WizardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func uploadRequest(t *testing.T, path, filename, contentType string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var requestData = handler.UpdateStepRequest{Data: model.StepData{
	"combination": "software_development",
	"schoolName":  "TSS Nyanza",
	"district":    "Nyanza",
}}

func TestHealth(t *testing.T) {
	s := newTestServer(t, CORSConfig{})
	rec := s.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, CORSConfig{AllowedOrigins: []string{"https://portal.example.rw"}})

	req := httptest.NewRequest("OPTIONS", "/v1/wizards", nil)
	req.Header.Set("Origin", "https://portal.example.rw")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://portal.example.rw", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("OPTIONS", "/v1/wizards", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	open := newTestServer(t, CORSConfig{})
	rec = open.do(t, "OPTIONS", "/v1/request-types", nil)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStartWizard(t *testing.T) {
	s := newTestServer(t, CORSConfig{})

	resp := s.start(t, "new_school")
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "request", resp.StepID)
	assert.Equal(t, model.StepKindForm, resp.StepKind)
	assert.Equal(t, 4, resp.StepCount)

	rec := s.do(t, "POST", "/v1/wizards", handler.StartRequest{RequestType: "franchise"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, "POST", "/v1/wizards", handler.StartRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "requestType", decodeError(t, rec).Field)

	rec = s.do(t, "GET", "/v1/wizards/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNavigation(t *testing.T) {
	s := newTestServer(t, CORSConfig{})
	id := s.start(t, "new_school").ID
	base := "/v1/wizards/" + id

	rec := s.do(t, "POST", base+"/next", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "empty step")

	rec = s.do(t, "PUT", base+"/steps/request", requestData)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, "POST", base+"/steps/next", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var nav handler.NavigationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &nav))
	assert.True(t, nav.Moved)
	assert.Equal(t, "infrastructure", nav.StepID)
	require.NotNil(t, nav.Indicator)
	assert.Equal(t, "landOwnership", nav.Indicator.ID)

	rec = s.do(t, "POST", base+"/next", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "landOwnership", decodeError(t, rec).Field)

	rec = s.do(t, "PUT", base+"/steps/infrastructure", handler.UpdateStepRequest{Data: model.StepData{"landOwnership": "owned_title_deed"}})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, "POST", base+"/next", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, model.DocumentKey("landOwnership"), decodeError(t, rec).Field)

	rec = s.do(t, "POST", base+"/previous", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap handler.WizardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 0, snap.StepIndex)

	rec = s.do(t, "POST", base+"/steps/9/goto", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, "POST", base+"/steps/2/goto", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "infrastructure does not validate")

	rec = s.do(t, "POST", base+"/steps/previous", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &nav))
	assert.False(t, nav.Moved)
}

func TestScore(t *testing.T) {
	s := newTestServer(t, CORSConfig{})
	id := s.start(t, "new_school").ID

	rec := s.do(t, "PUT", "/v1/wizards/"+id+"/steps/infrastructure", handler.UpdateStepRequest{Data: model.StepData{
		"landOwnership": "owned_title_deed",
	}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, "GET", "/v1/wizards/"+id+"/score", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary model.ScoreSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Overall.CompletedCount)
	assert.Equal(t, 2.0, summary.Overall.TotalScore)

	rec = s.do(t, "PUT", "/v1/wizards/"+id+"/steps/request", handler.UpdateStepRequest{Data: model.StepData{
		"landOwnership": "bogus",
	}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "landOwnership", decodeError(t, rec).Field)

	rec = s.do(t, "GET", "/v1/wizards/"+id+"/score", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2.0, summary.Overall.TotalScore)

	rec = s.do(t, "PUT", "/v1/wizards/"+id+"/steps/nowhere", handler.UpdateStepRequest{Data: model.StepData{"a": "b"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadDocument(t *testing.T) {
	s := newTestServer(t, CORSConfig{})
	id := s.start(t, "new_school").ID
	path := "/v1/wizards/" + id + "/documents/infrastructure/landOwnership"

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, uploadRequest(t, path, "deed.pdf", "application/pdf", []byte("%PDF-1.7 title deed")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	docID := body["documentId"]
	assert.Equal(t, "%PDF-1.7 title deed", string(s.store.docs[docID]))

	rec = s.do(t, "GET", "/v1/wizards/"+id, nil)
	var snap handler.WizardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, docID, snap.Answers.Value("infrastructure", model.DocumentKey("landOwnership")))

	rec = s.do(t, "GET", path, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "%PDF-1.7 title deed", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=deed.pdf`, rec.Header().Get("Content-Disposition"))

	rec = s.do(t, "GET", "/v1/wizards/"+id+"/documents/infrastructure/fencing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "nothing attached yet")

	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, uploadRequest(t, path, "deed.exe", "application/octet-stream", []byte("MZ")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, uploadRequest(t, "/v1/wizards/"+id+"/documents/request/combination", "a.pdf", "application/pdf", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "form steps take no documents")

	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, uploadRequest(t, "/v1/wizards/"+id+"/documents/infrastructure/nope", "a.pdf", "application/pdf", []byte("x")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmit(t *testing.T) {
	s := newTestServer(t, CORSConfig{})
	id := s.start(t, "new_combination").ID
	base := "/v1/wizards/" + id

	applicant := model.Applicant{
		NationalID:    "1199880012345678",
		ApplicantName: "Aline Uwase",
		Role:          "Head teacher",
		Email:         "aline@example.rw",
		Telephone:     "+250788123456",
	}

	bad := applicant
	bad.NationalID = "123"
	rec := s.do(t, "POST", base+"/submit", handler.SubmitRequest{Applicant: bad})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "nationalId", decodeError(t, rec).Field)

	c, err := s.wizards.Get(context.Background(), id)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, c.UpdateFormData(ctx, "request", model.StepData{
		"combination":         "construction",
		"accreditationNumber": "ACC-000123",
	}))
	for _, step := range c.RequestType().Steps {
		for _, g := range step.Criteria {
			for _, q := range g.Questions {
				require.NoError(t, c.SetAnswer(ctx, step.ID, q.ID, q.Options[0].ID))
				if q.DocumentRequired {
					require.NoError(t, c.AttachDocument(ctx, step.ID, q.ID, "doc-"+q.ID))
				}
			}
		}
	}

	rec = s.do(t, "POST", base+"/submit", handler.SubmitRequest{Applicant: applicant})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var submitted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	appID := submitted["submissionId"]
	require.NotEmpty(t, appID)

	rec = s.do(t, "POST", base+"/submit", handler.SubmitRequest{Applicant: applicant})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, "GET", "/v1/applications/"+appID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var app model.Application
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &app))
	assert.Equal(t, id, app.SessionID)
	assert.Equal(t, "new_combination", app.Payload.RequestTypeID)
	assert.Equal(t, "school-1", app.Payload.SchoolID)

	rec = s.do(t, "GET", "/v1/schools/school-1/applications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var apps []model.Application
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apps))
	require.Len(t, apps, 1)
	assert.Equal(t, appID, apps[0].ID)

	rec = s.do(t, "GET", "/v1/schools/school-0/applications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, "GET", "/v1/applications/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiscard(t *testing.T) {
	s := newTestServer(t, CORSConfig{})
	id := s.start(t, "new_school").ID

	rec := s.do(t, "DELETE", "/v1/wizards/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, "GET", "/v1/wizards/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogRoutes(t *testing.T) {
	s := newTestServer(t, CORSConfig{})

	rec := s.do(t, "GET", "/v1/request-types", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var types []model.RequestType
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &types))
	assert.Len(t, types, 2)

	rec = s.do(t, "GET", "/v1/areas", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var areas []model.Area
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &areas))
	require.Len(t, areas, 3)
	assert.Equal(t, "infrastructure", areas[0].ID)

	rec = s.do(t, "GET", "/v1/areas/infrastructure/criteria", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"workshops"`))

	rec = s.do(t, "GET", "/v1/criteria/land/indicators", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var indicators []model.Indicator
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &indicators))
	assert.Len(t, indicators, 3)

	rec = s.do(t, "GET", "/v1/areas/nowhere/criteria", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, "GET", "/v1/criteria/nowhere/indicators", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
