package templates

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/fitlog/internal/auth"
)

type repoMock struct {
	templates map[int]*Template
	nextID    int
	moveCalls []string
}

func newTemplatesRepoMock(existing ...*Template) *repoMock {
	mock := &repoMock{
		templates: make(map[int]*Template),
		nextID:    1,
	}
	for _, template := range existing {
		mock.templates[template.ID] = template
		if template.ID >= mock.nextID {
			mock.nextID = template.ID + 1
		}
	}
	return mock
}

func (m *repoMock) Get(_ context.Context, _ int, templateID int) (*Template, error) {
	template, ok := m.templates[templateID]
	if !ok {
		return nil, ErrNotFound
	}
	return template, nil
}

func (m *repoMock) List(_ context.Context, _ int) ([]Template, error) {
	var list []Template
	for _, template := range m.templates {
		list = append(list, *template)
	}
	return list, nil
}

func (m *repoMock) Create(_ context.Context, _ int, name string) (*Template, error) {
	for _, template := range m.templates {
		if strings.EqualFold(template.Name, name) {
			return nil, ErrNameTaken
		}
	}
	template := &Template{ID: m.nextID, Name: name}
	m.templates[template.ID] = template
	m.nextID++
	return template, nil
}

func (m *repoMock) Rename(_ context.Context, _ int, templateID int, name string) error {
	template, ok := m.templates[templateID]
	if !ok {
		return ErrNotFound
	}
	template.Name = name
	return nil
}

func (m *repoMock) Delete(_ context.Context, _ int, templateID int) error {
	if _, ok := m.templates[templateID]; !ok {
		return ErrNotFound
	}
	delete(m.templates, templateID)
	return nil
}

func (m *repoMock) Move(_ context.Context, _ int, templateID, templateExerciseID int, up bool) error {
	if _, ok := m.templates[templateID]; !ok {
		return ErrNotFound
	}
	direction := "down"
	if up {
		direction = "up"
	}
	m.moveCalls = append(m.moveCalls, direction)
	return nil
}

type diffSaverMock struct {
	err   error
	calls int
}

func (m *diffSaverMock) Save(_ context.Context, _ int, _ int, _ SavePayload) error {
	m.calls++
	return m.err
}

func newTemplatesTestRouter(repo *repoMock, saver *diffSaverMock) *mux.Router {
	router := mux.NewRouter()
	NewHandler(repo, saver).SetupRoutes(router.PathPrefix("/api/templates").Subrouter())
	return router
}

func doTemplateRequest(router *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(auth.ContextWithSession(
		req.Context(), &auth.Session{UserID: 1, Username: "serj"},
	))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandler_CreateAndGet(t *testing.T) {
	repo := newTemplatesRepoMock()
	router := newTemplatesTestRouter(repo, &diffSaverMock{})

	rr := doTemplateRequest(router, "POST", "/api/templates", `{"name":"Push Day"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created Template
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "Push Day", created.Name)

	rr = doTemplateRequest(router, "POST", "/api/templates", `{"name":"push day"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doTemplateRequest(router, "GET", "/api/templates/1", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandler_Save_statusMapping(t *testing.T) {
	repo := newTemplatesRepoMock(&Template{ID: 1, Name: "Push Day"})

	for name, tc := range map[string]struct {
		saverErr     error
		expectedCode int
	}{
		"success":    {saverErr: nil, expectedCode: http.StatusOK},
		"validation": {saverErr: validationErrorf("row 5 appears twice"), expectedCode: http.StatusBadRequest},
		"conflict":   {saverErr: ErrStateConflict, expectedCode: http.StatusConflict},
		"not found":  {saverErr: ErrNotFound, expectedCode: http.StatusNotFound},
	} {
		t.Run(name, func(t *testing.T) {
			saver := &diffSaverMock{err: tc.saverErr}
			router := newTemplatesTestRouter(repo, saver)

			rr := doTemplateRequest(router, "POST", "/api/templates/1/save",
				`{"items":[],"deleted":[]}`)
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.Equal(t, 1, saver.calls)

			if tc.expectedCode == http.StatusOK {
				assert.JSONEq(t, `{"success":true}`, rr.Body.String())
			} else {
				assert.Contains(t, rr.Body.String(), `"success":false`)
			}
		})
	}
}

func TestHandler_Save_badBody(t *testing.T) {
	router := newTemplatesTestRouter(newTemplatesRepoMock(), &diffSaverMock{})

	rr := doTemplateRequest(router, "POST", "/api/templates/1/save", `{"items": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Move(t *testing.T) {
	repo := newTemplatesRepoMock(&Template{ID: 1, Name: "Push Day"})
	router := newTemplatesTestRouter(repo, &diffSaverMock{})

	rr := doTemplateRequest(router, "POST", "/api/templates/1/exercises/11/move?direction=up", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doTemplateRequest(router, "POST", "/api/templates/1/exercises/11/move?direction=down", "")
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, []string{"up", "down"}, repo.moveCalls)

	rr = doTemplateRequest(router, "POST", "/api/templates/1/exercises/11/move?direction=sideways", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
