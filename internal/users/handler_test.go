package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/fitlog/internal/auth"
	"github.com/2beens/fitlog/pkg"
)

type repoMock struct {
	mutex  sync.Mutex
	users  map[int]*User
	nextID int
}

func newRepoMock(existing ...*User) *repoMock {
	mock := &repoMock{
		users:  make(map[int]*User),
		nextID: 1,
	}
	for _, user := range existing {
		mock.users[user.ID] = user
		if user.ID >= mock.nextID {
			mock.nextID = user.ID + 1
		}
	}
	return mock
}

func (m *repoMock) Add(_ context.Context, username, passwordHash string) (*User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, user := range m.users {
		if strings.EqualFold(user.Username, username) {
			return nil, ErrUsernameTaken
		}
	}
	user := &User{ID: m.nextID, Username: username, PasswordHash: passwordHash}
	m.users[user.ID] = user
	m.nextID++
	return user, nil
}

func (m *repoMock) GetByID(_ context.Context, id int) (*User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return user, nil
}

func (m *repoMock) All(_ context.Context) ([]User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var allUsers []User
	for _, user := range m.users {
		allUsers = append(allUsers, *user)
	}
	return allUsers, nil
}

func (m *repoMock) UpdatePassword(_ context.Context, userID int, passwordHash string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *repoMock) TouchLastActive(_ context.Context, _ int) error {
	return nil
}

func (m *repoMock) Delete(_ context.Context, userID int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.users[userID]; !ok {
		return ErrNotFound
	}
	delete(m.users, userID)
	return nil
}

func newTestRouter(repo *repoMock) *mux.Router {
	handler := NewHandler(repo)
	router := mux.NewRouter()
	handler.SetupAuthRoutes(router.PathPrefix("/a").Subrouter())
	handler.SetupRoutes(router.PathPrefix("/api/users").Subrouter())
	return router
}

func withSession(req *http.Request, session *auth.Session) *http.Request {
	return req.WithContext(auth.ContextWithSession(req.Context(), session))
}

func TestHandler_Register(t *testing.T) {
	repo := newRepoMock()
	router := newTestRouter(repo)

	form := url.Values{}
	form.Set("username", "mila")
	form.Set("password", "strongenough")
	req := httptest.NewRequest("POST", "/a/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var created User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "mila", created.Username)
	assert.NotZero(t, created.ID)

	// same name again, different case
	form.Set("username", "MILA")
	req = httptest.NewRequest("POST", "/a/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandler_Register_validation(t *testing.T) {
	router := newTestRouter(newRepoMock())

	for name, tc := range map[string]struct {
		username string
		password string
		expected string
	}{
		"short username": {username: "ab", password: "strongenough", expected: "username too short"},
		"short password": {username: "mila", password: "weak", expected: "password too short"},
	} {
		t.Run(name, func(t *testing.T) {
			form := url.Values{}
			form.Set("username", tc.username)
			form.Set("password", tc.password)
			req := httptest.NewRequest("POST", "/a/register", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.expected)
		})
	}
}

func TestHandler_GetMe(t *testing.T) {
	repo := newRepoMock(&User{ID: 1, Username: "serj", IsAdmin: true})
	router := newTestRouter(repo)

	req := withSession(
		httptest.NewRequest("GET", "/api/users/me", nil),
		&auth.Session{UserID: 1, Username: "serj"},
	)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var user User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	assert.Equal(t, "serj", user.Username)
	assert.True(t, user.IsAdmin)
}

func TestHandler_ChangePassword(t *testing.T) {
	oldHash, err := pkg.HashPassword("oldpassword")
	require.NoError(t, err)
	repo := newRepoMock(&User{ID: 1, Username: "serj", PasswordHash: oldHash})
	router := newTestRouter(repo)

	form := url.Values{}
	form.Set("old_password", "oldpassword")
	form.Set("new_password", "newpassword")
	req := withSession(
		httptest.NewRequest("POST", "/api/users/password", strings.NewReader(form.Encode())),
		&auth.Session{UserID: 1, Username: "serj"},
	)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, pkg.CheckPasswordHash("newpassword", repo.users[1].PasswordHash))
}

func TestHandler_ChangePassword_wrongOld(t *testing.T) {
	oldHash, err := pkg.HashPassword("oldpassword")
	require.NoError(t, err)
	repo := newRepoMock(&User{ID: 1, Username: "serj", PasswordHash: oldHash})
	router := newTestRouter(repo)

	form := url.Values{}
	form.Set("old_password", "nope-nope")
	form.Set("new_password", "newpassword")
	req := withSession(
		httptest.NewRequest("POST", "/api/users/password", strings.NewReader(form.Encode())),
		&auth.Session{UserID: 1, Username: "serj"},
	)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.True(t, pkg.CheckPasswordHash("oldpassword", repo.users[1].PasswordHash))
}

func TestHandler_DeleteMe(t *testing.T) {
	repo := newRepoMock(&User{ID: 1, Username: "serj"})
	router := newTestRouter(repo)

	req := withSession(
		httptest.NewRequest("DELETE", "/api/users/me", nil),
		&auth.Session{UserID: 1, Username: "serj"},
	)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, repo.users)
}

func TestHandler_List(t *testing.T) {
	repo := newRepoMock(
		&User{ID: 1, Username: "serj", IsAdmin: true},
		&User{ID: 2, Username: "mila"},
	)
	router := newTestRouter(repo)

	// non-admin is rejected
	req := withSession(
		httptest.NewRequest("GET", "/api/users", nil),
		&auth.Session{UserID: 2, Username: "mila"},
	)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req = withSession(
		httptest.NewRequest("GET", "/api/users", nil),
		&auth.Session{UserID: 1, Username: "serj", IsAdmin: true},
	)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var listed []User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	assert.Len(t, listed, 2)
}
