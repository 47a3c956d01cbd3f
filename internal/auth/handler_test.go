package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/fitlog/internal/telemetry/metrics"
	"github.com/2beens/fitlog/pkg"
)

type fakeAccounts struct {
	accounts map[string]*Account
}

func (f *fakeAccounts) GetAccount(_ context.Context, username string) (*Account, error) {
	account, ok := f.accounts[username]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

type fakeThrottle struct {
	locked      bool
	lockedUntil time.Time
	outcome     FailureOutcome
	failures    int
	resets      int
}

func (f *fakeThrottle) Status(_ context.Context, _ int) (bool, time.Time, error) {
	return f.locked, f.lockedUntil, nil
}

func (f *fakeThrottle) RegisterFailure(_ context.Context, _ int) (FailureOutcome, error) {
	f.failures++
	return f.outcome, nil
}

func (f *fakeThrottle) Reset(_ context.Context, _ int) error {
	f.resets++
	return nil
}

type loginHandlerSetup struct {
	handler   *Handler
	throttle  *fakeThrottle
	redisMock redismock.ClientMock
	router    *mux.Router
}

func newLoginHandlerSetup(t *testing.T, accounts map[string]*Account) *loginHandlerSetup {
	t.Helper()

	redisClient, redisMock := redismock.NewClientMock()
	t.Cleanup(func() { _ = redisClient.Close() })

	throttle := &fakeThrottle{}
	handler := NewHandler(
		&fakeAccounts{accounts: accounts},
		NewService(redisClient, time.Hour),
		throttle,
		metrics.NewTestManager(),
	)

	router := mux.NewRouter()
	handler.SetupRoutes(router.PathPrefix("/a").Subrouter())

	return &loginHandlerSetup{
		handler:   handler,
		throttle:  throttle,
		redisMock: redisMock,
		router:    router,
	}
}

func doLogin(router *mux.Router, username, password string) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	req := httptest.NewRequest("POST", "/a/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandler_Login(t *testing.T) {
	passwordHash, err := pkg.HashPassword("sodoložajno")
	require.NoError(t, err)

	setup := newLoginHandlerSetup(t, map[string]*Account{
		"serj": {ID: 1, Username: "serj", PasswordHash: passwordHash, IsAdmin: true},
	})
	setup.redisMock.Regexp().
		ExpectSet(`fitlog-session\|\|.+`, `.+`, time.Hour).
		SetVal("OK")
	setup.redisMock.Regexp().
		ExpectSAdd(tokensSetKey, `.+`).
		SetVal(1)

	rr := doLogin(setup.router, "serj", "sodoplačajno")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "wrong credentials")
	assert.Equal(t, 1, setup.throttle.failures)

	rr = doLogin(setup.router, "serj", "sodopoložajno")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 2, setup.throttle.failures)

	rr = doLogin(setup.router, "serj", "sodoložajno")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, setup.throttle.resets)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "serj", resp.Username)
	assert.True(t, resp.IsAdmin)
}

func TestHandler_Login_unknownUser(t *testing.T) {
	setup := newLoginHandlerSetup(t, map[string]*Account{})

	rr := doLogin(setup.router, "ghost", "whatever")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "wrong credentials")
	assert.Zero(t, setup.throttle.failures)
}

func TestHandler_Login_missingCredentials(t *testing.T) {
	setup := newLoginHandlerSetup(t, map[string]*Account{})

	rr := doLogin(setup.router, "serj", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "username and password required")
}

func TestHandler_Login_lockedAccount(t *testing.T) {
	passwordHash, err := pkg.HashPassword("sodoložajno")
	require.NoError(t, err)

	setup := newLoginHandlerSetup(t, map[string]*Account{
		"serj": {ID: 1, Username: "serj", PasswordHash: passwordHash},
	})
	setup.throttle.locked = true
	setup.throttle.lockedUntil = time.Now().Add(10 * time.Minute)

	// even the correct password is rejected while the lock holds
	rr := doLogin(setup.router, "serj", "sodoložajno")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "account locked")
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Zero(t, setup.throttle.resets)
}

func TestHandler_Login_lastAttemptLocks(t *testing.T) {
	passwordHash, err := pkg.HashPassword("sodoložajno")
	require.NoError(t, err)

	setup := newLoginHandlerSetup(t, map[string]*Account{
		"serj": {ID: 1, Username: "serj", PasswordHash: passwordHash},
	})
	setup.throttle.outcome = FailureOutcome{
		Locked:      true,
		LockedUntil: time.Now().Add(15 * time.Minute),
	}

	rr := doLogin(setup.router, "serj", "wrong")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "account locked")
}

func TestHandler_Logout(t *testing.T) {
	setup := newLoginHandlerSetup(t, map[string]*Account{})
	setup.redisMock.ExpectDel(sessionKeyPrefix + "tok1").SetVal(1)
	setup.redisMock.ExpectSRem(tokensSetKey, "tok1").SetVal(1)

	req := httptest.NewRequest("POST", "/a/logout", nil)
	req.Header.Set("X-FITLOG-TOKEN", "tok1")
	rr := httptest.NewRecorder()
	setup.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "logged-out", rr.Body.String())
}

func TestHandler_Logout_noToken(t *testing.T) {
	setup := newLoginHandlerSetup(t, map[string]*Account{})

	req := httptest.NewRequest("POST", "/a/logout", nil)
	rr := httptest.NewRecorder()
	setup.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
