//go:build integration_test || all_tests

package test

import (
	"context"
	"net/http"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestLogin() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	username := gofakeit.Username()
	password := gofakeit.Password(true, true, true, false, false, 12)
	registerUser(ctx, t, username, password)

	t.Run("unknown user", func(t *testing.T) {
		resp := tryLogin(ctx, t, "who-is-this", "whatever1234")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := tryLogin(ctx, t, username, "not-the-password")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("good creds", func(t *testing.T) {
		token := doLogin(ctx, t, username, password)

		status, body := doRequest(ctx, t, token, "GET", "/api/users/me", "")
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(body), username)
	})

	t.Run("logout kills the session", func(t *testing.T) {
		token := doLogin(ctx, t, username, password)

		status, _ := doRequest(ctx, t, token, "GET", "/a/logout", "")
		require.Equal(t, http.StatusOK, status)

		status, _ = doRequest(ctx, t, token, "GET", "/api/users/me", "")
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func (s *IntegrationTestSuite) TestLoginLockout() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	username := gofakeit.Username()
	password := gofakeit.Password(true, true, true, false, false, 12)
	registerUser(ctx, t, username, password)

	for i := 0; i < testMaxFailedAttempts-1; i++ {
		resp := tryLogin(ctx, t, username, "wrong-password")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	}

	// the last allowed failure locks the account
	resp := tryLogin(ctx, t, username, "wrong-password")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	resp.Body.Close()

	// correct password changes nothing while the lock holds
	resp = tryLogin(ctx, t, username, password)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	var attempts int
	require.NoError(t, s.dbPool.QueryRow(ctx,
		"SELECT failed_login_attempts FROM users WHERE username = $1", username,
	).Scan(&attempts))
	assert.Equal(t, 0, attempts, "counter resets when the lock engages")

	// expire the lock directly, waiting out the lockout would slow the suite
	_, err := s.dbPool.Exec(ctx,
		"UPDATE users SET lock_until = now() - interval '1 second' WHERE username = $1",
		username,
	)
	require.NoError(t, err)

	token := doLogin(ctx, t, username, password)
	require.NotEmpty(t, token)

	var lockUntil *string
	require.NoError(t, s.dbPool.QueryRow(ctx,
		"SELECT lock_until::text FROM users WHERE username = $1", username,
	).Scan(&lockUntil))
	assert.Nil(t, lockUntil, "successful login clears the lock")
}
