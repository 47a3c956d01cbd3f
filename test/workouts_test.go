//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/fitlog/internal/catalog"
	"github.com/2beens/fitlog/internal/workouts/sessions"
)

func (s *IntegrationTestSuite) newTestUser(ctx context.Context, t *testing.T) string {
	token, _ := s.newTestUserWithID(ctx, t)
	return token
}

func (s *IntegrationTestSuite) newTestUserWithID(ctx context.Context, t *testing.T) (string, int) {
	t.Helper()
	username := gofakeit.Username()
	password := gofakeit.Password(true, true, true, false, false, 12)
	registerUser(ctx, t, username, password)
	token := doLogin(ctx, t, username, password)

	var userID int
	require.NoError(t, s.dbPool.QueryRow(ctx,
		"SELECT id FROM users WHERE username = $1", username,
	).Scan(&userID))
	return token, userID
}

func (s *IntegrationTestSuite) createExercise(
	ctx context.Context, t *testing.T, token, name string,
) catalog.Item {
	t.Helper()
	status, body := doRequest(ctx, t, token, "POST", "/api/catalog/exercise",
		fmt.Sprintf(`{"name":%q}`, name))
	require.Equal(t, http.StatusCreated, status, string(body))

	var item catalog.Item
	require.NoError(t, json.Unmarshal(body, &item))
	return item
}

func (s *IntegrationTestSuite) TestWorkoutSessionFlow() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token, userID := s.newTestUserWithID(ctx, t)
	squat := s.createExercise(ctx, t, token, "Squat "+gofakeit.UUID())
	pullup := s.createExercise(ctx, t, token, "Pull Up "+gofakeit.UUID())

	// weight logged beforehand backs the bodyweight token
	status, body := doRequest(ctx, t, token, "PUT", "/api/measurements/2025-03-09",
		`{"weight":82.5}`)
	require.Equal(t, http.StatusOK, status, string(body))

	payload := fmt.Sprintf(`{
		"recordDate": "2025-03-10",
		"templateName": "Leg Day",
		"durationMinutes": 55,
		"entries": [
			{"exerciseId": %d, "setNumber": 1, "reps": 5, "weight": 100},
			{"exerciseId": %d, "setNumber": 2, "reps": "5", "weight": "102.5"},
			{"exerciseId": %d, "setNumber": 1, "reps": 8, "weight": "io"},
			{"exerciseId": %d, "setNumber": 2, "reps": 0, "weight": 50}
		],
		"comments": {"%d": "belt on"}
	}`, squat.ID, squat.ID, pullup.ID, pullup.ID, squat.ID)

	status, body = doRequest(ctx, t, token, "POST", "/api/workouts/sessions", payload)
	require.Equal(t, http.StatusOK, status, string(body))

	var result sessions.SaveResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.True(t, result.Saved)
	assert.Equal(t, 3, result.AcceptedSets, "the zero-rep set is dropped quietly")
	require.NotEmpty(t, result.SessionTimestamp)

	status, body = doRequest(ctx, t, token, "GET",
		"/api/workouts/sessions/"+result.SessionTimestamp, "")
	require.Equal(t, http.StatusOK, status, string(body))

	var detail sessions.SessionDetail
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Equal(t, "Leg Day", detail.Session.TemplateName)
	require.Len(t, detail.Sets, 3)

	for _, set := range detail.Sets {
		if set.ExerciseID == pullup.ID {
			assert.InDelta(t, 82.5, set.Weight, 0.001, "bodyweight token resolves to the latest measurement")
		}
	}
	assert.Equal(t, "belt on", detail.Comments[squat.ID])

	// resubmitting with the same timestamp replaces the log in full
	editPayload := fmt.Sprintf(`{
		"recordDate": "2025-03-10",
		"sessionTimestamp": %q,
		"templateName": "Leg Day",
		"durationMinutes": 60,
		"entries": [
			{"exerciseId": %d, "setNumber": 1, "reps": 5, "weight": 105}
		]
	}`, result.SessionTimestamp, squat.ID)

	status, body = doRequest(ctx, t, token, "POST", "/api/workouts/sessions", editPayload)
	require.Equal(t, http.StatusOK, status, string(body))

	var editResult sessions.SaveResult
	require.NoError(t, json.Unmarshal(body, &editResult))
	assert.True(t, editResult.Saved)
	assert.Equal(t, result.SessionTimestamp, editResult.SessionTimestamp)

	var setCount int
	require.NoError(t, s.dbPool.QueryRow(ctx, `
		SELECT count(*) FROM workout_log
		WHERE user_id = $1 AND session_timestamp = $2`,
		userID, result.SessionTimestamp,
	).Scan(&setCount))
	assert.Equal(t, 1, setCount)
}

func (s *IntegrationTestSuite) TestWorkoutSessionNothingSaved() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token, userID := s.newTestUserWithID(ctx, t)
	bench := s.createExercise(ctx, t, token, "Bench Press "+gofakeit.UUID())

	countHeaders := func() int {
		var headerCount int
		require.NoError(t, s.dbPool.QueryRow(ctx,
			"SELECT count(*) FROM workout_sessions WHERE user_id = $1",
			userID,
		).Scan(&headerCount))
		return headerCount
	}

	payload := fmt.Sprintf(`{
		"recordDate": "2025-03-10",
		"entries": [
			{"exerciseId": %d, "setNumber": 1, "reps": 0, "weight": 60},
			{"exerciseId": %d, "setNumber": 2, "reps": "abc", "weight": 60}
		]
	}`, bench.ID, bench.ID)

	status, body := doRequest(ctx, t, token, "POST", "/api/workouts/sessions", payload)
	require.Equal(t, http.StatusOK, status, string(body))

	var result sessions.SaveResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.False(t, result.Saved)
	assert.Equal(t, 0, result.AcceptedSets)
	assert.NotEmpty(t, result.Warning)
	assert.Zero(t, countHeaders(), "no header row survives a fully rejected submission")

	// an edit whose sets all get rejected erases the existing session
	savePayload := fmt.Sprintf(`{
		"recordDate": "2025-03-10",
		"entries": [{"exerciseId": %d, "setNumber": 1, "reps": 5, "weight": 60}]
	}`, bench.ID)
	status, body = doRequest(ctx, t, token, "POST", "/api/workouts/sessions", savePayload)
	require.Equal(t, http.StatusOK, status, string(body))

	var saveResult sessions.SaveResult
	require.NoError(t, json.Unmarshal(body, &saveResult))
	require.True(t, saveResult.Saved)
	require.Equal(t, 1, countHeaders())

	emptyEditPayload := fmt.Sprintf(`{
		"recordDate": "2025-03-10",
		"sessionTimestamp": %q,
		"entries": [{"exerciseId": %d, "setNumber": 1, "reps": 0, "weight": 60}]
	}`, saveResult.SessionTimestamp, bench.ID)
	status, body = doRequest(ctx, t, token, "POST", "/api/workouts/sessions", emptyEditPayload)
	require.Equal(t, http.StatusOK, status, string(body))

	var editResult sessions.SaveResult
	require.NoError(t, json.Unmarshal(body, &editResult))
	assert.False(t, editResult.Saved)
	assert.NotEmpty(t, editResult.Warning)
	assert.Zero(t, countHeaders(), "editing a session down to no valid sets deletes it")

	var setCount int
	require.NoError(t, s.dbPool.QueryRow(ctx,
		"SELECT count(*) FROM workout_log WHERE user_id = $1 AND session_timestamp = $2",
		userID, saveResult.SessionTimestamp,
	).Scan(&setCount))
	assert.Zero(t, setCount, "the old sets do not survive either")
}

func (s *IntegrationTestSuite) TestExerciseHistory() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.newTestUser(ctx, t)
	row := s.createExercise(ctx, t, token, "Barbell Row "+gofakeit.UUID())

	for day := 1; day <= 3; day++ {
		payload := fmt.Sprintf(`{
			"recordDate": "2025-03-0%d",
			"entries": [{"exerciseId": %d, "setNumber": 1, "reps": 8, "weight": %d}]
		}`, day, row.ID, 60+day)
		status, body := doRequest(ctx, t, token, "POST", "/api/workouts/sessions", payload)
		require.Equal(t, http.StatusOK, status, string(body))
	}

	status, body := doRequest(ctx, t, token, "GET",
		fmt.Sprintf("/api/workouts/history?exercises=%d&cutoff=2025-03-04", row.ID), "")
	require.Equal(t, http.StatusOK, status, string(body))

	var history map[string]sessions.ExerciseHistory
	require.NoError(t, json.Unmarshal(body, &history))

	exerciseHistory := history[fmt.Sprintf("%d", row.ID)]
	require.Len(t, exerciseHistory.Sessions, 2, "only the two most recent sessions before the cutoff")
	assert.Equal(t, []string{"63kg x 8"}, exerciseHistory.Sessions[0].Sets)
	assert.Equal(t, []string{"62kg x 8"}, exerciseHistory.Sessions[1].Sets)
}
