//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/fitlog/internal/workouts/templates"
)

func (s *IntegrationTestSuite) TestTemplateEditor() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.newTestUser(ctx, t)
	squat := s.createExercise(ctx, t, token, "Back Squat "+gofakeit.UUID())
	press := s.createExercise(ctx, t, token, "Overhead Press "+gofakeit.UUID())

	status, body := doRequest(ctx, t, token, "POST", "/api/templates",
		`{"name":"Strength A"}`)
	require.Equal(t, http.StatusCreated, status, string(body))

	var template templates.Template
	require.NoError(t, json.Unmarshal(body, &template))
	require.NotZero(t, template.ID)

	templatePath := fmt.Sprintf("/api/templates/%d", template.ID)

	// same name again fails, per-user template names are unique
	status, _ = doRequest(ctx, t, token, "POST", "/api/templates",
		`{"name":"Strength A"}`)
	assert.Equal(t, http.StatusConflict, status)

	savePayload := fmt.Sprintf(`{
		"items": [
			{"type": "new", "exerciseId": %d, "sets": 5},
			{"type": "new", "exerciseId": %d, "sets": "3"}
		],
		"deleted": []
	}`, squat.ID, press.ID)

	status, body = doRequest(ctx, t, token, "POST", templatePath+"/save", savePayload)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"success":true`)

	status, body = doRequest(ctx, t, token, "GET", templatePath, "")
	require.Equal(t, http.StatusOK, status, string(body))

	require.NoError(t, json.Unmarshal(body, &template))
	require.Len(t, template.Exercises, 2)
	assert.Equal(t, 1, template.Exercises[0].SortOrder)
	assert.Equal(t, 2, template.Exercises[1].SortOrder)
	assert.Equal(t, squat.ID, template.Exercises[0].ExerciseID)

	firstRow := template.Exercises[0]
	secondRow := template.Exercises[1]

	// a payload that does not account for every stored row is stale
	stalePayload := fmt.Sprintf(`{
		"items": [
			{"type": "existing", "templateExerciseId": %d, "sets": 5}
		],
		"deleted": []
	}`, firstRow.ID)

	status, body = doRequest(ctx, t, token, "POST", templatePath+"/save", stalePayload)
	assert.Equal(t, http.StatusConflict, status, string(body))
	assert.Contains(t, string(body), `"success":false`)

	// reordering and deleting in one save
	reorderPayload := fmt.Sprintf(`{
		"items": [
			{"type": "existing", "templateExerciseId": %d, "sets": 3}
		],
		"deleted": [%d]
	}`, secondRow.ID, firstRow.ID)

	status, body = doRequest(ctx, t, token, "POST", templatePath+"/save", reorderPayload)
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = doRequest(ctx, t, token, "GET", templatePath, "")
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &template))
	require.Len(t, template.Exercises, 1)
	assert.Equal(t, press.ID, template.Exercises[0].ExerciseID)
	assert.Equal(t, 1, template.Exercises[0].SortOrder, "order stays dense after deletion")
}

func (s *IntegrationTestSuite) TestTemplateNotVisibleToOthers() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	owner := s.newTestUser(ctx, t)
	stranger := s.newTestUser(ctx, t)

	status, body := doRequest(ctx, t, owner, "POST", "/api/templates",
		`{"name":"Private Plan"}`)
	require.Equal(t, http.StatusCreated, status, string(body))

	var template templates.Template
	require.NoError(t, json.Unmarshal(body, &template))

	status, _ = doRequest(ctx, t, stranger, "GET",
		fmt.Sprintf("/api/templates/%d", template.ID), "")
	assert.Equal(t, http.StatusNotFound, status, "foreign templates look like they do not exist")
}
