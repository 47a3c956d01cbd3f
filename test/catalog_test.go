//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/fitlog/internal/nutrition"
)

func (s *IntegrationTestSuite) TestCatalogNameUniqueness() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.newTestUser(ctx, t)
	name := "Deadlift " + gofakeit.UUID()

	status, body := doRequest(ctx, t, token, "POST", "/api/catalog/exercise",
		fmt.Sprintf(`{"name":%q}`, name))
	require.Equal(t, http.StatusCreated, status, string(body))

	// same name with different casing is still a duplicate
	status, body = doRequest(ctx, t, token, "POST", "/api/catalog/exercise",
		fmt.Sprintf(`{"name":%q}`, strings.ToUpper(name)))
	assert.Equal(t, http.StatusConflict, status, string(body))

	// a different user can reuse the name in their own scope
	otherToken := s.newTestUser(ctx, t)
	status, body = doRequest(ctx, t, otherToken, "POST", "/api/catalog/exercise",
		fmt.Sprintf(`{"name":%q}`, name))
	assert.Equal(t, http.StatusCreated, status, string(body))
}

func (s *IntegrationTestSuite) TestCatalogGlobalRequiresSuperuser() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.newTestUser(ctx, t)

	status, body := doRequest(ctx, t, token, "POST", "/api/catalog/food",
		fmt.Sprintf(`{"name":%q,"global":true,"protein":20}`, "Oats "+gofakeit.UUID()))
	assert.Equal(t, http.StatusForbidden, status, string(body))

	// a superuser (without the admin flag) may write global entries
	username := gofakeit.Username()
	password := gofakeit.Password(true, true, true, false, false, 12)
	registerUser(ctx, t, username, password)
	_, err := s.dbPool.Exec(ctx,
		"UPDATE users SET is_superuser = TRUE WHERE username = $1", username)
	require.NoError(t, err)

	superToken := doLogin(ctx, t, username, password)
	status, body = doRequest(ctx, t, superToken, "POST", "/api/catalog/food",
		fmt.Sprintf(`{"name":%q,"global":true,"protein":20}`, "Oats "+gofakeit.UUID()))
	assert.Equal(t, http.StatusCreated, status, string(body))
}

func (s *IntegrationTestSuite) TestNutritionLog() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.newTestUser(ctx, t)
	foodName := "Chicken Breast " + gofakeit.UUID()

	status, body := doRequest(ctx, t, token, "POST", "/api/catalog/food",
		fmt.Sprintf(`{"name":%q,"protein":31,"carbs":0,"fat":3.6}`, foodName))
	require.Equal(t, http.StatusCreated, status, string(body))

	// logging by name exercises the resolver, not just the id path
	status, body = doRequest(ctx, t, token, "POST", "/api/nutrition/log",
		fmt.Sprintf(`{"food":%q,"weight":200,"date":"2025-03-10"}`, foodName))
	require.Equal(t, http.StatusCreated, status, string(body))

	var entry nutrition.Entry
	require.NoError(t, json.Unmarshal(body, &entry))
	assert.InDelta(t, 62, entry.Protein, 0.001)
	assert.InDelta(t, 62*4+7.2*9, entry.Calories, 0.1)

	status, body = doRequest(ctx, t, token, "GET", "/api/nutrition/log/2025-03-10", "")
	require.Equal(t, http.StatusOK, status, string(body))

	var dayLog nutrition.DayLog
	require.NoError(t, json.Unmarshal(body, &dayLog))
	require.Len(t, dayLog.Entries, 1)
	assert.InDelta(t, entry.Calories, dayLog.Calories, 0.1)

	// the explicit id beats a name pointing elsewhere
	otherName := "Rice " + gofakeit.UUID()
	status, body = doRequest(ctx, t, token, "POST", "/api/catalog/food",
		fmt.Sprintf(`{"name":%q,"protein":2.7,"carbs":28,"fat":0.3}`, otherName))
	require.Equal(t, http.StatusCreated, status, string(body))
	var rice nutrition.Entry
	var riceItem struct {
		ID int `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &riceItem))

	status, body = doRequest(ctx, t, token, "POST", "/api/nutrition/log",
		fmt.Sprintf(`{"foodId":%d,"food":%q,"weight":100,"date":"2025-03-10"}`, riceItem.ID, foodName))
	require.Equal(t, http.StatusCreated, status, string(body))
	require.NoError(t, json.Unmarshal(body, &rice))
	assert.Equal(t, riceItem.ID, rice.FoodID)
	assert.Equal(t, otherName, rice.FoodName)

	status, body = doRequest(ctx, t, token, "POST", "/api/nutrition/log",
		`{"food":"food-that-does-not-exist","weight":100}`)
	assert.Equal(t, http.StatusBadRequest, status, string(body))
	assert.Contains(t, string(body), "unknown food")
}
