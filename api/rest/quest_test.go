package rest_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/questforge/server/analytics"
	"github.com/questforge/server/api/rest"
	"github.com/questforge/server/config"
	mw "github.com/questforge/server/middleware"
	"github.com/questforge/server/quest"
	"github.com/questforge/server/store"
	"github.com/questforge/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	db := testutil.SetupTestDB(t)
	backend := testutil.SetupTestCache(t)

	questRepo := quest.NewRepository(store.NewGormStore(db, logger), logger)
	clock := analytics.SystemClock{}
	analyticsCache := analytics.NewCache(backend, clock, logger)
	analyticsSvc := analytics.NewService(questRepo, analytics.NewCalculator(clock), analyticsCache, logger)
	questSvc := quest.NewService(questRepo, analyticsCache, nil, logger)

	questH := rest.NewQuestHandler(questSvc)
	analyticsH := rest.NewAnalyticsHandler(analyticsSvc)

	r := gin.New()
	api := r.Group("/api", mw.Auth(config.SecurityConfig{JWTSecret: testSecret}))
	{
		questsG := api.Group("/quests")
		questsG.POST("", questH.Create)
		questsG.GET("", questH.List)
		questsG.GET("/:id", questH.Get)
		questsG.PUT("/:id", questH.Update)
		questsG.DELETE("/:id", questH.Delete)
		questsG.POST("/:id/start", questH.Start)
		questsG.POST("/:id/complete", questH.Complete)
		questsG.POST("/:id/cancel", questH.Cancel)
		questsG.POST("/:id/fail", questH.Fail)

		api.GET("/analytics", analyticsH.Get)
	}
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, userID string, admin bool, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	token, err := mw.GenerateToken(userID, admin, testSecret, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createQuest(t *testing.T, r *gin.Engine, userID string, body map[string]interface{}) quest.Quest {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/quests", userID, false, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var q quest.Quest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	return q
}

func quantitativeBody() map[string]interface{} {
	return map[string]interface{}{
		"title":          "Run five times this week",
		"category":       "fitness",
		"kind":           "quantitative",
		"target_count":   5,
		"count_scope":    "any",
		"start_at":       time.Now().Add(time.Hour).UnixMilli(),
		"period_seconds": 86400,
	}
}

func linkedBody() map[string]interface{} {
	return map[string]interface{}{
		"title":     "Ship the reading habit",
		"category":  "learning",
		"kind":      "linked",
		"reward_xp": 100,
	}
}

func TestCreateQuest(t *testing.T) {
	r := newTestRouter(t)
	q := createQuest(t, r, "u1", linkedBody())
	assert.NotEmpty(t, q.ID)
	assert.Equal(t, int64(1), q.Version)
	assert.Equal(t, quest.StatusDraft, q.Status)
}

func TestCreateQuestValidation(t *testing.T) {
	r := newTestRouter(t)
	body := linkedBody()
	body["title"] = "ab"
	w := doJSON(t, r, http.MethodPost, "/api/quests", "u1", false, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetQuestNotFound(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/quests/missing", "u1", false, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetQuestIsolatedPerUser(t *testing.T) {
	r := newTestRouter(t)
	q := createQuest(t, r, "u1", linkedBody())

	w := doJSON(t, r, http.MethodGet, "/api/quests/"+q.ID, "u2", false, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateQuestVersionConflict(t *testing.T) {
	r := newTestRouter(t)
	q := createQuest(t, r, "u1", linkedBody())

	update := map[string]interface{}{
		"expected_version": 1,
		"changes":          map[string]interface{}{"title": "A fresher title"},
	}
	w := doJSON(t, r, http.MethodPut, "/api/quests/"+q.ID, "u1", false, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Replaying the same expected_version now conflicts.
	w = doJSON(t, r, http.MethodPut, "/api/quests/"+q.ID, "u1", false, update)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateQuestMissingVersion(t *testing.T) {
	r := newTestRouter(t)
	q := createQuest(t, r, "u1", linkedBody())

	w := doJSON(t, r, http.MethodPut, "/api/quests/"+q.ID, "u1", false, map[string]interface{}{
		"changes": map[string]interface{}{"title": "No version given"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartLinkedWithoutLinks(t *testing.T) {
	r := newTestRouter(t)
	q := createQuest(t, r, "u1", linkedBody())

	w := doJSON(t, r, http.MethodPost, "/api/quests/"+q.ID+"/start", "u1", false, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuantitativeLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	q := createQuest(t, r, "u1", quantitativeBody())

	w := doJSON(t, r, http.MethodPost, "/api/quests/"+q.ID+"/start", "u1", false, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/quests/"+q.ID+"/complete", "u1", false, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var done quest.Quest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &done))
	assert.Equal(t, quest.StatusCompleted, done.Status)
	assert.Equal(t, int64(3), done.Version)
	assert.NotNil(t, done.CompletedAt)

	// Terminal: no further transitions.
	w = doJSON(t, r, http.MethodPost, "/api/quests/"+q.ID+"/fail", "u1", false, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelWithReason(t *testing.T) {
	r := newTestRouter(t)
	q := createQuest(t, r, "u1", quantitativeBody())

	w := doJSON(t, r, http.MethodPost, "/api/quests/"+q.ID+"/start", "u1", false, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/quests/"+q.ID+"/cancel", "u1", false,
		map[string]interface{}{"reason": "schedule changed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var cancelled quest.Quest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cancelled))
	assert.Equal(t, quest.StatusCancelled, cancelled.Status)
}

func TestDeleteActiveQuestRequiresAdmin(t *testing.T) {
	r := newTestRouter(t)
	q := createQuest(t, r, "u1", quantitativeBody())

	w := doJSON(t, r, http.MethodPost, "/api/quests/"+q.ID+"/start", "u1", false, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/quests/"+q.ID, "u1", false, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/quests/"+q.ID, "u1", true, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListQuestsFiltered(t *testing.T) {
	r := newTestRouter(t)
	createQuest(t, r, "u1", linkedBody())
	q2 := createQuest(t, r, "u1", quantitativeBody())

	w := doJSON(t, r, http.MethodPost, "/api/quests/"+q2.ID+"/start", "u1", false, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/quests?status=active", "u1", false, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Quests []quest.Quest `json:"quests"`
		Count  int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, q2.ID, resp.Quests[0].ID)

	w = doJSON(t, r, http.MethodGet, "/api/quests?status=bogus", "u1", false, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuestEndpointsRequireAuth(t *testing.T) {
	r := newTestRouter(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/quests", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAnalyticsEndpoint(t *testing.T) {
	r := newTestRouter(t)

	for i := 0; i < 2; i++ {
		q := createQuest(t, r, "u1", quantitativeBody())
		w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/quests/%s/start", q.ID), "u1", false, nil)
		require.Equal(t, http.StatusOK, w.Code)
		if i == 0 {
			w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/quests/%s/complete", q.ID), "u1", false, nil)
			require.Equal(t, http.StatusOK, w.Code)
		}
	}

	w := doJSON(t, r, http.MethodGet, "/api/analytics?period=weekly", "u1", false, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var a analytics.Analytics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.Equal(t, "u1", a.UserID)
	assert.Equal(t, analytics.PeriodWeekly, a.Period)
	assert.Equal(t, 2, a.TotalQuests)
	assert.Equal(t, 1, a.CompletedQuests)
	assert.InDelta(t, 0.5, a.SuccessRate, 1e-9)
	assert.Equal(t, 1, a.CurrentStreak)
}

func TestAnalyticsDefaultAndBadPeriod(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/analytics", "u1", false, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var a analytics.Analytics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.Equal(t, analytics.PeriodWeekly, a.Period)

	w = doJSON(t, r, http.MethodGet, "/api/analytics?period=yearly", "u1", false, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
