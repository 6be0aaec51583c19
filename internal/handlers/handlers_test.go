package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LoneMagma/pacify-site/internal/auth"
	"github.com/LoneMagma/pacify-site/internal/geo"
	"github.com/LoneMagma/pacify-site/internal/stats"
	"github.com/LoneMagma/pacify-site/internal/store"
)

const testSecret = "test-secret"

type testEnv struct {
	router *gin.Engine
	store  *store.EventStore
	tokens *auth.TokenService
}

func setupTestEnv(t *testing.T, geoURL string) *testEnv {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	s := store.New(db)
	require.NoError(t, s.Migrate())

	tokens, err := auth.NewTokenService(testSecret)
	require.NoError(t, err)

	resolver := geo.NewResolver(geoURL, 2*time.Second, zap.NewNop())
	router := NewRouter(gin.New(), s, tokens, resolver, []string{"http://localhost:3000"})

	return &testEnv{router: router, store: s, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedAdmin(t *testing.T, username, password string) {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	created, err := e.store.CreateAdminUser(context.Background(), username, hash)
	require.NoError(t, err)
	require.True(t, created)
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestLogin(t *testing.T) {
	env := setupTestEnv(t, "http://unused.invalid")
	env.seedAdmin(t, "admin", "SecurePassword123!")

	t.Run("valid credentials issue a token", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
			Username: "admin",
			Password: "SecurePassword123!",
		})
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeJSON(t, w)
		assert.Equal(t, "bearer", body["token_type"])

		subject, err := env.tokens.Validate(body["access_token"].(string))
		require.NoError(t, err)
		assert.Equal(t, "admin", subject)
	})

	t.Run("wrong password and unknown user are indistinguishable", func(t *testing.T) {
		wrongPass := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
			Username: "admin",
			Password: "nope",
		})
		unknownUser := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
			Username: "ghost",
			Password: "nope",
		})

		assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
		assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
		assert.Equal(t, wrongPass.Body.String(), unknownUser.Body.String())
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestVerify(t *testing.T) {
	env := setupTestEnv(t, "http://unused.invalid")

	tok, err := env.tokens.Issue("admin")
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/auth/verify", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeJSON(t, w)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "admin", body["username"])

	w = env.do(t, http.MethodGet, "/api/auth/verify", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTrackEvent(t *testing.T) {
	env := setupTestEnv(t, "http://unused.invalid")

	t.Run("local request stores the development location", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/track", "", TrackEventRequest{EventType: "page_view"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "tracked", decodeJSON(t, w)["status"])

		events, err := env.store.RecentEvents(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "Local", events[0].Country)
		assert.Equal(t, "Development", events[0].City)
	})

	t.Run("missing event_type rejected", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/track", "", map[string]string{"page_path": "/"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTrackEventForwardedFor(t *testing.T) {
	var lookedUp string
	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		lookedUp = req.URL.Path
		w.Write([]byte(`{"status":"success","country":"Germany","city":"Berlin"}`))
	}))
	defer geoSrv.Close()

	env := setupTestEnv(t, geoSrv.URL)

	body, err := json.Marshal(TrackEventRequest{EventType: "page_view"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/track", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	// Only the first forwarded address is resolved.
	assert.Equal(t, "/203.0.113.9", lookedUp)

	events, err := env.store.RecentEvents(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Germany", events[0].Country)
	assert.Equal(t, "Berlin", events[0].City)
}

func TestAnalyticsRequiresAuth(t *testing.T) {
	env := setupTestEnv(t, "http://unused.invalid")

	w := env.do(t, http.MethodGet, "/api/analytics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Expired token signed with the right secret is rejected the same way.
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	w = env.do(t, http.MethodGet, "/api/analytics", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/analytics/live", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAnalyticsPayload(t *testing.T) {
	env := setupTestEnv(t, "http://unused.invalid")

	// Track one page view through the public endpoint, then read it back.
	w := env.do(t, http.MethodPost, "/api/track", "", TrackEventRequest{EventType: "page_view"})
	require.Equal(t, http.StatusOK, w.Code)

	tok, err := env.tokens.Issue("admin")
	require.NoError(t, err)

	w = env.do(t, http.MethodGet, "/api/analytics", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var summary stats.DashboardSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, int64(1), summary.TotalViews)
	assert.Equal(t, int64(1), summary.ViewsToday)
	require.Len(t, summary.RecentActivity, 1)
	assert.Equal(t, "Development, Local", summary.RecentActivity[0].Location)
}

func TestLiveVisitors(t *testing.T) {
	env := setupTestEnv(t, "http://unused.invalid")

	page := "/projects"
	w := env.do(t, http.MethodPost, "/api/track", "", TrackEventRequest{EventType: "page_view", PagePath: &page})
	require.Equal(t, http.StatusOK, w.Code)

	tok, err := env.tokens.Issue("admin")
	require.NoError(t, err)

	w = env.do(t, http.MethodGet, "/api/analytics/live", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeJSON(t, w)["live_visitors"])
}

func TestRootAndHealth(t *testing.T) {
	env := setupTestEnv(t, "http://unused.invalid")

	w := env.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, "operational", body["status"])
	assert.Equal(t, Version, body["version"])

	w = env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeJSON(t, w)["status"])
}
