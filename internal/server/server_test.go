package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"geosm/internal/config"
	"geosm/internal/coordinator"
	"geosm/internal/featureflags"
	"geosm/internal/geo"
	"geosm/internal/models"
	"geosm/internal/service"
	"geosm/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func nopLogger() *zap.Logger { return zap.NewNop() }

type testServer struct {
	app    *fiber.App
	rel    *testutil.RelStore
	graph  *testutil.GraphStore
	sender *testutil.RecordingSender
}

func newTestServer(t *testing.T, probes map[string]Probe) *testServer {
	t.Helper()
	log := zaptest.NewLogger(t)
	ts := &testServer{
		rel:    testutil.NewRelStore(),
		graph:  testutil.NewGraphStore(),
		sender: &testutil.RecordingSender{},
	}
	platform := models.DefaultPlatform()
	coord := coordinator.New(ts.rel, ts.graph, log)
	settings := service.NewSettingsService(coord, nil, platform.Settings, log)
	flags := featureflags.NewManager("notifications=on")

	engines := Engines{
		Identity:   service.NewIdentityService(coord, testutil.PlainHasher{}, testutil.StaticCaptcha{}, ts.sender, settings, flags, platform, log),
		Content:    service.NewContentService(coord, settings, log),
		Search:     service.NewSearchService(coord, testutil.StaticGeo{Places: []geo.Place{{Description: "Katowice", Latitude: 50.26, Longitude: 19.02}}}),
		Feed:       service.NewFeedService(coord, platform),
		Moderation: service.NewModerationService(coord, platform, log),
		Settings:   settings,
	}
	cfg := &config.Config{AllowedOrigins: "http://localhost:5173"}
	ts.app = NewServerWithDeps(cfg, engines, nil, flags, probes, log).App()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, models.Result) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var res models.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return resp.StatusCode, res
}

func payloadNumber(t *testing.T, res models.Result, key string) uint {
	t.Helper()
	m, ok := res.Payload.(map[string]any)
	require.True(t, ok, "payload is %T", res.Payload)
	n, ok := m[key].(float64)
	require.True(t, ok, "%s missing", key)
	return uint(n)
}

// signup registers over HTTP, activates with the delivered code and logs in.
func (ts *testServer) signup(t *testing.T, username string, admin bool) (uint, string) {
	t.Helper()
	path := "/api/auth/register"
	if admin {
		path += "?admin=true"
	}
	status, res := ts.do(t, http.MethodPost, path, "", fiber.Map{
		"username": username,
		"password": "secret",
		"email":    username + "@example.com",
	})
	require.Equal(t, http.StatusOK, status, res.ErrorKind)
	id := payloadNumber(t, res, "user_id")

	msg, ok := ts.sender.Last()
	require.True(t, ok)
	code := strings.TrimPrefix(msg.Body, "Your geosm code is ")
	status, res = ts.do(t, http.MethodPost, "/api/auth/activate", "", fiber.Map{"user_id": id, "code": code, "type": "email"})
	require.Equal(t, http.StatusOK, status, res.ErrorKind)

	status, res = ts.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"username": username, "password": "secret"})
	require.Equal(t, http.StatusOK, status, res.ErrorKind)
	m := res.Payload.(map[string]any)
	return id, m["token"].(string)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, map[string]Probe{
		"database": func(context.Context) error { return nil },
	})
	resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = ts.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	failing := newTestServer(t, map[string]Probe{
		"graph": func(context.Context) error { return errors.New("connection refused") },
	})
	resp, err = failing.app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body["status"])
}

func TestPostLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)
	_, author := ts.signup(t, "kasia", false)
	_, voter := ts.signup(t, "piotr", false)

	status, res := ts.do(t, http.MethodPost, "/api/posts", author, fiber.Map{
		"title":    "Spodek at night",
		"content":  "lights",
		"tags":     []string{"Music", "katowice"},
		"location": fiber.Map{"lat": 50.2661, "long": 19.0253},
	})
	require.Equal(t, http.StatusOK, status, res.ErrorKind)
	postID := payloadNumber(t, res, "post_id")

	status, res = ts.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/vote", postID), voter, fiber.Map{"op": "upvote"})
	require.Equal(t, http.StatusOK, status, res.ErrorKind)

	status, res = ts.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), voter, nil)
	require.Equal(t, http.StatusOK, status)
	post := res.Payload.(map[string]any)
	assert.Equal(t, "Spodek at night", post["title"])
	assert.Equal(t, float64(1), post["counter"])
	assert.Equal(t, "liked", post["relation"])

	status, res = ts.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), voter, fiber.Map{"content": "great"})
	require.Equal(t, http.StatusOK, status, res.ErrorKind)

	status, res = ts.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d/comments", postID), "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, res.Payload, 1)

	status, res = ts.do(t, http.MethodGet, "/api/posts?tags=music&lat=50.265&long=19.024", "", nil)
	require.Equal(t, http.StatusOK, status, res.ErrorKind)
	assert.Len(t, res.Payload, 1)

	status, res = ts.do(t, http.MethodGet, "/api/search?kind=tag&q=kat", "", nil)
	require.Equal(t, http.StatusOK, status, res.ErrorKind)
	hits := res.Payload.([]any)
	require.Len(t, hits, 1)
	assert.Equal(t, "katowice", hits[0].(map[string]any)["label"])

	status, res = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/posts/%d", postID), voter, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, models.CodeForbidden, res.ErrorKind)

	status, _ = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/posts/%d", postID), author, nil)
	require.Equal(t, http.StatusOK, status)
	status, res = ts.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Error", res.Message)
}

func TestEnvelopeErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	status, res := ts.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"username": "ghost", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, res.Status)
	assert.Equal(t, models.CodeUnauthorized, res.ErrorKind)

	status, res = ts.do(t, http.MethodPost, "/api/posts", "bogus", fiber.Map{"title": "t"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, models.CodeUnauthorized, res.ErrorKind)

	status, res = ts.do(t, http.MethodGet, "/api/posts/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeValidation, res.ErrorKind)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	status, res = ts.do(t, http.MethodGet, "/api/search?kind=place&q=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeValidation, res.ErrorKind)

	for _, query := range []string{"lat=NaN&long=19", "lat=50&long=Inf", "lat=50&long=19&radius=NaN"} {
		status, res = ts.do(t, http.MethodGet, "/api/posts?"+query, "", nil)
		assert.Equal(t, http.StatusBadRequest, status, query)
		assert.Equal(t, models.CodeValidation, res.ErrorKind, query)
	}
}

func TestModerationFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	adminID, admin := ts.signup(t, "root", true)
	targetID, target := ts.signup(t, "troll", false)
	modID, mod := ts.signup(t, "mod", false)

	status, res := ts.do(t, http.MethodPut, fmt.Sprintf("/api/users/%d/role", modID), admin, fiber.Map{"role": "moderator"})
	require.Equal(t, http.StatusOK, status, res.ErrorKind)
	status, _ = ts.do(t, http.MethodPut, fmt.Sprintf("/api/users/%d/role", adminID), admin, fiber.Map{"role": "user"})
	assert.Equal(t, http.StatusForbidden, status)

	status, res = ts.do(t, http.MethodPost, "/api/posts", target, fiber.Map{"title": "bait"})
	require.Equal(t, http.StatusOK, status, res.ErrorKind)
	postID := payloadNumber(t, res, "post_id")

	status, res = ts.do(t, http.MethodPost, "/api/reports", admin, fiber.Map{
		"type": "moderator", "content_type": "post", "content_id": postID, "content": "spam",
	})
	require.Equal(t, http.StatusOK, status, res.ErrorKind)
	reportID := payloadNumber(t, res, "report_id")

	status, res = ts.do(t, http.MethodPost, "/api/reports/claim", target, fiber.Map{"type": "moderator"})
	assert.Equal(t, http.StatusForbidden, status, res.ErrorKind)

	status, res = ts.do(t, http.MethodPost, "/api/reports/claim", mod, fiber.Map{"type": "moderator"})
	require.Equal(t, http.StatusOK, status, res.ErrorKind)
	claimed := res.Payload.(map[string]any)
	assert.Equal(t, float64(reportID), claimed["report"].(map[string]any)["report_id"])
	assert.Equal(t, "bait", claimed["post"].(map[string]any)["title"])

	status, res = ts.do(t, http.MethodPost, fmt.Sprintf("/api/reports/%d/resolve", reportID), mod, nil)
	require.Equal(t, http.StatusOK, status, res.ErrorKind)

	status, res = ts.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/ban", targetID), mod, fiber.Map{"reason": "spam", "days": 3})
	require.Equal(t, http.StatusOK, status, res.ErrorKind)

	status, res = ts.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/ban", targetID), "", nil)
	require.Equal(t, http.StatusOK, status, res.ErrorKind)
	assert.Equal(t, "spam", res.Payload.(map[string]any)["reason"])

	status, res = ts.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"username": "troll", "password": "secret"})
	assert.Equal(t, http.StatusForbidden, status, res.ErrorKind)

	status, res = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d/ban", targetID), mod, nil)
	require.Equal(t, http.StatusOK, status, res.ErrorKind)
	status, _ = ts.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"username": "troll", "password": "secret"})
	assert.Equal(t, http.StatusOK, status)
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t, nil)
	_, admin := ts.signup(t, "root", true)
	_, user := ts.signup(t, "kasia", false)

	status, _ := ts.do(t, http.MethodGet, "/api/admin/feature-flags", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = ts.do(t, http.MethodGet, "/api/admin/feature-flags", user, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, res := ts.do(t, http.MethodGet, "/api/admin/feature-flags", admin, nil)
	require.Equal(t, http.StatusOK, status)
	flags := res.Payload.(map[string]any)
	assert.Equal(t, "on", flags["rules"].(map[string]any)["notifications"])
	assert.Equal(t, true, flags["enabled"].(map[string]any)["notifications"])

	status, res = ts.do(t, http.MethodPut, "/api/settings", user, fiber.Map{"unlisted_threshold": -3})
	assert.Equal(t, http.StatusForbidden, status, res.ErrorKind)
	status, res = ts.do(t, http.MethodPut, "/api/settings", admin, fiber.Map{
		"starting_reputation": 5, "unlisted_threshold": -3, "auto_report_enabled": false, "auto_report_threshold": -30,
	})
	require.Equal(t, http.StatusOK, status, res.ErrorKind)
	status, res = ts.do(t, http.MethodGet, "/api/settings", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(5), res.Payload.(map[string]any)["starting_reputation"])

	status, res = ts.do(t, http.MethodGet, "/api/auth/status?role=admin", user, nil)
	assert.Equal(t, http.StatusUnauthorized, status, res.ErrorKind)
	status, res = ts.do(t, http.MethodGet, "/api/auth/status?role=admin", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "active", res.Payload.(map[string]any)["status"])
}

func TestSearchPlace(t *testing.T) {
	ts := newTestServer(t, nil)
	status, res := ts.do(t, http.MethodGet, "/api/search/places?q=kato", "", nil)
	require.Equal(t, http.StatusOK, status, res.ErrorKind)
	places := res.Payload.([]any)
	require.Len(t, places, 1)
	assert.Equal(t, "Katowice", places[0].(map[string]any)["description"])
}
