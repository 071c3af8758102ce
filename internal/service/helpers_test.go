package service

import (
	"context"
	"testing"
	"time"

	"geosm/internal/coordinator"
	"geosm/internal/models"
	"geosm/internal/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// harness wires every engine over the in-memory stores with a pinned clock.
type harness struct {
	rel    *testutil.RelStore
	graph  *testutil.GraphStore
	coord  *coordinator.Coordinator
	sender *testutil.RecordingSender
	now    time.Time

	platform   models.PlatformDefaults
	settings   *SettingsService
	identity   *IdentityService
	content    *ContentService
	search     *SearchService
	feed       *FeedService
	moderation *ModerationService
	sweep      *SweepService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		rel:      testutil.NewRelStore(),
		graph:    testutil.NewGraphStore(),
		sender:   &testutil.RecordingSender{},
		now:      time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC),
		platform: models.DefaultPlatform(),
	}
	log := zaptest.NewLogger(t)
	h.coord = coordinator.New(h.rel, h.graph, log)
	clk := clock{now: func() time.Time { return h.now }}

	h.settings = NewSettingsService(h.coord, nil, h.platform.Settings, log)
	h.identity = NewIdentityService(h.coord, testutil.PlainHasher{}, testutil.StaticCaptcha{}, h.sender, h.settings, nil, h.platform, log)
	h.identity.clock = clk
	h.content = NewContentService(h.coord, h.settings, log)
	h.content.clock = clk
	h.search = NewSearchService(h.coord, testutil.StaticGeo{})
	h.feed = NewFeedService(h.coord, h.platform)
	h.feed.clock = clk
	h.moderation = NewModerationService(h.coord, h.platform, log)
	h.moderation.clock = clk
	h.sweep = NewSweepService(h.coord, log)
	return h
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

// user registers and activates username and returns its id and a token.
func (h *harness) user(t *testing.T, username string) (uint, string) {
	t.Helper()
	ctx := context.Background()
	id, err := h.identity.Register(ctx, RegisterInput{Username: username, Password: "secret"}, false)
	require.NoError(t, err)
	require.NoError(t, h.identity.Activate(ctx, id))
	token, err := h.identity.Login(ctx, id)
	require.NoError(t, err)
	return id, token
}

// staff is user with role set directly in the store.
func (h *harness) staff(t *testing.T, username string, role models.Role) (uint, string) {
	t.Helper()
	id, token := h.user(t, username)
	h.setRole(t, id, role)
	return id, token
}

func (h *harness) setRole(t *testing.T, id uint, role models.Role) {
	t.Helper()
	err := h.coord.Run(context.Background(), "test_set_role", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		return u.Rel.Users().UpdateRole(ctx, id, role)
	})
	require.NoError(t, err)
}

func (h *harness) setStatus(t *testing.T, id uint, status models.UserStatus) {
	t.Helper()
	err := h.coord.Run(context.Background(), "test_set_status", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		return u.Rel.Users().SetStatus(ctx, id, status)
	})
	require.NoError(t, err)
}

func (h *harness) post(t *testing.T, token, title string, tags ...string) uint {
	t.Helper()
	id, err := h.content.CreatePost(context.Background(), token, CreatePostInput{Title: title, Content: "body", Tags: tags})
	require.NoError(t, err)
	return id
}

func requireKind(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, models.KindOf(err), "error: %v", err)
}
