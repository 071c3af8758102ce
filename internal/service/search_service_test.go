package service

import (
	"context"
	"testing"

	"geosm/internal/geo"
	"geosm/internal/models"
	"geosm/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hitLabels(hits []models.SearchHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Label
	}
	return out
}

func TestSearch_TierCascade(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, token := h.user(t, "kasia")
	for _, title := range []string{"Old Katowice", "Katowice Spodek", "Gliwice", "Katowice"} {
		h.post(t, token, title)
	}

	hits, err := h.search.Search(ctx, models.SearchPosts, "  Katowice ", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Katowice", "Katowice Spodek", "Old Katowice"}, hitLabels(hits))
	assert.Equal(t, models.MatchExact, hits[0].Tier)
	assert.Equal(t, models.MatchPrefix, hits[1].Tier)
	assert.Equal(t, models.MatchSubstring, hits[2].Tier)

	hits, err = h.search.Search(ctx, models.SearchPosts, "Katowice", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Katowice", "Katowice Spodek"}, hitLabels(hits))

	hits, err = h.search.Search(ctx, models.SearchPosts, "Katowice", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Katowice"}, hitLabels(hits))
}

func TestSearch_KeysAreUnique(t *testing.T) {
	h := newHarness(t)
	_, token := h.user(t, "kat")
	h.user(t, "katarzyna")
	h.user(t, "akat")
	h.post(t, token, "t", "kat", "katowice")

	users, err := h.search.Search(context.Background(), models.SearchUsers, "kat", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"kat", "katarzyna", "akat"}, hitLabels(users))
	seen := map[string]bool{}
	for _, hit := range users {
		assert.False(t, seen[hit.Key], "duplicate %s", hit.Key)
		seen[hit.Key] = true
		assert.NotZero(t, hit.ID)
	}

	tags, err := h.search.Search(context.Background(), models.SearchTags, "kat", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"kat", "katowice"}, hitLabels(tags))
	assert.Equal(t, "katowice", tags[1].Key)
}

func TestSearch_UnlistedPostsAreFlagged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, admin := h.staff(t, "root", models.RoleAdmin)
	require.NoError(t, h.settings.UpdateSettings(ctx, admin, models.Settings{UnlistedThreshold: 0, AutoReportThreshold: -100}))
	_, token := h.user(t, "newbie")
	h.post(t, token, "hidden gem")

	hits, err := h.search.Search(ctx, models.SearchPosts, "hidden", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.True(t, hits[0].Unlisted)
}

func TestSearch_Validation(t *testing.T) {
	h := newHarness(t)
	_, err := h.search.Search(context.Background(), models.SearchPosts, "   ", 10)
	requireKind(t, err, models.CodeValidation)
	_, err = h.search.Search(context.Background(), "place", "x", 10)
	requireKind(t, err, models.CodeValidation)
}

func TestSearchPlace(t *testing.T) {
	h := newHarness(t)
	h.search.places = testutil.StaticGeo{Places: []geo.Place{
		{Description: "Katowice, Silesia", Latitude: 50.26, Longitude: 19.02},
		{Description: "Katowice, Silesia", Latitude: 50.27, Longitude: 19.03},
		{Description: "Katowice Airport", Latitude: 50.47, Longitude: 19.08},
		{Description: "Gliwice", Latitude: 50.29, Longitude: 18.67},
	}}

	places, err := h.search.SearchPlace(context.Background(), "katowice")
	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, "Katowice, Silesia", places[0].Description)
	assert.InDelta(t, 50.26, places[0].Latitude, 1e-9)

	_, err = h.search.SearchPlace(context.Background(), " ")
	requireKind(t, err, models.CodeValidation)
}
