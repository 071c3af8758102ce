package service

import (
	"context"
	"math"
	"testing"
	"time"

	"geosm/internal/graph"
	"geosm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postIDs(views []models.PostView) []uint {
	out := make([]uint, len(views))
	for i, v := range views {
		out[i] = v.PostID
	}
	return out
}

func TestGetPosts_Ordering(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, author := h.user(t, "author")
	_, a := h.user(t, "a")
	_, b := h.user(t, "b")

	stale := h.post(t, author, "yesterday's news")
	h.advance(25 * time.Hour)
	p1 := h.post(t, author, "one")
	h.advance(time.Minute)
	p2 := h.post(t, author, "two")
	h.advance(time.Minute)
	p3 := h.post(t, author, "three")

	require.NoError(t, h.content.Vote(ctx, a, p1, models.VoteUp))
	require.NoError(t, h.content.Vote(ctx, b, p1, models.VoteUp))
	require.NoError(t, h.content.Vote(ctx, a, p3, models.VoteUp))
	require.NoError(t, h.content.Vote(ctx, a, stale, models.VoteUp))
	require.NoError(t, h.content.Vote(ctx, b, stale, models.VoteUp))

	newest, err := h.feed.GetPosts(ctx, FeedInput{})
	require.NoError(t, err)
	assert.Equal(t, []uint{p3, p2, p1, stale}, postIDs(newest))

	best, err := h.feed.GetPosts(ctx, FeedInput{View: graph.FeedBest24})
	require.NoError(t, err)
	assert.Equal(t, []uint{p1, p3, p2}, postIDs(best))
}

func TestGetPosts_Best24SameAge(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, author := h.user(t, "author")
	_, voter := h.user(t, "voter")

	p1 := h.post(t, author, "#1")
	p2 := h.post(t, author, "#2")
	p3 := h.post(t, author, "#3")
	require.NoError(t, h.content.Vote(ctx, voter, p1, models.VoteUp))
	require.NoError(t, h.content.Vote(ctx, voter, p2, models.VoteDown))

	best, err := h.feed.GetPosts(ctx, FeedInput{View: graph.FeedBest24})
	require.NoError(t, err)
	require.Equal(t, []uint{p1, p3, p2}, postIDs(best))
	assert.Equal(t, []int{1, 0, -1}, []int{best[0].Counter, best[1].Counter, best[2].Counter})
}

func TestGetPosts_Filters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, kasia := h.user(t, "kasia")
	_, piotr := h.user(t, "piotr")

	spodek, err := h.content.CreatePost(ctx, kasia, CreatePostInput{
		Title: "Spodek", Tags: []string{"music"},
		Location: &models.GeoPoint{Latitude: 50.2661, Longitude: 19.0253},
	})
	require.NoError(t, err)
	krakow, err := h.content.CreatePost(ctx, piotr, CreatePostInput{
		Title: "Wawel", Tags: []string{"history"},
		Location: &models.GeoPoint{Latitude: 50.0540, Longitude: 19.9354},
	})
	require.NoError(t, err)
	plain := h.post(t, kasia, "no place", "music")

	tagged, err := h.feed.GetPosts(ctx, FeedInput{Tags: []string{" MUSIC "}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{spodek, plain}, postIDs(tagged))

	byAuthor, err := h.feed.GetPosts(ctx, FeedInput{AuthorUsername: "piotr"})
	require.NoError(t, err)
	assert.Equal(t, []uint{krakow}, postIDs(byAuthor))

	excluded, err := h.feed.GetPosts(ctx, FeedInput{ExcludeIDs: []uint{plain, spodek}})
	require.NoError(t, err)
	assert.Equal(t, []uint{krakow}, postIDs(excluded))

	katowice := &models.GeoPoint{Latitude: 50.2649, Longitude: 19.0238}
	near, err := h.feed.GetPosts(ctx, FeedInput{Location: katowice})
	require.NoError(t, err)
	assert.Equal(t, []uint{spodek}, postIDs(near), "default radius excludes Krakow")

	wide, err := h.feed.GetPosts(ctx, FeedInput{Location: katowice, RadiusMeters: 100_000})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{spodek, krakow}, postIDs(wide))

	_, err = h.feed.GetPosts(ctx, FeedInput{View: "hot"})
	requireKind(t, err, models.CodeValidation)
	_, err = h.feed.GetPosts(ctx, FeedInput{Location: &models.GeoPoint{Latitude: -95}})
	requireKind(t, err, models.CodeValidation)
	_, err = h.feed.GetPosts(ctx, FeedInput{Location: &models.GeoPoint{Latitude: math.NaN(), Longitude: 19}})
	requireKind(t, err, models.CodeValidation)
}

func TestGetPosts_PageSize(t *testing.T) {
	h := newHarness(t)
	_, token := h.user(t, "kasia")
	for range graph.FeedPageSize + 5 {
		h.post(t, token, "spam")
		h.advance(time.Second)
	}
	page, err := h.feed.GetPosts(context.Background(), FeedInput{})
	require.NoError(t, err)
	assert.Len(t, page, graph.FeedPageSize)

	next, err := h.feed.GetPosts(context.Background(), FeedInput{ExcludeIDs: postIDs(page)})
	require.NoError(t, err)
	assert.Len(t, next, 5)
}

func TestGetPosts_CallerRelations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, author := h.user(t, "author")
	voterID, voter := h.user(t, "voter")
	liked := h.post(t, author, "liked")
	disliked := h.post(t, author, "disliked")
	untouched := h.post(t, author, "untouched")
	require.NoError(t, h.content.Vote(ctx, voter, liked, models.VoteUp))
	require.NoError(t, h.content.Vote(ctx, voter, disliked, models.VoteDown))

	views, err := h.feed.GetPosts(ctx, FeedInput{Token: voter})
	require.NoError(t, err)
	got := map[uint]models.Relation{}
	for _, v := range views {
		got[v.PostID] = v.Relation
	}
	assert.Equal(t, models.RelationLiked, got[liked])
	assert.Equal(t, models.RelationDisliked, got[disliked])
	assert.Equal(t, models.RelationNone, got[untouched])

	_, err = h.feed.GetPosts(ctx, FeedInput{Token: "bogus"})
	requireKind(t, err, models.CodeUnauthorized)

	h.setStatus(t, voterID, models.StatusBanned)
	_, err = h.feed.GetPosts(ctx, FeedInput{Token: voter})
	requireKind(t, err, models.CodeForbidden)
}
