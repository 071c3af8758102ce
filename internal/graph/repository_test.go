package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"geosm/internal/models"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	cypher string
	params map[string]any
}

// scriptedRunner returns queued results in order and records every call.
type scriptedRunner struct {
	calls   []recordedCall
	results [][]*neo4j.Record
	err     error
}

func (s *scriptedRunner) Run(_ context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	s.calls = append(s.calls, recordedCall{cypher: cypher, params: params})
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) == 0 {
		return nil, nil
	}
	next := s.results[0]
	s.results = s.results[1:]
	return next, nil
}

func record(kv ...any) *neo4j.Record {
	r := &neo4j.Record{}
	for i := 0; i+1 < len(kv); i += 2 {
		r.Keys = append(r.Keys, kv[i].(string))
		r.Values = append(r.Values, kv[i+1])
	}
	return r
}

func TestVote_Statements(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		op        models.VoteOp
		wantCalls int
		dropEdge  string
		undo      int64
		keepEdge  string
		delta     int64
	}{
		{"upvote", models.VoteUp, 2, "DISLIKE", 1, "LIKE", 1},
		{"downvote", models.VoteDown, 2, "LIKE", -1, "DISLIKE", -1},
		{"upvote off", models.VoteUpOff, 1, "LIKE", -1, "", 0},
		{"downvote off", models.VoteDownOff, 1, "DISLIKE", 1, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := &scriptedRunner{results: [][]*neo4j.Record{
				{record("removed", int64(0))},
				{record("counter", int64(1))},
			}}
			repo := &repository{run: run}

			require.NoError(t, repo.Vote(ctx, 3, 9, tt.op))
			require.Len(t, run.calls, tt.wantCalls)

			drop := run.calls[0]
			assert.Contains(t, drop.cypher, "[e:"+tt.dropEdge+"]")
			assert.Contains(t, drop.cypher, "SET p._lock = true")
			assert.Equal(t, tt.undo, drop.params["undo"])
			assert.Equal(t, int64(9), drop.params["postId"])

			if tt.keepEdge != "" {
				keep := run.calls[1]
				assert.Contains(t, keep.cypher, "MERGE (u)-[:"+tt.keepEdge+"]->(p)")
				assert.Equal(t, tt.delta, keep.params["delta"])
			}
		})
	}
}

func TestVote_MissingPost(t *testing.T) {
	run := &scriptedRunner{}
	repo := &repository{run: run}

	err := repo.Vote(context.Background(), 1, 404, models.VoteUp)
	assert.True(t, models.IsKind(err, models.CodeNotFound))
	assert.Len(t, run.calls, 1)
}

func TestVote_UnknownOp(t *testing.T) {
	repo := &repository{run: &scriptedRunner{}}
	err := repo.Vote(context.Background(), 1, 1, models.VoteOp("sideways"))
	assert.True(t, models.IsKind(err, models.CodeValidation))
}

func TestExec_WrapsDriverErrors(t *testing.T) {
	repo := &repository{run: &scriptedRunner{err: errors.New("connection refused")}}
	_, err := repo.GetUser(context.Background(), 1)
	assert.True(t, models.IsKind(err, models.CodeStore))
}

func TestPostFromRecord(t *testing.T) {
	date := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	fact := "verified"
	rec := record(
		"postId", int64(12),
		"authorId", int64(3),
		"author", "kasia",
		"date", date.UnixMilli(),
		"title", "Katowice",
		"content", "Spodek at night",
		"img", "p12.webp",
		"counter", int64(-2),
		"blockSearchEngines", true,
		"lat", 50.2649,
		"lng", 19.0238,
		"tags", []any{"silesia", "city"},
		"fact", fact,
	)

	post := postFromRecord(rec)
	assert.Equal(t, uint(12), post.PostID)
	assert.Equal(t, "kasia", post.Author)
	assert.True(t, post.Date.Equal(date))
	assert.Equal(t, -2, post.Counter)
	assert.True(t, post.BlockSearchEngines)
	assert.Equal(t, []string{"city", "silesia"}, post.Tags)
	require.NotNil(t, post.Location)
	assert.InDelta(t, 50.2649, post.Location.Latitude, 1e-9)
	require.NotNil(t, post.Fact)
	assert.Equal(t, fact, *post.Fact)

	bare := postFromRecord(record("postId", int64(1), "lat", nil, "lng", nil, "fact", nil))
	assert.Nil(t, bare.Location)
	assert.Nil(t, bare.Fact)
	assert.Empty(t, bare.Tags)
}

func TestCreatePost_Params(t *testing.T) {
	run := &scriptedRunner{results: [][]*neo4j.Record{{record("postId", int64(5))}}}
	repo := &repository{run: run}

	err := repo.CreatePost(context.Background(), models.Post{
		PostID:   5,
		AuthorID: 2,
		Title:    "t",
		Tags:     []string{"a", "b"},
		Location: &models.GeoPoint{Latitude: 1, Longitude: 2},
	})
	require.NoError(t, err)
	params := run.calls[0].params
	assert.Equal(t, []any{"a", "b"}, params["tags"])
	assert.Equal(t, 1.0, params["lat"])
	assert.Equal(t, 2.0, params["lng"])

	run = &scriptedRunner{}
	repo = &repository{run: run}
	err = repo.CreatePost(context.Background(), models.Post{PostID: 6, AuthorID: 99, Title: "t"})
	assert.True(t, models.IsKind(err, models.CodeNotFound), "missing author node")
	assert.Nil(t, run.calls[0].params["lat"])
}

func TestDeleteUser_OrderAndFiles(t *testing.T) {
	run := &scriptedRunner{results: [][]*neo4j.Record{
		{record("avatar", "u3.png", "images", []any{"a.webp", "b.webp"})},
	}}
	repo := &repository{run: run}

	avatar, images, err := repo.DeleteUser(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "u3.png", avatar)
	assert.Equal(t, []string{"a.webp", "b.webp"}, images)

	require.Len(t, run.calls, 1+len(deleteUserStatements))
	assert.Contains(t, run.calls[1].cypher, "[e:LIKE]")
	assert.Contains(t, run.calls[2].cypher, "[e:DISLIKE]")
	assert.Contains(t, run.calls[len(run.calls)-1].cypher, "MATCH (t:Tag)")
}

func TestRelation(t *testing.T) {
	tests := []struct {
		edge any
		want models.Relation
	}{
		{"LIKE", models.RelationLiked},
		{"DISLIKE", models.RelationDisliked},
		{nil, models.RelationNone},
	}
	for _, tt := range tests {
		run := &scriptedRunner{results: [][]*neo4j.Record{{record("rel", tt.edge)}}}
		got, err := (&repository{run: run}).Relation(context.Background(), 1, 2)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		match models.MatchMode
		op    string
	}{
		{models.MatchExact, "u.username = $text"},
		{models.MatchPrefix, "u.username STARTS WITH $text"},
		{models.MatchSubstring, "u.username CONTAINS $text"},
	}
	for _, tt := range tests {
		cypher, params, err := BuildSearchQuery(SearchQuery{
			Kind: models.SearchUsers, Match: tt.match, Text: "kat", Exclude: []string{"1"}, Limit: 4,
		})
		require.NoError(t, err)
		assert.Contains(t, cypher, tt.op)
		assert.NotContains(t, cypher, "ORDER BY")
		assert.Equal(t, []any{"1"}, params["exclude"])
		assert.Equal(t, int64(4), params["limit"])
	}

	cypher, _, err := BuildSearchQuery(SearchQuery{Kind: models.SearchTags, Match: models.MatchExact, Text: "x", Limit: 1})
	require.NoError(t, err)
	assert.Contains(t, cypher, "RETURN DISTINCT t.name")
	assert.Contains(t, cypher, "EXISTS { (:Post)-[:HAS_TAG]->(t) }")

	_, _, err = BuildSearchQuery(SearchQuery{Kind: "place", Match: models.MatchExact})
	assert.True(t, models.IsKind(err, models.CodeValidation))
}

func TestSearch_MapsHits(t *testing.T) {
	run := &scriptedRunner{results: [][]*neo4j.Record{{
		record("id", int64(8), "label", "Katowice", "unlisted", true),
	}}}
	hits, err := (&repository{run: run}).Search(context.Background(), SearchQuery{
		Kind: models.SearchPosts, Match: models.MatchPrefix, Text: "Kat", Limit: 3,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "8", hits[0].Key)
	assert.Equal(t, models.MatchPrefix, hits[0].Tier)
	assert.True(t, hits[0].Unlisted)

	hits, err = (&repository{run: run}).Search(context.Background(), SearchQuery{Kind: models.SearchPosts, Match: models.MatchExact, Limit: 0})
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Len(t, run.calls, 1, "zero budget must not hit the store")
}

func TestBuildFeedQuery(t *testing.T) {
	t.Run("new without filters", func(t *testing.T) {
		cypher, params := BuildFeedQuery(FeedFilter{View: FeedNew})
		assert.NotContains(t, cypher, "WHERE")
		assert.Contains(t, cypher, "ORDER BY p.date DESC, p.postId DESC")
		assert.Contains(t, cypher, "LIMIT $limit")
		assert.Equal(t, int64(20), params["limit"])
		assert.NotContains(t, params, "since")
	})

	t.Run("best24 with every predicate", func(t *testing.T) {
		now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
		cypher, params := BuildFeedQuery(FeedFilter{
			View:           FeedBest24,
			Tags:           []string{"city"},
			AuthorUsername: "kasia",
			ExcludeIDs:     []uint{4, 5},
			Location:       &models.GeoPoint{Latitude: 50, Longitude: 19},
			RadiusMeters:   2500,
			Now:            now,
		})

		fragments := []string{
			"EXISTS { MATCH (p)-[:HAS_TAG]->(t:Tag) WHERE t.name IN $tags }",
			"u.username = $author",
			"NOT p.postId IN $excludeIds",
			"point.distance(p.location, point({latitude: $lat, longitude: $lng})) <= $radius",
			"p.date >= $since",
			"ORDER BY p.counter DESC, p.date DESC",
		}
		last := -1
		for _, f := range fragments {
			idx := strings.Index(cypher, f)
			require.GreaterOrEqual(t, idx, 0, "missing %q", f)
			assert.Greater(t, idx, last, "%q out of order", f)
			last = idx
		}
		assert.Equal(t, 4, strings.Count(cypher, "\n  AND "))
		assert.Equal(t, now.Add(-24*time.Hour).UnixMilli(), params["since"])
		assert.Equal(t, []any{int64(4), int64(5)}, params["excludeIds"])
		assert.Equal(t, 2500.0, params["radius"])
	})
}

func TestRelations_SingleQuery(t *testing.T) {
	run := &scriptedRunner{results: [][]*neo4j.Record{{
		record("postId", int64(2), "rel", "LIKE"),
		record("postId", int64(5), "rel", "DISLIKE"),
	}}}
	got, err := (&repository{run: run}).Relations(context.Background(), 1, []uint{2, 3, 5})
	require.NoError(t, err)
	assert.Equal(t, map[uint]models.Relation{
		2: models.RelationLiked,
		3: models.RelationNone,
		5: models.RelationDisliked,
	}, got)
	require.Len(t, run.calls, 1)
	assert.Contains(t, run.calls[0].cypher, "UNWIND $postIds")
	assert.Equal(t, []any{int64(2), int64(3), int64(5)}, run.calls[0].params["postIds"])

	empty := &scriptedRunner{}
	got, err = (&repository{run: empty}).Relations(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, empty.calls)
}
