package graph

import (
	"context"
	"os"
	"testing"
	"time"

	"geosm/internal/models"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// createTestDriver requires a running Neo4j instance.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD environment variables.
func createTestDriver(t *testing.T) neo4j.DriverWithContext {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI not set")
	}
	driver, err := Connect(context.Background(), Config{
		URI:      uri,
		User:     os.Getenv("NEO4J_USER"),
		Password: os.Getenv("NEO4J_PASSWORD"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close(context.Background()) })
	return driver
}

func TestNeo4jStore_VoteRoundTrip(t *testing.T) {
	driver := createTestDriver(t)
	ctx := context.Background()
	require.NoError(t, EnsureSchema(ctx, driver, "", zap.NewNop()))

	store := NewStore(driver, "")
	base := uint(time.Now().UnixNano() % 1_000_000_000)
	author := models.GraphUser{UserID: base + 1, Username: "it-author", Avatar: "core/user.png"}
	voter := models.GraphUser{UserID: base + 2, Username: "it-voter", Avatar: "core/user.png"}

	t.Cleanup(func() {
		tx, err := store.Begin(ctx)
		if err != nil {
			return
		}
		defer tx.Close(ctx)
		_, _, _ = tx.DeleteUser(ctx, voter.UserID)
		_, _, _ = tx.DeleteUser(ctx, author.UserID)
		_ = tx.Commit(ctx)
	})

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateUser(ctx, author))
	require.NoError(t, tx.CreateUser(ctx, voter))
	require.NoError(t, tx.CreatePost(ctx, models.Post{
		PostID: base + 10, AuthorID: author.UserID, Date: time.Now(), Title: "Katowice",
		Tags: []string{"it-tag"}, Location: &models.GeoPoint{Latitude: 50.26, Longitude: 19.02},
	}))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Close(ctx))

	ops := []struct {
		op       models.VoteOp
		counter  int
		relation models.Relation
	}{
		{models.VoteDown, -1, models.RelationDisliked},
		{models.VoteUp, 1, models.RelationLiked},
		{models.VoteUp, 1, models.RelationLiked},
		{models.VoteUpOff, 0, models.RelationNone},
	}
	for _, step := range ops {
		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Vote(ctx, voter.UserID, base+10, step.op))
		post, err := tx.GetPost(ctx, base+10)
		require.NoError(t, err)
		rel, err := tx.Relation(ctx, voter.UserID, base+10)
		require.NoError(t, err)
		require.NoError(t, tx.Commit(ctx))
		require.NoError(t, tx.Close(ctx))

		assert.Equal(t, step.counter, post.Counter, "after %s", step.op)
		assert.Equal(t, step.relation, rel, "after %s", step.op)
	}
}
