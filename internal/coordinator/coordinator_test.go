package coordinator

import (
	"context"
	"errors"
	"testing"

	"geosm/internal/models"
	"geosm/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newCoordinator(t *testing.T) (*Coordinator, *testutil.RelStore, *testutil.GraphStore, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	rel := testutil.NewRelStore()
	g := testutil.NewGraphStore()
	return New(rel, g, zap.New(core)), rel, g, logs
}

func seedUser(ctx context.Context, u *Unit) error {
	user := &models.User{Username: "kasia", Password: "x"}
	if err := u.Rel.Users().Create(ctx, user); err != nil {
		return err
	}
	return u.Graph.CreateUser(ctx, models.GraphUser{UserID: user.UserID, Username: user.Username})
}

func TestRun_CommitsBothStores(t *testing.T) {
	c, rel, g, _ := newCoordinator(t)
	ctx := context.Background()

	require.NoError(t, c.Run(ctx, "seed", Both, seedUser))

	_, ok := rel.User(1)
	assert.True(t, ok)
	_, ok = g.User(1)
	assert.True(t, ok)
	assert.Equal(t, 1, rel.Commits)
	assert.Equal(t, 1, g.Commits)
	assert.EqualValues(t, 1, g.Closes.Load())
}

func TestRun_OnlyOpensRequestedStores(t *testing.T) {
	c, rel, g, _ := newCoordinator(t)

	err := c.Run(context.Background(), "rel only", Relational, func(_ context.Context, u *Unit) error {
		assert.NotNil(t, u.Rel)
		assert.Nil(t, u.Graph)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rel.Commits)
	assert.Zero(t, g.Commits)
	assert.Zero(t, g.Closes.Load())

	err = c.Run(context.Background(), "graph only", Graph, func(_ context.Context, u *Unit) error {
		assert.Nil(t, u.Rel)
		assert.NotNil(t, u.Graph)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Commits)
}

func TestRun_WorkErrorRollsBackBoth(t *testing.T) {
	c, rel, g, _ := newCoordinator(t)
	ctx := context.Background()

	err := c.Run(ctx, "fails", Both, func(ctx context.Context, u *Unit) error {
		if err := seedUser(ctx, u); err != nil {
			return err
		}
		return models.NewForbiddenError("nope")
	})
	assert.True(t, models.IsKind(err, models.CodeForbidden))

	_, ok := rel.User(1)
	assert.False(t, ok)
	_, ok = g.User(1)
	assert.False(t, ok)
	assert.Equal(t, 1, rel.Rollbacks)
	assert.Equal(t, 1, g.Rollbacks)
	assert.EqualValues(t, 1, g.Closes.Load())
}

func TestRun_PlainErrorBecomesStoreError(t *testing.T) {
	c, _, _, _ := newCoordinator(t)
	err := c.Run(context.Background(), "plain", Relational, func(context.Context, *Unit) error {
		return errors.New("boom")
	})
	assert.True(t, models.IsKind(err, models.CodeStore))
}

func TestRun_GraphCommitFailureIsPartialCommit(t *testing.T) {
	c, rel, g, logs := newCoordinator(t)
	g.CommitErr = errors.New("leader lost")

	err := c.Run(context.Background(), "activate", Both, seedUser)
	assert.True(t, models.IsKind(err, models.CodePartialCommit))

	_, ok := rel.User(1)
	assert.True(t, ok, "relational side stays committed")
	_, ok = g.User(1)
	assert.False(t, ok)
	assert.EqualValues(t, 1, g.Closes.Load())

	entries := logs.FilterMessageSnippet("partial commit").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Equal(t, "activate", entries[0].ContextMap()["op"])
}

func TestRun_GraphOnlyCommitFailureIsStoreError(t *testing.T) {
	c, _, g, _ := newCoordinator(t)
	g.CommitErr = errors.New("leader lost")

	err := c.Run(context.Background(), "vote", Graph, func(context.Context, *Unit) error { return nil })
	assert.True(t, models.IsKind(err, models.CodeStore))
}

func TestRun_RelationalCommitFailureRollsBackGraph(t *testing.T) {
	c, rel, g, _ := newCoordinator(t)
	rel.CommitErr = errors.New("serialization failure")

	err := c.Run(context.Background(), "create", Both, seedUser)
	assert.True(t, models.IsKind(err, models.CodeStore))
	_, ok := g.User(1)
	assert.False(t, ok)
	assert.Equal(t, 1, g.Rollbacks)
	assert.Zero(t, g.Commits)
}

func TestRun_BeginFailures(t *testing.T) {
	c, rel, g, _ := newCoordinator(t)

	rel.BeginErr = errors.New("pool exhausted")
	called := false
	err := c.Run(context.Background(), "x", Both, func(context.Context, *Unit) error {
		called = true
		return nil
	})
	assert.True(t, models.IsKind(err, models.CodeStore))
	assert.False(t, called)

	g.BeginErr = errors.New("no route")
	err = c.Run(context.Background(), "x", Both, func(context.Context, *Unit) error {
		called = true
		return nil
	})
	assert.True(t, models.IsKind(err, models.CodeStore))
	assert.False(t, called)
	assert.Equal(t, 1, rel.Rollbacks, "opened relational tx is released")

	// Both stores are usable again.
	require.NoError(t, c.Run(context.Background(), "x", Both, func(context.Context, *Unit) error { return nil }))
}

func TestNeeds_String(t *testing.T) {
	assert.Equal(t, "relational", Relational.String())
	assert.Equal(t, "graph", Graph.String())
	assert.Equal(t, "both", Both.String())
	assert.Equal(t, "none", Needs(0).String())
}
