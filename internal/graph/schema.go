package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// schemaStatements are idempotent; schema commands cannot share a
// transaction with data writes, so each runs in auto-commit mode.
var schemaStatements = []struct {
	name  string
	query string
}{
	{"user id unique", `CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.userId IS UNIQUE`},
	{"post id unique", `CREATE CONSTRAINT post_id_unique IF NOT EXISTS FOR (p:Post) REQUIRE p.postId IS UNIQUE`},
	{"comment id unique", `CREATE CONSTRAINT comment_id_unique IF NOT EXISTS FOR (c:Comment) REQUIRE c.commentId IS UNIQUE`},
	{"tag name unique", `CREATE CONSTRAINT tag_name_unique IF NOT EXISTS FOR (t:Tag) REQUIRE t.name IS UNIQUE`},
	{"user username index", `CREATE INDEX user_username IF NOT EXISTS FOR (u:User) ON (u.username)`},
	{"post title index", `CREATE INDEX post_title IF NOT EXISTS FOR (p:Post) ON (p.title)`},
	{"post date index", `CREATE INDEX post_date IF NOT EXISTS FOR (p:Post) ON (p.date)`},
	{"post location index", `CREATE POINT INDEX post_location IF NOT EXISTS FOR (p:Post) ON (p.location)`},
}

// EnsureSchema creates the graph constraints and indexes.
func EnsureSchema(ctx context.Context, driver neo4j.DriverWithContext, database string, log *zap.Logger) error {
	session := driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: database,
	})
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		result, err := session.Run(ctx, stmt.query, nil)
		if err != nil {
			return fmt.Errorf("failed to apply %s: %w", stmt.name, err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("failed to apply %s: %w", stmt.name, err)
		}
		log.Info("graph schema applied", zap.String("statement", stmt.name))
	}
	return nil
}
