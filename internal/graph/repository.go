package graph

import (
	"context"
	"fmt"

	"geosm/internal/models"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Repository is the set of graph operations available inside a Tx.
type Repository interface {
	CreateUser(ctx context.Context, user models.GraphUser) error
	GetUser(ctx context.Context, userID uint) (*models.GraphUser, error)
	// UpdateAvatar sets the avatar and returns the previous one.
	UpdateAvatar(ctx context.Context, userID uint, avatar string) (string, error)
	// DeleteUser removes the user and everything they authored, reverting
	// their votes first. It returns the avatar and the post images so the
	// caller can clean up files.
	DeleteUser(ctx context.Context, userID uint) (avatar string, postImages []string, err error)

	CreatePost(ctx context.Context, post models.Post) error
	GetPost(ctx context.Context, postID uint) (*models.Post, error)
	// DeletePost removes the post with its comments and fact and returns its image.
	DeletePost(ctx context.Context, postID uint) (string, error)

	Relation(ctx context.Context, userID, postID uint) (models.Relation, error)
	// Relations returns the caller's vote state on each post in one query.
	// Posts without a vote are RelationNone.
	Relations(ctx context.Context, userID uint, postIDs []uint) (map[uint]models.Relation, error)
	Vote(ctx context.Context, userID, postID uint, op models.VoteOp) error

	CreateComment(ctx context.Context, comment models.Comment) error
	GetComment(ctx context.Context, commentID uint) (*models.Comment, error)
	ListComments(ctx context.Context, postID uint) ([]models.Comment, error)
	DeleteComment(ctx context.Context, commentID uint) error

	// SetFact replaces the fact attached to a post.
	SetFact(ctx context.Context, postID uint, content string) error
	DeleteFact(ctx context.Context, postID uint) error
	GetFact(ctx context.Context, postID uint) (string, error)

	Search(ctx context.Context, q SearchQuery) ([]models.SearchHit, error)
	Feed(ctx context.Context, filter FeedFilter) ([]models.Post, error)
}

type repository struct {
	run runner
}

// exec runs one statement and wraps driver failures as store errors.
func (r *repository) exec(ctx context.Context, op, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	records, err := r.run.Run(ctx, cypher, params)
	if err != nil {
		return nil, models.NewStoreError(fmt.Errorf("failed to %s: %w", op, err))
	}
	return records, nil
}

// single runs a statement expected to yield at most one row. A missing row
// becomes NotFound for resource.
func (r *repository) single(ctx context.Context, op, cypher string, params map[string]any, resource string, id interface{}) (*neo4j.Record, error) {
	records, err := r.exec(ctx, op, cypher, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, models.NewNotFoundError(resource, id)
	}
	return records[0], nil
}
