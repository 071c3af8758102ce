package graph

import (
	"context"

	"geosm/internal/models"
)

// SetFact deletes the post's current fact, if any, and attaches a new one.
func (r *repository) SetFact(ctx context.Context, postID uint, content string) error {
	query := `
		MATCH (p:Post {postId: $postId})
		OPTIONAL MATCH (old:Fact)-[:ABOUT]->(p)
		DETACH DELETE old
		WITH DISTINCT p
		CREATE (:Fact {content: $content})-[:ABOUT]->(p)
		RETURN p.postId AS postId
	`
	_, err := r.single(ctx, "set fact", query, map[string]any{
		"postId":  int64(postID),
		"content": content,
	}, "Post", postID)
	return err
}

func (r *repository) DeleteFact(ctx context.Context, postID uint) error {
	query := `
		MATCH (f:Fact)-[:ABOUT]->(:Post {postId: $postId})
		DETACH DELETE f
		RETURN count(f) AS deleted
	`
	record, err := r.single(ctx, "delete fact", query, map[string]any{"postId": int64(postID)}, "Fact", postID)
	if err != nil {
		return err
	}
	if getIntFromRecord(record, "deleted") == 0 {
		return models.NewNotFoundError("Fact", postID)
	}
	return nil
}

func (r *repository) GetFact(ctx context.Context, postID uint) (string, error) {
	query := `
		MATCH (f:Fact)-[:ABOUT]->(:Post {postId: $postId})
		RETURN f.content AS content
		LIMIT 1
	`
	record, err := r.single(ctx, "get fact", query, map[string]any{"postId": int64(postID)}, "Fact", postID)
	if err != nil {
		return "", err
	}
	return getStringFromRecord(record, "content"), nil
}
