package graph

import (
	"context"

	"geosm/internal/models"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const commentProjection = `
	RETURN c.commentId AS commentId, p.postId AS postId, c.authorId AS authorId,
		u.username AS author, c.content AS content, c.date AS date
`

func commentFromRecord(record *neo4j.Record) models.Comment {
	return models.Comment{
		CommentID: getUintFromRecord(record, "commentId"),
		PostID:    getUintFromRecord(record, "postId"),
		AuthorID:  getUintFromRecord(record, "authorId"),
		Author:    getStringFromRecord(record, "author"),
		Content:   getStringFromRecord(record, "content"),
		Date:      getTimeFromRecord(record, "date"),
	}
}

// CreateComment links a new comment to its post and author.
func (r *repository) CreateComment(ctx context.Context, comment models.Comment) error {
	query := `
		MATCH (u:User {userId: $authorId})
		MATCH (p:Post {postId: $postId})
		CREATE (u)-[:IS_AUTHOR]->(c:Comment {
			commentId: $commentId,
			authorId: $authorId,
			content: $content,
			date: $date
		})<-[:HAS_COMMENT]-(p)
		RETURN c.commentId AS commentId
	`
	_, err := r.single(ctx, "create comment", query, map[string]any{
		"commentId": int64(comment.CommentID),
		"postId":    int64(comment.PostID),
		"authorId":  int64(comment.AuthorID),
		"content":   comment.Content,
		"date":      toMillis(comment.Date),
	}, "Post", comment.PostID)
	return err
}

func (r *repository) GetComment(ctx context.Context, commentID uint) (*models.Comment, error) {
	query := `
		MATCH (p:Post)-[:HAS_COMMENT]->(c:Comment {commentId: $commentId})<-[:IS_AUTHOR]-(u:User)
	` + commentProjection
	record, err := r.single(ctx, "get comment", query, map[string]any{"commentId": int64(commentID)}, "Comment", commentID)
	if err != nil {
		return nil, err
	}
	comment := commentFromRecord(record)
	return &comment, nil
}

// ListComments returns a post's comments oldest first.
func (r *repository) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	query := `
		MATCH (p:Post {postId: $postId})-[:HAS_COMMENT]->(c:Comment)<-[:IS_AUTHOR]-(u:User)
		WITH p, c, u
		ORDER BY c.date ASC, c.commentId ASC
	` + commentProjection
	records, err := r.exec(ctx, "list comments", query, map[string]any{"postId": int64(postID)})
	if err != nil {
		return nil, err
	}
	comments := make([]models.Comment, 0, len(records))
	for _, record := range records {
		comments = append(comments, commentFromRecord(record))
	}
	return comments, nil
}

func (r *repository) DeleteComment(ctx context.Context, commentID uint) error {
	query := `
		MATCH (c:Comment {commentId: $commentId})
		DETACH DELETE c
		RETURN count(c) AS deleted
	`
	record, err := r.single(ctx, "delete comment", query, map[string]any{"commentId": int64(commentID)}, "Comment", commentID)
	if err != nil {
		return err
	}
	if getIntFromRecord(record, "deleted") == 0 {
		return models.NewNotFoundError("Comment", commentID)
	}
	return nil
}
