package repository

import (
	"context"

	"geosm/internal/models"

	"gorm.io/gorm"
)

// ContentRepository stores the relational shadow rows of graph posts and
// comments. The rows carry ids, ownership and cascades; content lives in the
// graph.
type ContentRepository interface {
	CreatePost(ctx context.Context, userID uint) (*models.PostRecord, error)
	GetPost(ctx context.Context, id uint) (*models.PostRecord, error)
	DeletePost(ctx context.Context, id uint) error
	CreateComment(ctx context.Context, postID, userID uint) (*models.CommentRecord, error)
	GetComment(ctx context.Context, id uint) (*models.CommentRecord, error)
	DeleteComment(ctx context.Context, id uint) error
}

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository returns a ContentRepository bound to db.
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) CreatePost(ctx context.Context, userID uint) (*models.PostRecord, error) {
	row := &models.PostRecord{UserID: userID}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, translate(err, "Post", userID)
	}
	return row, nil
}

func (r *contentRepository) GetPost(ctx context.Context, id uint) (*models.PostRecord, error) {
	var row models.PostRecord
	if err := r.db.WithContext(ctx).Where("post_id = ?", id).First(&row).Error; err != nil {
		return nil, translate(err, "Post", id)
	}
	return &row, nil
}

func (r *contentRepository) DeletePost(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Where("post_id = ?", id).Delete(&models.PostRecord{})
	if res.Error != nil {
		return models.NewStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *contentRepository) CreateComment(ctx context.Context, postID, userID uint) (*models.CommentRecord, error) {
	row := &models.CommentRecord{PostID: postID, UserID: userID}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, translate(err, "Comment", postID)
	}
	return row, nil
}

func (r *contentRepository) GetComment(ctx context.Context, id uint) (*models.CommentRecord, error) {
	var row models.CommentRecord
	if err := r.db.WithContext(ctx).Where("comment_id = ?", id).First(&row).Error; err != nil {
		return nil, translate(err, "Comment", id)
	}
	return &row, nil
}

func (r *contentRepository) DeleteComment(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Where("comment_id = ?", id).Delete(&models.CommentRecord{})
	if res.Error != nil {
		return models.NewStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}
