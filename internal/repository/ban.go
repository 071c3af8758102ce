package repository

import (
	"context"

	"geosm/internal/models"

	"gorm.io/gorm"
)

// BanRepository stores ban_history rows.
type BanRepository interface {
	Create(ctx context.Context, ban *models.BanHistory) error
	GetByID(ctx context.Context, id uint) (*models.BanHistory, error)
	// GetActive returns the ban that still has a live ban event.
	GetActive(ctx context.Context, userID uint) (*models.BanHistory, error)
	Delete(ctx context.Context, id uint) error
	DeleteForUser(ctx context.Context, userID uint) (int64, error)
}

type banRepository struct {
	db *gorm.DB
}

// NewBanRepository returns a BanRepository bound to db.
func NewBanRepository(db *gorm.DB) BanRepository {
	return &banRepository{db: db}
}

func (r *banRepository) Create(ctx context.Context, ban *models.BanHistory) error {
	if err := r.db.WithContext(ctx).Create(ban).Error; err != nil {
		return translate(err, "Ban", ban.UserID)
	}
	return nil
}

func (r *banRepository) GetByID(ctx context.Context, id uint) (*models.BanHistory, error) {
	var ban models.BanHistory
	if err := r.db.WithContext(ctx).Where("ban_id = ?", id).First(&ban).Error; err != nil {
		return nil, translate(err, "Ban", id)
	}
	return &ban, nil
}

func (r *banRepository) GetActive(ctx context.Context, userID uint) (*models.BanHistory, error) {
	var ban models.BanHistory
	err := r.db.WithContext(ctx).
		Joins("JOIN events ON events.ban_id = ban_history.ban_id AND events.type = ?", models.EventBan).
		Where("ban_history.user_id = ?", userID).
		Order("ban_history.date_end DESC").
		First(&ban).Error
	if err != nil {
		return nil, translate(err, "Ban", userID)
	}
	return &ban, nil
}

func (r *banRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Where("ban_id = ?", id).Delete(&models.BanHistory{})
	if res.Error != nil {
		return models.NewStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Ban", id)
	}
	return nil
}

func (r *banRepository) DeleteForUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.BanHistory{})
	if res.Error != nil {
		return 0, models.NewStoreError(res.Error)
	}
	return res.RowsAffected, nil
}
