package repository

import (
	"context"
	"time"

	"geosm/internal/models"

	"gorm.io/gorm"
)

// AuthCodeRepository stores one-time codes.
type AuthCodeRepository interface {
	Create(ctx context.Context, code *models.AuthCode) error
	// Match reports whether an unexpired code with this value exists. Codes
	// are not consumed.
	Match(ctx context.Context, userID uint, value string, codeType models.AuthCodeType, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type authCodeRepository struct {
	db *gorm.DB
}

// NewAuthCodeRepository returns an AuthCodeRepository bound to db.
func NewAuthCodeRepository(db *gorm.DB) AuthCodeRepository {
	return &authCodeRepository{db: db}
}

func (r *authCodeRepository) Create(ctx context.Context, code *models.AuthCode) error {
	if err := r.db.WithContext(ctx).Create(code).Error; err != nil {
		return translate(err, "Auth code", code.UserID)
	}
	return nil
}

func (r *authCodeRepository) Match(ctx context.Context, userID uint, value string, codeType models.AuthCodeType, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AuthCode{}).
		Where("user_id = ? AND value = ? AND type = ? AND valid_time > ?", userID, value, codeType, now).
		Count(&count).Error
	if err != nil {
		return false, models.NewStoreError(err)
	}
	return count > 0, nil
}

func (r *authCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("valid_time <= ?", now).Delete(&models.AuthCode{})
	if res.Error != nil {
		return 0, models.NewStoreError(res.Error)
	}
	return res.RowsAffected, nil
}
