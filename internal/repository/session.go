package repository

import (
	"context"
	"time"

	"geosm/internal/models"

	"gorm.io/gorm"
)

// SessionRepository stores login history and access tokens.
type SessionRepository interface {
	CreateLogin(ctx context.Context, userID uint, at time.Time) (*models.LoginHistory, error)
	CreateToken(ctx context.Context, token *models.AccessToken) error
	GetToken(ctx context.Context, value string) (*models.AccessToken, error)
	DeleteToken(ctx context.Context, value string) error
	DeleteUserTokens(ctx context.Context, userID uint) (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository returns a SessionRepository bound to db.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) CreateLogin(ctx context.Context, userID uint, at time.Time) (*models.LoginHistory, error) {
	login := &models.LoginHistory{UserID: userID, Date: at}
	if err := r.db.WithContext(ctx).Create(login).Error; err != nil {
		return nil, translate(err, "Login", userID)
	}
	return login, nil
}

func (r *sessionRepository) CreateToken(ctx context.Context, token *models.AccessToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return translate(err, "Access token", token.UserID)
	}
	return nil
}

func (r *sessionRepository) GetToken(ctx context.Context, value string) (*models.AccessToken, error) {
	var token models.AccessToken
	if err := r.db.WithContext(ctx).Where("value = ?", value).First(&token).Error; err != nil {
		return nil, translate(err, "Access token", "")
	}
	return &token, nil
}

func (r *sessionRepository) DeleteToken(ctx context.Context, value string) error {
	res := r.db.WithContext(ctx).Where("value = ?", value).Delete(&models.AccessToken{})
	if res.Error != nil {
		return models.NewStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Access token", "")
	}
	return nil
}

func (r *sessionRepository) DeleteUserTokens(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.AccessToken{})
	if res.Error != nil {
		return 0, models.NewStoreError(res.Error)
	}
	return res.RowsAffected, nil
}
