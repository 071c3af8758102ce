// Package repository implements the relational data access layer.
package repository

import (
	"context"

	"geosm/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for identity rows.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// TransitionStatus moves a user from one status to another and reports
	// whether the row was in the expected status.
	TransitionStatus(ctx context.Context, id uint, from, to models.UserStatus) (bool, error)
	SetStatus(ctx context.Context, id uint, status models.UserStatus) error
	UpdatePassword(ctx context.Context, id uint, digest string) error
	UpdateEmail(ctx context.Context, id uint, email *string) error
	UpdatePhone(ctx context.Context, id uint, country, number *string) error
	UpdateRole(ctx context.Context, id uint, role models.Role) error
	Delete(ctx context.Context, id uint) error
	// DeleteIfRegistered removes a user only while it was never activated.
	DeleteIfRegistered(ctx context.Context, id uint) (bool, error)
	AdminExists(ctx context.Context) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Username already taken")
		}
		return models.NewStoreError(err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("user_id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err, "User", username)
	}
	return &user, nil
}

func (r *userRepository) TransitionStatus(ctx context.Context, id uint, from, to models.UserStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, models.NewStoreError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *userRepository) SetStatus(ctx context.Context, id uint, status models.UserStatus) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"status": status})
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, digest string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"password": digest})
}

func (r *userRepository) UpdateEmail(ctx context.Context, id uint, email *string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"email": email})
}

func (r *userRepository) UpdatePhone(ctx context.Context, id uint, country, number *string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"phone_country": country,
		"phone_number":  number,
	})
}

func (r *userRepository) UpdateRole(ctx context.Context, id uint, role models.Role) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"role_id": role})
}

func (r *userRepository) updateColumns(ctx context.Context, id uint, columns map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("user_id = ?", id).Updates(columns)
	if res.Error != nil {
		return models.NewStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ?", id).Delete(&models.User{})
	if res.Error != nil {
		return models.NewStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) DeleteIfRegistered(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", id, models.StatusRegistered).
		Delete(&models.User{})
	if res.Error != nil {
		return false, models.NewStoreError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *userRepository) AdminExists(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("role_id = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return false, models.NewStoreError(err)
	}
	return count > 0, nil
}
