package repository

import (
	"context"
	"errors"

	"geosm/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepository stores the single platform settings row.
type SettingsRepository interface {
	// Get returns the stored row, or fallback when none was ever saved.
	Get(ctx context.Context, fallback models.Settings) (models.Settings, error)
	Save(ctx context.Context, settings models.Settings) error
}

type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository returns a SettingsRepository bound to db.
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context, fallback models.Settings) (models.Settings, error) {
	var row models.Settings
	err := r.db.WithContext(ctx).Where("settings_id = ?", models.SettingsRowID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fallback.SettingsID = models.SettingsRowID
		return fallback, nil
	}
	if err != nil {
		return models.Settings{}, models.NewStoreError(err)
	}
	return row, nil
}

func (r *settingsRepository) Save(ctx context.Context, settings models.Settings) error {
	settings.SettingsID = models.SettingsRowID
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "settings_id"}},
		UpdateAll: true,
	}).Create(&settings).Error
	if err != nil {
		return models.NewStoreError(err)
	}
	return nil
}
