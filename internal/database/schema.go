package database

import (
	"context"
	"fmt"
	"strings"

	"geosm/internal/config"
	"geosm/internal/logger"
	"geosm/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Schema modes selectable with DB_SCHEMA_MODE.
const (
	SchemaModeSQL  = "sql"
	SchemaModeAuto = "auto"
	SchemaModeNone = "none"
)

// SchemaStatus describes what ApplySchema would do for a config.
type SchemaStatus struct {
	Mode              string
	Environment       string
	WillRunSQL        bool
	WillRunAuto       bool
	AppliedVersions   []int
	PendingMigrations []Migration
}

// PersistentModels returns the schema-managed GORM models in dependency order.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.RoleRecord{},
		&models.User{},
		&models.LoginHistory{},
		&models.AccessToken{},
		&models.AuthCode{},
		&models.BanHistory{},
		&models.PostRecord{},
		&models.CommentRecord{},
		&models.Message{},
		&models.Report{},
		&models.Event{},
		&models.Settings{},
	}
}

func normalizedSchemaMode(cfg *config.Config) string {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		return SchemaModeSQL
	}
	return mode
}

func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	switch mode := normalizedSchemaMode(cfg); mode {
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeAuto:
		// AutoMigrate cannot express the report target CHECK constraint.
		if cfg.IsProduction() {
			return false, false, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q", cfg.Env)
		}
		return false, true, nil
	case SchemaModeNone:
		return false, false, nil
	default:
		return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

// ApplySchema brings the relational schema up to date according to the configured mode.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}

	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}

	if runAuto {
		logger.Named("database").Info("running gorm automigrate", zap.String("env", cfg.Env))
		if err := AutoMigrate(ctx, db); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	return nil
}

// AutoMigrate creates the tables from the GORM models and seeds the role rows.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return err
	}
	for _, role := range models.Roles() {
		row := models.RoleRecord{RoleID: role, Name: role.String()}
		if err := db.WithContext(ctx).Where(models.RoleRecord{RoleID: role}).FirstOrCreate(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetSchemaStatus reports the mode and pending migrations without applying anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:        normalizedSchemaMode(cfg),
		Environment: cfg.Env,
		WillRunSQL:  runSQL,
		WillRunAuto: runAuto,
	}

	if !runSQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied
	status.PendingMigrations = pendingMigrations(applied, GetMigrations())
	return status, nil
}
