package service

import (
	"context"

	"geosm/internal/cache"
	"geosm/internal/coordinator"
	"geosm/internal/models"
	"geosm/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SettingsService serves the reputation gates. Reads go through Redis when
// a client is configured.
type SettingsService struct {
	coord    coordinator.Runner
	rdb      *redis.Client
	defaults models.Settings
	log      *zap.Logger
}

func NewSettingsService(coord coordinator.Runner, rdb *redis.Client, defaults models.Settings, log *zap.Logger) *SettingsService {
	if log == nil {
		log = zap.NewNop()
	}
	defaults.SettingsID = models.SettingsRowID
	return &SettingsService{coord: coord, rdb: rdb, defaults: defaults, log: log}
}

// Load returns the settings using tx on a cache miss. Engines call it from
// inside their own unit.
func (s *SettingsService) Load(ctx context.Context, tx repository.Tx) (models.Settings, error) {
	var out models.Settings
	err := cache.CacheAside(ctx, s.rdb, cache.SettingsKey, &out, cache.SettingsTTL, func() error {
		var err error
		out, err = tx.Settings().Get(ctx, s.defaults)
		return err
	})
	out.SettingsID = models.SettingsRowID
	return out, err
}

func (s *SettingsService) GetSettings(ctx context.Context) (models.Settings, error) {
	var out models.Settings
	err := s.coord.Run(ctx, "get_settings", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		var err error
		out, err = s.Load(ctx, u.Rel)
		return err
	})
	return out, err
}

// UpdateSettings replaces the settings row. Admin only.
func (s *SettingsService) UpdateSettings(ctx context.Context, token string, settings models.Settings) error {
	if settings.AutoReportThreshold > settings.UnlistedThreshold && settings.AutoReportEnabled {
		s.log.Info("auto report threshold above unlisted threshold",
			zap.Int("auto_report_threshold", settings.AutoReportThreshold),
			zap.Int("unlisted_threshold", settings.UnlistedThreshold))
	}
	settings.SettingsID = models.SettingsRowID
	err := s.coord.Run(ctx, "update_settings", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		if caller.Role != models.RoleAdmin {
			return models.NewForbiddenError("Only admins can change settings")
		}
		return u.Rel.Settings().Save(ctx, settings)
	})
	if err != nil {
		return err
	}
	cache.InvalidateSettings(ctx, s.rdb)
	return nil
}
