// Package bootstrap wires the stores, collaborators and engines of a process.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"geosm/internal/auth"
	"geosm/internal/cache"
	"geosm/internal/config"
	"geosm/internal/coordinator"
	"geosm/internal/database"
	"geosm/internal/featureflags"
	"geosm/internal/geo"
	"geosm/internal/graph"
	"geosm/internal/models"
	"geosm/internal/notify"
	"geosm/internal/repository"
	"geosm/internal/service"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Runtime holds the connections and engines of a running process.
type Runtime struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Driver neo4j.DriverWithContext
	Flags  *featureflags.Manager

	Coordinator *coordinator.Coordinator
	Settings    *service.SettingsService
	Identity    *service.IdentityService
	Content     *service.ContentService
	Search      *service.SearchService
	Feed        *service.FeedService
	Moderation  *service.ModerationService
	Sweep       *service.SweepService

	log     *zap.Logger
	closers []func(context.Context) error
}

// InitRuntime connects the relational store, the graph store and Redis and
// builds every engine on top of them.
func InitRuntime(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, log: log, Flags: featureflags.NewManager(cfg.FeatureFlags)}

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt.DB = db
	rt.closers = append(rt.closers, func(context.Context) error { return database.Close(db) })

	driver, err := graph.Connect(ctx, graph.Config{
		URI:      cfg.Neo4jURI,
		User:     cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
		Database: cfg.Neo4jDatabase,
	})
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("graph connection failed: %w", err)
	}
	rt.Driver = driver
	rt.closers = append(rt.closers, driver.Close)

	// May be nil; the settings cache is skipped then.
	rt.Redis = cache.Connect(cfg.RedisURL, log.Named("redis"))
	if rt.Redis != nil {
		rdb := rt.Redis
		rt.closers = append(rt.closers, func(context.Context) error { return rdb.Close() })
	}

	sender := rt.sender()
	platform := cfg.Platform()
	rt.Coordinator = coordinator.New(repository.NewStore(db), graph.NewStore(driver, cfg.Neo4jDatabase), log.Named("coordinator"))
	rt.Settings = service.NewSettingsService(rt.Coordinator, rt.Redis, platform.Settings, log.Named("settings"))
	rt.Identity = service.NewIdentityService(
		rt.Coordinator,
		auth.NewBcryptHasher(),
		auth.Gated{Flags: rt.Flags, Next: auth.NewRecaptcha(cfg.RecaptchaSecret)},
		sender,
		rt.Settings,
		rt.Flags,
		platform,
		log.Named("identity"),
	)
	rt.Content = service.NewContentService(rt.Coordinator, rt.Settings, log.Named("content"))
	rt.Search = service.NewSearchService(rt.Coordinator, geo.NewNominatim(cfg.GeocoderURL))
	rt.Feed = service.NewFeedService(rt.Coordinator, platform)
	rt.Moderation = service.NewModerationService(rt.Coordinator, platform, log.Named("moderation"))
	rt.Sweep = service.NewSweepService(rt.Coordinator, log.Named("sweep"))

	if err := rt.ensureDevAdmin(ctx); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}
	return rt, nil
}

// sender publishes to the broker when one is configured and falls back to
// the log otherwise.
func (rt *Runtime) sender() notify.Sender {
	fallback := notify.LogSender{Log: rt.log.Named("notify")}
	if rt.Config.RabbitMQURL == "" {
		return fallback
	}
	amqp, err := notify.DialAMQP(rt.Config.RabbitMQURL)
	if err != nil {
		rt.log.Warn("broker unreachable, logging notifications instead", zap.Error(err))
		return fallback
	}
	rt.closers = append(rt.closers, func(context.Context) error { return amqp.Close() })
	return amqp
}

// ensureDevAdmin registers and activates an admin account in development.
// An existing account with the same username is left untouched.
func (rt *Runtime) ensureDevAdmin(ctx context.Context) error {
	cfg := rt.Config
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapAdmin {
		return nil
	}
	if cfg.DevAdminPassword == "" {
		return errors.New("DEV_ADMIN_PASSWORD must be set when DEV_BOOTSTRAP_ADMIN is enabled")
	}

	identity := rt.TrustedIdentity()
	id, err := identity.Register(ctx, service.RegisterInput{
		Username: cfg.DevAdminUsername,
		Password: cfg.DevAdminPassword,
	}, true)
	if models.IsKind(err, models.CodeConflict) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := identity.Activate(ctx, id); err != nil {
		return err
	}
	rt.log.Info("development admin ensured", zap.Uint("user_id", id), zap.String("username", cfg.DevAdminUsername))
	return nil
}

// TrustedIdentity returns an identity engine for operator tooling. It skips
// captcha verification and sends no notifications.
func (rt *Runtime) TrustedIdentity() *service.IdentityService {
	return service.NewIdentityService(
		rt.Coordinator, auth.NewBcryptHasher(), auth.Gated{}, nil, rt.Settings, rt.Flags, rt.Config.Platform(), rt.log.Named("identity"),
	)
}

// Close releases connections in reverse order of acquisition.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
