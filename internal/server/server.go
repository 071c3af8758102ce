// Package server exposes the engines over HTTP. Every route answers with the
// uniform result envelope.
package server

import (
	"context"
	"time"

	"geosm/internal/bootstrap"
	"geosm/internal/config"
	"geosm/internal/featureflags"
	"geosm/internal/middleware"
	"geosm/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Engines are the operations served over HTTP.
type Engines struct {
	Identity   *service.IdentityService
	Content    *service.ContentService
	Search     *service.SearchService
	Feed       *service.FeedService
	Moderation *service.ModerationService
	Settings   *service.SettingsService
}

// Probe reports whether a dependency is reachable.
type Probe func(ctx context.Context) error

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	engines        Engines
	redis          *redis.Client
	flags          *featureflags.Manager
	probes         map[string]Probe
	promMiddleware *fiberprometheus.FiberPrometheus
	log            *zap.Logger
}

// NewServer creates a server over an initialized runtime.
func NewServer(rt *bootstrap.Runtime, log *zap.Logger) *Server {
	probes := map[string]Probe{
		"database": func(ctx context.Context) error {
			sqlDB, err := rt.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"graph": func(ctx context.Context) error { return rt.Driver.VerifyConnectivity(ctx) },
	}
	if rt.Redis != nil {
		probes["redis"] = func(ctx context.Context) error { return rt.Redis.Ping(ctx).Err() }
	}
	return NewServerWithDeps(rt.Config, Engines{
		Identity:   rt.Identity,
		Content:    rt.Content,
		Search:     rt.Search,
		Feed:       rt.Feed,
		Moderation: rt.Moderation,
		Settings:   rt.Settings,
	}, rt.Redis, rt.Flags, probes, log)
}

// NewServerWithDeps creates a Server using already-initialized engines.
// Use this in tests.
func NewServerWithDeps(cfg *config.Config, engines Engines, rdb *redis.Client, flags *featureflags.Manager, probes map[string]Probe, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		config:         cfg,
		engines:        engines,
		redis:          rdb,
		flags:          flags,
		probes:         probes,
		promMiddleware: middleware.InitMetrics("geosm-api"),
		log:            log,
	}
}

// App builds a fiber app with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "geosm",
		BodyLimit: 1 * 1024 * 1024,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(helmet.New())
	app.Use(middleware.RequestLogger(s.log.Named("http")))

	// CORS runs before middlewares that can short-circuit so browser clients
	// still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"status":    false,
				"errorKind": "RateLimited",
				"message":   "Error",
			})
		},
	}))

	app.Use(middleware.OptionalAuth())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", middleware.RateLimit(s.redis, 3, 10*time.Minute, "register"), s.Register)
	authGroup.Post("/activate", s.ActivateWithCode)
	authGroup.Post("/codes", middleware.RateLimit(s.redis, 5, 10*time.Minute, "auth_code"), s.CreateAuthCode)
	authGroup.Post("/codes/verify", s.VerifyAuthCode)
	authGroup.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	authGroup.Post("/logout", s.Logout)
	authGroup.Post("/logout-all", s.LogoutAll)
	authGroup.Post("/reset-password", middleware.RateLimit(s.redis, 5, 10*time.Minute, "reset_password"), s.ResetPassword)
	authGroup.Get("/status", s.GetStatus)

	users := api.Group("/users")
	users.Put("/me/password", s.ChangePassword)
	users.Put("/me/email", s.ChangeEmail)
	users.Put("/me/phone", s.ChangePhone)
	users.Put("/me/avatar", s.ChangeAvatar)
	users.Put("/:id/role", s.ChangeRole)
	users.Get("/:id/ban", s.GetBanInfo)
	users.Post("/:id/ban", s.BanUser)
	users.Delete("/:id/ban", s.UnBanUser)
	users.Get("/:id", s.GetUser)
	users.Delete("/:id", s.DeleteUser)

	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", middleware.RateLimit(s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/vote", s.Vote)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/comments", middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:id/fact", s.GetFact)
	posts.Put("/:id/fact", s.CreateFact)
	posts.Delete("/:id/fact", s.DeleteFact)
	posts.Get("/:id", s.GetPost)
	posts.Delete("/:id", s.DeletePost)

	comments := api.Group("/comments")
	comments.Get("/:id", s.GetComment)
	comments.Delete("/:id", s.DeleteComment)

	messages := api.Group("/messages")
	messages.Post("/", middleware.RateLimit(s.redis, 15, time.Minute, "send_message"), s.CreateMessage)
	messages.Get("/:id", s.GetMessage)
	messages.Delete("/:id", s.DeleteMessage)
	api.Get("/conversations/:userId", s.GetConversation)

	search := api.Group("/search")
	search.Get("/", middleware.RateLimit(s.redis, 30, time.Minute, "search"), s.Search)
	search.Get("/places", middleware.RateLimit(s.redis, 10, time.Minute, "search_place"), s.SearchPlace)

	reports := api.Group("/reports")
	reports.Post("/", middleware.RateLimit(s.redis, 10, 10*time.Minute, "create_report"), s.CreateReport)
	reports.Post("/claim", s.ClaimReport)
	reports.Post("/:id/resolve", s.ResolveReport)
	reports.Post("/:id/release", s.ReleaseReport)
	reports.Delete("/:id", s.DeleteReport)

	api.Get("/settings", s.GetSettings)
	api.Put("/settings", s.UpdateSettings)

	admin := api.Group("/admin", middleware.AuthRequired(s.engines.Identity), s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings every dependency probe.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	status := fiber.StatusOK
	overall := "healthy"
	checks := fiber.Map{}
	for name, probe := range s.probes {
		if err := probe(ctx); err != nil {
			s.log.Warn("readiness probe failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = "unhealthy"
			status = fiber.StatusServiceUnavailable
			overall = "unhealthy"
			continue
		}
		checks[name] = "healthy"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": checks,
		"time":   time.Now(),
	})
}
