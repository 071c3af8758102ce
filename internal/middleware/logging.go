package middleware

import (
	"context"
	"time"

	"geosm/internal/logger"
	"geosm/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Log returns the middleware logger.
func Log() *zap.Logger {
	return logger.Named("http")
}

// ContextMiddleware injects request ID and user ID from Fiber locals into the request context.
// This allows these values to be picked up by deep service layers.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if rid, ok := c.Locals("requestid").(string); ok {
			ctx = context.WithValue(ctx, observability.RequestIDKey, rid)
		}
		if uid, ok := c.Locals(LocalUserID).(uint); ok {
			ctx = context.WithValue(ctx, observability.UserIDKey, uid)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// RequestLogger returns a Fiber middleware writing one zap line per request.
func RequestLogger(log *zap.Logger) fiber.Handler {
	if log == nil {
		log = Log()
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Response().StatusCode()),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Duration("latency", time.Since(start)),
		}
		if rid, ok := c.Locals("requestid").(string); ok {
			fields = append(fields, zap.String("request_id", rid))
		}
		if tid, ok := c.Locals("traceID").(string); ok {
			fields = append(fields, zap.String("trace_id", tid))
		}
		if uid, ok := c.Locals(LocalUserID).(uint); ok {
			fields = append(fields, zap.Uint("user_id", uid))
		}

		if err != nil {
			log.Error("request failed", append(fields, zap.Error(err))...)
		} else {
			log.Info("request processed", fields...)
		}
		return err
	}
}
