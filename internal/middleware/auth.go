// Package middleware provides the fiber middleware of the HTTP surface.
package middleware

import (
	"context"
	"strings"

	"geosm/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the middleware.
const (
	LocalToken  = "accessToken"
	LocalCaller = "caller"
	LocalUserID = "userID"
)

// CallerResolver resolves an opaque access token.
type CallerResolver interface {
	GetCaller(ctx context.Context, token string) (models.Caller, error)
}

// BearerToken returns the token of an "Authorization: Bearer <token>"
// header, or "".
func BearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// OptionalAuth stores the bearer token when one is sent. Engines resolve it;
// the middleware does not reject anonymous requests.
func OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := BearerToken(c); token != "" {
			c.Locals(LocalToken, token)
		}
		return c.Next()
	}
}

// AuthRequired resolves the bearer token and rejects unknown tokens with an
// Unauthorized envelope.
func AuthRequired(resolver CallerResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(models.Envelope(nil, models.NewUnauthorizedError("Authorization header required")))
		}
		caller, err := resolver.GetCaller(c.UserContext(), token)
		if err != nil {
			return c.Status(StatusFor(err)).JSON(models.Envelope(nil, err))
		}
		c.Locals(LocalToken, token)
		c.Locals(LocalCaller, caller)
		c.Locals(LocalUserID, caller.UserID)
		return c.Next()
	}
}

// Token returns the token stored by OptionalAuth or AuthRequired.
func Token(c *fiber.Ctx) string {
	if token, ok := c.Locals(LocalToken).(string); ok {
		return token
	}
	return ""
}

// StatusFor maps an error kind onto an HTTP status.
func StatusFor(err error) int {
	switch models.KindOf(err) {
	case "":
		return fiber.StatusOK
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeConflict:
		return fiber.StatusConflict
	case models.CodeInconsistentState:
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}
