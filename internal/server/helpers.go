package server

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"geosm/internal/middleware"
	"geosm/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const maxPaginationLimit = 200

// respond writes the envelope of an engine return pair. Store failures and
// partial commits are logged since the envelope only carries the kind.
func (s *Server) respond(c *fiber.Ctx, payload any, err error) error {
	status := middleware.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.log.Error("operation failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("kind", models.KindOf(err)),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(models.Envelope(payload, err))
}

// respondOK writes a payload-less envelope for err.
func (s *Server) respondOK(c *fiber.Ctx, err error) error {
	return s.respond(c, nil, err)
}

// parseBody decodes the JSON body into dst. On failure it writes a
// Validation envelope and returns errResponseWritten.
func (s *Server) parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = s.respond(c, nil, models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// parseLimit reads the limit query parameter. Zero means "engine default".
func parseLimit(c *fiber.Ctx) int {
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return 0
	}
	if limit > maxPaginationLimit {
		return maxPaginationLimit
	}
	return limit
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 envelope and returns errResponseWritten.
// The error message is derived from the parameter name (e.g. "id" -> "Invalid ID",
// "userId" -> "Invalid user ID").
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = s.respond(c, nil, models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseIDList parses a comma separated list of positive ids, skipping blanks.
func parseIDList(raw string) ([]uint, error) {
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 32)
		if err != nil || id == 0 {
			return nil, models.NewValidationError("Invalid id list")
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// splitList splits a comma separated query value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}
