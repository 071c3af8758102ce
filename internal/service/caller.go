// Package service holds the engines that implement every public operation
// on top of the coordinator.
package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"geosm/internal/models"
	"geosm/internal/repository"
)

// resolveCaller maps an access token to its identity inside an open
// relational transaction. Unknown tokens and dangling users are both
// Unauthorized.
func resolveCaller(ctx context.Context, tx repository.Tx, token string) (models.Caller, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Caller{}, models.NewUnauthorizedError("Access token required")
	}
	row, err := tx.Sessions().GetToken(ctx, token)
	if err != nil {
		if models.IsKind(err, models.CodeNotFound) {
			return models.Caller{}, models.NewUnauthorizedError("Invalid access token")
		}
		return models.Caller{}, err
	}
	user, err := tx.Users().GetByID(ctx, row.UserID)
	if err != nil {
		if models.IsKind(err, models.CodeNotFound) {
			return models.Caller{}, models.NewUnauthorizedError("Invalid access token")
		}
		return models.Caller{}, err
	}
	return models.Caller{
		UserID:   user.UserID,
		Username: user.Username,
		Status:   user.Status,
		Role:     user.RoleID,
	}, nil
}

func requireActive(c models.Caller) error {
	if !c.Active() {
		return models.NewForbiddenError("Account is not active")
	}
	return nil
}

func requireRole(c models.Caller, min models.Role) error {
	if !c.Role.AtLeast(min) {
		return models.NewForbiddenError("Insufficient role")
	}
	return nil
}

// clock is embedded by every engine so tests can pin time.
type clock struct {
	now func() time.Time
}

// Now returns the current time in UTC truncated to the graph's millisecond
// resolution.
func (c clock) Now() time.Time {
	if c.now == nil {
		return time.Now().UTC().Truncate(time.Millisecond)
	}
	return c.now().UTC().Truncate(time.Millisecond)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// optional turns a blank string into nil.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
