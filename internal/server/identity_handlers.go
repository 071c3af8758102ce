package server

import (
	"geosm/internal/middleware"
	"geosm/internal/models"
	"geosm/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Email        string `json:"email"`
	PhoneCountry string `json:"phone_country"`
	PhoneNumber  string `json:"phone_number"`
	Captcha      string `json:"captcha"`
}

type codeRequest struct {
	UserID uint                `json:"user_id"`
	Code   string              `json:"code"`
	Type   models.AuthCodeType `json:"type"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Captcha  string `json:"captcha"`
}

type resetPasswordRequest struct {
	Username string              `json:"username"`
	Code     string              `json:"code"`
	Type     models.AuthCodeType `json:"type"`
	Password string              `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type banRequest struct {
	Reason string `json:"reason"`
	Days   int    `json:"days"`
}

// Register handles POST /api/auth/register. A first registration may ask
// for the admin role with ?admin=true; the engine ignores it afterwards.
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	id, err := s.engines.Identity.Register(c.UserContext(), service.RegisterInput{
		Username:     req.Username,
		Password:     req.Password,
		Email:        req.Email,
		PhoneCountry: req.PhoneCountry,
		PhoneNumber:  req.PhoneNumber,
		CaptchaToken: req.Captcha,
	}, c.QueryBool("admin", false))
	return s.respond(c, fiber.Map{"user_id": id}, err)
}

// ActivateWithCode handles POST /api/auth/activate
func (s *Server) ActivateWithCode(c *fiber.Ctx) error {
	var req codeRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	return s.respondOK(c, s.engines.Identity.ActivateWithCode(c.UserContext(), req.UserID, req.Code, req.Type))
}

// CreateAuthCode handles POST /api/auth/codes
func (s *Server) CreateAuthCode(c *fiber.Ctx) error {
	var req codeRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	return s.respondOK(c, s.engines.Identity.CreateAuthCode(c.UserContext(), req.UserID, req.Type))
}

// VerifyAuthCode handles POST /api/auth/codes/verify
func (s *Server) VerifyAuthCode(c *fiber.Ctx) error {
	var req codeRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	ok, err := s.engines.Identity.VerifyAuthCode(c.UserContext(), req.UserID, req.Code, req.Type)
	return s.respond(c, fiber.Map{"valid": ok}, err)
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	res, err := s.engines.Identity.LoginWithPassword(c.UserContext(), req.Username, req.Password, req.Captcha)
	return s.respond(c, res, err)
}

// Logout handles POST /api/auth/logout
func (s *Server) Logout(c *fiber.Ctx) error {
	return s.respondOK(c, s.engines.Identity.Logout(c.UserContext(), middleware.Token(c)))
}

// LogoutAll handles POST /api/auth/logout-all
func (s *Server) LogoutAll(c *fiber.Ctx) error {
	return s.respondOK(c, s.engines.Identity.LogoutAll(c.UserContext(), middleware.Token(c)))
}

// ResetPassword handles POST /api/auth/reset-password
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	return s.respondOK(c, s.engines.Identity.ResetPassword(c.UserContext(), req.Username, req.Code, req.Type, req.Password))
}

// GetStatus handles GET /api/auth/status?role=<role>
func (s *Server) GetStatus(c *fiber.Ctx) error {
	var required *models.Role
	if raw := c.Query("role"); raw != "" {
		role, err := models.ParseRole(raw)
		if err != nil {
			return s.respond(c, nil, models.NewValidationError("Invalid role"))
		}
		required = &role
	}
	status, err := s.engines.Identity.GetUserStatusFromAccessToken(c.UserContext(), middleware.Token(c), required)
	return s.respond(c, fiber.Map{"status": status}, err)
}

// ChangePassword handles PUT /api/users/me/password
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	return s.respondOK(c, s.engines.Identity.ChangePassword(c.UserContext(), middleware.Token(c), req.OldPassword, req.NewPassword))
}

// ChangeEmail handles PUT /api/users/me/email
func (s *Server) ChangeEmail(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	return s.respondOK(c, s.engines.Identity.ChangeEmail(c.UserContext(), middleware.Token(c), req.Email))
}

// ChangePhone handles PUT /api/users/me/phone
func (s *Server) ChangePhone(c *fiber.Ctx) error {
	var req struct {
		Country string `json:"country"`
		Number  string `json:"number"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	return s.respondOK(c, s.engines.Identity.ChangePhone(c.UserContext(), middleware.Token(c), req.Country, req.Number))
}

// ChangeAvatar handles PUT /api/users/me/avatar. The payload names the
// replaced file so the caller can remove it from storage.
func (s *Server) ChangeAvatar(c *fiber.Ctx) error {
	var req struct {
		Avatar string `json:"avatar"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	previous, err := s.engines.Identity.ChangeAvatar(c.UserContext(), middleware.Token(c), req.Avatar)
	return s.respond(c, fiber.Map{"previous": previous}, err)
}

// ChangeRole handles PUT /api/users/:id/role
func (s *Server) ChangeRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Role models.Role `json:"role"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	return s.respondOK(c, s.engines.Identity.ChangeRole(c.UserContext(), middleware.Token(c), id, req.Role))
}

// BanUser handles POST /api/users/:id/ban
func (s *Server) BanUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req banRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	banID, err := s.engines.Identity.BanUser(c.UserContext(), middleware.Token(c), id, req.Reason, req.Days)
	return s.respond(c, fiber.Map{"ban_id": banID}, err)
}

// UnBanUser handles DELETE /api/users/:id/ban
func (s *Server) UnBanUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return s.respondOK(c, s.engines.Identity.UnBanUser(c.UserContext(), middleware.Token(c), id))
}

// GetBanInfo handles GET /api/users/:id/ban
func (s *Server) GetBanInfo(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ban, err := s.engines.Identity.GetBanInfo(c.UserContext(), id)
	return s.respond(c, ban, err)
}

// GetUser handles GET /api/users/:id
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	profile, err := s.engines.Identity.GetUser(c.UserContext(), id)
	return s.respond(c, profile, err)
}

// DeleteUser handles DELETE /api/users/:id. The payload lists the stored
// files the account referenced.
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	files, err := s.engines.Identity.DeleteUser(c.UserContext(), middleware.Token(c), id)
	return s.respond(c, fiber.Map{"files": files}, err)
}

// AdminRequired rejects callers below the admin role. Must be placed after
// middleware.AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := c.Locals(middleware.LocalCaller).(models.Caller)
		if !ok || !caller.Role.AtLeast(models.RoleAdmin) {
			return s.respond(c, nil, models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// GetFeatureFlags handles GET /api/admin/feature-flags. It returns the
// configured rules and how they evaluate for the calling admin.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := c.Locals(middleware.LocalUserID).(uint)
	return s.respond(c, fiber.Map{
		"rules":   s.flags.Raw(),
		"enabled": s.flags.Snapshot(userID),
	}, nil)
}
