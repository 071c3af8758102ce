package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"geosm/internal/auth"
	"geosm/internal/coordinator"
	"geosm/internal/models"
	"geosm/internal/notify"
	"geosm/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationsFlag gates activation and reset code delivery.
const NotificationsFlag = "notifications"

// FlagChecker reports per-user feature flags.
type FlagChecker interface {
	Enabled(name string, userID uint) bool
}

// IdentityService owns registration, sessions, bans and account changes.
type IdentityService struct {
	clock
	coord    coordinator.Runner
	hasher   auth.Hasher
	captcha  auth.CaptchaVerifier
	sender   notify.Sender
	settings *SettingsService
	flags    FlagChecker
	platform models.PlatformDefaults
	log      *zap.Logger
	newCode  func() (string, error)
}

type RegisterInput struct {
	Username     string
	Password     string
	Email        string
	PhoneCountry string
	PhoneNumber  string
	CaptchaToken string
}

// LoginResult is returned by LoginWithPassword.
type LoginResult struct {
	UserID uint              `json:"user_id"`
	Token  string            `json:"token"`
	Status models.UserStatus `json:"status"`
}

func NewIdentityService(
	coord coordinator.Runner,
	hasher auth.Hasher,
	captcha auth.CaptchaVerifier,
	sender notify.Sender,
	settings *SettingsService,
	flags FlagChecker,
	platform models.PlatformDefaults,
	log *zap.Logger,
) *IdentityService {
	if log == nil {
		log = zap.NewNop()
	}
	return &IdentityService{
		coord:    coord,
		hasher:   hasher,
		captcha:  captcha,
		sender:   sender,
		settings: settings,
		flags:    flags,
		platform: platform,
		log:      log,
		newCode:  sixDigitCode,
	}
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s *IdentityService) verifyCaptcha(ctx context.Context, token string) error {
	if s.captcha == nil {
		return nil
	}
	ok, err := s.captcha.Verify(ctx, token)
	if err != nil {
		return models.NewStoreError(err)
	}
	if !ok {
		return models.NewUnauthorizedError("Captcha verification failed")
	}
	return nil
}

func (s *IdentityService) Register(ctx context.Context, in RegisterInput, asAdmin bool) (uint, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || strings.TrimSpace(in.Password) == "" {
		return 0, models.NewValidationError("Username and password are required")
	}
	if runeLen(username) > 64 {
		return 0, models.NewValidationError("Username too long (max 64 characters)")
	}
	country, number := optional(in.PhoneCountry), optional(in.PhoneNumber)
	if (country == nil) != (number == nil) {
		return 0, models.NewValidationError("Phone country and number must be given together")
	}
	email := optional(in.Email)
	if err := s.verifyCaptcha(ctx, in.CaptchaToken); err != nil {
		return 0, err
	}
	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return 0, models.NewStoreError(err)
	}

	user := &models.User{
		Username:     username,
		Password:     digest,
		Email:        email,
		PhoneCountry: country,
		PhoneNumber:  number,
		Status:       models.StatusRegistered,
		RoleID:       models.RoleUser,
		CreatedAt:    s.Now(),
	}
	err = s.coord.Run(ctx, "register", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		if asAdmin {
			exists, err := u.Rel.Users().AdminExists(ctx)
			if err != nil {
				return err
			}
			if !exists {
				user.RoleID = models.RoleAdmin
			}
		}
		if err := u.Rel.Users().Create(ctx, user); err != nil {
			return err
		}
		return u.Rel.Events().Create(ctx, &models.Event{
			Type:      models.EventRegistration,
			ValidTime: user.CreatedAt.Add(s.platform.RegistrationTTL),
			UserID:    user.UserID,
		})
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("user registered", zap.Uint("user_id", user.UserID), zap.Stringer("role", user.RoleID))

	switch {
	case email != nil:
		s.dispatchCode(ctx, user.UserID, models.AuthCodeEmail)
	case number != nil:
		s.dispatchCode(ctx, user.UserID, models.AuthCodeSMS)
	}
	return user.UserID, nil
}

// dispatchCode sends an activation code and only logs failures.
func (s *IdentityService) dispatchCode(ctx context.Context, userID uint, codeType models.AuthCodeType) {
	if err := s.CreateAuthCode(ctx, userID, codeType); err != nil {
		s.log.Warn("activation code not sent", zap.Uint("user_id", userID), zap.String("type", string(codeType)), zap.Error(err))
	}
}

// Activate moves a registered user to active and creates their graph node.
// It is a no-op for users that are not registered.
func (s *IdentityService) Activate(ctx context.Context, userID uint) error {
	return s.coord.Run(ctx, "activate", coordinator.Both, func(ctx context.Context, u *coordinator.Unit) error {
		return s.activate(ctx, u, userID)
	})
}

func (s *IdentityService) activate(ctx context.Context, u *coordinator.Unit, userID uint) error {
	user, err := u.Rel.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Status != models.StatusRegistered {
		return nil
	}
	if strings.TrimSpace(user.Username) == "" {
		return models.NewInconsistentStateError(fmt.Sprintf("user %d has no username", userID))
	}
	moved, err := u.Rel.Users().TransitionStatus(ctx, userID, models.StatusRegistered, models.StatusActive)
	if err != nil || !moved {
		return err
	}
	if _, err := u.Rel.Events().DeleteForUser(ctx, userID, models.EventRegistration); err != nil {
		return err
	}
	settings, err := s.settings.Load(ctx, u.Rel)
	if err != nil {
		return err
	}
	return u.Graph.CreateUser(ctx, models.GraphUser{
		UserID:     userID,
		Username:   user.Username,
		Avatar:     s.platform.DefaultAvatar,
		Reputation: settings.StartingReputation,
	})
}

// ActivateWithCode activates after checking a delivered code.
func (s *IdentityService) ActivateWithCode(ctx context.Context, userID uint, code string, codeType models.AuthCodeType) error {
	if !codeType.Valid() {
		return models.NewValidationError("Unknown code type")
	}
	return s.coord.Run(ctx, "activate_with_code", coordinator.Both, func(ctx context.Context, u *coordinator.Unit) error {
		ok, err := u.Rel.AuthCodes().Match(ctx, userID, strings.TrimSpace(code), codeType, s.Now())
		if err != nil {
			return err
		}
		if !ok {
			return models.NewUnauthorizedError("Invalid or expired code")
		}
		return s.activate(ctx, u, userID)
	})
}

// CreateAuthCode stores a fresh code and sends it to the user's contact for
// codeType. Delivery failures are logged, not returned.
func (s *IdentityService) CreateAuthCode(ctx context.Context, userID uint, codeType models.AuthCodeType) error {
	if !codeType.Valid() {
		return models.NewValidationError("Unknown code type")
	}
	value, err := s.newCode()
	if err != nil {
		return models.NewStoreError(err)
	}
	var user *models.User
	err = s.coord.Run(ctx, "create_auth_code", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		var err error
		user, err = u.Rel.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		switch codeType {
		case models.AuthCodeEmail:
			if user.Email == nil {
				return models.NewValidationError("No email address on file")
			}
		case models.AuthCodeSMS:
			if user.PhoneCountry == nil || user.PhoneNumber == nil {
				return models.NewValidationError("No phone number on file")
			}
		}
		return u.Rel.AuthCodes().Create(ctx, &models.AuthCode{
			Value:     value,
			ValidTime: s.Now().Add(s.platform.AuthCodeTTL),
			Type:      codeType,
			UserID:    userID,
		})
	})
	if err != nil {
		return err
	}

	if s.sender == nil || (s.flags != nil && !s.flags.Enabled(NotificationsFlag, userID)) {
		return nil
	}
	body := "Your geosm code is " + value
	if codeType == models.AuthCodeEmail {
		err = s.sender.SendEmail(ctx, *user.Email, "Your geosm code", body)
	} else {
		err = s.sender.SendSMS(ctx, *user.PhoneCountry, *user.PhoneNumber, body)
	}
	if err != nil {
		s.log.Warn("code delivery failed", zap.Uint("user_id", userID), zap.String("type", string(codeType)), zap.Error(err))
	}
	return nil
}

// VerifyAuthCode reports whether an unexpired code matches. Codes are not
// consumed.
func (s *IdentityService) VerifyAuthCode(ctx context.Context, userID uint, value string, codeType models.AuthCodeType) (bool, error) {
	var ok bool
	err := s.coord.Run(ctx, "verify_auth_code", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		var err error
		ok, err = u.Rel.AuthCodes().Match(ctx, userID, strings.TrimSpace(value), codeType, s.Now())
		return err
	})
	return ok, err
}

// Login records a login and issues a token for userID.
func (s *IdentityService) Login(ctx context.Context, userID uint) (string, error) {
	var token string
	err := s.coord.Run(ctx, "login", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		if _, err := u.Rel.Users().GetByID(ctx, userID); err != nil {
			return err
		}
		var err error
		token, err = s.issueToken(ctx, u.Rel, userID)
		return err
	})
	return token, err
}

func (s *IdentityService) issueToken(ctx context.Context, tx repository.Tx, userID uint) (string, error) {
	login, err := tx.Sessions().CreateLogin(ctx, userID, s.Now())
	if err != nil {
		return "", err
	}
	value := uuid.NewString() + "/" + strconv.FormatUint(uint64(userID), 10)
	if err := tx.Sessions().CreateToken(ctx, &models.AccessToken{
		Value:   value,
		UserID:  userID,
		LoginID: login.LoginID,
	}); err != nil {
		return "", err
	}
	return value, nil
}

func (s *IdentityService) CheckLoginData(ctx context.Context, username, password string) (uint, error) {
	var id uint
	err := s.coord.Run(ctx, "check_login_data", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		user, err := s.checkLogin(ctx, u.Rel, username, password)
		if err != nil {
			return err
		}
		id = user.UserID
		return nil
	})
	return id, err
}

func (s *IdentityService) checkLogin(ctx context.Context, tx repository.Tx, username, password string) (*models.User, error) {
	user, err := tx.Users().GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if models.IsKind(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("Invalid credentials")
		}
		return nil, err
	}
	if !s.hasher.Verify(password, user.Password) {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return user, nil
}

// LoginWithPassword checks credentials and status, then issues a token.
// Only active users get one.
func (s *IdentityService) LoginWithPassword(ctx context.Context, username, password, captcha string) (LoginResult, error) {
	if err := s.verifyCaptcha(ctx, captcha); err != nil {
		return LoginResult{}, err
	}
	var out LoginResult
	err := s.coord.Run(ctx, "login_with_password", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		user, err := s.checkLogin(ctx, u.Rel, username, password)
		if err != nil {
			return err
		}
		switch user.Status {
		case models.StatusBanned:
			return models.NewForbiddenError("Account is banned")
		case models.StatusRegistered:
			return models.NewForbiddenError("Account is not activated")
		}
		token, err := s.issueToken(ctx, u.Rel, user.UserID)
		if err != nil {
			return err
		}
		out = LoginResult{UserID: user.UserID, Token: token, Status: user.Status}
		return nil
	})
	return out, err
}

func (s *IdentityService) Logout(ctx context.Context, token string) error {
	return s.coord.Run(ctx, "logout", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		err := u.Rel.Sessions().DeleteToken(ctx, strings.TrimSpace(token))
		if models.IsKind(err, models.CodeNotFound) {
			return models.NewUnauthorizedError("Invalid access token")
		}
		return err
	})
}

// LogoutAll revokes every token of the caller.
func (s *IdentityService) LogoutAll(ctx context.Context, token string) error {
	return s.coord.Run(ctx, "logout_all", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		_, err = u.Rel.Sessions().DeleteUserTokens(ctx, caller.UserID)
		return err
	})
}

func (s *IdentityService) GetUserFromAccessToken(ctx context.Context, token string) (uint, error) {
	var id uint
	err := s.coord.Run(ctx, "get_user_from_token", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		row, err := u.Rel.Sessions().GetToken(ctx, strings.TrimSpace(token))
		if err != nil {
			if models.IsKind(err, models.CodeNotFound) {
				return models.NewUnauthorizedError("Invalid access token")
			}
			return err
		}
		id = row.UserID
		return nil
	})
	return id, err
}

// GetUserStatusFromAccessToken returns the caller's status. With
// requiredRole set, a caller below it fails the same way as an unknown token.
func (s *IdentityService) GetUserStatusFromAccessToken(ctx context.Context, token string, requiredRole *models.Role) (models.UserStatus, error) {
	caller, err := s.GetCaller(ctx, token)
	if err != nil {
		return "", err
	}
	if requiredRole != nil && !caller.Role.AtLeast(*requiredRole) {
		return "", models.NewUnauthorizedError("Invalid access token")
	}
	return caller.Status, nil
}

// GetCaller resolves token to the caller identity.
func (s *IdentityService) GetCaller(ctx context.Context, token string) (models.Caller, error) {
	var caller models.Caller
	err := s.coord.Run(ctx, "get_caller", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		var err error
		caller, err = resolveCaller(ctx, u.Rel, token)
		return err
	})
	return caller, err
}

func (s *IdentityService) ChangePassword(ctx context.Context, token, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return models.NewValidationError("New password is required")
	}
	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return models.NewStoreError(err)
	}
	return s.coord.Run(ctx, "change_password", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		user, err := u.Rel.Users().GetByID(ctx, caller.UserID)
		if err != nil {
			return err
		}
		if !s.hasher.Verify(oldPassword, user.Password) {
			return models.NewUnauthorizedError("Current password is incorrect")
		}
		return u.Rel.Users().UpdatePassword(ctx, caller.UserID, digest)
	})
}

// ChangeEmail sets the caller's email. A blank value clears it.
func (s *IdentityService) ChangeEmail(ctx context.Context, token, email string) error {
	value := optional(email)
	if value != nil && !strings.Contains(*value, "@") {
		return models.NewValidationError("Invalid email address")
	}
	return s.coord.Run(ctx, "change_email", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		return u.Rel.Users().UpdateEmail(ctx, caller.UserID, value)
	})
}

// ChangePhone sets the caller's phone. Both parts blank clears it.
func (s *IdentityService) ChangePhone(ctx context.Context, token, country, number string) error {
	c, n := optional(country), optional(number)
	if (c == nil) != (n == nil) {
		return models.NewValidationError("Phone country and number must be given together")
	}
	return s.coord.Run(ctx, "change_phone", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		return u.Rel.Users().UpdatePhone(ctx, caller.UserID, c, n)
	})
}

// ResetPassword sets a new password for a user holding a valid code and
// revokes their sessions.
func (s *IdentityService) ResetPassword(ctx context.Context, username, code string, codeType models.AuthCodeType, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return models.NewValidationError("New password is required")
	}
	if !codeType.Valid() {
		return models.NewValidationError("Unknown code type")
	}
	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return models.NewStoreError(err)
	}
	return s.coord.Run(ctx, "reset_password", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		user, err := u.Rel.Users().GetByUsername(ctx, strings.TrimSpace(username))
		if err != nil {
			if models.IsKind(err, models.CodeNotFound) {
				return models.NewUnauthorizedError("Invalid or expired code")
			}
			return err
		}
		ok, err := u.Rel.AuthCodes().Match(ctx, user.UserID, strings.TrimSpace(code), codeType, s.Now())
		if err != nil {
			return err
		}
		if !ok {
			return models.NewUnauthorizedError("Invalid or expired code")
		}
		if err := u.Rel.Users().UpdatePassword(ctx, user.UserID, digest); err != nil {
			return err
		}
		_, err = u.Rel.Sessions().DeleteUserTokens(ctx, user.UserID)
		return err
	})
}

// ChangeRole sets another user's role. Admin only.
func (s *IdentityService) ChangeRole(ctx context.Context, token string, targetID uint, role models.Role) error {
	if !role.Valid() {
		return models.NewValidationError("Unknown role")
	}
	return s.coord.Run(ctx, "change_role", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		if caller.Role != models.RoleAdmin {
			return models.NewForbiddenError("Only admins can change roles")
		}
		if caller.UserID == targetID {
			return models.NewForbiddenError("Cannot change your own role")
		}
		if _, err := u.Rel.Users().GetByID(ctx, targetID); err != nil {
			return err
		}
		return u.Rel.Users().UpdateRole(ctx, targetID, role)
	})
}

// BanUser bans an active non-staff user for days and revokes their tokens.
func (s *IdentityService) BanUser(ctx context.Context, token string, targetID uint, reason string, days int) (uint, error) {
	if days < 1 {
		return 0, models.NewValidationError("Ban must last at least one day")
	}
	var banID uint
	err := s.coord.Run(ctx, "ban_user", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		if err := requireRole(caller, models.RoleModerator); err != nil {
			return err
		}
		target, err := u.Rel.Users().GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if !target.RoleID.Below(models.RoleFactChecker) {
			return models.NewForbiddenError("Staff cannot be banned")
		}
		if target.Status != models.StatusActive {
			return models.NewConflictError("Only active users can be banned")
		}

		now := s.Now()
		moderator := caller.UserID
		ban := &models.BanHistory{
			Reason:      strings.TrimSpace(reason),
			DateStart:   now,
			DateEnd:     now.Add(time.Duration(days) * 24 * time.Hour),
			UserID:      targetID,
			ModeratorID: &moderator,
		}
		if err := u.Rel.Bans().Create(ctx, ban); err != nil {
			return err
		}
		if err := u.Rel.Events().Create(ctx, &models.Event{
			Type:      models.EventBan,
			ValidTime: ban.DateEnd,
			UserID:    targetID,
			BanID:     &ban.BanID,
		}); err != nil {
			return err
		}
		moved, err := u.Rel.Users().TransitionStatus(ctx, targetID, models.StatusActive, models.StatusBanned)
		if err != nil {
			return err
		}
		if !moved {
			return models.NewConflictError("Only active users can be banned")
		}
		if _, err := u.Rel.Sessions().DeleteUserTokens(ctx, targetID); err != nil {
			return err
		}
		banID = ban.BanID
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("user banned", zap.Uint("user_id", targetID), zap.Uint("ban_id", banID), zap.Int("days", days))
	return banID, nil
}

// UnBanUser lifts every ban of the target at once.
func (s *IdentityService) UnBanUser(ctx context.Context, token string, targetID uint) error {
	return s.coord.Run(ctx, "unban_user", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		if err := requireRole(caller, models.RoleModerator); err != nil {
			return err
		}
		target, err := u.Rel.Users().GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if target.Status != models.StatusBanned {
			return models.NewNotFoundError("Ban", targetID)
		}
		if _, err := u.Rel.Events().DeleteForUser(ctx, targetID, models.EventBan); err != nil {
			return err
		}
		if _, err := u.Rel.Bans().DeleteForUser(ctx, targetID); err != nil {
			return err
		}
		return u.Rel.Users().SetStatus(ctx, targetID, models.StatusActive)
	})
}

func (s *IdentityService) GetBanInfo(ctx context.Context, userID uint) (*models.BanHistory, error) {
	var ban *models.BanHistory
	err := s.coord.Run(ctx, "get_ban_info", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		var err error
		ban, err = u.Rel.Bans().GetActive(ctx, userID)
		return err
	})
	return ban, err
}

// DeleteUser removes an account from both stores and returns the files the
// caller should clean up.
func (s *IdentityService) DeleteUser(ctx context.Context, token string, targetID uint) ([]string, error) {
	var files []string
	err := s.coord.Run(ctx, "delete_user", coordinator.Both, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		if caller.UserID == targetID {
			if err := requireActive(caller); err != nil {
				return err
			}
		} else if caller.Role != models.RoleAdmin {
			return models.NewForbiddenError("Only admins can delete other users")
		}
		target, err := u.Rel.Users().GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if target.Status != models.StatusRegistered {
			avatar, images, err := u.Graph.DeleteUser(ctx, targetID)
			if err != nil {
				return err
			}
			if avatar != "" && avatar != s.platform.DefaultAvatar {
				files = append(files, avatar)
			}
			for _, img := range images {
				if img != "" {
					files = append(files, img)
				}
			}
		}
		// Held reports go back to the queue before the holder's lease events
		// cascade away with the user.
		if _, err := u.Rel.Reports().UnlockHeldBy(ctx, targetID); err != nil {
			return err
		}
		if _, err := u.Rel.Events().DeleteForUser(ctx, targetID, models.EventLockedReport); err != nil {
			return err
		}
		return u.Rel.Users().Delete(ctx, targetID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user deleted", zap.Uint("user_id", targetID), zap.Int("files", len(files)))
	return files, nil
}

// ChangeAvatar sets the caller's avatar. The previous one is returned for
// cleanup unless it was the shared default.
func (s *IdentityService) ChangeAvatar(ctx context.Context, token, avatar string) (string, error) {
	avatar = strings.TrimSpace(avatar)
	if avatar == "" {
		return "", models.NewValidationError("Avatar is required")
	}
	var previous string
	err := s.coord.Run(ctx, "change_avatar", coordinator.Both, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		if err := requireActive(caller); err != nil {
			return err
		}
		previous, err = u.Graph.UpdateAvatar(ctx, caller.UserID, avatar)
		return err
	})
	if err != nil {
		return "", err
	}
	if previous == s.platform.DefaultAvatar {
		previous = ""
	}
	return previous, nil
}

// GetUser returns the public profile. Users that were never activated have
// no profile.
func (s *IdentityService) GetUser(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile *models.Profile
	err := s.coord.Run(ctx, "get_user", coordinator.Both, func(ctx context.Context, u *coordinator.Unit) error {
		user, err := u.Rel.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.Status == models.StatusRegistered {
			return models.NewNotFoundError("User", userID)
		}
		node, err := u.Graph.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		profile = &models.Profile{GraphUser: *node, Status: user.Status, Role: user.RoleID}
		return nil
	})
	return profile, err
}
