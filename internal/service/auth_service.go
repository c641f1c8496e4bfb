package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tasbiaat/api/internal/config"
	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/ids"
	"tasbiaat/api/internal/models"
	"tasbiaat/api/internal/repository"
	"tasbiaat/api/internal/security"
)

type AuthService struct {
	users    UserStore
	sessions SessionStore
	audit    AuditStore
	cfg      *config.AppConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(
	users UserStore,
	sessions SessionStore,
	audit AuditStore,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		audit:    audit,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type LoginInput struct {
	// Identifier is a phone number or an email address.
	Identifier string
	Password   string
	DeviceName string
	IPAddress  string
	UserAgent  string
}

type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"-"`
}

func (s *AuthService) findByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	if strings.Contains(identifier, "@") {
		return s.users.FindByEmail(ctx, strings.ToLower(identifier))
	}
	return s.users.FindByPhone(ctx, identifier)
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	input.Identifier = strings.TrimSpace(input.Identifier)
	if input.Identifier == "" || input.Password == "" {
		return AuthResult{}, domain.E(domain.KindValidation, "identifier and password are required")
	}

	user, err := s.findByIdentifier(ctx, input.Identifier)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, domain.E(domain.KindAuthorization, "invalid credentials")
		}
		return AuthResult{}, domain.Wrap(domain.KindInternal, err, "look up user")
	}

	if ok, err := security.VerifyPassword(input.Password, user.PasswordHash); err != nil || !ok {
		return AuthResult{}, domain.E(domain.KindAuthorization, "invalid credentials")
	}
	if !user.IsActive {
		return AuthResult{}, domain.E(domain.KindAuthorization, "account is deactivated")
	}

	// Evict the least recently used sessions before adding a new one.
	active, err := s.sessions.CountActiveByUser(ctx, user.ID)
	if err != nil {
		return AuthResult{}, domain.Wrap(domain.KindInternal, err, "count sessions")
	}
	if active >= s.cfg.Security.MaxSessions {
		if err := s.sessions.DeactivateOldest(ctx, user.ID, s.cfg.Security.MaxSessions-1); err != nil {
			return AuthResult{}, domain.Wrap(domain.KindInternal, err, "evict sessions")
		}
	}

	tokenID, err := security.GenerateTokenID()
	if err != nil {
		return AuthResult{}, domain.Wrap(domain.KindInternal, err, "generate token id")
	}

	now := s.now()
	session := models.Session{
		ID:         ids.New(),
		UserID:     user.ID,
		TokenID:    tokenID,
		DeviceName: input.DeviceName,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
		IsActive:   true,
		ExpiresAt:  now.Add(s.cfg.Security.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, domain.Wrap(domain.KindInternal, err, "create session")
	}

	token, err := security.GenerateAccessToken(s.cfg.Security.JWTSecret, user.ID, tokenID, string(user.Role), s.cfg.Security.JWTTTL)
	if err != nil {
		return AuthResult{}, domain.Wrap(domain.KindInternal, err, "sign token")
	}

	s.recordAudit(ctx, user.ID, "login", "session", &session.ID, input.IPAddress, input.UserAgent, nil)
	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user logged in")

	return AuthResult{
		Token:     token,
		ExpiresAt: now.Add(s.cfg.Security.JWTTTL),
		User:      user,
	}, nil
}

// Refresh issues a fresh JWT for a still-valid session without touching the
// password.
func (s *AuthService) Refresh(ctx context.Context, user models.User, tokenID string) (AuthResult, error) {
	session, err := s.sessions.GetByTokenID(ctx, tokenID)
	if err != nil {
		return AuthResult{}, domain.E(domain.KindAuthorization, "session not found")
	}
	if session.UserID != user.ID || !session.Valid(s.now()) {
		return AuthResult{}, domain.E(domain.KindAuthorization, "session expired")
	}

	token, err := security.GenerateAccessToken(s.cfg.Security.JWTSecret, user.ID, tokenID, string(user.Role), s.cfg.Security.JWTTTL)
	if err != nil {
		return AuthResult{}, domain.Wrap(domain.KindInternal, err, "sign token")
	}
	return AuthResult{
		Token:     token,
		ExpiresAt: s.now().Add(s.cfg.Security.JWTTTL),
		User:      user,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, user models.User, tokenID string) error {
	if err := s.sessions.Deactivate(ctx, tokenID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return domain.E(domain.KindNotFound, "session not found")
		}
		return domain.Wrap(domain.KindInternal, err, "deactivate session")
	}
	s.recordAudit(ctx, user.ID, "logout", "session", nil, "", "", nil)
	return nil
}

// LogoutAll revokes every other session of the caller and returns how many
// were revoked.
func (s *AuthService) LogoutAll(ctx context.Context, user models.User, keepTokenID string) (int, error) {
	count, err := s.sessions.DeactivateAllForUser(ctx, user.ID, keepTokenID)
	if err != nil {
		return 0, domain.Wrap(domain.KindInternal, err, "deactivate sessions")
	}
	s.recordAudit(ctx, user.ID, "logout_all", "session", nil, "", "", map[string]any{"revoked": count})
	return count, nil
}

func (s *AuthService) Sessions(ctx context.Context, user models.User) ([]models.Session, error) {
	sessions, err := s.sessions.ListByUser(ctx, user.ID, true)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "list sessions")
	}
	return sessions, nil
}

type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	KeepTokenID     string
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every other session so stolen tokens die with the old password.
func (s *AuthService) ChangePassword(ctx context.Context, user models.User, input ChangePasswordInput) error {
	if len(input.NewPassword) < 8 {
		return domain.E(domain.KindValidation, "new password must be at least 8 characters")
	}
	if ok, err := security.VerifyPassword(input.CurrentPassword, user.PasswordHash); err != nil || !ok {
		return domain.E(domain.KindAuthorization, "current password is incorrect")
	}

	hash, err := security.HashPassword(input.NewPassword)
	if err != nil {
		return domain.Wrap(domain.KindInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return domain.Wrap(domain.KindInternal, err, "update password")
	}

	if _, err := s.sessions.DeactivateAllForUser(ctx, user.ID, input.KeepTokenID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to revoke sessions after password change")
	}

	s.recordAudit(ctx, user.ID, "password_changed", "user", &user.ID, "", "", nil)
	return nil
}

func (s *AuthService) recordAudit(ctx context.Context, actorID, action, resourceType string, resourceID *string, ip, userAgent string, meta map[string]any) {
	record := models.AuditRecord{
		ID:           ids.New(),
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     meta,
		IPAddress:    ip,
		UserAgent:    userAgent,
	}
	if err := s.audit.Append(ctx, record); err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("audit append failed")
	}
}
