package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/ids"
	"tasbiaat/api/internal/models"
	"tasbiaat/api/internal/repository"
	"tasbiaat/api/internal/security"
)

type UserService struct {
	users    UserStore
	sessions SessionStore
	levels   LevelStore
	audit    AuditStore
	authz    *Authorizer
	log      zerolog.Logger
	now      func() time.Time
}

func NewUserService(
	users UserStore,
	sessions SessionStore,
	levels LevelStore,
	audit AuditStore,
	authz *Authorizer,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		users:    users,
		sessions: sessions,
		levels:   levels,
		audit:    audit,
		authz:    authz,
		log:      log,
		now:      time.Now,
	}
}

type CreateUserInput struct {
	Name     string
	Phone    string
	Email    string
	Password string
	Role     string
	Region   string
	// MurabiID may be set by a Masool or above to place a new Saalik under a
	// specific Murabi; creators lower in the chain are assigned automatically.
	MurabiID string
}

// Create makes a new account. Who may create whom is the fixed role-creation
// table; the new user's upward references are derived from the creator's own
// chain so the hierarchy stays consistent.
func (s *UserService) Create(ctx context.Context, creator models.User, input CreateUserInput) (models.User, error) {
	role, ok := domain.ParseRole(input.Role)
	if !ok {
		return models.User{}, domain.E(domain.KindValidation, "invalid role: %s", input.Role)
	}
	if !creator.Role.CanCreate(role) {
		return models.User{}, domain.E(domain.KindAuthorization, "%s may not create %s users", creator.Role, role)
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	if input.Name == "" || input.Phone == "" {
		return models.User{}, domain.E(domain.KindValidation, "name and phone are required")
	}
	if len(input.Password) < 8 {
		return models.User{}, domain.E(domain.KindValidation, "password must be at least 8 characters")
	}

	if _, err := s.users.FindByPhone(ctx, input.Phone); err == nil {
		return models.User{}, domain.E(domain.KindConflict, "phone number already registered")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, domain.Wrap(domain.KindInternal, err, "check phone")
	}

	var email *string
	if input.Email != "" {
		normalized := strings.ToLower(strings.TrimSpace(input.Email))
		if _, err := s.users.FindByEmail(ctx, normalized); err == nil {
			return models.User{}, domain.E(domain.KindConflict, "email already registered")
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, domain.Wrap(domain.KindInternal, err, "check email")
		}
		email = &normalized
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.User{}, domain.Wrap(domain.KindInternal, err, "hash password")
	}

	user := models.User{
		ID:           ids.New(),
		Name:         input.Name,
		Phone:        input.Phone,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedBy:    &creator.ID,
		Settings:     domain.DefaultSettings(),
	}
	if input.Region != "" {
		user.Region = &input.Region
	} else {
		user.Region = creator.Region
	}

	if err := s.assignParents(ctx, creator, &user, input.MurabiID); err != nil {
		return models.User{}, err
	}

	if role == domain.RoleSaalik {
		start := domain.DateOnly(s.now())
		user.Level = domain.MinLevel
		user.LevelStartDate = &start
		user.CycleDays = domain.DefaultCycleDays
	}

	if err := s.users.Create(ctx, user); err != nil {
		return models.User{}, domain.Wrap(domain.KindInternal, err, "create user")
	}

	s.recordAudit(ctx, creator.ID, "user_created", "user", &user.ID, map[string]any{
		"role": string(role),
		"name": user.Name,
	})
	s.log.Info().Str("creator", creator.ID).Str("user_id", user.ID).Str("role", string(role)).Msg("user created")
	return user, nil
}

// assignParents wires the new user's upward chain from the creator's position.
func (s *UserService) assignParents(ctx context.Context, creator models.User, user *models.User, murabiID string) error {
	switch user.Role {
	case domain.RoleSaalik:
		switch creator.Role {
		case domain.RoleMurabi:
			user.MurabiID = &creator.ID
			user.MasoolID = creator.MasoolID
			user.SheikhID = creator.SheikhID
		default:
			// Masool or Admin placing a Saalik must name the Murabi.
			if murabiID == "" {
				return domain.E(domain.KindValidation, "murabi_id is required when placing a Saalik")
			}
			murabi, err := s.users.GetByID(ctx, murabiID)
			if err != nil {
				return domain.E(domain.KindValidation, "murabi not found")
			}
			if murabi.Role != domain.RoleMurabi {
				return domain.E(domain.KindValidation, "assigned supervisor is not a Murabi")
			}
			user.MurabiID = &murabi.ID
			user.MasoolID = murabi.MasoolID
			user.SheikhID = murabi.SheikhID
		}
	case domain.RoleMurabi:
		switch creator.Role {
		case domain.RoleMasool:
			user.MasoolID = &creator.ID
			user.SheikhID = creator.SheikhID
		case domain.RoleSheikh:
			user.SheikhID = &creator.ID
		}
	case domain.RoleMasool:
		if creator.Role == domain.RoleSheikh {
			user.SheikhID = &creator.ID
		}
	}
	return nil
}

func (s *UserService) Get(ctx context.Context, viewer models.User, userID string) (models.User, error) {
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, domain.E(domain.KindNotFound, "user not found")
		}
		return models.User{}, domain.Wrap(domain.KindInternal, err, "load user")
	}
	allowed, err := s.authz.CanViewUser(ctx, viewer, target)
	if err != nil {
		return models.User{}, domain.Wrap(domain.KindInternal, err, "authorize")
	}
	if !allowed {
		return models.User{}, domain.E(domain.KindAuthorization, "not allowed to view this user")
	}
	return target, nil
}

type ListUsersInput struct {
	Role   string
	Limit  int
	Offset int
}

// List returns users in the viewer's scope: everything for Admin, the subtree
// for supervisors.
func (s *UserService) List(ctx context.Context, viewer models.User, input ListUsersInput) ([]models.User, error) {
	if !viewer.Role.Supervisory() {
		return nil, domain.E(domain.KindAuthorization, "not allowed to list users")
	}

	var roleFilter domain.Role
	if input.Role != "" {
		role, ok := domain.ParseRole(input.Role)
		if !ok {
			return nil, domain.E(domain.KindValidation, "invalid role: %s", input.Role)
		}
		roleFilter = role
	}
	if input.Limit <= 0 || input.Limit > 200 {
		input.Limit = 50
	}

	var users []models.User
	var err error
	if viewer.Role == domain.RoleAdmin {
		users, err = s.users.ListAll(ctx, roleFilter, input.Limit, input.Offset)
	} else {
		users, err = s.users.ListByHierarchy(ctx, viewer.ID, roleFilter, input.Limit, input.Offset)
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "list users")
	}
	return users, nil
}

// Children returns the direct reports of a supervisor.
func (s *UserService) Children(ctx context.Context, viewer models.User, parentID string) ([]models.User, error) {
	parent := viewer
	if parentID != "" && parentID != viewer.ID {
		var err error
		parent, err = s.Get(ctx, viewer, parentID)
		if err != nil {
			return nil, err
		}
	}

	var childRole domain.Role
	switch parent.Role {
	case domain.RoleMurabi:
		childRole = domain.RoleSaalik
	case domain.RoleMasool:
		childRole = domain.RoleMurabi
	case domain.RoleSheikh:
		childRole = domain.RoleMasool
	default:
		return nil, domain.E(domain.KindValidation, "%s has no direct reports", parent.Role)
	}

	children, err := s.users.FindChildren(ctx, parent.ID, childRole)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "list children")
	}
	return children, nil
}

type UpdateUserInput struct {
	Name   *string
	Email  *string
	Region *string
	// Settings changes are supervisor-only for the Zikr policy knobs.
	Settings *domain.PracticeSettings
}

func (s *UserService) Update(ctx context.Context, actor models.User, userID string, input UpdateUserInput) (models.User, error) {
	target, err := s.Get(ctx, actor, userID)
	if err != nil {
		return models.User{}, err
	}

	self := actor.ID == target.ID
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return models.User{}, domain.E(domain.KindValidation, "name cannot be empty")
		}
		target.Name = name
	}
	if input.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*input.Email))
		target.Email = &normalized
	}
	if input.Region != nil {
		target.Region = input.Region
	}
	if input.Settings != nil {
		if self && actor.Role == domain.RoleSaalik {
			// A Saalik may only toggle their own notification preference; the
			// Zikr policy is set by the supervisor.
			target.Settings.NotificationsEnabled = input.Settings.NotificationsEnabled
		} else {
			if input.Settings.ZikrMode != domain.ZikrModeAutoRestart && input.Settings.ZikrMode != domain.ZikrModeMurabiControlled {
				return models.User{}, domain.E(domain.KindValidation, "invalid zikr mode: %s", input.Settings.ZikrMode)
			}
			target.Settings = *input.Settings
		}
	}

	if err := s.users.Update(ctx, target); err != nil {
		return models.User{}, domain.Wrap(domain.KindInternal, err, "update user")
	}
	s.recordAudit(ctx, actor.ID, "user_updated", "user", &target.ID, nil)
	return target, nil
}

// SetLevel moves a Saalik to a different level and restarts their cycle
// clock. Level changes are a supervisory decision.
func (s *UserService) SetLevel(ctx context.Context, actor models.User, userID string, level int) (models.User, error) {
	if !domain.ValidLevel(level) {
		return models.User{}, domain.E(domain.KindValidation, "level must be between %d and %d", domain.MinLevel, domain.MaxLevel)
	}

	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, domain.E(domain.KindNotFound, "user not found")
		}
		return models.User{}, domain.Wrap(domain.KindInternal, err, "load user")
	}
	if target.Role != domain.RoleSaalik {
		return models.User{}, domain.E(domain.KindValidation, "levels apply only to Saalik users")
	}

	allowed, err := s.authz.CanManageUser(ctx, actor, target)
	if err != nil {
		return models.User{}, domain.Wrap(domain.KindInternal, err, "authorize")
	}
	if !allowed {
		return models.User{}, domain.E(domain.KindAuthorization, "not allowed to change this user's level")
	}

	if _, err := s.levels.FindByLevel(ctx, level); err != nil {
		return models.User{}, domain.E(domain.KindValidation, "unknown level %d", level)
	}

	start := domain.DateOnly(s.now())
	if err := s.users.SetLevel(ctx, target.ID, level, start); err != nil {
		return models.User{}, domain.Wrap(domain.KindInternal, err, "set level")
	}

	s.recordAudit(ctx, actor.ID, "level_changed", "user", &target.ID, map[string]any{
		"from": target.Level,
		"to":   level,
	})

	target.Level = level
	target.LevelStartDate = &start
	return target, nil
}

// ResetCycle restarts the target's cycle clock without changing the level.
func (s *UserService) ResetCycle(ctx context.Context, actor models.User, userID string) (models.User, error) {
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, domain.E(domain.KindNotFound, "user not found")
		}
		return models.User{}, domain.Wrap(domain.KindInternal, err, "load user")
	}
	if target.Role != domain.RoleSaalik {
		return models.User{}, domain.E(domain.KindValidation, "cycles apply only to Saalik users")
	}

	allowed, err := s.authz.CanManageUser(ctx, actor, target)
	if err != nil {
		return models.User{}, domain.Wrap(domain.KindInternal, err, "authorize")
	}
	if !allowed {
		return models.User{}, domain.E(domain.KindAuthorization, "not allowed to reset this user's cycle")
	}

	start := domain.DateOnly(s.now())
	if err := s.users.RestartCycle(ctx, target.ID, start); err != nil {
		return models.User{}, domain.Wrap(domain.KindInternal, err, "restart cycle")
	}

	s.recordAudit(ctx, actor.ID, "cycle_restarted", "user", &target.ID, map[string]any{
		"reason": "manual_reset",
	})
	target.LevelStartDate = &start
	return target, nil
}

// SetActive activates or deactivates an account. Deactivation also revokes
// every session so the account goes dark immediately.
func (s *UserService) SetActive(ctx context.Context, actor models.User, userID string, active bool) error {
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domain.E(domain.KindNotFound, "user not found")
		}
		return domain.Wrap(domain.KindInternal, err, "load user")
	}
	if target.ID == actor.ID {
		return domain.E(domain.KindValidation, "cannot change your own active state")
	}

	allowed, err := s.authz.CanManageUser(ctx, actor, target)
	if err != nil {
		return domain.Wrap(domain.KindInternal, err, "authorize")
	}
	if !allowed {
		return domain.E(domain.KindAuthorization, "not allowed to manage this user")
	}

	if err := s.users.SetActive(ctx, target.ID, active); err != nil {
		return domain.Wrap(domain.KindInternal, err, "set active")
	}
	if !active {
		if _, err := s.sessions.DeactivateAllForUser(ctx, target.ID, ""); err != nil {
			s.log.Warn().Err(err).Str("user_id", target.ID).Msg("failed to revoke sessions on deactivation")
		}
	}

	action := "user_deactivated"
	if active {
		action = "user_activated"
	}
	s.recordAudit(ctx, actor.ID, action, "user", &target.ID, nil)
	return nil
}

// Progress reports where a Saalik stands in their current cycle, with the
// level catalog record attached.
func (s *UserService) Progress(ctx context.Context, viewer models.User, userID string) (domain.CycleProgress, models.Level, error) {
	target := viewer
	if userID != "" && userID != viewer.ID {
		var err error
		target, err = s.Get(ctx, viewer, userID)
		if err != nil {
			return domain.CycleProgress{}, models.Level{}, err
		}
	}
	if target.Role != domain.RoleSaalik {
		return domain.CycleProgress{}, models.Level{}, domain.E(domain.KindValidation, "cycles apply only to Saalik users")
	}

	level, err := s.levels.FindByLevel(ctx, target.Level)
	if err != nil {
		return domain.CycleProgress{}, models.Level{}, domain.Wrap(domain.KindInternal, err, "load level")
	}
	return domain.Progress(target.LevelStartDate, target.CycleDays, s.now()), level, nil
}

func (s *UserService) Levels(ctx context.Context) ([]models.Level, error) {
	levels, err := s.levels.All(ctx)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "list levels")
	}
	return levels, nil
}

func (s *UserService) recordAudit(ctx context.Context, actorID, action, resourceType string, resourceID *string, meta map[string]any) {
	record := models.AuditRecord{
		ID:           ids.New(),
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     meta,
	}
	if err := s.audit.Append(ctx, record); err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("audit append failed")
	}
}
