package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tasbiaat/api/internal/config"
	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/ids"
	"tasbiaat/api/internal/models"
	"tasbiaat/api/internal/repository"
)

// BackupStore is where backup archives end up. Satisfied by storage.ObjectStore.
type BackupStore interface {
	PutBackup(ctx context.Context, key string, data []byte, contentType string) (string, error)
	ListBackups(ctx context.Context, prefix string) ([]string, error)
}

type AdminService struct {
	users         UserStore
	sessions      SessionStore
	entries       EntryStore
	audit         AuditStore
	notifications NotificationStore
	levels        LevelStore
	backups       BackupStore
	authz         *Authorizer
	cache         *redis.Client
	cfg           *config.AppConfig
	log           zerolog.Logger
	now           func() time.Time
}

func NewAdminService(
	users UserStore,
	sessions SessionStore,
	entries EntryStore,
	audit AuditStore,
	notifications NotificationStore,
	levels LevelStore,
	backups BackupStore,
	authz *Authorizer,
	cache *redis.Client,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AdminService {
	return &AdminService{
		users:         users,
		sessions:      sessions,
		entries:       entries,
		audit:         audit,
		notifications: notifications,
		levels:        levels,
		backups:       backups,
		authz:         authz,
		cache:         cache,
		cfg:           cfg,
		log:           log,
		now:           time.Now,
	}
}

type SystemStatus struct {
	UsersByRole    map[string]int `json:"users_by_role"`
	TotalEntries   int            `json:"total_entries"`
	ActiveSessions int            `json:"active_sessions"`
	AuditRecords   int            `json:"audit_records"`
	RedisHealthy   bool           `json:"redis_healthy"`
	Timestamp      time.Time      `json:"timestamp"`
}

func (s *AdminService) SystemStatus(ctx context.Context) (SystemStatus, error) {
	status := SystemStatus{Timestamp: s.now()}

	usersByRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return SystemStatus{}, domain.Wrap(domain.KindInternal, err, "count users")
	}
	status.UsersByRole = usersByRole

	if status.TotalEntries, err = s.entries.Count(ctx); err != nil {
		return SystemStatus{}, domain.Wrap(domain.KindInternal, err, "count entries")
	}
	if status.ActiveSessions, err = s.sessions.CountActive(ctx); err != nil {
		return SystemStatus{}, domain.Wrap(domain.KindInternal, err, "count sessions")
	}
	if status.AuditRecords, err = s.audit.Count(ctx); err != nil {
		return SystemStatus{}, domain.Wrap(domain.KindInternal, err, "count audit records")
	}
	if s.cache != nil {
		status.RedisHealthy = s.cache.Ping(ctx).Err() == nil
	}
	return status, nil
}

type CleanupReport struct {
	ExpiredSessions      int `json:"expired_sessions"`
	ExpiredNotifications int `json:"expired_notifications"`
	PrunedAuditRecords   int `json:"pruned_audit_records"`
}

// Cleanup runs the retention sweeps: expired sessions, expired notifications
// and audit rows past the retention window.
func (s *AdminService) Cleanup(ctx context.Context) (CleanupReport, error) {
	var report CleanupReport
	var err error

	if report.ExpiredSessions, err = s.sessions.DeleteExpired(ctx); err != nil {
		return report, domain.Wrap(domain.KindInternal, err, "delete expired sessions")
	}
	if report.ExpiredNotifications, err = s.notifications.DeleteExpired(ctx); err != nil {
		return report, domain.Wrap(domain.KindInternal, err, "delete expired notifications")
	}

	cutoff := s.now().AddDate(0, 0, -s.cfg.Retention.AuditDays)
	if report.PrunedAuditRecords, err = s.audit.DeleteOlderThan(ctx, cutoff); err != nil {
		return report, domain.Wrap(domain.KindInternal, err, "prune audit records")
	}

	s.log.Info().
		Int("sessions", report.ExpiredSessions).
		Int("notifications", report.ExpiredNotifications).
		Int("audit", report.PrunedAuditRecords).
		Msg("cleanup sweep finished")
	return report, nil
}

// ForceLogout revokes every session of the target. The actor must outrank and
// supervise the target, or be Admin.
func (s *AdminService) ForceLogout(ctx context.Context, actor models.User, userID string) (int, error) {
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, domain.E(domain.KindNotFound, "user not found")
		}
		return 0, domain.Wrap(domain.KindInternal, err, "load user")
	}

	allowed, err := s.authz.CanManageUser(ctx, actor, target)
	if err != nil {
		return 0, domain.Wrap(domain.KindInternal, err, "authorize")
	}
	if !allowed {
		return 0, domain.E(domain.KindAuthorization, "not allowed to manage this user")
	}

	count, err := s.sessions.DeactivateAllForUser(ctx, target.ID, "")
	if err != nil {
		return 0, domain.Wrap(domain.KindInternal, err, "revoke sessions")
	}

	s.recordAudit(ctx, actor.ID, "force_logout", "user", &target.ID, map[string]any{"revoked": count})
	return count, nil
}

// bulkOpLimit caps how many users one bulk request may touch.
const bulkOpLimit = 500

type BulkResult struct {
	Updated int      `json:"updated"`
	Skipped []string `json:"skipped,omitempty"`
}

func validateBulkIDs(userIDs []string) error {
	if len(userIDs) == 0 {
		return domain.E(domain.KindValidation, "user_ids is required")
	}
	if len(userIDs) > bulkOpLimit {
		return domain.E(domain.KindValidation, "at most %d users per bulk operation", bulkOpLimit)
	}
	return nil
}

// BulkResetCycles restarts the level cycle as of today for each listed
// Saalik. Unknown IDs and non-Saalik users are skipped, not failed.
func (s *AdminService) BulkResetCycles(ctx context.Context, actor models.User, userIDs []string) (BulkResult, error) {
	if err := validateBulkIDs(userIDs); err != nil {
		return BulkResult{}, err
	}

	today := domain.DateOnly(s.now())
	var result BulkResult
	for _, id := range userIDs {
		target, err := s.users.GetByID(ctx, id)
		if err != nil || target.Role != domain.RoleSaalik {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		if err := s.users.RestartCycle(ctx, id, today); err != nil {
			return result, domain.Wrap(domain.KindInternal, err, "restart cycle for %s", id)
		}
		result.Updated++
	}

	s.recordAudit(ctx, actor.ID, "bulk_cycle_reset", "user", nil, map[string]any{
		"requested": len(userIDs),
		"updated":   result.Updated,
	})
	return result, nil
}

// BulkSetLevel moves each listed Saalik to the given level and starts a fresh
// cycle there.
func (s *AdminService) BulkSetLevel(ctx context.Context, actor models.User, userIDs []string, level int) (BulkResult, error) {
	if err := validateBulkIDs(userIDs); err != nil {
		return BulkResult{}, err
	}
	if !domain.ValidLevel(level) {
		return BulkResult{}, domain.E(domain.KindValidation, "level must be between %d and %d", domain.MinLevel, domain.MaxLevel)
	}

	today := domain.DateOnly(s.now())
	var result BulkResult
	for _, id := range userIDs {
		target, err := s.users.GetByID(ctx, id)
		if err != nil || target.Role != domain.RoleSaalik {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		if err := s.users.SetLevel(ctx, id, level, today); err != nil {
			return result, domain.Wrap(domain.KindInternal, err, "set level for %s", id)
		}
		result.Updated++
	}

	s.recordAudit(ctx, actor.ID, "bulk_level_update", "user", nil, map[string]any{
		"requested": len(userIDs),
		"updated":   result.Updated,
		"level":     level,
	})
	return result, nil
}

type backupArchive struct {
	CreatedAt time.Time      `json:"created_at"`
	Levels    []models.Level `json:"levels"`
	Users     []models.User  `json:"users"`
	Entries   []models.Entry `json:"entries"`
}

// Backup dumps levels, users and entries to a JSON archive in the backup
// bucket and returns the object key. Password hashes are stripped.
func (s *AdminService) Backup(ctx context.Context, actor models.User) (string, error) {
	if s.backups == nil {
		return "", domain.E(domain.KindInternal, "backup storage is not configured")
	}

	levels, err := s.levels.All(ctx)
	if err != nil {
		return "", domain.Wrap(domain.KindInternal, err, "load levels")
	}
	users, err := s.users.ListAll(ctx, "", 0, 0)
	if err != nil {
		return "", domain.Wrap(domain.KindInternal, err, "load users")
	}
	for i := range users {
		users[i].PasswordHash = nil
	}
	entries, err := s.entries.ListAll(ctx, repository.EntryFilter{})
	if err != nil {
		return "", domain.Wrap(domain.KindInternal, err, "load entries")
	}

	archive := backupArchive{
		CreatedAt: s.now(),
		Levels:    levels,
		Users:     users,
		Entries:   entries,
	}
	data, err := json.Marshal(archive)
	if err != nil {
		return "", domain.Wrap(domain.KindInternal, err, "encode backup")
	}

	key := fmt.Sprintf("backups/%s.json", s.now().UTC().Format("20060102T150405Z"))
	if _, err := s.backups.PutBackup(ctx, key, data, "application/json"); err != nil {
		return "", domain.Wrap(domain.KindInternal, err, "upload backup")
	}

	s.recordAudit(ctx, actor.ID, "backup_created", "system", nil, map[string]any{
		"key":     key,
		"users":   len(users),
		"entries": len(entries),
	})
	s.log.Info().Str("key", key).Int("users", len(users)).Int("entries", len(entries)).Msg("backup uploaded")
	return key, nil
}

func (s *AdminService) Backups(ctx context.Context) ([]string, error) {
	if s.backups == nil {
		return nil, domain.E(domain.KindInternal, "backup storage is not configured")
	}
	keys, err := s.backups.ListBackups(ctx, "backups/")
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "list backups")
	}
	return keys, nil
}

// AuditLog exposes the system trail, Admin only at the handler layer.
func (s *AdminService) AuditLog(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	records, err := s.audit.List(ctx, filter)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "list audit records")
	}
	return records, nil
}

func (s *AdminService) ActorActivity(ctx context.Context, actorID string, days int) (models.ActivitySummary, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	summary, err := s.audit.ActorSummary(ctx, actorID, days)
	if err != nil {
		return models.ActivitySummary{}, domain.Wrap(domain.KindInternal, err, "summarize activity")
	}
	return summary, nil
}

func (s *AdminService) SystemActivity(ctx context.Context, days int) (models.ActivitySummary, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	summary, err := s.audit.SystemSummary(ctx, days)
	if err != nil {
		return models.ActivitySummary{}, domain.Wrap(domain.KindInternal, err, "summarize activity")
	}
	return summary, nil
}

func (s *AdminService) recordAudit(ctx context.Context, actorID, action, resourceType string, resourceID *string, meta map[string]any) {
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
