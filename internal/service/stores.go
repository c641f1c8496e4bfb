package service

import (
	"context"
	"time"

	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/models"
	"tasbiaat/api/internal/repository"
)

// The services depend on narrow store interfaces rather than the pgx
// repositories directly, so the domain flows can be exercised against
// in-memory fakes. The repository types satisfy these at compile time.

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByPhone(ctx context.Context, phone string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByRole(ctx context.Context, role domain.Role, region string) ([]models.User, error)
	FindChildren(ctx context.Context, parentID string, childRole domain.Role) ([]models.User, error)
	ListByHierarchy(ctx context.Context, ancestorID string, roleFilter domain.Role, limit, offset int) ([]models.User, error)
	ListAll(ctx context.Context, roleFilter domain.Role, limit, offset int) ([]models.User, error)
	Update(ctx context.Context, user models.User) error
	UpdatePassword(ctx context.Context, id string, passwordHash []byte) error
	SetLevel(ctx context.Context, id string, level int, startDate time.Time) error
	RestartCycle(ctx context.Context, id string, startDate time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
	CountByRole(ctx context.Context) (map[string]int, error)
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	GetByTokenID(ctx context.Context, tokenID string) (models.Session, error)
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]models.Session, error)
	Deactivate(ctx context.Context, tokenID string) error
	DeactivateAllForUser(ctx context.Context, userID string, exceptTokenID string) (int, error)
	CountActiveByUser(ctx context.Context, userID string) (int, error)
	DeactivateOldest(ctx context.Context, userID string, keepLatest int) error
	DeleteExpired(ctx context.Context) (int, error)
	CountActive(ctx context.Context) (int, error)
}

type EntryStore interface {
	Upsert(ctx context.Context, entry models.Entry) (string, bool, error)
	UpsertWithCycleRestart(ctx context.Context, entry models.Entry, startDate time.Time) (string, bool, error)
	GetByID(ctx context.Context, id string) (models.Entry, error)
	FindByUserAndDate(ctx context.Context, userID string, date time.Time) (models.Entry, error)
	ListByUser(ctx context.Context, userID string, filter repository.EntryFilter) ([]models.Entry, error)
	ListByMurabi(ctx context.Context, murabiID string, filter repository.EntryFilter) ([]models.Entry, error)
	ListByHierarchy(ctx context.Context, ancestorID string, filter repository.EntryFilter) ([]models.Entry, error)
	ListAll(ctx context.Context, filter repository.EntryFilter) ([]models.Entry, error)
	Save(ctx context.Context, entry models.Entry) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type LevelStore interface {
	Seed(ctx context.Context) (int, error)
	FindByLevel(ctx context.Context, level int) (models.Level, error)
	All(ctx context.Context) ([]models.Level, error)
}

type AuditStore interface {
	Append(ctx context.Context, record models.AuditRecord) error
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, error)
	ActorSummary(ctx context.Context, actorID string, days int) (models.ActivitySummary, error)
	SystemSummary(ctx context.Context, days int) (models.ActivitySummary, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	Count(ctx context.Context) (int, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n models.Notification) error
	CreateBulk(ctx context.Context, notifications []models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id string, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	DeleteExpired(ctx context.Context) (int, error)
}

var (
	_ UserStore         = (*repository.UserRepository)(nil)
	_ SessionStore      = (*repository.SessionRepository)(nil)
	_ EntryStore        = (*repository.EntryRepository)(nil)
	_ LevelStore        = (*repository.LevelRepository)(nil)
	_ AuditStore        = (*repository.AuditRepository)(nil)
	_ NotificationStore = (*repository.NotificationRepository)(nil)
)
