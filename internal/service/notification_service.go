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
)

// notificationTTLDays is how long an unread notification stays visible.
const notificationTTLDays = 30

type NotificationService struct {
	notifications NotificationStore
	users         UserStore
	authz         *Authorizer
	log           zerolog.Logger
	now           func() time.Time
}

func NewNotificationService(notifications NotificationStore, users UserStore, authz *Authorizer, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		authz:         authz,
		log:           log,
		now:           time.Now,
	}
}

func (s *NotificationService) ListOwn(ctx context.Context, user models.User, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	notifications, err := s.notifications.ListByUser(ctx, user.ID, unreadOnly, limit)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "list notifications")
	}
	return notifications, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, user models.User) (int, error) {
	count, err := s.notifications.CountUnread(ctx, user.ID)
	if err != nil {
		return 0, domain.Wrap(domain.KindInternal, err, "count unread")
	}
	return count, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, user models.User, notificationID string) error {
	if err := s.notifications.MarkRead(ctx, notificationID, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return domain.E(domain.KindNotFound, "notification not found")
		}
		return domain.Wrap(domain.KindInternal, err, "mark read")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, user models.User) (int, error) {
	count, err := s.notifications.MarkAllRead(ctx, user.ID)
	if err != nil {
		return 0, domain.Wrap(domain.KindInternal, err, "mark all read")
	}
	return count, nil
}

type SendNotificationInput struct {
	UserID   string
	Title    string
	Message  string
	Type     models.NotificationType
	Priority models.NotificationPriority
}

// Send delivers a notification to one user in the sender's scope.
func (s *NotificationService) Send(ctx context.Context, sender models.User, input SendNotificationInput) (models.Notification, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Message = strings.TrimSpace(input.Message)
	if input.Title == "" || input.Message == "" {
		return models.Notification{}, domain.E(domain.KindValidation, "title and message are required")
	}

	target, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.Notification{}, domain.E(domain.KindNotFound, "user not found")
		}
		return models.Notification{}, domain.Wrap(domain.KindInternal, err, "load user")
	}

	allowed, err := s.authz.CanViewUser(ctx, sender, target)
	if err != nil {
		return models.Notification{}, domain.Wrap(domain.KindInternal, err, "authorize")
	}
	if !allowed || sender.ID == target.ID {
		return models.Notification{}, domain.E(domain.KindAuthorization, "not allowed to notify this user")
	}

	n := s.build(target.ID, input)
	if err := s.notifications.Create(ctx, n); err != nil {
		return models.Notification{}, domain.Wrap(domain.KindInternal, err, "create notification")
	}
	return n, nil
}

// Broadcast delivers one notification to every user holding a role, narrowed
// to a region when one is given. Admin only.
func (s *NotificationService) Broadcast(ctx context.Context, sender models.User, role domain.Role, region string, input SendNotificationInput) (int, error) {
	if sender.Role != domain.RoleAdmin {
		return 0, domain.E(domain.KindAuthorization, "only Admin may broadcast")
	}
	if !role.Valid() {
		return 0, domain.E(domain.KindValidation, "invalid role: %s", role)
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Message = strings.TrimSpace(input.Message)
	if input.Title == "" || input.Message == "" {
		return 0, domain.E(domain.KindValidation, "title and message are required")
	}

	recipients, err := s.users.FindByRole(ctx, role, region)
	if err != nil {
		return 0, domain.Wrap(domain.KindInternal, err, "list recipients")
	}

	notifications := make([]models.Notification, 0, len(recipients))
	for _, user := range recipients {
		if !user.Settings.NotificationsEnabled {
			continue
		}
		notifications = append(notifications, s.build(user.ID, input))
	}
	if err := s.notifications.CreateBulk(ctx, notifications); err != nil {
		return 0, domain.Wrap(domain.KindInternal, err, "create notifications")
	}

	s.log.Info().Str("role", string(role)).Str("region", region).Int("recipients", len(notifications)).Msg("broadcast sent")
	return len(notifications), nil
}

func (s *NotificationService) build(userID string, input SendNotificationInput) models.Notification {
	notifType := input.Type
	if notifType == "" {
		notifType = models.NotificationInfo
	}
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	return models.Notification{
		ID:        ids.New(),
		UserID:    userID,
		Title:     input.Title,
		Message:   input.Message,
		Type:      notifType,
		Priority:  priority,
		ExpiresAt: s.now().AddDate(0, 0, notificationTTLDays),
	}
}
