package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/ids"
	"tasbiaat/api/internal/models"
	"tasbiaat/api/internal/repository"
)

type EntryService struct {
	entries       EntryStore
	users         UserStore
	levels        LevelStore
	audit         AuditStore
	notifications NotificationStore
	authz         *Authorizer
	log           zerolog.Logger
	now           func() time.Time
}

func NewEntryService(
	entries EntryStore,
	users UserStore,
	levels LevelStore,
	audit AuditStore,
	notifications NotificationStore,
	authz *Authorizer,
	log zerolog.Logger,
) *EntryService {
	return &EntryService{
		entries:       entries,
		users:         users,
		levels:        levels,
		audit:         audit,
		notifications: notifications,
		authz:         authz,
		log:           log,
		now:           time.Now,
	}
}

type SubmitEntryInput struct {
	Date       string
	Categories domain.CategoryMap
	Status     models.EntryStatus
	Comment    string
	IPAddress  string
	UserAgent  string
}

type SubmitEntryResult struct {
	Entry          models.Entry         `json:"entry"`
	Created        bool                 `json:"created"`
	ZikrViolated   bool                 `json:"zikr_violated"`
	CycleRestarted bool                 `json:"cycle_restarted"`
	CycleProgress  domain.CycleProgress `json:"cycle_progress"`
}

// Submit records one day of practice for the caller. A resubmission for the
// same date overwrites the previous record's practice data; earlier comments
// and the entry's audit history are kept. A mandatory Zikr left incomplete
// marks the entry violated and, depending on the user's settings, restarts
// the level cycle in the same transaction.
func (s *EntryService) Submit(ctx context.Context, caller models.User, input SubmitEntryInput) (SubmitEntryResult, error) {
	if caller.Role != domain.RoleSaalik {
		return SubmitEntryResult{}, domain.E(domain.KindAuthorization, "only Saalik users submit practice entries")
	}

	date, err := domain.ParseDate(input.Date)
	if err != nil {
		return SubmitEntryResult{}, err
	}
	today := domain.DateOnly(s.now())
	if date.After(today) {
		return SubmitEntryResult{}, domain.E(domain.KindValidation, "cannot submit an entry for a future date")
	}
	if today.Sub(date) > domain.EntryStalenessDays*24*time.Hour {
		return SubmitEntryResult{}, domain.E(domain.KindValidation, "entries older than %d days cannot be submitted", domain.EntryStalenessDays)
	}

	status := input.Status
	if status == "" {
		status = models.EntryStatusSubmitted
	}
	if !status.Valid() || status == models.EntryStatusReviewed {
		return SubmitEntryResult{}, domain.E(domain.KindValidation, "invalid entry status: %s", status)
	}

	level, err := s.levels.FindByLevel(ctx, caller.Level)
	if err != nil {
		if errors.Is(err, repository.ErrLevelNotFound) {
			return SubmitEntryResult{}, domain.E(domain.KindValidation, "invalid level %d", caller.Level)
		}
		return SubmitEntryResult{}, domain.Wrap(domain.KindInternal, err, "load level %d", caller.Level)
	}
	if err := domain.ValidateCategories(input.Categories, level.RequiredFields); err != nil {
		return SubmitEntryResult{}, err
	}

	zikrDone := domain.ZikrCompleted(input.Categories)
	violated, restart := domain.EvaluateZikrPolicy(caller.Settings, zikrDone)

	now := s.now()
	entry := models.Entry{
		ID:            ids.New(),
		UserID:        caller.ID,
		MurabiID:      caller.MurabiID,
		Date:          date,
		LevelAtEntry:  caller.Level,
		Categories:    input.Categories,
		ZikrCompleted: zikrDone,
		ZikrViolated:  violated,
		Status:        status,
	}
	entry.AddAudit("submitted", caller.ID, now, nil)
	if comment := strings.TrimSpace(input.Comment); comment != "" {
		entry.AddComment(ids.New(), caller.ID, caller.Role, comment, now)
	}
	if violated {
		entry.AddAudit("zikr_violation", caller.ID, now, map[string]any{
			"zikr_mode": string(caller.Settings.ZikrMode),
			"restart":   restart,
		})
	}

	var id string
	var created bool
	startDate := caller.LevelStartDate
	if restart {
		newStart := today
		id, created, err = s.entries.UpsertWithCycleRestart(ctx, entry, newStart)
		startDate = &newStart
	} else {
		id, created, err = s.entries.Upsert(ctx, entry)
	}
	if err != nil {
		return SubmitEntryResult{}, domain.Wrap(domain.KindInternal, err, "save entry")
	}
	entry.ID = id

	action := "entry_updated"
	if created {
		action = "entry_created"
	}
	s.recordAudit(ctx, caller.ID, action, "entry", &entry.ID, input.IPAddress, input.UserAgent, map[string]any{
		"date":           input.Date,
		"zikr_completed": zikrDone,
	})
	if restart {
		s.recordAudit(ctx, caller.ID, "cycle_restarted", "user", &caller.ID, input.IPAddress, input.UserAgent, map[string]any{
			"reason": "zikr_mandatory_violation",
			"date":   input.Date,
		})
		s.notifyViolation(ctx, caller, date)
	}

	s.log.Info().
		Str("user_id", caller.ID).
		Str("date", input.Date).
		Bool("created", created).
		Bool("zikr_violated", violated).
		Bool("cycle_restarted", restart).
		Msg("entry saved")

	return SubmitEntryResult{
		Entry:          entry,
		Created:        created,
		ZikrViolated:   violated,
		CycleRestarted: restart,
		CycleProgress:  domain.Progress(startDate, caller.CycleDays, now),
	}, nil
}

// notifyViolation tells the supervising Murabi that a disciple's cycle was
// restarted. Best effort.
func (s *EntryService) notifyViolation(ctx context.Context, user models.User, date time.Time) {
	if user.MurabiID == nil {
		return
	}
	n := models.Notification{
		ID:        ids.New(),
		UserID:    *user.MurabiID,
		Title:     "Cycle restarted",
		Message:   fmt.Sprintf("%s missed mandatory Zikr on %s; the level cycle was restarted.", user.Name, date.Format(domain.DateLayout)),
		Type:      models.NotificationWarning,
		Priority:  models.PriorityHigh,
		ExpiresAt: s.now().AddDate(0, 0, 30),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		s.log.Warn().Err(err).Msg("violation notification failed")
	}
}

func (s *EntryService) Get(ctx context.Context, viewer models.User, entryID string) (models.Entry, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			return models.Entry{}, domain.E(domain.KindNotFound, "entry not found")
		}
		return models.Entry{}, domain.Wrap(domain.KindInternal, err, "load entry")
	}

	owner, err := s.users.GetByID(ctx, entry.UserID)
	if err != nil {
		return models.Entry{}, domain.Wrap(domain.KindInternal, err, "load entry owner")
	}
	allowed, err := s.authz.CanViewEntry(ctx, viewer, owner)
	if err != nil {
		return models.Entry{}, domain.Wrap(domain.KindInternal, err, "authorize")
	}
	if !allowed {
		return models.Entry{}, domain.E(domain.KindAuthorization, "not allowed to view this entry")
	}
	return entry, nil
}

type ListEntriesInput struct {
	UserID string
	Status string
	From   string
	To     string
	Limit  int
	Offset int
}

func buildEntryFilter(input ListEntriesInput) (repository.EntryFilter, error) {
	filter := repository.EntryFilter{
		Status: input.Status,
		Limit:  input.Limit,
		Offset: input.Offset,
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if input.From != "" {
		from, err := domain.ParseDate(input.From)
		if err != nil {
			return repository.EntryFilter{}, err
		}
		filter.From = &from
	}
	if input.To != "" {
		to, err := domain.ParseDate(input.To)
		if err != nil {
			return repository.EntryFilter{}, err
		}
		filter.To = &to
	}
	return filter, nil
}

// List returns entries the viewer may see. With no UserID the scope is the
// viewer's own entries for a Saalik, or the subtree under them for a
// supervisor.
func (s *EntryService) List(ctx context.Context, viewer models.User, input ListEntriesInput) ([]models.Entry, error) {
	filter, err := buildEntryFilter(input)
	if err != nil {
		return nil, err
	}

	if input.UserID != "" && input.UserID != viewer.ID {
		target, err := s.users.GetByID(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return nil, domain.E(domain.KindNotFound, "user not found")
			}
			return nil, domain.Wrap(domain.KindInternal, err, "load user")
		}
		allowed, err := s.authz.CanViewUser(ctx, viewer, target)
		if err != nil {
			return nil, domain.Wrap(domain.KindInternal, err, "authorize")
		}
		if !allowed {
			return nil, domain.E(domain.KindAuthorization, "not allowed to view this user's entries")
		}
		return s.listOrErr(s.entries.ListByUser(ctx, target.ID, filter))
	}

	switch viewer.Role {
	case domain.RoleSaalik:
		return s.listOrErr(s.entries.ListByUser(ctx, viewer.ID, filter))
	case domain.RoleMurabi:
		return s.listOrErr(s.entries.ListByMurabi(ctx, viewer.ID, filter))
	case domain.RoleAdmin:
		return s.listOrErr(s.entries.ListAll(ctx, filter))
	default:
		return s.listOrErr(s.entries.ListByHierarchy(ctx, viewer.ID, filter))
	}
}

func (s *EntryService) listOrErr(entries []models.Entry, err error) ([]models.Entry, error) {
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "list entries")
	}
	return entries, nil
}

type CommentInput struct {
	Text string
}

// Comment attaches feedback to an entry. The owner may comment on their own
// entry; supervisors in the owner's chain and Admin may comment on anyone's.
func (s *EntryService) Comment(ctx context.Context, actor models.User, entryID string, input CommentInput) (models.Entry, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return models.Entry{}, domain.E(domain.KindValidation, "comment text is required")
	}

	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			return models.Entry{}, domain.E(domain.KindNotFound, "entry not found")
		}
		return models.Entry{}, domain.Wrap(domain.KindInternal, err, "load entry")
	}

	if entry.UserID != actor.ID {
		owner, err := s.users.GetByID(ctx, entry.UserID)
		if err != nil {
			return models.Entry{}, domain.Wrap(domain.KindInternal, err, "load entry owner")
		}
		allowed, err := s.authz.CanReviewEntry(ctx, actor, owner)
		if err != nil {
			return models.Entry{}, domain.Wrap(domain.KindInternal, err, "authorize")
		}
		if !allowed {
			return models.Entry{}, domain.E(domain.KindAuthorization, "not allowed to comment on this entry")
		}
	}

	now := s.now()
	entry.AddComment(ids.New(), actor.ID, actor.Role, text, now)
	entry.AddAudit("commented", actor.ID, now, nil)

	if err := s.entries.Save(ctx, entry); err != nil {
		return models.Entry{}, domain.Wrap(domain.KindInternal, err, "save entry")
	}
	s.recordAudit(ctx, actor.ID, "entry_commented", "entry", &entry.ID, "", "", nil)
	return entry, nil
}

// SetStatus moves an entry through the review states. Only supervisors in the
// owner's chain (or Admin) may mark an entry reviewed; backward transitions
// are permitted so a review can be reopened.
func (s *EntryService) SetStatus(ctx context.Context, actor models.User, entryID string, status models.EntryStatus) (models.Entry, error) {
	if !status.Valid() {
		return models.Entry{}, domain.E(domain.KindValidation, "invalid entry status: %s", status)
	}

	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			return models.Entry{}, domain.E(domain.KindNotFound, "entry not found")
		}
		return models.Entry{}, domain.Wrap(domain.KindInternal, err, "load entry")
	}

	owner, err := s.users.GetByID(ctx, entry.UserID)
	if err != nil {
		return models.Entry{}, domain.Wrap(domain.KindInternal, err, "load entry owner")
	}

	if status == models.EntryStatusReviewed || entry.Status == models.EntryStatusReviewed {
		allowed, err := s.authz.CanReviewEntry(ctx, actor, owner)
		if err != nil {
			return models.Entry{}, domain.Wrap(domain.KindInternal, err, "authorize")
		}
		if !allowed {
			return models.Entry{}, domain.E(domain.KindAuthorization, "only a supervisor may change review status")
		}
	} else if !s.authz.CanModifyEntry(actor, owner) {
		return models.Entry{}, domain.E(domain.KindAuthorization, "not allowed to modify this entry")
	}

	old := entry.Status
	entry.Status = status
	entry.AddAudit("status_changed", actor.ID, s.now(), map[string]any{"from": string(old), "to": string(status)})

	if err := s.entries.Save(ctx, entry); err != nil {
		return models.Entry{}, domain.Wrap(domain.KindInternal, err, "save entry")
	}
	s.recordAudit(ctx, actor.ID, "entry_status_changed", "entry", &entry.ID, "", "", map[string]any{
		"from": string(old), "to": string(status),
	})
	return entry, nil
}

func (s *EntryService) Delete(ctx context.Context, actor models.User, entryID string) error {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			return domain.E(domain.KindNotFound, "entry not found")
		}
		return domain.Wrap(domain.KindInternal, err, "load entry")
	}

	owner, err := s.users.GetByID(ctx, entry.UserID)
	if err != nil {
		return domain.Wrap(domain.KindInternal, err, "load entry owner")
	}
	allowed, err := s.authz.CanDeleteEntry(ctx, actor, owner)
	if err != nil {
		return domain.Wrap(domain.KindInternal, err, "authorize")
	}
	if !allowed {
		return domain.E(domain.KindAuthorization, "entry deletion requires Masool rank or above")
	}

	if err := s.entries.Delete(ctx, entryID); err != nil {
		return domain.Wrap(domain.KindInternal, err, "delete entry")
	}
	s.recordAudit(ctx, actor.ID, "entry_deleted", "entry", &entryID, "", "", map[string]any{
		"owner": entry.UserID,
		"date":  entry.Date.Format(domain.DateLayout),
	})
	return nil
}

func (s *EntryService) recordAudit(ctx context.Context, actorID, action, resourceType string, resourceID *string, ip, userAgent string, meta map[string]any) {
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
