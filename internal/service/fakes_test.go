package service

import (
	"context"
	"sort"
	"time"

	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/models"
	"tasbiaat/api/internal/repository"
)

// Map-backed stores so the domain flows run without postgres.

type fakeUserStore struct {
	users map[string]models.User
}

func newFakeUserStore(users ...models.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[string]models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserStore) FindByPhone(_ context.Context, phone string) (models.User, error) {
	for _, user := range s.users {
		if user.Phone == phone {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range s.users {
		if user.Email != nil && *user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *fakeUserStore) FindByRole(_ context.Context, role domain.Role, region string) ([]models.User, error) {
	var out []models.User
	for _, user := range s.users {
		if user.Role != role || !user.IsActive {
			continue
		}
		if region != "" && (user.Region == nil || *user.Region != region) {
			continue
		}
		out = append(out, user)
	}
	return out, nil
}

func (s *fakeUserStore) FindChildren(_ context.Context, parentID string, childRole domain.Role) ([]models.User, error) {
	var out []models.User
	for _, user := range s.users {
		if user.Role != childRole || !user.IsActive {
			continue
		}
		var parent *string
		switch childRole {
		case domain.RoleSaalik:
			parent = user.MurabiID
		case domain.RoleMurabi:
			parent = user.MasoolID
		case domain.RoleMasool:
			parent = user.SheikhID
		}
		if parent != nil && *parent == parentID {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeUserStore) ListByHierarchy(_ context.Context, ancestorID string, roleFilter domain.Role, limit, offset int) ([]models.User, error) {
	var out []models.User
	for _, user := range s.users {
		in := (user.MurabiID != nil && *user.MurabiID == ancestorID) ||
			(user.MasoolID != nil && *user.MasoolID == ancestorID) ||
			(user.SheikhID != nil && *user.SheikhID == ancestorID)
		if !in {
			continue
		}
		if roleFilter != "" && user.Role != roleFilter {
			continue
		}
		out = append(out, user)
	}
	return out, nil
}

func (s *fakeUserStore) ListAll(_ context.Context, roleFilter domain.Role, limit, offset int) ([]models.User, error) {
	var out []models.User
	for _, user := range s.users {
		if roleFilter != "" && user.Role != roleFilter {
			continue
		}
		out = append(out, user)
	}
	return out, nil
}

func (s *fakeUserStore) Update(_ context.Context, user models.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, id string, passwordHash []byte) error {
	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) SetLevel(_ context.Context, id string, level int, startDate time.Time) error {
	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.Level = level
	user.LevelStartDate = &startDate
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) RestartCycle(_ context.Context, id string, startDate time.Time) error {
	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.LevelStartDate = &startDate
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) SetActive(_ context.Context, id string, active bool) error {
	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.IsActive = active
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) CountByRole(_ context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, user := range s.users {
		counts[string(user.Role)]++
	}
	return counts, nil
}

type fakeEntryStore struct {
	entries map[string]models.Entry // keyed by id
	byDay   map[string]string       // userID+date -> id
	users   *fakeUserStore          // for cycle restarts
}

func newFakeEntryStore(users *fakeUserStore) *fakeEntryStore {
	return &fakeEntryStore{
		entries: make(map[string]models.Entry),
		byDay:   make(map[string]string),
		users:   users,
	}
}

func dayKey(userID string, date time.Time) string {
	return userID + "|" + date.Format(domain.DateLayout)
}

func (s *fakeEntryStore) Upsert(_ context.Context, entry models.Entry) (string, bool, error) {
	key := dayKey(entry.UserID, entry.Date)
	if existing, ok := s.byDay[key]; ok {
		stored := s.entries[existing]
		entry.ID = existing
		entry.Comments = append(append([]models.Comment{}, stored.Comments...), entry.Comments...)
		entry.Audit = append(append([]models.EntryAudit{}, stored.Audit...), entry.Audit...)
		s.entries[existing] = entry
		return existing, false, nil
	}
	s.byDay[key] = entry.ID
	s.entries[entry.ID] = entry
	return entry.ID, true, nil
}

func (s *fakeEntryStore) UpsertWithCycleRestart(ctx context.Context, entry models.Entry, startDate time.Time) (string, bool, error) {
	id, created, err := s.Upsert(ctx, entry)
	if err != nil {
		return "", false, err
	}
	if err := s.users.RestartCycle(ctx, entry.UserID, startDate); err != nil {
		return "", false, err
	}
	return id, created, nil
}

func (s *fakeEntryStore) GetByID(_ context.Context, id string) (models.Entry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return models.Entry{}, repository.ErrEntryNotFound
	}
	return entry, nil
}

func (s *fakeEntryStore) FindByUserAndDate(_ context.Context, userID string, date time.Time) (models.Entry, error) {
	id, ok := s.byDay[dayKey(userID, date)]
	if !ok {
		return models.Entry{}, repository.ErrEntryNotFound
	}
	return s.entries[id], nil
}

func matchesFilter(entry models.Entry, filter repository.EntryFilter) bool {
	if filter.Status != "" && string(entry.Status) != filter.Status {
		return false
	}
	if filter.From != nil && entry.Date.Before(*filter.From) {
		return false
	}
	if filter.To != nil && entry.Date.After(*filter.To) {
		return false
	}
	return true
}

func (s *fakeEntryStore) list(filter repository.EntryFilter, keep func(models.Entry) bool) []models.Entry {
	var out []models.Entry
	for _, entry := range s.entries {
		if keep(entry) && matchesFilter(entry, filter) {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (s *fakeEntryStore) ListByUser(_ context.Context, userID string, filter repository.EntryFilter) ([]models.Entry, error) {
	return s.list(filter, func(e models.Entry) bool { return e.UserID == userID }), nil
}

func (s *fakeEntryStore) ListByMurabi(_ context.Context, murabiID string, filter repository.EntryFilter) ([]models.Entry, error) {
	return s.list(filter, func(e models.Entry) bool {
		return e.MurabiID != nil && *e.MurabiID == murabiID
	}), nil
}

func (s *fakeEntryStore) ListByHierarchy(ctx context.Context, ancestorID string, filter repository.EntryFilter) ([]models.Entry, error) {
	return s.list(filter, func(e models.Entry) bool {
		user, ok := s.users.users[e.UserID]
		if !ok {
			return false
		}
		return (user.MurabiID != nil && *user.MurabiID == ancestorID) ||
			(user.MasoolID != nil && *user.MasoolID == ancestorID) ||
			(user.SheikhID != nil && *user.SheikhID == ancestorID)
	}), nil
}

func (s *fakeEntryStore) ListAll(_ context.Context, filter repository.EntryFilter) ([]models.Entry, error) {
	return s.list(filter, func(models.Entry) bool { return true }), nil
}

func (s *fakeEntryStore) Save(_ context.Context, entry models.Entry) error {
	if _, ok := s.entries[entry.ID]; !ok {
		return repository.ErrEntryNotFound
	}
	s.entries[entry.ID] = entry
	return nil
}

func (s *fakeEntryStore) Delete(_ context.Context, id string) error {
	entry, ok := s.entries[id]
	if !ok {
		return repository.ErrEntryNotFound
	}
	delete(s.entries, id)
	delete(s.byDay, dayKey(entry.UserID, entry.Date))
	return nil
}

func (s *fakeEntryStore) Count(_ context.Context) (int, error) {
	return len(s.entries), nil
}

type fakeLevelStore struct {
	levels map[int]models.Level
}

func newFakeLevelStore() *fakeLevelStore {
	s := &fakeLevelStore{levels: make(map[int]models.Level)}
	for _, seed := range domain.SeedLevels() {
		s.levels[seed.Level] = models.Level{
			Level:          seed.Level,
			NameUrdu:       seed.NameUrdu,
			Description:    seed.Description,
			RequiredFields: seed.RequiredFields,
		}
	}
	return s
}

func (s *fakeLevelStore) Seed(_ context.Context) (int, error) { return 0, nil }

func (s *fakeLevelStore) FindByLevel(_ context.Context, level int) (models.Level, error) {
	l, ok := s.levels[level]
	if !ok {
		return models.Level{}, repository.ErrLevelNotFound
	}
	return l, nil
}

func (s *fakeLevelStore) All(_ context.Context) ([]models.Level, error) {
	out := make([]models.Level, 0, len(s.levels))
	for i := 0; i <= domain.MaxLevel; i++ {
		out = append(out, s.levels[i])
	}
	return out, nil
}

type fakeAuditStore struct {
	records []models.AuditRecord
}

func (s *fakeAuditStore) Append(_ context.Context, record models.AuditRecord) error {
	s.records = append(s.records, record)
	return nil
}

func (s *fakeAuditStore) List(_ context.Context, filter models.AuditFilter) ([]models.AuditRecord, error) {
	var out []models.AuditRecord
	for _, record := range s.records {
		if filter.Action != "" && record.Action != filter.Action {
			continue
		}
		if filter.ActorID != "" && record.ActorID != filter.ActorID {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *fakeAuditStore) ActorSummary(_ context.Context, actorID string, days int) (models.ActivitySummary, error) {
	summary := models.ActivitySummary{ActionBreakdown: map[string]int{}, PeriodDays: days}
	for _, record := range s.records {
		if record.ActorID == actorID {
			summary.ActionBreakdown[record.Action]++
			summary.TotalActivities++
		}
	}
	return summary, nil
}

func (s *fakeAuditStore) SystemSummary(_ context.Context, days int) (models.ActivitySummary, error) {
	summary := models.ActivitySummary{
		ActionBreakdown:   map[string]int{},
		ResourceBreakdown: map[string]int{},
		PeriodDays:        days,
	}
	for _, record := range s.records {
		summary.ActionBreakdown[record.Action]++
		summary.ResourceBreakdown[record.ResourceType]++
		summary.TotalActivities++
	}
	return summary, nil
}

func (s *fakeAuditStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func (s *fakeAuditStore) Count(_ context.Context) (int, error) {
	return len(s.records), nil
}

func (s *fakeAuditStore) actions() []string {
	out := make([]string, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record.Action)
	}
	return out
}

type fakeNotificationStore struct {
	notifications []models.Notification
}

func (s *fakeNotificationStore) Create(_ context.Context, n models.Notification) error {
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *fakeNotificationStore) CreateBulk(_ context.Context, notifications []models.Notification) error {
	s.notifications = append(s.notifications, notifications...)
	return nil
}

func (s *fakeNotificationStore) ListByUser(_ context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *fakeNotificationStore) CountUnread(_ context.Context, userID string) (int, error) {
	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *fakeNotificationStore) MarkRead(_ context.Context, id string, userID string) error {
	for i, n := range s.notifications {
		if n.ID == id && n.UserID == userID {
			s.notifications[i].IsRead = true
			return nil
		}
	}
	return repository.ErrNotificationNotFound
}

func (s *fakeNotificationStore) MarkAllRead(_ context.Context, userID string) (int, error) {
	count := 0
	for i, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			s.notifications[i].IsRead = true
			count++
		}
	}
	return count, nil
}

func (s *fakeNotificationStore) DeleteExpired(_ context.Context) (int, error) {
	return 0, nil
}

type fakeSessionStore struct {
	sessions map[string]models.Session // keyed by token id
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]models.Session)}
}

func (s *fakeSessionStore) Create(_ context.Context, session models.Session) error {
	s.sessions[session.TokenID] = session
	return nil
}

func (s *fakeSessionStore) GetByTokenID(_ context.Context, tokenID string) (models.Session, error) {
	session, ok := s.sessions[tokenID]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return session, nil
}

func (s *fakeSessionStore) ListByUser(_ context.Context, userID string, activeOnly bool) ([]models.Session, error) {
	var out []models.Session
	for _, session := range s.sessions {
		if session.UserID != userID {
			continue
		}
		if activeOnly && !session.IsActive {
			continue
		}
		out = append(out, session)
	}
	return out, nil
}

func (s *fakeSessionStore) Deactivate(_ context.Context, tokenID string) error {
	session, ok := s.sessions[tokenID]
	if !ok {
		return repository.ErrSessionNotFound
	}
	session.IsActive = false
	s.sessions[tokenID] = session
	return nil
}

func (s *fakeSessionStore) DeactivateAllForUser(_ context.Context, userID string, exceptTokenID string) (int, error) {
	count := 0
	for tokenID, session := range s.sessions {
		if session.UserID == userID && tokenID != exceptTokenID && session.IsActive {
			session.IsActive = false
			s.sessions[tokenID] = session
			count++
		}
	}
	return count, nil
}

func (s *fakeSessionStore) CountActiveByUser(_ context.Context, userID string) (int, error) {
	count := 0
	for _, session := range s.sessions {
		if session.UserID == userID && session.IsActive {
			count++
		}
	}
	return count, nil
}

func (s *fakeSessionStore) DeactivateOldest(_ context.Context, userID string, keepLatest int) error {
	var active []models.Session
	for _, session := range s.sessions {
		if session.UserID == userID && session.IsActive {
			active = append(active, session)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].LastActivity.After(active[j].LastActivity)
	})
	for i := keepLatest; i < len(active); i++ {
		session := active[i]
		session.IsActive = false
		s.sessions[session.TokenID] = session
	}
	return nil
}

func (s *fakeSessionStore) DeleteExpired(_ context.Context) (int, error) { return 0, nil }

func (s *fakeSessionStore) CountActive(_ context.Context) (int, error) {
	count := 0
	for _, session := range s.sessions {
		if session.IsActive {
			count++
		}
	}
	return count, nil
}
