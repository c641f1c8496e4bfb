package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/models"
)

func strPtr(s string) *string { return &s }

func completedCategories() domain.CategoryMap {
	done := true
	return domain.CategoryMap{
		"farayz": {Completed: &done},
		"zikr": {
			Morning: []domain.ZikrItem{{Name: "first", Done: true}},
			Evening: []domain.ZikrItem{{Name: "second", Done: true}},
		},
	}
}

func missedZikrCategories() domain.CategoryMap {
	done := true
	return domain.CategoryMap{
		"farayz": {Completed: &done},
		"zikr": {
			Morning: []domain.ZikrItem{{Name: "first", Done: false}},
		},
	}
}

type entryFixture struct {
	users   *fakeUserStore
	entries *fakeEntryStore
	audit   *fakeAuditStore
	notifs  *fakeNotificationStore
	svc     *EntryService
	saalik  models.User
	murabi  models.User
	today   time.Time
}

func newEntryFixture(t *testing.T, settings domain.PracticeSettings) *entryFixture {
	t.Helper()

	today := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	murabi := models.User{ID: "murabi-1", Name: "Murabi One", Role: domain.RoleMurabi, IsActive: true}
	saalik := models.User{
		ID:             "saalik-1",
		Name:           "Saalik One",
		Role:           domain.RoleSaalik,
		MurabiID:       strPtr(murabi.ID),
		Level:          0,
		LevelStartDate: &start,
		CycleDays:      40,
		Settings:       settings,
		IsActive:       true,
	}

	users := newFakeUserStore(murabi, saalik)
	entries := newFakeEntryStore(users)
	audit := &fakeAuditStore{}
	notifs := &fakeNotificationStore{}

	svc := NewEntryService(entries, users, newFakeLevelStore(), audit, notifs, NewAuthorizer(users), zerolog.Nop())
	svc.now = func() time.Time { return today }

	return &entryFixture{
		users:   users,
		entries: entries,
		audit:   audit,
		notifs:  notifs,
		svc:     svc,
		saalik:  saalik,
		murabi:  murabi,
		today:   today,
	}
}

func TestSubmitCreatesEntry(t *testing.T) {
	f := newEntryFixture(t, domain.DefaultSettings())

	result, err := f.svc.Submit(context.Background(), f.saalik, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: completedCategories(),
	})
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.False(t, result.ZikrViolated)
	assert.False(t, result.CycleRestarted)
	assert.True(t, result.Entry.ZikrCompleted)
	assert.Equal(t, models.EntryStatusSubmitted, result.Entry.Status)
	assert.Equal(t, f.saalik.Level, result.Entry.LevelAtEntry)
	require.NotNil(t, result.Entry.MurabiID)
	assert.Equal(t, f.murabi.ID, *result.Entry.MurabiID)

	// Day 10 of a 40-day cycle started 2025-03-01.
	assert.Equal(t, 10, result.CycleProgress.CurrentDay)
	assert.Contains(t, f.audit.actions(), "entry_created")
}

func TestSubmitSameDateCollapsesToOneEntry(t *testing.T) {
	f := newEntryFixture(t, domain.DefaultSettings())
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, f.saalik, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: completedCategories(),
	})
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := f.svc.Submit(ctx, f.saalik, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: missedZikrCategories(),
	})
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)

	count, err := f.entries.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Latest submission wins.
	stored, err := f.entries.GetByID(ctx, first.Entry.ID)
	require.NoError(t, err)
	assert.False(t, stored.ZikrCompleted)
}

func TestResubmitKeepsSupervisorFeedback(t *testing.T) {
	f := newEntryFixture(t, domain.DefaultSettings())
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, f.saalik, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: missedZikrCategories(),
	})
	require.NoError(t, err)

	_, err = f.svc.Comment(ctx, f.murabi, first.Entry.ID, CommentInput{Text: "complete your zikr"})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.saalik, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: completedCategories(),
	})
	require.NoError(t, err)

	stored, err := f.entries.GetByID(ctx, first.Entry.ID)
	require.NoError(t, err)

	// The Murabi's comment survives the overwrite.
	require.Len(t, stored.Comments, 1)
	assert.Equal(t, f.murabi.ID, stored.Comments[0].ByUserID)
	assert.True(t, stored.ZikrCompleted)

	// The embedded audit keeps the full history, not just the latest event.
	var actions []string
	for _, event := range stored.Audit {
		actions = append(actions, event.Action)
	}
	assert.Equal(t, []string{"submitted", "zikr_violation", "commented", "submitted"}, actions)
}

func TestSubmitWithComment(t *testing.T) {
	f := newEntryFixture(t, domain.DefaultSettings())
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, f.saalik, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: completedCategories(),
		Comment:    "  travelled today  ",
	})
	require.NoError(t, err)

	require.Len(t, first.Entry.Comments, 1)
	assert.Equal(t, f.saalik.ID, first.Entry.Comments[0].ByUserID)
	assert.Equal(t, "travelled today", first.Entry.Comments[0].Text)

	// A resubmission with a new comment appends instead of replacing.
	_, err = f.svc.Submit(ctx, f.saalik, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: completedCategories(),
		Comment:    "back home",
	})
	require.NoError(t, err)

	stored, err := f.entries.GetByID(ctx, first.Entry.ID)
	require.NoError(t, err)
	require.Len(t, stored.Comments, 2)
	assert.Equal(t, "travelled today", stored.Comments[0].Text)
	assert.Equal(t, "back home", stored.Comments[1].Text)
}

func TestSubmitUnknownLevelRejected(t *testing.T) {
	f := newEntryFixture(t, domain.DefaultSettings())

	caller := f.saalik
	caller.Level = 99
	_, err := f.svc.Submit(context.Background(), caller, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: completedCategories(),
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestSubmitRejectsFutureDate(t *testing.T) {
	f := newEntryFixture(t, domain.DefaultSettings())

	_, err := f.svc.Submit(context.Background(), f.saalik, SubmitEntryInput{
		Date:       "2025-03-11",
		Categories: completedCategories(),
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestSubmitRejectsStaleDate(t *testing.T) {
	f := newEntryFixture(t, domain.DefaultSettings())
	ctx := context.Background()

	// Seven days back is the oldest acceptable date.
	_, err := f.svc.Submit(ctx, f.saalik, SubmitEntryInput{
		Date:       "2025-03-03",
		Categories: completedCategories(),
	})
	assert.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.saalik, SubmitEntryInput{
		Date:       "2025-03-02",
		Categories: completedCategories(),
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestSubmitRejectsMissingCategory(t *testing.T) {
	f := newEntryFixture(t, domain.DefaultSettings())

	_, err := f.svc.Submit(context.Background(), f.saalik, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: domain.CategoryMap{"zikr": {}},
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestSubmitRejectsNonSaalik(t *testing.T) {
	f := newEntryFixture(t, domain.DefaultSettings())

	_, err := f.svc.Submit(context.Background(), f.murabi, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: completedCategories(),
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))
}

func TestSubmitMissedZikrAutoRestart(t *testing.T) {
	f := newEntryFixture(t, domain.DefaultSettings())
	ctx := context.Background()

	result, err := f.svc.Submit(ctx, f.saalik, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: missedZikrCategories(),
	})
	require.NoError(t, err)

	assert.True(t, result.ZikrViolated)
	assert.True(t, result.CycleRestarted)
	assert.True(t, result.Entry.ZikrViolated)

	// The cycle clock was reset to today, atomically with the entry.
	stored, err := f.users.GetByID(ctx, f.saalik.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LevelStartDate)
	assert.Equal(t, domain.DateOnly(f.today), *stored.LevelStartDate)
	assert.Equal(t, 1, result.CycleProgress.CurrentDay)

	assert.Contains(t, f.audit.actions(), "cycle_restarted")

	// The Murabi hears about it.
	require.Len(t, f.notifs.notifications, 1)
	assert.Equal(t, f.murabi.ID, f.notifs.notifications[0].UserID)
}

func TestSubmitMissedZikrMurabiControlledNoRestart(t *testing.T) {
	f := newEntryFixture(t, domain.PracticeSettings{
		ZikrMode:      domain.ZikrModeMurabiControlled,
		ZikrMandatory: true,
	})
	ctx := context.Background()

	result, err := f.svc.Submit(ctx, f.saalik, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: missedZikrCategories(),
	})
	require.NoError(t, err)

	assert.True(t, result.ZikrViolated)
	assert.False(t, result.CycleRestarted)

	stored, err := f.users.GetByID(ctx, f.saalik.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *stored.LevelStartDate)
	assert.NotContains(t, f.audit.actions(), "cycle_restarted")
	assert.Empty(t, f.notifs.notifications)
}

func TestSubmitMissedZikrOptionalPasses(t *testing.T) {
	f := newEntryFixture(t, domain.PracticeSettings{
		ZikrMode:      domain.ZikrModeMurabiControlled,
		ZikrMandatory: false,
	})

	result, err := f.svc.Submit(context.Background(), f.saalik, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: missedZikrCategories(),
	})
	require.NoError(t, err)

	assert.False(t, result.ZikrViolated)
	assert.False(t, result.CycleRestarted)
}

func TestCommentBySupervisorAndOwner(t *testing.T) {
	f := newEntryFixture(t, domain.DefaultSettings())
	ctx := context.Background()

	submitted, err := f.svc.Submit(ctx, f.saalik, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: completedCategories(),
	})
	require.NoError(t, err)

	entry, err := f.svc.Comment(ctx, f.murabi, submitted.Entry.ID, CommentInput{Text: "well done"})
	require.NoError(t, err)
	require.Len(t, entry.Comments, 1)
	assert.Equal(t, f.murabi.ID, entry.Comments[0].ByUserID)
	assert.Equal(t, domain.RoleMurabi, entry.Comments[0].Role)

	entry, err = f.svc.Comment(ctx, f.saalik, submitted.Entry.ID, CommentInput{Text: "thank you"})
	require.NoError(t, err)
	assert.Len(t, entry.Comments, 2)
}

func TestCommentByStrangerDenied(t *testing.T) {
	f := newEntryFixture(t, domain.DefaultSettings())
	ctx := context.Background()

	stranger := models.User{ID: "murabi-2", Role: domain.RoleMurabi, IsActive: true}
	require.NoError(t, f.users.Create(ctx, stranger))

	submitted, err := f.svc.Submit(ctx, f.saalik, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: completedCategories(),
	})
	require.NoError(t, err)

	_, err = f.svc.Comment(ctx, stranger, submitted.Entry.ID, CommentInput{Text: "who are you"})
	require.Error(t, err)
	assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))
}

func TestSetStatusReviewRequiresSupervisor(t *testing.T) {
	f := newEntryFixture(t, domain.DefaultSettings())
	ctx := context.Background()

	submitted, err := f.svc.Submit(ctx, f.saalik, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: completedCategories(),
	})
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, f.saalik, submitted.Entry.ID, models.EntryStatusReviewed)
	require.Error(t, err)
	assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))

	entry, err := f.svc.SetStatus(ctx, f.murabi, submitted.Entry.ID, models.EntryStatusReviewed)
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusReviewed, entry.Status)

	// Reopening a review is also a supervisor action.
	_, err = f.svc.SetStatus(ctx, f.saalik, submitted.Entry.ID, models.EntryStatusSubmitted)
	require.Error(t, err)

	entry, err = f.svc.SetStatus(ctx, f.murabi, submitted.Entry.ID, models.EntryStatusSubmitted)
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusSubmitted, entry.Status)
}

func TestDeleteEntryRequiresMasoolRank(t *testing.T) {
	f := newEntryFixture(t, domain.DefaultSettings())
	ctx := context.Background()

	masool := models.User{ID: "masool-1", Name: "Masool One", Role: domain.RoleMasool, IsActive: true}
	require.NoError(t, f.users.Create(ctx, masool))
	murabi, err := f.users.GetByID(ctx, f.murabi.ID)
	require.NoError(t, err)
	murabi.MasoolID = strPtr(masool.ID)
	require.NoError(t, f.users.Update(ctx, murabi))

	submitted, err := f.svc.Submit(ctx, f.saalik, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: completedCategories(),
	})
	require.NoError(t, err)

	// Neither the owner nor the Murabi may delete, only Masool and above.
	err = f.svc.Delete(ctx, f.saalik, submitted.Entry.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))

	err = f.svc.Delete(ctx, f.murabi, submitted.Entry.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))

	// A Masool outside the chain is also refused.
	stranger := models.User{ID: "masool-2", Role: domain.RoleMasool, IsActive: true}
	require.NoError(t, f.users.Create(ctx, stranger))
	err = f.svc.Delete(ctx, stranger, submitted.Entry.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))

	require.NoError(t, f.svc.Delete(ctx, masool, submitted.Entry.ID))

	_, err = f.svc.Get(ctx, f.saalik, submitted.Entry.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestListScopesByRole(t *testing.T) {
	f := newEntryFixture(t, domain.DefaultSettings())
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.saalik, SubmitEntryInput{
		Date:       "2025-03-10",
		Categories: completedCategories(),
	})
	require.NoError(t, err)

	own, err := f.svc.List(ctx, f.saalik, ListEntriesInput{})
	require.NoError(t, err)
	assert.Len(t, own, 1)

	supervised, err := f.svc.List(ctx, f.murabi, ListEntriesInput{})
	require.NoError(t, err)
	assert.Len(t, supervised, 1)

	stranger := models.User{ID: "murabi-2", Role: domain.RoleMurabi, IsActive: true}
	require.NoError(t, f.users.Create(ctx, stranger))
	none, err := f.svc.List(ctx, stranger, ListEntriesInput{})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.svc.List(ctx, stranger, ListEntriesInput{UserID: f.saalik.ID})
	require.Error(t, err)
	assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))
}
