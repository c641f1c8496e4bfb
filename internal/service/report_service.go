package service

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/models"
	"tasbiaat/api/internal/repository"
)

type ReportService struct {
	entries EntryStore
	users   UserStore
	authz   *Authorizer
	log     zerolog.Logger
	now     func() time.Time
}

func NewReportService(entries EntryStore, users UserStore, authz *Authorizer, log zerolog.Logger) *ReportService {
	return &ReportService{
		entries: entries,
		users:   users,
		authz:   authz,
		log:     log,
		now:     time.Now,
	}
}

// CategoryStats aggregates one category over a report period.
type CategoryStats struct {
	DaysCompleted int     `json:"days_completed"`
	DaysRecorded  int     `json:"days_recorded"`
	Rate          float64 `json:"rate"`
}

// Report summarizes a Saalik's practice over a date range.
type Report struct {
	UserID         string                   `json:"user_id"`
	From           string                   `json:"from"`
	To             string                   `json:"to"`
	DaysInPeriod   int                      `json:"days_in_period"`
	DaysSubmitted  int                      `json:"days_submitted"`
	SubmissionRate float64                  `json:"submission_rate"`
	ZikrViolations int                      `json:"zikr_violations"`
	Categories     map[string]CategoryStats `json:"categories"`
	CurrentStreak  int                      `json:"current_streak"`
}

// ForUser builds a report over [from, to]. The viewer must be the user
// themselves, an ancestor, or Admin.
func (s *ReportService) ForUser(ctx context.Context, viewer models.User, userID string, from, to time.Time) (Report, error) {
	target := viewer
	if userID != "" && userID != viewer.ID {
		var err error
		target, err = s.users.GetByID(ctx, userID)
		if err != nil {
			return Report{}, domain.E(domain.KindNotFound, "user not found")
		}
		allowed, err := s.authz.CanViewUser(ctx, viewer, target)
		if err != nil {
			return Report{}, domain.Wrap(domain.KindInternal, err, "authorize")
		}
		if !allowed {
			return Report{}, domain.E(domain.KindAuthorization, "not allowed to view this user's reports")
		}
	}

	from = domain.DateOnly(from)
	to = domain.DateOnly(to)
	if to.Before(from) {
		return Report{}, domain.E(domain.KindValidation, "report range end precedes start")
	}
	if to.Sub(from) > 366*24*time.Hour {
		return Report{}, domain.E(domain.KindValidation, "report range may not exceed one year")
	}

	entries, err := s.entries.ListByUser(ctx, target.ID, repository.EntryFilter{From: &from, To: &to})
	if err != nil {
		return Report{}, domain.Wrap(domain.KindInternal, err, "list entries")
	}

	report := Report{
		UserID:       target.ID,
		From:         from.Format(domain.DateLayout),
		To:           to.Format(domain.DateLayout),
		DaysInPeriod: int(to.Sub(from).Hours()/24) + 1,
		Categories:   make(map[string]CategoryStats),
	}

	for _, entry := range entries {
		report.DaysSubmitted++
		if entry.ZikrViolated {
			report.ZikrViolations++
		}
		for name, cat := range entry.Categories {
			stats := report.Categories[name]
			stats.DaysRecorded++
			if domain.CategoryCompleted(name, cat) {
				stats.DaysCompleted++
			}
			report.Categories[name] = stats
		}
	}

	for name, stats := range report.Categories {
		if stats.DaysRecorded > 0 {
			stats.Rate = float64(stats.DaysCompleted) / float64(stats.DaysRecorded)
		}
		report.Categories[name] = stats
	}
	if report.DaysInPeriod > 0 {
		report.SubmissionRate = float64(report.DaysSubmitted) / float64(report.DaysInPeriod)
	}
	report.CurrentStreak = currentStreak(entries, domain.DateOnly(s.now()))

	return report, nil
}

// currentStreak counts consecutive submitted days ending today or yesterday.
// Entries arrive sorted by date descending.
func currentStreak(entries []models.Entry, today time.Time) int {
	if len(entries) == 0 {
		return 0
	}

	expected := today
	latest := domain.DateOnly(entries[0].Date)
	if latest.Before(today) {
		// Today's entry may not be in yet; a streak through yesterday counts.
		if today.Sub(latest) > 24*time.Hour {
			return 0
		}
		expected = latest
	}

	streak := 0
	for _, entry := range entries {
		date := domain.DateOnly(entry.Date)
		if !date.Equal(expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak
}

// Weekly reports on a seven day window. weeksBack 0 ends today, 1 ends a
// week ago, and so on.
func (s *ReportService) Weekly(ctx context.Context, viewer models.User, userID string, weeksBack int) (Report, error) {
	if weeksBack < 0 || weeksBack > 52 {
		return Report{}, domain.E(domain.KindValidation, "week offset must be between 0 and 52")
	}
	end := domain.DateOnly(s.now()).AddDate(0, 0, -7*weeksBack)
	return s.ForUser(ctx, viewer, userID, end.AddDate(0, 0, -6), end)
}

// Monthly reports on the trailing thirty days including today.
func (s *ReportService) Monthly(ctx context.Context, viewer models.User, userID string) (Report, error) {
	today := domain.DateOnly(s.now())
	return s.ForUser(ctx, viewer, userID, today.AddDate(0, 0, -29), today)
}

// GroupMember is one row of a supervisor's group overview.
type GroupMember struct {
	User           models.User          `json:"-"`
	UserID         string               `json:"user_id"`
	Name           string               `json:"name"`
	Level          int                  `json:"level"`
	CycleProgress  domain.CycleProgress `json:"cycle_progress"`
	DaysSubmitted  int                  `json:"days_submitted_last_week"`
	ZikrViolations int                  `json:"zikr_violations_last_week"`
}

// GroupOverview summarizes the trailing week for every Saalik directly under
// a Murabi.
func (s *ReportService) GroupOverview(ctx context.Context, viewer models.User) ([]GroupMember, error) {
	if viewer.Role != domain.RoleMurabi && viewer.Role != domain.RoleAdmin {
		return nil, domain.E(domain.KindAuthorization, "group overview is for Murabi users")
	}

	children, err := s.users.FindChildren(ctx, viewer.ID, domain.RoleSaalik)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "list disciples")
	}

	today := domain.DateOnly(s.now())
	from := today.AddDate(0, 0, -6)
	now := s.now()

	var members []GroupMember
	for _, child := range children {
		entries, err := s.entries.ListByUser(ctx, child.ID, repository.EntryFilter{From: &from, To: &today})
		if err != nil {
			return nil, domain.Wrap(domain.KindInternal, err, "list entries for %s", child.ID)
		}

		member := GroupMember{
			User:          child,
			UserID:        child.ID,
			Name:          child.Name,
			Level:         child.Level,
			CycleProgress: domain.Progress(child.LevelStartDate, child.CycleDays, now),
			DaysSubmitted: len(entries),
		}
		for _, entry := range entries {
			if entry.ZikrViolated {
				member.ZikrViolations++
			}
		}
		members = append(members, member)
	}
	return members, nil
}

// analyticsPeriodDays is the trailing window the analytics aggregate over.
const analyticsPeriodDays = 30

// performerListSize bounds the top and bottom performer lists.
const performerListSize = 5

// PerformerStat is one Saalik's standing over the analytics window.
type PerformerStat struct {
	UserID         string  `json:"user_id"`
	Name           string  `json:"name"`
	Level          int     `json:"level"`
	SubmissionRate float64 `json:"submission_rate"`
	ZikrViolations int     `json:"zikr_violations"`
}

// MurabiStat aggregates the submission discipline of one Murabi's group.
type MurabiStat struct {
	MurabiID          string  `json:"murabi_id"`
	Name              string  `json:"name"`
	Disciples         int     `json:"disciples"`
	AvgSubmissionRate float64 `json:"avg_submission_rate"`
}

// Analytics is the leadership view over a population of users.
type Analytics struct {
	PeriodDays          int             `json:"period_days"`
	RoleDistribution    map[string]int  `json:"role_distribution"`
	LevelDistribution   map[int]int     `json:"level_distribution"`
	TotalSaaliks        int             `json:"total_saaliks"`
	AvgSubmissionRate   float64         `json:"avg_submission_rate"`
	ViolationRate       float64         `json:"violation_rate"`
	TopPerformers       []PerformerStat `json:"top_performers"`
	BottomPerformers    []PerformerStat `json:"bottom_performers"`
	MurabiEffectiveness []MurabiStat    `json:"murabi_effectiveness"`
}

// Analytics aggregates the trailing month for a Sheikh's subtree, or for the
// whole system when the viewer is Admin.
func (s *ReportService) Analytics(ctx context.Context, viewer models.User) (Analytics, error) {
	if viewer.Role != domain.RoleSheikh && viewer.Role != domain.RoleAdmin {
		return Analytics{}, domain.E(domain.KindAuthorization, "analytics are for Sheikh and Admin users")
	}

	var population []models.User
	var err error
	if viewer.Role == domain.RoleAdmin {
		population, err = s.users.ListAll(ctx, "", 0, 0)
	} else {
		population, err = s.users.ListByHierarchy(ctx, viewer.ID, "", 0, 0)
	}
	if err != nil {
		return Analytics{}, domain.Wrap(domain.KindInternal, err, "list users")
	}

	today := domain.DateOnly(s.now())
	from := today.AddDate(0, 0, -(analyticsPeriodDays - 1))

	out := Analytics{
		PeriodDays:        analyticsPeriodDays,
		RoleDistribution:  make(map[string]int),
		LevelDistribution: make(map[int]int),
	}

	var performers []PerformerStat
	murabiNames := make(map[string]string)
	murabiRates := make(map[string][]float64)
	totalEntries := 0
	totalViolations := 0
	rateSum := 0.0

	for _, user := range population {
		out.RoleDistribution[string(user.Role)]++
		if user.Role == domain.RoleMurabi {
			murabiNames[user.ID] = user.Name
		}
		if user.Role != domain.RoleSaalik || !user.IsActive {
			continue
		}
		out.TotalSaaliks++
		out.LevelDistribution[user.Level]++

		entries, err := s.entries.ListByUser(ctx, user.ID, repository.EntryFilter{From: &from, To: &today})
		if err != nil {
			return Analytics{}, domain.Wrap(domain.KindInternal, err, "list entries for %s", user.ID)
		}

		stat := PerformerStat{
			UserID:         user.ID,
			Name:           user.Name,
			Level:          user.Level,
			SubmissionRate: float64(len(entries)) / float64(analyticsPeriodDays),
		}
		for _, entry := range entries {
			if entry.ZikrViolated {
				stat.ZikrViolations++
			}
		}

		totalEntries += len(entries)
		totalViolations += stat.ZikrViolations
		rateSum += stat.SubmissionRate
		performers = append(performers, stat)
		if user.MurabiID != nil {
			murabiRates[*user.MurabiID] = append(murabiRates[*user.MurabiID], stat.SubmissionRate)
		}
	}

	if out.TotalSaaliks > 0 {
		out.AvgSubmissionRate = rateSum / float64(out.TotalSaaliks)
	}
	if totalEntries > 0 {
		out.ViolationRate = float64(totalViolations) / float64(totalEntries)
	}

	sort.Slice(performers, func(i, j int) bool {
		if performers[i].SubmissionRate != performers[j].SubmissionRate {
			return performers[i].SubmissionRate > performers[j].SubmissionRate
		}
		return performers[i].UserID < performers[j].UserID
	})
	if len(performers) > performerListSize {
		out.TopPerformers = performers[:performerListSize]
	} else {
		out.TopPerformers = performers
	}
	for i := len(performers) - 1; i >= 0 && len(out.BottomPerformers) < performerListSize; i-- {
		out.BottomPerformers = append(out.BottomPerformers, performers[i])
	}

	for id, rates := range murabiRates {
		sum := 0.0
		for _, rate := range rates {
			sum += rate
		}
		out.MurabiEffectiveness = append(out.MurabiEffectiveness, MurabiStat{
			MurabiID:          id,
			Name:              murabiNames[id],
			Disciples:         len(rates),
			AvgSubmissionRate: sum / float64(len(rates)),
		})
	}
	sort.Slice(out.MurabiEffectiveness, func(i, j int) bool {
		if out.MurabiEffectiveness[i].AvgSubmissionRate != out.MurabiEffectiveness[j].AvgSubmissionRate {
			return out.MurabiEffectiveness[i].AvgSubmissionRate > out.MurabiEffectiveness[j].AvgSubmissionRate
		}
		return out.MurabiEffectiveness[i].MurabiID < out.MurabiEffectiveness[j].MurabiID
	})

	return out, nil
}
