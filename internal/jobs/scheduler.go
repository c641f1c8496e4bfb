package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"tasbiaat/api/internal/config"
	"tasbiaat/api/internal/service"
)

// Scheduler runs the retention sweep unattended. Disabled by default; the
// same sweep is reachable through the admin API.
type Scheduler struct {
	cron  *cron.Cron
	admin *service.AdminService
	cfg   config.JobsConfig
	log   zerolog.Logger
}

func NewScheduler(admin *service.AdminService, cfg config.JobsConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithSeconds()),
		admin: admin,
		cfg:   cfg,
		log:   log,
	}
}

func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.runCleanup); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Str("schedule", s.cfg.Schedule).Msg("maintenance scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
	}
}

func (s *Scheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := s.admin.Cleanup(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled cleanup failed")
		return
	}
	s.log.Info().
		Int("sessions", report.ExpiredSessions).
		Int("notifications", report.ExpiredNotifications).
		Int("audit", report.PrunedAuditRecords).
		Msg("scheduled cleanup finished")
}
