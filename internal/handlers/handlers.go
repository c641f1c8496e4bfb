package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tasbiaat/api/internal/config"
	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/middleware"
	"tasbiaat/api/internal/repository"
	"tasbiaat/api/internal/service"
	"tasbiaat/api/internal/storage"
)

type HandlerSet struct {
	log           zerolog.Logger
	cfg           *config.AppConfig
	db            *pgxpool.Pool
	cache         *redis.Client
	users         *repository.UserRepository
	sessions      *repository.SessionRepository
	authService   *service.AuthService
	userService   *service.UserService
	entryService  *service.EntryService
	reportService *service.ReportService
	notifService  *service.NotificationService
	adminService  *service.AdminService
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	entryRepo := repository.NewEntryRepository(db)
	levelRepo := repository.NewLevelRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	authz := service.NewAuthorizer(userRepo)

	return HandlerSet{
		log:           log,
		cfg:           cfg,
		db:            db,
		cache:         cache,
		users:         userRepo,
		sessions:      sessionRepo,
		authService:   service.NewAuthService(userRepo, sessionRepo, auditRepo, cfg, log),
		userService:   service.NewUserService(userRepo, sessionRepo, levelRepo, auditRepo, authz, log),
		entryService:  service.NewEntryService(entryRepo, userRepo, levelRepo, auditRepo, notifRepo, authz, log),
		reportService: service.NewReportService(entryRepo, userRepo, authz, log),
		notifService:  service.NewNotificationService(notifRepo, userRepo, authz, log),
		adminService: service.NewAdminService(
			userRepo, sessionRepo, entryRepo, auditRepo, notifRepo, levelRepo,
			store, authz, cache, cfg, log,
		),
	}
}

// Admin exposes the admin service for the maintenance scheduler.
func (h HandlerSet) Admin() *service.AdminService {
	return h.adminService
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/login", h.rateLimited("login", h.cfg.RateLimit.LoginPerHour), h.Login)

	authed := auth.Group("")
	authed.Use(middleware.Auth(h.cfg, h.users, h.sessions))
	authed.GET("/me", h.Me)
	authed.POST("/refresh", h.Refresh)
	authed.POST("/logout", h.Logout)
	authed.POST("/logout-all", h.LogoutAll)
	authed.GET("/sessions", h.ListSessions)
	authed.POST("/change-password", h.ChangePassword)

	users := v1.Group("/users")
	users.Use(middleware.Auth(h.cfg, h.users, h.sessions))
	users.POST("", h.rateLimited("users", h.cfg.RateLimit.UsersPerHour), h.CreateUser)
	users.GET("", h.ListUsers)
	users.GET("/children", h.ListChildren)
	users.GET("/:id", h.GetUser)
	users.PATCH("/:id", h.UpdateUser)
	users.PUT("/:id/level", h.SetLevel)
	users.POST("/:id/cycle/reset", h.ResetCycle)
	users.PUT("/:id/active", h.SetActive)
	users.GET("/:id/progress", h.Progress)

	levels := v1.Group("/levels")
	levels.Use(middleware.Auth(h.cfg, h.users, h.sessions))
	levels.GET("", h.ListLevels)

	entries := v1.Group("/entries")
	entries.Use(middleware.Auth(h.cfg, h.users, h.sessions))
	entries.POST("", h.rateLimited("entries", h.cfg.RateLimit.EntriesPerHour), h.SubmitEntry)
	entries.GET("", h.ListEntries)
	entries.GET("/:id", h.GetEntry)
	entries.POST("/:id/comments", h.CommentEntry)
	entries.PUT("/:id/status", h.SetEntryStatus)
	entries.DELETE("/:id", h.DeleteEntry)

	reports := v1.Group("/reports")
	reports.Use(
		middleware.Auth(h.cfg, h.users, h.sessions),
		h.rateLimited("reports", h.cfg.RateLimit.ReportsPerHour),
	)
	reports.GET("/weekly", h.WeeklyReport)
	reports.GET("/monthly", h.MonthlyReport)
	reports.GET("/custom", h.CustomReport)
	reports.GET("/group", h.GroupOverview)
	reports.GET("/analytics", h.Analytics)

	notifications := v1.Group("/notifications")
	notifications.Use(middleware.Auth(h.cfg, h.users, h.sessions))
	notifications.GET("", h.ListNotifications)
	notifications.GET("/unread-count", h.UnreadCount)
	notifications.PUT("/:id/read", h.MarkNotificationRead)
	notifications.PUT("/read-all", h.MarkAllNotificationsRead)
	notifications.POST("", h.SendNotification)

	admin := v1.Group("/admin")
	admin.Use(
		middleware.Auth(h.cfg, h.users, h.sessions),
		middleware.RequireRoles(domain.RoleAdmin),
	)
	admin.GET("/system/status", h.SystemStatus)
	admin.POST("/system/cleanup", h.RunCleanup)
	admin.POST("/system/backup", h.CreateBackup)
	admin.GET("/system/backups", h.ListBackups)
	admin.GET("/audit", h.AuditLog)
	admin.GET("/audit/system-summary", h.SystemActivity)
	admin.GET("/audit/users/:id/summary", h.ActorActivity)
	admin.POST("/notifications/broadcast", h.Broadcast)
	admin.POST("/users/bulk/cycle-reset", h.BulkResetCycles)
	admin.POST("/users/bulk/level", h.BulkSetLevel)

	manage := v1.Group("/manage")
	manage.Use(
		middleware.Auth(h.cfg, h.users, h.sessions),
		middleware.RequireRoles(domain.RoleMurabi, domain.RoleMasool, domain.RoleSheikh, domain.RoleAdmin),
	)
	manage.POST("/users/:id/force-logout", h.ForceLogout)
}

// rateLimited applies the redis fixed-window limiter for one surface, or a
// no-op when limiting is disabled.
func (h HandlerSet) rateLimited(surface string, perHour int) gin.HandlerFunc {
	if !h.cfg.RateLimit.Enabled || h.cache == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimit(h.cache, h.log, surface, perHour)
}
