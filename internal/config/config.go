package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketBackups string
	UseSSL        bool
	Region        string
}

type SecurityConfig struct {
	JWTSecret   string
	JWTTTL      time.Duration
	SessionTTL  time.Duration
	MaxSessions int
}

type RateLimitConfig struct {
	Enabled bool
	// Per-window request budgets, keyed by surface.
	EntriesPerHour int
	UsersPerHour   int
	ReportsPerHour int
	LoginPerHour   int
}

type RetentionConfig struct {
	AuditDays        int
	NotificationDays int
}

type JobsConfig struct {
	// Maintenance sweeps are operator-invoked through the admin API; the
	// cron schedule is an opt-in convenience for unattended deployments.
	Enabled  bool
	Schedule string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	RateLimit        RateLimitConfig
	Retention        RetentionConfig
	Jobs             JobsConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("TASBIAAT")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketbackups", "tasbiaat-backups")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.jwtttl", "24h")
	v.SetDefault("security.sessionttl", "720h") // 30 days
	v.SetDefault("security.maxsessions", 10)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.entriesperhour", 50)
	v.SetDefault("ratelimit.usersperhour", 10)
	v.SetDefault("ratelimit.reportsperhour", 30)
	v.SetDefault("ratelimit.loginperhour", 20)

	v.SetDefault("retention.auditdays", 90)
	v.SetDefault("retention.notificationdays", 30)

	v.SetDefault("jobs.enabled", false)
	v.SetDefault("jobs.schedule", "0 0 3 * * *")
}
