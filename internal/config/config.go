package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Library
		Remote
		Log
		Global
		Tasks
		ExportSchedule
	}

	HTTP struct {
		Port int32  `validate:"min=1,max=65535"`
		Host string `validate:"required"`
	}
	Library struct {
		Dir      string `validate:"required"`
		Key      string // Shared key clients must know; empty only for local use
		ReadOnly bool

		MaxAuthFailures int `validate:"min=1"` // Rejected commands per address before lockout
		AuthLockout     time.Duration
	}
	Remote struct {
		URL             string `validate:"omitempty,url"` // ws://host:port/library, switches the CLI to the remote client
		DialTimeout     time.Duration
		BreakerFailures uint32
		BreakerCooldown time.Duration
		WriteTimeout    time.Duration
	}
	Log struct {
		Level  string `validate:"oneof=debug info warn error"`
		Format string `validate:"oneof=json console"`
	}
	Global struct {
		ShutdownTimeoutInSeconds int `validate:"min=0"`
	}
	Tasks struct {
		Enabled           bool
		Workers           int `validate:"min=1"`
		MaxRetries        int `validate:"min=0"`
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	ExportSchedule struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
		Dir      string
		Format   string `validate:"required"`
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8189)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("library_dir", DefaultLibraryDir)
	v.SetDefault("library_key", "")
	v.SetDefault("library_readonly", false)
	v.SetDefault("library_max_auth_failures", 10)
	v.SetDefault("library_auth_lockout", "5m")

	v.SetDefault("remote_url", "")
	v.SetDefault("remote_dial_timeout", "5s")
	v.SetDefault("remote_breaker_failures", 5)
	v.SetDefault("remote_breaker_cooldown", "30s")
	v.SetDefault("remote_write_timeout", "10s")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "10m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	v.SetDefault("export_schedule_enabled", false)
	v.SetDefault("export_schedule", "0 3 * * *") // Daily at 03:00
	v.SetDefault("export_dir", "./export")
	v.SetDefault("export_format", "markdown")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Library: Library{
			Dir:      v.GetString("LIBRARY_DIR"),
			Key:      v.GetString("LIBRARY_KEY"),
			ReadOnly: v.GetBool("LIBRARY_READONLY"),

			MaxAuthFailures: v.GetInt("LIBRARY_MAX_AUTH_FAILURES"),
			AuthLockout:     v.GetDuration("LIBRARY_AUTH_LOCKOUT"),
		},
		Remote: Remote{
			URL:             v.GetString("REMOTE_URL"),
			DialTimeout:     v.GetDuration("REMOTE_DIAL_TIMEOUT"),
			BreakerFailures: v.GetUint32("REMOTE_BREAKER_FAILURES"),
			BreakerCooldown: v.GetDuration("REMOTE_BREAKER_COOLDOWN"),
			WriteTimeout:    v.GetDuration("REMOTE_WRITE_TIMEOUT"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		ExportSchedule: ExportSchedule{
			Enabled:  v.GetBool("EXPORT_SCHEDULE_ENABLED"),
			Schedule: v.GetString("EXPORT_SCHEDULE"),
			Dir:      v.GetString("EXPORT_DIR"),
			Format:   v.GetString("EXPORT_FORMAT"),
		},
	}
}

// Validate checks the configuration for values the services cannot run
// with.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.ExportSchedule.Enabled && c.ExportSchedule.Dir == "" {
		return fmt.Errorf("invalid configuration: EXPORT_DIR is required when EXPORT_SCHEDULE_ENABLED is set")
	}
	return nil
}

// ShutdownTimeout returns the graceful shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Global.ShutdownTimeoutInSeconds) * time.Second
}

// ListenAddr returns the address the server listens on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}
