package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port          string `yaml:"port" env:"SERVER_PORT"`
		Mode          string `yaml:"mode" env:"SERVER_MODE"`
		BaseURL       string `yaml:"base_url" env:"SERVER_BASE_URL"`
		TemplatesGlob string `yaml:"templates_glob" env:"SERVER_TEMPLATES_GLOB"`
		StaticPath    string `yaml:"static_path" env:"SERVER_STATIC_PATH"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		LockTimeout     string `yaml:"lock_timeout" env:"DB_LOCK_TIMEOUT"`
		RetryAttempts   int    `yaml:"retry_attempts" env:"DB_RETRY_ATTEMPTS"`
		RetryBaseDelay  string `yaml:"retry_base_delay" env:"DB_RETRY_BASE_DELAY"`
		MigrationsPath  string `yaml:"migrations_path" env:"DB_MIGRATIONS_PATH"`
	} `yaml:"database"`

	Session struct {
		Name   string `yaml:"name" env:"SESSION_NAME"`
		Secret string `yaml:"secret" env:"SESSION_SECRET"`
		Secure bool   `yaml:"secure" env:"SESSION_SECURE"`
		MaxAge string `yaml:"max_age" env:"SESSION_MAX_AGE"`
	} `yaml:"session"`

	CSRF struct {
		Enabled bool   `yaml:"enabled" env:"CSRF_ENABLED"`
		Key     string `yaml:"key" env:"CSRF_KEY"`
	} `yaml:"csrf"`

	App struct {
		Timezone string `yaml:"timezone" env:"APP_TIMEZONE"`
		PageSize int    `yaml:"page_size" env:"APP_PAGE_SIZE"`
	} `yaml:"app"`

	Auth struct {
		OTPBypass bool   `yaml:"otp_bypass" env:"AUTH_OTP_BYPASS"`
		OTPTTL    string `yaml:"otp_ttl" env:"AUTH_OTP_TTL"`
		JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
		Issuer    string `yaml:"issuer" env:"AUTH_ISSUER"`
	} `yaml:"auth"`

	Storage struct {
		Driver            string   `yaml:"driver" env:"STORAGE_DRIVER"`
		LocalPath         string   `yaml:"local_path" env:"STORAGE_LOCAL_PATH"`
		MaxUploadMB       int      `yaml:"max_upload_mb" env:"STORAGE_MAX_UPLOAD_MB"`
		AllowedExtensions []string `yaml:"allowed_extensions" env:"STORAGE_ALLOWED_EXTENSIONS"`
		S3                struct {
			Bucket    string `yaml:"bucket" env:"S3_BUCKET"`
			Region    string `yaml:"region" env:"S3_REGION"`
			Endpoint  string `yaml:"endpoint" env:"S3_ENDPOINT"`
			AccessKey string `yaml:"access_key" env:"S3_ACCESS_KEY"`
			SecretKey string `yaml:"secret_key" env:"S3_SECRET_KEY"`
		} `yaml:"s3"`
	} `yaml:"storage"`

	Notifications struct {
		// Drivers is a comma separated list of log, hub, redis
		Drivers   string `yaml:"drivers" env:"NOTIFY_DRIVERS"`
		RedisAddr string `yaml:"redis_addr" env:"NOTIFY_REDIS_ADDR"`
		RedisDB   int    `yaml:"redis_db" env:"NOTIFY_REDIS_DB"`
		QueueKey  string `yaml:"queue_key" env:"NOTIFY_QUEUE_KEY"`
	} `yaml:"notifications"`

	Maintenance struct {
		Schedule                string `yaml:"schedule" env:"MAINTENANCE_SCHEDULE"`
		AttendanceRetentionDays int    `yaml:"attendance_retention_days" env:"MAINTENANCE_ATTENDANCE_RETENTION_DAYS"`
	} `yaml:"maintenance"`

	HelpBot struct {
		QAPath    string  `yaml:"qa_path" env:"HELPBOT_QA_PATH"`
		Threshold float64 `yaml:"threshold" env:"HELPBOT_THRESHOLD"`
	} `yaml:"helpbot"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
		Path    string `yaml:"path" env:"METRICS_PATH"`
	} `yaml:"metrics"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	// EnvOverrides names the variables that replaced file values.
	EnvOverrides []string `yaml:"-"`
}

// LoadConfig loads configuration from a file and environment variables.
// A .env file in the working directory is applied to the environment first.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	overrides, err := applyEnv(config)
	if err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}
	config.EnvOverrides = overrides

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.BaseURL = "http://localhost:8080"
	config.Server.TemplatesGlob = "web/templates/*.html"
	config.Server.StaticPath = "web/static"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "tuitiontrack"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 2
	config.Database.MaxOpenConns = 10
	config.Database.ConnMaxLifetime = "1h"
	config.Database.LockTimeout = "5s"
	config.Database.RetryAttempts = 3
	config.Database.RetryBaseDelay = "50ms"
	config.Database.MigrationsPath = "migrations"

	config.Session.Name = "tuitiontrack_session"
	config.Session.MaxAge = "24h"

	config.CSRF.Enabled = true

	config.App.Timezone = "Asia/Kolkata"
	config.App.PageSize = 20

	config.Auth.OTPBypass = true
	config.Auth.OTPTTL = "5m"
	config.Auth.Issuer = "tuitiontrack"

	config.Storage.Driver = "local"
	config.Storage.LocalPath = "uploads"
	config.Storage.MaxUploadMB = 10
	config.Storage.AllowedExtensions = []string{"png", "jpg", "jpeg", "gif", "pdf", "doc", "docx"}

	config.Notifications.Drivers = "log,hub"
	config.Notifications.QueueKey = "tuitiontrack:notifications"

	config.HelpBot.QAPath = "data/help_qa.json"
	config.HelpBot.Threshold = 0.75

	config.Metrics.Enabled = true
	config.Metrics.Path = "/metrics"

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.Session.Secret == "" {
		return fmt.Errorf("session secret is required")
	}

	if config.CSRF.Enabled && len(config.CSRF.Key) != 32 {
		return fmt.Errorf("csrf key must be exactly 32 bytes")
	}

	if !config.Auth.OTPBypass && config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt secret is required when OTP verification is enabled")
	}

	for name, value := range map[string]string{
		"database conn_max_lifetime": config.Database.ConnMaxLifetime,
		"database lock_timeout":      config.Database.LockTimeout,
		"database retry_base_delay":  config.Database.RetryBaseDelay,
		"session max_age":            config.Session.MaxAge,
		"auth otp_ttl":               config.Auth.OTPTTL,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if _, err := time.LoadLocation(config.App.Timezone); err != nil {
		return fmt.Errorf("invalid app timezone %q: %w", config.App.Timezone, err)
	}

	switch config.Storage.Driver {
	case "local":
	case "s3":
		if config.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required for the s3 storage driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}

	for _, driver := range config.NotificationDrivers() {
		switch driver {
		case "log", "hub":
		case "redis":
			if config.Notifications.RedisAddr == "" {
				return fmt.Errorf("redis address is required for the redis notification driver")
			}
		default:
			return fmt.Errorf("unknown notification driver %q", driver)
		}
	}

	if config.App.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// NotificationDrivers splits the configured driver list
func (c *Config) NotificationDrivers() []string {
	var drivers []string
	for _, d := range strings.Split(c.Notifications.Drivers, ",") {
		if d = strings.TrimSpace(d); d != "" {
			drivers = append(drivers, d)
		}
	}
	return drivers
}

// Location returns the configured business timezone. validateConfig guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MaxUploadBytes returns the upload limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Storage.MaxUploadMB) * 1024 * 1024
}
