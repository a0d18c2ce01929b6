package config

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Google   GoogleConfig
	Sync     SyncConfig
	Reminder ReminderConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GoogleConfig carries the Google Calendar OAuth client and watch settings.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	WebhookURL   string
	CalendarID   string
	// ChannelTTL is capped by the provider at 7 days for calendar watches.
	ChannelTTL time.Duration
	Timeout    time.Duration
}

// SyncConfig governs the incremental sync controller.
type SyncConfig struct {
	Enabled bool
	// LockTTL bounds the per-user mutex held around a sync run.
	LockTTL time.Duration
	// WebhookDedupTTL bounds the idempotency window for duplicate deliveries.
	WebhookDedupTTL time.Duration
	// Channels expiring within ChannelRenewalWindow are re-registered by the sweep.
	ChannelRenewalWindow   time.Duration
	ChannelRenewalInterval time.Duration
	RenewalWorkers         int
}

// ReminderConfig holds fallback reminder offsets per event type, in minutes before start.
type ReminderConfig struct {
	AssessmentOffsets   []int
	StudySessionOffsets []int
	CustomEventOffsets  []int
}

const maxChannelTTL = 7 * 24 * time.Hour

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Google = GoogleConfig{
		ClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		ClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  v.GetString("GOOGLE_REDIRECT_URL"),
		WebhookURL:   v.GetString("GOOGLE_WEBHOOK_URL"),
		CalendarID:   v.GetString("GOOGLE_CALENDAR_ID"),
		ChannelTTL:   parseDuration(v.GetString("GOOGLE_CHANNEL_TTL"), maxChannelTTL),
		Timeout:      parseDuration(v.GetString("GOOGLE_TIMEOUT"), 15*time.Second),
	}
	if cfg.Google.ChannelTTL > maxChannelTTL {
		cfg.Google.ChannelTTL = maxChannelTTL
	}

	cfg.Sync = SyncConfig{
		Enabled:                v.GetBool("ENABLE_SYNC"),
		LockTTL:                parseDuration(v.GetString("SYNC_LOCK_TTL"), 2*time.Minute),
		WebhookDedupTTL:        parseDuration(v.GetString("SYNC_WEBHOOK_DEDUP_TTL"), 10*time.Minute),
		ChannelRenewalWindow:   parseDuration(v.GetString("SYNC_CHANNEL_RENEWAL_WINDOW"), 24*time.Hour),
		ChannelRenewalInterval: parseDuration(v.GetString("SYNC_CHANNEL_RENEWAL_INTERVAL"), time.Hour),
		RenewalWorkers:         v.GetInt("SYNC_RENEWAL_WORKERS"),
	}

	cfg.Reminder = ReminderConfig{
		AssessmentOffsets:   splitMinutes(v.GetString("REMINDER_ASSESSMENT_OFFSETS"), []int{1440, 60}),
		StudySessionOffsets: splitMinutes(v.GetString("REMINDER_STUDY_SESSION_OFFSETS"), []int{15}),
		CustomEventOffsets:  splitMinutes(v.GetString("REMINDER_CUSTOM_EVENT_OFFSETS"), []int{1440, 60}),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "studyplan")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/v1/google/callback")
	v.SetDefault("GOOGLE_WEBHOOK_URL", "")
	v.SetDefault("GOOGLE_CALENDAR_ID", "primary")
	v.SetDefault("GOOGLE_CHANNEL_TTL", "168h")
	v.SetDefault("GOOGLE_TIMEOUT", "15s")

	v.SetDefault("ENABLE_SYNC", true)
	v.SetDefault("SYNC_LOCK_TTL", "2m")
	v.SetDefault("SYNC_WEBHOOK_DEDUP_TTL", "10m")
	v.SetDefault("SYNC_CHANNEL_RENEWAL_WINDOW", "24h")
	v.SetDefault("SYNC_CHANNEL_RENEWAL_INTERVAL", "1h")
	v.SetDefault("SYNC_RENEWAL_WORKERS", 1)

	v.SetDefault("REMINDER_ASSESSMENT_OFFSETS", "1440,60")
	v.SetDefault("REMINDER_STUDY_SESSION_OFFSETS", "15")
	v.SetDefault("REMINDER_CUSTOM_EVENT_OFFSETS", "1440,60")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func splitMinutes(raw string, fallback []int) []int {
	parts := splitAndTrim(raw)
	result := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			continue
		}
		result = append(result, n)
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}
