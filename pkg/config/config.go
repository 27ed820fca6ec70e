package config

import (
	"errors"
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
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Calendar CalendarConfig
	Events   EventsConfig
	Importer ImporterConfig
	Schedule ScheduleConfig
	Feeds    FeedConfig
	Metrics  MetricsConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CalendarConfig controls how dates are bucketed and how month grids are laid out.
type CalendarConfig struct {
	Timezone  string
	WeekStart string
}

// Location resolves the configured timezone, falling back to time.Local.
func (c CalendarConfig) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Weekday resolves the configured first day of the week. Monday unless "sunday".
func (c CalendarConfig) Weekday() time.Weekday {
	if strings.EqualFold(strings.TrimSpace(c.WeekStart), "sunday") {
		return time.Sunday
	}
	return time.Monday
}

// EventsConfig tunes event mutation behaviour.
type EventsConfig struct {
	DeleteConfirmDelay time.Duration
}

// ImporterConfig configures the third-party event search and the proxy function.
type ImporterConfig struct {
	TicketmasterURL   string
	TicketmasterKey   string
	FallbackEndpoints []string
	Timeout           time.Duration
	PageSize          int
	SearchCacheTTL    time.Duration
	DefaultKeyword    string
	DefaultLocation   string
}

// ScheduleConfig drives the periodic import of saved searches.
type ScheduleConfig struct {
	Enabled       bool
	Cron          string
	SavedSearches []string
	SystemUserID  string
	Workers       int
	Retries       int
}

// FeedConfig signs personal calendar subscription URLs.
type FeedConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
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
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"), ",")}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Calendar = CalendarConfig{
		Timezone:  v.GetString("CALENDAR_TIMEZONE"),
		WeekStart: v.GetString("CALENDAR_WEEK_START"),
	}

	cfg.Events = EventsConfig{
		DeleteConfirmDelay: parseDuration(v.GetString("EVENTS_DELETE_CONFIRM_DELAY"), 500*time.Millisecond),
	}

	pageSize := v.GetInt("IMPORT_PAGE_SIZE")
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 100
	}
	cfg.Importer = ImporterConfig{
		TicketmasterURL:   v.GetString("TICKETMASTER_URL"),
		TicketmasterKey:   v.GetString("TICKETMASTER_API_KEY"),
		FallbackEndpoints: splitAndTrim(v.GetString("IMPORT_FALLBACK_ENDPOINTS"), ","),
		Timeout:           parseDuration(v.GetString("IMPORT_TIMEOUT"), 10*time.Second),
		PageSize:          pageSize,
		SearchCacheTTL:    parseDuration(v.GetString("IMPORT_SEARCH_CACHE_TTL"), 5*time.Minute),
		DefaultKeyword:    v.GetString("IMPORT_DEFAULT_KEYWORD"),
		DefaultLocation:   v.GetString("IMPORT_DEFAULT_LOCATION"),
	}

	cfg.Schedule = ScheduleConfig{
		Enabled:       v.GetBool("ENABLE_SCHEDULED_IMPORT"),
		Cron:          v.GetString("SCHEDULED_IMPORT_CRON"),
		SavedSearches: splitAndTrim(v.GetString("SCHEDULED_IMPORT_SEARCHES"), ";"),
		SystemUserID:  v.GetString("SCHEDULED_IMPORT_USER_ID"),
		Workers:       v.GetInt("SCHEDULED_IMPORT_WORKERS"),
		Retries:       v.GetInt("SCHEDULED_IMPORT_RETRIES"),
	}

	cfg.Feeds = FeedConfig{
		TokenSecret: v.GetString("FEED_TOKEN_SECRET"),
		TokenTTL:    parseDuration(v.GetString("FEED_TOKEN_TTL"), 90*24*time.Hour),
	}
	if cfg.Feeds.TokenSecret == "" {
		cfg.Feeds.TokenSecret = cfg.JWT.Secret
	}

	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("ENABLE_METRICS"),
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
	v.SetDefault("DB_NAME", "palace_events")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "palace-events")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CALENDAR_TIMEZONE", "Local")
	v.SetDefault("CALENDAR_WEEK_START", "monday")

	v.SetDefault("EVENTS_DELETE_CONFIRM_DELAY", "500ms")

	v.SetDefault("TICKETMASTER_URL", "https://app.ticketmaster.com/discovery/v2/events.json")
	v.SetDefault("TICKETMASTER_API_KEY", "")
	v.SetDefault("IMPORT_FALLBACK_ENDPOINTS", "https://open-event-api.vercel.app/api/events,https://open-event-api.vercel.app/events")
	v.SetDefault("IMPORT_TIMEOUT", "10s")
	v.SetDefault("IMPORT_PAGE_SIZE", 100)
	v.SetDefault("IMPORT_SEARCH_CACHE_TTL", "5m")
	v.SetDefault("IMPORT_DEFAULT_KEYWORD", "Art")
	v.SetDefault("IMPORT_DEFAULT_LOCATION", "London")

	v.SetDefault("ENABLE_SCHEDULED_IMPORT", false)
	v.SetDefault("SCHEDULED_IMPORT_CRON", "0 */6 * * *")
	v.SetDefault("SCHEDULED_IMPORT_SEARCHES", "")
	v.SetDefault("SCHEDULED_IMPORT_USER_ID", "")
	v.SetDefault("SCHEDULED_IMPORT_WORKERS", 1)
	v.SetDefault("SCHEDULED_IMPORT_RETRIES", 2)

	v.SetDefault("FEED_TOKEN_SECRET", "")
	v.SetDefault("FEED_TOKEN_TTL", "2160h")

	v.SetDefault("ENABLE_METRICS", true)
}

func isMissingFile(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file")
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

func splitAndTrim(raw, sep string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, sep)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
