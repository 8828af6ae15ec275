package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/validator"
)

type Config struct {
	Database DatabaseConfig
	Store    StoreConfig
	JWT      JWTConfig
	App      AppConfig
	HR       HRConfig
	Google   GoogleConfig
	Sync     SyncConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// StoreConfig selects where the failure ledger and run lock live.
type StoreConfig struct {
	Driver     string // postgres, sqlite or memory
	SQLitePath string
}

// JWTConfig holds operator token configuration
type JWTConfig struct {
	Secret             string
	OperatorExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	CORSOrigins []string
}

type HRConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	PageSize     int
}

type GoogleConfig struct {
	ServiceAccountFile string
	Scopes             []string
	CalendarID         string
}

// SyncConfig drives the reconciliation runs.
type SyncConfig struct {
	AllowedDomains         []string
	AllowedEmails          []string
	LookbackDays           int
	LookaheadDays          int
	MaxFailuresPerEmployee int
	PrefetchTimeOffs       bool
	SkipApprovalBlacklist  []string
	OutOfOfficeType        string
	UTCOffset              time.Duration

	RunTimeout  time.Duration
	LockTimeout time.Duration
	Interval    time.Duration
	DeadZone    time.Duration
	FailTTLMin  time.Duration
	FailTTLMax  time.Duration
}

// Load reads the process environment after applying envFiles, or ".env" when
// none are given. Variables already set in the environment win. A missing
// default .env is fine; a missing explicit file is not.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if len(envFiles) > 0 {
			return nil, fmt.Errorf("load env files: %w", err)
		}
		slog.Debug("No .env file loaded, using process environment", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "timeoff_sync"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	config.Store = StoreConfig{
		Driver:     strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		SQLitePath: getEnv("STORE_SQLITE_PATH", "timeoff-sync.db"),
	}

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvSlice("CORS_ORIGINS"),
	}

	config.JWT = JWTConfig{
		Secret:             getEnv("JWT_SECRET_KEY", ""),
		OperatorExpiration: getEnv("JWT_OPERATOR_EXPIRATION_TIME", "24h"),
	}

	// HR provider
	hrPageSize, err := getEnvInt("HR_PAGE_SIZE", 200)
	if err != nil {
		return nil, err
	}
	hrBaseURL := strings.TrimRight(getEnv("HR_BASE_URL", ""), "/")
	config.HR = HRConfig{
		BaseURL:      hrBaseURL,
		TokenURL:     getEnv("HR_TOKEN_URL", hrBaseURL+"/auth/token"),
		ClientID:     getEnv("HR_CLIENT_ID", ""),
		ClientSecret: getEnv("HR_CLIENT_SECRET", ""),
		PageSize:     hrPageSize,
	}

	// Google Calendar (domain-wide delegation)
	scopes := getEnvSlice("GOOGLE_SCOPES")
	if len(scopes) == 0 {
		scopes = []string{"https://www.googleapis.com/auth/calendar.events"}
	}
	config.Google = GoogleConfig{
		ServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		Scopes:             scopes,
		CalendarID:         getEnv("GOOGLE_CALENDAR_ID", "primary"),
	}

	config.Sync, err = loadSyncConfig()
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadSyncConfig() (SyncConfig, error) {
	var (
		sc  SyncConfig
		err error
	)
	sc.AllowedDomains = getEnvSlice("SYNC_ALLOWED_DOMAINS")
	sc.AllowedEmails = getEnvSlice("SYNC_ALLOWED_EMAILS")
	sc.SkipApprovalBlacklist = getEnvSlice("SYNC_SKIP_APPROVAL_BLACKLIST")
	sc.OutOfOfficeType = getEnv("SYNC_OUT_OF_OFFICE_TYPE", "vacation")

	if sc.LookbackDays, err = getEnvInt("SYNC_LOOKBACK_DAYS", 30); err != nil {
		return sc, err
	}
	if sc.LookaheadDays, err = getEnvInt("SYNC_LOOKAHEAD_DAYS", 180); err != nil {
		return sc, err
	}
	if sc.MaxFailuresPerEmployee, err = getEnvInt("SYNC_MAX_FAILURES_PER_EMPLOYEE", 10); err != nil {
		return sc, err
	}
	if sc.PrefetchTimeOffs, err = getEnvBool("SYNC_PREFETCH_TIME_OFFS", false); err != nil {
		return sc, err
	}

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"SYNC_UTC_OFFSET", "0h", &sc.UTCOffset},
		{"SYNC_RUN_TIMEOUT", "5m", &sc.RunTimeout},
		{"SYNC_LOCK_TIMEOUT", "5s", &sc.LockTimeout},
		{"SYNC_INTERVAL", "10m", &sc.Interval},
		{"SYNC_DEAD_ZONE", "2m", &sc.DeadZone},
		{"SYNC_FAIL_TTL_MIN", "1h", &sc.FailTTLMin},
		{"SYNC_FAIL_TTL_MAX", "6h", &sc.FailTTLMax},
	}
	for _, d := range durations {
		if *d.dst, err = getEnvDuration(d.key, d.fallback); err != nil {
			return sc, err
		}
	}
	return sc, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres":
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.HR.BaseURL == "" {
		return fmt.Errorf("HR_BASE_URL is required")
	}
	if c.HR.ClientID == "" {
		return fmt.Errorf("HR_CLIENT_ID is required")
	}
	if c.HR.ClientSecret == "" {
		return fmt.Errorf("HR_CLIENT_SECRET is required")
	}
	if c.Google.ServiceAccountFile == "" {
		return fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_FILE is required")
	}
	return c.Sync.Validate()
}

func (s SyncConfig) Validate() error {
	if s.LookbackDays < 0 || s.LookaheadDays < 0 {
		return fmt.Errorf("SYNC_LOOKBACK_DAYS and SYNC_LOOKAHEAD_DAYS must not be negative")
	}
	if s.MaxFailuresPerEmployee < 1 {
		return fmt.Errorf("SYNC_MAX_FAILURES_PER_EMPLOYEE must be at least 1")
	}
	if s.RunTimeout <= 0 {
		return fmt.Errorf("SYNC_RUN_TIMEOUT must be positive")
	}
	if s.LockTimeout <= 0 {
		return fmt.Errorf("SYNC_LOCK_TIMEOUT must be positive")
	}
	if s.FailTTLMax < s.FailTTLMin {
		return fmt.Errorf("SYNC_FAIL_TTL_MAX must not be below SYNC_FAIL_TTL_MIN")
	}
	if s.UTCOffset < -12*time.Hour || s.UTCOffset > 14*time.Hour {
		return fmt.Errorf("SYNC_UTC_OFFSET out of range")
	}

	var errs validator.ValidationErrors
	for _, d := range s.AllowedDomains {
		if !validator.IsValidDomain(d) {
			errs = append(errs, validator.ValidationError{Field: "SYNC_ALLOWED_DOMAINS", Message: fmt.Sprintf("invalid domain %q", d)})
		}
	}
	for _, e := range s.AllowedEmails {
		if !validator.IsValidEmail(e) {
			errs = append(errs, validator.ValidationError{Field: "SYNC_ALLOWED_EMAILS", Message: fmt.Sprintf("invalid email %q", e)})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL onto slog.
func (a AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(a.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
