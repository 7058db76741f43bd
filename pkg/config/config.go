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
	Payroll  PayrollConfig
	Workflow WorkflowConfig
	Sync     SyncConfig
	Exports  ExportsConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
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

// PayrollConfig tunes the calculation engine and period runs.
type PayrollConfig struct {
	// FiscalYearOffset is added to the Gregorian year when deriving the stored fiscal_year
	// (543 maps to the Buddhist era used by the HR leave tables).
	FiscalYearOffset    int
	RetroLookBackMonths int
	RunLockTTL          time.Duration
	WorkerRetries       int
}

// WorkflowConfig governs SLA reminders for pending approval steps.
type WorkflowConfig struct {
	SLABusinessDays  int
	ReminderInterval time.Duration
	ReminderDedupTTL time.Duration
	RemindersEnabled bool
}

// SyncConfig controls HR staging synchronization.
type SyncConfig struct {
	Enabled  bool
	Interval time.Duration
	LockTTL  time.Duration
}

// ExportsConfig configures payout report files and their signed download links.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	lookBack := v.GetInt("PAYROLL_RETRO_LOOKBACK_MONTHS")
	if lookBack <= 0 {
		lookBack = 6
	}
	cfg.Payroll = PayrollConfig{
		FiscalYearOffset:    v.GetInt("PAYROLL_FISCAL_YEAR_OFFSET"),
		RetroLookBackMonths: lookBack,
		RunLockTTL:          parseDuration(v.GetString("PAYROLL_RUN_LOCK_TTL"), 30*time.Minute),
		WorkerRetries:       v.GetInt("PAYROLL_WORKER_RETRIES"),
	}

	cfg.Workflow = WorkflowConfig{
		SLABusinessDays:  v.GetInt("WORKFLOW_SLA_BUSINESS_DAYS"),
		ReminderInterval: parseDuration(v.GetString("WORKFLOW_REMINDER_INTERVAL"), time.Hour),
		ReminderDedupTTL: parseDuration(v.GetString("WORKFLOW_REMINDER_DEDUP_TTL"), 24*time.Hour),
		RemindersEnabled: v.GetBool("ENABLE_WORKFLOW_REMINDERS"),
	}

	cfg.Sync = SyncConfig{
		Enabled:  v.GetBool("ENABLE_HR_SYNC"),
		Interval: parseDuration(v.GetString("HR_SYNC_INTERVAL"), 6*time.Hour),
		LockTTL:  parseDuration(v.GetString("HR_SYNC_LOCK_TTL"), 15*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), time.Hour),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "pts")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "pts-payroll-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PAYROLL_FISCAL_YEAR_OFFSET", 543)
	v.SetDefault("PAYROLL_RETRO_LOOKBACK_MONTHS", 6)
	v.SetDefault("PAYROLL_RUN_LOCK_TTL", "30m")
	v.SetDefault("PAYROLL_WORKER_RETRIES", 1)

	v.SetDefault("WORKFLOW_SLA_BUSINESS_DAYS", 3)
	v.SetDefault("WORKFLOW_REMINDER_INTERVAL", "1h")
	v.SetDefault("WORKFLOW_REMINDER_DEDUP_TTL", "24h")
	v.SetDefault("ENABLE_WORKFLOW_REMINDERS", true)

	v.SetDefault("ENABLE_HR_SYNC", false)
	v.SetDefault("HR_SYNC_INTERVAL", "6h")
	v.SetDefault("HR_SYNC_LOCK_TTL", "15m")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "1h")
}

// viper reports a missing explicit config file as an *fs.PathError rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file or directory")
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
