package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Usage     UsageConfig
	Billing   BillingConfig
	AI        AIConfig
	Vault     VaultConfig
	Webhook   WebhookConfig
	Scheduler SchedulerConfig
}

type AppConfig struct {
	Env      string
	Version  string
	HTTPAddr string
}

// IsProduction reports whether charges should be created outside test mode.
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

type DatabaseConfig struct {
	Driver          string // postgres, mysql or sqlite
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type UsageConfig struct {
	Backend  string // database or redis
	Timezone string
}

// Location resolves the billing period timezone. An empty value means the
// server's local clock.
func (c UsageConfig) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

type BillingConfig struct {
	Provider        string
	ProviderTimeout time.Duration
	// TestMode forces test charges even when App.Env is production.
	TestMode      bool
	Currency      string
	PublicBaseURL string
}

// AIConfig points the FAQ generators at their APIs. Empty base URLs use the
// vendor defaults.
type AIConfig struct {
	OpenAIBaseURL    string
	AnthropicBaseURL string
	RequestTimeout   time.Duration
}

type VaultConfig struct {
	AESKey string
}

type WebhookConfig struct {
	Secret string
}

type SchedulerConfig struct {
	Enabled  bool
	SyncSpec string
	// PendingGrace leaves fresh pending records to the merchant's callback.
	PendingGrace         time.Duration
	RetentionSpec        string
	WebhookRetentionDays int
}

var ErrInvalidConfig = errors.New("invalid_config")

// SandboxProvider is the in-memory billing provider for development and tests.
const SandboxProvider = "sandbox"

// Load reads configuration from the process environment, optionally seeded
// from a .env file in the working directory.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_VERSION", "dev")
	v.SetDefault("HTTP_ADDR", ":8080")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_DSN", "host=localhost user=postgres password=postgres dbname=shopfaq port=5432 sslmode=disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("USAGE_BACKEND", "database")
	v.SetDefault("USAGE_PERIOD_TIMEZONE", "local")

	v.SetDefault("BILLING_PROVIDER", SandboxProvider)
	v.SetDefault("BILLING_PROVIDER_TIMEOUT", "10s")
	v.SetDefault("BILLING_TEST_MODE", false)
	v.SetDefault("BILLING_CURRENCY", "USD")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")

	v.SetDefault("AI_OPENAI_BASE_URL", "")
	v.SetDefault("AI_ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1")
	v.SetDefault("AI_REQUEST_TIMEOUT", "60s")

	v.SetDefault("ENCRYPTION_KEY", "")
	v.SetDefault("WEBHOOK_SECRET", "")

	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_SYNC_SPEC", "@every 15m")
	v.SetDefault("SCHEDULER_PENDING_GRACE", "1h")
	v.SetDefault("SCHEDULER_RETENTION_SPEC", "@daily")
	v.SetDefault("WEBHOOK_RETENTION_DAYS", 30)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		App: AppConfig{
			Env:      strings.TrimSpace(v.GetString("APP_ENV")),
			Version:  strings.TrimSpace(v.GetString("APP_VERSION")),
			HTTPAddr: strings.TrimSpace(v.GetString("HTTP_ADDR")),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
			DSN:             strings.TrimSpace(v.GetString("DB_DSN")),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(v.GetString("REDIS_ADDR")),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Usage: UsageConfig{
			Backend:  strings.ToLower(strings.TrimSpace(v.GetString("USAGE_BACKEND"))),
			Timezone: strings.TrimSpace(v.GetString("USAGE_PERIOD_TIMEZONE")),
		},
		Billing: BillingConfig{
			Provider:        strings.ToLower(strings.TrimSpace(v.GetString("BILLING_PROVIDER"))),
			ProviderTimeout: v.GetDuration("BILLING_PROVIDER_TIMEOUT"),
			TestMode:        v.GetBool("BILLING_TEST_MODE"),
			Currency:        strings.ToUpper(strings.TrimSpace(v.GetString("BILLING_CURRENCY"))),
			PublicBaseURL:   strings.TrimRight(strings.TrimSpace(v.GetString("PUBLIC_BASE_URL")), "/"),
		},
		AI: AIConfig{
			OpenAIBaseURL:    strings.TrimRight(strings.TrimSpace(v.GetString("AI_OPENAI_BASE_URL")), "/"),
			AnthropicBaseURL: strings.TrimRight(strings.TrimSpace(v.GetString("AI_ANTHROPIC_BASE_URL")), "/"),
			RequestTimeout:   v.GetDuration("AI_REQUEST_TIMEOUT"),
		},
		Vault: VaultConfig{
			AESKey: v.GetString("ENCRYPTION_KEY"),
		},
		Webhook: WebhookConfig{
			Secret: v.GetString("WEBHOOK_SECRET"),
		},
		Scheduler: SchedulerConfig{
			Enabled:              v.GetBool("SCHEDULER_ENABLED"),
			SyncSpec:             strings.TrimSpace(v.GetString("SCHEDULER_SYNC_SPEC")),
			PendingGrace:         v.GetDuration("SCHEDULER_PENDING_GRACE"),
			RetentionSpec:        strings.TrimSpace(v.GetString("SCHEDULER_RETENTION_SPEC")),
			WebhookRetentionDays: v.GetInt("WEBHOOK_RETENTION_DAYS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at wiring time.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("%w: unsupported DB_DRIVER %q", ErrInvalidConfig, c.Database.Driver)
	}
	switch c.Usage.Backend {
	case "database", "redis":
	default:
		return fmt.Errorf("%w: unsupported USAGE_BACKEND %q", ErrInvalidConfig, c.Usage.Backend)
	}
	if _, err := c.Usage.Location(); err != nil {
		return fmt.Errorf("%w: USAGE_PERIOD_TIMEZONE: %v", ErrInvalidConfig, err)
	}
	// The sandbox keeps charges in process memory. After a restart every
	// sync would find no active charge and downgrade paying shops.
	if c.App.IsProduction() && c.Billing.Provider == SandboxProvider {
		return fmt.Errorf("%w: BILLING_PROVIDER=%s is not allowed in production", ErrInvalidConfig, SandboxProvider)
	}
	if c.Billing.ProviderTimeout <= 0 {
		return fmt.Errorf("%w: BILLING_PROVIDER_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.AI.RequestTimeout <= 0 {
		return fmt.Errorf("%w: AI_REQUEST_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.Scheduler.PendingGrace < 0 {
		return fmt.Errorf("%w: SCHEDULER_PENDING_GRACE must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ChargesInTestMode reports whether external charges are created as test charges.
func (c Config) ChargesInTestMode() bool {
	return c.Billing.TestMode || !c.App.IsProduction()
}
