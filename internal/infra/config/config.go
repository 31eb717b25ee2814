package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig is the process-wide configuration injected into each component at
// construction. Defaults live in setDefaults; every value can be overridden
// through SECURTICKET_-prefixed environment variables.
type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Security  SecuritySettings  `mapstructure:"security"`
	Booking   BookingSettings   `mapstructure:"booking"`
	Payment   PaymentSettings   `mapstructure:"payment"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name           string   `mapstructure:"name"`
	Env            string   `mapstructure:"env"`
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the Redis connection backing the login rate limit.
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// KafkaSettings configures the audit stream producer. Empty brokers switch the
// stream to a log-backed stub.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

type JWTSettings struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// SecuritySettings carries the lockout policy and password history knobs.
type SecuritySettings struct {
	LockThreshold        int           `mapstructure:"lock_threshold"`
	LockDuration         time.Duration `mapstructure:"lock_duration"`
	PasswordHistoryDepth int           `mapstructure:"password_history_depth"`
}

// BookingSettings tunes the booking reference generator.
type BookingSettings struct {
	ReferenceLength int `mapstructure:"reference_length"`
}

// PaymentSettings configures the payment provider client and webhook checks.
type PaymentSettings struct {
	BaseURL          string        `mapstructure:"base_url"`
	SecretKey        string        `mapstructure:"secret_key"`
	WebhookSecret    string        `mapstructure:"webhook_secret"`
	Currency         string        `mapstructure:"currency"`
	WebhookTolerance time.Duration `mapstructure:"webhook_tolerance"`
}

// RateLimitSettings configures the sliding-window limit on the login endpoint.
type RateLimitSettings struct {
	LoginWindow      time.Duration `mapstructure:"login_window"`
	LoginMaxAttempts int           `mapstructure:"login_max_attempts"`
}

type TelemetrySettings struct {
	Namespace string `mapstructure:"namespace"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("SECURTICKET")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.allowed_origins",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"jwt.secret",
		"jwt.access_token_ttl",
		"security.lock_threshold",
		"security.lock_duration",
		"security.password_history_depth",
		"booking.reference_length",
		"payment.base_url",
		"payment.secret_key",
		"payment.webhook_secret",
		"payment.currency",
		"payment.webhook_tolerance",
		"rate_limit.login_window",
		"rate_limit.login_max_attempts",
		"telemetry.namespace",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Security.LockThreshold <= 0 {
		return fmt.Errorf("security.lock_threshold must be positive")
	}
	if c.Security.LockDuration <= 0 {
		return fmt.Errorf("security.lock_duration must be positive")
	}
	if c.Security.PasswordHistoryDepth <= 0 {
		return fmt.Errorf("security.password_history_depth must be positive")
	}
	if c.Booking.ReferenceLength < 6 {
		return fmt.Errorf("booking.reference_length must be at least 6")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "securticket")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.allowed_origins", []string{"*"})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "securticket")
	v.SetDefault("postgres.password", "securticket")
	v.SetDefault("postgres.database", "securticket")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", time.Hour)
	v.SetDefault("postgres.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("postgres.health_check_period", time.Minute)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.topic_prefix", "securticket")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_token_ttl", 15*time.Minute)

	v.SetDefault("security.lock_threshold", 5)
	v.SetDefault("security.lock_duration", 30*time.Minute)
	v.SetDefault("security.password_history_depth", 5)

	v.SetDefault("booking.reference_length", 8)

	v.SetDefault("payment.base_url", "https://api.stripe.com")
	v.SetDefault("payment.currency", "usd")
	v.SetDefault("payment.webhook_tolerance", 5*time.Minute)

	v.SetDefault("rate_limit.login_window", 15*time.Minute)
	v.SetDefault("rate_limit.login_max_attempts", 5)

	v.SetDefault("telemetry.namespace", "securticket")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}
