// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// APIPrefix is the versioned route prefix every API route is mounted under.
	APIPrefix string `mapstructure:"API_PREFIX"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// DBMaxConns caps the pgx pool size; 0 keeps the pgxpool default.
	DBMaxConns int32 `mapstructure:"DB_MAX_CONNS"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// SessionPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file used to sign session cookies.
	SessionPrivateKey string `mapstructure:"SESSION_PRIVATE_KEY"`
	// SessionPublicKey is the PEM-encoded public key or path to file; used with SESSION_PRIVATE_KEY.
	SessionPublicKey string `mapstructure:"SESSION_PUBLIC_KEY"`
	// SessionIssuer is the iss claim of the session descriptor.
	SessionIssuer string `mapstructure:"SESSION_ISSUER"`
	// SessionTTLRaw is the session lifetime (e.g. "24h").
	SessionTTLRaw string `mapstructure:"SESSION_TTL"`
	// SessionCookieName is the name of the cookie carrying the session descriptor.
	SessionCookieName string `mapstructure:"SESSION_COOKIE_NAME"`
	// SessionCookieSecure sets the Secure attribute on the session cookie.
	SessionCookieSecure bool `mapstructure:"SESSION_COOKIE_SECURE"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// MFAIssuer is the issuer shown in authenticator apps.
	MFAIssuer string `mapstructure:"MFA_ISSUER"`

	// SMSLocalAPIKey is the API key for the SMS gateway.
	SMSLocalAPIKey string `mapstructure:"SMS_LOCAL_API_KEY"`
	// SMSLocalSender is the optional sender ID for the SMS gateway.
	SMSLocalSender string `mapstructure:"SMS_LOCAL_SENDER"`
	// SMSLocalBaseURL is the SMS gateway endpoint.
	SMSLocalBaseURL string `mapstructure:"SMS_LOCAL_BASE_URL"`
	// WhatsAppAPIKey is the API key for the WhatsApp gateway. Empty disables WhatsApp (registration OTPs go straight to SMS).
	WhatsAppAPIKey string `mapstructure:"WHATSAPP_API_KEY"`
	// WhatsAppBaseURL is the WhatsApp gateway endpoint.
	WhatsAppBaseURL string `mapstructure:"WHATSAPP_BASE_URL"`
	// WhatsAppTemplate is the approved template name used for OTP messages.
	WhatsAppTemplate string `mapstructure:"WHATSAPP_TEMPLATE"`
	// OTPReturnToClient when true enables dev OTP mode: no message is sent, the code is parked for GET /dev/otp.
	// Must not be true when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`

	// RedisURL enables OTP rate limiting when set (e.g. redis://localhost:6379/0).
	RedisURL string `mapstructure:"REDIS_URL"`
	// OTPSendLimit is the number of OTP sends allowed per identifier per window.
	OTPSendLimit int `mapstructure:"OTP_SEND_LIMIT"`
	// OTPVerifyLimit is the number of OTP verify attempts allowed per identifier per window.
	OTPVerifyLimit int `mapstructure:"OTP_VERIFY_LIMIT"`
	// OTPRateWindowRaw is the rate limit window (e.g. "15m").
	OTPRateWindowRaw string `mapstructure:"OTP_RATE_WINDOW"`

	// AccessPolicyFile is an optional path to a Rego module replacing the built-in access policy.
	AccessPolicyFile string `mapstructure:"ACCESS_POLICY_FILE"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the service.name resource attribute and metrics label.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Telemetry (optional). When Kafka brokers are set, auth events are also published to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for auth events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// Seed-only: phone and password of the admin user created by cmd/seed.
	SeedAdminPhone    string `mapstructure:"SEED_ADMIN_PHONE"`
	SeedAdminPassword string `mapstructure:"SEED_ADMIN_PASSWORD"`
	SeedAdminEmail    string `mapstructure:"SEED_ADMIN_EMAIL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 0)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SESSION_PRIVATE_KEY", "")
	v.SetDefault("SESSION_PUBLIC_KEY", "")
	v.SetDefault("SESSION_ISSUER", "mobitech-crm")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_COOKIE_NAME", "mobitech_session")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("MFA_ISSUER", "Mobitech CRM")
	v.SetDefault("SMS_LOCAL_API_KEY", "")
	v.SetDefault("SMS_LOCAL_SENDER", "")
	v.SetDefault("SMS_LOCAL_BASE_URL", "https://app.smslocal.in/api/smsapi")
	v.SetDefault("WHATSAPP_API_KEY", "")
	v.SetDefault("WHATSAPP_BASE_URL", "https://app.smslocal.in/api/whatsapp")
	v.SetDefault("WHATSAPP_TEMPLATE", "otp_verification")
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("OTP_SEND_LIMIT", 5)
	v.SetDefault("OTP_VERIFY_LIMIT", 10)
	v.SetDefault("OTP_RATE_WINDOW", "15m")
	v.SetDefault("ACCESS_POLICY_FILE", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "mobitech-crm")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "mobitech-auth-events")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "mobitech-telemetry-worker")
	v.SetDefault("SEED_ADMIN_PHONE", "")
	v.SetDefault("SEED_ADMIN_PASSWORD", "")
	v.SetDefault("SEED_ADMIN_EMAIL", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.APIPrefix == "" || !strings.HasPrefix(cfg.APIPrefix, "/") {
		return nil, errors.New("config: API_PREFIX must start with /")
	}
	cfg.APIPrefix = strings.TrimSuffix(cfg.APIPrefix, "/")

	if cfg.OTPReturnToClient && cfg.Env == "production" {
		return nil, errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.OTPSendLimit < 0 || cfg.OTPVerifyLimit < 0 {
		return nil, errors.New("config: OTP_SEND_LIMIT and OTP_VERIFY_LIMIT must not be negative")
	}

	if cfg.SessionCookieName == "" {
		return nil, errors.New("config: SESSION_COOKIE_NAME must be set")
	}

	return &cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

// SessionTTL parses SessionTTLRaw as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTLRaw)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// OTPRateWindow parses OTPRateWindowRaw as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) OTPRateWindow() time.Duration {
	d, err := time.ParseDuration(c.OTPRateWindowRaw)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event publishing is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
