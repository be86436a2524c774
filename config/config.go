package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	aws_pkg "github.com/dimz119/project-saeum/pkg/aws"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the API.
type Config struct {
	Port    string
	AppEnv  string
	Service string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	StripeSecretKey      string
	StripeWebhookSecret  string
	StripePublishableKey string
	FrontendURL          string

	// Checkout pricing
	Currency              string
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal

	RedisURL        string
	SessionLockTTL  time.Duration
	SessionLockWait time.Duration

	JWTSecret           string
	TrustGatewayHeaders bool
	AllowedOrigins      []string
	RateLimitPerMinute  int

	S3Bucket          string
	S3UsePathStyle    bool
	UploadMaxBytes    int64
	PresignExpiry     time.Duration
	OrderSNSTopicARN  string
	StripeEventsQueue string

	CloudWatchEnabled   bool
	CloudWatchNamespace string
	CloudWatchLogGroup  string
	AWSUseSecrets       bool
}

// LoadConfig reads configuration from a .env file (if any) and the environment,
// with an optional Secrets Manager override for credentials.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		AppEnv:  getEnv("APP_ENV", "development"),
		Service: getEnv("SERVICE_NAME", "saeum-api"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "Asia/Seoul"),

		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePublishableKey: os.Getenv("STRIPE_PUBLISHABLE_KEY"),
		FrontendURL:          strings.TrimSuffix(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),

		Currency: strings.ToLower(getEnv("CURRENCY", "krw")),

		RedisURL: os.Getenv("REDIS_URL"),

		JWTSecret:           strings.TrimSpace(os.Getenv("JWT_SECRET")),
		TrustGatewayHeaders: getBool("TRUST_GATEWAY_HEADERS", false),
		AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3UsePathStyle:    getBool("S3_USE_PATH_STYLE", aws_pkg.EndpointOverride() != ""),
		OrderSNSTopicARN:  os.Getenv("ORDER_SNS_TOPIC_ARN"),
		StripeEventsQueue: os.Getenv("STRIPE_EVENTS_QUEUE_URL"),

		CloudWatchEnabled:   getBool("CLOUDWATCH_ENABLED", false),
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "Saeum"),
		CloudWatchLogGroup:  getEnv("CLOUDWATCH_LOG_GROUP", "/saeum/api"),
		AWSUseSecrets:       getBool("AWS_USE_SECRETS", false),
	}

	var err error
	if cfg.ShippingFee, err = getDecimal("SHIPPING_FEE", "3000"); err != nil {
		return nil, err
	}
	if cfg.FreeShippingThreshold, err = getDecimal("FREE_SHIPPING_THRESHOLD", "50000"); err != nil {
		return nil, err
	}
	if cfg.SessionLockTTL, err = getDuration("SESSION_LOCK_TTL", "30s"); err != nil {
		return nil, err
	}
	if cfg.SessionLockWait, err = getDuration("SESSION_LOCK_WAIT", "5s"); err != nil {
		return nil, err
	}
	if cfg.PresignExpiry, err = getDuration("PRESIGN_EXPIRY", "15m"); err != nil {
		return nil, err
	}
	maxBytes, err := strconv.ParseInt(getEnv("UPLOAD_MAX_BYTES", "10485760"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_BYTES: %w", err)
	}
	cfg.UploadMaxBytes = maxBytes
	if cfg.RateLimitPerMinute, err = strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "120")); err != nil || cfg.RateLimitPerMinute <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE")
	}

	// Override credentials from Secrets Manager when running on AWS
	if cfg.AWSUseSecrets {
		if err := cfg.loadSecrets(context.Background()); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports missing database settings and invalid pricing. It is all
// the migrate and seed commands need.
func (c *Config) Validate() error {
	if err := requireSet(
		"POSTGRES_USER", c.PostgresUser,
		"POSTGRES_PASSWORD", c.PostgresPassword,
		"POSTGRES_DB", c.PostgresDB,
	); err != nil {
		return err
	}
	if c.ShippingFee.IsNegative() || c.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("shipping fee and free shipping threshold must not be negative")
	}
	return nil
}

// ValidateServe additionally requires what the HTTP server uses: Stripe
// credentials and a way to authenticate callers.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := requireSet(
		"STRIPE_SECRET_KEY", c.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET", c.StripeWebhookSecret,
	); err != nil {
		return err
	}
	if c.JWTSecret == "" && !c.TrustGatewayHeaders {
		return fmt.Errorf("JWT_SECRET is required unless TRUST_GATEWAY_HEADERS=true")
	}
	return nil
}

// requireSet takes key/value pairs and names every key whose value is empty.
func requireSet(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone,
	)
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) loadSecrets(ctx context.Context) error {
	awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
	if err != nil {
		return err
	}
	sm := aws_pkg.NewSecretsClient(awsCfg)

	if m, err := sm.GetSecretJSON(ctx, getEnv("DB_SECRET_NAME", "saeum/DB_CREDENTIALS")); err == nil {
		c.applyDBSecret(m)
	} else {
		return fmt.Errorf("load database secret: %w", err)
	}

	if m, err := sm.GetSecretJSON(ctx, getEnv("STRIPE_SECRET_NAME", "saeum/STRIPE")); err == nil {
		setIfPresent(m, &c.StripeSecretKey, "STRIPE_SECRET_KEY")
		setIfPresent(m, &c.StripeWebhookSecret, "STRIPE_WEBHOOK_SECRET")
		setIfPresent(m, &c.StripePublishableKey, "STRIPE_PUBLISHABLE_KEY")
	} else {
		return fmt.Errorf("load stripe secret: %w", err)
	}
	return nil
}

// applyDBSecret accepts both the shop's POSTGRES_* keys and the keys of an
// RDS managed secret.
func (c *Config) applyDBSecret(m map[string]string) {
	setIfPresent(m, &c.PostgresUser, "POSTGRES_USER", "username")
	setIfPresent(m, &c.PostgresPassword, "POSTGRES_PASSWORD", "password")
	setIfPresent(m, &c.PostgresDB, "POSTGRES_DB", "dbname")
	setIfPresent(m, &c.PostgresHost, "POSTGRES_HOST", "host")
	setIfPresent(m, &c.PostgresPort, "POSTGRES_PORT", "port")
}

// setIfPresent stores the first non-empty value among keys.
func setIfPresent(m map[string]string, dst *string, keys ...string) {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != "" {
			*dst = v
			return
		}
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDecimal(key, fallback string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSuffix(strings.TrimSpace(part), "/"); p != "" {
			out = append(out, p)
		}
	}
	return out
}
