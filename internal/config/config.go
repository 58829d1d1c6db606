package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Mode is the environment the process runs in. It gates demo bearers,
// echoed verification codes and the DNS bypass for trusted domains.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
	ModeTest        Mode = "test"
)

// ParseMode resolves an APP_ENV value. Anything unrecognised is production.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "development", "dev":
		return ModeDevelopment
	case "test":
		return ModeTest
	default:
		return ModeProduction
	}
}

// IsProduction reports whether the process runs in production mode.
func (m Mode) IsProduction() bool { return m == ModeProduction }

// DefaultDenylistedDomains are consumer webmail providers that cannot prove
// ownership of a company domain.
var DefaultDenylistedDomains = []string{
	"gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "live.com",
	"aol.com", "icloud.com", "protonmail.com", "yandex.com", "mail.com",
	"gmx.com", "zoho.com", "fastmail.com", "tutanota.com",
}

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	Mode           Mode
	PublicBaseURL  string
	AllowedOrigins []string // CORS allowed origins

	DenylistedDomains []string
	TrustedSuffix     string

	ConsumeVerificationTokens bool

	Timeouts Timeouts

	StoreBackend   string // memory | dynamo | redis
	DynamoTableKV  string
	RedisAddr      string
	RedisPassword  string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	S3BucketName   string
	SNSTopicARN    string

	SMTP SMTP

	GrantSigningSecret  string
	AdminTokenHash      string
	AdminToken          string
	StripeWebhookSecret string
	OpenRouterAPIKey    string
	OpenRouterModel     string
	OpenRouterURL       string

	LogLevel  string
	LogFormat string

	PermanentBlocklist []string
	RateLimits         map[string]RateLimitPolicy

	Dispatch Dispatch
}

// Timeouts bounds every call to an external collaborator.
type Timeouts struct {
	DNS     time.Duration
	Email   time.Duration
	Payment time.Duration
	LLM     time.Duration
	Storage time.Duration
}

// SMTP holds outbound mail settings.
type SMTP struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
	TLS      bool
}

// Dispatch sizes the background task queue used for fire-and-forget work.
type Dispatch struct {
	Workers   int
	QueueSize int
	Rate      float64 // tasks per second, 0 disables pacing
}

// RateLimitPolicy caps requests per client address for one logical endpoint.
type RateLimitPolicy struct {
	Requests int
	Window   time.Duration
}

// DefaultRateLimits is the per-endpoint policy table. "default" is the fallback.
func DefaultRateLimits() map[string]RateLimitPolicy {
	return map[string]RateLimitPolicy{
		"verify-domain": {Requests: 5, Window: 15 * time.Minute},
		"generate-pr":   {Requests: 3, Window: time.Hour},
		"send-email":    {Requests: 10, Window: time.Hour},
		"admin":         {Requests: 10, Window: 5 * time.Minute},
		"default":       {Requests: 30, Window: time.Minute},
	}
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		Mode:           ParseMode(getEnv("APP_ENV", "production")),
		PublicBaseURL:  strings.TrimSuffix(getEnv("PUBLIC_BASE_URL", "https://presswire.ie"), "/"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),

		DenylistedDomains: getEnvList("DENYLISTED_DOMAINS", DefaultDenylistedDomains),
		TrustedSuffix:     getEnv("TRUSTED_SUFFIX", ".ie"),

		ConsumeVerificationTokens: getEnvBool("CONSUME_VERIFICATION_TOKENS", false),

		Timeouts: Timeouts{
			DNS:     getEnvDuration("DNS_TIMEOUT", 5*time.Second),
			Email:   getEnvDuration("EMAIL_TIMEOUT", 10*time.Second),
			Payment: getEnvDuration("PAYMENT_TIMEOUT", 10*time.Second),
			LLM:     getEnvDuration("LLM_TIMEOUT", 30*time.Second),
			Storage: getEnvDuration("STORAGE_TIMEOUT", 10*time.Second),
		},

		StoreBackend:   getEnv("STORE_BACKEND", "memory"),
		DynamoTableKV:  getEnv("DYNAMO_TABLE_KV", "presswire_kv"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		AWSRegion:      getEnv("AWS_REGION", "eu-west-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		S3BucketName:   getEnv("S3_BUCKET_NAME", ""),
		SNSTopicARN:    getEnv("SNS_TOPIC_ARN", ""),

		SMTP: SMTP{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			From:     getEnv("SMTP_FROM", "noreply@presswire.ie"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			TLS:      getEnvBool("SMTP_TLS", true),
		},

		GrantSigningSecret:  getEnv("GRANT_SIGNING_SECRET", ""),
		AdminTokenHash:      getEnv("ADMIN_TOKEN_HASH", ""),
		AdminToken:          getEnv("ADMIN_TOKEN", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		OpenRouterAPIKey:    getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterModel:     getEnv("OPENROUTER_MODEL", "google/gemini-2.0-flash:free"),
		OpenRouterURL:       getEnv("OPENROUTER_URL", "https://openrouter.ai/api/v1/chat/completions"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		PermanentBlocklist: getEnvList("PERMANENT_BLOCKLIST", nil),
		RateLimits:         DefaultRateLimits(),

		Dispatch: Dispatch{
			Workers:   getEnvInt("DISPATCH_WORKERS", 4),
			QueueSize: getEnvInt("DISPATCH_QUEUE_SIZE", 256),
			Rate:      getEnvFloat("DISPATCH_RATE", 5),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
