package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DatabaseURL string
	RedisURL    string

	SessionSecret       []byte
	SessionTTL          time.Duration
	SessionCookieSecure bool

	CSRFEnabled    bool
	CSRFSameOrigin bool

	AdminUser         string
	AdminPasswordHash string

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	PaymentMode          string
	PaymentWebhookSecret []byte

	PromoApplyRate float64
}

const (
	PaymentModeInstant  = "instant"
	PaymentModeCallback = "callback"
)

func LoadConfig() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}
	return Load()
}

func Load() *Config {
	return &Config{
		ServiceName: EnvDefault("SERVICE_NAME", "storefront"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		SessionSecret:       []byte(os.Getenv("SESSION_SECRET")),
		SessionTTL:          EnvDurationDefault("SESSION_TTL", 14*24*time.Hour),
		SessionCookieSecure: EnvBoolDefault("SESSION_COOKIE_SECURE", false),

		CSRFEnabled:    EnvBoolDefault("CSRF_ENABLED", true),
		CSRFSameOrigin: EnvBoolDefault("CSRF_SAME_ORIGIN", false),

		AdminUser:         os.Getenv("ADMIN_USER"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     EnvIntDefault("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     EnvDefault("MAIL_FROM", "shop@example.com"),

		PaymentMode:          strings.ToLower(EnvDefault("PAYMENT_MODE", PaymentModeInstant)),
		PaymentWebhookSecret: []byte(os.Getenv("PAYMENT_WEBHOOK_SECRET")),

		PromoApplyRate: EnvFloatDefault("PROMO_APPLY_RATE", 1),
	}
}

// Validate stops the process on settings the server cannot start without.
func (c *Config) Validate() {
	MustNonEmpty(c.DatabaseURL, "DATABASE_URL")
	MustNonEmpty(c.RedisURL, "REDIS_URL")
	MustNonEmptyBytes(c.SessionSecret, "SESSION_SECRET")

	switch c.PaymentMode {
	case PaymentModeInstant:
	case PaymentModeCallback:
		MustNonEmptyBytes(c.PaymentWebhookSecret, "PAYMENT_WEBHOOK_SECRET")
	default:
		log.Fatalf("unknown PAYMENT_MODE %q", c.PaymentMode)
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvFloatDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}
