package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port               int
	LogLevel           string
	CORSAllowedOrigins []string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration
	RedisURL string // empty = in-memory cache

	// Observability
	OTLPEndpoint string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// Clerk
	ClerkSecretKey    string
	ClerkAPIURL       string
	ClerkJWTPublicKey string // PEM, RS256 session tokens
	ClerkIssuer       string
	JWTSecret         string // HS256 fallback for local development
	AdminEmails       []string

	// Invitations (SMTP)
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	SMTPSender    string
	PublicAppURL  string
	InvitationTTL time.Duration

	// Commission
	DefaultAgentPercentage float64
	ApprovalThreshold      float64
	CommissionTiersFile    string

	// Reminder worker
	ReminderInterval  time.Duration
	ReminderLookahead time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:               getEnvInt("PORT", 8080),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),
		RedisURL: getEnv("REDIS_URL", ""),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		ClerkSecretKey:    getEnv("CLERK_SECRET_KEY", ""),
		ClerkAPIURL:       getEnv("CLERK_API_URL", "https://api.clerk.com/v1"),
		ClerkJWTPublicKey: getEnv("CLERK_JWT_PUBLIC_KEY", ""),
		ClerkIssuer:       getEnv("CLERK_ISSUER", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		AdminEmails:       getEnvList("ADMIN_EMAILS", nil),

		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		SMTPUser:      getEnv("SMTP_USER", ""),
		SMTPPass:      getEnv("SMTP_PASS", ""),
		SMTPSender:    getEnv("SMTP_SENDER", "Agent Hub <no-reply@agenthub.local>"),
		PublicAppURL:  getEnv("PUBLIC_APP_URL", "http://localhost:5173"),
		InvitationTTL: getEnvDuration("INVITATION_TTL", 7*24*time.Hour),

		DefaultAgentPercentage: getEnvFloat("DEFAULT_AGENT_PERCENTAGE", 70),
		ApprovalThreshold:      getEnvFloat("APPROVAL_THRESHOLD", 10000),
		CommissionTiersFile:    getEnv("COMMISSION_TIERS_FILE", ""),

		ReminderInterval:  getEnvDuration("REMINDER_INTERVAL", time.Hour),
		ReminderLookahead: getEnvDuration("REMINDER_LOOKAHEAD", 72*time.Hour),
	}
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"HTTP_TIMEOUT", c.HTTPTimeout},
		{"CACHE_TTL", c.CacheTTL},
		{"INVITATION_TTL", c.InvitationTTL},
		{"REMINDER_INTERVAL", c.ReminderInterval},
		{"REMINDER_LOOKAHEAD", c.ReminderLookahead},
	}
	for _, v := range durations {
		if v.d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", v.name, v.d)
		}
	}
	if c.DefaultAgentPercentage < 0 || c.DefaultAgentPercentage > 100 {
		return fmt.Errorf("DEFAULT_AGENT_PERCENTAGE must be within 0-100, got %v", c.DefaultAgentPercentage)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
