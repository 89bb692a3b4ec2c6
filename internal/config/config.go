// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// AuthConfig holds authentication and identity provider configuration. The
// service never authenticates users itself: the auth provider (magic-link
// flow) issues JWTs whose email claim is the verified caller identity.
type AuthConfig struct {
	IssuerURL      string   // OIDC issuer URL of the auth provider
	JWKSURL        string   // Override JWKS URL (if no .well-known discovery)
	JWTSecret      string   // HS256 shared secret for local/dev JWT auth
	Audience       string   // Required JWT audience claim
	AllowedIssuers []string // Accepted issuers (defaults to [IssuerURL])
	EmailClaim     string   // JWT claim carrying the verified email (default: "email")
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != "" || a.JWKSURL != ""
}

// MailConfig holds the Resend notification settings. Notifications are
// best-effort: an empty APIKey disables delivery entirely.
type MailConfig struct {
	APIKey string // Resend API key; empty disables email delivery
	From   string // From header (default "CU Study Groups <noreply@resend.dev>")
}

// Enabled reports whether email delivery is configured.
func (m *MailConfig) Enabled() bool { return m.APIKey != "" }

// Config holds the configuration for the study groups service.
type Config struct {
	DBPath     string // path to the SQLite database file
	ListenAddr string // HTTP listen address (default ":8080")
	LogLevel   string // log level: debug, info, warn, error (default "info")
	Env        string // environment: "development" (default) or "production"

	// AllowedEmailDomains is the institutional-domain policy. Defaults to
	// columbia.edu and barnard.edu.
	AllowedEmailDomains []string

	// SweepSchedule is the cron spec for the expiration sweep
	// (default "@every 10m").
	SweepSchedule string

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	Auth AuthConfig
	Mail MailConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
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

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DBPath:        os.Getenv("DB_PATH"),
		ListenAddr:    os.Getenv("LISTEN_ADDR"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		Env:           os.Getenv("ENV"),
		SweepSchedule: os.Getenv("SWEEP_SCHEDULE"),
	}

	if v := os.Getenv("ALLOWED_EMAIL_DOMAINS"); v != "" {
		cfg.AllowedEmailDomains = splitTrimmed(v)
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitTrimmed(v)
	}

	// Auth config
	cfg.Auth = AuthConfig{
		IssuerURL:  os.Getenv("AUTH_ISSUER_URL"),
		JWKSURL:    os.Getenv("AUTH_JWKS_URL"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		Audience:   os.Getenv("AUTH_AUDIENCE"),
		EmailClaim: os.Getenv("AUTH_EMAIL_CLAIM"),
	}
	if v := os.Getenv("AUTH_ALLOWED_ISSUERS"); v != "" {
		cfg.Auth.AllowedIssuers = splitTrimmed(v)
	}
	if cfg.Auth.EmailClaim == "" {
		cfg.Auth.EmailClaim = "email"
	}

	// Mail config
	cfg.Mail = MailConfig{
		APIKey: os.Getenv("RESEND_API_KEY"),
		From:   os.Getenv("MAIL_FROM"),
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = "CU Study Groups <noreply@resend.dev>"
	}
	if !cfg.Mail.Enabled() {
		cfg.Warnings = append(cfg.Warnings, "RESEND_API_KEY not set — email notifications disabled")
	}

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "studygroups.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = "@every 10m"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if !cfg.Auth.OIDCEnabled() && cfg.Auth.JWTSecret == "" {
		cfg.Warnings = append(cfg.Warnings, "no auth configured — organizer endpoints will reject all callers (set JWT_SECRET or AUTH_ISSUER_URL)")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if !cfg.Auth.OIDCEnabled() && cfg.Auth.JWTSecret == "" {
			return nil, fmt.Errorf("auth must be configured in production (set AUTH_ISSUER_URL, AUTH_JWKS_URL, or JWT_SECRET)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

func splitTrimmed(v string) []string {
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

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
