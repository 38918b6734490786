package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultGoodbyeMessage = `Hi {{.Username}}, you have been removed from the server because your account was not authenticated within {{.TimeoutHours}} hours.
You are welcome to rejoin at any time and complete authentication.`

type Config struct {
	// Application
	AppName string
	AppEnv  string
	AppURL  string // Base URL for onboarding links and the SSO callback
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	SessionSecret   string
	SessionExpiry   time.Duration
	AdminAPIKeyHash string // bcrypt hash of the admin API bearer key
	RateLimitPerMin int
	RateLimitBurst  int

	// Discord
	DiscordBotToken    string
	DiscordGuildID     int64
	AdminRoleIDs       []int64
	AuthenticatedRoles []int64
	KickLogChannelID   int64

	// Onboarding
	TokenTTL                time.Duration
	TokenRetention          time.Duration
	MaxRequestsPerDay       int
	BypassEmailVerification bool

	// Auto-kick
	AutoKickEnabled      bool
	AutoKickTimeout      time.Duration
	RemindersEnabled     bool
	ReminderInterval     time.Duration
	SkipOverdueReminders bool
	GoodbyeMessage       string
	SweepSchedule        string // cron spec
	PurgeSchedule        string // cron spec

	// SSO (EVE Online by default)
	SSOClientID     string
	SSOClientSecret string
	SSOAuthURL      string
	SSOTokenURL     string
	SSOVerifyURL    string
	SSOScopes       []string

	// Email (kick log copies, optional)
	EmailFrom    string
	ResendAPIKey string
	KickLogEmail string

	// Observability (optional)
	SentryDSN string

	// Storage (S3-compatible, optional: archive of purged schedules)
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName: envString("APP_NAME", "Discord Onboarding"),
		AppEnv:  envRequired("APP_ENV"),                         // Required: 'development' or 'production'
		AppURL:  strings.TrimRight(envRequired("APP_URL"), "/"), // Required: base URL for onboarding links
		Port:    envString("PORT", "8090"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/onboarding.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_time_format=sqlite"),

		// Security
		SessionSecret:   envRequired("SESSION_SECRET"),
		SessionExpiry:   envDuration("SESSION_EXPIRY", 15*time.Minute),
		AdminAPIKeyHash: envString("ADMIN_API_KEY_HASH", ""),
		RateLimitPerMin: envInt("RATE_LIMIT_PER_MINUTE", 30),
		RateLimitBurst:  envInt("RATE_LIMIT_BURST", 10),

		// Discord
		DiscordBotToken:    envString("DISCORD_BOT_TOKEN", ""),
		DiscordGuildID:     envInt64("DISCORD_GUILD_ID", 0),
		AdminRoleIDs:       envInt64List("DISCORD_ONBOARDING_ADMIN_ROLES"),
		AuthenticatedRoles: envInt64List("DISCORD_ONBOARDING_AUTHENTICATED_ROLES"),
		KickLogChannelID:   envInt64("DISCORD_ONBOARDING_KICK_LOG_CHANNEL", 0),

		// Onboarding
		TokenTTL:                time.Duration(envInt("DISCORD_ONBOARDING_TOKEN_EXPIRY", 3600)) * time.Second,
		TokenRetention:          envDuration("DISCORD_ONBOARDING_TOKEN_RETENTION", 24*time.Hour),
		MaxRequestsPerDay:       envInt("DISCORD_ONBOARDING_MAX_REQUESTS_PER_DAY", 5),
		BypassEmailVerification: envBool("DISCORD_ONBOARDING_BYPASS_EMAIL_VERIFICATION", false),

		// Auto-kick
		AutoKickEnabled:      envBool("DISCORD_ONBOARDING_AUTO_KICK_ENABLED", false),
		AutoKickTimeout:      time.Duration(envInt("DISCORD_ONBOARDING_AUTO_KICK_TIMEOUT_HOURS", 168)) * time.Hour,
		RemindersEnabled:     envBool("DISCORD_ONBOARDING_REMINDERS_ENABLED", true),
		ReminderInterval:     time.Duration(envInt("DISCORD_ONBOARDING_REMINDER_INTERVAL_HOURS", 48)) * time.Hour,
		SkipOverdueReminders: envBool("DISCORD_ONBOARDING_SKIP_OVERDUE_REMINDERS", false),
		GoodbyeMessage:       envString("DISCORD_ONBOARDING_GOODBYE_MESSAGE", defaultGoodbyeMessage),
		SweepSchedule:        envString("DISCORD_ONBOARDING_SWEEP_SCHEDULE", "*/15 * * * *"),
		PurgeSchedule:        envString("DISCORD_ONBOARDING_PURGE_SCHEDULE", "0 2 * * *"),

		// SSO
		SSOClientID:     envString("SSO_CLIENT_ID", ""),
		SSOClientSecret: envString("SSO_CLIENT_SECRET", ""),
		SSOAuthURL:      envString("SSO_AUTH_URL", "https://login.eveonline.com/v2/oauth/authorize"),
		SSOTokenURL:     envString("SSO_TOKEN_URL", "https://login.eveonline.com/v2/oauth/token"),
		SSOVerifyURL:    envString("SSO_VERIFY_URL", "https://login.eveonline.com/oauth/verify"),
		SSOScopes:       envList("SSO_SCOPES"),

		// Email
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),
		KickLogEmail: envString("KICK_LOG_EMAIL", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage
		S3Region:    envString("S3_REGION", ""),
		S3Bucket:    envString("S3_BUCKET", ""),
		S3AccessKey: envString("S3_ACCESS_KEY", ""),
		S3SecretKey: envString("S3_SECRET_KEY", ""),
		S3Endpoint:  envString("S3_ENDPOINT", ""),
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures the services the onboarding flow depends on are configured.
// Development allows running the web side without a bot or SSO credentials.
func validateProduction(cfg *Config) {
	if len(cfg.SessionSecret) < 32 {
		slog.Error("production deployment requires SESSION_SECRET of at least 32 characters")
		os.Exit(1)
	}
	if cfg.DiscordBotToken == "" {
		slog.Error("production deployment requires DISCORD_BOT_TOKEN")
		os.Exit(1)
	}
	if cfg.SSOClientID == "" || cfg.SSOClientSecret == "" {
		slog.Error("production deployment requires SSO_CLIENT_ID and SSO_CLIENT_SECRET")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func envInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("config invalid int64, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

// envInt64List parses a comma separated list of snowflake ids, skipping invalid entries.
func envInt64List(key string) []int64 {
	var ids []int64
	for _, part := range envList(key) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			slog.Warn("config invalid id in list, skipping", "key", key, "value", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// SSOEnabled reports whether SSO credentials are present.
func (c *Config) SSOEnabled() bool {
	return c.SSOClientID != "" && c.SSOClientSecret != ""
}

// S3Enabled reports whether the schedule archive bucket is configured.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// OnboardingURL builds the public link for a token value.
func (c *Config) OnboardingURL(tokenValue string) string {
	return c.AppURL + "/onboarding/start/" + tokenValue
}

// Sanitized returns a copy of the config with only public/safe fields.
// All secrets, credentials, and sensitive data are excluded.
// Safe to expose in ctx and templates.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:  c.AppName,
		AppEnv:   c.AppEnv,
		AppURL:   c.AppURL,
		Port:     c.Port,
		TokenTTL: c.TokenTTL,
	}
}
