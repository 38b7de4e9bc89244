package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port     string
	Env      string
	LogLevel string
	RedisURL string

	// Respoke application credentials and endpoints
	RespokeAppID     string
	RespokeAppSecret string
	RespokeBaseURL   string
	RespokeSocketURL string
	TokenTTL         int // seconds

	// Bot identity
	BotEndpoint string   // endpoint the webhook is registered for
	BotGroups   []string // groups the bot connection joins at startup
	PeopleGroup string   // group receiving presence announcements

	OutboxSize int

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		RespokeAppID:     os.Getenv("RESPOKE_APP_ID"),
		RespokeAppSecret: os.Getenv("RESPOKE_APP_SECRET"),
		RespokeBaseURL:   strings.TrimRight(getEnv("RESPOKE_BASE_URL", "https://api-st.respoke.io"), "/"),
		RespokeSocketURL: os.Getenv("RESPOKE_SOCKET_URL"),
		TokenTTL:         getEnvInt("TOKEN_TTL", 86400),
		BotEndpoint:      getEnv("BOT_ENDPOINT", "application"),
		BotGroups:        splitList(getEnv("BOT_GROUPS", "robot")),
		PeopleGroup:      getEnv("PEOPLE_GROUP", "people"),
		OutboxSize:       getEnvInt("OUTBOX_SIZE", 256),
	}

	if cfg.RespokeSocketURL == "" {
		cfg.RespokeSocketURL = socketURL(cfg.RespokeBaseURL)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
		if cfg.IsDevelopment() {
			cfg.LogLevel = "debug"
		}
	}

	// Parse whitelist (comma-separated IPs or CIDRs)
	cfg.RateLimitWhitelist = splitList(os.Getenv("RATE_LIMIT_WHITELIST"))

	// In production, require Respoke credentials
	if cfg.Env == "production" {
		if cfg.RespokeAppID == "" {
			panic("RESPOKE_APP_ID is required in production")
		}
		if cfg.RespokeAppSecret == "" {
			panic("RESPOKE_APP_SECRET is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// HasRespoke reports whether Respoke credentials are configured.
func (c *Config) HasRespoke() bool {
	return c.RespokeAppID != "" && c.RespokeAppSecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

// socketURL maps an http(s) base URL onto its ws(s) equivalent.
func socketURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	}
	return baseURL
}
