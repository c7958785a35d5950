package config

import (
	"os"
	"strings"
	"time"
)

// Backend type names accepted by BACKEND.
const (
	BackendFirebase = "firebase"
	BackendLocal    = "local"
)

// Config holds all daemon configuration.
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Backend BackendConfig
	Poll    PollConfig
	JWT     JWTConfig
	Session SessionConfig
	FCM     FCMConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type LogConfig struct {
	Level string
}

// BackendConfig selects and parameterizes the storage backend. The choice
// is made once at startup; the rest of the daemon only sees the Accessor
// interface.
type BackendConfig struct {
	Type            string // "firebase" or "local"
	DatabaseURL     string
	CredentialsFile string
	SQLitePath      string
}

type PollConfig struct {
	Interval           time.Duration
	ChatSection        string
	ClanChatSection    string
	ModerationSections []string
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

// SessionConfig optionally bootstraps the daemon with an already-issued
// session token, so polling starts without waiting for a login call.
type SessionConfig struct {
	Token string
}

// FCMConfig enables mirroring popup notifications to a device via FCM when
// a device token is configured.
type FCMConfig struct {
	CredentialsFile string
	DeviceToken     string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	pollInterval, err := time.ParseDuration(getEnv("POLL_INTERVAL", "30s"))
	if err != nil {
		pollInterval = 30 * time.Second
	}

	jwtExpiry, err := time.ParseDuration(getEnv("JWT_EXPIRY", "720h"))
	if err != nil {
		jwtExpiry = 30 * 24 * time.Hour
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8090"),
			Env:  getEnv("ENV", "development"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "debug"),
		},
		Backend: BackendConfig{
			Type:            getEnv("BACKEND", BackendLocal),
			DatabaseURL:     getEnv("FIREBASE_DATABASE_URL", ""),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			SQLitePath:      getEnv("SQLITE_PATH", "./data/notifyd.db"),
		},
		Poll: PollConfig{
			Interval:           pollInterval,
			ChatSection:        getEnv("CHAT_SECTION", "chat-generale"),
			ClanChatSection:    getEnv("CLAN_CHAT_SECTION", "chat-clan"),
			ModerationSections: parseCSV(getEnv("MODERATION_SECTIONS", "proposte,eventi")),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production"),
			Expiry: jwtExpiry,
		},
		Session: SessionConfig{
			Token: getEnv("SESSION_TOKEN", ""),
		},
		FCM: FCMConfig{
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			DeviceToken:     getEnv("FCM_DEVICE_TOKEN", ""),
		},
	}, nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// getEnv gets an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// parseCSV parses a comma-separated string into a slice of strings
func parseCSV(value string) []string {
	var result []string
	for _, s := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
