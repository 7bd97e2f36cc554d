package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Config captures process configuration, read once at startup.
type Config struct {
	// Addr is the listen address.
	Addr string
	// Prefix is the URL prefix the CardDAV handler is mounted under.
	Prefix string
	// Realm is the Basic auth realm.
	Realm string
	// LogLevel is the slog level for the process.
	LogLevel slog.Level

	// SupabaseURL is the project base URL.
	SupabaseURL string
	// ServiceKey authorizes the contact fetch. An elevated key is expected:
	// the server performs its own access decision, so the fetch may bypass
	// the remote row level policies.
	ServiceKey string
	// AnonKey authorizes the GoTrue password check.
	AnonKey string
}

// FromEnv builds a Config from environment variables so main stays lean.
// Missing required variables are a fatal configuration error.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:        getenv("SUPADAV_ADDR", ":5232"),
		Prefix:      getenv("SUPADAV_PREFIX", "/carddav/"),
		Realm:       getenv("SUPADAV_REALM", "Contacts"),
		SupabaseURL: strings.TrimSuffix(os.Getenv("SUPABASE_URL"), "/"),
		ServiceKey:  os.Getenv("SUPABASE_SERVICE_KEY"),
		AnonKey:     os.Getenv("SUPABASE_ANON_KEY"),
	}

	var missing []string
	if cfg.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if cfg.ServiceKey == "" {
		missing = append(missing, "SUPABASE_SERVICE_KEY")
	}
	if cfg.AnonKey == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	switch strings.ToLower(os.Getenv("SUPADAV_LOG_LEVEL")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
