// Package config reads the PLEX_* environment variables that configure
// the remote session, logging, and startup scan behaviour (§6
// "Configuration (environment)"). Env-var parsing is named an
// out-of-scope external collaborator (spec §1), so this is a thin
// os.Getenv reader rather than a flags/config library — see DESIGN.md.
package config

import (
	"os"
	"strconv"

	"github.com/sqldef/plexpg/internal/logsink"
	"github.com/sqldef/plexpg/internal/session"
)

// Config is everything read from the environment at library load.
type Config struct {
	PG           session.Config
	LogLevel     logsink.Level
	NoShadowScan bool
}

// Load reads every recognised PLEX_* variable, applying the defaults
// named in §6.
func Load() Config {
	return Config{
		PG: session.Config{
			Host:     getenv("PLEX_PG_HOST", "localhost"),
			Port:     getenvInt("PLEX_PG_PORT", 5432),
			Database: getenv("PLEX_PG_DATABASE", "plex"),
			User:     getenv("PLEX_PG_USER", "plex"),
			Password: getenv("PLEX_PG_PASSWORD", ""),
			SSLMode:  "disable",
		},
		LogLevel:     parseLevel(getenv("PLEX_PG_LOG_LEVEL", "INFO")),
		NoShadowScan: getenvBool("PLEX_NO_SHADOW_SCAN", false),
	}
}

// Schema returns PLEX_PG_SCHEMA, defaulted to "plex" — kept separate
// from session.Config since the remote session adapter does not need
// it to connect, only the translation layer's stage 1 schema-prefix
// rewrite does.
func Schema() string {
	return getenv("PLEX_PG_SCHEMA", "plex")
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func parseLevel(s string) logsink.Level {
	switch s {
	case "ERROR":
		return logsink.LevelError
	case "DEBUG":
		return logsink.LevelDebug
	default:
		return logsink.LevelInfo
	}
}
