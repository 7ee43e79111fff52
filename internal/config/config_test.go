package config

import (
	"testing"

	"github.com/sqldef/plexpg/internal/logsink"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PLEX_PG_HOST", "PLEX_PG_PORT", "PLEX_PG_DATABASE", "PLEX_PG_USER",
		"PLEX_PG_PASSWORD", "PLEX_PG_SCHEMA", "PLEX_PG_LOG_LEVEL", "PLEX_NO_SHADOW_SCAN",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()
	if cfg.PG.Host != "localhost" || cfg.PG.Port != 5432 || cfg.PG.Database != "plex" ||
		cfg.PG.User != "plex" || cfg.PG.Password != "" {
		t.Errorf("unexpected defaults: %+v", cfg.PG)
	}
	if cfg.LogLevel != logsink.LevelInfo {
		t.Errorf("expected default log level INFO, got %v", cfg.LogLevel)
	}
	if cfg.NoShadowScan {
		t.Errorf("expected PLEX_NO_SHADOW_SCAN to default to false")
	}
	if Schema() != "plex" {
		t.Errorf("expected default schema 'plex', got %q", Schema())
	}
}

func TestLoadHonoursOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PLEX_PG_HOST", "db.internal")
	t.Setenv("PLEX_PG_PORT", "6543")
	t.Setenv("PLEX_PG_LOG_LEVEL", "DEBUG")
	t.Setenv("PLEX_NO_SHADOW_SCAN", "true")
	t.Setenv("PLEX_PG_SCHEMA", "custom")

	cfg := Load()
	if cfg.PG.Host != "db.internal" || cfg.PG.Port != 6543 {
		t.Errorf("unexpected overridden PG config: %+v", cfg.PG)
	}
	if cfg.LogLevel != logsink.LevelDebug {
		t.Errorf("expected DEBUG level, got %v", cfg.LogLevel)
	}
	if !cfg.NoShadowScan {
		t.Errorf("expected PLEX_NO_SHADOW_SCAN=true to be honoured")
	}
	if Schema() != "custom" {
		t.Errorf("expected overridden schema, got %q", Schema())
	}
}

func TestLoadFallsBackOnUnparsablePort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PLEX_PG_PORT", "not-a-number")
	cfg := Load()
	if cfg.PG.Port != 5432 {
		t.Errorf("expected unparsable port to fall back to default, got %d", cfg.PG.Port)
	}
}
