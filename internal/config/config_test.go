package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
discord:
  guild_id: "123456789"
logging:
  level: debug
storage:
  driver: sqlite
  path: ./data/test.db
  busy_timeout: 500ms
assign_queue:
  rate_per_sec: 3
reconcile:
  resweep: "@every 6h"
`)

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.GuildID != "123456789" {
		t.Fatalf("guild_id = %q", cfg.Discord.GuildID)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging.level = %q", cfg.Logging.Level)
	}
	if cfg.AssignQueue.RatePerSec != 3 {
		t.Fatalf("rate_per_sec = %d", cfg.AssignQueue.RatePerSec)
	}
	if cfg.Reconcile.Resweep != "@every 6h" {
		t.Fatalf("resweep = %q", cfg.Reconcile.Resweep)
	}

	st, err := cfg.Storage.ToStorage()
	if err != nil {
		t.Fatalf("ToStorage: %v", err)
	}
	if st.BusyTimeout != 500*time.Millisecond {
		t.Fatalf("busy_timeout = %v", st.BusyTimeout)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
discord:
  guild_id: "1"
  shard_count: 4
`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("ROLECALL_GUILD_ID", "env-guild")

	path := writeConfig(t, "config.yaml", `
discord:
  token: file-token
  guild_id: file-guild
`)
	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Discord.Token != "env-token" {
		t.Fatalf("token = %q, want env override", cfg.Discord.Token)
	}
	if cfg.Discord.GuildID != "env-guild" {
		t.Fatalf("guild_id = %q, want env override", cfg.Discord.GuildID)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty config must not validate")
	}
	cfg.Discord.Token = "t"
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing guild id must not validate")
	}
	cfg.Discord.GuildID = "g"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestStorageDefaults(t *testing.T) {
	st, err := (StorageConfig{}).ToStorage()
	if err != nil {
		t.Fatalf("ToStorage: %v", err)
	}
	if st.Driver != "sqlite" || st.Path == "" {
		t.Fatalf("defaults = %+v", st)
	}
}

func TestLoggingDefaultsConsoleOn(t *testing.T) {
	lc := (LoggingConfig{}).ToLogx()
	if !lc.Console {
		t.Fatal("console must default to enabled")
	}
	off := false
	lc = (LoggingConfig{Console: &off}).ToLogx()
	if lc.Console {
		t.Fatal("explicit console=false must stick")
	}
}
