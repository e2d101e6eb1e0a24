package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"rolecall/internal/assignqueue"
	"rolecall/internal/storage"
	logx "rolecall/pkg/logx"
)

type Config struct {
	Discord     DiscordConfig     `json:"discord"`
	Logging     LoggingConfig     `json:"logging,omitempty"`
	Storage     StorageConfig     `json:"storage,omitempty"`
	AssignQueue AssignQueueConfig `json:"assign_queue,omitempty"`
	Reconcile   ReconcileConfig   `json:"reconcile,omitempty"`
}

// DiscordConfig identifies the bot and the single guild it manages.
//
// Token normally comes from the DISCORD_TOKEN environment variable rather
// than the file; ROLECALL_GUILD_ID overrides GuildID when set.
type DiscordConfig struct {
	Token   string `json:"token,omitempty"`
	GuildID string `json:"guild_id"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console *bool         `json:"console,omitempty"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

func (c LoggingConfig) ToLogx() logx.Config {
	console := true
	if c.Console != nil {
		console = *c.Console
	}
	return logx.Config{
		Level:   c.Level,
		Console: console,
		File:    logx.FileConfig{Enabled: c.File.Enabled, Path: c.File.Path},
	}
}

type StorageConfig struct {
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path,omitempty"`

	// BusyTimeout is a Go duration string (e.g. "500ms"). SQLite only.
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

func (c StorageConfig) ToStorage() (storage.Config, error) {
	out := storage.Config{Driver: c.Driver, Path: c.Path}
	if out.Driver == "" {
		out.Driver = "sqlite"
	}
	if out.Path == "" && strings.EqualFold(out.Driver, "sqlite") {
		out.Path = "./data/rolecall.db"
	}
	if raw := strings.TrimSpace(c.BusyTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return storage.Config{}, fmt.Errorf("storage.busy_timeout: %w", err)
		}
		out.BusyTimeout = d
	}
	return out, nil
}

type AssignQueueConfig struct {
	QueueSize  int `json:"queue_size,omitempty"`
	RatePerSec int `json:"rate_per_sec,omitempty"`
	RetryMax   int `json:"retry_max,omitempty"`
}

func (c AssignQueueConfig) ToQueue() assignqueue.Config {
	return assignqueue.Config{
		QueueSize:  c.QueueSize,
		RatePerSec: c.RatePerSec,
		RetryMax:   c.RetryMax,
	}
}

// ReconcileConfig controls the periodic sweep that re-runs the startup
// reconciliation pass while the process stays up.
type ReconcileConfig struct {
	// Resweep is a robfig/cron spec ("@every 6h", "0 4 * * *").
	// Empty disables the sweep; the startup pass always runs.
	Resweep string `json:"resweep,omitempty"`
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Discord.Token) == "" {
		return errors.New("discord.token is required (set DISCORD_TOKEN)")
	}
	if strings.TrimSpace(c.Discord.GuildID) == "" {
		return errors.New("discord.guild_id is required (or set ROLECALL_GUILD_ID)")
	}
	return nil
}
