package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Config holds all atlas configuration.
type Config struct {
	General    GeneralConfig     `toml:"general" mapstructure:"general"`
	Rules      RulesConfig       `toml:"rules" mapstructure:"rules"`
	Daemon     DaemonConfig      `toml:"daemon" mapstructure:"daemon"`
	Inbox      InboxConfig       `toml:"inbox" mapstructure:"inbox"`
	Appearance AppearanceConfig  `toml:"appearance" mapstructure:"appearance"`
	Categories CategoryOverrides `toml:"categories" mapstructure:"categories"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DataDir  string `toml:"data_dir,omitempty" mapstructure:"data_dir"`
	Currency string `toml:"currency" mapstructure:"currency"`
}

// RulesConfig tunes the rules engine.
type RulesConfig struct {
	// MovementMatchingDays overrides the document setting when > 0.
	MovementMatchingDays  int    `toml:"movement_matching_days" mapstructure:"movement_matching_days"`
	PredictionHorizonDays int    `toml:"prediction_horizon_days" mapstructure:"prediction_horizon_days"`
	RevisionAlertDays     int    `toml:"revision_alert_days" mapstructure:"revision_alert_days"`
	DedupeAlerts          bool   `toml:"dedupe_alerts" mapstructure:"dedupe_alerts"`
	StartupDelay          string `toml:"startup_delay" mapstructure:"startup_delay"`
}

// DefaultStartupDelay is how long the daemon and the dashboard wait before
// the first automatic rules run.
const DefaultStartupDelay = 1500 * time.Millisecond

// Delay parses StartupDelay, falling back to the default when it is empty or
// malformed. "0" disables the automatic run.
func (r RulesConfig) Delay() time.Duration {
	if strings.TrimSpace(r.StartupDelay) == "" {
		return DefaultStartupDelay
	}
	d, err := time.ParseDuration(r.StartupDelay)
	if err != nil || d < 0 {
		return DefaultStartupDelay
	}
	return d
}

// DaemonConfig holds HTTP daemon settings.
type DaemonConfig struct {
	Addr         string `toml:"addr" mapstructure:"addr"`
	EventsBuffer int    `toml:"events_buffer" mapstructure:"events_buffer"`
}

// InboxConfig holds the watched invoice directory.
type InboxConfig struct {
	Dir string `toml:"dir,omitempty" mapstructure:"dir"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme" mapstructure:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			Currency: "EUR",
		},
		Rules: RulesConfig{
			PredictionHorizonDays: 90,
			RevisionAlertDays:     30,
			StartupDelay:          "1.5s",
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8787",
			EventsBuffer: 200,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "atlas")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "atlas")
}

// ConfigPath returns the full path to the config file. ATLAS_CONFIG
// overrides it.
func ConfigPath() string {
	if p := os.Getenv("ATLAS_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the directory holding the state database.
func DataDir(cfg Config) string {
	if cfg.General.DataDir != "" {
		return cfg.General.DataDir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "atlas")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "atlas")
}

// DBPath returns the full path to the state database.
func DBPath(cfg Config) string {
	return filepath.Join(DataDir(cfg), "atlas.db")
}

// InboxDir returns the invoice inbox directory.
func InboxDir(cfg Config) string {
	if cfg.Inbox.Dir != "" {
		return cfg.Inbox.Dir
	}
	return filepath.Join(DataDir(cfg), "inbox")
}

// Load reads the config file, returning defaults if it doesn't exist.
// Environment variables prefixed with ATLAS_ override file values, e.g.
// ATLAS_RULES_DEDUPE_ALERTS=true.
func Load() (Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetDefault("general.data_dir", def.General.DataDir)
	v.SetDefault("general.currency", def.General.Currency)
	v.SetDefault("rules.movement_matching_days", def.Rules.MovementMatchingDays)
	v.SetDefault("rules.prediction_horizon_days", def.Rules.PredictionHorizonDays)
	v.SetDefault("rules.revision_alert_days", def.Rules.RevisionAlertDays)
	v.SetDefault("rules.dedupe_alerts", def.Rules.DedupeAlerts)
	v.SetDefault("rules.startup_delay", def.Rules.StartupDelay)
	v.SetDefault("daemon.addr", def.Daemon.Addr)
	v.SetDefault("daemon.events_buffer", def.Daemon.EventsBuffer)
	v.SetDefault("inbox.dir", def.Inbox.Dir)
	v.SetDefault("appearance.theme", def.Appearance.Theme)

	v.SetConfigType("toml")
	v.SetEnvPrefix("ATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := ConfigPath()
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return def, fmt.Errorf("parsing config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return def, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return def, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
