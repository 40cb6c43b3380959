package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model. It captures the monitored
// account, polling cadence, optional range-count defaults, credentials, and
// storage/metrics wiring.
type Config struct {
	Account     AccountConfig     `yaml:"account"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Poll        PollConfig        `yaml:"poll"`
	Range       RangeConfig       `yaml:"range"`
	Simulation  SimulationConfig  `yaml:"simulation"`
	Storage     StorageConfig     `yaml:"storage"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type AccountConfig struct {
	// Handle of the account to monitor, without the leading @.
	Handle string `yaml:"handle"`
}

type CredentialsConfig struct {
	// X/Twitter API bearer token. If empty, read from env X_BEARER_TOKEN.
	// Absence of a token selects the simulated data source.
	BearerToken string `yaml:"bearerToken"`
}

type PollConfig struct {
	// Seconds between polls. Values below 5 are raised to 5.
	IntervalSeconds int `yaml:"intervalSeconds"`
	// How many recent posts to fetch per poll.
	RecentLimit int `yaml:"recentLimit"`
	// Minutes between account-info refreshes during polling.
	AccountRefreshMinutes int `yaml:"accountRefreshMinutes"`
}

type RangeConfig struct {
	// Optional default range bounds, e.g. "2026-01-26 09:00".
	Start string `yaml:"start"`
	End   string `yaml:"end"`
	// Minutes between automatic re-counts of the configured range while
	// watching. Zero disables the refresh.
	RefreshMinutes int `yaml:"refreshMinutes"`
}

type SimulationConfig struct {
	Seed           int64 `yaml:"seed"`
	HistoryLength  int   `yaml:"historyLength"`
	CadenceMinutes int   `yaml:"cadenceMinutes"`
}

type StorageConfig struct {
	// Path of the sqlite post archive. Empty disables archiving.
	DBPath string `yaml:"dbPath"`
}

type MetricsConfig struct {
	// Listen address for /metrics, e.g. ":9090". Empty disables the server.
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Account:     AccountConfig{Handle: "demo"},
		Credentials: CredentialsConfig{BearerToken: ""},
		Poll:        PollConfig{IntervalSeconds: 60, RecentLimit: 10, AccountRefreshMinutes: 5},
		Range:       RangeConfig{RefreshMinutes: 10},
		Simulation:  SimulationConfig{Seed: 42, HistoryLength: 480, CadenceMinutes: 40},
		Storage:     StorageConfig{DBPath: "./postwatch.db"},
		Metrics:     MetricsConfig{Addr: ""},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Credentials.BearerToken == "" {
		c.Credentials.BearerToken = os.Getenv("X_BEARER_TOKEN")
	}
	if c.Account.Handle == "" {
		c.Account.Handle = os.Getenv("MONITOR_HANDLE")
	}
}

// Normalize clamps values into their supported ranges.
func (c *Config) Normalize() {
	if c.Poll.IntervalSeconds < 5 {
		c.Poll.IntervalSeconds = 5
	}
	if c.Poll.RecentLimit < 5 {
		c.Poll.RecentLimit = 5
	}
	if c.Poll.RecentLimit > 100 {
		c.Poll.RecentLimit = 100
	}
	if c.Poll.AccountRefreshMinutes <= 0 {
		c.Poll.AccountRefreshMinutes = 5
	}
	if c.Simulation.HistoryLength <= 0 {
		c.Simulation.HistoryLength = 480
	}
	if c.Simulation.CadenceMinutes <= 0 {
		c.Simulation.CadenceMinutes = 40
	}
	c.Account.Handle = strings.TrimPrefix(strings.TrimSpace(c.Account.Handle), "@")
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	cfg.Normalize()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

// ParseTime parses a range bound in local time. Accepts "2006-01-02 15:04"
// with optional seconds, a T separator, or RFC3339.
func ParseTime(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, errors.New("empty time")
	}
	normalized := strings.Replace(v, "T", " ", 1)
	for _, layout := range timeLayouts[:2] {
		if t, err := time.ParseInLocation(layout, normalized, time.Local); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
