package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Agent  AgentConfig  `yaml:"agent"`
	Store  StoreConfig  `yaml:"store"`
	Chat   ChatConfig   `yaml:"chat"`
	Reaper ReaperConfig `yaml:"reaper"`
	Logger LoggerConfig `yaml:"logger"`
	Tracer TracerConfig `yaml:"tracer"`
}

// AgentConfig holds upstream coding-agent endpoint settings.
// Duration fields are strings ("30s", "300ms") parsed with time.ParseDuration.
type AgentConfig struct {
	URL           string        `yaml:"url"`
	ConnTimeout   string        `yaml:"conn_timeout"`   // default "30s"
	HeaderTimeout string        `yaml:"header_timeout"` // default "60s"
	Breaker       BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker around the agent endpoint.
type BreakerConfig struct {
	MaxFailures uint32 `yaml:"max_failures"`
	Timeout     string `yaml:"timeout"`
	Interval    string `yaml:"interval"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Path string `yaml:"path"` // SQLite database file
}

// ChatConfig holds chat service settings.
type ChatConfig struct {
	Debounce       string `yaml:"debounce"` // debounced-save window, default "300ms"
	RequestsPerMin int    `yaml:"requests_per_min"`
	Burst          int    `yaml:"burst"`
}

// ReaperConfig holds stale-message sweep settings.
type ReaperConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron spec, default "@every 5m"
	MaxAge   string `yaml:"max_age"`  // default "10m"
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// TracerConfig holds OpenTelemetry settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout or noop
}

// Default returns the configuration used when no file is provided.
func Default() Config {
	return Config{
		Agent: AgentConfig{
			URL:           "http://localhost:8787/api/vibe-coding/stream",
			ConnTimeout:   "30s",
			HeaderTimeout: "60s",
		},
		Store: StoreConfig{Path: "vibedesk.db"},
		Chat: ChatConfig{
			Debounce:       "300ms",
			RequestsPerMin: 20,
			Burst:          5,
		},
		Reaper: ReaperConfig{
			Enabled:  true,
			Schedule: "@every 5m",
			MaxAge:   "10m",
		},
		Logger: LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
		Tracer: TracerConfig{Enabled: false, Exporter: "noop"},
	}
}

// Load reads the YAML file at path on top of defaults. An empty path returns
// defaults. VIBEDESK_AGENT_URL overrides the agent endpoint in either case.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if url := os.Getenv("VIBEDESK_AGENT_URL"); url != "" {
		cfg.Agent.URL = url
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks fields that would otherwise fail far from their source.
func (c Config) Validate() error {
	if c.Agent.URL == "" {
		return fmt.Errorf("agent.url must not be empty")
	}
	for name, v := range map[string]string{
		"agent.conn_timeout":     c.Agent.ConnTimeout,
		"agent.header_timeout":   c.Agent.HeaderTimeout,
		"agent.breaker.timeout":  c.Agent.Breaker.Timeout,
		"agent.breaker.interval": c.Agent.Breaker.Interval,
		"chat.debounce":          c.Chat.Debounce,
		"reaper.max_age":         c.Reaper.MaxAge,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// ParseDuration parses s, falling back to def when s is empty or invalid.
func ParseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
