// Package config provides YAML-based configuration for the orchestration
// core. Configuration is loaded once at startup and treated as immutable:
// the capability registry and classifier only ever read it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level runtime configuration.
type Config struct {
	Server     ServerCfg            `yaml:"server"`
	Store      StoreCfg             `yaml:"store"`
	Interrupts InterruptCfg         `yaml:"interrupts"`
	Context    ContextCfg           `yaml:"context"`
	Executor   ExecutorCfg          `yaml:"executor"`
	EventLog   EventLogCfg          `yaml:"eventlog"`
	Domains    map[string]DomainCfg `yaml:"domains"`
}

// ServerCfg configures the HTTP surface.
type ServerCfg struct {
	Addr string `yaml:"addr"`

	// EventBuffer is the per-subscriber UI event channel capacity. Events
	// beyond capacity are dropped (degraded, not fatal).
	EventBuffer int `yaml:"event_buffer"`
}

// StoreCfg configures the SQLite checkpoint store.
type StoreCfg struct {
	Path string `yaml:"path"`
}

// InterruptCfg controls pending interrupt expiry.
type InterruptCfg struct {
	// TTL after which a pending interrupt transitions to abandoned.
	// Accepts duration strings ("15m") or raw nanosecond integers.
	TTL time.Duration `yaml:"ttl"`

	// SweepInterval is how often the expiry sweeper runs. Same forms as TTL.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// UnmarshalYAML handles both duration forms for the interrupt settings:
//   - String form: ttl: 15m
//   - Integer form: ttl: 900000000000 (nanoseconds)
func (c *InterruptCfg) UnmarshalYAML(unmarshal func(any) error) error {
	var raw struct {
		TTL           any `yaml:"ttl"`
		SweepInterval any `yaml:"sweep_interval"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	var err error
	if c.TTL, err = parseDuration(raw.TTL, c.TTL); err != nil {
		return fmt.Errorf("interrupts.ttl: %w", err)
	}
	if c.SweepInterval, err = parseDuration(raw.SweepInterval, c.SweepInterval); err != nil {
		return fmt.Errorf("interrupts.sweep_interval: %w", err)
	}
	return nil
}

// parseDuration converts a YAML scalar to a duration; a missing value keeps
// the current (default) one.
func parseDuration(value any, current time.Duration) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return current, nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", v, err)
		}
		return d, nil
	case int:
		return time.Duration(v), nil
	case int64:
		return time.Duration(v), nil
	default:
		return 0, fmt.Errorf("invalid duration value %v (want string like \"15m\" or nanoseconds)", value)
	}
}

// ContextCfg bounds the dialogue context carried across suspensions.
type ContextCfg struct {
	// MaxTokens is the token budget for a session's dialogue context before
	// oldest-first compaction kicks in.
	MaxTokens int `yaml:"max_tokens"`
}

// ExecutorCfg selects the domain executor implementation.
type ExecutorCfg struct {
	// Kind is "scripted" (deterministic playbooks, default) or "anthropic".
	Kind string `yaml:"kind"`

	// Model is the Anthropic model name when Kind is "anthropic".
	Model string `yaml:"model"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`

	// MaxIterations bounds the LLM tool loop per turn.
	MaxIterations int `yaml:"max_iterations"`
}

// EventLogCfg configures the JSONL audit trail.
type EventLogCfg struct {
	Dir string `yaml:"dir"`
}

// DomainCfg declares one domain: the tool names it is permitted to use and
// the request vocabulary the classifier routes on.
type DomainCfg struct {
	Tools    []string `yaml:"tools"`
	Keywords []string `yaml:"keywords"`
}

// ExecutorScripted and ExecutorAnthropic are the valid executor kinds.
const (
	ExecutorScripted  = "scripted"
	ExecutorAnthropic = "anthropic"
)

// Default returns the built-in configuration mirroring the demo domains.
func Default() *Config {
	return &Config{
		Server: ServerCfg{
			Addr:        ":8080",
			EventBuffer: 32,
		},
		Store: StoreCfg{
			Path: "concierge.db",
		},
		Interrupts: InterruptCfg{
			TTL:           15 * time.Minute,
			SweepInterval: time.Minute,
		},
		Context: ContextCfg{
			MaxTokens: 8000,
		},
		Executor: ExecutorCfg{
			Kind:          ExecutorScripted,
			Model:         "claude-sonnet-4-5",
			APIKeyEnv:     "ANTHROPIC_API_KEY",
			MaxIterations: 8,
		},
		EventLog: EventLogCfg{
			Dir: "logs",
		},
		Domains: map[string]DomainCfg{
			"wifi": {
				Tools: []string{
					"wifi_diagnostic", "restart_router",
					"confirmation_dialog", "error_display", "network_status_display",
				},
				Keywords: []string{
					"wifi", "internet", "network", "router", "connectivity",
					"connection", "slow", "speed", "signal", "offline",
				},
			},
			"video": {
				Tools: []string{
					"search_content", "rent_movie",
					"confirmation_dialog", "error_display", "play_video",
				},
				Keywords: []string{
					"watch", "movie", "show", "video", "stream", "play",
					"rent", "film", "documentary", "episode",
				},
			},
		},
	}
}

// Load reads configuration from the given YAML file, layered over defaults.
// A missing file is not an error: defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if c.Interrupts.TTL <= 0 {
		return fmt.Errorf("interrupts.ttl must be positive")
	}
	if c.Executor.Kind != ExecutorScripted && c.Executor.Kind != ExecutorAnthropic {
		return fmt.Errorf("executor.kind must be %q or %q, got %q",
			ExecutorScripted, ExecutorAnthropic, c.Executor.Kind)
	}
	if len(c.Domains) == 0 {
		return fmt.Errorf("at least one domain must be configured")
	}
	for name, domain := range c.Domains {
		if len(domain.Tools) == 0 {
			return fmt.Errorf("domain %q permits no tools", name)
		}
	}
	return nil
}

// DomainNames returns the configured domain names.
func (c *Config) DomainNames() []string {
	names := make([]string, 0, len(c.Domains))
	for name := range c.Domains {
		names = append(names, name)
	}
	return names
}
