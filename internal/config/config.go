package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/latwatchhq/agent/pkg/types"
)

const (
	envConfigPath     = "LATWATCH_AGENT_CONFIG"
	DefaultConfigPath = "/etc/latwatch/agent.yaml"
)

const (
	defaultIdentityFile      = "/host_hostname"
	defaultDurationSec       = 10
	defaultIntervalSec       = 2
	defaultConnectTimeoutSec = 2
	defaultLogFile           = "/var/log/latwatch/latency.log"
	defaultMaxBackups        = 7
)

type Config struct {
	Agent   AgentConfig    `yaml:"agent"`
	Measure MeasureConfig  `yaml:"measure"`
	Log     LogConfig      `yaml:"log"`
	Targets []TargetConfig `yaml:"targets"`
}

type AgentConfig struct {
	IdentityFile string `yaml:"identity_file"`
	LockFile     string `yaml:"lock_file"`
}

type MeasureConfig struct {
	DurationSec       int  `yaml:"duration_sec"`
	IntervalSec       *int `yaml:"interval_sec"`
	ConnectTimeoutSec int  `yaml:"connect_timeout_sec"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	MaxBackups int    `yaml:"max_backups"`
}

type TargetConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func Load(ctx context.Context, path string) (Config, error) {
	var cfg Config

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func LoadFromEnv(ctx context.Context) (Config, error) {
	path := os.Getenv(envConfigPath)
	if path == "" {
		path = DefaultConfigPath
	}
	return Load(ctx, path)
}

func (c *Config) applyDefaults() {
	if c.Agent.IdentityFile == "" {
		c.Agent.IdentityFile = defaultIdentityFile
	}
	if c.Measure.DurationSec <= 0 {
		c.Measure.DurationSec = defaultDurationSec
	}
	if c.Measure.IntervalSec == nil {
		interval := defaultIntervalSec
		c.Measure.IntervalSec = &interval
	}
	if c.Measure.ConnectTimeoutSec <= 0 {
		c.Measure.ConnectTimeoutSec = defaultConnectTimeoutSec
	}
	if c.Log.File == "" {
		c.Log.File = defaultLogFile
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = defaultMaxBackups
	}
	for i := range c.Targets {
		if c.Targets[i].Port == 0 {
			c.Targets[i].Port = types.DefaultPort
		}
	}
}

// Validate fails fast on configuration that would otherwise surface as
// confusing runtime behavior. An empty target list is valid: the run
// simply writes no report lines.
func (c Config) Validate() error {
	for i, t := range c.Targets {
		if t.Host == "" {
			return fmt.Errorf("target %d: host must not be empty", i)
		}
		if t.Port < 1 || t.Port > 65535 {
			return fmt.Errorf("target %d (%s): port %d outside 1-65535", i, t.Host, t.Port)
		}
	}
	if c.Measure.DurationSec <= 0 {
		return fmt.Errorf("measure duration_sec must be positive, got %d", c.Measure.DurationSec)
	}
	if c.Measure.IntervalSec != nil && *c.Measure.IntervalSec < 0 {
		return fmt.Errorf("measure interval_sec must not be negative, got %d", *c.Measure.IntervalSec)
	}
	if c.Log.File == "" {
		return fmt.Errorf("log file must be configured")
	}
	return nil
}

// TargetList converts the configured targets to the probe type.
func (c Config) TargetList() []types.Target {
	targets := make([]types.Target, 0, len(c.Targets))
	for _, t := range c.Targets {
		port := t.Port
		if port == 0 {
			port = types.DefaultPort
		}
		targets = append(targets, types.Target{Host: t.Host, Port: port})
	}
	return targets
}

func (c Config) Duration() time.Duration {
	return time.Duration(c.Measure.DurationSec) * time.Second
}

func (c Config) Interval() time.Duration {
	if c.Measure.IntervalSec == nil {
		return defaultIntervalSec * time.Second
	}
	return time.Duration(*c.Measure.IntervalSec) * time.Second
}

func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Measure.ConnectTimeoutSec) * time.Second
}
