// Package config layers SolGuard configuration: built-in defaults, then an
// optional YAML file, then environment variables. PORT is the one
// environment knob deployment platforms set for us.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/solguard/solguard/pkg/audit"
)

// Config is the full server configuration.
type Config struct {
	Host string `json:"host" yaml:"host" env:"HOST"`
	Port int    `json:"port" yaml:"port" env:"PORT"`

	SolcPath    string   `json:"solc_path"    yaml:"solc_path"    env:"SOLGUARD_SOLC_PATH"`
	SlitherPath string   `json:"slither_path" yaml:"slither_path" env:"SOLGUARD_SLITHER_PATH"`
	AllowPaths  []string `json:"allow_paths"  yaml:"allow_paths"  env:"SOLGUARD_ALLOW_PATHS" envSeparator:","`

	// Per-tool wall-clock budgets, in seconds. Compilation is cheap;
	// analysis is not.
	CompileTimeoutSec int `json:"compile_timeout_sec" yaml:"compile_timeout_sec" env:"SOLGUARD_COMPILE_TIMEOUT_SEC"`
	AuditTimeoutSec   int `json:"audit_timeout_sec"   yaml:"audit_timeout_sec"   env:"SOLGUARD_AUDIT_TIMEOUT_SEC"`

	// StrictSession rejects tools/call on sessions that have not sent the
	// notifications/initialized ack.
	StrictSession bool `json:"strict_session" yaml:"strict_session" env:"SOLGUARD_STRICT_SESSION"`

	// NotifyBuffer is the per-subscriber notification buffer size.
	NotifyBuffer int `json:"notify_buffer" yaml:"notify_buffer" env:"SOLGUARD_NOTIFY_BUFFER"`

	Audit audit.StoreConfig `json:"audit" yaml:"audit" envPrefix:"SOLGUARD_AUDIT_"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:              "0.0.0.0",
		Port:              8080,
		SolcPath:          "solc",
		SlitherPath:       "slither",
		CompileTimeoutSec: 30,
		AuditTimeoutSec:   60,
		StrictSession:     true,
		NotifyBuffer:      100,
		Audit: audit.StoreConfig{
			Backend: "file",
			Dir:     defaultAuditDir(),
		},
	}
}

func defaultAuditDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "solguard-audit")
	}
	return filepath.Join(home, ".solguard", "audit")
}

// Load builds the effective configuration: defaults, overlaid by the YAML
// file at path (when non-empty), overlaid by environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}

// CompileTimeout returns the compilation budget as a duration.
func (c *Config) CompileTimeout() time.Duration {
	return time.Duration(c.CompileTimeoutSec) * time.Second
}

// AuditTimeout returns the analysis budget as a duration.
func (c *Config) AuditTimeout() time.Duration {
	return time.Duration(c.AuditTimeoutSec) * time.Second
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
