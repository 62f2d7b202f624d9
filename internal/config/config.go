// ABOUTME: Configuration loading and parsing for the diagnostic agent.
// ABOUTME: Supports YAML files with env var expansion; a missing file is created with defaults.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete agent configuration.
type Config struct {
	// AgreementID identifies the subscriber agreement this agent reports
	// for. It may be empty in a freshly created config; the session treats
	// an empty id as fatal at registration time.
	AgreementID string `yaml:"agreement_id"`
	// ServerURL is the control server websocket address.
	ServerURL string `yaml:"server_url"`
	// Autostart registers the agent in the OS startup list when true.
	Autostart bool `yaml:"autostart"`

	Probes  ProbesConfig  `yaml:"probes"`
	Logging LoggingConfig `yaml:"logging"`
}

// ProbesConfig tunes the probe pipeline.
type ProbesConfig struct {
	// MaxConcurrent caps concurrently executing diagnostic processes.
	MaxConcurrent int64 `yaml:"max_concurrent"`
	// TraceHeaderLines is how many banner lines tracert prints before the
	// first hop line.
	TraceHeaderLines int `yaml:"trace_header_lines"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File, when set, receives a copy of the log stream.
	File string `yaml:"file"`
}

// Default returns the configuration written for a fresh install.
func Default() *Config {
	return &Config{
		ServerURL: "ws://ort.chrsnv.ru:8765",
		Autostart: true,
		Probes: ProbesConfig{
			MaxConcurrent:    8,
			TraceHeaderLines: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "logs.txt",
		},
	}
}

const defaultFileTemplate = `# ort-agent configuration.
# agreement_id must be filled in before the agent can register.
agreement_id: ""
server_url: "ws://ort.chrsnv.ru:8765"
autostart: true

probes:
  max_concurrent: 8
  trace_header_lines: 3

logging:
  level: "info"    # debug, info, warn, error
  format: "text"   # text, json
  file: "logs.txt" # empty disables file logging
`

// Load reads a configuration file and returns a parsed Config. Environment
// variables in the format ${VAR_NAME} are expanded. Fields left out of the
// file fall back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// LoadOrCreate loads the configuration, first writing the default file if
// none exists. The created config carries an empty agreement id on purpose:
// the installer fills it in.
func LoadOrCreate(path string) (*Config, bool, error) {
	created := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := WriteDefault(path); err != nil {
			return nil, false, err
		}
		created = true
	}

	cfg, err := Load(path)
	return cfg, created, err
}

// WriteDefault writes the commented default configuration file.
func WriteDefault(path string) error {
	if err := os.WriteFile(path, []byte(defaultFileTemplate), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(re.FindStringSubmatch(match)[1])
	})
}

// applyDefaults fills zero-valued tunables so an explicit zero in the file
// does not disable probing or hop parsing entirely.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Probes.MaxConcurrent <= 0 {
		cfg.Probes.MaxConcurrent = def.Probes.MaxConcurrent
	}
	if cfg.Probes.TraceHeaderLines <= 0 {
		cfg.Probes.TraceHeaderLines = def.Probes.TraceHeaderLines
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
}

// Validate checks that all required configuration fields are present and
// valid. An empty agreement id passes validation: it is the session's job to
// refuse registration.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if !strings.HasPrefix(c.ServerURL, "ws://") && !strings.HasPrefix(c.ServerURL, "wss://") {
		return fmt.Errorf("server_url must be a ws:// or wss:// address, got %q", c.ServerURL)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}
