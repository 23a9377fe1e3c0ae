// Package config manages the on-disk configuration for the mangiafuoco
// CLI. Precedence, lowest to highest: built-in defaults, config file,
// MANGIAFUOCO_* environment variables, explicit overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides, so
// MANGIAFUOCO_MODEL overrides the model key.
const EnvPrefix = "mangiafuoco"

// Defaults.
const (
	DefaultModel       = "gpt-4o"
	DefaultTemperature = 0.1
	DefaultMaxTurns    = 50
	DefaultLoggingDir  = "orchestrator_logs"
)

// Config holds the user-facing settings for a run.
type Config struct {
	Model          string  `yaml:"model" mapstructure:"model"`
	Temperature    float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTurns       int     `yaml:"max-turns" mapstructure:"max-turns"`
	APIKey         string  `yaml:"api-key,omitempty" mapstructure:"api-key"`
	APIBase        string  `yaml:"api-base,omitempty" mapstructure:"api-base"`
	DefaultLogging bool    `yaml:"default-logging" mapstructure:"default-logging"`
	LoggingDir     string  `yaml:"logging-dir,omitempty" mapstructure:"logging-dir"`
}

// Override is an explicit value set on top of file and environment
// configuration, typically from a CLI flag the user passed.
type Override func(*Config)

func WithModel(model string) Override {
	return func(c *Config) {
		if model != "" {
			c.Model = model
		}
	}
}

func WithTemperature(temperature float64) Override {
	return func(c *Config) {
		if temperature >= 0 {
			c.Temperature = temperature
		}
	}
}

func WithMaxTurns(maxTurns int) Override {
	return func(c *Config) { c.MaxTurns = maxTurns }
}

func WithAPIKey(apiKey string) Override {
	return func(c *Config) {
		if apiKey != "" {
			c.APIKey = apiKey
		}
	}
}

func WithAPIBase(apiBase string) Override {
	return func(c *Config) {
		if apiBase != "" {
			c.APIBase = apiBase
		}
	}
}

// DefaultConfigDir returns the directory holding the config file,
// $HOME/.mangiafuoco unless overridden by the caller.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".mangiafuoco"), nil
}

func newViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("model", DefaultModel)
	v.SetDefault("temperature", DefaultTemperature)
	v.SetDefault("max-turns", DefaultMaxTurns)
	v.SetDefault("default-logging", false)
	v.SetDefault("logging-dir", DefaultLoggingDir)
	// Registered so AutomaticEnv picks them up during Unmarshal.
	v.SetDefault("api-key", "")
	v.SetDefault("api-base", "")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := DefaultConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		if xdg, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(xdg, "mangiafuoco"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(errors.Cause(err)) {
			log.Debug().Msg("No config file found, using defaults")
		} else {
			return nil, errors.Wrap(err, "could not read config file")
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v, nil
}

// Load reads the configuration from configFile (or the default search
// paths when empty), applies environment variables, then the explicit
// overrides.
func Load(configFile string, overrides ...Override) (*Config, error) {
	v, err := newViper(configFile)
	if err != nil {
		return nil, err
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, "could not unmarshal config")
	}

	for _, override := range overrides {
		override(c)
	}

	log.Debug().
		Str("model", c.Model).
		Int("max_turns", c.MaxTurns).
		Str("config_file", v.ConfigFileUsed()).
		Msg("Configuration loaded")

	return c, nil
}

// Save writes the configuration as YAML, creating parent directories as
// needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "could not create config directory for %s", path)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "could not marshal config")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(err, "could not write config to %s", path)
	}
	return nil
}

// Set updates a single key on the config by its yaml name.
func (c *Config) Set(key string, value string) error {
	switch key {
	case "model":
		c.Model = value
	case "api-key":
		c.APIKey = value
	case "api-base":
		c.APIBase = value
	case "logging-dir":
		c.LoggingDir = value
	case "temperature":
		var t float64
		if _, err := fmt.Sscanf(value, "%g", &t); err != nil {
			return errors.Wrapf(err, "invalid temperature %q", value)
		}
		c.Temperature = t
	case "max-turns":
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
			return errors.Wrapf(err, "invalid max-turns %q", value)
		}
		c.MaxTurns = n
	case "default-logging":
		c.DefaultLogging = value == "true"
	default:
		return errors.Errorf("unknown config key %q", key)
	}
	return nil
}

// Keys lists the settable config keys.
func Keys() []string {
	keys := []string{"model", "temperature", "max-turns", "api-key", "api-base", "default-logging", "logging-dir"}
	sort.Strings(keys)
	return keys
}

// ShowString renders the config for display. The API key is elided.
func (c *Config) ShowString() string {
	var sb strings.Builder
	sb.WriteString("Current configuration:\n")
	sb.WriteString(fmt.Sprintf("  model: %s\n", c.Model))
	sb.WriteString(fmt.Sprintf("  temperature: %g\n", c.Temperature))
	sb.WriteString(fmt.Sprintf("  max-turns: %d\n", c.MaxTurns))
	sb.WriteString(fmt.Sprintf("  api-key: %s\n", elideKey(c.APIKey)))
	if c.APIBase != "" {
		sb.WriteString(fmt.Sprintf("  api-base: %s\n", c.APIBase))
	} else {
		sb.WriteString("  api-base: Not set\n")
	}
	sb.WriteString(fmt.Sprintf("  default-logging: %t\n", c.DefaultLogging))
	sb.WriteString(fmt.Sprintf("  logging-dir: %s\n", c.LoggingDir))
	return sb.String()
}

func elideKey(key string) string {
	if key == "" {
		return "Not set"
	}
	if len(key) <= 8 {
		return "***"
	}
	return key[:8] + "..."
}
