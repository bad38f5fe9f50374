// Package config resolves the crosspose runtime configuration. Sources are
// merged with flags taking precedence over CROSSPOSE_-prefixed environment
// variables, which take precedence over an optional .crosspose.yaml file.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds the global settings shared by every command.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" json:"logLevel"`

	// LogFormat is text or json.
	LogFormat string `mapstructure:"log-format" json:"logFormat"`

	// Quiet drops everything below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	// RulesFile is the translation rules file applied when the --rules
	// flag is not given.
	RulesFile string `mapstructure:"rules-file" json:"rulesFile"`

	// ConfigFile records which config file Load resolved, if any.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// Default returns the configuration used when no source overrides anything.
func Default() *Config {
	return &Config{LogLevel: LogLevelInfo, LogFormat: LogFormatText}
}

// Validate rejects values outside the supported enums.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	return nil
}

// EffectiveLogLevel is LogLevel with Quiet applied on top.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// Load merges flag, environment, and file sources into a validated Config.
// Each call uses its own viper instance; parallel tests stay isolated.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	for key, val := range map[string]any{
		"log-level":  LogLevelInfo,
		"log-format": LogFormatText,
		"quiet":      false,
		"rules-file": "",
	} {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix("CROSSPOSE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindCommandFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// readConfigFile loads an explicit config file, or probes the working
// directory and ~/.config/crosspose for a .crosspose.yaml. Only an explicit
// path is required to exist.
func readConfigFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	v.SetConfigName(".crosspose")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "crosspose"))
	}

	err := v.ReadInConfig()

	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindCommandFlags binds cmd's own flags plus the persistent flags of every
// ancestor, so root-level flags resolve from subcommands.
func bindCommandFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
