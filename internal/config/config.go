// Package config holds the typed vibe-vcf configuration.
package config

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. VIBE_VCF_LOG_LEVEL for log.level.
const EnvPrefix = "VIBE_VCF"

// FileName is the name of the config file in the home directory.
const FileName = ".vibe-vcf.yaml"

// Config represents the application configuration.
type Config struct {
	Log        LogConfig       `mapstructure:"log" yaml:"log"`
	Validation ValidateConfig  `mapstructure:"validate" yaml:"validate"`
	Normalize  NormalizeConfig `mapstructure:"normalize" yaml:"normalize"`
	Report     ReportConfig    `mapstructure:"report" yaml:"report"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Validation.Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if err := c.Normalize.Validate(); err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	return nil
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Validate validates the logging configuration.
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.Required, validation.By(func(any) error {
			_, err := zap.ParseAtomicLevel(c.Level)
			return err
		})),
	)
}

// Build creates a console logger writing to stderr at the configured level.
func (c *LogConfig) Build() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// ValidateConfig holds settings of the validate command.
type ValidateConfig struct {
	MaxErrors    int  `mapstructure:"max_errors" yaml:"max_errors"`
	Workers      int  `mapstructure:"workers" yaml:"workers"`
	ShowWarnings bool `mapstructure:"show_warnings" yaml:"show_warnings"`
}

// Validate validates the validate command settings.
func (c *ValidateConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxErrors, validation.Min(0)),
		validation.Field(&c.Workers, validation.Min(0)),
	)
}

// NormalizeConfig holds settings of the normalize command.
type NormalizeConfig struct {
	Alignment string `mapstructure:"alignment" yaml:"alignment"`
	Workers   int    `mapstructure:"workers" yaml:"workers"`
	Reference string `mapstructure:"reference" yaml:"reference"`
}

// Validate validates the normalize configuration.
func (c *NormalizeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Alignment, validation.Required, validation.In("left", "right")),
		validation.Field(&c.Workers, validation.Min(0)),
	)
}

// ReportConfig holds the DuckDB report location. An empty DB disables
// reporting.
type ReportConfig struct {
	DB string `mapstructure:"db" yaml:"db"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log:       LogConfig{Level: "info"},
		Normalize: NormalizeConfig{Alignment: "left"},
	}
}

// SetDefaults registers the built-in values and environment overrides on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("validate.max_errors", d.Validation.MaxErrors)
	v.SetDefault("validate.workers", d.Validation.Workers)
	v.SetDefault("validate.show_warnings", d.Validation.ShowWarnings)
	v.SetDefault("normalize.alignment", d.Normalize.Alignment)
	v.SetDefault("normalize.workers", d.Normalize.Workers)
	v.SetDefault("normalize.reference", d.Normalize.Reference)
	v.SetDefault("report.db", d.Report.DB)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Normalize.Alignment = strings.ToLower(cfg.Normalize.Alignment)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
