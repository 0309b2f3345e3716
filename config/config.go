// Package config loads tz-oracle settings from defaults, an optional YAML
// file and TZORACLE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/lattice-substrate/tz-oracle/fuzz"
	"github.com/lattice-substrate/tz-oracle/ports"
	"github.com/lattice-substrate/tz-oracle/profiler"
)

// EnvPrefix prefixes every environment override, e.g. TZORACLE_FUZZ_SAMPLES.
const EnvPrefix = "TZORACLE"

// Config is the full set of run settings.
type Config struct {
	Fuzz struct {
		Samples          int    `mapstructure:"samples"`
		ThresholdPercent int    `mapstructure:"threshold_percent"`
		MismatchLimit    int    `mapstructure:"mismatch_limit"`
		Seed             uint64 `mapstructure:"seed"`
	} `mapstructure:"fuzz"`
	Profile struct {
		Iterations int    `mapstructure:"iterations"`
		Warmup     int    `mapstructure:"warmup"`
		Seed       uint64 `mapstructure:"seed"`
	} `mapstructure:"profile"`
	Capabilities struct {
		Reference bool `mapstructure:"reference"`
		Inhabited bool `mapstructure:"inhabited"`
	} `mapstructure:"capabilities"`
	Report struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"report"`
	Metrics struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"metrics"`
	// Dataset.Path names a regression table in the dataset CSV layout. Empty
	// selects the embedded table.
	Dataset struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"dataset"`
	Log struct {
		Format string `mapstructure:"format"`
		Level  string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// Load reads defaults, an optional tz-oracle.yaml and TZORACLE_* env vars.
// A non-empty file path must exist.
func Load(file string) (*Config, error) {
	v := viper.New()

	v.SetDefault("fuzz.samples", fuzz.DefaultSamples)
	v.SetDefault("fuzz.threshold_percent", fuzz.DefaultThresholdPercent)
	v.SetDefault("fuzz.mismatch_limit", fuzz.DefaultMismatchLimit)
	v.SetDefault("fuzz.seed", fuzz.DefaultSeed)
	v.SetDefault("profile.iterations", profiler.DefaultIterations)
	v.SetDefault("profile.warmup", profiler.DefaultWarmup)
	v.SetDefault("profile.seed", profiler.DefaultSeed)
	v.SetDefault("capabilities.reference", true)
	v.SetDefault("capabilities.inhabited", true)
	v.SetDefault("report.path", "")
	v.SetDefault("metrics.path", "")
	v.SetDefault("dataset.path", "")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "info")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("tz-oracle")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the sections that have their own rules.
func (c *Config) Validate() error {
	if err := c.FuzzConfig().Validate(); err != nil {
		return err
	}
	if err := c.ProfileConfig().Validate(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// FuzzConfig projects the fuzz section.
func (c *Config) FuzzConfig() fuzz.Config {
	return fuzz.Config{
		Samples:          c.Fuzz.Samples,
		ThresholdPercent: c.Fuzz.ThresholdPercent,
		MismatchLimit:    c.Fuzz.MismatchLimit,
		Seed:             c.Fuzz.Seed,
	}
}

// ProfileConfig projects the profile section.
func (c *Config) ProfileConfig() profiler.Config {
	return profiler.Config{
		Iterations: c.Profile.Iterations,
		Warmup:     c.Profile.Warmup,
		Seed:       c.Profile.Seed,
	}
}

// Caps projects the capabilities section.
func (c *Config) Caps() ports.Capabilities {
	return ports.Capabilities{
		ReferenceResolverAvailable: c.Capabilities.Reference,
		InhabitedOracleAvailable:   c.Capabilities.Inhabited,
	}
}
