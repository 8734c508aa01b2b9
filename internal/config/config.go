// Package config loads autoreg's settings from autoreg.yaml, the environment,
// and command-line flags.
package config

import (
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment variable names. The key log.level
// is read from AUTOREG_LOG_LEVEL.
const EnvPrefix = "AUTOREG"

// Config holds the settings of one run.
type Config struct {
	// Namespaces are the package qualifiers under which annotations are
	// recognized. The empty string matches unqualified annotations.
	Namespaces   []string  `mapstructure:"namespaces"`
	OutputSuffix string    `mapstructure:"output_suffix"`
	IncludeTests bool      `mapstructure:"include_tests"`
	Concurrency  int       `mapstructure:"concurrency"`
	Manifest     bool      `mapstructure:"manifest"`
	Log          LogConfig `mapstructure:"log"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// New returns a viper instance with defaults and environment binding set
// up. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("namespaces", []string{"autoreg", ""})
	v.SetDefault("output_suffix", "_autoreg.go")
	v.SetDefault("include_tests", false)
	v.SetDefault("concurrency", runtime.GOMAXPROCS(0))
	v.SetDefault("manifest", false)
	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")

	v.SetConfigName("autoreg")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. If file is empty, autoreg.yaml is looked up
// in the working directory and its absence is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the processor cannot use.
func (c *Config) Validate() error {
	if len(c.Namespaces) == 0 {
		return errors.New("namespaces: at least one namespace is required")
	}
	if !strings.HasSuffix(c.OutputSuffix, ".go") {
		return errors.Newf("output_suffix must end in .go, got: %s", c.OutputSuffix)
	}
	if c.Concurrency < 1 {
		return errors.Newf("concurrency must be positive, got: %d", c.Concurrency)
	}
	return nil
}
