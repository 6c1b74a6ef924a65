package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/vmctl/internal/errors"
	"github.com/spf13/viper"
)

const (
	DefaultAPIURL         = "http://localhost:8697/api"
	DefaultInterval       = 2
	DefaultCommandTimeout = 30
	DefaultLogLevel       = "info"
	DefaultLogFile        = "vmctl.log"

	envPrefix  = "VMCTL"
	configName = "vmctl"
)

// Config holds all application configuration
type Config struct {
	APIURL         string `mapstructure:"api_url"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	Interval       int    `mapstructure:"interval"`
	CommandTimeout int    `mapstructure:"command_timeout"`
	History        bool   `mapstructure:"history"`
	Database       string `mapstructure:"database"`
	LogLevel       string `mapstructure:"log_level"`
	LogFile        string `mapstructure:"log_file"`
}

// Load reads configuration from the config file, environment variables and
// defaults. An explicit config file can be given via VMCTL_CONFIG.
func Load() (*Config, error) {
	errFactory := errors.New()
	v := viper.New()

	v.SetDefault("api_url", DefaultAPIURL)
	// Registered so AutomaticEnv can satisfy them without a config file.
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("command_timeout", DefaultCommandTimeout)
	v.SetDefault("history", false)
	v.SetDefault("database", defaultDatabasePath())
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", DefaultLogFile)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(envPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the loaded configuration for values the core cannot
// operate with.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.APIURL == "" {
		return errFactory.WithMessage(errors.ErrMissingConfig, "api_url must be set")
	}

	if c.Username == "" || c.Password == "" {
		return errFactory.New(errors.ErrMissingAuth)
	}

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}

	if c.CommandTimeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidTimeout, c.CommandTimeout)
	}

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// Timeout returns the command timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.CommandTimeout) * time.Second
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return LogLevel(c.LogLevel) == LogLevelDebug
}

// Verbose reports whether info-level logging is enabled.
func (c *Config) Verbose() bool {
	switch LogLevel(c.LogLevel) {
	case LogLevelDebug, LogLevelInfo:
		return true
	default:
		return false
	}
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vmctl-history.db"
	}

	return filepath.Join(home, ".vmctl", "history.db")
}
