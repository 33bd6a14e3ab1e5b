// Package config loads the CLI configuration for the strata tool.
//
// Configuration is merged from several sources; later sources override
// earlier ones:
//  1. Default values (hardcoded)
//  2. Configuration file (--config, or config.yaml in ./, ~/.strata, /etc/strata)
//  3. .env file
//  4. Environment variables (STRATA_ prefix, e.g. STRATA_DATABASE_NAME)
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the root configuration of the CLI.
type Config struct {
	// Endpoints contains the server connection settings.
	Endpoints EndpointsConfig `mapstructure:"endpoints"`

	// Database contains the target database settings.
	Database DatabaseConfig `mapstructure:"database"`

	// Auth contains the credential settings.
	Auth AuthConfig `mapstructure:"auth"`

	// Transport contains retry/timeout tuning.
	Transport TransportConfig `mapstructure:"transport"`

	// Debug enables per-call trace logging.
	Debug bool `mapstructure:"debug"`
}

// EndpointsConfig names the coordinators to connect to.
type EndpointsConfig struct {
	// URLs are the coordinator base URLs, tried in order with failover.
	URLs []string `mapstructure:"urls" validate:"required,min=1,dive,url"`
}

// DatabaseConfig selects the database operated on.
type DatabaseConfig struct {
	// Name is the database name.
	Name string `mapstructure:"name" validate:"required"`
}

// AuthConfig carries the credentials. Token wins over basic credentials
// when both are set.
type AuthConfig struct {
	// Username and Password enable basic authentication.
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// Token enables bearer-token authentication.
	Token string `mapstructure:"token"`
}

// TransportConfig tunes the retrying transport.
type TransportConfig struct {
	// Timeout bounds each physical attempt.
	Timeout time.Duration `mapstructure:"timeout"`

	// RetryAttempts is the attempt budget per call.
	RetryAttempts int `mapstructure:"retry_attempts" validate:"gte=0,lte=10"`

	// RateLimit caps outgoing calls per second; 0 disables limiting.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
}

// Load reads configuration from a file and environment variables. If
// cfgFile is empty, config.yaml is searched in the standard locations.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.strata")
		v.AddConfigPath("/etc/strata")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			if !isFileNotFoundError(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.MergeInConfig() // Ignore error if .env file doesn't exist

	v.SetEnvPrefix("STRATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoints.urls", []string{"http://localhost:8529"})
	v.SetDefault("database.name", "_system")
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.token", "")
	v.SetDefault("transport.timeout", 60*time.Second)
	v.SetDefault("transport.retry_attempts", 3)
	v.SetDefault("transport.rate_limit", 0.0)
	v.SetDefault("debug", false)
}

func isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file")
}
