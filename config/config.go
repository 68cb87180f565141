// Package config loads client settings for embedding applications from a
// YAML file, with ${VAR} environment expansion so credentials can stay out
// of the file itself. The library never reads configuration on its own;
// pass the result to rayleigh.NewFromConfig.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root of the YAML configuration file.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig selects the account and tunes the HTTP client. Either the
// packed credentials string or the client_id/access_token pair must be set;
// the split pair wins when both are present.
type APIConfig struct {
	Credentials        string `mapstructure:"credentials"`
	ClientID           string `mapstructure:"client_id"`
	AccessToken        string `mapstructure:"access_token"`
	AppID              string `mapstructure:"app_id"`
	Endpoint           string `mapstructure:"endpoint"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	Debug              bool   `mapstructure:"debug"`
	DiscoveryCacheSize int    `mapstructure:"discovery_cache_size"`
}

// LoggingConfig controls the logger built for the client.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads and parses the configuration file at path. Environment
// references like ${RAYLEIGH_CREDENTIALS} are expanded before parsing.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	if err := v.ReadConfig(strings.NewReader(expanded)); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.app_id", "uob")
	v.SetDefault("api.endpoint", "https://api.uxeon.com/consumer/v1")
	v.SetDefault("api.timeout_seconds", 30)
	v.SetDefault("api.discovery_cache_size", 128)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
