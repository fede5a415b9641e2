// Package config loads process configuration via viper, grounded on
// abdoElHodaky-tradSys's internal/config pattern: a mapstructure-tagged
// struct, environment overrides, an optional file on disk.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is matchforge's process configuration.
type Config struct {
	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`

	Store struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"store"`

	Broadcast struct {
		BufferSize int `mapstructure:"buffer_size"`
	} `mapstructure:"broadcast"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// Load reads configuration from (in ascending precedence) built-in
// defaults, an optional config file named configPath, and MATCHFORGE_-
// prefixed environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("store.path", "matchforge.db")
	v.SetDefault("broadcast.buffer_size", 256)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("matchforge")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
