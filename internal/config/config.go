// Package config loads server configuration from a config file and
// MEALDRAFT_* environment variables via viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults applied when neither the config file nor the environment sets
// a value.
const (
	DefaultListen     = "127.0.0.1:8080"
	DefaultModel      = "claude-haiku-4-5"
	DefaultDBPath     = "mealdraft.sqlite"
	DefaultLLMTimeout = 60 * time.Second
)

// Config holds the server's runtime configuration. The Anthropic API key
// is deliberately not part of it; internal/llm reads ANTHROPIC_API_KEY
// from the environment so the key never lands in a config file.
type Config struct {
	Listen     string        `mapstructure:"listen"`
	Model      string        `mapstructure:"model"`
	DBPath     string        `mapstructure:"db_path"`
	LLMTimeout time.Duration `mapstructure:"llm_timeout"`
}

// Load reads configuration from mealdraft.yaml (current directory or
// $HOME/.config/mealdraft) and the environment. A missing config file is
// not an error; a malformed one is.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("mealdraft")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/mealdraft")

	v.SetEnvPrefix("MEALDRAFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", DefaultListen)
	v.SetDefault("model", DefaultModel)
	v.SetDefault("db_path", DefaultDBPath)
	v.SetDefault("llm_timeout", DefaultLLMTimeout)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = DefaultLLMTimeout
	}
	return &cfg, nil
}
