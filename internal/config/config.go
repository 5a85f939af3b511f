// Package config loads application configuration from an optional TOML file
// and STUDYDO_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Remote  RemoteConfig
	Local   LocalConfig
	Engine  EngineConfig
	Worker  WorkerConfig
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port int
}

// StorageConfig holds sqlite settings.
type StorageConfig struct {
	Path string
}

// RemoteConfig holds remote backend settings. The API key may also come
// from the environment variable named in APIKeyEnv.
type RemoteConfig struct {
	APIKey    string
	APIKeyEnv string `mapstructure:"api_key_env"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string
}

// LocalConfig holds local backend (Ollama) settings.
type LocalConfig struct {
	URL   string
	Model string
}

// EngineConfig holds orchestration settings.
type EngineConfig struct {
	MaxContextChars int `mapstructure:"max_context_chars"`
}

// WorkerConfig holds background-sweep settings.
type WorkerConfig struct {
	Interval        time.Duration
	StalenessWindow time.Duration `mapstructure:"staleness_window"`
}

// ResolveAPIKey returns the remote API key, preferring the direct value
// over the named environment variable.
func (r RemoteConfig) ResolveAPIKey() string {
	if r.APIKey != "" {
		return r.APIKey
	}
	if r.APIKeyEnv != "" {
		return os.Getenv(r.APIKeyEnv)
	}
	return ""
}

// Load reads configuration from file and env. Env var overrides use prefix
// STUDYDO_ (e.g. STUDYDO_SERVER_PORT).
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "studydo", "studydo.db"))
	v.SetDefault("remote.api_key", "")
	v.SetDefault("remote.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("remote.base_url", "https://api.openai.com/v1")
	v.SetDefault("remote.model", "gpt-4o-mini")
	v.SetDefault("local.url", "http://localhost:11434")
	v.SetDefault("local.model", "llama3")
	v.SetDefault("engine.max_context_chars", 20000)
	v.SetDefault("worker.interval", "30s")
	v.SetDefault("worker.staleness_window", "10m")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("STUDYDO_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "studydo"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("STUDYDO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
