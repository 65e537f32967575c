// Package config loads the pipeline's runtime configuration via
// spf13/viper, the same YAML-plus-environment-override pattern the
// reference service uses, restructured around the settings this pipeline
// actually reads: per-stage timeout budgets, cache sizing, and the
// optional WHOIS/model/reputation data paths.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Security SecurityConfig `mapstructure:"security"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Model    ModelConfig    `mapstructure:"model"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// SecurityConfig controls request authentication and throttling.
type SecurityConfig struct {
	APIKey            string `mapstructure:"api_key"`
	RateLimitPerMin   int    `mapstructure:"rate_limit_per_minute"`
}

// ProbeConfig controls C3's per-step timeout budgets and redirect cap.
type ProbeConfig struct {
	DNSTimeoutMS  int  `mapstructure:"dns_timeout_ms"`
	TLSTimeoutMS  int  `mapstructure:"tls_timeout_ms"`
	HTTPTimeoutMS int  `mapstructure:"http_timeout_ms"`
	MaxRedirects  int  `mapstructure:"max_redirects"`
	WhoisEnabled  bool `mapstructure:"whois_enabled"`
}

// CacheConfig controls the result cache in front of the orchestrator.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	SizeEntries int `mapstructure:"size_entries"`
	TTLSeconds  int `mapstructure:"ttl_seconds"`
}

// ModelConfig points at the scoring model and the curated reputation and
// public-suffix data files.
type ModelConfig struct {
	ModelPath      string `mapstructure:"model_path"`
	ReputationPath string `mapstructure:"reputation_path"`
	PSLPath        string `mapstructure:"psl_path"`
}

// RedisConfig is consulted only when Cache.Enabled is true and a
// distributed cache backend is desired over the in-process default.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads config.yaml from the working directory (or its parents, to
// support running from a package directory during tests) layered with
// environment variable overrides, and returns the decoded Config.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	setDefaults()

	viper.SetEnvPrefix("URLSENTINEL")
	viper.AutomaticEnv()
	viper.BindEnv("security.api_key", "URLSENTINEL_API_KEY")
	viper.BindEnv("redis.addr", "REDIS_ADDR")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.request_timeout", 10*time.Second)

	viper.SetDefault("security.rate_limit_per_minute", 60)

	viper.SetDefault("probe.dns_timeout_ms", 1500)
	viper.SetDefault("probe.tls_timeout_ms", 3000)
	viper.SetDefault("probe.http_timeout_ms", 5000)
	viper.SetDefault("probe.max_redirects", 5)
	viper.SetDefault("probe.whois_enabled", false)

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.size_entries", 1024)
	viper.SetDefault("cache.ttl_seconds", 600)

	viper.SetDefault("model.model_path", "")
	viper.SetDefault("model.reputation_path", "")
	viper.SetDefault("model.psl_path", "")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
}
