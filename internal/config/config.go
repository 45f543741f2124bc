package config

import (
	"os"
	"time"
)

// Defaults applied when the environment or config file leaves a value unset.
const (
	DefaultServerPort = "8080"
	DefaultUserAgent  = "TVDeck/1.0"
	DefaultTimeout    = 30 * time.Second

	// DefaultEPGRefreshInterval controls how often the background worker
	// re-fetches the program guide.
	DefaultEPGRefreshInterval = 6 * time.Hour
)

// Config holds application configuration.
//
// DatabaseURL and RedisURL are both optional: without a database the app
// keeps playlists in memory, without Redis caching and background refresh
// coordination are disabled.
type Config struct {
	DatabaseURL string        `yaml:"database_url" env:"DATABASE_URL"`
	RedisURL    string        `yaml:"redis_url" env:"REDIS_URL"`
	ServerPort  string        `yaml:"server_port" env:"SERVER_PORT"`
	ProxyURL    string        `yaml:"proxy_url" env:"PROXY_URL"`
	UserAgent   string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout     time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`

	EPGURL             string        `yaml:"epg_url" env:"EPG_URL"`
	EPGRefreshInterval time.Duration `yaml:"epg_refresh_interval" env:"EPG_REFRESH_INTERVAL"`

	AutoPlay bool `yaml:"auto_play" env:"AUTO_PLAY"`
	Muted    bool `yaml:"muted" env:"MUTED"`
}

// Load builds config from environment variables.
// If DATABASE_URL is not set, Load tries to load .env.local and .env from the
// current directory before reading the environment.
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" {
		loadEnvFiles()
	}
	c := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		ServerPort:         os.Getenv("SERVER_PORT"),
		ProxyURL:           os.Getenv("PROXY_URL"),
		UserAgent:          os.Getenv("FETCHER_USER_AGENT"),
		EPGURL:             os.Getenv("EPG_URL"),
		Timeout:            DefaultTimeout,
		EPGRefreshInterval: DefaultEPGRefreshInterval,
		AutoPlay:           envBool("AUTO_PLAY", true),
		Muted:              envBool("MUTED", false),
	}
	if s := os.Getenv("FETCHER_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.Timeout = d
		}
	}
	if s := os.Getenv("EPG_REFRESH_INTERVAL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.EPGRefreshInterval = d
		}
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.ServerPort == "" {
		c.ServerPort = DefaultServerPort
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.EPGRefreshInterval <= 0 {
		c.EPGRefreshInterval = DefaultEPGRefreshInterval
	}
}

func envBool(key string, fallback bool) bool {
	switch os.Getenv(key) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}
