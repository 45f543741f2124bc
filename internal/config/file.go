package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	DatabaseURL        string `yaml:"database_url"`
	RedisURL           string `yaml:"redis_url"`
	ServerPort         string `yaml:"server_port"`
	ProxyURL           string `yaml:"proxy_url"`
	UserAgent          string `yaml:"user_agent"`
	Timeout            string `yaml:"timeout"`
	EPGURL             string `yaml:"epg_url"`
	EPGRefreshInterval string `yaml:"epg_refresh_interval"`
	AutoPlay           *bool  `yaml:"auto_play"`
	Muted              *bool  `yaml:"muted"`
}

// LoadFromFile loads config from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	c := &Config{
		DatabaseURL:        f.DatabaseURL,
		RedisURL:           f.RedisURL,
		ServerPort:         f.ServerPort,
		ProxyURL:           f.ProxyURL,
		UserAgent:          f.UserAgent,
		EPGURL:             f.EPGURL,
		Timeout:            DefaultTimeout,
		EPGRefreshInterval: DefaultEPGRefreshInterval,
		AutoPlay:           true,
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			c.Timeout = d
		}
	}
	if f.EPGRefreshInterval != "" {
		if d, err := time.ParseDuration(f.EPGRefreshInterval); err == nil {
			c.EPGRefreshInterval = d
		}
	}
	if f.AutoPlay != nil {
		c.AutoPlay = *f.AutoPlay
	}
	if f.Muted != nil {
		c.Muted = *f.Muted
	}
	c.applyDefaults()
	return c, nil
}
