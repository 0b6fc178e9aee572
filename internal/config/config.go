package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port     string `yaml:"port"`
		Instance string `yaml:"instance"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Assessment struct {
		TTL     string `yaml:"ttl"`
		Catalog string `yaml:"catalog"`
	} `yaml:"assessment"`
	Session struct {
		MaxSubmitRetries *int   `yaml:"maxSubmitRetries"`
		SubmitTimeout    string `yaml:"submitTimeout"`
		TickInterval     string `yaml:"tickInterval"`
		RewardTimeout    string `yaml:"rewardTimeout"`
	} `yaml:"session"`
	AttemptAPI struct {
		BaseURL string `yaml:"baseUrl"`
		Timeout string `yaml:"timeout"`
	} `yaml:"attemptApi"`
	Rewards struct {
		Channel string `yaml:"channel"`
	} `yaml:"rewards"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Retries returns the configured submit retry bound, or fallback when unset.
func (c Config) Retries(fallback int) int {
	if c.Session.MaxSubmitRetries == nil || *c.Session.MaxSubmitRetries < 0 {
		return fallback
	}
	return *c.Session.MaxSubmitRetries
}
