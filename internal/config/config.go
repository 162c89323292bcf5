// Package config loads crawlhive's daemon configuration: a YAML file for
// the worker and crawl settings, plus environment variable
// overrides for connection strings that shouldn't live in a committed
// file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the full daemon configuration: the worker's enumerated
// settings plus the adapter connection strings SPEC_FULL.md's domain
// stack wires up (Postgres, Redis, RabbitMQ, Elasticsearch, chromedp).
type AppConfig struct {
	MaxConcurrent        int      `yaml:"max_concurrent"`
	RequestTimeoutMS     int      `yaml:"request_timeout_ms"`
	MaxPageSizeBytes     int64    `yaml:"max_page_size_bytes"`
	DelayBetweenRequests int      `yaml:"delay_between_requests_ms"`
	MaxDepth             int      `yaml:"max_depth"`
	UserAgent            string   `yaml:"user_agent"`
	RespectRobotsTxt     bool     `yaml:"respect_robots_txt"`
	AllowedContentTypes  []string `yaml:"allowed_content_types"`
	DomainFilter         []string `yaml:"domain_filter"`
	RecrawlWindowHours   int      `yaml:"recrawl_window_hours"`

	PostgresDSN        string   `yaml:"postgres_dsn"`
	RedisAddr          string   `yaml:"redis_addr"`
	RabbitMQURL        string   `yaml:"rabbitmq_url"`
	ElasticsearchURLs  []string `yaml:"elasticsearch_urls"`
	ElasticsearchIndex string   `yaml:"elasticsearch_index"`

	HeadlessEnabled bool `yaml:"headless_enabled"`

	SeedURLs []string `yaml:"seed_urls"`
}

// Load reads path as YAML into an AppConfig, applies documented defaults
// for any setting the file does not name, and layers environment variable
// overrides for connection strings on top.
func Load(path string) (*AppConfig, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaults returns an AppConfig carrying the documented
// defaults, so a config file only needs to name the settings it wants to
// change.
func defaults() *AppConfig {
	return &AppConfig{
		MaxConcurrent:        5,
		RequestTimeoutMS:     30_000,
		MaxPageSizeBytes:     5 << 20,
		DelayBetweenRequests: 1_000,
		MaxDepth:             10,
		UserAgent:            "crawlhivebot/1.0 (+https://github.com/lukemcguire/crawlhive)",
		RespectRobotsTxt:     true,
		RecrawlWindowHours:   24,
		ElasticsearchIndex:   "crawlhive-pages",
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v, ok := os.LookupEnv("CRAWLHIVE_POSTGRES_DSN"); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := os.LookupEnv("CRAWLHIVE_REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v, ok := os.LookupEnv("CRAWLHIVE_RABBITMQ_URL"); ok {
		cfg.RabbitMQURL = v
	}
}

// RequestTimeout returns the configured request timeout as a Duration.
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// DelayBetweenRequestsDuration returns the configured per-host delay as a
// Duration.
func (c *AppConfig) DelayBetweenRequestsDuration() time.Duration {
	return time.Duration(c.DelayBetweenRequests) * time.Millisecond
}

// RecrawlWindow returns the configured recrawl freshness window as a
// Duration.
func (c *AppConfig) RecrawlWindow() time.Duration {
	return time.Duration(c.RecrawlWindowHours) * time.Hour
}
