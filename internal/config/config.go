// Package config содержит логику чтения конфигурации платформы.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress    = "localhost:8080"
	defaultTimezone      = "America/Sao_Paulo"
	defaultAuditInterval = time.Hour
	defaultCacheTTL      = 5 * time.Minute
)

// Config содержит параметры конфигурации платформы.
type Config struct {
	RunAddress    string        `env:"RUN_ADDRESS"`
	DatabaseURI   string        `env:"DATABASE_URI"`
	RedisURL      string        `env:"REDIS_URL"`
	AuthSecret    string        `env:"AUTH_SECRET"`
	Timezone      string        `env:"TIMEZONE"`
	AuditInterval time.Duration `env:"AUDIT_INTERVAL"`
	CacheTTL      time.Duration `env:"CACHE_TTL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fromEnv := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisURL, "r", "", "redis URL for viewer cache")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret for signing auth cookies")
	flag.StringVar(&cfg.Timezone, "tz", defaultTimezone, "reference time zone for routine day boundary")
	flag.DurationVar(&cfg.AuditInterval, "audit", defaultAuditInterval, "catalog audit interval")
	flag.DurationVar(&cfg.CacheTTL, "cache-ttl", defaultCacheTTL, "viewer cache TTL")

	flag.Parse()

	if fromEnv.RunAddress != "" {
		cfg.RunAddress = fromEnv.RunAddress
	}
	if fromEnv.DatabaseURI != "" {
		cfg.DatabaseURI = fromEnv.DatabaseURI
	}
	if fromEnv.RedisURL != "" {
		cfg.RedisURL = fromEnv.RedisURL
	}
	if fromEnv.AuthSecret != "" {
		cfg.AuthSecret = fromEnv.AuthSecret
	}
	if fromEnv.Timezone != "" {
		cfg.Timezone = fromEnv.Timezone
	}
	if fromEnv.AuditInterval != 0 {
		cfg.AuditInterval = fromEnv.AuditInterval
	}
	if fromEnv.CacheTTL != 0 {
		cfg.CacheTTL = fromEnv.CacheTTL
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.Timezone == "" {
		cfg.Timezone = defaultTimezone
	}

	return cfg, nil
}

// Location возвращает часовой пояс, в котором считается «сегодня» по умолчанию.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
