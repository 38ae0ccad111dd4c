// Package config содержит логику чтения конфигурации бэк-офиса.
package config

import (
	"flag"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

const (
	defaultRunAddress           = "localhost:8080"
	defaultStoragePath          = "bankcore.db"
	defaultDepositAuthThreshold = "2000"
	defaultTimezone             = "UTC"
)

// Config содержит параметры конфигурации бэк-офиса.
type Config struct {
	RunAddress             string `env:"RUN_ADDRESS"`
	DatabaseURI            string `env:"DATABASE_URI"`
	StoragePath            string `env:"STORAGE_PATH"`
	IdentityServiceAddress string `env:"IDENTITY_SERVICE_ADDRESS"`
	IdentityServiceToken   string `env:"IDENTITY_SERVICE_TOKEN"`
	DepositAuthThreshold   string `env:"DEPOSIT_AUTH_THRESHOLD"`
	BusinessTimezone       string `env:"BUSINESS_TIMEZONE"`
	AuthSecret             string `env:"AUTH_SECRET"`

	threshold decimal.Decimal
	location  *time.Location
}

// Threshold возвращает порог суммы вклада, требующей авторизации.
func (c *Config) Threshold() decimal.Decimal {
	return c.threshold
}

// Location возвращает часовой пояс, в котором определяются календарные даты операций.
func (c *Config) Location() *time.Location {
	return c.location
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
	flag.StringVar(&cfg.StoragePath, "s", defaultStoragePath, "embedded storage file used without database URI")
	flag.StringVar(&cfg.IdentityServiceAddress, "i", "", "identity registry address")
	flag.StringVar(&cfg.DepositAuthThreshold, "t", defaultDepositAuthThreshold, "deposit amount requiring authorization")
	flag.StringVar(&cfg.BusinessTimezone, "z", defaultTimezone, "business timezone for calendar dates")

	flag.Parse()

	override(&cfg.RunAddress, fromEnv.RunAddress)
	override(&cfg.DatabaseURI, fromEnv.DatabaseURI)
	override(&cfg.StoragePath, fromEnv.StoragePath)
	override(&cfg.IdentityServiceAddress, fromEnv.IdentityServiceAddress)
	override(&cfg.DepositAuthThreshold, fromEnv.DepositAuthThreshold)
	override(&cfg.BusinessTimezone, fromEnv.BusinessTimezone)

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.StoragePath == "" {
		cfg.StoragePath = defaultStoragePath
	}
	if cfg.DepositAuthThreshold == "" {
		cfg.DepositAuthThreshold = defaultDepositAuthThreshold
	}
	if cfg.BusinessTimezone == "" {
		cfg.BusinessTimezone = defaultTimezone
	}

	threshold, err := decimal.NewFromString(cfg.DepositAuthThreshold)
	if err != nil || !threshold.IsPositive() {
		return nil, fmt.Errorf("invalid deposit authorization threshold %q", cfg.DepositAuthThreshold)
	}
	cfg.threshold = threshold

	loc, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		return nil, fmt.Errorf("load business timezone: %w", err)
	}
	cfg.location = loc

	return cfg, nil
}

func override(dst *string, envValue string) {
	if envValue != "" {
		*dst = envValue
	}
}
