package config

import (
	"os"
	"time"

	"github.com/shopspring/decimal"
)

type ChargeConfig struct {
	MinAmount    decimal.Decimal
	DedupeWindow time.Duration
	LockTimeout  time.Duration
}

func LoadChargeConfig() *ChargeConfig {
	return &ChargeConfig{
		MinAmount:    getEnvAsDecimal("CHARGE_MIN_AMOUNT", "1.00"),
		DedupeWindow: getEnvAsDuration("CHARGE_DEDUPE_WINDOW", 10*time.Minute),
		LockTimeout:  getEnvAsDuration("SELLER_LOCK_TIMEOUT", 5*time.Second),
	}
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsDecimal(key, defaultVal string) decimal.Decimal {
	if val := os.Getenv(key); val != "" {
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(defaultVal)
}
