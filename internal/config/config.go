package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN        string `env:"DATABASE_DSN,required=true"`
	RedisURL           string `env:"REDIS_URL,required=true"`
	PushGatewayURL     string `env:"PUSH_GATEWAY_URL,required=true"`
	PushGatewayKey     string `env:"PUSH_GATEWAY_KEY"`
	PollIntervalSec    int    `env:"POLL_INTERVAL_SEC,default=300"`
	BatchSize          int    `env:"BATCH_SIZE,default=50"`
	DeliveryTimeoutSec int    `env:"DELIVERY_TIMEOUT_SEC,default=10"`
	RateLimitPerSec    int    `env:"RATE_LIMIT_PER_SEC,default=100"`
	APIPort            int    `env:"API_PORT,default=8080"`
	LogLevel           string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

func (c *Config) DeliveryTimeout() time.Duration {
	return time.Duration(c.DeliveryTimeoutSec) * time.Second
}
