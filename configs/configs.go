package configs

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"ironmq-client/mq"
)

// Config defines all environment variables and derived config for the worker
// and producer binaries.
type Config struct {
	// Transformed time.Duration fields (not loaded from env directly)
	PollingIntervalDuration time.Duration `env:"-"` // pause between empty polls
	ReleaseDelayDuration    time.Duration `env:"-"` // redelivery delay after handler failure
	TouchIntervalDuration   time.Duration `env:"-"` // lease keep-alive period, zero disables

	MQToken      string `env:"MQ_TOKEN,required"`
	MQProjectID  string `env:"MQ_PROJECT_ID,required"`
	MQHost       string `env:"MQ_HOST" envDefault:"mq-aws-us-east-1.iron.io"`
	MQScheme     string `env:"MQ_SCHEME" envDefault:"https"`
	MQPort       int    `env:"MQ_PORT" envDefault:"443"`
	MQAPIVersion int    `env:"MQ_API_VERSION" envDefault:"3"`
	MQMaxRetries int    `env:"MQ_MAX_RETRIES" envDefault:"5"`

	QueueName           string `env:"QUEUE_NAME,required"`
	WorkerPoolSize      int    `env:"WORKER_POOL_SIZE" envDefault:"10"`
	PollingInterval     int    `env:"POLLING_INTERVAL" envDefault:"5"`
	ReserveBatchSize    int    `env:"RESERVE_BATCH_SIZE" envDefault:"10"`
	ReserveWaitSeconds  int    `env:"RESERVE_WAIT_SECONDS" envDefault:"0"`
	ReleaseDelaySeconds int    `env:"RELEASE_DELAY_SECONDS" envDefault:"30"`
	TouchInterval       int    `env:"TOUCH_INTERVAL" envDefault:"0"`

	CacheRedisEndpoint string `env:"CACHE_REDIS_ENDPOINT"`
	CacheRedisDB       int    `env:"CACHE_REDIS_DB" envDefault:"0"`
	CacheKeyPrefix     string `env:"CACHE_KEY_PREFIX" envDefault:"mq-worker-"`
	WorkerLockName     string `env:"WORKER_LOCK_NAME" envDefault:"mq-worker-lock"`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":8080"`
}

// Parse loads configuration from environment variables, validates and
// normalizes it.
func Parse() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.normalize()

	return &cfg, nil
}

// validate performs all required configuration checks.
func (c *Config) validate() error {
	if c.WorkerPoolSize <= 0 || c.WorkerPoolSize > 100 {
		return errors.New("WORKER_POOL_SIZE must be between 1 and 100")
	}

	if c.ReserveBatchSize <= 0 || c.ReserveBatchSize > 100 {
		return errors.New("RESERVE_BATCH_SIZE must be between 1 and 100")
	}

	if c.PollingInterval <= 0 {
		return errors.New("POLLING_INTERVAL must be greater than 0")
	}

	if c.ReleaseDelaySeconds < 0 {
		return errors.New("RELEASE_DELAY_SECONDS must not be negative")
	}

	if c.TouchInterval < 0 {
		return errors.New("TOUCH_INTERVAL must not be negative")
	}

	if c.MQScheme != "http" && c.MQScheme != "https" {
		return errors.New("MQ_SCHEME must be 'http' or 'https'")
	}

	return nil
}

// normalize converts int values to durations and sets derived fields.
func (c *Config) normalize() {
	c.PollingIntervalDuration = time.Duration(c.PollingInterval) * time.Second
	c.ReleaseDelayDuration = time.Duration(c.ReleaseDelaySeconds) * time.Second
	c.TouchIntervalDuration = time.Duration(c.TouchInterval) * time.Second
}

// MQ builds the client library configuration from the environment values.
func (c *Config) MQ() mq.Config {
	return mq.Config{
		Token:      c.MQToken,
		ProjectID:  c.MQProjectID,
		APIVersion: c.MQAPIVersion,
		Scheme:     c.MQScheme,
		Host:       c.MQHost,
		Port:       c.MQPort,
		MaxRetries: c.MQMaxRetries,
	}
}
