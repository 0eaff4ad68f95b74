package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// MinNonceSecretLength is the shortest accepted server.nonce_secret.
const MinNonceSecretLength = 16

// Validate checks the fields the service cannot run without and the ranges
// of the optional ones.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverWordPress, DriverPostgres:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverWordPress, DriverPostgres, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}

	if c.Redis.Address == "" {
		return errors.New("redis.address is required")
	}

	if c.Worker.Concurrency <= 0 {
		return errors.New("worker.concurrency must be a positive integer")
	}
	if len(c.Worker.Queues) == 0 {
		return errors.New("worker.queues must define at least one queue")
	}
	for name, priority := range c.Worker.Queues {
		if name == "" {
			return errors.New("worker.queues contains an empty queue name")
		}
		if priority <= 0 {
			return fmt.Errorf("worker.queues priority for queue '%s' must be positive", name)
		}
	}

	if c.Site.Timezone != "" {
		if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
			return fmt.Errorf("site.timezone %q is not a known time zone: %w", c.Site.Timezone, err)
		}
	}

	if c.Server.NonceSecret != "" && len(c.Server.NonceSecret) < MinNonceSecretLength {
		return fmt.Errorf("server.nonce_secret must be at least %d characters", MinNonceSecretLength)
	}

	if c.License.ServerURL != "" {
		if _, err := url.ParseRequestURI(c.License.ServerURL); err != nil {
			return fmt.Errorf("license.server_url is not a valid URL: %w", err)
		}
	}
	if c.License.Timeout < 0 {
		return errors.New("license.timeout must not be negative")
	}

	if c.AI.Timeout < 0 {
		return errors.New("ai.timeout must not be negative")
	}
	if c.AI.RequestsPerMinute < 0 {
		return errors.New("ai.requests_per_minute must not be negative")
	}
	if c.AI.Custom.Endpoint != "" {
		if _, err := url.ParseRequestURI(c.AI.Custom.Endpoint); err != nil {
			return fmt.Errorf("ai.custom.endpoint is not a valid URL: %w", err)
		}
	}

	for provider, models := range c.Pricing {
		if provider == "" {
			return errors.New("pricing contains an empty provider name")
		}
		for model, price := range models {
			if model == "" {
				return fmt.Errorf("pricing for provider '%s' contains an empty model name", provider)
			}
			if price.InputPerToken < 0 || price.OutputPerToken < 0 {
				return fmt.Errorf("pricing for provider '%s', model '%s' has negative token cost", provider, model)
			}
		}
	}

	return nil
}
