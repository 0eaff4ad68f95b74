package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"autotag/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig returns a valid configuration for tests, with the scheduler lock
// placed in a per-test temp directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfg := &config.Config{}
	cfg.Database.Driver = config.DriverWordPress
	cfg.Database.DSN = "test"
	cfg.Database.TablePrefix = "wp_"
	cfg.Redis.Address = "127.0.0.1:6379"
	cfg.Worker.Concurrency = 1
	cfg.Worker.Queues = map[string]int{"schedule": 1}
	cfg.Site.URL = "https://blog.example"
	cfg.Site.Timezone = "UTC"
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.APIToken = "test-token"
	cfg.Server.NonceSecret = "test-nonce-secret-0123"
	cfg.Server.AdminURL = "/admin?page=gd-autotag&tab=settings"
	cfg.License.PluginVersion = "1.0.0"
	cfg.License.Timeout = time.Second
	cfg.AI.Timeout = time.Second
	cfg.Scheduler.LockPath = filepath.Join(t.TempDir(), "autotag.lock")

	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithTimezone sets the site time zone.
func WithTimezone(tz string) ConfigOption {
	return func(c *config.Config) {
		c.Site.Timezone = tz
	}
}

// WithLicenseServer points license checks at url.
func WithLicenseServer(url string) ConfigOption {
	return func(c *config.Config) {
		c.License.ServerURL = url
	}
}
