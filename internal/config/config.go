package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PricingInfo holds cost details per token for a specific model.
type PricingInfo struct {
	InputPerToken  float64 `mapstructure:"input_per_token"`
	OutputPerToken float64 `mapstructure:"output_per_token"`
}

// Database drivers.
const (
	DriverWordPress = "wordpress"
	DriverPostgres  = "postgres"
)

// AIConfig configures the outbound tag optimization providers. The provider
// choice and its API key live in the site settings, not here.
type AIConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Models            struct {
		OpenAI    string `mapstructure:"openai"`
		Anthropic string `mapstructure:"anthropic"`
		Google    string `mapstructure:"google"`
	} `mapstructure:"models"`
	OpenAIBaseURL    string `mapstructure:"openai_base_url"`
	AnthropicBaseURL string `mapstructure:"anthropic_base_url"`
	GoogleEndpoint   string `mapstructure:"google_endpoint"`
	// PromptTemplate is an optional path to a custom optimization prompt.
	PromptTemplate string `mapstructure:"prompt_template"`
	Custom         struct {
		Endpoint string            `mapstructure:"endpoint"`
		Headers  map[string]string `mapstructure:"headers"`
	} `mapstructure:"custom"`
}

type Config struct {
	Database struct {
		Driver      string `mapstructure:"driver"`
		DSN         string `mapstructure:"dsn"`
		TablePrefix string `mapstructure:"table_prefix"`
		// Pool limits, applied to both drivers.
		MaxOpenConns    int           `mapstructure:"max_open_conns"`
		MaxIdleConns    int           `mapstructure:"max_idle_conns"`
		ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
		// Migrate creates the postgres schema on startup.
		Migrate bool `mapstructure:"migrate"`
	} `mapstructure:"database"`

	Redis struct {
		Address  string `mapstructure:"address"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Worker struct {
		Concurrency int            `mapstructure:"concurrency"`
		Queues      map[string]int `mapstructure:"queues"`
	} `mapstructure:"worker"`

	Site struct {
		URL      string `mapstructure:"url"`
		Timezone string `mapstructure:"timezone"`
	} `mapstructure:"site"`

	Server struct {
		Addr        string `mapstructure:"addr"`
		APIToken    string `mapstructure:"api_token"`
		NonceSecret string `mapstructure:"nonce_secret"`
		// AdminURL is where the manual run redirects by default.
		AdminURL string `mapstructure:"admin_url"`
	} `mapstructure:"server"`

	License struct {
		ServerURL     string        `mapstructure:"server_url"`
		PluginVersion string        `mapstructure:"plugin_version"`
		Timeout       time.Duration `mapstructure:"timeout"`
	} `mapstructure:"license"`

	AI AIConfig `mapstructure:"ai"`

	Scheduler struct {
		// LockPath enables a file lock around batch runs when set.
		LockPath string `mapstructure:"lock_path"`
	} `mapstructure:"scheduler"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	// Pricing: map[provider][model] = struct{input_per_token, output_per_token}
	Pricing map[string]map[string]PricingInfo `mapstructure:"pricing"`
}

// Location returns the site time zone, UTC when unset or unknown.
func (c *Config) Location() *time.Location {
	if c.Site.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverWordPress)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.table_prefix", "wp_")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.migrate", true)
	v.SetDefault("redis.address", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("worker.concurrency", 1)
	v.SetDefault("worker.queues", map[string]int{"schedule": 1})
	v.SetDefault("site.url", "")
	v.SetDefault("site.timezone", "UTC")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.api_token", "")
	v.SetDefault("server.nonce_secret", "")
	v.SetDefault("server.admin_url", "/admin?page=gd-autotag&tab=settings")
	v.SetDefault("license.server_url", "")
	v.SetDefault("license.plugin_version", "1.0.0")
	v.SetDefault("license.timeout", 15*time.Second)
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.requests_per_minute", 0)
	v.SetDefault("ai.models.openai", "gpt-3.5-turbo")
	v.SetDefault("ai.models.anthropic", "claude-3-haiku-20240307")
	v.SetDefault("ai.models.google", "gemini-pro")
	v.SetDefault("ai.openai_base_url", "")
	v.SetDefault("ai.anthropic_base_url", "https://api.anthropic.com")
	v.SetDefault("ai.google_endpoint", "")
	v.SetDefault("ai.prompt_template", "")
	v.SetDefault("ai.custom.endpoint", "")
	v.SetDefault("scheduler.lock_path", "")
	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml from the working directory or
// ~/.config/autotag, a .env file if present, and AUTOTAG_* environment
// variables, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "autotag"))
	}

	v.SetEnvPrefix("AUTOTAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults and env vars still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	return &cfg, nil
}
