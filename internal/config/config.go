// Package config is the configuration of tmsctl, read from a json5 file with
// optional .local overrides, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"tmsassist/internal/components/chrono"
	"tmsassist/internal/components/configutil"
	"tmsassist/internal/portal"
	"tmsassist/internal/store"

	"github.com/go-playground/validator/v10"
)

const DefaultName = "tmsctl.json5"

type PortalConfig struct {
	BaseUrl           string  `json:"base_url" validate:"required,url"`
	TimeoutSeconds    int     `json:"timeout_seconds" validate:"gte=0"`
	RequestsPerSecond float64 `json:"requests_per_second" validate:"gte=0"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`
}

type BatchConfig struct {
	IntervalMs    int `json:"interval_ms" validate:"gte=0"`
	MinIntervalMs int `json:"min_interval_ms" validate:"gte=0"`
}

type DatabaseConfig struct {
	Driver string `json:"driver" validate:"required,oneof=sqlite pgx"`
	Dsn    string `json:"dsn" validate:"required"`
}

type LlmConfig struct {
	Provider string `json:"provider" validate:"omitempty,oneof=anthropic openai"`
	Model    string `json:"model"`
	BaseUrl  string `json:"base_url" validate:"omitempty,url"`
	ApiKey   string `json:"api_key"`
}

type DaemonConfig struct {
	// Cron is a standard 5 field cron spec evaluated in Timezone.
	Cron  string `json:"cron" validate:"required"`
	Range string `json:"range" validate:"omitempty,oneof=today month"`
}

type Config struct {
	Portal   PortalConfig   `json:"portal"`
	Batch    BatchConfig    `json:"batch"`
	Database DatabaseConfig `json:"database"`
	Llm      LlmConfig      `json:"llm"`
	Daemon   DaemonConfig   `json:"daemon"`
	Timezone string         `json:"timezone"`
	// Profile is the name the current session is stored under.
	Profile string `json:"profile" validate:"required"`
}

func (c Config) PortalTimeout() time.Duration {
	return time.Duration(c.Portal.TimeoutSeconds) * time.Second
}

func (c Config) BatchInterval() time.Duration {
	return time.Duration(c.Batch.IntervalMs) * time.Millisecond
}

func (c Config) BatchMinInterval() time.Duration {
	return time.Duration(c.Batch.MinIntervalMs) * time.Millisecond
}

func defaultDsn() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "tmsassist.db"
	}
	return filepath.Join(dir, "tmsassist", "tmsassist.db")
}

func (c *Config) applyDefaults() {
	if c.Portal.BaseUrl == "" {
		c.Portal.BaseUrl = portal.DefaultBaseUrl
	}
	if c.Portal.TimeoutSeconds == 0 {
		c.Portal.TimeoutSeconds = 30
	}
	if c.Batch.IntervalMs == 0 {
		c.Batch.IntervalMs = 200
	}
	if c.Batch.MinIntervalMs == 0 {
		c.Batch.MinIntervalMs = 200
	}
	if c.Database.Driver == "" {
		c.Database.Driver = store.DriverSqlite
	}
	if c.Database.Dsn == "" && c.Database.Driver == store.DriverSqlite {
		c.Database.Dsn = defaultDsn()
	}
	if c.Timezone == "" {
		c.Timezone = chrono.DefaultLocation
	}
	if c.Daemon.Cron == "" {
		c.Daemon.Cron = "*/30 9-22 * * *"
	}
	if c.Daemon.Range == "" {
		c.Daemon.Range = string(chrono.WindowToday)
	}
	if c.Profile == "" {
		c.Profile = "default"
	}
}

func (c *Config) applyEnv() {
	configutil.EnvOverride(&c.Portal.BaseUrl, "TMS_BASE_URL")
	configutil.EnvOverride(&c.Database.Driver, "TMS_DB_DRIVER")
	configutil.EnvOverride(&c.Database.Dsn, "TMS_DB_DSN")
	configutil.EnvOverride(&c.Profile, "TMS_PROFILE")
	configutil.EnvOverride(&c.Llm.Provider, "TMS_LLM_PROVIDER")

	switch strings.ToLower(c.Llm.Provider) {
	case "anthropic":
		configutil.EnvOverride(&c.Llm.ApiKey, "ANTHROPIC_API_KEY")
	case "openai":
		configutil.EnvOverride(&c.Llm.ApiKey, "OPENAI_API_KEY")
	}
	configutil.EnvOverride(&c.Llm.ApiKey, "TMS_LLM_API_KEY")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the config at path. A bare file name is searched for from the
// working directory upwards, a missing file leaves every value at its
// default. dotenv files are loaded before environment overrides apply.
func Load(path string, dotenv ...string) (Config, error) {
	if path == "" {
		path = DefaultName
	}

	var cfg Config
	var err error
	if filepath.IsAbs(path) || strings.ContainsRune(path, filepath.Separator) {
		cfg, err = configutil.ReadConfig[Config](path)
	} else {
		cfg, err = configutil.ReadRecursively[Config](path)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	err = configutil.LoadDotenv(dotenv...)
	if err != nil {
		return Config{}, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	err = validate.Struct(cfg)
	if err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
