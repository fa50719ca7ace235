// Package config loads the aluconfig settings.
//
// Precedence, lowest first: built-in defaults, the YAML file, a .env file,
// process environment, then command-line flags (applied by the caller).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Notifier backends.
const (
	NotifierMemory = "memory"
	NotifierRedis  = "redis"
)

// HTTPConfig configures the session service.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// NotifierConfig selects how session changes reach watchers.
type NotifierConfig struct {
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
	Channel   string `yaml:"channel"`
}

// RemoteConfig points front-ends at a session service.
type RemoteConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Config is the full application configuration.
type Config struct {
	HTTP        HTTPConfig     `yaml:"http"`
	DataDir     string         `yaml:"data_dir"`
	CatalogPath string         `yaml:"catalog_path"`
	FacetsPath  string         `yaml:"facets_path"`
	BaseURL     string         `yaml:"base_url"`
	ImageBase   string         `yaml:"image_base"`
	Log         LogConfig      `yaml:"log"`
	Notifier    NotifierConfig `yaml:"notifier"`
	Remote      RemoteConfig   `yaml:"remote"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":3000",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		DataDir: filepath.Join(home, ".aluconfig"),
		Log: LogConfig{
			Level: "info",
		},
		Notifier: NotifierConfig{
			Backend: NotifierMemory,
			Channel: "aluconfig:sessions",
		},
		Remote: RemoteConfig{
			Timeout: 5 * time.Second,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv loads envFile (if present) into the environment and applies
// the ALUCONFIG_* variables. PORT is honoured for hosted deployments.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if port, ok := lookup("PORT"); ok && port != "" {
		c.HTTP.Addr = ":" + port
	}
	str("ALUCONFIG_HTTP_ADDR", &c.HTTP.Addr)
	if v, ok := lookup("ALUCONFIG_ALLOWED_ORIGINS"); ok && v != "" {
		c.HTTP.AllowedOrigins = splitList(v)
	}
	str("ALUCONFIG_DATA_DIR", &c.DataDir)
	str("ALUCONFIG_CATALOG", &c.CatalogPath)
	str("ALUCONFIG_FACETS", &c.FacetsPath)
	str("ALUCONFIG_BASE_URL", &c.BaseURL)
	str("ALUCONFIG_IMAGE_BASE", &c.ImageBase)
	str("ALUCONFIG_LOG_LEVEL", &c.Log.Level)
	str("ALUCONFIG_LOG_DIR", &c.Log.Dir)
	str("ALUCONFIG_NOTIFIER", &c.Notifier.Backend)
	str("ALUCONFIG_REDIS_ADDR", &c.Notifier.RedisAddr)
	str("ALUCONFIG_REDIS_CHANNEL", &c.Notifier.Channel)
	str("ALUCONFIG_REMOTE_URL", &c.Remote.URL)

	if v, ok := lookup("ALUCONFIG_LOG_JSON"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: ALUCONFIG_LOG_JSON: %v", ErrInvalid, err)
		}
		c.Log.JSON = b
	}
	if v, ok := lookup("ALUCONFIG_REMOTE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: ALUCONFIG_REMOTE_TIMEOUT: %v", ErrInvalid, err)
		}
		c.Remote.Timeout = d
	}
	return nil
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("%w: http.addr cannot be empty", ErrInvalid)
	}
	if c.HTTP.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: http.shutdown_timeout must be >= 0, got %v", ErrInvalid, c.HTTP.ShutdownTimeout)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir cannot be empty", ErrInvalid)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log.level %q must be one of debug, info, warn, error", ErrInvalid, c.Log.Level)
	}
	switch c.Notifier.Backend {
	case NotifierMemory:
	case NotifierRedis:
		if c.Notifier.RedisAddr == "" {
			return fmt.Errorf("%w: notifier.redis_addr is required for the redis backend", ErrInvalid)
		}
		if c.Notifier.Channel == "" {
			return fmt.Errorf("%w: notifier.channel cannot be empty", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: notifier.backend %q must be %q or %q", ErrInvalid, c.Notifier.Backend, NotifierMemory, NotifierRedis)
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("%w: remote.timeout must be > 0", ErrInvalid)
	}
	if c.Remote.URL != "" && !strings.HasPrefix(c.Remote.URL, "http://") && !strings.HasPrefix(c.Remote.URL, "https://") {
		return fmt.Errorf("%w: remote.url %q must be http(s)", ErrInvalid, c.Remote.URL)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
