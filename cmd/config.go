package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/etnz/moneymanager"
	"github.com/etnz/moneymanager/auth"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfig         = "MM_CONFIG"
	EnvBaseURL        = "MM_BASE_URL"
	EnvSessionBackend = "MM_SESSION_BACKEND"
	EnvSessionPath    = "MM_SESSION_PATH"
	EnvRedisURL       = "MM_REDIS_URL"
	EnvCurrency       = "MM_CURRENCY"
	EnvLogLevel       = "MM_LOG_LEVEL"
	EnvTimeout        = "MM_TIMEOUT"
	EnvVerbose        = "MM_VERBOSE"
)

// Session backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds the settings of the mm tool.
type Config struct {
	BaseURL     string        `yaml:"base_url"`
	RefreshPath string        `yaml:"refresh_path"`
	Session     SessionConfig `yaml:"session"`
	Currency    string        `yaml:"currency"`
	LogLevel    string        `yaml:"log_level"`
	Timeout     time.Duration `yaml:"timeout"`
}

// SessionConfig tells where the session is kept between runs.
type SessionConfig struct {
	Backend  string `yaml:"backend"`
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		BaseURL:     moneymanager.DefaultBaseURL,
		RefreshPath: "/auth/refresh",
		Session:     SessionConfig{Backend: BackendFile, Path: auth.DefaultSessionPath()},
		Currency:    "INR",
		LogLevel:    "info",
	}
}

// dotenvFiles are loaded into the environment, when they exist, before the
// configuration is read.
var dotenvFiles = []string{".env"}

// LoadConfig reads the configuration file at path (or $MM_CONFIG) over the
// defaults, then applies the MM_* environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	for _, name := range dotenvFiles {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("cannot load %s: %w", name, err)
		}
	}

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("cannot read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("cannot parse config %q: %w", path, err)
		}
	}

	overrides := []struct {
		env string
		dst *string
	}{
		{EnvBaseURL, &cfg.BaseURL},
		{EnvSessionBackend, &cfg.Session.Backend},
		{EnvSessionPath, &cfg.Session.Path},
		{EnvRedisURL, &cfg.Session.RedisURL},
		{EnvCurrency, &cfg.Currency},
		{EnvLogLevel, &cfg.LogLevel},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			*o.dst = v
		}
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		cfg.Timeout = d
	}

	return cfg, cfg.Validate()
}

// Validate checks the values that would otherwise fail late.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("invalid base url %q: must be http or https", c.BaseURL)
	}
	switch c.Session.Backend {
	case BackendFile:
		if !filepath.IsAbs(c.Session.Path) {
			return fmt.Errorf("invalid session path %q: must be absolute", c.Session.Path)
		}
	case BackendRedis:
		if c.Session.RedisURL == "" {
			return fmt.Errorf("the redis session backend requires %s", EnvRedisURL)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown session backend %q: use file, redis or memory", c.Session.Backend)
	}
	if money.GetCurrency(c.Currency) == nil {
		return fmt.Errorf("unknown currency %q", c.Currency)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}
