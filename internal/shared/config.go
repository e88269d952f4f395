package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

const appName = "taskmaster"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Auth     AuthConfig     `toml:"auth"`
	Storage  StorageConfig  `toml:"storage"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// APIConfig describes how to reach the TaskMaster REST API.
type APIConfig struct {
	BaseURL   string          `toml:"base_url"`
	Timeout   int             `toml:"timeout"`
	RateLimit float64         `toml:"rate_limit"`
	UseMock   bool            `toml:"use_mock"`
	Endpoints EndpointsConfig `toml:"endpoints"`
}

// TimeoutDuration returns the per-request timeout, defaulting to 15 seconds.
func (c APIConfig) TimeoutDuration() time.Duration {
	if c.Timeout <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// EndpointsConfig holds the auth endpoint paths, relative to the base URL.
type EndpointsConfig struct {
	Login    string `toml:"login"`
	Register string `toml:"register"`
	Refresh  string `toml:"refresh"`
	Logout   string `toml:"logout"`
	Me       string `toml:"me"`
	Google   string `toml:"google"`
}

// AuthConfig contains third-party identity provider credentials.
type AuthConfig struct {
	Google GoogleConfig `toml:"google"`
}

// GoogleConfig contains Google OAuth client credentials.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// StorageConfig selects the session token backend.
type StorageConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings for the OAuth callback and the mock backend.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig controls log verbosity and the TUI log file.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Storage drivers
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ResolveConfig finds the configuration to use.
//
// An explicit path must exist. Otherwise ./config.toml and then the user config directory are tried,
// falling back to the embedded defaults when neither exists.
func ResolveConfig(path string) (*Config, string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, "", fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		config, err := LoadConfig(path)
		return config, path, err
	}

	candidates := []string{"config.toml", filepath.Join(ConfigDir(), "config.toml")}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			config, err := LoadConfig(candidate)
			return config, candidate, err
		}
	}

	return DefaultConfig(), "", nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ConfigDir returns the per-user configuration directory, honoring XDG_CONFIG_HOME.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+appName)
	}
	return filepath.Join(home, ".config", appName)
}

// SessionPath returns the session file used by the file storage driver.
func (c *Config) SessionPath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(ConfigDir(), "session.json")
}

// LoadEnv loads variables from the given dotenv files, skipping any that do not exist.
// Variables already present in the environment are never overwritten.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values with TASKMASTER_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("TASKMASTER_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("TASKMASTER_USE_MOCK"); v != "" {
		useMock, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: TASKMASTER_USE_MOCK=%q", ErrInvalidConfig, v)
		}
		c.API.UseMock = useMock
	}
	if v := os.Getenv("TASKMASTER_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("TASKMASTER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TASKMASTER_GOOGLE_CLIENT_ID"); v != "" {
		c.Auth.Google.ClientID = v
	}
	if v := os.Getenv("TASKMASTER_GOOGLE_CLIENT_SECRET"); v != "" {
		c.Auth.Google.ClientSecret = v
	}
	return nil
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	if !c.API.UseMock {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("%w: api.base_url %q must be an absolute http(s) URL", ErrInvalidConfig, c.API.BaseURL)
		}
	}

	switch strings.ToLower(c.Storage.Driver) {
	case DriverFile, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	if c.API.Endpoints.Refresh == "" {
		return fmt.Errorf("%w: api.endpoints.refresh is required", ErrInvalidConfig)
	}

	return nil
}
