package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.API.BaseURL != "http://localhost:8000/api" {
			t.Errorf("expected base URL http://localhost:8000/api, got %s", config.API.BaseURL)
		}
		if config.API.Endpoints.Refresh != "/auth/token/refresh/" {
			t.Errorf("expected refresh endpoint /auth/token/refresh/, got %s", config.API.Endpoints.Refresh)
		}
		if config.API.UseMock {
			t.Error("expected use_mock to default to false")
		}
		if config.Storage.Driver != DriverFile {
			t.Errorf("expected storage driver file, got %s", config.Storage.Driver)
		}
		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "nested", "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		t.Run("Overrides Keep Defaults", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			testConfig := `[api]
base_url = "https://tasks.example.com/api"
use_mock = true

[storage]
driver = "sqlite"
`
			if err := os.WriteFile(configPath, []byte(testConfig), 0o644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			config, err := LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to load config: %v", err)
			}

			if config.API.BaseURL != "https://tasks.example.com/api" {
				t.Errorf("expected overridden base URL, got %s", config.API.BaseURL)
			}
			if !config.API.UseMock {
				t.Error("expected use_mock true")
			}
			if config.Storage.Driver != DriverSQLite {
				t.Errorf("expected sqlite driver, got %s", config.Storage.Driver)
			}
			if config.API.Endpoints.Login != "/auth/login/" {
				t.Errorf("expected default login endpoint to survive, got %q", config.API.Endpoints.Login)
			}
		})

		t.Run("Invalid TOML", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(configPath, []byte("[api\nbase_url="), 0o644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			_, err := LoadConfig(configPath)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("Missing File", func(t *testing.T) {
			if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
				t.Error("expected error for missing file")
			}
		})
	})

	t.Run("ResolveConfig", func(t *testing.T) {
		t.Run("Explicit Path Must Exist", func(t *testing.T) {
			_, _, err := ResolveConfig(filepath.Join(t.TempDir(), "missing.toml"))
			if !errors.Is(err, ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
		})

		t.Run("Falls Back To Defaults", func(t *testing.T) {
			dir := t.TempDir()
			t.Setenv("XDG_CONFIG_HOME", dir)
			t.Chdir(dir)

			config, path, err := ResolveConfig("")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if path != "" {
				t.Errorf("expected no path for defaults, got %s", path)
			}
			if config.API.BaseURL != DefaultConfig().API.BaseURL {
				t.Error("expected default config")
			}
		})

		t.Run("Finds XDG Config", func(t *testing.T) {
			dir := t.TempDir()
			t.Setenv("XDG_CONFIG_HOME", dir)
			t.Chdir(t.TempDir())

			want := filepath.Join(dir, "taskmaster", "config.toml")
			if err := CreateConfigFile(want); err != nil {
				t.Fatalf("failed to create config: %v", err)
			}

			_, path, err := ResolveConfig("")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if path != want {
				t.Errorf("expected %s, got %s", want, path)
			}
		})
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("TASKMASTER_API_BASE_URL", "https://env.example.com/api")
		t.Setenv("TASKMASTER_USE_MOCK", "true")
		t.Setenv("TASKMASTER_STORAGE_DRIVER", "memory")

		config := DefaultConfig()
		if err := config.ApplyEnv(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if config.API.BaseURL != "https://env.example.com/api" {
			t.Errorf("expected env base URL, got %s", config.API.BaseURL)
		}
		if !config.API.UseMock {
			t.Error("expected use_mock from env")
		}
		if config.Storage.Driver != DriverMemory {
			t.Errorf("expected memory driver, got %s", config.Storage.Driver)
		}

		t.Run("Bad Bool", func(t *testing.T) {
			t.Setenv("TASKMASTER_USE_MOCK", "maybe")
			if err := DefaultConfig().ApplyEnv(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("LoadEnv", func(t *testing.T) {
		dir := t.TempDir()
		envPath := filepath.Join(dir, ".env")
		if err := os.WriteFile(envPath, []byte("TASKMASTER_TEST_VALUE=from-dotenv\n"), 0o644); err != nil {
			t.Fatalf("failed to write .env: %v", err)
		}
		t.Setenv("TASKMASTER_TEST_VALUE", "")
		os.Unsetenv("TASKMASTER_TEST_VALUE")

		if err := LoadEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := os.Getenv("TASKMASTER_TEST_VALUE"); got != "from-dotenv" {
			t.Errorf("expected from-dotenv, got %q", got)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		t.Run("Relative Base URL", func(t *testing.T) {
			config := DefaultConfig()
			config.API.BaseURL = "/api"
			if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("Mock Ignores Base URL", func(t *testing.T) {
			config := DefaultConfig()
			config.API.BaseURL = ""
			config.API.UseMock = true
			if err := config.Validate(); err != nil {
				t.Errorf("expected mock config to validate, got %v", err)
			}
		})

		t.Run("Unknown Driver", func(t *testing.T) {
			config := DefaultConfig()
			config.Storage.Driver = "redis"
			if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("TimeoutDuration", func(t *testing.T) {
		if got := (APIConfig{}).TimeoutDuration(); got != 15*time.Second {
			t.Errorf("expected 15s default, got %v", got)
		}
		if got := (APIConfig{Timeout: 3}).TimeoutDuration(); got != 3*time.Second {
			t.Errorf("expected 3s, got %v", got)
		}
	})

	t.Run("SessionPath", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
		config := DefaultConfig()
		if got := config.SessionPath(); got != filepath.Join("/tmp/xdg", "taskmaster", "session.json") {
			t.Errorf("unexpected session path %s", got)
		}
		config.Storage.Path = "/custom/session.json"
		if got := config.SessionPath(); got != "/custom/session.json" {
			t.Errorf("expected custom path, got %s", got)
		}
	})
}
