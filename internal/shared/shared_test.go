package shared

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

func TestLogger(t *testing.T) {
	t.Run("NewLogger Writes To Writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		logger.Info("hello", "key", "value")

		if !strings.Contains(buf.String(), "hello") || !strings.Contains(buf.String(), "key=value") {
			t.Errorf("unexpected log output: %q", buf.String())
		}
	})

	t.Run("WithLogger Adds Fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "component", "api")
		logger.Info("request")

		if !strings.Contains(buf.String(), "component=api") {
			t.Errorf("expected component field, got %q", buf.String())
		}
	})

	t.Run("SetLogLevel Filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		SetLogLevel(logger, log.WarnLevel)
		logger.Info("quiet")

		if buf.Len() != 0 {
			t.Errorf("expected info to be filtered, got %q", buf.String())
		}
	})

	t.Run("NewFileLogger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "tm.log")
		logger, f, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer f.Close()

		logger.Info("to file")
		if _, err := f.Stat(); err != nil {
			t.Errorf("expected log file to exist: %v", err)
		}
	})
}

func TestParseLogLevel(t *testing.T) {
	tc := []struct {
		name string
		in   string
		want log.Level
	}{
		{name: "empty defaults to info", in: "", want: log.InfoLevel},
		{name: "debug", in: "debug", want: log.DebugLevel},
		{name: "mixed case", in: "WARN", want: log.WarnLevel},
		{name: "unknown defaults to info", in: "chatty", want: log.InfoLevel},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLogLevel(tt.in); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("expected a valid uuid, got %q: %v", id, err)
	}
	if id == GenerateID() {
		t.Error("expected unique ids")
	}
}

func TestGenerateState(t *testing.T) {
	state, err := GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state) != 32 {
		t.Errorf("expected 32 characters, got %d (%q)", len(state), state)
	}
	if strings.ContainsAny(state, "+/=") {
		t.Errorf("expected URL-safe state, got %q", state)
	}
}

func TestExitCode(t *testing.T) {
	tc := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitSuccess},
		{name: "session expired", err: fmt.Errorf("load: %w", ErrSessionExpired), want: ExitAuthError},
		{name: "auth rejected", err: ErrAuthRejected, want: ExitAuthError},
		{name: "not authenticated", err: ErrNotAuthenticated, want: ExitAuthError},
		{name: "network", err: fmt.Errorf("%w: dial tcp", ErrNetworkUnavailable), want: ExitBackendError},
		{name: "server", err: ErrServerError, want: ExitBackendError},
		{name: "validation", err: ErrValidationFailed, want: ExitUserError},
		{name: "not found is validation", err: ErrNotFound, want: ExitUserError},
		{name: "unknown", err: errors.New("boom"), want: ExitUserError},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}

	if !errors.Is(ErrNotFound, ErrValidationFailed) {
		t.Error("ErrNotFound should wrap ErrValidationFailed")
	}
}
