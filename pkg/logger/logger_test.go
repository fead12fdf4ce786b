package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wonny/bondalloc/pkg/config"
)

func jsonLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&config.Config{Env: "test", LogLevel: level, LogFormat: "json"}, buf)
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"invalid", zerolog.InfoLevel}, // Default
		{"", zerolog.InfoLevel},        // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf, "warn")

	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("Expected info to be filtered at warn level, got %s", buf.String())
	}

	log.Warnf("band %s is tight", "duration")
	entry := decode(t, &buf)
	if entry["level"] != "warn" {
		t.Errorf("Expected level warn, got %v", entry["level"])
	}
	if entry["message"] != "band duration is tight" {
		t.Errorf("Unexpected message %v", entry["message"])
	}
	if entry["env"] != "test" {
		t.Errorf("Expected env field, got %v", entry["env"])
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf, "debug")

	log.WithFields(map[string]interface{}{
		"benchmark": "SPAB",
		"variables": 12,
	}).WithField("problem", "optimize_ytm").Debug("model built")

	entry := decode(t, &buf)
	if entry["benchmark"] != "SPAB" {
		t.Errorf("Expected benchmark SPAB, got %v", entry["benchmark"])
	}
	if entry["variables"] != float64(12) {
		t.Errorf("Expected variables 12, got %v", entry["variables"])
	}
	if entry["problem"] != "optimize_ytm" {
		t.Errorf("Expected problem field, got %v", entry["problem"])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf, "info")

	log.WithError(errors.New("model is infeasible")).Error("allocation failed")

	entry := decode(t, &buf)
	if entry["error"] != "model is infeasible" {
		t.Errorf("Expected error field, got %v", entry["error"])
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "test", LogLevel: "info", LogFormat: "console"}, &buf)

	log.Info("test message")

	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", buf.String())
	}
}

func TestNop(t *testing.T) {
	// must not panic
	Nop().WithField("k", "v").Error("discarded")
}
