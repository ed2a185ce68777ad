package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/airlink-home/airlink-core/internal/infrastructure/config"
)

func jsonCfg(level string) config.LoggingConfig {
	return config.LoggingConfig{Level: level, Format: "json", Output: "stdout"}
}

// bufLogger builds a Logger writing to the returned buffer.
func bufLogger(cfg config.LoggingConfig) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Logger{Logger: slog.New(newHandler(cfg, "test", &buf))}, &buf
}

func TestNewHandler_DefaultFields(t *testing.T) {
	log, buf := bufLogger(jsonCfg("info"))
	log.Info("engine started", "devices", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["service"] != "airlink" {
		t.Errorf("service = %v, want airlink", entry["service"])
	}
	if entry["version"] != "test" {
		t.Errorf("version = %v, want test", entry["version"])
	}
	if entry["msg"] != "engine started" {
		t.Errorf("msg = %v, want engine started", entry["msg"])
	}
	if entry["devices"] != float64(3) {
		t.Errorf("devices = %v, want 3", entry["devices"])
	}
}

func TestNewHandler_LevelFiltering(t *testing.T) {
	log, buf := bufLogger(jsonCfg("warn"))

	log.Debug("poll tick")
	log.Info("snapshot published")
	if buf.Len() != 0 {
		t.Fatalf("records below warn were emitted: %s", buf.String())
	}

	log.Warn("device suspended")
	if buf.Len() == 0 {
		t.Fatal("warn record was filtered out")
	}
}

func TestNewHandler_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.LoggingConfig{Level: "info", Format: "text"}
	log := &Logger{Logger: slog.New(newHandler(cfg, "test", &buf))}

	log.Info("bridge connected")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("text format produced JSON: %s", out)
	}
	if !strings.Contains(out, "bridge connected") {
		t.Errorf("output missing message: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestWith_AddsComponentTag(t *testing.T) {
	log, buf := bufLogger(jsonCfg("info"))

	log.With("component", "engine").Info("session started", "device_id", "bedroom")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["component"] != "engine" {
		t.Errorf("component = %v, want engine", entry["component"])
	}
	if entry["device_id"] != "bedroom" {
		t.Errorf("device_id = %v, want bedroom", entry["device_id"])
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}
}
