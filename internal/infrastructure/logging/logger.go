package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/airlink-home/airlink-core/internal/infrastructure/config"
)

// Logger is Airlink's structured logger: slog with every record
// stamped with the service name and build version. The gateway,
// engine, bridge, and MQTT client each accept only the narrow logging
// interface they need, so this concrete type stays confined to main.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging section of config.yaml. JSON is
// the default format; text is for watching a dev instance by eye.
func New(cfg config.LoggingConfig, version string) *Logger {
	return &Logger{Logger: slog.New(newHandler(cfg, version, outputFor(cfg.Output)))}
}

func outputFor(name string) io.Writer {
	if strings.EqualFold(name, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// newHandler builds the slog handler with Airlink's default fields
// attached. Split from New so tests can point it at a buffer.
func newHandler(cfg config.LoggingConfig, version string, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	return h.WithAttrs([]slog.Attr{
		slog.String("service", "airlink"),
		slog.String("version", version),
	})
}

// parseLevel maps a config string onto a slog level. Unrecognised
// values fall back to info rather than failing startup.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying extra default attributes,
// typically a component tag:
//
//	pollLog := log.With("component", "engine")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the bootstrap logger used before config.yaml has been
// parsed: JSON to stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
