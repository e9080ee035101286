package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mtdcr/hmqtt/internal/infrastructure/config"
)

// Logger wraps slog.Logger and stamps every record with the bridge's
// identity. One logger is built at startup and handed to every collaborator
// (bridge loops, CCU callback server, recorder, MQTT wrapper), so a single
// grep for service=hmqtt yields the whole run.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging section of config.yaml.
//
// Format selects the handler: "text" for reading a terminal during
// descriptor development, anything else gets JSON for log shippers.
// Output selects stdout or stderr. Unrecognised levels fall back to info
// rather than failing startup; a bridge that cannot log its config error
// helps nobody.
//
// Every record carries service=hmqtt and the build version so events from
// multiple bridge instances on one broker remain attributable.
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "hmqtt"),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// parseLevel maps a config string to a slog.Level, defaulting to info.
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

// With returns a new Logger carrying additional default attributes.
//
// Example:
//
//	ccuLog := log.With("component", "homematic")
//	ccuLog.Info("callback server listening") // includes component=homematic
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Default returns a JSON/info/stdout logger for the window between process
// start and config load. Anything logged through it carries version "dev";
// run() swaps in the configured logger as soon as the config file is read.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
