package app

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// parseLogLevel resolves a -log-level value. Empty means info.
func parseLogLevel(name string) (slog.Level, error) {
	if name == "" {
		return slog.LevelInfo, nil
	}
	level, ok := logLevels[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

func checkLogFormat(format string) error {
	switch format {
	case "", "text", "json":
		return nil
	}
	return fmt.Errorf("unknown log format %q", format)
}

// newLogger builds the isolated logger of one App; slog's default logger is
// left alone. NewConfig rejects unknown values, anything that slips past it
// logs as info-level text.
func newLogger(cfg *Config, outW io.Writer) *slog.Logger {
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
