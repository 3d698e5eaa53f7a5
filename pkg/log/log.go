// Package log configures the process-wide slog logger for the cadence
// binaries. Components derive their own loggers through WithModule; the
// "module" attribute is the filter key used across all cadence log output.
package log

import (
	"log/slog"
	"os"
)

// Setup installs a text handler on stderr as the default logger. Unknown
// level names fall back to info.
func Setup(logLevel string) {
	var level slog.Level

	err := level.UnmarshalText([]byte(logLevel))
	if err != nil {
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule returns a logger tagged with the component's module name,
// matching the "module" attribute the packages attach in their constructors.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
