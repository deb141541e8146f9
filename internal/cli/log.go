package cli

import (
	"log/slog"
	"os"

	"github.com/phsym/console-slog"
	slogmulti "github.com/samber/slog-multi"
	"github.com/samber/oops"
	"go.szostok.io/version"
)

// Preinit installs console logging before the config is known.
func Preinit() {
	slog.SetDefault(slog.New(consoleHandler()))
}

func consoleHandler() slog.Handler {
	return console.NewHandler(os.Stderr, &console.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelInfo,
	})
}

// InitLogging fans records out to the console and, when configured, a
// JSON log file. The returned func closes the file.
func InitLogging(cfg *Config) (func() error, error) {
	if cfg.LogFile == "" {
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, oops.Errorf("failed to open log file: %w", err)
	}

	fileHandler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}).
		WithAttrs([]slog.Attr{slog.String("version", version.Get().Version)})

	slog.SetDefault(slog.New(slogmulti.Fanout(consoleHandler(), fileHandler)))
	return f.Close, nil
}
