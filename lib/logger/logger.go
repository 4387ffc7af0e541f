package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// SetupLogger returns the logger for env. local logs text to stdout at debug
// level; dev and prod log JSON to logPath (stdout when empty).
func SetupLogger(env, logPath string) (*slog.Logger, io.Closer, error) {
	if env == EnvLocal {
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		), nopCloser{}, nil
	}

	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}

	switch env {
	case EnvDev:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug})), closer, nil
	case EnvProd:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo})), closer, nil
	}
	_ = closer.Close()
	return nil, nil, fmt.Errorf("invalid environment: %q", env)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
