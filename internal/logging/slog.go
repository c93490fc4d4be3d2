// Package logging writes the per-generation evolution stream, champion files
// and process logs.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// NewSlog returns a text logger writing to w at the named level.
func NewSlog(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "", "info":
		lvl = slog.LevelInfo
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
