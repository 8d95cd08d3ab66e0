// Package logging configures the process-wide structured logger: a
// log/slog text handler fanned out to stdout and a log file on disk,
// the same shape services/mape uses in the teacher corpus.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
)

// Init opens (creating if needed) a log file under dir and returns a
// *slog.Logger that writes to both it and stdout, plus the file handle
// so the caller can Close it on shutdown. If the file can't be opened,
// Init falls back to stdout only rather than failing startup.
func Init(dir, filename string) (*slog.Logger, *os.File) {
	if dir == "" {
		dir = "./logs"
	}
	if filename == "" {
		filename = "hvac-agent.log"
	}
	_ = os.MkdirAll(dir, 0o755)

	path := filepath.Join(dir, filename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
		logger.Error("failed to open log file; falling back to stdout only", "error", err, "path", path)
		return logger, nil
	}

	mw := io.MultiWriter(f, os.Stdout)
	h := slog.NewTextHandler(mw, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(h)

	// align the legacy stdlib logger (used by some dependencies'
	// internal diagnostics) with the same multi-writer
	log.SetOutput(mw)
	return logger, f
}
