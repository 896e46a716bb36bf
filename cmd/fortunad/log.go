package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"

	"fortunad/internal/accumulator"
	"fortunad/internal/ingest"
)

// log is fortunad's own top-level logger, for lines that don't belong to
// any particular internal package (startup, config, HTTP server lifecycle).
var log = slog.Disabled

// initLogging builds the real slog backend — stdout plus a rotating file
// under logDir — and wires it into every internal package's logger, the
// same fan-out pattern used across the Decred tool family.
func initLogging(logDir, level string) (func(), error) {
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	logRotator, err := rotator.New(filepath.Join(logDir, "fortunad.log"), 10*1024, false, 3)
	if err != nil {
		return nil, fmt.Errorf("create log rotator: %w", err)
	}

	backend := slog.NewBackend(io.MultiWriter(os.Stdout, logRotator))

	lvl, ok := slog.LevelFromString(level)
	if !ok {
		lvl = slog.LevelInfo
	}

	mkLogger := func(subsystem string) slog.Logger {
		l := backend.Logger(subsystem)
		l.SetLevel(lvl)
		return l
	}

	log = mkLogger("FTNA")
	accumulator.UseLogger(mkLogger("ACCM"))
	ingest.UseLogger(mkLogger("INGS"))

	return func() { logRotator.Close() }, nil
}
