// Package log configures the process-wide slog logger.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	charmlog "charm.land/log/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
	rotator     *lumberjack.Logger
)

// Setup routes the default slog logger to a rotating JSON log file. It only
// takes effect once per process.
func Setup(logFile string, debug bool) {
	initOnce.Do(func() {
		rotator = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // Max size in MB
			MaxBackups: 0,
			MaxAge:     30, // Days
			Compress:   false,
		}

		handler := slog.NewJSONHandler(rotator, &slog.HandlerOptions{
			Level:     level(debug),
			AddSource: true,
		})
		slog.SetDefault(slog.New(handler))
		initialized.Store(true)
	})
}

// Initialized reports whether Setup ran.
func Initialized() bool {
	return initialized.Load()
}

// Close flushes and closes the log file opened by Setup.
func Close() error {
	if rotator == nil {
		return nil
	}
	return rotator.Close()
}

// Console returns a human-readable logger for output that happens outside
// the TUI, such as startup warnings.
func Console(w io.Writer, debug bool) *slog.Logger {
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.InfoLevel,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "editorbind",
	})
	if debug {
		handler.SetLevel(charmlog.DebugLevel)
	}
	return slog.New(handler)
}

// RecoverPanic recovers a panic in the calling goroutine, writes the stack
// to a panic log in the working directory and runs cleanup.
func RecoverPanic(name string, cleanup func()) {
	r := recover()
	if r == nil {
		return
	}

	filename := fmt.Sprintf("editorbind-panic-%s-%s.log", name, time.Now().Format("20060102-150405"))
	if f, err := os.Create(filepath.Clean(filename)); err == nil {
		fmt.Fprintf(f, "Panic in %s: %v\n\n", name, r)
		fmt.Fprintf(f, "Time: %s\n\n", time.Now().Format(time.RFC3339))
		fmt.Fprintf(f, "Stack Trace:\n%s\n", debug.Stack())
		_ = f.Close()
	}
	slog.Error("Recovered from panic", "name", name, "panic", r)

	if cleanup != nil {
		cleanup()
	}
}

func level(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
