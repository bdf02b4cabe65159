package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"log/slog"
)

var (
	levelVar   slog.LevelVar
	loggerMu   sync.RWMutex
	baseLogger *slog.Logger
)

// Options controls Setup.
type Options struct {
	Level    string
	FilePath string
	LLMPath  string
	Stdout   io.Writer
}

// Handle owns the files opened by Setup. Close it on shutdown.
type Handle struct {
	files []*os.File
}

// Setup initializes process logging once at start. Nothing is configured at
// package load; before Setup every helper writes to stdout at info level.
func Setup(opts Options) (*Handle, error) {
	h := &Handle{}
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	if path := strings.TrimSpace(opts.FilePath); path != "" {
		f, err := openAppend(path)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		h.files = append(h.files, f)
		out = io.MultiWriter(out, f)
	}
	SetOutput(out)
	SetLevel(opts.Level)

	SetLLMWriter(nil)
	if path := strings.TrimSpace(opts.LLMPath); path != "" {
		f, err := openAppend(path)
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("open llm log file: %w", err)
		}
		h.files = append(h.files, f)
		SetLLMWriter(f)
	}
	return h, nil
}

// Close releases log files and routes output back to stdout.
func (h *Handle) Close() error {
	if h == nil {
		return nil
	}
	SetOutput(os.Stdout)
	SetLLMWriter(nil)
	var firstErr error
	for _, f := range h.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	h.files = nil
	return firstErr
}

func openAppend(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func newLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar})
	return slog.New(handler)
}

func SetOutput(w io.Writer) {
	loggerMu.Lock()
	baseLogger = newLogger(w)
	loggerMu.Unlock()
}

func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "info":
		levelVar.Set(slog.LevelInfo)
	case "warn", "warning":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

func activeLogger() *slog.Logger {
	loggerMu.RLock()
	l := baseLogger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if baseLogger == nil {
		baseLogger = newLogger(os.Stdout)
	}
	return baseLogger
}

func Debugf(format string, v ...any) {
	activeLogger().Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	activeLogger().Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	activeLogger().Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	activeLogger().Error(fmt.Sprintf(format, v...))
}

// With returns a structured logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return activeLogger().With(args...)
}

func InfoBlock(block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	lines := strings.Split(block, "\n")
	for _, line := range lines {
		Infof("%s", line)
	}
}
