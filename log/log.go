// log/log.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	*slog.Logger
	LogFile string
	LogDir  string
	Start   time.Time
}

// New returns a Logger that writes JSON records to a rotating file in
// dir; "evtolsim-logs" in the current directory is used if dir is empty.
func New(level string, dir string) *Logger {
	if dir == "" {
		dir = "evtolsim-logs"
	}

	w := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "evtolsim.slog"),
		MaxSize:    32, // MB
		MaxBackups: 4,
		MaxAge:     14,
		Compress:   true,
	}
	if level == "debug" {
		w.MaxSize = 256
	}

	l := NewWithWriter(level, w)
	l.LogFile = w.Filename
	l.LogDir = dir
	return l
}

// NewWithWriter returns a Logger writing JSON records to w. It is mostly
// useful for tests, which can hand it a bytes.Buffer.
func NewWithWriter(level string, w io.Writer) *Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		fmt.Fprintf(os.Stderr, "%s: invalid log level\n", level)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	l := &Logger{
		Logger: slog.New(h),
		Start:  time.Now(),
	}

	l.Info("Hello logging", slog.Time("start", l.Start))
	l.Info("System information",
		slog.String("GOARCH", runtime.GOARCH),
		slog.String("GOOS", runtime.GOOS),
		slog.Int("NumCPUs", runtime.NumCPU()))

	if bi, ok := debug.ReadBuildInfo(); ok {
		var deps []any
		for _, dep := range bi.Deps {
			deps = append(deps, slog.String(dep.Path, dep.Version))
		}
		l.Info("Build",
			slog.String("Go version", bi.GoVersion),
			slog.String("Path", bi.Path),
			slog.Group("Dependencies", deps...))
	}

	return l
}

// Debug wraps slog.Debug to add call stack information (and similarly for
// the following Logger methods...)
//
// A nil *Logger is allowed: debug and info messages are then discarded,
// while warnings and errors still go through to the default slog logger.
func (l *Logger) Debug(msg string, args ...any) {
	if l != nil && l.Logger.Enabled(context.Background(), slog.LevelDebug) {
		args = append([]any{slog.Any("callstack", Callstack(nil))}, args...)
		l.Logger.Debug(msg, args...)
	}
}

func (l *Logger) Debugf(msg string, args ...any) {
	if l != nil && l.Logger.Enabled(context.Background(), slog.LevelDebug) {
		l.Logger.Debug(fmt.Sprintf(msg, args...), slog.Any("callstack", Callstack(nil)))
	}
}

func (l *Logger) Info(msg string, args ...any) {
	if l != nil && l.Logger.Enabled(context.Background(), slog.LevelInfo) {
		args = append([]any{slog.Any("callstack", Callstack(nil))}, args...)
		l.Logger.Info(msg, args...)
	}
}

func (l *Logger) Infof(msg string, args ...any) {
	if l != nil && l.Logger.Enabled(context.Background(), slog.LevelInfo) {
		l.Logger.Info(fmt.Sprintf(msg, args...), slog.Any("callstack", Callstack(nil)))
	}
}

func (l *Logger) Warn(msg string, args ...any) {
	args = append([]any{slog.Any("callstack", Callstack(nil))}, args...)
	if l == nil {
		slog.Warn(msg, args...)
	} else {
		l.Logger.Warn(msg, args...)
	}
}

func (l *Logger) Warnf(msg string, args ...any) {
	if l == nil {
		slog.Warn(fmt.Sprintf(msg, args...), slog.Any("callstack", Callstack(nil)))
	} else {
		l.Logger.Warn(fmt.Sprintf(msg, args...), slog.Any("callstack", Callstack(nil)))
	}
}

func (l *Logger) Error(msg string, args ...any) {
	args = append([]any{slog.Any("callstack", Callstack(nil))}, args...)
	slog.Error(msg, args...)
	if l != nil {
		l.Logger.Error(msg, args...)
	}
}

func (l *Logger) Errorf(msg string, args ...any) {
	slog.Error(fmt.Sprintf(msg, args...), slog.Any("callstack", Callstack(nil)))
	if l != nil {
		l.Logger.Error(fmt.Sprintf(msg, args...), slog.Any("callstack", Callstack(nil)))
	}
}

func (l *Logger) With(args ...any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{
		Logger:  l.Logger.With(args...),
		LogFile: l.LogFile,
		LogDir:  l.LogDir,
		Start:   l.Start,
	}
}

// CatchAndReportCrash must be called via defer. If the goroutine is
// panicking, the crash is reported with ReportCrash and the recovered
// value is returned.
func (l *Logger) CatchAndReportCrash() any {
	err := recover()
	if err != nil {
		l.ReportCrash(err)
	}
	return err
}

// ReportCrash writes the panic value err and the current stack to the log,
// to stdout, and to a crash-*.txt file in the log directory. It is for
// callers that recover themselves, e.g. to re-panic afterward.
func (l *Logger) ReportCrash(err any) {
	l.Errorf("Crashed: %v", err)

	report := fmt.Sprintf("Crashed: %v\n", err)
	report += "Sys: " + runtime.GOARCH + "/" + runtime.GOOS + "\n"
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range bi.Settings {
			report += setting.Key + ": " + setting.Value + "\n"
		}
	}
	report += string(debug.Stack())

	fmt.Println(report)

	if l != nil && l.LogDir != "" {
		fn := filepath.Join(l.LogDir, "crash-"+time.Now().Format("20060102T150405")+".txt")
		_ = os.WriteFile(fn, []byte(report), 0o600)
	}
}
