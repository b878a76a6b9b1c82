// Package log defines the leveled logger contract consumed by every
// Glintchain package (blockchain, mempool, mining, peer, netsync, connmgr).
// Packages hold a package-level Logger initialized to Disabled and only
// start producing output once the daemon calls UseLogger with a concrete
// implementation (see cmd/glintd).
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Level describes the severity of a log message.
type Level uint32

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

// LevelFromString returns a level based on the input string s.  If the
// input can't be interpreted as a valid log level, the info level and
// false is returned.
func LevelFromString(s string) (Level, bool) {
	switch strings.ToLower(s) {
	case "trace", "trc":
		return LevelTrace, true
	case "debug", "dbg":
		return LevelDebug, true
	case "info", "inf":
		return LevelInfo, true
	case "warn", "wrn":
		return LevelWarn, true
	case "error", "err":
		return LevelError, true
	case "critical", "crt":
		return LevelCritical, true
	case "off":
		return LevelOff, true
	default:
		return LevelInfo, false
	}
}

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRC"
	case LevelDebug:
		return "DBG"
	case LevelInfo:
		return "INF"
	case LevelWarn:
		return "WRN"
	case LevelError:
		return "ERR"
	case LevelCritical:
		return "CRT"
	default:
		return "OFF"
	}
}

// Logger is the interface that package-level "log" vars satisfy.  It is
// intentionally small: formatted logging only, no structured fields, in
// the btclog style.
type Logger interface {
	Tracef(format string, params ...interface{})
	Debugf(format string, params ...interface{})
	Infof(format string, params ...interface{})
	Warnf(format string, params ...interface{})
	Errorf(format string, params ...interface{})
	Criticalf(format string, params ...interface{})

	SetLevel(level Level)
	Level() Level
}

type slogLogger struct {
	mu     sync.RWMutex
	level  Level
	tag    string
	handle *slog.Logger
}

// NewBackend constructs a Logger that writes via slog to w, prefixed with
// subsystem tag (e.g. "CHAIN", "MEMP", "PEER").
func NewBackend(w io.Writer, tag string, level Level) Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &slogLogger{
		level:  level,
		tag:    tag,
		handle: slog.New(h),
	}
}

func (l *slogLogger) log(lvl Level, format string, params ...interface{}) {
	l.mu.RLock()
	cur := l.level
	l.mu.RUnlock()
	if lvl < cur {
		return
	}
	msg := fmt.Sprintf(format, params...)
	l.handle.Info(fmt.Sprintf("%s %s [%s] %s", time.Now().Format("2006-01-02 15:04:05.000"), lvl, l.tag, msg))
}

func (l *slogLogger) Tracef(format string, p ...interface{})    { l.log(LevelTrace, format, p...) }
func (l *slogLogger) Debugf(format string, p ...interface{})    { l.log(LevelDebug, format, p...) }
func (l *slogLogger) Infof(format string, p ...interface{})     { l.log(LevelInfo, format, p...) }
func (l *slogLogger) Warnf(format string, p ...interface{})     { l.log(LevelWarn, format, p...) }
func (l *slogLogger) Errorf(format string, p ...interface{})    { l.log(LevelError, format, p...) }
func (l *slogLogger) Criticalf(format string, p ...interface{}) { l.log(LevelCritical, format, p...) }

func (l *slogLogger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *slogLogger) Level() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

type disabled struct{}

func (disabled) Tracef(string, ...interface{})    {}
func (disabled) Debugf(string, ...interface{})    {}
func (disabled) Infof(string, ...interface{})     {}
func (disabled) Warnf(string, ...interface{})     {}
func (disabled) Errorf(string, ...interface{})    {}
func (disabled) Criticalf(string, ...interface{}) {}
func (disabled) SetLevel(Level)                   {}
func (disabled) Level() Level                     { return LevelOff }

// Disabled is a Logger that discards all messages.  It is the default value
// of every package-level "log" var until UseLogger is called.
var Disabled Logger = disabled{}

// NewDefault returns a Logger writing to os.Stdout at LevelInfo, useful for
// quick manual runs and tests.
func NewDefault(tag string) Logger {
	return NewBackend(os.Stdout, tag, LevelInfo)
}
