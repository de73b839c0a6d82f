package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type LogLevel string

const (
	DEBUG LogLevel = "debug"
	INFO  LogLevel = "info"
	WARN  LogLevel = "warn"
	ERROR LogLevel = "error"
)

// Logger is a structured logger. Fields are passed as alternating key/value pairs.
type Logger struct {
	zl zerolog.Logger
}

var (
	global *Logger
	mu     sync.RWMutex
)

// Init configures the process-wide logger. A nil writer logs to stdout.
func Init(level LogLevel, jsonFormat bool, w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	zerolog.TimeFieldFormat = time.RFC3339
	out := w
	if !jsonFormat {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(out).Level(parseLevel(level)).With().Timestamp().Logger()

	mu.Lock()
	global = &Logger{zl: zl}
	mu.Unlock()
}

// New returns a logger writing JSON lines to w, independent of the global one.
func New(level LogLevel, w io.Writer) *Logger {
	return &Logger{zl: zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()}
}

// GetLogger returns the global logger, initialising it at INFO when Init was never called.
func GetLogger() *Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(INFO, false, os.Stdout)
	mu.RLock()
	defer mu.RUnlock()
	return global
}

func parseLevel(level LogLevel) zerolog.Level {
	switch LogLevel(strings.ToLower(string(level))) {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN, "warning":
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithContext returns a child logger that always carries the given fields.
func (l *Logger) WithContext(kv ...interface{}) *Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(kv); i += 2 {
		ctx = ctx.Interface(keyString(kv[i]), kv[i+1])
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.write(l.zl.Debug(), msg, kv) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.write(l.zl.Info(), msg, kv) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.write(l.zl.Warn(), msg, kv) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.write(l.zl.Error(), msg, kv) }

func (l *Logger) write(ev *zerolog.Event, msg string, kv []interface{}) {
	if ev == nil {
		return
	}
	// a single map argument is accepted as a field set
	if len(kv) == 1 {
		if m, ok := kv[0].(map[string]interface{}); ok {
			ev.Fields(m).Msg(msg)
			return
		}
	}
	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) {
			ev = ev.Interface("extra", kv[i])
			break
		}
		if err, ok := kv[i+1].(error); ok {
			ev = ev.AnErr(keyString(kv[i]), err)
			continue
		}
		ev = ev.Interface(keyString(kv[i]), kv[i+1])
	}
	ev.Msg(msg)
}

func keyString(k interface{}) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}

func Debug(msg string, kv ...interface{}) { GetLogger().Debug(msg, kv...) }
func Info(msg string, kv ...interface{})  { GetLogger().Info(msg, kv...) }
func Warn(msg string, kv ...interface{})  { GetLogger().Warn(msg, kv...) }
func Error(msg string, kv ...interface{}) { GetLogger().Error(msg, kv...) }

// WithContext derives a child of the global logger.
func WithContext(kv ...interface{}) *Logger {
	return GetLogger().WithContext(kv...)
}
