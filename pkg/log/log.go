/*
Package log provides structured logging for wavecast-go using zerolog.

It follows the same shape as cuemby/warren/pkg/log — a package-level
logger initialized once via Init, with WithComponent attaching context
to a child logger — but exposes a Field-based call style instead of the
fluent zerolog event builder, so the engine, subscribe, and presence
packages can log through a narrow interface (see pkg/engine's
zerologLogger) without importing zerolog directly.
*/
package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Level mirrors zerolog's level ordering without exposing the zerolog
// type across the package boundary.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config configures the global logger.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Field is a single structured logging attribute.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field  { return Field{Key: key, Value: value} }
func Int(key string, value int) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }
func Err(err error) Field             { return Field{Key: "error", Value: err} }
func Any(key string, value any) Field { return Field{Key: key, Value: value} }

var global zerolog.Logger

func init() {
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: os.Stdout})
}

// Init (re)configures the global logger.
func Init(cfg Config) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		global = zerolog.New(output).With().Timestamp().Logger()
	} else {
		global = zerolog.New(zerolog.ConsoleWriter{Out: output}).With().Timestamp().Logger()
	}
}

func parseLevel(l Level) zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger is a component-scoped structured logger.
type Logger struct {
	z zerolog.Logger
}

// WithComponent returns a Logger tagged with component, e.g.
// "subscribe-engine", "presence-engine", "dispatcher", "manager".
func WithComponent(component string) Logger {
	return Logger{z: global.With().Str("component", component).Logger()}
}

// With returns a derived Logger carrying the extra fields on every
// subsequent call.
func (l Logger) With(fields ...Field) Logger {
	ctx := l.z.With()
	for _, f := range fields {
		ctx = applyField(ctx, f)
	}
	return Logger{z: ctx.Logger()}
}

func applyField(ctx zerolog.Context, f Field) zerolog.Context {
	switch v := f.Value.(type) {
	case string:
		return ctx.Str(f.Key, v)
	case int:
		return ctx.Int(f.Key, v)
	case bool:
		return ctx.Bool(f.Key, v)
	case error:
		return ctx.AnErr(f.Key, v)
	default:
		return ctx.Interface(f.Key, v)
	}
}

func (l Logger) Debug(msg string, fields ...Field) { l.emit(l.z.Debug(), msg, fields) }
func (l Logger) Info(msg string, fields ...Field)  { l.emit(l.z.Info(), msg, fields) }
func (l Logger) Warn(msg string, fields ...Field)  { l.emit(l.z.Warn(), msg, fields) }
func (l Logger) Error(msg string, fields ...Field) { l.emit(l.z.Error(), msg, fields) }

func (l Logger) emit(ev *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			ev = ev.Str(f.Key, v)
		case int:
			ev = ev.Int(f.Key, v)
		case bool:
			ev = ev.Bool(f.Key, v)
		case error:
			ev = ev.AnErr(f.Key, v)
		default:
			ev = ev.Interface(f.Key, v)
		}
	}
	ev.Msg(msg)
}
