package log

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"moul.io/zapfilter"
)

type (
	Level = zapcore.Level
	Field = zap.Field
)

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
	FatalLevel = zapcore.FatalLevel
)

// field constructors, re-exported so callers only import this package
var (
	Any      = zap.Any
	String   = zap.String
	Strings  = zap.Strings
	Int      = zap.Int
	Int64    = zap.Int64
	Uint64   = zap.Uint64
	Float64  = zap.Float64
	Bool     = zap.Bool
	Duration = zap.Duration
	Time     = zap.Time
)

func ErrorField(err error) Field { return zap.Error(err) }

func ParseLevel(s string) (Level, error) { return zapcore.ParseLevel(s) }

type Logger struct {
	l     *zap.Logger
	level Level
}

type config struct {
	caller     bool
	callerSkip int
	file       string
	filter     string
}

type Option func(*config)

func WithCaller(b bool) Option { return func(c *config) { c.caller = b } }

func AddCallerSkip(skip int) Option { return func(c *config) { c.callerSkip += skip } }

// WithFile additionally writes JSON entries to a size-rotated file.
func WithFile(path string) Option { return func(c *config) { c.file = path } }

// WithFilterRules applies zapfilter rules such as "debug+:web.* info+:*".
func WithFilterRules(rules string) Option { return func(c *config) { c.filter = rules } }

// New creates a logger emitting JSON entries.
func New(w io.Writer, level Level, opts ...Option) *Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	return build(zapcore.NewJSONEncoder(cfg), w, level, opts...)
}

// DevLogger creates a logger emitting human readable console entries.
func DevLogger(w io.Writer, level Level, opts ...Option) *Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return build(zapcore.NewConsoleEncoder(cfg), w, level, opts...)
}

func build(enc zapcore.Encoder, w io.Writer, level Level, opts ...Option) *Logger {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)
	if c.file != "" {
		rotator := &lumberjack.Logger{
			Filename:   c.file,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core = zapcore.NewTee(core,
			zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(rotator), level))
	}
	var filterErr error
	if c.filter != "" {
		var rules zapfilter.FilterFunc
		if rules, filterErr = zapfilter.ParseRules(c.filter); filterErr == nil {
			core = zapfilter.NewFilteringCore(core, rules)
		}
	}
	zopts := []zap.Option{zap.WithCaller(c.caller)}
	if c.callerSkip > 0 {
		zopts = append(zopts, zap.AddCallerSkip(c.callerSkip))
	}
	ret := &Logger{l: zap.New(core, zopts...), level: level}
	if filterErr != nil {
		ret.Warn("ignoring invalid log filter rules",
			String("rules", c.filter), ErrorField(filterErr))
	}
	return ret
}

func (l *Logger) Debug(msg string, fields ...Field) { l.l.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.l.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.l.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.l.Error(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...Field) { l.l.Fatal(msg, fields...) }

func (l *Logger) Named(name string) *Logger {
	return &Logger{l: l.l.Named(name), level: l.level}
}

func (l *Logger) WithFields(fields ...Field) *Logger {
	return &Logger{l: l.l.With(fields...), level: l.level}
}

func (l *Logger) Level() Level { return l.level }

func (l *Logger) Sync() error { return l.l.Sync() }

// Zap exposes the underlying logger for libraries expecting one.
func (l *Logger) Zap() *zap.Logger { return l.l }

var std = New(os.Stderr, InfoLevel, WithCaller(true), AddCallerSkip(1))

func Default() *Logger { return std }

// ResetDefault replaces the logger used by the package level functions.
// Not safe for concurrent use, call it once during startup.
func ResetDefault(l *Logger) { std = l }

func Debug(msg string, fields ...Field) { std.Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { std.Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { std.Warn(msg, fields...) }
func Error(msg string, fields ...Field) { std.Error(msg, fields...) }
func Fatal(msg string, fields ...Field) { std.Fatal(msg, fields...) }

func Sync() error { return std.Sync() }

type ctxKey struct{}

func AddToContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func GetFromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return std
}
