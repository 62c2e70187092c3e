package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	scierrors "github.com/YuminosukeSato/svmgrid/pkg/errors"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

// SetupLogger installs the process-wide logger.
//
// Records are JSON lines written to w (stdout when nil) with Cloud Logging
// key names. Warnings raised through pkg/errors.Warn are written to the same
// writer by a zerolog logger so that structured warning objects keep their
// fields.
func SetupLogger(loglevel string, w io.Writer) error {
	level, err := ToLogLevel(loglevel)
	if err != nil {
		return err
	}
	if w == nil {
		w = os.Stdout
	}

	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     level,
		// Cloud Logging field names.
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr = slog.Attr{Key: "severity", Value: attr.Value}
			case slog.MessageKey:
				attr = slog.Attr{Key: "message", Value: attr.Value}
			case slog.SourceKey:
				attr = slog.Attr{Key: "logging.googleapis.com/sourceLocation", Value: attr.Value}
			}
			return attr
		},
	}
	handler := slog.NewJSONHandler(w, &ops)
	slog.SetDefault(slog.New(WrapByErrFmtHandler(handler)))

	if level <= slog.LevelWarn {
		scierrors.SetZerologWarnFunc(NewZerologWarnFunc(w))
	} else {
		scierrors.SetZerologWarnFunc(func(error) {})
	}
	return nil
}

// ToLogLevel converts a level name into a slog.Level.
func ToLogLevel(level string) (slog.Level, error) {
	switch level {
	case "info", "":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, scierrors.NewValidationError("log_level", "must be one of debug, info, warn, error", level)
	}
}

// NewZerologWarnFunc returns a warning sink for pkg/errors that writes one
// zerolog JSON line per warning to w, or a colored console line when w is a
// terminal. Warnings implementing zerolog.LogObjectMarshaler are embedded
// field by field.
func NewZerologWarnFunc(w io.Writer) func(error) {
	zl := zerolog.New(warnWriter(w)).With().Timestamp().Str(ComponentKey, "warnings").Logger()
	var mu sync.Mutex
	return func(warning error) {
		mu.Lock()
		defer mu.Unlock()
		event := zl.Warn()
		if obj, ok := warning.(zerolog.LogObjectMarshaler); ok {
			event = event.EmbedObject(obj)
		}
		event.Msg(warning.Error())
	}
}

func warnWriter(w io.Writer) io.Writer {
	f, ok := w.(*os.File)
	if !ok {
		return w
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return zerolog.ConsoleWriter{Out: f, TimeFormat: "15:04:05"}
	}
	return w
}

// slogLogger adapts *slog.Logger to Logger.
type slogLogger struct {
	l *slog.Logger
}

// NewLogger returns a Logger backed by l, or by slog.Default() when l is nil.
func NewLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

func (s *slogLogger) Debug(msg string, fields ...any) { s.l.Debug(msg, fields...) }
func (s *slogLogger) Info(msg string, fields ...any)  { s.l.Info(msg, fields...) }
func (s *slogLogger) Warn(msg string, fields ...any)  { s.l.Warn(msg, fields...) }
func (s *slogLogger) Error(msg string, fields ...any) { s.l.Error(msg, fields...) }

func (s *slogLogger) With(fields ...any) Logger {
	return &slogLogger{l: s.l.With(fields...)}
}

func (s *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return s.l.Enabled(ctx, slog.Level(level))
}

// defaultProvider hands out loggers bound to the current slog default.
type defaultProvider struct{}

func (p *defaultProvider) GetLogger() Logger {
	return NewLogger(nil)
}

func (p *defaultProvider) GetLoggerWithName(name string) Logger {
	return NewLogger(nil).With(ComponentKey, name)
}

func (p *defaultProvider) SetLevel(level Level) {
	_ = SetupLogger(levelName(level), nil)
}

func levelName(level Level) string {
	switch {
	case level <= LevelDebug:
		return "debug"
	case level <= LevelInfo:
		return "info"
	case level <= LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

var (
	providerMu sync.RWMutex
	provider   LoggerProvider = &defaultProvider{}
)

// SetProvider replaces the global provider. Tests use it to capture output.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	if p == nil {
		p = &defaultProvider{}
	}
	provider = p
}

// GetLogger returns a logger from the current provider.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLogger()
}

// GetLoggerWithName returns a logger tagged with the component name.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLoggerWithName(name)
}
