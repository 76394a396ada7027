package log

import (
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const (
	// ErrAttrKey is the field that carries an error passed as the first Error() field.
	ErrAttrKey = "error"
	// StacktraceAttrKey is the field that carries the stack of a cockroachdb/errors error.
	StacktraceAttrKey = "stacktrace"
	// DetailAttrKey carries the structured form of errors implementing zerolog.LogObjectMarshaler.
	DetailAttrKey = "error_detail"

	badKey = "!BADKEY"
)

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	logger zerolog.Logger
	level  Level
}

// Option configures a ZerologLogger.
type Option func(*zerologOptions)

type zerologOptions struct {
	console   bool
	timestamp bool
	caller    bool
}

// WithConsoleOutput renders human-readable lines instead of JSON.
func WithConsoleOutput() Option {
	return func(o *zerologOptions) { o.console = true }
}

// WithoutTimestamp omits the time field. Useful for golden-output tests.
func WithoutTimestamp() Option {
	return func(o *zerologOptions) { o.timestamp = false }
}

// WithCaller adds the caller file:line to every record.
func WithCaller() Option {
	return func(o *zerologOptions) { o.caller = true }
}

// NewZerologLogger creates a Logger writing to w at the given minimum level.
func NewZerologLogger(w io.Writer, level Level, opts ...Option) *ZerologLogger {
	o := zerologOptions{timestamp: true}
	for _, opt := range opts {
		opt(&o)
	}

	if o.console {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(w).Level(toZerologLevel(level)).With()
	if o.timestamp {
		ctx = ctx.Timestamp()
	}
	if o.caller {
		ctx = ctx.Caller()
	}

	return &ZerologLogger{logger: ctx.Logger(), level: level}
}

// Debug implements Logger.Debug.
func (z *ZerologLogger) Debug(msg string, fields ...any) {
	z.emit(z.logger.Debug(), msg, fields)
}

// Info implements Logger.Info.
func (z *ZerologLogger) Info(msg string, fields ...any) {
	z.emit(z.logger.Info(), msg, fields)
}

// Warn implements Logger.Warn.
func (z *ZerologLogger) Warn(msg string, fields ...any) {
	z.emit(z.logger.Warn(), msg, fields)
}

// Error implements Logger.Error.
func (z *ZerologLogger) Error(msg string, fields ...any) {
	e := z.logger.Error()
	if e == nil {
		return
	}
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			addError(e, err)
			fields = fields[1:]
		}
	}
	z.emit(e, msg, fields)
}

// With implements Logger.With.
func (z *ZerologLogger) With(fields ...any) Logger {
	ctx := z.logger.With()
	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			ctx = ctx.Interface(badKey, fields[i])
			break
		}
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			ctx = ctx.AnErr(key, v)
		case zerolog.LogObjectMarshaler:
			ctx = ctx.Object(key, v)
		default:
			ctx = ctx.Interface(key, v)
		}
	}
	return &ZerologLogger{logger: ctx.Logger(), level: z.level}
}

// Enabled implements Logger.Enabled.
func (z *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return level >= z.level
}

// Zerolog exposes the underlying zerolog.Logger.
func (z *ZerologLogger) Zerolog() zerolog.Logger {
	return z.logger
}

func (z *ZerologLogger) emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			e.Interface(badKey, fields[i])
			break
		}
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			e.AnErr(key, v)
		case zerolog.LogObjectMarshaler:
			e.Object(key, v)
		default:
			e.Interface(key, v)
		}
	}
	e.Msg(msg)
}

// addError attaches err, its structured detail and its stack trace to e.
func addError(e *zerolog.Event, err error) {
	e.AnErr(ErrAttrKey, err)

	var detail zerolog.LogObjectMarshaler
	if errors.As(err, &detail) {
		e.Object(DetailAttrKey, detail)
	}
	if st := extractStacktrace(err); st != "" {
		e.Str(StacktraceAttrKey, st)
	}
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
