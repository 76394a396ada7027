package log

import (
	"io"
	"strings"

	"github.com/YuminosukeSato/titanic/pkg/errors"
	"github.com/rs/zerolog"
)

// Setup builds the process logger from configuration values and routes
// library warnings (errors.Warn) through it.
//
// format is "json" (default) or "console".
func Setup(w io.Writer, level, format string) (*ZerologLogger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var opts []Option
	switch strings.ToLower(format) {
	case "", "json":
	case "console", "text":
		opts = append(opts, WithConsoleOutput())
	default:
		return nil, errors.NewConfigurationError("log.format", "must be json or console", format)
	}

	logger := NewZerologLogger(w, lvl, opts...)
	RouteWarnings(logger)
	return logger, nil
}

// RouteWarnings sends warnings raised through errors.Warn to logger at warn level.
func RouteWarnings(logger Logger) {
	errors.SetZerologWarnFunc(func(w error) {
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			logger.Warn(w.Error(), "warning", m)
			return
		}
		logger.Warn(w.Error())
	})
}
