package logging

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var current atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(os.Stderr).With().Timestamp().Logger()
	current.Store(&l)
}

func install(cfg Config) {
	zerolog.SetGlobalLevel(cfg.Level)

	var l zerolog.Logger
	if cfg.Bypass {
		l = zerolog.New(os.Stderr)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		})
	}
	if cfg.Timestamp {
		l = l.With().Timestamp().Logger()
	}
	current.Store(&l)
}

// Logger returns the process logger for structured call sites.
func Logger() *zerolog.Logger {
	return current.Load()
}

func Tracef(format string, args ...any) {
	Logger().Trace().Msg(fmt.Sprintf(format, args...))
}

func Debugf(format string, args ...any) {
	Logger().Debug().Msg(fmt.Sprintf(format, args...))
}

func Infof(format string, args ...any) {
	Logger().Info().Msg(fmt.Sprintf(format, args...))
}

func Warnf(format string, args ...any) {
	Logger().Warn().Msg(fmt.Sprintf(format, args...))
}

func Errf(format string, args ...any) {
	Logger().Error().Msg(fmt.Sprintf(format, args...))
}

// Logf writes at no level; it is visible unless logging is disabled.
func Logf(format string, args ...any) {
	Logger().Log().Msg(fmt.Sprintf(format, args...))
}
