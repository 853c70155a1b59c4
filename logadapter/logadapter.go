// Package logadapter adapts structured loggers to sesspool.Logger.
package logadapter

import (
	"github.com/derElektrobesen/sesspool"
	"github.com/rs/zerolog"
	"go.uber.org/zap"
)

type zapLogger struct {
	l *zap.SugaredLogger
}

// Zap returns sesspool.Logger which writes messages with the Info level.
// Caller is reported as the sesspool function which printed the message.
func Zap(l *zap.Logger) sesspool.Logger {
	return zapLogger{l: l.WithOptions(zap.AddCallerSkip(1)).Sugar().Named("sesspool")}
}

func (z zapLogger) Printf(format string, args ...interface{}) {
	z.l.Infof(format, args...)
}

type zerologLogger struct {
	l zerolog.Logger
}

// Zerolog returns sesspool.Logger which writes messages with the Info level.
func Zerolog(l zerolog.Logger) sesspool.Logger {
	return zerologLogger{l: l.With().Str("component", "sesspool").Logger()}
}

func (z zerologLogger) Printf(format string, args ...interface{}) {
	z.l.Info().Msgf(format, args...)
}
