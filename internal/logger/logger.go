package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const serviceName = "ranked-ladder"

// New builds the process logger. The effective level is set globally once
// configuration is loaded.
func New() zerolog.Logger {
	return NewWithWriter(os.Stdout)
}

func NewWithWriter(w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(w).
		With().
		Timestamp().
		Caller().
		Str("service", serviceName).
		Logger().
		Level(zerolog.DebugLevel)
}

var Module = fx.Provide(New)
