package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log is the shared application logger. Init must be called once at startup.
var Log zerolog.Logger

// Init configures the global logger. Development gets a human-readable
// console writer, production gets JSON on stdout.
func Init(environment string) {
	zerolog.TimeFieldFormat = time.RFC3339

	if environment == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		Log = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}

	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	Log = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}
