package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Setup prepares the global zerolog logger. A disabled logger drops
// everything; otherwise level is one of debug, info, warn, error
// (anything else means debug).
func Setup(disable bool, level string, console bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(parseLevel(disable, level))

	var out io.Writer = os.Stderr
	if console {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	}
	zlog.Logger = zerolog.New(out).With().Timestamp().Logger()
}

func parseLevel(disable bool, level string) zerolog.Level {
	if disable {
		return zerolog.Disabled
	}
	switch strings.ToLower(level) {
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.DebugLevel
	}
}
