package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	Log = build(consoleWriter(os.Stdout), zerolog.InfoLevel)
	log.Logger = Log
}

func consoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
	}
}

func build(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Configure switches the output format for the given server mode: colored
// console lines in debug, JSON otherwise.
func Configure(mode, level string) {
	var w io.Writer = os.Stdout
	if strings.EqualFold(mode, "debug") {
		w = consoleWriter(os.Stdout)
	}
	Log = build(w, Log.GetLevel())
	log.Logger = Log
	SetLevel(level)
}

// SetOutput redirects logging to w, keeping the current level. CLI tools use
// it to keep stdout free for their results.
func SetOutput(w io.Writer, console bool) {
	if console {
		w = consoleWriter(w)
	}
	Log = build(w, Log.GetLevel())
	log.Logger = Log
}

// SetLevel sets the log level of Log and of the zerolog/log global that
// packages log through.
func SetLevel(levelStr string) {
	if levelStr == "" {
		return
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
	log.Logger = Log
}

// Component returns a child logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return Log.With().Str("component", name).Logger()
}
