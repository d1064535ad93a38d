package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	APP        = "APP"
	AUDIO      = "AUDIO"
	CHAT       = "CHAT"
	CONFIG     = "CONFIG"
	HANDLER    = "HANDLER"
	MIDDLEWARE = "MIDDLEWARE"
	REDIS      = "REDIS"
	SERVICE    = "SERVICE"
	SESSION    = "SESSION"
	TRANSLATE  = "TRANSLATE"
)

// Init configures the global zerolog logger from LOG_LEVEL and LOG_FORMAT.
func Init() {
	zerolog.SetGlobalLevel(getLogLevel())
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stderr
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "console") {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

func getLogLevel() zerolog.Level {
	level := strings.ToUpper(os.Getenv("LOG_LEVEL"))
	switch level {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func formatMessage(namespace, format string, v ...interface{}) string {
	msg := fmt.Sprintf(format, v...)
	return fmt.Sprintf("[%s] %s", namespace, msg)
}

func Debug(namespace, format string, v ...interface{}) {
	log.Debug().Str("namespace", namespace).Msg(formatMessage(namespace, format, v...))
}

func Info(namespace, format string, v ...interface{}) {
	log.Info().Str("namespace", namespace).Msg(formatMessage(namespace, format, v...))
}

func Warn(namespace, format string, v ...interface{}) {
	log.Warn().Str("namespace", namespace).Msg(formatMessage(namespace, format, v...))
}

func Error(namespace, format string, v ...interface{}) {
	log.Error().Str("namespace", namespace).Msg(formatMessage(namespace, format, v...))
}
