package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		envLevel string
		want     zerolog.Level
	}{
		{"Debug level", "DEBUG", zerolog.DebugLevel},
		{"Info level", "INFO", zerolog.InfoLevel},
		{"Warn level", "WARN", zerolog.WarnLevel},
		{"Error level", "ERROR", zerolog.ErrorLevel},
		{"Trace level", "TRACE", zerolog.TraceLevel},
		{"Empty defaults to Info", "", zerolog.InfoLevel},
		{"Invalid defaults to Info", "INVALID", zerolog.InfoLevel},
		{"Case insensitive", "debug", zerolog.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("LOG_LEVEL", tt.envLevel)
			defer os.Unsetenv("LOG_LEVEL")

			if got := getLogLevel(); got != tt.want {
				t.Errorf("getLogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		format    string
		args      []interface{}
		want      string
	}{
		{
			name:      "Simple message",
			namespace: "TEST",
			format:    "Hello",
			args:      nil,
			want:      "[TEST] Hello",
		},
		{
			name:      "Message with args",
			namespace: "APP",
			format:    "Count: %d",
			args:      []interface{}{42},
			want:      "[APP] Count: 42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatMessage(tt.namespace, tt.format, tt.args...)
			if got != tt.want {
				t.Errorf("formatMessage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func captureOutput(level zerolog.Level, f func()) string {
	var buf bytes.Buffer
	previous := log.Logger
	previousLevel := zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(level)

	f()

	log.Logger = previous
	zerolog.SetGlobalLevel(previousLevel)
	return buf.String()
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     zerolog.Level
		logFunc   func(string, string, ...interface{})
		message   string
		shouldLog bool
		contains  string
	}{
		{"Debug logs when Debug", zerolog.DebugLevel, Debug, "debug message", true, "[TEST] debug message"},
		{"Debug doesn't log when Info", zerolog.InfoLevel, Debug, "debug message", false, ""},
		{"Info logs when Info", zerolog.InfoLevel, Info, "info message", true, "[TEST] info message"},
		{"Info doesn't log when Error", zerolog.ErrorLevel, Info, "info message", false, ""},
		{"Warn logs when Warn", zerolog.WarnLevel, Warn, "warn message", true, "[TEST] warn message"},
		{"Error logs when Debug", zerolog.DebugLevel, Error, "error message", true, "[TEST] error message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := strings.TrimSpace(captureOutput(tt.level, func() {
				tt.logFunc("TEST", tt.message)
			}))

			hasOutput := output != ""
			if hasOutput != tt.shouldLog {
				t.Errorf("Expected log output: %v, got output: %q", tt.shouldLog, output)
			}
			if tt.shouldLog && !strings.Contains(output, tt.contains) {
				t.Errorf("Expected output to contain %q, got %q", tt.contains, output)
			}
			if tt.shouldLog && !strings.Contains(output, `"namespace":"TEST"`) {
				t.Errorf("Expected namespace field in %q", output)
			}
		})
	}
}
