package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		envLevel string
		want     zerolog.Level
	}{
		{"Trace level", "TRACE", zerolog.TraceLevel},
		{"Debug level", "DEBUG", zerolog.DebugLevel},
		{"Info level", "INFO", zerolog.InfoLevel},
		{"Warn level", "WARN", zerolog.WarnLevel},
		{"Warning alias", "warning", zerolog.WarnLevel},
		{"Error level", "ERROR", zerolog.ErrorLevel},
		{"Empty defaults to Info", "", zerolog.InfoLevel},
		{"Invalid defaults to Info", "INVALID", zerolog.InfoLevel},
		{"Case insensitive", "debug", zerolog.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.envLevel); got != tt.want {
				t.Errorf("ParseLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogLevels(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tests := []struct {
		name      string
		setLevel  string
		logFunc   func() *zerolog.Event
		shouldLog bool
	}{
		{"Debug logs when Debug", "DEBUG", func() *zerolog.Event { return log.Debug() }, true},
		{"Debug doesn't log when Info", "INFO", func() *zerolog.Event { return log.Debug() }, false},
		{"Info logs when Info", "INFO", func() *zerolog.Event { return log.Info() }, true},
		{"Info doesn't log when Error", "ERROR", func() *zerolog.Event { return log.Info() }, false},
		{"Error logs when Error", "ERROR", func() *zerolog.Event { return log.Error() }, true},
		{"Error logs when Debug", "DEBUG", func() *zerolog.Event { return log.Error() }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			InitWithWriter(&buf, tt.setLevel, false)

			tt.logFunc().Str("namespace", "TEST").Msg("message")

			output := strings.TrimSpace(buf.String())
			hasOutput := output != ""
			if hasOutput != tt.shouldLog {
				t.Fatalf("Expected log output: %v, got output: %q", tt.shouldLog, output)
			}

			if !tt.shouldLog {
				return
			}

			var entry map[string]interface{}
			if err := json.Unmarshal([]byte(output), &entry); err != nil {
				t.Fatalf("Expected JSON log line, got %q: %v", output, err)
			}
			if entry["message"] != "message" {
				t.Errorf("Expected message field, got %v", entry["message"])
			}
			if entry["namespace"] != "TEST" {
				t.Errorf("Expected namespace field, got %v", entry["namespace"])
			}
			if _, ok := entry["time"]; !ok {
				t.Error("Expected timestamp field")
			}
		})
	}
}

func TestPrettyOutput(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", true)

	log.Info().Msg("pretty message")

	output := buf.String()
	if !strings.Contains(output, "pretty message") {
		t.Errorf("Expected console output to contain message, got %q", output)
	}
	if strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Errorf("Expected console output, got JSON %q", output)
	}
}
