package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARN":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	t.Setenv(EnvLevel, "")
	var buf bytes.Buffer
	log := New(Config{Level: "info", Encoding: "json"}, &buf)
	log.Debug("hidden")
	log.Info("executing command", zap.String("binary", "openssl"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1:\n%s", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["msg"] != "executing command" || entry["binary"] != "openssl" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNew_EnvOverridesLevel(t *testing.T) {
	t.Setenv(EnvLevel, "debug")
	var buf bytes.Buffer
	log := New(Config{Level: "error"}, &buf)
	log.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug entry missing with %s=debug:\n%s", EnvLevel, buf.String())
	}
}
