package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deixis/sslrun/internal/invoker"
)

func TestLoad_FromDirectory(t *testing.T) {
	dir := t.TempDir()
	data := "version: 1\nbinary: /opt/openssl/bin/openssl\ntimeout: 30s\nmax_output: 1024\nhistory: 4\nlog:\n  level: debug\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Path != filepath.Join(dir, FileName) {
		t.Errorf("Path = %q, want %q", res.Path, filepath.Join(dir, FileName))
	}
	cfg := res.Config
	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Binary != "/opt/openssl/bin/openssl" {
		t.Errorf("Binary = %q", cfg.Binary)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("Timeout() = %v, want 30s", cfg.Timeout())
	}
	if cfg.MaxOutputBytes() != 1024 {
		t.Errorf("MaxOutputBytes() = %d, want 1024", cfg.MaxOutputBytes())
	}
	if cfg.HistorySize() != 4 {
		t.Errorf("HistorySize() = %d, want 4", cfg.HistorySize())
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_FromSubdirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("version: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "certs", "ca")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Load(sub)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Config.Version != 2 {
		t.Errorf("Config.Version = %d, want 2", res.Config.Version)
	}
}

func TestLoad_NoFile(t *testing.T) {
	res, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Path != "" {
		t.Errorf("Path = %q, want empty", res.Path)
	}
	if res.Config.Timeout() != 0 {
		t.Errorf("Timeout() = %v, want 0", res.Config.Timeout())
	}
	if res.Config.MaxOutputBytes() != DefaultMaxOutput {
		t.Errorf("MaxOutputBytes() = %d, want %d", res.Config.MaxOutputBytes(), DefaultMaxOutput)
	}
	if res.Config.HistorySize() != DefaultHistory {
		t.Errorf("HistorySize() = %d, want %d", res.Config.HistorySize(), DefaultHistory)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("binary: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestTimeout_Invalid(t *testing.T) {
	cfg := &Config{RawTimeout: "soon"}
	if cfg.Timeout() != 0 {
		t.Errorf("Timeout() = %v, want 0 for invalid duration", cfg.Timeout())
	}
}

func TestResolveBinary(t *testing.T) {
	env := func(vals map[string]string) func(string) (string, bool) {
		return func(k string) (string, bool) {
			v, ok := vals[k]
			return v, ok
		}
	}
	withFile := &Config{Binary: "/from/file"}

	tests := []struct {
		name     string
		override string
		env      map[string]string
		cfg      *Config
		want     string
	}{
		{"override wins", "/explicit", map[string]string{EnvBinary: "/from/env"}, withFile, "/explicit"},
		{"env beats file", "", map[string]string{EnvBinary: "/from/env"}, withFile, "/from/env"},
		{"file beats default", "", nil, withFile, "/from/file"},
		{"empty env falls through", "", map[string]string{EnvBinary: ""}, withFile, "/from/file"},
		{"default", "", nil, nil, invoker.DefaultBinary},
		{"nil lookup", "", nil, &Config{}, invoker.DefaultBinary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := env(tt.env)
			if tt.env == nil {
				lookup = nil
			}
			if got := ResolveBinary(tt.override, lookup, tt.cfg); got != tt.want {
				t.Errorf("ResolveBinary = %q, want %q", got, tt.want)
			}
		})
	}
}
