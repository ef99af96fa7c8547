package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/deixis/sslrun"
	"github.com/deixis/sslrun/internal/invoker"
	"github.com/deixis/sslrun/internal/keytool"
)

type fakeRunner struct {
	out []byte
	err error
}

func (f *fakeRunner) Run(context.Context, []string, invoker.Options) ([]byte, error) {
	return f.out, f.err
}

func TestWriteVersion(t *testing.T) {
	tests := []struct {
		name   string
		runner *fakeRunner
		want   string
	}{
		{
			name:   "openssl found",
			runner: &fakeRunner{out: []byte("OpenSSL 3.0.13 30 Jan 2024 (Library: OpenSSL 3.0.13 30 Jan 2024)\n")},
			want:   "openssl: OpenSSL 3.0.13 30 Jan 2024",
		},
		{
			name:   "openssl missing",
			runner: &fakeRunner{err: &invoker.SpawnError{Binary: "openssl", Err: errors.New("executable file not found in $PATH")}},
			want:   "openssl: unavailable (openssl version: starting openssl: executable file not found in $PATH)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writeVersion(context.Background(), &buf, keytool.New(tt.runner))
			out := buf.String()
			if !strings.HasPrefix(out, "sslrun "+sslrun.Version+"\n") {
				t.Errorf("output = %q, want sslrun version first", out)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}
