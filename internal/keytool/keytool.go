// Package keytool provides typed wrappers around common openssl actions.
// It builds argument lists, feeds input through the invoker, and pulls the
// interesting parts out of the tool's combined output.
package keytool

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/sslrun/internal/invoker"
)

// Runner executes openssl with the given arguments.
// Implemented by invoker.Invoker.
type Runner interface {
	Run(ctx context.Context, args []string, opts invoker.Options) ([]byte, error)
}

// Tool runs openssl actions through a Runner.
type Tool struct {
	Runner Runner
}

// New returns a Tool backed by r.
func New(r Runner) *Tool {
	return &Tool{Runner: r}
}

// Version returns the first line of `openssl version`.
func (t *Tool) Version(ctx context.Context) (string, error) {
	out, err := t.Runner.Run(ctx, []string{"version"}, invoker.Options{})
	if err != nil {
		return "", fmt.Errorf("openssl version: %w", err)
	}
	return firstLine(string(out)), nil
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
