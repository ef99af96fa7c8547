package keytool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/sslrun/internal/invoker"
)

// rsaKeyOK is printed by `openssl rsa -check` for a consistent key.
const rsaKeyOK = "RSA key ok"

// CheckResult is the outcome of an RSA key consistency check.
type CheckResult struct {
	Valid  bool
	Output string // the tool's full combined output
}

// CheckRSA feeds key to `openssl rsa -check -noout` on stdin. An invalid
// key yields Valid=false with the tool's diagnostics rather than an error;
// errors are reserved for failures to run the tool at all.
func (t *Tool) CheckRSA(ctx context.Context, key []byte, passphrase string) (*CheckResult, error) {
	if len(key) == 0 {
		return nil, errors.New("empty key")
	}
	args := []string{"rsa", "-check", "-noout"}
	if passphrase != "" {
		args = append(args, "-passin", "pass:"+passphrase)
	}

	out, err := t.Runner.Run(ctx, args, invoker.Options{Stdin: key})
	if err != nil {
		var exitErr *invoker.ExitError
		if errors.As(err, &exitErr) && exitErr.Cause == nil {
			return &CheckResult{Output: string(exitErr.Output)}, nil
		}
		return nil, fmt.Errorf("openssl rsa -check: %w", err)
	}
	return &CheckResult{
		Valid:  strings.Contains(string(out), rsaKeyOK),
		Output: string(out),
	}, nil
}
