package keytool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/sslrun/internal/invoker"
)

// Subject returns the subject line of a certificate read from stdin.
// inform is "DER" or "PEM"; PEM when empty.
func (t *Tool) Subject(ctx context.Context, cert []byte, inform string) (string, error) {
	if len(cert) == 0 {
		return "", errors.New("empty certificate")
	}
	if inform == "" {
		inform = "PEM"
	}
	args := []string{"x509", "-subject", "-noout", "-inform", strings.ToUpper(inform)}

	out, err := t.Runner.Run(ctx, args, invoker.Options{Stdin: cert})
	if err != nil {
		return "", fmt.Errorf("openssl x509: %w", err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if after, ok := strings.CutPrefix(strings.TrimSpace(line), "subject="); ok {
			return strings.TrimSpace(after), nil
		}
	}
	return "", fmt.Errorf("no subject in output: %q", firstLine(string(out)))
}
