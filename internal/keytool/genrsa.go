package keytool

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/deixis/sslrun/internal/invoker"
)

// DefaultBits is the modulus size used when GenRSAOptions.Bits is zero.
const DefaultBits = 2048

// GenRSAOptions configures an RSA key generation.
type GenRSAOptions struct {
	Bits       int    // modulus size; DefaultBits when zero
	Cipher     string // e.g. "des3", "aes256"; requires Passphrase
	Passphrase string // passed as -passout pass:<p>
	OutFile    string // when set, the key is written here instead of stdout
}

// Args returns the openssl argument list for o.
func (o GenRSAOptions) Args() ([]string, error) {
	bits := o.Bits
	if bits == 0 {
		bits = DefaultBits
	}
	if bits < 0 {
		return nil, fmt.Errorf("invalid key size %d", bits)
	}
	if o.Cipher != "" && o.Passphrase == "" {
		return nil, fmt.Errorf("cipher %s requires a passphrase", o.Cipher)
	}

	args := []string{"genrsa"}
	if o.Cipher != "" {
		args = append(args, "-"+strings.TrimPrefix(o.Cipher, "-"))
	}
	if o.OutFile != "" {
		args = append(args, "-out", o.OutFile)
	}
	if o.Passphrase != "" {
		args = append(args, "-passout", "pass:"+o.Passphrase)
	}
	return append(args, strconv.Itoa(bits)), nil
}

// GenRSA generates an RSA private key. Without OutFile the returned output
// contains the PEM key; use ExtractPrivateKey to isolate it.
func (t *Tool) GenRSA(ctx context.Context, o GenRSAOptions) ([]byte, error) {
	args, err := o.Args()
	if err != nil {
		return nil, err
	}
	out, err := t.Runner.Run(ctx, args, invoker.Options{})
	if err != nil {
		return nil, fmt.Errorf("openssl genrsa: %w", err)
	}
	return out, nil
}
