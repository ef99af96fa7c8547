package keytool

import (
	"encoding/pem"
	"errors"
	"strings"
)

// ErrNoPrivateKey is returned when output holds no private key block.
var ErrNoPrivateKey = errors.New("no private key block in output")

// ExtractPrivateKey returns the first PEM block whose type ends in
// "PRIVATE KEY" (RSA, EC, PKCS#8, encrypted PKCS#8), re-encoded with its
// headers. Surrounding progress text is dropped.
func ExtractPrivateKey(out []byte) ([]byte, error) {
	rest := out
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, ErrNoPrivateKey
		}
		if strings.HasSuffix(block.Type, "PRIVATE KEY") {
			return pem.EncodeToMemory(block), nil
		}
	}
}
