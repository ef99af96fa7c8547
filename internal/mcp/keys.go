package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/deixis/sslrun/internal/keytool"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type genrsaParams struct {
	Bits       int    `json:"bits,omitempty" jsonschema:"modulus size in bits. Default: 2048."`
	Cipher     string `json:"cipher,omitempty" jsonschema:"encrypt the key with this cipher (e.g. aes256, des3); requires passphrase"`
	Passphrase string `json:"passphrase,omitempty" jsonschema:"pass phrase for the encrypted key"`
	Out        string `json:"out,omitempty" jsonschema:"absolute path to write the key to instead of returning it"`
}

func (h *handler) genrsaHandler(ctx context.Context, req *mcp.CallToolRequest, params genrsaParams) (*mcp.CallToolResult, any, error) {
	out, err := h.tool.GenRSA(ctx, keytool.GenRSAOptions{
		Bits:       params.Bits,
		Cipher:     params.Cipher,
		Passphrase: params.Passphrase,
		OutFile:    params.Out,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("genrsa failed: %v", err))
	}

	if params.Out != "" {
		return textResult(fmt.Sprintf("Key written to %s.\n\n%s", params.Out, out))
	}
	key, err := keytool.ExtractPrivateKey(out)
	if err != nil {
		return errorResult(fmt.Sprintf("genrsa produced no key:\n%s", out))
	}
	return textResult(string(key))
}

type checkKeyParams struct {
	Key        string `json:"key" jsonschema:"PEM-encoded RSA private key"`
	Passphrase string `json:"passphrase,omitempty" jsonschema:"pass phrase if the key is encrypted"`
}

func (h *handler) checkKeyHandler(ctx context.Context, req *mcp.CallToolRequest, params checkKeyParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(params.Key) == "" {
		return errorResult("key is required")
	}
	res, err := h.tool.CheckRSA(ctx, []byte(params.Key), params.Passphrase)
	if err != nil {
		return errorResult(fmt.Sprintf("rsa -check failed: %v", err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Valid: %t\n", res.Valid)
	if out := strings.TrimSpace(res.Output); out != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, out)
	}
	return textResult(b.String())
}

type subjectParams struct {
	Cert       string `json:"cert,omitempty" jsonschema:"PEM-encoded certificate"`
	CertBase64 string `json:"cert_base64,omitempty" jsonschema:"base64 of a DER-encoded certificate"`
}

func (h *handler) subjectHandler(ctx context.Context, req *mcp.CallToolRequest, params subjectParams) (*mcp.CallToolResult, any, error) {
	var (
		cert   []byte
		inform string
	)
	switch {
	case params.CertBase64 != "":
		der, err := base64.StdEncoding.DecodeString(params.CertBase64)
		if err != nil {
			return errorResult(fmt.Sprintf("decoding cert_base64: %v", err))
		}
		cert, inform = der, "DER"
	case params.Cert != "":
		cert, inform = []byte(params.Cert), "PEM"
	default:
		return errorResult("one of cert or cert_base64 is required")
	}

	subject, err := h.tool.Subject(ctx, cert, inform)
	if err != nil {
		return errorResult(fmt.Sprintf("x509 failed: %v", err))
	}
	return textResult(subject)
}
