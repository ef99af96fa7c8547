package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deixis/sslrun/internal/invoker"
	"github.com/deixis/sslrun/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// execSchema is written by hand so that "args" accepts any JSON value;
// invoker.ParseArgs reports malformed argument lists itself.
var execSchema = requiredObjectSchema(map[string]any{
	"args": map[string]any{
		"description": "openssl arguments as an array of strings, e.g. [\"genrsa\", \"2048\"].",
	},
	"stdin": map[string]any{
		"type":        "string",
		"description": "Text written to openssl's standard input, e.g. a PEM block.",
	},
	"stdin_base64": map[string]any{
		"type":        "string",
		"description": "Base64-encoded bytes written to standard input, e.g. a DER certificate. Takes precedence over stdin.",
	},
}, []string{"args"})

// requiredObjectSchema returns a JSON Schema for an object with required fields.
func requiredObjectSchema(props map[string]any, required []string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

type execParams struct {
	Args        any     `json:"args"`
	Stdin       *string `json:"stdin,omitempty"`
	StdinBase64 string  `json:"stdin_base64,omitempty"`
}

// stdin returns the bytes to feed the child, or nil for none.
func (p execParams) stdin() ([]byte, error) {
	if p.StdinBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(p.StdinBase64)
		if err != nil {
			return nil, fmt.Errorf("decoding stdin_base64: %w", err)
		}
		return data, nil
	}
	if p.Stdin != nil {
		return []byte(*p.Stdin), nil
	}
	return nil, nil
}

func (h *handler) execHandler(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, _, err := h.exec(ctx, req.Params.Arguments)
	return res, err
}

func (h *handler) exec(ctx context.Context, raw json.RawMessage) (*mcp.CallToolResult, any, error) {
	var params execParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return errorResult("invalid arguments: " + err.Error())
		}
	}

	args, err := invoker.ParseArgs(params.Args)
	if err != nil {
		return errorResult(err.Error())
	}
	stdin, err := params.stdin()
	if err != nil {
		return errorResult(err.Error())
	}

	rec, _, err := h.run(ctx, args, invoker.Options{Stdin: stdin})
	if rec == nil {
		return errorResult(err.Error())
	}

	text := formatRun(rec, h.config().MaxOutputBytes())
	if err != nil {
		return errorResult(text)
	}
	return textResult(text)
}

func formatRun(rec *report.Record, maxOutput int) string {
	var b strings.Builder

	if rec.Kind == invoker.OK {
		fmt.Fprintln(&b, "Status: OK")
	} else {
		fmt.Fprintf(&b, "Status: FAIL (%s)\n", rec.Kind)
	}
	fmt.Fprintf(&b, "Run: %s\n", rec.ID)

	switch rec.Kind {
	case invoker.Spawn, invoker.Unknown:
		fmt.Fprintf(&b, "Error: %s\n", rec.Error)
		return b.String()
	case invoker.Canceled:
		fmt.Fprintf(&b, "Error: %s\n", firstLine(rec.Error))
	default:
		fmt.Fprintf(&b, "Exit code: %d\n", rec.ExitCode)
	}
	fmt.Fprintln(&b)

	writeOutput(&b, rec, 0, maxOutput)
	return b.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
