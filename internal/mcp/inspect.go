package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/deixis/sslrun/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID  string `json:"run_id" jsonschema:"the run ID from an ssl_exec result"`
	Offset int    `json:"offset,omitempty" jsonschema:"byte offset into the combined output. Default: 0."`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of bytes to return. Default: the server's max_output."`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	if params.Offset < 0 || params.Limit < 0 {
		return errorResult("offset and limit must not be negative")
	}

	rec, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	limit := params.Limit
	if limit == 0 {
		limit = h.config().MaxOutputBytes()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s (%s)\n", rec.ID, rec.Kind)
	fmt.Fprintf(&b, "Command: %s %s\n", rec.Binary, strings.Join(rec.Args, " "))
	fmt.Fprintf(&b, "Exit code: %d\n", rec.ExitCode)
	fmt.Fprintf(&b, "Duration: %s\n", rec.Duration)
	fmt.Fprintln(&b)
	writeOutput(&b, rec, params.Offset, limit)

	return textResult(b.String())
}

// writeOutput writes one page of rec's output. Text output is paged on
// rune boundaries; output that is not valid UTF-8 is base64-encoded.
func writeOutput(b *strings.Builder, rec *report.Record, offset, limit int) {
	var (
		page []byte
		more bool
	)
	binary := !utf8.Valid(rec.Output)
	if binary {
		page, more = rec.Page(offset, limit)
	} else {
		offset, page, more = textPage(rec.Output, offset, limit)
	}

	switch {
	case len(page) == 0:
		fmt.Fprintln(b, "(no output)")
	case binary:
		fmt.Fprintln(b, "Output (base64):")
		fmt.Fprintln(b, base64.StdEncoding.EncodeToString(page))
	default:
		b.Write(page)
		if page[len(page)-1] != '\n' {
			b.WriteByte('\n')
		}
	}

	if more {
		next := offset + len(page)
		fmt.Fprintf(b, "\n[output truncated: bytes %d-%d of %d shown; continue with ssl_inspect(run_id=%q, offset=%d)]\n",
			offset, next, len(rec.Output), rec.ID, next)
	}
}

// textPage cuts a page of at most limit bytes out of valid UTF-8 text. An
// offset inside a rune moves forward to the next rune. The end moves back
// to a rune boundary, or forward past the first rune when limit is smaller
// than it, so every non-empty page advances. A limit <= 0 means no limit.
func textPage(text []byte, offset, limit int) (start int, page []byte, more bool) {
	start = min(max(offset, 0), len(text))
	for start < len(text) && !utf8.RuneStart(text[start]) {
		start++
	}

	end := len(text)
	if limit > 0 && start+limit < end {
		end = start + limit
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			_, size := utf8.DecodeRune(text[start:])
			end = start + size
		}
	}
	return start, text[start:end], end < len(text)
}
