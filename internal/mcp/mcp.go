// Package mcp provides the sslrun MCP server, registering the openssl
// tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/deixis/sslrun"
	"github.com/deixis/sslrun/internal/config"
	"github.com/deixis/sslrun/internal/invoker"
	"github.com/deixis/sslrun/internal/keytool"
	"github.com/deixis/sslrun/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	invoker *invoker.Invoker
	tool    *keytool.Tool
	store   report.Store
	log     *zap.Logger

	override  string // explicit -binary from the command line
	lookupEnv func(string) (string, bool)

	mu  sync.RWMutex
	cfg *config.Config // replaced when the client reports a root
}

// NewServer creates an MCP server with all sslrun tools registered.
func NewServer(cfg *config.Config, iv *invoker.Invoker, store report.Store, opts ...ServerOption) *mcp.Server {
	so := serverOptions{lookupEnv: os.LookupEnv, log: zap.NewNop()}
	for _, o := range opts {
		o(&so)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	h := &handler{
		invoker:   iv,
		store:     store,
		log:       so.log,
		override:  so.binary,
		lookupEnv: so.lookupEnv,
		cfg:       cfg,
	}
	h.tool = keytool.New(h)

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateConfigFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "sslrun", Version: sslrun.Version}, mcpOpts)

	s.AddTool(&mcp.Tool{
		Name: "ssl_exec",
		Description: `Run openssl with the given arguments and return its combined stdout/stderr.

Pass "args" as an array of strings (e.g. ["x509", "-noout", "-subject", "-in", "/path/cert.pem"]).
Optional "stdin" (text, e.g. a PEM block) or "stdin_base64" (binary, e.g. DER) is written to openssl's
standard input. Long output is truncated; page through it with ssl_inspect using the returned run ID.`,
		InputSchema: execSchema,
	}, h.execHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "ssl_genrsa",
		Description: "Generate an RSA private key with openssl genrsa. Returns the PEM key unless out is set.",
	}, h.genrsaHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "ssl_check_key",
		Description: "Check the consistency of a PEM RSA private key with openssl rsa -check.",
	}, h.checkKeyHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "ssl_x509_subject",
		Description: "Print the subject of a certificate given as PEM text or base64 DER.",
	}, h.subjectHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "ssl_inspect",
		Description: `Page through the full output of an earlier ssl_exec run.

Use the run_id from the ssl_exec result. offset and limit are byte positions in the combined output.`,
	}, h.inspectHandler)

	return s
}

// ServerOption configures the sslrun MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	binary    string
	lookupEnv func(string) (string, bool)
	log       *zap.Logger
}

// WithBinary sets an explicit executable that takes precedence over
// OPENSSL_PATH and the config file.
func WithBinary(path string) ServerOption {
	return func(o *serverOptions) {
		o.binary = path
	}
}

// WithLogger attaches a logger to the server's handlers.
func WithLogger(log *zap.Logger) ServerOption {
	return func(o *serverOptions) {
		if log != nil {
			o.log = log
		}
	}
}

func withLookupEnv(fn func(string) (string, bool)) ServerOption {
	return func(o *serverOptions) {
		o.lookupEnv = fn
	}
}

func (h *handler) config() *config.Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// binary resolves the executable for the next call.
func (h *handler) binary() string {
	return config.ResolveBinary(h.override, h.lookupEnv, h.config())
}

// updateConfigFromRoots queries the client for MCP roots and, if the first
// root is a local directory, reloads .sslrun from there.
func (h *handler) updateConfigFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}

	loaded, err := config.Load(u.Path)
	if err != nil {
		h.log.Warn("ignoring config from client root", zap.String("root", u.Path), zap.Error(err))
		return
	}
	if loaded.Path == "" {
		return
	}

	h.mu.Lock()
	h.cfg = loaded.Config
	h.mu.Unlock()
	h.log.Info("loaded config from client root", zap.String("path", loaded.Path))
}

// Run implements keytool.Runner so key helpers share the recording path.
func (h *handler) Run(ctx context.Context, args []string, opts invoker.Options) ([]byte, error) {
	_, out, err := h.run(ctx, args, opts)
	return out, err
}

// run executes openssl under the configured timeout and stores a record of
// the outcome. The record is nil only for argument errors.
func (h *handler) run(ctx context.Context, args []string, opts invoker.Options) (*report.Record, []byte, error) {
	if opts.Binary == "" {
		opts.Binary = h.binary()
	}
	if d := h.config().Timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	started := time.Now()
	inv, err := h.invoker.Start(ctx, args, opts)
	if err != nil {
		return nil, nil, err
	}
	out, err := inv.Wait()

	rec := report.NewRecord(inv.ID(), opts.Binary, args, len(opts.Stdin), out, err, started)
	if saveErr := h.store.Save(rec); saveErr != nil {
		h.log.Warn("saving run record", zap.String("run_id", rec.ID), zap.Error(saveErr))
	}
	return rec, out, err
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
