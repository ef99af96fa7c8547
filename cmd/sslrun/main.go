// Command sslrun runs openssl as a child process and serves it over MCP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/deixis/sslrun"
	"github.com/deixis/sslrun/internal/config"
	"github.com/deixis/sslrun/internal/invoker"
	"github.com/deixis/sslrun/internal/keytool"
	"github.com/deixis/sslrun/internal/logging"
	sslmcp "github.com/deixis/sslrun/internal/mcp"
	"github.com/deixis/sslrun/internal/report"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("sslrun: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "exec":
		err = execMain(args)
	case "genrsa":
		err = genrsaMain(args)
	case "check":
		err = checkMain(args)
	case "subject":
		err = subjectMain(args)
	case "mcp":
		err = mcpMain(args)
	case "version":
		err = versionMain(args)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "sslrun: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: sslrun <command> [flags] [arguments]

Commands:
  exec        Run openssl with the given arguments (e.g. sslrun exec -- genrsa 2048)
  genrsa      Generate an RSA private key
  check       Check an RSA private key (rsa -check)
  subject     Print the subject of a certificate
  mcp         Start the MCP server
  version     Print the sslrun and openssl versions
  help        Show this help

The openssl executable is taken from -binary, then $OPENSSL_PATH, then the
"binary" key of the nearest .sslrun file, then "openssl" on PATH.

Use "sslrun <command> -h" for command-specific flags.`)
}

// env is the state shared by every subcommand.
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	invoker *invoker.Invoker
}

// common registers the flags every subcommand understands.
type common struct {
	binary  *string
	verbose *bool
	timeout *time.Duration
}

func commonFlags(fs *flag.FlagSet) common {
	return common{
		binary:  fs.String("binary", "", "openssl executable to run"),
		verbose: fs.Bool("v", false, "log each invocation to stderr"),
		timeout: fs.Duration("timeout", 0, "override configured timeout (e.g. 30s)"),
	}
}

func newEnv(c common) (*env, error) {
	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config
	if *c.timeout > 0 {
		cfg.RawTimeout = c.timeout.String()
	}

	logCfg := logging.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding}
	if *c.verbose {
		logCfg.Level = "debug"
	}
	logger := logging.New(logCfg, os.Stderr)
	if loaded.Path != "" {
		logger.Debug("loaded config", zap.String("path", loaded.Path))
	}

	binary := config.ResolveBinary(*c.binary, os.LookupEnv, cfg)
	logger.Debug("resolved openssl", zap.String("binary", binary))
	return &env{
		cfg:     cfg,
		log:     logger,
		invoker: &invoker.Invoker{Binary: binary, Logger: logger},
	}, nil
}

// runContext returns a context cancelled on interrupt or when the configured
// timeout elapses.
func (e *env) runContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	if d := e.cfg.Timeout(); d > 0 {
		ctx, cancel := context.WithTimeout(ctx, d)
		return ctx, func() {
			cancel()
			stop()
		}
	}
	return ctx, stop
}

// exit reports an invocation failure and terminates with the child's exit
// code when there is one.
func exit(err error) {
	var exitErr *invoker.ExitError
	if errors.As(err, &exitErr) {
		_, _ = os.Stderr.Write(exitErr.Output)
		if exitErr.Cause != nil {
			log.Printf("%s interrupted: %v", exitErr.Binary, exitErr.Cause)
			os.Exit(1)
		}
		log.Printf("%s exited with code %d", exitErr.Binary, exitErr.Code)
		os.Exit(exitErr.Code)
	}
	log.Fatal(err)
}

// --- version ---

func versionMain(args []string) error {
	fs := flag.NewFlagSet("version", flag.ExitOnError)
	c := commonFlags(fs)
	_ = fs.Parse(args)

	e, err := newEnv(c)
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	ctx, cancel := e.runContext()
	defer cancel()

	writeVersion(ctx, os.Stdout, keytool.New(e.invoker))
	return nil
}

// writeVersion prints the sslrun version and the first line of
// `openssl version`. A missing or broken openssl is reported, not fatal.
func writeVersion(ctx context.Context, w io.Writer, tool *keytool.Tool) {
	fmt.Fprintf(w, "sslrun %s\n", sslrun.Version)
	v, err := tool.Version(ctx)
	if err != nil {
		line, _, _ := strings.Cut(err.Error(), "\n")
		fmt.Fprintf(w, "openssl: unavailable (%s)\n", line)
		return
	}
	fmt.Fprintf(w, "openssl: %s\n", v)
}

// --- exec ---

func execMain(args []string) error {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	c := commonFlags(fs)
	stdinPath := fs.String("stdin", "", `file written to openssl's standard input ("-" for this process's stdin)`)
	_ = fs.Parse(args)

	e, err := newEnv(c)
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	var opts invoker.Options
	if *stdinPath != "" {
		opts.Stdin, err = readInput(*stdinPath)
		if err != nil {
			return err
		}
	}

	ctx, cancel := e.runContext()
	defer cancel()

	out, err := e.invoker.Run(ctx, fs.Args(), opts)
	if err != nil {
		if errors.Is(err, invoker.ErrInvalidArguments) {
			return err
		}
		exit(err)
	}
	_, err = os.Stdout.Write(out)
	return err
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// --- genrsa ---

func genrsaMain(args []string) error {
	fs := flag.NewFlagSet("genrsa", flag.ExitOnError)
	c := commonFlags(fs)
	bits := fs.Int("bits", keytool.DefaultBits, "modulus size in bits")
	cipher := fs.String("cipher", "", "encrypt the key with this cipher (e.g. aes256)")
	pass := fs.String("passout", "", "pass phrase for the encrypted key")
	out := fs.String("out", "", "write the key to this file instead of stdout")
	_ = fs.Parse(args)

	e, err := newEnv(c)
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	ctx, cancel := e.runContext()
	defer cancel()

	res, err := keytool.New(e.invoker).GenRSA(ctx, keytool.GenRSAOptions{
		Bits:       *bits,
		Cipher:     *cipher,
		Passphrase: *pass,
		OutFile:    *out,
	})
	if err != nil {
		var exitErr *invoker.ExitError
		if errors.As(err, &exitErr) {
			exit(err)
		}
		return err
	}
	if *out != "" {
		return nil
	}
	key, err := keytool.ExtractPrivateKey(res)
	if err != nil {
		return fmt.Errorf("%w:\n%s", err, res)
	}
	_, err = os.Stdout.Write(key)
	return err
}

// --- check ---

func checkMain(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	c := commonFlags(fs)
	pass := fs.String("passin", "", "pass phrase of an encrypted key")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New(`usage: sslrun check [flags] <key.pem | ->`)
	}
	key, err := readInput(fs.Arg(0))
	if err != nil {
		return err
	}

	e, err := newEnv(c)
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	ctx, cancel := e.runContext()
	defer cancel()

	res, err := keytool.New(e.invoker).CheckRSA(ctx, key, *pass)
	if err != nil {
		return err
	}
	fmt.Print(res.Output)
	if !res.Valid {
		os.Exit(1)
	}
	return nil
}

// --- subject ---

func subjectMain(args []string) error {
	fs := flag.NewFlagSet("subject", flag.ExitOnError)
	c := commonFlags(fs)
	inform := fs.String("inform", "PEM", "certificate encoding: PEM or DER")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New(`usage: sslrun subject [flags] <cert | ->`)
	}
	cert, err := readInput(fs.Arg(0))
	if err != nil {
		return err
	}

	e, err := newEnv(c)
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	ctx, cancel := e.runContext()
	defer cancel()

	subject, err := keytool.New(e.invoker).Subject(ctx, cert, *inform)
	if err != nil {
		return err
	}
	fmt.Println(subject)
	return nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	binary := fs.String("binary", "", "openssl executable to run")
	verbose := fs.Bool("v", false, "debug logging to stderr")
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(sslmcp.Instructions)
		return nil
	}

	var timeout time.Duration
	e, err := newEnv(common{binary: new(string), verbose: verbose, timeout: &timeout})
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store := report.NewLRUStore(e.cfg.HistorySize(), report.NewDiskStore(""))
	opts := []sslmcp.ServerOption{sslmcp.WithLogger(e.log)}
	if *binary != "" {
		opts = append(opts, sslmcp.WithBinary(*binary))
	}
	server := sslmcp.NewServer(e.cfg, e.invoker, store, opts...)

	if *httpAddr != "" {
		return serveHTTP(ctx, server, *httpAddr, e.log)
	}
	e.log.Info("serving MCP over stdio", zap.String("version", sslrun.Version))
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string, logger *zap.Logger) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	logger.Info("listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
