// Package invoker runs an external command-line tool as a child process,
// optionally feeding it bytes on stdin, and captures its combined
// stdout/stderr stream.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultBinary is used when neither the Invoker nor the call names one.
const DefaultBinary = "openssl"

// Invoker starts child processes. The zero value runs DefaultBinary
// without logging. An Invoker is safe for concurrent use; invocations
// share no state.
type Invoker struct {
	Binary string      // resolved default executable
	Logger *zap.Logger // nil disables logging
}

// Options holds per-call settings.
type Options struct {
	// Binary overrides Invoker.Binary for this call.
	Binary string
	// Stdin is written to the child's standard input, which is then
	// closed. A nil Stdin leaves the child reading from the null device.
	Stdin []byte
}

// Invocation is one in-flight child process.
type Invocation struct {
	id   string
	done chan struct{}
	out  []byte
	err  error
}

// ID returns the run ID assigned to the invocation.
func (inv *Invocation) ID() string { return inv.id }

// Done is closed once the outcome is available.
func (inv *Invocation) Done() <-chan struct{} { return inv.done }

// Wait blocks until the child has exited or failed to start and returns
// the combined output. See ArgumentError, SpawnError and ExitError for the
// failure cases.
func (inv *Invocation) Wait() ([]byte, error) {
	<-inv.done
	return inv.out, inv.err
}

// Run starts the child and waits for its outcome.
func (iv *Invoker) Run(ctx context.Context, args []string, opts Options) ([]byte, error) {
	inv, err := iv.Start(ctx, args, opts)
	if err != nil {
		return nil, err
	}
	return inv.Wait()
}

// Start validates args and launches the child in the background. Argument
// errors are returned immediately; every other failure is reported by
// Wait. The child is killed if ctx ends before it exits.
func (iv *Invoker) Start(ctx context.Context, args []string, opts Options) (*Invocation, error) {
	if err := checkArgs(args); err != nil {
		return nil, err
	}

	binary := opts.Binary
	if binary == "" {
		binary = iv.Binary
	}
	if binary == "" {
		binary = DefaultBinary
	}

	inv := &Invocation{
		id:   uuid.New().String(),
		done: make(chan struct{}),
	}
	argv := append([]string(nil), args...)
	go func() {
		defer close(inv.done)
		inv.out, inv.err = iv.execute(ctx, inv.id, binary, argv, opts.Stdin)
	}()
	return inv, nil
}

func (iv *Invoker) execute(ctx context.Context, runID, binary string, args []string, stdin []byte) ([]byte, error) {
	log := iv.logger().With(zap.String("run_id", runID), zap.String("binary", binary))
	log.Debug("executing command", zap.Strings("args", args), zap.Int("stdin_bytes", len(stdin)))
	start := time.Now()

	cmd := exec.CommandContext(ctx, binary, args...)

	var stdinPipe io.WriteCloser
	if stdin != nil {
		p, err := cmd.StdinPipe()
		if err != nil {
			return nil, &SpawnError{Binary: binary, Err: err}
		}
		stdinPipe = p
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Binary: binary, Err: err}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, &SpawnError{Binary: binary, Err: err}
	}

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return nil, &ExitError{Binary: binary, Code: -1, Cause: ctx.Err()}
		}
		log.Debug("spawn failed", zap.Error(err))
		return nil, &SpawnError{Binary: binary, Err: err}
	}

	// Grandchildren may hold the other ends of the pipes after the child
	// is killed, so both the writer and the readers must be released here.
	stop := context.AfterFunc(ctx, func() {
		if stdinPipe != nil {
			_ = stdinPipe.Close()
		}
		_ = stdoutPipe.Close()
		_ = stderrPipe.Close()
	})
	defer stop()

	var out combinedBuffer
	var g errgroup.Group
	if stdinPipe != nil {
		g.Go(func() error { return writeInput(stdinPipe, stdin) })
	}
	g.Go(func() error { return copyStream(&out, stdoutPipe, "stdout") })
	g.Go(func() error { return copyStream(&out, stderrPipe, "stderr") })

	// Both readers must hit EOF before Wait closes the pipes, otherwise
	// queued output would be dropped.
	ioErr := g.Wait()
	waitErr := cmd.Wait()
	output := out.Bytes()

	code := 0
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}
	log.Debug("command finished",
		zap.Int("exit_code", code),
		zap.Int("output_bytes", len(output)),
		zap.Duration("duration", time.Since(start)),
	)

	if ctx.Err() != nil && code != 0 {
		return nil, &ExitError{Binary: binary, Code: code, Output: output, Cause: ctx.Err()}
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return nil, &ExitError{Binary: binary, Code: exitErr.ExitCode(), Output: output}
		}
		return nil, fmt.Errorf("waiting for %s: %w", binary, waitErr)
	}
	if ioErr != nil {
		return nil, fmt.Errorf("reading %s output: %w", binary, ioErr)
	}
	return output, nil
}

func (iv *Invoker) logger() *zap.Logger {
	if iv.Logger == nil {
		return zap.NewNop()
	}
	return iv.Logger
}

// writeInput hands the whole buffer to the pipe in one write and closes it
// so the child sees end-of-input. A child that exits without reading its
// input is not an error here; its exit status decides the outcome.
func writeInput(w io.WriteCloser, data []byte) error {
	_, err := w.Write(data)
	closeErr := w.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil || errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed) {
		return nil
	}
	return fmt.Errorf("writing stdin: %w", err)
}

func copyStream(dst io.Writer, src io.Reader, name string) error {
	if _, err := io.Copy(dst, src); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	return nil
}

// combinedBuffer collects chunks from both output streams in the order
// they arrive.
type combinedBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *combinedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	b.buf = append(b.buf, p...)
	b.mu.Unlock()
	return len(p), nil
}

func (b *combinedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf == nil {
		return []byte{}
	}
	return b.buf
}
