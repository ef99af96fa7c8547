// Package report records invocation outcomes so a caller can page through
// the full output of an earlier run by its ID.
package report

import (
	"time"

	"github.com/deixis/sslrun/internal/invoker"
)

// Store persists and retrieves run records.
type Store interface {
	Save(rec *Record) error
	Load(runID string) (*Record, error)
}

// Record is the stored outcome of one invocation.
type Record struct {
	ID         string        `json:"id"`
	Binary     string        `json:"binary"`
	Args       []string      `json:"args"`
	StdinBytes int           `json:"stdin_bytes,omitempty"`
	Kind       invoker.Kind  `json:"kind"`
	ExitCode   int           `json:"exit_code"`
	Output     []byte        `json:"output,omitempty"` // combined stdout/stderr
	Error      string        `json:"error,omitempty"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration"`
}

// NewRecord builds a record from an invocation's outcome. For failed runs
// the partial output carried by err is stored.
func NewRecord(id, binary string, args []string, stdinBytes int, out []byte, err error, started time.Time) *Record {
	rec := &Record{
		ID:         id,
		Binary:     binary,
		Args:       args,
		StdinBytes: stdinBytes,
		Kind:       invoker.KindOf(err),
		ExitCode:   invoker.ExitCode(err),
		Output:     out,
		Started:    started,
		Duration:   time.Since(started),
	}
	if err != nil {
		rec.Error = err.Error()
		rec.Output = invoker.Output(err)
	}
	return rec
}

// Page returns up to limit bytes of the record's output starting at
// offset, and whether more output follows. A limit <= 0 means no limit.
func (r *Record) Page(offset, limit int) ([]byte, bool) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(r.Output) {
		return nil, false
	}
	end := len(r.Output)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return r.Output[offset:end], end < len(r.Output)
}
