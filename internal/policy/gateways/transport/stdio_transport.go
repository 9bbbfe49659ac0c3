package transport

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/haukened/rr-policy/internal/policy/common/log"
	"github.com/haukened/rr-policy/internal/policy/metrics"
)

// StdioTransport serves a single session over a reader/writer pair, normally
// the process's standard input and output when Postfix spawns the daemon.
type StdioTransport struct {
	in       io.Reader
	out      io.Writer
	logger   log.Logger
	recorder metrics.Recorder

	mu      sync.Mutex
	started bool
	done    chan struct{}
	err     error
}

// NewStdioTransport creates a transport reading requests from in and writing
// responses to out.
func NewStdioTransport(in io.Reader, out io.Writer, logger log.Logger, recorder metrics.Recorder) *StdioTransport {
	return &StdioTransport{
		in:       in,
		out:      out,
		logger:   logger,
		recorder: recorder,
		done:     make(chan struct{}),
	}
}

// Start runs the session in the background. Done closes when the input ends.
// Cancelling ctx does not interrupt a pending read; only end of stream does.
func (t *StdioTransport) Start(_ context.Context, decider Decider) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return fmt.Errorf("stdio transport already started")
	}
	t.started = true

	session := NewSession(SessionOptions{
		Decider:   decider,
		Logger:    t.logger,
		Recorder:  t.recorder,
		Transport: TransportStdio,
	})

	t.logger.Debug(map[string]any{"transport": string(TransportStdio)}, "Policy transport started")
	go func() {
		err := session.Serve(t.in, t.out)
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
		close(t.done)
	}()
	return nil
}

// Stop is a no-op: the session ends when its input does.
func (t *StdioTransport) Stop() error { return nil }

// Done is closed when the session has finished.
func (t *StdioTransport) Done() <-chan struct{} { return t.done }

// Err returns the session error once Done is closed.
func (t *StdioTransport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Address returns "stdio".
func (t *StdioTransport) Address() string { return string(TransportStdio) }

var _ ServerTransport = (*StdioTransport)(nil)
