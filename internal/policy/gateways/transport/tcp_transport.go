package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"golang.org/x/net/netutil"

	"github.com/haukened/rr-policy/internal/policy/common/log"
	"github.com/haukened/rr-policy/internal/policy/metrics"
)

// TCPTransport serves policy sessions on a TCP listener, one session per
// connection. All sessions share the same Decider, which must therefore be
// safe for concurrent use (the engine over an immutable rule store is).
type TCPTransport struct {
	addr     string
	maxConns int
	logger   log.Logger
	recorder metrics.Recorder

	mu      sync.Mutex
	ln      net.Listener
	started bool
	running bool
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
	stopCh  chan struct{}
	done    chan struct{}
}

// NewTCPTransport creates a TCP transport. maxConns <= 0 means unlimited.
func NewTCPTransport(addr string, maxConns int, logger log.Logger, recorder metrics.Recorder) *TCPTransport {
	return &TCPTransport{
		addr:     addr,
		maxConns: maxConns,
		logger:   logger,
		recorder: recorder,
		conns:    make(map[net.Conn]struct{}),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start binds the listener and accepts connections in the background.
// The transport stops on its own when ctx is cancelled.
func (t *TCPTransport) Start(ctx context.Context, decider Decider) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return fmt.Errorf("TCP transport already running")
	}

	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to bind TCP listener on %s: %w", t.addr, err)
	}
	if t.maxConns > 0 {
		ln = netutil.LimitListener(ln, t.maxConns)
	}
	t.ln = ln
	t.started = true
	t.running = true

	t.logger.Info(map[string]any{
		"transport":       string(TransportTCP),
		"address":         ln.Addr().String(),
		"max_connections": t.maxConns,
	}, "Policy transport started")

	go t.acceptLoop(decider)
	go func() {
		select {
		case <-ctx.Done():
			_ = t.Stop()
		case <-t.stopCh:
		}
	}()
	return nil
}

// Stop closes the listener and every open connection, then waits for the
// sessions to return. It is safe to call more than once; later calls wait for
// the first to finish.
func (t *TCPTransport) Stop() error {
	t.mu.Lock()
	if !t.running {
		started := t.started
		t.mu.Unlock()
		if started {
			<-t.done
		}
		return nil
	}
	t.running = false
	close(t.stopCh)

	closeErr := t.ln.Close()
	for c := range t.conns {
		_ = c.Close()
	}
	t.mu.Unlock()

	t.wg.Wait()
	close(t.done)

	t.logger.Info(map[string]any{
		"transport": string(TransportTCP),
		"address":   t.Address(),
	}, "Policy transport stopped")
	return closeErr
}

// Done is closed after Stop has drained all sessions.
func (t *TCPTransport) Done() <-chan struct{} { return t.done }

// Err always returns nil; connection failures are per session and only logged.
func (t *TCPTransport) Err() error { return nil }

// Address returns the bound address once started, the configured one before.
func (t *TCPTransport) Address() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ln != nil {
		return t.ln.Addr().String()
	}
	return t.addr
}

func (t *TCPTransport) acceptLoop(decider Decider) {
	for {
		conn, err := t.ln.Accept()
		if err != nil {
			t.mu.Lock()
			running := t.running
			t.mu.Unlock()
			if !running || errors.Is(err, net.ErrClosed) {
				return
			}
			t.logger.Warn(map[string]any{"error": err}, "Failed to accept policy connection")
			continue
		}

		t.mu.Lock()
		if !t.running {
			t.mu.Unlock()
			_ = conn.Close()
			return
		}
		t.conns[conn] = struct{}{}
		t.wg.Add(1)
		t.mu.Unlock()

		go t.handleConn(conn, decider)
	}
}

func (t *TCPTransport) handleConn(conn net.Conn, decider Decider) {
	defer t.wg.Done()
	defer func() {
		t.mu.Lock()
		delete(t.conns, conn)
		t.mu.Unlock()
		_ = conn.Close()
	}()

	remote := conn.RemoteAddr().String()
	t.logger.Debug(map[string]any{"remote": remote}, "Policy connection accepted")

	session := NewSession(SessionOptions{
		Decider:   decider,
		Logger:    t.logger,
		Recorder:  t.recorder,
		Transport: TransportTCP,
	})
	if err := session.Serve(conn, conn); err != nil {
		t.mu.Lock()
		running := t.running
		t.mu.Unlock()
		if running {
			t.logger.Warn(map[string]any{"remote": remote, "error": err}, "Policy session ended with error")
		}
		return
	}
	t.logger.Debug(map[string]any{"remote": remote}, "Policy connection closed")
}

var _ ServerTransport = (*TCPTransport)(nil)
