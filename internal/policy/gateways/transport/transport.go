// Package transport carries policy sessions over a byte stream: standard
// input/output for Postfix spawn(8) services, or a TCP listener serving one
// session per connection.
package transport

import (
	"context"

	"github.com/haukened/rr-policy/internal/policy/domain"
)

// Decider evaluates one request. engine.Engine implements it.
type Decider interface {
	Decide(req domain.Request) (domain.Decision, error)
}

// ServerTransport defines the interface for policy transport implementations.
type ServerTransport interface {
	// Start begins serving sessions against decider. It does not block.
	Start(ctx context.Context, decider Decider) error

	// Stop shuts the transport down and closes open sessions where possible.
	Stop() error

	// Done is closed once the transport has nothing left to serve.
	Done() <-chan struct{}

	// Err reports why the transport finished; nil for a clean end of stream.
	Err() error

	// Address returns a description of where the transport is bound.
	Address() string
}

// TransportType represents the supported ways of reaching the daemon.
type TransportType string

const (
	// TransportStdio serves one session on standard input/output (Postfix spawn).
	TransportStdio TransportType = "stdio"

	// TransportTCP serves one session per accepted TCP connection.
	TransportTCP TransportType = "tcp"
)
