package transport

import (
	"fmt"
	"io"

	"github.com/haukened/rr-policy/internal/policy/common/log"
	"github.com/haukened/rr-policy/internal/policy/metrics"
)

// Options collects what every transport kind may need.
type Options struct {
	Addr           string
	MaxConnections int
	In             io.Reader
	Out            io.Writer
	Logger         log.Logger
	Recorder       metrics.Recorder
}

// NewTransport creates a transport of the given type.
func NewTransport(transportType TransportType, opts Options) (ServerTransport, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.Nop{}
	}

	switch transportType {
	case TransportStdio:
		if opts.In == nil || opts.Out == nil {
			return nil, fmt.Errorf("stdio transport requires an input and an output")
		}
		return NewStdioTransport(opts.In, opts.Out, opts.Logger, opts.Recorder), nil

	case TransportTCP:
		if opts.Addr == "" {
			return nil, fmt.Errorf("tcp transport requires a listen address")
		}
		return NewTCPTransport(opts.Addr, opts.MaxConnections, opts.Logger, opts.Recorder), nil

	default:
		return nil, fmt.Errorf("unsupported transport type: %s", transportType)
	}
}
