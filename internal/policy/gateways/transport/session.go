package transport

import (
	"errors"
	"fmt"
	"io"

	"github.com/haukened/rr-policy/internal/policy/common/log"
	"github.com/haukened/rr-policy/internal/policy/domain"
	"github.com/haukened/rr-policy/internal/policy/gateways/wire"
	"github.com/haukened/rr-policy/internal/policy/metrics"
)

// ErrEvaluationPanic wraps a panic recovered while evaluating a request.
var ErrEvaluationPanic = errors.New("policy evaluation panicked")

// SessionState is the state of a Session.
type SessionState uint8

const (
	// StateAwaitingRequest: reading lines of the next frame.
	StateAwaitingRequest SessionState = iota
	// StateClosed: the input stream ended or failed.
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateAwaitingRequest:
		return "awaiting_request"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("SessionState(%d)", s)
	}
}

// SessionOptions configures a Session. Logger and Recorder are optional.
type SessionOptions struct {
	Decider   Decider
	Logger    log.Logger
	Recorder  metrics.Recorder
	Transport TransportType
}

// Session drives one policy conversation: read a frame, decide, answer, repeat
// until the input ends. A Session is not safe for concurrent use; every
// connection gets its own.
type Session struct {
	decider   Decider
	logger    log.Logger
	recorder  metrics.Recorder
	transport string
	state     SessionState
}

// NewSession creates a session in StateAwaitingRequest.
func NewSession(opts SessionOptions) *Session {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.Nop{}
	}
	return &Session{
		decider:   opts.Decider,
		logger:    opts.Logger,
		recorder:  opts.Recorder,
		transport: string(opts.Transport),
		state:     StateAwaitingRequest,
	}
}

// State returns the current session state.
func (s *Session) State() SessionState { return s.state }

// Serve runs the session until r is exhausted. End of stream is a clean
// finish and returns nil; read and write failures are returned. Frames without
// any attribute are skipped without a response.
func (s *Session) Serve(r io.Reader, w io.Writer) error {
	s.recorder.SessionStarted(s.transport)
	defer s.recorder.SessionEnded(s.transport)
	defer func() { s.state = StateClosed }()

	reader := wire.NewRequestReader(r, s.logger)
	writer := wire.NewResponseWriter(w)
	s.state = StateAwaitingRequest

	for {
		req, err := reader.ReadRequest()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if req.IsEmpty() {
			s.recorder.EmptyFrame()
			s.logger.Debug(nil, "skip_empty_frame")
			continue
		}

		if err := writer.WriteDecision(s.evaluate(req)); err != nil {
			return err
		}
	}
}

// evaluate is the fail-open boundary: any error or panic from the decider is
// answered with OK so a broken rule set never blocks mail delivery.
func (s *Session) evaluate(req domain.Request) domain.Decision {
	dec, err := s.decide(req)
	if err != nil {
		s.logger.Warn(map[string]any{"error": err}, "Policy evaluation failed, answering OK")
		s.recorder.FailOpen()
		return domain.Allow()
	}
	s.recorder.Decision(dec.Action)
	return dec
}

func (s *Session) decide(req domain.Request) (dec domain.Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrEvaluationPanic, r)
		}
	}()
	if s.decider == nil {
		return domain.Decision{}, errors.New("no decider configured")
	}
	return s.decider.Decide(req)
}
