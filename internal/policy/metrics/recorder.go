package metrics

import "github.com/haukened/rr-policy/internal/policy/domain"

// Recorder receives session events. Sessions depend on this interface rather
// than on the package globals so tests can observe them directly.
type Recorder interface {
	SessionStarted(transport string)
	SessionEnded(transport string)
	Decision(action domain.Action)
	FailOpen()
	EmptyFrame()
}

// Prometheus records into the package-level collectors.
type Prometheus struct{}

func (Prometheus) SessionStarted(transport string) {
	SessionsTotal.WithLabelValues(transport).Inc()
	SessionsCurrent.WithLabelValues(transport).Inc()
}

func (Prometheus) SessionEnded(transport string) {
	SessionsCurrent.WithLabelValues(transport).Dec()
}

func (Prometheus) Decision(action domain.Action) {
	DecisionsTotal.WithLabelValues(action.String()).Inc()
}

func (Prometheus) FailOpen() { FailOpenTotal.Inc() }

func (Prometheus) EmptyFrame() { EmptyFramesTotal.Inc() }

// Nop discards every event.
type Nop struct{}

func (Nop) SessionStarted(string)  {}
func (Nop) SessionEnded(string)    {}
func (Nop) Decision(domain.Action) {}
func (Nop) FailOpen()              {}
func (Nop) EmptyFrame()            {}

var (
	_ Recorder = Prometheus{}
	_ Recorder = Nop{}
)
