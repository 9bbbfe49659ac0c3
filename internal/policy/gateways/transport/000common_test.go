package transport

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/haukened/rr-policy/internal/policy/domain"
)

// MockDecider implements Decider for testing.
type MockDecider struct {
	mock.Mock
}

func (m *MockDecider) Decide(req domain.Request) (domain.Decision, error) {
	args := m.Called(req)
	return args.Get(0).(domain.Decision), args.Error(1)
}

// panicDecider panics on every request.
type panicDecider struct{}

func (panicDecider) Decide(domain.Request) (domain.Decision, error) {
	panic("rule table corrupted")
}

// fixedDecider answers every request with the same decision.
type fixedDecider struct{ dec domain.Decision }

func (f fixedDecider) Decide(domain.Request) (domain.Decision, error) { return f.dec, nil }

// testLogger provides a no-op logger for tests that don't need to verify logging.
type testLogger struct{}

func (t *testLogger) Info(map[string]any, string)  {}
func (t *testLogger) Error(map[string]any, string) {}
func (t *testLogger) Debug(map[string]any, string) {}
func (t *testLogger) Warn(map[string]any, string)  {}
func (t *testLogger) Panic(map[string]any, string) {}
func (t *testLogger) Fatal(map[string]any, string) {}

// countingRecorder tallies recorder events.
type countingRecorder struct {
	mu         sync.Mutex
	started    int
	ended      int
	decisions  map[domain.Action]int
	failOpen   int
	emptyFrame int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{decisions: make(map[domain.Action]int)}
}

func (c *countingRecorder) SessionStarted(string) {
	c.mu.Lock()
	c.started++
	c.mu.Unlock()
}

func (c *countingRecorder) SessionEnded(string) {
	c.mu.Lock()
	c.ended++
	c.mu.Unlock()
}

func (c *countingRecorder) Decision(a domain.Action) {
	c.mu.Lock()
	c.decisions[a]++
	c.mu.Unlock()
}

func (c *countingRecorder) FailOpen() {
	c.mu.Lock()
	c.failOpen++
	c.mu.Unlock()
}

func (c *countingRecorder) EmptyFrame() {
	c.mu.Lock()
	c.emptyFrame++
	c.mu.Unlock()
}

func (c *countingRecorder) snapshot() (started, ended, failOpen, empty int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started, c.ended, c.failOpen, c.emptyFrame
}
