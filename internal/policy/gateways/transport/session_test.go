package transport

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-policy/internal/policy/domain"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSessionState_String(t *testing.T) {
	assert.Equal(t, "awaiting_request", StateAwaitingRequest.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "SessionState(9)", SessionState(9).String())
}

func TestSession_Serve_SingleRequest(t *testing.T) {
	decider := &MockDecider{}
	decider.On("Decide", mock.MatchedBy(func(r domain.Request) bool {
		return r.Recipient() == "user@example.com" && r.ClientAddress() == "10.0.0.5"
	})).Return(domain.Reject(domain.ReasonRecipientForbidden), nil).Once()

	rec := newCountingRecorder()
	s := NewSession(SessionOptions{Decider: decider, Logger: &testLogger{}, Recorder: rec, Transport: TransportStdio})
	assert.Equal(t, StateAwaitingRequest, s.State())

	in := strings.NewReader("request=smtpd_access_policy\nclient_address=10.0.0.5\nrecipient=user@example.com\n\n")
	var out bytes.Buffer
	require.NoError(t, s.Serve(in, &out))

	assert.Equal(t, "action=REJECT Access denied - recipient not allowed\n\n", out.String())
	assert.Equal(t, StateClosed, s.State())
	decider.AssertExpectations(t)

	started, ended, failOpen, _ := rec.snapshot()
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, ended)
	assert.Zero(t, failOpen)
	assert.Equal(t, 1, rec.decisions[domain.ActionReject])
}

func TestSession_Serve_MultipleFramesInOrder(t *testing.T) {
	decider := &MockDecider{}
	decider.On("Decide", mock.MatchedBy(func(r domain.Request) bool { return r.Recipient() == "a@x.org" })).
		Return(domain.Discard(), nil)
	decider.On("Decide", mock.MatchedBy(func(r domain.Request) bool { return r.Recipient() == "b@x.org" })).
		Return(domain.Allow(), nil)

	s := NewSession(SessionOptions{Decider: decider})
	in := strings.NewReader("recipient=a@x.org\n\nrecipient=b@x.org\n\n")
	var out bytes.Buffer
	require.NoError(t, s.Serve(in, &out))

	assert.Equal(t, "action=DISCARD\n\naction=OK\n\n", out.String())
}

func TestSession_Serve_EmptyFrameHasNoResponse(t *testing.T) {
	decider := &MockDecider{}
	rec := newCountingRecorder()
	s := NewSession(SessionOptions{Decider: decider, Recorder: rec})

	var out bytes.Buffer
	require.NoError(t, s.Serve(strings.NewReader("\n"), &out))

	assert.Empty(t, out.String())
	decider.AssertNotCalled(t, "Decide", mock.Anything)
	_, _, _, empty := rec.snapshot()
	assert.Equal(t, 1, empty)
}

func TestSession_Serve_PartialFrameAtEOFIsDiscarded(t *testing.T) {
	decider := &MockDecider{}
	s := NewSession(SessionOptions{Decider: decider})

	var out bytes.Buffer
	require.NoError(t, s.Serve(strings.NewReader("recipient=a@x.org\nsender=b@y.org"), &out))

	assert.Empty(t, out.String())
	decider.AssertNotCalled(t, "Decide", mock.Anything)
}

func TestSession_Serve_FailOpenOnError(t *testing.T) {
	decider := &MockDecider{}
	decider.On("Decide", mock.Anything).Return(domain.Decision{}, errors.New("boom"))

	rec := newCountingRecorder()
	s := NewSession(SessionOptions{Decider: decider, Recorder: rec})

	var out bytes.Buffer
	require.NoError(t, s.Serve(strings.NewReader("recipient=a@x.org\n\nrecipient=b@x.org\n\n"), &out))

	assert.Equal(t, "action=OK\n\naction=OK\n\n", out.String())
	_, _, failOpen, _ := rec.snapshot()
	assert.Equal(t, 2, failOpen)
	assert.Empty(t, rec.decisions)
}

func TestSession_Serve_FailOpenOnPanic(t *testing.T) {
	rec := newCountingRecorder()
	s := NewSession(SessionOptions{Decider: panicDecider{}, Recorder: rec})

	var out bytes.Buffer
	require.NoError(t, s.Serve(strings.NewReader("recipient=a@x.org\n\n"), &out))

	assert.Equal(t, "action=OK\n\n", out.String())
	_, _, failOpen, _ := rec.snapshot()
	assert.Equal(t, 1, failOpen)
}

func TestSession_Decide_WrapsPanic(t *testing.T) {
	s := NewSession(SessionOptions{Decider: panicDecider{}})
	_, err := s.decide(domain.NewRequest("recipient", "a@x.org"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEvaluationPanic)
	assert.Contains(t, err.Error(), "rule table corrupted")
}

func TestSession_Serve_NilDeciderFailsOpen(t *testing.T) {
	s := NewSession(SessionOptions{})
	var out bytes.Buffer
	require.NoError(t, s.Serve(strings.NewReader("recipient=a@x.org\n\n"), &out))
	assert.Equal(t, "action=OK\n\n", out.String())
}

func TestSession_Serve_WriteError(t *testing.T) {
	s := NewSession(SessionOptions{Decider: fixedDecider{dec: domain.Allow()}})
	err := s.Serve(strings.NewReader("recipient=a@x.org\n\n"), failingWriter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
	assert.Equal(t, StateClosed, s.State())
}

func TestSession_Serve_ReadError(t *testing.T) {
	rec := newCountingRecorder()
	s := NewSession(SessionOptions{Decider: fixedDecider{dec: domain.Allow()}, Recorder: rec})
	err := s.Serve(failingReader{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	started, ended, _, _ := rec.snapshot()
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, ended)
}
