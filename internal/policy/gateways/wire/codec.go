// Package wire implements the framing of the Postfix policy delegation protocol:
// requests are "name=value" lines closed by a blank line, responses are a
// single "action=..." line closed by a blank line.
package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/haukened/rr-policy/internal/policy/common/log"
	"github.com/haukened/rr-policy/internal/policy/domain"
)

// RequestReader reads request frames from a byte stream.
type RequestReader struct {
	br     *bufio.Reader
	logger log.Logger
}

// NewRequestReader wraps r. A nil logger discards diagnostics.
func NewRequestReader(r io.Reader, logger log.Logger) *RequestReader {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &RequestReader{br: bufio.NewReader(r), logger: logger}
}

// ReadRequest blocks until a frame terminator (a blank line) or the end of the
// stream. It returns io.EOF once the stream is exhausted; a frame cut off by the
// end of the stream is discarded. Malformed lines are dropped, so a completed
// frame may hold no attributes at all.
//
// This is the only blocking point of a session and it has no timeout.
func (r *RequestReader) ReadRequest() (domain.Request, error) {
	var req domain.Request
	pending := 0
	for {
		line, err := r.br.ReadString('\n')
		if line == "" && err != nil {
			return domain.Request{}, r.endOfStream(err, pending)
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			return req, nil
		}
		pending++

		key, value, ok := ParseAttribute(trimmed)
		if !ok {
			r.logger.Debug(map[string]any{"length": len(trimmed)}, "drop_malformed_attribute")
		} else if !req.Set(key, value) {
			r.logger.Debug(map[string]any{"attribute": key}, "drop_duplicate_attribute")
		}

		if err != nil {
			return domain.Request{}, r.endOfStream(err, pending)
		}
	}
}

func (r *RequestReader) endOfStream(err error, pending int) error {
	if pending > 0 {
		r.logger.Debug(map[string]any{"lines": pending}, "drop_partial_frame")
	}
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	return fmt.Errorf("read request: %w", err)
}

// ParseAttribute splits a trimmed "name=value" line on its first '='.
// ok is false when the line carries no '='.
func ParseAttribute(line string) (key, value string, ok bool) {
	i := strings.IndexByte(line, '=')
	if i < 0 {
		return "", "", false
	}
	return line[:i], line[i+1:], true
}

// EncodeDecision renders the response frame for d.
func EncodeDecision(d domain.Decision) []byte {
	return []byte("action=" + d.Response() + "\n\n")
}

// ResponseWriter writes response frames, flushing each one immediately.
type ResponseWriter struct {
	bw *bufio.Writer
}

// NewResponseWriter wraps w.
func NewResponseWriter(w io.Writer) *ResponseWriter {
	return &ResponseWriter{bw: bufio.NewWriter(w)}
}

// WriteDecision writes and flushes one response frame.
func (w *ResponseWriter) WriteDecision(d domain.Decision) error {
	if _, err := w.bw.Write(EncodeDecision(d)); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("flush response: %w", err)
	}
	return nil
}
