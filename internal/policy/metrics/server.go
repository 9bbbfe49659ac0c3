package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haukened/rr-policy/internal/policy/common/log"
)

// NewRouter returns the metrics HTTP routes: /metrics and /healthz.
func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	return r
}

// Server serves NewRouter on its own listener, separate from policy traffic.
type Server struct {
	addr   string
	srv    *http.Server
	ln     net.Listener
	logger log.Logger
}

// NewServer creates a metrics server for addr.
func NewServer(addr string, logger log.Logger) *Server {
	return &Server{
		addr:   addr,
		logger: logger,
		srv: &http.Server{
			Handler:           NewRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind metrics listener on %s: %w", s.addr, err)
	}
	s.ln = ln
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(map[string]any{"error": err}, "Metrics server failed")
		}
	}()
	s.logger.Info(map[string]any{"address": s.Address()}, "Metrics server started")
	return nil
}

// Address returns the bound address, or the configured one before Start.
func (s *Server) Address() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop shuts the server down, waiting for in-flight scrapes until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
