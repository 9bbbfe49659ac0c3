package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haukened/rr-policy/internal/policy/common/clock"
	"github.com/haukened/rr-policy/internal/policy/common/log"
	"github.com/haukened/rr-policy/internal/policy/config"
	"github.com/haukened/rr-policy/internal/policy/gateways/transport"
	"github.com/haukened/rr-policy/internal/policy/metrics"
	"github.com/haukened/rr-policy/internal/policy/repos/rules"
	"github.com/haukened/rr-policy/internal/policy/repos/rules/bloom"
	"github.com/haukened/rr-policy/internal/policy/repos/rules/lru"
	"github.com/haukened/rr-policy/internal/policy/services/engine"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "rr-policyd"

	defaultShutdownTimeout = 10 * time.Second
)

// Application holds all the components of the policy daemon
type Application struct {
	config    *config.AppConfig
	store     *rules.Store
	engine    *engine.Engine
	transport transport.ServerTransport
	metrics   *metrics.Server
}

func main() {
	// Load configuration from defaults, optional TOML file and environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging; it always writes to stderr
	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Debug(map[string]any{
		"app":             appName,
		"version":         version,
		"env":             cfg.Env,
		"log_level":       cfg.LogLevel,
		"mode":            cfg.Mode,
		"listen":          cfg.Listen,
		"max_connections": cfg.MaxConnections,
		"metrics_listen":  cfg.MetricsListen,
	}, "Starting policy daemon")

	app, err := buildApplication(cfg, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Policy daemon failed")
	}

	log.Debug(nil, "Policy daemon stopped")
}

// buildApplication constructs all components and wires them together. in and
// out are only used in stdio mode.
func buildApplication(cfg *config.AppConfig, in io.Reader, out io.Writer) (*Application, error) {
	logger := log.GetLogger()

	store, err := buildStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule store: %w", err)
	}
	metrics.SetRulesLoaded(store.Stats().Counts())

	tr, err := transport.NewTransport(transport.TransportType(cfg.Mode), transport.Options{
		Addr:           cfg.Listen,
		MaxConnections: cfg.MaxConnections,
		In:             in,
		Out:            out,
		Logger:         logger,
		Recorder:       metrics.Prometheus{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build transport: %w", err)
	}

	var metricsServer *metrics.Server
	if cfg.MetricsListen != "" {
		metricsServer = metrics.NewServer(cfg.MetricsListen, logger)
	}

	return &Application{
		config:    cfg,
		store:     store,
		engine:    engine.New(store),
		transport: tr,
		metrics:   metricsServer,
	}, nil
}

// buildStore loads the four rule sources. Unreadable sources are logged and
// treated as empty; only building the match cache can fail.
func buildStore(cfg *config.AppConfig, logger log.Logger) (*rules.Store, error) {
	cache, err := lru.New(cfg.MatchCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create match cache: %w", err)
	}

	return rules.Load(rules.Sources{
		DeniedSenders:         cfg.DeniedSenders,
		BlackholeRecipients:   cfg.BlackholeRecipients,
		SenderRestrictions:    cfg.SenderRestrictions,
		RecipientRestrictions: cfg.RecipientRestrictions,
	}, rules.Options{
		Logger: logger,
		Clock:  &clock.RealClock{},
		Bloom:  bloom.NewFactory(),
		FPRate: cfg.BloomFPRate,
		Cache:  cache,
	}), nil
}

// Run serves policy requests until ctx is cancelled or, in stdio mode, until
// standard input is exhausted.
func (app *Application) Run(ctx context.Context) error {
	if app.metrics != nil {
		if err := app.metrics.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	if err := app.transport.Start(ctx, app.engine); err != nil {
		app.stopMetrics()
		return fmt.Errorf("failed to start %s transport: %w", app.config.Mode, err)
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Debug(nil, "Shutdown initiated")
	case <-app.transport.Done():
		runErr = app.transport.Err()
	}

	if err := app.transport.Stop(); err != nil {
		log.Warn(map[string]any{"error": err}, "Error during transport shutdown")
	}
	app.stopMetrics()

	return runErr
}

func (app *Application) stopMetrics() {
	if app.metrics == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := app.metrics.Stop(ctx); err != nil {
		log.Warn(map[string]any{"error": err}, "Error during metrics shutdown")
	}
}
