// Package engine wires the position-management engine's subsystems
// together: quote cache, health telemetry, startup hydration, the
// lifecycle coordinator, the inbound tick feed, and the dashboard/RPC
// server. It owns process lifetime — New() constructs every
// component, Start() launches the tick feed and RPC server, Stop()
// drains them in reverse order.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"positionengine/internal/config"
	"positionengine/internal/events"
	"positionengine/internal/health"
	"positionengine/internal/lifecycle"
	"positionengine/internal/persistence"
	"positionengine/internal/quotecache"
	"positionengine/internal/rpc"
	"positionengine/internal/startup"
	"positionengine/internal/tickproc"
)

// Engine orchestrates every subsystem of the position-management
// engine described by the coordinator and tick-processor packages.
type Engine struct {
	cfg    config.Config
	logger *slog.Logger

	quotes    *quotecache.Cache
	telemetry *health.Aggregator
	coord     *lifecycle.Coordinator
	hub       *rpc.Hub
	rpcServer *rpc.Server
	feed      *tickproc.Feed
	eventsNC  *nats.Conn

	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs every component and hydrates the engine from the
// configured persistence snapshot. No goroutines are started yet.
func New(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	ctx, cancel := context.WithCancel(context.Background())

	quotes := quotecache.New()
	telemetry := health.New(logger)

	publisher, eventsNC, err := newPublisher(cfg.Events, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build event publisher: %w", err)
	}

	hub := rpc.NewHub(logger)
	broadcasting := rpc.NewBroadcastingPublisher(publisher, hub)

	coord := lifecycle.New(quotes, broadcasting, telemetry, logger)

	snapshotClient, err := newSnapshotClient(cfg.Persist)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build snapshot client: %w", err)
	}
	if err := startup.Hydrate(coord, snapshotClient, logger); err != nil {
		cancel()
		return nil, fmt.Errorf("hydrate snapshot: %w", err)
	}

	procCfg := tickproc.Config{MarginCallPercent: cfg.Health.MarginCallPercent}
	proc := tickproc.New(coord, quotes, telemetry, procCfg)

	feed, err := tickproc.Connect(cfg.Tick.NATSUrl, cfg.Tick.Subject, proc, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("connect tick feed: %w", err)
	}

	adapter := rpc.NewAdapter(coord)
	rpcServer := rpc.NewServer(fmt.Sprintf(":%d", cfg.Dashboard.Port), adapter, hub, logger)

	return &Engine{
		cfg:       cfg,
		logger:    logger.With("component", "engine"),
		quotes:    quotes,
		telemetry: telemetry,
		coord:     coord,
		hub:       hub,
		rpcServer: rpcServer,
		feed:      feed,
		eventsNC:  eventsNC,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// newPublisher builds an events.Publisher from config: a real NATS
// connection when a URL is configured, otherwise an in-memory
// publisher suitable for tests and single-node development.
func newPublisher(cfg config.EventsConfig, logger *slog.Logger) (events.Publisher, *nats.Conn, error) {
	if cfg.NATSUrl == "" {
		return events.NewMemoryPublisher(), nil, nil
	}

	conn, err := nats.Connect(cfg.NATSUrl)
	if err != nil {
		return nil, nil, fmt.Errorf("connect events NATS: %w", err)
	}
	return events.NewNATSPublisher(conn, logger), conn, nil
}

// newSnapshotClient builds the startup-hydration client per
// cfg.Mode: "remote" talks to the durable persistence service over
// HTTP, "local" reads/writes JSON files on disk.
func newSnapshotClient(cfg config.PersistConfig) (persistence.Client, error) {
	switch cfg.Mode {
	case "remote":
		return persistence.NewRemote(cfg.RemoteURL), nil
	case "local":
		return persistence.OpenLocalFile(cfg.LocalDir)
	default:
		return nil, fmt.Errorf("unknown persistence mode %q", cfg.Mode)
	}
}

// Start launches the tick feed and the RPC/dashboard server. It
// returns once the tick subscription is established; the RPC server
// runs on its own goroutine until Stop is called.
func (e *Engine) Start() error {
	if err := e.feed.Subscribe(); err != nil {
		return fmt.Errorf("subscribe tick feed: %w", err)
	}

	go func() {
		if err := e.rpcServer.Start(); err != nil {
			e.logger.Error("rpc server stopped", "error", err)
		}
	}()

	go e.telemetry.Run(e.ctx)

	e.logger.Info("engine started",
		"tick_subject", e.cfg.Tick.Subject,
		"dashboard_port", e.cfg.Dashboard.Port,
		"persistence_mode", e.cfg.Persist.Mode,
	)
	return nil
}

// Stop shuts every subsystem down in reverse dependency order: RPC
// server, tick feed, telemetry loop, then the events connection if
// one was opened.
func (e *Engine) Stop() {
	e.logger.Info("shutting down...")

	if err := e.rpcServer.Stop(); err != nil {
		e.logger.Error("rpc server shutdown error", "error", err)
	}

	e.feed.Close()
	e.cancel()

	if e.eventsNC != nil {
		e.eventsNC.Close()
	}

	e.logger.Info("shutdown complete")
}

// Telemetry exposes the health aggregator snapshot for diagnostics.
func (e *Engine) Telemetry() health.Snapshot {
	return e.telemetry.GetSnapshot()
}
