// positionengine is a position-management engine for leveraged CFD
// trading. It holds, in memory, the authoritative set of active and
// pending trader positions and reacts to a high-rate stream of
// bid/ask ticks: marking positions to market, detecting stop-out /
// stop-loss / take-profit / margin-call conditions, activating
// pending orders, and publishing the resulting persistence and
// notification events. Command RPCs (open/close/top-up/modify) are
// served over the adapter in internal/rpc.
//
// Architecture:
//
//	main.go                      — entry point: loads config, starts engine, waits for SIGINT/SIGTERM
//	engine/engine.go             — orchestrator: wires quote cache, coordinator, tick feed, RPC server
//	quotecache/cache.go          — latest bid/ask per asset pair, directed lookup for collateral conversion
//	positionstore/store.go       — primary map + secondary indices (trader/account/instrument/currencies)
//	position/position.go+pnl.go — position entity, state variants, P&L formula, trigger evaluation
//	tickproc/processor.go+feed.go — per-tick pipeline: mark to market, trigger, activate pending
//	lifecycle/coordinator.go     — open/close/top-up/cancel/execute, event emission under the store lock
//	events/                      — persistence + notification publisher (NATS, or in-memory for dev/test)
//	persistence/                 — startup snapshot hydration (remote HTTP client or local JSON files)
//	rpc/                         — command adapter + HTTP/WebSocket transport for the dashboard
//	health/health.go             — margin-call/exposure/tick-rate telemetry aggregator
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"positionengine/internal/config"
	"positionengine/internal/engine"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("PE_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	eng, err := engine.New(*cfg, logger)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	if err := eng.Start(); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	logger.Info("position engine started",
		"tick_subject", cfg.Tick.Subject,
		"dashboard_port", cfg.Dashboard.Port,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	eng.Stop()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
