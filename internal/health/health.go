// Package health aggregates operational telemetry for the position
// engine: margin-call frequency, stop-out frequency, open exposure per
// instrument, and tick arrival rate. It is pure observability — unlike
// the portfolio risk manager it is adapted from, it never halts
// processing or gates an operation; cross-account risk limits stay out
// of scope here.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ExposureReport is submitted once per tick per instrument with the
// aggregate notional currently open.
type ExposureReport struct {
	Instrument  string
	ExposureUSD float64
	Timestamp   time.Time
}

// Aggregator collects reports and exposes a point-in-time Snapshot.
type Aggregator struct {
	logger *slog.Logger

	mu               sync.RWMutex
	exposure         map[string]float64
	marginCallCount  int
	stopOutCount     int
	takeProfitCount  int
	stopLossCount    int
	lastTickAt       time.Time
	tickIntervalEMA  time.Duration

	reportCh    chan ExposureReport
	marginCalls chan struct{}
}

// New creates an Aggregator.
func New(logger *slog.Logger) *Aggregator {
	return &Aggregator{
		logger:      logger.With("component", "health"),
		exposure:    make(map[string]float64),
		reportCh:    make(chan ExposureReport, 256),
		marginCalls: make(chan struct{}, 256),
	}
}

// Run drains reports until ctx is cancelled. It is safe to call
// RecordX concurrently with Run from any goroutine.
func (a *Aggregator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-a.reportCh:
			a.mu.Lock()
			a.exposure[r.Instrument] = r.ExposureUSD
			a.mu.Unlock()
		case <-a.marginCalls:
			a.mu.Lock()
			a.marginCallCount++
			a.mu.Unlock()
		}
	}
}

// ReportExposure submits an instrument's current aggregate exposure,
// non-blocking.
func (a *Aggregator) ReportExposure(r ExposureReport) {
	select {
	case a.reportCh <- r:
	default:
		a.logger.Warn("exposure report channel full, dropping report", "instrument", r.Instrument)
	}
}

// RecordMarginCall increments the margin-call counter, non-blocking.
func (a *Aggregator) RecordMarginCall() {
	select {
	case a.marginCalls <- struct{}{}:
	default:
	}
}

// RecordClose increments the per-reason close counters directly
// (these are low-frequency enough not to need a channel).
func (a *Aggregator) RecordClose(stopOut, stopLoss, takeProfit bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if stopOut {
		a.stopOutCount++
	}
	if stopLoss {
		a.stopLossCount++
	}
	if takeProfit {
		a.takeProfitCount++
	}
}

// RecordTick updates the tick arrival rate estimate (exponential
// moving average of inter-tick interval).
func (a *Aggregator) RecordTick(at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.lastTickAt.IsZero() {
		interval := at.Sub(a.lastTickAt)
		if a.tickIntervalEMA == 0 {
			a.tickIntervalEMA = interval
		} else {
			const alpha = 0.2
			a.tickIntervalEMA = time.Duration(float64(a.tickIntervalEMA)*(1-alpha) + float64(interval)*alpha)
		}
	}
	a.lastTickAt = at
}

// Snapshot is a point-in-time view of aggregated telemetry.
type Snapshot struct {
	TotalExposureUSD float64
	ExposureByInstrument map[string]float64
	MarginCallCount  int
	StopOutCount     int
	StopLossCount    int
	TakeProfitCount  int
	TickIntervalEMA  time.Duration
	LastTickAt       time.Time
}

// GetSnapshot returns the current aggregate telemetry.
func (a *Aggregator) GetSnapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	byInstrument := make(map[string]float64, len(a.exposure))
	var total float64
	for k, v := range a.exposure {
		byInstrument[k] = v
		total += v
	}

	return Snapshot{
		TotalExposureUSD:     total,
		ExposureByInstrument: byInstrument,
		MarginCallCount:      a.marginCallCount,
		StopOutCount:         a.stopOutCount,
		StopLossCount:        a.stopLossCount,
		TakeProfitCount:      a.takeProfitCount,
		TickIntervalEMA:      a.tickIntervalEMA,
		LastTickAt:           a.lastTickAt,
	}
}
