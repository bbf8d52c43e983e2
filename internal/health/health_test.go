package health

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestAggregatorTracksExposureAndMarginCalls(t *testing.T) {
	a := New(slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	a.ReportExposure(ExposureReport{Instrument: "EURUSD", ExposureUSD: 5000, Timestamp: time.Now()})
	a.RecordMarginCall()

	// Allow the aggregator goroutine to drain the channels.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		snap := a.GetSnapshot()
		if snap.TotalExposureUSD == 5000 && snap.MarginCallCount == 1 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("aggregator did not converge to expected snapshot in time")
}

func TestRecordCloseCounters(t *testing.T) {
	a := New(slog.Default())
	a.RecordClose(true, false, false)
	a.RecordClose(false, true, false)
	a.RecordClose(false, false, true)

	snap := a.GetSnapshot()
	if snap.StopOutCount != 1 || snap.StopLossCount != 1 || snap.TakeProfitCount != 1 {
		t.Fatalf("unexpected close counters: %+v", snap)
	}
}
