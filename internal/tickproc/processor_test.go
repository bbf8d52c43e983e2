package tickproc

import (
	"log/slog"
	"testing"
	"time"

	"positionengine/internal/events"
	"positionengine/internal/health"
	"positionengine/internal/lifecycle"
	"positionengine/internal/quotecache"
	"positionengine/pkg/types"
)

func newTestProcessor(marginCallPercent float64) (*Processor, *lifecycle.Coordinator, *events.MemoryPublisher) {
	qc := quotecache.New()
	qc.Put(types.BidAsk{AssetPair: "EURUSD", Base: "EUR", Quote: "USD", Bid: 1.1000, Ask: 1.1002, Timestamp: time.Now()})

	pub := events.NewMemoryPublisher()
	agg := health.New(slog.Default())
	coord := lifecycle.New(qc, pub, agg, slog.Default())
	proc := New(coord, qc, agg, Config{MarginCallPercent: marginCallPercent})
	return proc, coord, pub
}

func TestHandleTickClosesStopOutPosition(t *testing.T) {
	proc, coord, pub := newTestProcessor(90)

	active, err := coord.OpenPosition(lifecycle.OpenPositionRequest{
		TraderID: "t1", Instrument: "EURUSD", BaseCurrency: "EUR", QuoteCurrency: "USD", CollateralCurrency: "USD",
		Side: types.Buy, InvestAmount: 1000, Leverage: 10, StopOutPercent: 20,
	})
	if err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}

	proc.HandleTick(types.BidAsk{AssetPair: "EURUSD", Base: "EUR", Quote: "USD", Bid: 1.0000, Ask: 1.0002, Timestamp: time.Now()})

	if coord.Active.Count() != 0 {
		t.Fatalf("expected stop-out to close the position, count=%d", coord.Active.Count())
	}

	var sawStopOut bool
	for _, e := range pub.Persistence {
		if e.Kind == events.PersistClose && e.CloseReason != nil && *e.CloseReason == types.ClosedStopOut {
			sawStopOut = true
		}
	}
	if !sawStopOut {
		t.Fatalf("expected a stop-out close event, got %+v, active=%v", pub.Persistence, active.ID)
	}
}

func TestHandleTickActivatesPendingBuyLimit(t *testing.T) {
	proc, coord, _ := newTestProcessor(90)

	pending, err := coord.OpenPending(lifecycle.OpenPendingRequest{
		TraderID: "t1", Instrument: "EURUSD", QuoteCurrency: "USD", CollateralCurrency: "USD",
		Side: types.Buy, InvestAmount: 1000, Leverage: 10, StopOutPercent: 20,
		PendingType: types.BuyLimit, DesiredPrice: 1.1000,
	})
	if err != nil {
		t.Fatalf("OpenPending: %v", err)
	}

	proc.HandleTick(types.BidAsk{AssetPair: "EURUSD", Base: "EUR", Quote: "USD", Bid: 1.0950, Ask: 1.0952, Timestamp: time.Now()})

	if coord.Pending.Count() != 0 {
		t.Fatalf("expected pending order to activate and leave the pending store, count=%d", coord.Pending.Count())
	}
	if coord.Active.Count() != 1 {
		t.Fatalf("expected activated order to become an active position, count=%d", coord.Active.Count())
	}
	_ = pending
}

// TestHandleTickMatchesQuoteCollateralByBothCurrencies exercises a
// position whose quote and collateral currencies are both different
// from the tick's asset pair, and confirms the tick processor only
// refreshes the position's quote/collateral cross rate when BOTH of
// the tick's currencies match the position's quote and collateral —
// not merely one of them (as a single-currency match would allow a
// same-collateral, unrelated pair to be bound as the cross rate).
func TestHandleTickMatchesQuoteCollateralByBothCurrencies(t *testing.T) {
	qc := quotecache.New()
	qc.Put(types.BidAsk{AssetPair: "CHFJPY", Base: "CHF", Quote: "JPY", Bid: 149.00, Ask: 149.00, Timestamp: time.Now()})
	qc.Put(types.BidAsk{AssetPair: "USDCHF", Base: "USD", Quote: "CHF", Bid: 0.92, Ask: 0.92, Timestamp: time.Now()})
	qc.Put(types.BidAsk{AssetPair: "USDJPY", Base: "USD", Quote: "JPY", Bid: 132.1, Ask: 132.1, Timestamp: time.Now()})

	pub := events.NewMemoryPublisher()
	agg := health.New(slog.Default())
	coord := lifecycle.New(qc, pub, agg, slog.Default())
	proc := New(coord, qc, agg, Config{MarginCallPercent: 90})

	active, err := coord.OpenPosition(lifecycle.OpenPositionRequest{
		TraderID: "t1", Instrument: "CHFJPY",
		BaseCurrency: "CHF", QuoteCurrency: "JPY", CollateralCurrency: "USD",
		Side: types.Buy, InvestAmount: 100000, Leverage: 5, StopOutPercent: 90,
	})
	if err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}
	if active.BaseCollateralOpenBidAsk == nil {
		t.Fatal("expected base/collateral cross rate to be resolved at open")
	}

	// Move the asset price so a nonzero gross (in JPY) exists to convert.
	proc.HandleTick(types.BidAsk{AssetPair: "CHFJPY", Base: "CHF", Quote: "JPY", Bid: 149.20, Ask: 149.22, Timestamp: time.Now()})

	// An unrelated EURUSD tick shares only the collateral currency (USD)
	// with this position and must not touch its cross rate.
	proc.HandleTick(types.BidAsk{AssetPair: "EURUSD", Base: "EUR", Quote: "USD", Bid: 1.1000, Ask: 1.1002, Timestamp: time.Now()})

	got, ok := coord.Active.Get(active.ID)
	if !ok {
		t.Fatal("expected position to remain active")
	}
	if got.QuoteCollateralActiveBidAsk == nil || got.QuoteCollateralActiveBidAsk.Base != "JPY" {
		t.Fatalf("EURUSD tick must not have overwritten the quote/collateral cross rate, got %+v", got.QuoteCollateralActiveBidAsk)
	}
	beforeProfit := got.Profit

	// A USDJPY tick (quote=JPY, collateral=USD, reverse orientation)
	// must update the cross rate and recompute profit.
	proc.HandleTick(types.BidAsk{AssetPair: "USDJPY", Base: "USD", Quote: "JPY", Bid: 132.5, Ask: 132.5, Timestamp: time.Now()})

	got, ok = coord.Active.Get(active.ID)
	if !ok {
		t.Fatal("expected position to remain active")
	}
	if got.QuoteCollateralActiveBidAsk == nil || got.QuoteCollateralActiveBidAsk.Bid != 132.5 {
		t.Fatalf("expected the USDJPY tick to refresh the quote/collateral cross rate, got %+v", got.QuoteCollateralActiveBidAsk)
	}
	if got.Profit == beforeProfit {
		t.Fatalf("expected profit to change once the quote/collateral rate refreshed, stayed at %v", got.Profit)
	}

	const wantProfit = 92000.0 / 132.5
	if diff := got.Profit - wantProfit; diff > 0.01 || diff < -0.01 {
		t.Fatalf("expected profit ~= %.4f, got %.4f", wantProfit, got.Profit)
	}
}

func TestHandleTickLeavesHealthyPositionOpen(t *testing.T) {
	proc, coord, _ := newTestProcessor(90)

	coord.OpenPosition(lifecycle.OpenPositionRequest{
		TraderID: "t1", Instrument: "EURUSD", BaseCurrency: "EUR", QuoteCurrency: "USD", CollateralCurrency: "USD",
		Side: types.Buy, InvestAmount: 1000, Leverage: 10, StopOutPercent: 20,
	})

	proc.HandleTick(types.BidAsk{AssetPair: "EURUSD", Base: "EUR", Quote: "USD", Bid: 1.1050, Ask: 1.1052, Timestamp: time.Now()})

	if coord.Active.Count() != 1 {
		t.Fatalf("expected position to remain open, count=%d", coord.Active.Count())
	}
}
