package position

import (
	"testing"
	"time"

	"positionengine/pkg/types"
)

func newActive(side types.Side, openPrice float64) *Active {
	now := time.Now()
	return &Active{
		Base: Base{
			ID:             "pos-1",
			Instrument:     "EURUSD",
			BaseCurrency:   "EUR",
			QuoteCurrency:  "USD",
			CollateralCurrency: "USD",
			Side:           side,
			InvestAmount:   1000,
			Leverage:       10,
			StopOutPercent: 20,
		},
		Open: OpenData{
			Price:    openPrice,
			OpenedAt: now,
		},
		AssetActiveBidAsk: types.BidAsk{Bid: openPrice, Ask: openPrice, Timestamp: now},
	}
}

func TestUpdatePLBuyProfitsOnRise(t *testing.T) {
	a := newActive(types.Buy, 1.1000)
	a.UpdatePL(types.BidAsk{Bid: 1.1100, Ask: 1.1102, Timestamp: time.Now()})

	if a.Profit <= 0 {
		t.Fatalf("expected positive profit for buy on rising price, got %v", a.Profit)
	}
}

func TestUpdatePLSellProfitsOnFall(t *testing.T) {
	a := newActive(types.Sell, 1.1000)
	a.UpdatePL(types.BidAsk{Bid: 1.0900, Ask: 1.0902, Timestamp: time.Now()})

	if a.Profit <= 0 {
		t.Fatalf("expected positive profit for sell on falling price, got %v", a.Profit)
	}
}

func TestStopOutTriggersOnDeepLoss(t *testing.T) {
	a := newActive(types.Buy, 1.1000)
	a.InvestAmount = 1000
	a.Leverage = 10
	a.StopOutPercent = 20
	a.UpdatePL(types.BidAsk{Bid: 1.0000, Ask: 1.0002, Timestamp: time.Now()})

	if !a.IsStopOutTriggered() {
		t.Fatalf("expected stop-out to trigger, margin=%v", a.MarginPercent())
	}
	reason, ok := a.CloseReason()
	if !ok || reason != types.ClosedStopOut {
		t.Fatalf("expected ClosedStopOut, got %v ok=%v", reason, ok)
	}
}

func TestTakeProfitNotReportedAsStopLoss(t *testing.T) {
	a := newActive(types.Buy, 1.1000)
	a.TakeProfitPrice = 1.1050
	a.StopLossPrice = 1.0900
	a.AssetActiveBidAsk = types.BidAsk{Bid: 1.1060, Ask: 1.1062, Timestamp: time.Now()}

	if !a.IsTakeProfitTriggered() {
		t.Fatal("expected take-profit predicate to trigger")
	}
	if a.IsStopLossTriggered() {
		t.Fatal("stop-loss predicate must not also trigger")
	}

	reason, ok := a.CloseReason()
	if !ok {
		t.Fatal("expected a close reason")
	}
	if reason != types.ClosedTakeProfit {
		t.Fatalf("expected ClosedTakeProfit, got %v — take-profit must never be reported as stop-loss", reason)
	}
}

func TestStopLossTriggersSellSide(t *testing.T) {
	a := newActive(types.Sell, 1.1000)
	a.StopLossPrice = 1.1050
	a.AssetActiveBidAsk = types.BidAsk{Bid: 1.1060, Ask: 1.1062, Timestamp: time.Now()}

	if !a.IsStopLossTriggered() {
		t.Fatal("expected sell-side stop-loss to trigger when ask rises through the level")
	}
}

func TestStopLossTriggersOnProfitFloor(t *testing.T) {
	a := newActive(types.Buy, 1.1000)
	a.StopLossProfit = -50
	a.UpdatePL(types.BidAsk{Bid: 1.0940, Ask: 1.0942, Timestamp: time.Now()})

	if !a.IsStopLossTriggered() {
		t.Fatalf("expected stop-loss to trigger on profit floor, profit=%v", a.Profit)
	}
	reason, ok := a.CloseReason()
	if !ok || reason != types.ClosedStopLoss {
		t.Fatalf("expected ClosedStopLoss, got %v ok=%v", reason, ok)
	}
}

func TestTakeProfitTriggersOnProfitTarget(t *testing.T) {
	a := newActive(types.Buy, 1.1000)
	a.TakeProfitProfit = 50
	a.UpdatePL(types.BidAsk{Bid: 1.1060, Ask: 1.1062, Timestamp: time.Now()})

	if !a.IsTakeProfitTriggered() {
		t.Fatalf("expected take-profit to trigger on profit target, profit=%v", a.Profit)
	}
}

func TestMarginCallUsesPerPositionOverride(t *testing.T) {
	a := newActive(types.Buy, 1.1000)
	a.MarginCallPercent = 5
	a.UpdatePL(types.BidAsk{Bid: 1.0930, Ask: 1.0932, Timestamp: time.Now()})

	if !a.MarginCallTriggeredAt(50) {
		t.Fatalf("expected position-level margin_call_percent=5 to override the engine default, margin=%v", a.MarginPercent())
	}
}

// TestUpdatePLConvertsBaseAndQuoteCrossRates exercises a position whose
// base, quote, and collateral currencies are all distinct (base=CHF,
// quote=JPY, collateral=USD) — the case that requires both the
// base/collateral conversion at open and the quote/collateral
// conversion on every tick.
func TestUpdatePLConvertsBaseAndQuoteCrossRates(t *testing.T) {
	now := time.Now()
	usdchf := 0.92 // 1 USD = 0.92 CHF, published as USDCHF (base USD)
	baseCollateral := &types.BidAsk{
		AssetPair: "USDCHF", Base: "CHF", Quote: "USD",
		Bid: 1 / usdchf, Ask: 1 / usdchf, Timestamp: now,
	}

	a := &Active{
		Base: Base{
			ID:                 "pos-2",
			Instrument:         "CHFJPY",
			BaseCurrency:       "CHF",
			QuoteCurrency:      "JPY",
			CollateralCurrency: "USD",
			Side:               types.Buy,
			InvestAmount:       100000,
			Leverage:           5,
			StopOutPercent:     20,
		},
		Open: OpenData{
			Price:                149.00,
			OpenedAt:             now,
			BaseCollateralBidAsk: baseCollateral,
		},
		BaseCollateralOpenBidAsk: baseCollateral,
		AssetActiveBidAsk:        types.BidAsk{AssetPair: "CHFJPY", Base: "CHF", Quote: "JPY", Bid: 149.00, Ask: 149.00, Timestamp: now},
	}

	usdjpy := types.BidAsk{AssetPair: "USDJPY", Base: "USD", Quote: "JPY", Bid: 132.1, Ask: 132.1, Timestamp: now}
	a.QuoteCollateralActiveBidAsk = &usdjpy

	a.UpdatePL(types.BidAsk{AssetPair: "CHFJPY", Base: "CHF", Quote: "JPY", Bid: 149.20, Ask: 149.22, Timestamp: now})

	// volume = 500000 CHF-collateral-units -> 500000/1.086957 = 460000 CHF
	// gross  = 460000 * (149.20-149.00) = 92000 JPY
	// profit = 92000 / 132.1 ~= 696.44 USD
	const want = 92000.0 / 132.1
	if diff := a.Profit - want; diff > 0.01 || diff < -0.01 {
		t.Fatalf("expected profit ~= %.4f USD, got %.4f", want, a.Profit)
	}
}

func TestPendingActivation(t *testing.T) {
	tests := []struct {
		pt     types.PendingType
		price  float64
		close_ float64
		want   bool
	}{
		{types.BuyLimit, 1.1000, 1.0990, true},
		{types.BuyLimit, 1.1000, 1.1010, false},
		{types.BuyStop, 1.1000, 1.1010, true},
		{types.SellLimit, 1.1000, 1.1010, true},
		{types.SellStop, 1.1000, 1.0990, true},
	}
	for _, tt := range tests {
		p := &Pending{PendingType: tt.pt, DesiredPrice: tt.price}
		if got := p.IsPendingActivated(tt.close_); got != tt.want {
			t.Errorf("%v desired=%v close=%v: got %v want %v", tt.pt, tt.price, tt.close_, got, tt.want)
		}
	}
}
