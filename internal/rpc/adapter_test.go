package rpc

import (
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"positionengine/internal/events"
	"positionengine/internal/health"
	"positionengine/internal/lifecycle"
	"positionengine/internal/quotecache"
	"positionengine/pkg/types"
)

func newTestAdapter() *Adapter {
	qc := quotecache.New()
	qc.Put(types.BidAsk{AssetPair: "EURUSD", Base: "EUR", Quote: "USD", Bid: 1.1000, Ask: 1.1002, Timestamp: time.Now()})
	coord := lifecycle.New(qc, events.NewMemoryPublisher(), health.New(slog.Default()), slog.Default())
	return NewAdapter(coord)
}

func TestAdapterOpenAndGetPosition(t *testing.T) {
	a := newTestAdapter()

	dto, err := a.OpenPosition(OpenPositionRequest{
		TraderID: "t1", AccountID: "a1", Instrument: "EURUSD",
		BaseCurrency: "EUR", QuoteCurrency: "USD", CollateralCurrency: "USD", Side: "buy",
		InvestAmount: decimal.NewFromInt(1000), Leverage: decimal.NewFromInt(10),
		StopOutPercent: decimal.NewFromInt(20),
	})
	if err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}
	if dto.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := a.GetActivePosition(dto.ID)
	if err != nil {
		t.Fatalf("GetActivePosition: %v", err)
	}
	if got.ID != dto.ID {
		t.Fatalf("id mismatch: %s != %s", got.ID, dto.ID)
	}
}

func TestAdapterOpenPendingCancel(t *testing.T) {
	a := newTestAdapter()

	dto, err := a.OpenPending(OpenPendingRequest{
		OpenPositionRequest: OpenPositionRequest{
			TraderID: "t1", AccountID: "a1", Instrument: "EURUSD",
			QuoteCurrency: "USD", CollateralCurrency: "USD", Side: "buy",
			InvestAmount: decimal.NewFromInt(1000), Leverage: decimal.NewFromInt(10),
			StopOutPercent: decimal.NewFromInt(20),
		},
		PendingType:  "buy_limit",
		DesiredPrice: decimal.NewFromFloat(1.1000),
	})
	if err != nil {
		t.Fatalf("OpenPending: %v", err)
	}

	if _, err := a.CancelPending(dto.ID); err != nil {
		t.Fatalf("CancelPending: %v", err)
	}
	if _, err := a.GetPendingPosition(dto.ID); err == nil {
		t.Fatal("expected cancelled pending order to be gone")
	}
}

func TestAdapterTopUpRequiresOptIn(t *testing.T) {
	a := newTestAdapter()

	dto, err := a.OpenPosition(OpenPositionRequest{
		TraderID: "t1", AccountID: "a1", Instrument: "EURUSD",
		BaseCurrency: "EUR", QuoteCurrency: "USD", CollateralCurrency: "USD", Side: "buy",
		InvestAmount: decimal.NewFromInt(1000), Leverage: decimal.NewFromInt(10),
		StopOutPercent: decimal.NewFromInt(20),
	})
	if err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}

	if _, err := a.TopUp(dto.ID, decimal.NewFromInt(100)); err == nil {
		t.Fatal("expected TopUp to fail before topping-up is enabled")
	}

	if _, err := a.UpdateToppingUpSettings(dto.ID, true, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("UpdateToppingUpSettings: %v", err)
	}

	updated, err := a.TopUp(dto.ID, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("TopUp after opt-in: %v", err)
	}
	if !updated.ToppingUpReserve.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected reserve 100, got %s", updated.ToppingUpReserve)
	}
}
