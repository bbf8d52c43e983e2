package quotecache

import (
	"testing"
	"time"

	"positionengine/pkg/types"
)

func TestPutAndGetByPair(t *testing.T) {
	c := New()
	ba := types.BidAsk{AssetPair: "EURUSD", Base: "EUR", Quote: "USD", Bid: 1.1, Ask: 1.1002, Timestamp: time.Now()}
	c.Put(ba)

	got, ok := c.GetByPair("EURUSD")
	if !ok || got.Bid != 1.1 {
		t.Fatalf("expected cached quote, got %v ok=%v", got, ok)
	}
}

func TestGetEitherInverts(t *testing.T) {
	c := New()
	c.Put(types.BidAsk{AssetPair: "USDJPY", Base: "USD", Quote: "JPY", Bid: 150.0, Ask: 150.1, Timestamp: time.Now()})

	ba, ok := c.GetEither("JPY", "USD")
	if !ok {
		t.Fatal("expected inverted quote to be found")
	}
	if ba.Bid <= 0 || ba.Bid >= ba.Ask {
		t.Fatalf("expected valid inverted bid<ask, got bid=%v ask=%v", ba.Bid, ba.Ask)
	}
}

func TestIsStale(t *testing.T) {
	c := New()
	now := time.Now()
	c.Put(types.BidAsk{AssetPair: "EURUSD", Timestamp: now.Add(-time.Minute)})

	if !c.IsStale("EURUSD", 10*time.Second, now) {
		t.Fatal("expected quote older than 10s to be stale")
	}
	if c.IsStale("EURUSD", 2*time.Minute, now) {
		t.Fatal("expected quote within 2m window to be fresh")
	}
}

func TestIsStaleMissingPair(t *testing.T) {
	c := New()
	if !c.IsStale("GBPUSD", time.Minute, time.Now()) {
		t.Fatal("expected missing pair to be reported stale")
	}
}
