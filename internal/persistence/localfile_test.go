package persistence

import (
	"testing"
	"time"

	"positionengine/pkg/types"
)

func TestLocalFileRoundTripsPrices(t *testing.T) {
	dir := t.TempDir()
	lf, err := OpenLocalFile(dir)
	if err != nil {
		t.Fatalf("OpenLocalFile: %v", err)
	}

	prices := []types.BidAsk{{AssetPair: "EURUSD", Bid: 1.1, Ask: 1.1002, Timestamp: time.Now()}}
	if err := lf.SavePrices(prices); err != nil {
		t.Fatalf("SavePrices: %v", err)
	}
	if err := lf.SaveActive([]byte(`[]`)); err != nil {
		t.Fatalf("SaveActive: %v", err)
	}

	snap, err := lf.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(snap.Prices) != 1 || snap.Prices[0].AssetPair != "EURUSD" {
		t.Fatalf("expected roundtripped price, got %v", snap.Prices)
	}
}

func TestLocalFileMissingFilesYieldEmptySnapshot(t *testing.T) {
	dir := t.TempDir()
	lf, err := OpenLocalFile(dir)
	if err != nil {
		t.Fatalf("OpenLocalFile: %v", err)
	}

	snap, err := lf.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot on empty dir: %v", err)
	}
	if len(snap.Prices) != 0 || snap.Active != nil || snap.Pending != nil {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}
