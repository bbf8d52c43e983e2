package positionstore

import "testing"

type testRecord struct {
	id, trader, account, instrument, base, quote, collateral string
}

func (r testRecord) GetID() string                { return r.id }
func (r testRecord) GetTraderID() string           { return r.trader }
func (r testRecord) GetAccountID() string          { return r.account }
func (r testRecord) GetInstrument() string         { return r.instrument }
func (r testRecord) GetBaseCurrency() string       { return r.base }
func (r testRecord) GetQuoteCurrency() string      { return r.quote }
func (r testRecord) GetCollateralCurrency() string { return r.collateral }

func TestAccountIndex(t *testing.T) {
	s := New[testRecord]()
	s.AddLocking(testRecord{id: "id1", account: "ac1", base: "test", quote: "test", instrument: "test"})
	s.AddLocking(testRecord{id: "id2", account: "ac1", base: "test", quote: "test", instrument: "test"})

	got := Select(s, NewQuery().WithAccount("ac1"))
	if len(got) != 2 {
		t.Fatalf("expected 2 positions for account ac1, got %d", len(got))
	}
}

func TestQueryIntersectsConstraints(t *testing.T) {
	s := New[testRecord]()
	s.AddLocking(testRecord{id: "id1", account: "ac1", instrument: "EURUSD", base: "EUR", quote: "USD", collateral: "USD"})
	s.AddLocking(testRecord{id: "id2", account: "ac1", instrument: "GBPUSD", base: "GBP", quote: "USD", collateral: "USD"})

	got := Select(s, NewQuery().WithAccount("ac1").WithInstrument("EURUSD"))
	if len(got) != 1 || got[0].id != "id1" {
		t.Fatalf("expected only id1, got %v", got)
	}
}

func TestEmptyQueryMatchesNothing(t *testing.T) {
	s := New[testRecord]()
	s.AddLocking(testRecord{id: "id1", account: "ac1"})

	got := Select(s, NewQuery())
	if got != nil {
		t.Fatalf("expected nil result for unconstrained query, got %v", got)
	}
}

func TestRemoveClearsIndices(t *testing.T) {
	s := New[testRecord]()
	s.AddLocking(testRecord{id: "id1", account: "ac1", instrument: "EURUSD"})

	if _, ok := s.RemoveLocking("id1"); !ok {
		t.Fatal("expected removal to succeed")
	}

	got := Select(s, NewQuery().WithAccount("ac1"))
	if len(got) != 0 {
		t.Fatalf("expected no positions after removal, got %v", got)
	}
	if s.Count() != 0 {
		t.Fatalf("expected count 0, got %d", s.Count())
	}
}

func TestQueryAndSelectRemove(t *testing.T) {
	s := New[testRecord]()
	s.AddLocking(testRecord{id: "id1", instrument: "EURUSD"})
	s.AddLocking(testRecord{id: "id2", instrument: "EURUSD"})

	removed := QueryAndSelectRemove(s, NewQuery().WithInstrument("EURUSD"), func(r testRecord) bool {
		return r.id == "id1"
	})
	if len(removed) != 1 || removed[0].id != "id1" {
		t.Fatalf("expected only id1 removed, got %v", removed)
	}
	if s.Count() != 1 {
		t.Fatalf("expected 1 remaining, got %d", s.Count())
	}
}

func TestUpdateAppliesToMatches(t *testing.T) {
	s := New[testRecord]()
	s.AddLocking(testRecord{id: "id1", instrument: "EURUSD"})

	results := Update(s, NewQuery().WithInstrument("EURUSD"), func(r testRecord) (testRecord, string) {
		return r, r.id
	})
	if len(results) != 1 || results[0] != "id1" {
		t.Fatalf("expected update to visit id1, got %v", results)
	}
}

func TestSnapshotSortedByID(t *testing.T) {
	s := New[testRecord]()
	s.AddLocking(testRecord{id: "b"})
	s.AddLocking(testRecord{id: "a"})
	s.AddLocking(testRecord{id: "c"})

	snap := s.Snapshot()
	if len(snap) != 3 || snap[0].id != "a" || snap[1].id != "b" || snap[2].id != "c" {
		t.Fatalf("expected sorted snapshot, got %v", snap)
	}
}
