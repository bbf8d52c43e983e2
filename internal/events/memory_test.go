package events

import (
	"testing"
	"time"
)

func TestMemoryPublisherRecordsEvents(t *testing.T) {
	p := NewMemoryPublisher()

	if err := p.PublishPositionPersistence(PositionPersistence{Kind: PersistCreate, PositionID: "p1", At: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.PublishMarginCallHit(MarginCallHit{PositionID: "p1", At: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(p.Persistence) != 1 {
		t.Fatalf("expected 1 persistence event, got %d", len(p.Persistence))
	}
	if len(p.MarginCalls) != 1 {
		t.Fatalf("expected 1 margin call event, got %d", len(p.MarginCalls))
	}
}
