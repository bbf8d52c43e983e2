package rpc

import (
	"positionengine/internal/events"
)

// BroadcastingPublisher wraps an events.Publisher and mirrors every
// published event to the dashboard hub, so the WebSocket feed and the
// durable event stream stay in lockstep without the lifecycle package
// needing to know the dashboard exists.
type BroadcastingPublisher struct {
	inner events.Publisher
	hub   *Hub
}

func NewBroadcastingPublisher(inner events.Publisher, hub *Hub) *BroadcastingPublisher {
	return &BroadcastingPublisher{inner: inner, hub: hub}
}

func (b *BroadcastingPublisher) PublishPositionPersistence(e events.PositionPersistence) error {
	err := b.inner.PublishPositionPersistence(e)
	b.hub.Broadcast(Event{Type: persistenceEventType(e.Kind), Timestamp: e.At, Data: e})
	return err
}

func (b *BroadcastingPublisher) PublishMarginCallHit(e events.MarginCallHit) error {
	err := b.inner.PublishMarginCallHit(e)
	b.hub.Broadcast(Event{Type: "margin_call", Timestamp: e.At, Data: e})
	return err
}

func (b *BroadcastingPublisher) PublishToppingUpDelta(e events.ToppingUpDelta) error {
	err := b.inner.PublishToppingUpDelta(e)
	b.hub.Broadcast(Event{Type: "topping_up", Timestamp: e.At, Data: e})
	return err
}

func (b *BroadcastingPublisher) PublishPendingReadyToExecute(e events.PendingReadyToExecute) error {
	err := b.inner.PublishPendingReadyToExecute(e)
	b.hub.Broadcast(Event{Type: "pending_ready", Timestamp: e.At, Data: e})
	return err
}

func persistenceEventType(k events.PersistenceKind) string {
	switch k {
	case events.PersistCreate:
		return "create"
	case events.PersistUpdate:
		return "update"
	case events.PersistClose:
		return "close"
	case events.PersistExecute:
		return "execute"
	case events.PersistCancel:
		return "cancel"
	default:
		return "unknown"
	}
}
