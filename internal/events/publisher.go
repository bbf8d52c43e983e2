// Package events publishes the position-persistence and notification
// streams the lifecycle coordinator emits on every state change:
// position create/update/close, margin-call hits, and topping-up
// deltas.
package events

import (
	"encoding/json"
	"time"

	"positionengine/pkg/types"
)

// PositionPersistence carries the full state of a position at the
// moment of a create, update, or close. CloseReason is set only for
// close events.
type PositionPersistence struct {
	Kind        PersistenceKind   `json:"kind"`
	PositionID  string            `json:"positionId"`
	TraderID    string            `json:"traderId"`
	AccountID   string            `json:"accountId"`
	Instrument  string            `json:"instrument"`
	Side        types.Side        `json:"side"`
	Payload     json.RawMessage   `json:"payload"`
	CloseReason *types.CloseReason `json:"closeReason,omitempty"`
	At          time.Time         `json:"at"`
}

type PersistenceKind int

const (
	PersistCreate PersistenceKind = iota
	PersistUpdate
	PersistClose
	PersistExecute // pending -> active
	PersistCancel
)

// MarginCallHit notifies downstream consumers that a position crossed
// the margin-call threshold.
type MarginCallHit struct {
	PositionID string    `json:"positionId"`
	TraderID   string    `json:"traderId"`
	MarginPct  float64   `json:"marginPct"`
	At         time.Time `json:"at"`
}

// ToppingUpDelta notifies downstream consumers that a position's
// topping-up reserve changed (top-up or refund).
type ToppingUpDelta struct {
	PositionID string    `json:"positionId"`
	Delta      float64   `json:"delta"`
	At         time.Time `json:"at"`
}

// PendingReadyToExecute notifies downstream consumers that a pending
// order's activation predicate has been satisfied and it is about to
// be converted into an active position.
type PendingReadyToExecute struct {
	PositionID string    `json:"positionId"`
	Price      float64   `json:"price"`
	At         time.Time `json:"at"`
}

// Publisher is the event-emission boundary the lifecycle coordinator
// depends on. Every method must be safe to call while the caller holds
// a position store's write lock — invariant: persistence/notification
// events are produced before that lock is released.
type Publisher interface {
	PublishPositionPersistence(PositionPersistence) error
	PublishMarginCallHit(MarginCallHit) error
	PublishToppingUpDelta(ToppingUpDelta) error
	PublishPendingReadyToExecute(PendingReadyToExecute) error
}
