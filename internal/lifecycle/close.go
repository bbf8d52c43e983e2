package lifecycle

import (
	"fmt"
	"time"

	"positionengine/internal/events"
	"positionengine/internal/position"
	"positionengine/pkg/types"
)

// ClosePosition closes an active position and records its closing
// snapshot. The reason is supplied by the caller — for trigger-driven
// closes (stop-out/stop-loss/take-profit) that is the tick
// processor, which has already evaluated position.CloseReason().
func (c *Coordinator) ClosePosition(id string, reason types.CloseReason) (*position.Closed, error) {
	at := time.Now()

	c.Active.Lock()
	defer c.Active.Unlock()

	active, ok := c.Active.RemoveLocked(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}

	closed := &position.Closed{
		Active:      *active,
		CloseReason: reason,
		ClosePrice:  active.AssetActiveBidAsk.ClosePrice(active.Side),
		ClosedAt:    at,
	}

	if err := c.publisher.PublishPositionPersistence(events.PositionPersistence{
		Kind:        events.PersistClose,
		PositionID:  closed.ID,
		TraderID:    closed.TraderID,
		AccountID:   closed.AccountID,
		Instrument:  closed.Instrument,
		Side:        closed.Side,
		Payload:     marshalOrNil(closed),
		CloseReason: &reason,
		At:          at,
	}); err != nil {
		c.logger.Error("publish close position event failed", "position", id, "error", err)
	}

	switch reason {
	case types.ClosedStopOut:
		c.health.RecordClose(true, false, false)
	case types.ClosedStopLoss:
		c.health.RecordClose(false, true, false)
	case types.ClosedTakeProfit:
		c.health.RecordClose(false, false, true)
	}

	c.logger.Info("position closed", "position", id, "reason", reason.String(), "profit", closed.Profit)
	return closed, nil
}

// CloseActiveLocked is the hook the tick processor calls while it
// already holds Active's write lock (it found the position via its
// own query over the same store). It skips re-acquiring the lock and
// removal — the caller has already removed the record from the
// store — this function only builds the snapshot,
// publishes the event, and updates telemetry.
func (c *Coordinator) CloseActiveLocked(active *position.Active, reason types.CloseReason, at time.Time) *position.Closed {
	closed := &position.Closed{
		Active:      *active,
		CloseReason: reason,
		ClosePrice:  active.AssetActiveBidAsk.ClosePrice(active.Side),
		ClosedAt:    at,
	}

	if err := c.publisher.PublishPositionPersistence(events.PositionPersistence{
		Kind:        events.PersistClose,
		PositionID:  closed.ID,
		TraderID:    closed.TraderID,
		AccountID:   closed.AccountID,
		Instrument:  closed.Instrument,
		Side:        closed.Side,
		Payload:     marshalOrNil(closed),
		CloseReason: &reason,
		At:          at,
	}); err != nil {
		c.logger.Error("publish close position event failed", "position", active.ID, "error", err)
	}

	switch reason {
	case types.ClosedStopOut:
		c.health.RecordClose(true, false, false)
	case types.ClosedStopLoss:
		c.health.RecordClose(false, true, false)
	case types.ClosedTakeProfit:
		c.health.RecordClose(false, false, true)
	}

	return closed
}
