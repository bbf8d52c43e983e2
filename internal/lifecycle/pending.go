package lifecycle

import (
	"fmt"
	"time"

	"positionengine/internal/events"
	"positionengine/internal/position"
	"positionengine/pkg/types"
)

// CancelPending removes a resting order before it activates.
func (c *Coordinator) CancelPending(id string) error {
	c.Pending.Lock()
	defer c.Pending.Unlock()

	pending, ok := c.Pending.RemoveLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}

	if err := c.publisher.PublishPositionPersistence(events.PositionPersistence{
		Kind:       events.PersistCancel,
		PositionID: pending.ID,
		TraderID:   pending.TraderID,
		AccountID:  pending.AccountID,
		Instrument: pending.Instrument,
		Side:       pending.Side,
		Payload:    marshalOrNil(pending),
		At:         time.Now(),
	}); err != nil {
		c.logger.Error("publish cancel pending event failed", "position", id, "error", err)
	}

	c.logger.Info("pending order cancelled", "position", id)
	return nil
}

// ExecutePending is phase one of activating a resting order whose
// predicate the tick processor has just found satisfied: the order
// moves from Pending into Awaiting confirmation, and downstream
// consumers are told it is about to execute. The caller must already
// have removed pending from the Pending store — the tick processor
// does this with positionstore.QueryAndSelectRemove so the predicate
// check and the removal are one atomic step, with no window for a
// concurrent cancel to observe the order as still pending. The order
// is not yet a live position — ConfirmPendingExecution completes the
// transition.
func (c *Coordinator) ExecutePending(pending *position.Pending, activationPrice float64) {
	c.Awaiting.Lock()
	defer c.Awaiting.Unlock()
	c.Awaiting.AddLocked(pending)

	if err := c.publisher.PublishPendingReadyToExecute(events.PendingReadyToExecute{
		PositionID: pending.ID,
		Price:      activationPrice,
		At:         time.Now(),
	}); err != nil {
		c.logger.Error("publish pending ready to execute event failed", "position", pending.ID, "error", err)
	}
}

// ConfirmPendingExecution is phase two: the order held in Awaiting is
// converted into a live active position at the given activation price
// and two persistence events are published — an execute event for the
// pending order and a create event for the new active position —
// matching the batch-publish pattern used when pending orders are
// processed in bulk against a tick.
func (c *Coordinator) ConfirmPendingExecution(id string, activationPrice float64, assetBidAsk types.BidAsk) (*position.Active, error) {
	c.Awaiting.Lock()
	pending, ok := c.Awaiting.RemoveLocked(id)
	c.Awaiting.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}

	now := time.Now()
	open := position.OpenData{
		Price:       activationPrice,
		AssetBidAsk: assetBidAsk,
		OpenedAt:    now,
	}
	if pending.BaseCurrency != pending.CollateralCurrency {
		if baseCollBidAsk, ok := c.Quotes.GetEither(pending.BaseCurrency, pending.CollateralCurrency); ok {
			open.BaseCollateralBidAsk = &baseCollBidAsk
		}
	}
	if pending.QuoteCurrency != pending.CollateralCurrency {
		if collBidAsk, ok := c.Quotes.GetEither(pending.QuoteCurrency, pending.CollateralCurrency); ok {
			open.CollateralBidAsk = &collBidAsk
		}
	}

	active := &position.Active{
		Base:              pending.Base,
		Open:              open,
		AssetActiveBidAsk: assetBidAsk,
	}
	if open.CollateralBidAsk != nil {
		active.QuoteCollateralActiveBidAsk = open.CollateralBidAsk
	}
	if open.BaseCollateralBidAsk != nil {
		active.BaseCollateralOpenBidAsk = open.BaseCollateralBidAsk
	}

	c.Active.Lock()
	defer c.Active.Unlock()
	c.Active.AddLocked(active)

	if err := c.publisher.PublishPositionPersistence(events.PositionPersistence{
		Kind:       events.PersistExecute,
		PositionID: pending.ID,
		TraderID:   pending.TraderID,
		AccountID:  pending.AccountID,
		Instrument: pending.Instrument,
		Side:       pending.Side,
		Payload:    marshalOrNil(pending),
		At:         now,
	}); err != nil {
		c.logger.Error("publish pending execute event failed", "position", id, "error", err)
	}
	if err := c.publisher.PublishPositionPersistence(events.PositionPersistence{
		Kind:       events.PersistCreate,
		PositionID: active.ID,
		TraderID:   active.TraderID,
		AccountID:  active.AccountID,
		Instrument: active.Instrument,
		Side:       active.Side,
		Payload:    marshalOrNil(active),
		At:         now,
	}); err != nil {
		c.logger.Error("publish active create event failed", "position", id, "error", err)
	}

	c.logger.Info("pending order executed", "position", active.ID)
	return active, nil
}
