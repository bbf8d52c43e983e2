package lifecycle

import (
	"fmt"
	"time"

	"positionengine/internal/events"
	"positionengine/internal/position"
)

// ChargeSwap applies one overnight financing charge to an active
// position and publishes an update event.
func (c *Coordinator) ChargeSwap(id string, amount float64, at time.Time) error {
	c.Active.Lock()
	defer c.Active.Unlock()

	p, ok := c.Active.GetLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}
	p.Swaps.Charge(amount, at)

	return c.publishUpdate(p, at)
}

// TopUp increases a position's topping-up reserve by delta (delta may
// be negative for a refund — see ProcessToppingUpRefund for the
// dedicated refund path) and publishes a topping-up delta event. Only
// permitted on positions with topping-up enabled.
func (c *Coordinator) TopUp(id string, delta float64) error {
	c.Active.Lock()
	defer c.Active.Unlock()

	p, ok := c.Active.GetLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}
	if !p.IsToppingUp {
		return fmt.Errorf("%w: topping-up not enabled for %s", ErrInvalidCommand, id)
	}
	p.ToppingUpReserve += delta

	if err := c.publisher.PublishToppingUpDelta(events.ToppingUpDelta{
		PositionID: id,
		Delta:      delta,
		At:         time.Now(),
	}); err != nil {
		c.logger.Error("publish topping-up delta event failed", "position", id, "error", err)
		return err
	}
	return nil
}

// ProcessToppingUpRefund returns the entire topping-up reserve to the
// trader, zeroing the reserve and publishing the refund as a negative
// delta. It does not check the position's margin or its IsToppingUp
// flag before refunding, and nothing in the tick path calls it.
func (c *Coordinator) ProcessToppingUpRefund(id string) (float64, error) {
	c.Active.Lock()
	defer c.Active.Unlock()

	p, ok := c.Active.GetLocked(id)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}
	if p.ToppingUpReserve <= 0 {
		return 0, nil
	}

	refund := p.ToppingUpReserve
	p.ToppingUpReserve = 0

	if err := c.publisher.PublishToppingUpDelta(events.ToppingUpDelta{
		PositionID: id,
		Delta:      -refund,
		At:         time.Now(),
	}); err != nil {
		c.logger.Error("publish topping-up refund event failed", "position", id, "error", err)
		return 0, err
	}

	c.logger.Info("topping-up reserve refunded", "position", id, "amount", refund)
	return refund, nil
}

// UpdateSLTP changes a position's stop-loss and take-profit levels,
// each independently expressible as a price, a profit floor/target,
// or both. A zero value leaves that particular level unset
// (disabled).
func (c *Coordinator) UpdateSLTP(id string, stopLossPrice, stopLossProfit, takeProfitPrice, takeProfitProfit float64) error {
	c.Active.Lock()
	defer c.Active.Unlock()

	p, ok := c.Active.GetLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}
	p.StopLossPrice = stopLossPrice
	p.StopLossProfit = stopLossProfit
	p.TakeProfitPrice = takeProfitPrice
	p.TakeProfitProfit = takeProfitProfit

	return c.publishUpdate(p, time.Now())
}

// HandleMarginCallHit records that a position has crossed the
// margin-call threshold and notifies downstream consumers; it does
// not close the position — only a stop-out does that.
func (c *Coordinator) HandleMarginCallHit(id string, marginPct float64) error {
	c.Active.Lock()
	defer c.Active.Unlock()

	p, ok := c.Active.GetLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}
	if p.MarginCallHit {
		return nil // already notified, do not re-publish every tick
	}
	p.MarginCallHit = true

	c.health.RecordMarginCall()

	return c.publisher.PublishMarginCallHit(events.MarginCallHit{
		PositionID: id,
		TraderID:   p.TraderID,
		MarginPct:  marginPct,
		At:         time.Now(),
	})
}

// NotifyMarginCallLocked publishes a margin-call event for a position
// the caller has already flagged and locked (the tick processor, which
// holds Active's write lock while scanning triggered positions). It
// does not touch MarginCallHit or acquire any lock itself.
func (c *Coordinator) NotifyMarginCallLocked(p *position.Active, marginPct float64, at time.Time) error {
	return c.publisher.PublishMarginCallHit(events.MarginCallHit{
		PositionID: p.ID,
		TraderID:   p.TraderID,
		MarginPct:  marginPct,
		At:         at,
	})
}

func (c *Coordinator) publishUpdate(p *position.Active, at time.Time) error {
	if err := c.publisher.PublishPositionPersistence(events.PositionPersistence{
		Kind:       events.PersistUpdate,
		PositionID: p.ID,
		TraderID:   p.TraderID,
		AccountID:  p.AccountID,
		Instrument: p.Instrument,
		Side:       p.Side,
		Payload:    marshalOrNil(p),
		At:         at,
	}); err != nil {
		c.logger.Error("publish update event failed", "position", p.ID, "error", err)
		return err
	}
	return nil
}
