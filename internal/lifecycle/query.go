package lifecycle

import (
	"fmt"
	"time"

	"positionengine/internal/position"
	"positionengine/internal/positionstore"
)

// GetActivePosition returns a single active position by id.
func (c *Coordinator) GetActivePosition(id string) (*position.Active, error) {
	p, ok := c.Active.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}
	return p, nil
}

// GetPendingPosition returns a single pending order by id. It checks
// the pending store first and falls back to awaiting-confirmation,
// since both hold the same Pending type at different lifecycle
// stages.
func (c *Coordinator) GetPendingPosition(id string) (*position.Pending, error) {
	if p, ok := c.Pending.Get(id); ok {
		return p, nil
	}
	if p, ok := c.Awaiting.Get(id); ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, id)
}

// GetAccountActivePositions returns every active position for a
// trader's account.
func (c *Coordinator) GetAccountActivePositions(traderID, accountID string) []*position.Active {
	q := positionstore.NewQuery().WithTrader(traderID).WithAccount(accountID)
	return positionstore.Select(c.Active, q)
}

// GetAccountPendingPositions returns every resting pending order for a
// trader's account (awaiting-confirmation orders are not yet visible
// to the trader, so only the pending store is queried).
func (c *Coordinator) GetAccountPendingPositions(traderID, accountID string) []*position.Pending {
	q := positionstore.NewQuery().WithTrader(traderID).WithAccount(accountID)
	return positionstore.Select(c.Pending, q)
}

// UpdateToppingUpSettings enables or disables topping-up for a
// position and sets the reserve target percentage, then publishes an
// update event. TopUp requires IsToppingUp to be set;
// ProcessToppingUpRefund does not check it.
func (c *Coordinator) UpdateToppingUpSettings(id string, isToppingUp bool, toppingUpPercent float64) error {
	c.Active.Lock()
	defer c.Active.Unlock()

	p, ok := c.Active.GetLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}
	p.IsToppingUp = isToppingUp
	p.ToppingUpPercent = toppingUpPercent

	return c.publishUpdate(p, time.Now())
}

// Ping is a liveness no-op for the command RPC surface.
func (c *Coordinator) Ping() error { return nil }
