package lifecycle

import (
	"encoding/json"
	"time"

	"positionengine/internal/events"
	"positionengine/internal/position"
	"positionengine/pkg/types"
)

// OpenPositionRequest describes a position to open immediately at the
// current market price.
type OpenPositionRequest struct {
	ID                 string // optional; generated if empty
	TraderID           string
	AccountID          string
	Instrument         string
	BaseCurrency       string
	QuoteCurrency      string
	CollateralCurrency string
	Side               types.Side
	InvestAmount       float64
	Leverage           float64
	StopOutPercent     float64
	StopLossPrice      float64
	StopLossProfit     float64
	TakeProfitPrice    float64
	TakeProfitProfit   float64
	MarginCallPercent  float64
	Metadata           map[string]string
}

func (r OpenPositionRequest) validate() error {
	if r.InvestAmount <= 0 || r.Leverage <= 0 || r.StopOutPercent <= 0 {
		return ErrInvalidCommand
	}
	return nil
}

// OpenPosition opens an active position immediately, at the current
// close-to-open price for the instrument.
func (c *Coordinator) OpenPosition(req OpenPositionRequest) (*position.Active, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	open, err := c.resolveOpenData(req.Instrument, req.BaseCurrency, req.QuoteCurrency, req.CollateralCurrency, req.Side, now)
	if err != nil {
		return nil, err
	}

	active := &position.Active{
		Base: position.Base{
			ID:                 newID(req.ID),
			TraderID:           req.TraderID,
			AccountID:          req.AccountID,
			Instrument:         req.Instrument,
			BaseCurrency:       req.BaseCurrency,
			QuoteCurrency:      req.QuoteCurrency,
			CollateralCurrency: req.CollateralCurrency,
			Side:               req.Side,
			InvestAmount:       req.InvestAmount,
			Leverage:           req.Leverage,
			StopOutPercent:     req.StopOutPercent,
			StopLossPrice:      req.StopLossPrice,
			StopLossProfit:     req.StopLossProfit,
			TakeProfitPrice:    req.TakeProfitPrice,
			TakeProfitProfit:   req.TakeProfitProfit,
			MarginCallPercent:  req.MarginCallPercent,
			Metadata:           req.Metadata,
			CreatedAt:          now,
		},
		Open:              open,
		AssetActiveBidAsk: open.AssetBidAsk,
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
		Kind:       events.PersistCreate,
		PositionID: active.ID,
		TraderID:   active.TraderID,
		AccountID:  active.AccountID,
		Instrument: active.Instrument,
		Side:       active.Side,
		Payload:    marshalOrNil(active),
		At:         now,
	}); err != nil {
		c.logger.Error("publish open position event failed", "position", active.ID, "error", err)
	}

	c.logger.Info("position opened", "position", active.ID, "trader", active.TraderID, "instrument", active.Instrument)
	return active, nil
}

// OpenPendingRequest describes a resting order to place.
type OpenPendingRequest struct {
	ID                 string
	TraderID           string
	AccountID          string
	Instrument         string
	BaseCurrency       string
	QuoteCurrency      string
	CollateralCurrency string
	Side               types.Side
	InvestAmount       float64
	Leverage           float64
	StopOutPercent     float64
	StopLossPrice      float64
	StopLossProfit     float64
	TakeProfitPrice    float64
	TakeProfitProfit   float64
	MarginCallPercent  float64
	PendingType        types.PendingType
	DesiredPrice       float64
	Metadata           map[string]string
}

func (r OpenPendingRequest) validate() error {
	if r.InvestAmount <= 0 || r.Leverage <= 0 || r.StopOutPercent <= 0 || r.DesiredPrice <= 0 {
		return ErrInvalidCommand
	}
	return nil
}

// OpenPending places a resting order, to be activated later by the
// tick processor once the close price satisfies its predicate.
func (c *Coordinator) OpenPending(req OpenPendingRequest) (*position.Pending, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	pending := &position.Pending{
		Base: position.Base{
			ID:                 newID(req.ID),
			TraderID:           req.TraderID,
			AccountID:          req.AccountID,
			Instrument:         req.Instrument,
			BaseCurrency:       req.BaseCurrency,
			QuoteCurrency:      req.QuoteCurrency,
			CollateralCurrency: req.CollateralCurrency,
			Side:               req.Side,
			InvestAmount:       req.InvestAmount,
			Leverage:           req.Leverage,
			StopOutPercent:     req.StopOutPercent,
			StopLossPrice:      req.StopLossPrice,
			StopLossProfit:     req.StopLossProfit,
			TakeProfitPrice:    req.TakeProfitPrice,
			TakeProfitProfit:   req.TakeProfitProfit,
			MarginCallPercent:  req.MarginCallPercent,
			Metadata:           req.Metadata,
			CreatedAt:          now,
		},
		PendingType:  req.PendingType,
		DesiredPrice: req.DesiredPrice,
	}

	c.Pending.Lock()
	defer c.Pending.Unlock()
	c.Pending.AddLocked(pending)

	if err := c.publisher.PublishPositionPersistence(events.PositionPersistence{
		Kind:       events.PersistCreate,
		PositionID: pending.ID,
		TraderID:   pending.TraderID,
		AccountID:  pending.AccountID,
		Instrument: pending.Instrument,
		Side:       pending.Side,
		Payload:    marshalOrNil(pending),
		At:         now,
	}); err != nil {
		c.logger.Error("publish open pending event failed", "position", pending.ID, "error", err)
	}

	c.logger.Info("pending order placed", "position", pending.ID, "type", pending.PendingType.String())
	return pending, nil
}

func marshalOrNil(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
