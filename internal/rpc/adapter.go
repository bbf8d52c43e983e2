package rpc

import (
	"time"

	"github.com/shopspring/decimal"

	"positionengine/internal/lifecycle"
	"positionengine/internal/position"
	"positionengine/pkg/types"
)

// Adapter implements Service over a lifecycle.Coordinator, converting
// between the coordinator's float64 domain and the decimal-typed wire
// DTOs at this boundary.
type Adapter struct {
	coord *lifecycle.Coordinator
}

func NewAdapter(coord *lifecycle.Coordinator) *Adapter {
	return &Adapter{coord: coord}
}

func (a *Adapter) OpenPosition(req OpenPositionRequest) (PositionDTO, error) {
	active, err := a.coord.OpenPosition(lifecycle.OpenPositionRequest{
		ID:                 req.ID,
		TraderID:           req.TraderID,
		AccountID:          req.AccountID,
		Instrument:         req.Instrument,
		BaseCurrency:       req.BaseCurrency,
		QuoteCurrency:      req.QuoteCurrency,
		CollateralCurrency: req.CollateralCurrency,
		Side:               types.ParseSide(req.Side),
		InvestAmount:       f(req.InvestAmount),
		Leverage:           f(req.Leverage),
		StopOutPercent:     f(req.StopOutPercent),
		StopLossPrice:      f(req.StopLossPrice),
		StopLossProfit:     f(req.StopLossProfit),
		TakeProfitPrice:    f(req.TakeProfitPrice),
		TakeProfitProfit:   f(req.TakeProfitProfit),
		MarginCallPercent:  f(req.MarginCallPercent),
		Metadata:           req.Metadata,
	})
	if err != nil {
		return PositionDTO{}, err
	}
	return toPositionDTO(active), nil
}

func (a *Adapter) ClosePosition(id string, reason types.CloseReason) (PositionDTO, error) {
	closed, err := a.coord.ClosePosition(id, reason)
	if err != nil {
		return PositionDTO{}, err
	}
	dto := toPositionDTO(&closed.Active)
	dto.CloseReason = closed.CloseReason.String()
	dto.ClosePrice = decFloat(closed.ClosePrice)
	dto.ClosedAt = closed.ClosedAt
	return dto, nil
}

func (a *Adapter) OpenPending(req OpenPendingRequest) (PendingDTO, error) {
	pending, err := a.coord.OpenPending(lifecycle.OpenPendingRequest{
		ID:                 req.ID,
		TraderID:           req.TraderID,
		AccountID:          req.AccountID,
		Instrument:         req.Instrument,
		BaseCurrency:       req.BaseCurrency,
		QuoteCurrency:      req.QuoteCurrency,
		CollateralCurrency: req.CollateralCurrency,
		Side:               types.ParseSide(req.Side),
		InvestAmount:       f(req.InvestAmount),
		Leverage:           f(req.Leverage),
		StopOutPercent:     f(req.StopOutPercent),
		StopLossPrice:      f(req.StopLossPrice),
		StopLossProfit:     f(req.StopLossProfit),
		TakeProfitPrice:    f(req.TakeProfitPrice),
		TakeProfitProfit:   f(req.TakeProfitProfit),
		MarginCallPercent:  f(req.MarginCallPercent),
		Metadata:           req.Metadata,
		PendingType:        types.ParsePendingType(req.PendingType),
		DesiredPrice:       f(req.DesiredPrice),
	})
	if err != nil {
		return PendingDTO{}, err
	}
	return toPendingDTO(pending), nil
}

func (a *Adapter) CancelPending(id string) (PendingDTO, error) {
	p, err := a.coord.GetPendingPosition(id)
	if err != nil {
		return PendingDTO{}, err
	}
	if err := a.coord.CancelPending(id); err != nil {
		return PendingDTO{}, err
	}
	return toPendingDTO(p), nil
}

func (a *Adapter) ChargeSwap(id string, amount decimal.Decimal) (PositionDTO, error) {
	if err := a.coord.ChargeSwap(id, f(amount), time.Now()); err != nil {
		return PositionDTO{}, err
	}
	return a.GetActivePosition(id)
}

func (a *Adapter) TopUp(id string, amount decimal.Decimal) (PositionDTO, error) {
	if err := a.coord.TopUp(id, f(amount)); err != nil {
		return PositionDTO{}, err
	}
	return a.GetActivePosition(id)
}

func (a *Adapter) UpdateSLTP(id string, stopLossPrice, stopLossProfit, takeProfitPrice, takeProfitProfit decimal.Decimal) (PositionDTO, error) {
	if err := a.coord.UpdateSLTP(id, f(stopLossPrice), f(stopLossProfit), f(takeProfitPrice), f(takeProfitProfit)); err != nil {
		return PositionDTO{}, err
	}
	return a.GetActivePosition(id)
}

func (a *Adapter) UpdateToppingUpSettings(id string, isToppingUp bool, toppingUpPercent decimal.Decimal) (PositionDTO, error) {
	if err := a.coord.UpdateToppingUpSettings(id, isToppingUp, f(toppingUpPercent)); err != nil {
		return PositionDTO{}, err
	}
	return a.GetActivePosition(id)
}

func (a *Adapter) GetActivePosition(id string) (PositionDTO, error) {
	p, err := a.coord.GetActivePosition(id)
	if err != nil {
		return PositionDTO{}, err
	}
	return toPositionDTO(p), nil
}

func (a *Adapter) GetPendingPosition(id string) (PendingDTO, error) {
	p, err := a.coord.GetPendingPosition(id)
	if err != nil {
		return PendingDTO{}, err
	}
	return toPendingDTO(p), nil
}

func (a *Adapter) GetAccountActivePositions(traderID, accountID string) []PositionDTO {
	positions := a.coord.GetAccountActivePositions(traderID, accountID)
	out := make([]PositionDTO, 0, len(positions))
	for _, p := range positions {
		out = append(out, toPositionDTO(p))
	}
	return out
}

func (a *Adapter) GetAccountPendingPositions(traderID, accountID string) []PendingDTO {
	positions := a.coord.GetAccountPendingPositions(traderID, accountID)
	out := make([]PendingDTO, 0, len(positions))
	for _, p := range positions {
		out = append(out, toPendingDTO(p))
	}
	return out
}

func (a *Adapter) ConfirmPendingExecution(id string) (PositionDTO, error) {
	pending, err := a.coord.GetPendingPosition(id)
	if err != nil {
		return PositionDTO{}, err
	}
	ba, ok := a.coord.Quotes.GetByPair(pending.Instrument)
	if !ok {
		return PositionDTO{}, lifecycle.ErrNoLiquidity
	}
	active, err := a.coord.ConfirmPendingExecution(id, ba.OpenPrice(pending.Side), ba)
	if err != nil {
		return PositionDTO{}, err
	}
	return toPositionDTO(active), nil
}

func (a *Adapter) Ping() error { return a.coord.Ping() }

func f(d decimal.Decimal) float64 { v, _ := d.Float64(); return v }

func toPositionDTO(p *position.Active) PositionDTO {
	dto := PositionDTO{
		ID:               p.ID,
		TraderID:         p.TraderID,
		AccountID:        p.AccountID,
		Instrument:       p.Instrument,
		Side:             p.Side.String(),
		InvestAmount:     decFloat(p.InvestAmount),
		Leverage:         decFloat(p.Leverage),
		OpenPrice:        decFloat(p.Open.Price),
		Profit:           decFloat(p.Profit),
		MarginPercent:    decFloat(p.MarginPercent()),
		ToppingUpReserve: decFloat(p.ToppingUpReserve),
		MarginCallHit:    p.MarginCallHit,
		CreatedAt:        p.CreatedAt,
	}
	if p.StopLossPrice != 0 {
		dto.StopLossPrice = decFloat(p.StopLossPrice)
	}
	if p.TakeProfitPrice != 0 {
		dto.TakeProfitPrice = decFloat(p.TakeProfitPrice)
	}
	if p.StopLossProfit != 0 {
		dto.StopLossProfit = decFloat(p.StopLossProfit)
	}
	if p.TakeProfitProfit != 0 {
		dto.TakeProfitProfit = decFloat(p.TakeProfitProfit)
	}
	return dto
}

func toPendingDTO(p *position.Pending) PendingDTO {
	return PendingDTO{
		ID:           p.ID,
		TraderID:     p.TraderID,
		AccountID:    p.AccountID,
		Instrument:   p.Instrument,
		Side:         p.Side.String(),
		PendingType:  p.PendingType.String(),
		DesiredPrice: decFloat(p.DesiredPrice),
		InvestAmount: decFloat(p.InvestAmount),
		Leverage:     decFloat(p.Leverage),
		CreatedAt:    p.CreatedAt,
	}
}
