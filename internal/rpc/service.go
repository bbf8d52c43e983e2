// Package rpc exposes the lifecycle coordinator over a thin JSON/HTTP
// adapter plus a WebSocket dashboard feed. It is intentionally a
// boundary, not a protocol: the wire format is a plain decimal-typed
// DTO layer, and every handler does nothing but decode, call Service,
// and encode.
package rpc

import (
	"time"

	"github.com/shopspring/decimal"

	"positionengine/pkg/types"
)

// Service is the command surface a transport adapter drives. Adapter
// implements it over the lifecycle coordinator.
type Service interface {
	OpenPosition(req OpenPositionRequest) (PositionDTO, error)
	ClosePosition(id string, reason types.CloseReason) (PositionDTO, error)
	OpenPending(req OpenPendingRequest) (PendingDTO, error)
	CancelPending(id string) (PendingDTO, error)
	ChargeSwap(id string, amount decimal.Decimal) (PositionDTO, error)
	TopUp(id string, amount decimal.Decimal) (PositionDTO, error)
	UpdateSLTP(id string, stopLossPrice, stopLossProfit, takeProfitPrice, takeProfitProfit decimal.Decimal) (PositionDTO, error)
	UpdateToppingUpSettings(id string, isToppingUp bool, toppingUpPercent decimal.Decimal) (PositionDTO, error)
	GetActivePosition(id string) (PositionDTO, error)
	GetPendingPosition(id string) (PendingDTO, error)
	GetAccountActivePositions(traderID, accountID string) []PositionDTO
	GetAccountPendingPositions(traderID, accountID string) []PendingDTO
	ConfirmPendingExecution(id string) (PositionDTO, error)
	Ping() error
}

// OpenPositionRequest is the wire shape for opening an active position
// directly at market.
type OpenPositionRequest struct {
	ID                 string          `json:"id,omitempty"`
	TraderID           string          `json:"trader_id"`
	AccountID          string          `json:"account_id"`
	Instrument         string          `json:"instrument"`
	BaseCurrency       string          `json:"base_currency"`
	QuoteCurrency      string          `json:"quote_currency"`
	CollateralCurrency string          `json:"collateral_currency"`
	Side               string          `json:"side"`
	InvestAmount       decimal.Decimal `json:"invest_amount"`
	Leverage           decimal.Decimal `json:"leverage"`
	StopOutPercent     decimal.Decimal `json:"stop_out_percent"`
	StopLossPrice      decimal.Decimal `json:"stop_loss_price,omitempty"`
	StopLossProfit     decimal.Decimal `json:"stop_loss_profit,omitempty"`
	TakeProfitPrice    decimal.Decimal `json:"take_profit_price,omitempty"`
	TakeProfitProfit   decimal.Decimal `json:"take_profit_profit,omitempty"`
	MarginCallPercent  decimal.Decimal `json:"margin_call_percent,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// OpenPendingRequest is the wire shape for placing a resting order.
type OpenPendingRequest struct {
	OpenPositionRequest
	PendingType  string          `json:"pending_type"`
	DesiredPrice decimal.Decimal `json:"desired_price"`
}

// PositionDTO is the wire shape for an active (or closed) position.
type PositionDTO struct {
	ID                 string          `json:"id"`
	TraderID           string          `json:"trader_id"`
	AccountID          string          `json:"account_id"`
	Instrument         string          `json:"instrument"`
	Side               string          `json:"side"`
	InvestAmount       decimal.Decimal `json:"invest_amount"`
	Leverage           decimal.Decimal `json:"leverage"`
	OpenPrice          decimal.Decimal `json:"open_price"`
	Profit             decimal.Decimal `json:"profit"`
	MarginPercent       decimal.Decimal `json:"margin_percent"`
	ToppingUpReserve    decimal.Decimal `json:"topping_up_reserve"`
	StopLossPrice       decimal.Decimal `json:"stop_loss_price,omitempty"`
	TakeProfitPrice     decimal.Decimal `json:"take_profit_price,omitempty"`
	StopLossProfit      decimal.Decimal `json:"stop_loss_profit,omitempty"`
	TakeProfitProfit    decimal.Decimal `json:"take_profit_profit,omitempty"`
	MarginCallHit       bool            `json:"margin_call_hit"`
	CloseReason         string          `json:"close_reason,omitempty"`
	ClosePrice          decimal.Decimal `json:"close_price,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	ClosedAt            time.Time       `json:"closed_at,omitempty"`
}

// PendingDTO is the wire shape for a resting order.
type PendingDTO struct {
	ID            string          `json:"id"`
	TraderID      string          `json:"trader_id"`
	AccountID     string          `json:"account_id"`
	Instrument    string          `json:"instrument"`
	Side          string          `json:"side"`
	PendingType   string          `json:"pending_type"`
	DesiredPrice  decimal.Decimal `json:"desired_price"`
	InvestAmount  decimal.Decimal `json:"invest_amount"`
	Leverage      decimal.Decimal `json:"leverage"`
	CreatedAt     time.Time       `json:"created_at"`
}

func decFloat(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }
