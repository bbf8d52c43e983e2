// Package position defines the position entity — pending, active, and
// closed states — together with the pricing, P&L, and trigger logic
// that drives state transitions.
package position

import (
	"time"

	"positionengine/pkg/types"
)

// Base holds the fields shared by every position regardless of state.
type Base struct {
	ID                 string
	TraderID           string
	AccountID          string
	Instrument         string // asset pair, e.g. "EURUSD"
	BaseCurrency       string
	QuoteCurrency      string
	CollateralCurrency string
	Side               types.Side
	InvestAmount       float64
	Leverage           float64
	StopOutPercent     float64
	StopLossPrice      float64 // 0 = unset
	StopLossProfit     float64 // 0 = unset; closes when Profit falls to or below this
	TakeProfitPrice    float64 // 0 = unset
	TakeProfitProfit   float64 // 0 = unset; closes when Profit rises to or above this
	MarginCallPercent  float64 // 0 = use the engine-wide default
	IsToppingUp        bool    // gates TopUp (not checked by ProcessToppingUpRefund)
	ToppingUpPercent   float64 // reserve target as % of invest, 0 = unset
	Metadata           map[string]string
	CreatedAt          time.Time
}

// Pending is a resting order awaiting activation against the close
// price.
type Pending struct {
	Base
	PendingType  types.PendingType
	DesiredPrice float64
}

// OpenData captures the conditions under which a position was opened.
type OpenData struct {
	Price                float64
	AssetBidAsk          types.BidAsk
	CollateralBidAsk     *types.BidAsk // nil when collateral currency == quote currency
	BaseCollateralBidAsk *types.BidAsk // nil when collateral currency == base currency
	OpenedAt             time.Time
}

// SwapEntry records one overnight financing charge.
type SwapEntry struct {
	Value float64
	At    time.Time
}

// SwapLedger accumulates financing charges over the life of a position.
type SwapLedger struct {
	Entries []SwapEntry
	Total   float64
}

func (l *SwapLedger) Charge(value float64, at time.Time) {
	l.Entries = append(l.Entries, SwapEntry{Value: value, At: at})
	l.Total += value
}

// Active is a live position being marked to market on every tick.
type Active struct {
	Base
	Open OpenData
	// BaseCollateralOpenBidAsk is the base/collateral cross rate fixed
	// at open; unlike QuoteCollateralActiveBidAsk it is never refreshed
	// by later ticks.
	BaseCollateralOpenBidAsk    *types.BidAsk
	AssetActiveBidAsk           types.BidAsk
	QuoteCollateralActiveBidAsk *types.BidAsk
	Profit                      float64
	Swaps                       SwapLedger
	ToppingUpReserve            float64
	MarginCallHit               bool
}

// Closed is the terminal snapshot of a position once it has stopped
// trading.
type Closed struct {
	Active
	CloseReason types.CloseReason
	ClosePrice  float64
	ClosedAt    time.Time
}

// ID/TraderID/etc accessors below let Pending, Active (and the stores
// that hold them) be used as positionstore.Record without duplicating
// field access logic at every call site.

func (b Base) GetID() string                 { return b.ID }
func (b Base) GetTraderID() string            { return b.TraderID }
func (b Base) GetAccountID() string           { return b.AccountID }
func (b Base) GetInstrument() string          { return b.Instrument }
func (b Base) GetBaseCurrency() string        { return b.BaseCurrency }
func (b Base) GetQuoteCurrency() string       { return b.QuoteCurrency }
func (b Base) GetCollateralCurrency() string  { return b.CollateralCurrency }
