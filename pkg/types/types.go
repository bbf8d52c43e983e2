// Package types defines the shared vocabulary of the position engine:
// sides, position kinds, close reasons, and the wire-level quote type
// that flows from the tick feed into the engine.
package types

import "time"

// Side is the direction of a position: Buy profits when price rises,
// Sell profits when price falls.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// ParseSide parses the wire representation produced by Side.String.
// Anything other than "sell" is treated as Buy.
func ParseSide(s string) Side {
	if s == "sell" {
		return Sell
	}
	return Buy
}

// PendingType selects the predicate that activates a resting order
// against the current close price.
type PendingType int

const (
	BuyLimit PendingType = iota
	BuyStop
	SellLimit
	SellStop
)

func (t PendingType) String() string {
	switch t {
	case BuyLimit:
		return "buy_limit"
	case BuyStop:
		return "buy_stop"
	case SellLimit:
		return "sell_limit"
	case SellStop:
		return "sell_stop"
	default:
		return "unknown"
	}
}

// ParsePendingType parses the wire representation produced by
// PendingType.String, defaulting to BuyLimit for an unrecognized
// value.
func ParsePendingType(s string) PendingType {
	switch s {
	case "buy_stop":
		return BuyStop
	case "sell_limit":
		return SellLimit
	case "sell_stop":
		return SellStop
	default:
		return BuyLimit
	}
}

// CloseReason records why an active position was terminated. Each
// cause has its own value — a stop-out is never reported as a
// take-profit or vice versa.
type CloseReason int

const (
	ClosedManually CloseReason = iota
	ClosedStopOut
	ClosedStopLoss
	ClosedTakeProfit
)

func (r CloseReason) String() string {
	switch r {
	case ClosedManually:
		return "manual"
	case ClosedStopOut:
		return "stop_out"
	case ClosedStopLoss:
		return "stop_loss"
	case ClosedTakeProfit:
		return "take_profit"
	default:
		return "unknown"
	}
}

// BidAsk is a two-sided quote for one asset pair, as delivered by the
// tick feed.
type BidAsk struct {
	AssetPair string    `json:"assetPair"`
	Base      string    `json:"base"`
	Quote     string    `json:"quote"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Timestamp time.Time `json:"timestamp"`
}

// ClosePrice returns the price a position on the given side closes at:
// a Buy position sells into the bid, a Sell position buys back the ask.
func (ba BidAsk) ClosePrice(side Side) float64 {
	if side == Buy {
		return ba.Bid
	}
	return ba.Ask
}

// OpenPrice returns the price a position on the given side opens at —
// the inverse of ClosePrice.
func (ba BidAsk) OpenPrice(side Side) float64 {
	if side == Buy {
		return ba.Ask
	}
	return ba.Bid
}
