package position

import (
	"positionengine/pkg/types"
)

// Volume is the notional size of a position: invested collateral times
// leverage.
func (a *Active) Volume() float64 {
	return a.InvestAmount * a.Leverage
}

// UpdatePL recomputes Profit from the current asset quote. Volume is
// first expressed in base-currency units via the base/collateral cross
// rate fixed at open, then the asset's price movement is applied, then
// the result is converted into collateral currency via the current
// quote/collateral cross rate. Either conversion is skipped when the
// relevant currency already equals the collateral currency.
func (a *Active) UpdatePL(assetBidAsk types.BidAsk) {
	a.AssetActiveBidAsk = assetBidAsk

	closePrice := assetBidAsk.ClosePrice(a.Side)
	volume := a.Volume()

	collateralInvest := volume
	if a.BaseCurrency != a.CollateralCurrency && a.BaseCollateralOpenBidAsk != nil {
		rate := a.BaseCollateralOpenBidAsk
		collateralInvest = convertCross(volume, rate, a.CollateralCurrency, rate.OpenPrice(a.Side))
	}

	priceChange := closePrice - a.Open.Price
	gross := collateralInvest * priceChange

	pl := gross
	if a.QuoteCurrency != a.CollateralCurrency && a.QuoteCollateralActiveBidAsk != nil {
		rate := a.QuoteCollateralActiveBidAsk
		pl = convertCross(gross, rate, a.QuoteCurrency, rate.ClosePrice(a.Side))
	}

	if a.Side == types.Sell {
		pl = -pl
	}

	a.Profit = pl + a.Swaps.Total
}

// convertCross converts amount, expressed in currency from, into the
// other leg of rate at the given price. A cross rate's two currencies
// can be found published in either direction, so the conversion
// multiplies when rate quotes from as its base and divides when rate
// quotes from as its quote.
func convertCross(amount float64, rate *types.BidAsk, from string, price float64) float64 {
	if rate.Base == from {
		return amount * price
	}
	return amount / price
}

// MarginPercent expresses remaining equity as a percentage of invested
// collateral, including any reserve added by a top-up. 100% means the
// position is exactly break-even.
func (a *Active) MarginPercent() float64 {
	investTotal := a.InvestAmount + a.ToppingUpReserve
	if investTotal <= 0 {
		return 0
	}
	return (a.Profit + investTotal) / investTotal * 100
}

// IsStopOutTriggered reports whether margin has fallen to or below the
// stop-out threshold.
func (a *Active) IsStopOutTriggered() bool {
	return 100-a.MarginPercent() >= a.StopOutPercent
}

// IsStopLossTriggered reports whether the position's profit has
// fallen to or below its configured stop-loss profit floor, or the
// close price has crossed its configured stop-loss price level.
// Either condition alone is sufficient.
func (a *Active) IsStopLossTriggered() bool {
	if a.StopLossProfit != 0 && a.Profit <= a.StopLossProfit {
		return true
	}
	if a.StopLossPrice == 0 {
		return false
	}
	closePrice := a.AssetActiveBidAsk.ClosePrice(a.Side)
	if a.Side == types.Buy {
		return closePrice <= a.StopLossPrice
	}
	return closePrice >= a.StopLossPrice
}

// IsTakeProfitTriggered reports whether the position's profit has
// risen to or above its configured take-profit target, or the close
// price has crossed its configured take-profit price level. Either
// condition alone is sufficient.
func (a *Active) IsTakeProfitTriggered() bool {
	if a.TakeProfitProfit != 0 && a.Profit >= a.TakeProfitProfit {
		return true
	}
	if a.TakeProfitPrice == 0 {
		return false
	}
	closePrice := a.AssetActiveBidAsk.ClosePrice(a.Side)
	if a.Side == types.Buy {
		return closePrice >= a.TakeProfitPrice
	}
	return closePrice <= a.TakeProfitPrice
}

// MarginCallTriggeredAt reports whether margin has fallen to or below
// the margin-call threshold: the position's own MarginCallPercent if
// set, otherwise the engine-wide default passed by the caller.
func (a *Active) MarginCallTriggeredAt(defaultMarginCallPercent float64) bool {
	threshold := a.MarginCallPercent
	if threshold == 0 {
		threshold = defaultMarginCallPercent
	}
	return 100-a.MarginPercent() >= threshold
}

// CloseReason checks stop-out, stop-loss, and take-profit in that
// fixed order and returns the first one triggered. Each branch reports
// its own distinct reason — a take-profit is never mistaken for a
// stop-loss.
func (a *Active) CloseReason() (types.CloseReason, bool) {
	if a.IsStopOutTriggered() {
		return types.ClosedStopOut, true
	}
	if a.IsStopLossTriggered() {
		return types.ClosedStopLoss, true
	}
	if a.IsTakeProfitTriggered() {
		return types.ClosedTakeProfit, true
	}
	return 0, false
}

// IsPendingActivated reports whether the given close price satisfies
// this pending order's activation predicate.
func (p *Pending) IsPendingActivated(closePrice float64) bool {
	switch p.PendingType {
	case types.BuyLimit:
		return closePrice <= p.DesiredPrice
	case types.BuyStop:
		return closePrice >= p.DesiredPrice
	case types.SellLimit:
		return closePrice >= p.DesiredPrice
	case types.SellStop:
		return closePrice <= p.DesiredPrice
	default:
		return false
	}
}
