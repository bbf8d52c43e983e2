// Package tickproc applies an inbound quote to the quote cache and
// every position it affects: mark-to-market P&L, trigger evaluation
// (stop-out, stop-loss, take-profit, margin-call), and pending-order
// activation.
package tickproc

import (
	"time"

	"positionengine/internal/health"
	"positionengine/internal/lifecycle"
	"positionengine/internal/position"
	"positionengine/internal/positionstore"
	"positionengine/internal/quotecache"
	"positionengine/pkg/types"
)

// Config tunes trigger thresholds the processor evaluates that are
// not stored per-position.
type Config struct {
	MarginCallPercent float64
}

// Processor owns the per-tick pipeline. It holds no state of its own
// beyond configuration — all mutable state lives in the coordinator's
// stores and the quote cache.
type Processor struct {
	coord  *lifecycle.Coordinator
	quotes *quotecache.Cache
	health *health.Aggregator
	cfg    Config
}

func New(coord *lifecycle.Coordinator, quotes *quotecache.Cache, agg *health.Aggregator, cfg Config) *Processor {
	return &Processor{coord: coord, quotes: quotes, health: agg, cfg: cfg}
}

// HandleTick is the five-step per-tick algorithm:
//
//  1. Record the quote in the cache.
//  2. Run the write-locked Update primitive over every query this
//     quote can satisfy: the instrument's own pair, the base/collateral
//     pair, and the quote/collateral pair in both possible orientations.
//  3. Mark each matched position to market and evaluate its close
//     triggers in fixed order: stop-out, stop-loss, take-profit,
//     dispatching the margin-call event while Update's callback still
//     holds the store's write lock.
//  4. Right after each query's Update returns, retake the store's
//     write lock and remove and close every position whose trigger
//     fired, publishing the close event before releasing it.
//  5. Activate every pending order this quote's close price satisfies,
//     via QueryAndSelectRemove so a predicate match and its removal
//     from Pending happen as one atomic step.
func (p *Processor) HandleTick(ba types.BidAsk) {
	now := ba.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	p.health.RecordTick(now)

	p.quotes.Put(ba)

	p.markAndTrigger(ba, now)
	p.activatePending(ba, now)
}

// matchesBaseCollateral reports whether ba is current's base/collateral
// cross rate quoted with the base currency as ba's base and the
// collateral currency as ba's quote (only that orientation).
func matchesBaseCollateral(current *position.Active, ba types.BidAsk) bool {
	return current.BaseCurrency == ba.Base && current.CollateralCurrency == ba.Quote
}

// matchesQuoteCollateral reports whether ba is current's quote/collateral
// cross rate, in either currency orientation the pair could have been
// published in.
func matchesQuoteCollateral(current *position.Active, ba types.BidAsk) bool {
	return (current.QuoteCurrency == ba.Base && current.CollateralCurrency == ba.Quote) ||
		(current.QuoteCurrency == ba.Quote && current.CollateralCurrency == ba.Base)
}

// tickClassification is what a single Update pass over one query
// decides for a matched position that must close — enough for the
// dispatch loop to act without re-deriving anything.
type tickClassification struct {
	act    *position.Active
	close  bool
	reason types.CloseReason
}

func (p *Processor) markAndTrigger(ba types.BidAsk, now time.Time) {
	queries := []*positionstore.Query{
		positionstore.NewQuery().WithInstrument(ba.AssetPair),
		positionstore.NewQuery().WithBase(ba.Base).WithCollateral(ba.Quote),
		positionstore.NewQuery().WithQuote(ba.Base).WithCollateral(ba.Quote),
		positionstore.NewQuery().WithQuote(ba.Quote).WithCollateral(ba.Base),
	}

	seen := make(map[string]bool)
	exposureByInstrument := make(map[string]float64)

	for _, q := range queries {
		results := positionstore.Update(p.coord.Active, q, func(current *position.Active) (*position.Active, *tickClassification) {
			if seen[current.ID] {
				return current, nil
			}
			seen[current.ID] = true

			switch {
			case current.Instrument == ba.AssetPair:
				current.UpdatePL(ba)
			case matchesBaseCollateral(current, ba):
				current.UpdatePL(current.AssetActiveBidAsk)
			case matchesQuoteCollateral(current, ba):
				cross := ba
				current.QuoteCollateralActiveBidAsk = &cross
				current.UpdatePL(current.AssetActiveBidAsk)
			default:
				return current, nil
			}

			exposureByInstrument[current.Instrument] += current.Volume()

			if reason, triggered := current.CloseReason(); triggered {
				return current, &tickClassification{act: current, close: true, reason: reason}
			}

			if current.MarginCallTriggeredAt(p.cfg.MarginCallPercent) && !current.MarginCallHit {
				current.MarginCallHit = true
				p.health.RecordMarginCall()
				if err := p.coord.NotifyMarginCallLocked(current, current.MarginPercent(), now); err != nil {
					return current, nil
				}
			}
			return current, nil
		})

		// Close dispatch happens right after this query's Update call
		// returns — as close to the detecting critical section as the
		// store's API allows, since Update itself holds no delete hook.
		for _, c := range results {
			if c == nil || !c.close {
				continue
			}
			p.coord.Active.Lock()
			_, stillThere := p.coord.Active.RemoveLocked(c.act.ID)
			if stillThere {
				p.coord.CloseActiveLocked(c.act, c.reason, now)
			}
			p.coord.Active.Unlock()
		}
	}

	for instrument, exposure := range exposureByInstrument {
		p.health.ReportExposure(health.ExposureReport{Instrument: instrument, ExposureUSD: exposure, Timestamp: now})
	}
}

// activatePending finds every resting order against this tick's
// instrument whose activation predicate the close price satisfies, and
// removes it from Pending in the same step that evaluates the
// predicate: positionstore.QueryAndSelectRemove holds Pending's write
// lock across both, so a CancelPending arriving after the predicate
// check can never still find (and remove) an order this tick has
// already claimed.
func (p *Processor) activatePending(ba types.BidAsk, now time.Time) {
	closePriceBuy := ba.ClosePrice(types.Buy)
	closePriceSell := ba.ClosePrice(types.Sell)

	q := positionstore.NewQuery().WithInstrument(ba.AssetPair)
	activated := positionstore.QueryAndSelectRemove(p.coord.Pending, q, func(pend *position.Pending) bool {
		closePrice := closePriceBuy
		if pend.Side == types.Sell {
			closePrice = closePriceSell
		}
		return pend.IsPendingActivated(closePrice)
	})

	for _, pend := range activated {
		price := ba.OpenPrice(pend.Side)
		p.coord.ExecutePending(pend, price)
		_, _ = p.coord.ConfirmPendingExecution(pend.ID, price, ba)
	}
}
