// Package lifecycle implements every position state transition: open,
// pending placement/cancellation/execution, close, swap charging,
// top-up/refund, and stop-loss/take-profit updates. Every mutating
// method emits its persistence/notification event synchronously,
// before releasing the write lock on the store it mutated.
package lifecycle

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"positionengine/internal/events"
	"positionengine/internal/health"
	"positionengine/internal/position"
	"positionengine/internal/positionstore"
	"positionengine/internal/quotecache"
	"positionengine/pkg/types"
)

var (
	ErrPositionNotFound = errors.New("position not found")
	ErrNoLiquidity      = errors.New("no liquidity for instrument")
	ErrInvalidCommand   = errors.New("invalid command")
)

// Coordinator owns the three position collections and is the single
// entry point for every state-changing operation.
type Coordinator struct {
	Active   *positionstore.Store[*position.Active]
	Pending  *positionstore.Store[*position.Pending]
	Awaiting *positionstore.Store[*position.Pending]
	Quotes   *quotecache.Cache

	publisher events.Publisher
	health    *health.Aggregator
	logger    *slog.Logger
}

// New creates a Coordinator over fresh, empty stores.
func New(quotes *quotecache.Cache, publisher events.Publisher, agg *health.Aggregator, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		Active:    positionstore.New[*position.Active](),
		Pending:   positionstore.New[*position.Pending](),
		Awaiting:  positionstore.New[*position.Pending](),
		Quotes:    quotes,
		publisher: publisher,
		health:    agg,
		logger:    logger.With("component", "lifecycle"),
	}
}

func newID(supplied string) string {
	if supplied != "" {
		return supplied
	}
	return uuid.NewString()
}

// resolveOpenData looks up the current asset quote and, when the
// collateral currency differs from the base and/or quote currency, the
// current base/collateral and quote/collateral cross rates, failing
// with ErrNoLiquidity if any required quote is unavailable.
func (c *Coordinator) resolveOpenData(instrument, baseCurrency, quoteCurrency, collateralCurrency string, side types.Side, now time.Time) (position.OpenData, error) {
	assetBidAsk, ok := c.Quotes.GetByPair(instrument)
	if !ok {
		return position.OpenData{}, fmt.Errorf("%w: %s", ErrNoLiquidity, instrument)
	}

	od := position.OpenData{
		Price:       assetBidAsk.OpenPrice(side),
		AssetBidAsk: assetBidAsk,
		OpenedAt:    now,
	}

	if baseCurrency != collateralCurrency {
		baseCollBidAsk, ok := c.Quotes.GetEither(baseCurrency, collateralCurrency)
		if !ok {
			return position.OpenData{}, fmt.Errorf("%w: %s/%s", ErrNoLiquidity, baseCurrency, collateralCurrency)
		}
		od.BaseCollateralBidAsk = &baseCollBidAsk
	}

	if quoteCurrency != collateralCurrency {
		collBidAsk, ok := c.Quotes.GetEither(quoteCurrency, collateralCurrency)
		if !ok {
			return position.OpenData{}, fmt.Errorf("%w: %s/%s", ErrNoLiquidity, quoteCurrency, collateralCurrency)
		}
		od.CollateralBidAsk = &collBidAsk
	}

	return od, nil
}
