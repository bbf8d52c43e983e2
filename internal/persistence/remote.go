package persistence

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"positionengine/pkg/types"
)

// wireBidAsk is the over-the-wire shape for a quote: money fields
// cross the RPC/persistence boundary as decimal strings rather than
// float64, so the persistence service never receives a value that
// round-tripped through binary floating point.
type wireBidAsk struct {
	AssetPair string          `json:"assetPair"`
	Base      string          `json:"base"`
	Quote     string          `json:"quote"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Timestamp time.Time       `json:"timestamp"`
}

func toWire(ba types.BidAsk) wireBidAsk {
	return wireBidAsk{
		AssetPair: ba.AssetPair,
		Base:      ba.Base,
		Quote:     ba.Quote,
		Bid:       decimal.NewFromFloat(ba.Bid),
		Ask:       decimal.NewFromFloat(ba.Ask),
		Timestamp: ba.Timestamp,
	}
}

func fromWire(w wireBidAsk) types.BidAsk {
	bid, _ := w.Bid.Float64()
	ask, _ := w.Ask.Float64()
	return types.BidAsk{
		AssetPair: w.AssetPair,
		Base:      w.Base,
		Quote:     w.Quote,
		Bid:       bid,
		Ask:       ask,
		Timestamp: w.Timestamp,
	}
}

// Remote talks to a durable persistence service over HTTP to load the
// startup snapshot.
type Remote struct {
	http *resty.Client
}

// NewRemote creates a Remote client with retry on 5xx, matching the
// teacher's REST client configuration.
func NewRemote(baseURL string) *Remote {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})

	return &Remote{http: http}
}

// LoadSnapshot implements Client.
func (r *Remote) LoadSnapshot() (Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var wirePrices []wireBidAsk
	resp, err := r.http.R().SetContext(ctx).SetResult(&wirePrices).Get("/snapshot/prices")
	if err != nil {
		return Snapshot{}, fmt.Errorf("load prices snapshot: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return Snapshot{}, fmt.Errorf("load prices snapshot: status %d: %s", resp.StatusCode(), resp.String())
	}

	prices := make([]types.BidAsk, 0, len(wirePrices))
	for _, w := range wirePrices {
		prices = append(prices, fromWire(w))
	}

	activeResp, err := r.http.R().SetContext(ctx).Get("/snapshot/active")
	if err != nil {
		return Snapshot{}, fmt.Errorf("load active snapshot: %w", err)
	}
	pendingResp, err := r.http.R().SetContext(ctx).Get("/snapshot/pending")
	if err != nil {
		return Snapshot{}, fmt.Errorf("load pending snapshot: %w", err)
	}

	return Snapshot{
		Prices:  prices,
		Active:  activeResp.Body(),
		Pending: pendingResp.Body(),
	}, nil
}
