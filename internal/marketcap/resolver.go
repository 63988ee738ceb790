package marketcap

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/twfin/twfin/internal/model"
	"github.com/twfin/twfin/internal/store"
)

// ErrDataUnavailable reports that no snapshot could be produced: either the
// issued-share lookup failed or every price source came up empty.
var ErrDataUnavailable = eris.New("marketcap: data unavailable")

// SharesClient is the upstream surface the resolver needs for the
// issued-share count.
type SharesClient interface {
	IssuedShares(ctx context.Context, code string) (int64, error)
}

// Resolver computes market-cap snapshots with a same-calendar-day cache.
// Price sources are tried strictly in order; the first that yields a usable
// quote wins and the rest are never consulted.
type Resolver struct {
	store     store.Store
	shares    SharesClient
	sources   []PriceSource
	twdPerUSD float64
	now       func() time.Time
}

// NewResolver creates a market-cap resolver. sources are consulted in the
// given order. twdPerUSD is the fixed display conversion rate; zero disables
// the USD figure.
func NewResolver(st store.Store, shares SharesClient, sources []PriceSource, twdPerUSD float64) *Resolver {
	return &Resolver{
		store:     st,
		shares:    shares,
		sources:   sources,
		twdPerUSD: twdPerUSD,
		now:       time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (r *Resolver) WithNow(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve returns the market-cap snapshot for one company. A snapshot updated
// earlier today is served from the store without touching any upstream. On a
// stale or missing snapshot the share count and a price are fetched and the
// result persisted; a partial snapshot is never written.
func (r *Resolver) Resolve(ctx context.Context, code string) (*model.MarketCapSnapshot, error) {
	cached, err := r.store.GetMarketCap(ctx, code)
	if err != nil {
		return nil, eris.Wrapf(err, "marketcap: cache lookup %s", code)
	}
	if cached != nil && model.SameCalendarDay(cached.UpdatedAt, r.now()) {
		return r.withUSD(cached), nil
	}

	shares, err := r.shares.IssuedShares(ctx, code)
	if err != nil {
		return nil, eris.Wrapf(ErrDataUnavailable, "issued shares for %s: %v", code, err)
	}
	if shares <= 0 {
		return nil, eris.Wrapf(ErrDataUnavailable, "non-positive share count for %s", code)
	}

	quote, err := r.lookupPrice(ctx, code)
	if err != nil {
		return nil, err
	}

	snap := &model.MarketCapSnapshot{
		CompanyCode:  code,
		PriceDate:    quote.Date,
		StockPrice:   quote.Price,
		IssuedShares: shares,
		MarketCapTWD: float64(shares) * quote.Price,
		PriceSource:  quote.Source,
		UpdatedAt:    r.now(),
	}
	if err := r.store.UpsertMarketCap(ctx, snap); err != nil {
		return nil, eris.Wrapf(err, "marketcap: persist %s", code)
	}
	return r.withUSD(snap), nil
}

// lookupPrice walks the source list in order. A source failure is logged and
// falls through to the next source rather than aborting the resolution.
func (r *Resolver) lookupPrice(ctx context.Context, code string) (*Quote, error) {
	log := zap.L().With(zap.String("company", code))
	for _, src := range r.sources {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "marketcap: price lookup cancelled")
		}
		quote, err := src.Lookup(ctx, code)
		if err != nil {
			if !eris.Is(err, ErrNotFound) {
				log.Warn("price source failed, falling through",
					zap.String("source", src.Name()), zap.Error(err))
			}
			continue
		}
		return quote, nil
	}
	return nil, eris.Wrapf(ErrDataUnavailable, "no price source matched %s", code)
}

func (r *Resolver) withUSD(snap *model.MarketCapSnapshot) *model.MarketCapSnapshot {
	if r.twdPerUSD > 0 {
		snap.MarketCapUSD = snap.MarketCapTWD / r.twdPerUSD
	}
	return snap
}
