// Package revenue resolves monthly revenue records cache-first: a period
// already persisted is never fetched again, because a closed accounting
// period does not change.
package revenue

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/twfin/twfin/internal/model"
	"github.com/twfin/twfin/internal/mops"
	"github.com/twfin/twfin/internal/store"
	"github.com/twfin/twfin/internal/twcal"
)

// Client is the upstream surface the resolver needs from the MOPS client.
type Client interface {
	MonthlyRevenue(ctx context.Context, code string, p twcal.Period) (*model.RevenueRecord, error)
}

// Status classifies the outcome of resolving one period.
type Status string

const (
	StatusOK          Status = "ok"
	StatusNoData      Status = "no_data"     // period not filed yet; normal absence, not a failure
	StatusBlocked     Status = "blocked"     // anti-automation interstitial; retryable later
	StatusUnavailable Status = "unavailable" // network failure, non-2xx, malformed response
)

// PeriodResult is the per-period outcome of a range resolution. Exactly one
// of Record or Reason is populated for ok/failed statuses; no_data carries
// neither.
type PeriodResult struct {
	Period twcal.Period         `json:"period"`
	Status Status               `json:"status"`
	Record *model.RevenueRecord `json:"record,omitempty"`
	Reason string               `json:"reason,omitempty"`
}

// Resolver answers revenue lookups from the store when possible and from
// MOPS otherwise.
type Resolver struct {
	store  store.Store
	client Client
	delay  time.Duration // minimum gap between successive upstream calls for one company
	now    func() time.Time
}

// NewResolver creates a revenue resolver. delay is the defensive per-company
// inter-request gap imposed after each real upstream call.
func NewResolver(st store.Store, client Client, delay time.Duration) *Resolver {
	return &Resolver{
		store:  st,
		client: client,
		delay:  delay,
		now:    time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (r *Resolver) WithNow(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve returns the revenue record for one company and period, or
// (nil, nil) when the period has no data. A cache hit performs zero upstream
// calls and is tagged SourceCache; a fresh fetch is normalized, persisted and
// tagged SourceUpstream. Blocked and no-data outcomes cache nothing, so a
// later run can succeed once the block lifts or the period is filed.
func (r *Resolver) Resolve(ctx context.Context, code string, p twcal.Period) (*model.RevenueRecord, error) {
	cached, err := r.store.GetRevenue(ctx, code, p.Year, p.Month)
	if err != nil {
		return nil, eris.Wrapf(err, "revenue: cache lookup %s %s", code, p)
	}
	if cached != nil {
		cached.Source = model.SourceCache
		return cached, nil
	}

	rec, err := r.client.MonthlyRevenue(ctx, code, p)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	if err := r.store.UpsertRevenue(ctx, rec); err != nil {
		return nil, eris.Wrapf(err, "revenue: persist %s %s", code, p)
	}
	rec.Source = model.SourceUpstream
	return rec, nil
}

// ResolveSince resolves every period from start through the last fully
// elapsed month. Failures are isolated per period: a blocked or unavailable
// period is reported in its result and the remaining periods still proceed.
// Results are re-sorted chronologically before being returned.
func (r *Resolver) ResolveSince(ctx context.Context, code string, start twcal.Period) ([]PeriodResult, error) {
	periods := twcal.PeriodsSince(start, r.now())
	results := make([]PeriodResult, 0, len(periods))

	log := zap.L().With(zap.String("company", code))

	for i, p := range periods {
		if ctx.Err() != nil {
			return results, eris.Wrap(ctx.Err(), "revenue: range resolution cancelled")
		}

		rec, err := r.Resolve(ctx, code, p)
		results = append(results, classify(p, rec, err))

		switch {
		case err != nil && mops.IsBlocked(err):
			log.Warn("period fetch blocked by upstream", zap.String("period", p.String()))
		case err != nil:
			log.Warn("period fetch failed", zap.String("period", p.String()), zap.Error(err))
		}

		// Impose the inter-request gap only after a true upstream call;
		// cache hits burn no upstream budget.
		wasUpstream := err != nil || rec == nil || rec.Source == model.SourceUpstream
		if wasUpstream && i < len(periods)-1 && r.delay > 0 {
			timer := time.NewTimer(r.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return results, eris.Wrap(ctx.Err(), "revenue: range resolution cancelled")
			case <-timer.C:
			}
		}
	}

	// Recombine by period key: the aggregation must not rely on completion
	// order.
	sort.Slice(results, func(i, j int) bool {
		return results[i].Period.Before(results[j].Period)
	})

	return results, nil
}

func classify(p twcal.Period, rec *model.RevenueRecord, err error) PeriodResult {
	switch {
	case err != nil && mops.IsBlocked(err):
		return PeriodResult{Period: p, Status: StatusBlocked, Reason: err.Error()}
	case err != nil:
		return PeriodResult{Period: p, Status: StatusUnavailable, Reason: err.Error()}
	case rec == nil:
		return PeriodResult{Period: p, Status: StatusNoData}
	default:
		return PeriodResult{Period: p, Status: StatusOK, Record: rec}
	}
}
