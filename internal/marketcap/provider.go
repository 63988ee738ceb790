// Package marketcap resolves same-day market capitalization by composing an
// issued-share lookup with a price drawn from an ordered list of alternative
// full-market price feeds.
package marketcap

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNotFound reports that a price feed carried no row for the company.
// Non-fatal: the resolver falls through to the next source.
var ErrNotFound = eris.New("marketcap: company not found in feed")

// Quote is one price observation from a feed, with the observation date
// already normalized to a Gregorian UTC calendar day.
type Quote struct {
	Price  float64
	Date   time.Time
	Source string
}

// PriceSource is one upstream price feed. Implementations know their feed's
// own schema and calendar convention; adding a source means adding a list
// entry in the resolver, not new control flow.
type PriceSource interface {
	Name() string
	Lookup(ctx context.Context, code string) (*Quote, error)
}
