package model

import "time"

// MarketCapSnapshot is a same-day market capitalization computation for one
// company. MarketCapTWD = IssuedShares * StockPrice, computed once at
// resolution time and stored verbatim. A snapshot is valid cache only while
// UpdatedAt falls on the current calendar day.
type MarketCapSnapshot struct {
	CompanyCode  string    `json:"company_code"`
	PriceDate    time.Time `json:"price_date"`
	StockPrice   float64   `json:"stock_price"`
	IssuedShares int64     `json:"issued_shares"`
	MarketCapTWD float64   `json:"market_cap_twd"`
	PriceSource  string    `json:"price_source"`
	UpdatedAt    time.Time `json:"updated_at"`

	// MarketCapUSD is a display convenience recomputed from a configured
	// fixed rate on every read. Never persisted.
	MarketCapUSD float64 `json:"market_cap_usd,omitempty"`
}

// SameCalendarDay reports whether two instants fall on the same calendar day
// in UTC. Used for snapshot freshness checks.
func SameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
