// Package store provides the persistence layer for companies, revenue
// records and market-cap snapshots.
package store

import (
	"context"

	"github.com/twfin/twfin/internal/model"
)

// Store defines the persistence interface shared by the SQLite and Postgres
// backends. Point lookups return (nil, nil) when no row exists. Upserts are
// idempotent and atomic per row; last write wins.
type Store interface {
	// Companies (seeded by bulk import, read-only elsewhere)
	UpsertCompany(ctx context.Context, c model.Company) error
	GetCompany(ctx context.Context, code string) (*model.Company, error)
	ListCompanies(ctx context.Context) ([]model.Company, error)

	// Revenue records, keyed (company_code, year, month). No TTL: a closed
	// accounting period never changes, so a cached record is final.
	GetRevenue(ctx context.Context, code string, year, month int) (*model.RevenueRecord, error)
	UpsertRevenue(ctx context.Context, rec *model.RevenueRecord) error
	ListRevenues(ctx context.Context, code string) ([]model.RevenueRecord, error)

	// Market-cap snapshots, keyed by company code. Freshness is decided by
	// the caller comparing UpdatedAt against the current day.
	GetMarketCap(ctx context.Context, code string) (*model.MarketCapSnapshot, error)
	UpsertMarketCap(ctx context.Context, snap *model.MarketCapSnapshot) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
