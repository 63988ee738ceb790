package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/twfin/twfin/internal/db"
	"github.com/twfin/twfin/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revenues (
	company_code TEXT NOT NULL REFERENCES companies(code),
	year         INTEGER NOT NULL,
	month        INTEGER NOT NULL,
	revenue      DOUBLE PRECISION NOT NULL,
	yoy_percent  DOUBLE PRECISION,
	ytd_revenue  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (company_code, year, month)
);

CREATE TABLE IF NOT EXISTS market_caps (
	company_code   TEXT PRIMARY KEY REFERENCES companies(code),
	price_date     TIMESTAMPTZ NOT NULL,
	stock_price    DOUBLE PRECISION NOT NULL,
	issued_shares  BIGINT NOT NULL,
	market_cap_twd DOUBLE PRECISION NOT NULL,
	price_source   TEXT NOT NULL DEFAULT '',
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_revenues_company ON revenues(company_code);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertCompany(ctx context.Context, c model.Company) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO companies (code, name) VALUES ($1, $2)
		 ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name`,
		c.Code, c.Name,
	)
	return eris.Wrapf(err, "postgres: upsert company %s", c.Code)
}

func (s *PostgresStore) GetCompany(ctx context.Context, code string) (*model.Company, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT code, name FROM companies WHERE code = $1`, code,
	)
	var c model.Company
	err := row.Scan(&c.Code, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get company %s", code)
	}
	return &c, nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, name FROM companies ORDER BY code`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.Code, &c.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: list companies iterate")
}

func (s *PostgresStore) GetRevenue(ctx context.Context, code string, year, month int) (*model.RevenueRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT company_code, year, month, revenue, yoy_percent, ytd_revenue
		 FROM revenues WHERE company_code = $1 AND year = $2 AND month = $3`,
		code, year, month,
	)
	var rec model.RevenueRecord
	err := row.Scan(&rec.CompanyCode, &rec.Year, &rec.Month, &rec.Revenue, &rec.YoYPercent, &rec.YTDRevenue)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get revenue %s %d-%d", code, year, month)
	}
	return &rec, nil
}

func (s *PostgresStore) UpsertRevenue(ctx context.Context, rec *model.RevenueRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO revenues (company_code, year, month, revenue, yoy_percent, ytd_revenue)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (company_code, year, month) DO UPDATE SET
		   revenue = EXCLUDED.revenue,
		   yoy_percent = EXCLUDED.yoy_percent,
		   ytd_revenue = EXCLUDED.ytd_revenue`,
		rec.CompanyCode, rec.Year, rec.Month, rec.Revenue, rec.YoYPercent, rec.YTDRevenue,
	)
	return eris.Wrapf(err, "postgres: upsert revenue %s %d-%d", rec.CompanyCode, rec.Year, rec.Month)
}

func (s *PostgresStore) ListRevenues(ctx context.Context, code string) ([]model.RevenueRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT company_code, year, month, revenue, yoy_percent, ytd_revenue
		 FROM revenues WHERE company_code = $1 ORDER BY year, month`,
		code,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list revenues %s", code)
	}
	defer rows.Close()

	var records []model.RevenueRecord
	for rows.Next() {
		var rec model.RevenueRecord
		if err := rows.Scan(&rec.CompanyCode, &rec.Year, &rec.Month, &rec.Revenue, &rec.YoYPercent, &rec.YTDRevenue); err != nil {
			return nil, eris.Wrap(err, "postgres: scan revenue")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list revenues iterate")
}

func (s *PostgresStore) GetMarketCap(ctx context.Context, code string) (*model.MarketCapSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT company_code, price_date, stock_price, issued_shares, market_cap_twd, price_source, updated_at
		 FROM market_caps WHERE company_code = $1`,
		code,
	)
	var snap model.MarketCapSnapshot
	err := row.Scan(
		&snap.CompanyCode, &snap.PriceDate, &snap.StockPrice,
		&snap.IssuedShares, &snap.MarketCapTWD, &snap.PriceSource, &snap.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get market cap %s", code)
	}
	return &snap, nil
}

func (s *PostgresStore) UpsertMarketCap(ctx context.Context, snap *model.MarketCapSnapshot) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO market_caps (company_code, price_date, stock_price, issued_shares, market_cap_twd, price_source, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (company_code) DO UPDATE SET
		   price_date = EXCLUDED.price_date,
		   stock_price = EXCLUDED.stock_price,
		   issued_shares = EXCLUDED.issued_shares,
		   market_cap_twd = EXCLUDED.market_cap_twd,
		   price_source = EXCLUDED.price_source,
		   updated_at = EXCLUDED.updated_at`,
		snap.CompanyCode, snap.PriceDate.UTC(), snap.StockPrice,
		snap.IssuedShares, snap.MarketCapTWD, snap.PriceSource, snap.UpdatedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert market cap %s", snap.CompanyCode)
}
