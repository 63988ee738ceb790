package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/twfin/twfin/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revenues (
	company_code TEXT NOT NULL,
	year         INTEGER NOT NULL,
	month        INTEGER NOT NULL,
	revenue      REAL NOT NULL,
	yoy_percent  REAL,
	ytd_revenue  REAL NOT NULL,
	PRIMARY KEY (company_code, year, month),
	FOREIGN KEY (company_code) REFERENCES companies(code)
);

CREATE TABLE IF NOT EXISTS market_caps (
	company_code   TEXT PRIMARY KEY,
	price_date     DATETIME NOT NULL,
	stock_price    REAL NOT NULL,
	issued_shares  INTEGER NOT NULL,
	market_cap_twd REAL NOT NULL,
	price_source   TEXT NOT NULL DEFAULT '',
	updated_at     DATETIME NOT NULL,
	FOREIGN KEY (company_code) REFERENCES companies(code)
);

CREATE INDEX IF NOT EXISTS idx_revenues_company ON revenues(company_code);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertCompany(ctx context.Context, c model.Company) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (code, name) VALUES (?, ?)
		 ON CONFLICT (code) DO UPDATE SET name = excluded.name`,
		c.Code, c.Name,
	)
	return eris.Wrapf(err, "sqlite: upsert company %s", c.Code)
}

func (s *SQLiteStore) GetCompany(ctx context.Context, code string) (*model.Company, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT code, name FROM companies WHERE code = ?`, code,
	)
	var c model.Company
	err := row.Scan(&c.Code, &c.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get company %s", code)
	}
	return &c, nil
}

func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, name FROM companies ORDER BY code`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.Code, &c.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: list companies iterate")
}

func (s *SQLiteStore) GetRevenue(ctx context.Context, code string, year, month int) (*model.RevenueRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT company_code, year, month, revenue, yoy_percent, ytd_revenue
		 FROM revenues WHERE company_code = ? AND year = ? AND month = ?`,
		code, year, month,
	)
	rec, err := scanRevenue(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get revenue %s %d-%d", code, year, month)
	}
	return rec, nil
}

func (s *SQLiteStore) UpsertRevenue(ctx context.Context, rec *model.RevenueRecord) error {
	var yoy sql.NullFloat64
	if rec.YoYPercent != nil {
		yoy = sql.NullFloat64{Float64: *rec.YoYPercent, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO revenues (company_code, year, month, revenue, yoy_percent, ytd_revenue)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (company_code, year, month) DO UPDATE SET
		   revenue = excluded.revenue,
		   yoy_percent = excluded.yoy_percent,
		   ytd_revenue = excluded.ytd_revenue`,
		rec.CompanyCode, rec.Year, rec.Month, rec.Revenue, yoy, rec.YTDRevenue,
	)
	return eris.Wrapf(err, "sqlite: upsert revenue %s %d-%d", rec.CompanyCode, rec.Year, rec.Month)
}

func (s *SQLiteStore) ListRevenues(ctx context.Context, code string) ([]model.RevenueRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT company_code, year, month, revenue, yoy_percent, ytd_revenue
		 FROM revenues WHERE company_code = ? ORDER BY year, month`,
		code,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list revenues %s", code)
	}
	defer rows.Close()

	var records []model.RevenueRecord
	for rows.Next() {
		rec, err := scanRevenue(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan revenue")
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list revenues iterate")
}

func (s *SQLiteStore) GetMarketCap(ctx context.Context, code string) (*model.MarketCapSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT company_code, price_date, stock_price, issued_shares, market_cap_twd, price_source, updated_at
		 FROM market_caps WHERE company_code = ?`,
		code,
	)
	var snap model.MarketCapSnapshot
	err := row.Scan(
		&snap.CompanyCode, &snap.PriceDate, &snap.StockPrice,
		&snap.IssuedShares, &snap.MarketCapTWD, &snap.PriceSource, &snap.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get market cap %s", code)
	}
	return &snap, nil
}

func (s *SQLiteStore) UpsertMarketCap(ctx context.Context, snap *model.MarketCapSnapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO market_caps (company_code, price_date, stock_price, issued_shares, market_cap_twd, price_source, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (company_code) DO UPDATE SET
		   price_date = excluded.price_date,
		   stock_price = excluded.stock_price,
		   issued_shares = excluded.issued_shares,
		   market_cap_twd = excluded.market_cap_twd,
		   price_source = excluded.price_source,
		   updated_at = excluded.updated_at`,
		snap.CompanyCode, snap.PriceDate.UTC(), snap.StockPrice,
		snap.IssuedShares, snap.MarketCapTWD, snap.PriceSource, snap.UpdatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert market cap %s", snap.CompanyCode)
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanRevenue(row scannable) (*model.RevenueRecord, error) {
	var rec model.RevenueRecord
	var yoy sql.NullFloat64

	err := row.Scan(&rec.CompanyCode, &rec.Year, &rec.Month, &rec.Revenue, &yoy, &rec.YTDRevenue)
	if err != nil {
		return nil, err
	}
	if yoy.Valid {
		rec.YoYPercent = &yoy.Float64
	}
	return &rec, nil
}
