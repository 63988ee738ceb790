package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twfin/twfin/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetCompany_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT code, name FROM companies WHERE code = \$1`).
		WithArgs("9999").
		WillReturnError(pgx.ErrNoRows)

	c, err := s.GetCompany(context.Background(), "9999")
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCompany_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT code, name FROM companies WHERE code = \$1`).
		WithArgs("2330").
		WillReturnRows(pgxmock.NewRows([]string{"code", "name"}).AddRow("2330", "台積電"))

	c, err := s.GetCompany(context.Background(), "2330")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "台積電", c.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertCompany(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO companies`).
		WithArgs("2330", "台積電").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertCompany(context.Background(), model.Company{Code: "2330", Name: "台積電"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRevenue_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM revenues WHERE company_code = \$1 AND year = \$2 AND month = \$3`).
		WithArgs("2330", 2024, 1).
		WillReturnError(pgx.ErrNoRows)

	rec, err := s.GetRevenue(context.Background(), "2330", 2024, 1)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRevenue_NilYoY(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM revenues WHERE company_code = \$1 AND year = \$2 AND month = \$3`).
		WithArgs("2330", 2024, 2).
		WillReturnRows(pgxmock.NewRows(
			[]string{"company_code", "year", "month", "revenue", "yoy_percent", "ytd_revenue"},
		).AddRow("2330", 2024, 2, 100.0, (*float64)(nil), 200.0))

	rec, err := s.GetRevenue(context.Background(), "2330", 2024, 2)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Nil(t, rec.YoYPercent)
	assert.Equal(t, 100.0, rec.Revenue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertRevenue(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	yoy := 23.4
	mock.ExpectExec(`INSERT INTO revenues`).
		WithArgs("2330", 2024, 1, 1234.5, &yoy, 1234.5).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertRevenue(context.Background(), &model.RevenueRecord{
		CompanyCode: "2330", Year: 2024, Month: 1,
		Revenue: 1234.5, YoYPercent: &yoy, YTDRevenue: 1234.5,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRevenues(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM revenues WHERE company_code = \$1 ORDER BY year, month`).
		WithArgs("2330").
		WillReturnRows(pgxmock.NewRows(
			[]string{"company_code", "year", "month", "revenue", "yoy_percent", "ytd_revenue"},
		).
			AddRow("2330", 2023, 12, 90.0, (*float64)(nil), 1000.0).
			AddRow("2330", 2024, 1, 100.0, (*float64)(nil), 100.0))

	records, err := s.ListRevenues(context.Background(), "2330")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2023, records[0].Year)
	assert.Equal(t, 2024, records[1].Year)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMarketCap_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM market_caps WHERE company_code = \$1`).
		WithArgs("2330").
		WillReturnError(pgx.ErrNoRows)

	snap, err := s.GetMarketCap(context.Background(), "2330")
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertMarketCap(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO market_caps`).
		WithArgs("2330", pgxmock.AnyArg(), 1025.0, int64(25930380458), pgxmock.AnyArg(), "twse", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertMarketCap(context.Background(), &model.MarketCapSnapshot{
		CompanyCode: "2330", PriceDate: time.Now(), StockPrice: 1025.0,
		IssuedShares: 25930380458, MarketCapTWD: 1025.0 * 25930380458,
		PriceSource: "twse", UpdatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS companies`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
