package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twfin/twfin/internal/model"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedCompany(t *testing.T, st *SQLiteStore, code string) {
	t.Helper()
	require.NoError(t, st.UpsertCompany(context.Background(), model.Company{Code: code, Name: "測試公司"}))
}

func TestSQLiteCompanyRoundTrip(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()

	missing, err := st.GetCompany(ctx, "2330")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, st.UpsertCompany(ctx, model.Company{Code: "2330", Name: "台積電"}))
	c, err := st.GetCompany(ctx, "2330")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "台積電", c.Name)

	// Upsert with the same code replaces the name.
	require.NoError(t, st.UpsertCompany(ctx, model.Company{Code: "2330", Name: "台灣積體電路"}))
	c, err = st.GetCompany(ctx, "2330")
	require.NoError(t, err)
	assert.Equal(t, "台灣積體電路", c.Name)
}

func TestSQLiteListCompaniesOrdered(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()

	for _, code := range []string{"2454", "1101", "2330"} {
		require.NoError(t, st.UpsertCompany(ctx, model.Company{Code: code, Name: code}))
	}

	companies, err := st.ListCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 3)
	assert.Equal(t, "1101", companies[0].Code)
	assert.Equal(t, "2330", companies[1].Code)
	assert.Equal(t, "2454", companies[2].Code)
}

func TestSQLiteRevenueRoundTrip(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	seedCompany(t, st, "2330")

	missing, err := st.GetRevenue(ctx, "2330", 2024, 1)
	require.NoError(t, err)
	assert.Nil(t, missing)

	yoy := 23.4567
	require.NoError(t, st.UpsertRevenue(ctx, &model.RevenueRecord{
		CompanyCode: "2330", Year: 2024, Month: 1,
		Revenue: 1234.567, YoYPercent: &yoy, YTDRevenue: 1234.567,
	}))

	rec, err := st.GetRevenue(ctx, "2330", 2024, 1)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1234.567, rec.Revenue)
	require.NotNil(t, rec.YoYPercent)
	assert.InDelta(t, 23.4567, *rec.YoYPercent, 1e-9)
	assert.Equal(t, 1234.567, rec.YTDRevenue)
}

func TestSQLiteRevenueNilYoYSurvives(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	seedCompany(t, st, "2330")

	require.NoError(t, st.UpsertRevenue(ctx, &model.RevenueRecord{
		CompanyCode: "2330", Year: 2024, Month: 2, Revenue: 100, YTDRevenue: 200,
	}))

	rec, err := st.GetRevenue(ctx, "2330", 2024, 2)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Nil(t, rec.YoYPercent, "absent growth must stay absent, not become zero")
}

func TestSQLiteRevenueUpsertOverwrites(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	seedCompany(t, st, "2330")

	require.NoError(t, st.UpsertRevenue(ctx, &model.RevenueRecord{
		CompanyCode: "2330", Year: 2024, Month: 1, Revenue: 100, YTDRevenue: 100,
	}))
	require.NoError(t, st.UpsertRevenue(ctx, &model.RevenueRecord{
		CompanyCode: "2330", Year: 2024, Month: 1, Revenue: 150, YTDRevenue: 150,
	}))

	rec, err := st.GetRevenue(ctx, "2330", 2024, 1)
	require.NoError(t, err)
	assert.Equal(t, 150.0, rec.Revenue)

	records, err := st.ListRevenues(ctx, "2330")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLiteListRevenuesChronological(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	seedCompany(t, st, "2330")

	// Insert out of order across a year boundary.
	for _, p := range []struct{ y, m int }{{2024, 2}, {2023, 12}, {2024, 1}} {
		require.NoError(t, st.UpsertRevenue(ctx, &model.RevenueRecord{
			CompanyCode: "2330", Year: p.y, Month: p.m, Revenue: 1, YTDRevenue: 1,
		}))
	}

	records, err := st.ListRevenues(ctx, "2330")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 2023, records[0].Year)
	assert.Equal(t, 12, records[0].Month)
	assert.Equal(t, 1, records[1].Month)
	assert.Equal(t, 2, records[2].Month)
}

func TestSQLiteMarketCapRoundTrip(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	seedCompany(t, st, "2330")

	missing, err := st.GetMarketCap(ctx, "2330")
	require.NoError(t, err)
	assert.Nil(t, missing)

	priceDate := time.Date(2024, 8, 29, 0, 0, 0, 0, time.UTC)
	updatedAt := time.Date(2024, 8, 29, 9, 30, 0, 0, time.UTC)
	require.NoError(t, st.UpsertMarketCap(ctx, &model.MarketCapSnapshot{
		CompanyCode:  "2330",
		PriceDate:    priceDate,
		StockPrice:   1025.0,
		IssuedShares: 25930380458,
		MarketCapTWD: 1025.0 * 25930380458,
		PriceSource:  "twse",
		UpdatedAt:    updatedAt,
	}))

	snap, err := st.GetMarketCap(ctx, "2330")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 1025.0, snap.StockPrice)
	assert.Equal(t, int64(25930380458), snap.IssuedShares)
	assert.Equal(t, "twse", snap.PriceSource)
	assert.WithinDuration(t, priceDate, snap.PriceDate, time.Second)
	assert.WithinDuration(t, updatedAt, snap.UpdatedAt, time.Second)
	assert.Zero(t, snap.MarketCapUSD, "the USD figure is never persisted")
}

func TestSQLiteMarketCapUpsertReplaces(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	seedCompany(t, st, "2330")

	base := model.MarketCapSnapshot{
		CompanyCode: "2330", PriceDate: time.Now().UTC(), StockPrice: 900,
		IssuedShares: 1000, MarketCapTWD: 900000, PriceSource: "twse",
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.UpsertMarketCap(ctx, &base))

	updated := base
	updated.StockPrice = 950
	updated.MarketCapTWD = 950000
	updated.PriceSource = "tpex_mainboard"
	require.NoError(t, st.UpsertMarketCap(ctx, &updated))

	snap, err := st.GetMarketCap(ctx, "2330")
	require.NoError(t, err)
	assert.Equal(t, 950.0, snap.StockPrice)
	assert.Equal(t, "tpex_mainboard", snap.PriceSource)
}
