package export

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/twfin/twfin/internal/model"
	"github.com/twfin/twfin/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestWorkbook_Write(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertCompany(ctx, model.Company{Code: "2330", Name: "台積電"}))
	yoy := 23.4
	require.NoError(t, st.UpsertRevenue(ctx, &model.RevenueRecord{
		CompanyCode: "2330", Year: 2024, Month: 1,
		Revenue: 1234.567, YoYPercent: &yoy, YTDRevenue: 1234.567,
	}))
	require.NoError(t, st.UpsertRevenue(ctx, &model.RevenueRecord{
		CompanyCode: "2330", Year: 2024, Month: 2,
		Revenue: 1300.0, YTDRevenue: 2534.567,
	}))
	require.NoError(t, st.UpsertMarketCap(ctx, &model.MarketCapSnapshot{
		CompanyCode: "2330", PriceDate: time.Date(2024, 8, 29, 0, 0, 0, 0, time.UTC),
		StockPrice: 1025.0, IssuedShares: 25930380458,
		MarketCapTWD: 1025.0 * 25930380458, PriceSource: "twse",
		UpdatedAt: time.Date(2024, 8, 29, 9, 0, 0, 0, time.UTC),
	}))

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, NewWorkbook(st).Write(ctx, path, []string{"2330", "9999"}))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	rev := f.Sheet["Revenue"]
	require.NotNil(t, rev)
	require.Len(t, rev.Rows, 3, "header plus two periods; the unknown company adds nothing")
	assert.Equal(t, "Company", rev.Rows[0].Cells[0].String())
	assert.Equal(t, "2330", rev.Rows[1].Cells[0].String())
	assert.Equal(t, "台積電", rev.Rows[1].Cells[1].String())
	assert.Equal(t, "", rev.Rows[2].Cells[5].String(), "nil growth exports as blank, not zero")

	caps := f.Sheet["MarketCap"]
	require.NotNil(t, caps)
	require.Len(t, caps.Rows, 2)
	assert.Equal(t, "twse", caps.Rows[1].Cells[6].String())
	assert.Equal(t, "2024-08-29", caps.Rows[1].Cells[2].String())
}

func TestWorkbook_EmptyStoreStillWritesHeaders(t *testing.T) {
	st := newTestStore(t)
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, NewWorkbook(st).Write(context.Background(), path, nil))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)
	assert.Len(t, f.Sheet["Revenue"].Rows, 1)
	assert.Len(t, f.Sheet["MarketCap"].Rows, 1)
}
