package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twfin/twfin/internal/marketcap"
	"github.com/twfin/twfin/internal/model"
	"github.com/twfin/twfin/internal/revenue"
	"github.com/twfin/twfin/internal/store"
	"github.com/twfin/twfin/internal/twcal"
)

type fakeRevenue struct {
	results []revenue.PeriodResult
	err     error
}

func (f *fakeRevenue) ResolveSince(_ context.Context, _ string, _ twcal.Period) ([]revenue.PeriodResult, error) {
	return f.results, f.err
}

type fakeMarketCap struct {
	snap *model.MarketCapSnapshot
	err  error
}

func (f *fakeMarketCap) Resolve(_ context.Context, _ string) (*model.MarketCapSnapshot, error) {
	return f.snap, f.err
}

func newTestServer(t *testing.T, rev RevenueResolver, mc MarketCapResolver) (*httptest.Server, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.UpsertCompany(context.Background(), model.Company{Code: "2330", Name: "台積電"}))

	srv := httptest.NewServer(NewServer(st, rev, mc).Router())
	t.Cleanup(srv.Close)
	return srv, st
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRevenue{}, &fakeMarketCap{})

	var body map[string]string
	resp := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestListCompanies(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRevenue{}, &fakeMarketCap{})

	var companies []model.Company
	resp := getJSON(t, srv.URL+"/api/companies", &companies)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, companies, 1)
	assert.Equal(t, "2330", companies[0].Code)
}

func TestRevenue_RequiresSince(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRevenue{}, &fakeMarketCap{})

	resp := getJSON(t, srv.URL+"/api/revenue/2330", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = getJSON(t, srv.URL+"/api/revenue/2330?since=January", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRevenue_UnknownCompany(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRevenue{}, &fakeMarketCap{})

	resp := getJSON(t, srv.URL+"/api/revenue/9999?since=2024-01", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRevenue_ReturnsPeriods(t *testing.T) {
	rev := &fakeRevenue{results: []revenue.PeriodResult{
		{Period: twcal.Period{Year: 2024, Month: 1}, Status: revenue.StatusOK,
			Record: &model.RevenueRecord{CompanyCode: "2330", Year: 2024, Month: 1, Revenue: 1234.5}},
		{Period: twcal.Period{Year: 2024, Month: 2}, Status: revenue.StatusBlocked, Reason: "interstitial"},
	}}
	srv, _ := newTestServer(t, rev, &fakeMarketCap{})

	var body struct {
		Company string                  `json:"company"`
		Periods []revenue.PeriodResult `json:"periods"`
	}
	resp := getJSON(t, srv.URL+"/api/revenue/2330?since=2024-01", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2330", body.Company)
	require.Len(t, body.Periods, 2)
	assert.Equal(t, revenue.StatusOK, body.Periods[0].Status)
	assert.Equal(t, revenue.StatusBlocked, body.Periods[1].Status)
	assert.Nil(t, body.Periods[1].Record)
}

func TestMarketCap_OK(t *testing.T) {
	mc := &fakeMarketCap{snap: &model.MarketCapSnapshot{
		CompanyCode: "2330", StockPrice: 1025, IssuedShares: 1000,
		MarketCapTWD: 1025000, MarketCapUSD: 31538.46, PriceSource: "twse",
		PriceDate: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}}
	srv, _ := newTestServer(t, &fakeRevenue{}, mc)

	var snap model.MarketCapSnapshot
	resp := getJSON(t, srv.URL+"/api/marketcap/2330", &snap)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "twse", snap.PriceSource)
	assert.InDelta(t, 31538.46, snap.MarketCapUSD, 0.01)
}

func TestMarketCap_Unavailable(t *testing.T) {
	mc := &fakeMarketCap{err: eris.Wrap(marketcap.ErrDataUnavailable, "no price source matched")}
	srv, _ := newTestServer(t, &fakeRevenue{}, mc)

	resp := getJSON(t, srv.URL+"/api/marketcap/2330", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
