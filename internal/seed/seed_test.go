package seed

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twfin/twfin/internal/store"
)

type fakeFetcher struct {
	bodies map[string]string
}

func (f *fakeFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	body, err := f.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck
	return io.ReadAll(body)
}

func (f *fakeFetcher) PostJSON(_ context.Context, _ string, _ any) ([]byte, error) {
	return nil, eris.New("not implemented")
}

func (f *fakeFetcher) Download(_ context.Context, url string) (io.ReadCloser, error) {
	body, ok := f.bodies[url]
	if !ok {
		return nil, eris.Errorf("no body for %s", url)
	}
	return io.NopCloser(bytes.NewReader([]byte(body))), nil
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

const listedCSV = "出表日期,公司代號,公司名稱,公司簡稱\n" +
	"1130829,2330,台灣積體電路製造股份有限公司,台積電\n" +
	"1130829,2317,鴻海精密工業股份有限公司,鴻海\n"

const otcCSV = "出表日期,公司代號,公司名稱,公司簡稱\n" +
	"1130829,5483,中美矽晶製品股份有限公司,中美晶\n" +
	"1130829,,缺代號列,skip\n"

func TestSeeder_ImportsAllFeeds(t *testing.T) {
	st := newTestStore(t)
	f := &fakeFetcher{bodies: map[string]string{
		"https://example.test/L.csv": listedCSV,
		"https://example.test/O.csv": otcCSV,
	}}
	s := NewSeeder(st, f, []Feed{
		{Market: "TSE", URL: "https://example.test/L.csv"},
		{Market: "TPEx", URL: "https://example.test/O.csv"},
	})

	total, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, total, "the codeless row is skipped")

	c, err := st.GetCompany(context.Background(), "2330")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "台灣積體電路製造股份有限公司", c.Name)

	companies, err := st.ListCompanies(context.Background())
	require.NoError(t, err)
	assert.Len(t, companies, 3)
}

func TestSeeder_RerunIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	f := &fakeFetcher{bodies: map[string]string{"https://example.test/L.csv": listedCSV}}
	s := NewSeeder(st, f, []Feed{{Market: "TSE", URL: "https://example.test/L.csv"}})
	ctx := context.Background()

	_, err := s.Run(ctx)
	require.NoError(t, err)
	_, err = s.Run(ctx)
	require.NoError(t, err)

	companies, err := st.ListCompanies(ctx)
	require.NoError(t, err)
	assert.Len(t, companies, 2)
}

func TestSeeder_FeedFailureAborts(t *testing.T) {
	st := newTestStore(t)
	f := &fakeFetcher{bodies: map[string]string{"https://example.test/L.csv": listedCSV}}
	s := NewSeeder(st, f, []Feed{
		{Market: "TSE", URL: "https://example.test/L.csv"},
		{Market: "TPEx", URL: "https://example.test/missing.csv"},
	})

	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TPEx")
}
