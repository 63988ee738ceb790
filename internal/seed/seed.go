// Package seed bulk-imports the company registry from the TWSE open-data
// company list feeds. Seeding is the only writer of companies; the rest of
// the system treats them as read-only.
package seed

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/twfin/twfin/internal/fetcher"
	"github.com/twfin/twfin/internal/model"
	"github.com/twfin/twfin/internal/store"
)

// Feed is one company-list CSV feed. The three markets publish the same
// layout: column 1 is the company code, column 2 the name.
type Feed struct {
	Market string
	URL    string
}

// DefaultFeeds covers all three Taiwanese markets: TWSE listed, TPEx OTC and
// TPEx emerging.
func DefaultFeeds() []Feed {
	return []Feed{
		{Market: "TSE", URL: "https://mopsfin.twse.com.tw/opendata/t187ap03_L.csv"},
		{Market: "TPEx", URL: "https://mopsfin.twse.com.tw/opendata/t187ap03_O.csv"},
		{Market: "ESB", URL: "https://mopsfin.twse.com.tw/opendata/t187ap03_R.csv"},
	}
}

// Seeder imports company rows from the open-data feeds into the store.
type Seeder struct {
	store   store.Store
	fetcher fetcher.Fetcher
	feeds   []Feed
}

// NewSeeder creates a seeder over the given feeds.
func NewSeeder(st store.Store, f fetcher.Fetcher, feeds []Feed) *Seeder {
	return &Seeder{store: st, fetcher: f, feeds: feeds}
}

// Run imports every feed concurrently and returns the total number of
// companies upserted. A feed that fails aborts the run; re-running is safe
// because imports are idempotent upserts.
func (s *Seeder) Run(ctx context.Context) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	counts := make([]int, len(s.feeds))

	for i, feed := range s.feeds {
		g.Go(func() error {
			n, err := s.importFeed(ctx, feed)
			if err != nil {
				return eris.Wrapf(err, "seed: import %s", feed.Market)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

func (s *Seeder) importFeed(ctx context.Context, feed Feed) (int, error) {
	log := zap.L().With(zap.String("market", feed.Market))
	log.Info("fetching company list", zap.String("url", feed.URL))

	body, err := s.fetcher.Download(ctx, feed.URL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	rows, errs := fetcher.StreamCSV(ctx, body, fetcher.CSVOptions{
		SkipHeader: true,
		LazyQuotes: true,
		TrimSpace:  true,
	})

	count := 0
	for row := range rows {
		if len(row) < 3 || row[1] == "" || row[2] == "" {
			continue
		}
		c := model.Company{Code: row[1], Name: row[2]}
		if err := s.store.UpsertCompany(ctx, c); err != nil {
			return count, eris.Wrapf(err, "seed: upsert company %s", c.Code)
		}
		count++
	}
	if err := <-errs; err != nil {
		return count, err
	}

	log.Info("company list imported", zap.Int("count", count))
	return count, nil
}
