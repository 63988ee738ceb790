package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/twfin/twfin/internal/fetcher"
	"github.com/twfin/twfin/internal/marketcap"
	"github.com/twfin/twfin/internal/mops"
	"github.com/twfin/twfin/internal/revenue"
	"github.com/twfin/twfin/internal/seed"
	"github.com/twfin/twfin/internal/store"
)

// env bundles the store and resolvers a data command needs.
type env struct {
	Store     store.Store
	Fetcher   fetcher.Fetcher
	MOPS      *mops.Client
	Revenue   *revenue.Resolver
	MarketCap *marketcap.Resolver
	Seeder    *seed.Seeder
}

func (e *env) Close() {
	_ = e.Store.Close()
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.Path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initEnv(ctx context.Context, mode string) (*env, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:     time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxAttempts: cfg.Fetch.MaxAttempts,
		Headers: map[string]string{
			"Referer": "https://mops.twse.com.tw/mops/web/index",
			"Origin":  "https://mops.twse.com.tw",
		},
	})

	mopsClient := mops.NewClient(f, mops.Config{
		RevenueURL: cfg.MOPS.RevenueURL,
		SharesURL:  cfg.MOPS.SharesURL,
	})

	sources := []marketcap.PriceSource{
		marketcap.NewTWSESource(f, cfg.Prices.TWSEURL),
		marketcap.NewTPExMainboardSource(f, cfg.Prices.TPExMainboardURL),
		marketcap.NewTPExEmergingSource(f, cfg.Prices.TPExEmergingURL),
	}

	return &env{
		Store:     st,
		Fetcher:   f,
		MOPS:      mopsClient,
		Revenue:   revenue.NewResolver(st, mopsClient, cfg.Fetch.RequestDelay()),
		MarketCap: marketcap.NewResolver(st, mopsClient, sources, cfg.FX.TWDPerUSD),
		Seeder: seed.NewSeeder(st, f, []seed.Feed{
			{Market: "TSE", URL: cfg.Seed.ListedURL},
			{Market: "TPEx", URL: cfg.Seed.OTCURL},
			{Market: "ESB", URL: cfg.Seed.EmergingURL},
		}),
	}, nil
}
