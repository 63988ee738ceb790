package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/twfin/twfin/internal/marketcap"
	"github.com/twfin/twfin/internal/model"
)

var marketcapJSON bool

var marketcapCmd = &cobra.Command{
	Use:   "marketcap [company codes...]",
	Short: "Compute same-day market capitalization for one or more companies",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, "fetch")
		if err != nil {
			return err
		}
		defer e.Close()

		var mu sync.Mutex
		snaps := make(map[string]*model.MarketCapSnapshot, len(args))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Batch.MaxConcurrentCompanies)
		for _, code := range args {
			g.Go(func() error {
				snap, err := e.MarketCap.Resolve(gctx, code)
				if err != nil {
					if eris.Is(err, marketcap.ErrDataUnavailable) {
						zap.L().Warn("market cap unavailable",
							zap.String("company", code), zap.Error(err))
						return nil
					}
					return eris.Wrapf(err, "resolve market cap %s", code)
				}
				mu.Lock()
				snaps[code] = snap
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if marketcapJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snaps)
		}

		p := message.NewPrinter(language.English)
		fmt.Printf("%-8s %12s %18s %22s %18s  %s\n",
			"company", "price", "shares", "market cap (TWD)", "market cap (USD)", "source")
		for _, code := range args {
			snap, ok := snaps[code]
			if !ok {
				fmt.Printf("%-8s %12s\n", code, "unavailable")
				continue
			}
			usd := "-"
			if snap.MarketCapUSD > 0 {
				usd = p.Sprintf("%.0f", snap.MarketCapUSD)
			}
			fmt.Printf("%-8s %12s %18s %22s %18s  %s (%s)\n",
				code,
				p.Sprintf("%.2f", snap.StockPrice),
				p.Sprintf("%d", snap.IssuedShares),
				p.Sprintf("%.0f", snap.MarketCapTWD),
				usd,
				snap.PriceSource,
				snap.PriceDate.Format("2006-01-02"),
			)
		}
		return nil
	},
}

func init() {
	marketcapCmd.Flags().BoolVar(&marketcapJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(marketcapCmd)
}
