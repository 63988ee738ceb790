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

	"github.com/twfin/twfin/internal/revenue"
	"github.com/twfin/twfin/internal/twcal"
)

var (
	revenueSince string
	revenueJSON  bool
)

var revenueCmd = &cobra.Command{
	Use:   "revenue [company codes...]",
	Short: "Fetch monthly revenue for one or more companies",
	Long:  "Resolves every monthly period from --since through the last elapsed month, cache-first. Periods within one company run sequentially with a defensive delay; companies run in parallel.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		start, err := twcal.ParsePeriod(revenueSince)
		if err != nil {
			return err
		}

		e, err := initEnv(ctx, "fetch")
		if err != nil {
			return err
		}
		defer e.Close()

		var mu sync.Mutex
		byCompany := make(map[string][]revenue.PeriodResult, len(args))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Batch.MaxConcurrentCompanies)
		for _, code := range args {
			g.Go(func() error {
				results, err := e.Revenue.ResolveSince(gctx, code, start)
				if err != nil {
					return eris.Wrapf(err, "resolve revenue %s", code)
				}
				mu.Lock()
				byCompany[code] = results
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if revenueJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(byCompany)
		}

		for _, code := range args {
			printRevenueTable(code, byCompany[code])
		}
		return nil
	},
}

// printRevenueTable renders one company's period results with grouped digits.
// Revenue figures are in millions of TWD.
func printRevenueTable(code string, results []revenue.PeriodResult) {
	p := message.NewPrinter(language.English)

	fmt.Printf("\n%s\n", code)
	fmt.Printf("%-9s %16s %10s %16s  %s\n", "period", "revenue (M)", "yoy %", "ytd (M)", "status")
	for _, r := range results {
		switch {
		case r.Record != nil:
			yoy := "-"
			if r.Record.YoYPercent != nil {
				yoy = p.Sprintf("%.2f", *r.Record.YoYPercent)
			}
			fmt.Printf("%-9s %16s %10s %16s  %s/%s\n",
				r.Period,
				p.Sprintf("%.3f", r.Record.Revenue),
				yoy,
				p.Sprintf("%.3f", r.Record.YTDRevenue),
				r.Status, r.Record.Source,
			)
		default:
			fmt.Printf("%-9s %16s %10s %16s  %s\n", r.Period, "-", "-", "-", r.Status)
			if r.Reason != "" {
				zap.L().Debug("period not resolved",
					zap.String("company", code),
					zap.String("period", r.Period.String()),
					zap.String("reason", r.Reason))
			}
		}
	}
}

func init() {
	revenueCmd.Flags().StringVar(&revenueSince, "since", "", "start period, YYYY-MM (required)")
	revenueCmd.Flags().BoolVar(&revenueJSON, "json", false, "print results as JSON")
	_ = revenueCmd.MarkFlagRequired("since")
	rootCmd.AddCommand(revenueCmd)
}
