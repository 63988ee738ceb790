// Package export writes cached revenue and market-cap data to XLSX workbooks.
package export

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/twfin/twfin/internal/store"
)

// Workbook builds an XLSX export from the store. Only cached data is
// exported; no upstream calls are made.
type Workbook struct {
	store store.Store
}

// NewWorkbook creates an exporter over the given store.
func NewWorkbook(st store.Store) *Workbook {
	return &Workbook{store: st}
}

// Write exports the given companies to path: one revenue sheet with every
// cached period, and one market-cap sheet with the latest snapshot per
// company. Companies with no cached data are skipped.
func (w *Workbook) Write(ctx context.Context, path string, codes []string) error {
	f := xlsx.NewFile()

	revSheet, err := f.AddSheet("Revenue")
	if err != nil {
		return eris.Wrap(err, "export: add revenue sheet")
	}
	writeHeader(revSheet, "Company", "Name", "Year", "Month", "Revenue (M TWD)", "YoY %", "YTD (M TWD)")

	capSheet, err := f.AddSheet("MarketCap")
	if err != nil {
		return eris.Wrap(err, "export: add market cap sheet")
	}
	writeHeader(capSheet, "Company", "Name", "Price Date", "Price", "Issued Shares", "Market Cap (TWD)", "Source", "Updated At")

	for _, code := range codes {
		company, err := w.store.GetCompany(ctx, code)
		if err != nil {
			return eris.Wrapf(err, "export: company %s", code)
		}
		name := ""
		if company != nil {
			name = company.Name
		}

		records, err := w.store.ListRevenues(ctx, code)
		if err != nil {
			return eris.Wrapf(err, "export: revenues %s", code)
		}
		for _, rec := range records {
			row := revSheet.AddRow()
			row.AddCell().SetString(code)
			row.AddCell().SetString(name)
			row.AddCell().SetInt(rec.Year)
			row.AddCell().SetInt(rec.Month)
			row.AddCell().SetFloat(rec.Revenue)
			if rec.YoYPercent != nil {
				row.AddCell().SetFloat(*rec.YoYPercent)
			} else {
				row.AddCell().SetString("")
			}
			row.AddCell().SetFloat(rec.YTDRevenue)
		}

		snap, err := w.store.GetMarketCap(ctx, code)
		if err != nil {
			return eris.Wrapf(err, "export: market cap %s", code)
		}
		if snap != nil {
			row := capSheet.AddRow()
			row.AddCell().SetString(code)
			row.AddCell().SetString(name)
			row.AddCell().SetString(snap.PriceDate.Format("2006-01-02"))
			row.AddCell().SetFloat(snap.StockPrice)
			row.AddCell().SetInt64(snap.IssuedShares)
			row.AddCell().SetFloat(snap.MarketCapTWD)
			row.AddCell().SetString(snap.PriceSource)
			row.AddCell().SetString(snap.UpdatedAt.Format("2006-01-02 15:04"))
		}
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func writeHeader(sheet *xlsx.Sheet, titles ...string) {
	row := sheet.AddRow()
	for _, title := range titles {
		row.AddCell().SetString(title)
	}
}
