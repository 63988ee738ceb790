package marketcap

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/twfin/twfin/internal/fetcher"
	"github.com/twfin/twfin/internal/twcal"
)

// TPExMainboardSource reads the TPEx OTC mainboard daily close quotes feed.
// Prices are in the Average field; dates are Minguo.
type TPExMainboardSource struct {
	fetcher fetcher.Fetcher
	url     string
}

// NewTPExMainboardSource creates the TPEx OTC mainboard price source.
func NewTPExMainboardSource(f fetcher.Fetcher, url string) *TPExMainboardSource {
	return &TPExMainboardSource{fetcher: f, url: url}
}

func (s *TPExMainboardSource) Name() string { return "tpex_mainboard" }

type tpexMainboardRow struct {
	SecuritiesCompanyCode string `json:"SecuritiesCompanyCode"`
	CompanyName           string `json:"CompanyName"`
	Average               string `json:"Average"`
	Date                  string `json:"Date"`
}

func (s *TPExMainboardSource) Lookup(ctx context.Context, code string) (*Quote, error) {
	row, err := scanFeed(ctx, s.fetcher, s.url, func(r tpexMainboardRow) bool {
		return r.SecuritiesCompanyCode == code
	})
	if err != nil {
		return nil, eris.Wrapf(err, "marketcap: tpex mainboard lookup %s", code)
	}
	if row == nil {
		return nil, ErrNotFound
	}

	price, err := parsePositivePrice(row.Average)
	if err != nil {
		return nil, eris.Wrapf(err, "marketcap: tpex mainboard price for %s", code)
	}
	date, err := twcal.ParseMinguoDate(row.Date)
	if err != nil {
		return nil, eris.Wrapf(err, "marketcap: tpex mainboard date for %s", code)
	}

	return &Quote{Price: price, Date: date, Source: s.Name()}, nil
}

// TPExEmergingSource reads the TPEx emerging-board latest statistics feed.
// Prices are in PreviousAveragePrice; dates are Gregorian, unlike the other
// two feeds.
type TPExEmergingSource struct {
	fetcher fetcher.Fetcher
	url     string
}

// NewTPExEmergingSource creates the TPEx emerging-board price source.
func NewTPExEmergingSource(f fetcher.Fetcher, url string) *TPExEmergingSource {
	return &TPExEmergingSource{fetcher: f, url: url}
}

func (s *TPExEmergingSource) Name() string { return "tpex_emerging" }

type tpexEmergingRow struct {
	SecuritiesCompanyCode string `json:"SecuritiesCompanyCode"`
	CompanyName           string `json:"CompanyName"`
	PreviousAveragePrice  string `json:"PreviousAveragePrice"`
	Date                  string `json:"Date"`
}

func (s *TPExEmergingSource) Lookup(ctx context.Context, code string) (*Quote, error) {
	row, err := scanFeed(ctx, s.fetcher, s.url, func(r tpexEmergingRow) bool {
		return r.SecuritiesCompanyCode == code
	})
	if err != nil {
		return nil, eris.Wrapf(err, "marketcap: tpex emerging lookup %s", code)
	}
	if row == nil {
		return nil, ErrNotFound
	}

	price, err := parsePositivePrice(row.PreviousAveragePrice)
	if err != nil {
		return nil, eris.Wrapf(err, "marketcap: tpex emerging price for %s", code)
	}
	date, err := twcal.ParseGregorianDate(row.Date)
	if err != nil {
		return nil, eris.Wrapf(err, "marketcap: tpex emerging date for %s", code)
	}

	return &Quote{Price: price, Date: date, Source: s.Name()}, nil
}
