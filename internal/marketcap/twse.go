package marketcap

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/twfin/twfin/internal/fetcher"
	"github.com/twfin/twfin/internal/twcal"
)

// TWSESource reads the TWSE open-API daily quote feed. The feed is a
// full-market snapshot, not queryable per company, so lookups scan it
// linearly. Prices are in ClosingPrice; dates are Minguo.
type TWSESource struct {
	fetcher fetcher.Fetcher
	url     string
}

// NewTWSESource creates the TWSE listed-market price source.
func NewTWSESource(f fetcher.Fetcher, url string) *TWSESource {
	return &TWSESource{fetcher: f, url: url}
}

func (s *TWSESource) Name() string { return "twse" }

type twseRow struct {
	Code         string `json:"Code"`
	Name         string `json:"Name"`
	ClosingPrice string `json:"ClosingPrice"`
	Date         string `json:"Date"`
}

func (s *TWSESource) Lookup(ctx context.Context, code string) (*Quote, error) {
	row, err := scanFeed(ctx, s.fetcher, s.url, func(r twseRow) bool { return r.Code == code })
	if err != nil {
		return nil, eris.Wrapf(err, "marketcap: twse lookup %s", code)
	}
	if row == nil {
		return nil, ErrNotFound
	}

	price, err := parsePositivePrice(row.ClosingPrice)
	if err != nil {
		return nil, eris.Wrapf(err, "marketcap: twse price for %s", code)
	}
	date, err := twcal.ParseMinguoDate(row.Date)
	if err != nil {
		return nil, eris.Wrapf(err, "marketcap: twse date for %s", code)
	}

	return &Quote{Price: price, Date: date, Source: s.Name()}, nil
}

// scanFeed streams a full-market JSON feed and returns the first row
// matching the predicate, or nil if the feed is exhausted without a match.
func scanFeed[T any](ctx context.Context, f fetcher.Fetcher, url string, match func(T) bool) (*T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	body, err := f.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	rows, errs := fetcher.DecodeJSONArray[T](ctx, body)
	for row := range rows {
		if match(row) {
			return &row, nil
		}
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	return nil, nil
}

// parsePositivePrice parses a feed price string (possibly with thousands
// separators) and rejects non-positive or placeholder values such as "--".
func parsePositivePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil {
		return 0, eris.Errorf("malformed price %q", s)
	}
	if v <= 0 {
		return 0, eris.Errorf("non-positive price %q", s)
	}
	return v, nil
}
