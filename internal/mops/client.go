// Package mops talks to the MOPS (Market Observation Post System) endpoints
// for monthly revenue and issued-share data, and classifies their responses.
// MOPS is unofficial and hostile: it answers over-eager clients with an
// anti-bot HTML interstitial instead of an error status.
package mops

import (
	"bytes"
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/twfin/twfin/internal/fetcher"
	"github.com/twfin/twfin/internal/model"
	"github.com/twfin/twfin/internal/twcal"
)

// Config holds the MOPS endpoint URLs.
type Config struct {
	RevenueURL string `yaml:"revenue_url" mapstructure:"revenue_url"`
	SharesURL  string `yaml:"shares_url" mapstructure:"shares_url"`
}

// Client fetches revenue and issued-share data from MOPS.
type Client struct {
	fetcher fetcher.Fetcher
	cfg     Config
}

// NewClient creates a MOPS client over the given fetcher.
func NewClient(f fetcher.Fetcher, cfg Config) *Client {
	return &Client{fetcher: f, cfg: cfg}
}

type revenueRequest struct {
	CompanyID           string `json:"companyId"`
	DataType            string `json:"dataType"`
	Month               string `json:"month"`
	Year                string `json:"year"`
	SubsidiaryCompanyID string `json:"subsidiaryCompanyId"`
}

// MonthlyRevenue fetches and parses one company's revenue for one period.
// Returns (nil, nil) when the period has no filed data yet. The request
// carries the year in the upstream's Minguo convention.
func (c *Client) MonthlyRevenue(ctx context.Context, code string, p twcal.Period) (*model.RevenueRecord, error) {
	payload := revenueRequest{
		CompanyID: code,
		DataType:  "2",
		Month:     strconv.Itoa(p.Month),
		Year:      strconv.Itoa(twcal.ToMinguo(p.Year)),
	}

	body, err := c.fetcher.PostJSON(ctx, c.cfg.RevenueURL, payload)
	if err != nil {
		return nil, eris.Wrapf(err, "mops: fetch revenue %s %s", code, p)
	}

	return ParseRevenue(body, code, p)
}

type sharesRequest struct {
	CompanyID string `json:"companyId"`
}

type sharesEnvelope struct {
	Result *struct {
		CommonStockAmount struct {
			Value string `json:"value"`
		} `json:"commonStockAmount"`
	} `json:"result"`
}

// shareCountPattern extracts the leading grouped digits before the 股 (share)
// unit marker, e.g. "25,930,380,458股" from the t05st03 summary field.
var shareCountPattern = regexp.MustCompile(`([\d,]+)股`)

// IssuedShares fetches the company's issued common-share count.
func (c *Client) IssuedShares(ctx context.Context, code string) (int64, error) {
	body, err := c.fetcher.PostJSON(ctx, c.cfg.SharesURL, sharesRequest{CompanyID: code})
	if err != nil {
		return 0, eris.Wrapf(err, "mops: fetch issued shares %s", code)
	}

	if be := classifyBlocked(body); be != nil {
		return 0, be
	}

	env, err := fetcher.DecodeJSONObject[sharesEnvelope](bytes.NewReader(body))
	if err != nil {
		return 0, eris.Wrapf(err, "mops: decode shares response for %s", code)
	}
	if env.Result == nil {
		return 0, eris.Errorf("mops: no share data for %s", code)
	}

	match := shareCountPattern.FindStringSubmatch(env.Result.CommonStockAmount.Value)
	if match == nil {
		return 0, eris.Errorf("mops: unparseable share count %q for %s", env.Result.CommonStockAmount.Value, code)
	}

	shares, err := strconv.ParseInt(strings.ReplaceAll(match[1], ",", ""), 10, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "mops: parse share count for %s", code)
	}
	return shares, nil
}
