package mops

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/twfin/twfin/internal/model"
	"github.com/twfin/twfin/internal/twcal"
)

// Labels used in the MOPS revenue response's label/value pair list. The
// payload carries them verbatim; everything else in the list is ignored.
const (
	labelCurrentMonth = "本月"   // current period revenue
	labelPriorYear    = "去年同期" // same period last year
	labelYearToDate   = "本年累計" // cumulative year to date
)

// Raw MOPS figures are NTD thousands; stored records are NTD millions.
const thousandsToMillions = 1000

// BlockedError signals that the upstream answered with markup instead of
// JSON — the request was intercepted by the anti-automation layer, not
// answered. Retryable later; never cached.
type BlockedError struct {
	Sample string
}

func (e *BlockedError) Error() string {
	return "mops: request blocked by upstream firewall (received markup instead of JSON)"
}

// IsBlocked reports whether err (or its chain) is a BlockedError.
func IsBlocked(err error) bool {
	var be *BlockedError
	return errors.As(err, &be)
}

// blockedSampleLimit caps how much of an interstitial body is kept for
// diagnostics.
const blockedSampleLimit = 200

// classifyBlocked inspects a response body for the anti-bot interstitial:
// markup where JSON was expected. The check runs before any JSON decode so a
// parse error never masks the real cause. Returns nil for bodies that look
// like structured data.
func classifyBlocked(body []byte) *BlockedError {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return nil
	}
	sample := string(trimmed)
	if len(sample) > blockedSampleLimit {
		sample = sample[:blockedSampleLimit]
	}
	return &BlockedError{Sample: sample}
}

type revenueEnvelope struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Result  *revenueResult `json:"result"`
}

type revenueResult struct {
	CompanyAbbreviation string     `json:"companyAbbreviation"`
	Data                [][]string `json:"data"`
}

// ParseRevenue classifies and parses a raw MOPS revenue response body for
// one company and period. Outcomes:
//   - blocked interstitial: (*BlockedError) — detected by prefix inspection
//     before any JSON decode, since parsing markup as JSON would throw an
//     unrelated error that masks the real cause
//   - no data for the period (unfiled month, non-success envelope code, or
//     missing current-month entry): (nil, nil)
//   - valid: a normalized RevenueRecord
func ParseRevenue(body []byte, code string, p twcal.Period) (*model.RevenueRecord, error) {
	if be := classifyBlocked(body); be != nil {
		return nil, be
	}

	var env revenueEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrapf(err, "mops: decode revenue response for %s %s", code, p)
	}

	// MOPS reports not-yet-filed periods through the envelope code, not an
	// HTTP error.
	if env.Code != 200 || env.Result == nil || len(env.Result.Data) == 0 {
		return nil, nil
	}

	// Build the label table once; the upstream list is small but queried by
	// several labels.
	table := make(map[string]string, len(env.Result.Data))
	for _, pair := range env.Result.Data {
		if len(pair) >= 2 {
			table[pair[0]] = pair[1]
		}
	}

	currentStr, ok := table[labelCurrentMonth]
	if !ok || currentStr == "" {
		return nil, nil
	}
	current, err := parseGroupedNumber(currentStr)
	if err != nil {
		return nil, eris.Wrapf(err, "mops: parse current revenue for %s %s", code, p)
	}

	rec := &model.RevenueRecord{
		CompanyCode: code,
		Year:        p.Year,
		Month:       p.Month,
		Revenue:     current / thousandsToMillions,
	}

	if ytdStr, ok := table[labelYearToDate]; ok && ytdStr != "" {
		ytd, err := parseGroupedNumber(ytdStr)
		if err != nil {
			return nil, eris.Wrapf(err, "mops: parse ytd revenue for %s %s", code, p)
		}
		rec.YTDRevenue = ytd / thousandsToMillions
	}

	// YoY percent is defined only for a positive prior-year baseline; a
	// zero, negative or missing baseline leaves it nil, never zero.
	if priorStr, ok := table[labelPriorYear]; ok && priorStr != "" {
		if prior, err := parseGroupedNumber(priorStr); err == nil && prior > 0 {
			yoy := (current - prior) / prior * 100
			rec.YoYPercent = &yoy
		}
	}

	return rec, nil
}

// parseGroupedNumber parses a numeric string with thousands separators.
func parseGroupedNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("malformed number %q: %w", s, err)
	}
	return v, nil
}
