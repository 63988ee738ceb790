// Package twcal handles the Minguo (ROC) calendar convention used by Taiwan's
// regulatory data sources and the monthly period arithmetic built on it.
package twcal

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// minguoOffset is the fixed difference between Gregorian and ROC years.
const minguoOffset = 1911

// ToMinguo converts a Gregorian year to a Minguo year.
func ToMinguo(year int) int {
	return year - minguoOffset
}

// FromMinguo converts a Minguo year to a Gregorian year.
func FromMinguo(year int) int {
	return year + minguoOffset
}

// Period identifies one monthly reporting interval.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// String renders the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Before reports whether p is chronologically before q.
func (p Period) Before(q Period) bool {
	return p.Year < q.Year || (p.Year == q.Year && p.Month < q.Month)
}

// Next returns the following month, rolling the year over after December.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// ParsePeriod parses a YYYY-MM string.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, eris.Wrapf(err, "twcal: parse period %q", s)
	}
	return Period{Year: t.Year(), Month: int(t.Month())}, nil
}

// PeriodsSince returns the chronological sequence of periods from start
// through the most recently fully-elapsed calendar month (the month strictly
// before now's month). A start past that month yields an empty sequence.
func PeriodsSince(start Period, now time.Time) []Period {
	lastElapsed := Period{Year: now.Year(), Month: int(now.Month())}
	if lastElapsed.Month == 1 {
		lastElapsed = Period{Year: lastElapsed.Year - 1, Month: 12}
	} else {
		lastElapsed.Month--
	}

	var periods []Period
	for p := start; !lastElapsed.Before(p); p = p.Next() {
		periods = append(periods, p)
	}
	return periods
}

// ParseMinguoDate parses a compact ROC date like "1130829" into a UTC
// calendar day. TWSE and TPEx mainboard feeds report dates in this form.
func ParseMinguoDate(s string) (time.Time, error) {
	if len(s) != 7 {
		return time.Time{}, eris.Errorf("twcal: malformed minguo date %q", s)
	}
	year, err := strconv.Atoi(s[:3])
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "twcal: parse minguo date %q", s)
	}
	t, err := time.Parse("20060102", fmt.Sprintf("%d%s", FromMinguo(year), s[3:]))
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "twcal: parse minguo date %q", s)
	}
	return t.UTC(), nil
}

// ParseGregorianDate parses a compact Gregorian date like "20240829" into a
// UTC calendar day. The TPEx emerging-board feed reports dates in this form.
func ParseGregorianDate(s string) (time.Time, error) {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "twcal: parse gregorian date %q", s)
	}
	return t.UTC(), nil
}
