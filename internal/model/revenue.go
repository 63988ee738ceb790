package model

// RevenueSource records where a resolved revenue record came from.
type RevenueSource string

const (
	SourceCache    RevenueSource = "cache"
	SourceUpstream RevenueSource = "upstream"
)

// RevenueRecord is one company's reported revenue for one monthly period.
// Revenue and YTDRevenue are in NTD millions. YoYPercent is nil when no
// positive prior-year baseline exists; it is never coerced to zero.
type RevenueRecord struct {
	CompanyCode string   `json:"company_code"`
	Year        int      `json:"year"`
	Month       int      `json:"month"`
	Revenue     float64  `json:"revenue"`
	YoYPercent  *float64 `json:"yoy_percent,omitempty"`
	YTDRevenue  float64  `json:"ytd_revenue"`

	// Source tags how this record was resolved. Not persisted.
	Source RevenueSource `json:"source,omitempty"`
}
