package model

import "time"

// Well-known source IDs in descending reliability order. Fusion uses this
// order to break ties between categorical values with equal vote weight.
const (
	SourceOfficialSite    = "official_site"
	SourceRegistry        = "registry"
	SourceNetworkVerified = "network_verified"
	SourceAggregator      = "aggregator"
	SourceSearchSnippet   = "search_snippet"
)

// SourceRank returns the static tie-break rank for a source ID.
// Lower rank means a more authoritative source. Unknown sources rank last.
func SourceRank(sourceID string) int {
	switch sourceID {
	case SourceOfficialSite:
		return 0
	case SourceRegistry:
		return 1
	case SourceNetworkVerified:
		return 2
	case SourceAggregator:
		return 3
	case SourceSearchSnippet:
		return 4
	default:
		return 5
	}
}

// Well-known field names produced by source adapters and consumed by the
// gate pipeline and scoring engine.
const (
	FieldEmployeeCount      = "employee_count"
	FieldAnnualRevenue      = "annual_revenue"
	FieldFoundedYear        = "founded_year"
	FieldCountry            = "country"
	FieldIndustry           = "industry"
	FieldBusinessType       = "business_type"
	FieldDescription        = "description"
	FieldGovernmentCustomer = "government_customer"
	FieldAnnualPrice        = "annual_price_usd"
	FieldFundingRaised      = "funding_raised_usd"
	FieldLastFundingDate    = "last_funding_date"
	FieldLastSaleDate       = "last_sale_date"
)

// CompanySignal is a single raw observation of one company attribute from
// one source. Signals are immutable; a field may carry many of them.
type CompanySignal struct {
	SourceID          string    `json:"source_id"`
	FieldName         string    `json:"field_name"`
	Value             any       `json:"value"`
	ReliabilityWeight float64   `json:"reliability_weight"` // static source prior, 0-1
	ObservedAt        time.Time `json:"observed_at"`
}
