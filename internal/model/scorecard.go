package model

// Dimension identifies one of the eight acquisition scoring dimensions.
// The set is closed; scoring dispatches on it rather than on free-form
// strings.
type Dimension string

const (
	DimVMSFocus         Dimension = "vms_focus"
	DimRevenueModel     Dimension = "revenue_model"
	DimSuiteVsPoint     Dimension = "suite_vs_point"
	DimCustomerQuality  Dimension = "customer_quality"
	DimPricingLevels    Dimension = "pricing_levels"
	DimFundingSource    Dimension = "funding_source"
	DimCompanyMaturity  Dimension = "company_maturity"
	DimOwnershipProfile Dimension = "ownership_profile"
)

// Dimensions lists all scoring dimensions in canonical order.
var Dimensions = []Dimension{
	DimVMSFocus,
	DimRevenueModel,
	DimSuiteVsPoint,
	DimCustomerQuality,
	DimPricingLevels,
	DimFundingSource,
	DimCompanyMaturity,
	DimOwnershipProfile,
}

// Question identifies one of the five qualification questions.
type Question string

const (
	Q1HorizontalVsVertical Question = "q1_horizontal_vs_vertical"
	Q2PointVsSuite         Question = "q2_point_vs_suite"
	Q3MissionCritical      Question = "q3_mission_critical"
	Q4OPMVsPrivate         Question = "q4_opm_vs_private"
	Q5ARPULevel            Question = "q5_arpu_level"
)

// Questions lists Q1-Q5 in canonical order.
var Questions = []Question{
	Q1HorizontalVsVertical,
	Q2PointVsSuite,
	Q3MissionCritical,
	Q4OPMVsPrivate,
	Q5ARPULevel,
}

// ScoreRange documents the numeric range a dimension score is clamped to.
type ScoreRange struct {
	Min float64
	Max float64
}

// DimensionRanges holds the documented per-dimension score ranges.
var DimensionRanges = map[Dimension]ScoreRange{
	DimVMSFocus:         {1, 5},
	DimRevenueModel:     {1, 5},
	DimSuiteVsPoint:     {1, 5},
	DimCustomerQuality:  {1, 5},
	DimPricingLevels:    {5, 10},
	DimFundingSource:    {5, 10},
	DimCompanyMaturity:  {5, 9},
	DimOwnershipProfile: {5, 9},
}

// DimensionScore is one scored dimension or qualification question.
type DimensionScore struct {
	Score       float64  `json:"score"`
	Confidence  float64  `json:"confidence"`
	Evidence    []string `json:"evidence,omitempty"`
	Explanation string   `json:"explanation,omitempty"`

	// IsEstimated marks scores produced from thin evidence or a
	// low-confidence judgment. The score is still reported, never omitted.
	IsEstimated bool `json:"is_estimated"`
}

// ScoreCard aggregates the 8 dimension scores and Q1-Q5 into weighted
// totals. Created fresh per analysis run and discarded after snapshot
// persistence.
type ScoreCard struct {
	DimensionScores     map[Dimension]DimensionScore `json:"dimension_scores"`
	QualificationScores map[Question]DimensionScore  `json:"qualification_scores"`

	WeightedOverall          float64 `json:"weighted_overall"`           // 0-10, 1 decimal
	WeightedQualificationAvg float64 `json:"weighted_qualification_avg"` // 0-10, 1 decimal
	QualityThresholdMet      bool    `json:"quality_threshold_met"`

	Warnings []string `json:"warnings,omitempty"`
}
