package scoring

import (
	"fmt"

	"github.com/sells-group/acquisition-engine/internal/model"
)

// Deterministic strategies score dimensions whose inputs are plain profile
// numbers. They never call a provider; absent inputs fall back to the
// range midpoint at zero confidence rather than inventing a value.

// priceBrackets map annual contract value floors to pricing_levels scores.
// Highest floor wins.
var priceBrackets = []struct {
	floor float64
	score float64
}{
	{50_000, 10},
	{25_000, 9},
	{10_000, 8},
	{5_000, 7},
	{2_000, 6},
	{0, 5},
}

func scorePricingLevels(p model.ReconciledProfile) model.DimensionScore {
	price, ok := p.Number(model.FieldAnnualPrice)
	if !ok {
		return estimatedMidpoint(model.DimPricingLevels, "annual pricing unavailable")
	}

	score := priceBrackets[len(priceBrackets)-1].score
	for _, b := range priceBrackets {
		if price >= b.floor {
			score = b.score
			break
		}
	}
	return model.DimensionScore{
		Score:       score,
		Confidence:  p.Confidence(model.FieldAnnualPrice),
		Evidence:    []string{fmt.Sprintf("annual_price_usd: %.0f", price)},
		Explanation: fmt.Sprintf("annual pricing of $%.0f falls in the %.0f bracket", price, score),
	}
}

func scoreFundingSource(p model.ReconciledProfile) model.DimensionScore {
	gov, ok := p.Bool(model.FieldGovernmentCustomer)
	if !ok {
		return estimatedMidpoint(model.DimFundingSource, "government customer exposure unknown")
	}

	score, explanation := 10.0, "no government customer exposure, private-sector revenue"
	if gov {
		score, explanation = 6.0, "government customers present, mixed revenue dependency"
	}
	return model.DimensionScore{
		Score:       score,
		Confidence:  p.Confidence(model.FieldGovernmentCustomer),
		Evidence:    []string{fmt.Sprintf("government_customer: %t", gov)},
		Explanation: explanation,
	}
}

// maturityBuckets pair age and headcount floors, strongest first.
var maturityBuckets = []struct {
	minAge      float64
	minEmployees float64
	score       float64
}{
	{10, 100, 9},
	{5, 50, 8},
	{3, 25, 7},
	{2, 10, 6},
}

func (e *Engine) scoreCompanyMaturity(p model.ReconciledProfile) model.DimensionScore {
	founded, hasFounded := p.Number(model.FieldFoundedYear)
	employees, hasEmployees := p.Number(model.FieldEmployeeCount)
	if !hasFounded || !hasEmployees {
		return estimatedMidpoint(model.DimCompanyMaturity, "age or headcount unavailable")
	}

	age := float64(e.now().Year()) - founded
	score := 5.0
	for _, b := range maturityBuckets {
		if age >= b.minAge && employees >= b.minEmployees {
			score = b.score
			break
		}
	}
	return model.DimensionScore{
		Score:      score,
		Confidence: p.MinConfidence(model.FieldFoundedYear, model.FieldEmployeeCount),
		Evidence: []string{
			fmt.Sprintf("company age: %.0f years", age),
			fmt.Sprintf("employee_count: %.0f", employees),
		},
		Explanation: fmt.Sprintf("%.0f years old with %.0f employees", age, employees),
	}
}

// ownershipBrackets map funding-to-revenue ratio ceilings to scores. A low
// ratio means the business funds itself.
var ownershipBrackets = []struct {
	maxRatio float64
	score    float64
}{
	{0, 9},
	{0.25, 8},
	{1.0, 7},
	{3.0, 6},
}

func scoreOwnershipProfile(p model.ReconciledProfile) model.DimensionScore {
	funding, hasFunding := p.Number(model.FieldFundingRaised)
	revenue, hasRevenue := p.Number(model.FieldAnnualRevenue)
	if !hasFunding || !hasRevenue || revenue <= 0 {
		return estimatedMidpoint(model.DimOwnershipProfile, "funding-to-revenue ratio unavailable")
	}

	ratio := funding / revenue
	score := 5.0
	for _, b := range ownershipBrackets {
		if ratio <= b.maxRatio {
			score = b.score
			break
		}
	}
	return model.DimensionScore{
		Score:      score,
		Confidence: p.MinConfidence(model.FieldFundingRaised, model.FieldAnnualRevenue),
		Evidence: []string{
			fmt.Sprintf("funding_raised_usd: %.0f", funding),
			fmt.Sprintf("annual_revenue: %.0f", revenue),
		},
		Explanation: fmt.Sprintf("funding-to-revenue ratio %.2f", ratio),
	}
}

// scoreARPU maps annual pricing onto the Q5 1-10 question scale using the
// same contract-value brackets as pricing_levels.
func scoreARPU(p model.ReconciledProfile) model.DimensionScore {
	price, ok := p.Number(model.FieldAnnualPrice)
	if !ok {
		return model.DimensionScore{
			Score:       5.0,
			Confidence:  0,
			Explanation: "no pricing evidence, midpoint assumed",
			IsEstimated: true,
		}
	}

	var score float64
	switch {
	case price >= 50_000:
		score = 10
	case price >= 25_000:
		score = 8
	case price >= 10_000:
		score = 6
	case price >= 2_000:
		score = 5
	default:
		score = 3
	}
	return model.DimensionScore{
		Score:       score,
		Confidence:  p.Confidence(model.FieldAnnualPrice),
		Evidence:    []string{fmt.Sprintf("annual_price_usd: %.0f", price)},
		Explanation: fmt.Sprintf("annual revenue per user of $%.0f", price),
	}
}

// estimatedMidpoint returns the range midpoint at zero confidence for a
// dimension whose deterministic inputs are missing.
func estimatedMidpoint(dim model.Dimension, reason string) model.DimensionScore {
	r := model.DimensionRanges[dim]
	return model.DimensionScore{
		Score:       (r.Min + r.Max) / 2,
		Confidence:  0,
		Explanation: reason,
		IsEstimated: true,
	}
}
