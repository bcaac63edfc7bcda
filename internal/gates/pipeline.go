// Package gates implements the two-stage deterministic qualification
// pipeline. Gate 1 covers geography, business model, and solution type;
// gate 2 covers size and maturity thresholds. Gate evaluation never calls
// external providers, so a gate-1 failure avoids all scoring cost.
package gates

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/acquisition-engine/internal/config"
	"github.com/sells-group/acquisition-engine/internal/model"
)

// Skip keys accepted in Options.Skip.
const (
	SkipGate1         = "gate1"
	SkipGate2         = "gate2"
	SkipGeography     = "geography"
	SkipBusinessModel = "business_model"
	SkipSolutionType  = "solution_type"
)

// Options adjusts a single pipeline evaluation.
type Options struct {
	// Skip disables named gates or checks; skipped checks count as passed
	// and contribute no confidence.
	Skip map[string]bool
	// ManualOverride forces gate-2 evaluation even when gate 1 failed.
	// Gate-1 reasons are retained in the result either way.
	ManualOverride bool
	// StrategicFit relaxes the gate-2 revenue floor to the tuck-in floor
	// for strategically interesting targets.
	StrategicFit bool
}

func (o Options) skipped(key string) bool { return o.Skip[key] }

// Pipeline evaluates qualification gates against a reconciled profile.
type Pipeline struct {
	cfg config.GatesConfig
	now func() time.Time
}

// NewPipeline returns a gate pipeline bound to the given thresholds.
func NewPipeline(cfg config.GatesConfig) *Pipeline {
	return &Pipeline{cfg: cfg, now: time.Now}
}

// Evaluate runs gate 1 and, unless short-circuited, gate 2. Reasons are
// appended in check order so the first reason names the first failure.
func (p *Pipeline) Evaluate(profile model.ReconciledProfile, opts Options) model.QualificationResult {
	res := model.QualificationResult{Gate1Passed: true, Gate2Passed: true}
	var consulted []string

	if !opts.skipped(SkipGate1) {
		consulted = append(consulted, p.gate1(profile, opts, &res)...)
	}

	if !res.Gate1Passed && !opts.ManualOverride {
		res.Gate2Passed = false
		res.ShortCircuited = true
		res.Confidence = profile.MinConfidence(consulted...)
		res.RequiresManualReview = res.Confidence < p.cfg.ReviewConfidence
		zap.L().Info("gates: gate 1 failed, short-circuiting",
			zap.Strings("reasons", res.DisqualificationReasons),
			zap.Float64("confidence", res.Confidence),
		)
		return res
	}

	if !opts.skipped(SkipGate2) {
		consulted = append(consulted, p.gate2(profile, opts, &res)...)
	}

	res.Confidence = profile.MinConfidence(consulted...)
	res.RequiresManualReview = res.RequiresManualReview || res.Confidence < p.cfg.ReviewConfidence
	return res
}

// gate1 runs the geography, business-model, and solution-type checks,
// returning the profile fields it consulted.
func (p *Pipeline) gate1(profile model.ReconciledProfile, opts Options, res *model.QualificationResult) []string {
	var consulted []string

	if !opts.skipped(SkipGeography) {
		region, ok, reason := checkGeography(profile)
		res.Region = region
		consulted = append(consulted, model.FieldCountry)
		if !ok {
			res.Gate1Passed = false
			res.DisqualificationReasons = append(res.DisqualificationReasons, reason)
		}
	}

	if !opts.skipped(SkipBusinessModel) {
		modelType, ok, reason := checkBusinessModel(profile)
		res.BusinessModelType = modelType
		consulted = append(consulted, model.FieldDescription)
		if !ok {
			res.Gate1Passed = false
			res.DisqualificationReasons = append(res.DisqualificationReasons, reason)
		}
	}

	if !opts.skipped(SkipSolutionType) {
		if ok, reason := checkSolutionType(profile); !ok {
			res.Gate1Passed = false
			res.DisqualificationReasons = append(res.DisqualificationReasons, reason)
		}
	}

	return consulted
}

// gate2 runs the size and maturity checks. The revenue and headcount
// floors are OR-semantics: meeting either one satisfies the size check.
func (p *Pipeline) gate2(profile model.ReconciledProfile, opts Options, res *model.QualificationResult) []string {
	var consulted []string

	revenueFloor := p.cfg.MinRevenueUSD
	if opts.StrategicFit {
		revenueFloor = p.cfg.TuckInRevenueUSD
	}

	revenue, hasRevenue := profile.Number(model.FieldAnnualRevenue)
	employees, hasEmployees := profile.Number(model.FieldEmployeeCount)
	if hasRevenue {
		consulted = append(consulted, model.FieldAnnualRevenue)
	}
	if hasEmployees {
		consulted = append(consulted, model.FieldEmployeeCount)
	}

	switch {
	case !hasRevenue && !hasEmployees:
		res.Gate2Passed = false
		res.RequiresManualReview = true
		res.DisqualificationReasons = append(res.DisqualificationReasons,
			"insufficient size data: neither revenue nor employee count available")
	case (hasRevenue && revenue >= revenueFloor) || (hasEmployees && employees >= p.cfg.MinEmployees):
		// Size floor met on at least one axis.
	default:
		res.Gate2Passed = false
		res.DisqualificationReasons = append(res.DisqualificationReasons, fmt.Sprintf(
			"below size floor: revenue $%.0f < $%.0f and employees %.0f < %.0f",
			revenue, revenueFloor, employees, p.cfg.MinEmployees))
	}

	if founded, ok := profile.Number(model.FieldFoundedYear); ok {
		consulted = append(consulted, model.FieldFoundedYear)
		age := float64(p.now().Year()) - founded
		if age < p.cfg.MinAgeYears {
			res.Gate2Passed = false
			res.DisqualificationReasons = append(res.DisqualificationReasons, fmt.Sprintf(
				"company too young: %.0f years < %.0f year minimum", age, p.cfg.MinAgeYears))
		}
	}

	window := time.Duration(p.cfg.FundingWindowMonths) * 30 * 24 * time.Hour
	if lastFunding, ok := profile.Time(model.FieldLastFundingDate); ok {
		consulted = append(consulted, model.FieldLastFundingDate)
		if p.now().Sub(lastFunding) < window {
			res.Gate2Passed = false
			res.DisqualificationReasons = append(res.DisqualificationReasons, fmt.Sprintf(
				"raised funding within the last %d months", p.cfg.FundingWindowMonths))
		}
	}

	if lastSale, ok := profile.Time(model.FieldLastSaleDate); ok {
		consulted = append(consulted, model.FieldLastSaleDate)
		if p.now().Sub(lastSale) < window {
			res.Gate2Passed = false
			res.DisqualificationReasons = append(res.DisqualificationReasons, fmt.Sprintf(
				"changed ownership within the last %d months", p.cfg.FundingWindowMonths))
		}
	}

	return consulted
}

// checkGeography classifies the company region. North America qualifies
// for all verticals; the UK qualifies only for sports and fitness.
func checkGeography(profile model.ReconciledProfile) (region string, ok bool, reason string) {
	country, has := profile.Text(model.FieldCountry)
	if !has {
		return "unknown", false, "unable to determine qualifying geographic location"
	}
	location := strings.ToLower(country)

	for _, excluded := range excludedRegions {
		if strings.Contains(location, excluded) {
			return excluded, false, fmt.Sprintf("located in excluded region: %s", excluded)
		}
	}

	for _, c := range northAmericaCountries {
		if matchesCountry(location, c) {
			return "north_america", true, ""
		}
	}

	for _, c := range unitedKingdomCountries {
		if matchesCountry(location, c) {
			if hasSportsFitnessVertical(profile) {
				return "united_kingdom", true, ""
			}
			return "united_kingdom", false,
				"UK companies qualify only in sports/fitness verticals"
		}
	}

	return "unknown", false, "unable to determine qualifying geographic location"
}

// matchesCountry treats short codes as exact matches and longer names as
// substrings, so "us" does not match "australia".
func matchesCountry(location, country string) bool {
	if len(country) <= 3 {
		return location == country
	}
	return strings.Contains(location, country)
}

func hasSportsFitnessVertical(profile model.ReconciledProfile) bool {
	text := combinedText(profile, model.FieldIndustry, model.FieldDescription)
	for _, kw := range sportsFitnessKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// checkBusinessModel requires at least two software indicators, at most
// two service red flags, and more B2B evidence than B2C evidence.
func checkBusinessModel(profile model.ReconciledProfile) (modelType string, ok bool, reason string) {
	text := combinedText(profile, model.FieldDescription, model.FieldIndustry, model.FieldBusinessType)
	if text == "" {
		return "unknown", false, "no business description available"
	}

	software := countMatches(text, softwareIndicators)
	service := countMatches(text, serviceRedFlags)
	b2b := countMatches(text, b2bIndicators)
	b2c := countMatches(text, b2cRedFlags)

	switch {
	case software >= 3 && service <= 1:
		modelType = "pure_software"
	case software >= 2 && service <= 3:
		modelType = "software_with_services"
	case service > 3:
		modelType = "service_heavy"
	default:
		modelType = "unknown"
	}

	switch {
	case software < 2:
		return modelType, false, fmt.Sprintf("insufficient software evidence: %d indicators, need 2", software)
	case service > 2:
		return modelType, false, fmt.Sprintf("service-heavy business: %d service red flags", service)
	case b2b <= b2c:
		return modelType, false, fmt.Sprintf("B2C-leaning business: %d B2B vs %d B2C indicators", b2b, b2c)
	}
	return modelType, true, ""
}

func checkSolutionType(profile model.ReconciledProfile) (ok bool, reason string) {
	text := combinedText(profile, model.FieldDescription, model.FieldBusinessType)
	for _, excl := range solutionExclusions {
		if strings.Contains(text, excl) {
			return false, fmt.Sprintf("excluded solution type: %s", excl)
		}
	}
	return true, ""
}

func combinedText(profile model.ReconciledProfile, fields ...string) string {
	var parts []string
	for _, f := range fields {
		if v, ok := profile.Text(f); ok {
			parts = append(parts, strings.ToLower(v))
		}
	}
	return strings.Join(parts, " ")
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
