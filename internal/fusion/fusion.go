// Package fusion reconciles raw multi-source company signals into a single
// profile with provenance and calibrated confidence.
package fusion

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/acquisition-engine/internal/model"
)

// conflictConfidenceCap bounds confidence for any field whose sources
// disagree beyond tolerance, regardless of how many sources agree.
const conflictConfidenceCap = 0.6

// reviewConfidence is the aggregate profile confidence below which the
// profile is flagged for manual review.
const reviewConfidence = 0.7

// defaultTolerance is the max/min ratio allowed between surviving numeric
// values before the field is marked conflicted.
const defaultTolerance = 2.0

// fieldTolerances holds per-field numeric disagreement tolerances.
var fieldTolerances = map[string]float64{
	model.FieldEmployeeCount: 2.0,
	model.FieldAnnualRevenue: 1.5,
}

// Engine reconciles signals. It is stateless and safe for concurrent use;
// each call owns its output profile.
type Engine struct {
	tolerances map[string]float64
}

// NewEngine returns a fusion engine with the standard tolerance table.
func NewEngine() *Engine {
	return &Engine{tolerances: fieldTolerances}
}

// Tolerance returns the numeric disagreement tolerance for a field.
func (e *Engine) Tolerance(field string) float64 {
	if t, ok := e.tolerances[field]; ok {
		return t
	}
	return defaultTolerance
}

// Reconcile groups signals by field and resolves each group into one
// ReconciledField. Fields with zero signals are absent from the result;
// absence is explicit and never defaulted. The output is deterministic for
// identical input sets.
func (e *Engine) Reconcile(signals []model.CompanySignal) model.ReconciledProfile {
	profile := model.NewProfile()

	byField := make(map[string][]model.CompanySignal)
	for _, s := range signals {
		if s.FieldName == "" {
			continue
		}
		byField[s.FieldName] = append(byField[s.FieldName], s)
	}

	names := make([]string, 0, len(byField))
	for n := range byField {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		group := byField[name]
		// Stable order: source rank, then source id, for deterministic
		// resolution regardless of input order.
		sort.SliceStable(group, func(i, j int) bool {
			ri, rj := model.SourceRank(group[i].SourceID), model.SourceRank(group[j].SourceID)
			if ri != rj {
				return ri < rj
			}
			return group[i].SourceID < group[j].SourceID
		})

		if nums, ok := numericValues(group); ok {
			profile.Fields[name] = e.resolveNumeric(name, group, nums)
		} else {
			profile.Fields[name] = e.resolveCategorical(name, group)
		}
	}

	if profile.HasConflicts() {
		zap.L().Info("fusion: profile reconciled with conflicts",
			zap.Int("fields", len(profile.Fields)),
			zap.Float64("overall_confidence", profile.OverallConfidence()),
		)
	}

	return profile
}

// RequiresManualReview reports whether the aggregate profile confidence is
// below the review threshold while any field carries a conflict.
func RequiresManualReview(p model.ReconciledProfile) bool {
	return p.HasConflicts() && p.OverallConfidence() < reviewConfidence
}

// resolveNumeric picks the reliability-weighted median and flags a conflict
// when the max/min ratio exceeds the field's tolerance.
func (e *Engine) resolveNumeric(name string, group []model.CompanySignal, nums []float64) model.ReconciledField {
	type weighted struct {
		value  float64
		weight float64
	}
	items := make([]weighted, len(group))
	var total float64
	for i, s := range group {
		items[i] = weighted{value: nums[i], weight: clampWeight(s.ReliabilityWeight)}
		total += items[i].weight
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].value < items[j].value })

	// Weighted median: first value whose cumulative weight reaches half.
	resolved := items[len(items)-1].value
	var cum float64
	for _, it := range items {
		cum += it.weight
		if cum >= total/2 {
			resolved = it.value
			break
		}
	}

	field := model.ReconciledField{
		FieldName:  name,
		Value:      resolved,
		Sources:    sourceIDs(group),
		Confidence: capConfidence(total),
	}

	minV, maxV := items[0].value, items[len(items)-1].value
	if conflicted, ratio := numericConflict(minV, maxV, e.Tolerance(name)); conflicted {
		values := make([]any, 0, len(items))
		for _, it := range items {
			values = append(values, it.value)
		}
		field.Conflict = &model.Conflict{Values: values, Variance: ratio}
		if field.Confidence > conflictConfidenceCap {
			field.Confidence = conflictConfidenceCap
		}
	}

	return field
}

// resolveCategorical picks the weighted plurality value. Ties are broken by
// the static source-reliability order, then lexicographically.
func (e *Engine) resolveCategorical(name string, group []model.CompanySignal) model.ReconciledField {
	type bucket struct {
		key      string
		value    any
		weight   float64
		bestRank int
	}
	buckets := make(map[string]*bucket)
	var total float64
	for _, s := range group {
		key := fmt.Sprintf("%v", s.Value)
		w := clampWeight(s.ReliabilityWeight)
		total += w
		b, ok := buckets[key]
		if !ok {
			b = &bucket{key: key, value: s.Value, bestRank: model.SourceRank(s.SourceID)}
			buckets[key] = b
		}
		b.weight += w
		if r := model.SourceRank(s.SourceID); r < b.bestRank {
			b.bestRank = r
		}
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].weight != ordered[j].weight {
			return ordered[i].weight > ordered[j].weight
		}
		if ordered[i].bestRank != ordered[j].bestRank {
			return ordered[i].bestRank < ordered[j].bestRank
		}
		return ordered[i].key < ordered[j].key
	})

	winner := ordered[0]
	field := model.ReconciledField{
		FieldName:  name,
		Value:      winner.value,
		Sources:    sourceIDs(group),
		Confidence: capConfidence(total),
	}

	// Disagreement between categorical sources is a conflict when the
	// winner does not hold a strict weight majority.
	if len(ordered) > 1 && winner.weight <= total-winner.weight {
		values := make([]any, 0, len(ordered))
		for _, b := range ordered {
			values = append(values, b.value)
		}
		field.Conflict = &model.Conflict{Values: values}
		if field.Confidence > conflictConfidenceCap {
			field.Confidence = conflictConfidenceCap
		}
	}

	return field
}

func numericConflict(minV, maxV, tolerance float64) (bool, float64) {
	if minV == maxV {
		return false, 1
	}
	if minV <= 0 {
		// Sign disagreement or zero floor: cannot form a ratio, treat any
		// spread as conflicting.
		return true, 0
	}
	ratio := maxV / minV
	return ratio > tolerance, ratio
}

func numericValues(group []model.CompanySignal) ([]float64, bool) {
	nums := make([]float64, len(group))
	for i, s := range group {
		switch v := s.Value.(type) {
		case float64:
			nums[i] = v
		case float32:
			nums[i] = float64(v)
		case int:
			nums[i] = float64(v)
		case int64:
			nums[i] = float64(v)
		default:
			return nil, false
		}
	}
	return nums, true
}

func sourceIDs(group []model.CompanySignal) []string {
	seen := make(map[string]bool, len(group))
	ids := make([]string, 0, len(group))
	for _, s := range group {
		if !seen[s.SourceID] {
			seen[s.SourceID] = true
			ids = append(ids, s.SourceID)
		}
	}
	sort.Strings(ids)
	return ids
}

func clampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

func capConfidence(totalWeight float64) float64 {
	if totalWeight > 1 {
		return 1
	}
	return totalWeight
}
