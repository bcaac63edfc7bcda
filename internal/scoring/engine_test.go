package scoring

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/acquisition-engine/internal/config"
	"github.com/sells-group/acquisition-engine/internal/judge"
	"github.com/sells-group/acquisition-engine/internal/model"
	"github.com/sells-group/acquisition-engine/internal/resilience"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var strongEvidence = strings.Repeat("industry-specific workflow evidence. ", 10)

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		DimensionWeights: map[string]float64{
			"vms_focus":         0.20,
			"revenue_model":     0.15,
			"suite_vs_point":    0.10,
			"customer_quality":  0.15,
			"pricing_levels":    0.15,
			"funding_source":    0.10,
			"company_maturity":  0.10,
			"ownership_profile": 0.05,
		},
		QualificationWeights: map[string]float64{
			"q1_horizontal_vs_vertical": 0.25,
			"q2_point_vs_suite":         0.20,
			"q3_mission_critical":       0.25,
			"q4_opm_vs_private":         0.15,
			"q5_arpu_level":             0.15,
		},
		QualityThreshold: 7.0,
		MinQuestionScore: 5.0,
	}
}

func testJudgeConfig() config.JudgeConfig {
	return config.JudgeConfig{
		MaxConcurrent:     3,
		RequestsPerSecond: 100,
		MinEvidenceLen:    200,
		LowConfidence:     0.5,
	}
}

func newTestEngine(j judge.Judge) *Engine {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = 1
	e := NewEngine(j, testScoringConfig(), testJudgeConfig(), retry)
	e.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	return e
}

func field(name string, value any) model.ReconciledField {
	return model.ReconciledField{
		FieldName:  name,
		Value:      value,
		Confidence: 0.9,
		Sources:    []string{model.SourceOfficialSite},
	}
}

// acmeProfile is a strong vertical-SaaS target used across tests.
func acmeProfile() model.ReconciledProfile {
	p := model.NewProfile()
	p.Fields[model.FieldDescription] = field(model.FieldDescription, "Vertical SaaS suite for gym management")
	p.Fields[model.FieldAnnualPrice] = field(model.FieldAnnualPrice, 30_000.0)
	p.Fields[model.FieldGovernmentCustomer] = field(model.FieldGovernmentCustomer, false)
	p.Fields[model.FieldFoundedYear] = field(model.FieldFoundedYear, 2016.0)
	p.Fields[model.FieldEmployeeCount] = field(model.FieldEmployeeCount, 60.0)
	p.Fields[model.FieldFundingRaised] = field(model.FieldFundingRaised, 0.0)
	p.Fields[model.FieldAnnualRevenue] = field(model.FieldAnnualRevenue, 2_500_000.0)
	return p
}

// scriptedJudge returns fixed verdicts per aspect and counts calls.
func scriptedJudge(scores map[string]float64, calls *atomic.Int64) judge.Judge {
	return judge.Func(func(_ context.Context, req judge.Request) (*judge.Judgment, error) {
		if calls != nil {
			calls.Add(1)
		}
		return &judge.Judgment{
			Score:      scores[req.Aspect],
			Confidence: 0.9,
			Evidence:   strongEvidence,
			Reasoning:  "scripted",
		}, nil
	})
}

func TestScoreFullCard(t *testing.T) {
	var calls atomic.Int64
	j := scriptedJudge(map[string]float64{
		"vms_focus":                 5,
		"revenue_model":             4,
		"suite_vs_point":            4,
		"customer_quality":          4,
		"q1_horizontal_vs_vertical": 9,
		"q2_point_vs_suite":         8,
		"q3_mission_critical":       9,
	}, &calls)

	card, err := newTestEngine(j).Score(context.Background(), acmeProfile(), model.QualificationResult{
		Gate1Passed: true, Gate2Passed: true,
	})
	require.NoError(t, err)

	// Q4 and Q5 resolve deterministically, so only 7 judged aspects.
	assert.Equal(t, int64(7), calls.Load())

	assert.Len(t, card.DimensionScores, 8)
	assert.Len(t, card.QualificationScores, 5)

	assert.Equal(t, 9.0, card.DimensionScores[model.DimPricingLevels].Score)
	assert.Equal(t, 10.0, card.DimensionScores[model.DimFundingSource].Score)
	assert.Equal(t, 8.0, card.DimensionScores[model.DimCompanyMaturity].Score)
	assert.Equal(t, 9.0, card.DimensionScores[model.DimOwnershipProfile].Score)
	assert.Equal(t, 9.0, card.QualificationScores[model.Q4OPMVsPrivate].Score)
	assert.Equal(t, 8.0, card.QualificationScores[model.Q5ARPULevel].Score)

	// Normalized weighted sum: 2.0+1.2+0.8+1.2+1.35+1.0+0.889+0.5 = 8.94.
	assert.Equal(t, 8.9, card.WeightedOverall)
	// Q aggregate: 2.25+1.6+2.25+1.35+1.2 = 8.65, rounds half away to 8.7.
	assert.Equal(t, 8.7, card.WeightedQualificationAvg)
	assert.True(t, card.QualityThresholdMet)
	assert.Empty(t, card.Warnings)

	for dim, s := range card.DimensionScores {
		assert.False(t, s.IsEstimated, "dimension %s should not be estimated", dim)
	}
}

func TestScoreShortCircuitedSkipsJudge(t *testing.T) {
	var calls atomic.Int64
	j := scriptedJudge(nil, &calls)

	_, err := newTestEngine(j).Score(context.Background(), acmeProfile(), model.QualificationResult{
		ShortCircuited: true,
	})

	assert.ErrorIs(t, err, ErrNotScorable)
	assert.Zero(t, calls.Load(), "no judgments are bought for short-circuited companies")
}

func TestScoreJudgeFailureDegradesToMidpoint(t *testing.T) {
	j := judge.Func(func(_ context.Context, req judge.Request) (*judge.Judgment, error) {
		if req.Aspect == "vms_focus" {
			return nil, assertErr("model refused")
		}
		return &judge.Judgment{Score: 7, Confidence: 0.8, Evidence: strongEvidence}, nil
	})

	card, err := newTestEngine(j).Score(context.Background(), acmeProfile(), model.QualificationResult{
		Gate1Passed: true, Gate2Passed: true,
	})
	require.NoError(t, err)

	vms := card.DimensionScores[model.DimVMSFocus]
	assert.Equal(t, 3.0, vms.Score, "midpoint of the 1-5 range")
	assert.Zero(t, vms.Confidence)
	assert.True(t, vms.IsEstimated)

	require.NotEmpty(t, card.Warnings)
	assert.Contains(t, card.Warnings[0], "vms_focus: judgment failed")
}

func TestScoreThinEvidenceIsEstimated(t *testing.T) {
	j := judge.Func(func(_ context.Context, req judge.Request) (*judge.Judgment, error) {
		switch req.Aspect {
		case "vms_focus":
			return &judge.Judgment{Score: 5, Confidence: 0.9, Evidence: "thin"}, nil
		case "revenue_model":
			return &judge.Judgment{Score: 4, Confidence: 0.3, Evidence: strongEvidence}, nil
		}
		return &judge.Judgment{Score: 4, Confidence: 0.9, Evidence: strongEvidence}, nil
	})

	card, err := newTestEngine(j).Score(context.Background(), acmeProfile(), model.QualificationResult{
		Gate1Passed: true, Gate2Passed: true,
	})
	require.NoError(t, err)

	assert.True(t, card.DimensionScores[model.DimVMSFocus].IsEstimated, "evidence under 200 bytes")
	assert.Equal(t, 5.0, card.DimensionScores[model.DimVMSFocus].Score, "score still reported")
	assert.True(t, card.DimensionScores[model.DimRevenueModel].IsEstimated, "confidence under 0.5")
	assert.False(t, card.DimensionScores[model.DimSuiteVsPoint].IsEstimated)
}

func TestScoreClampsOutOfRangeVerdicts(t *testing.T) {
	j := judge.Func(func(_ context.Context, req judge.Request) (*judge.Judgment, error) {
		score := 7.0
		switch req.Aspect {
		case "vms_focus":
			score = 42 // above the 1-5 dimension scale
		case "q1_horizontal_vs_vertical":
			score = -2 // below the 1-10 question scale
		}
		return &judge.Judgment{Score: score, Confidence: 0.9, Evidence: strongEvidence}, nil
	})

	card, err := newTestEngine(j).Score(context.Background(), acmeProfile(), model.QualificationResult{
		Gate1Passed: true, Gate2Passed: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 5.0, card.DimensionScores[model.DimVMSFocus].Score, "pinned to the dimension max")
	assert.Equal(t, 1.0, card.QualificationScores[model.Q1HorizontalVsVertical].Score, "pinned to the question min")
	assert.Equal(t, 7.0, card.DimensionScores[model.DimRevenueModel].Score, "in-range verdicts pass through")
}

func TestScoreSparseProfileMarksJudgmentsEstimated(t *testing.T) {
	j := scriptedJudge(map[string]float64{
		"vms_focus": 5, "revenue_model": 4, "suite_vs_point": 4, "customer_quality": 4,
		"q1_horizontal_vs_vertical": 9,
		"q2_point_vs_suite":         8,
		"q3_mission_critical":       9,
		"q4_opm_vs_private":         7,
	}, nil)

	// One short field renders a dossier under the evidence floor; the
	// judge has almost nothing to reason about.
	profile := model.NewProfile()
	profile.Fields[model.FieldDescription] = field(model.FieldDescription, "Gym software")

	card, err := newTestEngine(j).Score(context.Background(), profile, model.QualificationResult{
		Gate1Passed: true, Gate2Passed: true,
	})
	require.NoError(t, err)

	for _, dim := range []model.Dimension{
		model.DimVMSFocus, model.DimRevenueModel, model.DimSuiteVsPoint, model.DimCustomerQuality,
	} {
		s := card.DimensionScores[dim]
		assert.True(t, s.IsEstimated, "dimension %s judged on a thin dossier", dim)
	}
	assert.True(t, card.QualificationScores[model.Q1HorizontalVsVertical].IsEstimated)
	assert.Equal(t, 5.0, card.DimensionScores[model.DimVMSFocus].Score, "score still reported")
}

func TestScoreQualityThresholdNeedsMinQuestion(t *testing.T) {
	// Every question strong except Q3 below the per-question floor.
	j := scriptedJudge(map[string]float64{
		"vms_focus": 5, "revenue_model": 5, "suite_vs_point": 5, "customer_quality": 5,
		"q1_horizontal_vs_vertical": 10,
		"q2_point_vs_suite":         10,
		"q3_mission_critical":       4,
	}, nil)

	card, err := newTestEngine(j).Score(context.Background(), acmeProfile(), model.QualificationResult{
		Gate1Passed: true, Gate2Passed: true,
	})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, card.WeightedQualificationAvg, 7.0)
	assert.False(t, card.QualityThresholdMet, "one weak question fails the gate")
}

func TestScoreQ4JudgedWhenSignalAbsent(t *testing.T) {
	var calls atomic.Int64
	j := scriptedJudge(map[string]float64{"q4_opm_vs_private": 7}, &calls)

	profile := acmeProfile()
	delete(profile.Fields, model.FieldGovernmentCustomer)

	card, err := newTestEngine(j).Score(context.Background(), profile, model.QualificationResult{
		Gate1Passed: true, Gate2Passed: true,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(8), calls.Load(), "Q4 goes to the judge without the signal")
	assert.Equal(t, 7.0, card.QualificationScores[model.Q4OPMVsPrivate].Score)
	// funding_source shares the signal and degrades to its midpoint.
	fs := card.DimensionScores[model.DimFundingSource]
	assert.Equal(t, 7.5, fs.Score)
	assert.True(t, fs.IsEstimated)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
