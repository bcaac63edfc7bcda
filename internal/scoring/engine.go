// Package scoring computes the eight-dimension acquisition scorecard and
// the Q1-Q5 qualification scores for a reconciled company profile.
// Dimensions with hard numeric inputs are scored deterministically;
// judgment-call dimensions go through the Judge under bounded concurrency.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/acquisition-engine/internal/config"
	"github.com/sells-group/acquisition-engine/internal/judge"
	"github.com/sells-group/acquisition-engine/internal/model"
	"github.com/sells-group/acquisition-engine/internal/resilience"
)

// ErrNotScorable is returned when scoring is requested for a company whose
// gate evaluation short-circuited; the analysis layer should never pay for
// judgments it already knows are moot.
var ErrNotScorable = eris.New("scoring: qualification short-circuited, scoring skipped")

// questionRange is the shared Q1-Q5 score scale.
var questionRange = model.ScoreRange{Min: 1, Max: 10}

// Engine scores companies. Weight tables are copied at construction and
// never reread, so a running analysis is immune to config reloads.
type Engine struct {
	judge    judge.Judge
	weights  map[string]float64
	qWeights map[string]float64

	qualityThreshold float64
	minQuestionScore float64
	lowConfidence    float64
	minEvidenceLen   int

	retry resilience.RetryConfig
	sem   *semaphore.Weighted
	now   func() time.Time
}

// NewEngine builds a scoring engine. Weight tables must already be
// validated by config.Load.
func NewEngine(j judge.Judge, scoring config.ScoringConfig, judgeCfg config.JudgeConfig, retry resilience.RetryConfig) *Engine {
	weights := make(map[string]float64, len(scoring.DimensionWeights))
	for k, v := range scoring.DimensionWeights {
		weights[k] = v
	}
	qWeights := make(map[string]float64, len(scoring.QualificationWeights))
	for k, v := range scoring.QualificationWeights {
		qWeights[k] = v
	}

	return &Engine{
		judge:            j,
		weights:          weights,
		qWeights:         qWeights,
		qualityThreshold: scoring.QualityThreshold,
		minQuestionScore: scoring.MinQuestionScore,
		lowConfidence:    judgeCfg.LowConfidence,
		minEvidenceLen:   judgeCfg.MinEvidenceLen,
		retry:            retry,
		sem:              semaphore.NewWeighted(int64(judgeCfg.MaxConcurrent)),
		now:              time.Now,
	}
}

// Score produces the full scorecard. Judged aspects run concurrently under
// the engine's semaphore; a failed judgment degrades to the range midpoint
// at zero confidence instead of failing the whole card.
func (e *Engine) Score(ctx context.Context, profile model.ReconciledProfile, qual model.QualificationResult) (*model.ScoreCard, error) {
	if qual.ShortCircuited {
		return nil, ErrNotScorable
	}

	card := &model.ScoreCard{
		DimensionScores:     make(map[model.Dimension]model.DimensionScore, len(model.Dimensions)),
		QualificationScores: make(map[model.Question]model.DimensionScore, len(model.Questions)),
	}
	warnings := make(map[string]string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	// A sparse profile renders into a thin dossier; every judgment made on
	// top of it is an estimate no matter how articulate the verdict reads.
	thinDossier := len(judge.RenderDossier(profile)) < e.minEvidenceLen

	judgeAspect := func(aspect, rubric string, r model.ScoreRange, assign func(model.DimensionScore)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			score, warning := e.judgeOne(ctx, aspect, rubric, r, profile, thinDossier)
			mu.Lock()
			defer mu.Unlock()
			assign(score)
			if warning != "" {
				warnings[aspect] = warning
			}
		}()
	}

	for _, dim := range model.Dimensions {
		dim := dim
		rubric, judged := dimensionRubrics[dim]
		if !judged {
			continue
		}
		judgeAspect(string(dim), rubric, model.DimensionRanges[dim], func(s model.DimensionScore) {
			card.DimensionScores[dim] = s
		})
	}

	for _, q := range []model.Question{model.Q1HorizontalVsVertical, model.Q2PointVsSuite, model.Q3MissionCritical} {
		q := q
		judgeAspect(string(q), questionRubrics[q], questionRange, func(s model.DimensionScore) {
			card.QualificationScores[q] = s
		})
	}

	// Q4 is deterministic when the government-customer signal exists and a
	// judgment call otherwise.
	if s, ok := scoreOPMDeterministic(profile); ok {
		mu.Lock()
		card.QualificationScores[model.Q4OPMVsPrivate] = s
		mu.Unlock()
	} else {
		judgeAspect(string(model.Q4OPMVsPrivate), questionRubrics[model.Q4OPMVsPrivate], questionRange, func(s model.DimensionScore) {
			card.QualificationScores[model.Q4OPMVsPrivate] = s
		})
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "scoring: run aborted")
	}

	card.DimensionScores[model.DimPricingLevels] = scorePricingLevels(profile)
	card.DimensionScores[model.DimFundingSource] = scoreFundingSource(profile)
	card.DimensionScores[model.DimCompanyMaturity] = e.scoreCompanyMaturity(profile)
	card.DimensionScores[model.DimOwnershipProfile] = scoreOwnershipProfile(profile)
	card.QualificationScores[model.Q5ARPULevel] = scoreARPU(profile)

	e.aggregate(card, warnings)
	return card, nil
}

// judgeOne runs a single judged aspect with retry and classifies thin or
// shaky verdicts as estimates.
func (e *Engine) judgeOne(ctx context.Context, aspect, rubric string, r model.ScoreRange, profile model.ReconciledProfile, thinDossier bool) (model.DimensionScore, string) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return estimatedScore(r, "scoring run cancelled"), fmt.Sprintf("%s: %v", aspect, err)
	}
	defer e.sem.Release(1)

	cfg := e.retry
	cfg.OnRetry = resilience.RetryLogger("judge", aspect)

	verdict, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*judge.Judgment, error) {
		return e.judge.Evaluate(ctx, judge.Request{
			Aspect:   aspect,
			Rubric:   rubric,
			MinScore: r.Min,
			MaxScore: r.Max,
			Profile:  profile,
		})
	})
	if err != nil {
		zap.L().Warn("scoring: judgment failed, using midpoint estimate",
			zap.String("aspect", aspect),
			zap.Error(err),
		)
		return estimatedScore(r, "judgment unavailable"), fmt.Sprintf("%s: judgment failed: %v", aspect, err)
	}

	// The judge is trusted for content, not bounds. An out-of-range
	// verdict would skew weighted aggregation, so pin it to the scale.
	clamped := math.Min(math.Max(verdict.Score, r.Min), r.Max)

	score := model.DimensionScore{
		Score:       clamped,
		Confidence:  verdict.Confidence,
		Explanation: verdict.Reasoning,
	}
	if verdict.Evidence != "" {
		score.Evidence = []string{verdict.Evidence}
	}
	if verdict.Confidence < e.lowConfidence || len(verdict.Evidence) < e.minEvidenceLen || thinDossier {
		score.IsEstimated = true
	}
	return score, ""
}

// scoreOPMDeterministic maps the government-customer flag onto the Q4
// question scale when the signal was actually observed.
func scoreOPMDeterministic(p model.ReconciledProfile) (model.DimensionScore, bool) {
	gov, ok := p.Bool(model.FieldGovernmentCustomer)
	if !ok {
		return model.DimensionScore{}, false
	}
	score, explanation := 9.0, "private-sector revenue base"
	if gov {
		score, explanation = 4.0, "government customer dependency observed"
	}
	return model.DimensionScore{
		Score:       score,
		Confidence:  p.Confidence(model.FieldGovernmentCustomer),
		Evidence:    []string{fmt.Sprintf("government_customer: %t", gov)},
		Explanation: explanation,
	}, true
}

// aggregate computes the weighted totals. Dimension scores are normalized
// to a common 0-10 scale before weighting so that the 1-5 dimensions and
// the 5-10 dimensions contribute proportionally.
func (e *Engine) aggregate(card *model.ScoreCard, warnings map[string]string) {
	var overall float64
	for _, dim := range model.Dimensions {
		s := card.DimensionScores[dim]
		normalized := s.Score * 10 / model.DimensionRanges[dim].Max
		overall += e.weights[string(dim)] * normalized
	}

	var qAvg float64
	minQ := math.MaxFloat64
	for _, q := range model.Questions {
		s := card.QualificationScores[q]
		qAvg += e.qWeights[string(q)] * s.Score
		if s.Score < minQ {
			minQ = s.Score
		}
	}

	card.WeightedOverall = round1(overall)
	card.WeightedQualificationAvg = round1(qAvg)
	card.QualityThresholdMet = card.WeightedQualificationAvg >= e.qualityThreshold && minQ >= e.minQuestionScore

	for _, dim := range model.Dimensions {
		if w, ok := warnings[string(dim)]; ok {
			card.Warnings = append(card.Warnings, w)
		}
	}
	for _, q := range model.Questions {
		if w, ok := warnings[string(q)]; ok {
			card.Warnings = append(card.Warnings, w)
		}
	}
}

func estimatedScore(r model.ScoreRange, reason string) model.DimensionScore {
	return model.DimensionScore{
		Score:       (r.Min + r.Max) / 2,
		Confidence:  0,
		Explanation: reason,
		IsEstimated: true,
	}
}

// round1 rounds to one decimal, halves away from zero.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
