// Package judge provides AI-assisted evaluation of scoring aspects that
// have no deterministic signal. A Judge receives a rubric and a company
// dossier and returns a bounded score with confidence and cited evidence.
package judge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/acquisition-engine/internal/model"
	"github.com/sells-group/acquisition-engine/internal/resilience"
	"github.com/sells-group/acquisition-engine/pkg/anthropic"
)

// Request asks for one aspect of one company to be judged.
type Request struct {
	// Aspect identifies the dimension or question being judged, e.g.
	// "vms_focus" or "q3_mission_critical".
	Aspect string
	// Rubric is the full scoring rubric including the score scale.
	Rubric string
	// MinScore and MaxScore bound the returned score.
	MinScore float64
	MaxScore float64
	// Profile is the reconciled company evidence to judge against.
	Profile model.ReconciledProfile
}

// Judgment is a single judged aspect result.
type Judgment struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence"`
	Reasoning  string  `json:"reasoning"`
}

// Judge evaluates one scoring aspect against company evidence.
type Judge interface {
	Evaluate(ctx context.Context, req Request) (*Judgment, error)
}

// Func adapts a function to the Judge interface, mainly for tests.
type Func func(ctx context.Context, req Request) (*Judgment, error)

// Evaluate implements Judge.
func (f Func) Evaluate(ctx context.Context, req Request) (*Judgment, error) {
	return f(ctx, req)
}

const systemPrompt = `You are an acquisition analyst evaluating software companies.
You are given a scoring rubric and the evidence collected about one company.
Respond with a single JSON object and nothing else:
{"score": <number>, "confidence": <0.0-1.0>, "evidence": "<verbatim evidence you relied on>", "reasoning": "<one short paragraph>"}
Score strictly within the rubric's scale. If the evidence is thin, say so
in the reasoning and lower the confidence instead of guessing high.`

// AnthropicJudge judges aspects with the Anthropic Messages API. Requests
// are rate limited; concurrency is bounded by the caller.
type AnthropicJudge struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
}

// NewAnthropicJudge builds a judge using the given model. rps bounds the
// request rate across all concurrent callers.
func NewAnthropicJudge(client anthropic.Client, model string, maxTokens int64, rps float64) *AnthropicJudge {
	return &AnthropicJudge{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Evaluate renders the dossier, calls the model, and parses the strict
// JSON verdict. Scores outside the requested range are clamped, never
// rejected: a clamped score with the model's own confidence is more
// useful than a failed judgment.
func (j *AnthropicJudge) Evaluate(ctx context.Context, req Request) (*Judgment, error) {
	if err := j.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "judge: rate limit wait")
	}

	temp := 0.0
	resp, err := j.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       j.model,
		MaxTokens:   j.maxTokens,
		System:      anthropic.BuildCachedSystemBlocks(systemPrompt),
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildUserPrompt(req)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("judge: evaluate %s", req.Aspect))
	}
	resp.Usage.LogCost(j.model, "judge:"+req.Aspect)

	verdict, err := ParseJudgment(resp.Text())
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("judge: parse %s verdict", req.Aspect))
	}

	if clamped := clamp(verdict.Score, req.MinScore, req.MaxScore); clamped != verdict.Score {
		zap.L().Warn("judge: score out of range, clamping",
			zap.String("aspect", req.Aspect),
			zap.Float64("raw_score", verdict.Score),
			zap.Float64("clamped", clamped),
		)
		verdict.Score = clamped
	}
	verdict.Confidence = clamp(verdict.Confidence, 0, 1)

	return verdict, nil
}

func buildUserPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("## Rubric: ")
	b.WriteString(req.Aspect)
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(req.Rubric))
	fmt.Fprintf(&b, "\n\nScore must be between %g and %g.\n\n## Company evidence\n", req.MinScore, req.MaxScore)
	b.WriteString(RenderDossier(req.Profile))
	return b.String()
}

// RenderDossier flattens a reconciled profile into prompt text, one field
// per line with provenance, in stable field order.
func RenderDossier(p model.ReconciledProfile) string {
	names := p.FieldNames()
	if len(names) == 0 {
		return "(no company evidence available)"
	}

	var b strings.Builder
	for _, name := range names {
		f := p.Fields[name]
		sources := append([]string(nil), f.Sources...)
		sort.Strings(sources)
		fmt.Fprintf(&b, "- %s: %v (confidence %.2f, sources: %s)",
			name, f.Value, f.Confidence, strings.Join(sources, ", "))
		if f.Conflict != nil {
			fmt.Fprintf(&b, " [sources disagree: %v]", f.Conflict.Values)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// WithFallback returns a judge that tries primary and falls back to
// secondary on transient or rate-limit failures. Permanent errors (bad
// request, parse failures) are returned directly: a second model will not
// fix malformed input.
func WithFallback(primary, secondary Judge) Judge {
	return Func(func(ctx context.Context, req Request) (*Judgment, error) {
		verdict, err := primary.Evaluate(ctx, req)
		if err == nil {
			return verdict, nil
		}
		if !resilience.IsTransient(err) && !resilience.IsRateLimited(err) {
			return nil, err
		}
		zap.L().Warn("judge: primary failed, trying fallback",
			zap.String("aspect", req.Aspect),
			zap.Error(err),
		)
		return secondary.Evaluate(ctx, req)
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
