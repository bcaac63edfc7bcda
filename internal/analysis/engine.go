package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/acquisition-engine/internal/config"
	"github.com/sells-group/acquisition-engine/internal/fusion"
	"github.com/sells-group/acquisition-engine/internal/gates"
	"github.com/sells-group/acquisition-engine/internal/model"
	"github.com/sells-group/acquisition-engine/internal/resilience"
	"github.com/sells-group/acquisition-engine/internal/scoring"
	"github.com/sells-group/acquisition-engine/internal/source"
	"github.com/sells-group/acquisition-engine/internal/store"
	"github.com/sells-group/acquisition-engine/internal/tier"
)

// ErrPersistExhausted is returned with the in-memory snapshot when every
// persistence attempt failed. The caller still gets the computed result.
var ErrPersistExhausted = eris.New("analysis: persistence retries exhausted")

// ValidationError rejects a request before any computation happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// Options adjusts a single analysis run.
type Options struct {
	// ForceRefresh recomputes even when a fresh snapshot exists.
	ForceRefresh bool
	// SkipFiltering bypasses both qualification gates.
	SkipFiltering bool
	// ManualOverride forces gate-2 evaluation after a gate-1 failure.
	ManualOverride bool
	// StrategicFit relaxes the gate-2 revenue floor to the tuck-in floor.
	StrategicFit bool
	// Staleness overrides the configured freshness window when positive.
	Staleness time.Duration
}

// Request identifies one company to analyze.
type Request struct {
	Identity   string
	WebsiteURL string
	NetworkURL string
	Hints      source.Hints
	Options    Options
}

// QualificationOutcome is the result of the cheap qualification-only path.
type QualificationOutcome struct {
	Profile         model.ReconciledProfile   `json:"profile"`
	Qualification   model.QualificationResult `json:"qualification"`
	Warnings        []string                  `json:"warnings,omitempty"`
	DisabledSources []string                  `json:"disabled_sources,omitempty"`
}

// Collector gathers raw signals for one company.
type Collector interface {
	Collect(ctx context.Context, identity source.Identity, hints source.Hints, breakers *resilience.RunBreakers) (*source.Result, error)
}

// Scorer produces the weighted score card for a qualified company.
type Scorer interface {
	Score(ctx context.Context, profile model.ReconciledProfile, qual model.QualificationResult) (*model.ScoreCard, error)
}

// Engine runs the full analysis pipeline with idempotent snapshot reuse
// and single-computation coalescing per fingerprint.
type Engine struct {
	collector Collector
	fusion    *fusion.Engine
	gates     *gates.Pipeline
	scorer    Scorer
	tiers     *tier.Classifier
	store     store.SnapshotStore

	cfg   config.AnalysisConfig
	retry resilience.RetryConfig

	sf  singleflight.Group
	sem *semaphore.Weighted

	now   func() time.Time
	newID func() string
}

// NewEngine wires the pipeline stages together.
func NewEngine(
	collector Collector,
	fusionEngine *fusion.Engine,
	gatePipeline *gates.Pipeline,
	scorer Scorer,
	classifier *tier.Classifier,
	st store.SnapshotStore,
	cfg config.AnalysisConfig,
	retry resilience.RetryConfig,
) *Engine {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	return &Engine{
		collector: collector,
		fusion:    fusionEngine,
		gates:     gatePipeline,
		scorer:    scorer,
		tiers:     classifier,
		store:     st,
		cfg:       cfg,
		retry:     retry,
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// GetOrCompute returns the analysis snapshot for the requested company,
// computing it only when no sufficiently fresh snapshot exists. Concurrent
// callers for the same fingerprint share a single computation.
func (e *Engine) GetOrCompute(ctx context.Context, req Request) (*model.AnalysisSnapshot, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	fp := Fingerprint(req.Identity, req.WebsiteURL, req.NetworkURL)

	if !req.Options.ForceRefresh {
		if snap, ok := e.freshSnapshot(ctx, fp, req.Options.Staleness); ok {
			zap.L().Debug("analysis: serving fresh snapshot",
				zap.String("fingerprint", fp),
				zap.String("snapshot_key", snap.Key))
			return snap, nil
		}
	}

	// Refresh callers get their own flight key: a flight started without
	// the flag may legitimately serve a cached snapshot, which would
	// silently swallow the refresh.
	key := fp
	if req.Options.ForceRefresh {
		key = fp + "#refresh"
	}

	v, err, shared := e.sf.Do(key, func() (any, error) {
		// A coalesced caller may arrive just after another finished;
		// re-check freshness before paying for a computation.
		if !req.Options.ForceRefresh {
			if snap, ok := e.freshSnapshot(ctx, fp, req.Options.Staleness); ok {
				return snap, nil
			}
		}
		return e.compute(ctx, req, fp)
	})
	if shared {
		zap.L().Debug("analysis: coalesced onto in-flight computation",
			zap.String("fingerprint", fp))
	}
	if v == nil {
		return nil, err
	}
	return v.(*model.AnalysisSnapshot), err
}

// ComputeQualification runs only collection, fusion, and the gates. It
// never calls the judgment provider and persists nothing.
func (e *Engine) ComputeQualification(ctx context.Context, req Request) (*QualificationOutcome, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	breakers := resilience.NewRunBreakers()
	collected, err := e.collector.Collect(ctx, source.Identity{
		Name:       req.Identity,
		WebsiteURL: req.WebsiteURL,
		NetworkURL: req.NetworkURL,
	}, req.Hints, breakers)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: collect signals")
	}

	profile := e.fusion.Reconcile(collected.Signals)
	qual := e.gates.Evaluate(profile, gateOptions(req.Options))

	out := &QualificationOutcome{
		Profile:         profile,
		Qualification:   qual,
		Warnings:        collected.Warnings,
		DisabledSources: collected.DisabledSources,
	}
	if fusion.RequiresManualReview(profile) {
		out.Warnings = append(out.Warnings, "source conflicts with low confidence: manual review recommended")
	}
	return out, nil
}

// History lists snapshot summaries for a company, newest first.
func (e *Engine) History(ctx context.Context, identity, websiteURL, networkURL string, f store.ListFilter) ([]model.SnapshotSummary, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, &ValidationError{Field: "identity", Reason: "must not be blank"}
	}
	fp := Fingerprint(identity, websiteURL, networkURL)
	return e.store.ListSnapshots(ctx, fp, f)
}

// OverrideTier records a manual tier override against a persisted
// snapshot. The automated tier is never mutated; the override lives in
// its own slot with an append-only audit trail.
func (e *Engine) OverrideTier(ctx context.Context, snapshotKey string, target model.Tier, reason, actor string) (*model.AuditEntry, error) {
	snap, err := e.store.GetSnapshot(ctx, snapshotKey)
	if err != nil {
		return nil, err
	}

	assignment, entry, err := tier.Apply(snapshotKey, snap.Tier, target, reason, actor, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.store.SetOverride(ctx, snapshotKey, *assignment.ManualOverride); err != nil {
		return nil, err
	}
	if err := e.store.AppendAudit(ctx, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// AuditTrail returns the override history for a snapshot in order.
func (e *Engine) AuditTrail(ctx context.Context, snapshotKey string) ([]model.AuditEntry, error) {
	return e.store.ListAudit(ctx, snapshotKey)
}

// freshSnapshot returns the latest snapshot when it is inside the
// staleness window.
func (e *Engine) freshSnapshot(ctx context.Context, fp string, staleness time.Duration) (*model.AnalysisSnapshot, bool) {
	if staleness <= 0 {
		staleness = time.Duration(e.cfg.StalenessHours) * time.Hour
	}
	if staleness <= 0 {
		staleness = 24 * time.Hour
	}

	snap, err := e.store.GetLatest(ctx, fp)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.L().Warn("analysis: latest snapshot lookup failed", zap.Error(err))
		}
		return nil, false
	}
	if e.now().Sub(snap.CreatedAt) > staleness {
		return nil, false
	}
	return snap, true
}

// compute runs the full pipeline under the analysis semaphore and
// deadline, then persists the snapshot and swaps the latest pointer.
func (e *Engine) compute(ctx context.Context, req Request, fp string) (*model.AnalysisSnapshot, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, eris.Wrap(err, "analysis: acquire analysis slot")
	}
	defer e.sem.Release(1)

	deadline := time.Duration(e.cfg.DeadlineSecs) * time.Second
	if deadline <= 0 {
		deadline = 300 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	started := e.now()
	snap := &model.AnalysisSnapshot{
		Key:         e.newID(),
		Identity:    req.Identity,
		Fingerprint: fp,
		CreatedAt:   started,
	}

	breakers := resilience.NewRunBreakers()
	collected, err := e.collector.Collect(runCtx, source.Identity{
		Name:       req.Identity,
		WebsiteURL: req.WebsiteURL,
		NetworkURL: req.NetworkURL,
	}, req.Hints, breakers)
	if err != nil {
		if runCtx.Err() == nil {
			return nil, eris.Wrap(err, "analysis: collect signals")
		}
		// Deadline expired mid-collection; persist what exists.
		snap.Partial = true
		snap.Profile = model.NewProfile()
		snap.Warnings = append(snap.Warnings, "analysis deadline expired during signal collection")
		return e.persist(ctx, snap)
	}
	snap.Warnings = append(snap.Warnings, collected.Warnings...)
	snap.DisabledSources = collected.DisabledSources

	snap.Profile = e.fusion.Reconcile(collected.Signals)
	if fusion.RequiresManualReview(snap.Profile) {
		snap.Warnings = append(snap.Warnings, "source conflicts with low confidence: manual review recommended")
	}

	snap.Qualification = e.gates.Evaluate(snap.Profile, gateOptions(req.Options))

	card, err := e.scorer.Score(runCtx, snap.Profile, snap.Qualification)
	switch {
	case errors.Is(err, scoring.ErrNotScorable):
		// Gate-1 short circuit; the snapshot records the disqualification.
	case err != nil && runCtx.Err() != nil:
		snap.Partial = true
		snap.Warnings = append(snap.Warnings, "analysis deadline expired before scoring completed")
	case err != nil:
		return nil, eris.Wrap(err, "analysis: score")
	default:
		snap.ScoreCard = *card
	}

	snap.Tier = e.tiers.Classify(snap.Qualification, &snap.ScoreCard)

	zap.L().Info("analysis complete",
		zap.String("snapshot_key", snap.Key),
		zap.String("identity", req.Identity),
		zap.Bool("qualified", snap.Qualification.IsQualified()),
		zap.String("tier", string(snap.Tier.EffectiveTier())),
		zap.Float64("weighted_overall", snap.ScoreCard.WeightedOverall),
		zap.Bool("partial", snap.Partial),
		zap.Duration("elapsed", e.now().Sub(started)),
	)

	return e.persist(ctx, snap)
}

// persist writes the snapshot and swaps the latest pointer, retrying
// with backoff. The write uses a detached context so a caller timeout
// never drops a finished computation.
func (e *Engine) persist(ctx context.Context, snap *model.AnalysisSnapshot) (*model.AnalysisSnapshot, error) {
	persistCtx := context.WithoutCancel(ctx)

	err := resilience.Do(persistCtx, e.retry, func(ctx context.Context) error {
		if err := e.store.PutSnapshot(ctx, snap); err != nil && !errors.Is(err, store.ErrDuplicateSnapshot) {
			return err
		}
		return e.store.SwapLatest(ctx, snap.Fingerprint, snap.Key)
	})
	if err != nil {
		snap.Persisted = false
		zap.L().Error("analysis: snapshot persistence exhausted",
			zap.String("snapshot_key", snap.Key),
			zap.Error(err))
		return snap, eris.Wrap(ErrPersistExhausted, err.Error())
	}
	snap.Persisted = true
	return snap, nil
}

func gateOptions(o Options) gates.Options {
	opts := gates.Options{
		ManualOverride: o.ManualOverride,
		StrategicFit:   o.StrategicFit,
	}
	if o.SkipFiltering {
		opts.Skip = map[string]bool{
			gates.SkipGate1: true,
			gates.SkipGate2: true,
		}
	}
	return opts
}

func validateRequest(req Request) error {
	if strings.TrimSpace(req.Identity) == "" {
		return &ValidationError{Field: "identity", Reason: "must not be blank"}
	}
	for field, raw := range map[string]string{
		"website_url": req.WebsiteURL,
		"network_url": req.NetworkURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return &ValidationError{Field: field, Reason: "must be an absolute http(s) URL"}
		}
	}
	return nil
}
