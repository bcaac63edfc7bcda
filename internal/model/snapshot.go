package model

import "time"

// AnalysisSnapshot is the immutable persisted result of one analysis run.
// Once written it is never updated; corrections are new snapshots, and a
// separate "latest" pointer references the newest one per company.
type AnalysisSnapshot struct {
	Key         string `json:"key"`
	Identity    string `json:"company_identity"`
	Fingerprint string `json:"fingerprint"`

	CreatedAt time.Time `json:"created_at"`

	Profile       ReconciledProfile   `json:"profile"`
	Qualification QualificationResult `json:"qualification"`
	ScoreCard     ScoreCard           `json:"scorecard"`
	Tier          TierAssignment      `json:"tier"`

	// Partial marks a snapshot persisted after the analysis deadline
	// expired; whatever profile/scorecard existed at that point is kept
	// rather than discarded.
	Partial bool `json:"partial"`

	Warnings        []string `json:"warnings,omitempty"`
	DisabledSources []string `json:"disabled_sources,omitempty"`

	// Persisted is false only when every persistence attempt failed and
	// the caller received the in-memory snapshot with an explicit error.
	// Not stored; meaningful only on the returned value.
	Persisted bool `json:"-"`
}

// SnapshotSummary is the lightweight history listing form of a snapshot.
type SnapshotSummary struct {
	Key             string    `json:"key"`
	Identity        string    `json:"company_identity"`
	CreatedAt       time.Time `json:"created_at"`
	WeightedOverall float64   `json:"weighted_overall"`
	EffectiveTier   Tier      `json:"effective_tier"`
	Qualified       bool      `json:"qualified"`
	Partial         bool      `json:"partial"`
}

// Summary derives the history listing form.
func (s *AnalysisSnapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		Key:             s.Key,
		Identity:        s.Identity,
		CreatedAt:       s.CreatedAt,
		WeightedOverall: s.ScoreCard.WeightedOverall,
		EffectiveTier:   s.Tier.EffectiveTier(),
		Qualified:       s.Qualification.IsQualified(),
		Partial:         s.Partial,
	}
}
