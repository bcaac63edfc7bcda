// Package tier classifies scored companies into acquisition tiers and
// manages manual overrides with an append-only audit trail.
package tier

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/acquisition-engine/internal/config"
	"github.com/sells-group/acquisition-engine/internal/model"
)

// Classifier maps weighted overall scores to tiers using the configured
// threshold table. Thresholds are inclusive at the lower bound.
type Classifier struct {
	cfg config.TierConfig
}

// NewClassifier returns a classifier. The config is validated at load
// time to be strictly descending.
func NewClassifier(cfg config.TierConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify assigns the automated tier. A failed qualification always
// produces DISQUALIFIED regardless of score.
func (c *Classifier) Classify(qual model.QualificationResult, card *model.ScoreCard) model.TierAssignment {
	if !qual.IsQualified() {
		return model.TierAssignment{AutomatedTier: model.TierDisqualified}
	}

	score := card.WeightedOverall
	var t model.Tier
	switch {
	case score >= c.cfg.VIP:
		t = model.TierVIP
	case score >= c.cfg.High:
		t = model.TierHigh
	case score >= c.cfg.Medium:
		t = model.TierMedium
	default:
		t = model.TierLow
	}
	return model.TierAssignment{AutomatedTier: t}
}

// Apply validates and attaches a manual override, returning the updated
// assignment and the audit entry to append. The automated tier is never
// mutated; the override sits beside it.
func Apply(snapshotKey string, assignment model.TierAssignment, target model.Tier, reason, actor string, now time.Time) (model.TierAssignment, model.AuditEntry, error) {
	if !model.ValidTier(target) {
		return assignment, model.AuditEntry{}, eris.Errorf("tier: unknown tier %q", target)
	}
	if strings.TrimSpace(reason) == "" {
		return assignment, model.AuditEntry{}, eris.New("tier: override requires a reason")
	}
	if strings.TrimSpace(actor) == "" {
		return assignment, model.AuditEntry{}, eris.New("tier: override requires an actor")
	}

	entry := model.AuditEntry{
		ID:                    uuid.NewString(),
		SnapshotKey:           snapshotKey,
		PreviousEffectiveTier: assignment.EffectiveTier(),
		NewTier:               target,
		Reason:                reason,
		Actor:                 actor,
		Timestamp:             now,
	}
	assignment.ManualOverride = &model.Override{
		Tier:      target,
		Reason:    reason,
		Actor:     actor,
		Timestamp: now,
	}

	zap.L().Info("tier: manual override applied",
		zap.String("snapshot_key", snapshotKey),
		zap.String("previous_tier", string(entry.PreviousEffectiveTier)),
		zap.String("new_tier", string(target)),
		zap.String("actor", actor),
	)

	return assignment, entry, nil
}
