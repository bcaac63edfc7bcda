package model

import "time"

// Tier is the discrete acquisition-worthiness bucket.
type Tier string

const (
	TierVIP          Tier = "VIP"
	TierHigh         Tier = "HIGH"
	TierMedium       Tier = "MEDIUM"
	TierLow          Tier = "LOW"
	TierDisqualified Tier = "DISQUALIFIED"
)

// ValidTier reports whether t is a known tier value.
func ValidTier(t Tier) bool {
	switch t {
	case TierVIP, TierHigh, TierMedium, TierLow, TierDisqualified:
		return true
	}
	return false
}

// Override is a manual tier override. It never deletes the automated
// value; both are retained on the assignment.
type Override struct {
	Tier      Tier      `json:"tier"`
	Reason    string    `json:"reason"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

// TierAssignment pairs the automated tier with an optional manual override.
type TierAssignment struct {
	AutomatedTier  Tier      `json:"automated_tier"`
	ManualOverride *Override `json:"manual_override,omitempty"`
}

// EffectiveTier is the override tier when present, else the automated tier.
func (a TierAssignment) EffectiveTier() Tier {
	if a.ManualOverride != nil {
		return a.ManualOverride.Tier
	}
	return a.AutomatedTier
}

// AuditEntry records one tier override, append-only.
type AuditEntry struct {
	ID                    string    `json:"id"`
	SnapshotKey           string    `json:"snapshot_key"`
	PreviousEffectiveTier Tier      `json:"previous_effective_tier"`
	NewTier               Tier      `json:"new_tier"`
	Reason                string    `json:"reason"`
	Actor                 string    `json:"actor"`
	Timestamp             time.Time `json:"timestamp"`
}
