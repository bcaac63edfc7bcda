package model

import (
	"sort"
	"time"
)

// Conflict records disagreement between sources that exceeded the per-field
// tolerance. It is informational, never an error.
type Conflict struct {
	Values   []any   `json:"competing_values"`
	Variance float64 `json:"variance"` // max/min ratio for numeric fields
}

// ReconciledField is a single resolved value for one company attribute,
// derived from possibly many conflicting raw signals.
type ReconciledField struct {
	FieldName  string    `json:"field_name"`
	Value      any       `json:"value"`
	Confidence float64   `json:"confidence"`
	Sources    []string  `json:"contributing_sources"`
	Conflict   *Conflict `json:"conflict,omitempty"`
}

// ReconciledProfile maps field names to reconciled values for one company
// at one point in time. A field with zero signals is absent from the map;
// consumers must treat absence as unknown, never as zero.
type ReconciledProfile struct {
	Fields map[string]ReconciledField `json:"fields"`
}

// NewProfile returns an empty profile.
func NewProfile() ReconciledProfile {
	return ReconciledProfile{Fields: make(map[string]ReconciledField)}
}

// Field returns the reconciled field and whether it is present.
func (p ReconciledProfile) Field(name string) (ReconciledField, bool) {
	f, ok := p.Fields[name]
	return f, ok
}

// Number returns the field value as float64. The second return is false
// when the field is absent or not numeric.
func (p ReconciledProfile) Number(name string) (float64, bool) {
	f, ok := p.Fields[name]
	if !ok {
		return 0, false
	}
	switch v := f.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Text returns the field value as a string, false when absent or not text.
func (p ReconciledProfile) Text(name string) (string, bool) {
	f, ok := p.Fields[name]
	if !ok {
		return "", false
	}
	s, ok := f.Value.(string)
	return s, ok
}

// Bool returns the field value as a bool, false when absent or not boolean.
func (p ReconciledProfile) Bool(name string) (bool, bool) {
	f, ok := p.Fields[name]
	if !ok {
		return false, false
	}
	b, ok := f.Value.(bool)
	return b, ok
}

// Time returns the field value as a time.Time, false when absent.
func (p ReconciledProfile) Time(name string) (time.Time, bool) {
	f, ok := p.Fields[name]
	if !ok {
		return time.Time{}, false
	}
	switch v := f.Value.(type) {
	case time.Time:
		return v, true
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Confidence returns the confidence for a field, or 0 when absent.
func (p ReconciledProfile) Confidence(name string) float64 {
	if f, ok := p.Fields[name]; ok {
		return f.Confidence
	}
	return 0
}

// MinConfidence returns the minimum confidence across the named fields.
// Absent fields count as 0 so that decisions resting on missing data are
// flagged for manual review rather than silently trusted.
func (p ReconciledProfile) MinConfidence(names ...string) float64 {
	min := 1.0
	for _, n := range names {
		c := p.Confidence(n)
		if c < min {
			min = c
		}
	}
	return min
}

// OverallConfidence is the mean confidence across all present fields,
// 0 for an empty profile.
func (p ReconciledProfile) OverallConfidence() float64 {
	if len(p.Fields) == 0 {
		return 0
	}
	var sum float64
	for _, f := range p.Fields {
		sum += f.Confidence
	}
	return sum / float64(len(p.Fields))
}

// FieldNames returns present field names in sorted order for deterministic
// iteration.
func (p ReconciledProfile) FieldNames() []string {
	names := make([]string, 0, len(p.Fields))
	for n := range p.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// HasConflicts reports whether any field carries a conflict flag.
func (p ReconciledProfile) HasConflicts() bool {
	for _, f := range p.Fields {
		if f.Conflict != nil {
			return true
		}
	}
	return false
}
