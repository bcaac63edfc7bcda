package model

// QualificationResult is the outcome of the two-stage gate pipeline.
type QualificationResult struct {
	Gate1Passed             bool     `json:"gate1_passed"`
	Gate2Passed             bool     `json:"gate2_passed"`
	DisqualificationReasons []string `json:"disqualification_reasons"`
	Confidence              float64  `json:"confidence"`
	RequiresManualReview    bool     `json:"requires_manual_review"`

	// ShortCircuited is set when gate 1 failed without a manual override,
	// in which case gate 2 was never evaluated and scoring must be skipped.
	ShortCircuited bool `json:"short_circuited"`

	Region            string `json:"geographic_region,omitempty"`
	BusinessModelType string `json:"business_model_type,omitempty"`
}

// IsQualified reports whether both gates passed.
func (q QualificationResult) IsQualified() bool {
	return q.Gate1Passed && q.Gate2Passed
}
