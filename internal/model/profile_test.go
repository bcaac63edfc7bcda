package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfileNumber(t *testing.T) {
	p := NewProfile()
	p.Fields[FieldEmployeeCount] = ReconciledField{
		FieldName:  FieldEmployeeCount,
		Value:      float64(42),
		Confidence: 0.9,
		Sources:    []string{SourceRegistry},
	}
	p.Fields[FieldDescription] = ReconciledField{
		FieldName:  FieldDescription,
		Value:      "practice management software",
		Confidence: 0.8,
		Sources:    []string{SourceOfficialSite},
	}

	v, ok := p.Number(FieldEmployeeCount)
	assert.True(t, ok)
	assert.Equal(t, 42.0, v)

	// Absent field is absent, not zero.
	_, ok = p.Number(FieldAnnualRevenue)
	assert.False(t, ok)

	// Wrong type is not coerced.
	_, ok = p.Number(FieldDescription)
	assert.False(t, ok)
}

func TestProfileIntAndTimeCoercion(t *testing.T) {
	p := NewProfile()
	p.Fields[FieldFoundedYear] = ReconciledField{FieldName: FieldFoundedYear, Value: 2015, Confidence: 1}
	p.Fields[FieldLastFundingDate] = ReconciledField{
		FieldName:  FieldLastFundingDate,
		Value:      "2024-05-01T00:00:00Z",
		Confidence: 0.9,
	}

	v, ok := p.Number(FieldFoundedYear)
	assert.True(t, ok)
	assert.Equal(t, 2015.0, v)

	ts, ok := p.Time(FieldLastFundingDate)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), ts)
}

func TestMinConfidenceTreatsAbsentAsZero(t *testing.T) {
	p := NewProfile()
	p.Fields[FieldCountry] = ReconciledField{FieldName: FieldCountry, Value: "USA", Confidence: 0.95}

	assert.Equal(t, 0.95, p.MinConfidence(FieldCountry))
	assert.Equal(t, 0.0, p.MinConfidence(FieldCountry, FieldAnnualRevenue))
}

func TestOverallConfidence(t *testing.T) {
	p := NewProfile()
	assert.Equal(t, 0.0, p.OverallConfidence())

	p.Fields["a"] = ReconciledField{Confidence: 0.4}
	p.Fields["b"] = ReconciledField{Confidence: 0.8}
	assert.InDelta(t, 0.6, p.OverallConfidence(), 1e-9)
}

func TestFieldNamesSorted(t *testing.T) {
	p := NewProfile()
	p.Fields["zeta"] = ReconciledField{}
	p.Fields["alpha"] = ReconciledField{}
	p.Fields["mid"] = ReconciledField{}

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, p.FieldNames())
}

func TestSourceRankOrdering(t *testing.T) {
	order := []string{
		SourceOfficialSite,
		SourceRegistry,
		SourceNetworkVerified,
		SourceAggregator,
		SourceSearchSnippet,
	}
	for i := 1; i < len(order); i++ {
		assert.Less(t, SourceRank(order[i-1]), SourceRank(order[i]))
	}
	assert.Equal(t, 5, SourceRank("unknown_feed"))
}
