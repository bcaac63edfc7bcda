package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/acquisition-engine/internal/model"
)

const seedYAML = `
- name: Acme Fitness Systems
  country: US
  industry: fitness software
  description: Gym management suite for club operators
  employee_count: 40
  annual_revenue_usd: 2500000
  founded_year: 2016
  annual_price_usd: 30000
  government_customer: false
  last_funding_date: "2022-03-15"
  last_sale_date: "2021-07-01"
- name: Globex
  country: Canada
`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))
	return path
}

func TestSeedFileAdapterLookup(t *testing.T) {
	a, err := NewSeedFileAdapter(model.SourceRegistry, writeSeed(t))
	require.NoError(t, err)
	assert.Equal(t, 0.90, a.Reliability())

	signals, err := a.Lookup(context.Background(), Identity{Name: "acme fitness systems"}, nil)
	require.NoError(t, err)

	got := signalMap(signals)
	assert.Equal(t, "US", got[model.FieldCountry])
	assert.Equal(t, 40.0, got[model.FieldEmployeeCount])
	assert.Equal(t, 2_500_000.0, got[model.FieldAnnualRevenue])
	assert.Equal(t, 30_000.0, got[model.FieldAnnualPrice])
	assert.Equal(t, false, got[model.FieldGovernmentCustomer])
	require.Contains(t, got, model.FieldLastFundingDate)
	require.Contains(t, got, model.FieldLastSaleDate)

	for _, s := range signals {
		assert.Equal(t, model.SourceRegistry, s.SourceID)
	}
}

func TestSeedFileAdapterSparseRecord(t *testing.T) {
	a, err := NewSeedFileAdapter(model.SourceAggregator, writeSeed(t))
	require.NoError(t, err)

	signals, err := a.Lookup(context.Background(), Identity{Name: "Globex"}, nil)
	require.NoError(t, err)
	require.Len(t, signals, 1, "absent fields emit no signals")
	assert.Equal(t, model.FieldCountry, signals[0].FieldName)
}

func TestSeedFileAdapterUnknownCompany(t *testing.T) {
	a, err := NewSeedFileAdapter(model.SourceRegistry, writeSeed(t))
	require.NoError(t, err)

	signals, err := a.Lookup(context.Background(), Identity{Name: "Initech"}, nil)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestSeedFileAdapterBadFile(t *testing.T) {
	_, err := NewSeedFileAdapter(model.SourceRegistry, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml["), 0o644))
	_, err = NewSeedFileAdapter(model.SourceRegistry, path)
	assert.Error(t, err)
}
