// Package source defines signal source adapters and the collection fan-out
// that gathers raw company signals from every configured source.
package source

import (
	"context"

	"github.com/sells-group/acquisition-engine/internal/model"
)

// Identity names the company being looked up.
type Identity struct {
	Name       string
	WebsiteURL string
	NetworkURL string
}

// Hints carries optional routing context for adapters, e.g. a country or
// industry already known from a prior run.
type Hints map[string]string

// Adapter looks up signals from one source. Implementations must respect
// ctx and return typed errors from internal/resilience so the collector
// can classify failures.
type Adapter interface {
	Name() string
	// Reliability is the static prior weight stamped on this source's
	// signals before fusion.
	Reliability() float64
	Lookup(ctx context.Context, identity Identity, hints Hints) ([]model.CompanySignal, error)
}

// PageContent is one fetched page of site content.
type PageContent struct {
	URL   string
	Title string
	Text  string
}

// ContentProvider fetches website content for the website adapter. Scope
// limits the crawl, e.g. "about" or "pricing".
type ContentProvider interface {
	Fetch(ctx context.Context, url, scope string) ([]PageContent, error)
}

// Static reliability priors per source.
var reliabilityPriors = map[string]float64{
	model.SourceOfficialSite:    0.95,
	model.SourceRegistry:        0.90,
	model.SourceNetworkVerified: 0.80,
	model.SourceAggregator:      0.60,
	model.SourceSearchSnippet:   0.40,
}

// ReliabilityPrior returns the static weight for a source, 0 for unknown
// sources so unrecognized signals never dominate fusion.
func ReliabilityPrior(sourceID string) float64 {
	return reliabilityPriors[sourceID]
}
