// Package scrape fetches company web pages through a chain of scrapers:
// plain HTTP first (free), then Jina Reader, then Firecrawl. The chain
// implements source.ContentProvider so the website adapter can read
// about and pricing pages without knowing how they were fetched.
package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/acquisition-engine/internal/source"
)

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*source.PageContent, error)
	Name() string
	Supports(url string) bool
}

// scopePaths maps a fetch scope to the candidate paths tried under the
// company's base URL. The empty path is the page itself.
var scopePaths = map[string][]string{
	"about":   {"", "/about", "/about-us"},
	"pricing": {"/pricing", "/plans"},
}

// Provider resolves a scope to candidate URLs and fetches them through
// the scraper chain. It satisfies source.ContentProvider.
type Provider struct {
	scrapers []Scraper
}

// NewProvider builds a provider trying scrapers in the given order.
func NewProvider(scrapers ...Scraper) *Provider {
	return &Provider{scrapers: scrapers}
}

// Fetch scrapes the scope's candidate pages under baseURL. Individual
// page failures are tolerated; an error is returned only when no
// candidate produced content and at least one scrape failed.
func (p *Provider) Fetch(ctx context.Context, baseURL, scope string) ([]source.PageContent, error) {
	paths, ok := scopePaths[scope]
	if !ok {
		paths = []string{""}
	}

	base := strings.TrimRight(baseURL, "/")
	var pages []source.PageContent
	var lastErr error
	for _, path := range paths {
		page, err := p.scrapeOne(ctx, base+path)
		if err != nil {
			lastErr = err
			continue
		}
		pages = append(pages, *page)
	}

	if len(pages) == 0 && lastErr != nil {
		return nil, eris.Wrapf(lastErr, "scrape: scope %s", scope)
	}
	return pages, nil
}

// scrapeOne tries each scraper in order for one URL.
func (p *Provider) scrapeOne(ctx context.Context, url string) (*source.PageContent, error) {
	var lastErr error
	for _, s := range p.scrapers {
		if !s.Supports(url) {
			continue
		}
		page, err := s.Scrape(ctx, url)
		if err == nil && page != nil {
			return page, nil
		}
		if err != nil {
			zap.L().Debug("scrape: scraper failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", url),
				zap.Error(err),
			)
			lastErr = err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no scraper available for %s", url)
}
