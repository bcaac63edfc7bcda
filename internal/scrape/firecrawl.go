package scrape

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/acquisition-engine/internal/source"
	"github.com/sells-group/acquisition-engine/pkg/firecrawl"
)

// FirecrawlScraper is the last resort in the chain: it renders
// JavaScript-heavy pages that both the local scraper and Jina reject.
type FirecrawlScraper struct {
	client firecrawl.Client
}

// NewFirecrawlScraper wraps a Firecrawl client as a chain scraper.
func NewFirecrawlScraper(client firecrawl.Client) *FirecrawlScraper {
	return &FirecrawlScraper{client: client}
}

func (f *FirecrawlScraper) Name() string           { return "firecrawl" }
func (f *FirecrawlScraper) Supports(_ string) bool { return true }

// Scrape fetches a single URL via Firecrawl's scrape API.
func (f *FirecrawlScraper) Scrape(ctx context.Context, targetURL string) (*source.PageContent, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     targetURL,
		Formats: []string{"markdown"},
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, eris.New("firecrawl: scrape not successful")
	}
	return &source.PageContent{
		URL:   resp.Data.URL,
		Title: resp.Data.Title,
		Text:  resp.Data.Markdown,
	}, nil
}
