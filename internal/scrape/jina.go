package scrape

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/acquisition-engine/internal/source"
	"github.com/sells-group/acquisition-engine/pkg/jina"
)

// circuitBreaker trips after repeated consecutive failures so a flaky
// hosted reader is skipped instead of slowing every page fetch.
type circuitBreaker struct {
	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	openUntil   time.Time
	threshold   int
	window      time.Duration
	cooldown    time.Duration
}

func newCircuitBreaker(threshold int, window, cooldown time.Duration) *circuitBreaker {
	return &circuitBreaker{threshold: threshold, window: window, cooldown: cooldown}
}

func (cb *circuitBreaker) isOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return time.Now().Before(cb.openUntil)
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	now := time.Now()
	if now.Sub(cb.lastFailure) > cb.window {
		cb.failures = 0
	}
	cb.failures++
	cb.lastFailure = now
	if cb.failures >= cb.threshold {
		cb.openUntil = now.Add(cb.cooldown)
		zap.L().Warn("scrape: jina circuit breaker opened",
			zap.Int("failures", cb.failures),
			zap.Duration("cooldown", cb.cooldown),
		)
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
}

// JinaScraper fetches pages through Jina Reader. Three consecutive
// failures within 30s open the circuit for 60s, causing immediate
// fallback to the next scraper in the chain.
type JinaScraper struct {
	client  jina.Client
	breaker *circuitBreaker
}

// NewJinaScraper wraps a Jina client as a chain scraper.
func NewJinaScraper(client jina.Client) *JinaScraper {
	return &JinaScraper{
		client:  client,
		breaker: newCircuitBreaker(3, 30*time.Second, 60*time.Second),
	}
}

func (j *JinaScraper) Name() string { return "jina" }

func (j *JinaScraper) Supports(_ string) bool {
	return !j.breaker.isOpen()
}

// Scrape fetches a URL via Jina Reader and validates the response.
func (j *JinaScraper) Scrape(ctx context.Context, targetURL string) (*source.PageContent, error) {
	if j.breaker.isOpen() {
		return nil, eris.New("jina: circuit breaker open")
	}

	resp, err := j.client.Read(ctx, targetURL)
	if err != nil {
		j.breaker.recordFailure()
		return nil, err
	}
	if unusableContent(resp.Data.Content) {
		j.breaker.recordFailure()
		return nil, eris.New("jina: response has no usable content")
	}

	j.breaker.recordSuccess()
	return &source.PageContent{
		URL:   resp.Data.URL,
		Title: resp.Data.Title,
		Text:  resp.Data.Content,
	}, nil
}

// unusableContent reports whether reader output is too thin or is itself
// a block page.
func unusableContent(content string) bool {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < 100 {
		return true
	}
	lower := strings.ToLower(trimmed)
	return strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "captcha")
}
