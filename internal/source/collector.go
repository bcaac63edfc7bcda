package source

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/acquisition-engine/internal/model"
	"github.com/sells-group/acquisition-engine/internal/resilience"
)

// Result is the outcome of one collection fan-out. A missing source shows
// up as absent signals and possibly a warning, never as a failure.
type Result struct {
	Signals         []model.CompanySignal
	DisabledSources []string
	Warnings        []string
}

// Collector fans lookups out to all adapters in parallel. Adapter
// failures degrade the result instead of failing it: downstream fusion
// treats missing sources as lower confidence.
type Collector struct {
	adapters []Adapter
	timeout  time.Duration
	retry    resilience.RetryConfig
}

// NewCollector builds a collector. timeout bounds each adapter's lookup.
func NewCollector(adapters []Adapter, timeout time.Duration, retry resilience.RetryConfig) *Collector {
	return &Collector{adapters: adapters, timeout: timeout, retry: retry}
}

// Collect queries every adapter not already disabled for this run. An
// adapter whose retries exhaust on rate limiting is disabled on the run's
// breakers so later lookups in the same run skip it.
func (c *Collector) Collect(ctx context.Context, identity Identity, hints Hints, breakers *resilience.RunBreakers) (*Result, error) {
	res := &Result{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, adapter := range c.adapters {
		adapter := adapter
		g.Go(func() error {
			if err := breakers.Allow(adapter.Name()); err != nil {
				return nil
			}

			cfg := c.retry
			cfg.OnRetry = resilience.RetryLogger(adapter.Name(), "lookup")

			signals, err := resilience.DoVal(gctx, cfg, func(ctx context.Context) ([]model.CompanySignal, error) {
				lctx, cancel := context.WithTimeout(ctx, c.timeout)
				defer cancel()
				return adapter.Lookup(lctx, identity, hints)
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if resilience.IsRateLimited(err) {
					breakers.Disable(adapter.Name(), "rate limit retries exhausted")
				}
				res.Warnings = append(res.Warnings, adapter.Name()+": "+err.Error())
				zap.L().Warn("source: adapter lookup failed",
					zap.String("source", adapter.Name()),
					zap.String("company", identity.Name),
					zap.Error(err),
				)
				return nil
			}
			res.Signals = append(res.Signals, signals...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "source: collect")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "source: collect aborted")
	}

	res.DisabledSources = breakers.Disabled()
	zap.L().Debug("source: collection complete",
		zap.String("company", identity.Name),
		zap.Int("signals", len(res.Signals)),
		zap.Int("disabled_sources", len(res.DisabledSources)),
	)
	return res, nil
}
