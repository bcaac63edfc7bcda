package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/acquisition-engine/internal/analysis"
	"github.com/sells-group/acquisition-engine/internal/config"
	"github.com/sells-group/acquisition-engine/internal/fusion"
	"github.com/sells-group/acquisition-engine/internal/gates"
	"github.com/sells-group/acquisition-engine/internal/judge"
	"github.com/sells-group/acquisition-engine/internal/model"
	"github.com/sells-group/acquisition-engine/internal/resilience"
	"github.com/sells-group/acquisition-engine/internal/scoring"
	"github.com/sells-group/acquisition-engine/internal/scrape"
	"github.com/sells-group/acquisition-engine/internal/source"
	"github.com/sells-group/acquisition-engine/internal/store"
	"github.com/sells-group/acquisition-engine/internal/tier"
	"github.com/sells-group/acquisition-engine/pkg/anthropic"
	"github.com/sells-group/acquisition-engine/pkg/firecrawl"
	"github.com/sells-group/acquisition-engine/pkg/jina"
	"github.com/sells-group/acquisition-engine/pkg/perplexity"
)

// env holds the wired pipeline for one command invocation.
type env struct {
	Engine *analysis.Engine
	Store  store.SnapshotStore
}

func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

// initEngine wires the store, sources, judge, and pipeline stages from
// the loaded configuration.
func initEngine(ctx context.Context) (*env, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	retry := retryFromConfig(cfg.Retry)

	collector := source.NewCollector(buildAdapters(),
		time.Duration(cfg.Sources.AdapterTimeoutSecs)*time.Second, retry)

	scorer := scoring.NewEngine(buildJudge(), cfg.Scoring, cfg.Judge, retry)

	engine := analysis.NewEngine(
		collector,
		fusion.NewEngine(),
		gates.NewPipeline(cfg.Gates),
		scorer,
		tier.NewClassifier(cfg.Tier),
		st,
		cfg.Analysis,
		retry,
	)

	return &env{Engine: engine, Store: st}, nil
}

func openStore(ctx context.Context) (store.SnapshotStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// buildAdapters assembles the signal sources: the company's own website
// read through the scraper chain, web search snippets and aggregated
// research when API keys are configured, plus optional seed-file
// registries.
func buildAdapters() []source.Adapter {
	scrapers := []scrape.Scraper{scrape.NewLocalScraper()}
	if cfg.Sources.JinaKey != "" {
		scrapers = append(scrapers, scrape.NewJinaScraper(jina.NewClient(cfg.Sources.JinaKey)))
	}
	if cfg.Sources.FirecrawlKey != "" {
		scrapers = append(scrapers, scrape.NewFirecrawlScraper(firecrawl.NewClient(cfg.Sources.FirecrawlKey)))
	}

	adapters := []source.Adapter{
		source.NewWebsiteAdapter(scrape.NewProvider(scrapers...)),
	}
	if cfg.Sources.JinaKey != "" {
		adapters = append(adapters, source.NewSearchAdapter(jina.NewClient(cfg.Sources.JinaKey)))
	}
	if cfg.Sources.PerplexityKey != "" {
		adapters = append(adapters, source.NewResearchAdapter(perplexity.NewClient(cfg.Sources.PerplexityKey)))
	}

	for sourceID, path := range map[string]string{
		model.SourceRegistry:   cfg.Sources.RegistrySeedFile,
		model.SourceAggregator: cfg.Sources.AggregatorSeedFile,
	} {
		if path == "" {
			continue
		}
		seed, err := source.NewSeedFileAdapter(sourceID, path)
		if err != nil {
			zap.L().Warn("skipping seed source",
				zap.String("source", sourceID),
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		adapters = append(adapters, seed)
	}

	return adapters
}

// buildJudge chains the primary model with a cheaper fallback used only
// when the primary's retries exhaust on transient failures.
func buildJudge() judge.Judge {
	client := anthropic.NewClient(cfg.Anthropic.Key)
	primary := judge.NewAnthropicJudge(client, cfg.Anthropic.Model,
		int64(cfg.Anthropic.MaxTokens), cfg.Judge.RequestsPerSecond)
	if cfg.Anthropic.FallbackModel == "" || cfg.Anthropic.FallbackModel == cfg.Anthropic.Model {
		return primary
	}
	fallback := judge.NewAnthropicJudge(client, cfg.Anthropic.FallbackModel,
		int64(cfg.Anthropic.MaxTokens), cfg.Judge.RequestsPerSecond)
	return judge.WithFallback(primary, fallback)
}

func retryFromConfig(rc config.RetryConfig) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    rc.MaxAttempts,
		BaseDelay:      time.Duration(rc.BaseDelayMs) * time.Millisecond,
		MaxDelay:       time.Duration(rc.MaxDelayMs) * time.Millisecond,
		Multiplier:     rc.Multiplier,
		JitterFraction: rc.JitterFraction,
	}
}
