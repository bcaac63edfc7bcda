package config

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// weightTolerance is the permitted deviation of a weight table's sum from 1.0.
const weightTolerance = 1e-6

// Config holds the full application configuration. It is loaded once,
// validated, and passed into constructors; nothing reads process-wide
// mutable state after that.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Judge     JudgeConfig     `yaml:"judge" mapstructure:"judge"`
	Sources   SourcesConfig   `yaml:"sources" mapstructure:"sources"`
	Gates     GatesConfig     `yaml:"gates" mapstructure:"gates"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Tier      TierConfig      `yaml:"tier" mapstructure:"tier"`
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the snapshot store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// AnthropicConfig holds Anthropic API settings for the judgment provider.
type AnthropicConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	Model         string `yaml:"model" mapstructure:"model"`
	FallbackModel string `yaml:"fallback_model" mapstructure:"fallback_model"`
	MaxTokens     int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// JudgeConfig bounds judgment-provider usage.
type JudgeConfig struct {
	MaxConcurrent     int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MinEvidenceLen    int     `yaml:"min_evidence_len" mapstructure:"min_evidence_len"`
	LowConfidence     float64 `yaml:"low_confidence" mapstructure:"low_confidence"`
}

// SourcesConfig configures the signal collection fan-out and the
// credentials for the hosted page readers behind the website adapter.
type SourcesConfig struct {
	AdapterTimeoutSecs int    `yaml:"adapter_timeout_secs" mapstructure:"adapter_timeout_secs"`
	JinaKey            string `yaml:"jina_key" mapstructure:"jina_key"`
	FirecrawlKey       string `yaml:"firecrawl_key" mapstructure:"firecrawl_key"`
	PerplexityKey      string `yaml:"perplexity_key" mapstructure:"perplexity_key"`
	RegistrySeedFile   string `yaml:"registry_seed_file" mapstructure:"registry_seed_file"`
	AggregatorSeedFile string `yaml:"aggregator_seed_file" mapstructure:"aggregator_seed_file"`
}

// GatesConfig holds qualification gate thresholds.
type GatesConfig struct {
	MinRevenueUSD      float64 `yaml:"min_revenue_usd" mapstructure:"min_revenue_usd"`
	TuckInRevenueUSD   float64 `yaml:"tuck_in_revenue_usd" mapstructure:"tuck_in_revenue_usd"`
	MinEmployees       float64 `yaml:"min_employees" mapstructure:"min_employees"`
	MinAgeYears        float64 `yaml:"min_age_years" mapstructure:"min_age_years"`
	FundingWindowMonths int    `yaml:"funding_window_months" mapstructure:"funding_window_months"`
	ReviewConfidence   float64 `yaml:"review_confidence" mapstructure:"review_confidence"`
}

// ScoringConfig holds the dimension and qualification weight tables.
// Both tables must sum to 1.0 within tolerance; Load rejects violations.
type ScoringConfig struct {
	DimensionWeights     map[string]float64 `yaml:"dimension_weights" mapstructure:"dimension_weights"`
	QualificationWeights map[string]float64 `yaml:"qualification_weights" mapstructure:"qualification_weights"`
	QualityThreshold     float64            `yaml:"quality_threshold" mapstructure:"quality_threshold"`
	MinQuestionScore     float64            `yaml:"min_question_score" mapstructure:"min_question_score"`
}

// TierConfig holds the ordered tier threshold table. Boundaries are
// inclusive at the lower bound.
type TierConfig struct {
	VIP    float64 `yaml:"vip" mapstructure:"vip"`
	High   float64 `yaml:"high" mapstructure:"high"`
	Medium float64 `yaml:"medium" mapstructure:"medium"`
}

// AnalysisConfig bounds the analysis engine.
type AnalysisConfig struct {
	MaxConcurrent  int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	DeadlineSecs   int `yaml:"deadline_secs" mapstructure:"deadline_secs"`
	StalenessHours int `yaml:"staleness_hours" mapstructure:"staleness_hours"`
	BulkQueueDepth int `yaml:"bulk_queue_depth" mapstructure:"bulk_queue_depth"`
}

// RetryConfig holds the shared retry policy applied to provider calls.
type RetryConfig struct {
	MaxAttempts    int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMs    int     `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMs     int     `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	Multiplier     float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment and validates it.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ACQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "acquisition.db")

	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.fallback_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)

	v.SetDefault("judge.max_concurrent", 3)
	v.SetDefault("judge.requests_per_second", 5.0)
	v.SetDefault("judge.min_evidence_len", 200)
	v.SetDefault("judge.low_confidence", 0.5)

	v.SetDefault("sources.adapter_timeout_secs", 30)

	v.SetDefault("gates.min_revenue_usd", 1_000_000)
	v.SetDefault("gates.tuck_in_revenue_usd", 500_000)
	v.SetDefault("gates.min_employees", 10)
	v.SetDefault("gates.min_age_years", 4)
	v.SetDefault("gates.funding_window_months", 18)
	v.SetDefault("gates.review_confidence", 0.7)

	v.SetDefault("scoring.dimension_weights", map[string]float64{
		"vms_focus":         0.20,
		"revenue_model":     0.15,
		"suite_vs_point":    0.10,
		"customer_quality":  0.15,
		"pricing_levels":    0.15,
		"funding_source":    0.10,
		"company_maturity":  0.10,
		"ownership_profile": 0.05,
	})
	v.SetDefault("scoring.qualification_weights", map[string]float64{
		"q1_horizontal_vs_vertical": 0.25,
		"q2_point_vs_suite":         0.20,
		"q3_mission_critical":       0.25,
		"q4_opm_vs_private":         0.15,
		"q5_arpu_level":             0.15,
	})
	v.SetDefault("scoring.quality_threshold", 7.0)
	v.SetDefault("scoring.min_question_score", 5.0)

	v.SetDefault("tier.vip", 9.0)
	v.SetDefault("tier.high", 8.0)
	v.SetDefault("tier.medium", 7.0)

	v.SetDefault("analysis.max_concurrent", 5)
	v.SetDefault("analysis.deadline_secs", 300)
	v.SetDefault("analysis.staleness_hours", 24)
	v.SetDefault("analysis.bulk_queue_depth", 50)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay_ms", 500)
	v.SetDefault("retry.max_delay_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)

	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate rejects configurations that violate engine invariants. Weight
// tables that do not sum to 1.0 are configuration errors, not runtime
// degradations.
func (c *Config) Validate() error {
	if err := validateWeights("scoring.dimension_weights", c.Scoring.DimensionWeights, 8); err != nil {
		return err
	}
	if err := validateWeights("scoring.qualification_weights", c.Scoring.QualificationWeights, 5); err != nil {
		return err
	}
	if !(c.Tier.VIP > c.Tier.High && c.Tier.High > c.Tier.Medium) {
		return eris.Errorf("config: tier thresholds must be strictly descending (vip=%.1f high=%.1f medium=%.1f)",
			c.Tier.VIP, c.Tier.High, c.Tier.Medium)
	}
	if c.Analysis.MaxConcurrent <= 0 {
		return eris.New("config: analysis.max_concurrent must be positive")
	}
	if c.Judge.MaxConcurrent <= 0 {
		return eris.New("config: judge.max_concurrent must be positive")
	}
	return nil
}

func validateWeights(name string, weights map[string]float64, wantEntries int) error {
	if len(weights) != wantEntries {
		return eris.Errorf("config: %s must have %d entries, got %d", name, wantEntries, len(weights))
	}
	var sum float64
	for key, w := range weights {
		if w < 0 {
			return eris.Errorf("config: %s[%s] is negative", name, key)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return eris.Errorf("config: %s must sum to 1.0 (got %.9f)", name, sum)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
