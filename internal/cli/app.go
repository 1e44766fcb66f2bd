package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/bookgraph/internal/analyze"
	"github.com/ppiankov/bookgraph/internal/llm"
	"github.com/ppiankov/bookgraph/internal/logger"
	"github.com/ppiankov/bookgraph/internal/metrics"
	"github.com/ppiankov/bookgraph/internal/model"
	"github.com/ppiankov/bookgraph/internal/pipeline"
	"github.com/ppiankov/bookgraph/internal/worker"
)

// app holds everything a command needs, built once from the configuration
type app struct {
	cfg      *model.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	pipeline *pipeline.Pipeline
	provider string
	llm      llm.Provider
}

const availabilityTimeout = 5 * time.Second

// newApp wires fetcher, analyzer and pipeline. Without requireAnalyzer a
// misconfigured LLM provider only disables analysis.
func newApp(requireAnalyzer bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	m := metrics.New()
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	fetcher := pipeline.NewFetcher(cfg.Source,
		pipeline.WithFetchLimiter(limiter),
		pipeline.WithFetchMetrics(m),
		pipeline.WithFetchLogger(log),
	)

	a := &app{cfg: cfg, logger: log, metrics: m}

	var analyzer pipeline.ChunkAnalyzer
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.Source))
	if err != nil {
		if requireAnalyzer {
			_ = log.Sync()
			return nil, fmt.Errorf("configure LLM provider: %w", err)
		}
		log.Warn("LLM provider unavailable, analysis disabled", zap.Error(err))
	} else {
		a.provider = provider.Name()
		a.llm = provider
		analyzer = analyze.New(provider,
			analyze.WithModel(cfg.LLM.Model),
			analyze.WithMaxTokens(cfg.LLM.MaxTokens),
			analyze.WithLimiter(limiter),
			analyze.WithMetrics(m),
			analyze.WithLogger(log),
		)
	}

	a.pipeline = pipeline.New(fetcher, analyzer, cfg.Analysis, log)
	return a, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// providerLabel describes the configured model for banners
func (a *app) providerLabel() string {
	if a.provider == "" {
		return "disabled"
	}
	if a.cfg.LLM.Model == "" {
		return a.provider
	}
	return a.provider + "/" + a.cfg.LLM.Model
}

// checkProvider warns when the configured provider does not answer. Analysis
// requests would fail against it, but fetching still works.
func (a *app) checkProvider(ctx context.Context) bool {
	return providerReachable(ctx, a.llm, a.logger)
}

func providerReachable(ctx context.Context, p llm.Provider, log *zap.Logger) bool {
	if p == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()

	if !p.IsAvailable(ctx) {
		log.Warn("LLM provider is not reachable, analysis requests will fail",
			zap.String("provider", p.Name()),
		)
		return false
	}
	log.Debug("LLM provider reachable", zap.String("provider", p.Name()))
	return true
}
