// Package analyze turns one chunk of book text into a structured list of
// characters and interactions by asking a language model.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"github.com/ppiankov/bookgraph/internal/llm"
	"github.com/ppiankov/bookgraph/internal/metrics"
	"github.com/ppiankov/bookgraph/internal/model"
	"github.com/ppiankov/bookgraph/internal/worker"
)

// Analyzer extracts a ChunkAnalysis from text through an llm.Provider.
type Analyzer struct {
	provider  llm.Provider
	model     string
	maxTokens int
	schema    string

	validate *validator.Validate
	limiter  *worker.Limiter
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithModel overrides the provider's configured model.
func WithModel(name string) Option {
	return func(a *Analyzer) { a.model = name }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(a *Analyzer) { a.maxTokens = n }
}

// WithLimiter throttles model calls, keyed by provider name.
func WithLimiter(l *worker.Limiter) Option {
	return func(a *Analyzer) { a.limiter = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// New creates an Analyzer backed by provider.
func New(provider llm.Provider, opts ...Option) *Analyzer {
	a := &Analyzer{
		provider: provider,
		schema:   Schema(),
		validate: validator.New(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Schema returns the JSON Schema of the model's expected output.
func Schema() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	data, err := json.MarshalIndent(reflector.Reflect(&model.ChunkAnalysis{}), "", "  ")
	if err != nil {
		// Reflection of a fixed type cannot fail at runtime.
		panic(fmt.Sprintf("generate schema: %v", err))
	}
	return string(data)
}

// AnalyzeChunk sends chunk to the model and returns the validated result.
//
// Output that cannot be decoded yields an empty analysis and a nil error;
// only a failed model call is reported as an error.
func (a *Analyzer) AnalyzeChunk(ctx context.Context, chunk string) (model.ChunkAnalysis, error) {
	if err := a.limiter.WaitKey(ctx, a.provider.Name()); err != nil {
		return model.ChunkAnalysis{}, fmt.Errorf("rate limit: %w", err)
	}

	start := time.Now()
	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		System:    fmt.Sprintf(systemPrompt, a.schema),
		Prompt:    fmt.Sprintf(userPrompt, chunk),
		JSON:      true,
		Model:     a.model,
		MaxTokens: a.maxTokens,
	})
	a.metrics.ObserveLLM(a.provider.Name(), time.Since(start), err)
	if err != nil {
		return model.ChunkAnalysis{}, fmt.Errorf("model call: %w", err)
	}
	a.metrics.ChunkAnalyzed()

	analysis, ok := a.Parse(resp.Content)
	if !ok {
		a.metrics.ChunkParseFailed()
		a.logger.Warn("unparseable model output, chunk contributes nothing",
			zap.String("provider", a.provider.Name()),
			zap.Int("output_len", len(resp.Content)),
		)
	}

	return analysis, nil
}

// Parse decodes and validates raw model output. The boolean is false when
// nothing could be decoded; the returned analysis is then empty.
func (a *Analyzer) Parse(raw string) (model.ChunkAnalysis, bool) {
	payload, err := unmarshalFlexible[chunkPayload](raw)
	if err != nil {
		a.logger.Debug("decode model output", zap.Error(err))
		return model.ChunkAnalysis{}, false
	}

	decoded, malformed := payload.analysis()
	if malformed > 0 {
		a.logger.Debug("dropping undecodable interactions", zap.Int("count", malformed))
	}
	return a.sanitize(decoded, malformed), true
}

// sanitize drops blank names and invalid interactions and clamps sentiment.
// dropped carries interactions already rejected while decoding.
func (a *Analyzer) sanitize(in model.ChunkAnalysis, dropped int) model.ChunkAnalysis {
	out := model.ChunkAnalysis{
		Characters:   make([]string, 0, len(in.Characters)),
		Interactions: make([]model.Interaction, 0, len(in.Interactions)),
	}

	for _, name := range in.Characters {
		name = strings.TrimSpace(name)
		if name != "" {
			out.Characters = append(out.Characters, name)
		}
	}

	for _, it := range in.Interactions {
		it.Source = strings.TrimSpace(it.Source)
		it.Target = strings.TrimSpace(it.Target)
		if err := a.validate.Struct(it); err != nil {
			dropped++
			a.logger.Debug("dropping interaction",
				zap.String("source", it.Source),
				zap.String("target", it.Target),
				zap.Error(err),
			)
			continue
		}
		if it.SentimentScore != nil {
			s := clamp(*it.SentimentScore)
			it.SentimentScore = &s
		}
		out.Interactions = append(out.Interactions, it)
	}
	a.metrics.InteractionsRejected(dropped)

	return out
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
