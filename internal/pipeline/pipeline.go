package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/bookgraph/internal/graph"
	"github.com/ppiankov/bookgraph/internal/model"
)

// ErrNoAnalyzer is returned by analysis calls on a fetch-only pipeline.
var ErrNoAnalyzer = errors.New("no language model configured")

// ChunkAnalyzer extracts characters and interactions from one chunk.
type ChunkAnalyzer interface {
	AnalyzeChunk(ctx context.Context, chunk string) (model.ChunkAnalysis, error)
}

// Pipeline wires fetching, chunking, chunk analysis and aggregation.
type Pipeline struct {
	fetcher   *Fetcher
	analyzer  ChunkAnalyzer
	maxChars  int
	chunkSize int
	logger    *zap.Logger
}

// New creates a pipeline. analyzer may be nil for fetch-only use.
func New(fetcher *Fetcher, analyzer ChunkAnalyzer, cfg model.AnalysisConfig, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Pipeline{
		fetcher:   fetcher,
		analyzer:  analyzer,
		maxChars:  cfg.MaxChars,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// FetchBook returns the raw text of book id.
func (p *Pipeline) FetchBook(ctx context.Context, id string) (*model.Book, error) {
	return p.fetcher.FetchBook(ctx, id)
}

// FetchMetadata returns the catalog metadata of book id.
func (p *Pipeline) FetchMetadata(ctx context.Context, id string) (*model.BookMetadata, error) {
	return p.fetcher.FetchMetadata(ctx, id)
}

// AnalyzeBook fetches book id and analyzes its text.
func (p *Pipeline) AnalyzeBook(ctx context.Context, id string) (*model.Graph, error) {
	book, err := p.fetcher.FetchBook(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch book %s: %w", id, err)
	}

	return p.AnalyzeText(ctx, book.Content)
}

// AnalyzeText chunks text, analyzes the chunks in order and aggregates the
// results. The first chunk analysis error aborts the run.
func (p *Pipeline) AnalyzeText(ctx context.Context, text string) (*model.Graph, error) {
	if p.analyzer == nil {
		return nil, ErrNoAnalyzer
	}

	chunks := SplitChunks(normalize(text), p.maxChars, p.chunkSize)
	start := time.Now()

	agg := graph.NewAggregator()
	empty := 0
	for i, chunk := range chunks {
		analysis, err := p.analyzer.AnalyzeChunk(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("analyze chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if analysis.IsEmpty() {
			empty++
		}
		agg.Add(analysis)

		p.logger.Debug("chunk analyzed",
			zap.Int("chunk", i+1),
			zap.Int("of", len(chunks)),
			zap.Int("characters", len(analysis.Characters)),
			zap.Int("interactions", len(analysis.Interactions)),
		)
	}

	g := agg.Graph()
	p.logger.Info("analysis complete",
		zap.Int("chunks", len(chunks)),
		zap.Int("empty_chunks", empty),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("links", len(g.Links)),
		zap.Duration("took", time.Since(start)),
	)

	return g, nil
}

// normalize drops a leading byte order mark and composes the text to NFC
// so character counts match what a reader sees.
func normalize(text string) string {
	text = strings.TrimPrefix(text, "\uFEFF")
	return norm.NFC.String(text)
}
