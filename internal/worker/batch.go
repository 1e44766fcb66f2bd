package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/bookgraph/internal/model"
)

// BookAnalyzer analyzes a single book into a character graph.
type BookAnalyzer interface {
	AnalyzeBook(ctx context.Context, id string) (*model.Graph, error)
}

// BookJob analyzes one book id.
type BookJob struct {
	Index    int
	ID       string
	Analyzer BookAnalyzer
}

// Execute runs the analysis and wraps the outcome.
func (j *BookJob) Execute(ctx context.Context) Result {
	start := time.Now()
	graph, err := j.Analyzer.AnalyzeBook(ctx, j.ID)
	return &BookResult{
		index:    j.Index,
		ID:       j.ID,
		Graph:    graph,
		Error:    err,
		Duration: time.Since(start),
	}
}

// BookResult is the outcome of one BookJob.
type BookResult struct {
	index int

	ID       string
	Graph    *model.Graph
	Error    error
	Duration time.Duration
}

// GetError returns the analysis error, if any.
func (r *BookResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many books concurrently. Each book's chunks are
// still analyzed one after another by the BookAnalyzer.
type BatchProcessor struct {
	analyzer    BookAnalyzer
	concurrency int
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(analyzer BookAnalyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessIDs analyzes every id and returns results in input order.
func (b *BatchProcessor) ProcessIDs(ctx context.Context, ids []string) []*BookResult {
	if len(ids) == 0 {
		return []*BookResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, id := range ids {
		if !pool.Submit(&BookJob{Index: i, ID: id, Analyzer: b.analyzer}) {
			break
		}
	}

	results := pool.Wait()

	out := make([]*BookResult, 0, len(results))
	for _, r := range results {
		out = append(out, r.(*BookResult))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })

	return out
}

// ProcessFile reads ids from filePath and analyzes them.
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*BookResult, error) {
	ids, err := ReadIDsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read ids: %w", err)
	}

	return b.ProcessIDs(ctx, ids), nil
}

// ReadIDsFromFile reads book ids, one per line. Blank lines and lines
// starting with # are skipped; duplicates keep their first position.
func ReadIDsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			ids = append(ids, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ids, nil
}
