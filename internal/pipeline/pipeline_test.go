package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ppiankov/bookgraph/internal/analyze"
	"github.com/ppiankov/bookgraph/internal/llm"
	"github.com/ppiankov/bookgraph/internal/metrics"
	"github.com/ppiankov/bookgraph/internal/model"
)

// scriptedAnalyzer returns canned analyses in call order.
type scriptedAnalyzer struct {
	mu      sync.Mutex
	results []model.ChunkAnalysis
	errAt   int
	chunks  []string
}

func (s *scriptedAnalyzer) AnalyzeChunk(ctx context.Context, chunk string) (model.ChunkAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := len(s.chunks)
	s.chunks = append(s.chunks, chunk)
	if s.errAt > 0 && i+1 == s.errAt {
		return model.ChunkAnalysis{}, errors.New("model unavailable")
	}
	if i < len(s.results) {
		return s.results[i], nil
	}
	return model.ChunkAnalysis{}, nil
}

func sentiment(v float64) *float64 { return &v }

func TestAnalyzeText_RomeoAndJuliet(t *testing.T) {
	analyzer := &scriptedAnalyzer{results: []model.ChunkAnalysis{
		{
			Characters:   []string{"Romeo", "Juliet"},
			Interactions: []model.Interaction{{Source: "Romeo", Target: "Juliet", SentimentScore: sentiment(0.8)}},
		},
		{
			Characters:   []string{" romeo "},
			Interactions: []model.Interaction{{Source: "juliet", Target: "ROMEO", SentimentScore: sentiment(0.2)}},
		},
	}}

	p := New(nil, analyzer, model.AnalysisConfig{MaxChars: 20, ChunkSize: 10}, nil)
	g, err := p.AnalyzeText(context.Background(), strings.Repeat("r", 20))
	if err != nil {
		t.Fatalf("AnalyzeText failed: %v", err)
	}

	if len(analyzer.chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(analyzer.chunks))
	}
	if len(g.Nodes) != 2 || g.Nodes[0].ID != "romeo" || g.Nodes[0].Value != 2 || g.Nodes[1].Value != 1 {
		t.Errorf("unexpected nodes: %+v", g.Nodes)
	}
	if len(g.Links) != 1 {
		t.Fatalf("expected 1 link, got %+v", g.Links)
	}
	l := g.Links[0]
	if l.Source != "juliet" || l.Target != "romeo" || l.Count != 2 || *l.SentimentScore != 0.5 {
		t.Errorf("unexpected link: %+v", l)
	}
}

func TestAnalyzeText_UnparseableChunkContributesNothing(t *testing.T) {
	// The middle chunk stands in for model output that failed to parse.
	analyzer := &scriptedAnalyzer{results: []model.ChunkAnalysis{
		{Characters: []string{"Alice"}},
		{},
		{Characters: []string{"Alice", "Bob"}},
	}}

	p := New(nil, analyzer, model.AnalysisConfig{MaxChars: 30, ChunkSize: 10}, nil)
	g, err := p.AnalyzeText(context.Background(), strings.Repeat("x", 30))
	if err != nil {
		t.Fatalf("AnalyzeText failed: %v", err)
	}
	if len(g.Nodes) != 2 || g.Nodes[0].Value != 2 || g.Nodes[1].Value != 1 {
		t.Errorf("unexpected nodes: %+v", g.Nodes)
	}
}

func TestAnalyzeText_AnalyzerErrorFailsRun(t *testing.T) {
	analyzer := &scriptedAnalyzer{errAt: 2}

	p := New(nil, analyzer, model.AnalysisConfig{MaxChars: 30, ChunkSize: 10}, nil)
	_, err := p.AnalyzeText(context.Background(), strings.Repeat("x", 30))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "chunk 2/3") {
		t.Errorf("expected failing chunk in error, got %v", err)
	}
	if len(analyzer.chunks) != 2 {
		t.Errorf("expected analysis to stop at the failing chunk, got %d calls", len(analyzer.chunks))
	}
}

func TestAnalyzeText_EmptyText(t *testing.T) {
	p := New(nil, &scriptedAnalyzer{}, model.AnalysisConfig{}, nil)
	g, err := p.AnalyzeText(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 0 || len(g.Links) != 0 {
		t.Errorf("expected empty graph, got %+v", g)
	}
}

func TestAnalyzeText_NoAnalyzer(t *testing.T) {
	p := New(nil, nil, model.AnalysisConfig{}, nil)
	if _, err := p.AnalyzeText(context.Background(), "text"); !errors.Is(err, ErrNoAnalyzer) {
		t.Errorf("expected ErrNoAnalyzer, got %v", err)
	}
}

func TestAnalyzeText_Normalizes(t *testing.T) {
	analyzer := &scriptedAnalyzer{}
	p := New(nil, analyzer, model.AnalysisConfig{ChunkSize: 100}, nil)

	// BOM followed by "e" + combining acute accent.
	if _, err := p.AnalyzeText(context.Background(), "\uFEFFe\u0301"); err != nil {
		t.Fatal(err)
	}
	if len(analyzer.chunks) != 1 || analyzer.chunks[0] != "\u00e9" {
		t.Errorf("expected BOM stripped and NFC composed text, got %q", analyzer.chunks)
	}
}

func TestAnalyzeBook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "999") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("Romeo speaks to Juliet."))
	}))
	defer server.Close()

	analyzer := &scriptedAnalyzer{results: []model.ChunkAnalysis{{Characters: []string{"Romeo"}}}}
	p := New(NewFetcher(sourceFor(server)), analyzer, model.AnalysisConfig{MaxChars: 20000, ChunkSize: 2000}, nil)

	g, err := p.AnalyzeBook(context.Background(), "1513")
	if err != nil {
		t.Fatalf("AnalyzeBook failed: %v", err)
	}
	if len(g.Nodes) != 1 || g.Nodes[0].ID != "romeo" {
		t.Errorf("unexpected graph %+v", g)
	}
	if analyzer.chunks[0] != "Romeo speaks to Juliet." {
		t.Errorf("unexpected chunk %q", analyzer.chunks[0])
	}

	_, err = p.AnalyzeBook(context.Background(), "999")
	var fe *FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusNotFound {
		t.Errorf("expected wrapped 404 FetchError, got %v", err)
	}
}

// scriptedProvider answers model calls with canned completions in call order.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) IsAvailable(ctx context.Context) bool { return true }

func (s *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		return nil, errors.New("no scripted response left")
	}
	return &llm.CompletionResponse{Content: s.responses[i], Model: "scripted"}, nil
}

func counterValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		total := 0.0
		for _, metric := range f.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
		return total
	}
	return 0
}

func TestAnalyzeText_GarbageModelOutputForOneChunk(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"characters": ["Romeo", "Juliet"], "interactions": [{"source": "Romeo", "target": "Juliet", "sentiment_score": 0.8}]}`,
		`I'm sorry, I cannot help with that request.`,
		"```json\n{\"characters\": [\"romeo\"], \"interactions\": [{\"source\": \"juliet\", \"target\": \"romeo\", \"sentiment_score\": \"0.2\"}]}\n```",
	}}
	m := metrics.New()
	analyzer := analyze.New(provider, analyze.WithMetrics(m))

	p := New(nil, analyzer, model.AnalysisConfig{MaxChars: 30, ChunkSize: 10}, nil)
	g, err := p.AnalyzeText(context.Background(), strings.Repeat("x", 30))
	if err != nil {
		t.Fatalf("AnalyzeText failed: %v", err)
	}

	if provider.calls != 3 {
		t.Fatalf("expected 3 model calls, got %d", provider.calls)
	}
	if len(g.Nodes) != 2 || g.Nodes[0].ID != "romeo" || g.Nodes[0].Value != 2 || g.Nodes[1].Value != 1 {
		t.Errorf("unexpected nodes: %+v", g.Nodes)
	}
	if len(g.Links) != 1 || g.Links[0].Count != 2 || *g.Links[0].SentimentScore != 0.5 {
		t.Errorf("unexpected links: %+v", g.Links)
	}

	if got := counterValue(t, m, "bookgraph_chunks_analyzed_total"); got != 3 {
		t.Errorf("expected 3 analyzed chunks, got %v", got)
	}
	if got := counterValue(t, m, "bookgraph_chunk_parse_failures_total"); got != 1 {
		t.Errorf("expected 1 parse failure, got %v", got)
	}
}
