package graph

import (
	"sort"
	"strings"

	"github.com/ppiankov/bookgraph/internal/model"
)

// pairKey identifies an unordered character pair; a sorts before b
type pairKey struct {
	a, b string
}

// Aggregator folds per-chunk analyses into a single character graph.
// It is not safe for concurrent use; create one per analysis.
type Aggregator struct {
	mentions   map[string]int
	nameOrder  []string
	pairCounts map[pairKey]int
	pairSums   map[pairKey]float64
	pairOrder  []pairKey
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		mentions:   make(map[string]int),
		pairCounts: make(map[pairKey]int),
		pairSums:   make(map[pairKey]float64),
	}
}

// Aggregate builds a graph from an ordered sequence of chunk analyses
func Aggregate(analyses []model.ChunkAnalysis) *model.Graph {
	agg := NewAggregator()
	for _, a := range analyses {
		agg.Add(a)
	}
	return agg.Graph()
}

// CanonicalName normalizes a character name for use as a graph key
func CanonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// newPairKey canonicalizes a pair. ok is false for empty names and self-loops.
func newPairKey(source, target string) (pairKey, bool) {
	a, b := CanonicalName(source), CanonicalName(target)
	if a == "" || b == "" || a == b {
		return pairKey{}, false
	}
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}, true
}

// Add folds one chunk analysis into the running totals
func (g *Aggregator) Add(analysis model.ChunkAnalysis) {
	for _, c := range analysis.Characters {
		name := CanonicalName(c)
		if name == "" {
			continue
		}
		if _, seen := g.mentions[name]; !seen {
			g.nameOrder = append(g.nameOrder, name)
		}
		g.mentions[name]++
	}

	for _, it := range analysis.Interactions {
		key, ok := newPairKey(it.Source, it.Target)
		if !ok {
			continue
		}
		if _, seen := g.pairCounts[key]; !seen {
			g.pairOrder = append(g.pairOrder, key)
		}
		g.pairCounts[key]++
		g.pairSums[key] += it.Sentiment()
	}
}

// Graph returns the snapshot of everything added so far.
// Links whose endpoints were never reported as characters are dropped.
func (g *Aggregator) Graph() *model.Graph {
	nodes := make([]model.Node, 0, len(g.nameOrder))
	for _, name := range g.nameOrder {
		count := g.mentions[name]
		if count == 0 {
			continue
		}
		nodes = append(nodes, model.Node{ID: name, Name: name, Value: count})
	}

	links := make([]model.Link, 0, len(g.pairOrder))
	for _, key := range g.pairOrder {
		count := g.pairCounts[key]
		if count == 0 {
			continue
		}
		if g.mentions[key.a] == 0 || g.mentions[key.b] == 0 {
			continue
		}
		links = append(links, model.Link{
			Source:         key.a,
			Target:         key.b,
			Count:          count,
			SentimentScore: mean(g.pairSums[key], count),
		})
	}

	return &model.Graph{
		Nodes:   nodes,
		Links:   links,
		Ranking: Rank(nodes),
	}
}

// Rank orders nodes by mention count, highest first. Ties keep node order.
func Rank(nodes []model.Node) []model.RankEntry {
	ranking := make([]model.RankEntry, len(nodes))
	for i, n := range nodes {
		ranking[i] = model.RankEntry{ID: n.ID, Count: n.Value}
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Count > ranking[j].Count
	})
	return ranking
}

func mean(sum float64, count int) *float64 {
	if count == 0 {
		return nil
	}
	avg := sum / float64(count)
	return &avg
}
