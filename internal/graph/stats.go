package graph

import (
	"sort"

	"github.com/ppiankov/bookgraph/internal/model"
)

type statsRow struct {
	appearances  int
	interactions int
	sentSum      float64
	sentDenom    int
}

// DeriveStats computes per-character appearances, interaction totals and
// count-weighted average sentiment. Characters that only occur in links are
// included with zero appearances. Rows are ordered by interactions, highest first.
func DeriveStats(g *model.Graph) []model.CharacterStats {
	if g == nil {
		return []model.CharacterStats{}
	}

	rows := make(map[string]*statsRow)
	var order []string
	row := func(id string) *statsRow {
		r, ok := rows[id]
		if !ok {
			r = &statsRow{}
			rows[id] = r
			order = append(order, id)
		}
		return r
	}

	for _, n := range g.Nodes {
		row(n.ID).appearances = n.Value
	}

	for _, l := range g.Links {
		for _, id := range []string{l.Source, l.Target} {
			r := row(id)
			r.interactions += l.Count
			if l.SentimentScore != nil {
				r.sentSum += *l.SentimentScore * float64(l.Count)
				r.sentDenom += l.Count
			}
		}
	}

	stats := make([]model.CharacterStats, 0, len(order))
	for _, id := range order {
		r := rows[id]
		s := model.CharacterStats{
			ID:           id,
			Appearances:  r.appearances,
			Interactions: r.interactions,
		}
		if r.sentDenom > 0 {
			avg := r.sentSum / float64(r.sentDenom)
			s.AvgSentiment = &avg
		}
		stats = append(stats, s)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Interactions > stats[j].Interactions
	})

	return stats
}
