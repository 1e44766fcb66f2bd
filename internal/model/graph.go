package model

// Graph is the character-interaction graph produced for one book.
// It is rebuilt for every analysis and only lives on inside the response cache.
type Graph struct {
	Nodes   []Node      `json:"nodes"`
	Links   []Link      `json:"links"`
	Ranking []RankEntry `json:"ranking,omitempty"`
}

// Node is a unique character keyed by its canonical name
type Node struct {
	ID    string `json:"id"`    // Canonical name
	Name  string `json:"name"`  // Same as ID, kept for graph renderers
	Value int    `json:"value"` // Mention count
}

// Link is an unordered character pair. Source sorts before Target.
type Link struct {
	Source         string   `json:"source"`
	Target         string   `json:"target"`
	Count          int      `json:"count"`           // Times the pair was reported
	SentimentScore *float64 `json:"sentiment_score"` // Mean reported sentiment, null if Count is 0
}

// RankEntry is one row of the mention ranking
type RankEntry struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// CharacterStats summarizes one character across the whole graph
type CharacterStats struct {
	ID           string   `json:"id"`
	Appearances  int      `json:"appearances"`   // Node mention count
	Interactions int      `json:"interactions"`  // Sum of link counts touching the character
	AvgSentiment *float64 `json:"avg_sentiment"` // Link sentiment weighted by link count
}

// StatsReport is the per-character breakdown of one analyzed book
type StatsReport struct {
	ID         string           `json:"id"`
	Characters []CharacterStats `json:"characters"`
}
