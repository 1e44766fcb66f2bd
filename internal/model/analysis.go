package model

// Interaction is a single character-to-character interaction reported for a chunk
type Interaction struct {
	Source         string   `json:"source" validate:"required" jsonschema:"required,description=Name of the first character"`
	Target         string   `json:"target" validate:"required,nefield=Source" jsonschema:"required,description=Name of the second character; never the same as source"`
	SentimentScore *float64 `json:"sentiment_score,omitempty" jsonschema:"minimum=-1,maximum=1,description=Valence of the interaction from -1 (hostile) to 1 (warm)"`
}

// Sentiment returns the reported sentiment or 0 when none was given
func (i Interaction) Sentiment() float64 {
	if i.SentimentScore == nil {
		return 0
	}
	return *i.SentimentScore
}

// ChunkAnalysis is the structured extraction result for one chunk of text.
// An empty value is a valid result: the chunk either had nothing to report
// or the model output could not be parsed.
type ChunkAnalysis struct {
	Characters   []string      `json:"characters" jsonschema:"required,description=Names of the characters present in the chunk"`
	Interactions []Interaction `json:"interactions" jsonschema:"required,description=Pairs of characters who talk to or act on each other"`
}

// IsEmpty reports whether the analysis carries no characters and no interactions
func (a ChunkAnalysis) IsEmpty() bool {
	return len(a.Characters) == 0 && len(a.Interactions) == 0
}
