package analyze

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/spf13/cast"

	"github.com/ppiankov/bookgraph/internal/model"
)

// chunkPayload is model output before per-item decoding. Items stay raw so
// that one malformed entry cannot reject the rest of the chunk.
type chunkPayload struct {
	Characters   []json.RawMessage `json:"characters"`
	Interactions []json.RawMessage `json:"interactions"`
}

type interactionPayload struct {
	Source         string `json:"source"`
	Target         string `json:"target"`
	SentimentScore any    `json:"sentiment_score"`
}

// analysis decodes every item on its own. Characters that are not strings are
// skipped; the second result counts interactions that could not be decoded.
func (p chunkPayload) analysis() (model.ChunkAnalysis, int) {
	out := model.ChunkAnalysis{
		Characters:   make([]string, 0, len(p.Characters)),
		Interactions: make([]model.Interaction, 0, len(p.Interactions)),
	}

	for _, raw := range p.Characters {
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			out.Characters = append(out.Characters, name)
		}
	}

	malformed := 0
	for _, raw := range p.Interactions {
		it, err := decodeInteraction(raw)
		if err != nil {
			malformed++
			continue
		}
		out.Interactions = append(out.Interactions, it)
	}

	return out, malformed
}

// decodeInteraction accepts sentiment as a number or a numeric string.
// null, an absent field and "" all mean no sentiment.
func decodeInteraction(raw json.RawMessage) (model.Interaction, error) {
	var p interactionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.Interaction{}, err
	}

	it := model.Interaction{Source: p.Source, Target: p.Target}

	v := p.SentimentScore
	if str, ok := v.(string); ok {
		str = strings.TrimSpace(str)
		if str == "" {
			return it, nil
		}
		v = str
	}
	if v == nil {
		return it, nil
	}

	score, err := cast.ToFloat64E(v)
	if err != nil {
		return model.Interaction{}, fmt.Errorf("sentiment_score: %w", err)
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return model.Interaction{}, errors.New("sentiment_score is not a finite number")
	}
	it.SentimentScore = &score
	return it, nil
}

// stripCodeFence removes a surrounding markdown fence such as ```json ... ```.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func stripDuplicateLeadingBrace(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		rest := strings.TrimSpace(s[1:])
		if strings.HasPrefix(rest, "{") {
			return rest
		}
	}
	return s
}

// unmarshalFlexible decodes model output into a T, trying plain JSON, then
// a double-encoded JSON string, then a repaired document. Each attempt
// starts from a zero value so a failed attempt leaves nothing behind.
func unmarshalFlexible[T any](input string) (T, error) {
	var zero T

	input = stripCodeFence(input)
	if input == "" {
		return zero, fmt.Errorf("empty model output")
	}

	if v, err := decode[T](input); err == nil {
		return v, nil
	}

	var asString string
	if err := json.Unmarshal([]byte(input), &asString); err == nil {
		asString = stripCodeFence(asString)
		if v, err := decode[T](asString); err == nil {
			return v, nil
		}
		input = asString
	}

	input = stripDuplicateLeadingBrace(input)
	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return zero, fmt.Errorf("json repair failed: %w", err)
	}

	v, err := decode[T](repaired)
	if err != nil {
		return zero, fmt.Errorf("unmarshal after repair: %w", err)
	}
	return v, nil
}

func decode[T any](s string) (T, error) {
	var v T
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}
