package embedding

import (
	"context"
	"regexp"
	"strings"
)

// DefaultFrequencyDimension is the vector size of the frequency embedder.
const DefaultFrequencyDimension = 384

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// Frequency is a deterministic bag-of-words embedder: tokens are
// lowercased, punctuation-stripped, tokens of two characters or fewer are
// dropped, and up to Dimension unique terms are placed into fixed vector
// slots by first-seen order, weighted by term frequency over total tokens.
//
// It is a stand-in, not a learned embedding: cheap, dependency-free and
// reproducible for a given configuration. A real model can be substituted
// behind the Embedder interface without touching callers.
type Frequency struct {
	dimension int
}

var _ Embedder = (*Frequency)(nil)

// NewFrequency returns a frequency embedder of the given dimension
// (DefaultFrequencyDimension when 0).
func NewFrequency(dimension int) *Frequency {
	if dimension <= 0 {
		dimension = DefaultFrequencyDimension
	}
	return &Frequency{dimension: dimension}
}

func (f *Frequency) Model() string { return "frequency-bow" }

func (f *Frequency) Dimension() int { return f.dimension }

func (f *Frequency) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, f.dimension)

	var tokens []string
	for _, tok := range tokenSplit.Split(strings.ToLower(text), -1) {
		if len(tok) > 2 {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return vec, nil
	}

	slots := make(map[string]int, len(tokens))
	next := 0
	total := float32(len(tokens))
	for _, tok := range tokens {
		slot, seen := slots[tok]
		if !seen {
			if next >= f.dimension {
				continue // vocabulary overflow: excess terms are dropped
			}
			slot = next
			slots[tok] = slot
			next++
		}
		vec[slot] += 1 / total
	}
	return vec, nil
}

func (f *Frequency) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
