package referent

import (
	"context"
	"fmt"
	"sort"

	"github.com/MrWong99/voxprint/internal/profile/profilestore"
	"github.com/MrWong99/voxprint/pkg/provider/embeddings"
)

// neighborSamples is how many of the user's nearest samples each candidate
// is scored against.
const neighborSamples = 5

// Candidate is a referent the suggester can recommend, described in a
// sentence or two of its style.
type Candidate struct {
	Name        string
	Description string
}

// Suggestion is a ranked candidate. Score is mean cosine similarity to the
// user's closest writing samples, in [-1, 1], higher is more alike.
type Suggestion struct {
	Name  string
	Score float64
}

// SampleIndex is the slice of the store the suggester needs.
type SampleIndex interface {
	NearestSamples(ctx context.Context, userID string, embedding []float32, topK int) ([]profilestore.SampleMatch, error)
}

// Suggester ranks candidate referents by how close their described style
// sits to a user's own writing in embedding space.
type Suggester struct {
	emb   embeddings.Provider
	index SampleIndex
}

// NewSuggester returns a [Suggester] over the given embedding provider and
// sample index.
func NewSuggester(emb embeddings.Provider, index SampleIndex) *Suggester {
	return &Suggester{emb: emb, index: index}
}

// Suggest ranks candidates against the user's stored writing samples,
// most similar first. Candidates with no embedded sample to compare
// against are omitted; a user without embedded samples gets an empty
// ranking, not an error.
func (s *Suggester) Suggest(ctx context.Context, userID string, candidates []Candidate) ([]Suggestion, error) {
	if len(candidates) == 0 {
		return []Suggestion{}, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Description
	}
	vectors, err := s.emb.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("referent: embed candidates: %w", err)
	}
	if len(vectors) != len(candidates) {
		return nil, fmt.Errorf("referent: expected %d candidate embeddings, got %d", len(candidates), len(vectors))
	}

	suggestions := []Suggestion{}
	for i, c := range candidates {
		matches, err := s.index.NearestSamples(ctx, userID, vectors[i], neighborSamples)
		if err != nil {
			return nil, fmt.Errorf("referent: rank candidate %q: %w", c.Name, err)
		}
		if len(matches) == 0 {
			continue
		}
		total := 0.0
		for _, m := range matches {
			total += 1 - m.Distance
		}
		suggestions = append(suggestions, Suggestion{
			Name:  c.Name,
			Score: total / float64(len(matches)),
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Name < suggestions[j].Name
	})
	return suggestions, nil
}
