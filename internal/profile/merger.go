// Package profile implements the merge engine that folds freshly extracted
// pattern sets into a user's stored voice profile.
//
// Merging is a pure computation: scalar fields blend by exponential moving
// average, list fields union with bounded caps, categorical fields follow
// the newest analysis, and "ever observed" booleans are sticky. The merge
// weight decides how hard a new observation pulls the profile — the first
// session replaces outright, later sessions only nudge.
package profile

import (
	"strings"

	"github.com/MrWong99/voxprint/internal/pattern"
	"github.com/MrWong99/voxprint/pkg/voice"
)

// Merge weights by event type. Early data dominates the profile quickly;
// later noisy signals only nudge it.
const (
	// WeightFirstSession applies to the very first analysis on a profile.
	// With no prior state the new pattern set replaces outright.
	WeightFirstSession = 1.0

	// WeightVoiceSession applies to a normal subsequent voice session.
	WeightVoiceSession = 0.3

	// WeightSupplementary applies to low-confidence sources such as
	// onboarding follow-up answers.
	WeightSupplementary = 0.2
)

// MergePatterns combines an existing stored pattern set with a newly
// sanitized one. existing == nil means first-ever analysis: next is returned
// unchanged and weight is irrelevant.
//
// weight must be in (0, 1]; out-of-range values are clamped. Both inputs are
// left unmodified.
func MergePatterns(existing *voice.PatternSet, next voice.PatternSet, weight float64) voice.PatternSet {
	if existing == nil {
		return next
	}
	weight = clampWeight(weight)

	out := voice.PatternSet{}

	// Vocabulary: bounded unions with the new list in priority position;
	// preserve-fillers is sticky.
	out.Spoken.Vocabulary = voice.Vocabulary{
		FrequentWords: mergeList(next.Spoken.Vocabulary.FrequentWords,
			existing.Spoken.Vocabulary.FrequentWords, pattern.MaxFrequentWords),
		UniquePhrases: mergeList(next.Spoken.Vocabulary.UniquePhrases,
			existing.Spoken.Vocabulary.UniquePhrases, pattern.MaxUniquePhrases),
		FillerWords: mergeList(next.Spoken.Vocabulary.FillerWords,
			existing.Spoken.Vocabulary.FillerWords, pattern.MaxFillerWords),
		PreserveFillers: existing.Spoken.Vocabulary.PreserveFillers ||
			next.Spoken.Vocabulary.PreserveFillers,
	}

	// Rhythm: categorical fields always follow the newest analysis.
	out.Spoken.Rhythm = next.Spoken.Rhythm

	// Rhetoric: sticky booleans, newest storytelling style.
	out.Spoken.Rhetoric = voice.Rhetoric{
		UsesQuestions:     existing.Spoken.Rhetoric.UsesQuestions || next.Spoken.Rhetoric.UsesQuestions,
		UsesAnalogies:     existing.Spoken.Rhetoric.UsesAnalogies || next.Spoken.Rhetoric.UsesAnalogies,
		StorytellingStyle: next.Spoken.Rhetoric.StorytellingStyle,
	}

	out.Spoken.Enthusiasm = voice.Enthusiasm{
		ExcitingTopics: mergeList(next.Spoken.Enthusiasm.ExcitingTopics,
			existing.Spoken.Enthusiasm.ExcitingTopics, pattern.MaxExcitingTopics),
		EmphasisPatterns: mergeList(next.Spoken.Enthusiasm.EmphasisPatterns,
			existing.Spoken.Enthusiasm.EmphasisPatterns, pattern.MaxEmphasisPatterns),
		EnergyBaseline: blend(existing.Spoken.Enthusiasm.EnergyBaseline,
			next.Spoken.Enthusiasm.EnergyBaseline, weight),
	}

	out.Tonal = voice.TonalAttributes{
		Warmth:     blend(existing.Tonal.Warmth, next.Tonal.Warmth, weight),
		Authority:  blend(existing.Tonal.Authority, next.Tonal.Authority, weight),
		Humor:      blend(existing.Tonal.Humor, next.Tonal.Humor, weight),
		Directness: blend(existing.Tonal.Directness, next.Tonal.Directness, weight),
		Empathy:    blend(existing.Tonal.Empathy, next.Tonal.Empathy, weight),
	}

	return out
}

// AggregateWritten re-derives the written patterns from scratch over every
// currently stored analyzed sample, oldest first. Unlike voice sessions,
// writing samples are never merged incrementally — deleting a sample simply
// drops it out of the next aggregation.
//
// Scalars take the equal-weight mean across samples; categorical fields
// follow the most recent sample. Returns nil when no sample carries
// completed patterns.
func AggregateWritten(samples []voice.WrittenPatterns) *voice.WrittenPatterns {
	if len(samples) == 0 {
		return nil
	}

	out := samples[0]
	var formality float64
	for i, s := range samples {
		formality += s.Formality
		if i > 0 {
			out.StructurePreference = s.StructurePreference
			out.ParagraphLength = s.ParagraphLength
			out.OpeningStyle = s.OpeningStyle
			out.ClosingStyle = s.ClosingStyle
		}
	}
	out.Formality = formality / float64(len(samples))
	return &out
}

// blend is a single exponential-moving-average step.
func blend(existing, next, weight float64) float64 {
	return existing*(1-weight) + next*weight
}

// clampWeight forces weight into (0, 1]. A non-positive weight degenerates
// to the supplementary default rather than freezing the profile.
func clampWeight(w float64) float64 {
	if w <= 0 {
		return WeightSupplementary
	}
	if w > 1 {
		return 1
	}
	return w
}

// mergeList unions next and existing with next's elements taking priority
// position, deduplicates case-insensitively (first occurrence wins), and
// truncates to max entries.
func mergeList(next, existing []string, max int) []string {
	out := make([]string, 0, max)
	seen := make(map[string]struct{}, len(next)+len(existing))
	for _, list := range [2][]string{next, existing} {
		for _, item := range list {
			trimmed := strings.TrimSpace(item)
			if trimmed == "" {
				continue
			}
			key := strings.ToLower(trimmed)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, trimmed)
			if len(out) == max {
				return out
			}
		}
	}
	return out
}
