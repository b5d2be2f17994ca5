// Package pattern owns the boundary between the external LLM pattern
// extractor and the profile engine.
//
// The LLM collaborator returns linguistic attributes of uncertain shape and
// range. Nothing past this package ever sees that raw payload: [Sanitize]
// and [SanitizeWritten] repair any malformed or out-of-range input into a
// complete, range-clamped structure, and [Extractor] wraps the LLM call
// itself, falling back to the neutral defaults when the model cannot be
// reached or returns garbage. The merge stage is therefore guaranteed to
// never see an invalid shape.
package pattern

import "github.com/MrWong99/voxprint/pkg/voice"

// List caps applied after sanitization and after every merge.
const (
	MaxFrequentWords    = 10
	MaxUniquePhrases    = 5
	MaxFillerWords      = 5
	MaxExcitingTopics   = 8
	MaxEmphasisPatterns = 5
)

// neutralScalar is the midpoint default for every [0,1] scalar field.
const neutralScalar = 0.5

// Defaults returns the neutral pattern set: all scalars at 0.5, empty lists,
// bland categorical values. Used both as the per-field fallback during
// sanitization and as the whole-set fallback when extraction fails outright.
func Defaults() voice.PatternSet {
	return voice.PatternSet{
		Spoken: voice.SpokenPatterns{
			Vocabulary: voice.Vocabulary{
				FrequentWords: []string{},
				UniquePhrases: []string{},
				FillerWords:   []string{},
			},
			Rhythm: voice.Rhythm{
				SentenceLength: voice.SentenceMedium,
				Pace:           voice.PaceModerate,
				PausePattern:   voice.PausesNatural,
			},
			Rhetoric: voice.Rhetoric{
				StorytellingStyle: voice.StoryLinear,
			},
			Enthusiasm: voice.Enthusiasm{
				ExcitingTopics:   []string{},
				EmphasisPatterns: []string{},
				EnergyBaseline:   neutralScalar,
			},
		},
		Tonal: voice.TonalAttributes{
			Warmth:     neutralScalar,
			Authority:  neutralScalar,
			Humor:      neutralScalar,
			Directness: neutralScalar,
			Empathy:    neutralScalar,
		},
	}
}

// WrittenDefaults returns the bland written-pattern structure: linear
// structure, context opening, summary closing, medium paragraphs, midpoint
// formality. These are the values the calibration scorer treats as
// "no signal" when assessing written-pattern richness.
func WrittenDefaults() voice.WrittenPatterns {
	return voice.WrittenPatterns{
		StructurePreference: voice.StructureLinear,
		Formality:           neutralScalar,
		ParagraphLength:     voice.ParagraphMedium,
		OpeningStyle:        voice.OpeningContext,
		ClosingStyle:        voice.ClosingSummary,
	}
}
