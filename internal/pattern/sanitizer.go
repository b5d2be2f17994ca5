package pattern

import (
	"encoding/json"
	"strings"

	"github.com/MrWong99/voxprint/pkg/voice"
)

// Sanitize validates and clamps an untrusted candidate pattern structure
// (typically the decoded JSON output of the LLM extractor) into a complete,
// range-safe [voice.PatternSet].
//
// Repair is per field, never per payload: numeric fields are clamped to
// [0, 1] and fall back to the neutral default on non-numeric input, list
// fields are coerced to string lists (non-string elements dropped) and
// truncated to their caps, enum fields fall back to the default on any
// unrecognised value, and booleans are taken only when explicitly boolean.
//
// Sanitize never fails — a nil, empty, or completely malformed input yields
// [Defaults].
func Sanitize(raw map[string]any) voice.PatternSet {
	out := Defaults()

	if vocab := section(raw, "vocabulary"); vocab != nil {
		out.Spoken.Vocabulary.FrequentWords = stringList(vocab["frequent_words"], MaxFrequentWords)
		out.Spoken.Vocabulary.UniquePhrases = stringList(vocab["unique_phrases"], MaxUniquePhrases)
		out.Spoken.Vocabulary.FillerWords = stringList(vocab["filler_words"], MaxFillerWords)
		out.Spoken.Vocabulary.PreserveFillers = boolean(vocab["preserve_fillers"], false)
	}

	if rhythm := section(raw, "rhythm"); rhythm != nil {
		out.Spoken.Rhythm.SentenceLength = enum(rhythm["sentence_length"], out.Spoken.Rhythm.SentenceLength)
		out.Spoken.Rhythm.Pace = enum(rhythm["pace"], out.Spoken.Rhythm.Pace)
		out.Spoken.Rhythm.PausePattern = enum(rhythm["pause_pattern"], out.Spoken.Rhythm.PausePattern)
	}

	if rhet := section(raw, "rhetoric"); rhet != nil {
		out.Spoken.Rhetoric.UsesQuestions = boolean(rhet["uses_questions"], false)
		out.Spoken.Rhetoric.UsesAnalogies = boolean(rhet["uses_analogies"], false)
		out.Spoken.Rhetoric.StorytellingStyle = enum(rhet["storytelling_style"], out.Spoken.Rhetoric.StorytellingStyle)
	}

	if enth := section(raw, "enthusiasm"); enth != nil {
		out.Spoken.Enthusiasm.ExcitingTopics = stringList(enth["exciting_topics"], MaxExcitingTopics)
		out.Spoken.Enthusiasm.EmphasisPatterns = stringList(enth["emphasis_patterns"], MaxEmphasisPatterns)
		out.Spoken.Enthusiasm.EnergyBaseline = scalar(enth["energy_baseline"], neutralScalar)
	}

	if tonal := section(raw, "tonal"); tonal != nil {
		out.Tonal.Warmth = scalar(tonal["warmth"], neutralScalar)
		out.Tonal.Authority = scalar(tonal["authority"], neutralScalar)
		out.Tonal.Humor = scalar(tonal["humor"], neutralScalar)
		out.Tonal.Directness = scalar(tonal["directness"], neutralScalar)
		out.Tonal.Empathy = scalar(tonal["empathy"], neutralScalar)
	}

	return out
}

// SanitizeWritten validates and clamps an untrusted written-pattern
// candidate. Same repair rules as [Sanitize]; never fails.
func SanitizeWritten(raw map[string]any) voice.WrittenPatterns {
	out := WrittenDefaults()
	if raw == nil {
		return out
	}
	out.StructurePreference = enum(raw["structure_preference"], out.StructurePreference)
	out.Formality = scalar(raw["formality"], neutralScalar)
	out.ParagraphLength = enum(raw["paragraph_length"], out.ParagraphLength)
	out.OpeningStyle = enum(raw["opening_style"], out.OpeningStyle)
	out.ClosingStyle = enum(raw["closing_style"], out.ClosingStyle)
	return out
}

// section returns raw[key] as a nested object, or nil when absent or not
// object-shaped.
func section(raw map[string]any, key string) map[string]any {
	if raw == nil {
		return nil
	}
	m, _ := raw[key].(map[string]any)
	return m
}

// scalar coerces v into a float64 clamped to [0, 1], falling back to def on
// non-numeric input. NaN is treated as non-numeric.
func scalar(v any, def float64) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return def
		}
		f = parsed
	default:
		return def
	}
	if f != f { // NaN
		return def
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// stringList coerces v into a []string, dropping non-string and blank
// elements, deduplicating case-insensitively, and truncating to max.
// Non-list input yields an empty list.
func stringList(v any, max int) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
		if len(out) == max {
			break
		}
	}
	return out
}

// boolean returns v when it is explicitly a bool, def otherwise. Strings
// like "true" are deliberately not coerced.
func boolean(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// validated is the constraint shared by all string-backed enum types.
type validated interface {
	~string
	IsValid() bool
}

// enum coerces v into the enum type E, falling back to def on a missing or
// unrecognised value. Matching is case-insensitive.
func enum[E validated](v any, def E) E {
	s, ok := v.(string)
	if !ok {
		return def
	}
	candidate := E(strings.ToLower(strings.TrimSpace(s)))
	if !candidate.IsValid() {
		return def
	}
	return candidate
}
