package calibration_test

import (
	"testing"

	"github.com/MrWong99/voxprint/internal/calibration"
	"github.com/MrWong99/voxprint/pkg/voice"
)

// ─── helpers ─────────────────────────────────────────────────────────────────

// richSpoken meets every spoken-richness condition.
func richSpoken() *voice.SpokenPatterns {
	return &voice.SpokenPatterns{
		Vocabulary: voice.Vocabulary{
			FrequentWords: []string{"one", "two", "three", "four", "five"},
			UniquePhrases: []string{"a", "b", "c"},
		},
		Rhetoric: voice.Rhetoric{UsesQuestions: true},
		Enthusiasm: voice.Enthusiasm{
			ExcitingTopics:   []string{"x", "y", "z"},
			EmphasisPatterns: []string{"p", "q", "r"},
		},
	}
}

// richTonal deviates from the 0.5 midpoint by 2.0 in total.
func richTonal() *voice.TonalAttributes {
	return &voice.TonalAttributes{Warmth: 0.9, Authority: 0.1, Humor: 0.9, Directness: 0.1, Empathy: 0.9}
}

// richWritten differs from every bland default.
func richWritten() *voice.WrittenPatterns {
	return &voice.WrittenPatterns{
		StructurePreference: voice.StructureNarrative,
		OpeningStyle:        voice.OpeningHook,
		ClosingStyle:        voice.ClosingAction,
		ParagraphLength:     voice.ParagraphShort,
		Formality:           0.8,
	}
}

func confidentRules() []voice.LearnedRule {
	return []voice.LearnedRule{
		{Type: voice.RulePrefer, Content: "a", Confidence: 0.9},
		{Type: voice.RuleAvoid, Content: "b", Confidence: 0.8},
		{Type: voice.RuleAdjust, Content: "c", Confidence: 0.8},
	}
}

func maxInputs() calibration.Inputs {
	return calibration.Inputs{
		VoiceSessions:     5,
		WritingSamples:    2,
		CalibrationRounds: 3,
		Spoken:            richSpoken(),
		Tonal:             richTonal(),
		Written:           richWritten(),
		Rules:             confidentRules(),
		AverageRating:     4.5,
	}
}

// ─── reference scenarios ─────────────────────────────────────────────────────

// TestScore_ReferenceRichProfile pins the worked regression value: 5
// sessions (33) + 2 samples (12) + 3 rounds at avg 4.5 (24) + spoken
// richness (10) + tonal (2) + written (8) + rules (5) + quality (2) = 96.
func TestScore_ReferenceRichProfile(t *testing.T) {
	t.Parallel()

	if got := calibration.Score(maxInputs()); got != 96 {
		t.Errorf("reference score: want 96, got %d", got)
	}
}

func TestScore_EmptyInputs(t *testing.T) {
	t.Parallel()

	if got := calibration.Score(calibration.Inputs{}); got != 0 {
		t.Errorf("empty inputs: want 0, got %d", got)
	}
}

// ─── point tables ────────────────────────────────────────────────────────────

func TestScore_SessionTiersAdditive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sessions int
		want     int
	}{
		{0, 0},
		{1, 12},
		{2, 21},
		{3, 28},
		{4, 28},
		{5, 33},
		{10, 35},
		{100, 35},
	}
	for _, tt := range tests {
		got := calibration.Score(calibration.Inputs{VoiceSessions: tt.sessions})
		if got != tt.want {
			t.Errorf("sessions=%d: want %d, got %d", tt.sessions, tt.want, got)
		}
	}
}

func TestScore_RoundPointsScaleWithRating(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rounds int
		rating float64
		want   int
	}{
		{1, 2.0, 6},  // poor rating: no bonus
		{1, 3.0, 7},  // decent rating: +1 per round
		{1, 4.0, 8},  // great rating: +2 per round
		{1, 0, 7},    // no rating yet: defaults to 3
		{3, 4.5, 24}, // 3 × 8
		{4, 4.5, 25}, // capped at 25
		{10, 2.0, 25},
	}
	for _, tt := range tests {
		got := calibration.Score(calibration.Inputs{
			CalibrationRounds: tt.rounds,
			AverageRating:     tt.rating,
		})
		if got != tt.want {
			t.Errorf("rounds=%d rating=%v: want %d, got %d", tt.rounds, tt.rating, tt.want, got)
		}
	}
}

func TestScore_WrittenRichness(t *testing.T) {
	t.Parallel()

	// Bland written patterns score presence only.
	bland := &voice.WrittenPatterns{
		StructurePreference: voice.StructureLinear,
		OpeningStyle:        voice.OpeningContext,
		ClosingStyle:        voice.ClosingSummary,
	}
	if got := calibration.Score(calibration.Inputs{Written: bland}); got != 5 {
		t.Errorf("bland written: want 5, got %d", got)
	}
	if got := calibration.Score(calibration.Inputs{Written: richWritten()}); got != 8 {
		t.Errorf("rich written: want 8, got %d", got)
	}
	if got := calibration.Score(calibration.Inputs{}); got != 0 {
		t.Errorf("absent written: want 0, got %d", got)
	}
}

func TestScore_RulePoints(t *testing.T) {
	t.Parallel()

	// Five low-confidence rules: count capped at 3, no bonus.
	lowConf := []voice.LearnedRule{
		{Confidence: 0.2}, {Confidence: 0.2}, {Confidence: 0.2}, {Confidence: 0.2}, {Confidence: 0.2},
	}
	if got := calibration.Score(calibration.Inputs{Rules: lowConf}); got != 3 {
		t.Errorf("low-confidence rules: want 3, got %d", got)
	}
	if got := calibration.Score(calibration.Inputs{Rules: confidentRules()}); got != 5 {
		t.Errorf("confident rules: want 5, got %d", got)
	}
}

// ─── gate ────────────────────────────────────────────────────────────────────

// TestScore_GateClampsRichButThinProfiles checks that raw sums at or above
// 70 collapse to exactly 69 without the evidence-volume baseline.
func TestScore_GateClampsRichButThinProfiles(t *testing.T) {
	t.Parallel()

	// Two sessions, three samples, five well-rated rounds and maximal
	// richness: raw 21+15+25+10+2+8+5+2 = 88, but sessions < 3.
	in := maxInputs()
	in.VoiceSessions = 2
	in.WritingSamples = 3
	in.CalibrationRounds = 5

	if got := calibration.Score(in); got != 69 {
		t.Errorf("gated score: want exactly 69, got %d", got)
	}

	// The spec's canonical thin profile: one session, rich patterns, no
	// rounds. Must stay at or below 69 regardless of richness.
	thin := maxInputs()
	thin.VoiceSessions = 1
	thin.WritingSamples = 0
	thin.CalibrationRounds = 0
	if got := calibration.Score(thin); got > 69 {
		t.Errorf("thin profile: want ≤ 69, got %d", got)
	}

	// Three sessions with one sample pass the gate.
	passing := maxInputs()
	passing.VoiceSessions = 3
	passing.WritingSamples = 1
	if got := calibration.Score(passing); got < 70 {
		t.Errorf("gate must pass with 3 sessions + 1 sample, got %d", got)
	}
}

// ─── properties ──────────────────────────────────────────────────────────────

func TestScore_Idempotent(t *testing.T) {
	t.Parallel()

	in := maxInputs()
	first := calibration.Score(in)
	for i := 0; i < 10; i++ {
		if got := calibration.Score(in); got != first {
			t.Fatalf("score changed on recompute: %d != %d", got, first)
		}
	}
}

func TestScore_Bounds(t *testing.T) {
	t.Parallel()

	inputs := []calibration.Inputs{
		{},
		{VoiceSessions: -5, WritingSamples: -1, CalibrationRounds: -3},
		{VoiceSessions: 1 << 30, WritingSamples: 1 << 30, CalibrationRounds: 1 << 20, AverageRating: 5,
			Spoken: richSpoken(), Tonal: richTonal(), Written: richWritten(), Rules: confidentRules()},
	}
	for _, in := range inputs {
		got := calibration.Score(in)
		if got < 0 || got > 100 {
			t.Errorf("score out of bounds: %d for %+v", got, in)
		}
	}
}

func TestScoreProfile_NilProfile(t *testing.T) {
	t.Parallel()

	if got := calibration.ScoreProfile(nil, 4); got != 0 {
		t.Errorf("nil profile: want 0, got %d", got)
	}
}
