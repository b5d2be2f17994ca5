// Package calibration computes the 0–100 calibration score: a gated,
// tiered point accumulation over evidence volume (sessions, samples,
// feedback rounds) and profile richness.
//
// The point tables are product-tuned values preserved exactly for
// compatibility — resist the urge to "fix" them. Score is pure and
// idempotent: the same inputs always produce the same score, which is what
// makes bulk recomputation and migration backfills safe.
package calibration

import (
	"math"

	"github.com/MrWong99/voxprint/internal/profile"
	"github.com/MrWong99/voxprint/pkg/voice"
)

// DefaultRating substitutes for the average rating while no calibration
// round exists.
const DefaultRating = 3.0

// tier awards Points once Min is reached. Tiers are additive, not
// exclusive: five sessions meet the 1/2/3/5 tiers and earn 12+9+7+5.
type tier struct {
	Min    int
	Points int
}

// Evidence-volume tables. Session tiers sum to 35, sample tiers to 15.
var (
	sessionTiers = []tier{{1, 12}, {2, 9}, {3, 7}, {5, 5}, {10, 2}}
	sampleTiers  = []tier{{1, 8}, {2, 4}, {3, 3}}
)

const (
	roundsPointsBase = 6
	roundsPointsMax  = 25

	// Rating bonuses raise the per-round points for well-rated rounds.
	ratingBonusGood  = 1 // average rating ≥ 3
	ratingBonusGreat = 2 // average rating ≥ 4

	richnessPoints    = 2  // per spoken-richness condition met
	tonalPoints       = 2  // non-bland tonal profile
	tonalDeviationMin = 1.0

	writtenPresencePoints = 5
	writtenVariantPoints  = 1 // per field differing from the bland default

	rulesCountMax  = 3
	rulesBonus     = 2
	rulesBonusMean = 0.7

	qualityBonus = 2

	// The gate: a raw sum at or above gateThreshold requires a baseline of
	// real evidence volume, otherwise the score is clamped to gateCap. This
	// keeps the "high" band unreachable through profile richness alone.
	gateThreshold = 70
	gateCap       = 69
)

// Inputs carries everything the scorer reads. Every field has a safe zero:
// missing fragments score no richness, zero counts score no volume, and a
// zero AverageRating falls back to [DefaultRating].
type Inputs struct {
	// VoiceSessions is the number of analyzed voice sessions.
	VoiceSessions int

	// WritingSamples is the number of samples with completed extraction.
	WritingSamples int

	// CalibrationRounds is the number of completed feedback rounds.
	CalibrationRounds int

	// Spoken and Tonal are the merged profile fragments; nil means absent.
	Spoken *voice.SpokenPatterns
	Tonal  *voice.TonalAttributes

	// Written is nil until a writing sample has been analyzed.
	Written *voice.WrittenPatterns

	// Rules is the profile's learned-rule list.
	Rules []voice.LearnedRule

	// AverageRating is the mean 1–5 rating across completed rounds.
	// Zero (or no rounds) means [DefaultRating].
	AverageRating float64
}

// Score computes the calibration score for in. The result is always in
// [0, 100] and is a pure function of in — recomputing over unchanged state
// is a no-op.
func Score(in Inputs) int {
	raw := tierPoints(sessionTiers, in.VoiceSessions)
	raw += tierPoints(sampleTiers, in.WritingSamples)
	raw += roundPoints(in.CalibrationRounds, in.AverageRating)
	raw += spokenRichness(in.Spoken)
	raw += tonalRichness(in.Tonal)
	raw += writtenRichness(in.Written)
	raw += rulePoints(in.Rules)

	if in.VoiceSessions >= 2 && in.WritingSamples >= 1 {
		raw += qualityBonus
	}

	// Gate: richness alone must not reach the high band.
	if raw >= gateThreshold && !gatePasses(in) {
		raw = gateCap
	}

	if raw < 0 {
		return 0
	}
	if raw > 100 {
		return 100
	}
	return raw
}

// ScoreProfile is a convenience wrapper scoring a whole stored profile.
// A nil profile scores 0.
func ScoreProfile(p *voice.VoiceProfile, averageRating float64) int {
	if p == nil {
		return 0
	}
	return Score(Inputs{
		VoiceSessions:     p.VoiceSessionsAnalyzed,
		WritingSamples:    p.WritingSamplesAnalyzed,
		CalibrationRounds: p.CalibrationRoundsCompleted,
		Spoken:            &p.SpokenPatterns,
		Tonal:             &p.TonalAttributes,
		Written:           p.WrittenPatterns,
		Rules:             p.LearnedRules,
		AverageRating:     averageRating,
	})
}

// gatePasses reports whether the profile has the evidence volume required
// for a score of gateThreshold or above.
func gatePasses(in Inputs) bool {
	return in.VoiceSessions >= 3 && (in.WritingSamples >= 1 || in.CalibrationRounds >= 2)
}

// tierPoints sums the points of every tier whose minimum count is met.
func tierPoints(tiers []tier, count int) int {
	points := 0
	for _, t := range tiers {
		if count >= t.Min {
			points += t.Points
		}
	}
	return points
}

// roundPoints awards per-round points scaled by how well the rounds were
// rated, capped at roundsPointsMax.
func roundPoints(rounds int, averageRating float64) int {
	if rounds <= 0 {
		return 0
	}
	if averageRating <= 0 {
		averageRating = DefaultRating
	}

	perRound := roundsPointsBase
	switch {
	case averageRating >= 4:
		perRound += ratingBonusGreat
	case averageRating >= 3:
		perRound += ratingBonusGood
	}

	points := rounds * perRound
	if points > roundsPointsMax {
		points = roundsPointsMax
	}
	return points
}

// spokenRichness awards richnessPoints per independent condition met, up to
// five conditions (10 points).
func spokenRichness(sp *voice.SpokenPatterns) int {
	if sp == nil {
		return 0
	}
	points := 0
	if len(sp.Vocabulary.FrequentWords) >= 5 {
		points += richnessPoints
	}
	if len(sp.Vocabulary.UniquePhrases) >= 3 {
		points += richnessPoints
	}
	if len(sp.Enthusiasm.ExcitingTopics) >= 3 {
		points += richnessPoints
	}
	if len(sp.Enthusiasm.EmphasisPatterns) >= 3 {
		points += richnessPoints
	}
	if sp.Rhetoric.UsesQuestions || sp.Rhetoric.UsesAnalogies {
		points += richnessPoints
	}
	return points
}

// tonalRichness awards tonalPoints when the five tonal scalars deviate from
// the bland 0.5 midpoint by more than tonalDeviationMin in total.
func tonalRichness(t *voice.TonalAttributes) int {
	if t == nil {
		return 0
	}
	deviation := math.Abs(t.Warmth-0.5) +
		math.Abs(t.Authority-0.5) +
		math.Abs(t.Humor-0.5) +
		math.Abs(t.Directness-0.5) +
		math.Abs(t.Empathy-0.5)
	if deviation > tonalDeviationMin {
		return tonalPoints
	}
	return 0
}

// writtenRichness awards a flat presence score plus one point per field
// differing from the bland defaults (linear/context/summary).
func writtenRichness(w *voice.WrittenPatterns) int {
	if w == nil {
		return 0
	}
	points := writtenPresencePoints
	if w.StructurePreference != voice.StructureLinear {
		points += writtenVariantPoints
	}
	if w.OpeningStyle != voice.OpeningContext {
		points += writtenVariantPoints
	}
	if w.ClosingStyle != voice.ClosingSummary {
		points += writtenVariantPoints
	}
	return points
}

// rulePoints awards one point per rule up to rulesCountMax plus a bonus for
// a confidently learned rule set.
func rulePoints(rules []voice.LearnedRule) int {
	points := len(rules)
	if points > rulesCountMax {
		points = rulesCountMax
	}
	if profile.MeanRuleConfidence(rules) > rulesBonusMean {
		points += rulesBonus
	}
	return points
}
