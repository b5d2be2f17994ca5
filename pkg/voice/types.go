// Package voice defines the shared domain types for the voxprint
// voice-profile engine.
//
// These types form the lingua franca between the analysis stages, the
// profile store, and the external collaborators (transcription, LLM pattern
// extraction, content generation). Cross-cutting data structures live here to
// avoid circular imports; each internal package defines its own private
// working types on top.
package voice

import "time"

// WordTimestamp is a single word from the transcription collaborator with
// word-level timing metadata. Start and End are seconds from the beginning of
// the recording; Start values are monotonically non-decreasing across a
// transcript.
type WordTimestamp struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// EnergyIndicator names a qualitative signal detected in an energy segment.
// Indicators are explanatory only — they never feed back into scoring.
type EnergyIndicator string

const (
	IndicatorPaceIncrease EnergyIndicator = "pace_increase"
	IndicatorDenseSpeech  EnergyIndicator = "dense_speech"
	IndicatorEmphasis     EnergyIndicator = "emphasis_words"
	IndicatorRepetition   EnergyIndicator = "repetition"
)

// EnergySegment is a contiguous span of spoken words scored as one unit.
type EnergySegment struct {
	// StartTime and EndTime are seconds from the beginning of the recording.
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`

	// Text is the segment's words joined with single spaces.
	Text string `json:"text"`

	// WordsPerSecond is the speaking pace over the segment duration.
	WordsPerSecond float64 `json:"words_per_second"`

	// EmphasisCount is the number of words matching the emphasis lexicon.
	EmphasisCount int `json:"emphasis_count"`

	// RepetitionCount is the number of near-adjacent repeated content words.
	RepetitionCount int `json:"repetition_count"`

	// EnergyScore is the derived enthusiasm score in [0, 1].
	EnergyScore float64 `json:"energy_score"`

	// Indicators lists the qualitative signals present in this segment.
	Indicators []EnergyIndicator `json:"indicators,omitempty"`
}

// PeakUse classifies how a peak moment is expected to be reused downstream.
type PeakUse string

const (
	PeakHook       PeakUse = "hook"
	PeakQuote      PeakUse = "quote"
	PeakKeyPoint   PeakUse = "key_point"
	PeakConclusion PeakUse = "conclusion"
)

// PeakMoment is a top-ranked high-energy segment surfaced for downstream use.
type PeakMoment struct {
	// Timestamp is the segment start in seconds.
	Timestamp float64 `json:"timestamp"`

	// Text is the segment text.
	Text string `json:"text"`

	// Reason is a human-readable explanation of why this moment stood out.
	Reason string `json:"reason"`

	// UseAs suggests downstream usage: hook, quote, key_point, or conclusion.
	UseAs PeakUse `json:"use_as"`
}

// EnthusiasmAnalysis is the complete output of the energy detector for one
// voice session. It is immutable once computed and attached to the session
// that produced it.
type EnthusiasmAnalysis struct {
	// OverallEnergy is the mean window energy score in [0, 1].
	OverallEnergy float64 `json:"overall_energy"`

	// Segments lists the high-energy spans, chronologically ordered.
	Segments []EnergySegment `json:"segments"`

	// PeakMoments are the top segments ranked by energy score.
	PeakMoments []PeakMoment `json:"peak_moments"`
}

// SentenceLength categorises typical spoken sentence length.
type SentenceLength string

const (
	SentenceShort  SentenceLength = "short"
	SentenceMedium SentenceLength = "medium"
	SentenceLong   SentenceLength = "long"
	SentenceVaried SentenceLength = "varied"
)

// IsValid reports whether s is a recognised sentence length.
func (s SentenceLength) IsValid() bool {
	switch s {
	case SentenceShort, SentenceMedium, SentenceLong, SentenceVaried:
		return true
	}
	return false
}

// Pace categorises overall speaking pace.
type Pace string

const (
	PaceSlow     Pace = "slow"
	PaceModerate Pace = "moderate"
	PaceFast     Pace = "fast"
	PaceVariable Pace = "variable"
)

// IsValid reports whether p is a recognised pace.
func (p Pace) IsValid() bool {
	switch p {
	case PaceSlow, PaceModerate, PaceFast, PaceVariable:
		return true
	}
	return false
}

// PausePattern categorises how a speaker uses pauses.
type PausePattern string

const (
	PausesFrequent PausePattern = "frequent"
	PausesNatural  PausePattern = "natural"
	PausesRare     PausePattern = "rare"
	PausesDramatic PausePattern = "dramatic"
)

// IsValid reports whether p is a recognised pause pattern.
func (p PausePattern) IsValid() bool {
	switch p {
	case PausesFrequent, PausesNatural, PausesRare, PausesDramatic:
		return true
	}
	return false
}

// StorytellingStyle categorises how a speaker structures narratives.
type StorytellingStyle string

const (
	StoryAnecdotal StorytellingStyle = "anecdotal"
	StoryLinear    StorytellingStyle = "linear"
	StoryCircular  StorytellingStyle = "circular"
	StoryDirect    StorytellingStyle = "direct"
)

// IsValid reports whether s is a recognised storytelling style.
func (s StorytellingStyle) IsValid() bool {
	switch s {
	case StoryAnecdotal, StoryLinear, StoryCircular, StoryDirect:
		return true
	}
	return false
}

// Vocabulary captures word-choice habits extracted from spoken transcripts.
type Vocabulary struct {
	// FrequentWords are the speaker's characteristic high-frequency words.
	// Capped at 10 entries after merging.
	FrequentWords []string `json:"frequent_words"`

	// UniquePhrases are distinctive multi-word expressions. Capped at 5.
	UniquePhrases []string `json:"unique_phrases"`

	// FillerWords are the speaker's habitual fillers ("um", "like"). Capped at 5.
	FillerWords []string `json:"filler_words"`

	// PreserveFillers indicates the fillers are characteristic enough that
	// generated content should keep them. Sticky: once observed, never unset
	// by a single later miss.
	PreserveFillers bool `json:"preserve_fillers"`
}

// Rhythm captures pacing habits extracted from spoken transcripts.
type Rhythm struct {
	SentenceLength SentenceLength `json:"sentence_length"`
	Pace           Pace           `json:"pace"`
	PausePattern   PausePattern   `json:"pause_pattern"`
}

// Rhetoric captures rhetorical habits extracted from spoken transcripts.
type Rhetoric struct {
	// UsesQuestions and UsesAnalogies are sticky "ever observed" traits.
	UsesQuestions bool `json:"uses_questions"`
	UsesAnalogies bool `json:"uses_analogies"`

	StorytellingStyle StorytellingStyle `json:"storytelling_style"`
}

// Enthusiasm captures what animates the speaker.
type Enthusiasm struct {
	// ExcitingTopics are subjects that raise the speaker's energy. Capped at 8.
	ExcitingTopics []string `json:"exciting_topics"`

	// EmphasisPatterns are phrases the speaker uses for emphasis. Capped at 5.
	EmphasisPatterns []string `json:"emphasis_patterns"`

	// EnergyBaseline is the speaker's resting energy level in [0, 1].
	EnergyBaseline float64 `json:"energy_baseline"`
}

// SpokenPatterns is the spoken-style half of a voice profile, derived from
// analyzed voice sessions.
type SpokenPatterns struct {
	Vocabulary Vocabulary `json:"vocabulary"`
	Rhythm     Rhythm     `json:"rhythm"`
	Rhetoric   Rhetoric   `json:"rhetoric"`
	Enthusiasm Enthusiasm `json:"enthusiasm"`
}

// TonalAttributes are five independent scalars in [0, 1] describing the
// overall register of the voice.
type TonalAttributes struct {
	Warmth     float64 `json:"warmth"`
	Authority  float64 `json:"authority"`
	Humor      float64 `json:"humor"`
	Directness float64 `json:"directness"`
	Empathy    float64 `json:"empathy"`
}

// StructurePreference categorises how written pieces are organised.
type StructurePreference string

const (
	StructureLinear     StructurePreference = "linear"
	StructureModular    StructurePreference = "modular"
	StructureNarrative  StructurePreference = "narrative"
	StructureAnalytical StructurePreference = "analytical"
)

// IsValid reports whether s is a recognised structure preference.
func (s StructurePreference) IsValid() bool {
	switch s {
	case StructureLinear, StructureModular, StructureNarrative, StructureAnalytical:
		return true
	}
	return false
}

// ParagraphLength categorises typical paragraph size in writing samples.
type ParagraphLength string

const (
	ParagraphShort  ParagraphLength = "short"
	ParagraphMedium ParagraphLength = "medium"
	ParagraphLong   ParagraphLength = "long"
)

// IsValid reports whether p is a recognised paragraph length.
func (p ParagraphLength) IsValid() bool {
	switch p {
	case ParagraphShort, ParagraphMedium, ParagraphLong:
		return true
	}
	return false
}

// OpeningStyle categorises how written pieces begin.
type OpeningStyle string

const (
	OpeningContext   OpeningStyle = "context"
	OpeningHook      OpeningStyle = "hook"
	OpeningQuestion  OpeningStyle = "question"
	OpeningStatement OpeningStyle = "statement"
)

// IsValid reports whether o is a recognised opening style.
func (o OpeningStyle) IsValid() bool {
	switch o {
	case OpeningContext, OpeningHook, OpeningQuestion, OpeningStatement:
		return true
	}
	return false
}

// ClosingStyle categorises how written pieces end.
type ClosingStyle string

const (
	ClosingSummary    ClosingStyle = "summary"
	ClosingAction     ClosingStyle = "action"
	ClosingQuestion   ClosingStyle = "question"
	ClosingReflection ClosingStyle = "reflection"
)

// IsValid reports whether c is a recognised closing style.
func (c ClosingStyle) IsValid() bool {
	switch c {
	case ClosingSummary, ClosingAction, ClosingQuestion, ClosingReflection:
		return true
	}
	return false
}

// WrittenPatterns is the written-style half of a voice profile. It is derived
// exclusively from writing samples and is absent (nil on [VoiceProfile])
// until at least one sample has been analyzed.
type WrittenPatterns struct {
	StructurePreference StructurePreference `json:"structure_preference"`
	Formality           float64             `json:"formality"`
	ParagraphLength     ParagraphLength     `json:"paragraph_length"`
	OpeningStyle        OpeningStyle        `json:"opening_style"`
	ClosingStyle        ClosingStyle        `json:"closing_style"`
}

// ReferentInfluence is a named external style reference blended into
// generation at a bounded weight.
type ReferentInfluence struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

// ReferentInfluences holds the user-voice weight plus up to 3 named
// influences. UserWeight stays in [50, 100] and the weights always sum to
// exactly 100 — the user's own voice can never fall below half.
type ReferentInfluences struct {
	UserWeight int                 `json:"user_weight"`
	Influences []ReferentInfluence `json:"influences"`
}

// RuleType classifies a learned generation rule.
type RuleType string

const (
	RulePrefer RuleType = "prefer"
	RuleAvoid  RuleType = "avoid"
	RuleAdjust RuleType = "adjust"
)

// IsValid reports whether t is a recognised rule type.
func (t RuleType) IsValid() bool {
	return t == RulePrefer || t == RuleAvoid || t == RuleAdjust
}

// LearnedRule is a generation preference learned from calibration feedback
// or explicit user edits. Rules are deduplicated by (Type, Content); a
// repeated observation reinforces Confidence and increments SourceCount.
type LearnedRule struct {
	Type        RuleType `json:"type"`
	Content     string   `json:"content"`
	Confidence  float64  `json:"confidence"`
	SourceCount int      `json:"source_count"`
}

// PatternSet is one extraction's worth of spoken patterns and tonal
// attributes — the unit the sanitizer emits and the merger consumes.
type PatternSet struct {
	Spoken SpokenPatterns  `json:"spoken"`
	Tonal  TonalAttributes `json:"tonal"`
}

// VoiceProfile is the persisted per-user statistical fingerprint of how a
// person speaks and writes. One exists per user, created on the first
// analyzed voice session and mutated by every subsequent analysis, merge, or
// calibration event.
type VoiceProfile struct {
	UserID string `json:"user_id"`

	SpokenPatterns  SpokenPatterns  `json:"spoken_patterns"`
	TonalAttributes TonalAttributes `json:"tonal_attributes"`

	// WrittenPatterns is nil until the first writing sample is analyzed, and
	// reverts to nil if every sample is deleted and a rebuild runs.
	WrittenPatterns *WrittenPatterns `json:"written_patterns,omitempty"`

	ReferentInfluences ReferentInfluences `json:"referent_influences"`

	// LearnedRules is capped at 20 entries.
	LearnedRules []LearnedRule `json:"learned_rules"`

	// Counters. All are monotonic except WritingSamplesAnalyzed, which may
	// decrease when a sample is deleted.
	VoiceSessionsAnalyzed      int `json:"voice_sessions_analyzed"`
	WritingSamplesAnalyzed     int `json:"writing_samples_analyzed"`
	CalibrationRoundsCompleted int `json:"calibration_rounds_completed"`

	// CalibrationScore is derived state in [0, 100]. It is recomputed from
	// the counters, profile richness, and average rating on every update and
	// must never be hand-edited.
	CalibrationScore int `json:"calibration_score"`

	UpdatedAt time.Time `json:"updated_at"`
}

// WritingSample is a stored free-text sample with its extracted written
// patterns. Patterns is nil until extraction completes.
type WritingSample struct {
	ID       string           `json:"id"`
	UserID   string           `json:"user_id"`
	Text     string           `json:"text"`
	Patterns *WrittenPatterns `json:"patterns,omitempty"`

	// Embedding is the vector representation of Text, populated when an
	// embedding provider is configured. Used for similarity lookups, never
	// serialized to clients.
	Embedding []float32 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// CalibrationRound records one feedback cycle: the user rated a generated
// sample 1–5, optionally with free-text feedback.
type CalibrationRound struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Feedback  string    `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
