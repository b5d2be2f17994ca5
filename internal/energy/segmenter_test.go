package energy_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/MrWong99/voxprint/internal/energy"
	"github.com/MrWong99/voxprint/pkg/voice"
)

// ─── helpers ─────────────────────────────────────────────────────────────────

// evenWords spreads the given words evenly: one word every interval seconds,
// each voiced for voicedLen seconds starting at 'start'.
func evenWords(words []string, start, interval, voicedLen float64) []voice.WordTimestamp {
	out := make([]voice.WordTimestamp, len(words))
	for i, w := range words {
		s := start + float64(i)*interval
		out[i] = voice.WordTimestamp{
			Word:       w,
			Start:      s,
			End:        s + voicedLen,
			Confidence: 0.95,
		}
	}
	return out
}

func split(text string) []string { return strings.Fields(text) }

// ─── degenerate input ────────────────────────────────────────────────────────

func TestAnalyze_EmptyInput(t *testing.T) {
	t.Parallel()

	got := energy.Analyze(nil)

	if got.OverallEnergy != 0 {
		t.Errorf("OverallEnergy: want 0, got %v", got.OverallEnergy)
	}
	if len(got.Segments) != 0 {
		t.Errorf("Segments: want empty, got %d", len(got.Segments))
	}
	if len(got.PeakMoments) != 0 {
		t.Errorf("PeakMoments: want empty, got %d", len(got.PeakMoments))
	}
	if got.Segments == nil || got.PeakMoments == nil {
		t.Error("empty analysis must use empty slices, not nil")
	}
}

func TestAnalyze_SingleWord(t *testing.T) {
	t.Parallel()

	got := energy.Analyze(evenWords([]string{"hello"}, 0, 0.3, 0.3))

	if got.OverallEnergy != 0 || len(got.Segments) != 0 || len(got.PeakMoments) != 0 {
		t.Errorf("single word must yield zero analysis, got %+v", got)
	}
}

// ─── scoring ─────────────────────────────────────────────────────────────────

// TestAnalyze_FlatSlowSpeech covers the reference scenario: ten words spoken
// evenly over ten seconds carry no energy at all and nothing survives the
// 0.3 threshold floor.
func TestAnalyze_FlatSlowSpeech(t *testing.T) {
	t.Parallel()

	words := evenWords(split("the meeting is scheduled for tuesday at nine in room"), 0, 1.0, 0.5)

	got := energy.Analyze(words)

	if got.OverallEnergy != 0 {
		t.Errorf("OverallEnergy: want 0, got %v", got.OverallEnergy)
	}
	if len(got.Segments) != 0 {
		t.Errorf("Segments: want none, got %d", len(got.Segments))
	}
	if len(got.PeakMoments) != 0 {
		t.Errorf("PeakMoments: want none, got %d", len(got.PeakMoments))
	}
}

// TestAnalyze_FastEmphaticSpeech drives two adjacent windows above threshold
// and checks they merge into a single hook-tagged peak.
func TestAnalyze_FastEmphaticSpeech(t *testing.T) {
	t.Parallel()

	// 10 words at 4 words/sec: pace term maxes at 0.4, one lexicon word per
	// window maxes the emphasis term at 0.35 → window score 0.75.
	words := evenWords(split("amazing stuff here today folks incredible results from the team"), 0, 0.25, 0.25)

	got := energy.Analyze(words)

	if want := 0.75; !approx(got.OverallEnergy, want) {
		t.Errorf("OverallEnergy: want %v, got %v", want, got.OverallEnergy)
	}
	if len(got.Segments) != 1 {
		t.Fatalf("Segments: want 1 merged segment, got %d", len(got.Segments))
	}

	seg := got.Segments[0]
	if !approx(seg.WordsPerSecond, 4.0) {
		t.Errorf("WordsPerSecond: want 4.0, got %v", seg.WordsPerSecond)
	}
	if seg.EmphasisCount != 2 {
		t.Errorf("EmphasisCount: want 2, got %d", seg.EmphasisCount)
	}
	if !approx(seg.EnergyScore, 0.75) {
		t.Errorf("EnergyScore: want 0.75, got %v", seg.EnergyScore)
	}

	if len(got.PeakMoments) != 1 {
		t.Fatalf("PeakMoments: want 1, got %d", len(got.PeakMoments))
	}
	peak := got.PeakMoments[0]
	if peak.UseAs != voice.PeakHook {
		t.Errorf("UseAs: want hook (score %v > 0.7), got %q", seg.EnergyScore, peak.UseAs)
	}
	if peak.Timestamp != seg.StartTime {
		t.Errorf("peak Timestamp: want %v, got %v", seg.StartTime, peak.Timestamp)
	}
}

// TestAnalyze_ShortSegmentDiscarded verifies that a lone hot window lasting
// under two seconds never becomes a segment.
func TestAnalyze_ShortSegmentDiscarded(t *testing.T) {
	t.Parallel()

	// One 5-word window over 1.25s (score 0.75), then a long silence, then
	// ten slow dull words to pull the mean down below the hot window.
	hot := evenWords(split("amazing incredible awesome fantastic wow"), 0, 0.25, 0.25)
	cold := evenWords(split("and then we waited for a while in the lobby"), 10, 1.0, 0.5)

	got := energy.Analyze(append(hot, cold...))

	for _, seg := range got.Segments {
		if seg.EndTime-seg.StartTime < 2.0 {
			t.Errorf("segment of %vs survived the 2s minimum", seg.EndTime-seg.StartTime)
		}
	}
}

// TestAnalyze_RepetitionCounted checks that content words recurring within
// the next three words are counted, while short words are ignored.
func TestAnalyze_RepetitionCounted(t *testing.T) {
	t.Parallel()

	// "go" is two letters → not a content word. "run" repeats twice within
	// range, "fast" once.
	words := evenWords(split("run run run fast fast go go build build build"), 0, 0.25, 0.25)

	got := energy.Analyze(words)

	if len(got.Segments) == 0 {
		t.Fatal("expected at least one segment from fast repetitive speech")
	}
	if got.Segments[0].RepetitionCount == 0 {
		t.Error("RepetitionCount: want > 0 for repeated content words")
	}
}

// TestAnalyze_QuestionTaggedQuote verifies question-bearing segments become
// quote peaks when they are not the top-ranked hook.
func TestAnalyze_QuestionTaggedQuote(t *testing.T) {
	t.Parallel()

	// Two equally hot bursts far apart: the stable ranking keeps the first
	// as the hook, the second carries a question mark and lands as a quote.
	first := evenWords(split("amazing stuff here today folks incredible results from the team"), 0, 0.25, 0.25)
	second := evenWords(split("why is this so absolutely massive? because it changes everything"), 60, 0.25, 0.25)

	got := energy.Analyze(append(first, second...))

	var sawQuote bool
	for _, p := range got.PeakMoments {
		if p.UseAs == voice.PeakQuote && strings.Contains(p.Text, "?") {
			sawQuote = true
		}
	}
	if !sawQuote {
		t.Errorf("expected a quote peak among %+v", got.PeakMoments)
	}
}

// ─── properties ──────────────────────────────────────────────────────────────

// TestAnalyze_Deterministic runs the same input twice and demands identical
// output — no hidden randomness or time dependence.
func TestAnalyze_Deterministic(t *testing.T) {
	t.Parallel()

	words := evenWords(split("this is absolutely the best launch we have ever had and i really really love it so much wow"), 0, 0.22, 0.2)

	a := energy.Analyze(words)
	b := energy.Analyze(words)

	if !reflect.DeepEqual(a, b) {
		t.Errorf("analysis not deterministic:\n first: %+v\nsecond: %+v", a, b)
	}
}

// TestAnalyze_Bounds feeds assorted inputs and checks every reported score
// stays inside [0, 1] and peaks never exceed five.
func TestAnalyze_Bounds(t *testing.T) {
	t.Parallel()

	inputs := [][]voice.WordTimestamp{
		nil,
		evenWords(split("wow wow wow wow wow wow wow wow wow wow wow wow wow wow wow"), 0, 0.1, 0.1),
		evenWords(split("a b c d e f g h i j"), 0, 0.01, 0.01),
		// Zero-duration words (degenerate timing from the collaborator).
		evenWords(split("one two three four five six"), 0, 0, 0),
	}

	for _, words := range inputs {
		got := energy.Analyze(words)
		if got.OverallEnergy < 0 || got.OverallEnergy > 1 {
			t.Errorf("OverallEnergy out of bounds: %v", got.OverallEnergy)
		}
		for _, seg := range got.Segments {
			if seg.EnergyScore < 0 || seg.EnergyScore > 1 {
				t.Errorf("segment EnergyScore out of bounds: %v", seg.EnergyScore)
			}
		}
		if len(got.PeakMoments) > 5 {
			t.Errorf("PeakMoments: want ≤ 5, got %d", len(got.PeakMoments))
		}
	}
}

// approx compares floats with a small tolerance.
func approx(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
