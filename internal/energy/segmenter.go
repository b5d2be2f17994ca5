// Package energy implements the enthusiasm/energy detector: a pure,
// deterministic function from a word-level timestamped transcript to scored
// segments and peak moments.
//
// The detector works exclusively on word timing metadata — it never touches
// audio. Words are partitioned into fixed windows, each window is scored on
// pace, emphasis-word density, and near-adjacent repetition, and consecutive
// above-threshold windows are merged into segments. The top segments are
// ranked into human-consumable peak moments (hooks, quotes, key points).
//
// Analyze degrades gracefully: empty or degenerate input yields an empty
// analysis, never an error.
package energy

import (
	"sort"
	"strings"

	"github.com/MrWong99/voxprint/pkg/voice"
)

const (
	// windowSize is the fixed number of words per scoring window.
	windowSize = 5

	// minWindowWords drops trailing windows too small to score meaningfully.
	minWindowWords = 2

	// Scoring term caps. The three terms sum to at most 1.0.
	paceTermMax       = 0.4
	emphasisTermMax   = 0.35
	repetitionTermMax = 0.25

	// Pace credit: full above fastPaceWPS, linear between slowPaceWPS and
	// fastPaceWPS, zero below.
	fastPaceWPS = 3.0
	slowPaceWPS = 2.0

	// Term multipliers applied to per-window ratios before capping.
	emphasisMultiplier   = 3.5
	repetitionMultiplier = 2.5

	// minThreshold is the floor for the segment-keeping threshold.
	minThreshold = 0.3

	// mergeGapSeconds merges consecutive kept windows closer than this.
	mergeGapSeconds = 2.0

	// minSegmentSeconds discards merged segments shorter than this.
	minSegmentSeconds = 2.0

	// repetitionLookahead is how many following words count as "near" for
	// repetition detection.
	repetitionLookahead = 3

	// maxPeakMoments caps the ranked peak-moment list.
	maxPeakMoments = 5

	// hookScore is the minimum energy score for the top segment to qualify
	// as a hook.
	hookScore = 0.7

	// denseSpeechRatio is the voiced-time ratio above which a segment gets
	// the dense_speech indicator.
	denseSpeechRatio = 0.7
)

// window is a scored span of consecutive words. Segments reuse the same
// shape after merging.
type window struct {
	words           []voice.WordTimestamp
	wordsPerSecond  float64
	emphasisCount   int
	repetitionCount int
	score           float64
}

func (w *window) start() float64 { return w.words[0].Start }
func (w *window) end() float64   { return w.words[len(w.words)-1].End }

// Analyze scores a complete word-level transcript and returns the resulting
// enthusiasm analysis. Input words must be ordered by start time.
//
// Empty or single-word input yields a zero analysis with empty (non-nil)
// slices rather than an error: callers should treat it as "not enough
// signal", not a failure.
func Analyze(words []voice.WordTimestamp) voice.EnthusiasmAnalysis {
	analysis := voice.EnthusiasmAnalysis{
		Segments:    []voice.EnergySegment{},
		PeakMoments: []voice.PeakMoment{},
	}
	if len(words) < minWindowWords {
		return analysis
	}

	windows := partition(words)
	if len(windows) == 0 {
		return analysis
	}

	var total float64
	for i := range windows {
		scoreWindow(&windows[i])
		total += windows[i].score
	}
	analysis.OverallEnergy = total / float64(len(windows))

	threshold := analysis.OverallEnergy
	if threshold < minThreshold {
		threshold = minThreshold
	}

	segments := mergeAboveThreshold(windows, threshold)
	for i := range segments {
		analysis.Segments = append(analysis.Segments, toSegment(&segments[i]))
	}
	analysis.PeakMoments = rankPeaks(analysis.Segments)

	return analysis
}

// partition splits words into fixed windows of windowSize, dropping any
// trailing window with fewer than minWindowWords words.
func partition(words []voice.WordTimestamp) []window {
	windows := make([]window, 0, (len(words)+windowSize-1)/windowSize)
	for i := 0; i < len(words); i += windowSize {
		end := i + windowSize
		if end > len(words) {
			end = len(words)
		}
		if end-i < minWindowWords {
			break
		}
		windows = append(windows, window{words: words[i:end]})
	}
	return windows
}

// scoreWindow computes the pace/emphasis/repetition metrics and the combined
// energy score for w in place.
func scoreWindow(w *window) {
	n := len(w.words)
	duration := w.end() - w.start()
	if duration > 0 {
		w.wordsPerSecond = float64(n) / duration
	}
	w.emphasisCount = countEmphasis(w.words)
	w.repetitionCount = countRepetitions(w.words)

	var pace float64
	switch {
	case w.wordsPerSecond >= fastPaceWPS:
		pace = paceTermMax
	case w.wordsPerSecond > slowPaceWPS:
		pace = paceTermMax * (w.wordsPerSecond - slowPaceWPS) / (fastPaceWPS - slowPaceWPS)
	}

	emphasis := float64(w.emphasisCount) / float64(n) * emphasisMultiplier
	if emphasis > emphasisTermMax {
		emphasis = emphasisTermMax
	}

	repetition := float64(w.repetitionCount) / float64(n) * repetitionMultiplier
	if repetition > repetitionTermMax {
		repetition = repetitionTermMax
	}

	w.score = pace + emphasis + repetition
	if w.score > 1.0 {
		w.score = 1.0
	}
}

// countEmphasis counts words present in the emphasis lexicon.
func countEmphasis(words []voice.WordTimestamp) int {
	count := 0
	for _, w := range words {
		if _, ok := emphasisLexicon[normalizeWord(w.Word)]; ok {
			count++
		}
	}
	return count
}

// countRepetitions counts content words (normalized length > 2) that recur
// within the next repetitionLookahead words.
func countRepetitions(words []voice.WordTimestamp) int {
	count := 0
	for i, w := range words {
		norm := normalizeWord(w.Word)
		if len(norm) <= 2 {
			continue
		}
		limit := i + repetitionLookahead
		for j := i + 1; j <= limit && j < len(words); j++ {
			if normalizeWord(words[j].Word) == norm {
				count++
				break
			}
		}
	}
	return count
}

// normalizeWord lowercases w and strips everything except letters and digits,
// so "Amazing!" and "amazing" compare equal.
func normalizeWord(w string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(w) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// mergeAboveThreshold keeps windows scoring at or above threshold, merges
// consecutive kept windows separated by less than mergeGapSeconds into single
// segments (rescoring over the union), and discards merged segments shorter
// than minSegmentSeconds.
func mergeAboveThreshold(windows []window, threshold float64) []window {
	var merged []window
	for i := range windows {
		w := windows[i]
		if w.score < threshold {
			continue
		}
		if len(merged) > 0 {
			last := &merged[len(merged)-1]
			if w.start()-last.end() < mergeGapSeconds {
				last.words = append(last.words, w.words...)
				continue
			}
		}
		// Copy the word slice so later appends never alias the input.
		cp := window{words: append([]voice.WordTimestamp(nil), w.words...)}
		merged = append(merged, cp)
	}

	kept := merged[:0]
	for i := range merged {
		scoreWindow(&merged[i])
		if merged[i].end()-merged[i].start() >= minSegmentSeconds {
			kept = append(kept, merged[i])
		}
	}
	return kept
}

// toSegment converts a scored window into the public segment type, attaching
// the explanatory indicators.
func toSegment(w *window) voice.EnergySegment {
	texts := make([]string, len(w.words))
	for i, word := range w.words {
		texts[i] = word.Word
	}
	seg := voice.EnergySegment{
		StartTime:       w.start(),
		EndTime:         w.end(),
		Text:            strings.Join(texts, " "),
		WordsPerSecond:  w.wordsPerSecond,
		EmphasisCount:   w.emphasisCount,
		RepetitionCount: w.repetitionCount,
		EnergyScore:     w.score,
	}
	seg.Indicators = indicators(w)
	return seg
}

// indicators derives the display-only signal list for a merged segment.
// These never feed back into scoring.
func indicators(w *window) []voice.EnergyIndicator {
	var out []voice.EnergyIndicator
	if w.wordsPerSecond > fastPaceWPS {
		out = append(out, voice.IndicatorPaceIncrease)
	}
	if voicedRatio(w) > denseSpeechRatio {
		out = append(out, voice.IndicatorDenseSpeech)
	}
	if w.emphasisCount > 0 {
		out = append(out, voice.IndicatorEmphasis)
	}
	if w.repetitionCount > 0 {
		out = append(out, voice.IndicatorRepetition)
	}
	return out
}

// voicedRatio is the fraction of the segment duration actually spent voicing
// words (average word duration × word count over total duration).
func voicedRatio(w *window) float64 {
	total := w.end() - w.start()
	if total <= 0 {
		return 0
	}
	var voiced float64
	for _, word := range w.words {
		voiced += word.End - word.Start
	}
	return voiced / total
}

// rankPeaks selects the top segments by energy score and tags each with a
// suggested downstream use and a reason.
func rankPeaks(segments []voice.EnergySegment) []voice.PeakMoment {
	ranked := make([]voice.EnergySegment, len(segments))
	copy(ranked, segments)
	// Stable sort so chronological order breaks score ties deterministically.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].EnergyScore > ranked[j].EnergyScore
	})
	if len(ranked) > maxPeakMoments {
		ranked = ranked[:maxPeakMoments]
	}

	peaks := make([]voice.PeakMoment, 0, len(ranked))
	for i, seg := range ranked {
		peaks = append(peaks, voice.PeakMoment{
			Timestamp: seg.StartTime,
			Text:      seg.Text,
			Reason:    peakReason(seg),
			UseAs:     peakUse(i, seg),
		})
	}
	return peaks
}

// peakUse tags a ranked segment: the top segment becomes a hook when its
// score clears hookScore, question-bearing segments become quotes, segments
// with two or more indicators become conclusions, and everything else is a
// key point.
func peakUse(rank int, seg voice.EnergySegment) voice.PeakUse {
	switch {
	case rank == 0 && seg.EnergyScore > hookScore:
		return voice.PeakHook
	case strings.Contains(seg.Text, "?"):
		return voice.PeakQuote
	case len(seg.Indicators) >= 2:
		return voice.PeakConclusion
	default:
		return voice.PeakKeyPoint
	}
}

// peakReason picks the explanation by indicator priority:
// pace > emphasis > repetition > generic.
func peakReason(seg voice.EnergySegment) string {
	has := func(ind voice.EnergyIndicator) bool {
		for _, i := range seg.Indicators {
			if i == ind {
				return true
			}
		}
		return false
	}
	switch {
	case has(voice.IndicatorPaceIncrease):
		return "speaking pace rises well above the surrounding baseline"
	case has(voice.IndicatorEmphasis):
		return "cluster of emphasis words signals strong engagement"
	case has(voice.IndicatorRepetition):
		return "repeated key words suggest a point the speaker cares about"
	default:
		return "sustained high energy across the segment"
	}
}
