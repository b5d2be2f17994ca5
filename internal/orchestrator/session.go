package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/voxprint/internal/energy"
	"github.com/MrWong99/voxprint/internal/profile"
	"github.com/MrWong99/voxprint/pkg/provider/stt"
	"github.com/MrWong99/voxprint/pkg/voice"
)

// SessionResult is the outcome of one analyzed voice session.
type SessionResult struct {
	// Profile is the merged profile after the session was folded in.
	Profile *voice.VoiceProfile

	// Analysis is the enthusiasm analysis of this session, immutable once
	// computed.
	Analysis voice.EnthusiasmAnalysis

	// Transcript is the session transcript the analysis was derived from.
	Transcript *stt.Transcript
}

// AnalyzeVoiceSession transcribes session audio and folds it into the
// user's profile. Requires a configured transcriber.
func (o *Orchestrator) AnalyzeVoiceSession(ctx context.Context, userID string, audio []byte, cfg stt.Config) (*SessionResult, error) {
	if o.stt == nil {
		return nil, fmt.Errorf("orchestrator: no transcriber configured")
	}
	tr, err := o.stt.Transcribe(ctx, audio, cfg)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: transcribe session for %q: %w", userID, err)
	}
	return o.AnalyzeTranscript(ctx, userID, tr)
}

// AnalyzeTranscript folds an already-transcribed voice session into the
// user's profile: energy analysis over the word timestamps, LLM pattern
// extraction over the text, sanitized merge, score recompute.
//
// The first session replaces the profile's spoken patterns outright; later
// sessions merge at the voice-session weight. An extraction failure
// degrades to the neutral default pattern set instead of aborting — the
// session count and energy analysis still land.
func (o *Orchestrator) AnalyzeTranscript(ctx context.Context, userID string, tr *stt.Transcript) (*SessionResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("orchestrator: user id must not be empty")
	}
	if tr == nil {
		return nil, fmt.Errorf("orchestrator: transcript must not be nil")
	}

	lock := o.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	started := time.Now()
	o.metrics.ActiveUpdates.Add(ctx, 1)
	defer o.metrics.ActiveUpdates.Add(ctx, -1)

	analysis := energy.Analyze(tr.Words)
	set := o.extractSpoken(ctx, tr)

	existing, err := o.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load profile %q: %w", userID, err)
	}

	p := existing
	weight := profile.WeightVoiceSession
	if p == nil {
		p = newProfile(userID)
		weight = profile.WeightFirstSession
	}

	var prior *voice.PatternSet
	if existing != nil {
		prior = &voice.PatternSet{Spoken: existing.SpokenPatterns, Tonal: existing.TonalAttributes}
	}
	merged := profile.MergePatterns(prior, set, weight)
	p.SpokenPatterns = merged.Spoken
	p.TonalAttributes = merged.Tonal
	p.VoiceSessionsAnalyzed++

	if err := o.finish(ctx, EventNewVoiceSession, p, started); err != nil {
		return nil, err
	}
	return &SessionResult{Profile: p, Analysis: analysis, Transcript: tr}, nil
}

// ApplyQuestionnaire merges patterns extracted from a low-confidence text
// source, such as onboarding follow-up answers, at the supplementary
// weight. It never creates a profile: a voice session must come first.
func (o *Orchestrator) ApplyQuestionnaire(ctx context.Context, userID, text string) (*voice.VoiceProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("orchestrator: user id must not be empty")
	}

	lock := o.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	started := time.Now()

	p, err := o.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load profile %q: %w", userID, err)
	}
	if p == nil {
		return nil, fmt.Errorf("orchestrator: no profile for user %q", userID)
	}

	set := o.extractSpoken(ctx, &stt.Transcript{Text: text})
	prior := &voice.PatternSet{Spoken: p.SpokenPatterns, Tonal: p.TonalAttributes}
	merged := profile.MergePatterns(prior, set, profile.WeightSupplementary)
	p.SpokenPatterns = merged.Spoken
	p.TonalAttributes = merged.Tonal

	if err := o.finish(ctx, EventProfileEdit, p, started); err != nil {
		return nil, err
	}
	return p, nil
}

// extractSpoken runs LLM pattern extraction over the transcript text,
// degrading to the neutral defaults the extractor returns when the provider
// is unreachable.
func (o *Orchestrator) extractSpoken(ctx context.Context, tr *stt.Transcript) voice.PatternSet {
	text := tr.Text
	if strings.TrimSpace(text) == "" {
		text = joinWords(tr.Words)
	}

	extractStart := time.Now()
	set, err := o.extract.ExtractSpoken(ctx, text)
	o.metrics.ExtractionDuration.Record(ctx, time.Since(extractStart).Seconds())
	if err != nil {
		o.log.Warn("pattern extraction failed, using neutral defaults", "error", err)
	}
	return set
}

func joinWords(words []voice.WordTimestamp) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, w.Word)
	}
	return strings.Join(parts, " ")
}
