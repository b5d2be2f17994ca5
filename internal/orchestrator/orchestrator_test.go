package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/MrWong99/voxprint/internal/pattern"
	"github.com/MrWong99/voxprint/internal/profile/profilestore"
	"github.com/MrWong99/voxprint/internal/sample"
	embmock "github.com/MrWong99/voxprint/pkg/provider/embeddings/mock"
	"github.com/MrWong99/voxprint/pkg/provider/llm"
	llmmock "github.com/MrWong99/voxprint/pkg/provider/llm/mock"
	"github.com/MrWong99/voxprint/pkg/provider/stt"
	sttmock "github.com/MrWong99/voxprint/pkg/provider/stt/mock"
	"github.com/MrWong99/voxprint/pkg/voice"
)

const sampleText = "The quarterly report shows steady growth across every region, " +
	"with the northern markets outperforming even our most optimistic projections."

// spokenJSON builds a minimal extractor reply with the given warmth; every
// omitted field sanitizes to its neutral default.
func spokenJSON(warmth float64) string {
	return fmt.Sprintf(`{"tonal": {"warmth": %v}}`, warmth)
}

// testTranscript is a short transcript with word timestamps.
func testTranscript() *stt.Transcript {
	words := []voice.WordTimestamp{
		{Word: "this", Start: 0.0, End: 0.2, Confidence: 0.99},
		{Word: "is", Start: 0.2, End: 0.35, Confidence: 0.99},
		{Word: "absolutely", Start: 0.35, End: 0.7, Confidence: 0.97},
		{Word: "amazing", Start: 0.7, End: 1.1, Confidence: 0.98},
		{Word: "work", Start: 1.1, End: 1.4, Confidence: 0.99},
		{Word: "everyone", Start: 1.4, End: 1.9, Confidence: 0.98},
	}
	return &stt.Transcript{Text: "this is absolutely amazing work everyone", Words: words}
}

type fixture struct {
	orch  *Orchestrator
	store *profilestore.MemStore
	llm   *llmmock.Provider
	stt   *sttmock.Transcriber
	emb   *embmock.Provider
}

func newFixture(t *testing.T, replies ...string) *fixture {
	t.Helper()

	lp := &llmmock.Provider{}
	for _, r := range replies {
		lp.CompleteResponses = append(lp.CompleteResponses, &llm.CompletionResponse{Content: r})
	}

	f := &fixture{
		store: profilestore.NewMemStore(),
		llm:   lp,
		stt:   &sttmock.Transcriber{TranscribeResult: testTranscript()},
		emb:   &embmock.Provider{EmbedResult: []float32{0.1, 0.2, 0.3}},
	}

	orch, err := New(Config{
		Store:       f.store,
		Transcriber: f.stt,
		Extractor:   pattern.NewExtractor(lp),
		Checker:     sample.New(),
		Embeddings:  f.emb,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.orch = orch
	return f
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// ─── voice sessions ──────────────────────────────────────────────────────────

func TestAnalyzeTranscript_FirstSessionReplacesOutright(t *testing.T) {
	t.Parallel()

	f := newFixture(t, spokenJSON(0.8))
	res, err := f.orch.AnalyzeTranscript(context.Background(), "alice", testTranscript())
	if err != nil {
		t.Fatalf("AnalyzeTranscript: %v", err)
	}

	if !approx(res.Profile.TonalAttributes.Warmth, 0.8) {
		t.Errorf("warmth = %v, want 0.8 (first session replaces)", res.Profile.TonalAttributes.Warmth)
	}
	if res.Profile.VoiceSessionsAnalyzed != 1 {
		t.Errorf("sessions = %d, want 1", res.Profile.VoiceSessionsAnalyzed)
	}
	if res.Profile.CalibrationScore <= 0 {
		t.Errorf("score = %d, want > 0 after first session", res.Profile.CalibrationScore)
	}

	stored, err := f.store.GetProfile(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if stored == nil || !approx(stored.TonalAttributes.Warmth, 0.8) {
		t.Errorf("stored profile = %+v, want persisted warmth 0.8", stored)
	}
}

func TestAnalyzeTranscript_SecondSessionBlends(t *testing.T) {
	t.Parallel()

	f := newFixture(t, spokenJSON(0.8), spokenJSON(0.2))
	ctx := context.Background()

	if _, err := f.orch.AnalyzeTranscript(ctx, "alice", testTranscript()); err != nil {
		t.Fatalf("first session: %v", err)
	}
	res, err := f.orch.AnalyzeTranscript(ctx, "alice", testTranscript())
	if err != nil {
		t.Fatalf("second session: %v", err)
	}

	// 0.8×0.7 + 0.2×0.3 at the voice-session weight.
	if got := res.Profile.TonalAttributes.Warmth; !approx(got, 0.62) {
		t.Errorf("warmth = %v, want 0.62", got)
	}
	if res.Profile.VoiceSessionsAnalyzed != 2 {
		t.Errorf("sessions = %d, want 2", res.Profile.VoiceSessionsAnalyzed)
	}
}

func TestAnalyzeTranscript_ExtractionFailureDegradesToDefaults(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.llm.CompleteErr = errors.New("provider down")

	res, err := f.orch.AnalyzeTranscript(context.Background(), "alice", testTranscript())
	if err != nil {
		t.Fatalf("AnalyzeTranscript: %v", err)
	}
	if res.Profile.VoiceSessionsAnalyzed != 1 {
		t.Errorf("sessions = %d, want 1 (session must still count)", res.Profile.VoiceSessionsAnalyzed)
	}
	if !approx(res.Profile.TonalAttributes.Warmth, 0.5) {
		t.Errorf("warmth = %v, want neutral 0.5", res.Profile.TonalAttributes.Warmth)
	}
}

func TestAnalyzeVoiceSession_Transcribes(t *testing.T) {
	t.Parallel()

	f := newFixture(t, spokenJSON(0.6))
	res, err := f.orch.AnalyzeVoiceSession(context.Background(), "alice", []byte("audio"), stt.Config{})
	if err != nil {
		t.Fatalf("AnalyzeVoiceSession: %v", err)
	}
	if f.stt.CallCount() != 1 {
		t.Errorf("transcriber called %d times, want 1", f.stt.CallCount())
	}
	if res.Transcript == nil || res.Transcript.Text == "" {
		t.Errorf("missing transcript in result: %+v", res.Transcript)
	}
}

func TestAnalyzeVoiceSession_NoTranscriberConfigured(t *testing.T) {
	t.Parallel()

	orch, err := New(Config{
		Store:     profilestore.NewMemStore(),
		Extractor: pattern.NewExtractor(&llmmock.Provider{}),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := orch.AnalyzeVoiceSession(context.Background(), "alice", []byte("audio"), stt.Config{}); err == nil {
		t.Fatal("expected error without a transcriber")
	}
}

func TestApplyQuestionnaire_MergesAtSupplementaryWeight(t *testing.T) {
	t.Parallel()

	f := newFixture(t, spokenJSON(0.8), spokenJSON(0.3))
	ctx := context.Background()

	if _, err := f.orch.AnalyzeTranscript(ctx, "alice", testTranscript()); err != nil {
		t.Fatalf("session: %v", err)
	}
	p, err := f.orch.ApplyQuestionnaire(ctx, "alice", "I mostly write about gardening and long walks.")
	if err != nil {
		t.Fatalf("ApplyQuestionnaire: %v", err)
	}

	// 0.8×0.8 + 0.3×0.2 at the supplementary weight.
	if got := p.TonalAttributes.Warmth; !approx(got, 0.7) {
		t.Errorf("warmth = %v, want 0.7", got)
	}
}

func TestApplyQuestionnaire_RequiresProfile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, spokenJSON(0.5))
	if _, err := f.orch.ApplyQuestionnaire(context.Background(), "nobody", "some answers"); err == nil {
		t.Fatal("expected error for user without a profile")
	}
}

// ─── writing samples ─────────────────────────────────────────────────────────

const writtenReply = `{
	"structure_preference": "modular",
	"formality": 0.9,
	"paragraph_length": "short",
	"opening_style": "hook",
	"closing_style": "action"
}`

func TestAddWritingSample_AggregatesWrittenPatterns(t *testing.T) {
	t.Parallel()

	f := newFixture(t, writtenReply)
	s, p, err := f.orch.AddWritingSample(context.Background(), "alice", sampleText)
	if err != nil {
		t.Fatalf("AddWritingSample: %v", err)
	}

	if s.ID == "" {
		t.Error("sample got no generated ID")
	}
	if len(s.Embedding) == 0 {
		t.Error("sample got no embedding despite configured provider")
	}
	if p.WrittenPatterns == nil {
		t.Fatal("written patterns absent after first sample")
	}
	if p.WrittenPatterns.StructurePreference != voice.StructureModular {
		t.Errorf("structure = %q, want modular", p.WrittenPatterns.StructurePreference)
	}
	if p.WritingSamplesAnalyzed != 1 {
		t.Errorf("samples analyzed = %d, want 1", p.WritingSamplesAnalyzed)
	}
}

func TestAddWritingSample_RejectsDuplicate(t *testing.T) {
	t.Parallel()

	f := newFixture(t, writtenReply)
	ctx := context.Background()

	if _, _, err := f.orch.AddWritingSample(ctx, "alice", sampleText); err != nil {
		t.Fatalf("first sample: %v", err)
	}
	_, _, err := f.orch.AddWritingSample(ctx, "alice", sampleText)
	var dup *sample.DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
}

func TestAddWritingSample_EmbeddingFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, writtenReply)
	f.emb.EmbedErr = errors.New("embeddings down")

	s, _, err := f.orch.AddWritingSample(context.Background(), "alice", sampleText)
	if err != nil {
		t.Fatalf("AddWritingSample: %v", err)
	}
	if len(s.Embedding) != 0 {
		t.Errorf("expected no embedding, got %v", s.Embedding)
	}
}

func TestDeleteWritingSample_LastSampleRevertsPatterns(t *testing.T) {
	t.Parallel()

	f := newFixture(t, writtenReply)
	ctx := context.Background()

	s, p, err := f.orch.AddWritingSample(ctx, "alice", sampleText)
	if err != nil {
		t.Fatalf("AddWritingSample: %v", err)
	}
	scoreWithSample := p.CalibrationScore

	p, err = f.orch.DeleteWritingSample(ctx, "alice", s.ID)
	if err != nil {
		t.Fatalf("DeleteWritingSample: %v", err)
	}
	if p.WrittenPatterns != nil {
		t.Errorf("written patterns = %+v, want absent after last sample deleted", p.WrittenPatterns)
	}
	if p.WritingSamplesAnalyzed != 0 {
		t.Errorf("samples analyzed = %d, want 0", p.WritingSamplesAnalyzed)
	}
	if p.CalibrationScore >= scoreWithSample {
		t.Errorf("score = %d, want below %d after losing the sample", p.CalibrationScore, scoreWithSample)
	}
}

func TestDeleteWritingSample_WrongOwner(t *testing.T) {
	t.Parallel()

	f := newFixture(t, writtenReply)
	ctx := context.Background()

	s, _, err := f.orch.AddWritingSample(ctx, "alice", sampleText)
	if err != nil {
		t.Fatalf("AddWritingSample: %v", err)
	}
	if _, err := f.orch.DeleteWritingSample(ctx, "mallory", s.ID); err == nil {
		t.Fatal("expected ownership error")
	}
}

func TestRebuildProfile_RederivesFromStoredSamples(t *testing.T) {
	t.Parallel()

	f := newFixture(t, writtenReply)
	ctx := context.Background()

	s, _, err := f.orch.AddWritingSample(ctx, "alice", sampleText)
	if err != nil {
		t.Fatalf("AddWritingSample: %v", err)
	}

	// Remove the sample behind the orchestrator's back; a rebuild must
	// notice and revert the written fragment.
	if err := f.store.DeleteSample(ctx, s.ID); err != nil {
		t.Fatalf("DeleteSample: %v", err)
	}
	p, err := f.orch.RebuildProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("RebuildProfile: %v", err)
	}
	if p.WrittenPatterns != nil || p.WritingSamplesAnalyzed != 0 {
		t.Errorf("rebuild left patterns=%+v analyzed=%d, want absent/0",
			p.WrittenPatterns, p.WritingSamplesAnalyzed)
	}
}

// ─── calibration and edits ───────────────────────────────────────────────────

func TestCompleteCalibrationRound(t *testing.T) {
	t.Parallel()

	f := newFixture(t, spokenJSON(0.8))
	ctx := context.Background()

	res, err := f.orch.AnalyzeTranscript(ctx, "alice", testTranscript())
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	before := res.Profile.CalibrationScore

	p, err := f.orch.CompleteCalibrationRound(ctx, "alice", 5, "nailed my tone")
	if err != nil {
		t.Fatalf("CompleteCalibrationRound: %v", err)
	}
	if p.CalibrationRoundsCompleted != 1 {
		t.Errorf("rounds = %d, want 1", p.CalibrationRoundsCompleted)
	}
	if p.CalibrationScore <= before {
		t.Errorf("score = %d, want above %d after a 5-star round", p.CalibrationScore, before)
	}

	rounds, err := f.store.ListRounds(ctx, "alice")
	if err != nil {
		t.Fatalf("ListRounds: %v", err)
	}
	if len(rounds) != 1 || rounds[0].Rating != 5 {
		t.Errorf("stored rounds = %+v, want one 5-star round", rounds)
	}
}

func TestCompleteCalibrationRound_RequiresProfile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, err := f.orch.CompleteCalibrationRound(context.Background(), "nobody", 4, ""); err == nil {
		t.Fatal("expected error for user without a profile")
	}
}

func TestCompleteCalibrationRound_CounterTracksStoredRounds(t *testing.T) {
	t.Parallel()

	f := newFixture(t, spokenJSON(0.8))
	ctx := context.Background()

	if _, err := f.orch.AnalyzeTranscript(ctx, "alice", testTranscript()); err != nil {
		t.Fatalf("session: %v", err)
	}

	// A round that reached the store without the profile save landing, as
	// after a crash between the two writes.
	orphan := &voice.CalibrationRound{ID: "round-orphan", UserID: "alice", Rating: 4}
	if err := f.store.AddRound(ctx, orphan); err != nil {
		t.Fatalf("AddRound: %v", err)
	}

	p, err := f.orch.CompleteCalibrationRound(ctx, "alice", 5, "")
	if err != nil {
		t.Fatalf("CompleteCalibrationRound: %v", err)
	}
	if p.CalibrationRoundsCompleted != 2 {
		t.Errorf("rounds = %d, want 2 (one per stored round)", p.CalibrationRoundsCompleted)
	}
}

func TestRecomputeAll_HealsRoundsCounter(t *testing.T) {
	t.Parallel()

	f := newFixture(t, spokenJSON(0.8))
	ctx := context.Background()

	if _, err := f.orch.AnalyzeTranscript(ctx, "alice", testTranscript()); err != nil {
		t.Fatalf("session: %v", err)
	}
	round := &voice.CalibrationRound{ID: "round-1", UserID: "alice", Rating: 5}
	if err := f.store.AddRound(ctx, round); err != nil {
		t.Fatalf("AddRound: %v", err)
	}

	changed, err := f.orch.RecomputeAll(ctx, 0)
	if err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}
	if changed != 1 {
		t.Errorf("changed = %d, want 1", changed)
	}
	p, err := f.store.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.CalibrationRoundsCompleted != 1 {
		t.Errorf("rounds = %d, want 1 after sweep", p.CalibrationRoundsCompleted)
	}
}

func TestAddRule_Reinforces(t *testing.T) {
	t.Parallel()

	f := newFixture(t, spokenJSON(0.8))
	ctx := context.Background()

	if _, err := f.orch.AnalyzeTranscript(ctx, "alice", testTranscript()); err != nil {
		t.Fatalf("session: %v", err)
	}

	rule := voice.LearnedRule{Type: voice.RuleAvoid, Content: "corporate buzzwords", Confidence: 0.6}
	if _, err := f.orch.AddRule(ctx, "alice", rule); err != nil {
		t.Fatalf("AddRule: %v", err)
	}
	p, err := f.orch.AddRule(ctx, "alice", rule)
	if err != nil {
		t.Fatalf("AddRule repeat: %v", err)
	}

	if len(p.LearnedRules) != 1 {
		t.Fatalf("rules = %d, want 1 (deduplicated)", len(p.LearnedRules))
	}
	if got := p.LearnedRules[0].Confidence; !approx(got, 0.7) {
		t.Errorf("confidence = %v, want reinforced 0.7", got)
	}
}

func TestAddRule_InvalidType(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.orch.AddRule(context.Background(), "alice", voice.LearnedRule{Type: "forbid", Content: "x"})
	if err == nil {
		t.Fatal("expected error for invalid rule type")
	}
}

func TestSetReferentWeight_TakesFromUserShare(t *testing.T) {
	t.Parallel()

	f := newFixture(t, spokenJSON(0.8))
	ctx := context.Background()

	if _, err := f.orch.AnalyzeTranscript(ctx, "alice", testTranscript()); err != nil {
		t.Fatalf("session: %v", err)
	}
	p, err := f.orch.SetReferentWeight(ctx, "alice", "David Attenborough", 20)
	if err != nil {
		t.Fatalf("SetReferentWeight: %v", err)
	}
	if p.ReferentInfluences.UserWeight != 80 {
		t.Errorf("user weight = %d, want 80", p.ReferentInfluences.UserWeight)
	}

	p, err = f.orch.RemoveReferent(ctx, "alice", "David Attenborough")
	if err != nil {
		t.Fatalf("RemoveReferent: %v", err)
	}
	if p.ReferentInfluences.UserWeight != 100 || len(p.ReferentInfluences.Influences) != 0 {
		t.Errorf("influences = %+v, want all weight back with the user", p.ReferentInfluences)
	}
}

// ─── recompute-all ───────────────────────────────────────────────────────────

func TestRecomputeAll_StableDataIsNoOp(t *testing.T) {
	t.Parallel()

	f := newFixture(t, spokenJSON(0.8), spokenJSON(0.4))
	ctx := context.Background()

	for _, user := range []string{"alice", "bob"} {
		if _, err := f.orch.AnalyzeTranscript(ctx, user, testTranscript()); err != nil {
			t.Fatalf("session for %s: %v", user, err)
		}
	}

	changed, err := f.orch.RecomputeAll(ctx, 4)
	if err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}
	if changed != 0 {
		t.Errorf("changed = %d, want 0 over stable data", changed)
	}
}

func TestRecomputeAll_RepairsHandEditedScore(t *testing.T) {
	t.Parallel()

	f := newFixture(t, spokenJSON(0.8))
	ctx := context.Background()

	res, err := f.orch.AnalyzeTranscript(ctx, "alice", testTranscript())
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	want := res.Profile.CalibrationScore

	// Corrupt the derived score directly in the store.
	res.Profile.CalibrationScore = 99
	if err := f.store.SaveProfile(ctx, res.Profile); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	changed, err := f.orch.RecomputeAll(ctx, 0)
	if err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}
	if changed != 1 {
		t.Errorf("changed = %d, want 1", changed)
	}
	p, err := f.store.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.CalibrationScore != want {
		t.Errorf("score = %d, want recomputed %d", p.CalibrationScore, want)
	}
}
