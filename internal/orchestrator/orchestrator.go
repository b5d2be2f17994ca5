// Package orchestrator sequences the voice-profile update pipeline: energy
// analysis, pattern extraction, sanitized merge, and calibration scoring.
//
// Each profile event runs read-merge-write against the store under a
// per-user lock, so the stored profile is always a complete document and
// concurrent events for the same user serialize instead of clobbering each
// other. The pure computation lives in internal/energy, internal/pattern,
// internal/profile, and internal/calibration; this package only decides
// what runs when, with which merge weight, and records the outcome.
package orchestrator

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/voxprint/internal/calibration"
	"github.com/MrWong99/voxprint/internal/observe"
	"github.com/MrWong99/voxprint/internal/pattern"
	"github.com/MrWong99/voxprint/internal/profile/profilestore"
	"github.com/MrWong99/voxprint/internal/referent"
	"github.com/MrWong99/voxprint/internal/sample"
	"github.com/MrWong99/voxprint/pkg/provider/embeddings"
	"github.com/MrWong99/voxprint/pkg/provider/stt"
	"github.com/MrWong99/voxprint/pkg/voice"
)

// Event names a profile update trigger. Events select the merge weight and
// whether written patterns are re-aggregated.
type Event string

const (
	EventNewVoiceSession  Event = "new_voice_session"
	EventNewWritingSample Event = "new_writing_sample"
	EventSampleDeleted    Event = "sample_deleted"
	EventCalibrationRound Event = "calibration_round_completed"
	EventProfileEdit      Event = "referent_or_rule_edit"
	EventFullRebuild      Event = "full_rebuild"
)

// Config configures an [Orchestrator].
type Config struct {
	// Store is the profile persistence layer. Required.
	Store profilestore.Store

	// Transcriber converts session audio into word-level timestamps.
	// Optional: without it only [Orchestrator.AnalyzeTranscript] works.
	Transcriber stt.Transcriber

	// Extractor invokes the LLM pattern-extraction collaborator. Required.
	Extractor *pattern.Extractor

	// Checker validates incoming writing samples. Defaults to
	// [sample.New]'s defaults if nil.
	Checker *sample.Checker

	// Embeddings computes writing-sample vectors for the similarity index.
	// Optional: without it samples are stored without embeddings.
	Embeddings embeddings.Provider

	// Metrics defaults to [observe.DefaultMetrics] if nil.
	Metrics *observe.Metrics

	// Logger defaults to [slog.Default] if nil.
	Logger *slog.Logger
}

// Orchestrator drives profile updates. All methods are safe for concurrent
// use; events for the same user serialize on a per-user lock.
type Orchestrator struct {
	store   profilestore.Store
	stt     stt.Transcriber
	extract *pattern.Extractor
	checker *sample.Checker
	emb     embeddings.Provider
	metrics *observe.Metrics
	log     *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an [Orchestrator]. Store and Extractor must be set.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("orchestrator: config requires a store")
	}
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("orchestrator: config requires an extractor")
	}
	o := &Orchestrator{
		store:   cfg.Store,
		stt:     cfg.Transcriber,
		extract: cfg.Extractor,
		checker: cfg.Checker,
		emb:     cfg.Embeddings,
		metrics: cfg.Metrics,
		log:     cfg.Logger,
		locks:   map[string]*sync.Mutex{},
	}
	if o.checker == nil {
		o.checker = sample.New()
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	return o, nil
}

// userLock returns the mutex serializing updates for one user. Locks are
// never released from the map; the per-user footprint is one mutex.
func (o *Orchestrator) userLock(userID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	l, ok := o.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[userID] = l
	}
	return l
}

// GetProfile returns a user's current profile, or (nil, nil) if the user
// has none yet.
func (o *Orchestrator) GetProfile(ctx context.Context, userID string) (*voice.VoiceProfile, error) {
	return o.store.GetProfile(ctx, userID)
}

// newProfile is the cold-start profile document for a user.
func newProfile(userID string) *voice.VoiceProfile {
	return &voice.VoiceProfile{
		UserID:             userID,
		ReferentInfluences: referent.Default(),
	}
}

// rescore recomputes the derived calibration score from the profile's
// counters, richness, and the user's average rating, then stamps UpdatedAt.
// The rounds counter is derived from the persisted rounds rather than
// incremented, so a retried round that already hit the store counts once.
func (o *Orchestrator) rescore(ctx context.Context, p *voice.VoiceProfile) error {
	avg, rounds, err := o.store.AverageRating(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("orchestrator: average rating for %q: %w", p.UserID, err)
	}
	p.CalibrationRoundsCompleted = rounds
	p.CalibrationScore = calibration.ScoreProfile(p, avg)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// finish rescores and saves the profile, then records the event metrics.
func (o *Orchestrator) finish(ctx context.Context, event Event, p *voice.VoiceProfile, started time.Time) error {
	if err := o.rescore(ctx, p); err != nil {
		o.metrics.RecordProfileEvent(ctx, string(event), "error")
		return err
	}
	if err := o.store.SaveProfile(ctx, p); err != nil {
		o.metrics.RecordProfileEvent(ctx, string(event), "error")
		return fmt.Errorf("orchestrator: save profile %q: %w", p.UserID, err)
	}

	eventAttr := metric.WithAttributes(attribute.String("event", string(event)))
	o.metrics.RecordProfileEvent(ctx, string(event), "ok")
	o.metrics.AnalysisDuration.Record(ctx, time.Since(started).Seconds(), eventAttr)
	o.metrics.CalibrationScore.Record(ctx, int64(p.CalibrationScore), eventAttr)
	o.log.Info("profile updated",
		"user_id", p.UserID,
		"event", string(event),
		"calibration_score", p.CalibrationScore)
	return nil
}

// generateID produces a random 16-byte hex string using crypto/rand.
func generateID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("orchestrator: generate id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
