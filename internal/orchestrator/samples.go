package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/MrWong99/voxprint/internal/profile"
	"github.com/MrWong99/voxprint/pkg/voice"
)

// AddWritingSample validates, analyzes, and stores a writing sample, then
// re-aggregates the user's written patterns over every stored sample.
//
// Written patterns are never merged incrementally: each sample event
// re-derives them from scratch across the full sample set, so deletions and
// additions are symmetric. Returns the stored sample and the updated
// profile.
func (o *Orchestrator) AddWritingSample(ctx context.Context, userID, text string) (*voice.WritingSample, *voice.VoiceProfile, error) {
	if userID == "" {
		return nil, nil, fmt.Errorf("orchestrator: user id must not be empty")
	}

	lock := o.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	started := time.Now()
	o.metrics.ActiveUpdates.Add(ctx, 1)
	defer o.metrics.ActiveUpdates.Add(ctx, -1)

	existing, err := o.store.ListSamples(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrator: list samples for %q: %w", userID, err)
	}
	normalized, err := o.checker.Check(text, existing)
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrator: reject sample for %q: %w", userID, err)
	}

	extractStart := time.Now()
	patterns, err := o.extract.ExtractWritten(ctx, normalized)
	o.metrics.ExtractionDuration.Record(ctx, time.Since(extractStart).Seconds())
	if err != nil {
		o.log.Warn("written pattern extraction failed, using neutral defaults",
			"user_id", userID, "error", err)
	}

	id, err := generateID()
	if err != nil {
		return nil, nil, err
	}
	s := &voice.WritingSample{
		ID:       id,
		UserID:   userID,
		Text:     normalized,
		Patterns: &patterns,
	}
	o.embedSample(ctx, s)

	if err := o.store.AddSample(ctx, s); err != nil {
		return nil, nil, fmt.Errorf("orchestrator: store sample for %q: %w", userID, err)
	}

	p, err := o.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrator: load profile %q: %w", userID, err)
	}
	if p == nil {
		p = newProfile(userID)
	}
	if err := o.rebuildWritten(ctx, p); err != nil {
		return nil, nil, err
	}
	if err := o.finish(ctx, EventNewWritingSample, p, started); err != nil {
		return nil, nil, err
	}
	return s, p, nil
}

// DeleteWritingSample removes a sample and re-aggregates the written
// patterns over the remaining set. Deleting an unknown sample still runs
// the rebuild, which makes retries after partial failures safe.
func (o *Orchestrator) DeleteWritingSample(ctx context.Context, userID, sampleID string) (*voice.VoiceProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("orchestrator: user id must not be empty")
	}

	lock := o.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	started := time.Now()

	s, err := o.store.GetSample(ctx, sampleID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load sample %q: %w", sampleID, err)
	}
	if s != nil && s.UserID != userID {
		return nil, fmt.Errorf("orchestrator: sample %q does not belong to user %q", sampleID, userID)
	}
	if err := o.store.DeleteSample(ctx, sampleID); err != nil {
		return nil, fmt.Errorf("orchestrator: delete sample %q: %w", sampleID, err)
	}

	p, err := o.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load profile %q: %w", userID, err)
	}
	if p == nil {
		return nil, fmt.Errorf("orchestrator: no profile for user %q", userID)
	}
	if err := o.rebuildWritten(ctx, p); err != nil {
		return nil, err
	}
	if err := o.finish(ctx, EventSampleDeleted, p, started); err != nil {
		return nil, err
	}
	return p, nil
}

// RebuildProfile re-derives the written patterns from every currently
// stored analyzed sample and recomputes the score. Spoken patterns and
// tonal attributes are left untouched.
func (o *Orchestrator) RebuildProfile(ctx context.Context, userID string) (*voice.VoiceProfile, error) {
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
	if err := o.rebuildWritten(ctx, p); err != nil {
		return nil, err
	}
	if err := o.finish(ctx, EventFullRebuild, p, started); err != nil {
		return nil, err
	}
	return p, nil
}

// rebuildWritten re-aggregates written patterns from scratch over every
// stored sample with completed extraction, and resets the analyzed-sample
// counter to match. With no analyzed samples left, the written patterns
// fragment reverts to absent.
func (o *Orchestrator) rebuildWritten(ctx context.Context, p *voice.VoiceProfile) error {
	samples, err := o.store.ListSamples(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("orchestrator: list samples for %q: %w", p.UserID, err)
	}

	analyzed := make([]voice.WrittenPatterns, 0, len(samples))
	for _, s := range samples {
		if s.Patterns != nil {
			analyzed = append(analyzed, *s.Patterns)
		}
	}
	p.WrittenPatterns = profile.AggregateWritten(analyzed)
	p.WritingSamplesAnalyzed = len(analyzed)
	return nil
}

// embedSample computes the sample's embedding when a provider is
// configured. Embedding failures are logged and skipped: the sample is
// still stored, it just stays out of the similarity index.
func (o *Orchestrator) embedSample(ctx context.Context, s *voice.WritingSample) {
	if o.emb == nil {
		return
	}
	vec, err := o.emb.Embed(ctx, s.Text)
	if err != nil {
		o.metrics.RecordProviderError(ctx, o.emb.ModelID(), "embeddings")
		o.log.Warn("sample embedding failed, storing without vector",
			"user_id", s.UserID, "error", err)
		return
	}
	s.Embedding = vec
}
