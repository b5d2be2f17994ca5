package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/MrWong99/voxprint/internal/profile"
	"github.com/MrWong99/voxprint/internal/referent"
	"github.com/MrWong99/voxprint/pkg/voice"
)

// CompleteCalibrationRound records a feedback round (rating 1–5, optional
// free text) and recomputes the score with the new average rating.
func (o *Orchestrator) CompleteCalibrationRound(ctx context.Context, userID string, rating int, feedback string) (*voice.VoiceProfile, error) {
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

	id, err := generateID()
	if err != nil {
		return nil, err
	}
	round := &voice.CalibrationRound{
		ID:       id,
		UserID:   userID,
		Rating:   rating,
		Feedback: feedback,
	}
	if err := o.store.AddRound(ctx, round); err != nil {
		return nil, fmt.Errorf("orchestrator: store round for %q: %w", userID, err)
	}

	// The rounds counter comes out of rescore, derived from the stored
	// rounds, so a save failure here can be retried without double-counting.
	if err := o.finish(ctx, EventCalibrationRound, p, started); err != nil {
		return nil, err
	}
	return p, nil
}

// AddRule adds or reinforces a learned generation rule on the user's
// profile. Repeated observations of the same (type, content) pair raise
// the rule's confidence instead of duplicating it.
func (o *Orchestrator) AddRule(ctx context.Context, userID string, rule voice.LearnedRule) (*voice.VoiceProfile, error) {
	if !rule.Type.IsValid() {
		return nil, fmt.Errorf("orchestrator: invalid rule type %q", rule.Type)
	}
	return o.editProfile(ctx, userID, func(p *voice.VoiceProfile) error {
		p.LearnedRules = profile.UpsertRule(p.LearnedRules, rule)
		return nil
	})
}

// SetReferentWeight sets a named influence's weight, adding or removing it
// as needed. The user's own voice keeps at least half the total weight.
func (o *Orchestrator) SetReferentWeight(ctx context.Context, userID, name string, weight int) (*voice.VoiceProfile, error) {
	return o.editProfile(ctx, userID, func(p *voice.VoiceProfile) error {
		ri, err := referent.SetWeight(p.ReferentInfluences, name, weight)
		if err != nil {
			return fmt.Errorf("orchestrator: set referent weight: %w", err)
		}
		p.ReferentInfluences = ri
		return nil
	})
}

// RemoveReferent removes a named influence, returning its weight to the
// user's own voice. Removing an unknown influence is not an error.
func (o *Orchestrator) RemoveReferent(ctx context.Context, userID, name string) (*voice.VoiceProfile, error) {
	return o.editProfile(ctx, userID, func(p *voice.VoiceProfile) error {
		p.ReferentInfluences = referent.Remove(p.ReferentInfluences, name)
		return nil
	})
}

// editProfile runs a read-modify-write profile edit under the user lock and
// finishes with rescore + save. The edit callback mutates the profile in
// place; returning an error abandons the update.
func (o *Orchestrator) editProfile(ctx context.Context, userID string, edit func(*voice.VoiceProfile) error) (*voice.VoiceProfile, error) {
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
	if err := edit(p); err != nil {
		return nil, err
	}
	if err := o.finish(ctx, EventProfileEdit, p, started); err != nil {
		return nil, err
	}
	return p, nil
}
