package profilestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/MrWong99/voxprint/pkg/voice"
)

// MemStore is an in-memory [Store] for tests and single-process
// deployments without a database. All methods copy on the way in and out so
// callers can never mutate stored state through retained pointers.
type MemStore struct {
	mu       sync.RWMutex
	profiles map[string]*voice.VoiceProfile
	samples  map[string]*voice.WritingSample
	rounds   map[string][]voice.CalibrationRound
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		profiles: make(map[string]*voice.VoiceProfile),
		samples:  make(map[string]*voice.WritingSample),
		rounds:   make(map[string][]voice.CalibrationRound),
	}
}

func (s *MemStore) GetProfile(_ context.Context, userID string) (*voice.VoiceProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return cloneProfile(p)
}

func (s *MemStore) SaveProfile(_ context.Context, p *voice.VoiceProfile) error {
	if p == nil || p.UserID == "" {
		return errors.New("profilestore: profile must have a user id")
	}
	clone, err := cloneProfile(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = clone
	return nil
}

func (s *MemStore) DeleteProfile(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.profiles, userID)
	delete(s.rounds, userID)
	for id, sample := range s.samples {
		if sample.UserID == userID {
			delete(s.samples, id)
		}
	}
	return nil
}

func (s *MemStore) ListUserIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemStore) AddSample(_ context.Context, sample *voice.WritingSample) error {
	if sample == nil || sample.ID == "" || sample.UserID == "" {
		return errors.New("profilestore: sample must have an id and user id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.samples[sample.ID]; exists {
		return fmt.Errorf("profilestore: sample with id %q already exists", sample.ID)
	}
	if sample.CreatedAt.IsZero() {
		sample.CreatedAt = time.Now()
	}
	clone := cloneSample(sample)
	s.samples[sample.ID] = &clone
	return nil
}

func (s *MemStore) GetSample(_ context.Context, id string) (*voice.WritingSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sample, ok := s.samples[id]
	if !ok {
		return nil, nil
	}
	clone := cloneSample(sample)
	return &clone, nil
}

func (s *MemStore) ListSamples(_ context.Context, userID string) ([]voice.WritingSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := []voice.WritingSample{}
	for _, sample := range s.samples {
		if sample.UserID == userID {
			samples = append(samples, cloneSample(sample))
		}
	}
	sort.Slice(samples, func(i, j int) bool {
		if !samples[i].CreatedAt.Equal(samples[j].CreatedAt) {
			return samples[i].CreatedAt.Before(samples[j].CreatedAt)
		}
		return samples[i].ID < samples[j].ID
	})
	return samples, nil
}

func (s *MemStore) DeleteSample(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.samples, id)
	return nil
}

func (s *MemStore) NearestSamples(_ context.Context, userID string, embedding []float32, topK int) ([]SampleMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := []SampleMatch{}
	for _, sample := range s.samples {
		if sample.UserID != userID || len(sample.Embedding) == 0 {
			continue
		}
		matches = append(matches, SampleMatch{
			Sample:   cloneSample(sample),
			Distance: cosineDistance(embedding, sample.Embedding),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Sample.ID < matches[j].Sample.ID
	})
	if topK >= 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *MemStore) AddRound(_ context.Context, r *voice.CalibrationRound) error {
	if r == nil || r.ID == "" || r.UserID == "" {
		return errors.New("profilestore: round must have an id and user id")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("profilestore: round rating must be 1-5, got %d", r.Rating)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rounds[r.UserID] {
		if existing.ID == r.ID {
			return fmt.Errorf("profilestore: round with id %q already exists", r.ID)
		}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.rounds[r.UserID] = append(s.rounds[r.UserID], *r)
	return nil
}

func (s *MemStore) ListRounds(_ context.Context, userID string) ([]voice.CalibrationRound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rounds := make([]voice.CalibrationRound, len(s.rounds[userID]))
	copy(rounds, s.rounds[userID])
	return rounds, nil
}

func (s *MemStore) AverageRating(_ context.Context, userID string) (float64, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rounds := s.rounds[userID]
	if len(rounds) == 0 {
		return 0, 0, nil
	}
	sum := 0
	for _, r := range rounds {
		sum += r.Rating
	}
	return float64(sum) / float64(len(rounds)), len(rounds), nil
}

// cloneProfile deep-copies via a JSON round-trip. Profiles are pure data so
// this is lossless.
func cloneProfile(p *voice.VoiceProfile) (*voice.VoiceProfile, error) {
	doc, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("profilestore: clone profile: %w", err)
	}
	var clone voice.VoiceProfile
	if err := json.Unmarshal(doc, &clone); err != nil {
		return nil, fmt.Errorf("profilestore: clone profile: %w", err)
	}
	return &clone, nil
}

// cloneSample copies by hand because the embedding is excluded from JSON.
func cloneSample(sample *voice.WritingSample) voice.WritingSample {
	clone := *sample
	if sample.Patterns != nil {
		patterns := *sample.Patterns
		clone.Patterns = &patterns
	}
	if len(sample.Embedding) > 0 {
		clone.Embedding = make([]float32, len(sample.Embedding))
		copy(clone.Embedding, sample.Embedding)
	}
	return clone
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
