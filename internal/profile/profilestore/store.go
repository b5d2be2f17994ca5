// Package profilestore persists voice profiles, writing samples, and
// calibration rounds. The profile is stored as a single JSONB document and
// always replaced whole, never patched field by field, so concurrent
// readers only ever see complete states.
package profilestore

import (
	"context"

	"github.com/MrWong99/voxprint/pkg/voice"
)

// Store provides persistence for profiles and their supporting records.
// Implementations must be safe for concurrent use.
type Store interface {
	// GetProfile retrieves a user's profile. Returns (nil, nil) if the user
	// has no profile yet.
	GetProfile(ctx context.Context, userID string) (*voice.VoiceProfile, error)

	// SaveProfile creates or replaces a user's profile as a whole document.
	SaveProfile(ctx context.Context, p *voice.VoiceProfile) error

	// DeleteProfile removes a user's profile along with their writing
	// samples and calibration rounds. Deleting a non-existent profile is
	// not an error.
	DeleteProfile(ctx context.Context, userID string) error

	// ListUserIDs returns the IDs of every user with a stored profile, in
	// ascending order.
	ListUserIDs(ctx context.Context) ([]string, error)

	// AddSample inserts a writing sample.
	AddSample(ctx context.Context, s *voice.WritingSample) error

	// GetSample retrieves a writing sample by ID. Returns (nil, nil) if not
	// found.
	GetSample(ctx context.Context, id string) (*voice.WritingSample, error)

	// ListSamples returns all of a user's writing samples, oldest first.
	ListSamples(ctx context.Context, userID string) ([]voice.WritingSample, error)

	// DeleteSample removes a writing sample by ID. Deleting a non-existent
	// sample is not an error.
	DeleteSample(ctx context.Context, id string) error

	// NearestSamples returns up to topK of a user's samples ordered by
	// ascending cosine distance to embedding. Samples without an embedding
	// are excluded.
	NearestSamples(ctx context.Context, userID string, embedding []float32, topK int) ([]SampleMatch, error)

	// AddRound records a completed calibration round.
	AddRound(ctx context.Context, r *voice.CalibrationRound) error

	// ListRounds returns all of a user's calibration rounds, oldest first.
	ListRounds(ctx context.Context, userID string) ([]voice.CalibrationRound, error)

	// AverageRating returns the mean rating across a user's rounds and the
	// round count. A user with no rounds returns (0, 0).
	AverageRating(ctx context.Context, userID string) (float64, int, error)
}

// SampleMatch pairs a writing sample with its cosine distance to a query
// embedding. Lower distance means more similar.
type SampleMatch struct {
	Sample   voice.WritingSample
	Distance float64
}
