package resilience

import (
	"context"

	"github.com/MrWong99/voxprint/pkg/provider/stt"
)

// STTFallback implements [stt.Transcriber] with automatic failover across
// multiple transcription backends. Each backend has its own circuit breaker;
// when the primary fails or its breaker is open, the next healthy fallback
// is tried.
//
// Unlike pattern extraction, voice analysis cannot proceed without a
// transcript, so [ErrAllFailed] here is a hard failure for the session.
type STTFallback struct {
	group *Group[stt.Transcriber]
}

// Compile-time interface assertion.
var _ stt.Transcriber = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred
// backend.
func NewSTTFallback(primary stt.Transcriber, primaryName string, cfg BreakerConfig) *STTFallback {
	return &STTFallback{group: NewGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional transcriber as a fallback.
func (f *STTFallback) AddFallback(name string, t stt.Transcriber) {
	f.group.AddFallback(name, t)
}

// Transcribe sends the audio to the first healthy backend.
func (f *STTFallback) Transcribe(ctx context.Context, audio []byte, cfg stt.Config) (*stt.Transcript, error) {
	return Do(f.group, func(t stt.Transcriber) (*stt.Transcript, error) {
		return t.Transcribe(ctx, audio, cfg)
	})
}
