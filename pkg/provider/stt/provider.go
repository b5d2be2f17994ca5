// Package stt defines the batch transcription interface for voice-session
// analysis.
//
// Voxprint analyses recorded sessions after the fact, so the interface is a
// single prerecorded-audio call returning the full transcript with
// word-level timestamps — the timestamps drive the enthusiasm analysis.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"time"

	"github.com/MrWong99/voxprint/pkg/voice"
)

// Transcript is the result of transcribing one recorded session.
type Transcript struct {
	// Text is the full transcribed speech content.
	Text string

	// Confidence is the overall confidence score (0.0–1.0). May be zero if
	// the provider does not report confidence.
	Confidence float64

	// Words carries one entry per spoken word with start/end offsets in
	// seconds from the start of the recording.
	Words []voice.WordTimestamp

	// Duration is the length of the recording as reported by the provider.
	Duration time.Duration
}

// Config holds per-request transcription options.
type Config struct {
	// Language is a BCP-47 language tag (e.g., "en", "de"). Empty uses the
	// provider default.
	Language string

	// MimeType describes the audio container (e.g., "audio/wav",
	// "audio/mp3"). Empty lets the provider sniff the format.
	MimeType string
}

// Transcriber is the abstraction over any batch speech-to-text backend.
type Transcriber interface {
	// Transcribe converts a complete recorded audio payload to a
	// [Transcript] with word-level timestamps.
	Transcribe(ctx context.Context, audio []byte, cfg Config) (*Transcript, error)
}
