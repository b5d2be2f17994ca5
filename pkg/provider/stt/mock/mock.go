// Package mock provides a configurable [stt.Transcriber] for tests.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/voxprint/pkg/provider/stt"
)

// Compile-time interface check.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber is a mock implementation of [stt.Transcriber].
type Transcriber struct {
	mu sync.Mutex

	// TranscribeResult is returned by Transcribe when TranscribeErr is nil.
	TranscribeResult *stt.Transcript
	// TranscribeErr, when set, is returned by every Transcribe call.
	TranscribeErr error

	// TranscribeCalls records the config passed to each call.
	TranscribeCalls []stt.Config
}

func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, cfg stt.Config) (*stt.Transcript, error) {
	t.mu.Lock()
	t.TranscribeCalls = append(t.TranscribeCalls, cfg)
	t.mu.Unlock()

	if t.TranscribeErr != nil {
		return nil, t.TranscribeErr
	}
	if t.TranscribeResult != nil {
		return t.TranscribeResult, nil
	}
	return &stt.Transcript{}, nil
}

// CallCount returns how many times Transcribe was invoked.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.TranscribeCalls)
}
