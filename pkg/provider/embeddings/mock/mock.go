// Package mock provides a test double for the embeddings.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/voxprint/pkg/provider/embeddings"
)

// Provider is a mock implementation of embeddings.Provider. Configure the
// response fields, then inspect the recorded calls.
type Provider struct {
	mu sync.Mutex

	// EmbedFunc, if set, is called by Embed instead of returning
	// EmbedResult. Lets tests vary vectors per input text.
	EmbedFunc func(text string) ([]float32, error)

	// EmbedResult is returned by Embed when EmbedFunc is nil.
	EmbedResult []float32

	// EmbedErr, if non-nil, is returned as the error from Embed.
	EmbedErr error

	// EmbedBatchResult is returned by EmbedBatch.
	EmbedBatchResult [][]float32

	// EmbedBatchErr, if non-nil, is returned as the error from EmbedBatch.
	EmbedBatchErr error

	// DimensionsValue is returned by Dimensions.
	DimensionsValue int

	// ModelIDValue is returned by ModelID.
	ModelIDValue string

	// EmbedCalls records the texts passed to Embed, in order.
	EmbedCalls []string

	// EmbedBatchCalls records the slices passed to EmbedBatch, in order.
	EmbedBatchCalls [][]string
}

var _ embeddings.Provider = (*Provider)(nil)

func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	p.EmbedCalls = append(p.EmbedCalls, text)
	fn := p.EmbedFunc
	p.mu.Unlock()

	if fn != nil {
		return fn(text)
	}
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	return p.EmbedResult, nil
}

func (p *Provider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	recorded := make([]string, len(texts))
	copy(recorded, texts)
	p.EmbedBatchCalls = append(p.EmbedBatchCalls, recorded)
	p.mu.Unlock()

	if p.EmbedBatchErr != nil {
		return nil, p.EmbedBatchErr
	}
	return p.EmbedBatchResult, nil
}

func (p *Provider) Dimensions() int { return p.DimensionsValue }

func (p *Provider) ModelID() string { return p.ModelIDValue }
