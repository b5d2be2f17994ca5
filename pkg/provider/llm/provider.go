// Package llm defines the Provider interface for the Large Language Model
// collaborators that voxprint consults for qualitative pattern extraction.
//
// An LLM provider wraps a remote or local model API (e.g., OpenAI GPT-4o,
// Anthropic Claude, or a local Ollama instance) behind a uniform completion
// interface. The profile engine only ever sends a single extraction request
// and reads back one response — no streaming, no tool calling — so the
// interface is deliberately smaller than a general-purpose LLM client.
//
// Implementors must be safe for concurrent use and must propagate context
// cancellation promptly.
package llm

import "context"

// Message is a single message in an LLM conversation.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// Usage holds token accounting information returned by the LLM backend.
// Counts are in the model's native token unit and may differ between
// providers for the same textual content.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the LLM needs to produce a response.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation. For extraction calls this is a
	// single user message carrying the transcript or writing sample.
	Messages []Message

	// SystemPrompt is a high-priority instruction injected before the
	// conversation. Providers without native system-prompt support should
	// prepend it as a "system"-role message.
	SystemPrompt string

	// Temperature controls output randomness in [0.0, 2.0]. Extraction
	// calls use low values for reproducibility.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is the full model reply for a completion request.
type CompletionResponse struct {
	// Content is the text of the model's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
//
// Implementations must be safe for concurrent use. When ctx is cancelled the
// call must return as quickly as possible with ctx's error.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
